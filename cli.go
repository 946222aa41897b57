package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/giygas/rxpad/apiclient"
	"github.com/giygas/rxpad/catalogparser"
	"github.com/giygas/rxpad/catalogparser/entities"
	"github.com/giygas/rxpad/config"
	"github.com/giygas/rxpad/logging"
	"github.com/giygas/rxpad/prescription"
	"github.com/giygas/rxpad/search"
	"github.com/giygas/rxpad/suggest"
)

const usage = `usage: rxpad [command]

Without a command rxpad serves the HTTP API.

commands:
  suggest [-multiple] [-remote URL] <catalog>
                                  interactive search over a local catalog,
                                  or over the catalog of an rxpad server
  draft <symptoms...>             ask BACKEND_URL for a drafted prescription
  presets                         list the presets stored in BACKEND_URL
`

// runCommand runs a terminal command and returns the exit code
func runCommand(cfg *config.Config, args []string) int {
	ctx := context.Background()

	switch args[0] {
	case "suggest":
		return runSuggest(ctx, cfg, args[1:], os.Stdin, os.Stdout)
	case "draft":
		return runDraft(ctx, cfg, args[1:], os.Stdout)
	case "presets":
		return runPresets(ctx, cfg, os.Stdout)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return 0
	}

	fmt.Fprint(os.Stderr, usage)
	return 2
}

// loadIndex parses the configured catalogs and indexes one of them
func loadIndex(ctx context.Context, cfg *config.Config, name string) (*search.Index, error) {
	parser := catalogparser.NewCatalogParser(cfg.CatalogDir, cfg.CatalogURL, name)
	catalogs, err := parser.ParseAllCatalogs(ctx)
	if err != nil {
		return nil, err
	}
	return search.NewIndex(entities.NewCatalog(name, catalogs[name])), nil
}

// suggestionSource queries the rxpad server at remote, or a local index when remote is empty
func suggestionSource(ctx context.Context, cfg *config.Config, name, remote string) (suggest.Source, error) {
	if remote != "" {
		params := entities.SuggestionQuery{Limit: cfg.SuggestionLimit, Custom: true}
		return apiclient.NewSuggestionClient(apiclient.New(remote), name, params), nil
	}

	ix, err := loadIndex(ctx, cfg, name)
	if err != nil {
		return nil, err
	}
	return search.NewSource(func() *search.Index { return ix }, entities.Filters{}, true), nil
}

// runSuggest drives a Selector from stdin. Each line is the new input text,
// a number picks a suggestion, ":esc" dismisses, ":rm <id>" removes a
// selection and ":q" quits.
func runSuggest(ctx context.Context, cfg *config.Config, args []string, in io.Reader, out io.Writer) int {
	fs := flag.NewFlagSet("suggest", flag.ContinueOnError)
	multiple := fs.Bool("multiple", false, "allow several selections")
	remote := fs.String("remote", "", "base URL of an rxpad server to query instead of the local catalogs")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	name := fs.Arg(0)

	src, err := suggestionSource(ctx, cfg, name, *remote)
	if err != nil {
		logging.Error("Failed to load catalog", "catalog", name, "error", err)
		return 1
	}

	store, err := newHistoryStore(cfg)
	if err != nil {
		logging.Error("Failed to open history store", "error", err)
		return 1
	}

	mode := suggest.ModeSingle
	if *multiple {
		mode = suggest.ModeMultiple
	}

	sel := suggest.NewSelector(src, suggest.SelectorOptions{
		Mode:       mode,
		ContextKey: name,
		History:    suggest.NewHistory(store),
		Controller: suggest.ControllerOptions{Delay: cfg.Debounce},
		OnChange: func(value string, item *entities.Item) {
			if item != nil {
				fmt.Fprintf(out, "selected %s [%s]\n", item.Label, item.ID)
			}
		},
		OnMultipleSelect: func(items []entities.Item) {
			labels := make([]string, 0, len(items))
			for _, it := range items {
				labels = append(labels, it.Label)
			}
			fmt.Fprintf(out, "selection: %s\n", strings.Join(labels, ", "))
		},
	})
	defer sel.Close()

	if recent := sel.RecentSearches(); len(recent) > 0 {
		fmt.Fprintf(out, "recent: %s\n", strings.Join(recent, ", "))
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == ":q":
			return 0
		case line == ":esc":
			sel.Dismiss()
		case strings.HasPrefix(line, ":rm "):
			if err := sel.Remove(strings.TrimSpace(strings.TrimPrefix(line, ":rm "))); err != nil {
				fmt.Fprintln(out, err)
			}
		default:
			if n, err := strconv.Atoi(line); err == nil {
				pick(sel, n, out)
				continue
			}
			sel.Focus()
			sel.Type(line)
			waitForResults(sel, 2*time.Second)
			printSuggestions(sel, out)
		}
	}

	if err := scanner.Err(); err != nil {
		logging.Error("Failed to read input", "error", err)
		return 1
	}
	return 0
}

func pick(sel *suggest.Selector, n int, out io.Writer) {
	suggestions := sel.Suggestions()
	if n < 1 || n > len(suggestions) {
		fmt.Fprintf(out, "no suggestion %d\n", n)
		return
	}
	if err := sel.Pick(suggestions[n-1].Item); err != nil {
		fmt.Fprintln(out, err)
	}
}

// waitForResults blocks until the selector leaves the searching state
func waitForResults(sel *suggest.Selector, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) && sel.State() == suggest.StateSearching {
		time.Sleep(10 * time.Millisecond)
	}
}

func printSuggestions(sel *suggest.Selector, out io.Writer) {
	if err := sel.QueryState().LastError; err != nil {
		fmt.Fprintln(out, "search failed:", err)
		return
	}
	for i, s := range sel.Suggestions() {
		marker := ""
		if s.IsCustom() {
			marker = " (custom)"
		}
		fmt.Fprintf(out, "%3d. %s [%s]%s\n", i+1, s.Label, s.ID, marker)
	}
}

func backendClient(cfg *config.Config) (*apiclient.Client, error) {
	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL is not set")
	}
	return apiclient.New(cfg.BackendURL), nil
}

// runDraft asks the backend for a draft and prints the resulting form
func runDraft(ctx context.Context, cfg *config.Config, args []string, out io.Writer) int {
	symptoms := strings.TrimSpace(strings.Join(args, " "))
	if symptoms == "" {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	client, err := backendClient(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	session := prescription.NewSession(client, func(message string) {
		fmt.Fprintln(os.Stderr, message)
	})

	draft, err := session.GenerateDraft(ctx, symptoms)
	if err != nil {
		return 1
	}

	for _, w := range draft.Warnings {
		fmt.Fprintln(out, "warning:", w)
	}
	return printJSON(out, session.Form())
}

func runPresets(ctx context.Context, cfg *config.Config, out io.Writer) int {
	client, err := backendClient(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	presets, err := client.ListPresets(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, prescription.UserMessage(err))
		return 1
	}

	for _, p := range presets {
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Category, p.Urgency)
	}
	return 0
}

func printJSON(out io.Writer, v any) int {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logging.Error("Failed to encode output", "error", err)
		return 1
	}
	return 0
}
