package catalogparser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/giygas/rxpad/catalogparser/entities"
	"github.com/giygas/rxpad/logging"
)

// TSV columns, in order:
//
//	id  label  aliases  categories  type  popularity  fasting
//
// aliases and categories are "|" separated, fasting is optional ("1"/"true").
const (
	colID = iota
	colLabel
	colAliases
	colCategories
	colType
	colPopularity
	colFasting

	minColumns = colPopularity + 1
)

// readTSVFile opens path and converts it with parseTSV
func readTSVFile(path string) ([]entities.Item, error) {
	tsvFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if err := tsvFile.Close(); err != nil {
			logging.Warn("Failed to close catalog TSV file", "path", path, "error", err)
		}
	}()

	return parseTSV(tsvFile, path)
}

// parseTSV converts tab separated catalog rows into items.
// Malformed lines are skipped and counted, never fatal.
func parseTSV(r io.Reader, name string) ([]entities.Item, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var items []entities.Item
	lineCount := 0
	skippedEmptyLines := 0
	skippedComments := 0
	skippedMissingColumns := 0
	skippedFormatErrors := 0

	for scanner.Scan() {
		lineCount++
		line := strings.TrimRight(scanner.Text(), "\r")

		if strings.TrimSpace(line) == "" {
			skippedEmptyLines++
			continue
		}

		if strings.HasPrefix(line, "#") {
			skippedComments++
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < minColumns {
			skippedMissingColumns++
			continue
		}

		id := strings.TrimSpace(fields[colID])
		label := strings.TrimSpace(fields[colLabel])
		if id == "" || label == "" {
			skippedFormatErrors++
			continue
		}

		popularity := 0
		if p := strings.TrimSpace(fields[colPopularity]); p != "" {
			n, err := strconv.Atoi(p)
			if err != nil {
				skippedFormatErrors++
				continue
			}
			popularity = n
		}

		item := entities.Item{
			ID:         id,
			Label:      label,
			Aliases:    splitList(fields[colAliases]),
			Category:   splitList(fields[colCategories]),
			Type:       strings.TrimSpace(fields[colType]),
			Popularity: popularity,
			Source:     entities.SourceCatalog,
		}

		if len(fields) > colFasting {
			if fasting, ok := parseFlag(fields[colFasting]); ok {
				item.Metadata = map[string]any{"fasting": fasting}
			}
		}

		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error in %s: %w", name, err)
	}

	if skippedEmptyLines > 0 || skippedComments > 0 || skippedMissingColumns > 0 || skippedFormatErrors > 0 {
		logging.Info("Catalog TSV skip statistics",
			"file", name,
			"empty_lines", skippedEmptyLines,
			"comments", skippedComments,
			"missing_columns", skippedMissingColumns,
			"format_errors", skippedFormatErrors,
			"total_lines", lineCount,
			"records_parsed", len(items))
	}

	return items, nil
}

func splitList(field string) []string {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil
	}

	parts := strings.Split(field, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseFlag(field string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "1", "true", "yes", "oui":
		return true, true
	case "0", "false", "no", "non":
		return false, true
	default:
		return false, false
	}
}
