// Package suggest implements the interactive side of the search widgets:
// the debounced query controller, the selection state machine and the
// bounded recent-searches history.
package suggest

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/giygas/rxpad/catalogparser/entities"
	"github.com/giygas/rxpad/logging"
	"github.com/giygas/rxpad/metrics"
)

// Defaults applied by NewController
const (
	DefaultDelay     = 250 * time.Millisecond
	DefaultMinLength = 2
)

// Source answers suggestion queries. Implementations may block (remote sources);
// the controller always calls them outside of its own goroutine.
type Source interface {
	Search(ctx context.Context, query string) ([]entities.Suggestion, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context, query string) ([]entities.Suggestion, error)

// Search implements Source
func (f SourceFunc) Search(ctx context.Context, query string) ([]entities.Suggestion, error) {
	return f(ctx, query)
}

// QueryState is a snapshot of one input session
type QueryState struct {
	RawText       string
	DebouncedText string
	Pending       bool // a query is scheduled but the delay has not elapsed
	IsLoading     bool
	Results       []entities.Suggestion
	LastError     error

	// Version increases with every transition. Snapshots are delivered from
	// several goroutines, consumers drop those older than the last one seen.
	Version uint64
}

// ControllerOptions configures a Controller
type ControllerOptions struct {
	Delay     time.Duration
	MinLength int           // trimmed texts shorter than this never query
	Timeout   time.Duration // per query, 0 means no timeout
	OnState   func(QueryState)
}

// Controller coalesces keystrokes into at most one query per idle period.
// Only the results of the last issued query are ever applied.
type Controller struct {
	src  Source
	opts ControllerOptions

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     QueryState
	timer     *time.Timer
	scheduled uint64 // token of the armed timer
	issued    uint64 // generation of the last issued query
	closed    bool
}

// NewController creates a controller querying src
func NewController(src Source, opts ControllerOptions) *Controller {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.MinLength <= 0 {
		opts.MinLength = DefaultMinLength
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		src:    src,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
	}
}

// OnTextChange records the latest text and (re)arms the debounce timer.
// Texts shorter than MinLength clear the results without querying.
func (c *Controller) OnTextChange(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	c.state.RawText = text
	query := strings.TrimSpace(text)

	if utf8.RuneCountInString(query) < c.opts.MinLength {
		c.resetLocked()
		snapshot := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snapshot)
		return
	}

	if c.timer != nil && c.timer.Stop() {
		metrics.KeystrokesCoalescedTotal.Inc()
	}
	c.scheduled++
	token := c.scheduled
	c.timer = time.AfterFunc(c.opts.Delay, func() { c.fire(token, query) })
	c.state.Pending = true

	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snapshot)
}

// Cancel drops the scheduled query and any in-flight result and clears the results.
// The raw text is kept.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.resetLocked()
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snapshot)
}

// State returns the current snapshot
func (c *Controller) State() QueryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close stops the timer and discards every pending or in-flight result.
// Snapshots not yet handed to OnState when Close returns are dropped.
// A callback already running is not interrupted.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.scheduled++
	c.issued++
	c.cancel()
}

// resetLocked invalidates the armed timer and the in-flight query
func (c *Controller) resetLocked() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.scheduled++
	c.issued++
	c.state.DebouncedText = ""
	c.state.Pending = false
	c.state.IsLoading = false
	c.state.Results = nil
	c.state.LastError = nil
}

func (c *Controller) snapshotLocked() QueryState {
	c.state.Version++
	s := c.state
	if s.Results != nil {
		s.Results = append([]entities.Suggestion(nil), s.Results...)
	}
	return s
}

// notify runs OnState outside the lock, unless the controller was closed
// after the snapshot was taken
func (c *Controller) notify(s QueryState) {
	if c.opts.OnState == nil {
		return
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	c.opts.OnState(s)
}

// fire runs on the timer goroutine
func (c *Controller) fire(token uint64, query string) {
	c.mu.Lock()
	if c.closed || token != c.scheduled {
		c.mu.Unlock()
		return
	}
	c.issued++
	generation := c.issued
	c.state.DebouncedText = query
	c.state.Pending = false
	c.state.IsLoading = true
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snapshot)

	c.run(generation, query)
}

func (c *Controller) run(generation uint64, query string) {
	ctx := c.ctx
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	results, err := c.search(ctx, query)

	c.mu.Lock()
	if c.closed || generation != c.issued {
		c.mu.Unlock()
		metrics.StaleResultsDiscardedTotal.Inc()
		metrics.SuggestionQueriesTotal.WithLabelValues("stale").Inc()
		return
	}

	c.state.IsLoading = false
	if err != nil {
		logging.Warn("Suggestion query failed", "query", query, "error", err)
		metrics.SuggestionQueriesTotal.WithLabelValues("error").Inc()
		c.state.Results = nil
		c.state.LastError = err
	} else {
		metrics.SuggestionQueriesTotal.WithLabelValues("ok").Inc()
		c.state.Results = results
		c.state.LastError = nil
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snapshot)
}

// search shields the controller from panicking sources
func (c *Controller) search(ctx context.Context, query string) (results []entities.Suggestion, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return c.src.Search(ctx, query)
}
