package diag

import (
	"context"
	"log/slog"
	"sync"
)

// Handler receives diagnostics.
type Handler interface {
	Report(d Diagnostic)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(Diagnostic)

func (f HandlerFunc) Report(d Diagnostic) { f(d) }

// Discard drops every diagnostic.
var Discard Handler = HandlerFunc(func(Diagnostic) {})

// Tee forwards each diagnostic to every non-nil handler in order.
func Tee(handlers ...Handler) Handler {
	hs := make([]Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			hs = append(hs, h)
		}
	}
	return HandlerFunc(func(d Diagnostic) {
		for _, h := range hs {
			h.Report(d)
		}
	})
}

// Collector accumulates diagnostics and optionally forwards them.
// It is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	diags   []Diagnostic
	nerrors int
	next    Handler
}

// NewCollector returns a Collector forwarding to next, which may be nil.
func NewCollector(next Handler) *Collector {
	return &Collector{next: next}
}

func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	c.diags = append(c.diags, d)
	if d.Severity == Error {
		c.nerrors++
	}
	c.mu.Unlock()
	if c.next != nil {
		c.next.Report(d)
	}
}

// Diagnostics returns a copy of everything reported so far.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	return out
}

// ErrorCount returns the number of error-severity diagnostics.
func (c *Collector) ErrorCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nerrors
}

// Count returns the number of diagnostics of the given kind.
func (c *Collector) Count(kind Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.diags {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Err returns an *AggregateError holding every error-severity diagnostic,
// or nil when none was reported.
func (c *Collector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nerrors == 0 {
		return nil
	}
	errs := make([]Diagnostic, 0, c.nerrors)
	for _, d := range c.diags {
		if d.Severity == Error {
			errs = append(errs, d)
		}
	}
	return &AggregateError{Diagnostics: errs}
}

// LogHandler writes diagnostics to a structured logger.
type LogHandler struct {
	Logger *slog.Logger
}

func (h LogHandler) Report(d Diagnostic) {
	if h.Logger == nil {
		return
	}
	level := slog.LevelWarn
	if d.Severity == Error {
		level = slog.LevelError
	}
	h.Logger.Log(context.Background(), level, d.Message,
		"kind", string(d.Kind),
		"loc", d.Location.String(),
	)
}
