package diag

import (
	"errors"
	"fmt"
	"strings"
)

// AggregateError represents every error reported by one compilation.
type AggregateError struct {
	Diagnostics []Diagnostic
}

func (e *AggregateError) Error() string {
	if len(e.Diagnostics) == 1 {
		return e.Diagnostics[0].String()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors:\n", len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, d.String())
	}
	return sb.String()
}

// Diagnostics returns the diagnostics carried by err if it wraps an
// AggregateError. Otherwise returns nil.
func Diagnostics(err error) []Diagnostic {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Diagnostics
	}
	return nil
}

// HasKind reports whether err carries a diagnostic of the given kind.
func HasKind(err error, kind Kind) bool {
	for _, d := range Diagnostics(err) {
		if d.Kind == kind {
			return true
		}
	}
	return false
}
