package diag

import (
	"fmt"
	"strings"

	"github.com/aretw0/weft/pkg/domain"
)

// Severity orders diagnostics. Only Error prevents a graph from being handed downstream.
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "error":
		*s = Error
	case "warning", "warn":
		*s = Warning
	default:
		return fmt.Errorf("unknown severity %q", b)
	}
	return nil
}

// Kind classifies a diagnostic.
type Kind string

const (
	Redeclaration           Kind = "redeclaration"
	UnresolvedReference     Kind = "unresolved-reference"
	OverloadMismatch        Kind = "overload-mismatch"
	CircularExpansion       Kind = "circular-expansion"
	DanglingTunnel          Kind = "dangling-tunnel"
	DisciplineContradiction Kind = "discipline-contradiction"
	UnsatisfiedRequirement  Kind = "unsatisfied-requirement"
	PortCount               Kind = "port-count"
	ConnectionReuse         Kind = "connection-reuse"
	UnconnectedPort         Kind = "unconnected-port"
	InvalidTraits           Kind = "invalid-traits"
)

// Diagnostic is one reported problem.
type Diagnostic struct {
	Severity Severity        `json:"severity" yaml:"severity"`
	Kind     Kind            `json:"kind" yaml:"kind"`
	Location domain.Location `json:"location" yaml:"location"`
	Message  string          `json:"message" yaml:"message"`
}

// Errorf builds an error-severity diagnostic.
func Errorf(kind Kind, loc domain.Location, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: Error, Kind: kind, Location: loc, Message: fmt.Sprintf(format, args...)}
}

// Warnf builds a warning-severity diagnostic.
func Warnf(kind Kind, loc domain.Location, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: Warning, Kind: kind, Location: loc, Message: fmt.Sprintf(format, args...)}
}

func (d Diagnostic) String() string {
	if d.Location.IsZero() {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Location, d.Severity, d.Message)
}

// Error lets a Diagnostic travel as an error value.
func (d Diagnostic) Error() string {
	return d.String()
}
