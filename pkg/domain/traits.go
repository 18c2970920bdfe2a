package domain

import (
	"strconv"
	"strings"
)

// Traits describes one primitive element class.
// The codes are opaque strings here; the graph and processing packages
// interpret them.
type Traits struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// PortCount constrains input/output arity, e.g. "1/1", "0-2/-", "1-/=".
	PortCount string `json:"port_count,omitempty" yaml:"port_count,omitempty" mapstructure:"port_count"`

	// Processing is the per-port discipline code, e.g. "h/l" or "a/ah".
	Processing string `json:"processing,omitempty" yaml:"processing,omitempty" mapstructure:"processing"`

	// FlowCode is the input-to-output reachability code, e.g. "x/x" or "xy/x".
	FlowCode string `json:"flow_code,omitempty" yaml:"flow_code,omitempty" mapstructure:"flow_code"`

	// Flags is a comma-separated list of letter flags with optional values ("S3,L2").
	Flags string `json:"flags,omitempty" yaml:"flags,omitempty" mapstructure:"flags"`

	Requirements string `json:"requires,omitempty" yaml:"requires,omitempty" mapstructure:"requires"`
	Provisions   string `json:"provides,omitempty" yaml:"provides,omitempty" mapstructure:"provides"`

	Package       string `json:"package,omitempty" yaml:"package,omitempty" mapstructure:"package"`
	Documentation string `json:"doc,omitempty" yaml:"doc,omitempty" mapstructure:"doc"`
}

// Flag returns the value of a letter flag. A flag present without a number
// has value 1. The boolean is false when the flag is absent.
func (t Traits) Flag(letter byte) (int, bool) {
	for _, f := range strings.Split(t.Flags, ",") {
		f = strings.TrimSpace(f)
		if f == "" || f[0] != letter {
			continue
		}
		if len(f) == 1 {
			return 1, true
		}
		n, err := strconv.Atoi(f[1:])
		if err != nil {
			return 1, true
		}
		return n, true
	}
	return 0, false
}

// Requires reports whether word appears among the class requirements.
func (t Traits) Requires(word string) bool {
	return ContainsWord(t.Requirements, word)
}

// Provides reports whether word appears among the class provisions.
func (t Traits) Provides(word string) bool {
	return ContainsWord(t.Provisions, word)
}

// RequirementList splits the requirement string into words.
func (t Traits) RequirementList() []string {
	return Words(t.Requirements)
}

// Words splits a requirement or provision string. Words are separated by
// whitespace or '|'.
func Words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '|' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

// ContainsWord reports whether word is one of the words of s.
func ContainsWord(s, word string) bool {
	if word == "" {
		return false
	}
	for _, w := range Words(s) {
		if w == word {
			return true
		}
	}
	return false
}
