package elementmap

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is an inclusive arity interval. Max < 0 means unbounded.
type Range struct {
	Min, Max int
}

func (r Range) contains(n int) bool {
	return n >= r.Min && (r.Max < 0 || n <= r.Max)
}

func (r Range) String() string {
	switch {
	case r.Max < 0 && r.Min == 0:
		return "any number of"
	case r.Max < 0:
		return fmt.Sprintf("at least %d", r.Min)
	case r.Min == r.Max:
		return strconv.Itoa(r.Min)
	}
	return fmt.Sprintf("%d to %d", r.Min, r.Max)
}

// PortCount is a parsed port-count code such as "1/1", "0-2/-" or "1-/=".
type PortCount struct {
	Inputs  Range
	Outputs Range
	// SameOutputs requires as many outputs as inputs ("=").
	SameOutputs bool
}

// Any accepts every arity.
var Any = PortCount{Inputs: Range{0, -1}, Outputs: Range{0, -1}}

// ParsePortCount parses a port-count code. The empty code accepts any arity.
func ParsePortCount(code string) (PortCount, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Any, nil
	}
	inCode, outCode, found := strings.Cut(code, "/")
	if !found {
		outCode = inCode
	}
	in, err := parseRange(inCode)
	if err != nil {
		return PortCount{}, fmt.Errorf("port count %q: %w", code, err)
	}
	if strings.TrimSpace(outCode) == "=" {
		return PortCount{Inputs: in, Outputs: in, SameOutputs: true}, nil
	}
	out, err := parseRange(outCode)
	if err != nil {
		return PortCount{}, fmt.Errorf("port count %q: %w", code, err)
	}
	return PortCount{Inputs: in, Outputs: out}, nil
}

func parseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "-", "":
		return Range{0, -1}, nil
	}
	loText, hiText, isRange := strings.Cut(s, "-")
	lo, err := atoiOr(loText, 0)
	if err != nil {
		return Range{}, err
	}
	if !isRange {
		return Range{lo, lo}, nil
	}
	hi, err := atoiOr(hiText, -1)
	if err != nil {
		return Range{}, err
	}
	if hi >= 0 && hi < lo {
		return Range{}, fmt.Errorf("empty range %q", s)
	}
	return Range{lo, hi}, nil
}

func atoiOr(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad count %q", s)
	}
	return n, nil
}

// Check returns a description of the mismatch, or "" if the arity is allowed.
func (p PortCount) Check(ninputs, noutputs int) string {
	if !p.Inputs.contains(ninputs) {
		return fmt.Sprintf("%d %s, expected %s", ninputs, plural(ninputs, "input"), p.Inputs)
	}
	if p.SameOutputs {
		if noutputs != ninputs {
			return fmt.Sprintf("%d %s, expected as many as inputs (%d)", noutputs, plural(noutputs, "output"), ninputs)
		}
		return ""
	}
	if !p.Outputs.contains(noutputs) {
		return fmt.Sprintf("%d %s, expected %s", noutputs, plural(noutputs, "output"), p.Outputs)
	}
	return ""
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
