package processing

import (
	"fmt"
	"strings"
)

// Discipline is the processing state of one port.
type Discipline uint8

const (
	Agnostic Discipline = iota
	Push
	Pull
	Error
)

func (d Discipline) String() string {
	switch d {
	case Agnostic:
		return "agnostic"
	case Push:
		return "push"
	case Pull:
		return "pull"
	case Error:
		return "error"
	}
	return fmt.Sprintf("Discipline(%d)", uint8(d))
}

// Letter is the processing-code letter for d. Error ports print as 'x'.
func (d Discipline) Letter() byte {
	switch d {
	case Push:
		return 'h'
	case Pull:
		return 'l'
	case Error:
		return 'x'
	}
	return 'a'
}

// Code is a parsed processing code.
type Code struct {
	inputs  []Discipline
	outputs []Discipline
}

// ParseCode parses a processing code. Letters are case-insensitive and may be
// separated by spaces. A code without '/' uses the same letters for outputs.
// A side with no letters is agnostic.
func ParseCode(code string) (Code, error) {
	inText, outText, found := strings.Cut(code, "/")
	if !found {
		outText = inText
	}
	in, err := parseSide(inText)
	if err != nil {
		return Code{}, fmt.Errorf("processing code %q: %w", code, err)
	}
	out, err := parseSide(outText)
	if err != nil {
		return Code{}, fmt.Errorf("processing code %q: %w", code, err)
	}
	return Code{inputs: in, outputs: out}, nil
}

func parseSide(s string) ([]Discipline, error) {
	var out []Discipline
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'h', 'H':
			out = append(out, Push)
		case 'l', 'L':
			out = append(out, Pull)
		case 'a', 'A':
			out = append(out, Agnostic)
		case ' ', '\t':
		case '#':
			return out, nil
		default:
			return nil, fmt.Errorf("bad character %q", s[i])
		}
	}
	return out, nil
}

func pick(ds []Discipline, port int) Discipline {
	if len(ds) == 0 {
		return Agnostic
	}
	if port >= len(ds) {
		return ds[len(ds)-1]
	}
	return ds[port]
}

// Input returns the discipline of input port i.
func (c Code) Input(i int) Discipline { return pick(c.inputs, i) }

// Output returns the discipline of output port o.
func (c Code) Output(o int) Discipline { return pick(c.outputs, o) }

// FormatCode renders per-port disciplines as a processing code, one letter per
// port.
func FormatCode(inputs, outputs []Discipline) string {
	var sb strings.Builder
	for _, d := range inputs {
		sb.WriteByte(d.Letter())
	}
	sb.WriteByte('/')
	for _, d := range outputs {
		sb.WriteByte(d.Letter())
	}
	return sb.String()
}
