// Package flowcode parses per-element flow codes into reachability relations.
//
// A flow code has the form IN/OUT. Each side is a sequence of port codes, one
// per port, with the last code repeating for any further ports. A port code is
// a lowercase letter naming a group, an uppercase letter naming every group
// except the corresponding lowercase one, '#' meaning "the port with the same
// number on the other side", or a bracketed set such as [ab#] or [^a]. Input i
// reaches output o when their port codes share a group. A code without '/'
// uses the same sequence for both sides. The empty code means every input
// reaches every output.
package flowcode

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax is wrapped by every parse failure.
var ErrSyntax = errors.New("flow code syntax error")

// Relation answers reachability for one element.
type Relation interface {
	// Flows reports whether data arriving on input can leave on output.
	Flows(input, output int) bool
}

// Parser turns a flow code into a Relation for an element with the given arity.
type Parser interface {
	Parse(code string, ninputs, noutputs int) (Relation, error)
}

// Complete is the relation where every input reaches every output.
var Complete Relation = complete{}

type complete struct{}

func (complete) Flows(int, int) bool { return true }

// Empty is the relation where nothing flows.
var Empty Relation = empty{}

type empty struct{}

func (empty) Flows(int, int) bool { return false }

// Default is the grammar described in the package documentation.
var Default Parser = groupParser{}

type groupParser struct{}

const allGroups = uint32(1)<<26 - 1

type portCode struct {
	groups uint32
	same   bool
}

func (p portCode) meets(q portCode, i, o int) bool {
	return p.groups&q.groups != 0 || (p.same && q.same && i == o)
}

type codes struct {
	in, out []portCode
}

func (c codes) Flows(input, output int) bool {
	if input < 0 || output < 0 {
		return false
	}
	return pick(c.in, input).meets(pick(c.out, output), input, output)
}

func pick(cs []portCode, i int) portCode {
	if i >= len(cs) {
		return cs[len(cs)-1]
	}
	return cs[i]
}

func (groupParser) Parse(code string, ninputs, noutputs int) (Relation, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Complete, nil
	}
	inSide, outSide, found := strings.Cut(code, "/")
	if !found {
		outSide = inSide
	}
	if strings.Contains(outSide, "/") {
		return nil, fmt.Errorf("%w: %q has more than one '/'", ErrSyntax, code)
	}
	in, err := parseSide(inSide)
	if err != nil {
		return nil, fmt.Errorf("%w in %q", err, code)
	}
	out, err := parseSide(outSide)
	if err != nil {
		return nil, fmt.Errorf("%w in %q", err, code)
	}
	return codes{in: in, out: out}, nil
}

func parseSide(s string) ([]portCode, error) {
	var out []portCode
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == ' ' || ch == '\t':
			continue
		case ch >= 'a' && ch <= 'z':
			out = append(out, portCode{groups: 1 << (ch - 'a')})
		case ch >= 'A' && ch <= 'Z':
			out = append(out, portCode{groups: allGroups &^ (1 << (ch - 'A'))})
		case ch == '#':
			out = append(out, portCode{same: true})
		case ch == '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated '['", ErrSyntax)
			}
			pc, err := parseSet(s[i+1 : i+end])
			if err != nil {
				return nil, err
			}
			out = append(out, pc)
			i += end
		default:
			return nil, fmt.Errorf("%w: unexpected %q", ErrSyntax, ch)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty side", ErrSyntax)
	}
	return out, nil
}

func parseSet(s string) (portCode, error) {
	var pc portCode
	negate := strings.HasPrefix(s, "^")
	if negate {
		s = s[1:]
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'a' && ch <= 'z':
			pc.groups |= 1 << (ch - 'a')
		case ch >= 'A' && ch <= 'Z':
			pc.groups |= allGroups &^ (1 << (ch - 'A'))
		case ch == '#':
			pc.same = true
		case ch == ' ':
		default:
			return portCode{}, fmt.Errorf("%w: unexpected %q in set", ErrSyntax, ch)
		}
	}
	if negate {
		pc.groups = allGroups &^ pc.groups
		pc.same = !pc.same
	}
	return pc, nil
}

// Encode writes a code in the default grammar that reproduces flows for an
// element with the given arity. Elements with more than 26 inputs get the
// complete code.
func Encode(ninputs, noutputs int, flows func(input, output int) bool) string {
	if ninputs > 26 {
		return "x/x"
	}
	var sb strings.Builder
	if ninputs == 0 {
		sb.WriteByte('x')
	}
	for i := 0; i < ninputs; i++ {
		sb.WriteByte(byte('a' + i))
	}
	sb.WriteByte('/')
	if noutputs == 0 {
		sb.WriteByte('x')
	}
	for o := 0; o < noutputs; o++ {
		sb.WriteByte('[')
		for i := 0; i < ninputs; i++ {
			if flows(i, o) {
				sb.WriteByte(byte('a' + i))
			}
		}
		sb.WriteByte(']')
	}
	return sb.String()
}
