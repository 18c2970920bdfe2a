package graph

import (
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/weft/pkg/diag"
	"github.com/aretw0/weft/pkg/domain"
)

// Formal is one parameter of a compound class or of a top-level graph.
type Formal struct {
	Name       string `json:"name" yaml:"name"`
	Default    string `json:"default,omitempty" yaml:"default,omitempty"`
	HasDefault bool   `json:"-" yaml:"-"`

	Location domain.Location `json:"-" yaml:"-"`
}

// Compound is a class defined by a sub-graph. Its body has two tunnel
// elements, "input" and "output", whose ports are the compound's ports.
type Compound struct {
	name     string
	body     *Graph
	formals  []Formal
	prev     Class
	loc      domain.Location
	depth    int
	ninputs  int
	noutputs int
	finished bool

	mu      sync.Mutex
	derived *derivedTraits
}

type derivedTraits struct {
	traits  domain.Traits
	version uint64
}

// NewCompound starts a compound class declared in enclosing. The body is
// empty apart from its boundary tunnels; the overload link is the class that
// name resolves to in enclosing at this point. An empty name makes an
// anonymous class.
func NewCompound(name string, enclosing *Graph, loc domain.Location) *Compound {
	c := &Compound{name: name, loc: loc, depth: enclosing.depth}
	if name != "" {
		c.prev = enclosing.lookup(name, false)
	}
	body := &Graph{
		name:      name,
		parent:    enclosing,
		parentGen: enclosing.scopeGen,
		owner:     c,
		depth:     enclosing.depth + 1,
		lib:       enclosing.lib,
		handler:   enclosing.handler,
		logger:    enclosing.logger,
	}
	body.init()
	body.input, _ = body.GetOrCreateNode("input", Tunnel, "", loc)
	body.output, _ = body.GetOrCreateNode("output", Tunnel, "", loc)
	c.body = body
	return c
}

func (c *Compound) Name() string              { return c.name }
func (c *Compound) Kind() Kind                { return KindCompound }
func (c *Compound) Overload() Class           { return c.prev }
func (c *Compound) Body() *Graph              { return c.body }
func (c *Compound) Location() domain.Location { return c.loc }
func (c *Compound) NInputs() int              { return c.ninputs }
func (c *Compound) NOutputs() int             { return c.noutputs }
func (c *Compound) Depth() int                { return c.depth }

// Formals returns a copy of the formal parameter list.
func (c *Compound) Formals() []Formal {
	out := make([]Formal, len(c.formals))
	copy(out, c.formals)
	return out
}

// AddFormal appends a parameter. Parameters with defaults may be omitted at
// call sites, but only after every parameter without one.
func (c *Compound) AddFormal(f Formal) {
	c.formals = append(c.formals, f)
}

func (c *Compound) required() int {
	n := 0
	for _, f := range c.formals {
		if !f.HasDefault {
			n++
		}
	}
	return n
}

func (c *Compound) acceptsArgs(nargs int) bool {
	return nargs >= c.required() && nargs <= len(c.formals)
}

// Finish fixes the boundary arity from the body and reports boundary ports
// that the body never uses. It is idempotent.
func (c *Compound) Finish() {
	if c.finished {
		return
	}
	c.finished = true
	b := c.body
	in := b.elements[b.input.index]
	out := b.elements[b.output.index]
	c.ninputs = in.noutputs
	c.noutputs = out.ninputs

	for p := 0; p < c.ninputs; p++ {
		if len(b.connsFrom(Port(b.input, p))) == 0 {
			b.report(diag.Errorf(diag.DanglingTunnel, c.loc, "compound element '%s' input %d unused", c.displayName(), p))
		}
	}
	for p := 0; p < c.noutputs; p++ {
		if len(b.connsTo(Port(b.output, p))) == 0 {
			b.report(diag.Errorf(diag.DanglingTunnel, c.loc, "compound element '%s' output %d unused", c.displayName(), p))
		}
	}
}

func (c *Compound) displayName() string {
	if c.name == "" {
		return "<anonymous>"
	}
	return c.name
}

// Signature renders the class as Name[N arguments, I inputs, O outputs].
func (c *Compound) Signature() string {
	return Signature(c.name, len(c.formals), c.ninputs, c.noutputs)
}

func (c *Compound) sameSignature(o *Compound) bool {
	return len(c.formals) == len(o.formals) && c.required() == o.required() &&
		c.ninputs == o.ninputs && c.noutputs == o.noutputs
}

// Traits reports the boundary arity. Processing and flow codes are present
// only after SetDerivedTraits recorded them for the current element map.
func (c *Compound) Traits() domain.Traits {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.derived != nil && c.derived.version == c.body.lib.Version() {
		return c.derived.traits
	}
	return domain.Traits{Name: c.name, PortCount: fmt.Sprintf("%d/%d", c.ninputs, c.noutputs)}
}

// DerivedTraits returns traits recorded for the given element map version.
func (c *Compound) DerivedTraits(version uint64) (domain.Traits, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.derived == nil || c.derived.version != version {
		return domain.Traits{}, false
	}
	return c.derived.traits, true
}

// SetDerivedTraits records traits computed from the body.
func (c *Compound) SetDerivedTraits(t domain.Traits, version uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.derived = &derivedTraits{traits: t, version: version}
}

// Signature renders a class name with an argument count and arity.
func Signature(name string, nargs, ninputs, noutputs int) string {
	var sb strings.Builder
	if name == "" {
		name = "<anonymous>"
	}
	sb.WriteString(name)
	sb.WriteByte('[')
	if nargs > 0 {
		fmt.Fprintf(&sb, "%d %s, ", nargs, plural(nargs, "argument"))
	}
	fmt.Fprintf(&sb, "%d %s, %d %s]", ninputs, plural(ninputs, "input"), noutputs, plural(noutputs, "output"))
	return sb.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
