package graph

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/aretw0/weft/pkg/diag"
	"github.com/aretw0/weft/pkg/domain"
)

// Archive is an opaque named blob carried alongside a configuration.
type Archive struct {
	Name string `json:"name" yaml:"name"`
	Data []byte `json:"data" yaml:"data"`
}

type classEntry struct {
	class Class
	gen   int
	loc   domain.Location
}

// Graph holds elements, connections and local classes.
type Graph struct {
	name string

	elements []*Element
	free     []int32
	names    map[string]int32

	conns    []*Connection
	connFree []int32

	classes    map[string][]classEntry
	classOrder []Class
	scopeGen   int

	formals      []Formal
	requirements []string
	archives     []Archive

	// Set on compound bodies.
	parent    *Graph
	parentGen int
	owner     *Compound
	input     NodeID
	output    NodeID

	depth   int
	serial  uint32
	lib     *Library
	handler diag.Handler
	logger  *slog.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithLibrary sets the primitive class library.
func WithLibrary(l *Library) Option {
	return func(g *Graph) {
		g.lib = l
	}
}

// WithHandler sets where diagnostics are reported.
func WithHandler(h diag.Handler) Option {
	return func(g *Graph) {
		g.handler = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		g.logger = logger
	}
}

// New creates an empty top-level graph. Without WithHandler diagnostics are
// gathered by a fresh *diag.Collector, available from Handler.
func New(name string, opts ...Option) *Graph {
	g := &Graph{name: name}
	for _, opt := range opts {
		opt(g)
	}
	if g.lib == nil {
		g.lib = NewLibrary(nil)
	}
	if g.handler == nil {
		g.handler = diag.NewCollector(nil)
	}
	if g.logger == nil {
		g.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	g.logger = g.logger.With("graph", name)
	g.init()
	return g
}

func (g *Graph) init() {
	g.names = make(map[string]int32)
	g.classes = make(map[string][]classEntry)
	g.input, g.output = NoNode, NoNode
}

func (g *Graph) Name() string           { return g.name }
func (g *Graph) Library() *Library      { return g.lib }
func (g *Graph) Handler() diag.Handler  { return g.handler }
func (g *Graph) Owner() *Compound       { return g.owner }
func (g *Graph) Parent() *Graph         { return g.parent }
func (g *Graph) Depth() int             { return g.depth }
func (g *Graph) ScopeGeneration() int   { return g.scopeGen }
func (g *Graph) Requirements() []string { return append([]string(nil), g.requirements...) }
func (g *Graph) Archives() []Archive    { return append([]Archive(nil), g.archives...) }
func (g *Graph) Formals() []Formal      { return append([]Formal(nil), g.formals...) }

// Input and Output return the boundary tunnels of a compound body, or
// NoNode for a top-level graph.
func (g *Graph) Input() NodeID  { return g.input }
func (g *Graph) Output() NodeID { return g.output }

// Cap returns the number of element slots, live or dead. Slot indexes are
// below Cap.
func (g *Graph) Cap() int { return len(g.elements) }

func (g *Graph) report(d diag.Diagnostic) {
	g.handler.Report(d)
}

// Element returns the element addressed by id.
func (g *Graph) Element(id NodeID) (*Element, error) {
	if id.index < 0 || int(id.index) >= len(g.elements) {
		return nil, fmt.Errorf("%w: %s", domain.ErrStaleID, id)
	}
	e := g.elements[id.index]
	if e.id.gen != id.gen {
		return nil, fmt.Errorf("%w: %s", domain.ErrStaleID, id)
	}
	if !e.live {
		return nil, fmt.Errorf("%w: %s", domain.ErrDeadNode, e.name)
	}
	return e, nil
}

// Slot returns the element stored at index, live or dead, or nil.
func (g *Graph) Slot(index int) *Element {
	if index < 0 || index >= len(g.elements) {
		return nil
	}
	return g.elements[index]
}

// ElementByName returns the live element called name.
func (g *Graph) ElementByName(name string) (*Element, bool) {
	idx, ok := g.names[name]
	if !ok {
		return nil, false
	}
	e := g.elements[idx]
	return e, e.live
}

// Elements returns every live element in slot order.
func (g *Graph) Elements() []*Element {
	out := make([]*Element, 0, len(g.elements))
	for _, e := range g.elements {
		if e.live {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of live elements.
func (g *Graph) Len() int {
	n := 0
	for _, e := range g.elements {
		if e.live {
			n++
		}
	}
	return n
}

// Connection returns the connection addressed by id.
func (g *Graph) Connection(id ConnID) (*Connection, error) {
	if id.index < 0 || int(id.index) >= len(g.conns) || g.conns[id.index].id.gen != id.gen {
		return nil, fmt.Errorf("%w: connection %d", domain.ErrStaleID, id.index)
	}
	c := g.conns[id.index]
	if !c.live {
		return nil, fmt.Errorf("%w: connection %d", domain.ErrDeadNode, id.index)
	}
	return c, nil
}

// Connections returns every live connection in slot order.
func (g *Graph) Connections() []*Connection {
	out := make([]*Connection, 0, len(g.conns))
	for _, c := range g.conns {
		if c.live {
			out = append(out, c)
		}
	}
	return out
}

// ConnectionsFrom returns the live connections leaving an output port.
func (g *Graph) ConnectionsFrom(p PortRef) []*Connection {
	return g.connsFrom(p)
}

// ConnectionsTo returns the live connections entering an input port.
func (g *Graph) ConnectionsTo(p PortRef) []*Connection {
	return g.connsTo(p)
}

func (g *Graph) connsFrom(p PortRef) []*Connection {
	e := g.slotFor(p.Node)
	if e == nil {
		return nil
	}
	var out []*Connection
	for _, cid := range e.out {
		if c := g.conns[cid.index]; c.from.Port == p.Port {
			out = append(out, c)
		}
	}
	return out
}

func (g *Graph) connsTo(p PortRef) []*Connection {
	e := g.slotFor(p.Node)
	if e == nil {
		return nil
	}
	var out []*Connection
	for _, cid := range e.in {
		if c := g.conns[cid.index]; c.to.Port == p.Port {
			out = append(out, c)
		}
	}
	return out
}

// slotFor returns the live element for id or nil.
func (g *Graph) slotFor(id NodeID) *Element {
	if id.index < 0 || int(id.index) >= len(g.elements) {
		return nil
	}
	e := g.elements[id.index]
	if e.id.gen != id.gen || !e.live {
		return nil
	}
	return e
}

// LookupClass resolves a class name as seen from this graph now: local
// classes first, then the compound being defined (for self reference), then
// enclosing graphs as they were when this body was opened, then the
// library. It returns nil when the name is unknown.
func (g *Graph) LookupClass(name string) Class {
	return g.lookup(name, true)
}

// lookup implements LookupClass. With create false the library only answers
// for names its source defines.
func (g *Graph) lookup(name string, create bool) Class {
	gen := g.scopeGen
	for s := g; s != nil; s = s.parent {
		if c := s.localClass(name, gen); c != nil {
			return c
		}
		if s.owner != nil && s.owner.name == name && name != "" {
			return s.owner
		}
		gen = s.parentGen
	}
	if !create && !g.lib.Known(name) {
		return nil
	}
	if p, ok := g.lib.Primitive(name); ok {
		return p
	}
	return nil
}

func (g *Graph) localClass(name string, gen int) Class {
	entries := g.classes[name]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].gen <= gen {
			return entries[i].class
		}
	}
	return nil
}

// LocalClasses returns the classes declared directly in this graph, in
// declaration order.
func (g *Graph) LocalClasses() []Class {
	return append([]Class(nil), g.classOrder...)
}

// ClassNames returns the distinct local class names, sorted.
func (g *Graph) ClassNames() []string {
	names := make([]string, 0, len(g.classes))
	for name := range g.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
