package dsl

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/weft/pkg/diag"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/graph"
	"github.com/aretw0/weft/pkg/scope"
)

// Option configures a top-level Builder.
type Option func(*options)

type options struct {
	lib     *graph.Library
	handler diag.Handler
	logger  *slog.Logger
}

// WithLibrary sets the primitive class library.
func WithLibrary(lib *graph.Library) Option {
	return func(o *options) {
		o.lib = lib
	}
}

// WithHandler forwards every diagnostic to h as it is reported.
func WithHandler(h diag.Handler) Option {
	return func(o *options) {
		o.handler = h
	}
}

// WithLogger sets the logger handed to the graph.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

type pendingConn struct {
	from, to string
	out, in  int
	loc      domain.Location
}

// Builder issues declarations against one graph scope: the top-level graph
// or the body of a compound class. Connections are recorded and made when
// the scope is closed, so they may name elements declared later.
type Builder struct {
	g       *graph.Graph
	parent  *Builder
	class   *graph.Compound
	col     *diag.Collector
	errs    *[]error
	loc     domain.Location
	pending []pendingConn
	bad     map[string]bool
	closed  bool
}

// New starts a graph called name.
func New(name string, opts ...Option) *Builder {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	col := diag.NewCollector(o.handler)
	gopts := []graph.Option{graph.WithHandler(col), graph.WithLogger(o.logger)}
	if o.lib != nil {
		gopts = append(gopts, graph.WithLibrary(o.lib))
	}
	return &Builder{
		g:    graph.New(name, gopts...),
		col:  col,
		errs: new([]error),
		bad:  make(map[string]bool),
	}
}

// From continues building an existing graph. Diagnostics go to the graph's
// own handler and Build reports only construction errors.
func From(g *graph.Graph) *Builder {
	return &Builder{g: g, errs: new([]error), bad: make(map[string]bool)}
}

// Graph returns the graph being built. Recorded connections are not added
// until Build or End.
func (b *Builder) Graph() *graph.Graph { return b.g }

// Compound returns the class whose body this builder fills, or nil at top
// level.
func (b *Builder) Compound() *graph.Compound { return b.class }

// At sets the source location attached to subsequent declarations.
func (b *Builder) At(file string, line int) *Builder {
	b.loc = domain.At(file, line)
	return b
}

// Line changes only the line of the current location.
func (b *Builder) Line(line int) *Builder {
	b.loc.Line = line
	return b
}

// Location is the location attached to the next declaration.
func (b *Builder) Location() domain.Location { return b.loc }

func (b *Builder) fail(err error) {
	*b.errs = append(*b.errs, err)
}

func (b *Builder) report(d diag.Diagnostic) {
	b.g.Handler().Report(d)
}

// Add declares an element. An empty name gets a generated one; class is
// looked up in the current scope.
func (b *Builder) Add(name, class string, config ...string) *ElementBuilder {
	c := b.g.LookupClass(class)
	if c == nil {
		b.report(diag.Errorf(diag.UnresolvedReference, b.loc, "unknown element class '%s'", class))
		if name != "" {
			b.bad[name] = true
		}
		return &ElementBuilder{b: b, name: name}
	}
	return b.AddClass(name, c, config...)
}

// AddClass declares an element of an already resolved class, such as an
// anonymous compound.
func (b *Builder) AddClass(name string, class graph.Class, config ...string) *ElementBuilder {
	id, err := b.g.GetOrCreateNode(name, class, scope.JoinArgs(config), b.loc)
	if err != nil {
		b.fail(err)
		return &ElementBuilder{b: b, name: name}
	}
	e, _ := b.g.Element(id)
	return &ElementBuilder{b: b, name: e.Name(), id: id, ok: true}
}

// Connect records a connection from an output port to an input port.
func (b *Builder) Connect(from string, out int, to string, in int) *Builder {
	b.pending = append(b.pending, pendingConn{from: from, out: out, to: to, in: in, loc: b.loc})
	return b
}

// Chain connects port 0 of each named element to port 0 of the next.
func (b *Builder) Chain(names ...string) *Builder {
	for i := 1; i < len(names); i++ {
		b.Connect(names[i-1], 0, names[i], 0)
	}
	return b
}

// Tunnel declares a connection tunnel: what enters in leaves from out.
func (b *Builder) Tunnel(in, out string) *Builder {
	if _, _, err := b.g.AddTunnelPair(in, out, b.loc); err != nil {
		b.fail(err)
	}
	return b
}

// Require records configuration requirements.
func (b *Builder) Require(reqs ...string) *Builder {
	for _, r := range reqs {
		if r = strings.TrimSpace(r); r != "" {
			b.g.AddRequirement(r)
		}
	}
	return b
}

// Define declares a top-level parameter with a default value.
func (b *Builder) Define(name, value string) *Builder {
	b.g.AddFormal(graph.Formal{
		Name:       strings.TrimPrefix(name, "$"),
		Default:    value,
		HasDefault: true,
		Location:   b.loc,
	})
	return b
}

// Archive attaches a named blob.
func (b *Builder) Archive(name string, data []byte) *Builder {
	b.g.AddArchive(name, data)
	return b
}

// Synonym declares name as another name for target.
func (b *Builder) Synonym(name, target string) *Builder {
	c := b.g.LookupClass(target)
	if c == nil {
		b.report(diag.Errorf(diag.UnresolvedReference, b.loc, "unknown element class '%s'", target))
		return b
	}
	if err := b.g.DeclareLocalClass(graph.NewSynonym(name, c, b.loc), b.loc); err != nil {
		b.fail(err)
	}
	return b
}

// Class opens the body of a compound class and returns a builder for it.
// Each formal is written "name" or "name=default", optionally with a
// leading '$'. An empty name makes an anonymous class. Close the body with
// End.
func (b *Builder) Class(name string, formals ...string) *Builder {
	c := graph.NewCompound(name, b.g, b.loc)
	for _, f := range formals {
		c.AddFormal(ParseFormal(f, b.loc))
	}
	return &Builder{
		g:      c.Body(),
		parent: b,
		class:  c,
		col:    b.col,
		errs:   b.errs,
		loc:    b.loc,
		bad:    make(map[string]bool),
	}
}

// ParseFormal parses "name", "$name" or "name=default".
func ParseFormal(text string, loc domain.Location) graph.Formal {
	name, def, hasDefault := strings.Cut(text, "=")
	return graph.Formal{
		Name:       strings.TrimPrefix(strings.TrimSpace(name), "$"),
		Default:    strings.TrimSpace(def),
		HasDefault: hasDefault,
		Location:   loc,
	}
}

// End closes a compound body: recorded connections are made and a named
// class is declared in the enclosing scope. It returns the enclosing
// builder.
func (b *Builder) End() *Builder {
	if b.parent == nil {
		b.fail(errors.New("End called on a top-level builder"))
		return b
	}
	b.close()
	if b.class.Name() == "" {
		b.class.Finish()
	} else if err := b.parent.g.DeclareLocalClass(b.class, b.class.Location()); err != nil {
		b.fail(err)
	}
	return b.parent
}

func (b *Builder) close() {
	if b.closed {
		return
	}
	b.closed = true
	for _, p := range b.pending {
		from, ok := b.resolve(p.from, p.loc)
		if !ok {
			continue
		}
		to, ok := b.resolve(p.to, p.loc)
		if !ok {
			continue
		}
		if _, err := b.g.AddConnection(graph.Port(from, p.out), graph.Port(to, p.in), p.loc); err != nil {
			b.fail(fmt.Errorf("%s: connect %s[%d] -> [%d]%s: %w", p.loc, p.from, p.out, p.in, p.to, err))
		}
	}
	b.pending = nil
}

func (b *Builder) resolve(name string, loc domain.Location) (graph.NodeID, bool) {
	if e, ok := b.g.ElementByName(name); ok {
		return e.ID(), true
	}
	if !b.bad[name] {
		b.bad[name] = true
		b.report(diag.Errorf(diag.UnresolvedReference, loc, "undeclared element '%s'", name))
	}
	return graph.NoNode, false
}

// Build makes the recorded top-level connections and returns the graph.
// The error joins construction errors with the *diag.AggregateError of
// every error diagnostic reported while building.
func (b *Builder) Build() (*graph.Graph, error) {
	if b.parent != nil {
		return nil, errors.New("Build called on a class body; use End")
	}
	b.close()
	errs := append([]error(nil), *b.errs...)
	if b.col != nil {
		if err := b.col.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return b.g, errors.Join(errs...)
}

// Diagnostics returns everything reported while building with New.
func (b *Builder) Diagnostics() []diag.Diagnostic {
	if b.col == nil {
		return nil
	}
	return b.col.Diagnostics()
}
