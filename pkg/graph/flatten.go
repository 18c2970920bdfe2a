package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/weft/pkg/diag"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/scope"
)

// FlattenOption configures Flatten.
type FlattenOption func(*flattenConfig)

type flattenConfig struct {
	handler      diag.Handler
	env          *scope.Env
	keepBoundary bool
	observer     func(Event)
}

// Event describes one step of flattening, for metrics and tracing.
type Event struct {
	Kind    string // "expand" or "tunnels"
	Element string
	Class   string
	Count   int
}

// WithDiagnostics reports flatten diagnostics to h instead of the graph's handler.
func WithDiagnostics(h diag.Handler) FlattenOption {
	return func(c *flattenConfig) {
		c.handler = h
	}
}

// WithEnv supplies the root environment. Variables already defined there
// override the defaults of the graph's formals.
func WithEnv(env *scope.Env) FlattenOption {
	return func(c *flattenConfig) {
		c.env = env
	}
}

// KeepBoundary keeps unpaired tunnels, such as the input and output of a
// compound body flattened on its own.
func KeepBoundary() FlattenOption {
	return func(c *flattenConfig) {
		c.keepBoundary = true
	}
}

// WithObserver registers a callback invoked for every expansion and every
// tunnel removal round.
func WithObserver(fn func(Event)) FlattenOption {
	return func(c *flattenConfig) {
		c.observer = fn
	}
}

type flattener struct {
	g      *Graph
	diags  *diag.Collector
	cfg    flattenConfig
	rounds int
}

// Flatten returns a copy of g with every compound instance expanded and
// every tunnel removed, then compacted. The receiver is not modified. When
// any error is reported Flatten returns nil and a *diag.AggregateError; a
// cancelled ctx aborts between rounds with ctx.Err().
func (g *Graph) Flatten(ctx context.Context, opts ...FlattenOption) (*Graph, error) {
	cfg := flattenConfig{handler: g.handler}
	for _, opt := range opts {
		opt(&cfg)
	}
	col := diag.NewCollector(cfg.handler)

	out := g.Clone()
	out.handler = col
	f := &flattener{g: out, diags: col, cfg: cfg}

	env := cfg.env
	if env == nil {
		env = scope.New()
	}
	for _, formal := range out.formals {
		if _, ok := env.Lookup(formal.Name); ok {
			continue
		}
		if !formal.HasDefault {
			col.Report(diag.Errorf(diag.UnresolvedReference, formal.Location, "parameter '$%s' has no value", formal.Name))
			continue
		}
		env.Define(formal.Name, env.Interpolate(formal.Default, formal.Location, col))
	}
	for _, e := range out.elements {
		if e.live {
			e.config = env.Interpolate(e.config, e.loc, col)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		expanded := f.expandAll(env)
		removed := f.removeTunnels()
		f.rounds++
		if !expanded && !removed {
			break
		}
	}
	out.Compact()
	out.handler = g.handler

	out.logger.Debug("flattened", "elements", out.Len(), "rounds", f.rounds, "errors", col.ErrorCount())
	if err := col.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func needsExpansion(c Class) bool {
	k := c.Kind()
	return k == KindCompound || k == KindSynonym
}

func (f *flattener) expandAll(env *scope.Env) bool {
	changed := false
	n := len(f.g.elements)
	for i := 0; i < n; i++ {
		e := f.g.elements[i]
		if e.live && needsExpansion(e.class) {
			f.expand(e.id, env, nil)
			changed = true
		}
	}
	return changed
}

// expand replaces the element id by the body of its class and recursively
// expands compounds copied from that body. stack holds the classes being
// expanded on the current path.
func (f *flattener) expand(id NodeID, env *scope.Env, stack []*Compound) {
	g := f.g
	e := g.slotFor(id)
	if e == nil {
		return
	}
	args := scope.SplitArgs(e.config)
	res := Resolve(e.class, e.ninputs, e.noutputs, len(args))
	c, ok := res.Class.(*Compound)
	if !ok {
		if res.Class == nil {
			f.reportMismatch(e, res, len(args))
			g.killNode(e)
			return
		}
		e.class = res.Class
		return
	}
	if res.Ambiguous {
		f.diags.Report(diag.Errorf(diag.OverloadMismatch, e.loc,
			"'%s' :: %s is ambiguous; candidates: %s", e.name,
			Signature(e.class.Name(), len(args), e.ninputs, e.noutputs), describeCandidates(res.Candidates)))
	}
	for i, s := range stack {
		if s == c {
			path := make([]string, 0, len(stack)-i+1)
			for _, p := range stack[i:] {
				path = append(path, p.displayName())
			}
			path = append(path, c.displayName())
			f.diags.Report(diag.Errorf(diag.CircularExpansion, e.loc,
				"circular expansion of '%s': %s", e.name, strings.Join(path, " -> ")))
			g.killNode(e)
			return
		}
	}

	prefix := e.name + "/"
	cenv := env.Ancestor(c.depth).Child(prefix)
	for i, formal := range c.formals {
		if i < len(args) {
			cenv.Define(formal.Name, args[i])
		} else {
			cenv.Define(formal.Name, cenv.Interpolate(formal.Default, c.loc, f.diags))
		}
	}

	// The call site becomes a tunnel pair with the body's boundary.
	inID, _ := g.GetOrCreateNode(f.expandedName(prefix+"input", e.loc), Tunnel, "", e.loc)
	outID, _ := g.GetOrCreateNode(f.expandedName(prefix+"output", e.loc), Tunnel, "", e.loc)
	e.class = Tunnel
	e.boundary = true
	g.elements[inID.index].boundary = true
	g.elements[outID.index].boundary = true
	e.tunnelOut = inID
	g.elements[inID.index].tunnelIn = e.id
	g.elements[outID.index].tunnelOut = e.id
	e.tunnelIn = outID

	body := c.body
	idmap := make(map[int32]NodeID, len(body.elements))
	var created []NodeID
	for _, b := range body.elements {
		if !b.live {
			continue
		}
		switch b.id {
		case body.input:
			idmap[b.id.index] = inID
			continue
		case body.output:
			idmap[b.id.index] = outID
			continue
		}
		config := cenv.Interpolate(b.config, b.loc, f.diags)
		nid, err := g.GetOrCreateNode(f.expandedName(prefix+b.name, b.loc), b.class, config, b.loc)
		if err != nil {
			continue
		}
		idmap[b.id.index] = nid
		created = append(created, nid)
	}
	for _, b := range body.elements {
		if !b.live || b.id == body.input || b.id == body.output {
			continue
		}
		ne := g.elements[idmap[b.id.index].index]
		if b.tunnelIn.Valid() {
			ne.tunnelIn = idmap[b.tunnelIn.index]
		}
		if b.tunnelOut.Valid() {
			ne.tunnelOut = idmap[b.tunnelOut.index]
		}
	}
	for _, bc := range body.conns {
		if !bc.live {
			continue
		}
		from := Port(idmap[bc.from.Node.index], bc.from.Port)
		to := Port(idmap[bc.to.Node.index], bc.to.Port)
		if _, err := g.AddConnection(from, to, bc.loc); err != nil {
			g.logger.Debug("skipped body connection", "class", c.name, "err", err)
		}
	}
	for _, r := range body.requirements {
		g.AddRequirement(r)
	}
	f.observe(Event{Kind: "expand", Element: e.name, Class: c.Signature(), Count: len(created)})

	next := append(stack[:len(stack):len(stack)], c)
	for _, nid := range created {
		if ne := g.slotFor(nid); ne != nil && needsExpansion(ne.class) {
			f.expand(nid, cenv, next)
		}
	}
}

// expandedName returns name, or a fresh variant of it after reporting a
// redeclaration when a live element already holds it.
func (f *flattener) expandedName(name string, loc domain.Location) string {
	prev, ok := f.g.ElementByName(name)
	if !ok {
		return name
	}
	f.diags.Report(diag.Errorf(diag.Redeclaration, loc,
		"expansion redeclares element '%s' (previous declaration at %s)", name, prev.loc))
	for i := 2; ; i++ {
		alt := fmt.Sprintf("%s@%d", name, i)
		if _, taken := f.g.ElementByName(alt); !taken {
			return alt
		}
	}
}

func (f *flattener) reportMismatch(e *Element, res Resolution, nargs int) {
	call := Signature(e.class.Name(), nargs, e.ninputs, e.noutputs)
	msg := fmt.Sprintf("'%s' :: %s does not match any definition", e.name, call)
	if res.Closest != nil {
		msg += fmt.Sprintf("; closest candidate is %s", res.Closest.Signature())
	}
	if len(res.Candidates) > 1 {
		msg += fmt.Sprintf(" (candidates: %s)", describeCandidates(res.Candidates))
	}
	f.diags.Report(diag.Errorf(diag.OverloadMismatch, e.loc, "%s", msg))
}

func (f *flattener) observe(ev Event) {
	if f.cfg.observer != nil {
		f.cfg.observer(ev)
	}
}
