package processing

import (
	"context"
	"fmt"

	"github.com/aretw0/weft/pkg/diag"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/elementmap"
	"github.com/aretw0/weft/pkg/flowcode"
	"github.com/aretw0/weft/pkg/graph"
)

// Option configures Resolve.
type Option func(*config)

type config struct {
	noDefault bool
	coupling  bool
	checks    bool
	parser    flowcode.Parser
}

// WithoutDefault leaves ports that nothing constrained as Agnostic instead of
// making them push.
func WithoutDefault() Option {
	return func(c *config) {
		c.noDefault = true
	}
}

// WithAgnosticCoupling makes all agnostic ports of one element share a
// discipline, so an agnostic element cannot have a push input and a pull
// output.
func WithAgnosticCoupling() Option {
	return func(c *config) {
		c.coupling = true
	}
}

// WithFlowParser replaces the flow code grammar.
func WithFlowParser(p flowcode.Parser) Option {
	return func(c *config) {
		c.parser = p
	}
}

// withoutChecks skips port-count and connection checks.
func withoutChecks() Option {
	return func(c *config) {
		c.checks = false
	}
}

// link is one unification constraint: an output port feeding an input port.
// Virtual links come from agnostic coupling inside one element.
type link struct {
	from, to graph.PortRef
	conn     *graph.Connection
	disabled bool
}

// Result holds the disciplines and flow relations of one graph. It is
// indexed by element slot and stays valid until the graph is mutated.
type Result struct {
	g       *graph.Graph
	inputs  [][]Discipline
	outputs [][]Discipline
	flows   []flowcode.Relation
}

// Resolve computes port disciplines for g, which should be flattened.
// Diagnostics go to h. The result is returned even when errors were found;
// the error is then a *diag.AggregateError. A cancelled ctx aborts between
// rounds.
func Resolve(ctx context.Context, g *graph.Graph, h diag.Handler, opts ...Option) (*Result, error) {
	cfg := config{checks: true, parser: flowcode.Default}
	for _, opt := range opts {
		opt(&cfg)
	}
	col := diag.NewCollector(h)
	r := &Result{
		g:       g,
		inputs:  make([][]Discipline, g.Cap()),
		outputs: make([][]Discipline, g.Cap()),
		flows:   make([]flowcode.Relation, g.Cap()),
	}

	hasMap := g.Library().Source() != nil
	for _, e := range g.Elements() {
		r.seed(e, cfg, hasMap, col)
	}

	links := make([]*link, 0, len(g.Connections()))
	for _, c := range g.Connections() {
		links = append(links, &link{from: c.From(), to: c.To(), conn: c})
	}
	if cfg.coupling {
		links = append(links, r.couplingLinks()...)
	}

	for {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		if !r.unify(links, col) {
			break
		}
	}

	if !cfg.noDefault {
		for i := range r.inputs {
			defaultPush(r.inputs[i])
			defaultPush(r.outputs[i])
		}
	}
	if cfg.checks {
		r.checkConnections(col)
	}
	return r, col.Err()
}

func defaultPush(ds []Discipline) {
	for i, d := range ds {
		if d == Agnostic {
			ds[i] = Push
		}
	}
}

func (r *Result) seed(e *graph.Element, cfg config, hasMap bool, h diag.Handler) {
	idx := e.ID().Index()
	nin, nout := e.NInputs(), e.NOutputs()
	r.inputs[idx] = make([]Discipline, nin)
	r.outputs[idx] = make([]Discipline, nout)
	r.flows[idx] = flowcode.Complete

	t := e.Class().Traits()
	if e.IsTunnel() {
		r.flows[idx] = flowcode.Empty
		return
	}

	if cfg.checks && t.PortCount != "" {
		pc, err := elementmap.ParsePortCount(t.PortCount)
		if err != nil {
			h.Report(diag.Errorf(diag.InvalidTraits, e.Location(), "'%s': %v", e.Class().Name(), err))
		} else if msg := pc.Check(nin, nout); msg != "" {
			h.Report(diag.Errorf(diag.PortCount, e.Location(), "'%s' :: %s has %s", e.Name(), e.Class().Name(), msg))
		}
	}

	if t.Processing == "" {
		if hasMap && e.Class().Kind() == graph.KindPrimitive {
			h.Report(diag.Warnf(diag.InvalidTraits, e.Location(), "'%s' has no processing code; assuming agnostic", e.Class().Name()))
		}
	} else if code, err := ParseCode(t.Processing); err != nil {
		h.Report(diag.Errorf(diag.InvalidTraits, e.Location(), "'%s': %v", e.Class().Name(), err))
	} else {
		for i := range r.inputs[idx] {
			r.inputs[idx][i] = code.Input(i)
		}
		for o := range r.outputs[idx] {
			r.outputs[idx][o] = code.Output(o)
		}
	}

	if t.FlowCode != "" {
		rel, err := cfg.parser.Parse(t.FlowCode, nin, nout)
		if err != nil {
			h.Report(diag.Errorf(diag.InvalidTraits, e.Location(), "'%s': %v", e.Class().Name(), err))
		} else {
			r.flows[idx] = rel
		}
	}
}

// couplingLinks ties every agnostic input of an element to each of its
// agnostic outputs.
func (r *Result) couplingLinks() []*link {
	var out []*link
	for _, e := range r.g.Elements() {
		idx := e.ID().Index()
		for i, di := range r.inputs[idx] {
			if di != Agnostic {
				continue
			}
			for o, do := range r.outputs[idx] {
				if do == Agnostic {
					out = append(out, &link{from: graph.Port(e.ID(), o), to: graph.Port(e.ID(), i)})
				}
			}
		}
	}
	return out
}

// unify makes one pass over links and reports whether any port changed.
func (r *Result) unify(links []*link, h diag.Handler) bool {
	changed := false
	for _, l := range links {
		if l.disabled {
			continue
		}
		pf := &r.outputs[l.from.Node.Index()][l.from.Port]
		pt := &r.inputs[l.to.Node.Index()][l.to.Port]
		switch {
		case *pf == Error || *pt == Error:
		case *pt == Agnostic && *pf != Agnostic:
			*pt = *pf
			changed = true
		case *pf == Agnostic && *pt != Agnostic:
			*pf = *pt
			changed = true
		case *pf != *pt:
			r.contradiction(l, *pf, h)
			*pf, *pt = Error, Error
			l.disabled = true
			changed = true
		}
	}
	return changed
}

func (r *Result) contradiction(l *link, from Discipline, h diag.Handler) {
	to := Pull
	if from == Pull {
		to = Push
	}
	src := r.name(l.from.Node)
	if l.conn == nil {
		e, _ := r.g.Element(l.from.Node)
		h.Report(diag.Errorf(diag.DisciplineContradiction, e.Location(),
			"agnostic '%s' in mixed context: %s input %d, %s output %d", src, to, l.to.Port, from, l.from.Port))
		return
	}
	h.Report(diag.Errorf(diag.DisciplineContradiction, l.conn.Location(),
		"'%s' %s output %d connected to '%s' %s input %d", src, from, l.from.Port, r.name(l.to.Node), to, l.to.Port))
}

func (r *Result) name(id graph.NodeID) string {
	if e, err := r.g.Element(id); err == nil {
		return e.Name()
	}
	return id.String()
}

// Graph returns the graph the result describes.
func (r *Result) Graph() *graph.Graph { return r.g }

// Input returns the discipline of an input port, or Agnostic for a port the
// element does not have.
func (r *Result) Input(p graph.PortRef) Discipline {
	return lookup(r.inputs, p)
}

// Output returns the discipline of an output port.
func (r *Result) Output(p graph.PortRef) Discipline {
	return lookup(r.outputs, p)
}

func lookup(table [][]Discipline, p graph.PortRef) Discipline {
	idx := p.Node.Index()
	if idx < 0 || idx >= len(table) || p.Port < 0 || p.Port >= len(table[idx]) {
		return Agnostic
	}
	return table[idx][p.Port]
}

// ProcessingCode renders the resolved disciplines of an element, one letter
// per port.
func (r *Result) ProcessingCode(id graph.NodeID) string {
	idx := id.Index()
	if idx < 0 || idx >= len(r.inputs) {
		return ""
	}
	return FormatCode(r.inputs[idx], r.outputs[idx])
}

// Flow returns the flow relation of an element.
func (r *Result) Flow(id graph.NodeID) flowcode.Relation {
	idx := id.Index()
	if idx < 0 || idx >= len(r.flows) || r.flows[idx] == nil {
		return flowcode.Empty
	}
	return r.flows[idx]
}

// Traits summarizes the resolved element as traits for export.
func (r *Result) Traits(e *graph.Element) domain.Traits {
	t := e.Class().Traits()
	t.Name = e.Class().Name()
	t.PortCount = fmt.Sprintf("%d/%d", e.NInputs(), e.NOutputs())
	t.Processing = r.ProcessingCode(e.ID())
	return t
}
