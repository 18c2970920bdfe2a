package processing

import (
	"context"
	"fmt"

	"github.com/aretw0/weft/pkg/diag"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/flowcode"
	"github.com/aretw0/weft/pkg/graph"
	"github.com/aretw0/weft/pkg/scope"
)

// Summarize derives the processing and flow codes of a compound class from
// its flattened body and records them on the class for the current element
// map version. Parameters are left unexpanded. Boundary ports nothing
// constrains stay agnostic.
func Summarize(ctx context.Context, c *graph.Compound, h diag.Handler, opts ...Option) (domain.Traits, error) {
	version := c.Body().Library().Version()
	if t, ok := c.DerivedTraits(version); ok {
		return t, nil
	}
	col := diag.NewCollector(h)

	env := scope.New()
	for _, f := range c.Formals() {
		env.Define(f.Name, "${"+f.Name+"}")
	}
	flat, err := c.Body().Flatten(ctx, graph.KeepBoundary(), graph.WithEnv(env), graph.WithDiagnostics(col))
	if err != nil {
		return domain.Traits{}, fmt.Errorf("summarize %s: %w", c.Signature(), err)
	}

	opts = append(opts, WithoutDefault(), withoutChecks())
	res, err := Resolve(ctx, flat, col, opts...)
	if err != nil {
		return domain.Traits{}, fmt.Errorf("summarize %s: %w", c.Signature(), err)
	}

	nin, nout := c.NInputs(), c.NOutputs()
	inputs := make([]Discipline, nin)
	for i := range inputs {
		inputs[i] = res.Output(graph.Port(flat.Input(), i))
	}
	outputs := make([]Discipline, nout)
	for o := range outputs {
		outputs[o] = res.Input(graph.Port(flat.Output(), o))
	}

	reach := make([]map[int]bool, nin)
	for i := range reach {
		reach[i] = make(map[int]bool)
		for _, p := range res.ForwardFlow(graph.Port(flat.Input(), i), nil) {
			if p.Node == flat.Output() {
				reach[i][p.Port] = true
			}
		}
	}

	t := domain.Traits{
		Name:       c.Name(),
		PortCount:  fmt.Sprintf("%d/%d", nin, nout),
		Processing: FormatCode(inputs, outputs),
		FlowCode:   flowcode.Encode(nin, nout, func(i, o int) bool { return reach[i][o] }),
	}
	c.SetDerivedTraits(t, version)
	return t, nil
}
