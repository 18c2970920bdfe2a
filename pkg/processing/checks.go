package processing

import (
	"github.com/aretw0/weft/pkg/diag"
	"github.com/aretw0/weft/pkg/graph"
)

// checkConnections reports push outputs and pull inputs used by more than
// one connection, and ports with no connection at all.
func (r *Result) checkConnections(h diag.Handler) {
	g := r.g
	for _, e := range g.Elements() {
		if e.IsTunnel() {
			continue
		}
		id := e.ID()
		for o := 0; o < e.NOutputs(); o++ {
			p := graph.Port(id, o)
			conns := g.ConnectionsFrom(p)
			switch {
			case len(conns) == 0:
				h.Report(diag.Warnf(diag.UnconnectedPort, e.Location(),
					"'%s' %s output %d not connected", e.Name(), r.Output(p), o))
			case len(conns) > 1 && r.Output(p) == Push:
				for _, c := range conns[1:] {
					h.Report(diag.Errorf(diag.ConnectionReuse, c.Location(),
						"reuse of '%s' push output %d (previously used at %s)", e.Name(), o, conns[0].Location()))
				}
			}
		}
		for i := 0; i < e.NInputs(); i++ {
			p := graph.Port(id, i)
			conns := g.ConnectionsTo(p)
			switch {
			case len(conns) == 0:
				h.Report(diag.Warnf(diag.UnconnectedPort, e.Location(),
					"'%s' %s input %d not connected", e.Name(), r.Input(p), i))
			case len(conns) > 1 && r.Input(p) == Pull:
				for _, c := range conns[1:] {
					h.Report(diag.Errorf(diag.ConnectionReuse, c.Location(),
						"reuse of '%s' pull input %d (previously used at %s)", e.Name(), i, conns[0].Location()))
				}
			}
		}
	}
}
