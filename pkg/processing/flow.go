package processing

import "github.com/aretw0/weft/pkg/graph"

// StopFunc ends a flow walk at a port. The port itself is still reported.
type StopFunc func(graph.PortRef) bool

// ForwardFlow returns the input ports reachable downstream of an output
// port, in breadth-first order. Each reached input continues through the
// outputs its element's flow relation connects it to, unless stop says so.
// stop may be nil.
func (r *Result) ForwardFlow(out graph.PortRef, stop StopFunc) []graph.PortRef {
	g := r.g
	var reached []graph.PortRef
	seenIn := make(map[graph.PortRef]bool)
	seenOut := map[graph.PortRef]bool{out: true}
	queue := []graph.PortRef{out}
	for len(queue) > 0 {
		o := queue[0]
		queue = queue[1:]
		for _, c := range g.ConnectionsFrom(o) {
			in := c.To()
			if seenIn[in] {
				continue
			}
			seenIn[in] = true
			reached = append(reached, in)
			if stop != nil && stop(in) {
				continue
			}
			e, err := g.Element(in.Node)
			if err != nil {
				continue
			}
			rel := r.Flow(in.Node)
			for next := 0; next < e.NOutputs(); next++ {
				p := graph.Port(in.Node, next)
				if rel.Flows(in.Port, next) && !seenOut[p] {
					seenOut[p] = true
					queue = append(queue, p)
				}
			}
		}
	}
	return reached
}

// BackwardFlow returns the output ports that can feed an input port, in
// breadth-first order. It is the mirror of ForwardFlow.
func (r *Result) BackwardFlow(in graph.PortRef, stop StopFunc) []graph.PortRef {
	g := r.g
	var reached []graph.PortRef
	seenOut := make(map[graph.PortRef]bool)
	seenIn := map[graph.PortRef]bool{in: true}
	queue := []graph.PortRef{in}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		for _, c := range g.ConnectionsTo(i) {
			out := c.From()
			if seenOut[out] {
				continue
			}
			seenOut[out] = true
			reached = append(reached, out)
			if stop != nil && stop(out) {
				continue
			}
			e, err := g.Element(out.Node)
			if err != nil {
				continue
			}
			rel := r.Flow(out.Node)
			for prev := 0; prev < e.NInputs(); prev++ {
				p := graph.Port(out.Node, prev)
				if rel.Flows(prev, out.Port) && !seenIn[p] {
					seenIn[p] = true
					queue = append(queue, p)
				}
			}
		}
	}
	return reached
}
