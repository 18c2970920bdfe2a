package graph

import (
	"errors"
	"fmt"

	graphlib "github.com/dominikbraun/graph"
)

// ErrCircular is returned by Prerequisites when compound classes use each
// other in a cycle.
var ErrCircular = errors.New("circular class dependency")

// Prerequisites returns every compound class reachable from g, ordered so
// that each class comes after the classes its body instantiates. Classes
// inside bodies are included. Ties keep discovery order.
func (g *Graph) Prerequisites() ([]*Compound, error) {
	var order []*Compound
	index := make(map[*Compound]int)
	key := func(c *Compound) string {
		return fmt.Sprintf("%04d %s", index[c], c.Signature())
	}

	var discover func(c Class)
	var discoverGraph func(b *Graph)
	discover = func(c Class) {
		for c != nil {
			switch x := c.(type) {
			case *Synonym:
				c = x.target
				continue
			case *Compound:
				if _, ok := index[x]; ok {
					return
				}
				index[x] = len(order)
				order = append(order, x)
				discoverGraph(x.body)
				c = x.prev
				continue
			}
			return
		}
	}
	discoverGraph = func(b *Graph) {
		for _, c := range b.classOrder {
			discover(c)
		}
		for _, e := range b.elements {
			if e.live {
				discover(e.class)
			}
		}
	}
	discoverGraph(g)

	deps := graphlib.New(graphlib.StringHash, graphlib.Directed(), graphlib.PreventCycles())
	for _, c := range order {
		if err := deps.AddVertex(key(c)); err != nil {
			return nil, fmt.Errorf("add class %s: %w", c.Signature(), err)
		}
	}
	for _, c := range order {
		for _, d := range usedCompounds(c.body) {
			if d == c {
				return nil, fmt.Errorf("%w: %s uses itself", ErrCircular, c.Signature())
			}
			err := deps.AddEdge(key(d), key(c))
			switch {
			case err == nil, errors.Is(err, graphlib.ErrEdgeAlreadyExists):
			case errors.Is(err, graphlib.ErrEdgeCreatesCycle):
				return nil, fmt.Errorf("%w: %s and %s", ErrCircular, d.Signature(), c.Signature())
			default:
				return nil, err
			}
		}
	}

	keys, err := graphlib.StableTopologicalSort(deps, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]*Compound, len(order))
	for _, c := range order {
		byKey[key(c)] = c
	}
	out := make([]*Compound, 0, len(keys))
	for _, k := range keys {
		out = append(out, byKey[k])
	}
	return out, nil
}

// usedCompounds lists the compounds that elements of b may expand to,
// including every member of their overload chains.
func usedCompounds(b *Graph) []*Compound {
	var out []*Compound
	seen := make(map[*Compound]bool)
	for _, e := range b.elements {
		if !e.live {
			continue
		}
		for c := e.class; c != nil; {
			if s, ok := c.(*Synonym); ok {
				c = s.target
				continue
			}
			x, ok := c.(*Compound)
			if !ok || seen[x] {
				break
			}
			seen[x] = true
			out = append(out, x)
			c = x.prev
		}
	}
	return out
}
