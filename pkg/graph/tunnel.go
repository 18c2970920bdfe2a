package graph

import (
	"fmt"

	"github.com/aretw0/weft/pkg/diag"
)

type walkKey struct {
	node   NodeID
	port   int
	output bool
}

type connKey struct {
	from, to PortRef
}

// removable reports whether e is a tunnel that removeTunnels splices out.
func (f *flattener) removable(e *Element) bool {
	if !e.live || !e.IsTunnel() {
		return false
	}
	return !(f.cfg.keepBoundary && e.floating())
}

// removeTunnels replaces every path through tunnels by direct connections
// between the real ports at either end, then deletes the tunnels. Paths that
// end inside a tunnel, and tunnel pairs with no connection at all, are
// reported as errors.
func (f *flattener) removeTunnels() bool {
	g := f.g
	var tunnels []*Element
	for _, e := range g.elements {
		if f.removable(e) {
			tunnels = append(tunnels, e)
		}
	}
	if len(tunnels) == 0 {
		return false
	}

	reported := make(map[string]bool)
	for _, t := range tunnels {
		if t.boundary || len(t.in) > 0 || len(t.out) > 0 {
			continue
		}
		peer := g.slotFor(t.tunnelOut)
		if peer == nil || peer.boundary || len(peer.in) > 0 || len(peer.out) > 0 {
			continue
		}
		f.dangling(t, "input", 0, reported)
		f.dangling(peer, "output", 0, reported)
	}

	var (
		pairs []connKey
		locs  []*Connection
	)
	seen := make(map[connKey]bool)
	for _, c := range g.conns {
		if !c.live {
			continue
		}
		src, dst := g.elements[c.from.Node.index], g.elements[c.to.Node.index]
		switch {
		case f.removable(src) && !f.removable(dst):
			if len(f.sources(c.from, make(map[walkKey]bool), reported)) == 0 {
				g.logger.Debug("dropped connection from dangling tunnel", "tunnel", src.name, "port", c.from.Port)
			}
		case !f.removable(src) && f.removable(dst):
			for _, sink := range f.sinks(c.to, make(map[walkKey]bool), reported) {
				k := connKey{from: c.from, to: sink}
				if !seen[k] {
					seen[k] = true
					pairs = append(pairs, k)
					locs = append(locs, c)
				}
			}
		}
	}

	for _, t := range tunnels {
		g.killNode(t)
	}
	for i, k := range pairs {
		if _, err := g.AddConnection(k.from, k.to, locs[i].loc); err != nil {
			g.logger.Debug("skipped spliced connection", "err", err)
		}
	}
	f.observe(Event{Kind: "tunnels", Count: len(tunnels)})
	return true
}

// sinks returns the real input ports reached by data entering input port p
// of a tunnel.
func (f *flattener) sinks(p PortRef, visited map[walkKey]bool, reported map[string]bool) []PortRef {
	k := walkKey{node: p.Node, port: p.Port}
	if visited[k] {
		return nil
	}
	visited[k] = true
	g := f.g
	t := g.elements[p.Node.index]
	peer := g.slotFor(t.tunnelOut)
	if peer == nil {
		f.dangling(t, "input", p.Port, reported)
		return nil
	}
	conns := g.connsFrom(Port(peer.id, p.Port))
	if len(conns) == 0 {
		f.dangling(peer, "output", p.Port, reported)
		return nil
	}
	var out []PortRef
	for _, c := range conns {
		if f.removable(g.elements[c.to.Node.index]) {
			out = append(out, f.sinks(c.to, visited, reported)...)
		} else {
			out = append(out, c.to)
		}
	}
	return out
}

// sources returns the real output ports feeding output port p of a tunnel.
func (f *flattener) sources(p PortRef, visited map[walkKey]bool, reported map[string]bool) []PortRef {
	k := walkKey{node: p.Node, port: p.Port, output: true}
	if visited[k] {
		return nil
	}
	visited[k] = true
	g := f.g
	t := g.elements[p.Node.index]
	peer := g.slotFor(t.tunnelIn)
	if peer == nil {
		f.dangling(t, "output", p.Port, reported)
		return nil
	}
	conns := g.connsTo(Port(peer.id, p.Port))
	if len(conns) == 0 {
		f.dangling(peer, "input", p.Port, reported)
		return nil
	}
	var out []PortRef
	for _, c := range conns {
		if f.removable(g.elements[c.from.Node.index]) {
			out = append(out, f.sources(c.from, visited, reported)...)
		} else {
			out = append(out, c.from)
		}
	}
	return out
}

// dangling reports an unconnected port on a path through t. Ports of a
// compound call site are like those of any element and only warn.
func (f *flattener) dangling(t *Element, dir string, port int, reported map[string]bool) {
	msg := fmt.Sprintf("tunnel '%s' %s %d unused", t.name, dir, port)
	if t.boundary {
		msg = fmt.Sprintf("compound element '%s' %s %d unconnected", t.name, dir, port)
	}
	if reported[msg] {
		return
	}
	reported[msg] = true
	if t.boundary {
		f.diags.Report(diag.Warnf(diag.DanglingTunnel, t.loc, "%s", msg))
		return
	}
	f.diags.Report(diag.Errorf(diag.DanglingTunnel, t.loc, "%s", msg))
}
