package graph

// Clone returns an independent copy of g. Element and connection identifiers
// remain valid in the copy. Classes are shared.
func (g *Graph) Clone() *Graph {
	out := *g
	out.elements = make([]*Element, len(g.elements))
	for i, e := range g.elements {
		ce := *e
		ce.in = append([]ConnID(nil), e.in...)
		ce.out = append([]ConnID(nil), e.out...)
		out.elements[i] = &ce
	}
	out.conns = make([]*Connection, len(g.conns))
	for i, c := range g.conns {
		cc := *c
		out.conns[i] = &cc
	}
	out.free = append([]int32(nil), g.free...)
	out.connFree = append([]int32(nil), g.connFree...)
	out.names = make(map[string]int32, len(g.names))
	for k, v := range g.names {
		out.names[k] = v
	}
	out.classes = make(map[string][]classEntry, len(g.classes))
	for k, v := range g.classes {
		out.classes[k] = append([]classEntry(nil), v...)
	}
	out.classOrder = append([]Class(nil), g.classOrder...)
	out.formals = append([]Formal(nil), g.formals...)
	out.requirements = append([]string(nil), g.requirements...)
	out.archives = append([]Archive(nil), g.archives...)
	return &out
}

// Compact drops dead elements and connections and renumbers the survivors
// densely in their existing order. Every identifier issued before the call
// becomes stale; the returned map translates old element IDs to new ones.
func (g *Graph) Compact() map[NodeID]NodeID {
	remap := make(map[NodeID]NodeID, len(g.elements))
	elems := make([]*Element, 0, len(g.elements))
	for _, e := range g.elements {
		if !e.live {
			continue
		}
		g.serial++
		nid := NodeID{index: int32(len(elems)), gen: g.serial}
		remap[e.id] = nid
		e.id = nid
		e.in, e.out = e.in[:0], e.out[:0]
		elems = append(elems, e)
	}
	translate := func(id NodeID) NodeID {
		if nid, ok := remap[id]; ok {
			return nid
		}
		return NoNode
	}
	for _, e := range elems {
		e.tunnelIn = translate(e.tunnelIn)
		e.tunnelOut = translate(e.tunnelOut)
	}

	conns := make([]*Connection, 0, len(g.conns))
	for _, c := range g.conns {
		if !c.live {
			continue
		}
		g.serial++
		c.id = ConnID{index: int32(len(conns)), gen: g.serial}
		c.from.Node = translate(c.from.Node)
		c.to.Node = translate(c.to.Node)
		conns = append(conns, c)
		src, dst := elems[c.from.Node.index], elems[c.to.Node.index]
		src.out = append(src.out, c.id)
		dst.in = append(dst.in, c.id)
	}

	g.elements, g.conns = elems, conns
	g.free, g.connFree = nil, nil
	g.names = make(map[string]int32, len(elems))
	for i, e := range elems {
		g.names[e.name] = int32(i)
	}
	if g.input.Valid() {
		g.input = translate(g.input)
	}
	if g.output.Valid() {
		g.output = translate(g.output)
	}
	return remap
}
