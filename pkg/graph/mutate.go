package graph

import (
	"errors"
	"fmt"

	"github.com/aretw0/weft/pkg/diag"
	"github.com/aretw0/weft/pkg/domain"
)

// ErrNilClass is returned when an element is declared without a class.
var ErrNilClass = errors.New("nil class")

// ErrBadPort is returned for negative port numbers.
var ErrBadPort = errors.New("negative port number")

// Identifier errors, re-exported so callers need not import domain.
var (
	ErrDeadNode = domain.ErrDeadNode
	ErrStaleID  = domain.ErrStaleID
)

// GetOrCreateNode returns the live element called name, creating it if
// needed. An empty name is replaced by Class@N. Declaring an existing name
// with a different class reports a redeclaration and returns the existing
// element.
func (g *Graph) GetOrCreateNode(name string, class Class, config string, loc domain.Location) (NodeID, error) {
	if class == nil {
		return NoNode, fmt.Errorf("element %q: %w", name, ErrNilClass)
	}
	if name == "" {
		name = fmt.Sprintf("%s@%d", class.Name(), len(g.elements)+1)
	}
	if idx, ok := g.names[name]; ok {
		if e := g.elements[idx]; e.live {
			if e.class != class && !(e.IsTunnel() && class.Kind() == KindTunnel) {
				g.report(diag.Errorf(diag.Redeclaration, loc,
					"redeclaration of element '%s' (previous declaration at %s)", name, e.loc))
			}
			return e.id, nil
		}
	}
	e := &Element{
		name:      name,
		class:     class,
		config:    config,
		loc:       loc,
		live:      true,
		tunnelIn:  NoNode,
		tunnelOut: NoNode,
	}
	return g.alloc(e), nil
}

func (g *Graph) alloc(e *Element) NodeID {
	g.serial++
	var idx int32
	if n := len(g.free); n > 0 {
		idx = g.free[n-1]
		g.free = g.free[:n-1]
		g.elements[idx] = e
	} else {
		idx = int32(len(g.elements))
		g.elements = append(g.elements, e)
	}
	e.id = NodeID{index: idx, gen: g.serial}
	g.names[e.name] = idx
	return e.id
}

// AddConnection connects an output port to an input port, growing arities
// as needed. An identical live connection is returned instead of duplicated.
// Referencing a dead or stale element is a programmer error.
func (g *Graph) AddConnection(from, to PortRef, loc domain.Location) (ConnID, error) {
	if from.Port < 0 || to.Port < 0 {
		return NoConn, ErrBadPort
	}
	src, err := g.Element(from.Node)
	if err != nil {
		return NoConn, fmt.Errorf("connection source: %w", err)
	}
	dst, err := g.Element(to.Node)
	if err != nil {
		return NoConn, fmt.Errorf("connection destination: %w", err)
	}
	for _, cid := range src.out {
		if c := g.conns[cid.index]; c.from.Port == from.Port && c.to == to {
			return c.id, nil
		}
	}

	g.serial++
	c := &Connection{from: from, to: to, loc: loc, live: true}
	var idx int32
	if n := len(g.connFree); n > 0 {
		idx = g.connFree[n-1]
		g.connFree = g.connFree[:n-1]
		g.conns[idx] = c
	} else {
		idx = int32(len(g.conns))
		g.conns = append(g.conns, c)
	}
	c.id = ConnID{index: idx, gen: g.serial}

	src.out = append(src.out, c.id)
	dst.in = append(dst.in, c.id)
	if from.Port >= src.noutputs {
		src.noutputs = from.Port + 1
	}
	if to.Port >= dst.ninputs {
		dst.ninputs = to.Port + 1
	}
	return c.id, nil
}

// KillConnection removes a connection and shrinks the endpoint arities to
// what the remaining connections use.
func (g *Graph) KillConnection(id ConnID) error {
	c, err := g.Connection(id)
	if err != nil {
		return err
	}
	g.killConn(c)
	return nil
}

func (g *Graph) killConn(c *Connection) {
	c.live = false
	g.connFree = append(g.connFree, c.id.index)
	if src := g.elements[c.from.Node.index]; src.id == c.from.Node {
		src.out = removeConn(src.out, c.id)
		src.recomputeArity(g.conns)
	}
	if dst := g.elements[c.to.Node.index]; dst.id == c.to.Node {
		dst.in = removeConn(dst.in, c.id)
		dst.recomputeArity(g.conns)
	}
}

func removeConn(list []ConnID, id ConnID) []ConnID {
	for i, c := range list {
		if c == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// KillNode removes an element and every connection touching it. Other
// elements keep their indexes; the slot is reused by later allocations.
func (g *Graph) KillNode(id NodeID) error {
	e, err := g.Element(id)
	if err != nil {
		return err
	}
	g.killNode(e)
	return nil
}

func (g *Graph) killNode(e *Element) {
	for len(e.in) > 0 {
		g.killConn(g.conns[e.in[0].index])
	}
	for len(e.out) > 0 {
		g.killConn(g.conns[e.out[0].index])
	}
	e.live = false
	if idx, ok := g.names[e.name]; ok && idx == e.id.index {
		delete(g.names, e.name)
	}
	g.free = append(g.free, e.id.index)
}

// DeclareLocalClass makes c visible under its name to everything declared
// after it in this graph. A compound must have been created against this
// graph; it is finished first, and a compound with the same signature as an
// earlier member of its overload chain is reported as a redeclaration.
func (g *Graph) DeclareLocalClass(c Class, loc domain.Location) error {
	if c == nil {
		return ErrNilClass
	}
	name := c.Name()
	if name == "" {
		return fmt.Errorf("cannot declare an anonymous class")
	}
	if cc, ok := c.(*Compound); ok {
		if cc.body.parent != g {
			return fmt.Errorf("class %q belongs to another graph", name)
		}
		cc.Finish()
		for p := cc.prev; p != nil; p = p.Overload() {
			pc, ok := p.(*Compound)
			if !ok {
				break
			}
			if pc.sameSignature(cc) {
				g.report(diag.Errorf(diag.Redeclaration, loc,
					"redeclaration of '%s' (previous declaration at %s)", cc.Signature(), pc.loc))
				break
			}
		}
	}
	g.scopeGen++
	g.classes[name] = append(g.classes[name], classEntry{class: c, gen: g.scopeGen, loc: loc})
	g.classOrder = append(g.classOrder, c)
	g.logger.Debug("declared class", "class", name, "kind", c.Kind().String(), "scope", g.scopeGen)
	return nil
}

// AddTunnelPair creates (or reuses) two tunnel elements so that data
// entering inName's inputs continues from outName's outputs. A name that is
// already an ordinary element, or already paired in the same direction, is
// reported as a redeclaration.
func (g *Graph) AddTunnelPair(inName, outName string, loc domain.Location) (NodeID, NodeID, error) {
	in, ok := g.tunnelFor(inName, loc)
	if !ok {
		return NoNode, NoNode, nil
	}
	out, ok := g.tunnelFor(outName, loc)
	if !ok {
		return NoNode, NoNode, nil
	}
	ie, oe := g.elements[in.index], g.elements[out.index]
	if ie.tunnelOut.Valid() {
		g.report(diag.Errorf(diag.Redeclaration, loc, "redeclaration of connection tunnel '%s'", inName))
		return NoNode, NoNode, nil
	}
	if oe.tunnelIn.Valid() {
		g.report(diag.Errorf(diag.Redeclaration, loc, "redeclaration of connection tunnel '%s'", outName))
		return NoNode, NoNode, nil
	}
	ie.tunnelOut = out
	oe.tunnelIn = in
	return in, out, nil
}

func (g *Graph) tunnelFor(name string, loc domain.Location) (NodeID, bool) {
	if e, ok := g.ElementByName(name); ok {
		if !e.IsTunnel() {
			g.report(diag.Errorf(diag.Redeclaration, loc,
				"'%s' is already an element (declared at %s)", name, e.loc))
			return NoNode, false
		}
		return e.id, true
	}
	id, err := g.GetOrCreateNode(name, Tunnel, "", loc)
	return id, err == nil
}

// AddFormal declares a top-level parameter. Its default is interpolated
// when the graph is flattened.
func (g *Graph) AddFormal(f Formal) {
	g.formals = append(g.formals, f)
}

// AddRequirement records a requirement of the configuration.
func (g *Graph) AddRequirement(req string) {
	for _, r := range g.requirements {
		if r == req {
			return
		}
	}
	g.requirements = append(g.requirements, req)
}

// AddArchive attaches a named blob, replacing one with the same name.
func (g *Graph) AddArchive(name string, data []byte) {
	for i := range g.archives {
		if g.archives[i].Name == name {
			g.archives[i].Data = data
			return
		}
	}
	g.archives = append(g.archives, Archive{Name: name, Data: data})
}

// SetConfig replaces the configuration string of a live element.
func (g *Graph) SetConfig(id NodeID, config string) error {
	e, err := g.Element(id)
	if err != nil {
		return err
	}
	e.config = config
	return nil
}
