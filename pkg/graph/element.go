package graph

import "github.com/aretw0/weft/pkg/domain"

// Element is one vertex of a Graph. Elements are created and changed only
// through the Graph that owns them.
type Element struct {
	id       NodeID
	name     string
	class    Class
	config   string
	loc      domain.Location
	ninputs  int
	noutputs int
	live     bool

	// For tunnels: data entering this element's inputs leaves from
	// tunnelOut's outputs, and this element's outputs carry what entered
	// tunnelIn's inputs.
	tunnelIn  NodeID
	tunnelOut NodeID
	// Set on tunnels standing in for a compound call site or its body
	// boundary. An unconnected boundary is reported at declaration.
	boundary bool

	in  []ConnID
	out []ConnID
}

func (e *Element) ID() NodeID                { return e.id }
func (e *Element) Name() string              { return e.name }
func (e *Element) Class() Class              { return e.class }
func (e *Element) Config() string            { return e.config }
func (e *Element) Location() domain.Location { return e.loc }
func (e *Element) NInputs() int              { return e.ninputs }
func (e *Element) NOutputs() int             { return e.noutputs }
func (e *Element) Live() bool                { return e.live }

// IsTunnel reports whether the element is a compound boundary marker.
func (e *Element) IsTunnel() bool {
	return e.class != nil && e.class.Kind() == KindTunnel
}

// TunnelPeers returns the elements paired with a tunnel. Either may be NoNode.
func (e *Element) TunnelPeers() (in, out NodeID) {
	return e.tunnelIn, e.tunnelOut
}

func (e *Element) floating() bool {
	return !e.tunnelIn.Valid() && !e.tunnelOut.Valid()
}

func (e *Element) recomputeArity(conns []*Connection) {
	e.ninputs, e.noutputs = 0, 0
	for _, cid := range e.in {
		if p := conns[cid.index].to.Port; p+1 > e.ninputs {
			e.ninputs = p + 1
		}
	}
	for _, cid := range e.out {
		if p := conns[cid.index].from.Port; p+1 > e.noutputs {
			e.noutputs = p + 1
		}
	}
}
