package graph

import "fmt"

// NodeID addresses an element slot. The generation guards against reuse.
type NodeID struct {
	index int32
	gen   uint32
}

// NoNode is the zero-information NodeID.
var NoNode = NodeID{index: -1}

// Index returns the slot index.
func (id NodeID) Index() int { return int(id.index) }

// Valid reports whether id could address an element.
func (id NodeID) Valid() bool { return id.index >= 0 && id.gen != 0 }

func (id NodeID) String() string {
	if !id.Valid() {
		return "#none"
	}
	return fmt.Sprintf("#%d.%d", id.index, id.gen)
}

// ConnID addresses a connection slot.
type ConnID struct {
	index int32
	gen   uint32
}

// NoConn is the zero-information ConnID.
var NoConn = ConnID{index: -1}

// Index returns the slot index.
func (id ConnID) Index() int { return int(id.index) }

// Valid reports whether id could address a connection.
func (id ConnID) Valid() bool { return id.index >= 0 && id.gen != 0 }

// PortRef names one port of one element. Whether it is an input or an
// output depends on where it is used.
type PortRef struct {
	Node NodeID
	Port int
}

// Port is shorthand for a PortRef.
func Port(node NodeID, port int) PortRef {
	return PortRef{Node: node, Port: port}
}

func (p PortRef) String() string {
	return fmt.Sprintf("%s[%d]", p.Node, p.Port)
}
