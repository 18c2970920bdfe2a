package graph

import "github.com/aretw0/weft/pkg/domain"

// Connection is a directed edge from an output port to an input port.
type Connection struct {
	id   ConnID
	from PortRef
	to   PortRef
	loc  domain.Location
	live bool
}

func (c *Connection) ID() ConnID                { return c.id }
func (c *Connection) From() PortRef             { return c.from }
func (c *Connection) To() PortRef               { return c.to }
func (c *Connection) Location() domain.Location { return c.loc }
func (c *Connection) Live() bool                { return c.live }
