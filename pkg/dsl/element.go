package dsl

import (
	"github.com/aretw0/weft/pkg/graph"
	"github.com/aretw0/weft/pkg/scope"
)

// ElementBuilder provides a fluent API for wiring one element.
type ElementBuilder struct {
	b    *Builder
	name string
	id   graph.NodeID
	ok   bool
}

// Name returns the element name, generated if it was declared anonymously.
func (e *ElementBuilder) Name() string { return e.name }

// ID returns the element identifier. It is graph.NoNode when the declaration
// failed.
func (e *ElementBuilder) ID() graph.NodeID {
	if !e.ok {
		return graph.NoNode
	}
	return e.id
}

// Config replaces the configuration string with the given arguments joined
// by commas.
func (e *ElementBuilder) Config(args ...string) *ElementBuilder {
	if e.ok {
		if err := e.b.g.SetConfig(e.id, scope.JoinArgs(args)); err != nil {
			e.b.fail(err)
		}
	}
	return e
}

// To connects output 0 to input 0 of target.
func (e *ElementBuilder) To(target string) *ElementBuilder {
	return e.ToPort(0, target, 0)
}

// ToPort connects output out to input in of target.
func (e *ElementBuilder) ToPort(out int, target string, in int) *ElementBuilder {
	e.b.Connect(e.name, out, target, in)
	return e
}

// From connects output out of source to input in of this element.
func (e *ElementBuilder) From(source string, out, in int) *ElementBuilder {
	e.b.Connect(source, out, e.name, in)
	return e
}

// Done returns the scope builder.
func (e *ElementBuilder) Done() *Builder { return e.b }
