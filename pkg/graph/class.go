package graph

import (
	"sync"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/ports"
)

// Kind distinguishes the class variants.
type Kind int

const (
	KindPrimitive Kind = iota
	KindSynonym
	KindTunnel
	KindCompound
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindSynonym:
		return "synonym"
	case KindTunnel:
		return "tunnel"
	case KindCompound:
		return "compound"
	}
	return "unknown"
}

// Class is the type of an element.
type Class interface {
	Name() string
	Kind() Kind
	// Traits returns the class metadata. Compounds report their boundary
	// arity and, once summarized, their derived codes.
	Traits() domain.Traits
	// Overload returns the next class to try when this one does not match a
	// call site, or nil.
	Overload() Class
}

// Primitive is a leaf class whose behavior is defined outside the compiler.
type Primitive struct {
	name string
	lib  *Library
}

func (p *Primitive) Name() string    { return p.name }
func (p *Primitive) Kind() Kind      { return KindPrimitive }
func (p *Primitive) Overload() Class { return nil }

func (p *Primitive) Traits() domain.Traits {
	if t, ok := p.lib.lookup(p.name); ok {
		return t
	}
	return domain.Traits{Name: p.name}
}

// Synonym is a local alias for another class.
type Synonym struct {
	name   string
	target Class
	loc    domain.Location
}

// NewSynonym declares name as an alias for target.
func NewSynonym(name string, target Class, loc domain.Location) *Synonym {
	return &Synonym{name: name, target: target, loc: loc}
}

func (s *Synonym) Name() string              { return s.name }
func (s *Synonym) Kind() Kind                { return KindSynonym }
func (s *Synonym) Overload() Class           { return nil }
func (s *Synonym) Target() Class             { return s.target }
func (s *Synonym) Location() domain.Location { return s.loc }
func (s *Synonym) Traits() domain.Traits     { return s.target.Traits() }

type tunnelClass struct{}

// Tunnel is the class shared by every compound boundary element.
var Tunnel Class = tunnelClass{}

func (tunnelClass) Name() string    { return "<tunnel>" }
func (tunnelClass) Kind() Kind      { return KindTunnel }
func (tunnelClass) Overload() Class { return nil }
func (tunnelClass) Traits() domain.Traits {
	return domain.Traits{Name: "<tunnel>", PortCount: "-/-", Processing: "a/a", FlowCode: "x/y"}
}

// Library hands out one Primitive per class name, backed by a TraitsSource.
// With a nil source every name is accepted as a primitive with empty traits.
type Library struct {
	mu    sync.Mutex
	src   ports.TraitsSource
	prims map[string]*Primitive
}

// NewLibrary creates a library over src, which may be nil.
func NewLibrary(src ports.TraitsSource) *Library {
	return &Library{src: src, prims: make(map[string]*Primitive)}
}

// Source returns the backing table, or nil.
func (l *Library) Source() ports.TraitsSource { return l.src }

func (l *Library) lookup(name string) (domain.Traits, bool) {
	if l.src == nil {
		return domain.Traits{}, false
	}
	return l.src.Lookup(name)
}

// Known reports whether the source defines name.
func (l *Library) Known(name string) bool {
	_, ok := l.lookup(name)
	return ok
}

// Primitive returns the shared primitive class for name. It fails only when
// a source is configured and does not define name.
func (l *Library) Primitive(name string) (*Primitive, bool) {
	if name == "" || (l.src != nil && !l.Known(name)) {
		return nil, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.prims[name]
	if !ok {
		p = &Primitive{name: name, lib: l}
		l.prims[name] = p
	}
	return p, true
}

// Provides reports whether a requirement word is satisfied. Without a source
// nothing can be checked and every requirement passes.
func (l *Library) Provides(word string) bool {
	if l.src == nil {
		return true
	}
	return l.src.Provides(word)
}

// Version is the source version, or 0.
func (l *Library) Version() uint64 {
	if l.src == nil {
		return 0
	}
	return l.src.Version()
}
