package ports

import (
	"context"

	"github.com/aretw0/weft/pkg/domain"
)

// TraitsSource is the read-only metadata table consulted for primitive classes.
type TraitsSource interface {
	// Lookup returns the traits of the named primitive class.
	Lookup(name string) (domain.Traits, bool)

	// Provides reports whether a requirement word is satisfied.
	Provides(word string) bool

	// Version changes whenever the table changes, so derived data can be cached.
	Version() uint64
}

// ElementMapLoader loads every traits record from a backend.
type ElementMapLoader interface {
	// LoadTraits returns all records, sorted by name.
	LoadTraits(ctx context.Context) ([]domain.Traits, error)
}
