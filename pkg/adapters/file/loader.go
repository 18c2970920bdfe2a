package file

import (
	"context"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/elementmap"
)

// Loader implements ports.ElementMapLoader over an element map file.
type Loader struct {
	Path string
}

// NewLoader reads path on every LoadTraits call.
func NewLoader(path string) *Loader {
	return &Loader{Path: path}
}

// LoadTraits parses the file and returns its records sorted by name.
func (l *Loader) LoadTraits(ctx context.Context) ([]domain.Traits, error) {
	m, err := elementmap.LoadFile(l.Path)
	if err != nil {
		return nil, err
	}
	return m.All(), nil
}

// Load parses the file into a map, keeping its global provisions.
func (l *Loader) Load(ctx context.Context) (*elementmap.Map, error) {
	return elementmap.LoadFile(l.Path)
}
