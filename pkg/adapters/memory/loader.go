package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/weft/pkg/domain"
)

// Loader implements ports.ElementMapLoader over a fixed set of records.
type Loader struct {
	traits map[string]domain.Traits
}

// NewLoader creates a loader from traits records. Records without a name
// are rejected.
func NewLoader(traits ...domain.Traits) (*Loader, error) {
	l := &Loader{traits: make(map[string]domain.Traits, len(traits))}
	for _, t := range traits {
		if t.Name == "" {
			return nil, fmt.Errorf("traits record missing name")
		}
		l.traits[t.Name] = t
	}
	return l, nil
}

// LoadTraits returns every record sorted by name.
func (l *Loader) LoadTraits(ctx context.Context) ([]domain.Traits, error) {
	out := make([]domain.Traits, 0, len(l.traits))
	for _, t := range l.traits {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
