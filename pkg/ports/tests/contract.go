package tests

import (
	"context"
	"sort"
	"testing"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/ports"
)

// ElementMapLoaderContractTest is a reusable test suite that verifies an
// adapter complies with ports.ElementMapLoader. want holds the records the
// backend was seeded with, keyed by class name.
func ElementMapLoaderContractTest(t *testing.T, loader ports.ElementMapLoader, want map[string]domain.Traits) {
	t.Helper()

	traits, err := loader.LoadTraits(context.Background())
	if err != nil {
		t.Fatalf("unexpected error loading traits: %v", err)
	}

	t.Run("Count", func(t *testing.T) {
		if len(traits) != len(want) {
			t.Errorf("expected %d records, got %d", len(want), len(traits))
		}
	})

	t.Run("Sorted", func(t *testing.T) {
		if !sort.SliceIsSorted(traits, func(i, j int) bool { return traits[i].Name < traits[j].Name }) {
			t.Error("records are not sorted by name")
		}
	})

	t.Run("Content", func(t *testing.T) {
		for _, got := range traits {
			exp, ok := want[got.Name]
			if !ok {
				t.Errorf("unexpected record %q", got.Name)
				continue
			}
			if got.Processing != exp.Processing || got.PortCount != exp.PortCount || got.FlowCode != exp.FlowCode {
				t.Errorf("record %q mismatch: got %+v, want %+v", got.Name, got, exp)
			}
		}
	})
}
