// Package testutils holds fixtures shared by the weft test suites.
package testutils

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// SetupTestRepo initializes a loam repository in a temporary directory and
// saves docs into it, keyed by document ID ("net/Queue.md").
// It returns the absolute directory and the repository.
func SetupTestRepo(t *testing.T, docs map[string]string, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	repo, err := loam.Init(dir, opts...)
	require.NoError(t, err, "Failed to init loam repo")

	for id, content := range docs {
		err := repo.Save(context.Background(), core.Document{ID: id, Content: content})
		require.NoError(t, err, "Failed to save %s", id)
	}
	return dir, repo
}

// WriteFile writes content to name under a fresh temporary directory and
// returns the full path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
