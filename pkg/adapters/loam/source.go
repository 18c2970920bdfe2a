// Package loam reads an element map from a directory of markdown documents:
// one document per class, traits in the frontmatter, documentation in the
// body.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/elementmap"
)

// Source adapts a loam repository to ports.ElementMapLoader.
type Source struct {
	Repo *loam.TypedRepository[TraitsMetadata]
}

// New creates a source over a typed repository.
func New(repo *loam.TypedRepository[TraitsMetadata]) *Source {
	return &Source{Repo: repo}
}

// Open initializes a read-only loam repository at dir.
func Open(dir string) (*Source, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	// Strict mode keeps numeric frontmatter consistent across formats.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[TraitsMetadata](repo)), nil
}

// LoadTraits lists every document as a traits record, sorted by name.
// A class defined by two documents is an error.
func (s *Source) LoadTraits(ctx context.Context) ([]domain.Traits, error) {
	docs, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	out := make([]domain.Traits, 0, len(docs))
	for _, doc := range docs {
		t := toTraits(doc.ID, doc.Data, doc.Content)
		if prev, ok := seen[t.Name]; ok {
			return nil, fmt.Errorf("collision detected: class '%s' is defined in both '%s' and '%s'", t.Name, prev, doc.ID)
		}
		if _, err := elementmap.ParsePortCount(t.PortCount); err != nil {
			return nil, fmt.Errorf("%s: %w", doc.ID, err)
		}
		seen[t.Name] = doc.ID
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Load builds an element map from the repository.
func (s *Source) Load(ctx context.Context) (*elementmap.Map, error) {
	traits, err := s.LoadTraits(ctx)
	if err != nil {
		return nil, err
	}
	return elementmap.New(traits...), nil
}

func toTraits(docID string, meta TraitsMetadata, content string) domain.Traits {
	name := meta.Name
	if name == "" {
		name = baseName(trimExtension(docID))
	}
	doc := meta.Doc
	if doc == "" {
		doc = strings.TrimSpace(content)
	}
	return domain.Traits{
		Name:          name,
		PortCount:     meta.PortCount,
		Processing:    meta.Processing,
		FlowCode:      meta.FlowCode,
		Flags:         meta.Flags,
		Requirements:  meta.Requires,
		Provisions:    meta.Provides,
		Package:       meta.Package,
		Documentation: doc,
	}
}

// baseName keeps only the last segment, so "net/Queue" names Queue.
func baseName(id string) string {
	if i := strings.LastIndexByte(id, '/'); i >= 0 {
		return id[i+1:]
	}
	return id
}

func trimExtension(id string) string {
	id = filepath.ToSlash(id)
	if ext := filepath.Ext(id); ext != "" {
		return strings.TrimSuffix(id, ext)
	}
	return id
}

// Watch signals the IDs of documents that change, until ctx is done.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	events, err := s.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}
