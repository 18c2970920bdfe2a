package weft

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/weft/internal/metrics"
	fileAdapter "github.com/aretw0/weft/pkg/adapters/file"
	loamAdapter "github.com/aretw0/weft/pkg/adapters/loam"
	"github.com/aretw0/weft/pkg/diag"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/dsl"
	"github.com/aretw0/weft/pkg/elementmap"
	"github.com/aretw0/weft/pkg/export"
	"github.com/aretw0/weft/pkg/graph"
	"github.com/aretw0/weft/pkg/ports"
	"github.com/aretw0/weft/pkg/processing"
	"github.com/aretw0/weft/pkg/script"
)

// cacheFormat is mixed into cache keys so a change to the exported document
// layout invalidates old entries.
const cacheFormat = "weft/1"

// ErrNoLoader is returned by Reload when the element map was not loaded
// from a backend.
var ErrNoLoader = errors.New("compiler has no element map loader")

// Compiler is the high-level entry point for the weft library.
// It owns the element map and runs the compilation passes.
type Compiler struct {
	mu       sync.RWMutex
	elements *elementmap.Map
	lib      *graph.Library
	digest   string

	loader   ports.ElementMapLoader
	store    ports.ResultStore
	locker   ports.DistributedLocker
	lockTTL  time.Duration
	recorder ports.MetricsRecorder
	tracer   trace.Tracer
	handler  diag.Handler
	procOpts []processing.Option
	logger   *slog.Logger
	Name     string
}

// Option defines a functional option for configuring the Compiler.
type Option func(*Compiler)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// WithElementMap uses m as the element map, bypassing any loader.
func WithElementMap(m *elementmap.Map) Option {
	return func(c *Compiler) {
		c.elements = m
	}
}

// WithLoader injects a custom element map loader, bypassing path detection.
func WithLoader(l ports.ElementMapLoader) Option {
	return func(c *Compiler) {
		c.loader = l
	}
}

// WithStore caches exported results of CompileSource.
func WithStore(s ports.ResultStore) Option {
	return func(c *Compiler) {
		c.store = s
	}
}

// WithLocker makes concurrent compilers sharing a store compile each
// source once. ttl bounds how long a crashed holder blocks others.
func WithLocker(l ports.DistributedLocker, ttl time.Duration) Option {
	return func(c *Compiler) {
		c.locker = l
		if ttl > 0 {
			c.lockTTL = ttl
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r ports.MetricsRecorder) Option {
	return func(c *Compiler) {
		c.recorder = r
	}
}

// WithTracer sets the tracer used for pass spans. The default is the
// global otel tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *Compiler) {
		c.tracer = t
	}
}

// WithDiagnosticHandler forwards every diagnostic to h as it is reported.
func WithDiagnosticHandler(h diag.Handler) Option {
	return func(c *Compiler) {
		c.handler = h
	}
}

// WithProcessingOptions passes options to the processing pass.
func WithProcessingOptions(opts ...processing.Option) Option {
	return func(c *Compiler) {
		c.procOpts = append(c.procOpts, opts...)
	}
}

// New initializes a Compiler. elementMapPath names an element map file
// (YAML or JSON) or a loam directory of class documents; it may be empty
// when WithElementMap or WithLoader is given. Without any element map every
// class name is accepted as a primitive and nothing is checked against
// metadata.
func New(elementMapPath string, opts ...Option) (*Compiler, error) {
	c := &Compiler{lockTTL: 30 * time.Second}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if c.recorder == nil {
		c.recorder = metrics.Nop{}
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer("github.com/aretw0/weft")
	}

	if c.elements == nil && c.loader == nil && elementMapPath != "" {
		l, err := loaderFor(elementMapPath)
		if err != nil {
			return nil, err
		}
		c.loader = l
		c.Name = filepath.Base(elementMapPath)
	}
	if c.Name != "" {
		c.logger = c.logger.With("elementmap", c.Name)
	}

	if c.elements == nil && c.loader != nil {
		m, err := c.load(context.Background())
		if err != nil {
			return nil, err
		}
		c.elements = m
	}
	if err := c.install(c.elements); err != nil {
		return nil, err
	}
	return c, nil
}

func loaderFor(path string) (ports.ElementMapLoader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("invalid element map path: %w", err)
	}
	if info.IsDir() {
		return loamAdapter.Open(path)
	}
	return fileAdapter.NewLoader(path), nil
}

// mapLoader is implemented by loaders that keep element-map-wide data, such
// as global provisions, which a list of traits cannot carry.
type mapLoader interface {
	Load(ctx context.Context) (*elementmap.Map, error)
}

func (c *Compiler) load(ctx context.Context) (*elementmap.Map, error) {
	if ml, ok := c.loader.(mapLoader); ok {
		return ml.Load(ctx)
	}
	traits, err := c.loader.LoadTraits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load element map: %w", err)
	}
	return elementmap.New(traits...), nil
}

// install makes m the active element map. A nil m disables metadata checks.
func (c *Compiler) install(m *elementmap.Map) error {
	var src ports.TraitsSource
	sum := sha256.New()
	sum.Write([]byte(cacheFormat))
	if m != nil {
		src = m
		data, err := elementmap.Encode(m, true)
		if err != nil {
			return fmt.Errorf("failed to digest element map: %w", err)
		}
		sum.Write(data)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.elements = m
	c.lib = graph.NewLibrary(src)
	c.digest = hex.EncodeToString(sum.Sum(nil))
	return nil
}

// Reload reads the element map again from the loader.
func (c *Compiler) Reload(ctx context.Context) error {
	if c.loader == nil {
		return ErrNoLoader
	}
	m, err := c.load(ctx)
	if err != nil {
		return err
	}
	if err := c.install(m); err != nil {
		return err
	}
	c.logger.Info("element map reloaded", "classes", m.Len())
	return nil
}

// Watch returns a channel that signals when the element map changes.
// Returns error if the loader does not support watching.
func (c *Compiler) Watch(ctx context.Context) (<-chan string, error) {
	if w, ok := c.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current loader does not support watching")
}

// Library returns the class library backed by the current element map.
func (c *Compiler) Library() *graph.Library {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lib
}

// ElementMap returns the current element map, or nil.
func (c *Compiler) ElementMap() *elementmap.Map {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.elements
}

// Classes returns the traits of every primitive class, sorted by name.
func (c *Compiler) Classes() []domain.Traits {
	m := c.ElementMap()
	if m == nil {
		return []domain.Traits{}
	}
	return m.All()
}

// Class returns the traits of one primitive class.
func (c *Compiler) Class(name string) (domain.Traits, bool) {
	m := c.ElementMap()
	if m == nil {
		return domain.Traits{}, false
	}
	return m.Lookup(name)
}

// Summarize derives the processing and flow codes of a compound class from
// its body.
func (c *Compiler) Summarize(ctx context.Context, cc *graph.Compound) (domain.Traits, error) {
	return processing.Summarize(ctx, cc, c.diagHandler(), c.procOpts...)
}

// NewBuilder starts a configuration graph against the current library.
func (c *Compiler) NewBuilder(name string) *dsl.Builder {
	return dsl.New(name,
		dsl.WithLibrary(c.Library()),
		dsl.WithLogger(c.logger),
		dsl.WithHandler(c.diagHandler()),
	)
}

// Result is the outcome of one compilation. Graph and Processing are nil
// when the configuration could not be flattened.
type Result struct {
	Name        string
	Graph       *graph.Graph
	Processing  *processing.Result
	Diagnostics []diag.Diagnostic
	Document    *export.Document
}

// OK reports whether no error-severity diagnostic was reported.
func (r *Result) OK() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == diag.Error {
			return false
		}
	}
	return true
}

func (c *Compiler) diagHandler() diag.Handler {
	return diag.Tee(
		diag.HandlerFunc(func(d diag.Diagnostic) {
			c.recorder.Diagnostic(string(d.Kind), d.Severity.String())
		}),
		c.handler,
	)
}

// Build finishes b and compiles the graph. Builder diagnostics come first
// in the result.
func (c *Compiler) Build(ctx context.Context, b *dsl.Builder) (*Result, error) {
	g, err := b.Build()
	if err != nil {
		res := &Result{Name: g.Name(), Diagnostics: b.Diagnostics()}
		res.Document = &export.Document{
			Name:        res.Name,
			Elements:    []export.Element{},
			Connections: []export.Connection{},
			Diagnostics: res.Diagnostics,
		}
		return res, err
	}
	res, err := c.Compile(ctx, g)
	if res != nil {
		res.Diagnostics = append(b.Diagnostics(), res.Diagnostics...)
		res.Document.Diagnostics = res.Diagnostics
	}
	return res, err
}

// CompileScript replays s into a new builder and compiles it.
func (c *Compiler) CompileScript(ctx context.Context, s *script.Script) (*Result, error) {
	name := s.Name
	if name == "" {
		name = "config"
	}
	b := c.NewBuilder(name)
	if err := s.Apply(b); err != nil {
		return nil, err
	}
	return c.Build(ctx, b)
}

// Compile flattens g, checks its requirements and resolves processing.
// The result is returned together with a *diag.AggregateError when errors
// were reported; a cancelled ctx returns a nil result.
func (c *Compiler) Compile(ctx context.Context, g *graph.Graph) (*Result, error) {
	logger := c.logger.With("graph", g.Name())
	col := diag.NewCollector(c.diagHandler())
	res := &Result{Name: g.Name()}

	ctx, span := c.tracer.Start(ctx, "weft.compile", trace.WithAttributes(attribute.String("weft.graph", g.Name())))
	defer span.End()

	expansions := 0
	err := c.pass(ctx, "flatten", func(ctx context.Context) error {
		flat, err := g.Flatten(ctx,
			graph.WithDiagnostics(col),
			graph.WithObserver(func(ev graph.Event) {
				if ev.Kind == "expand" {
					expansions++
					c.recorder.Expansion(ev.Class)
				}
			}),
		)
		res.Graph = flat
		return err
	})
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if err == nil {
		c.pass(ctx, "requirements", func(context.Context) error {
			res.Graph.CheckRequirements(col)
			return nil
		})
		c.pass(ctx, "processing", func(ctx context.Context) error {
			r, err := processing.Resolve(ctx, res.Graph, col, c.procOpts...)
			res.Processing = r
			return err
		})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	res.Diagnostics = col.Diagnostics()
	if res.Graph != nil {
		res.Document = export.Build(res.Graph, res.Processing, res.Diagnostics)
	} else {
		res.Document = &export.Document{
			Name:        res.Name,
			Elements:    []export.Element{},
			Connections: []export.Connection{},
			Diagnostics: res.Diagnostics,
		}
	}

	err = col.Err()
	if err != nil {
		span.SetStatus(codes.Error, "compilation failed")
	}
	logger.Debug("compiled",
		"elements", len(res.Document.Elements),
		"expansions", expansions,
		"diagnostics", len(res.Diagnostics),
		"errors", col.ErrorCount(),
	)
	return res, err
}

// pass runs fn inside a span and records its duration.
func (c *Compiler) pass(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "weft."+name)
	defer span.End()
	start := time.Now()
	err := fn(ctx)
	c.recorder.PassDuration(name, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// CacheKey identifies the compilation of source against the current
// element map.
func (c *Compiler) CacheKey(source []byte) string {
	c.mu.RLock()
	digest := c.digest
	c.mu.RUnlock()
	sum := sha256.New()
	sum.Write([]byte(digest))
	sum.Write(source)
	return hex.EncodeToString(sum.Sum(nil))
}

// CompileSource decodes a YAML or JSON script and compiles it, returning
// the exported document. Successful documents are cached in the store;
// failures are never cached. The document is returned with the error when
// the script decoded but did not compile.
func (c *Compiler) CompileSource(ctx context.Context, source []byte) (*export.Document, error) {
	key := c.CacheKey(source)
	logger := c.logger.With("key", key[:12])

	if c.store != nil {
		if doc, ok := c.cached(ctx, key, logger); ok {
			return doc, nil
		}
		if c.locker != nil {
			unlock, err := c.locker.Lock(ctx, key, c.lockTTL)
			if err != nil {
				return nil, fmt.Errorf("failed to lock %s: %w", key, err)
			}
			defer func() {
				if err := unlock(context.Background()); err != nil {
					logger.Warn("failed to release lock", "err", err)
				}
			}()
			// Another compiler may have finished while we waited.
			if doc, ok := c.cached(ctx, key, logger); ok {
				return doc, nil
			}
		}
	}

	s, err := script.Decode(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidSource, err)
	}
	res, err := c.CompileScript(ctx, s)
	if res == nil {
		return nil, err
	}
	if err == nil && c.store != nil {
		data, merr := json.Marshal(res.Document)
		if merr == nil {
			merr = c.store.Save(ctx, key, data)
		}
		if merr != nil {
			logger.Warn("failed to cache result", "err", merr)
		}
	}
	return res.Document, err
}

func (c *Compiler) cached(ctx context.Context, key string, logger *slog.Logger) (*export.Document, bool) {
	data, err := c.store.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("result cache unavailable", "err", err)
		}
		return nil, false
	}
	doc, err := export.Decode(data, export.JSON)
	if err != nil {
		logger.Warn("discarding corrupt cache entry", "err", err)
		return nil, false
	}
	logger.Debug("cache hit")
	return doc, true
}
