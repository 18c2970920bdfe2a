// Package http serves the compiler over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/weft/pkg/diag"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/export"
)

// MaxBodyBytes bounds the size of a submitted script.
const MaxBodyBytes = 4 << 20

// Compiler is the part of weft.Compiler the server needs.
type Compiler interface {
	CompileSource(ctx context.Context, source []byte) (*export.Document, error)
	Classes() []domain.Traits
	Class(name string) (domain.Traits, bool)
}

// Server routes requests to a Compiler.
type Server struct {
	Compiler Compiler
	Version  string
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer serves metrics from g at /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.Version = v
	}
}

// NewHandler creates a new HTTP handler for the compiler.
func NewHandler(c Compiler, opts ...Option) http.Handler {
	s := &Server{Compiler: c, Version: "dev", logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	if spec, err := LoadSpec(context.Background()); err != nil {
		s.logger.Error("request validation disabled", "error", err)
	} else if mw, err := validateRequests(spec); err != nil {
		s.logger.Error("request validation disabled", "error", err)
	} else {
		r.Use(mw)
	}
	r.Get("/openapi.yaml", s.Spec)
	r.Get("/healthz", s.Health)
	r.Get("/info", s.Info)
	r.Post("/compile", s.Compile)
	r.Post("/check", s.Check)
	r.Get("/classes", s.ListClasses)
	r.Get("/classes/{name}", s.GetClass)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Info handles GET /info.
func (s *Server) Info(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":     "weft-http",
		"version": s.Version,
		"classes": len(s.Compiler.Classes()),
	})
}

// Compile handles POST /compile. The body is a YAML or JSON script. The
// exported document is returned as JSON, or YAML with ?format=yaml; a
// configuration with errors answers 422 with the same document.
func (s *Server) Compile(w http.ResponseWriter, r *http.Request) {
	doc, status, ok := s.compile(w, r)
	if !ok {
		return
	}
	formatName := "json"
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &formatName); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	format, err := export.ParseFormat(formatName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := doc.Encode(format)
	if err != nil {
		http.Error(w, "failed to encode result", http.StatusInternalServerError)
		s.logger.Error("Compile encode failed", "error", err)
		return
	}
	if format == export.YAML {
		w.Header().Set("Content-Type", "application/yaml")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	w.Write(data)
}

// CheckResponse is the body of POST /check.
type CheckResponse struct {
	OK          bool              `json:"ok"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
}

// Check handles POST /check: it compiles and returns only diagnostics.
func (s *Server) Check(w http.ResponseWriter, r *http.Request) {
	doc, status, ok := s.compile(w, r)
	if !ok {
		return
	}
	resp := CheckResponse{OK: status == http.StatusOK, Diagnostics: doc.Diagnostics}
	if resp.Diagnostics == nil {
		resp.Diagnostics = []diag.Diagnostic{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) compile(w http.ResponseWriter, r *http.Request) (*export.Document, int, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Compile: invalid request body", "error", err)
		return nil, 0, false
	}
	doc, err := s.Compiler.CompileSource(r.Context(), body)
	if err != nil {
		var aggr *diag.AggregateError
		switch {
		case errors.As(err, &aggr) && doc != nil:
			return doc, http.StatusUnprocessableEntity, true
		case errors.Is(err, domain.ErrInvalidSource):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "compilation failed", http.StatusInternalServerError)
			s.logger.Error("Compile failed", "error", err)
		}
		return nil, 0, false
	}
	return doc, http.StatusOK, true
}

// ListClasses handles GET /classes.
func (s *Server) ListClasses(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Compiler.Classes())
}

// GetClass handles GET /classes/{name}.
func (s *Server) GetClass(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	t, ok := s.Compiler.Class(name)
	if !ok {
		http.Error(w, "unknown element class: "+name, http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}
