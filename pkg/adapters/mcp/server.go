// Package mcp exposes the compiler as a Model Context Protocol server.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/weft"
	"github.com/aretw0/weft/pkg/diag"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/export"
)

// ElementMapURI is the resource listing every primitive class.
const ElementMapURI = "weft://elementmap"

// Compiler is the part of weft.Compiler the server needs.
type Compiler interface {
	CompileSource(ctx context.Context, source []byte) (*export.Document, error)
	Classes() []domain.Traits
	Class(name string) (domain.Traits, bool)
}

// CompileResponse is the structured result of compile_config.
type CompileResponse struct {
	OK       bool             `json:"ok" jsonschema_description:"True when no error was reported"`
	Document *export.Document `json:"document" jsonschema_description:"The flattened configuration with diagnostics"`
}

// CheckResponse is the structured result of check_config.
type CheckResponse struct {
	OK          bool              `json:"ok" jsonschema_description:"True when no error was reported"`
	Diagnostics []diag.Diagnostic `json:"diagnostics" jsonschema_description:"Errors and warnings"`
}

// Server wraps a Compiler and exposes it as an MCP Server.
type Server struct {
	compiler  Compiler
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(c Compiler) *Server {
	s := &Server{
		compiler:  c,
		mcpServer: server.NewMCPServer("weft-mcp", strings.TrimSpace(weft.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, for in-process clients.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("compile_config",
		mcp.WithDescription("Flatten a router configuration script (YAML or JSON statements) and resolve push/pull processing."),
		mcp.WithString("script", mcp.Required(), mcp.Description("The configuration script")),
		mcp.WithOutputSchema[CompileResponse](),
	), mcp.NewStructuredToolHandler(s.handleCompile))

	s.mcpServer.AddTool(mcp.NewTool("check_config",
		mcp.WithDescription("Compile a configuration script and report only its diagnostics."),
		mcp.WithString("script", mcp.Required(), mcp.Description("The configuration script")),
		mcp.WithOutputSchema[CheckResponse](),
	), mcp.NewStructuredToolHandler(s.handleCheck))

	s.mcpServer.AddTool(mcp.NewTool("describe_class",
		mcp.WithDescription("Describe a primitive element class from the element map."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Class name, e.g. Queue")),
	), s.handleDescribe)
}

// compile returns the document of a script that decoded, even when it has
// errors; other failures are returned as errors.
func (s *Server) compile(ctx context.Context, args map[string]any) (*export.Document, error) {
	script, _ := args["script"].(string)
	if strings.TrimSpace(script) == "" {
		return nil, fmt.Errorf("script is required")
	}
	doc, err := s.compiler.CompileSource(ctx, []byte(script))
	var aggr *diag.AggregateError
	if err != nil && !(errors.As(err, &aggr) && doc != nil) {
		return nil, fmt.Errorf("compile failed: %w", err)
	}
	return doc, nil
}

func ok(doc *export.Document) bool {
	for _, d := range doc.Diagnostics {
		if d.Severity == diag.Error {
			return false
		}
	}
	return true
}

func (s *Server) handleCompile(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (CompileResponse, error) {
	doc, err := s.compile(ctx, args)
	if err != nil {
		return CompileResponse{}, err
	}
	return CompileResponse{OK: ok(doc), Document: doc}, nil
}

func (s *Server) handleCheck(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (CheckResponse, error) {
	doc, err := s.compile(ctx, args)
	if err != nil {
		return CheckResponse{}, err
	}
	diags := doc.Diagnostics
	if diags == nil {
		diags = []diag.Diagnostic{}
	}
	return CheckResponse{OK: ok(doc), Diagnostics: diags}, nil
}

func (s *Server) handleDescribe(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, found := s.compiler.Class(name)
	if !found {
		return mcp.NewToolResultError(fmt.Sprintf("unknown element class '%s'", name)), nil
	}
	jsonBytes, _ := json.Marshal(t)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(ElementMapURI, "Element Map",
		mcp.WithResourceDescription("Traits of every primitive element class"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.compiler.Classes())
		if err != nil {
			return nil, fmt.Errorf("failed to encode element map: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      ElementMapURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
