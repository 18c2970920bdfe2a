package dsl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/weft/pkg/diag"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/elementmap"
	"github.com/aretw0/weft/pkg/graph"
	"github.com/aretw0/weft/pkg/scope"
)

func library() *graph.Library {
	return graph.NewLibrary(elementmap.New(
		domain.Traits{Name: "FromDevice", PortCount: "0/1", Processing: "h/h"},
		domain.Traits{Name: "Queue", PortCount: "1/1", Processing: "h/l"},
		domain.Traits{Name: "Discard", PortCount: "1/0", Processing: "a/a"},
	))
}

func TestBuilder_SimpleFlow(t *testing.T) {
	b := New("simple", WithLibrary(library()))

	b.At("simple.click", 1).Add("src", "FromDevice", "eth0").To("q")
	b.Line(2).Add("q", "Queue", "10").To("sink")
	b.Line(3).Add("sink", "Discard")

	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if g.Len() != 3 {
		t.Fatalf("Expected 3 elements, got %d", g.Len())
	}
	if n := len(g.Connections()); n != 2 {
		t.Fatalf("Expected 2 connections, got %d", n)
	}

	q, ok := g.ElementByName("q")
	if !ok {
		t.Fatal("Expected element 'q'")
	}
	if q.Config() != "10" {
		t.Errorf("Expected config '10', got '%s'", q.Config())
	}
	if q.Location().String() != "simple.click:2" {
		t.Errorf("Expected location simple.click:2, got %s", q.Location())
	}
}

func TestBuilder_ConfigArgs(t *testing.T) {
	b := New("args", WithLibrary(library()))
	b.Add("q", "Queue", "10", "$limit")
	b.Add("r", "Queue").Config("SIZE 20", "f(a, b)")

	g, err := b.Build()
	require.NoError(t, err)
	q, _ := g.ElementByName("q")
	assert.Equal(t, "10, $limit", q.Config())
	r, _ := g.ElementByName("r")
	assert.Equal(t, "SIZE 20, f(a, b)", r.Config())
	assert.Equal(t, []string{"SIZE 20", "f(a, b)"}, scope.SplitArgs(r.Config()))
}

func TestBuilder_ForwardReference(t *testing.T) {
	b := New("fwd", WithLibrary(library()))
	b.Connect("src", 0, "sink", 0)
	b.Add("src", "FromDevice")
	b.Add("sink", "Discard")

	g, err := b.Build()
	require.NoError(t, err)
	assert.Len(t, g.Connections(), 1)
}

func TestBuilder_Compound(t *testing.T) {
	b := New("compound", WithLibrary(library()))

	body := b.Class("Shaper", "$rate=10")
	body.Add("q", "Queue", "$rate").From("input", 0, 0).To("output")
	body.End()

	b.Add("src", "FromDevice").To("s")
	b.Add("s", "Shaper", "100").To("sink")
	b.Add("sink", "Discard")

	g, err := b.Build()
	require.NoError(t, err)

	c, ok := g.LookupClass("Shaper").(*graph.Compound)
	require.True(t, ok)
	assert.Equal(t, "Shaper[1 argument, 1 input, 1 output]", c.Signature())
	require.Len(t, c.Formals(), 1)
	assert.Equal(t, "rate", c.Formals()[0].Name)
	assert.Equal(t, "10", c.Formals()[0].Default)

	flat, err := g.Flatten(context.Background())
	require.NoError(t, err)
	q, ok := flat.ElementByName("s/q")
	require.True(t, ok)
	assert.Equal(t, "100", q.Config())
}

func TestBuilder_AnonymousClass(t *testing.T) {
	b := New("anon", WithLibrary(library()))
	body := b.Class("")
	body.Add("q", "Queue").From("input", 0, 0).To("output")
	body.End()

	b.AddClass("a", body.Compound()).From("src", 0, 0).To("sink")
	b.Add("src", "FromDevice")
	b.Add("sink", "Discard")

	g, err := b.Build()
	require.NoError(t, err)
	flat, err := g.Flatten(context.Background())
	require.NoError(t, err)
	_, ok := flat.ElementByName("a/q")
	assert.True(t, ok)
}

func TestBuilder_UnknownReferences(t *testing.T) {
	b := New("bad", WithLibrary(library()))
	b.Add("x", "Nope")
	b.Add("sink", "Discard")
	b.Chain("x", "sink")
	b.Chain("ghost", "sink")

	_, err := b.Build()
	require.Error(t, err)
	ds := diag.Diagnostics(err)
	require.Len(t, ds, 2, "connections to a failed element are not reported again")
	assert.Equal(t, "unknown element class 'Nope'", ds[0].Message)
	assert.Equal(t, "undeclared element 'ghost'", ds[1].Message)
}

func TestBuilder_Redeclarations(t *testing.T) {
	var seen []diag.Diagnostic
	b := New("redecl", WithHandler(diag.HandlerFunc(func(d diag.Diagnostic) {
		seen = append(seen, d)
	})))
	b.Add("a", "Queue")
	b.Add("a", "Discard")
	b.Tunnel("p", "q")
	b.Tunnel("p", "r")
	b.Class("Same").End()
	b.Class("Same").End()

	_, err := b.Build()
	require.Error(t, err)
	assert.Len(t, diag.Diagnostics(err), 3)
	assert.Len(t, seen, 3)
}

func TestBuilder_RequireDefineArchive(t *testing.T) {
	b := New("meta")
	b.Require("linuxmodule", " ", "ip6")
	b.Define("$dev", "eth1")
	b.Archive("config", []byte("data"))
	b.Synonym("Dev", "FromDevice")
	b.Add("src", "Dev", "$dev")

	g, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"linuxmodule", "ip6"}, g.Requirements())
	require.Len(t, g.Formals(), 1)
	assert.Equal(t, "dev", g.Formals()[0].Name)
	assert.Equal(t, "config", g.Archives()[0].Name)

	flat, err := g.Flatten(context.Background())
	require.NoError(t, err)
	src, ok := flat.ElementByName("src")
	require.True(t, ok)
	assert.Equal(t, "FromDevice", src.Class().Name())
	assert.Equal(t, "eth1", src.Config())
}

func TestParseFormal(t *testing.T) {
	f := ParseFormal("$rate = 10", domain.Location{})
	assert.Equal(t, graph.Formal{Name: "rate", Default: "10", HasDefault: true}, f)
	f = ParseFormal("n", domain.Location{})
	assert.False(t, f.HasDefault)
}

func TestBuilder_EndErrors(t *testing.T) {
	b := New("top")
	b.End()
	_, err := b.Build()
	assert.Error(t, err)

	body := b.Class("X")
	_, err = body.Build()
	assert.Error(t, err)
}
