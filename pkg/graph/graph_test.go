package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/weft/pkg/diag"
	"github.com/aretw0/weft/pkg/domain"
)

var here = domain.At("test.click", 1)

func newTestGraph(t *testing.T) (*Graph, *diag.Collector) {
	t.Helper()
	col := diag.NewCollector(nil)
	return New("test", WithHandler(col)), col
}

func prim(g *Graph, name string) Class {
	p, ok := g.Library().Primitive(name)
	if !ok {
		panic("unknown primitive " + name)
	}
	return p
}

func mustNode(t *testing.T, g *Graph, name string, class Class, config string) NodeID {
	t.Helper()
	id, err := g.GetOrCreateNode(name, class, config, here)
	require.NoError(t, err)
	return id
}

func mustConnect(t *testing.T, g *Graph, from NodeID, out int, to NodeID, in int) {
	t.Helper()
	_, err := g.AddConnection(Port(from, out), Port(to, in), here)
	require.NoError(t, err)
}

// passThrough declares a 1-in 1-out compound in g. With inner nil the body
// connects input straight to output; otherwise it routes through one
// element of class inner named x.
func passThrough(t *testing.T, g *Graph, name string, inner Class) *Compound {
	t.Helper()
	c := NewCompound(name, g, here)
	b := c.Body()
	if inner == nil {
		mustConnect(t, b, b.Input(), 0, b.Output(), 0)
	} else {
		x := mustNode(t, b, "x", inner, "")
		mustConnect(t, b, b.Input(), 0, x, 0)
		mustConnect(t, b, x, 0, b.Output(), 0)
	}
	require.NoError(t, g.DeclareLocalClass(c, here))
	return c
}

func connectionNames(g *Graph) []string {
	var out []string
	for _, c := range g.Connections() {
		from, _ := g.Element(c.From().Node)
		to, _ := g.Element(c.To().Node)
		out = append(out, from.Name()+"->"+to.Name())
	}
	return out
}

func TestGetOrCreateNode_Idempotent(t *testing.T) {
	g, col := newTestGraph(t)
	q := prim(g, "Queue")

	a := mustNode(t, g, "q", q, "")
	b := mustNode(t, g, "q", q, "")
	if a != b {
		t.Fatalf("expected same id, got %s and %s", a, b)
	}
	if g.Len() != 1 {
		t.Fatalf("expected 1 element, got %d", g.Len())
	}

	c := mustNode(t, g, "q", prim(g, "Counter"), "")
	assert.Equal(t, a, c)
	assert.Equal(t, 1, col.Count(diag.Redeclaration))
	assert.Contains(t, col.Diagnostics()[0].Message, "previous declaration at test.click:1")
}

func TestGetOrCreateNode_AnonymousNames(t *testing.T) {
	g, _ := newTestGraph(t)
	a := mustNode(t, g, "", prim(g, "Queue"), "")
	b := mustNode(t, g, "", prim(g, "Queue"), "")
	require.NotEqual(t, a, b)

	ea, _ := g.Element(a)
	eb, _ := g.Element(b)
	assert.Equal(t, "Queue@1", ea.Name())
	assert.Equal(t, "Queue@2", eb.Name())
}

func TestKillNode_IndexStability(t *testing.T) {
	g, _ := newTestGraph(t)
	q := prim(g, "Queue")
	a := mustNode(t, g, "a", q, "")
	b := mustNode(t, g, "b", q, "")
	c := mustNode(t, g, "c", q, "")
	mustConnect(t, g, a, 0, b, 0)
	mustConnect(t, g, b, 0, c, 0)

	require.NoError(t, g.KillNode(b))
	assert.Empty(t, g.Connections())

	for _, id := range []NodeID{a, c} {
		if _, err := g.Element(id); err != nil {
			t.Fatalf("element %s should survive: %v", id, err)
		}
	}

	d := mustNode(t, g, "d", q, "")
	assert.Equal(t, b.Index(), d.Index(), "freed slot should be reused")
	assert.NotEqual(t, b, d)

	_, err := g.Element(b)
	assert.True(t, errors.Is(err, ErrStaleID), "got %v", err)
	assert.ErrorIs(t, g.KillNode(b), ErrStaleID)
}

func TestElement_DeadNode(t *testing.T) {
	g, _ := newTestGraph(t)
	a := mustNode(t, g, "a", prim(g, "Queue"), "")
	e, _ := g.Element(a)
	g.killNode(e)
	_, err := g.Element(a)
	assert.ErrorIs(t, err, ErrDeadNode)
}

func TestAddConnection_ArityInference(t *testing.T) {
	g, _ := newTestGraph(t)
	a := mustNode(t, g, "a", prim(g, "Tee"), "")
	b := mustNode(t, g, "b", prim(g, "Mux"), "")

	id1, err := g.AddConnection(Port(a, 3), Port(b, 1), here)
	require.NoError(t, err)
	id2, err := g.AddConnection(Port(a, 3), Port(b, 1), here)
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "duplicate connection should be deduplicated")

	ea, _ := g.Element(a)
	eb, _ := g.Element(b)
	assert.Equal(t, 4, ea.NOutputs())
	assert.Equal(t, 0, ea.NInputs())
	assert.Equal(t, 2, eb.NInputs())

	require.NoError(t, g.KillConnection(id1))
	assert.Equal(t, 0, ea.NOutputs())
	assert.Equal(t, 0, eb.NInputs())

	_, err = g.AddConnection(Port(a, -1), Port(b, 0), here)
	assert.ErrorIs(t, err, ErrBadPort)
}

func TestAddTunnelPair_Redeclaration(t *testing.T) {
	g, col := newTestGraph(t)
	mustNode(t, g, "q", prim(g, "Queue"), "")

	in, out, err := g.AddTunnelPair("t_in", "t_out", here)
	require.NoError(t, err)
	require.True(t, in.Valid() && out.Valid())

	g.AddTunnelPair("t_in", "other", here)
	g.AddTunnelPair("q", "x", here)

	assert.Equal(t, 2, col.Count(diag.Redeclaration))
}

func TestRedeclaration_Aggregated(t *testing.T) {
	g, col := newTestGraph(t)
	mustNode(t, g, "a", prim(g, "Queue"), "")
	mustNode(t, g, "a", prim(g, "Counter"), "")

	g.AddTunnelPair("p", "q", here)
	g.AddTunnelPair("p", "r", here)

	passThrough(t, g, "Same", nil)
	passThrough(t, g, "Same", nil)

	if n := col.Count(diag.Redeclaration); n != 3 {
		t.Fatalf("expected 3 redeclarations, got %d: %v", n, col.Diagnostics())
	}
	err := col.Err()
	require.Error(t, err)
	assert.Len(t, diag.Diagnostics(err), 3)
}

func TestCompound_UnusedBoundary(t *testing.T) {
	g, col := newTestGraph(t)
	c := NewCompound("Gap", g, here)
	b := c.Body()
	x := mustNode(t, b, "x", prim(g, "Queue"), "")
	mustConnect(t, b, b.Input(), 1, x, 0)
	mustConnect(t, b, x, 0, b.Output(), 0)
	require.NoError(t, g.DeclareLocalClass(c, here))

	assert.Equal(t, 2, c.NInputs())
	assert.Equal(t, "Gap[2 inputs, 1 output]", c.Signature())
	require.Equal(t, 1, col.Count(diag.DanglingTunnel))
	assert.Contains(t, col.Diagnostics()[0].Message, "compound element 'Gap' input 0 unused")
}

func TestLookupClass_Lexical(t *testing.T) {
	g, _ := newTestGraph(t)
	first := passThrough(t, g, "P", nil)

	c := NewCompound("Outer", g, here)
	// Declared after Outer opened: invisible from its body.
	second := passThrough(t, g, "P", nil)

	assert.Same(t, second, g.LookupClass("P"))
	assert.Same(t, first, c.Body().LookupClass("P"))
	assert.Same(t, c, c.Body().LookupClass("Outer"))
	assert.Same(t, first, second.Overload())
}

func TestFlatten_ExpandsCompound(t *testing.T) {
	g, _ := newTestGraph(t)
	wrap := passThrough(t, g, "Wrap", prim(g, "Queue"))

	src := mustNode(t, g, "src", prim(g, "Source"), "")
	w := mustNode(t, g, "w", wrap, "")
	dst := mustNode(t, g, "dst", prim(g, "Sink"), "")
	mustConnect(t, g, src, 0, w, 0)
	mustConnect(t, g, w, 0, dst, 0)

	flat, err := g.Flatten(context.Background())
	require.NoError(t, err)

	var names []string
	for _, e := range flat.Elements() {
		names = append(names, e.Name())
		assert.False(t, e.IsTunnel(), "tunnel %s survived", e.Name())
	}
	assert.ElementsMatch(t, []string{"src", "w/x", "dst"}, names)
	assert.ElementsMatch(t, []string{"src->w/x", "w/x->dst"}, connectionNames(flat))

	// The receiver is untouched.
	assert.Equal(t, 3, g.Len())
	e, _ := g.Element(w)
	assert.Same(t, wrap, e.Class())
}

func TestFlatten_TunnelTransitivity(t *testing.T) {
	g, col := newTestGraph(t)
	inner := passThrough(t, g, "Inner", nil)
	mid := passThrough(t, g, "Mid", inner)
	outer := passThrough(t, g, "Outer", mid)

	src := mustNode(t, g, "src", prim(g, "Source"), "")
	o := mustNode(t, g, "o", outer, "")
	dst := mustNode(t, g, "dst", prim(g, "Sink"), "")
	mustConnect(t, g, src, 0, o, 0)
	mustConnect(t, g, o, 0, dst, 0)

	flat, err := g.Flatten(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, flat.Len())
	assert.Equal(t, []string{"src->dst"}, connectionNames(flat))
	assert.Zero(t, col.Count(diag.DanglingTunnel))
}

func TestFlatten_TunnelCrossProduct(t *testing.T) {
	g, _ := newTestGraph(t)
	in, out, err := g.AddTunnelPair("t_in", "t_out", here)
	require.NoError(t, err)

	a := mustNode(t, g, "a", prim(g, "Source"), "")
	b := mustNode(t, g, "b", prim(g, "Source"), "")
	c := mustNode(t, g, "c", prim(g, "Sink"), "")
	d := mustNode(t, g, "d", prim(g, "Sink"), "")
	mustConnect(t, g, a, 0, in, 0)
	mustConnect(t, g, b, 0, in, 0)
	mustConnect(t, g, out, 0, c, 0)
	mustConnect(t, g, out, 0, d, 0)

	flat, err := g.Flatten(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a->c", "a->d", "b->c", "b->d"}, connectionNames(flat))
}

func TestFlatten_DanglingTunnel(t *testing.T) {
	g, col := newTestGraph(t)
	in, _, err := g.AddTunnelPair("t_in", "t_out", here)
	require.NoError(t, err)
	a := mustNode(t, g, "a", prim(g, "Source"), "")
	mustConnect(t, g, a, 0, in, 0)

	flat, err := g.Flatten(context.Background())
	require.Error(t, err)
	assert.Nil(t, flat)
	assert.True(t, diag.HasKind(err, diag.DanglingTunnel))
	require.Equal(t, 1, col.Count(diag.DanglingTunnel))
	assert.Equal(t, diag.Error, col.Diagnostics()[0].Severity)
	assert.Contains(t, col.Diagnostics()[0].Message, "tunnel 't_out' output 0 unused")
}

func TestFlatten_DanglingTunnelSource(t *testing.T) {
	g, col := newTestGraph(t)
	_, out, err := g.AddTunnelPair("t_in", "t_out", here)
	require.NoError(t, err)
	b := mustNode(t, g, "b", prim(g, "Sink"), "")
	mustConnect(t, g, out, 0, b, 0)

	flat, err := g.Flatten(context.Background())
	require.Error(t, err)
	assert.Nil(t, flat)
	require.Equal(t, 1, col.Count(diag.DanglingTunnel))
	assert.Contains(t, col.Diagnostics()[0].Message, "tunnel 't_in' input 0 unused")
}

func TestFlatten_UnwiredTunnelPair(t *testing.T) {
	g, col := newTestGraph(t)
	_, _, err := g.AddTunnelPair("t_in", "t_out", here)
	require.NoError(t, err)
	a := mustNode(t, g, "a", prim(g, "Source"), "")
	b := mustNode(t, g, "b", prim(g, "Sink"), "")
	mustConnect(t, g, a, 0, b, 0)

	flat, err := g.Flatten(context.Background())
	require.Error(t, err)
	assert.Nil(t, flat)
	require.Equal(t, 2, col.Count(diag.DanglingTunnel))
	var msgs []string
	for _, d := range col.Diagnostics() {
		assert.Equal(t, diag.Error, d.Severity)
		msgs = append(msgs, d.Message)
	}
	assert.ElementsMatch(t, []string{
		"tunnel 't_in' input 0 unused",
		"tunnel 't_out' output 0 unused",
	}, msgs)
}

func TestFlatten_UnconnectedCallSite(t *testing.T) {
	g, col := newTestGraph(t)
	wrap := passThrough(t, g, "Wrap", prim(g, "Queue"))
	src := mustNode(t, g, "src", prim(g, "Source"), "")
	w := mustNode(t, g, "w", wrap, "")
	mustConnect(t, g, src, 0, w, 0)

	flat, err := g.Flatten(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"src->w/x"}, connectionNames(flat))
	require.Equal(t, 1, col.Count(diag.DanglingTunnel))
	d := col.Diagnostics()[0]
	assert.Equal(t, diag.Warning, d.Severity)
	assert.Equal(t, "compound element 'w' output 0 unconnected", d.Message)
}

func TestFlatten_ExpansionNameCollision(t *testing.T) {
	g, col := newTestGraph(t)
	wrap := passThrough(t, g, "Wrap", prim(g, "Queue"))
	mustNode(t, g, "w/x", prim(g, "Queue"), "")
	src := mustNode(t, g, "src", prim(g, "Source"), "")
	w := mustNode(t, g, "w", wrap, "")
	dst := mustNode(t, g, "dst", prim(g, "Sink"), "")
	mustConnect(t, g, src, 0, w, 0)
	mustConnect(t, g, w, 0, dst, 0)

	flat, err := g.Flatten(context.Background())
	require.Error(t, err)
	assert.Nil(t, flat)
	assert.True(t, diag.HasKind(err, diag.Redeclaration))
	require.Equal(t, 1, col.Count(diag.Redeclaration))
	assert.Contains(t, col.Diagnostics()[0].Message, "expansion redeclares element 'w/x'")

	if _, ok := g.ElementByName("w/x@2"); ok {
		t.Fatalf("flatten must not mutate the source graph")
	}
}

func TestFlatten_UndefinedVariableWarns(t *testing.T) {
	g, col := newTestGraph(t)
	src := mustNode(t, g, "src", prim(g, "Source"), "")
	q := mustNode(t, g, "q", prim(g, "Queue"), "$depth")
	dst := mustNode(t, g, "dst", prim(g, "Sink"), "")
	mustConnect(t, g, src, 0, q, 0)
	mustConnect(t, g, q, 0, dst, 0)

	flat, err := g.Flatten(context.Background())
	require.NoError(t, err)
	e, ok := flat.ElementByName("q")
	require.True(t, ok)
	assert.Equal(t, "${depth}", e.Config())
	require.Equal(t, 1, col.Count(diag.UnresolvedReference))
	assert.Equal(t, diag.Warning, col.Diagnostics()[0].Severity)
}

func TestFlatten_Circular(t *testing.T) {
	g, _ := newTestGraph(t)
	a := NewCompound("A", g, here)
	b := NewCompound("B", g, here)
	for _, pair := range []struct {
		c     *Compound
		inner Class
	}{{a, b}, {b, a}} {
		body := pair.c.Body()
		x := mustNode(t, body, "x", pair.inner, "")
		mustConnect(t, body, body.Input(), 0, x, 0)
		mustConnect(t, body, x, 0, body.Output(), 0)
	}
	require.NoError(t, g.DeclareLocalClass(b, here))
	require.NoError(t, g.DeclareLocalClass(a, here))

	src := mustNode(t, g, "src", prim(g, "Source"), "")
	n := mustNode(t, g, "n", a, "")
	dst := mustNode(t, g, "dst", prim(g, "Sink"), "")
	mustConnect(t, g, src, 0, n, 0)
	mustConnect(t, g, n, 0, dst, 0)

	flat, err := g.Flatten(context.Background())
	require.Error(t, err)
	assert.Nil(t, flat)
	assert.True(t, diag.HasKind(err, diag.CircularExpansion))

	var msg string
	for _, d := range diag.Diagnostics(err) {
		if d.Kind == diag.CircularExpansion {
			msg = d.Message
		}
	}
	assert.Contains(t, msg, "A -> B -> A")
	assert.Contains(t, msg, "'n/x/x'")
}

func TestFlatten_SelfReference(t *testing.T) {
	g, _ := newTestGraph(t)
	c := NewCompound("Loop", g, here)
	body := c.Body()
	x := mustNode(t, body, "x", body.LookupClass("Loop"), "")
	mustConnect(t, body, body.Input(), 0, x, 0)
	mustConnect(t, body, x, 0, body.Output(), 0)
	require.NoError(t, g.DeclareLocalClass(c, here))

	n := mustNode(t, g, "n", c, "")
	mustConnect(t, g, mustNode(t, g, "src", prim(g, "Source"), ""), 0, n, 0)
	mustConnect(t, g, n, 0, mustNode(t, g, "dst", prim(g, "Sink"), ""), 0)

	_, err := g.Flatten(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Loop -> Loop")
}

func overloaded(t *testing.T, g *Graph) {
	t.Helper()
	one := NewCompound("Foo", g, here)
	one.AddFormal(Formal{Name: "a"})
	b1 := one.Body()
	x := mustNode(t, b1, "one", prim(g, "Queue"), "$a")
	mustConnect(t, b1, b1.Input(), 0, x, 0)
	mustConnect(t, b1, x, 0, b1.Output(), 0)
	require.NoError(t, g.DeclareLocalClass(one, here))

	two := NewCompound("Foo", g, here)
	two.AddFormal(Formal{Name: "a"})
	two.AddFormal(Formal{Name: "b"})
	b2 := two.Body()
	y := mustNode(t, b2, "two", prim(g, "Queue"), "$a $b")
	mustConnect(t, b2, b2.Input(), 0, y, 0)
	mustConnect(t, b2, y, 0, b2.Output(), 0)
	require.NoError(t, g.DeclareLocalClass(two, here))
}

func TestFlatten_OverloadFallback(t *testing.T) {
	g, _ := newTestGraph(t)
	overloaded(t, g)
	foo := g.LookupClass("Foo")

	src := mustNode(t, g, "src", prim(g, "Source"), "")
	f1 := mustNode(t, g, "f1", foo, "10")
	f2 := mustNode(t, g, "f2", foo, "10, 20")
	dst := mustNode(t, g, "dst", prim(g, "Sink"), "")
	mustConnect(t, g, src, 0, f1, 0)
	mustConnect(t, g, f1, 0, f2, 0)
	mustConnect(t, g, f2, 0, dst, 0)

	flat, err := g.Flatten(context.Background())
	require.NoError(t, err)

	e1, ok := flat.ElementByName("f1/one")
	require.True(t, ok, "1-argument call should use the first Foo")
	assert.Equal(t, "10", e1.Config())
	e2, ok := flat.ElementByName("f2/two")
	require.True(t, ok, "2-argument call should use the second Foo")
	assert.Equal(t, "10 20", e2.Config())
}

func TestFlatten_OverloadMismatch(t *testing.T) {
	g, col := newTestGraph(t)
	overloaded(t, g)

	src := mustNode(t, g, "src", prim(g, "Source"), "")
	f := mustNode(t, g, "f", g.LookupClass("Foo"), "1, 2, 3")
	mustConnect(t, g, src, 0, f, 0)

	_, err := g.Flatten(context.Background())
	require.Error(t, err)
	require.Equal(t, 1, col.Count(diag.OverloadMismatch))
	msg := col.Diagnostics()[0].Message
	assert.Contains(t, msg, "'f' :: Foo[3 arguments, 1 input, 0 outputs] does not match")
	assert.Contains(t, msg, "Foo[2 arguments, 1 input, 1 output]")
}

func TestResolve_DefaultsRankBelowExact(t *testing.T) {
	g, _ := newTestGraph(t)
	opt := NewCompound("Rate", g, here)
	opt.AddFormal(Formal{Name: "r", Default: "5", HasDefault: true})
	opt.Finish()
	exact := NewCompound("Rate", g, here)
	exact.prev = opt
	exact.Finish()

	res := Resolve(exact, 0, 0, 0)
	assert.Same(t, exact, res.Class)
	res = Resolve(exact, 0, 0, 1)
	assert.Same(t, opt, res.Class)
	res = Resolve(exact, 1, 0, 0)
	assert.Nil(t, res.Class)
	assert.Len(t, res.Candidates, 2)
}

func TestResolve_Ambiguous(t *testing.T) {
	g, col := newTestGraph(t)
	twin := func() *Compound {
		c := NewCompound("Foo", g, here)
		b := c.Body()
		x := mustNode(t, b, "x", prim(g, "Queue"), "")
		mustConnect(t, b, b.Input(), 0, x, 0)
		mustConnect(t, b, x, 0, b.Output(), 0)
		return c
	}
	first, second := twin(), twin()
	first.Finish()
	second.prev = first
	second.Finish()

	res := Resolve(second, 1, 1, 0)
	assert.Same(t, second, res.Class)
	assert.True(t, res.Ambiguous)
	assert.Len(t, res.Candidates, 2)

	src := mustNode(t, g, "src", prim(g, "Source"), "")
	f := mustNode(t, g, "f", second, "")
	dst := mustNode(t, g, "dst", prim(g, "Sink"), "")
	mustConnect(t, g, src, 0, f, 0)
	mustConnect(t, g, f, 0, dst, 0)

	flat, err := g.Flatten(context.Background())
	require.Error(t, err)
	assert.Nil(t, flat)
	assert.True(t, diag.HasKind(err, diag.OverloadMismatch))
	require.Equal(t, 1, col.Count(diag.OverloadMismatch))
	assert.Equal(t,
		"'f' :: Foo[1 input, 1 output] is ambiguous; candidates: Foo[1 input, 1 output], Foo[1 input, 1 output]",
		col.Diagnostics()[0].Message)
}

func TestFlatten_ParametersAreLexical(t *testing.T) {
	g, col := newTestGraph(t)

	leaf := NewCompound("Leaf", g, here)
	lb := leaf.Body()
	q := mustNode(t, lb, "q", prim(g, "Queue"), "${x}")
	mustConnect(t, lb, lb.Input(), 0, q, 0)
	mustConnect(t, lb, q, 0, lb.Output(), 0)
	require.NoError(t, g.DeclareLocalClass(leaf, here))

	outer := NewCompound("Outer", g, here)
	outer.AddFormal(Formal{Name: "x"})
	outer.AddFormal(Formal{Name: "y", Default: "$x-1", HasDefault: true})
	ob := outer.Body()
	l := mustNode(t, ob, "l", ob.LookupClass("Leaf"), "")
	r := mustNode(t, ob, "r", prim(g, "Queue"), "$x $y")
	mustConnect(t, ob, ob.Input(), 0, l, 0)
	mustConnect(t, ob, l, 0, r, 0)
	mustConnect(t, ob, r, 0, ob.Output(), 0)
	require.NoError(t, g.DeclareLocalClass(outer, here))

	src := mustNode(t, g, "src", prim(g, "Source"), "")
	o := mustNode(t, g, "o", outer, "7")
	dst := mustNode(t, g, "dst", prim(g, "Sink"), "")
	mustConnect(t, g, src, 0, o, 0)
	mustConnect(t, g, o, 0, dst, 0)

	flat, err := g.Flatten(context.Background())
	require.NoError(t, err)

	e, ok := flat.ElementByName("o/r")
	require.True(t, ok)
	assert.Equal(t, "7 7-1", e.Config())

	// Leaf was declared at top level, so Outer's x is not visible to it.
	e, ok = flat.ElementByName("o/l/q")
	require.True(t, ok)
	assert.Equal(t, "${x}", e.Config())
	assert.Equal(t, 1, col.Count(diag.UnresolvedReference))
}

func TestFlatten_TopLevelFormals(t *testing.T) {
	g, _ := newTestGraph(t)
	g.AddFormal(Formal{Name: "dev", Default: "eth0", HasDefault: true})
	mustNode(t, g, "src", prim(g, "FromDevice"), "$dev")

	flat, err := g.Flatten(context.Background())
	require.NoError(t, err)
	e, _ := flat.ElementByName("src")
	assert.Equal(t, "eth0", e.Config())

	g.AddFormal(Formal{Name: "burst"})
	_, err = g.Flatten(context.Background())
	require.Error(t, err)
	assert.True(t, diag.HasKind(err, diag.UnresolvedReference))
}

func TestFlatten_KeepBoundary(t *testing.T) {
	g, _ := newTestGraph(t)
	inner := passThrough(t, g, "Inner", prim(g, "Queue"))
	outer := passThrough(t, g, "Outer", inner)

	flat, err := outer.Body().Flatten(context.Background(), KeepBoundary())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"input->x/x", "x/x->output"}, connectionNames(flat))
	assert.True(t, flat.Input().Valid())
	assert.True(t, flat.Output().Valid())
}

func TestFlatten_Observer(t *testing.T) {
	g, _ := newTestGraph(t)
	wrap := passThrough(t, g, "Wrap", prim(g, "Queue"))
	w := mustNode(t, g, "w", wrap, "")
	mustConnect(t, g, mustNode(t, g, "src", prim(g, "Source"), ""), 0, w, 0)
	mustConnect(t, g, w, 0, mustNode(t, g, "dst", prim(g, "Sink"), ""), 0)

	var kinds []string
	_, err := g.Flatten(context.Background(), WithObserver(func(ev Event) {
		kinds = append(kinds, ev.Kind)
	}))
	require.NoError(t, err)
	assert.Equal(t, "expand", kinds[0])
	assert.Contains(t, kinds, "tunnels")
}

func TestFlatten_Cancelled(t *testing.T) {
	g, _ := newTestGraph(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Flatten(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompact_Remap(t *testing.T) {
	g, _ := newTestGraph(t)
	q := prim(g, "Queue")
	a := mustNode(t, g, "a", q, "")
	b := mustNode(t, g, "b", q, "")
	c := mustNode(t, g, "c", q, "")
	mustConnect(t, g, a, 0, c, 0)
	require.NoError(t, g.KillNode(b))

	remap := g.Compact()
	assert.Equal(t, 2, g.Cap())
	_, stale := g.Element(a)
	assert.ErrorIs(t, stale, ErrStaleID)

	na, nc := remap[a], remap[c]
	assert.Equal(t, 0, na.Index())
	assert.Equal(t, 1, nc.Index())
	_, ok := remap[b]
	assert.False(t, ok)

	conns := g.ConnectionsFrom(Port(na, 0))
	require.Len(t, conns, 1)
	assert.Equal(t, nc, conns[0].To().Node)
}

func TestCheckRequirements(t *testing.T) {
	g, col := newTestGraph(t)
	g.AddRequirement("linuxmodule")
	g.AddRequirement("linuxmodule")
	// Without an element map every requirement passes.
	assert.Zero(t, g.CheckRequirements(nil))
	assert.Empty(t, col.Diagnostics())
}

func TestPrerequisites(t *testing.T) {
	g, _ := newTestGraph(t)
	inner := passThrough(t, g, "Inner", nil)
	mid := passThrough(t, g, "Mid", inner)
	outer := passThrough(t, g, "Outer", mid)
	solo := passThrough(t, g, "Solo", prim(g, "Queue"))

	order, err := g.Prerequisites()
	require.NoError(t, err)
	require.Len(t, order, 4)

	pos := make(map[*Compound]int)
	for i, c := range order {
		pos[c] = i
	}
	assert.Less(t, pos[inner], pos[mid])
	assert.Less(t, pos[mid], pos[outer])
	assert.Contains(t, pos, solo)
}

func TestPrerequisites_Cycle(t *testing.T) {
	g, _ := newTestGraph(t)
	c := NewCompound("Loop", g, here)
	body := c.Body()
	x := mustNode(t, body, "x", body.LookupClass("Loop"), "")
	mustConnect(t, body, body.Input(), 0, x, 0)
	mustConnect(t, body, x, 0, body.Output(), 0)
	require.NoError(t, g.DeclareLocalClass(c, here))

	_, err := g.Prerequisites()
	require.ErrorIs(t, err, ErrCircular)
	assert.True(t, strings.Contains(err.Error(), "Loop"))
}
