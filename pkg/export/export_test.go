package export

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/weft/pkg/diag"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/dsl"
	"github.com/aretw0/weft/pkg/elementmap"
	"github.com/aretw0/weft/pkg/graph"
	"github.com/aretw0/weft/pkg/processing"
)

func compiled(t *testing.T) (*graph.Graph, *processing.Result) {
	t.Helper()
	lib := graph.NewLibrary(elementmap.New(
		domain.Traits{Name: "FromDevice", PortCount: "0/1", Processing: "h/h"},
		domain.Traits{Name: "Queue", PortCount: "1/1", Processing: "h/l"},
		domain.Traits{Name: "ToDevice", PortCount: "1/0", Processing: "l/l"},
	))
	b := dsl.New("router", dsl.WithLibrary(lib))
	b.At("router.click", 1).Add("src", "FromDevice", "eth0").To("q")
	b.Line(2).Add("q", "Queue").To("dst")
	b.Line(3).Add("dst", "ToDevice", "eth1")
	b.Require("linuxmodule")
	g, err := b.Build()
	require.NoError(t, err)
	flat, err := g.Flatten(context.Background())
	require.NoError(t, err)
	res, err := processing.Resolve(context.Background(), flat, diag.Discard)
	require.NoError(t, err)
	return flat, res
}

func TestBuild(t *testing.T) {
	g, res := compiled(t)
	got := Build(g, res, nil)
	want := &Document{
		Name: "router",
		Elements: []Element{
			{Name: "src", Class: "FromDevice", Config: "eth0", Inputs: 0, Outputs: 1, Processing: "/h", Location: "router.click:1"},
			{Name: "q", Class: "Queue", Inputs: 1, Outputs: 1, Processing: "h/l", Location: "router.click:2"},
			{Name: "dst", Class: "ToDevice", Config: "eth1", Inputs: 1, Outputs: 0, Processing: "l/", Location: "router.click:3"},
		},
		Connections: []Connection{
			{From: "src", Out: 0, To: "q", In: 0},
			{From: "q", Out: 0, To: "dst", In: 0},
		},
		Requirements: []string{"linuxmodule"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeDecode(t *testing.T) {
	g, res := compiled(t)
	doc := Build(g, res, []diag.Diagnostic{
		diag.Warnf(diag.UnconnectedPort, domain.At("router.click", 2), "'q' push output 1 not connected"),
	})
	for _, f := range []Format{JSON, YAML} {
		data, err := doc.Encode(f)
		if err != nil {
			t.Fatalf("Encode(%s) failed: %v", f, err)
		}
		back, err := Decode(data, f)
		if err != nil {
			t.Fatalf("Decode(%s) failed: %v", f, err)
		}
		if diff := cmp.Diff(doc, back); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", f, diff)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"json": JSON, "yaml": YAML, "yml": YAML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}
