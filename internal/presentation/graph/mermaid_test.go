package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/weft/internal/presentation/graph"
	"github.com/aretw0/weft/pkg/export"
)

func TestGenerateMermaid(t *testing.T) {
	doc := &export.Document{
		Name: "router",
		Elements: []export.Element{
			{Name: "src", Class: "FromDevice", Config: "eth0", Inputs: 0, Outputs: 1, Processing: "/h"},
			{Name: "s/q", Class: "Queue", Inputs: 1, Outputs: 1, Processing: "h/l"},
			{Name: "sw", Class: "PullSwitch", Inputs: 1, Outputs: 2, Processing: "l/ll"},
			{Name: "Discard@3", Class: "Discard", Inputs: 1, Outputs: 0, Processing: "l/"},
		},
		Connections: []export.Connection{
			{From: "src", Out: 0, To: "s/q", In: 0},
			{From: "s/q", Out: 0, To: "sw", In: 0},
			{From: "sw", Out: 1, To: "Discard@3", In: 0},
		},
	}

	tests := []struct {
		name     string
		overlay  *graph.Overlay
		contains []string
		excludes []string
	}{
		{
			name: "Shapes And Disciplines",
			contains: []string{
				"graph LR",
				`src(("src :: FromDevice(eth0)"))`,
				`Discard_3(["Discard@3 :: Discard"])`,
				`subgraph sg_s["s"]`,
				`s_q["s/q :: Queue"]`,
				"src --> s_q",
				"s_q -.-> sw",
				`sw -. "1→0" .-> Discard_3`,
			},
			excludes: []string{"classDef"},
		},
		{
			name:    "Overlay",
			overlay: &graph.Overlay{Errors: []string{"sw", "sw"}, Warnings: []string{"s/q"}},
			contains: []string{
				"classDef error",
				"class sw error;",
				"class s_q warning;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(doc, tt.overlay)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("expected output to contain %q\nGot:\n%s", s, got)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("expected output not to contain %q", s)
				}
			}
			if n := strings.Count(got, "class sw error;"); tt.overlay != nil && n != 1 {
				t.Errorf("expected one class line for sw, got %d", n)
			}
		})
	}
}
