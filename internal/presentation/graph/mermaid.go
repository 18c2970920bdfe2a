package graph

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/aretw0/weft/pkg/export"
)

// Overlay marks elements to highlight on the chart.
type Overlay struct {
	Errors   []string
	Warnings []string
}

// GenerateMermaid produces a Mermaid flowchart from an exported document.
// It applies semantic styling:
// - Source (no inputs): ((Circle))
// - Sink (no outputs): ([Stadium])
// - Default: [Rectangle]
// Push connections are solid arrows and pull connections dotted. Elements
// that came from the same compound instance share a subgraph.
func GenerateMermaid(doc *export.Document, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	codes := make(map[string]string, len(doc.Elements))
	groups := make(map[string][]export.Element)
	for _, e := range doc.Elements {
		codes[e.Name] = e.Processing
		dir := path.Dir(e.Name)
		groups[dir] = append(groups[dir], e)
	}

	dirs := make([]string, 0, len(groups))
	for d := range groups {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		indent := "    "
		if dir != "." {
			fmt.Fprintf(&sb, "    subgraph %s[\"%s\"]\n", sanitizeMermaidID("sg_"+dir), dir)
			indent = "        "
		}
		for _, e := range groups[dir] {
			opener, closer := "[", "]"
			switch {
			case e.Inputs == 0:
				opener, closer = "((", "))"
			case e.Outputs == 0:
				opener, closer = "([", "])"
			}
			label := e.Name + " :: " + e.Class
			if e.Config != "" {
				label += "(" + strings.ReplaceAll(e.Config, "\"", "'") + ")"
			}
			fmt.Fprintf(&sb, "%s%s%s\"%s\"%s\n", indent, sanitizeMermaidID(e.Name), opener, label, closer)
		}
		if dir != "." {
			sb.WriteString("    end\n")
		}
	}

	for _, c := range doc.Connections {
		arrow := "-->"
		if portLetter(codes[c.From], true, c.Out) == 'l' {
			arrow = "-.->"
		}
		if c.Out != 0 || c.In != 0 {
			if arrow == "-->" {
				arrow = fmt.Sprintf("-- \"%d→%d\" -->", c.Out, c.In)
			} else {
				arrow = fmt.Sprintf("-. \"%d→%d\" .->", c.Out, c.In)
			}
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(c.From), arrow, sanitizeMermaidID(c.To))
	}

	if overlay != nil && (len(overlay.Errors) > 0 || len(overlay.Warnings) > 0) {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text stays readable on both light and dark themes.
		sb.WriteString("    classDef warning fill:#fff8e1,stroke:#f9a825,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef error fill:#ffebee,stroke:#c62828,stroke-width:4px,color:#000;\n")
		writeClass(&sb, overlay.Warnings, "warning")
		writeClass(&sb, overlay.Errors, "error")
	}

	return sb.String()
}

func writeClass(sb *strings.Builder, names []string, class string) {
	seen := make(map[string]bool)
	for _, n := range names {
		id := sanitizeMermaidID(n)
		if id != "" && !seen[id] {
			seen[id] = true
			fmt.Fprintf(sb, "    class %s %s;\n", id, class)
		}
	}
}

// portLetter returns the discipline letter of one port from a resolved
// processing code such as "hh/l", or 0 when the code does not cover it.
func portLetter(code string, output bool, port int) byte {
	in, out, ok := strings.Cut(code, "/")
	if !ok {
		return 0
	}
	side := in
	if output {
		side = out
	}
	if port < 0 || port >= len(side) {
		return 0
	}
	return side[port]
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", "@", "_", " ", "_")
	return r.Replace(id)
}
