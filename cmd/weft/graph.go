package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/weft/internal/presentation/graph"
	"github.com/aretw0/weft/pkg/diag"
	"github.com/aretw0/weft/pkg/export"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [script]",
	Short: "Export the flattened configuration as a Mermaid chart",
	Long: `Compiles the configuration and outputs a Mermaid diagram (graph LR).
Elements with diagnostics are highlighted; the chart is written even when
the configuration has errors.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		source, err := readSource(cmd, args)
		if err != nil {
			return err
		}
		return runGraph(cmd, e, source)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, e *env, source []byte) error {
	doc, err := e.compiler.CompileSource(cmd.Context(), source)
	if doc == nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(doc, overlayFor(doc)))
	return nil
}

// overlayFor marks the elements declared where a diagnostic was reported.
func overlayFor(doc *export.Document) *graph.Overlay {
	if len(doc.Diagnostics) == 0 {
		return nil
	}
	bySeverity := make(map[string]diag.Severity)
	for _, d := range doc.Diagnostics {
		if d.Location.IsZero() {
			continue
		}
		loc := d.Location.String()
		if prev, ok := bySeverity[loc]; !ok || d.Severity > prev {
			bySeverity[loc] = d.Severity
		}
	}
	overlay := &graph.Overlay{}
	for _, el := range doc.Elements {
		sev, ok := bySeverity[el.Location]
		switch {
		case !ok:
		case sev == diag.Error:
			overlay.Errors = append(overlay.Errors, el.Name)
		default:
			overlay.Warnings = append(overlay.Warnings, el.Name)
		}
	}
	return overlay
}
