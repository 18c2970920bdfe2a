package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/weft/internal/presentation/tui"
	"github.com/aretw0/weft/pkg/export"
)

var flattenCmd = &cobra.Command{
	Use:   "flatten [script]",
	Short: "Compile a configuration into a flat element graph",
	Long: `Expands every compound element, resolves processing and writes the flat
configuration as JSON or YAML. Reads the script from stdin when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatName, _ := cmd.Flags().GetString("format")
		format, err := export.ParseFormat(formatName)
		if err != nil {
			return err
		}
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		source, err := readSource(cmd, args)
		if err != nil {
			return err
		}
		return runFlatten(cmd, e, source, format)
	},
}

func init() {
	rootCmd.AddCommand(flattenCmd)
	flattenCmd.Flags().StringP("format", "f", "json", "Output format: json or yaml")
}

func runFlatten(cmd *cobra.Command, e *env, source []byte, format export.Format) error {
	doc, err := e.compiler.CompileSource(cmd.Context(), source)
	if doc == nil {
		return err
	}
	printer := printerFor(cmd.ErrOrStderr())
	for _, d := range doc.Diagnostics {
		printer.Report(d)
	}
	if err != nil {
		return fmt.Errorf("%s: compilation failed", doc.Name)
	}

	out, encErr := doc.Encode(format)
	if encErr != nil {
		return encErr
	}
	_, werr := cmd.OutOrStdout().Write(out)
	return werr
}

// printerFor colors output only when w is a terminal.
func printerFor(w io.Writer) *tui.Printer {
	if f, ok := w.(*os.File); ok {
		return tui.NewPrinter(f)
	}
	return tui.NewPlainPrinter(w)
}
