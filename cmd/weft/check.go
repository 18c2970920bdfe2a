package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// errCheckFailed is returned once the diagnostics have been printed.
var errCheckFailed = errors.New("configuration has errors")

var checkCmd = &cobra.Command{
	Use:   "check [script]",
	Short: "Check a configuration for errors",
	Long: `Compiles a configuration and reports every diagnostic: unknown classes,
overload mismatches, port counts, unsatisfied requirements and push/pull conflicts.`,
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
		report, _ := cmd.Flags().GetBool("report")
		return runCheck(cmd, e, source, report)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Bool("report", false, "Print a summary of the flattened configuration")
}

func runCheck(cmd *cobra.Command, e *env, source []byte, report bool) error {
	doc, err := e.compiler.CompileSource(cmd.Context(), source)
	if doc == nil {
		return err
	}
	printer := printerFor(cmd.OutOrStdout())
	if report {
		if perr := printer.Document(doc); perr != nil {
			return perr
		}
	} else {
		for _, d := range doc.Diagnostics {
			printer.Report(d)
		}
	}
	if err != nil {
		return errCheckFailed
	}
	if !report {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d elements, configuration is valid\n", doc.Name, len(doc.Elements))
	}
	return nil
}
