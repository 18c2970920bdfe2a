package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/weft/internal/presentation/tui"
)

var classesCmd = &cobra.Command{
	Use:   "classes [name]",
	Short: "List the element classes of the element map",
	Long: `Without arguments, lists every primitive class of the element map.
With a class name, prints its traits as JSON. With --script, lists the
compound classes a configuration declares, each after the classes it uses,
with the processing and flow codes derived from its body.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		if path, _ := cmd.Flags().GetString("script"); path != "" {
			return runPrerequisites(cmd, e, path)
		}
		if len(args) == 1 {
			return runDescribe(cmd, e, args[0])
		}
		return printerFor(cmd.OutOrStdout()).Markdown(tui.ClassTable(e.compiler.Classes()))
	},
}

func init() {
	rootCmd.AddCommand(classesCmd)
	classesCmd.Flags().String("script", "", "List the compound classes of this script in dependency order")
}

func runDescribe(cmd *cobra.Command, e *env, name string) error {
	t, ok := e.compiler.Class(name)
	if !ok {
		return fmt.Errorf("unknown element class '%s'", name)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

func runPrerequisites(cmd *cobra.Command, e *env, path string) error {
	s, err := decodeScript(cmd, []string{path})
	if err != nil {
		return err
	}
	b := e.compiler.NewBuilder(s.Name)
	if err := s.Apply(b); err != nil {
		return err
	}
	g, err := b.Build()
	if err != nil {
		return err
	}
	order, err := g.Prerequisites()
	if err != nil {
		return err
	}
	for _, c := range order {
		t, err := e.compiler.Summarize(cmd.Context(), c)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", c.Signature(), t.Processing, t.FlowCode)
	}
	return nil
}
