package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	var f recognizerFlags
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compile a grammar and report its size",
		Long: "Compile the grammar with the given options. Syntax errors are reported\n" +
			"with their line. With case-insensitive matching on, key pairs that can\n" +
			"make a scan fail are listed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, rec, err := f.load(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d rules, %d keys\n", rec.Source(), rec.Rules(), rec.Dictionary().Len())
			if rec.Options().CaseInsensitive() {
				for _, c := range rec.Dictionary().CaseConflicts() {
					fmt.Fprintf(out, "case conflict: %q and %q\n", c.Short, c.Long)
				}
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
