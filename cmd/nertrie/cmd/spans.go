package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/cognicore/nertrie/internal/corpus"
	"github.com/cognicore/nertrie/pkg/nertrie/scan"
)

func newSpansCmd() *cobra.Command {
	var (
		f         recognizerFlags
		unmatched bool
	)
	cmd := &cobra.Command{
		Use:   "spans [TEXTFILE|-]",
		Short: "Print the entities found in plain text as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rec, err := f.load(cmd.Context())
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			text := string(data)

			var spans []scan.Span
			if unmatched {
				for sp, err := range rec.Spans(text) {
					if err != nil {
						return err
					}
					spans = append(spans, sp)
				}
			} else if spans, err = rec.Matches(text); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(corpus.Entities(text, spans))
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&unmatched, "unmatched", false, "also print the text between matches")
	return cmd
}
