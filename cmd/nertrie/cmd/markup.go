package cmd

import (
	"bytes"
	"io"

	"github.com/spf13/cobra"

	"github.com/cognicore/nertrie/pkg/nertrie/htmldoc"
	"github.com/cognicore/nertrie/pkg/nertrie/markup"
)

// renderer is implemented by every document type the command reads.
type renderer interface {
	Render(w io.Writer) error
}

func newMarkupCmd() *cobra.Command {
	var (
		f        recognizerFlags
		document bool
		plain    bool
	)
	cmd := &cobra.Command{
		Use:   "markup [HTMLFILE|-]",
		Short: "Wrap recognized entities in HTML with the match template",
		Long: "Read an HTML fragment (or a whole document with --document) and print it\n" +
			"with every match wrapped in the template element. Matches that cross\n" +
			"element boundaries are balanced as the balancing option says.\n" +
			"With --plain the input is text and HTML special characters are escaped.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rec, err := f.load(cmd.Context())
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			var doc markup.Document
			switch {
			case plain:
				doc = markup.NewPlain(string(data))
			case document:
				doc, err = htmldoc.Parse(bytes.NewReader(data))
			default:
				doc, err = htmldoc.ParseFragment(bytes.NewReader(data))
			}
			if err != nil {
				return err
			}

			out, err := rec.Scan(doc)
			if err != nil {
				return err
			}
			return out.(renderer).Render(cmd.OutOrStdout())
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&document, "document", false, "input is a complete HTML document")
	cmd.Flags().BoolVar(&plain, "plain", false, "input is plain text")
	cmd.MarkFlagsMutuallyExclusive("document", "plain")
	return cmd
}
