package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cognicore/nertrie/pkg/nertrie"
	"github.com/cognicore/nertrie/pkg/nertrie/grammar"
	"github.com/cognicore/nertrie/pkg/nertrie/markup"
	"github.com/cognicore/nertrie/pkg/nertrie/options"
)

const defaultTemplate = `<entity ids="">`

// recognizerFlags are the flags every command that compiles a grammar takes.
type recognizerFlags struct {
	grammar  string
	config   string
	set      []string
	template string
}

func (f *recognizerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.grammar, "grammar", "g", "", "grammar file or http(s) URL; .yaml/.yml use the YAML layout (required)")
	cmd.Flags().StringVar(&f.config, "config", "", "YAML options file")
	cmd.Flags().StringArrayVar(&f.set, "set", nil, "override an option, key=value (repeatable)")
	cmd.Flags().StringVar(&f.template, "template", defaultTemplate, "match template: one element with one empty attribute")
	_ = cmd.MarkFlagRequired("grammar")
}

func (f *recognizerFlags) options() (options.Options, error) {
	o := options.Default()
	if f.config != "" {
		loaded, err := options.Load(f.config)
		if err != nil {
			return o, fmt.Errorf("load options: %w", err)
		}
		o = loaded
	}
	for _, s := range f.set {
		next, err := o.Set(s)
		if err != nil {
			return o, err
		}
		o = next
	}
	return o, nil
}

// load reads the grammar and builds a recognizer from it. The parsed rules
// are returned for callers that store them.
func (f *recognizerFlags) load(ctx context.Context) ([]grammar.Rule, *nertrie.Recognizer, error) {
	o, err := f.options()
	if err != nil {
		return nil, nil, err
	}
	tmpl, err := markup.ParseTemplate(f.template)
	if err != nil {
		return nil, nil, err
	}
	src := grammar.Locate(f.grammar)
	rules, err := grammar.Load(ctx, src)
	if err != nil {
		return nil, nil, err
	}
	rec, err := nertrie.FromRules(src.Name(), rules, tmpl.Element(), o)
	if err != nil {
		return nil, nil, err
	}
	return rules, rec, nil
}

// readInput reads the file named by args[0], or stdin when there is no
// argument or it is "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}
