package grammar

import (
	"errors"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/nertrie/pkg/nertrie/internalerr"
)

// ParseYAML reads rules kept as a YAML list:
//
//	entities:
//	  - id: paris
//	    forms: [Paris City, Paris]
//	  - id: rsvp
//	    forms: [RSVP]
//
// Entries keep their order, so merged ids keep the order of the file. The
// Line of each rule is the YAML line of its entry.
func ParseYAML(r io.Reader) ([]Rule, error) {
	var doc struct {
		Entities []yaml.Node `yaml:"entities"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, &internalerr.GrammarSyntaxError{Reason: err.Error()}
	}

	rules := make([]Rule, 0, len(doc.Entities))
	for i := range doc.Entities {
		node := &doc.Entities[i]
		var entry struct {
			ID    string   `yaml:"id"`
			Forms []string `yaml:"forms"`
		}
		if err := node.Decode(&entry); err != nil {
			return nil, &internalerr.GrammarSyntaxError{Line: node.Line, Reason: err.Error()}
		}
		if entry.ID == "" {
			return nil, &internalerr.GrammarSyntaxError{Line: node.Line, Reason: "entity without id"}
		}
		var forms []string
		for _, f := range entry.Forms {
			if f != "" {
				forms = append(forms, f)
			}
		}
		if len(forms) == 0 {
			return nil, &internalerr.GrammarSyntaxError{
				Line:   node.Line,
				Text:   entry.ID,
				Reason: "entity without forms",
			}
		}
		rules = append(rules, Rule{ID: entry.ID, Forms: forms, Line: node.Line})
	}
	return rules, nil
}
