package markup

import (
	"fmt"

	"github.com/cognicore/nertrie/pkg/nertrie/options"
	"github.com/cognicore/nertrie/pkg/nertrie/scan"
)

// DefaultSeparator joins the ids written into the template slot.
const DefaultSeparator = "\t"

// Collector is a scan.Sink that inserts a filled template into Doc for every
// match. Unmatched spans are ignored.
type Collector struct {
	Template  *Template
	Balancing options.Balancing
	Separator string
	Doc       Document
}

// NewCollector returns a Collector using DefaultSeparator.
func NewCollector(t *Template, b options.Balancing, doc Document) *Collector {
	return &Collector{Template: t, Balancing: b, Separator: DefaultSeparator, Doc: doc}
}

var _ scan.Sink = (*Collector)(nil)

// Match implements scan.Sink.
func (c *Collector) Match(_ string, s scan.Span) error {
	el := c.Template.Fill(s.IDs, c.Separator)
	if err := c.Doc.InsertMarkup(el, c.Balancing, s.Start, s.End); err != nil {
		return fmt.Errorf("insert %s at [%d,%d): %w", el.Name, s.Start, s.End, err)
	}
	return nil
}

// NoMatch implements scan.Sink.
func (c *Collector) NoMatch(string, scan.Span) error { return nil }
