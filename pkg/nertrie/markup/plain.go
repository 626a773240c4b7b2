package markup

import (
	"fmt"
	"io"
	"sort"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/cognicore/nertrie/pkg/nertrie/options"
)

// Insertion is an element placed over a rune range of a Plain document.
type Insertion struct {
	Element   Element           `json:"element"`
	Balancing options.Balancing `json:"balancing"`
	Start     int               `json:"start"`
	End       int               `json:"end"`
}

// Plain is a Document over unstructured text. It has no element boundaries,
// so the balancing strategy is recorded but never changes a range.
// Insertions may nest but may not cross each other.
type Plain struct {
	text       string
	length     int
	insertions []Insertion
}

// NewPlain returns a Plain document over text.
func NewPlain(text string) *Plain {
	return &Plain{text: text, length: utf8.RuneCountInString(text)}
}

// Content implements Document.
func (p *Plain) Content() string { return p.text }

// InsertMarkup implements Document.
func (p *Plain) InsertMarkup(el Element, b options.Balancing, start, end int) error {
	if start < 0 || end > p.length || start >= end {
		return fmt.Errorf("range [%d,%d) outside text of length %d", start, end, p.length)
	}
	for _, in := range p.insertions {
		crosses := (start < in.Start && end > in.Start && end < in.End) ||
			(start > in.Start && start < in.End && end > in.End)
		if crosses {
			return fmt.Errorf("range [%d,%d) crosses %s at [%d,%d)", start, end, in.Element.Name, in.Start, in.End)
		}
	}
	p.insertions = append(p.insertions, Insertion{Element: el.ShallowCopy(), Balancing: b, Start: start, End: end})
	return nil
}

// Insertions returns the insertions ordered by start, outer before inner.
func (p *Plain) Insertions() []Insertion {
	out := make([]Insertion, len(p.insertions))
	copy(out, p.insertions)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End > out[j].End
	})
	return out
}

// Clone implements Document.
func (p *Plain) Clone() Document {
	c := &Plain{text: p.text, length: p.length, insertions: make([]Insertion, len(p.insertions))}
	for i, in := range p.insertions {
		in.Element = in.Element.ShallowCopy()
		c.insertions[i] = in
	}
	return c
}

// Render writes the text with every insertion as an HTML-escaped element.
func (p *Plain) Render(w io.Writer) error {
	runes := []rune(p.text)
	var open []Insertion
	pos := 0
	write := func(s string) error {
		_, err := io.WriteString(w, s)
		return err
	}
	closeUntil := func(at int) error {
		for len(open) > 0 && open[len(open)-1].End <= at {
			top := open[len(open)-1]
			if err := write(html.EscapeString(string(runes[pos:top.End]))); err != nil {
				return err
			}
			pos = top.End
			if err := write("</" + top.Element.Name + ">"); err != nil {
				return err
			}
			open = open[:len(open)-1]
		}
		return nil
	}
	for _, in := range p.Insertions() {
		if err := closeUntil(in.Start); err != nil {
			return err
		}
		if err := write(html.EscapeString(string(runes[pos:in.Start]))); err != nil {
			return err
		}
		pos = in.Start
		if err := write(in.Element.String()); err != nil {
			return err
		}
		open = append(open, in)
	}
	if err := closeUntil(len(runes)); err != nil {
		return err
	}
	return write(html.EscapeString(string(runes[pos:])))
}
