// Package markup turns accepted matches into elements inserted into a
// document. The document model itself lives behind the Document interface.
package markup

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/cognicore/nertrie/pkg/nertrie/internalerr"
	"github.com/cognicore/nertrie/pkg/nertrie/options"
)

// Attr is an element attribute.
type Attr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Element is a markup element without content.
type Element struct {
	Name  string `json:"name"`
	Attrs []Attr `json:"attrs,omitempty"`
}

// ShallowCopy returns a copy of e that does not share its attribute slice.
func (e Element) ShallowCopy() Element {
	attrs := make([]Attr, len(e.Attrs))
	copy(attrs, e.Attrs)
	return Element{Name: e.Name, Attrs: attrs}
}

// Attr returns the value of the named attribute.
func (e Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// String renders e as an empty start tag, e.g. <entity ids="">.
func (e Element) String() string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(e.Name)
	for _, a := range e.Attrs {
		fmt.Fprintf(&b, " %s=\"%s\"", a.Name, html.EscapeString(a.Value))
	}
	b.WriteByte('>')
	return b.String()
}

// Document is a structured text the scanner reads as one flat content string
// and marks up by character range.
type Document interface {
	// Content returns the text of the document in order.
	Content() string
	// InsertMarkup wraps the rune range [start, end) of Content in el,
	// resolving conflicts with existing structure by b.
	InsertMarkup(el Element, b options.Balancing, start, end int) error
	// Clone returns an independent copy.
	Clone() Document
}

// Template is a match element with exactly one empty attribute, the slot the
// matched entity ids are written to.
type Template struct {
	el   Element
	slot int
}

// NewTemplate checks that el has exactly one attribute with an empty value.
func NewTemplate(el Element) (*Template, error) {
	if el.Name == "" {
		return nil, &internalerr.ConfigurationError{Key: "template", Message: "match element has no name"}
	}
	slot := -1
	for i, a := range el.Attrs {
		if a.Value != "" {
			continue
		}
		if slot >= 0 {
			return nil, internalerr.Configf("template",
				"match element %s has more than one empty attribute (%s, %s)", el.Name, el.Attrs[slot].Name, a.Name)
		}
		slot = i
	}
	if slot < 0 {
		return nil, internalerr.Configf("template", "match element %s needs one empty attribute for the entity ids", el.Name)
	}
	return &Template{el: el.ShallowCopy(), slot: slot}, nil
}

// ParseTemplate reads a template written as markup, such as
// `<entity ids=""/>` or `<a class="ner" data-ids=""></a>`. Names are
// lower-cased by the HTML parser.
func ParseTemplate(s string) (*Template, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(s), context)
	if err != nil {
		return nil, internalerr.Configf("template", "parse %q: %v", s, err)
	}
	var found *html.Node
	for _, n := range nodes {
		switch n.Type {
		case html.ElementNode:
			if found != nil {
				return nil, internalerr.Configf("template", "%q holds more than one element", s)
			}
			found = n
		case html.TextNode:
			if strings.TrimSpace(n.Data) != "" {
				return nil, internalerr.Configf("template", "%q holds text outside the element", s)
			}
		}
	}
	if found == nil {
		return nil, internalerr.Configf("template", "%q holds no element", s)
	}
	el := Element{Name: found.Data}
	for _, a := range found.Attr {
		name := a.Key
		if a.Namespace != "" {
			name = a.Namespace + ":" + a.Key
		}
		el.Attrs = append(el.Attrs, Attr{Name: name, Value: a.Val})
	}
	return NewTemplate(el)
}

// Element returns a copy of the template element with its slot still empty.
func (t *Template) Element() Element { return t.el.ShallowCopy() }

// Slot returns the name of the attribute that receives the ids.
func (t *Template) Slot() string { return t.el.Attrs[t.slot].Name }

// Fill returns a copy of the template with ids joined by sep in the slot.
func (t *Template) Fill(ids []string, sep string) Element {
	el := t.el.ShallowCopy()
	el.Attrs[t.slot].Value = strings.Join(ids, sep)
	return el
}
