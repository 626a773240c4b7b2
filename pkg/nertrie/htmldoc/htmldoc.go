// Package htmldoc is a markup.Document over an HTML tree. Its content is the
// text of all text nodes in document order; inserting markup wraps a rune
// range of that content in a new element.
//
// When a range starts and ends in different text nodes the wrapped nodes are
// chosen by the balancing strategy:
//
//	OUTER  the children of the lowest common ancestor that hold the range
//	INNER  only those children that lie completely inside the range
//	START  only the part of the range inside its first text node
//	END    only the part of the range inside its last text node
//
// INNER falls back to START when no child lies completely inside the range.
package htmldoc

import (
	"fmt"
	"io"
	"iter"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/cognicore/nertrie/pkg/nertrie/markup"
	"github.com/cognicore/nertrie/pkg/nertrie/options"
)

// Document is an HTML tree. It is not safe for concurrent use.
type Document struct {
	root *html.Node
	// fragment documents render only the children of root.
	fragment bool
}

var _ markup.Document = (*Document)(nil)

// Parse reads a complete HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseFragment reads HTML that belongs inside a body element, such as a
// paragraph or a list of them.
func ParseFragment(r io.Reader) (*Document, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(r, body)
	if err != nil {
		return nil, fmt.Errorf("parse html fragment: %w", err)
	}
	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &Document{root: root, fragment: true}, nil
}

// ParseString is ParseFragment over a string.
func ParseString(s string) (*Document, error) {
	return ParseFragment(strings.NewReader(s))
}

// Content implements markup.Document.
func (d *Document) Content() string {
	var b strings.Builder
	for n := range textNodes(d.root) {
		b.WriteString(n.Data)
	}
	return b.String()
}

// Clone implements markup.Document.
func (d *Document) Clone() markup.Document {
	return &Document{root: cloneNode(d.root), fragment: d.fragment}
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	if !d.fragment {
		return html.Render(w, d.root)
	}
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(w, c); err != nil {
			return err
		}
	}
	return nil
}

// String renders the document, ignoring errors.
func (d *Document) String() string {
	var b strings.Builder
	_ = d.Render(&b)
	return b.String()
}

// InsertMarkup implements markup.Document.
func (d *Document) InsertMarkup(el markup.Element, b options.Balancing, start, end int) error {
	if start < 0 || start >= end {
		return fmt.Errorf("invalid range [%d,%d)", start, end)
	}
	balancing, err := options.ParseBalancing(string(b))
	if err != nil {
		return err
	}
	first, firstOffset := d.locate(start, false)
	last, lastOffset := d.locate(end, true)
	if first == nil || last == nil {
		return fmt.Errorf("range [%d,%d) outside content", start, end)
	}

	if first == last {
		if k := end - lastOffset; k < runeLen(last) {
			splitText(last, k)
		}
		mid := splitText(first, start-firstOffset)
		wrap(el, mid, mid)
		return nil
	}

	if k := end - lastOffset; k < runeLen(last) {
		splitText(last, k)
	}
	first = splitText(first, start-firstOffset)

	ancestor := commonAncestor(first, last)
	from, to := childOn(ancestor, first), childOn(ancestor, last)

	switch balancing {
	case options.Outer:
		wrap(el, from, to)
	case options.Inner:
		if firstText(from) != first {
			from = from.NextSibling
		}
		if lastText(to) != last {
			to = to.PrevSibling
		}
		if from == nil || to == nil || !ordered(from, to) {
			wrap(el, first, first)
			return nil
		}
		wrap(el, from, to)
	case options.Start:
		wrap(el, first, first)
	case options.End:
		wrap(el, last, last)
	}
	return nil
}

// locate finds the text node holding rune offset i. With atEnd the offset
// is an exclusive end, so a node ending exactly at i is chosen over one
// starting there. It returns the node and the offset where its text begins.
func (d *Document) locate(i int, atEnd bool) (*html.Node, int) {
	offset := 0
	for n := range textNodes(d.root) {
		l := runeLen(n)
		if l == 0 {
			continue
		}
		if atEnd && i > offset && i <= offset+l {
			return n, offset
		}
		if !atEnd && i >= offset && i < offset+l {
			return n, offset
		}
		offset += l
	}
	return nil, 0
}

func runeLen(n *html.Node) int { return utf8.RuneCountInString(n.Data) }

// textNodes yields the text nodes under n in document order.
func textNodes(n *html.Node) iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		var walk func(*html.Node) bool
		walk = func(n *html.Node) bool {
			if n.Type == html.TextNode {
				return yield(n)
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if !walk(c) {
					return false
				}
			}
			return true
		}
		walk(n)
	}
}

// splitText cuts text node n before rune k and returns the node that starts
// at k. k == 0 returns n unchanged.
func splitText(n *html.Node, k int) *html.Node {
	if k <= 0 {
		return n
	}
	runes := []rune(n.Data)
	right := &html.Node{Type: html.TextNode, Data: string(runes[k:])}
	n.Data = string(runes[:k])
	n.Parent.InsertBefore(right, n.NextSibling)
	return right
}

// wrap moves the siblings from..to into a new element built from el.
func wrap(el markup.Element, from, to *html.Node) {
	parent := from.Parent
	w := &html.Node{
		Type:     html.ElementNode,
		Data:     el.Name,
		DataAtom: atom.Lookup([]byte(el.Name)),
	}
	for _, a := range el.Attrs {
		w.Attr = append(w.Attr, html.Attribute{Key: a.Name, Val: a.Value})
	}
	parent.InsertBefore(w, from)
	for c := from; c != nil; {
		next := c.NextSibling
		parent.RemoveChild(c)
		w.AppendChild(c)
		if c == to {
			break
		}
		c = next
	}
}

func commonAncestor(a, b *html.Node) *html.Node {
	seen := make(map[*html.Node]bool)
	for n := a.Parent; n != nil; n = n.Parent {
		seen[n] = true
	}
	for n := b.Parent; n != nil; n = n.Parent {
		if seen[n] {
			return n
		}
	}
	return nil
}

// childOn returns the child of ancestor that is n or contains n.
func childOn(ancestor, n *html.Node) *html.Node {
	for n.Parent != ancestor {
		n = n.Parent
	}
	return n
}

func firstText(n *html.Node) *html.Node {
	for t := range textNodes(n) {
		if t.Data != "" {
			return t
		}
	}
	return nil
}

func lastText(n *html.Node) *html.Node {
	var last *html.Node
	for t := range textNodes(n) {
		if t.Data != "" {
			last = t
		}
	}
	return last
}

// ordered reports whether sibling a comes before or is sibling b.
func ordered(a, b *html.Node) bool {
	for n := a; n != nil; n = n.NextSibling {
		if n == b {
			return true
		}
	}
	return false
}

func cloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(cloneNode(ch))
	}
	return c
}
