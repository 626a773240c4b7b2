package htmldoc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/nertrie/pkg/nertrie/grammar"
	"github.com/cognicore/nertrie/pkg/nertrie/markup"
	"github.com/cognicore/nertrie/pkg/nertrie/options"
	"github.com/cognicore/nertrie/pkg/nertrie/scan"
	"github.com/cognicore/nertrie/pkg/nertrie/trie"
)

var entity = markup.Element{Name: "e", Attrs: []markup.Attr{{Name: "ids", Value: "a"}}}

func mustParse(t *testing.T, s string) *Document {
	t.Helper()
	d, err := ParseString(s)
	require.NoError(t, err)
	return d
}

func TestContent(t *testing.T) {
	d := mustParse(t, "<p>Hello <b>Pa</b>ris<!-- note --> <i>today</i></p><p>x</p>")
	assert.Equal(t, "Hello Paris todayx", d.Content())
}

func TestInsertMarkup_SingleTextNode(t *testing.T) {
	for _, b := range []options.Balancing{options.Outer, options.Inner, options.Start, options.End} {
		d := mustParse(t, "<p>in Paris now</p>")
		require.NoError(t, d.InsertMarkup(entity, b, 3, 8))
		assert.Equal(t, `<p>in <e ids="a">Paris</e> now</p>`, d.String(), string(b))
		assert.Equal(t, "in Paris now", d.Content())
	}
}

func TestInsertMarkup_Balancing(t *testing.T) {
	const src = "<p><b>Hello Pa</b>ris today</p>"
	for b, want := range map[options.Balancing]string{
		options.Outer: `<p><e ids="a"><b>Hello Pa</b>ris</e> today</p>`,
		options.Inner: `<p><b>Hello Pa</b><e ids="a">ris</e> today</p>`,
		options.Start: `<p><b>Hello <e ids="a">Pa</e></b>ris today</p>`,
		options.End:   `<p><b>Hello Pa</b><e ids="a">ris</e> today</p>`,
	} {
		d := mustParse(t, src)
		require.NoError(t, d.InsertMarkup(entity, b, 6, 11))
		assert.Equal(t, want, d.String(), string(b))
		assert.Equal(t, "Hello Paris today", d.Content(), string(b))
	}
}

func TestInsertMarkup_InnerKeepsWholeChildren(t *testing.T) {
	d := mustParse(t, "<p>x <i>Pa</i>ris y</p>")
	require.NoError(t, d.InsertMarkup(entity, options.Inner, 2, 7))
	assert.Equal(t, `<p>x <e ids="a"><i>Pa</i>ris</e> y</p>`, d.String())
}

func TestInsertMarkup_InnerFallsBackToStart(t *testing.T) {
	d := mustParse(t, "<p><b>xPa</b><b>risy</b></p>")
	require.NoError(t, d.InsertMarkup(entity, options.Inner, 1, 6))
	assert.Equal(t, `<p><b>x<e ids="a">Pa</e></b><b>risy</b></p>`, d.String())
}

func TestInsertMarkup_Errors(t *testing.T) {
	d := mustParse(t, "<p>abc</p>")
	assert.Error(t, d.InsertMarkup(entity, options.Outer, 2, 2))
	assert.Error(t, d.InsertMarkup(entity, options.Outer, -1, 2))
	assert.Error(t, d.InsertMarkup(entity, options.Outer, 1, 4))
	assert.Error(t, d.InsertMarkup(entity, options.Balancing("DIAGONAL"), 0, 3))
	assert.Equal(t, "<p>abc</p>", d.String())
}

func TestClone(t *testing.T) {
	d := mustParse(t, "<p>Paris</p>")
	c := d.Clone().(*Document)
	require.NoError(t, c.InsertMarkup(entity, options.Outer, 0, 5))
	assert.Equal(t, "<p>Paris</p>", d.String())
	assert.Equal(t, `<p><e ids="a">Paris</e></p>`, c.String())
}

func TestParseDocument(t *testing.T) {
	d, err := Parse(strings.NewReader("<html><head><title>T</title></head><body><p>Paris</p></body></html>"))
	require.NoError(t, err)
	assert.Equal(t, "TParis", d.Content())
	require.NoError(t, d.InsertMarkup(entity, options.Outer, 1, 6))
	assert.Contains(t, d.String(), `<body><p><e ids="a">Paris</e></p></body>`)
}

func TestMarkupFromScan(t *testing.T) {
	dict := trie.New("", "")
	_, err := grammar.Compile(strings.NewReader("paris<-Paris City\nfr<-France"), dict)
	require.NoError(t, err)
	dict.Freeze()
	s := scan.New(dict, options.Default())

	tmpl, err := markup.ParseTemplate(`<entity ids=""/>`)
	require.NoError(t, err)

	d := mustParse(t, "<p>Welcome to <b>Paris</b> City!</p><p>France &amp; more</p>")
	require.NoError(t, s.Scan(d.Content(), markup.NewCollector(tmpl, options.Outer, d)))
	assert.Equal(t,
		`<p>Welcome to <entity ids="paris"><b>Paris</b> City</entity>!</p><p><entity ids="fr">France</entity> &amp; more</p>`,
		d.String())
}
