package grammar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/nertrie/pkg/nertrie/internalerr"
	"github.com/cognicore/nertrie/pkg/nertrie/normalize"
	"github.com/cognicore/nertrie/pkg/nertrie/trie"
)

func TestParseLine(t *testing.T) {
	rule, err := ParseLine(3, "paris  <-\tParis City\tParis")
	require.NoError(t, err)
	assert.Equal(t, Rule{ID: "paris", Forms: []string{"Paris City", "Paris"}, Line: 3}, rule)
}

func TestParseLine_NoSpacesAroundArrow(t *testing.T) {
	rule, err := ParseLine(1, "cf<-CF")
	require.NoError(t, err)
	assert.Equal(t, "cf", rule.ID)
	assert.Equal(t, []string{"CF"}, rule.Forms)
}

func TestParseLine_OnlyFirstArrowSplits(t *testing.T) {
	rule, err := ParseLine(1, "arrow <- a <- b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a <- b"}, rule.Forms)
}

func TestParseLine_SkipsEmptyForms(t *testing.T) {
	rule, err := ParseLine(1, "x <- a\t\tb\t")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, rule.Forms)
}

func TestParseLine_Errors(t *testing.T) {
	for _, line := range []string{"badline", "id <- ", "id<-", "<- form"} {
		_, err := ParseLine(7, line)
		require.Error(t, err, line)

		var gse *internalerr.GrammarSyntaxError
		require.True(t, errors.As(err, &gse), line)
		assert.Equal(t, 7, gse.Line)
		assert.Equal(t, line, gse.Text)
		assert.True(t, errors.Is(err, internalerr.ErrGrammarSyntax))
	}
}

func TestParse_SkipsBlankLines(t *testing.T) {
	src := "\n  \ncf<-CF\r\n\t\nrsvp<-RSVP\n"
	rules, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, 3, rules[0].Line)
	assert.Equal(t, "rsvp", rules[1].ID)
	assert.Equal(t, []string{"RSVP"}, rules[1].Forms)
}

func TestParse_ByteOrderMark(t *testing.T) {
	rules, err := Parse(strings.NewReader("\uFEFFcf<-CF"))
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "cf", rules[0].ID)
}

func TestCompile_MalformedLineCitesLineOne(t *testing.T) {
	d := trie.New("", "")
	_, err := Compile(strings.NewReader("badline"), d)
	var gse *internalerr.GrammarSyntaxError
	require.True(t, errors.As(err, &gse))
	assert.Equal(t, 1, gse.Line)
	assert.Contains(t, err.Error(), "line 1")
}

func TestCompile_HaltsAtFirstError(t *testing.T) {
	d := trie.New("", "")
	n, err := Compile(strings.NewReader("a<-A\nbad\nc<-C"), d)
	require.Error(t, err)
	assert.Equal(t, 1, n)
}

func TestCompile_PopulatesDictionary(t *testing.T) {
	d := trie.New("", "")
	n, err := Compile(strings.NewReader("city<-Paris\ncapital<-Paris\tParis City"), d)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, d.Len())

	got, err := d.Scan(normalize.Text("Paris"), 0, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"city", "capital"}, got[0].IDs)
}

func TestCompileSource_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.txt")
	require.NoError(t, os.WriteFile(path, []byte("cf<-CF\nrsvp<-RSVP\n"), 0o644))

	d := trie.New("", "")
	n, err := CompileSource(context.Background(), File(path), d)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCompileSource_MissingFile(t *testing.T) {
	d := trie.New("", "")
	_, err := CompileSource(context.Background(), File("/nonexistent/grammar.txt"), d)
	require.Error(t, err)
	assert.True(t, errors.Is(err, internalerr.ErrIO))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCompileSource_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/grammar.txt" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("paris <- Paris City\n"))
	}))
	defer srv.Close()

	d := trie.New("", "")
	n, err := CompileSource(context.Background(), Locate(srv.URL+"/grammar.txt"), d)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = CompileSource(context.Background(), URL(srv.URL+"/missing", srv.Client()), trie.New("", ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, internalerr.ErrIO))
}

func TestCompileSource_Text(t *testing.T) {
	d := trie.New("", "")
	n, err := CompileSource(context.Background(), Text(""), d)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, d.Len())
}

func TestCompileSource_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.yaml")
	content := `entities:
  - id: paris
    forms: [Paris City, Paris]
  - id: capital
    forms:
      - Paris
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	d := trie.New("", "")
	n, err := CompileSource(context.Background(), File(path), d)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := d.Scan(normalize.Text("Paris"), 0, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"paris", "capital"}, got[0].IDs)
}

func TestParseYAML_Errors(t *testing.T) {
	_, err := ParseYAML(strings.NewReader("entities:\n  - forms: [x]\n"))
	var gse *internalerr.GrammarSyntaxError
	require.True(t, errors.As(err, &gse))
	assert.Equal(t, 2, gse.Line)

	_, err = ParseYAML(strings.NewReader("entities:\n  - id: x\n    forms: []\n"))
	require.True(t, errors.As(err, &gse))

	_, err = ParseYAML(strings.NewReader("entities: [unclosed"))
	assert.True(t, errors.Is(err, internalerr.ErrGrammarSyntax))
}

func TestParseYAML_Empty(t *testing.T) {
	rules, err := ParseYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestIsYAML(t *testing.T) {
	assert.True(t, IsYAML("x.yaml"))
	assert.True(t, IsYAML("X.YML"))
	assert.True(t, IsYAML("https://example.com/g.yaml?v=2"))
	assert.False(t, IsYAML("grammar.txt"))
	assert.False(t, IsYAML("grammar text"))
}

func TestFromRules(t *testing.T) {
	d := trie.New("", "")
	n := FromRules([]Rule{{ID: "a", Forms: []string{"A", "Aa"}}, {ID: "b", Forms: []string{"A"}}}, d)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, d.Len())
}

func TestLoad(t *testing.T) {
	rules, err := Load(context.Background(), Text("paris <- Paris\tParis City\n\nny<-New York"))
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, Rule{ID: "paris", Forms: []string{"Paris", "Paris City"}, Line: 1}, rules[0])
	assert.Equal(t, 3, rules[1].Line)

	_, err = Load(context.Background(), Text("ok<-A\nbroken"))
	var gse *internalerr.GrammarSyntaxError
	require.True(t, errors.As(err, &gse))
	assert.Equal(t, 2, gse.Line)
}
