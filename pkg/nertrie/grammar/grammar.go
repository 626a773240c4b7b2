// Package grammar parses entity definitions and loads them into a trie.
//
// A grammar has one rule per line:
//
//	identifier <- surface form<TAB>other surface form
//
// Whitespace around "<-" is ignored. Blank lines are skipped. There is no
// escaping: identifiers and forms cannot contain "<-" or a tab character.
// Parsing stops at the first bad line.
package grammar

import (
	"bufio"
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/cognicore/nertrie/pkg/nertrie/internalerr"
	"github.com/cognicore/nertrie/pkg/nertrie/trie"
)

var ruleSeparator = regexp.MustCompile(`\s*<-\s*`)

// maxLineBytes bounds a single grammar line.
const maxLineBytes = 16 << 20

// Rule binds one entity id to its surface forms.
type Rule struct {
	ID    string
	Forms []string
	// Line is the 1-based line (or YAML entry) the rule came from; 0 when
	// the rule did not come from a grammar text.
	Line int
}

// ParseLine parses a single non-blank grammar line.
func ParseLine(lineNumber int, line string) (Rule, error) {
	parts := ruleSeparator.Split(line, 2)
	if len(parts) != 2 {
		return Rule{}, &internalerr.GrammarSyntaxError{
			Line:   lineNumber,
			Text:   line,
			Reason: "every line must contain two parts separated by '<-'",
		}
	}
	if parts[0] == "" {
		return Rule{}, &internalerr.GrammarSyntaxError{
			Line:   lineNumber,
			Text:   line,
			Reason: "the identifier of a rule must not be empty",
		}
	}
	if parts[1] == "" {
		return Rule{}, &internalerr.GrammarSyntaxError{
			Line:   lineNumber,
			Text:   line,
			Reason: "the second part of a rule must not be empty",
		}
	}
	var forms []string
	for _, form := range strings.Split(parts[1], "\t") {
		if form != "" {
			forms = append(forms, form)
		}
	}
	return Rule{ID: parts[0], Forms: forms, Line: lineNumber}, nil
}

// Parse reads every rule from r.
func Parse(r io.Reader) ([]Rule, error) {
	var rules []Rule
	err := parse(r, "grammar", func(rule Rule) {
		rules = append(rules, rule)
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func parse(r io.Reader, name string, emit func(Rule)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNumber := 0
	for sc.Scan() {
		lineNumber++
		line := sc.Text()
		if lineNumber == 1 {
			line = strings.TrimPrefix(line, "\uFEFF")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		rule, err := ParseLine(lineNumber, line)
		if err != nil {
			return err
		}
		emit(rule)
	}
	if err := sc.Err(); err != nil {
		return &internalerr.IOError{Source: name, Err: err}
	}
	return nil
}

// Compile parses r and puts every surface form into d. It returns the number
// of rules read. On error d may hold the rules before the bad line and
// must be discarded.
func Compile(r io.Reader, d *trie.Dictionary) (int, error) {
	return compile(r, "grammar", d)
}

func compile(r io.Reader, name string, d *trie.Dictionary) (int, error) {
	n := 0
	err := parse(r, name, func(rule Rule) {
		put(d, rule)
		n++
	})
	return n, err
}

// FromRules puts already parsed rules into d.
func FromRules(rules []Rule, d *trie.Dictionary) int {
	for _, rule := range rules {
		put(d, rule)
	}
	return len(rules)
}

func put(d *trie.Dictionary, rule Rule) {
	for _, form := range rule.Forms {
		d.Put(form, rule.ID)
	}
}

// CompileSource opens src and compiles it into d. YAML sources (by name
// suffix) use the YAML layout described at ParseYAML.
func CompileSource(ctx context.Context, src Source, d *trie.Dictionary) (int, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return 0, &internalerr.IOError{Source: src.Name(), Err: err}
	}
	defer rc.Close()

	if IsYAML(src.Name()) {
		rules, err := ParseYAML(rc)
		if err != nil {
			return 0, err
		}
		return FromRules(rules, d), nil
	}
	return compile(rc, src.Name(), d)
}

// Load opens src and returns its rules without compiling them.
func Load(ctx context.Context, src Source) ([]Rule, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, &internalerr.IOError{Source: src.Name(), Err: err}
	}
	defer rc.Close()

	if IsYAML(src.Name()) {
		return ParseYAML(rc)
	}
	var rules []Rule
	err = parse(rc, src.Name(), func(rule Rule) { rules = append(rules, rule) })
	if err != nil {
		return nil, err
	}
	return rules, nil
}
