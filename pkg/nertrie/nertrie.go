// Package nertrie recognizes named entities from a line grammar in documents
// and marks them up.
//
// A Recognizer is built once from a grammar source, a match template and
// options, and is then read-only: it may scan many documents concurrently.
//
//	rec, err := nertrie.Build(ctx, grammar.File("entities.txt"),
//		markup.Element{Name: "entity", Attrs: []markup.Attr{{Name: "ids"}}},
//		options.Default())
//	marked, err := rec.Scan(doc)
package nertrie

import (
	"context"
	"iter"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/cognicore/nertrie/internal/logger"
	"github.com/cognicore/nertrie/pkg/nertrie/grammar"
	"github.com/cognicore/nertrie/pkg/nertrie/markup"
	"github.com/cognicore/nertrie/pkg/nertrie/metrics"
	"github.com/cognicore/nertrie/pkg/nertrie/options"
	"github.com/cognicore/nertrie/pkg/nertrie/scan"
	"github.com/cognicore/nertrie/pkg/nertrie/trie"
)

// Recognizer holds a compiled, frozen dictionary and everything needed to
// scan documents with it.
type Recognizer struct {
	source   string
	rules    int
	dict     *trie.Dictionary
	scanner  *scan.Scanner
	template *markup.Template
	opts     options.Options
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// Build validates the template and options, compiles the grammar and
// returns a Recognizer. Nothing is returned on error.
func Build(ctx context.Context, src grammar.Source, tmpl markup.Element, o options.Options) (*Recognizer, error) {
	r, d, err := prepare(tmpl, o)
	if err != nil {
		return nil, err
	}
	n, err := grammar.CompileSource(ctx, src, d)
	if err != nil {
		return nil, err
	}
	return r.finish(src.Name(), n, d), nil
}

// FromRules builds a Recognizer from already parsed rules, such as rules
// loaded from a store.
func FromRules(name string, rules []grammar.Rule, tmpl markup.Element, o options.Options) (*Recognizer, error) {
	r, d, err := prepare(tmpl, o)
	if err != nil {
		return nil, err
	}
	n := grammar.FromRules(rules, d)
	return r.finish(name, n, d), nil
}

func prepare(tmpl markup.Element, o options.Options) (*Recognizer, *trie.Dictionary, error) {
	if err := o.Validate(); err != nil {
		return nil, nil, err
	}
	t, err := markup.NewTemplate(tmpl)
	if err != nil {
		return nil, nil, err
	}
	d := trie.New(o.WordChars, o.NoWordBefore)
	return &Recognizer{template: t, opts: o}, d, nil
}

func (r *Recognizer) finish(source string, rules int, d *trie.Dictionary) *Recognizer {
	d.Freeze()
	r.source = source
	r.rules = rules
	r.dict = d
	r.scanner = scan.New(d, r.opts)
	r.log = logger.WithComponent("nertrie")
	r.log.Debug("compiled grammar", "source", source, "rules", rules, "keys", d.Len())
	return r
}

// WithMetrics returns a copy of r that reports to m.
func (r *Recognizer) WithMetrics(m *metrics.Metrics) *Recognizer {
	c := *r
	c.metrics = m
	if m != nil {
		m.DictionaryKeys.Set(float64(r.dict.Len()))
	}
	return &c
}

// Source names the grammar the recognizer was built from.
func (r *Recognizer) Source() string { return r.source }

// Rules returns the number of grammar rules compiled.
func (r *Recognizer) Rules() int { return r.rules }

// Dictionary returns the frozen dictionary.
func (r *Recognizer) Dictionary() *trie.Dictionary { return r.dict }

// Options returns the options the recognizer was built with.
func (r *Recognizer) Options() options.Options { return r.opts }

// Template returns the match template.
func (r *Recognizer) Template() *markup.Template { return r.template }

// Scan marks up every match in a copy of doc and returns the copy. doc is
// not modified.
func (r *Recognizer) Scan(doc markup.Document) (markup.Document, error) {
	out := doc.Clone()
	text := out.Content()
	sink := &countingSink{Sink: markup.NewCollector(r.template, r.opts.Balancing, out)}

	start := time.Now()
	err := r.scanner.Scan(text, sink)
	r.metrics.ObserveScan(utf8.RuneCountInString(text), sink.ids, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Spans returns the matched and unmatched spans of text lazily.
func (r *Recognizer) Spans(text string) iter.Seq2[scan.Span, error] {
	return r.scanner.Spans(text)
}

// Matches returns the matched spans of text.
func (r *Recognizer) Matches(text string) ([]scan.Span, error) {
	start := time.Now()
	spans, err := r.scanner.Matches(text)
	ids := make([][]string, len(spans))
	for i, sp := range spans {
		ids[i] = sp.IDs
	}
	r.metrics.ObserveScan(utf8.RuneCountInString(text), ids, time.Since(start), err)
	return spans, err
}

type countingSink struct {
	scan.Sink
	ids [][]string
}

func (c *countingSink) Match(text string, s scan.Span) error {
	c.ids = append(c.ids, s.IDs)
	return c.Sink.Match(text, s)
}
