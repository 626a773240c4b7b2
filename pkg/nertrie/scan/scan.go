// Package scan walks text once and splits it into matched and unmatched
// spans using a trie dictionary and the acceptance thresholds from options.
//
// Matching decisions look at the normalized text, but every span is reported
// in rune offsets of the original text. Because normalization never changes
// the number of runes, those offsets are the same.
//
// A dictionary hit is accepted when it passes two independent checks. The
// case check passes when the hit is at least case-insensitive-min-length
// runes long, or when the original text spells the key's characters in the
// key's case; word separators are not compared, since the walk lets any
// noise run separate words. The noise check passes when the hit is at least
// fuzzy-min-length runes long, or when the normalized text with whitespace
// collapsed equals the key. That comparison ignores case: case was settled by
// the first check, so a case-folded hit is not rejected again just because
// fuzzy matching is off.
package scan

import (
	"errors"
	"iter"
	"strings"
	"unicode"

	"github.com/cognicore/nertrie/pkg/nertrie/internalerr"
	"github.com/cognicore/nertrie/pkg/nertrie/normalize"
	"github.com/cognicore/nertrie/pkg/nertrie/options"
	"github.com/cognicore/nertrie/pkg/nertrie/trie"
)

// Span is a half-open rune range [Start, End) of the scanned text. Matched
// spans carry the entity ids, unmatched spans carry none.
type Span struct {
	Start int      `json:"start"`
	End   int      `json:"end"`
	IDs   []string `json:"ids,omitempty"`
}

// Matched reports whether the span is an entity match.
func (s Span) Matched() bool { return len(s.IDs) > 0 }

// Len returns the number of runes covered.
func (s Span) Len() int { return s.End - s.Start }

// Sink receives the spans of a scan in text order. text is the original text
// covered by the span. Returning an error stops the scan.
type Sink interface {
	Match(text string, s Span) error
	NoMatch(text string, s Span) error
}

// Scanner applies a dictionary to text. It holds no per-scan state, so one
// Scanner may be used from many goroutines as long as the dictionary is no
// longer being built.
type Scanner struct {
	dict        *trie.Dictionary
	opts        options.Options
	noWordAfter string
}

// New returns a Scanner. The dictionary should have been created with the
// same word characters and no-word-before characters as o.
func New(d *trie.Dictionary, o options.Options) *Scanner {
	return &Scanner{
		dict:        d,
		opts:        o,
		noWordAfter: normalize.String(o.NoWordAfter),
	}
}

// Options returns the options the scanner was built with.
func (s *Scanner) Options() options.Options { return s.opts }

// Scan reports every span of text to sink.
func (s *Scanner) Scan(text string, sink Sink) error {
	orig := []rune(text)
	return s.run(orig, func(sp Span) error {
		covered := string(orig[sp.Start:sp.End])
		if sp.Matched() {
			return sink.Match(covered, sp)
		}
		return sink.NoMatch(covered, sp)
	})
}

// Spans returns the spans of text lazily. A fatal scan error is yielded once
// with a zero Span and ends the sequence.
func (s *Scanner) Spans(text string) iter.Seq2[Span, error] {
	return func(yield func(Span, error) bool) {
		stopped := false
		err := s.run([]rune(text), func(sp Span) error {
			if !yield(sp, nil) {
				stopped = true
				return errStop
			}
			return nil
		})
		if err != nil && !stopped {
			yield(Span{}, err)
		}
	}
}

var errStop = errors.New("scan stopped")

// Collect returns all spans of text.
func (s *Scanner) Collect(text string) ([]Span, error) {
	var out []Span
	err := s.run([]rune(text), func(sp Span) error {
		out = append(out, sp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Matches returns only the matched spans of text.
func (s *Scanner) Matches(text string) ([]Span, error) {
	var out []Span
	err := s.run([]rune(text), func(sp Span) error {
		if sp.Matched() {
			out = append(out, sp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Scanner) run(orig []rune, emit func(Span) error) error {
	norm := normalize.Runes(orig)
	n := len(norm)
	pending := 0
	start := 0
	for {
		for start < n && !s.wordStart(norm, start) {
			start++
		}
		if start >= n {
			break
		}

		end, ids, err := s.accept(orig, norm, start)
		if err != nil {
			return err
		}
		if ids != nil {
			if pending < start {
				if err := emit(Span{Start: pending, End: start}); err != nil {
					return err
				}
			}
			if err := emit(Span{Start: start, End: end, IDs: ids}); err != nil {
				return err
			}
			start, pending = end, end
			continue
		}

		from := start
		if c := norm[start]; unicode.IsLetter(c) || unicode.IsDigit(c) {
			for start < n && (unicode.IsLetter(norm[start]) || unicode.IsDigit(norm[start])) {
				start++
			}
		} else {
			start++
		}
		if start <= from {
			return internalerr.Inconsistent(from, "scan made no progress")
		}
	}
	if pending < n {
		return emit(Span{Start: pending, End: n})
	}
	return nil
}

// wordStart reports whether a dictionary lookup may start at norm[i]: it must
// be a trie character not directly preceded by a letter, a digit or a
// no-word-after character.
func (s *Scanner) wordStart(norm []rune, i int) bool {
	if !s.dict.TrieChar(norm[i]) {
		return false
	}
	if i == 0 {
		return true
	}
	p := norm[i-1]
	return !unicode.IsLetter(p) && !unicode.IsDigit(p) && !strings.ContainsRune(s.noWordAfter, p)
}

// accept queries the dictionary at start and applies the case and fuzz
// thresholds to each candidate. ids is nil when nothing was accepted.
func (s *Scanner) accept(orig, norm []rune, start int) (int, []string, error) {
	candidates, err := s.dict.Scan(norm, start, s.opts.CaseInsensitive())
	if err != nil {
		return 0, nil, err
	}
	end := -1
	var ids []string
	for _, c := range candidates {
		if c.End != candidates[0].End {
			return 0, nil, internalerr.Inconsistent(start, "candidates end at %d and %d", candidates[0].End, c.End)
		}
		if !s.acceptable(orig, norm, c) {
			continue
		}
		if c.End <= c.Start {
			return 0, nil, internalerr.Inconsistent(start, "zero-width match for %q", c.Key)
		}
		end = c.End
		for _, id := range c.IDs {
			ids = appendUnique(ids, id)
		}
	}
	return end, ids, nil
}

func (s *Scanner) acceptable(orig, norm []rune, c trie.Candidate) bool {
	length := c.End - c.Start
	ci, fuzzy := s.opts.CaseInsensitiveMinLength, s.opts.FuzzyMinLength

	caseOK := (ci >= 0 && length >= ci) ||
		trie.Unseparated(s.dict.ToTrieChars(string(orig[c.Start:c.End]))) == trie.Unseparated(c.Key)
	if !caseOK {
		return false
	}
	// Case was settled above; this only asks whether noise was skipped.
	return (fuzzy >= 0 && length >= fuzzy) ||
		strings.ToLower(normalize.CollapseSpaces(norm[c.Start:c.End])) == strings.ToLower(c.Key)
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
