// Package trie stores entity surface forms as paths of normalized characters
// and walks normalized text to find the longest stored form at a position.
//
// Words of a surface form are joined by a single separator edge, so
// "Paris City" is one path P-a-r-i-s-' '-C-i-t-y. While walking text, a run
// of characters outside the trie alphabet (spaces, punctuation, other noise)
// may either be skipped inside a word or consumed as that separator. This is
// what lets "r.s.v.p" reach the RSVP node and "Paris   City" reach the
// "Paris City" node. Whether such a loose hit is acceptable is decided by the
// scan driver, not by the dictionary.
//
// A Dictionary is built with Put and then only read. Scan may be called from
// many goroutines once building has finished; Put must not run concurrently
// with Scan. Freeze makes the build-then-read discipline explicit.
package trie

import (
	"sort"
	"strings"
	"unicode"

	"github.com/cognicore/nertrie/pkg/nertrie/internalerr"
	"github.com/cognicore/nertrie/pkg/nertrie/normalize"
)

// Separator joins the words of a multi-word key.
const Separator = ' '

type node struct {
	children map[rune]*node
	// folded indexes children by lower-cased edge rune.
	folded map[rune][]*node
	key    string
	ids    []string
}

func (n *node) child(r rune) *node {
	if c, ok := n.children[r]; ok {
		return c
	}
	if n.children == nil {
		n.children = make(map[rune]*node)
		n.folded = make(map[rune][]*node)
	}
	c := &node{}
	n.children[r] = c
	lr := unicode.ToLower(r)
	n.folded[lr] = append(n.folded[lr], c)
	return c
}

func (n *node) addID(id string) {
	for _, existing := range n.ids {
		if existing == id {
			return
		}
	}
	n.ids = append(n.ids, id)
}

// Candidate is one dictionary hit starting at Start and ending before End
// (rune offsets). Key is the stored form, IDs the entity ids stored with it.
type Candidate struct {
	Start      int
	End        int
	Key        string
	IDs        []string
	CaseFolded bool
}

// Dictionary is a trie of normalized surface forms.
type Dictionary struct {
	root         *node
	wordChars    string
	noWordBefore string
	keys         int
	frozen       bool
}

// New creates an empty dictionary. wordChars are characters that belong to
// words next to letters and digits; noWordBefore are characters that may not
// directly follow the end of a match. Whitespace is never a word character.
func New(wordChars, noWordBefore string) *Dictionary {
	return &Dictionary{
		root:         &node{},
		wordChars:    strings.ReplaceAll(normalize.String(wordChars), " ", ""),
		noWordBefore: normalize.String(noWordBefore),
	}
}

// TrieChar reports whether the normalized rune r is part of the trie
// alphabet: a letter, a digit or a configured word character.
func (d *Dictionary) TrieChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(d.wordChars, r)
}

// ToTrieChars projects raw text onto the trie alphabet. Noise inside words
// is dropped and noise runs containing whitespace become one Separator
// between words. ToTrieChars("r.s.v.p") is "rsvp",
// ToTrieChars("Paris   City") is "Paris City".
func (d *Dictionary) ToTrieChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range normalize.Text(s) {
		if d.TrieChar(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteRune(Separator)
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		if r == ' ' {
			pendingSep = true
		}
	}
	return b.String()
}

// Put stores surfaceForm under id. Repeated forms accumulate ids in
// insertion order. It returns false when the form has no trie characters or
// the dictionary is frozen.
func (d *Dictionary) Put(surfaceForm, id string) bool {
	if d.frozen {
		return false
	}
	key := d.ToTrieChars(surfaceForm)
	if key == "" {
		return false
	}
	n := d.root
	for _, r := range key {
		n = n.child(r)
	}
	if n.key == "" {
		n.key = key
		d.keys++
	}
	n.addID(id)
	return true
}

// Freeze stops further Put calls from changing the dictionary.
func (d *Dictionary) Freeze() { d.frozen = true }

// Frozen reports whether Freeze was called.
func (d *Dictionary) Frozen() bool { return d.frozen }

// Len returns the number of distinct keys.
func (d *Dictionary) Len() int { return d.keys }

// Scan looks for the longest stored form starting at text[start], where text
// is normalized. With allowCaseInsensitive a second, case-folded walk runs
// as well. Both walks must end at the same offset when both succeed; if they
// do not, Scan returns an InternalConsistencyError.
func (d *Dictionary) Scan(text []rune, start int, allowCaseInsensitive bool) ([]Candidate, error) {
	if start < 0 || start >= len(text) || !d.TrieChar(text[start]) {
		return nil, nil
	}
	end, hits := d.walk(text, start, false)
	out := make([]Candidate, 0, len(hits))
	for _, n := range hits {
		out = append(out, d.candidate(n, start, end, false))
	}
	if !allowCaseInsensitive {
		return out, nil
	}
	foldedEnd, foldedHits := d.walk(text, start, true)
	if len(hits) > 0 && len(foldedHits) > 0 && foldedEnd != end {
		return nil, internalerr.Inconsistent(start,
			"case-sensitive walk ends at %d (%q) but case-insensitive walk ends at %d (%q)",
			end, hits[0].key, foldedEnd, foldedHits[0].key)
	}
	for _, n := range foldedHits {
		if containsNode(hits, n) {
			continue
		}
		out = append(out, d.candidate(n, start, foldedEnd, true))
	}
	return out, nil
}

func (d *Dictionary) candidate(n *node, start, end int, folded bool) Candidate {
	ids := make([]string, len(n.ids))
	copy(ids, n.ids)
	return Candidate{Start: start, End: end, Key: n.key, IDs: ids, CaseFolded: folded}
}

// walk advances a set of trie nodes over text from start. It returns the end
// of the longest path that stops on a key at a word boundary, and the
// terminal nodes reached there. end is -1 when nothing was found.
func (d *Dictionary) walk(text []rune, start int, fold bool) (int, []*node) {
	end := -1
	var hits []*node
	active := []*node{d.root}
	i := start
	for i < len(text) && len(active) > 0 {
		c := text[i]
		if !d.TrieChar(c) {
			// A noise run either stays inside the word or separates words.
			j := i
			for j < len(text) && !d.TrieChar(text[j]) {
				j++
			}
			next := make([]*node, 0, len(active)*2)
			next = append(next, active...)
			for _, n := range active {
				if sep, ok := n.children[Separator]; ok {
					next = appendUnique(next, sep)
				}
			}
			active = next
			i = j
			continue
		}

		next := make([]*node, 0, len(active))
		for _, n := range active {
			if fold {
				for _, m := range n.folded[unicode.ToLower(c)] {
					next = appendUnique(next, m)
				}
			} else if m, ok := n.children[c]; ok {
				next = appendUnique(next, m)
			}
		}
		active = next
		i++

		if !d.boundaryAt(text, i) {
			continue
		}
		var terminals []*node
		for _, n := range active {
			if n.key != "" {
				terminals = append(terminals, n)
			}
		}
		if len(terminals) > 0 {
			end, hits = i, terminals
		}
	}
	return end, hits
}

// boundaryAt reports whether a match may end right before text[i].
func (d *Dictionary) boundaryAt(text []rune, i int) bool {
	if i >= len(text) {
		return true
	}
	c := text[i]
	return !unicode.IsLetter(c) && !unicode.IsDigit(c) && !strings.ContainsRune(d.noWordBefore, c)
}

func appendUnique(ns []*node, n *node) []*node {
	if containsNode(ns, n) {
		return ns
	}
	return append(ns, n)
}

func containsNode(ns []*node, n *node) bool {
	for _, m := range ns {
		if m == n {
			return true
		}
	}
	return false
}

// Entry is a stored key with its ids.
type Entry struct {
	Key string
	IDs []string
}

// Entries returns every stored key with its ids, sorted by key.
func (d *Dictionary) Entries() []Entry {
	var out []Entry
	var visit func(n *node)
	visit = func(n *node) {
		if n.key != "" {
			ids := make([]string, len(n.ids))
			copy(ids, n.ids)
			out = append(out, Entry{Key: n.key, IDs: ids})
		}
		for _, c := range n.children {
			visit(c)
		}
	}
	visit(d.root)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Unseparated drops the word separators from a key, leaving the characters
// a walk has to consume. A walk may treat any noise run as a separator, so
// two texts with the same characters in the same order reach the same keys.
func Unseparated(key string) string {
	return strings.ReplaceAll(key, string(Separator), "")
}

// Conflict names two keys that can make case-sensitive and case-insensitive
// walks end at different offsets: Long, case-folded and unseparated, strictly
// extends Short, case-folded and unseparated.
type Conflict struct {
	Short string
	Long  string
}

// CaseConflicts lists the key pairs that can make Scan fail with an
// InternalConsistencyError when case-insensitive matching is enabled. The
// list may include pairs that no text actually triggers, but every failing
// text is caused by a listed pair.
func (d *Dictionary) CaseConflicts() []Conflict {
	entries := d.Entries()
	type foldedKey struct{ folded, key string }
	keys := make([]foldedKey, len(entries))
	for i, e := range entries {
		keys[i] = foldedKey{folded: strings.ToLower(Unseparated(e.Key)), key: e.Key}
	}
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].folded < keys[j].folded })

	var out []Conflict
	for _, short := range keys {
		j := sort.Search(len(keys), func(k int) bool { return keys[k].folded >= short.folded })
		for ; j < len(keys) && strings.HasPrefix(keys[j].folded, short.folded); j++ {
			if len(keys[j].folded) == len(short.folded) {
				continue
			}
			out = append(out, Conflict{Short: short.key, Long: keys[j].key})
		}
	}
	return out
}
