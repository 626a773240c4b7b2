// Package normalize produces a length-preserving canonical form of text for
// dictionary matching.
//
// Every rune of the input maps to exactly one rune of the output, so rune
// offsets computed on the normalized form are valid offsets into the original
// text. The mapping:
//
//   - whitespace and control characters become a plain space
//   - typographic quotes, primes and dashes become their ASCII counterparts
//   - Latin letters with diacritics lose their marks (é -> e, Ç -> C), case kept
//   - a few letters without a decomposition use a fixed table (ø -> o, ß -> s)
//   - fullwidth ASCII variants become ASCII
//   - everything else is returned unchanged
//
// All functions are pure and safe for concurrent use.
package normalize

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// punct maps typographic punctuation to ASCII.
var punct = map[rune]rune{
	'‘': '\'', // left single quote
	'’': '\'', // right single quote
	'‚': '\'', // single low-9 quote
	'‛': '\'', // single high-reversed-9 quote
	'′': '\'', // prime
	'ʼ': '\'', // modifier apostrophe
	'“': '"',
	'”': '"',
	'„': '"',
	'‟': '"',
	'″': '"', // double prime
	'«': '"',
	'»': '"',
	'‹': '\'',
	'›': '\'',
	'‐': '-', // hyphen
	'‑': '-', // non-breaking hyphen
	'‒': '-', // figure dash
	'–': '-', // en dash
	'—': '-', // em dash
	'―': '-', // horizontal bar
	'−': '-', // minus sign
	'\u00AD': '-', // soft hyphen
	'…': '.', // ellipsis, kept as one rune
	'·': '.', // middle dot
	'•': '*', // bullet
	'\u200B': ' ', // zero width space
	'\u2060': ' ', // word joiner
	'\uFEFF': ' ', // byte order mark
}

// special covers letters that have no canonical decomposition.
var special = map[rune]rune{
	'ø': 'o', 'Ø': 'O',
	'ł': 'l', 'Ł': 'L',
	'đ': 'd', 'Đ': 'D',
	'ð': 'd', 'Ð': 'D',
	'ß': 's',
	'æ': 'a', 'Æ': 'A',
	'œ': 'o', 'Œ': 'O',
	'ı': 'i',
	'þ': 't', 'Þ': 'T',
	'ħ': 'h', 'Ħ': 'H',
	'ŧ': 't', 'Ŧ': 'T',
}

// latin lists the blocks whose decomposable letters are folded to ASCII.
var latin = []struct{ lo, hi rune }{
	{0x00C0, 0x024F}, // Latin-1 Supplement, Extended-A, Extended-B
	{0x1E00, 0x1EFF}, // Latin Extended Additional
}

// letters is filled once at init and only read afterwards.
var letters = make(map[rune]rune, 1024)

func init() {
	strip := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	for _, block := range latin {
		for r := block.lo; r <= block.hi; r++ {
			if !unicode.IsLetter(r) {
				continue
			}
			s, _, err := transform.String(strip, string(r))
			if err != nil {
				continue
			}
			base, size := utf8.DecodeRuneInString(s)
			if size == len(s) && base < utf8.RuneSelf && base != r {
				letters[r] = base
			}
		}
	}
	for r, base := range special {
		letters[r] = base
	}
}

// Rune returns the canonical representative of r.
func Rune(r rune) rune {
	switch {
	case r >= 0x20 && r < 0x7F:
		return r
	case r < utf8.RuneSelf:
		// ASCII control characters, tab and newline included.
		return ' '
	case unicode.IsSpace(r), unicode.IsControl(r):
		return ' '
	case r >= 0xFF01 && r <= 0xFF5E:
		return r - 0xFEE0
	}
	if m, ok := punct[r]; ok {
		return m
	}
	if m, ok := letters[r]; ok {
		return m
	}
	return r
}

// Text returns the normalized runes of s. len(Text(s)) equals the rune count of s.
func Text(s string) []rune {
	out := make([]rune, 0, utf8.RuneCountInString(s))
	for _, r := range s {
		out = append(out, Rune(r))
	}
	return out
}

// Runes normalizes rs into a new slice of the same length.
func Runes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = Rune(r)
	}
	return out
}

// String is Text converted back to a string.
func String(s string) string {
	return string(Text(s))
}

// CollapseSpaces replaces every run of spaces in normalized runes with a
// single space. The result is used for comparisons only; offsets into it are
// not meaningful.
func CollapseSpaces(rs []rune) string {
	out := make([]rune, 0, len(rs))
	space := false
	for _, r := range rs {
		if r == ' ' {
			if !space {
				out = append(out, ' ')
			}
			space = true
			continue
		}
		space = false
		out = append(out, r)
	}
	return string(out)
}
