package normalize

import (
	"testing"
	"unicode/utf8"
)

func TestRune_ASCIIUnchanged(t *testing.T) {
	for r := rune(0x20); r < 0x7F; r++ {
		if got := Rune(r); got != r {
			t.Errorf("Rune(%q) = %q", r, got)
		}
	}
}

func TestRune_Whitespace(t *testing.T) {
	for _, r := range []rune{'\t', '\n', '\r', '\v', '\f', '\u00A0', ' ', '\u3000', '\u0085', '\u200B'} {
		if got := Rune(r); got != ' ' {
			t.Errorf("Rune(%U) = %q, want space", r, got)
		}
	}
}

func TestRune_Diacritics(t *testing.T) {
	cases := map[rune]rune{
		'é': 'e', 'É': 'E', 'ç': 'c', 'Ç': 'C', 'ñ': 'n', 'ü': 'u',
		'Å': 'A', 'ő': 'o', 'ș': 's', 'ẞ': 'ẞ', 'ø': 'o', 'ł': 'l', 'ß': 's',
		'ǆ': 'ǆ', 'ạ': 'a', 'Ỳ': 'Y',
	}
	for in, want := range cases {
		if got := Rune(in); got != want {
			t.Errorf("Rune(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRune_Punctuation(t *testing.T) {
	cases := map[rune]rune{
		'\u2019': '\'',
		'\u201C': '"',
		'\u00BB': '"',
		'\u2014': '-',
		'\u00AD': '-',
		'\uFF21': 'A',
	}
	for in, want := range cases {
		if got := Rune(in); got != want {
			t.Errorf("Rune(%U) = %q, want %q", in, got, want)
		}
	}
}

func TestRune_PassThrough(t *testing.T) {
	for _, r := range []rune{'中', 'я', 'Ω', '😀', utf8.RuneError} {
		if got := Rune(r); got != r {
			t.Errorf("Rune(%q) = %q", r, got)
		}
	}
}

func TestText_LengthPreserving(t *testing.T) {
	inputs := []string{
		"",
		"Café  crème",
		"“Paris”\t— City",
		"naïve façade Øresund",
		"mixed 中文 text\x00\x01",
		"\xff\xfe broken utf8",
	}
	for _, in := range inputs {
		out := Text(in)
		if len(out) != utf8.RuneCountInString(in) {
			t.Errorf("Text(%q) has %d runes, want %d", in, len(out), utf8.RuneCountInString(in))
		}
		if n := utf8.RuneCountInString(string(out)); n != len(out) {
			t.Errorf("Text(%q) re-encodes to %d runes, want %d", in, n, len(out))
		}
	}
}

func TestString(t *testing.T) {
	cases := map[string]string{
		"Café  crème":    "Cafe  creme",
		"“Paris” — City": `"Paris" - City`,
	}
	for in, want := range cases {
		if got := String(in); got != want {
			t.Errorf("String(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRunes(t *testing.T) {
	in := []rune("Zürich")
	out := Runes(in)
	if string(out) != "Zurich" {
		t.Errorf("Runes = %q", string(out))
	}
	if string(in) != "Zürich" {
		t.Errorf("input changed to %q", string(in))
	}
}

func TestCollapseSpaces(t *testing.T) {
	cases := []struct {
		in   []rune
		want string
	}{
		{[]rune("Paris   City"), "Paris City"},
		{[]rune("  a b   "), " a b "},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := CollapseSpaces(tc.in); got != tc.want {
			t.Errorf("CollapseSpaces(%q) = %q, want %q", string(tc.in), got, tc.want)
		}
	}
}
