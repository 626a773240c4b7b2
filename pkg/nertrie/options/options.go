// Package options holds the validated scan configuration and converts the
// dynamic key/value option map into it.
package options

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/nertrie/pkg/nertrie/internalerr"
)

// Option keys.
const (
	KeyWordChars                = "word-chars"
	KeyNoWordBefore             = "no-word-before"
	KeyNoWordAfter              = "no-word-after"
	KeyCaseInsensitiveMinLength = "case-insensitive-min-length"
	KeyFuzzyMinLength           = "fuzzy-min-length"
	KeyBalancing                = "balancing"
)

// Keys lists every accepted option key.
var Keys = []string{
	KeyWordChars,
	KeyNoWordBefore,
	KeyNoWordAfter,
	KeyCaseInsensitiveMinLength,
	KeyFuzzyMinLength,
	KeyBalancing,
}

// Balancing tells the document model how to resolve an inserted element
// whose range does not line up with existing element boundaries. The scanner
// passes it through without looking at it.
type Balancing string

const (
	Outer Balancing = "OUTER"
	Inner Balancing = "INNER"
	Start Balancing = "START"
	End   Balancing = "END"
)

// ParseBalancing accepts a balancing name in any case.
func ParseBalancing(s string) (Balancing, error) {
	switch b := Balancing(strings.ToUpper(strings.TrimSpace(s))); b {
	case Outer, Inner, Start, End:
		return b, nil
	}
	return "", fmt.Errorf("unknown balancing strategy %q (want OUTER, INNER, START or END)", s)
}

// Options configures recognition.
type Options struct {
	// WordChars are characters that may appear in a word next to letters
	// and digits.
	WordChars string `yaml:"word-chars" json:"word-chars"`
	// NoWordBefore are characters that may not directly follow a match.
	NoWordBefore string `yaml:"no-word-before" json:"no-word-before"`
	// NoWordAfter are characters that may not directly precede a match.
	NoWordAfter string `yaml:"no-word-after" json:"no-word-after"`
	// CaseInsensitiveMinLength is the minimum match length for accepting a
	// match that differs in case. -1 always requires exact case, 0 never
	// does.
	CaseInsensitiveMinLength int `yaml:"case-insensitive-min-length" json:"case-insensitive-min-length"`
	// FuzzyMinLength is the minimum match length for accepting a match with
	// noise characters inside it. -1 disables fuzzy matching, 0 always
	// allows it.
	FuzzyMinLength int       `yaml:"fuzzy-min-length" json:"fuzzy-min-length"`
	Balancing      Balancing `yaml:"balancing" json:"balancing"`
}

// Default returns the options used when no key is set.
func Default() Options {
	return Options{
		CaseInsensitiveMinLength: -1,
		FuzzyMinLength:           -1,
		Balancing:                Outer,
	}
}

// Validate checks values that the type system cannot.
func (o Options) Validate() error {
	if o.CaseInsensitiveMinLength < -1 {
		return internalerr.Configf(KeyCaseInsensitiveMinLength, "must be -1 or more, got %d", o.CaseInsensitiveMinLength)
	}
	if o.FuzzyMinLength < -1 {
		return internalerr.Configf(KeyFuzzyMinLength, "must be -1 or more, got %d", o.FuzzyMinLength)
	}
	if strings.IndexFunc(o.WordChars, unicode.IsSpace) >= 0 {
		return internalerr.Configf(KeyWordChars, "must not contain whitespace")
	}
	if _, err := ParseBalancing(string(o.Balancing)); err != nil {
		return internalerr.Configf(KeyBalancing, "%v", err)
	}
	return nil
}

// CaseInsensitive reports whether case-folded dictionary walks are needed.
func (o Options) CaseInsensitive() bool { return o.CaseInsensitiveMinLength >= 0 }

// Fuzzy reports whether matches with inner noise can ever be accepted.
func (o Options) Fuzzy() bool { return o.FuzzyMinLength >= 0 }

// FromMap builds Options from a dynamic option map, starting from Default.
// Unknown keys and values of the wrong type are ConfigurationErrors.
func FromMap(m map[string]any) (Options, error) {
	o := Default()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := m[key]
		var err error
		switch key {
		case KeyWordChars:
			o.WordChars, err = asString(key, value)
		case KeyNoWordBefore:
			o.NoWordBefore, err = asString(key, value)
		case KeyNoWordAfter:
			o.NoWordAfter, err = asString(key, value)
		case KeyCaseInsensitiveMinLength:
			o.CaseInsensitiveMinLength, err = asInt(key, value)
		case KeyFuzzyMinLength:
			o.FuzzyMinLength, err = asInt(key, value)
		case KeyBalancing:
			var s string
			if s, err = asString(key, value); err == nil {
				var b Balancing
				if b, err = ParseBalancing(s); err != nil {
					err = internalerr.Configf(key, "%v", err)
				}
				o.Balancing = b
			}
		default:
			err = internalerr.Configf(key, "unknown option")
		}
		if err != nil {
			return Options{}, err
		}
	}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}

// ToMap is the inverse of FromMap.
func (o Options) ToMap() map[string]any {
	return map[string]any{
		KeyWordChars:                o.WordChars,
		KeyNoWordBefore:             o.NoWordBefore,
		KeyNoWordAfter:              o.NoWordAfter,
		KeyCaseInsensitiveMinLength: o.CaseInsensitiveMinLength,
		KeyFuzzyMinLength:           o.FuzzyMinLength,
		KeyBalancing:                string(o.Balancing),
	}
}

func asString(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", internalerr.Configf(key, "cannot be set to %v (%T), want a string", v, v)
	}
	return s, nil
}

func asInt(key string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		if n < math.MinInt32 || n > math.MaxInt32 {
			break
		}
		return int(n), nil
	case uint:
		if n > math.MaxInt32 {
			break
		}
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		if n > math.MaxInt32 {
			break
		}
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || n < math.MinInt32 || n > math.MaxInt32 {
			break
		}
		return int(n), nil
	}
	return 0, internalerr.Configf(key, "cannot be set to %v (%T), want an integer", v, v)
}

// Decode parses YAML option data with the same keys as FromMap.
func Decode(data []byte) (Options, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Options{}, &internalerr.ConfigurationError{Message: fmt.Sprintf("parse options: %v", err)}
	}
	return FromMap(m)
}

// Load reads YAML options from path.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, &internalerr.IOError{Source: path, Err: err}
	}
	return Decode(data)
}

// Set applies a single "key=value" override, as given on a command line.
// Integer keys parse the value as YAML so "-1" and "4" work unquoted.
func (o Options) Set(assignment string) (Options, error) {
	key, value, ok := strings.Cut(assignment, "=")
	if !ok {
		return o, internalerr.Configf("", "override %q is not key=value", assignment)
	}
	m := o.ToMap()
	if _, known := m[key]; !known {
		return o, internalerr.Configf(key, "unknown option")
	}
	switch key {
	case KeyCaseInsensitiveMinLength, KeyFuzzyMinLength:
		var n any
		if err := yaml.Unmarshal([]byte(value), &n); err != nil {
			return o, internalerr.Configf(key, "cannot parse %q: %v", value, err)
		}
		m[key] = n
	default:
		m[key] = value
	}
	return FromMap(m)
}
