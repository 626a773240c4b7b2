package options

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/nertrie/pkg/nertrie/internalerr"
)

func TestDefault(t *testing.T) {
	o := Default()
	assert.Equal(t, -1, o.CaseInsensitiveMinLength)
	assert.Equal(t, -1, o.FuzzyMinLength)
	assert.Equal(t, Outer, o.Balancing)
	assert.False(t, o.CaseInsensitive())
	assert.False(t, o.Fuzzy())
	assert.NoError(t, o.Validate())
}

func TestFromMap(t *testing.T) {
	o, err := FromMap(map[string]any{
		KeyCaseInsensitiveMinLength: 4,
		KeyFuzzyMinLength:           float64(0),
		KeyWordChars:                "-_",
		KeyNoWordBefore:             "'",
		KeyNoWordAfter:              "@",
		KeyBalancing:                "inner",
	})
	require.NoError(t, err)
	assert.Equal(t, Options{
		WordChars:                "-_",
		NoWordBefore:             "'",
		NoWordAfter:              "@",
		CaseInsensitiveMinLength: 4,
		FuzzyMinLength:           0,
		Balancing:                Inner,
	}, o)
	assert.True(t, o.CaseInsensitive())
	assert.True(t, o.Fuzzy())
}

func TestFromMap_Empty(t *testing.T) {
	o, err := FromMap(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), o)
}

func TestFromMap_Errors(t *testing.T) {
	cases := map[string]map[string]any{
		"unknown key":      {"fuzziness": 3},
		"int as string":    {KeyFuzzyMinLength: "3"},
		"fraction":         {KeyFuzzyMinLength: 2.5},
		"below minus one":  {KeyCaseInsensitiveMinLength: -2},
		"string as int":    {KeyWordChars: 7},
		"space word char":  {KeyWordChars: "a b"},
		"unknown strategy": {KeyBalancing: "SIDEWAYS"},
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromMap(m)
			require.Error(t, err)
			assert.True(t, errors.Is(err, internalerr.ErrConfiguration))
			var ce *internalerr.ConfigurationError
			require.True(t, errors.As(err, &ce))
			assert.NotEmpty(t, ce.Key)
		})
	}
}

func TestParseBalancing(t *testing.T) {
	for in, want := range map[string]Balancing{"outer": Outer, "INNER": Inner, " Start ": Start, "end": End} {
		got, err := ParseBalancing(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseBalancing("")
	assert.Error(t, err)
}

func TestToMapRoundTrip(t *testing.T) {
	o := Options{WordChars: "_", CaseInsensitiveMinLength: 3, FuzzyMinLength: -1, Balancing: End}
	back, err := FromMap(o.ToMap())
	require.NoError(t, err)
	assert.Equal(t, o, back)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.yaml")
	content := "case-insensitive-min-length: 4\nfuzzy-min-length: 4\nword-chars: \"\"\nbalancing: START\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	o, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, o.CaseInsensitiveMinLength)
	assert.Equal(t, 4, o.FuzzyMinLength)
	assert.Equal(t, Start, o.Balancing)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, internalerr.ErrIO))

	_, err = Decode([]byte("fuzzy-min-length: [1, 2]\n"))
	assert.True(t, errors.Is(err, internalerr.ErrConfiguration))

	_, err = Decode([]byte("::: not yaml"))
	assert.True(t, errors.Is(err, internalerr.ErrConfiguration))
}

func TestSet(t *testing.T) {
	o, err := Default().Set("fuzzy-min-length=4")
	require.NoError(t, err)
	assert.Equal(t, 4, o.FuzzyMinLength)

	o, err = o.Set("word-chars=-")
	require.NoError(t, err)
	assert.Equal(t, "-", o.WordChars)
	assert.Equal(t, 4, o.FuzzyMinLength)

	_, err = o.Set("nope=1")
	assert.True(t, errors.Is(err, internalerr.ErrConfiguration))
	_, err = o.Set("fuzzy-min-length")
	assert.True(t, errors.Is(err, internalerr.ErrConfiguration))
	_, err = o.Set("fuzzy-min-length=x")
	assert.True(t, errors.Is(err, internalerr.ErrConfiguration))
}
