package internalerr

import (
	"errors"
	"io/fs"
	"testing"
)

func TestGrammarSyntaxError(t *testing.T) {
	var err error = &GrammarSyntaxError{Line: 3, Text: "broken", Reason: "missing <-"}
	if !errors.Is(err, ErrGrammarSyntax) {
		t.Fatalf("expected ErrGrammarSyntax, got %v", err)
	}
	want := `bad grammar syntax in line 3: "broken": missing <-`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestConfigf(t *testing.T) {
	err := Configf("fuzzy-min-length", "must be >= -1, got %d", -2)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if err.Key != "fuzzy-min-length" {
		t.Errorf("Key = %q", err.Key)
	}
	want := `invalid configuration: option "fuzzy-min-length": must be >= -1, got -2`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	noKey := Configf("", "override %q is not key=value", "x")
	if noKey.Error() != `invalid configuration: override "x" is not key=value` {
		t.Errorf("Error() = %q", noKey.Error())
	}
}

func TestIOErrorUnwrapsBoth(t *testing.T) {
	err := &IOError{Source: "entities.txt", Err: fs.ErrNotExist}
	if !errors.Is(err, ErrIO) {
		t.Error("expected ErrIO")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("expected fs.ErrNotExist")
	}
}

func TestInconsistent(t *testing.T) {
	err := Inconsistent(7, "walks end at %d and %d", 12, 17)
	var ice *InternalConsistencyError
	if !errors.As(error(err), &ice) || ice.Offset != 7 {
		t.Fatalf("unexpected error %v", err)
	}
	if !errors.Is(err, ErrInternalConsistency) {
		t.Error("expected ErrInternalConsistency")
	}
}
