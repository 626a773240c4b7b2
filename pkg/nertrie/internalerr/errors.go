package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotFound            = errors.New("not found")
	ErrGrammarSyntax       = errors.New("grammar syntax error")
	ErrConfiguration       = errors.New("invalid configuration")
	ErrIO                  = errors.New("i/o error")
	ErrInternalConsistency = errors.New("internal consistency error")
)

// GrammarSyntaxError reports a rule line that could not be parsed.
// Line is 1-based.
type GrammarSyntaxError struct {
	Line   int
	Text   string
	Reason string
}

func (e *GrammarSyntaxError) Error() string {
	return fmt.Sprintf("bad grammar syntax in line %d: %q: %s", e.Line, e.Text, e.Reason)
}

func (e *GrammarSyntaxError) Unwrap() error { return ErrGrammarSyntax }

// ConfigurationError reports an invalid option or match template.
type ConfigurationError struct {
	Key     string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Message)
	}
	return fmt.Sprintf("%s: option %q: %s", ErrConfiguration, e.Key, e.Message)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// Configf builds a ConfigurationError for the given option key.
func Configf(key, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Key: key, Message: fmt.Sprintf(format, args...)}
}

// IOError wraps a failure to read a grammar source.
type IOError struct {
	Source string
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Source, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *IOError) Unwrap() []error { return []error{ErrIO, e.Err} }

// InternalConsistencyError signals a defect in the dictionary or the
// acceptance policy. It is never caused by the shape of the scanned text.
type InternalConsistencyError struct {
	Offset  int
	Message string
}

func (e *InternalConsistencyError) Error() string {
	return fmt.Sprintf("%s at offset %d: %s", ErrInternalConsistency, e.Offset, e.Message)
}

func (e *InternalConsistencyError) Unwrap() error { return ErrInternalConsistency }

// Inconsistent builds an InternalConsistencyError at the given offset.
func Inconsistent(offset int, format string, args ...any) *InternalConsistencyError {
	return &InternalConsistencyError{Offset: offset, Message: fmt.Sprintf(format, args...)}
}
