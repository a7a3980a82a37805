package rules

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrMissingField indicates a rule record without a mandatory field.
var ErrMissingField = errors.New("missing mandatory field")

// Pattern fields of a rule record, as reported by CompileError.
const (
	FieldRule       = "rule"
	FieldKeywords   = "keywords"
	FieldExceptions = "exceptions"
)

// SourceLoadError reports a rule source that could not be read or parsed.
type SourceLoadError struct {
	Path string
	Err  error
}

func (e *SourceLoadError) Error() string {
	return fmt.Sprintf("load rule source %s: %v", e.Path, e.Err)
}

func (e *SourceLoadError) Unwrap() error {
	return e.Err
}

// LogFields returns the structured context of the error.
func (e *SourceLoadError) LogFields() []zap.Field {
	return []zap.Field{zap.String("path", e.Path)}
}

// CompileError reports a pattern that failed to compile.
type CompileError struct {
	Rule  string
	Field string
	// Index is the position within Keywords or Exceptions; -1 for the primary pattern.
	Index   int
	Pattern string
	Source  string
	Err     error
}

func (e *CompileError) Error() string {
	field := e.Field
	if e.Index >= 0 {
		field = fmt.Sprintf("%s[%d]", e.Field, e.Index)
	}
	return fmt.Sprintf("compile rule %q: invalid %s pattern `%s`: %v", e.Rule, field, e.Pattern, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// LogFields returns the structured context of the error.
func (e *CompileError) LogFields() []zap.Field {
	fields := []zap.Field{
		zap.String("rule", e.Rule),
		zap.String("field", e.Field),
		zap.String("pattern", e.Pattern),
	}
	if e.Index >= 0 {
		fields = append(fields, zap.Int("index", e.Index))
	}
	if e.Source != "" {
		fields = append(fields, zap.String("path", e.Source))
	}
	return fields
}
