package rules

import (
	"regexp"
	"slices"
)

// Compile validates raw and compiles its patterns.
//
// Keywords are compiled only when settings.EnableKeywords is set and the
// record supplied them; exceptions are always compiled. The first pattern
// that fails to compile aborts the rule with a *CompileError.
func Compile(raw RawRule, settings Settings) (*CompiledRule, error) {
	pattern, err := regexp.Compile(raw.Rule)
	if err != nil {
		return nil, newCompileError(raw, FieldRule, -1, raw.Rule, err)
	}

	var keywords []*regexp.Regexp
	if settings.EnableKeywords && raw.Keywords != nil {
		keywords, err = compileAll(raw, FieldKeywords, raw.Keywords)
		if err != nil {
			return nil, err
		}
	}

	exceptions, err := compileAll(raw, FieldExceptions, raw.Exceptions)
	if err != nil {
		return nil, err
	}

	distance := settings.KeywordMaxDistanceDefault
	if raw.KeywordMaxDistance != nil {
		distance = *raw.KeywordMaxDistance
	}

	return &CompiledRule{
		Name:               raw.Name,
		Description:        raw.Description,
		Pattern:            pattern,
		Keywords:           keywords,
		Exceptions:         exceptions,
		Validation:         raw.Validation,
		KeywordMaxDistance: distance,
		Enabled:            raw.IsEnabled(),
		Tags:               slices.Clone(raw.Tags),
		Examples:           slices.Clone(raw.Example),
		Source:             raw.Source,
	}, nil
}

func compileAll(raw RawRule, field string, patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	out := make([]*regexp.Regexp, 0, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, newCompileError(raw, field, i, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func newCompileError(raw RawRule, field string, index int, pattern string, err error) *CompileError {
	return &CompileError{
		Rule:    raw.Name,
		Field:   field,
		Index:   index,
		Pattern: pattern,
		Source:  raw.Source,
		Err:     err,
	}
}

// PatternStrings returns the source text of each pattern.
func PatternStrings(patterns []*regexp.Regexp) []string {
	if len(patterns) == 0 {
		return nil
	}
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = p.String()
	}
	return out
}
