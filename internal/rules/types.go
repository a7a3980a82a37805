// Package rules loads sensitive-data rule definitions, compiles their
// patterns and assembles them into an immutable Registry.
//
// Flow:
//   - read raw records from a rules directory (Loader / LoadRawRules)
//   - compile each record against the process Settings (Compile)
//   - assemble the result (Build / New), or memoize it behind Lazy
package rules

import "regexp"

// RawRule is one rule record as read from a rule source file.
// Values are transient: they are discarded once compiled.
type RawRule struct {
	Name        string
	Description string
	// Enabled is nil when the record omits the flag, which counts as enabled.
	Enabled  *bool
	Keywords []string
	// Rule is the primary detection pattern.
	Rule       string
	Exceptions []string
	// Validation names an external validator; empty means none.
	Validation string
	// KeywordMaxDistance is nil when the record falls back to the configured default.
	KeywordMaxDistance *uint64
	Tags               []string
	Example            []string
	// Source is the file the record was read from.
	Source string
}

// IsEnabled reports whether the record is enabled.
func (r *RawRule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Settings are the process-wide compilation defaults.
type Settings struct {
	EnableKeywords            bool
	KeywordMaxDistanceDefault uint64
}

// CompiledRule is the validated, executable counterpart of a RawRule.
//
// A scanner applying a CompiledRule is expected to: match Pattern against the
// input; when Keywords is non-empty, require at least one keyword match within
// KeywordMaxDistance characters of the primary match; drop the hit when any
// Exceptions pattern matches; and, when Validation is set, require the named
// validator to accept the matched text.
//
// Compiled rules are shared read-only by every consumer and must not be modified.
type CompiledRule struct {
	Name        string
	Description string
	Pattern     *regexp.Regexp
	// Keywords is empty unless keyword compilation is enabled and the record supplied keywords.
	Keywords           []*regexp.Regexp
	Exceptions         []*regexp.Regexp
	Validation         string
	KeywordMaxDistance uint64
	Enabled            bool
	Tags               []string
	Examples           []string
	Source             string
}
