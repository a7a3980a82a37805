// Package lint checks compiled rules against the examples they ship with.
package lint

import (
	"fmt"

	"github.com/raaihank/whatis/internal/rules"
	"github.com/raaihank/whatis/internal/validators"
)

// Severity of a lint finding
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding represents one lint result
type Finding struct {
	Rule     string   `json:"rule"`
	Source   string   `json:"source,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Options controls Check
type Options struct {
	// Strict reports unknown validators as errors instead of warnings.
	Strict bool
}

// Check lints every rule in reg. Validator names are resolved through
// lookup; a nil lookup skips validator checks.
func Check(reg *rules.Registry, lookup validators.Lookup, opts Options) []Finding {
	findings := make([]Finding, 0)

	for _, rule := range reg.Rules() {
		findings = append(findings, checkRule(rule, lookup, opts)...)
	}

	return findings
}

func checkRule(rule *rules.CompiledRule, lookup validators.Lookup, opts Options) []Finding {
	var findings []Finding
	add := func(sev Severity, format string, args ...any) {
		findings = append(findings, Finding{
			Rule:     rule.Name,
			Source:   rule.Source,
			Severity: sev,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	var validate validators.Func
	if rule.Validation != "" && lookup != nil {
		fn, ok := lookup.Validator(rule.Validation)
		if !ok {
			sev := SeverityWarning
			if opts.Strict {
				sev = SeverityError
			}
			add(sev, "unknown validator %q", rule.Validation)
		}
		validate = fn
	}

	for i, example := range rule.Examples {
		loc := rule.Pattern.FindStringIndex(example)
		if loc == nil {
			add(SeverityWarning, "example[%d] does not match the rule pattern", i)
			continue
		}
		match := example[loc[0]:loc[1]]
		if validate != nil && !validate(match) {
			add(SeverityWarning, "example[%d] match %q fails validator %q", i, match, rule.Validation)
		}
	}

	return findings
}

// HasErrors reports whether any finding is an error
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}
