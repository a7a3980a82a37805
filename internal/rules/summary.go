package rules

// Summary is the JSON view of a compiled rule shared with other processes.
type Summary struct {
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	Pattern            string   `json:"pattern"`
	Keywords           []string `json:"keywords,omitempty"`
	Exceptions         []string `json:"exceptions,omitempty"`
	Validation         string   `json:"validation,omitempty"`
	KeywordMaxDistance uint64   `json:"keyword_max_distance"`
	Enabled            bool     `json:"enabled"`
	Tags               []string `json:"tags,omitempty"`
}

// Summarize returns the shareable view of rule.
func Summarize(rule *CompiledRule) Summary {
	return Summary{
		Name:               rule.Name,
		Description:        rule.Description,
		Pattern:            rule.Pattern.String(),
		Keywords:           PatternStrings(rule.Keywords),
		Exceptions:         PatternStrings(rule.Exceptions),
		Validation:         rule.Validation,
		KeywordMaxDistance: rule.KeywordMaxDistance,
		Enabled:            rule.Enabled,
		Tags:               rule.Tags,
	}
}
