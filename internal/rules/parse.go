package rules

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a rule file serialization.
type Format uint8

const (
	// FormatYAML covers YAML and JSON documents.
	FormatYAML Format = iota
	// FormatTOML is selected by the .toml extension.
	FormatTOML
)

// FormatFor picks the serialization of a rule file from its name.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// ruleRecord is the on-disk shape of a rule. It accepts both the current
// plural "exceptions" key and the older singular "exception".
type ruleRecord struct {
	Name               string   `yaml:"name" toml:"name"`
	Description        string   `yaml:"description" toml:"description"`
	Enabled            *bool    `yaml:"enabled" toml:"enabled"`
	Keywords           []string `yaml:"keywords" toml:"keywords"`
	Rule               string   `yaml:"rule" toml:"rule"`
	Exceptions         []string `yaml:"exceptions" toml:"exceptions"`
	Exception          []string `yaml:"exception" toml:"exception"`
	Validation         string   `yaml:"validation" toml:"validation"`
	KeywordMaxDistance *uint64  `yaml:"keyword_max_distance" toml:"keyword_max_distance"`
	Tags               []string `yaml:"tags" toml:"tags"`
	Example            []string `yaml:"example" toml:"example"`
}

// ParseRule decodes one rule record.
func ParseRule(data []byte, format Format) (RawRule, error) {
	var rec ruleRecord

	var err error
	switch format {
	case FormatTOML:
		err = toml.Unmarshal(data, &rec)
	default:
		err = yaml.Unmarshal(data, &rec)
	}
	if err != nil {
		return RawRule{}, fmt.Errorf("decode: %w", err)
	}

	if strings.TrimSpace(rec.Name) == "" {
		return RawRule{}, fmt.Errorf("%w: name", ErrMissingField)
	}
	if rec.Rule == "" {
		return RawRule{}, fmt.Errorf("%w: rule", ErrMissingField)
	}

	exceptions := rec.Exceptions
	if rec.Exception != nil {
		exceptions = append(exceptions, rec.Exception...)
	}

	return RawRule{
		Name:               rec.Name,
		Description:        rec.Description,
		Enabled:            rec.Enabled,
		Keywords:           rec.Keywords,
		Rule:               rec.Rule,
		Exceptions:         exceptions,
		Validation:         rec.Validation,
		KeywordMaxDistance: rec.KeywordMaxDistance,
		Tags:               rec.Tags,
		Example:            rec.Example,
	}, nil
}
