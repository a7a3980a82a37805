package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u64(v uint64) *uint64 { return &v }

var defaultSettings = Settings{EnableKeywords: true, KeywordMaxDistanceDefault: 30}

func TestCompile(t *testing.T) {
	t.Run("default distance without keywords", func(t *testing.T) {
		rule, err := Compile(RawRule{Name: "digits", Description: "four digits", Rule: `\d{4}`}, defaultSettings)
		require.NoError(t, err)

		assert.Equal(t, "digits", rule.Name)
		assert.Equal(t, "four digits", rule.Description)
		assert.Equal(t, `\d{4}`, rule.Pattern.String())
		assert.True(t, rule.Pattern.MatchString("pin 1234"))
		assert.Empty(t, rule.Keywords)
		assert.Empty(t, rule.Exceptions)
		assert.Equal(t, uint64(30), rule.KeywordMaxDistance)
		assert.True(t, rule.Enabled)
	})

	t.Run("explicit distance wins", func(t *testing.T) {
		rule, err := Compile(RawRule{Name: "x", Rule: "x", KeywordMaxDistance: u64(5)}, defaultSettings)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), rule.KeywordMaxDistance)

		rule, err = Compile(RawRule{Name: "x", Rule: "x", KeywordMaxDistance: u64(0)}, defaultSettings)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), rule.KeywordMaxDistance)
	})

	t.Run("keywords compiled in order when enabled", func(t *testing.T) {
		rule, err := Compile(RawRule{Name: "id", Rule: `\d{18}`, Keywords: []string{"(?i)id", "身份证"}}, defaultSettings)
		require.NoError(t, err)
		assert.Equal(t, []string{"(?i)id", "身份证"}, PatternStrings(rule.Keywords))
	})

	t.Run("keywords dropped when disabled", func(t *testing.T) {
		settings := Settings{EnableKeywords: false, KeywordMaxDistanceDefault: 30}
		rule, err := Compile(RawRule{Name: "id", Rule: `\d{18}`, Keywords: []string{"a", "b", "c"}}, settings)
		require.NoError(t, err)
		assert.Empty(t, rule.Keywords)
	})

	t.Run("keywords not compiled when disabled", func(t *testing.T) {
		settings := Settings{EnableKeywords: false}
		_, err := Compile(RawRule{Name: "id", Rule: `\d`, Keywords: []string{"("}}, settings)
		assert.NoError(t, err)
	})

	t.Run("exceptions compiled regardless of keyword toggle", func(t *testing.T) {
		settings := Settings{EnableKeywords: false}
		rule, err := Compile(RawRule{Name: "id", Rule: `\d`, Exceptions: []string{"employee", "staff"}}, settings)
		require.NoError(t, err)
		assert.Equal(t, []string{"employee", "staff"}, PatternStrings(rule.Exceptions))
	})

	t.Run("metadata carried through", func(t *testing.T) {
		raw := RawRule{
			Name:       "id",
			Rule:       `\d`,
			Validation: "chinese_mainland_id_number",
			Tags:       []string{"identity"},
			Example:    []string{"1"},
			Source:     "rules/id.yaml",
			Enabled:    new(bool),
		}
		rule, err := Compile(raw, defaultSettings)
		require.NoError(t, err)
		assert.Equal(t, "chinese_mainland_id_number", rule.Validation)
		assert.Equal(t, []string{"identity"}, rule.Tags)
		assert.Equal(t, []string{"1"}, rule.Examples)
		assert.Equal(t, "rules/id.yaml", rule.Source)
		assert.False(t, rule.Enabled)

		raw.Tags[0] = "mutated"
		assert.Equal(t, "identity", rule.Tags[0])
	})
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name      string
		raw       RawRule
		settings  Settings
		wantField string
		wantIndex int
		wantText  string
	}{
		{
			name:      "unbalanced primary pattern",
			raw:       RawRule{Name: "broken", Rule: `(\d{4}`},
			settings:  defaultSettings,
			wantField: FieldRule,
			wantIndex: -1,
			wantText:  `(\d{4}`,
		},
		{
			name:      "second keyword invalid",
			raw:       RawRule{Name: "kw", Rule: `\d`, Keywords: []string{"ok", "[a-", "(never"}},
			settings:  defaultSettings,
			wantField: FieldKeywords,
			wantIndex: 1,
			wantText:  "[a-",
		},
		{
			name:      "exception invalid with keywords disabled",
			raw:       RawRule{Name: "ex", Rule: `\d`, Exceptions: []string{"*bad"}},
			settings:  Settings{},
			wantField: FieldExceptions,
			wantIndex: 0,
			wantText:  "*bad",
		},
		{
			name:      "lookahead is not supported",
			raw:       RawRule{Name: "look", Rule: `\d(?=x)`},
			settings:  defaultSettings,
			wantField: FieldRule,
			wantIndex: -1,
			wantText:  `\d(?=x)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := Compile(tt.raw, tt.settings)
			assert.Nil(t, rule)

			var compileErr *CompileError
			require.True(t, errors.As(err, &compileErr))
			assert.Equal(t, tt.raw.Name, compileErr.Rule)
			assert.Equal(t, tt.wantField, compileErr.Field)
			assert.Equal(t, tt.wantIndex, compileErr.Index)
			assert.Equal(t, tt.wantText, compileErr.Pattern)
			assert.NotNil(t, compileErr.Unwrap())
			assert.Contains(t, err.Error(), tt.raw.Name)
			assert.Contains(t, err.Error(), tt.wantText)
		})
	}
}
