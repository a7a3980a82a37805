package rules

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/raaihank/whatis/internal/logger"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuild(t *testing.T) {
	t.Run("testdata directory", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		reg, err := Build(defaultSettings, Options{
			Fs:        afero.NewOsFs(),
			Directory: "testdata/rules",
			Logger:    logger.Wrap(zap.New(core)),
		})
		require.NoError(t, err)
		require.Equal(t, 2, reg.Len())

		id, ok := reg.Lookup("Chinese Mainland ID number")
		require.True(t, ok)
		assert.Len(t, id.Keywords, 4)
		assert.Len(t, id.Exceptions, 1)
		assert.True(t, id.Pattern.MatchString("身份证号码：372522197003231000"))

		card, ok := reg.Lookup("Payment card number")
		require.True(t, ok)
		assert.Equal(t, uint64(30), card.KeywordMaxDistance)
		assert.True(t, card.Pattern.MatchString("4111 1111 1111 1111"))

		_, ok = reg.Lookup("unknown")
		assert.False(t, ok)

		require.Equal(t, 1, logs.FilterMessage("Rule registry built").Len())
	})

	t.Run("one compiled rule per record", func(t *testing.T) {
		fsys := memRules(t, map[string]string{
			"a.yaml": "name: a\ndescription: first\nrule: '\\d{4}'\n",
			"b.yaml": "name: b\ndescription: second\nrule: '[a-z]+'\nkeywords: ['k']\n",
		})
		reg, err := Build(defaultSettings, Options{Fs: fsys, Directory: "rules"})
		require.NoError(t, err)

		rules := reg.Rules()
		require.Len(t, rules, 2)
		assert.Equal(t, "a", rules[0].Name)
		assert.Equal(t, "first", rules[0].Description)
		assert.Equal(t, uint64(30), rules[0].KeywordMaxDistance)
		assert.Empty(t, rules[0].Keywords)
		assert.Equal(t, "b", rules[1].Name)
		assert.Equal(t, "second", rules[1].Description)
		assert.Len(t, rules[1].Keywords, 1)
	})

	t.Run("invalid primary pattern names the rule", func(t *testing.T) {
		fsys := memRules(t, map[string]string{"a.yaml": "name: unbalanced\nrule: '(\\d{4}'\n"})
		reg, err := Build(defaultSettings, Options{Fs: fsys, Directory: "rules"})
		assert.Nil(t, reg)

		var compileErr *CompileError
		require.True(t, errors.As(err, &compileErr))
		assert.Equal(t, "unbalanced", compileErr.Rule)
		assert.Equal(t, FieldRule, compileErr.Field)
	})

	t.Run("one invalid exception fails everything", func(t *testing.T) {
		fsys := memRules(t, map[string]string{
			"good.yaml": "name: good\nrule: '\\d+'\n",
			"bad.yaml":  "name: bad\nrule: '\\d+'\nexceptions: ['(unclosed']\n",
		})
		reg, err := Build(defaultSettings, Options{Fs: fsys, Directory: "rules"})
		require.Error(t, err)
		assert.Nil(t, reg)

		var compileErr *CompileError
		require.True(t, errors.As(err, &compileErr))
		assert.Equal(t, "bad", compileErr.Rule)
		assert.Equal(t, FieldExceptions, compileErr.Field)
		assert.Equal(t, "rules/bad.yaml", compileErr.Source)
	})

	t.Run("all compile errors are reported", func(t *testing.T) {
		fsys := memRules(t, map[string]string{
			"a.yaml": "name: a\nrule: '('\n",
			"b.yaml": "name: b\nrule: ok\n",
			"c.yaml": "name: c\nrule: ok\nkeywords: ['[']\n",
		})
		_, err := Build(defaultSettings, Options{Fs: fsys, Directory: "rules"})
		require.Error(t, err)

		errs := multierr.Errors(err)
		require.Len(t, errs, 2)
		assert.Contains(t, errs[0].Error(), `"a"`)
		assert.Contains(t, errs[1].Error(), `"c"`)
	})

	t.Run("source errors stop the build", func(t *testing.T) {
		fsys := memRules(t, map[string]string{"a.yaml": "name: a\n"})
		_, err := Build(defaultSettings, Options{Fs: fsys, Directory: "rules"})

		var loadErr *SourceLoadError
		require.True(t, errors.As(err, &loadErr))
		assert.Equal(t, "rules/a.yaml", loadErr.Path)
	})

	t.Run("disabled rules", func(t *testing.T) {
		fsys := memRules(t, map[string]string{
			"a.yaml": "name: a\nrule: a\nenabled: false\n",
			"b.yaml": "name: b\nrule: b\nenabled: true\n",
			"c.yaml": "name: c\nrule: c\n",
		})

		reg, err := Build(defaultSettings, Options{Fs: fsys, Directory: "rules"})
		require.NoError(t, err)
		assert.Equal(t, 2, reg.Len())
		_, ok := reg.Lookup("a")
		assert.False(t, ok)

		reg, err = Build(defaultSettings, Options{Fs: fsys, Directory: "rules", IncludeDisabled: true})
		require.NoError(t, err)
		assert.Equal(t, 3, reg.Len())
		a, ok := reg.Lookup("a")
		require.True(t, ok)
		assert.False(t, a.Enabled)
	})

	t.Run("disabled rules are still validated", func(t *testing.T) {
		fsys := memRules(t, map[string]string{"a.yaml": "name: a\nrule: '('\nenabled: false\n"})
		_, err := Build(defaultSettings, Options{Fs: fsys, Directory: "rules"})
		var compileErr *CompileError
		assert.True(t, errors.As(err, &compileErr))
	})
}

func TestRegistryAccessors(t *testing.T) {
	reg, err := New([]RawRule{
		{Name: "dup", Rule: "first"},
		{Name: "dup", Rule: "second"},
	}, defaultSettings, false)
	require.NoError(t, err)

	rule, ok := reg.Lookup("dup")
	require.True(t, ok)
	assert.Equal(t, "first", rule.Pattern.String())

	rules := reg.Rules()
	rules[0] = nil
	assert.NotNil(t, reg.Rules()[0])

	assert.Equal(t, defaultSettings, reg.Settings())
}

func TestFingerprint(t *testing.T) {
	raws := []RawRule{{Name: "a", Rule: `\d+`, Keywords: []string{"k"}, Source: "one/a.yaml"}}
	moved := []RawRule{{Name: "a", Rule: `\d+`, Keywords: []string{"k"}, Source: "two/a.yaml"}}

	first, err := New(raws, defaultSettings, false)
	require.NoError(t, err)
	second, err := New(moved, defaultSettings, false)
	require.NoError(t, err)
	assert.Len(t, first.Fingerprint(), 64)
	assert.Equal(t, first.Fingerprint(), second.Fingerprint())

	noKeywords, err := New(raws, Settings{KeywordMaxDistanceDefault: 30}, false)
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint(), noKeywords.Fingerprint())

	otherDistance, err := New(raws, Settings{EnableKeywords: true, KeywordMaxDistanceDefault: 31}, false)
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint(), otherDistance.Fingerprint())
}

func TestLazy(t *testing.T) {
	t.Run("concurrent first access builds once", func(t *testing.T) {
		var builds atomic.Int32
		release := make(chan struct{})
		lazy := NewLazy(func() (*Registry, error) {
			builds.Add(1)
			<-release
			return New([]RawRule{{Name: "a", Rule: "a"}}, defaultSettings, false)
		})

		const callers = 32
		results := make([]*Registry, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				reg, err := lazy.Get()
				assert.NoError(t, err)
				results[i] = reg
			}(i)
		}
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), builds.Load())
		for _, reg := range results {
			require.NotNil(t, reg)
			assert.Same(t, results[0], reg)
		}
	})

	t.Run("failure is shared", func(t *testing.T) {
		var builds atomic.Int32
		lazy := NewLazy(func() (*Registry, error) {
			builds.Add(1)
			return New([]RawRule{{Name: "bad", Rule: "("}}, defaultSettings, false)
		})

		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				reg, err := lazy.Get()
				assert.Nil(t, reg)
				errs[i] = err
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), builds.Load())
		for _, err := range errs {
			require.Error(t, err)
			assert.Equal(t, errs[0], err)
		}
	})

	t.Run("panic becomes an error", func(t *testing.T) {
		lazy := NewLazy(func() (*Registry, error) { panic("boom") })
		reg, err := lazy.Get()
		assert.Nil(t, reg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")

		_, again := lazy.Get()
		assert.Equal(t, err, again)
	})
}
