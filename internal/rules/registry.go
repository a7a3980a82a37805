package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"

	"github.com/raaihank/whatis/internal/logger"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Options configures Build.
type Options struct {
	// Fs defaults to the OS filesystem.
	Fs        afero.Fs
	Directory string
	// IncludeDisabled keeps records with enabled: false in the registry.
	// Disabled records are compiled either way.
	IncludeDisabled bool
	Logger          *logger.Logger
}

// Registry is an immutable, ordered collection of compiled rules.
// It is safe for concurrent use.
type Registry struct {
	rules       []*CompiledRule
	settings    Settings
	fingerprint string
}

// Build loads every rule file in opts.Directory and compiles it.
//
// A source that fails to load stops the build immediately. Compilation runs
// over every record and reports all failures together; no registry is
// returned unless every record compiled.
func Build(settings Settings, opts Options) (*Registry, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Wrap(nil)
	}

	loader := &Loader{Fs: opts.Fs, Logger: log}
	raws, err := loader.Load(opts.Directory)
	if err != nil {
		return nil, err
	}

	reg, err := New(raws, settings, opts.IncludeDisabled)
	if err != nil {
		return nil, err
	}

	log.Info("Rule registry built",
		zap.String("directory", opts.Directory),
		zap.Int("sources", len(raws)),
		zap.Int("rules", reg.Len()),
		zap.Bool("keywords_enabled", settings.EnableKeywords),
		zap.String("fingerprint", reg.Fingerprint()),
	)

	return reg, nil
}

// New compiles raws into a registry, in order.
func New(raws []RawRule, settings Settings, includeDisabled bool) (*Registry, error) {
	compiled := make([]*CompiledRule, 0, len(raws))

	var errs error
	for _, raw := range raws {
		rule, err := Compile(raw, settings)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if !rule.Enabled && !includeDisabled {
			continue
		}
		compiled = append(compiled, rule)
	}
	if errs != nil {
		return nil, errs
	}

	return &Registry{
		rules:       compiled,
		settings:    settings,
		fingerprint: fingerprint(compiled),
	}, nil
}

// Rules returns the compiled rules in load order. The slice is a copy; the
// rules themselves are shared and must not be modified.
func (r *Registry) Rules() []*CompiledRule {
	return slices.Clone(r.rules)
}

// Len returns the number of rules.
func (r *Registry) Len() int {
	return len(r.rules)
}

// Lookup returns the first rule with the given name.
func (r *Registry) Lookup(name string) (*CompiledRule, bool) {
	for _, rule := range r.rules {
		if rule.Name == name {
			return rule, true
		}
	}
	return nil, false
}

// Settings returns the settings the registry was compiled with.
func (r *Registry) Settings() Settings {
	return r.settings
}

// Fingerprint identifies the compiled content of the registry. Registries
// compiled from the same rules with the same settings share a fingerprint.
func (r *Registry) Fingerprint() string {
	return r.fingerprint
}

// fingerprintEntry is the canonical form of one rule for hashing. Source
// paths are left out so the value does not depend on where rules live.
type fingerprintEntry struct {
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	Pattern            string   `json:"pattern"`
	Keywords           []string `json:"keywords"`
	Exceptions         []string `json:"exceptions"`
	Validation         string   `json:"validation"`
	KeywordMaxDistance uint64   `json:"keyword_max_distance"`
	Enabled            bool     `json:"enabled"`
}

func fingerprint(rules []*CompiledRule) string {
	hasher := sha256.New()
	enc := json.NewEncoder(hasher)
	for _, rule := range rules {
		// encoding a struct of strings and ints cannot fail
		_ = enc.Encode(fingerprintEntry{
			Name:               rule.Name,
			Description:        rule.Description,
			Pattern:            rule.Pattern.String(),
			Keywords:           PatternStrings(rule.Keywords),
			Exceptions:         PatternStrings(rule.Exceptions),
			Validation:         rule.Validation,
			KeywordMaxDistance: rule.KeywordMaxDistance,
			Enabled:            rule.Enabled,
		})
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
