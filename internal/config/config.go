package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strings"
	"sync"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Configuration errors. Both are fatal: no rule can compile without valid
// rule settings.
var (
	// ErrConfigMissing indicates the configuration source could not be found.
	ErrConfigMissing = errors.New("configuration missing")
	// ErrConfigInvalid indicates a malformed or incomplete configuration source.
	ErrConfigInvalid = errors.New("configuration invalid")
)

// requiredKeys must be set explicitly; they have no defaults.
var requiredKeys = []string{
	"rule.enable_keywords",
	"rule.keyword_max_distance_default",
}

// flagBindings maps config keys to CLI flag names. A flag overrides the
// config file only when it was set on the command line.
var flagBindings = map[string]string{
	"rules.directory":   "rules-dir",
	"logging.level":     "log-level",
	"logging.format":    "log-format",
	"server.port":       "port",
	"catalog.redis_url": "redis-url",
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	return load(configPath, nil)
}

func load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	config := GetDefaults()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/whatis/")
	v.AddConfigPath("$HOME/.whatis/")

	v.SetEnvPrefix("WHATIS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrConfigMissing, err)
		}
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrConfigInvalid, err)
	}

	if flags != nil {
		for key, name := range flagBindings {
			if f := flags.Lookup(name); f != nil && f.Changed {
				v.Set(key, f.Value.String())
			}
		}
	}

	for _, key := range requiredKeys {
		if !v.IsSet(key) {
			return nil, fmt.Errorf("%w: %s is required in %s", ErrConfigInvalid, key, v.ConfigFileUsed())
		}
	}

	if err := checkDistanceDefault(v.Get("rule.keyword_max_distance_default")); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal config: %v", ErrConfigInvalid, err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	return config, nil
}

// checkDistanceDefault rejects values the loose decoder would wrap around
// or truncate into a uint64.
func checkDistanceDefault(raw interface{}) error {
	if f, ok := raw.(float64); ok && f != math.Trunc(f) {
		return fmt.Errorf("rule.keyword_max_distance_default must be an integer, got %v", raw)
	}

	n, err := cast.ToInt64E(raw)
	if err != nil {
		return fmt.Errorf("rule.keyword_max_distance_default must be an integer, got %v", raw)
	}
	if n < 0 {
		return fmt.Errorf("rule.keyword_max_distance_default must not be negative, got %d", n)
	}
	return nil
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if strings.TrimSpace(config.Rules.Directory) == "" {
		return errors.New("rules directory must not be empty")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Server.RateLimit.Enabled && config.Server.RateLimit.RequestsPerMin <= 0 {
		return fmt.Errorf("invalid rate limit: %d requests per minute", config.Server.RateLimit.RequestsPerMin)
	}

	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	if config.Catalog.TTL < 0 {
		return fmt.Errorf("invalid catalog ttl: %s", config.Catalog.TTL)
	}

	return nil
}

// Provider loads the configuration once, on first access, and hands the
// same result (or the same error) to every caller.
type Provider struct {
	path  string
	flags *pflag.FlagSet

	once sync.Once
	cfg  *Config
	err  error
}

// NewProvider creates a provider for the given config path. flags may be nil.
func NewProvider(configPath string, flags *pflag.FlagSet) *Provider {
	return &Provider{path: configPath, flags: flags}
}

// Get returns the loaded configuration. The returned value must not be modified.
func (p *Provider) Get() (*Config, error) {
	p.once.Do(func() {
		p.cfg, p.err = load(p.path, p.flags)
	})
	return p.cfg, p.err
}
