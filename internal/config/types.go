package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Rule    RuleConfig    `yaml:"rule" mapstructure:"rule"`
	Rules   RulesConfig   `yaml:"rules" mapstructure:"rules"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Watch   WatchConfig   `yaml:"watch" mapstructure:"watch"`
}

// RuleConfig holds the process-wide rule compilation settings.
// It has no defaults: both keys must be present in the configuration source.
type RuleConfig struct {
	EnableKeywords            bool   `yaml:"enable_keywords" mapstructure:"enable_keywords"`
	KeywordMaxDistanceDefault uint64 `yaml:"keyword_max_distance_default" mapstructure:"keyword_max_distance_default"`
}

// RulesConfig locates the rule definitions
type RulesConfig struct {
	Directory       string `yaml:"directory" mapstructure:"directory"`
	IncludeDisabled bool   `yaml:"include_disabled" mapstructure:"include_disabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// ServerConfig contains HTTP catalog API configuration
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	RateLimit    struct {
		Enabled        bool `yaml:"enabled" mapstructure:"enabled"`
		RequestsPerMin int  `yaml:"requests_per_min" mapstructure:"requests_per_min"`
		Burst          int  `yaml:"burst" mapstructure:"burst"`
	} `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// CatalogConfig contains Redis catalog publisher configuration
type CatalogConfig struct {
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	TTL            time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
}

// WatchConfig controls `validate --watch`
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

// GetDefaults returns a configuration with defaults for every section except Rule
func GetDefaults() *Config {
	cfg := &Config{
		Rules: RulesConfig{
			Directory: "rules",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Catalog: CatalogConfig{
			RedisURL:       "redis://localhost:6379/0",
			KeyPrefix:      "whatis",
			TTL:            24 * time.Hour,
			MaxConnections: 10,
			MinIdleConns:   1,
		},
		Watch: WatchConfig{
			Debounce: 250 * time.Millisecond,
		},
	}
	cfg.Logging.File.Path = "logs/whatis.log"
	cfg.Server.RateLimit.Enabled = true
	cfg.Server.RateLimit.RequestsPerMin = 600
	cfg.Server.RateLimit.Burst = 20

	return cfg
}
