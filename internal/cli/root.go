// Package cli implements the whatis command line.
package cli

import (
	"errors"
	"fmt"

	"github.com/raaihank/whatis/internal/config"
	"github.com/raaihank/whatis/internal/logger"
	"github.com/raaihank/whatis/internal/rules"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Build information, set with -ldflags at release time.
var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// ErrReported is returned when a command already printed why it failed.
var ErrReported = errors.New("command failed")

// app holds the state shared by every subcommand of one invocation.
type app struct {
	configPath string

	cfg      *config.Config
	log      *logger.Logger
	registry *rules.Lazy
	fs       afero.Fs
}

// NewRootCmd creates the whatis command tree
func NewRootCmd() *cobra.Command {
	a := &app{fs: afero.NewOsFs()}

	root := &cobra.Command{
		Use:   "whatis",
		Short: "Compile and serve sensitive-data detection rules",
		Long: `whatis compiles sensitive-data detection rules (regular expressions with
keyword and exception constraints) into an immutable registry. It validates
rule sets, serves them over a read-only HTTP API and publishes them to Redis
for scanners running elsewhere.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Path to configuration file")
	pf.String("rules-dir", "", "Rule directory (overrides rules.directory)")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	pf.String("log-format", "", "Log format: json or console")

	root.AddCommand(
		newVersionCmd(),
		newServeCmd(a),
		newValidateCmd(a),
		newRulesCmd(a),
		newPublishCmd(a),
	)

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "whatis %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

// setup loads configuration and the logger and prepares the registry. The
// registry itself is built on first use.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.NewProvider(a.configPath, cmd.Flags()).Get()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	a.log = log
	a.registry = rules.NewLazy(a.build)

	log.Debug("Configuration loaded",
		zap.String("command", cmd.Name()),
		zap.String("rules_dir", cfg.Rules.Directory),
		zap.Bool("keywords_enabled", cfg.Rule.EnableKeywords),
		zap.Uint64("keyword_max_distance_default", cfg.Rule.KeywordMaxDistanceDefault),
	)

	return nil
}

// build compiles a fresh registry from the configured rule directory
func (a *app) build() (*rules.Registry, error) {
	return rules.Build(settingsFrom(a.cfg), rules.Options{
		Fs:              a.fs,
		Directory:       a.cfg.Rules.Directory,
		IncludeDisabled: a.cfg.Rules.IncludeDisabled,
		Logger:          a.log.WithComponent("rules"),
	})
}

// loadRegistry returns the process registry, logging every failure
func (a *app) loadRegistry() (*rules.Registry, error) {
	reg, err := a.registry.Get()
	if err != nil {
		a.log.LogError("Rule registry build failed", err)
		return nil, err
	}
	return reg, nil
}

func settingsFrom(cfg *config.Config) rules.Settings {
	return rules.Settings{
		EnableKeywords:            cfg.Rule.EnableKeywords,
		KeywordMaxDistanceDefault: cfg.Rule.KeywordMaxDistanceDefault,
	}
}
