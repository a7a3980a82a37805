package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/raaihank/whatis/internal/lint"
	"github.com/raaihank/whatis/internal/rules"
	"github.com/raaihank/whatis/internal/validators"
	"github.com/raaihank/whatis/internal/watch"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func newValidateCmd(a *app) *cobra.Command {
	var (
		strict  bool
		watchFs bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Compile the rule directory and report problems",
		Long: `Build a rule registry from the configured rule directory and report
every source or compile error. Rules that compile are checked against their
examples and their validator names.

With --watch the rule directory is rebuilt into a fresh registry after every
change until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.log.Sync()

			out := cmd.OutOrStdout()
			opts := lint.Options{Strict: strict}

			reg, err := a.loadRegistry()
			ok := report(out, reg, err, opts)

			if !watchFs {
				if !ok {
					return ErrReported
				}
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return a.watchRules(ctx, out, opts)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat unknown validators as errors")
	cmd.Flags().BoolVarP(&watchFs, "watch", "w", false, "Re-validate whenever the rule directory changes")

	return cmd
}

// watchRules re-validates into a throwaway registry on every change
func (a *app) watchRules(ctx context.Context, out io.Writer, opts lint.Options) error {
	w, err := watch.New(a.cfg.Rules.Directory, a.cfg.Watch.Debounce, a.log)
	if err != nil {
		return err
	}

	return w.Run(ctx, func() {
		reg, err := a.build()
		if err != nil {
			a.log.LogError("Rule registry build failed", err)
		}
		report(out, reg, err, opts)
	})
}

// report prints the outcome of one build and reports whether it passed
func report(out io.Writer, reg *rules.Registry, err error, opts lint.Options) bool {
	if err != nil {
		errs := multierr.Errors(err)
		for _, e := range errs {
			fmt.Fprintf(out, "error: %v\n", e)
		}
		fmt.Fprintf(out, "FAIL: %d error(s)\n", len(errs))
		return false
	}

	findings := lint.Check(reg, validators.Default(), opts)
	for _, f := range findings {
		source := ""
		if f.Source != "" {
			source = " (" + f.Source + ")"
		}
		fmt.Fprintf(out, "%s: %s%s: %s\n", f.Severity, f.Rule, source, f.Message)
	}

	if lint.HasErrors(findings) {
		fmt.Fprintf(out, "FAIL: %d rules, %d finding(s)\n", reg.Len(), len(findings))
		return false
	}

	fmt.Fprintf(out, "OK: %d rules, fingerprint %s\n", reg.Len(), reg.Fingerprint())
	return true
}
