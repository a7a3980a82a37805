package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/raaihank/whatis/internal/catalog"
	"github.com/spf13/cobra"
)

func newPublishCmd(a *app) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the rule catalog to Redis",
		Long: `Build the rule registry and replace the catalog stored in Redis with its
rule summaries and fingerprint. Nothing is written if the build fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.log.Sync()

			reg, err := a.loadRegistry()
			if err != nil {
				return err
			}

			publisher, err := catalog.NewPublisher(a.cfg.Catalog, a.log.WithComponent("catalog").Logger)
			if err != nil {
				return err
			}
			defer publisher.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if err := publisher.Publish(ctx, reg); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "published %d rules under %q, fingerprint %s\n",
				reg.Len(), a.cfg.Catalog.KeyPrefix, reg.Fingerprint())
			return nil
		},
	}

	cmd.Flags().String("redis-url", "", "Redis URL (overrides catalog.redis_url)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Publish timeout")

	return cmd
}
