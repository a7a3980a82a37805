package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raaihank/whatis/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the rule catalog over HTTP",
		Long: `Build the rule registry and serve a read-only view of it over HTTP.
The command exits before listening if any rule fails to load or compile.`,
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

			a.log.Info("Starting whatis",
				zap.String("version", version),
				zap.String("commit", commit),
				zap.String("build_date", date),
				zap.Int("port", a.cfg.Server.Port),
			)

			srv := server.New(a.cfg, reg, a.log, version)

			serverErrors := make(chan error, 1)
			go func() {
				serverErrors <- srv.Start()
			}()

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(shutdown)

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				a.log.Error("Server error", zap.Error(err))
				return err
			case sig := <-shutdown:
				a.log.Info("Shutdown signal received", zap.String("signal", sig.String()))

				// Give outstanding requests 30 seconds to complete
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := srv.Stop(ctx); err != nil {
					a.log.Error("Failed to shutdown server gracefully", zap.Error(err))
					return err
				}

				a.log.Info("Server shutdown complete")
				return nil
			}
		},
	}

	cmd.Flags().Int("port", 0, "Port to listen on (overrides server.port)")

	return cmd
}
