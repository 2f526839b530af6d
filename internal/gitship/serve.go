package gitship

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gitship/gitship/internal/api"
	"github.com/gitship/gitship/internal/constants"
	"github.com/gitship/gitship/internal/metrics"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// inconsistencySyncInterval bounds how long the gauge lags a resolve or failed rollback
// made by another gitship process.
const inconsistencySyncInterval = 30 * time.Second

func ServeCmd(flags *rootFlags) *cobra.Command {
	var listenFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the deployment API",
		Long: fmt.Sprintf(`Serve the deployment HTTP API and Prometheus metrics.

Requests other than /health and /metrics need the bearer token from %s.`, constants.EnvVarAPIToken),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token := os.Getenv(constants.EnvVarAPIToken)
			if token == "" {
				return fmt.Errorf("%s must be set to serve the API", constants.EnvVarAPIToken)
			}

			m := metrics.New()
			a, err := newApp(flags, m)
			if err != nil {
				return err
			}
			defer a.Close()

			listen := a.cfg.API.GetListen()
			if listenFlag != "" {
				listen = listenFlag
			}
			limit, burst := a.cfg.API.GetRateLimit()

			server := api.NewServer(api.Options{
				Machine:      a.machine,
				Environments: a.registry,
				History:      a.history,
				Metrics:      m.Handler(),
				APIToken:     token,
				RateLimit:    limit,
				Burst:        burst,
				Logger:       a.logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return server.ListenAndServe(gctx, listen)
			})
			g.Go(func() error {
				watchInconsistency(gctx, m, a.registry.Names(), a.states, inconsistencySyncInterval, a.logger)
				return nil
			})

			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&listenFlag, "listen", "", "Listen address (default: api.listen from the config or "+constants.DefaultAPIListenAddress+")")
	return cmd
}

// watchInconsistency seeds the inconsistency gauge from the database and keeps it in sync
// until ctx is done. Sync failures are logged and retried on the next tick.
func watchInconsistency(ctx context.Context, m *metrics.Metrics, envs []string, src metrics.InconsistencySource, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := m.SyncInconsistency(context.WithoutCancel(ctx), envs, src); err != nil {
			logger.Warn("failed to sync inconsistency gauge", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
