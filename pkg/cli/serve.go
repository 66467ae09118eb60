package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	httpctrl "github.com/secmon-lab/threadsync/pkg/controller/http"
	"github.com/secmon-lab/threadsync/pkg/service/worker"
	"github.com/secmon-lab/threadsync/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var apiToken string
	var interval time.Duration
	var cfg appConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("THREADSYNC_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "api-token",
			Usage:       "Bearer token required on /api endpoints (no authentication when empty)",
			Category:    "Authentication",
			Sources:     cli.EnvVars("THREADSYNC_API_TOKEN"),
			Destination: &apiToken,
		},
		&cli.DurationFlag{
			Name:        "interval",
			Usage:       "Run the batch periodically at this interval (disabled when 0)",
			Sources:     cli.EnvVars("THREADSYNC_INTERVAL"),
			Destination: &interval,
		},
	}
	flags = append(flags, cfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server triggering sync runs",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := cfg.build(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			var batchWorker *worker.BatchSyncWorker
			if interval > 0 {
				batchWorker = worker.NewBatchSyncWorker(a.uc, a.owner, a.repo, interval)
				if err := batchWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start batch sync worker")
				}
			}

			var httpOpts []httpctrl.Options
			if apiToken != "" {
				httpOpts = append(httpOpts, httpctrl.WithAPIToken(apiToken))
			} else {
				logging.Default().Warn("API token not configured, /api endpoints are unauthenticated")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(a.uc, a.owner, a.repo, httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr, "interval", interval)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				if batchWorker != nil {
					batchWorker.Stop()
				}
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				if batchWorker != nil {
					batchWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
