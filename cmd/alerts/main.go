// Command alerts runs the Yard Goats weekend game alert job.
//
// Usage:
//
//	yardgoats-alerts run
//	yardgoats-alerts run --dry-run
//	yardgoats-alerts run --date 2026-04-05
//	yardgoats-alerts serve
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/yardgoats-tracker/internal/alerts"
	"github.com/albapepper/yardgoats-tracker/internal/api"
	"github.com/albapepper/yardgoats-tracker/internal/config"
	"github.com/albapepper/yardgoats-tracker/internal/maintenance"
	"github.com/albapepper/yardgoats-tracker/internal/schedule"
	"github.com/albapepper/yardgoats-tracker/internal/store"
	"github.com/albapepper/yardgoats-tracker/internal/transport"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

// errNothingDelivered makes the process exit non-zero when a run had
// failures and no successes.
var errNothingDelivered = errors.New("alert run failed: no deliveries succeeded")

func main() {
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "yardgoats-alerts",
		Short:         "Yard Goats weekend game alerts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(runCmd())
	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// run command
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	var (
		dryRun bool
		date   string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send alerts for qualifying games five days out",
		Long: `Run one alert pass: check schedule freshness, find home weekend games
five days after the run date and text/email every active recipient once per
game and channel.

Exits non-zero only when at least one delivery failed and none succeeded.

--dry-run renders every message without contacting providers or touching the
delivery ledger. Its sent counts therefore include recipients a real run
would skip as already alerted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := alerts.RunOptions{DryRun: dryRun}
			if date != "" {
				today, err := schedule.ParseDate(date)
				if err != nil {
					return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
				}
				opts.Today = today
			}

			return withEngine(func(ctx context.Context, cfg *config.Config, st store.Store, engine *alerts.Engine) error {
				stats, err := engine.Run(ctx, opts)
				if err != nil {
					return err
				}
				fmt.Println(stats.Summary())
				if stats.ShouldFail() {
					return errNothingDelivered
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Render messages without sending or recording deliveries")
	cmd.Flags().StringVar(&date, "date", "", "Run as if today were this date (YYYY-MM-DD, UTC)")
	return cmd
}

// --------------------------------------------------------------------------
// serve command
// --------------------------------------------------------------------------

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run alerts daily and serve the status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(ctx context.Context, cfg *config.Config, st store.Store, engine *alerts.Engine) error {
				go maintenance.Start(ctx, engine, st, maintenance.FromConfig(cfg), logger)

				router := api.NewRouter(st, engine, cfg)
				addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
				srv := &http.Server{
					Addr:         addr,
					Handler:      router,
					ReadTimeout:  10 * time.Second,
					WriteTimeout: 30 * time.Second,
					IdleTimeout:  60 * time.Second,
				}

				errCh := make(chan error, 1)
				go func() {
					logger.Info("Starting status API", "addr", addr, "store", cfg.StoreDriver)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						errCh <- err
					}
				}()

				select {
				case <-ctx.Done():
				case err := <-errCh:
					return fmt.Errorf("server failed: %w", err)
				}
				logger.Info("Shutting down...")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Error("Shutdown error", "error", err)
				}
				logger.Info("Server stopped")
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// withEngine handles config loading, store opening, transport wiring and
// context cancellation.
func withEngine(fn func(ctx context.Context, cfg *config.Config, st store.Store, engine *alerts.Engine) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	sms, email := transport.NewFromConfig(cfg, logger)
	engine := alerts.NewEngine(alerts.EngineConfig{
		Store:    st,
		SMS:      sms,
		Email:    email,
		TeamName: cfg.TeamName,
		Logger:   logger,
	})

	return fn(ctx, cfg, st, engine)
}
