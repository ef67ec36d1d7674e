// Command admin manages alert recipients.
//
// Usage:
//
//	yardgoats-admin add --name "Jane" --phone "+18605551234" --email "jane@example.com"
//	yardgoats-admin list [--all]
//	yardgoats-admin remove --id 3
//	yardgoats-admin restore --id 3
//	yardgoats-admin status
//	yardgoats-admin seed --date 2026-04-10 --opponent "Portland Sea Dogs" --promo "giveaway:Cowboy Hat"
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/yardgoats-tracker/internal/config"
	"github.com/albapepper/yardgoats-tracker/internal/store"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "yardgoats-admin",
		Short:         "Yard Goats alert recipient management",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(addCmd())
	root.AddCommand(listCmd())
	root.AddCommand(setActiveCmd("remove", "Deactivate a recipient (soft delete)", false))
	root.AddCommand(setActiveCmd("restore", "Re-activate a deactivated recipient", true))
	root.AddCommand(statusCmd())
	root.AddCommand(seedCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

func addCmd() *cobra.Command {
	var name, phone, email string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a recipient",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st store.Store) error {
				return addRecipient(ctx, cmd.OutOrStdout(), st, name, phone, email)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Recipient display name")
	cmd.Flags().StringVar(&phone, "phone", "", "E.164 phone number e.g. +18605551234")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func listCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recipients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st store.Store) error {
				return listRecipients(ctx, cmd.OutOrStdout(), st, all)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include inactive recipients")
	return cmd
}

func setActiveCmd(use, short string, active bool) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st store.Store) error {
				return setActive(ctx, cmd.OutOrStdout(), st, id, active)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "Recipient id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show system status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st store.Store) error {
				return printStatus(ctx, cmd.OutOrStdout(), st)
			})
		},
	}
}

func seedCmd() *cobra.Command {
	var seed gameSeed
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Add or update a game and its promotions by hand",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st store.Store) error {
				return seedGame(ctx, cmd.OutOrStdout(), st, seed, time.Now())
			})
		},
	}
	cmd.Flags().StringVar(&seed.Date, "date", "", "Game date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&seed.Opponent, "opponent", "", "Opposing team")
	cmd.Flags().StringVar(&seed.StartTime, "time", "", "First pitch e.g. 6:05 PM")
	cmd.Flags().StringVar(&seed.TicketURL, "ticket-url", "", "Ticket link for this game")
	cmd.Flags().BoolVar(&seed.Away, "away", false, "Mark as an away game")
	cmd.Flags().StringArrayVar(&seed.Promos, "promo", nil, "Promotion as type:description (repeatable)")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("opponent")
	return cmd
}

// withStore handles config loading, store opening and context cancellation.
func withStore(fn func(ctx context.Context, st store.Store) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("Failed to close store", "error", err)
		}
	}()

	return fn(ctx, st)
}
