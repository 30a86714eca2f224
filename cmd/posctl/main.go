// Command posctl runs maintenance tasks against the configured database and
// Redis: schema migration, demo seeding, password hashing and DLQ inspection.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"posadmin/internal/config"
	"posadmin/internal/infra"
	"posadmin/internal/seed"
	"posadmin/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "posctl",
		Short:        "POS back office maintenance",
		SilenceUsage: true,
	}
	root.AddCommand(migrateCmd(), seedCmd(), hashCmd(), dlqCmd())
	return root
}

// migrateCmd is a no-op beyond opening the database: NewDatabase migrates.
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if _, err := infra.NewDatabase(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info().Msg("schema up to date")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert the main branch and one user per role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if password == "" {
				password = cfg.DefaultSeederPassword
			}
			db, err := infra.NewDatabase(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			return seed.Run(cmd.Context(), db, password)
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password for every seeded user (default DEFAULT_SEEDER_PASSWORD)")
	return cmd
}

func hashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <password>",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := bcrypt.GenerateFromPassword([]byte(args[0]), 12)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(h))
			return nil
		},
	}
}

func dlqCmd() *cobra.Command {
	dlq := &cobra.Command{Use: "dlq", Short: "Inspect or replay dead email jobs"}

	var limit int64
	list := &cobra.Command{
		Use:   "list",
		Short: "Print parked jobs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			rdb, err := infra.NewRedis(cfg.RedisURL)
			if err != nil {
				return err
			}
			defer rdb.Close()
			entries, err := worker.DLQEntries(cmd.Context(), rdb, worker.QueueEmail, limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		},
	}
	list.Flags().Int64Var(&limit, "limit", 20, "maximum entries to print")

	requeue := &cobra.Command{
		Use:   "requeue",
		Short: "Move every parked job back onto the email queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			rdb, err := infra.NewRedis(cfg.RedisURL)
			if err != nil {
				return err
			}
			defer rdb.Close()
			n, err := worker.Requeue(cmd.Context(), rdb, worker.QueueEmail)
			if err != nil {
				return err
			}
			log.Info().Int("jobs", n).Msg("requeued")
			return nil
		},
	}

	dlq.AddCommand(list, requeue)
	return dlq
}
