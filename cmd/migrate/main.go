package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"smartlotto.org/internal/config"
	"smartlotto.org/internal/migrate"
	"smartlotto.org/internal/obs"
)

func main() {
	var (
		dsn            string
		migrationsPath string
		seedsPath      string
		timeout        time.Duration
		asJSON         bool
		mgr            *migrate.Manager
		db             *sql.DB
	)

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply schema migrations and seed data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = config.LoadEnvFile(".env")
			if dsn == "" {
				dsn = firstEnv("STORAGE_DSN", "DATABASE_URL")
			}
			if dsn == "" {
				return errors.New("missing DSN: provide --dsn or STORAGE_DSN")
			}
			var err error
			db, err = sql.Open("pgx", dsn)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			logger := obs.Init(obs.LogConfig{Env: "dev", Level: "info", Service: "migrate"})
			mgr = migrate.NewManager(db, migrationsPath, seedsPath, migrate.WithLogger(logger))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if db != nil {
				return db.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN (env STORAGE_DSN)")
	root.PersistentFlags().StringVar(&migrationsPath, "migrations", envOr("MIGRATIONS_DIR", "ops/migrations/sql"), "path to SQL migrations")
	root.PersistentFlags().StringVar(&seedsPath, "seeds", envOr("SEEDS_DIR", "ops/migrations/seeds"), "path to SQL seeds")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout")

	withTimeout := func(cmd *cobra.Command) (context.Context, context.CancelFunc) {
		return context.WithTimeout(cmd.Context(), timeout)
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := withTimeout(cmd)
				defer cancel()
				ran, err := mgr.Up(ctx)
				if err != nil {
					return err
				}
				obs.Logger().Info("migrations complete", zap.Int("applied", len(ran)))
				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := withTimeout(cmd)
				defer cancel()
				_, err := mgr.Down(ctx)
				return err
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Apply pending seed files",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := withTimeout(cmd)
				defer cancel()
				ran, err := mgr.Seed(ctx)
				if err != nil {
					return err
				}
				obs.Logger().Info("seeds complete", zap.Int("applied", len(ran)))
				return nil
			},
		},
	)

	status := &cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			list, err := mgr.Status(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			for _, m := range list {
				state := "pending"
				if m.Applied {
					state = "applied " + m.AppliedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-40s %s\n", m.Name, state)
			}
			return nil
		},
	}
	status.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	root.AddCommand(status)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
