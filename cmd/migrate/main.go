package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"communities.ooo/internal/migrate"
)

var (
	dsn     string
	table   string
	timeout time.Duration

	rootCmd = &cobra.Command{
		Use:          "migrate",
		Short:        "Apply the communities PostgreSQL schema",
		SilenceUsage: true,
	}

	upCmd = &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: withManager(func(ctx context.Context, cmd *cobra.Command, m *migrate.Manager) error {
			applied, err := m.Up(ctx)
			for _, name := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), "applied", name)
			}
			if err == nil && len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to apply")
			}
			return err
		}),
	}

	downCmd = &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: withManager(func(ctx context.Context, cmd *cobra.Command, m *migrate.Manager) error {
			name, err := m.Down(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "reverted", name)
			return nil
		}),
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		RunE: withManager(func(ctx context.Context, cmd *cobra.Command, m *migrate.Manager) error {
			status, err := m.Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range status {
				mark := "pending"
				if s.Applied {
					mark = "applied"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", mark, s.Name)
			}
			return nil
		}),
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", os.Getenv("COMMUNITIES_PG_DSN"), "PostgreSQL DSN (defaults to COMMUNITIES_PG_DSN)")
	rootCmd.PersistentFlags().StringVar(&table, "table", "", "migrations bookkeeping table")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "overall deadline")
	rootCmd.AddCommand(upCmd, downCmd, statusCmd)
}

func withManager(run func(context.Context, *cobra.Command, *migrate.Manager) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if dsn == "" {
			return errors.New("missing DSN: provide via --dsn or COMMUNITIES_PG_DSN")
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()
		return run(ctx, cmd, migrate.NewManager(db, migrate.WithMigrationsTable(table)))
	}
}

func main() {
	log.SetFlags(0)
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
}
