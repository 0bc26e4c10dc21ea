package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"nurseconnect.org/internal/migrate"
	migrations "nurseconnect.org/ops/migrations"
)

type options struct {
	dsn            string
	migrationsPath string
	seedsPath      string
	timeout        time.Duration
}

func main() {
	opts := &options{}
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply NurseConnect schema migrations and seeds",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", os.Getenv("DATABASE_URL"), "PostgreSQL DSN")
	root.PersistentFlags().StringVar(&opts.migrationsPath, "migrations", "", "directory of SQL migrations (default: embedded)")
	root.PersistentFlags().StringVar(&opts.seedsPath, "seeds", "", "directory of SQL seeds (default: embedded)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall deadline")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: withManager(opts, func(ctx context.Context, m *migrate.Manager) error {
				applied, err := m.Up(ctx)
				for _, name := range applied {
					fmt.Println("applied", name)
				}
				if err == nil && len(applied) == 0 {
					fmt.Println("up to date")
				}
				return err
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert the latest migration",
			RunE: withManager(opts, func(ctx context.Context, m *migrate.Manager) error {
				name, err := m.Down(ctx)
				if errors.Is(err, migrate.ErrNothingApplied) {
					fmt.Println("nothing to revert")
					return nil
				}
				if err == nil {
					fmt.Println("reverted", name)
				}
				return err
			}),
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Load seed data",
			RunE: withManager(opts, func(ctx context.Context, m *migrate.Manager) error {
				seeded, err := m.Seed(ctx)
				for _, name := range seeded {
					fmt.Println("seeded", name)
				}
				return err
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied migrations",
			RunE: withManager(opts, func(ctx context.Context, m *migrate.Manager) error {
				history, err := m.Status(ctx)
				if err != nil {
					return err
				}
				for _, item := range history {
					fmt.Printf("%s\t%s\n", item.AppliedAt.Format(time.RFC3339), item.Name)
				}
				return nil
			}),
		},
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func withManager(opts *options, fn func(context.Context, *migrate.Manager) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if opts.dsn == "" {
			return errors.New("missing DSN: provide via --dsn or DATABASE_URL")
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
		defer cancel()

		db, err := sql.Open("pgx", opts.dsn)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()

		return fn(ctx, migrate.NewManager(db, source(opts.migrationsPath, migrations.SQL()), source(opts.seedsPath, migrations.Seeds())))
	}
}

func source(dir string, embedded fs.FS) fs.FS {
	if dir == "" {
		return embedded
	}
	return os.DirFS(dir)
}
