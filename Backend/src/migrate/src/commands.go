package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ahinestrog/librarymanager/internal/storage"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	DB      storage.Config
	Timeout time.Duration
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{DB: storage.ConfigFromEnv()}

	cmd := &cobra.Command{
		Use:           "librarydb",
		Short:         "Manage the library database",
		Long:          "Apply schema migrations, load the starter catalog and report the state of the shared SQLite database.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DB.Path, "db", opts.DB.Path, "database file (DB_PATH)")
	cmd.PersistentFlags().StringVar(&opts.DB.Driver, "driver", opts.DB.Driver, "sqlite driver: sqlite or sqlite3 (DB_DRIVER)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "give up after this long")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	return cmd
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the schema to the current version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			db, err := storage.Connect(ctx, opts.DB)
			if err != nil {
				return err
			}
			defer db.Close()

			before, err := storage.SchemaVersion(ctx, db)
			if err != nil {
				return err
			}
			if err := storage.Migrate(ctx, db); err != nil {
				return err
			}
			if before >= storage.CurrentSchemaVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "schema already at v%d\n", before)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated schema v%d -> v%d\n", before, storage.CurrentSchemaVersion)
			return nil
		},
	}
}

func newSeedCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the starter catalog into an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			db, err := storage.Open(ctx, opts.DB)
			if errors.Is(err, storage.ErrSchemaOutdated) {
				return fmt.Errorf("%w (run `librarydb migrate` first)", err)
			}
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := storage.Seed(ctx, db)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "catalog not empty, nothing seeded")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %s books\n", humanize.Comma(int64(n)))
			return nil
		},
	}
}

// Status is what `librarydb status` reports.
type Status struct {
	Path          string
	Size          uint64
	Modified      time.Time
	SchemaVersion int
	Rows          map[string]int64
}

var statusTables = []string{"books", "authors", "categories", "users", "customers", "orders", "order_items", "reviews"}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show schema version, file size and row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			st, err := readStatus(ctx, opts.DB)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func readStatus(ctx context.Context, cfg storage.Config) (Status, error) {
	fi, err := os.Stat(cfg.Path)
	if err != nil {
		return Status{}, fmt.Errorf("database file: %w", err)
	}
	st := Status{Path: cfg.Path, Size: uint64(fi.Size()), Modified: fi.ModTime()}

	db, err := storage.Connect(ctx, cfg)
	if err != nil {
		return Status{}, err
	}
	defer db.Close()

	if st.SchemaVersion, err = storage.SchemaVersion(ctx, db); err != nil {
		return Status{}, err
	}
	if st.SchemaVersion < storage.CurrentSchemaVersion {
		return st, nil
	}
	st.Rows = make(map[string]int64, len(statusTables))
	for _, table := range statusTables {
		var n int64
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return Status{}, fmt.Errorf("count %s: %w", table, err)
		}
		st.Rows[table] = n
	}
	return st, nil
}

func printStatus(w io.Writer, st Status) {
	fmt.Fprintf(w, "database: %s (%s, modified %s)\n", st.Path, humanize.Bytes(st.Size), humanize.Time(st.Modified))
	if st.SchemaVersion < storage.CurrentSchemaVersion {
		fmt.Fprintf(w, "schema:   v%d, v%d pending\n", st.SchemaVersion, storage.CurrentSchemaVersion)
		return
	}
	fmt.Fprintf(w, "schema:   v%d (current)\n", st.SchemaVersion)
	for _, table := range statusTables {
		fmt.Fprintf(w, "  %-12s %s\n", table, humanize.Comma(st.Rows[table]))
	}
}
