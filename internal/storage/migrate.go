package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema_v1.sql
var schemaV1 string

// Schema versions, tracked in PRAGMA user_version:
// 1 - users, customers, authors, categories, books, orders, order_items, reviews
const CurrentSchemaVersion = 1

var ErrSchemaOutdated = errors.New("database schema is not migrated")

var migrations = []string{
	1: schemaV1,
}

func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

// Migrate applies every pending migration; it is safe to run repeatedly.
func Migrate(ctx context.Context, db *sql.DB) error {
	version, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	for v := version + 1; v <= CurrentSchemaVersion; v++ {
		if err := applyMigration(ctx, db, v); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v, err)
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, v int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
		return err
	}
	// PRAGMA does not take bind parameters
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
		return err
	}
	return tx.Commit()
}

func RequireSchema(ctx context.Context, db *sql.DB) error {
	v, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if v < CurrentSchemaVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrSchemaOutdated, v, CurrentSchemaVersion)
	}
	return nil
}
