package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T, cfg Config) *Config {
	t.Helper()
	cfg.Path = filepath.Join(t.TempDir(), "library.db")
	return &cfg
}

func TestDSN(t *testing.T) {
	dsn, err := Config{Driver: DriverModernc, Path: "x.db"}.DSN()
	require.NoError(t, err)
	assert.Contains(t, dsn, "_pragma=foreign_keys(1)")
	assert.Contains(t, dsn, "_txlock=immediate")

	dsn, err = Config{Driver: DriverMattn, Path: "x.db"}.DSN()
	require.NoError(t, err)
	assert.Contains(t, dsn, "_foreign_keys=on")
	assert.Contains(t, dsn, "_busy_timeout=5000")

	_, err = Config{Driver: "mysql", Path: "x.db"}.DSN()
	assert.Error(t, err)
}

func TestOpenRequiresMigratedSchema(t *testing.T) {
	cfg := openTemp(t, Config{Driver: DriverModernc})

	_, err := Open(context.Background(), *cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaOutdated))

	cfg.AutoMigrate = true
	db, err := Open(context.Background(), *cfg)
	require.NoError(t, err)
	defer db.Close()

	v, err := SchemaVersion(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v)
}

func TestMigrateIsIdempotent(t *testing.T) {
	cfg := openTemp(t, Config{Driver: DriverModernc, AutoMigrate: true})
	db, err := Open(context.Background(), *cfg)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(context.Background(), db))
	require.NoError(t, RequireSchema(context.Background(), db))
}

func TestMattnDriverSharesSchema(t *testing.T) {
	cfg := openTemp(t, Config{Driver: DriverMattn, AutoMigrate: true})
	db, err := Open(context.Background(), *cfg)
	if err != nil && strings.Contains(err.Error(), "CGO_ENABLED=0") {
		t.Skip("go-sqlite3 needs cgo")
	}
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`INSERT INTO books(title, price, stock) VALUES('x', 1, 1)`)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE books SET stock = -1`)
	assert.Error(t, err, "stock CHECK constraint must hold")
}

func TestSeedOnlyFillsEmptyCatalog(t *testing.T) {
	cfg := openTemp(t, Config{Driver: DriverModernc, AutoMigrate: true})
	db, err := Open(context.Background(), *cfg)
	require.NoError(t, err)
	defer db.Close()

	n, err := Seed(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, len(seedBooks), n)

	n, err = Seed(context.Background(), db)
	require.NoError(t, err)
	assert.Zero(t, n)

	var customers int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM customers`).Scan(&customers))
	assert.Equal(t, 1, customers)
}

func TestConstraintHelpers(t *testing.T) {
	cfg := openTemp(t, Config{Driver: DriverModernc, AutoMigrate: true})
	db, err := Open(context.Background(), *cfg)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`INSERT INTO authors(name) VALUES('A')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO authors(name) VALUES('A')`)
	assert.True(t, IsUniqueViolation(err))

	_, err = db.Exec(`INSERT INTO customers(user_id) VALUES(999)`)
	assert.True(t, IsForeignKeyViolation(err))
	assert.False(t, IsUniqueViolation(nil))
}
