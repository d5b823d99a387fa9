package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahinestrog/librarymanager/internal/storage"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestMigrateSeedStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.db")

	out, err := run(t, "seed", "--db", path, "--driver", storage.DriverModernc)
	require.Error(t, err, "seeding needs a migrated schema")
	assert.ErrorIs(t, err, storage.ErrSchemaOutdated)
	assert.Contains(t, err.Error(), "librarydb migrate")
	assert.Empty(t, out)

	out, err = run(t, "status", "--db", path, "--driver", storage.DriverModernc)
	require.NoError(t, err)
	assert.Contains(t, out, "v0, v1 pending")

	out, err = run(t, "migrate", "--db", path, "--driver", storage.DriverModernc)
	require.NoError(t, err)
	assert.Contains(t, out, "migrated schema v0 -> v1")

	out, err = run(t, "migrate", "--db", path, "--driver", storage.DriverModernc)
	require.NoError(t, err)
	assert.Contains(t, out, "schema already at v1")

	out, err = run(t, "seed", "--db", path, "--driver", storage.DriverModernc)
	require.NoError(t, err)
	assert.Regexp(t, `seeded \d+ books`, out)

	out, err = run(t, "seed", "--db", path, "--driver", storage.DriverModernc)
	require.NoError(t, err)
	assert.Contains(t, out, "nothing seeded")

	out, err = run(t, "status", "--db", path, "--driver", storage.DriverModernc)
	require.NoError(t, err)
	assert.Contains(t, out, "v1 (current)")
	assert.Regexp(t, `books\s+\d+`, out)
	assert.Regexp(t, `orders\s+0`, out)
}

func TestStatusMissingFile(t *testing.T) {
	_, err := run(t, "status", "--db", filepath.Join(t.TempDir(), "nope.db"))
	assert.Error(t, err)
}

func TestRejectsUnknownDriver(t *testing.T) {
	_, err := run(t, "migrate", "--db", filepath.Join(t.TempDir(), "x.db"), "--driver", "postgres")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported DB_DRIVER")
}
