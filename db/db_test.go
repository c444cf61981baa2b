package db

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeMySQLDSN(t *testing.T) {
	dsn, err := normalizeMySQLDSN("jot:secret@tcp(localhost:3306)/jot")
	require.NoError(t, err)
	require.Contains(t, dsn, "parseTime=true")

	_, err = normalizeMySQLDSN("not a dsn")
	require.Error(t, err)
}

func TestMigrationsEmbedded(t *testing.T) {
	for _, dir := range []string{"migrations/mysql", "migrations/postgres"} {
		ups, err := fs.Glob(migrations, dir+"/*.up.sql")
		require.NoError(t, err)
		downs, err := fs.Glob(migrations, dir+"/*.down.sql")
		require.NoError(t, err)
		require.NotEmpty(t, ups, dir)
		require.Len(t, downs, len(ups), dir)
	}
}

func TestMigrate_UnknownDriver(t *testing.T) {
	require.Error(t, Migrate(nil, "sqlite"))
}
