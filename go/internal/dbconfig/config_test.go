package dbconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "games")

	cfg := NewConfigFromEnv()
	assert.Equal(t, "postgres://postgres:postgres@db:6543/games?sslmode=disable", cfg.DSN())

	dsn, err := cfg.DataSource()
	require.NoError(t, err)
	assert.Equal(t, cfg.DSN(), dsn)
}

func TestDataSource(t *testing.T) {
	cfg := Config{Driver: DriverSQLite, SQLitePath: "/tmp/x.db"}
	dsn, err := cfg.DataSource()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", dsn)

	t.Setenv("DB_PORT", "not-a-port")
	assert.Equal(t, 5432, NewConfigFromEnv().Port)

	_, err = Config{Driver: "oracle"}.DataSource()
	assert.Error(t, err)
}
