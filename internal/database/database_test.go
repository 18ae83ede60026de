package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-chatstats/internal/config"
)

func TestOpen_SQLiteFileAppliesPragmas(t *testing.T) {
	cfg := &config.Config{
		DBDriver:    config.DriverSQLite,
		DatabaseDSN: filepath.Join(t.TempDir(), "history.db"),
	}

	db, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	var mode string
	require.NoError(t, db.Raw("PRAGMA journal_mode").Scan(&mode).Error)
	assert.Equal(t, "wal", mode)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestOpen_InMemory(t *testing.T) {
	db, err := Open(&config.Config{DBDriver: config.DriverSQLite, DatabaseDSN: ":memory:"})
	require.NoError(t, err)
	assert.NoError(t, Close(db))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(&config.Config{DBDriver: "oracle", DatabaseDSN: "x"})
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestIsMemoryDSN(t *testing.T) {
	assert.True(t, isMemoryDSN(":memory:"))
	assert.True(t, isMemoryDSN("file:test?mode=memory&cache=shared"))
	assert.False(t, isMemoryDSN("history.db"))
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, Close(nil))
}
