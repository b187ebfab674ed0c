package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "chat.db?_busy_timeout=5000&_journal_mode=WAL", sqliteDSN("chat.db"))
	assert.Equal(t, "file::memory:?cache=shared", sqliteDSN("file::memory:?cache=shared"))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, parseLogLevel("SILENT"))
	assert.Equal(t, logger.Info, parseLogLevel("info"))
	assert.Equal(t, logger.Warn, parseLogLevel(""))
}

func TestNew_SQLite(t *testing.T) {
	db, err := New(&Config{Driver: "sqlite", FilePath: filepath.Join(t.TempDir(), "nested", "chat.db"), LogLevel: "silent"})
	require.NoError(t, err)

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
	assert.NoError(t, Close(db))
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New(&Config{Driver: "oracle"})
	assert.Error(t, err)
}
