package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"hotel-booking-backend/config"
)

func TestInit_SQLiteUsesOneConnection(t *testing.T) {
	testCases := []struct {
		name         string
		maxOpenConns int
	}{
		{name: "Pool left unset", maxOpenConns: 0},
		{name: "Larger pool requested", maxOpenConns: 10},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, err := Init(&config.DatabaseConfig{
				Driver:       "sqlite",
				DSN:          filepath.Join(t.TempDir(), "hotel.db"),
				MaxOpenConns: tc.maxOpenConns,
				LogLevel:     "silent",
			})
			require.NoError(t, err)

			sqlDB, err := gormDB.DB()
			require.NoError(t, err)
			t.Cleanup(func() { sqlDB.Close() })

			assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
			assert.True(t, gormDB.Migrator().HasTable("bookings"))
		})
	}
}

func TestInit_UnknownDriver(t *testing.T) {
	_, err := Init(&config.DatabaseConfig{Driver: "mysql"})
	assert.ErrorContains(t, err, `unsupported database driver "mysql"`)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, logLevel("SILENT"))
	assert.Equal(t, logger.Info, logLevel("info"))
	assert.Equal(t, logger.Warn, logLevel(""))
}
