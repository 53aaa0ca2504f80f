package database

import (
	"path/filepath"
	"testing"

	"anitrack-api/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestOpen_MigratesDocuments(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), zerolog.ErrorLevel)
	require.NoError(t, err)
	require.True(t, db.Migrator().HasTable(&models.Document{}))
}

func TestGormLogLevel(t *testing.T) {
	require.Equal(t, logger.Info, gormLogLevel(zerolog.DebugLevel))
	require.Equal(t, logger.Info, gormLogLevel(zerolog.TraceLevel))
	require.Equal(t, logger.Warn, gormLogLevel(zerolog.InfoLevel))
	require.Equal(t, logger.Error, gormLogLevel(zerolog.ErrorLevel))
	require.Equal(t, logger.Silent, gormLogLevel(zerolog.Disabled))
}
