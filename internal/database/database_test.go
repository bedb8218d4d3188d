package database

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

type probe struct {
	ID        uint `gorm:"primaryKey"`
	Name      string
	CreatedAt time.Time
}

func TestConnect_SQLiteMigrateAndQuery(t *testing.T) {
	db, err := Connect("file:database_test?mode=memory&cache=shared", zerolog.Nop())
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, Migrate(db, &probe{}))
	require.NoError(t, db.Create(&probe{Name: "ok"}).Error)

	var got probe
	require.NoError(t, db.First(&got).Error)
	assert.Equal(t, "ok", got.Name)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestIsPostgres(t *testing.T) {
	assert.True(t, IsPostgres("postgres://u:p@localhost/db"))
	assert.True(t, IsPostgres("postgresql://localhost/db"))
	assert.False(t, IsPostgres("scormhub.db"))
	assert.False(t, IsPostgres("file::memory:"))
}

func TestGormLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, gormLevel(zerolog.DebugLevel))
	assert.Equal(t, gormlogger.Warn, gormLevel(zerolog.InfoLevel))
	assert.Equal(t, gormlogger.Error, gormLevel(zerolog.ErrorLevel))
	assert.Equal(t, gormlogger.Silent, gormLevel(zerolog.Disabled))
}
