package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// Auto-migrate the schema
	err = db.AutoMigrate(
		&Profile{},
		&Show{},
		&Season{},
		&Episode{},
		&Movie{},
		&ShowWatchStatus{},
		&SeasonWatchStatus{},
		&EpisodeWatchStatus{},
		&MovieWatchStatus{},
	)
	require.NoError(t, err)

	return db
}
