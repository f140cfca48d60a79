package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mediakeep/mediakeep/internal/watchstatus/repository"
)

// Migration represents a database migration
type Migration struct {
	ID        uint      `gorm:"primaryKey"`
	Version   string    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// MigrationFunc is a function that performs a migration
type MigrationFunc func(*gorm.DB) error

// MigrationEntry represents a single migration
type MigrationEntry struct {
	Version string
	Name    string
	Up      MigrationFunc
}

// Migrator handles database migrations
type Migrator struct {
	db         *gorm.DB
	migrations []MigrationEntry
}

// NewMigrator creates a new migrator instance
func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{
		db:         db,
		migrations: getAllMigrations(),
	}
}

// Migrate runs all pending migrations
func (m *Migrator) Migrate() error {
	if err := m.db.AutoMigrate(&Migration{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var appliedMigrations []Migration
	if err := m.db.Find(&appliedMigrations).Error; err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	applied := make(map[string]bool)
	for _, migration := range appliedMigrations {
		applied[migration.Version] = true
	}

	for _, migration := range m.migrations {
		if applied[migration.Version] {
			continue
		}

		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return err
			}

			return tx.Create(&Migration{
				Version:   migration.Version,
				Name:      migration.Name,
				AppliedAt: time.Now(),
			}).Error
		})
		if err != nil {
			return fmt.Errorf("failed to run migration %s: %w", migration.Version, err)
		}
	}

	return nil
}

// GetPendingMigrations returns a list of pending migrations
func (m *Migrator) GetPendingMigrations() ([]MigrationEntry, error) {
	var appliedMigrations []Migration
	if err := m.db.Find(&appliedMigrations).Error; err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	applied := make(map[string]bool)
	for _, migration := range appliedMigrations {
		applied[migration.Version] = true
	}

	var pending []MigrationEntry
	for _, migration := range m.migrations {
		if !applied[migration.Version] {
			pending = append(pending, migration)
		}
	}

	return pending, nil
}

// getAllMigrations returns all migrations in order
func getAllMigrations() []MigrationEntry {
	return []MigrationEntry{
		{
			Version: "20250301_001",
			Name:    "Create catalog and watch status schema",
			Up:      migration001CreateSchema,
		},
		{
			Version: "20250301_002",
			Name:    "Add watch status indexes",
			Up:      migration002AddIndexes,
		},
	}
}

// migration001CreateSchema creates the catalog and per-profile status tables
func migration001CreateSchema(tx *gorm.DB) error {
	if err := tx.AutoMigrate(
		&repository.Profile{},
		&repository.Show{},
		&repository.Season{},
		&repository.Episode{},
		&repository.Movie{},
		&repository.ShowWatchStatus{},
		&repository.SeasonWatchStatus{},
		&repository.EpisodeWatchStatus{},
		&repository.MovieWatchStatus{},
	); err != nil {
		return fmt.Errorf("failed to migrate watch status models: %w", err)
	}
	return nil
}

// migration002AddIndexes adds lookup indexes used by the cascade queries
func migration002AddIndexes(tx *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_episodes_season_air_date ON episodes(season_id, air_date)",
		"CREATE INDEX IF NOT EXISTS idx_seasons_show ON seasons(show_id)",
		"CREATE INDEX IF NOT EXISTS idx_episode_statuses_profile_status ON episode_watch_statuses(profile_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_show_statuses_profile_status ON show_watch_statuses(profile_id, status)",
	}

	for _, index := range indexes {
		if err := tx.Exec(index).Error; err != nil {
			if !isAlreadyExistsError(err) {
				return fmt.Errorf("failed to create index: %w", err)
			}
		}
	}

	return nil
}

// isAlreadyExistsError checks if the error is due to the object already existing
func isAlreadyExistsError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "already exists") || strings.Contains(errStr, "duplicate key")
}
