package repository

import (
	"time"

	"github.com/mediakeep/mediakeep/internal/watchstatus/domain"
)

// Profile represents a viewing profile within an account.
type Profile struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	AccountID int64  `gorm:"not null;index"`
	Name      string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Show represents a series in the shared catalog.
type Show struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Title        string `gorm:"not null;index"`
	FirstAirDate *time.Time
	InProduction bool `gorm:"default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Relationships
	Seasons []Season `gorm:"foreignKey:ShowID;constraint:OnDelete:CASCADE"`
}

// Season represents one season of a show.
type Season struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	ShowID       int64 `gorm:"not null;index"`
	SeasonNumber int   `gorm:"not null"`
	Title        string
	AirDate      *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Relationships
	Show     Show      `gorm:"foreignKey:ShowID"`
	Episodes []Episode `gorm:"foreignKey:SeasonID;constraint:OnDelete:CASCADE"`
}

// Episode represents one episode of a season. A nil AirDate counts as
// aired for derivation purposes.
type Episode struct {
	ID            int64 `gorm:"primaryKey;autoIncrement"`
	SeasonID      int64 `gorm:"not null;index"`
	ShowID        int64 `gorm:"not null;index"`
	EpisodeNumber int   `gorm:"not null"`
	Title         string
	AirDate       *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Relationships
	Season Season `gorm:"foreignKey:SeasonID"`
}

// Movie represents a standalone movie in the shared catalog.
type Movie struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Title       string `gorm:"not null;index"`
	ReleaseDate *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ShowWatchStatus is a profile's status row for one show.
type ShowWatchStatus struct {
	ID        int64         `gorm:"primaryKey;autoIncrement"`
	ProfileID int64         `gorm:"not null;uniqueIndex:idx_show_status_profile_show"`
	ShowID    int64         `gorm:"not null;uniqueIndex:idx_show_status_profile_show;index"`
	Status    domain.Status `gorm:"type:varchar(20);not null;default:'NOT_WATCHED'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SeasonWatchStatus is a profile's status row for one season.
type SeasonWatchStatus struct {
	ID        int64         `gorm:"primaryKey;autoIncrement"`
	ProfileID int64         `gorm:"not null;uniqueIndex:idx_season_status_profile_season"`
	SeasonID  int64         `gorm:"not null;uniqueIndex:idx_season_status_profile_season;index"`
	Status    domain.Status `gorm:"type:varchar(20);not null;default:'NOT_WATCHED'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EpisodeWatchStatus is a profile's status row for one episode.
type EpisodeWatchStatus struct {
	ID        int64         `gorm:"primaryKey;autoIncrement"`
	ProfileID int64         `gorm:"not null;uniqueIndex:idx_episode_status_profile_episode"`
	EpisodeID int64         `gorm:"not null;uniqueIndex:idx_episode_status_profile_episode;index"`
	Status    domain.Status `gorm:"type:varchar(20);not null;default:'NOT_WATCHED'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MovieWatchStatus is a profile's status row for one movie.
type MovieWatchStatus struct {
	ID        int64         `gorm:"primaryKey;autoIncrement"`
	ProfileID int64         `gorm:"not null;uniqueIndex:idx_movie_status_profile_movie"`
	MovieID   int64         `gorm:"not null;uniqueIndex:idx_movie_status_profile_movie;index"`
	Status    domain.Status `gorm:"type:varchar(20);not null;default:'NOT_WATCHED'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName customizations.
func (Profile) TableName() string {
	return "profiles"
}

func (Show) TableName() string {
	return "shows"
}

func (Season) TableName() string {
	return "seasons"
}

func (Episode) TableName() string {
	return "episodes"
}

func (Movie) TableName() string {
	return "movies"
}

func (ShowWatchStatus) TableName() string {
	return "show_watch_statuses"
}

func (SeasonWatchStatus) TableName() string {
	return "season_watch_statuses"
}

func (EpisodeWatchStatus) TableName() string {
	return "episode_watch_statuses"
}

func (MovieWatchStatus) TableName() string {
	return "movie_watch_statuses"
}
