package service

import (
	"context"

	"github.com/mediakeep/mediakeep/internal/watchstatus/domain"
)

// AchievementHook receives committed status changes so achievement progress
// can be evaluated. Hook failures never fail the triggering update; the
// service logs them and moves on.
type AchievementHook interface {
	OnStatusChanges(ctx context.Context, profileID int64, changes []domain.StatusChange) error
}

// Service is the orchestration surface for watch-status updates.
type Service interface {
	UpdateEpisodeWatchStatus(ctx context.Context, profileID, episodeID int64, status domain.Status) (*domain.StatusUpdateResult, error)
	UpdateSeasonWatchStatus(ctx context.Context, profileID, seasonID int64, status domain.Status) (*domain.StatusUpdateResult, error)
	UpdateShowWatchStatus(ctx context.Context, profileID, showID int64, status domain.Status) (*domain.StatusUpdateResult, error)
	UpdateMovieWatchStatus(ctx context.Context, profileID, movieID int64, status domain.Status) (*domain.StatusUpdateResult, error)

	CheckAndUpdateSeasonWatchStatus(ctx context.Context, profileID, seasonID int64) (*domain.StatusUpdateResult, error)
	CheckAndUpdateShowWatchStatus(ctx context.Context, profileID, showID int64) (*domain.StatusUpdateResult, error)

	HandleNewContent(ctx context.Context, profileID int64, showIDs []int64) (*domain.StatusUpdateResult, error)

	InitializeShowStatuses(ctx context.Context, profileID, showID int64) (int64, error)
	InitializeMovieStatus(ctx context.Context, profileID, movieID int64) error
}
