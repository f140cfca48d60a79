package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mediakeep/mediakeep/internal/watchstatus/domain"
	"github.com/mediakeep/mediakeep/internal/watchstatus/repository"
	"github.com/mediakeep/mediakeep/pkg/errors"
	"github.com/mediakeep/mediakeep/pkg/interfaces"
)

// WatchStatusService orchestrates watch-status cascades: it delegates the
// transactional work to the repository, then handles cache invalidation,
// the achievement hook, event publication and result messages.
type WatchStatusService struct {
	repo        repository.CascadeRepository
	eventBus    interfaces.EventBus
	invalidator interfaces.ProfileCacheInvalidator
	hook        AchievementHook
	logger      interfaces.Logger
}

// NewWatchStatusService creates a new watch status service. The invalidator
// and hook may be nil when the deployment carries neither.
func NewWatchStatusService(
	repo repository.CascadeRepository,
	eventBus interfaces.EventBus,
	invalidator interfaces.ProfileCacheInvalidator,
	hook AchievementHook,
	logger interfaces.Logger,
) *WatchStatusService {
	return &WatchStatusService{
		repo:        repo,
		eventBus:    eventBus,
		invalidator: invalidator,
		hook:        hook,
		logger:      logger,
	}
}

// UpdateEpisodeWatchStatus marks one episode and propagates upward.
func (s *WatchStatusService) UpdateEpisodeWatchStatus(ctx context.Context, profileID, episodeID int64, status domain.Status) (*domain.StatusUpdateResult, error) {
	result, err := s.repo.UpdateEpisodeWatchStatus(ctx, profileID, episodeID, status)
	return s.finalize(ctx, profileID, domain.EntityEpisode, result, err)
}

// UpdateSeasonWatchStatus sets a season and rewrites its episodes.
func (s *WatchStatusService) UpdateSeasonWatchStatus(ctx context.Context, profileID, seasonID int64, status domain.Status) (*domain.StatusUpdateResult, error) {
	result, err := s.repo.UpdateSeasonWatchStatus(ctx, profileID, seasonID, status)
	return s.finalize(ctx, profileID, domain.EntitySeason, result, err)
}

// UpdateShowWatchStatus sets a show and rewrites everything under it.
func (s *WatchStatusService) UpdateShowWatchStatus(ctx context.Context, profileID, showID int64, status domain.Status) (*domain.StatusUpdateResult, error) {
	result, err := s.repo.UpdateShowWatchStatus(ctx, profileID, showID, status)
	return s.finalize(ctx, profileID, domain.EntityShow, result, err)
}

// UpdateMovieWatchStatus sets a movie's status.
func (s *WatchStatusService) UpdateMovieWatchStatus(ctx context.Context, profileID, movieID int64, status domain.Status) (*domain.StatusUpdateResult, error) {
	result, err := s.repo.UpdateMovieWatchStatus(ctx, profileID, movieID, status)
	return s.finalize(ctx, profileID, domain.EntityMovie, result, err)
}

// CheckAndUpdateSeasonWatchStatus reconciles a season against its episodes.
func (s *WatchStatusService) CheckAndUpdateSeasonWatchStatus(ctx context.Context, profileID, seasonID int64) (*domain.StatusUpdateResult, error) {
	result, err := s.repo.CheckAndUpdateSeasonWatchStatus(ctx, profileID, seasonID)
	result, err = s.finalize(ctx, profileID, domain.EntitySeason, result, err)
	if err == nil && len(result.Changes) == 0 {
		result.Message = "Season status is already correct"
	}
	return result, err
}

// CheckAndUpdateShowWatchStatus reconciles a show against its seasons.
func (s *WatchStatusService) CheckAndUpdateShowWatchStatus(ctx context.Context, profileID, showID int64) (*domain.StatusUpdateResult, error) {
	result, err := s.repo.CheckAndUpdateShowWatchStatus(ctx, profileID, showID)
	result, err = s.finalize(ctx, profileID, domain.EntityShow, result, err)
	if err == nil && len(result.Changes) == 0 {
		result.Message = "Show status is already correct"
	}
	return result, err
}

// HandleNewContent reacts to fresh episodes arriving for the given shows:
// shows the profile had fully watched flip back to WATCHING, and a
// new-content event is published for the ones that flipped.
func (s *WatchStatusService) HandleNewContent(ctx context.Context, profileID int64, showIDs []int64) (*domain.StatusUpdateResult, error) {
	result, err := s.repo.UpdateShowWatchStatusForNewContent(ctx, profileID, showIDs)
	result, err = s.finalize(ctx, profileID, domain.EntityShow, result, err)
	if err != nil || len(result.Changes) == 0 {
		return result, err
	}

	flipped := make([]int64, 0, len(result.Changes))
	for _, change := range result.Changes {
		flipped = append(flipped, change.EntityID)
	}
	s.eventBus.PublishAsync(ctx, domain.NewNewContentDetectedEvent(profileID, flipped))
	return result, nil
}

// InitializeShowStatuses creates the status rows for a newly favorited show
// and returns how many were created.
func (s *WatchStatusService) InitializeShowStatuses(ctx context.Context, profileID, showID int64) (int64, error) {
	created, err := s.repo.InitializeShowStatusRows(ctx, profileID, showID)
	if err != nil {
		s.logger.Error("failed to initialize show status rows",
			interfaces.Int64("profile_id", profileID),
			interfaces.Int64("show_id", showID),
			interfaces.Error(err))
		return 0, err
	}
	s.logger.Info("show status rows initialized",
		interfaces.Int64("profile_id", profileID),
		interfaces.Int64("show_id", showID),
		interfaces.Int64("created", created))
	return created, nil
}

// InitializeMovieStatus creates the status row for a newly favorited movie.
func (s *WatchStatusService) InitializeMovieStatus(ctx context.Context, profileID, movieID int64) error {
	if err := s.repo.InitializeMovieStatusRow(ctx, profileID, movieID); err != nil {
		s.logger.Error("failed to initialize movie status row",
			interfaces.Int64("profile_id", profileID),
			interfaces.Int64("movie_id", movieID),
			interfaces.Error(err))
		return err
	}
	return nil
}

// finalize applies the post-commit pipeline to a cascade outcome. A failed
// result becomes a CONFLICT error. A committed result gets its summary
// message, and if anything changed: cache invalidation when a show or movie
// moved, the achievement hook, and an async event.
func (s *WatchStatusService) finalize(ctx context.Context, profileID int64, entity domain.EntityType, result *domain.StatusUpdateResult, err error) (*domain.StatusUpdateResult, error) {
	if err != nil {
		s.logger.Error("watch status update failed",
			interfaces.Int64("profile_id", profileID),
			interfaces.String("entity_type", string(entity)),
			interfaces.Error(err))
		return nil, err
	}
	if !result.Success {
		return nil, errors.Conflict(fmt.Sprintf("failed to update %s watch status", entity))
	}

	result.Message = summarize(result.Changes)
	if len(result.Changes) == 0 {
		return result, nil
	}

	// Season and episode rows are not part of any cached profile view, so
	// only show or movie transitions invalidate.
	if result.HasChangeFor(domain.EntityShow) || result.HasChangeFor(domain.EntityMovie) {
		if s.invalidator != nil {
			if err := s.invalidator.InvalidateProfile(ctx, profileID); err != nil {
				s.logger.Warn("profile cache invalidation failed",
					interfaces.Int64("profile_id", profileID),
					interfaces.Error(err))
			}
		}
	}

	if s.hook != nil {
		if err := s.hook.OnStatusChanges(ctx, profileID, result.Changes); err != nil {
			s.logger.Warn("achievement hook failed",
				interfaces.Int64("profile_id", profileID),
				interfaces.Error(err))
		}
	}

	s.eventBus.PublishAsync(ctx, domain.NewStatusChangesAppliedEvent(profileID, result.Changes))

	s.logger.Info("watch status changes applied",
		interfaces.Int64("profile_id", profileID),
		interfaces.Int("changes", len(result.Changes)),
		interfaces.Int64("affected_rows", result.AffectedRows))
	return result, nil
}

// summarize renders a human-readable description of a change set, e.g.
// "Updated status for 1 show, 2 seasons, 10 episodes".
func summarize(changes []domain.StatusChange) string {
	if len(changes) == 0 {
		return "No status changes occurred"
	}

	counts := map[domain.EntityType]int{}
	for _, c := range changes {
		counts[c.EntityType]++
	}

	var parts []string
	for _, entity := range []domain.EntityType{domain.EntityShow, domain.EntitySeason, domain.EntityEpisode, domain.EntityMovie} {
		n := counts[entity]
		if n == 0 {
			continue
		}
		part := fmt.Sprintf("%d %s", n, entity)
		if n > 1 {
			part += "s"
		}
		parts = append(parts, part)
	}
	return "Updated status for " + strings.Join(parts, ", ")
}
