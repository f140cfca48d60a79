package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mediakeep/mediakeep/internal/watchstatus/domain"
	pkgerrors "github.com/mediakeep/mediakeep/pkg/errors"
	pkgrepo "github.com/mediakeep/mediakeep/pkg/repository"
)

// errNoRowsAffected aborts a cascade when a write matched no rows where at
// least one was expected. The transaction rolls back and the operation
// reports Success=false instead of an error.
var errNoRowsAffected = errors.New("write affected no rows")

// GormCascadeRepository implements CascadeRepository on GORM. Every
// operation wraps its reads and writes in a single transaction; row-level
// locking in the underlying store serializes concurrent cascades on the
// same profile's rows.
type GormCascadeRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormCascadeRepository creates a new GORM cascade repository.
func NewGormCascadeRepository(db *gorm.DB) *GormCascadeRepository {
	return &GormCascadeRepository{db: db, now: time.Now}
}

// NewGormCascadeRepositoryWithClock creates a repository with a custom time
// source for air-date comparisons.
func NewGormCascadeRepositoryWithClock(db *gorm.DB, now func() time.Time) *GormCascadeRepository {
	return &GormCascadeRepository{db: db, now: now}
}

// UpdateEpisodeWatchStatus sets the episode row, recomputes the owning
// season, and recomputes the owning show only if the season changed.
func (r *GormCascadeRepository) UpdateEpisodeWatchStatus(ctx context.Context, profileID, episodeID int64, status domain.Status) (*domain.StatusUpdateResult, error) {
	const op = "updateEpisodeWatchStatus(profileId, episodeId, status)"
	if err := validateStatus(domain.EntityEpisode, status); err != nil {
		return nil, err
	}

	res := &domain.StatusUpdateResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		episode, err := pkgrepo.FindByID[Episode](ctx, tx, episodeID)
		if err != nil {
			return err
		}

		row, err := findStatusRow[EpisodeWatchStatus](ctx, tx, "profile_id = ? AND episode_id = ?", profileID, episodeID)
		if err != nil {
			return err
		}

		// Already in the target state: nothing below the season changed, so
		// no recompute may run either.
		if row.Status == status {
			return nil
		}

		if _, err := setStatus(tx, &EpisodeWatchStatus{}, status, 1, "profile_id = ? AND episode_id = ?", profileID, episodeID); err != nil {
			return err
		}
		res.AffectedRows++
		res.Changes = append(res.Changes, r.change(domain.EntityEpisode, episodeID, row.Status, status, domain.ReasonUserSet))

		return r.recomputeSeason(ctx, tx, profileID, episode.SeasonID, episode.ShowID, res)
	})

	return r.finish(op, res, err)
}

// UpdateSeasonWatchStatus writes the season row as declared by the user,
// rewrites the episodes underneath for WATCHED/UP_TO_DATE targets, then
// recomputes the owning show, writing it only on change.
func (r *GormCascadeRepository) UpdateSeasonWatchStatus(ctx context.Context, profileID, seasonID int64, status domain.Status) (*domain.StatusUpdateResult, error) {
	const op = "updateSeasonWatchStatus(profileId, seasonId, status)"
	if err := validateStatus(domain.EntitySeason, status); err != nil {
		return nil, err
	}

	res := &domain.StatusUpdateResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		season, err := pkgrepo.FindByID[Season](ctx, tx, seasonID)
		if err != nil {
			return err
		}

		row, err := findStatusRow[SeasonWatchStatus](ctx, tx, "profile_id = ? AND season_id = ?", profileID, seasonID)
		if err != nil {
			return err
		}

		// User-declared, not derived: the row is written and recorded even
		// when it already holds the target status.
		if _, err := setStatus(tx, &SeasonWatchStatus{}, status, 1, "profile_id = ? AND season_id = ?", profileID, seasonID); err != nil {
			return err
		}
		res.AffectedRows++
		res.Changes = append(res.Changes, r.change(domain.EntitySeason, seasonID, row.Status, status, domain.ReasonUserSet))

		if rewritesEpisodes(status) {
			if err := r.rewriteSeasonEpisodes(tx, profileID, seasonID, status, res); err != nil {
				return err
			}
		}

		return r.recomputeShow(ctx, tx, profileID, season.ShowID, res)
	})

	return r.finish(op, res, err)
}

// UpdateShowWatchStatus writes the show row and cascades the target rewrite
// to every season and episode under the show.
func (r *GormCascadeRepository) UpdateShowWatchStatus(ctx context.Context, profileID, showID int64, status domain.Status) (*domain.StatusUpdateResult, error) {
	const op = "updateShowWatchStatus(profileId, showId, status)"
	if err := validateStatus(domain.EntityShow, status); err != nil {
		return nil, err
	}

	res := &domain.StatusUpdateResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := pkgrepo.FindByID[Show](ctx, tx, showID); err != nil {
			return err
		}

		showRow, err := findStatusRow[ShowWatchStatus](ctx, tx, "profile_id = ? AND show_id = ?", profileID, showID)
		if err != nil {
			return err
		}

		if _, err := setStatus(tx, &ShowWatchStatus{}, status, 1, "profile_id = ? AND show_id = ?", profileID, showID); err != nil {
			return err
		}
		res.AffectedRows++
		res.Changes = append(res.Changes, r.change(domain.EntityShow, showID, showRow.Status, status, domain.ReasonUserSet))

		seasons, err := pkgrepo.FindAllBy[Season](ctx, tx, "show_id = ?", showID)
		if err != nil {
			return err
		}
		if len(seasons) == 0 {
			return nil
		}

		seasonIDs := make([]int64, 0, len(seasons))
		for _, s := range seasons {
			seasonIDs = append(seasonIDs, s.ID)
		}

		seasonRows, err := pkgrepo.FindAllBy[SeasonWatchStatus](ctx, tx, "profile_id = ? AND season_id IN ?", profileID, seasonIDs)
		if err != nil {
			return err
		}
		if len(seasonRows) != len(seasons) {
			return errNoRowsAffected
		}

		if _, err := setStatus(tx, &SeasonWatchStatus{}, status, int64(len(seasonIDs)), "profile_id = ? AND season_id IN ?", profileID, seasonIDs); err != nil {
			return err
		}
		res.AffectedRows += int64(len(seasonIDs))
		for _, sr := range seasonRows {
			res.Changes = append(res.Changes, r.change(domain.EntitySeason, sr.SeasonID, sr.Status, status, domain.ReasonCascade))
		}

		if rewritesEpisodes(status) {
			for _, seasonID := range seasonIDs {
				if err := r.rewriteSeasonEpisodes(tx, profileID, seasonID, status, res); err != nil {
					return err
				}
			}
		}

		return nil
	})

	return r.finish(op, res, err)
}

// UpdateMovieWatchStatus sets a movie row. Movies are atomic: no cascade.
func (r *GormCascadeRepository) UpdateMovieWatchStatus(ctx context.Context, profileID, movieID int64, status domain.Status) (*domain.StatusUpdateResult, error) {
	const op = "updateMovieWatchStatus(profileId, movieId, status)"
	if err := validateStatus(domain.EntityMovie, status); err != nil {
		return nil, err
	}

	res := &domain.StatusUpdateResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := pkgrepo.FindByID[Movie](ctx, tx, movieID); err != nil {
			return err
		}

		row, err := findStatusRow[MovieWatchStatus](ctx, tx, "profile_id = ? AND movie_id = ?", profileID, movieID)
		if err != nil {
			return err
		}
		if row.Status == status {
			return nil
		}

		if _, err := setStatus(tx, &MovieWatchStatus{}, status, 1, "profile_id = ? AND movie_id = ?", profileID, movieID); err != nil {
			return err
		}
		res.AffectedRows++
		res.Changes = append(res.Changes, r.change(domain.EntityMovie, movieID, row.Status, status, domain.ReasonUserSet))
		return nil
	})

	return r.finish(op, res, err)
}

// CheckAndUpdateSeasonWatchStatus derives the season's status from current
// episode state and writes only if it differs from the stored value.
func (r *GormCascadeRepository) CheckAndUpdateSeasonWatchStatus(ctx context.Context, profileID, seasonID int64) (*domain.StatusUpdateResult, error) {
	const op = "checkAndUpdateSeasonWatchStatus(profileId, seasonId)"

	res := &domain.StatusUpdateResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		season, err := pkgrepo.FindByID[Season](ctx, tx, seasonID)
		if err != nil {
			return err
		}
		return r.recomputeSeason(ctx, tx, profileID, seasonID, season.ShowID, res)
	})

	return r.finish(op, res, err)
}

// CheckAndUpdateShowWatchStatus derives the show's status from current
// season state and writes only if it differs from the stored value.
func (r *GormCascadeRepository) CheckAndUpdateShowWatchStatus(ctx context.Context, profileID, showID int64) (*domain.StatusUpdateResult, error) {
	const op = "checkAndUpdateShowWatchStatus(profileId, showId)"

	res := &domain.StatusUpdateResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := pkgrepo.FindByID[Show](ctx, tx, showID); err != nil {
			return err
		}
		return r.recomputeShow(ctx, tx, profileID, showID, res)
	})

	return r.finish(op, res, err)
}

// UpdateShowWatchStatusForNewContent flips shows whose stored status is
// exactly WATCHED back to WATCHING. Shows in any other status are left
// untouched, so the operation is idempotent.
func (r *GormCascadeRepository) UpdateShowWatchStatusForNewContent(ctx context.Context, profileID int64, showIDs []int64) (*domain.StatusUpdateResult, error) {
	const op = "updateShowWatchStatusForNewContent(profileId, showIds)"

	res := &domain.StatusUpdateResult{}
	if len(showIDs) == 0 {
		res.Success = true
		return res, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := pkgrepo.FindAllBy[ShowWatchStatus](ctx, tx, "profile_id = ? AND show_id IN ? AND status = ?", profileID, showIDs, domain.StatusWatched)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ShowID)
		}

		if _, err := setStatus(tx, &ShowWatchStatus{}, domain.StatusWatching, int64(len(ids)), "profile_id = ? AND show_id IN ?", profileID, ids); err != nil {
			return err
		}
		res.AffectedRows += int64(len(ids))
		for _, row := range rows {
			res.Changes = append(res.Changes, r.change(domain.EntityShow, row.ShowID, row.Status, domain.StatusWatching, domain.ReasonNewContent))
		}
		return nil
	})

	return r.finish(op, res, err)
}

// InitializeShowStatusRows creates status rows for a show and everything
// under it when the show is favorited. Episodes default to NOT_WATCHED, or
// UNAIRED when the air date is in the future; seasons and the show follow
// from their children. Existing rows are left alone.
func (r *GormCascadeRepository) InitializeShowStatusRows(ctx context.Context, profileID, showID int64) (int64, error) {
	const op = "initializeShowStatusRows(profileId, showId)"

	var created int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		show, err := pkgrepo.FindByID[Show](ctx, tx, showID, "Seasons.Episodes")
		if err != nil {
			return err
		}

		now := r.now().UTC()
		var seasonRows []SeasonWatchStatus
		var episodeRows []EpisodeWatchStatus
		allSeasonsUnaired := len(show.Seasons) > 0

		for _, season := range show.Seasons {
			futureOnly := len(season.Episodes) > 0
			for _, episode := range season.Episodes {
				episodeStatus := domain.StatusNotWatched
				if episode.AirDate != nil && episode.AirDate.After(now) {
					episodeStatus = domain.StatusUnaired
				} else {
					futureOnly = false
				}
				episodeRows = append(episodeRows, EpisodeWatchStatus{
					ProfileID: profileID,
					EpisodeID: episode.ID,
					Status:    episodeStatus,
				})
			}

			seasonStatus := domain.StatusNotWatched
			switch {
			case len(season.Episodes) == 0:
				seasonStatus = domain.StatusUpToDate
			case futureOnly:
				seasonStatus = domain.StatusUnaired
			}
			if seasonStatus != domain.StatusUnaired {
				allSeasonsUnaired = false
			}
			seasonRows = append(seasonRows, SeasonWatchStatus{
				ProfileID: profileID,
				SeasonID:  season.ID,
				Status:    seasonStatus,
			})
		}

		showStatus := domain.StatusNotWatched
		switch {
		case len(show.Seasons) == 0:
			showStatus = domain.StatusUpToDate
		case allSeasonsUnaired:
			showStatus = domain.StatusUnaired
		}

		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ShowWatchStatus{
			ProfileID: profileID,
			ShowID:    showID,
			Status:    showStatus,
		})
		if result.Error != nil {
			return result.Error
		}
		created += result.RowsAffected

		if len(seasonRows) > 0 {
			result = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seasonRows)
			if result.Error != nil {
				return result.Error
			}
			created += result.RowsAffected
		}
		if len(episodeRows) > 0 {
			result = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&episodeRows)
			if result.Error != nil {
				return result.Error
			}
			created += result.RowsAffected
		}
		return nil
	})
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return 0, err
		}
		return 0, pkgerrors.WrapOp(pkgerrors.ErrorTypeInternal, op, "failed to initialize status rows", err)
	}

	return created, nil
}

// InitializeMovieStatusRow creates the status row for a favorited movie.
func (r *GormCascadeRepository) InitializeMovieStatusRow(ctx context.Context, profileID, movieID int64) error {
	const op = "initializeMovieStatusRow(profileId, movieId)"

	movie, err := pkgrepo.FindByID[Movie](ctx, r.db.WithContext(ctx), movieID)
	if err != nil {
		return err
	}

	status := domain.StatusNotWatched
	if movie.ReleaseDate != nil && movie.ReleaseDate.After(r.now().UTC()) {
		status = domain.StatusUnaired
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&MovieWatchStatus{
		ProfileID: profileID,
		MovieID:   movieID,
		Status:    status,
	})
	if result.Error != nil {
		return pkgerrors.WrapOp(pkgerrors.ErrorTypeInternal, op, "failed to initialize status row", result.Error)
	}
	return nil
}

// recomputeSeason derives the season's status from its episode aggregate
// and, only if the stored value changes, writes it and recomputes the show.
// An unchanged season stops propagation: the show row is never touched.
func (r *GormCascadeRepository) recomputeSeason(ctx context.Context, tx *gorm.DB, profileID, seasonID, showID int64, res *domain.StatusUpdateResult) error {
	agg, err := r.seasonAggregate(tx, profileID, seasonID)
	if err != nil {
		return err
	}

	row, err := findStatusRow[SeasonWatchStatus](ctx, tx, "profile_id = ? AND season_id = ?", profileID, seasonID)
	if err != nil {
		return err
	}

	derived := domain.DeriveSeasonStatus(agg)
	if derived == row.Status {
		return nil
	}

	if _, err := setStatus(tx, &SeasonWatchStatus{}, derived, 1, "profile_id = ? AND season_id = ?", profileID, seasonID); err != nil {
		return err
	}
	res.AffectedRows++
	res.Changes = append(res.Changes, r.change(domain.EntitySeason, seasonID, row.Status, derived, domain.ReasonDerived))

	return r.recomputeShow(ctx, tx, profileID, showID, res)
}

// recomputeShow derives the show's status from its seasons' stored statuses
// and writes it only on change.
func (r *GormCascadeRepository) recomputeShow(ctx context.Context, tx *gorm.DB, profileID, showID int64, res *domain.StatusUpdateResult) error {
	var statuses []domain.Status
	err := tx.Model(&SeasonWatchStatus{}).
		Joins("JOIN seasons ON seasons.id = season_watch_statuses.season_id").
		Where("season_watch_statuses.profile_id = ? AND seasons.show_id = ?", profileID, showID).
		Order("seasons.season_number").
		Pluck("season_watch_statuses.status", &statuses).Error
	if err != nil {
		return err
	}

	row, err := findStatusRow[ShowWatchStatus](ctx, tx, "profile_id = ? AND show_id = ?", profileID, showID)
	if err != nil {
		return err
	}

	derived := domain.DeriveShowStatus(statuses)
	if derived == row.Status {
		return nil
	}

	if _, err := setStatus(tx, &ShowWatchStatus{}, derived, 1, "profile_id = ? AND show_id = ?", profileID, showID); err != nil {
		return err
	}
	res.AffectedRows++
	res.Changes = append(res.Changes, r.change(domain.EntityShow, showID, row.Status, derived, domain.ReasonDerived))
	return nil
}

// rewriteSeasonEpisodes applies a top-down target to every episode row in a
// season. Target WATCHED marks everything watched; target UP_TO_DATE marks
// aired (or undated) episodes watched and future ones not watched. Every
// row written is recorded as a change, prior state notwithstanding.
func (r *GormCascadeRepository) rewriteSeasonEpisodes(tx *gorm.DB, profileID, seasonID int64, target domain.Status, res *domain.StatusUpdateResult) error {
	type episodeStatusRow struct {
		EpisodeID int64
		Status    domain.Status
		AirDate   *time.Time
	}

	var rows []episodeStatusRow
	err := tx.Raw(`
SELECT e.id AS episode_id, s.status, e.air_date
FROM episodes e
JOIN episode_watch_statuses s ON s.episode_id = e.id AND s.profile_id = ?
WHERE e.season_id = ?
ORDER BY e.episode_number`, profileID, seasonID).Scan(&rows).Error
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	now := r.now().UTC()
	var watchedIDs, notWatchedIDs []int64
	for _, row := range rows {
		to := domain.StatusWatched
		if target == domain.StatusUpToDate && row.AirDate != nil && row.AirDate.After(now) {
			to = domain.StatusNotWatched
		}
		if to == domain.StatusWatched {
			watchedIDs = append(watchedIDs, row.EpisodeID)
		} else {
			notWatchedIDs = append(notWatchedIDs, row.EpisodeID)
		}
		res.Changes = append(res.Changes, r.change(domain.EntityEpisode, row.EpisodeID, row.Status, to, domain.ReasonCascade))
	}

	if len(watchedIDs) > 0 {
		n, err := setStatus(tx, &EpisodeWatchStatus{}, domain.StatusWatched, int64(len(watchedIDs)), "profile_id = ? AND episode_id IN ?", profileID, watchedIDs)
		if err != nil {
			return err
		}
		res.AffectedRows += n
	}
	if len(notWatchedIDs) > 0 {
		n, err := setStatus(tx, &EpisodeWatchStatus{}, domain.StatusNotWatched, int64(len(notWatchedIDs)), "profile_id = ? AND episode_id IN ?", profileID, notWatchedIDs)
		if err != nil {
			return err
		}
		res.AffectedRows += n
	}
	return nil
}

// seasonAggregate reads the episode counts for one season in one query.
// Episodes with no air date count as aired.
func (r *GormCascadeRepository) seasonAggregate(tx *gorm.DB, profileID, seasonID int64) (domain.SeasonAggregate, error) {
	var agg struct {
		TotalEpisodes        int
		AiredEpisodes        int
		FutureEpisodes       int
		WatchedAiredEpisodes int
	}

	now := r.now().UTC()
	err := tx.Raw(`
SELECT
  COUNT(e.id) AS total_episodes,
  COUNT(CASE WHEN e.air_date IS NULL OR e.air_date <= ? THEN 1 END) AS aired_episodes,
  COUNT(CASE WHEN e.air_date > ? THEN 1 END) AS future_episodes,
  COUNT(CASE WHEN (e.air_date IS NULL OR e.air_date <= ?) AND s.status = ? THEN 1 END) AS watched_aired_episodes
FROM episodes e
JOIN episode_watch_statuses s ON s.episode_id = e.id AND s.profile_id = ?
WHERE e.season_id = ?`, now, now, now, domain.StatusWatched, profileID, seasonID).Scan(&agg).Error
	if err != nil {
		return domain.SeasonAggregate{}, err
	}

	return domain.SeasonAggregate{
		TotalEpisodes:        agg.TotalEpisodes,
		AiredEpisodes:        agg.AiredEpisodes,
		FutureEpisodes:       agg.FutureEpisodes,
		WatchedAiredEpisodes: agg.WatchedAiredEpisodes,
	}, nil
}

// change builds a StatusChange stamped with the repository clock.
func (r *GormCascadeRepository) change(entity domain.EntityType, id int64, from, to domain.Status, reason string) domain.StatusChange {
	return domain.StatusChange{
		EntityType: entity,
		EntityID:   id,
		From:       from,
		To:         to,
		Timestamp:  r.now().UTC(),
		Reason:     reason,
	}
}

// finish translates the transaction outcome into the result contract:
// a missing-row abort becomes Success=false, typed errors pass through,
// and anything else is wrapped with the operation signature.
func (r *GormCascadeRepository) finish(op string, res *domain.StatusUpdateResult, err error) (*domain.StatusUpdateResult, error) {
	if err == nil {
		res.Success = true
		return res, nil
	}
	if errors.Is(err, errNoRowsAffected) {
		return &domain.StatusUpdateResult{Success: false}, nil
	}

	var appErr *pkgerrors.AppError
	if errors.As(err, &appErr) {
		return nil, err
	}
	return nil, pkgerrors.WrapOp(pkgerrors.ErrorTypeInternal, op, "cascade transaction failed", err)
}

// findStatusRow loads a status row, mapping a missing row to the
// no-rows-affected abort: a status row is expected to exist for any content
// the profile has favorited, so its absence is a write conflict rather than
// a validation failure.
func findStatusRow[T any](ctx context.Context, tx *gorm.DB, query string, args ...interface{}) (*T, error) {
	row, err := pkgrepo.FindOneBy[T](ctx, tx, query, args...)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, errNoRowsAffected
		}
		return nil, err
	}
	return row, nil
}

// setStatus updates status rows in place, enforcing the expected row count.
func setStatus(tx *gorm.DB, model interface{}, status domain.Status, expected int64, query string, args ...interface{}) (int64, error) {
	result := tx.Model(model).Where(query, args...).Update("status", status)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected < expected {
		return result.RowsAffected, errNoRowsAffected
	}
	return result.RowsAffected, nil
}

// rewritesEpisodes reports whether a target status cascades down to the
// episode rows underneath. Only the two caught-up statuses do.
func rewritesEpisodes(status domain.Status) bool {
	return status == domain.StatusWatched || status == domain.StatusUpToDate
}

// validateStatus rejects statuses an entity kind may not hold.
func validateStatus(entity domain.EntityType, status domain.Status) error {
	if !status.ValidFor(entity) {
		return pkgerrors.BadRequest(fmt.Sprintf("status %q is not valid for %s entities", status, entity))
	}
	return nil
}
