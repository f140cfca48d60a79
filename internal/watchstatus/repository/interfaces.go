package repository

import (
	"context"

	"github.com/mediakeep/mediakeep/internal/watchstatus/domain"
)

// CascadeRepository executes watch-status cascades. Every mutating
// operation runs its full read-derive-write sequence inside a single
// database transaction; a result with Success=false means an expected
// write matched no rows and the whole cascade was rolled back.
type CascadeRepository interface {
	// UpdateEpisodeWatchStatus sets one episode row, recomputes the owning
	// season, and recomputes the owning show only if the season changed.
	UpdateEpisodeWatchStatus(ctx context.Context, profileID, episodeID int64, status domain.Status) (*domain.StatusUpdateResult, error)

	// UpdateSeasonWatchStatus writes the season row as declared by the
	// user, rewrites the season's episodes for WATCHED/UP_TO_DATE targets,
	// then recomputes the owning show, propagating only on change.
	UpdateSeasonWatchStatus(ctx context.Context, profileID, seasonID int64, status domain.Status) (*domain.StatusUpdateResult, error)

	// UpdateShowWatchStatus writes the show row and cascades the target
	// rewrite to every season and episode under the show.
	UpdateShowWatchStatus(ctx context.Context, profileID, showID int64, status domain.Status) (*domain.StatusUpdateResult, error)

	// UpdateMovieWatchStatus sets a movie row; movies are atomic so no
	// cascade follows.
	UpdateMovieWatchStatus(ctx context.Context, profileID, movieID int64, status domain.Status) (*domain.StatusUpdateResult, error)

	// CheckAndUpdateSeasonWatchStatus recomputes the season from current
	// episode state and writes only if the derived status differs.
	CheckAndUpdateSeasonWatchStatus(ctx context.Context, profileID, seasonID int64) (*domain.StatusUpdateResult, error)

	// CheckAndUpdateShowWatchStatus recomputes the show from current
	// season state and writes only if the derived status differs.
	CheckAndUpdateShowWatchStatus(ctx context.Context, profileID, showID int64) (*domain.StatusUpdateResult, error)

	// UpdateShowWatchStatusForNewContent flips shows currently WATCHED to
	// WATCHING; shows in any other status are left untouched.
	UpdateShowWatchStatusForNewContent(ctx context.Context, profileID int64, showIDs []int64) (*domain.StatusUpdateResult, error)

	// InitializeShowStatusRows creates status rows for a show and all of
	// its seasons and episodes when the show is favorited. Returns the
	// number of rows created.
	InitializeShowStatusRows(ctx context.Context, profileID, showID int64) (int64, error)

	// InitializeMovieStatusRow creates the status row for a favorited movie.
	InitializeMovieStatusRow(ctx context.Context, profileID, movieID int64) error
}
