package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/mediakeep/mediakeep/internal/watchstatus/domain"
	"github.com/mediakeep/mediakeep/internal/watchstatus/repository"
	pkgerrors "github.com/mediakeep/mediakeep/pkg/errors"
)

type CascadeRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo *repository.GormCascadeRepository
	ctx  context.Context
	now  time.Time

	profile repository.Profile
	show    repository.Show
	seasons []repository.Season
	// episodes[0..9] belong to season 1 and have aired; episodes[10..11]
	// belong to season 2 and have aired; episodes[12] airs in the future.
	episodes []repository.Episode
	movie    repository.Movie
}

func (suite *CascadeRepositoryTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	suite.db = repository.NewTestDB(suite.T())
	suite.repo = repository.NewGormCascadeRepositoryWithClock(suite.db, func() time.Time { return suite.now })

	aired := suite.now.AddDate(0, -1, 0)
	future := suite.now.AddDate(0, 1, 0)

	suite.profile = repository.Profile{AccountID: 1, Name: "Alice"}
	require.NoError(suite.T(), suite.db.Create(&suite.profile).Error)

	suite.show = repository.Show{Title: "Deep Harbor", FirstAirDate: &aired, InProduction: true}
	require.NoError(suite.T(), suite.db.Create(&suite.show).Error)

	suite.seasons = nil
	for n := 1; n <= 2; n++ {
		season := repository.Season{ShowID: suite.show.ID, SeasonNumber: n, AirDate: &aired}
		require.NoError(suite.T(), suite.db.Create(&season).Error)
		suite.seasons = append(suite.seasons, season)
	}

	suite.episodes = nil
	for n := 1; n <= 10; n++ {
		suite.addEpisode(suite.seasons[0], n, &aired)
	}
	suite.addEpisode(suite.seasons[1], 1, &aired)
	suite.addEpisode(suite.seasons[1], 2, &aired)
	suite.addEpisode(suite.seasons[1], 3, &future)

	suite.movie = repository.Movie{Title: "Harbor Lights", ReleaseDate: &aired}
	require.NoError(suite.T(), suite.db.Create(&suite.movie).Error)

	created, err := suite.repo.InitializeShowStatusRows(suite.ctx, suite.profile.ID, suite.show.ID)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), int64(16), created)
	require.NoError(suite.T(), suite.repo.InitializeMovieStatusRow(suite.ctx, suite.profile.ID, suite.movie.ID))
}

func (suite *CascadeRepositoryTestSuite) addEpisode(season repository.Season, number int, airDate *time.Time) {
	episode := repository.Episode{
		SeasonID:      season.ID,
		ShowID:        season.ShowID,
		EpisodeNumber: number,
		Title:         fmt.Sprintf("S%02dE%02d", season.SeasonNumber, number),
		AirDate:       airDate,
	}
	require.NoError(suite.T(), suite.db.Create(&episode).Error)
	suite.episodes = append(suite.episodes, episode)
}

func (suite *CascadeRepositoryTestSuite) episodeStatus(episodeID int64) domain.Status {
	var row repository.EpisodeWatchStatus
	require.NoError(suite.T(), suite.db.Where("profile_id = ? AND episode_id = ?", suite.profile.ID, episodeID).First(&row).Error)
	return row.Status
}

func (suite *CascadeRepositoryTestSuite) seasonStatus(seasonID int64) domain.Status {
	var row repository.SeasonWatchStatus
	require.NoError(suite.T(), suite.db.Where("profile_id = ? AND season_id = ?", suite.profile.ID, seasonID).First(&row).Error)
	return row.Status
}

func (suite *CascadeRepositoryTestSuite) showStatus(showID int64) domain.Status {
	var row repository.ShowWatchStatus
	require.NoError(suite.T(), suite.db.Where("profile_id = ? AND show_id = ?", suite.profile.ID, showID).First(&row).Error)
	return row.Status
}

func (suite *CascadeRepositoryTestSuite) setEpisodeStatus(episodeID int64, status domain.Status) {
	err := suite.db.Model(&repository.EpisodeWatchStatus{}).
		Where("profile_id = ? AND episode_id = ?", suite.profile.ID, episodeID).
		Update("status", status).Error
	require.NoError(suite.T(), err)
}

func (suite *CascadeRepositoryTestSuite) setShowStatus(showID int64, status domain.Status) {
	err := suite.db.Model(&repository.ShowWatchStatus{}).
		Where("profile_id = ? AND show_id = ?", suite.profile.ID, showID).
		Update("status", status).Error
	require.NoError(suite.T(), err)
}

func (suite *CascadeRepositoryTestSuite) TestInitializeIsIdempotent() {
	// Act
	created, err := suite.repo.InitializeShowStatusRows(suite.ctx, suite.profile.ID, suite.show.ID)

	// Assert
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(0), created)
}

func (suite *CascadeRepositoryTestSuite) TestInitializeDefaults() {
	assert.Equal(suite.T(), domain.StatusNotWatched, suite.showStatus(suite.show.ID))
	assert.Equal(suite.T(), domain.StatusNotWatched, suite.seasonStatus(suite.seasons[0].ID))
	assert.Equal(suite.T(), domain.StatusNotWatched, suite.episodeStatus(suite.episodes[0].ID))
	// The unaired episode defaults to UNAIRED.
	assert.Equal(suite.T(), domain.StatusUnaired, suite.episodeStatus(suite.episodes[12].ID))
}

func (suite *CascadeRepositoryTestSuite) TestInitializeUnairedShow() {
	// Arrange: a show nothing of which has aired yet
	future := suite.now.AddDate(0, 2, 0)
	show := repository.Show{Title: "Next Year's Hit", FirstAirDate: &future, InProduction: true}
	require.NoError(suite.T(), suite.db.Create(&show).Error)
	season := repository.Season{ShowID: show.ID, SeasonNumber: 1, AirDate: &future}
	require.NoError(suite.T(), suite.db.Create(&season).Error)
	episode := repository.Episode{SeasonID: season.ID, ShowID: show.ID, EpisodeNumber: 1, AirDate: &future}
	require.NoError(suite.T(), suite.db.Create(&episode).Error)

	// Act
	created, err := suite.repo.InitializeShowStatusRows(suite.ctx, suite.profile.ID, show.ID)

	// Assert
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(3), created)
	assert.Equal(suite.T(), domain.StatusUnaired, suite.showStatus(show.ID))
	assert.Equal(suite.T(), domain.StatusUnaired, suite.seasonStatus(season.ID))
	assert.Equal(suite.T(), domain.StatusUnaired, suite.episodeStatus(episode.ID))
}

func (suite *CascadeRepositoryTestSuite) TestInitializeEmptySeason() {
	// Arrange: a show whose only season holds no episodes yet
	show := repository.Show{Title: "Specials Only", InProduction: true}
	require.NoError(suite.T(), suite.db.Create(&show).Error)
	season := repository.Season{ShowID: show.ID, SeasonNumber: 1}
	require.NoError(suite.T(), suite.db.Create(&season).Error)

	// Act
	created, err := suite.repo.InitializeShowStatusRows(suite.ctx, suite.profile.ID, show.ID)

	// Assert
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(2), created)
	assert.Equal(suite.T(), domain.StatusUpToDate, suite.seasonStatus(season.ID))
	assert.Equal(suite.T(), domain.StatusNotWatched, suite.showStatus(show.ID))
}

func (suite *CascadeRepositoryTestSuite) TestUpdateEpisodePropagatesUpward() {
	// Act
	result, err := suite.repo.UpdateEpisodeWatchStatus(suite.ctx, suite.profile.ID, suite.episodes[0].ID, domain.StatusWatched)

	// Assert
	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Success)
	assert.Equal(suite.T(), int64(3), result.AffectedRows)
	require.Len(suite.T(), result.Changes, 3)

	assert.Equal(suite.T(), domain.EntityEpisode, result.Changes[0].EntityType)
	assert.Equal(suite.T(), domain.ReasonUserSet, result.Changes[0].Reason)
	assert.Equal(suite.T(), domain.EntitySeason, result.Changes[1].EntityType)
	assert.Equal(suite.T(), domain.ReasonDerived, result.Changes[1].Reason)
	assert.Equal(suite.T(), domain.EntityShow, result.Changes[2].EntityType)

	assert.Equal(suite.T(), domain.StatusWatching, suite.seasonStatus(suite.seasons[0].ID))
	assert.Equal(suite.T(), domain.StatusWatching, suite.showStatus(suite.show.ID))
}

func (suite *CascadeRepositoryTestSuite) TestUpdateEpisodePropagationStops() {
	// Arrange: first watch moves season and show to WATCHING
	_, err := suite.repo.UpdateEpisodeWatchStatus(suite.ctx, suite.profile.ID, suite.episodes[0].ID, domain.StatusWatched)
	require.NoError(suite.T(), err)

	// Act: second watch leaves the derived statuses where they are
	result, err := suite.repo.UpdateEpisodeWatchStatus(suite.ctx, suite.profile.ID, suite.episodes[1].ID, domain.StatusWatched)

	// Assert: only the episode row moved
	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Success)
	assert.Equal(suite.T(), int64(1), result.AffectedRows)
	require.Len(suite.T(), result.Changes, 1)
	assert.Equal(suite.T(), domain.EntityEpisode, result.Changes[0].EntityType)
	assert.False(suite.T(), result.HasChangeFor(domain.EntityShow))
}

func (suite *CascadeRepositoryTestSuite) TestUpdateEpisodeNoOp() {
	// Act: the episode already holds NOT_WATCHED
	result, err := suite.repo.UpdateEpisodeWatchStatus(suite.ctx, suite.profile.ID, suite.episodes[0].ID, domain.StatusNotWatched)

	// Assert: nothing changed and nothing above was recomputed
	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Success)
	assert.Empty(suite.T(), result.Changes)
	assert.Equal(suite.T(), int64(0), result.AffectedRows)
	assert.Equal(suite.T(), domain.StatusNotWatched, suite.seasonStatus(suite.seasons[0].ID))
	assert.Equal(suite.T(), domain.StatusNotWatched, suite.showStatus(suite.show.ID))
}

func (suite *CascadeRepositoryTestSuite) TestUpdateEpisodeRejectsDerivedStatus() {
	// Act
	_, err := suite.repo.UpdateEpisodeWatchStatus(suite.ctx, suite.profile.ID, suite.episodes[0].ID, domain.StatusWatching)

	// Assert
	require.Error(suite.T(), err)
	assert.True(suite.T(), pkgerrors.IsBadRequest(err))
}

func (suite *CascadeRepositoryTestSuite) TestUpdateEpisodeUnknownEpisode() {
	// Act
	_, err := suite.repo.UpdateEpisodeWatchStatus(suite.ctx, suite.profile.ID, 99999, domain.StatusWatched)

	// Assert
	require.Error(suite.T(), err)
	assert.True(suite.T(), pkgerrors.IsNotFound(err))
}

func (suite *CascadeRepositoryTestSuite) TestUpdateEpisodeWithoutStatusRows() {
	// Arrange: catalog content the profile never favorited
	show := repository.Show{Title: "Unfavorited"}
	require.NoError(suite.T(), suite.db.Create(&show).Error)
	season := repository.Season{ShowID: show.ID, SeasonNumber: 1}
	require.NoError(suite.T(), suite.db.Create(&season).Error)
	episode := repository.Episode{SeasonID: season.ID, ShowID: show.ID, EpisodeNumber: 1}
	require.NoError(suite.T(), suite.db.Create(&episode).Error)

	// Act
	result, err := suite.repo.UpdateEpisodeWatchStatus(suite.ctx, suite.profile.ID, episode.ID, domain.StatusWatched)

	// Assert: rolled back, reported as a failed result rather than an error
	require.NoError(suite.T(), err)
	assert.False(suite.T(), result.Success)
	assert.Empty(suite.T(), result.Changes)
	assert.Equal(suite.T(), int64(0), result.AffectedRows)
}

func (suite *CascadeRepositoryTestSuite) TestUpdateSeasonWatched() {
	// Act: season 2 holds two aired episodes and one future episode
	result, err := suite.repo.UpdateSeasonWatchStatus(suite.ctx, suite.profile.ID, suite.seasons[1].ID, domain.StatusWatched)

	// Assert: WATCHED is authoritative and marks even the future episode
	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Success)
	assert.Equal(suite.T(), int64(5), result.AffectedRows)
	assert.Len(suite.T(), result.Changes, 5)

	for _, id := range []int64{suite.episodes[10].ID, suite.episodes[11].ID, suite.episodes[12].ID} {
		assert.Equal(suite.T(), domain.StatusWatched, suite.episodeStatus(id))
	}
	assert.Equal(suite.T(), domain.StatusWatched, suite.seasonStatus(suite.seasons[1].ID))
	assert.Equal(suite.T(), domain.StatusWatching, suite.showStatus(suite.show.ID))
}

func (suite *CascadeRepositoryTestSuite) TestUpdateSeasonUpToDate() {
	// Act
	result, err := suite.repo.UpdateSeasonWatchStatus(suite.ctx, suite.profile.ID, suite.seasons[1].ID, domain.StatusUpToDate)

	// Assert: aired episodes become WATCHED, the future one NOT_WATCHED
	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Success)
	assert.Equal(suite.T(), int64(5), result.AffectedRows)

	assert.Equal(suite.T(), domain.StatusWatched, suite.episodeStatus(suite.episodes[10].ID))
	assert.Equal(suite.T(), domain.StatusWatched, suite.episodeStatus(suite.episodes[11].ID))
	assert.Equal(suite.T(), domain.StatusNotWatched, suite.episodeStatus(suite.episodes[12].ID))
	assert.Equal(suite.T(), domain.StatusUpToDate, suite.seasonStatus(suite.seasons[1].ID))
	assert.Equal(suite.T(), domain.StatusWatching, suite.showStatus(suite.show.ID))
}

func (suite *CascadeRepositoryTestSuite) TestUpdateShowWatched() {
	// Act
	result, err := suite.repo.UpdateShowWatchStatus(suite.ctx, suite.profile.ID, suite.show.ID, domain.StatusWatched)

	// Assert: one show, two seasons and thirteen episodes rewritten
	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Success)
	assert.Equal(suite.T(), int64(16), result.AffectedRows)
	assert.Len(suite.T(), result.Changes, 16)

	for _, episode := range suite.episodes {
		assert.Equal(suite.T(), domain.StatusWatched, suite.episodeStatus(episode.ID))
	}
	assert.Equal(suite.T(), domain.StatusWatched, suite.seasonStatus(suite.seasons[0].ID))
	assert.Equal(suite.T(), domain.StatusWatched, suite.seasonStatus(suite.seasons[1].ID))
	assert.Equal(suite.T(), domain.StatusWatched, suite.showStatus(suite.show.ID))
}

func (suite *CascadeRepositoryTestSuite) TestUpdateShowUpToDate() {
	// Act
	result, err := suite.repo.UpdateShowWatchStatus(suite.ctx, suite.profile.ID, suite.show.ID, domain.StatusUpToDate)

	// Assert
	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Success)
	assert.Equal(suite.T(), int64(16), result.AffectedRows)

	assert.Equal(suite.T(), domain.StatusWatched, suite.episodeStatus(suite.episodes[0].ID))
	assert.Equal(suite.T(), domain.StatusNotWatched, suite.episodeStatus(suite.episodes[12].ID))
	assert.Equal(suite.T(), domain.StatusUpToDate, suite.seasonStatus(suite.seasons[1].ID))
	assert.Equal(suite.T(), domain.StatusUpToDate, suite.showStatus(suite.show.ID))
}

func (suite *CascadeRepositoryTestSuite) TestUpdateMovie() {
	// Act
	result, err := suite.repo.UpdateMovieWatchStatus(suite.ctx, suite.profile.ID, suite.movie.ID, domain.StatusWatched)

	// Assert
	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Success)
	assert.Equal(suite.T(), int64(1), result.AffectedRows)
	require.Len(suite.T(), result.Changes, 1)
	assert.Equal(suite.T(), domain.EntityMovie, result.Changes[0].EntityType)

	// Repeating the same target is a quiet success
	again, err := suite.repo.UpdateMovieWatchStatus(suite.ctx, suite.profile.ID, suite.movie.ID, domain.StatusWatched)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), again.Success)
	assert.Empty(suite.T(), again.Changes)
}

func (suite *CascadeRepositoryTestSuite) TestCheckAndUpdateSeason() {
	// Arrange: mark every episode of season 1 watched behind the cascade's back
	for _, episode := range suite.episodes[:10] {
		suite.setEpisodeStatus(episode.ID, domain.StatusWatched)
	}

	// Act
	result, err := suite.repo.CheckAndUpdateSeasonWatchStatus(suite.ctx, suite.profile.ID, suite.seasons[0].ID)

	// Assert: season derives to WATCHED, show to WATCHING
	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Success)
	assert.Equal(suite.T(), int64(2), result.AffectedRows)
	assert.Equal(suite.T(), domain.StatusWatched, suite.seasonStatus(suite.seasons[0].ID))
	assert.Equal(suite.T(), domain.StatusWatching, suite.showStatus(suite.show.ID))

	// A second check finds nothing to do
	again, err := suite.repo.CheckAndUpdateSeasonWatchStatus(suite.ctx, suite.profile.ID, suite.seasons[0].ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), again.Success)
	assert.Empty(suite.T(), again.Changes)
}

func (suite *CascadeRepositoryTestSuite) TestCheckAndUpdateShow() {
	// Arrange
	suite.db.Model(&repository.SeasonWatchStatus{}).
		Where("profile_id = ?", suite.profile.ID).
		Update("status", domain.StatusWatched)

	// Act
	result, err := suite.repo.CheckAndUpdateShowWatchStatus(suite.ctx, suite.profile.ID, suite.show.ID)

	// Assert
	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Success)
	assert.Equal(suite.T(), int64(1), result.AffectedRows)
	assert.Equal(suite.T(), domain.StatusWatched, suite.showStatus(suite.show.ID))
}

func (suite *CascadeRepositoryTestSuite) TestNewContentFlipsOnlyWatchedShows() {
	// Arrange
	suite.setShowStatus(suite.show.ID, domain.StatusWatched)

	// Act
	result, err := suite.repo.UpdateShowWatchStatusForNewContent(suite.ctx, suite.profile.ID, []int64{suite.show.ID})

	// Assert
	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Success)
	assert.Equal(suite.T(), int64(1), result.AffectedRows)
	require.Len(suite.T(), result.Changes, 1)
	assert.Equal(suite.T(), domain.ReasonNewContent, result.Changes[0].Reason)
	assert.Equal(suite.T(), domain.StatusWatching, suite.showStatus(suite.show.ID))

	// Already WATCHING, so a second detection is a no-op
	again, err := suite.repo.UpdateShowWatchStatusForNewContent(suite.ctx, suite.profile.ID, []int64{suite.show.ID})
	require.NoError(suite.T(), err)
	assert.True(suite.T(), again.Success)
	assert.Empty(suite.T(), again.Changes)
}

func (suite *CascadeRepositoryTestSuite) TestNewContentEmptyInput() {
	result, err := suite.repo.UpdateShowWatchStatusForNewContent(suite.ctx, suite.profile.ID, nil)

	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Success)
	assert.Empty(suite.T(), result.Changes)
}

func TestCascadeRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(CascadeRepositoryTestSuite))
}
