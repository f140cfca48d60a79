package domain

// Status represents how far a profile has watched a piece of content.
type Status string

const (
	// StatusUnaired marks content whose air date is still in the future.
	StatusUnaired Status = "UNAIRED"
	// StatusNotWatched marks aired content the profile has not started.
	StatusNotWatched Status = "NOT_WATCHED"
	// StatusWatching marks a season/show with partial progress.
	StatusWatching Status = "WATCHING"
	// StatusWatched marks fully watched content with nothing outstanding.
	StatusWatched Status = "WATCHED"
	// StatusUpToDate marks a season/show where everything aired is watched
	// but more content is expected (or nothing exists to watch yet).
	StatusUpToDate Status = "UP_TO_DATE"
)

// EntityType identifies which level of the content hierarchy a status row
// or change record refers to.
type EntityType string

const (
	EntityShow    EntityType = "show"
	EntitySeason  EntityType = "season"
	EntityEpisode EntityType = "episode"
	EntityMovie   EntityType = "movie"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUnaired, StatusNotWatched, StatusWatching, StatusWatched, StatusUpToDate:
		return true
	}
	return false
}

// ValidFor reports whether s may be held by the given entity kind.
// Episodes and movies are atomic: they never carry the partial-progress
// statuses WATCHING and UP_TO_DATE.
func (s Status) ValidFor(entity EntityType) bool {
	if !s.Valid() {
		return false
	}
	switch entity {
	case EntityEpisode, EntityMovie:
		return s == StatusUnaired || s == StatusNotWatched || s == StatusWatched
	case EntitySeason, EntityShow:
		return true
	}
	return false
}
