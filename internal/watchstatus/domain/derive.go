package domain

// SeasonAggregate holds the per-season episode counts the derivation rules
// operate on. AiredEpisodes counts episodes whose air date is on or before
// now, or which have no air date recorded.
type SeasonAggregate struct {
	TotalEpisodes        int
	AiredEpisodes        int
	FutureEpisodes       int
	WatchedAiredEpisodes int
}

// DeriveSeasonStatus computes a season's status from its episode aggregate.
//
// A season with no episodes is vacuously caught up. A season whose aired
// episodes are all watched is WATCHED when nothing remains unaired and
// UP_TO_DATE otherwise; this also covers the only-future-episodes case,
// which resolves to UP_TO_DATE by the same rule. Anything else is WATCHING.
func DeriveSeasonStatus(agg SeasonAggregate) Status {
	if agg.TotalEpisodes == 0 {
		return StatusUpToDate
	}
	if agg.WatchedAiredEpisodes == agg.AiredEpisodes {
		if agg.FutureEpisodes == 0 {
			return StatusWatched
		}
		return StatusUpToDate
	}
	return StatusWatching
}

// DeriveShowStatus computes a show's status from its seasons' statuses,
// applying the same precedence one level up: WATCHING dominates, all
// WATCHED means WATCHED, and a mix of WATCHED and UP_TO_DATE (or fully
// watched seasons alongside unaired ones) means the profile is caught up.
func DeriveShowStatus(seasons []Status) Status {
	if len(seasons) == 0 {
		return StatusUpToDate
	}

	var watched, upToDate, notWatched, unaired int
	for _, s := range seasons {
		switch s {
		case StatusWatching:
			return StatusWatching
		case StatusWatched:
			watched++
		case StatusUpToDate:
			upToDate++
		case StatusNotWatched:
			notWatched++
		case StatusUnaired:
			unaired++
		}
	}

	total := len(seasons)
	switch {
	case watched == total:
		return StatusWatched
	case watched+upToDate == total:
		return StatusUpToDate
	case unaired == total:
		return StatusUnaired
	case notWatched == 0 && watched+upToDate > 0:
		// Only watched/up-to-date seasons plus unaired ones: caught up.
		return StatusUpToDate
	case watched+upToDate > 0:
		return StatusWatching
	default:
		return StatusNotWatched
	}
}
