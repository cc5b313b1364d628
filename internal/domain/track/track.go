// Package track provides the Track domain entities.
package track

import "sort"

// Track represents one of an artist's top tracks.
// Duration is in seconds and nil when the provider could not supply it.
type Track struct {
	Name      string `json:"name"`
	Playcount int64  `json:"playcount"`
	Listeners int64  `json:"listeners"`
	URL       string `json:"url"`
	Rank      int    `json:"rank"` // 1-based, dense
	Duration  *int   `json:"duration,omitempty"`
}

// AlbumTrack represents a track listed on an album.
type AlbumTrack struct {
	Name     string `json:"name"`
	Duration int    `json:"duration"` // seconds, 0 when unknown
	Rank     int    `json:"rank"`
}

// HasDuration reports whether the track carries a positive duration.
func (t Track) HasDuration() bool {
	return t.Duration != nil && *t.Duration > 0
}

// WithDuration returns a copy of t with the given duration in seconds.
// Non-positive values clear the duration.
func (t Track) WithDuration(seconds int) Track {
	if seconds <= 0 {
		t.Duration = nil
		return t
	}
	d := seconds
	t.Duration = &d
	return t
}

// RankByPlaycount returns a copy of tracks sorted by playcount descending with ranks
// reassigned as a dense 1-based sequence. Equal playcounts keep their input order.
func RankByPlaycount(tracks []Track) []Track {
	ranked := make([]Track, len(tracks))
	copy(ranked, tracks)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Playcount > ranked[j].Playcount
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked
}
