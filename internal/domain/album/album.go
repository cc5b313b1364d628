// Package album provides album domain entities.
package album

// Stats holds aggregate listening numbers.
type Stats struct {
	Playcount int64 `json:"playcount"`
	Listeners int64 `json:"listeners"`
}

// Summary is the canonical album record of an overview.
type Summary struct {
	Name    string  `json:"name"`
	Artist  string  `json:"artist"`
	Image   *string `json:"image"`
	Summary *string `json:"summary"`
	Stats   Stats   `json:"stats"`
}

// SearchResult is a single album search match.
type SearchResult struct {
	Name      string  `json:"name"`
	Artist    string  `json:"artist"`
	MBID      string  `json:"mbid"`
	URL       string  `json:"url"`
	Image     *string `json:"image"`
	Playcount int64   `json:"playcount"`
}
