// Package artist provides artist domain entities.
package artist

// Stats holds aggregate listening numbers.
type Stats struct {
	Listeners int64 `json:"listeners"`
	Playcount int64 `json:"playcount"`
}

// Summary is the canonical artist record of an overview.
// Image and BioSummary are nil when unavailable.
type Summary struct {
	Name       string  `json:"name"`
	Image      *string `json:"image"`
	BioSummary *string `json:"bioSummary"`
	Stats      Stats   `json:"stats"`
}

// Similar is a related artist with its similarity score in [0, 1].
type Similar struct {
	Name  string  `json:"name"`
	Image *string `json:"image"`
	Match float64 `json:"match"`
	URL   string  `json:"url"`
}

// SearchResult is a single artist search match.
type SearchResult struct {
	Name       string  `json:"name"`
	MBID       string  `json:"mbid"`
	URL        string  `json:"url"`
	Image      *string `json:"image"`
	Listeners  int64   `json:"listeners"`
	Streamable string  `json:"streamable,omitempty"`
}
