package lastfm

import (
	"bytes"
	"encoding/json"
)

// List decodes a Last.fm collection. The API returns a bare object instead of a
// one-element array for some lists, and an empty string or null when there is nothing.
// Elements that do not decode are skipped.
type List[T any] []T

// UnmarshalJSON implements json.Unmarshaler.
func (l *List[T]) UnmarshalJSON(b []byte) error {
	*l = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}

	switch b[0] {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil
		}
		items := make(List[T], 0, len(raw))
		for _, r := range raw {
			var item T
			if err := json.Unmarshal(r, &item); err != nil {
				continue
			}
			items = append(items, item)
		}
		*l = items
	case '{':
		var item T
		if err := json.Unmarshal(b, &item); err == nil {
			*l = List[T]{item}
		}
	}
	return nil
}

// Maybe decodes an optional Last.fm object. Anything that is not a decodable
// object (missing, null, "", a number) leaves Present false.
type Maybe[T any] struct {
	Value   T
	Present bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Maybe[T]) UnmarshalJSON(b []byte) error {
	*m = Maybe[T]{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return nil
	}

	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	m.Value = v
	m.Present = true
	return nil
}

// Image is one entry of a Last.fm image size list.
type Image struct {
	URL  string `json:"#text"`
	Size string `json:"size"`
}

// Attr carries the "@attr" metadata of list entries.
// Numeric values are left undecoded (number, numeric string or absent).
type Attr struct {
	Rank any `json:"rank"`
}

// TagEntry is a raw tag.
type TagEntry struct {
	Name  string `json:"name"`
	Count any    `json:"count"`
	URL   string `json:"url"`
}

// TagList wraps the "tag" array of tag containers.
type TagList struct {
	Tag List[TagEntry] `json:"tag"`
}

// ArtistInfo is the payload of artist.getInfo.
type ArtistInfo struct {
	Name  string      `json:"name"`
	MBID  string      `json:"mbid"`
	URL   string      `json:"url"`
	Image List[Image] `json:"image"`
	Stats Maybe[struct {
		Listeners any `json:"listeners"`
		Playcount any `json:"playcount"`
	}] `json:"stats"`
	Bio Maybe[struct {
		Summary string `json:"summary"`
	}] `json:"bio"`
}

// ArtistInfoResponse is the envelope of artist.getInfo.
type ArtistInfoResponse struct {
	Artist Maybe[ArtistInfo] `json:"artist"`
}

// TopTagsResponse is the envelope of artist.getTopTags.
type TopTagsResponse struct {
	TopTags Maybe[TagList] `json:"toptags"`
}

// TrackEntry is a raw top track.
type TrackEntry struct {
	Name      string      `json:"name"`
	Playcount any         `json:"playcount"`
	Listeners any         `json:"listeners"`
	URL       string      `json:"url"`
	Attr      Maybe[Attr] `json:"@attr"`
}

// TopTracksResponse is the envelope of artist.getTopTracks.
type TopTracksResponse struct {
	TopTracks Maybe[struct {
		Track List[TrackEntry] `json:"track"`
	}] `json:"toptracks"`
}

// SimilarEntry is a raw similar artist.
type SimilarEntry struct {
	Name  string      `json:"name"`
	MBID  string      `json:"mbid"`
	Match any         `json:"match"`
	URL   string      `json:"url"`
	Image List[Image] `json:"image"`
}

// SimilarArtistsResponse is the envelope of artist.getSimilar.
type SimilarArtistsResponse struct {
	SimilarArtists Maybe[struct {
		Artist List[SimilarEntry] `json:"artist"`
	}] `json:"similarartists"`
}

// TrackInfoResponse is the envelope of track.getInfo.
type TrackInfoResponse struct {
	Track Maybe[struct {
		Name     string `json:"name"`
		Duration any    `json:"duration"`
	}] `json:"track"`
}

// ArtistMatch is a raw artist search match.
type ArtistMatch struct {
	Name       string      `json:"name"`
	MBID       string      `json:"mbid"`
	URL        string      `json:"url"`
	Listeners  any         `json:"listeners"`
	Streamable any         `json:"streamable"`
	Image      List[Image] `json:"image"`
}

// ArtistSearchResponse is the envelope of artist.search.
type ArtistSearchResponse struct {
	Results Maybe[struct {
		ArtistMatches Maybe[struct {
			Artist List[ArtistMatch] `json:"artist"`
		}] `json:"artistmatches"`
	}] `json:"results"`
}

// AlbumMatch is a raw album search match.
type AlbumMatch struct {
	Name      string      `json:"name"`
	Artist    string      `json:"artist"`
	MBID      string      `json:"mbid"`
	URL       string      `json:"url"`
	Playcount any         `json:"playcount"`
	Image     List[Image] `json:"image"`
}

// AlbumSearchResponse is the envelope of album.search.
type AlbumSearchResponse struct {
	Results Maybe[struct {
		AlbumMatches Maybe[struct {
			Album List[AlbumMatch] `json:"album"`
		}] `json:"albummatches"`
	}] `json:"results"`
}

// AlbumTrackEntry is a raw album track.
type AlbumTrackEntry struct {
	Name     string      `json:"name"`
	Duration any         `json:"duration"`
	URL      string      `json:"url"`
	Attr     Maybe[Attr] `json:"@attr"`
}

// AlbumInfo is the payload of album.getInfo.
type AlbumInfo struct {
	Name      string         `json:"name"`
	Artist    string         `json:"artist"`
	MBID      string         `json:"mbid"`
	URL       string         `json:"url"`
	Listeners any            `json:"listeners"`
	Playcount any            `json:"playcount"`
	Image     List[Image]    `json:"image"`
	Tags      Maybe[TagList] `json:"tags"`
	Tracks    Maybe[struct {
		Track List[AlbumTrackEntry] `json:"track"`
	}] `json:"tracks"`
	Wiki Maybe[struct {
		Summary string `json:"summary"`
	}] `json:"wiki"`
}

// AlbumInfoResponse is the envelope of album.getInfo.
type AlbumInfoResponse struct {
	Album Maybe[AlbumInfo] `json:"album"`
}

// apiError is the error body Last.fm returns, sometimes with HTTP 200.
type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// errCodeNotFound is returned for unknown artists, albums and tracks
// ("Invalid parameters" in the API docs).
const errCodeNotFound = 6
