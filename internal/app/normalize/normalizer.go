package normalize

import (
	"github.com/osa030/scrobblescope/internal/app/image"
	"github.com/osa030/scrobblescope/internal/domain/album"
	"github.com/osa030/scrobblescope/internal/domain/artist"
	"github.com/osa030/scrobblescope/internal/domain/tag"
	"github.com/osa030/scrobblescope/internal/domain/track"
	"github.com/osa030/scrobblescope/internal/infra/lastfm"
)

// Normalizer maps Last.fm wire types to domain records.
// Embedded images are filtered through the placeholder policy.
type Normalizer struct {
	policy *image.Policy
}

// New creates a Normalizer. A nil policy uses the default placeholder denylist.
func New(policy *image.Policy) *Normalizer {
	if policy == nil {
		policy = image.DefaultPolicy()
	}
	return &Normalizer{policy: policy}
}

// Image returns the best embedded image of a Last.fm image list.
func (n *Normalizer) Image(images []lastfm.Image) *string {
	return n.policy.Best(image.FromLastFM(images))
}

// ArtistSummary builds the artist record. requested is used when the payload has no name.
func (n *Normalizer) ArtistSummary(info lastfm.ArtistInfo, requested string, img *string) artist.Summary {
	name := info.Name
	if name == "" {
		name = requested
	}

	var bio *string
	if info.Bio.Present {
		bio = OptionalText(info.Bio.Value.Summary)
	}

	return artist.Summary{
		Name:       name,
		Image:      img,
		BioSummary: bio,
		Stats: artist.Stats{
			Listeners: Int(info.Stats.Value.Listeners),
			Playcount: Int(info.Stats.Value.Playcount),
		},
	}
}

// Tags maps a tag list preserving provider order.
func (n *Normalizer) Tags(entries []lastfm.TagEntry) []tag.Tag {
	tags := make([]tag.Tag, 0, len(entries))
	for _, e := range entries {
		tags = append(tags, tag.Tag{
			Name:  e.Name,
			Count: Int(e.Count),
		})
	}
	return tags
}

// TopTracks maps top tracks in provider order. The rank comes from "@attr" and
// defaults to the 1-based position.
func (n *Normalizer) TopTracks(entries []lastfm.TrackEntry) []track.Track {
	tracks := make([]track.Track, 0, len(entries))
	for i, e := range entries {
		tracks = append(tracks, track.Track{
			Name:      e.Name,
			Playcount: Int(e.Playcount),
			Listeners: Int(e.Listeners),
			URL:       e.URL,
			Rank:      rank(e.Attr, i),
		})
	}
	return tracks
}

// Similar maps similar artists. Match scores are rounded to two decimals and capped at 1.
func (n *Normalizer) Similar(entries []lastfm.SimilarEntry) []artist.Similar {
	similar := make([]artist.Similar, 0, len(entries))
	for _, e := range entries {
		similar = append(similar, artist.Similar{
			Name:  e.Name,
			Image: n.Image(e.Image),
			Match: min(Round2(Number(e.Match)), 1),
			URL:   e.URL,
		})
	}
	return similar
}

// TrackDuration extracts the duration in seconds from a track.getInfo response.
// It returns 0 when the duration is missing.
func (n *Normalizer) TrackDuration(resp *lastfm.TrackInfoResponse) int {
	if resp == nil || !resp.Track.Present {
		return 0
	}
	return DurationSeconds(Number(resp.Track.Value.Duration))
}

// ArtistMatches maps artist search matches in provider order.
func (n *Normalizer) ArtistMatches(matches []lastfm.ArtistMatch) []artist.SearchResult {
	results := make([]artist.SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, artist.SearchResult{
			Name:       m.Name,
			MBID:       m.MBID,
			URL:        m.URL,
			Image:      n.Image(m.Image),
			Listeners:  Int(m.Listeners),
			Streamable: Text(m.Streamable),
		})
	}
	return results
}

// AlbumMatches maps album search matches in provider order.
func (n *Normalizer) AlbumMatches(matches []lastfm.AlbumMatch) []album.SearchResult {
	results := make([]album.SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, album.SearchResult{
			Name:      m.Name,
			Artist:    m.Artist,
			MBID:      m.MBID,
			URL:       m.URL,
			Image:     n.Image(m.Image),
			Playcount: Int(m.Playcount),
		})
	}
	return results
}

// AlbumSummary builds the album record. The requested names fill in a missing payload name.
func (n *Normalizer) AlbumSummary(info lastfm.AlbumInfo, requestedArtist, requestedAlbum string, img *string) album.Summary {
	name := info.Name
	if name == "" {
		name = requestedAlbum
	}
	artistName := info.Artist
	if artistName == "" {
		artistName = requestedArtist
	}

	var summary *string
	if info.Wiki.Present {
		summary = OptionalText(info.Wiki.Value.Summary)
	}

	return album.Summary{
		Name:    name,
		Artist:  artistName,
		Image:   img,
		Summary: summary,
		Stats: album.Stats{
			Playcount: Int(info.Playcount),
			Listeners: Int(info.Listeners),
		},
	}
}

// AlbumTags maps the nested tag list of album.getInfo.
func (n *Normalizer) AlbumTags(info lastfm.AlbumInfo) []tag.Tag {
	if !info.Tags.Present {
		return []tag.Tag{}
	}
	return n.Tags(info.Tags.Value.Tag)
}

// AlbumTracks maps the nested track list of album.getInfo.
func (n *Normalizer) AlbumTracks(info lastfm.AlbumInfo) []track.AlbumTrack {
	if !info.Tracks.Present {
		return []track.AlbumTrack{}
	}

	entries := info.Tracks.Value.Track
	tracks := make([]track.AlbumTrack, 0, len(entries))
	for i, e := range entries {
		tracks = append(tracks, track.AlbumTrack{
			Name:     e.Name,
			Duration: DurationSeconds(Number(e.Duration)),
			Rank:     rank(e.Attr, i),
		})
	}
	return tracks
}

func rank(attr lastfm.Maybe[lastfm.Attr], index int) int {
	if attr.Present && attr.Value.Rank != nil {
		if r := int(Int(attr.Value.Rank)); r > 0 {
			return r
		}
	}
	return index + 1
}
