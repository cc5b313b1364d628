// Package overview builds artist and album overviews and search results from Last.fm data.
package overview

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/osa030/scrobblescope/internal/app/apperr"
	"github.com/osa030/scrobblescope/internal/app/fanout"
	"github.com/osa030/scrobblescope/internal/app/image"
	"github.com/osa030/scrobblescope/internal/app/insights"
	"github.com/osa030/scrobblescope/internal/app/normalize"
	"github.com/osa030/scrobblescope/internal/domain/album"
	"github.com/osa030/scrobblescope/internal/domain/artist"
	"github.com/osa030/scrobblescope/internal/domain/tag"
	"github.com/osa030/scrobblescope/internal/domain/track"
	"github.com/osa030/scrobblescope/internal/infra/lastfm"
)

// LastFM is the Last.fm API surface used by the service.
type LastFM interface {
	Configured() bool
	GetArtistInfo(ctx context.Context, artistName string, autocorrect bool) (*lastfm.ArtistInfoResponse, error)
	GetArtistTopTags(ctx context.Context, artistName string) (*lastfm.TopTagsResponse, error)
	GetArtistTopTracks(ctx context.Context, artistName string, limit int) (*lastfm.TopTracksResponse, error)
	GetSimilarArtists(ctx context.Context, artistName string, limit int) (*lastfm.SimilarArtistsResponse, error)
	GetTrackInfo(ctx context.Context, artistName, trackName string) (*lastfm.TrackInfoResponse, error)
	SearchArtists(ctx context.Context, query string, limit int) (*lastfm.ArtistSearchResponse, error)
	SearchAlbums(ctx context.Context, query string, limit int) (*lastfm.AlbumSearchResponse, error)
	GetAlbumInfo(ctx context.Context, artistName, albumName string) (*lastfm.AlbumInfoResponse, error)
}

// Options holds the fetch sizes, enrichment caps and insight thresholds.
type Options struct {
	Insights              insights.Options
	TopTracksFetch        int
	TopTracksShown        int
	DurationLookups       int
	DurationConcurrency   int
	SimilarLimit          int
	SearchLimit           int
	SearchImageEnrichment int
}

// DefaultOptions returns the standard sizes and caps.
func DefaultOptions() Options {
	return Options{
		Insights:              insights.DefaultOptions(),
		TopTracksFetch:        100,
		TopTracksShown:        10,
		DurationLookups:       50,
		DurationConcurrency:   50,
		SimilarLimit:          6,
		SearchLimit:           10,
		SearchImageEnrichment: 5,
	}
}

// ArtistOverview is the artist page payload.
type ArtistOverview struct {
	Artist         artist.Summary    `json:"artist"`
	TopTags        []tag.Tag         `json:"topTags"`
	TopTracks      []track.Track     `json:"topTracks"`
	SimilarArtists []artist.Similar  `json:"similarArtists"`
	Insights       insights.Insights `json:"insights"`
}

// AlbumOverview is the album page payload.
type AlbumOverview struct {
	Album  album.Summary      `json:"album"`
	Tags   []tag.Tag          `json:"tags"`
	Tracks []track.AlbumTrack `json:"tracks"`
}

// Service orchestrates Last.fm calls, normalization, image resolution and insights.
type Service struct {
	client     LastFM
	normalizer *normalize.Normalizer
	resolver   *image.Resolver
	opts       Options
}

// withDefaults fills sizes and thresholds that must be positive from DefaultOptions.
// DurationLookups and SearchImageEnrichment may be 0 to disable enrichment.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Insights.OutlierThreshold <= 0 {
		o.Insights.OutlierThreshold = def.Insights.OutlierThreshold
	}
	if o.Insights.MinOutlierTracks <= 0 {
		o.Insights.MinOutlierTracks = def.Insights.MinOutlierTracks
	}
	if o.Insights.TrendSample <= 0 {
		o.Insights.TrendSample = def.Insights.TrendSample
	}
	if o.TopTracksFetch <= 0 {
		o.TopTracksFetch = def.TopTracksFetch
	}
	if o.TopTracksShown <= 0 {
		o.TopTracksShown = def.TopTracksShown
	}
	if o.DurationConcurrency <= 0 {
		o.DurationConcurrency = def.DurationConcurrency
	}
	if o.SimilarLimit <= 0 {
		o.SimilarLimit = def.SimilarLimit
	}
	if o.SearchLimit <= 0 {
		o.SearchLimit = def.SearchLimit
	}
	o.DurationLookups = max(o.DurationLookups, 0)
	o.SearchImageEnrichment = max(o.SearchImageEnrichment, 0)
	return o
}

// NewService creates a new Service. A nil resolver resolves embedded images only.
// Unset sizes and thresholds take their DefaultOptions values.
func NewService(client LastFM, resolver *image.Resolver, opts Options) *Service {
	if resolver == nil {
		resolver = image.NewResolver(nil, nil)
	}
	return &Service{
		client:     client,
		normalizer: normalize.New(resolver.Policy()),
		resolver:   resolver,
		opts:       opts.withDefaults(),
	}
}

func (s *Service) checkConfigured() error {
	if !s.client.Configured() {
		return apperr.Config("last.fm API key is not configured")
	}
	return nil
}

// ArtistOverview builds the overview of an artist.
//
// Artist info, top tags, top tracks and similar artists are fetched concurrently and any
// failure among them fails the overview. Track durations are then looked up in a second
// best-effort wave; a failed lookup leaves that track without a duration.
func (s *Service) ArtistOverview(ctx context.Context, name string) (*ArtistOverview, error) {
	if err := s.checkConfigured(); err != nil {
		return nil, err
	}

	var (
		infoResp    *lastfm.ArtistInfoResponse
		tagsResp    *lastfm.TopTagsResponse
		tracksResp  *lastfm.TopTracksResponse
		similarResp *lastfm.SimilarArtistsResponse
	)

	var g errgroup.Group
	g.Go(func() (err error) {
		infoResp, err = s.client.GetArtistInfo(ctx, name, false)
		return errors.Wrap(err, "artist.getInfo")
	})
	g.Go(func() (err error) {
		tagsResp, err = s.client.GetArtistTopTags(ctx, name)
		return errors.Wrap(err, "artist.getTopTags")
	})
	g.Go(func() (err error) {
		tracksResp, err = s.client.GetArtistTopTracks(ctx, name, s.opts.TopTracksFetch)
		return errors.Wrap(err, "artist.getTopTracks")
	})
	g.Go(func() (err error) {
		similarResp, err = s.client.GetSimilarArtists(ctx, name, s.opts.SimilarLimit)
		return errors.Wrap(err, "artist.getSimilar")
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("Artist not found")
		}
		return nil, err
	}

	if !infoResp.Artist.Present {
		return nil, apperr.NotFound("Artist not found")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "artist overview aborted")
	}
	info := infoResp.Artist.Value

	var tracks []track.Track
	if tracksResp.TopTracks.Present {
		tracks = s.normalizer.TopTracks(tracksResp.TopTracks.Value.Track)
	}
	enriched := s.withDurations(ctx, name, track.RankByPlaycount(tracks))
	top := enriched[:min(s.opts.TopTracksShown, len(enriched))]

	var tags []tag.Tag
	if tagsResp.TopTags.Present {
		tags = s.normalizer.Tags(tagsResp.TopTags.Value.Tag)
	} else {
		tags = []tag.Tag{}
	}

	var similar []artist.Similar
	if similarResp.SimilarArtists.Present {
		similar = s.normalizer.Similar(similarResp.SimilarArtists.Value.Artist)
	} else {
		similar = []artist.Similar{}
	}

	img := s.resolver.Resolve(ctx, image.FromLastFM(info.Image), name)

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "artist overview aborted")
	}

	return &ArtistOverview{
		Artist:         s.normalizer.ArtistSummary(info, name, img),
		TopTags:        tags,
		TopTracks:      top,
		SimilarArtists: similar,
		Insights:       insights.Compute(s.opts.Insights, top, enriched, tags, similar),
	}, nil
}

// withDurations looks up the duration of the first DurationLookups tracks.
func (s *Service) withDurations(ctx context.Context, artistName string, ranked []track.Track) []track.Track {
	n := min(s.opts.DurationLookups, len(ranked))

	outcomes := fanout.Collect(ctx, n, s.opts.DurationConcurrency, func(ctx context.Context, i int) (int, error) {
		resp, err := s.client.GetTrackInfo(ctx, artistName, ranked[i].Name)
		if err != nil {
			zlog.Warn().Msgf("duration lookup failed: artist=%s track=%s error=%v", artistName, ranked[i].Name, err)
			return 0, err
		}
		return s.normalizer.TrackDuration(resp), nil
	})

	enriched := make([]track.Track, len(ranked))
	copy(enriched, ranked)
	for i, o := range outcomes {
		if o.OK {
			enriched[i] = enriched[i].WithDuration(o.Value)
		}
	}
	return enriched
}

// AlbumOverview builds the overview of an album. A missing album image falls back to
// an image of the artist.
func (s *Service) AlbumOverview(ctx context.Context, artistName, albumName string) (*AlbumOverview, error) {
	if err := s.checkConfigured(); err != nil {
		return nil, err
	}

	resp, err := s.client.GetAlbumInfo(ctx, artistName, albumName)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("Album not found")
		}
		return nil, errors.Wrap(err, "album.getInfo")
	}
	if !resp.Album.Present {
		return nil, apperr.NotFound("Album not found")
	}
	info := resp.Album.Value

	img := s.resolver.Resolve(ctx, image.FromLastFM(info.Image), artistName)

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "album overview aborted")
	}

	return &AlbumOverview{
		Album:  s.normalizer.AlbumSummary(info, artistName, albumName, img),
		Tags:   s.normalizer.AlbumTags(info),
		Tracks: s.normalizer.AlbumTracks(info),
	}, nil
}

// SearchArtists searches artists, ordered by listeners. Results without an image are
// enriched from artist.getInfo and then the fallback providers, up to
// SearchImageEnrichment of them.
func (s *Service) SearchArtists(ctx context.Context, query string) ([]artist.SearchResult, error) {
	if err := s.checkConfigured(); err != nil {
		return nil, err
	}

	resp, err := s.client.SearchArtists(ctx, query, s.opts.SearchLimit)
	if err != nil {
		return nil, errors.Wrap(err, "artist.search")
	}

	results := []artist.SearchResult{}
	if resp.Results.Present && resp.Results.Value.ArtistMatches.Present {
		results = s.normalizer.ArtistMatches(resp.Results.Value.ArtistMatches.Value.Artist)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Listeners > results[j].Listeners
	})

	var targets []int
	for i, r := range results {
		if len(targets) >= s.opts.SearchImageEnrichment {
			break
		}
		if r.Image == nil {
			targets = append(targets, i)
		}
	}
	if len(targets) == 0 {
		return results, nil
	}

	chain := s.resolver.Fallback().Prepend(image.NamedProvider{
		Provider:    image.NewLastFMProvider(s.client, s.resolver.Policy()),
		DisplayName: "Last.fm",
	})
	outcomes := fanout.Collect(ctx, len(targets), 0, func(ctx context.Context, i int) (*string, error) {
		return chain.Find(ctx, results[targets[i]].Name), nil
	})
	for i, o := range outcomes {
		if o.OK && o.Value != nil {
			results[targets[i]].Image = o.Value
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "artist search aborted")
	}
	return results, nil
}

// SearchAlbums searches albums, in provider order.
func (s *Service) SearchAlbums(ctx context.Context, query string) ([]album.SearchResult, error) {
	if err := s.checkConfigured(); err != nil {
		return nil, err
	}

	resp, err := s.client.SearchAlbums(ctx, query, s.opts.SearchLimit)
	if err != nil {
		return nil, errors.Wrap(err, "album.search")
	}

	if !resp.Results.Present || !resp.Results.Value.AlbumMatches.Present {
		return []album.SearchResult{}, nil
	}
	return s.normalizer.AlbumMatches(resp.Results.Value.AlbumMatches.Value.Album), nil
}
