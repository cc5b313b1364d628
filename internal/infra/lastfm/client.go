// Package lastfm provides a client for the Last.fm API.
package lastfm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/osa030/scrobblescope/internal/app/apperr"
)

const (
	// DefaultBaseURL is the Last.fm API root.
	DefaultBaseURL = "https://ws.audioscrobbler.com/2.0/"
	// DefaultTimeout bounds a single API call.
	DefaultTimeout = 10 * time.Second
)

// Client is a Last.fm API client.
// A client without an API key can be constructed; every call then fails with a config error.
type Client struct {
	apiKey     string
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Config represents Last.fm client configuration.
type Config struct {
	APIKey    string
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// RequestsPerSecond limits outbound calls. Zero disables the limit.
	RequestsPerSecond float64
	Burst             int
}

// New creates a new Last.fm client.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	if cfg.APIKey == "" {
		zlog.Warn().Msg("LASTFM_API_KEY is not set, requests will fail")
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Call invokes an API method and decodes the JSON body into out.
// Reference: https://www.last.fm/api/rest
func (c *Client) Call(ctx context.Context, method string, params url.Values, out any) error {
	if c.apiKey == "" {
		return apperr.Config("last.fm API key is not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return apperr.Upstream(err, "rate limiter")
	}

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("method", method)
	q.Set("api_key", c.apiKey)
	q.Set("format", "json")

	reqURL := c.baseURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return apperr.Upstream(err, "failed to create request")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Upstream(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Upstream(err, "failed to read response body")
	}
	zlog.Debug().Msgf("last.fm call: method=%s status=%d elapsed=%s", method, resp.StatusCode, time.Since(start))

	// Check for Last.fm API errors, which may come with any status
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != 0 {
		if apiErr.Error == errCodeNotFound {
			return apperr.NotFound(apiErr.Message)
		}
		return apperr.Upstream(errors.Newf("last.fm API error %d: %s", apiErr.Error, apiErr.Message), method)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperr.Upstream(errors.Newf("unexpected status %d", resp.StatusCode), method)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return apperr.Upstream(err, "failed to parse response")
	}

	return nil
}

// GetArtistInfo retrieves artist metadata.
// Reference: https://www.last.fm/api/show/artist.getInfo
func (c *Client) GetArtistInfo(ctx context.Context, artistName string, autocorrect bool) (*ArtistInfoResponse, error) {
	params := url.Values{}
	params.Set("artist", artistName)
	if autocorrect {
		params.Set("autocorrect", "1")
	}

	var resp ArtistInfoResponse
	if err := c.Call(ctx, "artist.getInfo", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetArtistTopTags retrieves the top tags of an artist.
// Reference: https://www.last.fm/api/show/artist.getTopTags
func (c *Client) GetArtistTopTags(ctx context.Context, artistName string) (*TopTagsResponse, error) {
	params := url.Values{}
	params.Set("artist", artistName)

	var resp TopTagsResponse
	if err := c.Call(ctx, "artist.getTopTags", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetArtistTopTracks retrieves the top tracks of an artist.
// Reference: https://www.last.fm/api/show/artist.getTopTracks
func (c *Client) GetArtistTopTracks(ctx context.Context, artistName string, limit int) (*TopTracksResponse, error) {
	params := url.Values{}
	params.Set("artist", artistName)
	params.Set("limit", strconv.Itoa(clampLimit(limit, 50, 1000)))

	var resp TopTracksResponse
	if err := c.Call(ctx, "artist.getTopTracks", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSimilarArtists retrieves artists similar to the given one.
// Reference: https://www.last.fm/api/show/artist.getSimilar
func (c *Client) GetSimilarArtists(ctx context.Context, artistName string, limit int) (*SimilarArtistsResponse, error) {
	params := url.Values{}
	params.Set("artist", artistName)
	params.Set("limit", strconv.Itoa(clampLimit(limit, 6, 100)))

	var resp SimilarArtistsResponse
	if err := c.Call(ctx, "artist.getSimilar", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTrackInfo retrieves track metadata, including its duration.
// Reference: https://www.last.fm/api/show/track.getInfo
func (c *Client) GetTrackInfo(ctx context.Context, artistName, trackName string) (*TrackInfoResponse, error) {
	if trackName == "" || artistName == "" {
		return nil, apperr.Validation("track name and artist name are required")
	}

	params := url.Values{}
	params.Set("artist", artistName)
	params.Set("track", trackName)
	params.Set("autocorrect", "1")

	var resp TrackInfoResponse
	if err := c.Call(ctx, "track.getInfo", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchArtists searches artists by name.
// Reference: https://www.last.fm/api/show/artist.search
func (c *Client) SearchArtists(ctx context.Context, query string, limit int) (*ArtistSearchResponse, error) {
	params := url.Values{}
	params.Set("artist", query)
	params.Set("limit", strconv.Itoa(clampLimit(limit, 10, 100)))
	params.Set("autocorrect", "1")

	var resp ArtistSearchResponse
	if err := c.Call(ctx, "artist.search", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchAlbums searches albums by name.
// Reference: https://www.last.fm/api/show/album.search
func (c *Client) SearchAlbums(ctx context.Context, query string, limit int) (*AlbumSearchResponse, error) {
	params := url.Values{}
	params.Set("album", query)
	params.Set("limit", strconv.Itoa(clampLimit(limit, 10, 100)))
	params.Set("autocorrect", "1")

	var resp AlbumSearchResponse
	if err := c.Call(ctx, "album.search", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAlbumInfo retrieves album metadata, tags and track list.
// Reference: https://www.last.fm/api/show/album.getInfo
func (c *Client) GetAlbumInfo(ctx context.Context, artistName, albumName string) (*AlbumInfoResponse, error) {
	params := url.Values{}
	params.Set("artist", artistName)
	params.Set("album", albumName)
	params.Set("autocorrect", "1")

	var resp AlbumInfoResponse
	if err := c.Call(ctx, "album.getInfo", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
