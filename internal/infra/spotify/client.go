// Package spotify provides a client for the Spotify Web API.
// It is used as an optional artist image source.
package spotify

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// Client is a Spotify API client authenticated with the client credentials flow.
type Client struct {
	client     *spotify.Client
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// New creates a new Spotify client. Tokens are fetched lazily on the first call
// and refreshed automatically.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("spotify credentials are required")
	}

	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	httpClient := creds.Client(ctx)
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}

	return newWithHTTPClient(httpClient), nil
}

func newWithHTTPClient(httpClient *http.Client, opts ...spotify.ClientOption) *Client {
	return &Client{
		client:     spotify.New(httpClient, opts...),
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
	}
}

// SearchArtistImage returns the largest image of the best artist match for name.
// It returns "" with a nil error when no artist or image is found.
func (c *Client) SearchArtistImage(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", nil
	}

	var result *spotify.SearchResult
	err := c.retry(ctx, func() error {
		r, err := c.client.Search(ctx, name, spotify.SearchTypeArtist, spotify.Limit(1))
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to search artist")
	}

	if result == nil || result.Artists == nil || len(result.Artists.Artists) == 0 {
		zlog.Debug().Msgf("no spotify artist found: %s", name)
		return "", nil
	}

	artist := result.Artists.Artists[0]
	return largestImage(artist.Images), nil
}

// largestImage picks the image with the largest area. Spotify usually lists the
// widest first, but the order is not documented.
func largestImage(images []spotify.Image) string {
	best := ""
	bestArea := -1
	for _, img := range images {
		if img.URL == "" {
			continue
		}
		area := int(img.Width) * int(img.Height)
		if area > bestArea {
			best = img.URL
			bestArea = area
		}
	}
	return best
}

// retry executes fn with retry logic for rate limits and server errors.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(i+1)):
			}
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= http.StatusInternalServerError
	}

	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}
