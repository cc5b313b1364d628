// Package deezer provides a client for the public Deezer search API.
// It is only used to resolve artist pictures the primary provider lacks.
package deezer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the Deezer API root.
	DefaultBaseURL = "https://api.deezer.com"
	// DefaultTimeout bounds a single lookup.
	DefaultTimeout = 8 * time.Second
)

// Client searches Deezer for artist pictures. No API key is required.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// Config represents Deezer client configuration.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// New creates a new Deezer client.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL:    baseURL,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Artist is an artist entry of a Deezer search response.
type Artist struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`        // default size
	PictureSmall  string `json:"picture_small"`  // 56x56
	PictureMedium string `json:"picture_medium"` // 250x250
	PictureBig    string `json:"picture_big"`    // 500x500
	PictureXL     string `json:"picture_xl"`     // 1000x1000
}

// BestPicture returns the largest available picture URL, or "".
func (a Artist) BestPicture() string {
	for _, u := range []string{a.PictureXL, a.PictureBig, a.PictureMedium, a.Picture} {
		if u != "" {
			return u
		}
	}
	return ""
}

type searchResponse struct {
	Data  []Artist `json:"data"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SearchArtistPicture returns the best picture of the top search match for artistName.
// It returns "" with a nil error when Deezer knows no such artist or it has no picture.
func (c *Client) SearchArtistPicture(ctx context.Context, artistName string) (string, error) {
	if artistName == "" {
		return "", nil
	}

	searchURL := fmt.Sprintf("%s/search/artist?q=%s&limit=1", c.baseURL, url.QueryEscape(artistName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf("deezer returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response body")
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.Wrap(err, "failed to parse response")
	}
	if parsed.Error != nil {
		return "", errors.Newf("deezer API error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}

	if len(parsed.Data) == 0 {
		zlog.Debug().Msgf("no deezer artist found: %s", artistName)
		return "", nil
	}

	artist := parsed.Data[0]
	zlog.Debug().Msgf("deezer artist found: query=%s name=%s id=%d", artistName, artist.Name, artist.ID)
	return artist.BestPicture(), nil
}
