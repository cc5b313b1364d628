package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zmb3/spotify/v2"
)

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{ClientID: "id"})
	assert.Error(t, err)

	c, err := New(context.Background(), Config{ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestSearchArtistImage(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expected string
	}{
		{
			name: "largest image wins",
			response: `{"artists": {"items": [{"id": "1", "name": "Cher", "images": [
				{"url": "https://i.scdn.co/small", "width": 160, "height": 160},
				{"url": "https://i.scdn.co/large", "width": 640, "height": 640}
			]}]}}`,
			expected: "https://i.scdn.co/large",
		},
		{
			name:     "artist without images",
			response: `{"artists": {"items": [{"id": "1", "name": "Cher", "images": []}]}}`,
			expected: "",
		},
		{
			name:     "no artists",
			response: `{"artists": {"items": []}}`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "artist", r.URL.Query().Get("type"))
				assert.Equal(t, "Cher", r.URL.Query().Get("q"))
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, tt.response)
			}))
			defer server.Close()

			c := newWithHTTPClient(server.Client(), spotify.WithBaseURL(server.URL+"/"))
			got, err := c.SearchArtistImage(context.Background(), "Cher")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRetry(t *testing.T) {
	c := &Client{maxRetries: 3, retryDelay: time.Millisecond}

	attempts := 0
	err := c.retry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return spotify.Error{Message: "rate limited", Status: http.StatusTooManyRequests}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)

	attempts = 0
	err = c.retry(context.Background(), func() error {
		attempts++
		return errors.New("invalid request")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, isRetryable(nil))
	assert.True(t, isRetryable(spotify.Error{Status: http.StatusBadGateway}))
	assert.False(t, isRetryable(spotify.Error{Status: http.StatusNotFound}))
	assert.True(t, isRetryable(errors.New("HTTP 503: unavailable")))
}
