// Package rest provides the HTTP JSON API.
package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/scrobblescope/internal/app/apperr"
	"github.com/osa030/scrobblescope/internal/app/cache"
	"github.com/osa030/scrobblescope/internal/app/overview"
	"github.com/osa030/scrobblescope/internal/domain/album"
	"github.com/osa030/scrobblescope/internal/domain/artist"
)

// Service is the core surface served over HTTP.
type Service interface {
	SearchArtists(ctx context.Context, query string) ([]artist.SearchResult, error)
	SearchAlbums(ctx context.Context, query string) ([]album.SearchResult, error)
	ArtistOverview(ctx context.Context, name string) (*overview.ArtistOverview, error)
	AlbumOverview(ctx context.Context, artistName, albumName string) (*overview.AlbumOverview, error)
}

// Ensure the overview service satisfies Service.
var _ Service = (*overview.Service)(nil)

// CacheHeader reports whether a response was served from the cache.
const CacheHeader = "X-Cache"

// Handler serves the API endpoints. Successful results are cached for ttl.
type Handler struct {
	service Service
	cache   *cache.Cache[any]
	ttl     time.Duration
}

// NewHandler creates a new Handler.
func NewHandler(service Service, c *cache.Cache[any], ttl time.Duration) *Handler {
	return &Handler{
		service: service,
		cache:   c,
		ttl:     ttl,
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// SearchArtist handles GET /search/artist?q=.
func (h *Handler) SearchArtist(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		writeError(c, apperr.Validation("Missing query parameter 'q'"))
		return
	}

	key := cache.BuildKey("/search/artist", map[string]string{"q": query})
	serveCached(c, h, key, func(ctx context.Context) ([]artist.SearchResult, error) {
		return h.service.SearchArtists(ctx, query)
	})
}

// SearchAlbum handles GET /search/album?q=.
func (h *Handler) SearchAlbum(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		writeError(c, apperr.Validation("Missing query parameter 'q'"))
		return
	}

	key := cache.BuildKey("/search/album", map[string]string{"q": query})
	serveCached(c, h, key, func(ctx context.Context) ([]album.SearchResult, error) {
		return h.service.SearchAlbums(ctx, query)
	})
}

// ArtistOverview handles GET /artist/:name/overview.
func (h *Handler) ArtistOverview(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		writeError(c, apperr.Validation("Missing artist name"))
		return
	}

	key := cache.BuildKey("/artist/overview", map[string]string{"name": name})
	serveCached(c, h, key, func(ctx context.Context) (*overview.ArtistOverview, error) {
		return h.service.ArtistOverview(ctx, name)
	})
}

// AlbumOverview handles GET /album/overview?artist=&album=.
func (h *Handler) AlbumOverview(c *gin.Context) {
	artistName := strings.TrimSpace(c.Query("artist"))
	albumName := strings.TrimSpace(c.Query("album"))
	if artistName == "" || albumName == "" {
		writeError(c, apperr.Validation("Missing artist or album"))
		return
	}

	key := cache.BuildKey("/album/overview", map[string]string{"artist": artistName, "album": albumName})
	serveCached(c, h, key, func(ctx context.Context) (*overview.AlbumOverview, error) {
		return h.service.AlbumOverview(ctx, artistName, albumName)
	})
}

// serveCached answers from the cache or loads, stores and answers.
// Concurrent misses on one key each call load. Aborted requests store and write nothing.
func serveCached[T any](c *gin.Context, h *Handler, key string, load func(ctx context.Context) (T, error)) {
	if v, ok := h.cache.Get(key); ok {
		c.Header(CacheHeader, "HIT")
		c.JSON(http.StatusOK, v)
		return
	}

	ctx := c.Request.Context()
	v, err := load(ctx)
	if ctx.Err() != nil {
		zlog.Debug().Msgf("request aborted, result discarded: key=%s error=%v", key, err)
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}

	h.cache.Set(key, v, h.ttl)
	c.Header(CacheHeader, "MISS")
	c.JSON(http.StatusOK, v)
}
