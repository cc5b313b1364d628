package rest

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/osa030/scrobblescope/internal/app/apperr"
	"github.com/osa030/scrobblescope/internal/app/ratelimit"
)

// RouterConfig configures the HTTP router.
type RouterConfig struct {
	BasePath       string
	CORSOrigins    []string
	TrustedProxies []string
}

// NewRouter builds the gin engine with middleware and routes mounted under BasePath.
func NewRouter(cfg RouterConfig, h *Handler, limiter *ratelimit.Limiter) (*gin.Engine, error) {
	r := gin.New()

	// Match on the escaped path so names such as "AC%2FDC" stay one segment.
	r.UseRawPath = true
	r.UnescapePathValues = true

	var proxies []string
	if len(cfg.TrustedProxies) > 0 {
		proxies = cfg.TrustedProxies
	}
	if err := r.SetTrustedProxies(proxies); err != nil {
		return nil, errors.Wrap(err, "invalid trusted proxies")
	}

	r.Use(Recovery(), RequestID(), AccessLog(), CORS(cfg.CORSOrigins), RateLimit(limiter))

	r.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, apperr.CodeNotFound, "Route not found")
	})

	api := r.Group(cfg.BasePath)
	{
		api.GET("/health", h.Health)
		api.GET("/search/artist", h.SearchArtist)
		api.GET("/search/album", h.SearchAlbum)
		api.GET("/artist/:name/overview", h.ArtistOverview)
		api.GET("/album/overview", h.AlbumOverview)
	}

	return r, nil
}
