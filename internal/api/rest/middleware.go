package rest

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/scrobblescope/internal/app/apperr"
	"github.com/osa030/scrobblescope/internal/app/ratelimit"
)

// Header names.
const (
	RequestIDHeader          = "X-Request-ID"
	RateLimitLimitHeader     = "X-RateLimit-Limit"
	RateLimitRemainingHeader = "X-RateLimit-Remaining"
	RateLimitResetHeader     = "X-RateLimit-Reset"
)

const requestIDKey = "request_id"

// RequestID propagates the incoming X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// AccessLog logs every request after it is served.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		zlog.Info().Msgf("http request: method=%s path=%s status=%d latency=%s ip=%s request_id=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start), c.ClientIP(), requestID(c))
	}
}

// Recovery turns panics into a 500 error envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		zlog.Error().Msgf("panic recovered: request_id=%s path=%s panic=%v", requestID(c), c.Request.URL.Path, recovered)
		abortWithError(c, http.StatusInternalServerError, apperr.CodeInternal, "Internal server error")
	})
}

// CORS allows cross-origin GET requests from origins. "*" allows any origin.
func CORS(origins []string) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && allowed[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
		c.Header("Access-Control-Expose-Headers", strings.Join([]string{
			RequestIDHeader, RateLimitLimitHeader, RateLimitRemainingHeader, RateLimitResetHeader, CacheHeader,
		}, ", "))

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RateLimit rejects clients that exceeded their request budget with 429.
// Clients are identified by gin's ClientIP.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := limiter.Allow(c.ClientIP())

		c.Header(RateLimitLimitHeader, strconv.Itoa(d.Limit))
		c.Header(RateLimitRemainingHeader, strconv.Itoa(d.Remaining))
		c.Header(RateLimitResetHeader, strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			retry := d.RetryAfter(limiter.Now())
			c.Header("Retry-After", strconv.Itoa(int(retry/time.Second)))
			zlog.Debug().Msgf("rate limit exceeded: ip=%s request_id=%s", c.ClientIP(), requestID(c))
			abortWithError(c, http.StatusTooManyRequests, apperr.CodeRateLimit, "Rate limit exceeded")
			return
		}

		c.Next()
	}
}
