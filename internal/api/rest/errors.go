package rest

import (
	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/scrobblescope/internal/app/apperr"
)

// ErrorBody is the JSON envelope of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes an error to clients.
type ErrorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorDetail{Message: message, Code: code}})
}

// writeError maps err to its status and public message. Server-side failures are logged
// with their full detail.
func writeError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= 500 {
		zlog.Error().Msgf("request failed: request_id=%s path=%s error=%+v", requestID(c), c.Request.URL.Path, err)
	} else {
		zlog.Debug().Msgf("request rejected: request_id=%s path=%s error=%v", requestID(c), c.Request.URL.Path, err)
	}
	abortWithError(c, status, apperr.Code(err), apperr.PublicMessage(err))
}
