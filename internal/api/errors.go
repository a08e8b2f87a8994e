package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jakesanders16/mini-youtube/internal/pkg/apperr"
)

// statusOf maps an error kind to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidState), errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, apperr.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// respondError writes err as a JSON error body. Operational failures are
// logged and reported without detail.
func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("request_id", c.GetString(ctxRequestID)).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.Message(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
