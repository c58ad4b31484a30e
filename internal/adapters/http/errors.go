package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Meet/internal/app/meeting"
	"github.com/dkeye/Meet/internal/auth"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/files"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrNotHost):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrMeetingEnded), errors.Is(err, domain.ErrMeetingExists):
		return http.StatusConflict
	case errors.Is(err, files.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, auth.ErrSFUDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, meeting.ErrBadType),
		errors.Is(err, domain.ErrRoomIDInvalid),
		errors.Is(err, domain.ErrUserIDEmpty),
		errors.Is(err, domain.ErrUserIDTooLong),
		errors.Is(err, files.ErrBadName):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error().Str("module", "adapters.http").Str("path", c.FullPath()).Err(err).Msg("request failed")
	}
	abortWithError(c, status, err)
}
