package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"clinic-app-server/internal/filter"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/store"
	"clinic-app-server/internal/utils"
)

// payloadError wraps a request body that could not be decoded.
type payloadError struct {
	err error
}

func (e *payloadError) Error() string { return "invalid request payload: " + e.err.Error() }
func (e *payloadError) Unwrap() error { return e.err }

// respondError maps workflow and store errors onto HTTP responses. Anything
// unexpected is logged and answered with a generic 500.
func respondError(c *gin.Context, logger zerolog.Logger, err error) {
	var (
		unknown *filter.UnknownFieldError
		invalid *filter.InvalidValueError
		fields  models.FieldErrors
		payload *payloadError
	)
	switch {
	case errors.As(err, &unknown), errors.As(err, &invalid), errors.As(err, &payload):
		utils.BadRequest(c, err.Error())
	case errors.As(err, &fields):
		utils.ValidationFailed(c, fields)
	case errors.Is(err, store.ErrNotFound):
		utils.NotFound(c, "Not found.")
	default:
		logger.Error().Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("route", c.FullPath()).
			Msg("request failed")
		utils.InternalServerError(c, "Internal server error")
	}
}
