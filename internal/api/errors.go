package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/debezel/internal/encode"
	"github.com/smazurov/debezel/internal/geometry"
	"github.com/smazurov/debezel/internal/jobs"
	"github.com/smazurov/debezel/internal/profiles"
)

// mapError converts domain errors to HTTP errors.
func mapError(err error) error {
	var se huma.StatusError
	if errors.As(err, &se) {
		return err
	}

	switch {
	case errors.Is(err, jobs.ErrNotFound), errors.Is(err, profiles.ErrNotFound):
		return huma.Error404NotFound(err.Error(), err)
	case errors.Is(err, jobs.ErrFinished), errors.Is(err, jobs.ErrDuplicate):
		return huma.Error409Conflict(err.Error(), err)
	case errors.Is(err, jobs.ErrQueueFull):
		return huma.Error429TooManyRequests(err.Error(), err)
	case errors.Is(err, jobs.ErrStopped):
		return huma.Error503ServiceUnavailable(err.Error(), err)
	case errors.Is(err, profiles.ErrInvalidName), errors.Is(err, geometry.ErrInvalidBezel):
		return huma.Error422UnprocessableEntity(err.Error(), err)
	}

	switch encode.KindOf(err) {
	case encode.KindEngineNotFound:
		return huma.Error503ServiceUnavailable(err.Error(), err)
	case encode.KindInputNotFound:
		return huma.Error404NotFound(err.Error(), err)
	case encode.KindInvalidBezelSpec:
		return huma.Error422UnprocessableEntity(err.Error(), err)
	}
	return huma.Error500InternalServerError("internal error", err)
}
