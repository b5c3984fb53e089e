package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/foodtruck-agent/internal/pipeline"
	"github.com/jonathan/foodtruck-agent/internal/scheduler"
	"github.com/jonathan/foodtruck-agent/internal/store"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrUnavailable indicates a component the endpoint needs was not configured.
type ErrUnavailable struct {
	Component string
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("%s is not configured", e.Component)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var validationErr *ErrValidation
	var validatorErrs validator.ValidationErrors
	var unavailable *ErrUnavailable

	switch {
	case errors.As(err, &validationErr), errors.As(err, &validatorErrs), errors.Is(err, pipeline.ErrNoInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, scheduler.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrJobNotClaimable):
		return http.StatusConflict
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
