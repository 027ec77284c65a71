// Package server provides the HTTP REST API for archive archaeology jobs
// and macro signal series.
package server

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/ozayn/signalmap/internal/wayback"
)

// ErrJobNotFound indicates the job does not exist
type ErrJobNotFound struct {
	JobID uuid.UUID
}

func (e *ErrJobNotFound) Error() string {
	return fmt.Sprintf("job not found: %s", e.JobID)
}

// ErrJobFinished indicates the job already reached a terminal state
type ErrJobFinished struct {
	JobID  uuid.UUID
	Status string
}

func (e *ErrJobFinished) Error() string {
	return fmt.Sprintf("job %s already %s", e.JobID, e.Status)
}

// ErrUnsupportedPlatform indicates an unknown platform path segment
type ErrUnsupportedPlatform struct {
	Platform string
}

func (e *ErrUnsupportedPlatform) Error() string {
	return fmt.Sprintf("unsupported platform: %s", e.Platform)
}

// ErrPersistenceDisabled indicates the server runs without a database
type ErrPersistenceDisabled struct{}

func (e *ErrPersistenceDisabled) Error() string {
	return "persistence disabled: set DATABASE_URL to run jobs"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ErrJobNotFound:
		return http.StatusNotFound
	case *ErrJobFinished:
		return http.StatusConflict
	case *ErrUnsupportedPlatform, *ErrValidation, *wayback.ErrInvalidHandle:
		return http.StatusBadRequest
	case *ErrPersistenceDisabled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
