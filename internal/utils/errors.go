package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medical-booking-server/internal/repository"
	"medical-booking-server/internal/services"
)

// StatusFor maps a domain or repository error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidResetCode):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrSlotTaken),
		errors.Is(err, services.ErrSlotUnavailable),
		errors.Is(err, repository.ErrDuplicate),
		errors.Is(err, repository.ErrInUse):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// RespondError writes err with its mapped status. Internal errors are
// attached to the context for the request logger and hidden from the client.
func RespondError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		InternalServerError(c, "Internal server error")
		return
	}
	Error(c, status, err.Error())
}
