package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/auth"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/apperror"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses by their category
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, err.Error())

	case errors.Is(err, apperror.ErrValidation):
		UnprocessableEntity(w, err.Error())
	case errors.Is(err, apperror.ErrNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, apperror.ErrConflict):
		Conflict(w, err.Error())
	case errors.Is(err, apperror.ErrInvalidState):
		InvalidState(w, err.Error())
	case errors.Is(err, apperror.ErrAuthorization):
		Forbidden(w, err.Error())

	// Integrity failures need an operator; the message says what to reconcile
	case errors.Is(err, apperror.ErrIntegrity):
		IntegrityError(w, err.Error())

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
