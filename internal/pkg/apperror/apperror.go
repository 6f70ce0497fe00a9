// Package apperror holds the error categories shared by every domain package.
// Domain errors wrap exactly one category so transports can map them with errors.Is.
package apperror

import "errors"

var (
	ErrValidation    = errors.New("validation failed")
	ErrConflict      = errors.New("conflict")
	ErrNotFound      = errors.New("not found")
	ErrInvalidState  = errors.New("invalid state")
	ErrAuthorization = errors.New("not authorized")
	ErrIntegrity     = errors.New("integrity violation")
)
