package parking

import (
	"fmt"

	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/apperror"
)

var (
	ErrEntryNotFound      = fmt.Errorf("%w: parking entry not found", apperror.ErrNotFound)
	ErrEntryAlreadyExited = fmt.Errorf("%w: vehicle has already exited", apperror.ErrInvalidState)
	ErrExitBeforeEntry    = fmt.Errorf("%w: exit time must not be before entry time", apperror.ErrValidation)
	ErrNoActiveShift      = fmt.Errorf("%w: an active shift is required to link unassigned entries", apperror.ErrNotFound)
)
