package user

import (
	"fmt"

	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/apperror"
)

var (
	ErrMissingIdentity   = fmt.Errorf("%w: employee identity missing from request", apperror.ErrAuthorization)
	ErrSupervisorAccess  = fmt.Errorf("%w: supervisor access required", apperror.ErrAuthorization)
	ErrInsufficientScope = fmt.Errorf("%w: insufficient permissions", apperror.ErrAuthorization)
)
