package shift

import (
	"fmt"

	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/apperror"
)

var (
	ErrShiftAlreadyActive   = fmt.Errorf("%w: another shift is already active, complete handover first", apperror.ErrConflict)
	ErrShiftNotFound        = fmt.Errorf("%w: shift session not found", apperror.ErrNotFound)
	ErrNoActiveShift        = fmt.Errorf("%w: no shift is currently active", apperror.ErrNotFound)
	ErrChangeRecordNotFound = fmt.Errorf("%w: shift change record not found", apperror.ErrNotFound)
	ErrShiftNotActive       = fmt.Errorf("%w: shift session is not active", apperror.ErrInvalidState)
	ErrInvalidTransition    = fmt.Errorf("%w: status transition not allowed", apperror.ErrInvalidState)
	ErrClosingCashOnActive  = fmt.Errorf("%w: closing cash is recorded when the shift ends", apperror.ErrInvalidState)
	ErrSupervisorRequired   = fmt.Errorf("%w: emergency end requires supervisor approval", apperror.ErrAuthorization)
	ErrClosedShiftLocked    = fmt.Errorf("%w: closed shifts can only be modified by a supervisor", apperror.ErrAuthorization)
	ErrBackdateNotAllowed   = fmt.Errorf("%w: start time beyond the backdating window requires a supervisor", apperror.ErrAuthorization)
	ErrSupervisorOnly       = fmt.Errorf("%w: supervisor or manager role required", apperror.ErrAuthorization)
	ErrStartTimeInFuture    = fmt.Errorf("%w: start time is too far in the future", apperror.ErrValidation)
	ErrEndBeforeStart       = fmt.Errorf("%w: end time must be after start time", apperror.ErrValidation)
	ErrSameEmployeeHandover = fmt.Errorf("%w: incoming employee must differ from outgoing employee", apperror.ErrValidation)
	ErrMultipleActiveShifts = fmt.Errorf("%w: more than one active shift detected", apperror.ErrIntegrity)
	ErrRollbackFailed       = fmt.Errorf("%w: rollback failed, manual reconciliation required", apperror.ErrIntegrity)
)
