package shift

import (
	"context"
	"time"
)

// SessionRepository defines data access methods for shift sessions.
// Implementations must reject a second active session atomically with
// ErrShiftAlreadyActive, whatever the interleaving of concurrent callers.
type SessionRepository interface {
	// Create inserts a new session
	Create(ctx context.Context, session Session) (Session, error)

	// GetByID returns ErrShiftNotFound when no session matches
	GetByID(ctx context.Context, id string) (Session, error)

	// GetByIDForUpdate is GetByID that also locks the row until the surrounding unit of work ends
	GetByIDForUpdate(ctx context.Context, id string) (Session, error)

	// GetActive returns nil when no session is active
	GetActive(ctx context.Context) (*Session, error)

	CountActive(ctx context.Context) (int, error)

	// Update writes the lifecycle fields (status, times, cash, notes)
	Update(ctx context.Context, session Session) error

	// UpdateStatistics overwrites the derived counters and stamps updated_at
	UpdateStatistics(ctx context.Context, id string, stats Statistics, at time.Time) error

	// ListByEmployee returns the employee's sessions, newest first
	ListByEmployee(ctx context.Context, employeeID string, limit, offset int) ([]Session, error)

	// ListStartedBetween returns sessions with from <= start_time < to, oldest first
	ListStartedBetween(ctx context.Context, from, to time.Time) ([]Session, error)
}

// ChangeRepository stores the append-only shift change audit trail.
type ChangeRepository interface {
	Create(ctx context.Context, record ChangeRecord) (ChangeRecord, error)
	GetByID(ctx context.Context, id string) (ChangeRecord, error)

	// ListByShift returns records where the shift is either side of the change
	ListByShift(ctx context.Context, shiftID string) ([]ChangeRecord, error)

	// Update rewrites the free-text fields only; used by supervisor amendments
	Update(ctx context.Context, record ChangeRecord) error
}
