package shift

import (
	"context"
	"time"
)

// ShiftService is the shift state machine and handover protocol.
type ShiftService interface {
	// StartShift opens a new active session; ErrShiftAlreadyActive if one exists
	StartShift(ctx context.Context, req StartShiftRequest) (Session, error)

	// EndShift closes the active session and writes its change record
	EndShift(ctx context.Context, req EndShiftRequest) (EndShiftResult, error)

	// PerformHandover ends the outgoing session and starts the incoming one as one unit of work
	PerformHandover(ctx context.Context, req HandoverRequest) (HandoverResult, error)

	// UpdateShift applies administrative edits under the closed-shift and backdating guards
	UpdateShift(ctx context.Context, req UpdateShiftRequest) (Session, error)

	GetShift(ctx context.Context, id string) (Session, error)

	// GetCurrentActiveShift returns nil when no shift is active
	GetCurrentActiveShift(ctx context.Context) (*ActiveShift, error)

	GetEmployeeShiftHistory(ctx context.Context, filter HistoryFilter) ([]Session, error)

	GetDailyShiftSummary(ctx context.Context, date time.Time) (DailySummary, error)

	ListShiftChanges(ctx context.Context, shiftID string) ([]ChangeRecord, error)

	// AmendShiftChange is restricted to supervisors
	AmendShiftChange(ctx context.Context, req AmendChangeRequest) (ChangeRecord, error)
}

// StatisticsSyncer recomputes a shift's counters from its parking entries.
// It is idempotent: rerunning it without entry changes yields identical counters.
type StatisticsSyncer interface {
	SyncShiftStatistics(ctx context.Context, shiftID string) (Statistics, error)
}
