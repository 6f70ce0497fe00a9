package shift

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/audit"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/parking"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/shift"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/apperror"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/database"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/validator"
	"github.com/cmlabs-parking/parking-backend-go/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestShiftService_StartShift_ConflictWhenActive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.start(t, "emp-1", 100)

	_, err := h.service.StartShift(ctx, shift.StartShiftRequest{
		EmployeeID:   "emp-2",
		EmployeeName: "Second",
		OpeningCash:  decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, shift.ErrShiftAlreadyActive)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	history, err := h.service.GetEmployeeShiftHistory(ctx, shift.HistoryFilter{EmployeeID: "emp-2"})
	require.NoError(t, err)
	assert.Empty(t, history, "no row is created on conflict")
	assert.Equal(t, 1, h.activeCount(t))
}

func TestShiftService_StartShift_Validation(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.StartShift(context.Background(), shift.StartShiftRequest{
		EmployeeID:  "",
		OpeningCash: decimal.NewFromInt(-1),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.True(t, verrs.Has("employee_id"))
	assert.True(t, verrs.Has("opening_cash"))
	assert.Zero(t, h.activeCount(t))
}

func TestShiftService_StartShift_BackdatingGuard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	twoDaysAgo := time.Now().Add(-48 * time.Hour)
	req := shift.StartShiftRequest{
		EmployeeID:   "emp-1",
		EmployeeName: "Asha",
		OpeningCash:  decimal.NewFromInt(100),
		StartTime:    &twoDaysAgo,
	}

	_, err := h.service.StartShift(ctx, req)
	assert.ErrorIs(t, err, shift.ErrBackdateNotAllowed)
	assert.ErrorIs(t, err, apperror.ErrAuthorization)
	assert.Zero(t, h.activeCount(t))

	denied, _, err := h.logs.List(ctx, audit.AccessLogFilter{DeniedOnly: true, Limit: 10})
	require.NoError(t, err)
	require.Len(t, denied, 1)
	assert.Equal(t, audit.ActionStartShift, denied[0].Action)

	h.authz.supervisor = true
	session, err := h.service.StartShift(ctx, req)
	require.NoError(t, err)
	assert.True(t, session.StartTime.Equal(twoDaysAgo))

	future := time.Now().Add(2 * time.Hour)
	_, err = h.service.UpdateShift(ctx, shift.UpdateShiftRequest{ShiftID: session.ID, StartTime: &future})
	assert.ErrorIs(t, err, shift.ErrStartTimeInFuture)
}

func TestShiftService_EndShift(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session := h.start(t, "emp-1", 100)

	result, err := h.service.EndShift(ctx, shift.EndShiftRequest{
		ShiftID:     session.ID,
		ClosingCash: decimal.NewFromInt(130),
	})
	require.NoError(t, err)
	assert.Equal(t, shift.StatusCompleted, result.Status)
	assert.True(t, result.CashDiscrepancy.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, session.ID, result.Report.Shift.ID)
	require.NotNil(t, result.Report.FinancialSummary.CashDiscrepancy)
	assert.True(t, result.Report.FinancialSummary.CashDiscrepancy.Equal(decimal.NewFromInt(30)))

	changes, err := h.service.ListShiftChanges(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, shift.ChangeTypeNormal, changes[0].ChangeType)
	assert.Nil(t, changes[0].NewShiftID)
	assert.True(t, changes[0].CashTransferred.Equal(decimal.NewFromInt(130)))

	// A second end fails and leaves the close-out untouched.
	_, err = h.service.EndShift(ctx, shift.EndShiftRequest{
		ShiftID:     session.ID,
		ClosingCash: decimal.NewFromInt(999),
	})
	assert.ErrorIs(t, err, shift.ErrShiftNotActive)

	ended, err := h.service.GetShift(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, ended.ClosingCash)
	assert.True(t, ended.ClosingCash.Equal(decimal.NewFromInt(130)))
	assert.NotNil(t, ended.EndTime)
	assert.NotNil(t, ended.DurationMinutes)

	_, err = h.service.EndShift(ctx, shift.EndShiftRequest{ShiftID: "missing", ClosingCash: decimal.Zero})
	assert.ErrorIs(t, err, shift.ErrShiftNotFound)
}

func TestShiftService_EmergencyEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session := h.start(t, "emp-1", 100)

	_, err := h.service.EndShift(ctx, shift.EndShiftRequest{
		ShiftID:     session.ID,
		ClosingCash: decimal.NewFromInt(80),
		Emergency:   true,
	})
	assert.ErrorIs(t, err, shift.ErrSupervisorRequired)
	assert.ErrorIs(t, err, apperror.ErrAuthorization)

	still, err := h.service.GetShift(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, still.IsActive(), "shift stays active")
	assert.Nil(t, still.ClosingCash)

	denied, _, err := h.logs.List(ctx, audit.AccessLogFilter{DeniedOnly: true, Limit: 10})
	require.NoError(t, err)
	require.Len(t, denied, 1)
	assert.Equal(t, audit.ActionEmergencyEnd, denied[0].Action)
	assert.Equal(t, session.ID, *denied[0].ResourceID)

	supervisorID, supervisorName := "sup-1", "Meera"
	result, err := h.service.EndShift(ctx, shift.EndShiftRequest{
		ShiftID:        session.ID,
		ClosingCash:    decimal.NewFromInt(80),
		Emergency:      true,
		SupervisorID:   &supervisorID,
		SupervisorName: &supervisorName,
	})
	require.NoError(t, err)
	assert.Equal(t, shift.StatusEmergencyEnded, result.Status)
	assert.True(t, result.CashDiscrepancy.Equal(decimal.NewFromInt(-20)))

	changes, err := h.service.ListShiftChanges(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, shift.ChangeTypeEmergency, changes[0].ChangeType)
	assert.True(t, changes[0].SupervisorApproved)
	assert.Equal(t, supervisorID, *changes[0].SupervisorID)

	summary, err := h.service.GetDailyShiftSummary(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.EmergencyEnds)
}

func TestShiftService_PerformHandover(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.start(t, "emp-a", 100)
	notes, issues := "gate 2 barrier sticky", "KA01AB1234 disputes fee"

	result, err := h.service.PerformHandover(ctx, shift.HandoverRequest{
		OutgoingShiftID:      a.ID,
		IncomingEmployeeID:   "emp-b",
		IncomingEmployeeName: "Bala",
		ClosingCash:          decimal.NewFromInt(150),
		OpeningCash:          decimal.NewFromInt(50),
		HandoverNotes:        &notes,
		PendingIssues:        &issues,
	})
	require.NoError(t, err)

	require.NotNil(t, result.OutgoingReport.FinancialSummary.CashDiscrepancy)
	assert.True(t, result.OutgoingReport.FinancialSummary.CashDiscrepancy.Equal(decimal.NewFromInt(50)))
	assert.True(t, result.CashTransferred.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, issues, *result.PendingIssues)

	outgoing, err := h.service.GetShift(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, shift.StatusCompleted, outgoing.Status)

	active, err := h.service.GetCurrentActiveShift(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, result.NewShiftID, active.ID)
	assert.Equal(t, "emp-b", active.EmployeeID)
	assert.True(t, active.OpeningCash.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 1, h.activeCount(t))

	changes, err := h.service.ListShiftChanges(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, changes, 1, "exactly one change record per handover")
	record := changes[0]
	assert.Equal(t, result.HandoverID, record.ID)
	assert.Equal(t, result.NewShiftID, *record.NewShiftID)
	assert.Equal(t, "emp-a", record.OutgoingEmployeeID)
	assert.Equal(t, "emp-b", *record.IncomingEmployeeID)
	assert.Equal(t, shift.ChangeTypeNormal, record.ChangeType)
	assert.True(t, record.CashTransferred.Equal(decimal.NewFromInt(150)))
}

func TestShiftService_PerformHandover_FailsAtomically(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.start(t, "emp-a", 100)

	_, err := h.service.PerformHandover(ctx, shift.HandoverRequest{
		OutgoingShiftID:      a.ID,
		IncomingEmployeeID:   "emp-a",
		IncomingEmployeeName: "Same Person",
		ClosingCash:          decimal.NewFromInt(150),
		OpeningCash:          decimal.NewFromInt(50),
	})
	assert.ErrorIs(t, err, shift.ErrSameEmployeeHandover)

	_, err = h.service.PerformHandover(ctx, shift.HandoverRequest{
		OutgoingShiftID:      "missing",
		IncomingEmployeeID:   "emp-b",
		IncomingEmployeeName: "Bala",
	})
	assert.ErrorIs(t, err, shift.ErrShiftNotFound)

	still, err := h.service.GetShift(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, still.IsActive())
	assert.Equal(t, 1, h.activeCount(t))

	changes, err := h.service.ListShiftChanges(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

// failingChanges fails every insert so a handover breaks after both session writes.
type failingChanges struct {
	shift.ChangeRepository
}

func (failingChanges) Create(context.Context, shift.ChangeRecord) (shift.ChangeRecord, error) {
	return shift.ChangeRecord{}, errors.New("disk full")
}

func TestShiftService_PerformHandover_RollsBackLateFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.start(t, "emp-a", 100)
	h.service.changes = failingChanges{h.changes}

	_, err := h.service.PerformHandover(ctx, shift.HandoverRequest{
		OutgoingShiftID:      a.ID,
		IncomingEmployeeID:   "emp-b",
		IncomingEmployeeName: "Bala",
		ClosingCash:          decimal.NewFromInt(150),
		OpeningCash:          decimal.NewFromInt(50),
	})
	require.Error(t, err)

	active, err := h.service.GetCurrentActiveShift(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, a.ID, active.ID, "outgoing shift is restored")
	assert.Nil(t, active.ClosingCash)

	history, err := h.service.GetEmployeeShiftHistory(ctx, shift.HistoryFilter{EmployeeID: "emp-b"})
	require.NoError(t, err)
	assert.Empty(t, history, "incoming shift is discarded")
}

// brokenRollback reports every failed unit of work as an unrecoverable rollback.
type brokenRollback struct {
	store *memory.Store
}

func (b brokenRollback) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.store.WithinTransaction(ctx, fn); err != nil {
		return fmt.Errorf("%w: connection reset (original error: %w)", database.ErrRollbackFailed, err)
	}
	return nil
}

func TestShiftService_RollbackFailureIsIntegrityError(t *testing.T) {
	h := newHarness(t, withTransactor(func(s *memory.Store) database.Transactor {
		return brokenRollback{store: s}
	}))
	ctx := context.Background()
	a := h.start(t, "emp-a", 100)

	_, err := h.service.PerformHandover(ctx, shift.HandoverRequest{
		OutgoingShiftID:      a.ID,
		IncomingEmployeeID:   "emp-a",
		IncomingEmployeeName: "Same Person",
		ClosingCash:          decimal.NewFromInt(150),
		OpeningCash:          decimal.NewFromInt(50),
	})
	assert.ErrorIs(t, err, shift.ErrRollbackFailed)
	assert.ErrorIs(t, err, apperror.ErrIntegrity)
	assert.ErrorIs(t, err, shift.ErrSameEmployeeHandover, "original cause is kept")
}

// doubleCounting reports a phantom second active session.
type doubleCounting struct {
	shift.SessionRepository
}

func (d doubleCounting) CountActive(ctx context.Context) (int, error) {
	n, err := d.SessionRepository.CountActive(ctx)
	return n + 1, err
}

func TestShiftService_StartShift_DetectsMultipleActive(t *testing.T) {
	h := newHarness(t, withSessions(func(r shift.SessionRepository) shift.SessionRepository {
		return doubleCounting{r}
	}))

	_, err := h.service.StartShift(context.Background(), shift.StartShiftRequest{
		EmployeeID:   "emp-1",
		EmployeeName: "Asha",
		OpeningCash:  decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, shift.ErrMultipleActiveShifts)
	assert.ErrorIs(t, err, apperror.ErrIntegrity)

	active, err := h.sessions.GetActive(context.Background())
	require.NoError(t, err)
	assert.Nil(t, active, "the insert is rolled back")
}

func TestShiftService_ConcurrentLifecycle_SingleActive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var g errgroup.Group
	violations := make(chan int, 1000)
	for worker := range 8 {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(uint64(worker), 42))
			for i := range 25 {
				if rng.IntN(2) == 0 {
					_, err := h.service.StartShift(ctx, shift.StartShiftRequest{
						EmployeeID:   fmt.Sprintf("emp-%d-%d", worker, i),
						EmployeeName: "Worker",
						OpeningCash:  decimal.NewFromInt(int64(rng.IntN(200))),
					})
					if err != nil && !errors.Is(err, shift.ErrShiftAlreadyActive) {
						return err
					}
				} else {
					active, err := h.service.GetCurrentActiveShift(ctx)
					if err != nil {
						return err
					}
					if active != nil {
						// Sessions started a moment ago may not have a measurable duration yet.
						time.Sleep(time.Millisecond)
						_, err := h.service.EndShift(ctx, shift.EndShiftRequest{
							ShiftID:     active.ID,
							ClosingCash: decimal.NewFromInt(int64(rng.IntN(200))),
						})
						if err != nil && !errors.Is(err, shift.ErrShiftNotActive) {
							return err
						}
					}
				}

				count, err := h.sessions.CountActive(ctx)
				if err != nil {
					return err
				}
				if count > 1 {
					violations <- count
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	close(violations)

	for count := range violations {
		t.Errorf("observed %d active shifts", count)
	}
	assert.LessOrEqual(t, h.activeCount(t), 1)
}

func TestShiftService_UpdateShift_Guards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session := h.start(t, "emp-1", 100)
	notes := "radio handed to security"

	updated, err := h.service.UpdateShift(ctx, shift.UpdateShiftRequest{ShiftID: session.ID, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, *updated.Notes)

	completed := string(shift.StatusCompleted)
	_, err = h.service.UpdateShift(ctx, shift.UpdateShiftRequest{ShiftID: session.ID, Status: &completed})
	assert.ErrorIs(t, err, shift.ErrInvalidTransition, "active shifts close through EndShift")

	closing := decimal.NewFromInt(10)
	_, err = h.service.UpdateShift(ctx, shift.UpdateShiftRequest{ShiftID: session.ID, ClosingCash: &closing})
	assert.ErrorIs(t, err, shift.ErrClosingCashOnActive)

	_, err = h.service.EndShift(ctx, shift.EndShiftRequest{ShiftID: session.ID, ClosingCash: decimal.NewFromInt(100)})
	require.NoError(t, err)

	emergency := string(shift.StatusEmergencyEnded)
	_, err = h.service.UpdateShift(ctx, shift.UpdateShiftRequest{ShiftID: session.ID, Status: &emergency})
	assert.ErrorIs(t, err, shift.ErrClosedShiftLocked)

	h.authz.supervisor = true
	updated, err = h.service.UpdateShift(ctx, shift.UpdateShiftRequest{ShiftID: session.ID, Status: &emergency, ClosingCash: &closing})
	require.NoError(t, err)
	assert.Equal(t, shift.StatusEmergencyEnded, updated.Status)
	assert.True(t, updated.CashDiscrepancy.Equal(decimal.NewFromInt(-90)))

	active := string(shift.StatusActive)
	_, err = h.service.UpdateShift(ctx, shift.UpdateShiftRequest{ShiftID: session.ID, Status: &active})
	assert.ErrorIs(t, err, shift.ErrInvalidTransition, "closed shifts never reopen")

	denied, _, err := h.logs.List(ctx, audit.AccessLogFilter{DeniedOnly: true, Limit: 10})
	require.NoError(t, err)
	require.Len(t, denied, 1)
	assert.Equal(t, audit.ActionUpdateShift, denied[0].Action)
	assert.Equal(t, "emp-actor", *denied[0].EmployeeID)
}

func TestShiftService_AmendShiftChange_SupervisorOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session := h.start(t, "emp-1", 100)
	_, err := h.service.EndShift(ctx, shift.EndShiftRequest{ShiftID: session.ID, ClosingCash: decimal.NewFromInt(100)})
	require.NoError(t, err)

	changes, err := h.service.ListShiftChanges(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	issues := "float short by 10"

	_, err = h.service.AmendShiftChange(ctx, shift.AmendChangeRequest{ChangeID: changes[0].ID, PendingIssues: &issues})
	assert.ErrorIs(t, err, shift.ErrSupervisorOnly)

	h.authz.supervisor = true
	amended, err := h.service.AmendShiftChange(ctx, shift.AmendChangeRequest{ChangeID: changes[0].ID, PendingIssues: &issues})
	require.NoError(t, err)
	assert.Equal(t, issues, *amended.PendingIssues)

	_, err = h.service.AmendShiftChange(ctx, shift.AmendChangeRequest{ChangeID: "missing", PendingIssues: &issues})
	assert.ErrorIs(t, err, shift.ErrChangeRecordNotFound)
}

func TestShiftService_EndShift_ReconcilesParkingRevenue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session := h.start(t, "emp-1", 100)
	entryTime := time.Now().Add(-90 * time.Minute)

	for i, fee := range []int64{50, 70, 0} {
		entry, err := h.parking.CreateEntry(ctx, parking.CreateEntryRequest{
			VehicleNumber: fmt.Sprintf("ka01ab%04d", i),
			VehicleType:   "4 Wheeler",
			EntryTime:     &entryTime,
		})
		require.NoError(t, err)
		require.NotNil(t, entry.ShiftSessionID)
		assert.Equal(t, session.ID, *entry.ShiftSessionID)

		if fee == 0 {
			continue
		}
		actual := decimal.NewFromInt(fee)
		_, err = h.parking.RecordExit(ctx, parking.RecordExitRequest{
			EntryID:     entry.ID,
			PaymentMode: "Cash",
			ActualFee:   &actual,
		})
		require.NoError(t, err)
	}

	result, err := h.service.EndShift(ctx, shift.EndShiftRequest{ShiftID: session.ID, ClosingCash: decimal.NewFromInt(220)})
	require.NoError(t, err)

	stats := result.Report.ParkingStatistics
	assert.Equal(t, 3, stats.VehiclesEntered)
	assert.Equal(t, 2, stats.VehiclesExited)
	assert.Equal(t, 1, stats.CurrentlyParked)

	financial := result.Report.FinancialSummary
	assert.True(t, financial.RevenueCollected.Equal(decimal.NewFromInt(120)))
	assert.True(t, financial.CashCollected.Equal(decimal.NewFromInt(120)))
	assert.True(t, financial.ExpectedCash.Equal(decimal.NewFromInt(220)))
	assert.Len(t, result.Report.Entries, 3)

	summary, err := h.service.GetDailyShiftSummary(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalShifts)
	assert.True(t, summary.TotalCashCollected.Equal(decimal.NewFromInt(120)))
	assert.InDelta(t, 2.0, summary.TotalHours, 0.05)
}
