package shift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/audit"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/report"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/shift"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/user"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/apperror"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/database"
	"github.com/shopspring/decimal"
)

const resourceShift = "shift_session"

// Policy bounds the start times accepted for a session.
type Policy struct {
	BackdateWindow time.Duration
	FutureWindow   time.Duration
	Location       *time.Location
}

type ShiftServiceImpl struct {
	tx database.Transactor
	shift.SessionRepository
	changes shift.ChangeRepository
	syncer  shift.StatisticsSyncer
	reports report.ReportService
	authz   user.Authorizer
	audit   audit.AuditService
	policy  Policy
	logger  *slog.Logger
	now     func() time.Time
}

func NewShiftService(
	tx database.Transactor,
	sessionRepository shift.SessionRepository,
	changeRepository shift.ChangeRepository,
	syncer shift.StatisticsSyncer,
	reports report.ReportService,
	authz user.Authorizer,
	auditService audit.AuditService,
	policy Policy,
	logger *slog.Logger,
) *ShiftServiceImpl {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &ShiftServiceImpl{
		tx:                tx,
		SessionRepository: sessionRepository,
		changes:           changeRepository,
		syncer:            syncer,
		reports:           reports,
		authz:             authz,
		audit:             auditService,
		policy:            policy,
		logger:            logger,
		now:               time.Now,
	}
}

// StartShift implements shift.ShiftService.
func (s *ShiftServiceImpl) StartShift(ctx context.Context, req shift.StartShiftRequest) (shift.Session, error) {
	if err := req.Validate(); err != nil {
		return shift.Session{}, err
	}

	now := s.now()
	start := now
	if req.StartTime != nil {
		start = *req.StartTime
	}

	session := shift.Session{
		EmployeeID:    req.EmployeeID,
		EmployeeName:  req.EmployeeName,
		EmployeePhone: req.EmployeePhone,
		StartTime:     start,
		Status:        shift.StatusActive,
		OpeningCash:   req.OpeningCash,
		Notes:         req.Notes,
	}

	err := s.checkStartTime(ctx, start, now)
	if err == nil {
		err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			var err error
			session, err = s.startInTx(ctx, session)
			return err
		})
	}
	err = s.settle(ctx, err, slog.String("operation", "start_shift"), slog.String("employee_id", req.EmployeeID))
	s.recordOutcome(ctx, audit.ActionStartShift, session.ID, err)
	if err != nil {
		return shift.Session{}, err
	}

	s.logger.InfoContext(ctx, "shift started",
		slog.String("shift_id", session.ID),
		slog.String("employee_id", session.EmployeeID),
	)
	return session, nil
}

// EndShift implements shift.ShiftService.
func (s *ShiftServiceImpl) EndShift(ctx context.Context, req shift.EndShiftRequest) (shift.EndShiftResult, error) {
	if err := req.Validate(); err != nil {
		return shift.EndShiftResult{}, err
	}

	action := audit.ActionEndShift
	if req.Emergency {
		action = audit.ActionEmergencyEnd
	}

	var result shift.EndShiftResult
	var err error
	if req.Emergency && !req.HasSupervisor() {
		err = shift.ErrSupervisorRequired
	} else {
		err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			var err error
			result, err = s.endInTx(ctx, req, true)
			return err
		})
	}
	err = s.settle(ctx, err, slog.String("operation", "end_shift"), slog.String("shift_id", req.ShiftID))
	s.recordOutcome(ctx, action, req.ShiftID, err)
	if err != nil {
		return shift.EndShiftResult{}, err
	}

	s.logger.InfoContext(ctx, "shift ended",
		slog.String("shift_id", result.ShiftID),
		slog.String("status", string(result.Status)),
		slog.String("cash_discrepancy", result.CashDiscrepancy.String()),
	)
	return result, nil
}

// PerformHandover implements shift.ShiftService. Ending the outgoing session,
// starting the incoming one and writing the change record commit together or not at all.
func (s *ShiftServiceImpl) PerformHandover(ctx context.Context, req shift.HandoverRequest) (shift.HandoverResult, error) {
	if err := req.Validate(); err != nil {
		return shift.HandoverResult{}, err
	}

	var result shift.HandoverResult
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		outgoing, err := s.SessionRepository.GetByIDForUpdate(ctx, req.OutgoingShiftID)
		if err != nil {
			return err
		}
		if !outgoing.IsActive() {
			return shift.ErrShiftNotActive
		}
		if outgoing.EmployeeID == req.IncomingEmployeeID {
			return shift.ErrSameEmployeeHandover
		}

		ended, err := s.endInTx(ctx, shift.EndShiftRequest{
			ShiftID:     req.OutgoingShiftID,
			ClosingCash: req.ClosingCash,
		}, false)
		if err != nil {
			return err
		}

		incoming, err := s.startInTx(ctx, shift.Session{
			EmployeeID:    req.IncomingEmployeeID,
			EmployeeName:  req.IncomingEmployeeName,
			EmployeePhone: req.IncomingEmployeePhone,
			StartTime:     ended.EndedAt,
			Status:        shift.StatusActive,
			OpeningCash:   req.OpeningCash,
		})
		if err != nil {
			return err
		}

		record, err := s.changes.Create(ctx, shift.ChangeRecord{
			PreviousShiftID:      outgoing.ID,
			NewShiftID:           &incoming.ID,
			ChangeTimestamp:      ended.EndedAt,
			HandoverNotes:        req.HandoverNotes,
			CashTransferred:      req.ClosingCash,
			PendingIssues:        req.PendingIssues,
			OutgoingEmployeeID:   outgoing.EmployeeID,
			OutgoingEmployeeName: outgoing.EmployeeName,
			IncomingEmployeeID:   &incoming.EmployeeID,
			IncomingEmployeeName: &incoming.EmployeeName,
			ChangeType:           shift.ChangeTypeNormal,
		})
		if err != nil {
			return fmt.Errorf("failed to create shift change record: %w", err)
		}

		result = shift.HandoverResult{
			HandoverID:      record.ID,
			OutgoingReport:  ended.Report,
			NewShiftID:      incoming.ID,
			CashTransferred: record.CashTransferred,
			PendingIssues:   record.PendingIssues,
		}
		return nil
	})
	err = s.settle(ctx, err,
		slog.String("operation", "handover"),
		slog.String("outgoing_shift_id", req.OutgoingShiftID),
		slog.String("incoming_employee_id", req.IncomingEmployeeID),
	)
	s.recordOutcome(ctx, audit.ActionEndShift, req.OutgoingShiftID, err)
	if err != nil {
		return shift.HandoverResult{}, err
	}
	s.recordOutcome(ctx, audit.ActionStartShift, result.NewShiftID, nil)

	s.logger.InfoContext(ctx, "shift handed over",
		slog.String("handover_id", result.HandoverID),
		slog.String("outgoing_shift_id", req.OutgoingShiftID),
		slog.String("new_shift_id", result.NewShiftID),
	)
	return result, nil
}

// UpdateShift implements shift.ShiftService.
func (s *ShiftServiceImpl) UpdateShift(ctx context.Context, req shift.UpdateShiftRequest) (shift.Session, error) {
	if err := req.Validate(); err != nil {
		return shift.Session{}, err
	}

	supervisor := s.authz.IsSupervisorOrManager(ctx)
	now := s.now()

	var session shift.Session
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		session, err = s.SessionRepository.GetByIDForUpdate(ctx, req.ShiftID)
		if err != nil {
			return err
		}
		if session.Status.IsTerminal() && !supervisor {
			return shift.ErrClosedShiftLocked
		}

		if req.Status != nil {
			target := shift.Status(*req.Status)
			switch {
			case target == session.Status:
			case !session.Status.IsTerminal() || !target.IsTerminal():
				// Sessions close through EndShift and never reopen.
				return shift.ErrInvalidTransition
			default:
				session.Status = target
			}
		}

		if req.StartTime != nil {
			if err := s.checkStartTimeFor(supervisor, *req.StartTime, now); err != nil {
				return err
			}
			session.StartTime = *req.StartTime
			if session.EndTime != nil {
				if !session.EndTime.After(session.StartTime) {
					return shift.ErrEndBeforeStart
				}
				minutes := int(session.EndTime.Sub(session.StartTime).Minutes())
				session.DurationMinutes = &minutes
			}
		}

		if req.ClosingCash != nil {
			if session.IsActive() {
				return shift.ErrClosingCashOnActive
			}
			session.SetClosingCash(*req.ClosingCash)
		}

		if req.Notes != nil {
			session.Notes = req.Notes
		}

		if err := s.SessionRepository.Update(ctx, session); err != nil {
			return fmt.Errorf("failed to update shift session: %w", err)
		}
		return nil
	})
	err = s.settle(ctx, err, slog.String("operation", "update_shift"), slog.String("shift_id", req.ShiftID))
	s.recordOutcome(ctx, audit.ActionUpdateShift, req.ShiftID, err)
	if err != nil {
		return shift.Session{}, err
	}

	return s.SessionRepository.GetByID(ctx, req.ShiftID)
}

// GetShift implements shift.ShiftService.
func (s *ShiftServiceImpl) GetShift(ctx context.Context, id string) (shift.Session, error) {
	return s.SessionRepository.GetByID(ctx, id)
}

// GetCurrentActiveShift implements shift.ShiftService.
func (s *ShiftServiceImpl) GetCurrentActiveShift(ctx context.Context) (*shift.ActiveShift, error) {
	session, err := s.SessionRepository.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active shift: %w", err)
	}
	if session == nil {
		return nil, nil
	}
	return &shift.ActiveShift{
		Session:             *session,
		LiveDurationMinutes: session.LiveDurationMinutes(s.now()),
	}, nil
}

// GetEmployeeShiftHistory implements shift.ShiftService.
func (s *ShiftServiceImpl) GetEmployeeShiftHistory(ctx context.Context, filter shift.HistoryFilter) ([]shift.Session, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.SessionRepository.ListByEmployee(ctx, filter.EmployeeID, filter.Limit, filter.Offset)
}

// GetDailyShiftSummary implements shift.ShiftService. The day is the calendar
// day of date in the business time zone; shifts are bucketed by start time.
func (s *ShiftServiceImpl) GetDailyShiftSummary(ctx context.Context, date time.Time) (shift.DailySummary, error) {
	local := date.In(s.policy.Location)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.policy.Location)
	to := from.AddDate(0, 0, 1)

	sessions, err := s.SessionRepository.ListStartedBetween(ctx, from, to)
	if err != nil {
		return shift.DailySummary{}, fmt.Errorf("failed to list shifts: %w", err)
	}

	now := s.now()
	summary := shift.DailySummary{
		Date:               from,
		TotalShifts:        len(sessions),
		TotalCashCollected: decimal.Zero,
		Shifts:             sessions,
	}
	var minutes int
	for _, session := range sessions {
		minutes += session.LiveDurationMinutes(now)
		summary.TotalCashCollected = summary.TotalCashCollected.Add(session.CashCollected)
		if session.Status == shift.StatusEmergencyEnded {
			summary.EmergencyEnds++
		}
	}
	summary.TotalHours = math.Round(float64(minutes)/60*100) / 100

	return summary, nil
}

// ListShiftChanges implements shift.ShiftService.
func (s *ShiftServiceImpl) ListShiftChanges(ctx context.Context, shiftID string) ([]shift.ChangeRecord, error) {
	if _, err := s.SessionRepository.GetByID(ctx, shiftID); err != nil {
		return nil, err
	}
	return s.changes.ListByShift(ctx, shiftID)
}

// AmendShiftChange implements shift.ShiftService.
func (s *ShiftServiceImpl) AmendShiftChange(ctx context.Context, req shift.AmendChangeRequest) (shift.ChangeRecord, error) {
	if err := req.Validate(); err != nil {
		return shift.ChangeRecord{}, err
	}

	var record shift.ChangeRecord
	var err error
	if !s.authz.IsSupervisorOrManager(ctx) {
		err = shift.ErrSupervisorOnly
	} else {
		err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			var err error
			record, err = s.changes.GetByID(ctx, req.ChangeID)
			if err != nil {
				return err
			}
			if req.HandoverNotes != nil {
				record.HandoverNotes = req.HandoverNotes
			}
			if req.PendingIssues != nil {
				record.PendingIssues = req.PendingIssues
			}
			return s.changes.Update(ctx, record)
		})
	}
	s.recordOutcome(ctx, audit.ActionAmendChange, req.ChangeID, err)
	if err != nil {
		return shift.ChangeRecord{}, err
	}

	return record, nil
}

// startInTx creates an active session and verifies afterwards that it is the
// only one. A second active session means the storage arbiter failed.
func (s *ShiftServiceImpl) startInTx(ctx context.Context, session shift.Session) (shift.Session, error) {
	active, err := s.SessionRepository.GetActive(ctx)
	if err != nil {
		return shift.Session{}, fmt.Errorf("failed to get active shift: %w", err)
	}
	if active != nil {
		return shift.Session{}, shift.ErrShiftAlreadyActive
	}

	created, err := s.SessionRepository.Create(ctx, session)
	if err != nil {
		if errors.Is(err, shift.ErrShiftAlreadyActive) {
			return shift.Session{}, err
		}
		return shift.Session{}, fmt.Errorf("failed to create shift session: %w", err)
	}

	count, err := s.SessionRepository.CountActive(ctx)
	if err != nil {
		return shift.Session{}, fmt.Errorf("failed to count active shifts: %w", err)
	}
	if count > 1 {
		return shift.Session{}, fmt.Errorf("%w: %d active sessions after starting %s", shift.ErrMultipleActiveShifts, count, created.ID)
	}

	return created, nil
}

// endInTx closes an active session and builds its final report. A plain end
// writes its own change record; a handover writes one linking both sessions.
func (s *ShiftServiceImpl) endInTx(ctx context.Context, req shift.EndShiftRequest, writeChange bool) (shift.EndShiftResult, error) {
	session, err := s.SessionRepository.GetByIDForUpdate(ctx, req.ShiftID)
	if err != nil {
		return shift.EndShiftResult{}, err
	}
	if !session.IsActive() {
		return shift.EndShiftResult{}, shift.ErrShiftNotActive
	}

	now := s.now()
	if !now.After(session.StartTime) {
		return shift.EndShiftResult{}, shift.ErrEndBeforeStart
	}

	status := shift.StatusCompleted
	changeType := shift.ChangeTypeNormal
	if req.Emergency {
		status = shift.StatusEmergencyEnded
		changeType = shift.ChangeTypeEmergency
	}

	session.Close(now, req.ClosingCash, status)
	if req.Notes != nil {
		session.Notes = req.Notes
	}
	if err := s.SessionRepository.Update(ctx, session); err != nil {
		return shift.EndShiftResult{}, fmt.Errorf("failed to close shift session: %w", err)
	}

	if writeChange {
		_, err := s.changes.Create(ctx, shift.ChangeRecord{
			PreviousShiftID:      session.ID,
			ChangeTimestamp:      now,
			HandoverNotes:        req.Notes,
			CashTransferred:      req.ClosingCash,
			OutgoingEmployeeID:   session.EmployeeID,
			OutgoingEmployeeName: session.EmployeeName,
			ChangeType:           changeType,
			SupervisorApproved:   req.Emergency,
			SupervisorID:         req.SupervisorID,
			SupervisorName:       req.SupervisorName,
		})
		if err != nil {
			return shift.EndShiftResult{}, fmt.Errorf("failed to create shift change record: %w", err)
		}
	}

	shiftReport, err := s.reports.GenerateShiftReport(ctx, session.ID)
	if err != nil {
		return shift.EndShiftResult{}, fmt.Errorf("failed to generate shift report: %w", err)
	}

	return shift.EndShiftResult{
		ShiftID:         session.ID,
		Status:          status,
		CashDiscrepancy: *session.CashDiscrepancy,
		EndedAt:         now,
		Report:          shiftReport,
	}, nil
}

func (s *ShiftServiceImpl) checkStartTime(ctx context.Context, start, now time.Time) error {
	return s.checkStartTimeFor(s.authz.IsSupervisorOrManager(ctx), start, now)
}

func (s *ShiftServiceImpl) checkStartTimeFor(supervisor bool, start, now time.Time) error {
	if start.After(now.Add(s.policy.FutureWindow)) {
		return shift.ErrStartTimeInFuture
	}
	if now.Sub(start) > s.policy.BackdateWindow && !supervisor {
		return shift.ErrBackdateNotAllowed
	}
	return nil
}

// settle turns storage-level integrity failures into shift.ErrRollbackFailed or
// shift.ErrMultipleActiveShifts and reports them as incidents.
func (s *ShiftServiceImpl) settle(ctx context.Context, err error, attrs ...any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, database.ErrRollbackFailed) && !errors.Is(err, shift.ErrRollbackFailed) {
		err = fmt.Errorf("%w: %w", shift.ErrRollbackFailed, err)
	}
	if errors.Is(err, apperror.ErrIntegrity) {
		s.logger.ErrorContext(ctx, "shift integrity incident", append(attrs, slog.Any("error", err))...)
	}
	return err
}

// recordOutcome writes an access log entry for allowed calls and for denials.
// Other failures are not security events.
func (s *ShiftServiceImpl) recordOutcome(ctx context.Context, action audit.Action, resourceID string, err error) {
	event := audit.Event{Action: action, Resource: resourceShift, ResourceID: resourceID}
	switch {
	case err == nil:
		event.Allowed = true
	case errors.Is(err, apperror.ErrAuthorization):
		event.Reason = err.Error()
	default:
		return
	}
	s.audit.Record(ctx, event)
}
