package parking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/parking"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/shift"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/database"
)

type Service struct {
	tx database.Transactor
	parking.EntryRepository
	sessions shift.SessionRepository
	syncer   shift.StatisticsSyncer
	rates    parking.RateTable
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(
	tx database.Transactor,
	entryRepository parking.EntryRepository,
	sessionRepository shift.SessionRepository,
	syncer shift.StatisticsSyncer,
	rates parking.RateTable,
	location *time.Location,
	logger *slog.Logger,
) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		tx:              tx,
		EntryRepository: entryRepository,
		sessions:        sessionRepository,
		syncer:          syncer,
		rates:           rates,
		location:        location,
		logger:          logger,
		now:             time.Now,
	}
}

// resync re-aggregates every distinct shift in ids, skipping unassigned references.
func (s *Service) resync(ctx context.Context, ids ...*string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == nil {
			continue
		}
		if _, ok := seen[*id]; ok {
			continue
		}
		seen[*id] = struct{}{}
		if _, err := s.syncer.SyncShiftStatistics(ctx, *id); err != nil {
			return fmt.Errorf("failed to sync shift statistics: %w", err)
		}
	}
	return nil
}

func (s *Service) CreateEntry(ctx context.Context, req parking.CreateEntryRequest) (parking.Entry, error) {
	if err := req.Validate(); err != nil {
		return parking.Entry{}, err
	}

	entryTime := s.now()
	if req.EntryTime != nil {
		entryTime = *req.EntryTime
	}

	entry := parking.Entry{
		ShiftSessionID: req.ShiftSessionID,
		VehicleNumber:  req.VehicleNumber,
		VehicleType:    req.VehicleType,
		TransportName:  req.TransportName,
		DriverName:     req.DriverName,
		DriverPhone:    req.DriverPhone,
		Notes:          req.Notes,
		EntryTime:      entryTime,
		Status:         parking.EntryStatusParked,
		PaymentStatus:  parking.PaymentStatusUnpaid,
		CreatedBy:      req.CreatedBy,
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if entry.ShiftSessionID == nil {
			active, err := s.sessions.GetActive(ctx)
			if err != nil {
				return fmt.Errorf("failed to get active shift: %w", err)
			}
			if active != nil {
				entry.ShiftSessionID = &active.ID
			}
		}

		created, err := s.EntryRepository.Create(ctx, entry)
		if err != nil {
			return fmt.Errorf("failed to create parking entry: %w", err)
		}
		entry = created

		return s.resync(ctx, entry.ShiftSessionID)
	})
	if err != nil {
		return parking.Entry{}, err
	}

	if entry.ShiftSessionID == nil {
		s.logger.WarnContext(ctx, "parking entry accepted without an active shift",
			slog.String("entry_id", entry.ID),
			slog.String("vehicle_number", entry.VehicleNumber),
			slog.Time("entry_time", entry.EntryTime),
		)
	}

	return entry, nil
}

func (s *Service) RecordExit(ctx context.Context, req parking.RecordExitRequest) (parking.Entry, error) {
	if err := req.Validate(); err != nil {
		return parking.Entry{}, err
	}

	var entry parking.Entry
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		entry, err = s.EntryRepository.GetByID(ctx, req.EntryID)
		if err != nil {
			return err
		}
		if entry.HasExited() {
			return parking.ErrEntryAlreadyExited
		}

		exitTime := s.now()
		if req.ExitTime != nil {
			exitTime = *req.ExitTime
		}
		if exitTime.Before(entry.EntryTime) {
			return parking.ErrExitBeforeEntry
		}

		fee := parking.CalculateFee(entry.EntryTime, exitTime, s.rates.For(entry.VehicleType), s.rates.Overstay())
		if fee.PenaltyDays > 0 {
			s.logger.InfoContext(ctx, "overstay penalty charged",
				slog.String("entry_id", entry.ID),
				slog.Int("penalty_days", fee.PenaltyDays),
				slog.String("penalty_fee", fee.PenaltyFee.String()),
			)
		}
		mode := req.PaymentMode
		entry.ExitTime = &exitTime
		entry.Status = parking.EntryStatusExited
		entry.PaymentStatus = parking.PaymentStatusPaid
		entry.PaymentMode = &mode
		entry.CalculatedFee = &fee.Total
		if req.ActualFee != nil {
			actual := *req.ActualFee
			entry.ActualFee = &actual
		}

		if err := s.EntryRepository.Update(ctx, entry); err != nil {
			return fmt.Errorf("failed to record exit: %w", err)
		}

		return s.resync(ctx, entry.ShiftSessionID)
	})
	if err != nil {
		return parking.Entry{}, err
	}

	return entry, nil
}

func (s *Service) UpdateEntry(ctx context.Context, req parking.UpdateEntryRequest) (parking.Entry, error) {
	if err := req.Validate(); err != nil {
		return parking.Entry{}, err
	}

	var entry parking.Entry
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		entry, err = s.EntryRepository.GetByID(ctx, req.EntryID)
		if err != nil {
			return err
		}
		previousShift := entry.ShiftSessionID

		if req.ShiftSessionID != nil {
			if *req.ShiftSessionID == "" {
				entry.ShiftSessionID = nil
			} else {
				id := *req.ShiftSessionID
				entry.ShiftSessionID = &id
			}
		}
		if req.PaymentMode != nil {
			entry.PaymentMode = req.PaymentMode
		}
		if req.PaymentStatus != nil {
			entry.PaymentStatus = parking.PaymentStatus(*req.PaymentStatus)
		}
		if req.ActualFee != nil {
			entry.ActualFee = req.ActualFee
		}
		if req.AmountPaid != nil {
			entry.AmountPaid = req.AmountPaid
		}
		if req.Notes != nil {
			entry.Notes = req.Notes
		}

		if err := s.EntryRepository.Update(ctx, entry); err != nil {
			return fmt.Errorf("failed to update parking entry: %w", err)
		}

		return s.resync(ctx, previousShift, entry.ShiftSessionID)
	})
	if err != nil {
		return parking.Entry{}, err
	}

	return entry, nil
}

func (s *Service) DeleteEntry(ctx context.Context, id string) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.EntryRepository.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.EntryRepository.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete parking entry: %w", err)
		}
		return s.resync(ctx, entry.ShiftSessionID)
	})
}

func (s *Service) GetEntry(ctx context.Context, id string) (parking.Entry, error) {
	return s.EntryRepository.GetByID(ctx, id)
}

func (s *Service) ListEntries(ctx context.Context, filter parking.EntryFilter) ([]parking.Entry, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}
	return s.EntryRepository.List(ctx, filter)
}

// LinkUnassignedEntries stamps the active shift onto entries created since the
// start of the current business day that still have no shift.
func (s *Service) LinkUnassignedEntries(ctx context.Context) (parking.LinkResult, error) {
	local := s.now().In(s.location)
	since := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)

	var result parking.LinkResult
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		active, err := s.sessions.GetActive(ctx)
		if err != nil {
			return fmt.Errorf("failed to get active shift: %w", err)
		}
		if active == nil {
			return parking.ErrNoActiveShift
		}

		linked, err := s.EntryRepository.LinkUnassignedSince(ctx, active.ID, since)
		if err != nil {
			return fmt.Errorf("failed to link unassigned entries: %w", err)
		}
		if linked > 0 {
			if err := s.resync(ctx, &active.ID); err != nil {
				return err
			}
		}

		result = parking.LinkResult{
			ShiftSessionID: active.ID,
			Linked:         linked,
			Since:          since.Format(time.RFC3339),
		}
		return nil
	})
	if err != nil {
		return parking.LinkResult{}, err
	}

	s.logger.InfoContext(ctx, "unassigned parking entries linked",
		slog.String("shift_id", result.ShiftSessionID),
		slog.Int("linked", result.Linked),
	)
	return result, nil
}

func (s *Service) RateSchedule() parking.RateSchedule {
	return s.rates.Schedule()
}
