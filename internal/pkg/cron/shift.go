package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/parking"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/shift"
)

type Linker interface {
	LinkUnassignedEntries(ctx context.Context) (parking.LinkResult, error)
}

// ShiftJobs keeps the active shift's derived figures current between requests.
type ShiftJobs struct {
	sessions shift.SessionRepository
	entries  parking.EntryRepository
	linker   Linker
	syncer   shift.StatisticsSyncer
	logger   *slog.Logger
	now      func() time.Time
}

func NewShiftJobs(
	sessions shift.SessionRepository,
	entries parking.EntryRepository,
	linker Linker,
	syncer shift.StatisticsSyncer,
	logger *slog.Logger,
) *ShiftJobs {
	return &ShiftJobs{
		sessions: sessions,
		entries:  entries,
		linker:   linker,
		syncer:   syncer,
		logger:   logger,
		now:      time.Now,
	}
}

func (j *ShiftJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJob("link_unassigned_entries", interval, j.LinkUnassignedEntries)
	scheduler.AddJob("sync_active_shift", interval, j.SyncActiveShift)
	scheduler.AddJob("flag_overstayed_vehicles", interval, j.FlagOverstayedVehicles)
}

// LinkUnassignedEntries backfills entries created while no shift was active.
func (j *ShiftJobs) LinkUnassignedEntries(ctx context.Context) error {
	result, err := j.linker.LinkUnassignedEntries(ctx)
	if errors.Is(err, parking.ErrNoActiveShift) {
		return nil
	}
	if err != nil {
		return err
	}
	if result.Linked > 0 {
		j.logger.WarnContext(ctx, "cron: linked parking entries recorded without a shift",
			slog.String("shift_id", result.ShiftSessionID),
			slog.Int("linked", result.Linked),
		)
	}
	return nil
}

// SyncActiveShift recomputes the active shift's statistics from its entries.
func (j *ShiftJobs) SyncActiveShift(ctx context.Context) error {
	active, err := j.sessions.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to get active shift: %w", err)
	}
	if active == nil {
		return nil
	}

	_, err = j.syncer.SyncShiftStatistics(ctx, active.ID)
	if errors.Is(err, shift.ErrShiftNotFound) {
		// ended and removed between the two reads
		return nil
	}
	return err
}

// FlagOverstayedVehicles logs every vehicle still parked past the overstay limit.
func (j *ShiftJobs) FlagOverstayedVehicles(ctx context.Context) error {
	parked := string(parking.EntryStatusParked)
	filter := parking.EntryFilter{Status: &parked, Limit: 200}
	now := j.now()

	flagged := 0
	for {
		entries, _, err := j.entries.List(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to list parked entries: %w", err)
		}
		for _, e := range entries {
			if !e.IsOverstayed(now) {
				continue
			}
			flagged++
			j.logger.WarnContext(ctx, "cron: vehicle overstayed",
				slog.String("entry_id", e.ID),
				slog.String("vehicle_number", e.VehicleNumber),
				slog.Time("entry_time", e.EntryTime),
				slog.Duration("stay", e.StayDuration(now).Truncate(time.Minute)),
			)
		}
		if len(entries) < filter.Limit {
			break
		}
		filter.Offset += filter.Limit
	}

	if flagged > 0 {
		j.logger.InfoContext(ctx, "cron: overstay scan finished", slog.Int("flagged", flagged))
	}
	return nil
}
