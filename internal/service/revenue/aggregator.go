// Package revenue keeps the derived shift counters in step with parking entries.
package revenue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/parking"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/shift"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/database"
	"github.com/shopspring/decimal"
)

type Aggregator struct {
	tx database.Transactor
	shift.SessionRepository
	parking.EntryRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewAggregator(tx database.Transactor, sessionRepository shift.SessionRepository, entryRepository parking.EntryRepository, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		tx:                tx,
		SessionRepository: sessionRepository,
		EntryRepository:   entryRepository,
		logger:            logger,
		now:               time.Now,
	}
}

// Aggregate derives shift counters from the entries linked to it. Revenue only
// counts settled entries; cash and digital split the same sum by payment mode.
func Aggregate(entries []parking.Entry) shift.Statistics {
	stats := shift.Statistics{
		TotalRevenue:     decimal.Zero,
		CashCollected:    decimal.Zero,
		DigitalCollected: decimal.Zero,
	}

	for _, e := range entries {
		stats.VehiclesEntered++
		if e.HasExited() {
			stats.VehiclesExited++
		} else {
			stats.CurrentlyParked++
		}

		if !e.IsSettled() {
			continue
		}
		fee, ok := e.Fee()
		if !ok {
			continue
		}
		stats.TotalRevenue = stats.TotalRevenue.Add(fee)
		switch {
		case e.IsCashPayment():
			stats.CashCollected = stats.CashCollected.Add(fee)
		case e.IsDigitalPayment():
			stats.DigitalCollected = stats.DigitalCollected.Add(fee)
		}
	}

	return stats
}

// SyncShiftStatistics recomputes the counters of a shift in full and writes them
// back. The shift row stays locked until the unit of work ends, so concurrent
// syncs of one shift serialize and the last writer holds a complete re-aggregation.
func (a *Aggregator) SyncShiftStatistics(ctx context.Context, shiftID string) (shift.Statistics, error) {
	var stats shift.Statistics

	err := a.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := a.SessionRepository.GetByIDForUpdate(ctx, shiftID); err != nil {
			return err
		}

		entries, err := a.EntryRepository.ListByShift(ctx, shiftID)
		if err != nil {
			return fmt.Errorf("failed to list parking entries: %w", err)
		}

		stats = Aggregate(entries)
		if err := a.SessionRepository.UpdateStatistics(ctx, shiftID, stats, a.now()); err != nil {
			return fmt.Errorf("failed to update shift statistics: %w", err)
		}
		return nil
	})
	if err != nil {
		return shift.Statistics{}, err
	}

	a.logger.DebugContext(ctx, "shift statistics synced",
		slog.String("shift_id", shiftID),
		slog.Int("vehicles_entered", stats.VehiclesEntered),
		slog.String("total_revenue", stats.TotalRevenue.String()),
	)
	return stats, nil
}
