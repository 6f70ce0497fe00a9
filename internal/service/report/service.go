package report

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/parking"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/report"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/shift"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/database"
	"github.com/shopspring/decimal"
)

// Targets calibrate the occupancy rate and the efficiency score.
type Targets struct {
	LotCapacity       int
	VehiclesPerHour   float64
	RevenuePerVehicle float64
	Location          *time.Location
}

type ReportServiceImpl struct {
	tx       database.Transactor
	sessions shift.SessionRepository
	entries  parking.EntryRepository
	syncer   shift.StatisticsSyncer
	rates    parking.RateTable
	targets  Targets
	now      func() time.Time
}

func NewReportService(
	tx database.Transactor,
	sessionRepository shift.SessionRepository,
	entryRepository parking.EntryRepository,
	syncer shift.StatisticsSyncer,
	rates parking.RateTable,
	targets Targets,
) *ReportServiceImpl {
	if targets.Location == nil {
		targets.Location = time.UTC
	}
	return &ReportServiceImpl{
		tx:       tx,
		sessions: sessionRepository,
		entries:  entryRepository,
		syncer:   syncer,
		rates:    rates,
		targets:  targets,
		now:      time.Now,
	}
}

// GenerateShiftReport implements report.ReportService. The shift is re-aggregated
// first so the report never trails the parking entries it lists.
func (s *ReportServiceImpl) GenerateShiftReport(ctx context.Context, shiftID string) (report.ShiftReport, error) {
	var (
		session shift.Session
		entries []parking.Entry
	)

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.syncer.SyncShiftStatistics(ctx, shiftID); err != nil {
			return err
		}

		var err error
		session, err = s.sessions.GetByID(ctx, shiftID)
		if err != nil {
			return err
		}

		entries, err = s.entries.ListByShift(ctx, shiftID)
		if err != nil {
			return fmt.Errorf("failed to list parking entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return report.ShiftReport{}, err
	}

	return s.build(session, entries, s.now()), nil
}

func (s *ReportServiceImpl) build(session shift.Session, entries []parking.Entry, now time.Time) report.ShiftReport {
	windowEnd := now
	if session.EndTime != nil {
		windowEnd = *session.EndTime
	}

	info := report.ShiftInfo{
		ID:              session.ID,
		EmployeeID:      session.EmployeeID,
		EmployeeName:    session.EmployeeName,
		Status:          string(session.Status),
		StartTime:       session.StartTime.Format(time.RFC3339),
		DurationMinutes: session.LiveDurationMinutes(now),
	}
	if session.EndTime != nil {
		end := session.EndTime.Format(time.RFC3339)
		info.EndTime = &end
	}

	details := make([]parking.EntryResponse, 0, len(entries))
	for _, e := range entries {
		details = append(details, parking.NewEntryResponse(e, now))
	}

	return report.ShiftReport{
		GeneratedAt:        now.Format(time.RFC3339),
		Shift:              info,
		ParkingStatistics:  s.parkingStatistics(session, entries, now),
		FinancialSummary:   s.financialSummary(session, entries, windowEnd),
		PerformanceMetrics: s.performanceMetrics(session, windowEnd),
		Entries:            details,
	}
}

func (s *ReportServiceImpl) parkingStatistics(session shift.Session, entries []parking.Entry, now time.Time) report.ParkingStatistics {
	stats := report.ParkingStatistics{
		VehiclesEntered: session.VehiclesEntered,
		VehiclesExited:  session.VehiclesExited,
		CurrentlyParked: session.CurrentlyParked,
		PeakOccupancy:   peakOccupancy(entries),
		PeakHour:        peakHour(entries, s.targets.Location),
	}

	var stayMinutes float64
	var completed int
	for _, e := range entries {
		if e.HasExited() {
			stayMinutes += e.StayDuration(now).Minutes()
			completed++
		}
		if e.IsOverstayed(now) {
			stats.OverstayedVehicles++
		}
	}
	if completed > 0 {
		stats.AverageStayMinutes = round2(stayMinutes / float64(completed))
	}
	if s.targets.LotCapacity > 0 {
		stats.OccupancyRate = round2(float64(stats.PeakOccupancy) / float64(s.targets.LotCapacity) * 100)
	}

	return stats
}

func (s *ReportServiceImpl) financialSummary(session shift.Session, entries []parking.Entry, windowEnd time.Time) report.FinancialSummary {
	outstanding := decimal.Zero
	for _, e := range entries {
		if e.IsSettled() {
			continue
		}
		fee, ok := e.Fee()
		if !ok {
			fee = parking.CalculateFee(e.EntryTime, windowEnd, s.rates.For(e.VehicleType), s.rates.Overstay()).Total
		}
		outstanding = outstanding.Add(fee)
	}

	expected := session.OpeningCash.Add(session.CashCollected)
	closing := expected
	if session.ClosingCash != nil {
		closing = *session.ClosingCash
	}

	summary := report.FinancialSummary{
		OpeningCash:       session.OpeningCash,
		ClosingCash:       session.ClosingCash,
		CashDiscrepancy:   session.CashDiscrepancy,
		RevenueCollected:  session.TotalRevenue,
		CashCollected:     session.CashCollected,
		DigitalCollected:  session.DigitalCollected,
		OutstandingAmount: outstanding,
		ExpectedCash:      expected,
		NetCashFlow:       closing.Sub(session.OpeningCash),
	}

	billed := session.TotalRevenue.Add(outstanding)
	if billed.IsPositive() {
		summary.CollectionRate = round2(session.TotalRevenue.Div(billed).InexactFloat64() * 100)
	}

	return summary
}

func (s *ReportServiceImpl) performanceMetrics(session shift.Session, windowEnd time.Time) report.PerformanceMetrics {
	hours := math.Max(windowEnd.Sub(session.StartTime).Hours(), 1)
	revenue := session.TotalRevenue.InexactFloat64()

	metrics := report.PerformanceMetrics{
		VehiclesPerHour: round2(float64(session.VehiclesEntered) / hours),
		RevenuePerHour:  round2(revenue / hours),
	}
	if session.VehiclesExited > 0 {
		metrics.RevenuePerVehicle = round2(revenue / float64(session.VehiclesExited))
	}

	var throughputScore, revenueScore float64
	if s.targets.VehiclesPerHour > 0 {
		throughputScore = math.Min(metrics.VehiclesPerHour/s.targets.VehiclesPerHour*100, 100)
	}
	if s.targets.RevenuePerVehicle > 0 {
		revenueScore = math.Min(metrics.RevenuePerVehicle/s.targets.RevenuePerVehicle*100, 100)
	}
	metrics.EfficiencyScore = round2(0.6*throughputScore + 0.4*revenueScore)

	return metrics
}

// peakOccupancy sweeps entry and exit events in time order; at equal instants
// exits are applied first.
func peakOccupancy(entries []parking.Entry) int {
	type event struct {
		at    time.Time
		delta int
	}
	events := make([]event, 0, len(entries)*2)
	for _, e := range entries {
		events = append(events, event{at: e.EntryTime, delta: 1})
		if e.ExitTime != nil {
			events = append(events, event{at: *e.ExitTime, delta: -1})
		}
	}
	slices.SortFunc(events, func(a, b event) int {
		if c := a.at.Compare(b.at); c != 0 {
			return c
		}
		return a.delta - b.delta
	})

	var current, peak int
	for _, ev := range events {
		current += ev.delta
		peak = max(peak, current)
	}
	return peak
}

// peakHour is the local hour of day with the most arrivals, earliest on ties.
func peakHour(entries []parking.Entry, loc *time.Location) *string {
	if len(entries) == 0 {
		return nil
	}
	var arrivals [24]int
	for _, e := range entries {
		arrivals[e.EntryTime.In(loc).Hour()]++
	}
	best := 0
	for h := 1; h < 24; h++ {
		if arrivals[h] > arrivals[best] {
			best = h
		}
	}
	label := fmt.Sprintf("%02d:00", best)
	return &label
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
