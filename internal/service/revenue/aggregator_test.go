package revenue

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/parking"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/shift"
	"github.com/cmlabs-parking/parking-backend-go/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func fee(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func mode(m string) *string {
	return &m
}

func TestAggregate(t *testing.T) {
	entered := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	exited := entered.Add(3 * time.Hour)

	entries := []parking.Entry{
		// exited cash, actual fee wins over calculated
		{EntryTime: entered, ExitTime: &exited, PaymentMode: mode("Cash"), ActualFee: fee(50), CalculatedFee: fee(100)},
		// exited digital
		{EntryTime: entered, ExitTime: &exited, PaymentMode: mode("UPI"), CalculatedFee: fee(70)},
		// still parked and unpaid: counted as parked, no revenue
		{EntryTime: entered, CalculatedFee: fee(500)},
		// still parked but prepaid in cash: settled
		{EntryTime: entered, PaymentStatus: parking.PaymentStatusPaid, PaymentMode: mode("cash"), AmountPaid: fee(30)},
		// exited without any fee recorded
		{EntryTime: entered, ExitTime: &exited, PaymentMode: mode("Cash")},
	}

	stats := Aggregate(entries)
	assert.Equal(t, 5, stats.VehiclesEntered)
	assert.Equal(t, 3, stats.VehiclesExited)
	assert.Equal(t, 2, stats.CurrentlyParked)
	assert.True(t, stats.TotalRevenue.Equal(decimal.NewFromInt(150)), stats.TotalRevenue.String())
	assert.True(t, stats.CashCollected.Equal(decimal.NewFromInt(80)), stats.CashCollected.String())
	assert.True(t, stats.DigitalCollected.Equal(decimal.NewFromInt(70)), stats.DigitalCollected.String())
}

func TestAggregate_FeePriority(t *testing.T) {
	exited := time.Now()
	entry := parking.Entry{
		ExitTime:      &exited,
		PaymentMode:   mode("Cash"),
		ActualFee:     fee(80),
		CalculatedFee: fee(100),
		AmountPaid:    fee(90),
	}

	stats := Aggregate([]parking.Entry{entry})
	assert.True(t, stats.TotalRevenue.Equal(decimal.NewFromInt(80)))

	entry.ActualFee = nil
	stats = Aggregate([]parking.Entry{entry})
	assert.True(t, stats.TotalRevenue.Equal(decimal.NewFromInt(100)))

	entry.CalculatedFee = nil
	stats = Aggregate([]parking.Entry{entry})
	assert.True(t, stats.TotalRevenue.Equal(decimal.NewFromInt(90)))
}

func TestAggregate_Empty(t *testing.T) {
	stats := Aggregate(nil)
	assert.True(t, stats.Equal(shift.Statistics{
		TotalRevenue:     decimal.Zero,
		CashCollected:    decimal.Zero,
		DigitalCollected: decimal.Zero,
	}))
}

func newAggregatorFixture(t *testing.T) (*Aggregator, parking.EntryRepository, shift.Session) {
	t.Helper()

	store := memory.NewStore()
	sessions := memory.NewShiftSessionRepository(store)
	entries := memory.NewParkingEntryRepository(store)

	session, err := sessions.Create(context.Background(), shift.Session{
		EmployeeID:   "emp-1",
		EmployeeName: "Asha",
		StartTime:    time.Now().Add(-time.Hour),
		Status:       shift.StatusActive,
		OpeningCash:  decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAggregator(store, sessions, entries, logger), entries, session
}

func TestAggregator_SyncShiftStatistics_Idempotent(t *testing.T) {
	ctx := context.Background()
	aggregator, entries, session := newAggregatorFixture(t)
	exited := time.Now()

	for _, e := range []parking.Entry{
		{ShiftSessionID: &session.ID, VehicleNumber: "KA01AB0001", VehicleType: "4 Wheeler", EntryTime: exited.Add(-time.Hour), ExitTime: &exited, Status: parking.EntryStatusExited, PaymentStatus: parking.PaymentStatusPaid, PaymentMode: mode("Cash"), ActualFee: fee(50)},
		{ShiftSessionID: &session.ID, VehicleNumber: "KA01AB0002", VehicleType: "4 Wheeler", EntryTime: exited.Add(-time.Hour), Status: parking.EntryStatusParked, PaymentStatus: parking.PaymentStatusUnpaid},
	} {
		_, err := entries.Create(ctx, e)
		require.NoError(t, err)
	}

	first, err := aggregator.SyncShiftStatistics(ctx, session.ID)
	require.NoError(t, err)
	second, err := aggregator.SyncShiftStatistics(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))

	stored, err := aggregator.SessionRepository.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.VehiclesEntered)
	assert.Equal(t, 1, stored.CurrentlyParked)
	assert.True(t, stored.TotalRevenue.Equal(decimal.NewFromInt(50)))

	_, err = aggregator.SyncShiftStatistics(ctx, "missing")
	assert.ErrorIs(t, err, shift.ErrShiftNotFound)
}

func TestAggregator_SyncShiftStatistics_Concurrent(t *testing.T) {
	ctx := context.Background()
	aggregator, entries, session := newAggregatorFixture(t)
	exited := time.Now()

	var g errgroup.Group
	for i := range 20 {
		g.Go(func() error {
			_, err := entries.Create(ctx, parking.Entry{
				ShiftSessionID: &session.ID,
				VehicleNumber:  "KA01AB" + string(rune('A'+i)),
				VehicleType:    "2 Wheeler",
				EntryTime:      exited.Add(-time.Hour),
				ExitTime:       &exited,
				Status:         parking.EntryStatusExited,
				PaymentStatus:  parking.PaymentStatusPaid,
				PaymentMode:    mode("Cash"),
				ActualFee:      fee(10),
			})
			if err != nil {
				return err
			}
			_, err = aggregator.SyncShiftStatistics(ctx, session.ID)
			return err
		})
	}
	require.NoError(t, g.Wait())

	stored, err := aggregator.SessionRepository.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, stored.VehiclesEntered)
	assert.Equal(t, 20, stored.VehiclesExited)
	assert.True(t, stored.TotalRevenue.Equal(decimal.NewFromInt(200)), "last writer holds a full re-aggregation")
	assert.True(t, stored.CashCollected.Equal(decimal.NewFromInt(200)))
}
