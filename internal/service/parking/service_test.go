package parking

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cmlabs-parking/parking-backend-go/internal/config"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/parking"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/shift"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/apperror"
	"github.com/cmlabs-parking/parking-backend-go/internal/repository/memory"
	"github.com/cmlabs-parking/parking-backend-go/internal/service/revenue"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	sessions shift.SessionRepository
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	return newFixtureWithRates(t, config.RateConfig{
		Daily:    map[string]decimal.Decimal{"4 Wheeler": decimal.NewFromInt(100), "2 Wheeler": decimal.NewFromInt(50)},
		Fallback: decimal.NewFromInt(75),
	})
}

func newFixtureWithRates(t *testing.T, rates config.RateConfig) *fixture {
	t.Helper()

	store := memory.NewStore()
	sessions := memory.NewShiftSessionRepository(store)
	entries := memory.NewParkingEntryRepository(store)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	aggregator := revenue.NewAggregator(store, sessions, entries, logger)

	return &fixture{
		sessions: sessions,
		service:  NewService(store, entries, sessions, aggregator, rates, time.UTC, logger),
	}
}

func (f *fixture) openShift(t *testing.T, employeeID string) shift.Session {
	t.Helper()

	session, err := f.sessions.Create(context.Background(), shift.Session{
		EmployeeID:   employeeID,
		EmployeeName: "Attendant " + employeeID,
		StartTime:    time.Now().Add(-time.Hour),
		Status:       shift.StatusActive,
		OpeningCash:  decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	return session
}

func (f *fixture) closeShift(t *testing.T, session shift.Session) {
	t.Helper()

	session.Close(time.Now(), session.OpeningCash, shift.StatusCompleted)
	require.NoError(t, f.sessions.Update(context.Background(), session))
}

func TestService_CreateEntry_LinksActiveShift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.openShift(t, "emp-1")

	entry, err := f.service.CreateEntry(ctx, parking.CreateEntryRequest{
		VehicleNumber: " ka01ab1234 ",
		VehicleType:   "4 Wheeler",
	})
	require.NoError(t, err)
	require.NotNil(t, entry.ShiftSessionID)
	assert.Equal(t, session.ID, *entry.ShiftSessionID)
	assert.Equal(t, "KA01AB1234", entry.VehicleNumber)
	assert.Equal(t, parking.EntryStatusParked, entry.Status)
	assert.Equal(t, parking.PaymentStatusUnpaid, entry.PaymentStatus)

	synced, err := f.sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, synced.VehiclesEntered)
	assert.Equal(t, 1, synced.CurrentlyParked)
}

func TestService_CreateEntry_WithoutActiveShift(t *testing.T) {
	f := newFixture(t)

	entry, err := f.service.CreateEntry(context.Background(), parking.CreateEntryRequest{
		VehicleNumber: "KA01AB1234",
		VehicleType:   "2 Wheeler",
	})
	require.NoError(t, err)
	assert.Nil(t, entry.ShiftSessionID)

	_, err = f.service.CreateEntry(context.Background(), parking.CreateEntryRequest{VehicleType: "2 Wheeler"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	unknown := "no-such-shift"
	_, err = f.service.CreateEntry(context.Background(), parking.CreateEntryRequest{
		VehicleNumber:  "KA01AB9999",
		VehicleType:    "2 Wheeler",
		ShiftSessionID: &unknown,
	})
	assert.ErrorIs(t, err, shift.ErrShiftNotFound)
}

func TestService_RecordExit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.openShift(t, "emp-1")
	entryTime := time.Now().Add(-30 * time.Hour)

	entry, err := f.service.CreateEntry(ctx, parking.CreateEntryRequest{
		VehicleNumber: "KA01AB1234",
		VehicleType:   "4 wheeler",
		EntryTime:     &entryTime,
	})
	require.NoError(t, err)

	early := entryTime.Add(-time.Minute)
	_, err = f.service.RecordExit(ctx, parking.RecordExitRequest{EntryID: entry.ID, PaymentMode: "Cash", ExitTime: &early})
	assert.ErrorIs(t, err, parking.ErrExitBeforeEntry)

	exited, err := f.service.RecordExit(ctx, parking.RecordExitRequest{EntryID: entry.ID, PaymentMode: "Cash"})
	require.NoError(t, err)
	assert.Equal(t, parking.EntryStatusExited, exited.Status)
	assert.Equal(t, parking.PaymentStatusPaid, exited.PaymentStatus)
	require.NotNil(t, exited.CalculatedFee)
	assert.True(t, exited.CalculatedFee.Equal(decimal.NewFromInt(200)), "30 hours bills two days")

	_, err = f.service.RecordExit(ctx, parking.RecordExitRequest{EntryID: entry.ID, PaymentMode: "Cash"})
	assert.ErrorIs(t, err, parking.ErrEntryAlreadyExited)

	synced, err := f.sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, synced.VehiclesExited)
	assert.Zero(t, synced.CurrentlyParked)
	assert.True(t, synced.TotalRevenue.Equal(decimal.NewFromInt(200)))
	assert.True(t, synced.CashCollected.Equal(decimal.NewFromInt(200)))

	_, err = f.service.RecordExit(ctx, parking.RecordExitRequest{EntryID: "missing", PaymentMode: "Cash"})
	assert.ErrorIs(t, err, parking.ErrEntryNotFound)
}

func TestService_RecordExit_SameInstantBillsOneDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.openShift(t, "emp-1")
	at := time.Now().Add(-time.Minute).Truncate(time.Second)

	entry, err := f.service.CreateEntry(ctx, parking.CreateEntryRequest{
		VehicleNumber: "KA01AB0001",
		VehicleType:   "2 Wheeler",
		EntryTime:     &at,
	})
	require.NoError(t, err)

	exited, err := f.service.RecordExit(ctx, parking.RecordExitRequest{EntryID: entry.ID, PaymentMode: "Cash", ExitTime: &at})
	require.NoError(t, err)
	require.NotNil(t, exited.CalculatedFee)
	assert.True(t, exited.CalculatedFee.Equal(decimal.NewFromInt(50)))

	synced, err := f.sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, synced.TotalRevenue.Equal(decimal.NewFromInt(50)))
}

func TestService_RecordExit_OverstayPenalty(t *testing.T) {
	f := newFixtureWithRates(t, config.RateConfig{
		Daily:             map[string]decimal.Decimal{"4 Wheeler": decimal.NewFromInt(100)},
		Fallback:          decimal.NewFromInt(100),
		OverstayThreshold: 24 * time.Hour,
		PenaltyMultiplier: decimal.RequireFromString("1.5"),
	})
	ctx := context.Background()
	f.openShift(t, "emp-1")

	exitTime := time.Now().Truncate(time.Second)
	entryTime := exitTime.Add(-30 * time.Hour)
	entry, err := f.service.CreateEntry(ctx, parking.CreateEntryRequest{
		VehicleNumber: "KA01AB0002",
		VehicleType:   "4 Wheeler",
		EntryTime:     &entryTime,
	})
	require.NoError(t, err)

	exited, err := f.service.RecordExit(ctx, parking.RecordExitRequest{EntryID: entry.ID, PaymentMode: "Cash", ExitTime: &exitTime})
	require.NoError(t, err)
	require.NotNil(t, exited.CalculatedFee)
	assert.True(t, exited.CalculatedFee.Equal(decimal.NewFromInt(250)), "two days plus one penalty day at half rate")

	schedule := f.service.RateSchedule()
	assert.InDelta(t, 24.0, schedule.OverstayThresholdHours, 0.001)
	assert.True(t, schedule.PenaltyMultiplier.Equal(decimal.RequireFromString("1.5")))
}

func TestService_UpdateEntry_ResyncsBothShifts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.openShift(t, "emp-1")

	entry, err := f.service.CreateEntry(ctx, parking.CreateEntryRequest{VehicleNumber: "KA01AB1234", VehicleType: "2 Wheeler"})
	require.NoError(t, err)

	f.closeShift(t, first)
	second := f.openShift(t, "emp-2")

	paid := string(parking.PaymentStatusPaid)
	upi := "UPI"
	actual := decimal.NewFromInt(40)
	updated, err := f.service.UpdateEntry(ctx, parking.UpdateEntryRequest{
		EntryID:        entry.ID,
		ShiftSessionID: &second.ID,
		PaymentStatus:  &paid,
		PaymentMode:    &upi,
		ActualFee:      &actual,
	})
	require.NoError(t, err)
	assert.Equal(t, second.ID, *updated.ShiftSessionID)

	old, err := f.sessions.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Zero(t, old.VehiclesEntered, "previous shift loses the entry")

	current, err := f.sessions.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, current.VehiclesEntered)
	assert.True(t, current.DigitalCollected.Equal(decimal.NewFromInt(40)))

	unassign := ""
	updated, err = f.service.UpdateEntry(ctx, parking.UpdateEntryRequest{EntryID: entry.ID, ShiftSessionID: &unassign})
	require.NoError(t, err)
	assert.Nil(t, updated.ShiftSessionID)

	current, err = f.sessions.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Zero(t, current.VehiclesEntered)
	assert.True(t, current.TotalRevenue.IsZero())
}

func TestService_DeleteEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.openShift(t, "emp-1")

	entry, err := f.service.CreateEntry(ctx, parking.CreateEntryRequest{VehicleNumber: "KA01AB1234", VehicleType: "2 Wheeler"})
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteEntry(ctx, entry.ID))
	_, err = f.service.GetEntry(ctx, entry.ID)
	assert.ErrorIs(t, err, parking.ErrEntryNotFound)

	synced, err := f.sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Zero(t, synced.VehiclesEntered)

	assert.ErrorIs(t, f.service.DeleteEntry(ctx, entry.ID), parking.ErrEntryNotFound)
}

func TestService_LinkUnassignedEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.LinkUnassignedEntries(ctx)
	assert.ErrorIs(t, err, parking.ErrNoActiveShift)

	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	yesterday := midnight.Add(-time.Hour)
	for _, at := range []time.Time{yesterday, midnight, now} {
		_, err := f.service.CreateEntry(ctx, parking.CreateEntryRequest{
			VehicleNumber: "KA01AB" + at.Format("150405"),
			VehicleType:   "2 Wheeler",
			EntryTime:     &at,
		})
		require.NoError(t, err)
	}

	session := f.openShift(t, "emp-1")
	result, err := f.service.LinkUnassignedEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.ID, result.ShiftSessionID)
	assert.Equal(t, 2, result.Linked, "entries from before today stay unassigned")

	unassigned, total, err := f.service.ListEntries(ctx, parking.EntryFilter{UnassignedOnly: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, unassigned, 1)
	assert.True(t, unassigned[0].EntryTime.Equal(yesterday))

	synced, err := f.sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, synced.VehiclesEntered)
}
