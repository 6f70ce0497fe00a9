package shift

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cmlabs-parking/parking-backend-go/internal/config"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/audit"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/shift"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/database"
	"github.com/cmlabs-parking/parking-backend-go/internal/repository/memory"
	auditservice "github.com/cmlabs-parking/parking-backend-go/internal/service/audit"
	parkingservice "github.com/cmlabs-parking/parking-backend-go/internal/service/parking"
	reportservice "github.com/cmlabs-parking/parking-backend-go/internal/service/report"
	"github.com/cmlabs-parking/parking-backend-go/internal/service/revenue"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeAuthorizer struct {
	supervisor bool
	employeeID string
}

func (f *fakeAuthorizer) IsSupervisorOrManager(context.Context) bool { return f.supervisor }

func (f *fakeAuthorizer) CurrentEmployeeID(context.Context) (string, error) {
	return f.employeeID, nil
}

type harness struct {
	store    *memory.Store
	sessions shift.SessionRepository
	changes  shift.ChangeRepository
	logs     audit.AccessLogRepository
	authz    *fakeAuthorizer
	parking  *parkingservice.Service
	service  *ShiftServiceImpl
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	tx       func(*memory.Store) database.Transactor
	sessions func(shift.SessionRepository) shift.SessionRepository
}

func withTransactor(fn func(*memory.Store) database.Transactor) harnessOption {
	return func(c *harnessConfig) { c.tx = fn }
}

func withSessions(fn func(shift.SessionRepository) shift.SessionRepository) harnessOption {
	return func(c *harnessConfig) { c.sessions = fn }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	cfg := harnessConfig{
		tx:       func(s *memory.Store) database.Transactor { return s },
		sessions: func(r shift.SessionRepository) shift.SessionRepository { return r },
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	tx := cfg.tx(store)
	sessions := cfg.sessions(memory.NewShiftSessionRepository(store))
	changes := memory.NewShiftChangeRepository(store)
	entries := memory.NewParkingEntryRepository(store)
	logs := memory.NewAccessLogRepository(store)

	rates, err := config.ParseRates("Trailer:225,6 Wheeler:150,4 Wheeler:100,2 Wheeler:50")
	require.NoError(t, err)
	rateTable := config.RateConfig{Daily: rates, Fallback: decimal.NewFromInt(100)}

	authz := &fakeAuthorizer{employeeID: "emp-actor"}
	aggregator := revenue.NewAggregator(tx, sessions, entries, logger)
	reports := reportservice.NewReportService(tx, sessions, entries, aggregator, rateTable, reportservice.Targets{
		LotCapacity:       50,
		VehiclesPerHour:   10,
		RevenuePerVehicle: 100,
	})
	auditSvc := auditservice.NewAuditService(logs, authz, logger)

	return &harness{
		store:    store,
		sessions: sessions,
		changes:  changes,
		logs:     logs,
		authz:    authz,
		parking:  parkingservice.NewService(tx, entries, sessions, aggregator, rateTable, time.UTC, logger),
		service: NewShiftService(tx, sessions, changes, aggregator, reports, authz, auditSvc, Policy{
			BackdateWindow: 24 * time.Hour,
			FutureWindow:   time.Hour,
			Location:       time.UTC,
		}, logger),
	}
}

func (h *harness) start(t *testing.T, employeeID string, openingCash int64) shift.Session {
	t.Helper()

	startTime := time.Now().Add(-2 * time.Hour)
	session, err := h.service.StartShift(context.Background(), shift.StartShiftRequest{
		EmployeeID:   employeeID,
		EmployeeName: "Attendant " + employeeID,
		OpeningCash:  decimal.NewFromInt(openingCash),
		StartTime:    &startTime,
	})
	require.NoError(t, err)
	return session
}

func (h *harness) activeCount(t *testing.T) int {
	t.Helper()

	count, err := h.sessions.CountActive(context.Background())
	require.NoError(t, err)
	return count
}
