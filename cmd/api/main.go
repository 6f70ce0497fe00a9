package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-parking/parking-backend-go/internal/config"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/audit"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/parking"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/shift"
	appHTTP "github.com/cmlabs-parking/parking-backend-go/internal/handler/http"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/cron"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/database"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-parking/parking-backend-go/internal/repository/memory"
	"github.com/cmlabs-parking/parking-backend-go/internal/repository/postgresql"
	auditService "github.com/cmlabs-parking/parking-backend-go/internal/service/audit"
	serviceAuth "github.com/cmlabs-parking/parking-backend-go/internal/service/auth"
	parkingService "github.com/cmlabs-parking/parking-backend-go/internal/service/parking"
	reportService "github.com/cmlabs-parking/parking-backend-go/internal/service/report"
	"github.com/cmlabs-parking/parking-backend-go/internal/service/revenue"
	shiftService "github.com/cmlabs-parking/parking-backend-go/internal/service/shift"
	"github.com/go-chi/httplog/v3"
)

type repositories struct {
	tx       database.Transactor
	sessions shift.SessionRepository
	changes  shift.ChangeRepository
	entries  parking.EntryRepository
	logs     audit.AccessLogRepository
	close    func()
}

func openRepositories(cfg *config.Config, logger *slog.Logger) (repositories, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return repositories{
			tx:       store,
			sessions: memory.NewShiftSessionRepository(store),
			changes:  memory.NewShiftChangeRepository(store),
			entries:  memory.NewParkingEntryRepository(store),
			logs:     memory.NewAccessLogRepository(store),
			close:    func() {},
		}, nil

	case config.StorageDriverPostgres:
		dsn := cfg.DatabaseURL()
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(dsn, postgresql.Migrations, postgresql.MigrationsDir); err != nil {
				return repositories{}, fmt.Errorf("failed to run migrations: %w", err)
			}
			logger.Info("database migrations applied")
		}

		db, err := database.NewPostgreSQLDB(context.Background(), dsn, database.PoolOptions{
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			return repositories{}, fmt.Errorf("failed to connect to database: %w", err)
		}
		return repositories{
			tx:       postgresql.NewTransactor(db),
			sessions: postgresql.NewShiftSessionRepository(db),
			changes:  postgresql.NewShiftChangeRepository(db),
			entries:  postgresql.NewParkingEntryRepository(db),
			logs:     postgresql.NewAccessLogRepository(db),
			close:    db.Close,
		}, nil
	}

	return repositories{}, fmt.Errorf("unsupported storage driver: %q", cfg.Storage.Driver)
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.App.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	logFormat := httplog.SchemaECS.Concise(cfg.App.Env != "production")
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "parking-backend"),
		slog.String("env", cfg.App.Env),
	)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	repos, err := openRepositories(cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer repos.close()

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	authorizer := serviceAuth.NewClaimsAuthorizer()

	aggregator := revenue.NewAggregator(repos.tx, repos.sessions, repos.entries, logger)
	reportSvc := reportService.NewReportService(repos.tx, repos.sessions, repos.entries, aggregator, cfg.Rates, reportService.Targets{
		LotCapacity:       cfg.Shift.LotCapacity,
		VehiclesPerHour:   cfg.Shift.TargetThroughput,
		RevenuePerVehicle: cfg.Shift.TargetRevenue,
		Location:          cfg.Shift.Location,
	})
	auditSvc := auditService.NewAuditService(repos.logs, authorizer, logger)
	shiftSvc := shiftService.NewShiftService(
		repos.tx,
		repos.sessions,
		repos.changes,
		aggregator,
		reportSvc,
		authorizer,
		auditSvc,
		shiftService.Policy{
			BackdateWindow: cfg.Shift.BackdateWindow,
			FutureWindow:   cfg.Shift.FutureWindow,
			Location:       cfg.Shift.Location,
		},
		logger,
	)
	parkingSvc := parkingService.NewService(repos.tx, repos.entries, repos.sessions, aggregator, cfg.Rates, cfg.Shift.Location, logger)

	router := appHTTP.NewRouter(logger, cfg.App.AllowedOrigins, JWTService, appHTTP.Handlers{
		Shift:   appHTTP.NewShiftHandler(shiftSvc, aggregator, authorizer, cfg.Shift.Location),
		Parking: appHTTP.NewParkingHandler(parkingSvc, authorizer),
		Report:  appHTTP.NewReportHandler(reportSvc),
		Audit:   appHTTP.NewAuditHandler(auditSvc),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := cron.NewScheduler(logger)
	if cfg.Shift.ReconcileInterval > 0 {
		cron.NewShiftJobs(repos.sessions, repos.entries, parkingSvc, aggregator, logger).
			RegisterJobs(scheduler, cfg.Shift.ReconcileInterval)
		scheduler.Start(ctx)
	}

	go func() {
		logger.Info("server running", slog.String("addr", server.Addr), slog.String("storage", cfg.Storage.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
