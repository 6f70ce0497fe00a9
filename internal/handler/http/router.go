package http

import (
	"log/slog"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/user"
	"github.com/cmlabs-parking/parking-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type Handlers struct {
	Shift   ShiftHandler
	Parking ParkingHandler
	Report  ReportHandler
	Audit   AuditHandler
}

func NewRouter(logger *slog.Logger, allowedOrigins []string, JWTService jwt.Service, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.ClientContext)

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)

			r.Route("/shifts", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionShiftOperate))
					r.Post("/start", h.Shift.Start)
					r.Post("/{id}/end", h.Shift.End)
					r.Post("/{id}/handover", h.Shift.Handover)
					r.Patch("/{id}", h.Shift.Update)
					r.Post("/{id}/sync", h.Shift.Sync)
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionShiftViewAll))
					r.Get("/active", h.Shift.GetActive)
					r.Get("/summary/daily", h.Shift.DailySummary)
					r.Get("/history/{employeeId}", h.Shift.History)
					r.Get("/{id}", h.Shift.Get)
					r.Get("/{id}/changes", h.Shift.ListChanges)
				})

				r.With(middleware.RequirePermission(user.PermissionReportsView)).
					Get("/{id}/report", h.Report.GetShiftReport)
			})

			r.Route("/parking-entries", func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionParkingManage))
				r.Post("/", h.Parking.Create)
				r.Get("/", h.Parking.List)
				r.Post("/link-unassigned", h.Parking.LinkUnassigned)
				r.Get("/rates", h.Parking.RateSchedule)
				r.Get("/{id}", h.Parking.Get)
				r.Patch("/{id}", h.Parking.Update)
				r.Delete("/{id}", h.Parking.Delete)
				r.Post("/{id}/exit", h.Parking.RecordExit)
			})

			// Supervisor only; the services refuse and log other roles
			r.Patch("/shift-changes/{id}", h.Shift.AmendChange)
			r.Get("/access-logs", h.Audit.ListAccessLogs)
		})
	})
	return r
}
