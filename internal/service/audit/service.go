package audit

import (
	"context"
	"log/slog"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/audit"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/user"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/ctxstore"
)

type AuditServiceImpl struct {
	audit.AccessLogRepository
	authz  user.Authorizer
	logger *slog.Logger
}

func NewAuditService(accessLogRepository audit.AccessLogRepository, authz user.Authorizer, logger *slog.Logger) *AuditServiceImpl {
	return &AuditServiceImpl{
		AccessLogRepository: accessLogRepository,
		authz:               authz,
		logger:              logger,
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// Record implements audit.AuditService. It runs outside any unit of work the
// guarded operation opened, so denied attempts persist after their rollback.
func (s *AuditServiceImpl) Record(ctx context.Context, event audit.Event) {
	log := audit.AccessLog{
		Action:     event.Action,
		Resource:   event.Resource,
		ResourceID: optional(event.ResourceID),
		Allowed:    event.Allowed,
		Reason:     optional(event.Reason),
	}
	if employeeID, err := s.authz.CurrentEmployeeID(ctx); err == nil {
		log.EmployeeID = &employeeID
	}
	if ip, ok := ctxstore.From[string](ctx, ctxstore.ClientIPKey); ok {
		log.IPAddress = optional(ip)
	}

	if _, err := s.AccessLogRepository.Create(context.WithoutCancel(ctx), log); err != nil {
		s.logger.ErrorContext(ctx, "failed to write access log",
			slog.String("action", string(event.Action)),
			slog.String("resource_id", event.ResourceID),
			slog.Bool("allowed", event.Allowed),
			slog.Any("error", err),
		)
		return
	}

	if !event.Allowed {
		requestID, _ := ctxstore.From[string](ctx, ctxstore.RequestIDKey)
		s.logger.WarnContext(ctx, "access denied",
			slog.String("action", string(event.Action)),
			slog.String("resource_id", event.ResourceID),
			slog.String("reason", event.Reason),
			slog.String("request_id", requestID),
		)
	}
}

// List implements audit.AuditService.
func (s *AuditServiceImpl) List(ctx context.Context, filter audit.AccessLogFilter) ([]audit.AccessLog, int64, error) {
	event := audit.Event{Action: audit.ActionViewAccessLogs, Resource: "access_log"}

	if !s.authz.IsSupervisorOrManager(ctx) {
		event.Reason = user.ErrSupervisorAccess.Error()
		s.Record(ctx, event)
		return nil, 0, user.ErrSupervisorAccess
	}

	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	logs, total, err := s.AccessLogRepository.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	event.Allowed = true
	s.Record(ctx, event)
	return logs, total, nil
}
