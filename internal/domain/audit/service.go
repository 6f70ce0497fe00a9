package audit

import "context"

type AuditService interface {
	// Record never fails the caller; sink errors are logged
	Record(ctx context.Context, event Event)

	// List is supervisor-readable only
	List(ctx context.Context, filter AccessLogFilter) ([]AccessLog, int64, error)
}
