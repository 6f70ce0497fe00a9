package audit

import "context"

// AccessLogRepository is append-only: there is no update or delete.
type AccessLogRepository interface {
	Create(ctx context.Context, log AccessLog) (AccessLog, error)
	List(ctx context.Context, filter AccessLogFilter) ([]AccessLog, int64, error)
}
