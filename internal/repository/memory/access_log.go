package memory

import (
	"context"
	"slices"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/audit"
)

type accessLogRepository struct {
	store *Store
}

func NewAccessLogRepository(store *Store) audit.AccessLogRepository {
	return &accessLogRepository{store: store}
}

// Create implements audit.AccessLogRepository.
func (r *accessLogRepository) Create(ctx context.Context, log audit.AccessLog) (audit.AccessLog, error) {
	defer r.store.lock(ctx)()

	if log.ID == "" {
		log.ID = newID()
	}
	log.CreatedAt = r.store.now()
	r.store.accessLogs = append(r.store.accessLogs, log)
	return log, nil
}

// List implements audit.AccessLogRepository.
func (r *accessLogRepository) List(ctx context.Context, filter audit.AccessLogFilter) ([]audit.AccessLog, int64, error) {
	defer r.store.lock(ctx)()

	var logs []audit.AccessLog
	for _, l := range r.store.accessLogs {
		if filter.DeniedOnly && l.Allowed {
			continue
		}
		if filter.Action != nil && string(l.Action) != *filter.Action {
			continue
		}
		if filter.EmployeeID != nil && (l.EmployeeID == nil || *l.EmployeeID != *filter.EmployeeID) {
			continue
		}
		logs = append(logs, l)
	}
	slices.Reverse(logs)
	return paginate(logs, filter.Limit, filter.Offset), int64(len(logs)), nil
}
