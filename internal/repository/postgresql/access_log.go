package postgresql

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/audit"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/database"
)

const accessLogColumns = `id, employee_id, action, resource, resource_id, allowed, reason, ip_address, created_at`

type accessLogRepositoryImpl struct {
	db *database.DB
}

func NewAccessLogRepository(db *database.DB) audit.AccessLogRepository {
	return &accessLogRepositoryImpl{db: db}
}

// Create implements audit.AccessLogRepository.
func (r *accessLogRepositoryImpl) Create(ctx context.Context, log audit.AccessLog) (audit.AccessLog, error) {
	q := GetQuerier(ctx, r.db)

	if log.ID == "" {
		log.ID = newID()
	}

	query := `
		INSERT INTO access_logs (
			id, employee_id, action, resource, resource_id, allowed, reason, ip_address, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW()
		) RETURNING created_at
	`

	err := q.QueryRow(ctx, query,
		log.ID, log.EmployeeID, string(log.Action), log.Resource, log.ResourceID,
		log.Allowed, log.Reason, log.IPAddress,
	).Scan(&log.CreatedAt)
	if err != nil {
		return audit.AccessLog{}, fmt.Errorf("insert access log: %w", err)
	}

	return log, nil
}

// List implements audit.AccessLogRepository.
func (r *accessLogRepositoryImpl) List(ctx context.Context, filter audit.AccessLogFilter) ([]audit.AccessLog, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := squirrel.And{}
	if filter.DeniedOnly {
		where = append(where, squirrel.Eq{"allowed": false})
	}
	if filter.Action != nil {
		where = append(where, squirrel.Eq{"action": *filter.Action})
	}
	if filter.EmployeeID != nil {
		where = append(where, squirrel.Eq{"employee_id": *filter.EmployeeID})
	}

	query, args, err := psql.Select(accessLogColumns).
		From("access_logs").
		Where(where).
		OrderBy("created_at DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build access log query: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list access logs: %w", err)
	}
	defer rows.Close()

	logs := []audit.AccessLog{}
	for rows.Next() {
		var (
			l      audit.AccessLog
			action string
		)
		if err := rows.Scan(&l.ID, &l.EmployeeID, &action, &l.Resource, &l.ResourceID,
			&l.Allowed, &l.Reason, &l.IPAddress, &l.CreatedAt); err != nil {
			return nil, 0, err
		}
		l.Action = audit.Action(action)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("access_logs").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build access log count: %w", err)
	}
	var total int64
	if err := q.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count access logs: %w", err)
	}

	return logs, total, nil
}
