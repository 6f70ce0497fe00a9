package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/shift"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/apperror"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/database"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

const shiftSessionColumns = `id, employee_id, employee_name, employee_phone, shift_start_time, shift_end_time,
	status, opening_cash, closing_cash, cash_discrepancy, duration_minutes, notes,
	vehicles_entered, vehicles_exited, currently_parked, total_revenue, cash_collected, digital_collected,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type shiftSessionRepositoryImpl struct {
	db *database.DB
}

func NewShiftSessionRepository(db *database.DB) shift.SessionRepository {
	return &shiftSessionRepositoryImpl{db: db}
}

func scanShiftSession(row rowScanner) (shift.Session, error) {
	var (
		s                    shift.Session
		closing, discrepancy decimal.NullDecimal
		status               string
	)
	err := row.Scan(
		&s.ID,
		&s.EmployeeID,
		&s.EmployeeName,
		&s.EmployeePhone,
		&s.StartTime,
		&s.EndTime,
		&status,
		&s.OpeningCash,
		&closing,
		&discrepancy,
		&s.DurationMinutes,
		&s.Notes,
		&s.VehiclesEntered,
		&s.VehiclesExited,
		&s.CurrentlyParked,
		&s.TotalRevenue,
		&s.CashCollected,
		&s.DigitalCollected,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return shift.Session{}, err
	}
	s.Status = shift.Status(status)
	s.ClosingCash = decimalPtr(closing)
	s.CashDiscrepancy = decimalPtr(discrepancy)
	return s, nil
}

// Create implements shift.SessionRepository.
func (r *shiftSessionRepositoryImpl) Create(ctx context.Context, session shift.Session) (shift.Session, error) {
	q := GetQuerier(ctx, r.db)

	if session.ID == "" {
		session.ID = newID()
	}

	query := `
		INSERT INTO shift_sessions (
			id, employee_id, employee_name, employee_phone,
			shift_start_time, shift_end_time, status,
			opening_cash, closing_cash, cash_discrepancy, duration_minutes, notes,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10, $11, $12,
			NOW(), NOW()
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		session.ID, session.EmployeeID, session.EmployeeName, session.EmployeePhone,
		session.StartTime, session.EndTime, string(session.Status),
		session.OpeningCash, nullDecimal(session.ClosingCash), nullDecimal(session.CashDiscrepancy),
		session.DurationMinutes, session.Notes,
	).Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return shift.Session{}, shift.ErrShiftAlreadyActive
		}
		if database.IsConstraintViolation(err) {
			return shift.Session{}, fmt.Errorf("%w: insert violates %s", apperror.ErrIntegrity, database.ConstraintName(err))
		}
		return shift.Session{}, fmt.Errorf("insert shift session: %w", err)
	}

	return session, nil
}

// GetByID implements shift.SessionRepository.
func (r *shiftSessionRepositoryImpl) GetByID(ctx context.Context, id string) (shift.Session, error) {
	return r.get(ctx, id, "")
}

// GetByIDForUpdate implements shift.SessionRepository. NO KEY UPDATE still
// serializes writers of the row but does not block the KEY SHARE locks that
// parking entry inserts take through their foreign key.
func (r *shiftSessionRepositoryImpl) GetByIDForUpdate(ctx context.Context, id string) (shift.Session, error) {
	return r.get(ctx, id, "FOR NO KEY UPDATE")
}

func (r *shiftSessionRepositoryImpl) get(ctx context.Context, id, lock string) (shift.Session, error) {
	// a malformed id would fail the uuid cast instead of matching nothing
	if !validator.IsValidUUID(id) {
		return shift.Session{}, shift.ErrShiftNotFound
	}
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + shiftSessionColumns + ` FROM shift_sessions WHERE id = $1 ` + lock

	s, err := scanShiftSession(q.QueryRow(ctx, query, id))
	if err != nil {
		if database.IsNoRows(err) {
			return shift.Session{}, shift.ErrShiftNotFound
		}
		return shift.Session{}, fmt.Errorf("get shift session: %w", err)
	}
	return s, nil
}

// GetActive implements shift.SessionRepository.
func (r *shiftSessionRepositoryImpl) GetActive(ctx context.Context) (*shift.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + shiftSessionColumns + ` FROM shift_sessions WHERE status = 'active' LIMIT 1`

	s, err := scanShiftSession(q.QueryRow(ctx, query))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active shift session: %w", err)
	}
	return &s, nil
}

// CountActive implements shift.SessionRepository.
func (r *shiftSessionRepositoryImpl) CountActive(ctx context.Context) (int, error) {
	q := GetQuerier(ctx, r.db)

	var count int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM shift_sessions WHERE status = 'active'`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active shift sessions: %w", err)
	}
	return count, nil
}

// Update implements shift.SessionRepository.
func (r *shiftSessionRepositoryImpl) Update(ctx context.Context, session shift.Session) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE shift_sessions
		SET employee_phone = $2,
			shift_start_time = $3,
			shift_end_time = $4,
			status = $5,
			closing_cash = $6,
			cash_discrepancy = $7,
			duration_minutes = $8,
			notes = $9,
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query,
		session.ID, session.EmployeePhone, session.StartTime, session.EndTime, string(session.Status),
		nullDecimal(session.ClosingCash), nullDecimal(session.CashDiscrepancy),
		session.DurationMinutes, session.Notes,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return shift.ErrShiftAlreadyActive
		}
		if database.IsConstraintViolation(err) {
			return fmt.Errorf("%w: update violates %s", apperror.ErrIntegrity, database.ConstraintName(err))
		}
		return fmt.Errorf("update shift session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shift.ErrShiftNotFound
	}
	return nil
}

// UpdateStatistics implements shift.SessionRepository.
func (r *shiftSessionRepositoryImpl) UpdateStatistics(ctx context.Context, id string, stats shift.Statistics, at time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE shift_sessions
		SET vehicles_entered = $2,
			vehicles_exited = $3,
			currently_parked = $4,
			total_revenue = $5,
			cash_collected = $6,
			digital_collected = $7,
			updated_at = $8
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query, id,
		stats.VehiclesEntered, stats.VehiclesExited, stats.CurrentlyParked,
		stats.TotalRevenue, stats.CashCollected, stats.DigitalCollected, at,
	)
	if err != nil {
		return fmt.Errorf("update shift statistics: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shift.ErrShiftNotFound
	}
	return nil
}

// ListByEmployee implements shift.SessionRepository.
func (r *shiftSessionRepositoryImpl) ListByEmployee(ctx context.Context, employeeID string, limit, offset int) ([]shift.Session, error) {
	sb := psql.Select(shiftSessionColumns).
		From("shift_sessions").
		Where("employee_id = ?", employeeID).
		OrderBy("shift_start_time DESC").
		Offset(uint64(offset))
	if limit > 0 {
		sb = sb.Limit(uint64(limit))
	}
	return r.list(ctx, sb.ToSql)
}

// ListStartedBetween implements shift.SessionRepository.
func (r *shiftSessionRepositoryImpl) ListStartedBetween(ctx context.Context, from, to time.Time) ([]shift.Session, error) {
	sb := psql.Select(shiftSessionColumns).
		From("shift_sessions").
		Where("shift_start_time >= ? AND shift_start_time < ?", from, to).
		OrderBy("shift_start_time ASC")
	return r.list(ctx, sb.ToSql)
}

func (r *shiftSessionRepositoryImpl) list(ctx context.Context, build func() (string, []any, error)) ([]shift.Session, error) {
	q := GetQuerier(ctx, r.db)

	query, args, err := build()
	if err != nil {
		return nil, fmt.Errorf("build shift session query: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list shift sessions: %w", err)
	}
	defer rows.Close()

	sessions := []shift.Session{}
	for rows.Next() {
		s, err := scanShiftSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
