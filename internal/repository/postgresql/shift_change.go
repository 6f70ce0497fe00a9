package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/shift"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/apperror"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/database"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/validator"
)

const shiftChangeColumns = `id, previous_shift_session_id, new_shift_session_id, change_timestamp,
	handover_notes, cash_transferred, pending_issues,
	outgoing_employee_id, outgoing_employee_name, incoming_employee_id, incoming_employee_name,
	change_type, supervisor_approved, supervisor_id, supervisor_name, created_at`

type shiftChangeRepositoryImpl struct {
	db *database.DB
}

func NewShiftChangeRepository(db *database.DB) shift.ChangeRepository {
	return &shiftChangeRepositoryImpl{db: db}
}

func scanShiftChange(row rowScanner) (shift.ChangeRecord, error) {
	var (
		c          shift.ChangeRecord
		changeType string
	)
	err := row.Scan(
		&c.ID,
		&c.PreviousShiftID,
		&c.NewShiftID,
		&c.ChangeTimestamp,
		&c.HandoverNotes,
		&c.CashTransferred,
		&c.PendingIssues,
		&c.OutgoingEmployeeID,
		&c.OutgoingEmployeeName,
		&c.IncomingEmployeeID,
		&c.IncomingEmployeeName,
		&changeType,
		&c.SupervisorApproved,
		&c.SupervisorID,
		&c.SupervisorName,
		&c.CreatedAt,
	)
	if err != nil {
		return shift.ChangeRecord{}, err
	}
	c.ChangeType = shift.ChangeType(changeType)
	return c, nil
}

// Create implements shift.ChangeRepository.
func (r *shiftChangeRepositoryImpl) Create(ctx context.Context, record shift.ChangeRecord) (shift.ChangeRecord, error) {
	if err := record.CheckInvariants(); err != nil {
		return shift.ChangeRecord{}, err
	}

	q := GetQuerier(ctx, r.db)

	if record.ID == "" {
		record.ID = newID()
	}

	query := `
		INSERT INTO shift_changes (
			id, previous_shift_session_id, new_shift_session_id, change_timestamp,
			handover_notes, cash_transferred, pending_issues,
			outgoing_employee_id, outgoing_employee_name, incoming_employee_id, incoming_employee_name,
			change_type, supervisor_approved, supervisor_id, supervisor_name, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14, $15, NOW()
		) RETURNING created_at
	`

	err := q.QueryRow(ctx, query,
		record.ID, record.PreviousShiftID, record.NewShiftID, record.ChangeTimestamp,
		record.HandoverNotes, record.CashTransferred, record.PendingIssues,
		record.OutgoingEmployeeID, record.OutgoingEmployeeName, record.IncomingEmployeeID, record.IncomingEmployeeName,
		string(record.ChangeType), record.SupervisorApproved, record.SupervisorID, record.SupervisorName,
	).Scan(&record.CreatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return shift.ChangeRecord{}, shift.ErrShiftNotFound
		}
		if database.IsConstraintViolation(err) {
			return shift.ChangeRecord{}, fmt.Errorf("%w: insert violates %s", apperror.ErrIntegrity, database.ConstraintName(err))
		}
		return shift.ChangeRecord{}, fmt.Errorf("insert shift change: %w", err)
	}

	return record, nil
}

// GetByID implements shift.ChangeRepository.
func (r *shiftChangeRepositoryImpl) GetByID(ctx context.Context, id string) (shift.ChangeRecord, error) {
	if !validator.IsValidUUID(id) {
		return shift.ChangeRecord{}, shift.ErrChangeRecordNotFound
	}
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + shiftChangeColumns + ` FROM shift_changes WHERE id = $1`

	c, err := scanShiftChange(q.QueryRow(ctx, query, id))
	if err != nil {
		if database.IsNoRows(err) {
			return shift.ChangeRecord{}, shift.ErrChangeRecordNotFound
		}
		return shift.ChangeRecord{}, fmt.Errorf("get shift change: %w", err)
	}
	return c, nil
}

// ListByShift implements shift.ChangeRepository.
func (r *shiftChangeRepositoryImpl) ListByShift(ctx context.Context, shiftID string) ([]shift.ChangeRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + shiftChangeColumns + `
		FROM shift_changes
		WHERE previous_shift_session_id = $1 OR new_shift_session_id = $1
		ORDER BY change_timestamp ASC
	`

	rows, err := q.Query(ctx, query, shiftID)
	if err != nil {
		return nil, fmt.Errorf("list shift changes: %w", err)
	}
	defer rows.Close()

	records := []shift.ChangeRecord{}
	for rows.Next() {
		c, err := scanShiftChange(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, c)
	}
	return records, rows.Err()
}

// Update implements shift.ChangeRepository.
func (r *shiftChangeRepositoryImpl) Update(ctx context.Context, record shift.ChangeRecord) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE shift_changes
		SET handover_notes = $2,
			pending_issues = $3
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query, record.ID, record.HandoverNotes, record.PendingIssues)
	if err != nil {
		return fmt.Errorf("update shift change: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shift.ErrChangeRecordNotFound
	}
	return nil
}
