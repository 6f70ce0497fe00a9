package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/parking"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/shift"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/database"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

const parkingEntryColumns = `id, shift_session_id, vehicle_number, vehicle_type, transport_name,
	driver_name, driver_phone, notes, entry_time, exit_time, status, payment_status, payment_type,
	actual_fee, calculated_fee, amount_paid, created_by, created_at, updated_at`

type parkingEntryRepositoryImpl struct {
	db *database.DB
}

func NewParkingEntryRepository(db *database.DB) parking.EntryRepository {
	return &parkingEntryRepositoryImpl{db: db}
}

func scanParkingEntry(row rowScanner) (parking.Entry, error) {
	var (
		e                          parking.Entry
		status, paymentStatus      string
		actual, calculated, amount decimal.NullDecimal
	)
	err := row.Scan(
		&e.ID,
		&e.ShiftSessionID,
		&e.VehicleNumber,
		&e.VehicleType,
		&e.TransportName,
		&e.DriverName,
		&e.DriverPhone,
		&e.Notes,
		&e.EntryTime,
		&e.ExitTime,
		&status,
		&paymentStatus,
		&e.PaymentMode,
		&actual,
		&calculated,
		&amount,
		&e.CreatedBy,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return parking.Entry{}, err
	}
	e.Status = parking.EntryStatus(status)
	e.PaymentStatus = parking.PaymentStatus(paymentStatus)
	e.ActualFee = decimalPtr(actual)
	e.CalculatedFee = decimalPtr(calculated)
	e.AmountPaid = decimalPtr(amount)
	return e, nil
}

// Create implements parking.EntryRepository.
func (r *parkingEntryRepositoryImpl) Create(ctx context.Context, entry parking.Entry) (parking.Entry, error) {
	q := GetQuerier(ctx, r.db)

	if entry.ID == "" {
		entry.ID = newID()
	}

	query := `
		INSERT INTO parking_entries (
			id, shift_session_id, vehicle_number, vehicle_type, transport_name,
			driver_name, driver_phone, notes, entry_time, exit_time,
			status, payment_status, payment_type,
			actual_fee, calculated_fee, amount_paid, created_by,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13,
			$14, $15, $16, $17,
			NOW(), NOW()
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		entry.ID, entry.ShiftSessionID, entry.VehicleNumber, entry.VehicleType, entry.TransportName,
		entry.DriverName, entry.DriverPhone, entry.Notes, entry.EntryTime, entry.ExitTime,
		string(entry.Status), string(entry.PaymentStatus), entry.PaymentMode,
		nullDecimal(entry.ActualFee), nullDecimal(entry.CalculatedFee), nullDecimal(entry.AmountPaid), entry.CreatedBy,
	).Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return parking.Entry{}, shift.ErrShiftNotFound
		}
		return parking.Entry{}, fmt.Errorf("insert parking entry: %w", err)
	}

	return entry, nil
}

// GetByID implements parking.EntryRepository.
func (r *parkingEntryRepositoryImpl) GetByID(ctx context.Context, id string) (parking.Entry, error) {
	if !validator.IsValidUUID(id) {
		return parking.Entry{}, parking.ErrEntryNotFound
	}
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + parkingEntryColumns + ` FROM parking_entries WHERE id = $1`

	e, err := scanParkingEntry(q.QueryRow(ctx, query, id))
	if err != nil {
		if database.IsNoRows(err) {
			return parking.Entry{}, parking.ErrEntryNotFound
		}
		return parking.Entry{}, fmt.Errorf("get parking entry: %w", err)
	}
	return e, nil
}

// Update implements parking.EntryRepository.
func (r *parkingEntryRepositoryImpl) Update(ctx context.Context, entry parking.Entry) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE parking_entries
		SET shift_session_id = $2,
			exit_time = $3,
			status = $4,
			payment_status = $5,
			payment_type = $6,
			actual_fee = $7,
			calculated_fee = $8,
			amount_paid = $9,
			notes = $10,
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query,
		entry.ID, entry.ShiftSessionID, entry.ExitTime, string(entry.Status), string(entry.PaymentStatus),
		entry.PaymentMode, nullDecimal(entry.ActualFee), nullDecimal(entry.CalculatedFee), nullDecimal(entry.AmountPaid),
		entry.Notes,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return shift.ErrShiftNotFound
		}
		return fmt.Errorf("update parking entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return parking.ErrEntryNotFound
	}
	return nil
}

// Delete implements parking.EntryRepository.
func (r *parkingEntryRepositoryImpl) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM parking_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete parking entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return parking.ErrEntryNotFound
	}
	return nil
}

// ListByShift implements parking.EntryRepository.
func (r *parkingEntryRepositoryImpl) ListByShift(ctx context.Context, shiftID string) ([]parking.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + parkingEntryColumns + `
		FROM parking_entries
		WHERE shift_session_id = $1
		ORDER BY entry_time ASC
	`

	rows, err := q.Query(ctx, query, shiftID)
	if err != nil {
		return nil, fmt.Errorf("list parking entries by shift: %w", err)
	}
	defer rows.Close()

	entries := []parking.Entry{}
	for rows.Next() {
		e, err := scanParkingEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// List implements parking.EntryRepository.
func (r *parkingEntryRepositoryImpl) List(ctx context.Context, filter parking.EntryFilter) ([]parking.Entry, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := squirrel.And{}
	if filter.UnassignedOnly {
		where = append(where, squirrel.Eq{"shift_session_id": nil})
	}
	if filter.ShiftSessionID != nil {
		where = append(where, squirrel.Eq{"shift_session_id": *filter.ShiftSessionID})
	}
	if filter.Status != nil {
		where = append(where, squirrel.Eq{"status": *filter.Status})
	}

	query, args, err := psql.Select(parkingEntryColumns).
		From("parking_entries").
		Where(where).
		OrderBy("entry_time DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build parking entry query: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list parking entries: %w", err)
	}
	defer rows.Close()

	entries := []parking.Entry{}
	for rows.Next() {
		e, err := scanParkingEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// Get total count
	countQuery, countArgs, err := psql.Select("COUNT(*)").From("parking_entries").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build parking entry count: %w", err)
	}
	var total int64
	if err := q.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count parking entries: %w", err)
	}

	return entries, total, nil
}

// LinkUnassignedSince implements parking.EntryRepository.
func (r *parkingEntryRepositoryImpl) LinkUnassignedSince(ctx context.Context, shiftID string, since time.Time) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE parking_entries
		SET shift_session_id = $1,
			updated_at = NOW()
		WHERE shift_session_id IS NULL AND entry_time >= $2
	`

	tag, err := q.Exec(ctx, query, shiftID, since)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return 0, shift.ErrShiftNotFound
		}
		return 0, fmt.Errorf("link unassigned parking entries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
