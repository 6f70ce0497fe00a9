package parking

import (
	"strings"
	"time"

	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========================================
// PARKING ENTRY DTOs
// ========================================

type CreateEntryRequest struct {
	VehicleNumber  string     `json:"vehicle_number"`
	VehicleType    string     `json:"vehicle_type"`
	TransportName  *string    `json:"transport_name,omitempty"`
	DriverName     *string    `json:"driver_name,omitempty"`
	DriverPhone    *string    `json:"driver_phone,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	EntryTime      *time.Time `json:"entry_time,omitempty"`
	ShiftSessionID *string    `json:"shift_session_id,omitempty"`
	CreatedBy      *string    `json:"-"`
}

func (r *CreateEntryRequest) Validate() error {
	var errs validator.ValidationErrors

	r.VehicleNumber = strings.ToUpper(strings.TrimSpace(r.VehicleNumber))
	if validator.IsEmpty(r.VehicleNumber) {
		errs = append(errs, validator.ValidationError{
			Field:   "vehicle_number",
			Message: "vehicle_number is required",
		})
	}

	if validator.IsEmpty(r.VehicleType) {
		errs = append(errs, validator.ValidationError{
			Field:   "vehicle_type",
			Message: "vehicle_type is required",
		})
	}

	if r.ShiftSessionID != nil && validator.IsEmpty(*r.ShiftSessionID) {
		r.ShiftSessionID = nil
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type RecordExitRequest struct {
	EntryID     string           `json:"-"`
	ExitTime    *time.Time       `json:"exit_time,omitempty"`
	PaymentMode string           `json:"payment_mode"`
	ActualFee   *decimal.Decimal `json:"actual_fee,omitempty"`
}

func (r *RecordExitRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EntryID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "entry id is required",
		})
	}

	if validator.IsEmpty(r.PaymentMode) {
		errs = append(errs, validator.ValidationError{
			Field:   "payment_mode",
			Message: "payment_mode is required",
		})
	}

	if r.ActualFee != nil && r.ActualFee.IsNegative() {
		errs = append(errs, validator.ValidationError{
			Field:   "actual_fee",
			Message: "actual_fee must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type UpdateEntryRequest struct {
	EntryID        string           `json:"-"`
	ShiftSessionID *string          `json:"shift_session_id,omitempty"`
	PaymentMode    *string          `json:"payment_mode,omitempty"`
	PaymentStatus  *string          `json:"payment_status,omitempty"`
	ActualFee      *decimal.Decimal `json:"actual_fee,omitempty"`
	AmountPaid     *decimal.Decimal `json:"amount_paid,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
}

func (r *UpdateEntryRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EntryID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "entry id is required",
		})
	}

	if r.PaymentStatus != nil {
		if !validator.IsInSlice(*r.PaymentStatus, []string{string(PaymentStatusPaid), string(PaymentStatusUnpaid)}) {
			errs = append(errs, validator.ValidationError{
				Field:   "payment_status",
				Message: "payment_status must be Paid or Unpaid",
			})
		}
	}

	for field, fee := range map[string]*decimal.Decimal{"actual_fee": r.ActualFee, "amount_paid": r.AmountPaid} {
		if fee != nil && fee.IsNegative() {
			errs = append(errs, validator.ValidationError{
				Field:   field,
				Message: field + " must not be negative",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type EntryFilter struct {
	ShiftSessionID *string `json:"shift_session_id,omitempty"`
	Status         *string `json:"status,omitempty"`
	UnassignedOnly bool    `json:"unassigned_only"`
	Limit          int     `json:"limit"`
	Offset         int     `json:"offset"`
}

func (f *EntryFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 50
	}
	if f.Limit > 200 {
		f.Limit = 200
	}

	if f.Offset < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "offset",
			Message: "offset must not be negative",
		})
	}

	if f.Status != nil {
		if !validator.IsInSlice(*f.Status, []string{string(EntryStatusParked), string(EntryStatusExited)}) {
			errs = append(errs, validator.ValidationError{
				Field:   "status",
				Message: "status must be Parked or Exited",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type EntryResponse struct {
	ID             string           `json:"id"`
	ShiftSessionID *string          `json:"shift_session_id"`
	VehicleNumber  string           `json:"vehicle_number"`
	VehicleType    string           `json:"vehicle_type"`
	TransportName  *string          `json:"transport_name,omitempty"`
	DriverName     *string          `json:"driver_name,omitempty"`
	DriverPhone    *string          `json:"driver_phone,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
	EntryTime      string           `json:"entry_time"`
	ExitTime       *string          `json:"exit_time,omitempty"`
	Status         string           `json:"status"`
	PaymentStatus  string           `json:"payment_status"`
	PaymentMode    *string          `json:"payment_mode,omitempty"`
	ActualFee      *decimal.Decimal `json:"actual_fee,omitempty"`
	CalculatedFee  *decimal.Decimal `json:"calculated_fee,omitempty"`
	AmountPaid     *decimal.Decimal `json:"amount_paid,omitempty"`
	Fee            decimal.Decimal  `json:"fee"`
	Overstayed     bool             `json:"overstayed"`
	CreatedAt      string           `json:"created_at"`
	UpdatedAt      string           `json:"updated_at"`
}

func NewEntryResponse(e Entry, now time.Time) EntryResponse {
	fee, _ := e.Fee()
	resp := EntryResponse{
		ID:             e.ID,
		ShiftSessionID: e.ShiftSessionID,
		VehicleNumber:  e.VehicleNumber,
		VehicleType:    e.VehicleType,
		TransportName:  e.TransportName,
		DriverName:     e.DriverName,
		DriverPhone:    e.DriverPhone,
		Notes:          e.Notes,
		EntryTime:      e.EntryTime.Format(time.RFC3339),
		Status:         string(e.Status),
		PaymentStatus:  string(e.PaymentStatus),
		PaymentMode:    e.PaymentMode,
		ActualFee:      e.ActualFee,
		CalculatedFee:  e.CalculatedFee,
		AmountPaid:     e.AmountPaid,
		Fee:            fee,
		Overstayed:     e.IsOverstayed(now),
		CreatedAt:      e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      e.UpdatedAt.Format(time.RFC3339),
	}
	if e.ExitTime != nil {
		exit := e.ExitTime.Format(time.RFC3339)
		resp.ExitTime = &exit
	}
	return resp
}

type LinkResult struct {
	ShiftSessionID string `json:"shift_session_id"`
	Linked         int    `json:"linked"`
	Since          string `json:"since"`
}

// RateSchedule is the published tariff.
type RateSchedule struct {
	Rates                  map[string]decimal.Decimal `json:"rates"`
	FallbackRate           decimal.Decimal            `json:"fallback_rate"`
	OverstayThresholdHours float64                    `json:"overstay_threshold_hours"`
	PenaltyMultiplier      decimal.Decimal            `json:"penalty_multiplier"`
	CalculationMethod      string                     `json:"calculation_method"`
}

const CalculationMethod = "ceiling(hours/24) days, minimum 1, times the daily rate; " +
	"each started day past the overstay threshold adds rate * (penalty_multiplier - 1)"
