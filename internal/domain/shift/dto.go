package shift

import (
	"time"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/report"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========================================
// SHIFT LIFECYCLE DTOs
// ========================================

type StartShiftRequest struct {
	EmployeeID    string          `json:"employee_id"`
	EmployeeName  string          `json:"employee_name"`
	EmployeePhone *string         `json:"employee_phone,omitempty"`
	OpeningCash   decimal.Decimal `json:"opening_cash"`
	Notes         *string         `json:"notes,omitempty"`
	StartTime     *time.Time      `json:"start_time,omitempty"`
}

func (r *StartShiftRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if validator.IsEmpty(r.EmployeeName) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_name",
			Message: "employee_name is required",
		})
	}

	if r.OpeningCash.IsNegative() {
		errs = append(errs, validator.ValidationError{
			Field:   "opening_cash",
			Message: "opening_cash must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type EndShiftRequest struct {
	ShiftID        string          `json:"-"`
	ClosingCash    decimal.Decimal `json:"closing_cash"`
	Notes          *string         `json:"notes,omitempty"`
	Emergency      bool            `json:"emergency"`
	SupervisorID   *string         `json:"supervisor_id,omitempty"`
	SupervisorName *string         `json:"supervisor_name,omitempty"`
}

func (r *EndShiftRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ShiftID) {
		errs = append(errs, validator.ValidationError{
			Field:   "shift_id",
			Message: "shift_id is required",
		})
	}

	if r.ClosingCash.IsNegative() {
		errs = append(errs, validator.ValidationError{
			Field:   "closing_cash",
			Message: "closing_cash must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// HasSupervisor reports whether a supervisor approved the request.
func (r *EndShiftRequest) HasSupervisor() bool {
	return r.SupervisorID != nil && !validator.IsEmpty(*r.SupervisorID)
}

type HandoverRequest struct {
	OutgoingShiftID       string          `json:"-"`
	IncomingEmployeeID    string          `json:"incoming_employee_id"`
	IncomingEmployeeName  string          `json:"incoming_employee_name"`
	IncomingEmployeePhone *string         `json:"incoming_employee_phone,omitempty"`
	ClosingCash           decimal.Decimal `json:"closing_cash"`
	OpeningCash           decimal.Decimal `json:"opening_cash"`
	HandoverNotes         *string         `json:"handover_notes,omitempty"`
	PendingIssues         *string         `json:"pending_issues,omitempty"`
}

func (r *HandoverRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.OutgoingShiftID) {
		errs = append(errs, validator.ValidationError{
			Field:   "outgoing_shift_id",
			Message: "outgoing_shift_id is required",
		})
	}

	if validator.IsEmpty(r.IncomingEmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "incoming_employee_id",
			Message: "incoming_employee_id is required",
		})
	}

	if validator.IsEmpty(r.IncomingEmployeeName) {
		errs = append(errs, validator.ValidationError{
			Field:   "incoming_employee_name",
			Message: "incoming_employee_name is required",
		})
	}

	if r.ClosingCash.IsNegative() {
		errs = append(errs, validator.ValidationError{
			Field:   "closing_cash",
			Message: "closing_cash must not be negative",
		})
	}

	if r.OpeningCash.IsNegative() {
		errs = append(errs, validator.ValidationError{
			Field:   "opening_cash",
			Message: "opening_cash must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type UpdateShiftRequest struct {
	ShiftID     string           `json:"-"`
	Notes       *string          `json:"notes,omitempty"`
	ClosingCash *decimal.Decimal `json:"closing_cash,omitempty"`
	Status      *string          `json:"status,omitempty"`
	StartTime   *time.Time       `json:"start_time,omitempty"`
}

func (r *UpdateShiftRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ShiftID) {
		errs = append(errs, validator.ValidationError{
			Field:   "shift_id",
			Message: "shift_id is required",
		})
	}

	if r.ClosingCash != nil && r.ClosingCash.IsNegative() {
		errs = append(errs, validator.ValidationError{
			Field:   "closing_cash",
			Message: "closing_cash must not be negative",
		})
	}

	if r.Status != nil && !Status(*r.Status).Valid() {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be one of active, completed, emergency_ended",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type AmendChangeRequest struct {
	ChangeID      string  `json:"-"`
	HandoverNotes *string `json:"handover_notes,omitempty"`
	PendingIssues *string `json:"pending_issues,omitempty"`
}

func (r *AmendChangeRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ChangeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "change id is required",
		})
	}

	if r.HandoverNotes == nil && r.PendingIssues == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "body",
			Message: "handover_notes or pending_issues is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type HistoryFilter struct {
	EmployeeID string `json:"employee_id"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}

func (f *HistoryFilter) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(f.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 10 // Default limit
	}
	if f.Limit > 100 {
		f.Limit = 100
	}

	if f.Offset < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "offset",
			Message: "offset must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ========================================
// RESULTS
// ========================================

type EndShiftResult struct {
	ShiftID         string             `json:"shift_id"`
	Status          Status             `json:"status"`
	CashDiscrepancy decimal.Decimal    `json:"cash_discrepancy"`
	EndedAt         time.Time          `json:"ended_at"`
	Report          report.ShiftReport `json:"report"`
}

type HandoverResult struct {
	HandoverID      string             `json:"handover_id"`
	OutgoingReport  report.ShiftReport `json:"outgoing_report"`
	NewShiftID      string             `json:"new_shift_id"`
	CashTransferred decimal.Decimal    `json:"cash_transferred"`
	PendingIssues   *string            `json:"pending_issues,omitempty"`
}

// ActiveShift is the current session together with its running duration.
type ActiveShift struct {
	Session
	LiveDurationMinutes int
}

// ========================================
// RESPONSES
// ========================================

type SessionResponse struct {
	ID               string           `json:"id"`
	EmployeeID       string           `json:"employee_id"`
	EmployeeName     string           `json:"employee_name"`
	EmployeePhone    *string          `json:"employee_phone,omitempty"`
	StartTime        string           `json:"start_time"`
	EndTime          *string          `json:"end_time,omitempty"`
	Status           string           `json:"status"`
	OpeningCash      decimal.Decimal  `json:"opening_cash"`
	ClosingCash      *decimal.Decimal `json:"closing_cash,omitempty"`
	CashDiscrepancy  *decimal.Decimal `json:"cash_discrepancy,omitempty"`
	DurationMinutes  int              `json:"duration_minutes"`
	Notes            *string          `json:"notes,omitempty"`
	VehiclesEntered  int              `json:"vehicles_entered"`
	VehiclesExited   int              `json:"vehicles_exited"`
	CurrentlyParked  int              `json:"currently_parked"`
	TotalRevenue     decimal.Decimal  `json:"total_revenue"`
	CashCollected    decimal.Decimal  `json:"cash_collected"`
	DigitalCollected decimal.Decimal  `json:"digital_collected"`
	CreatedAt        string           `json:"created_at"`
	UpdatedAt        string           `json:"updated_at"`
}

func NewSessionResponse(s Session, now time.Time) SessionResponse {
	resp := SessionResponse{
		ID:               s.ID,
		EmployeeID:       s.EmployeeID,
		EmployeeName:     s.EmployeeName,
		EmployeePhone:    s.EmployeePhone,
		StartTime:        s.StartTime.Format(time.RFC3339),
		Status:           string(s.Status),
		OpeningCash:      s.OpeningCash,
		ClosingCash:      s.ClosingCash,
		CashDiscrepancy:  s.CashDiscrepancy,
		DurationMinutes:  s.LiveDurationMinutes(now),
		Notes:            s.Notes,
		VehiclesEntered:  s.VehiclesEntered,
		VehiclesExited:   s.VehiclesExited,
		CurrentlyParked:  s.CurrentlyParked,
		TotalRevenue:     s.TotalRevenue,
		CashCollected:    s.CashCollected,
		DigitalCollected: s.DigitalCollected,
		CreatedAt:        s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        s.UpdatedAt.Format(time.RFC3339),
	}
	if s.EndTime != nil {
		end := s.EndTime.Format(time.RFC3339)
		resp.EndTime = &end
	}
	return resp
}

type ChangeRecordResponse struct {
	ID                   string          `json:"id"`
	PreviousShiftID      string          `json:"previous_shift_session_id"`
	NewShiftID           *string         `json:"new_shift_session_id,omitempty"`
	ChangeTimestamp      string          `json:"change_timestamp"`
	HandoverNotes        *string         `json:"handover_notes,omitempty"`
	CashTransferred      decimal.Decimal `json:"cash_transferred"`
	PendingIssues        *string         `json:"pending_issues,omitempty"`
	OutgoingEmployeeID   string          `json:"outgoing_employee_id"`
	OutgoingEmployeeName string          `json:"outgoing_employee_name"`
	IncomingEmployeeID   *string         `json:"incoming_employee_id,omitempty"`
	IncomingEmployeeName *string         `json:"incoming_employee_name,omitempty"`
	ChangeType           string          `json:"change_type"`
	SupervisorApproved   bool            `json:"supervisor_approved"`
	SupervisorID         *string         `json:"supervisor_id,omitempty"`
	SupervisorName       *string         `json:"supervisor_name,omitempty"`
}

func NewChangeRecordResponse(c ChangeRecord) ChangeRecordResponse {
	return ChangeRecordResponse{
		ID:                   c.ID,
		PreviousShiftID:      c.PreviousShiftID,
		NewShiftID:           c.NewShiftID,
		ChangeTimestamp:      c.ChangeTimestamp.Format(time.RFC3339),
		HandoverNotes:        c.HandoverNotes,
		CashTransferred:      c.CashTransferred,
		PendingIssues:        c.PendingIssues,
		OutgoingEmployeeID:   c.OutgoingEmployeeID,
		OutgoingEmployeeName: c.OutgoingEmployeeName,
		IncomingEmployeeID:   c.IncomingEmployeeID,
		IncomingEmployeeName: c.IncomingEmployeeName,
		ChangeType:           string(c.ChangeType),
		SupervisorApproved:   c.SupervisorApproved,
		SupervisorID:         c.SupervisorID,
		SupervisorName:       c.SupervisorName,
	}
}

type DailySummaryResponse struct {
	Date               string            `json:"date"`
	TotalShifts        int               `json:"total_shifts"`
	TotalHours         float64           `json:"total_hours"`
	TotalCashCollected decimal.Decimal   `json:"total_cash_collected"`
	EmergencyEnds      int               `json:"emergency_ends"`
	Shifts             []SessionResponse `json:"shifts"`
}

func NewDailySummaryResponse(d DailySummary, now time.Time) DailySummaryResponse {
	shifts := make([]SessionResponse, 0, len(d.Shifts))
	for _, s := range d.Shifts {
		shifts = append(shifts, NewSessionResponse(s, now))
	}
	return DailySummaryResponse{
		Date:               d.Date.Format("2006-01-02"),
		TotalShifts:        d.TotalShifts,
		TotalHours:         d.TotalHours,
		TotalCashCollected: d.TotalCashCollected,
		EmergencyEnds:      d.EmergencyEnds,
		Shifts:             shifts,
	}
}
