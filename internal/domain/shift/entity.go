package shift

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive         Status = "active"
	StatusCompleted      Status = "completed"
	StatusEmergencyEnded Status = "emergency_ended"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusEmergencyEnded:
		return true
	}
	return false
}

// IsTerminal reports whether no transition may leave the status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusEmergencyEnded
}

type ChangeType string

const (
	ChangeTypeNormal    ChangeType = "normal"
	ChangeTypeEmergency ChangeType = "emergency"
	ChangeTypeExtended  ChangeType = "extended"
	ChangeTypeOverlap   ChangeType = "overlap"
)

// Statistics are the counters derived from the parking entries linked to a shift.
type Statistics struct {
	VehiclesEntered  int
	VehiclesExited   int
	CurrentlyParked  int
	TotalRevenue     decimal.Decimal
	CashCollected    decimal.Decimal
	DigitalCollected decimal.Decimal
}

// Equal compares counters by value; decimals with different exponents are equal.
func (s Statistics) Equal(o Statistics) bool {
	return s.VehiclesEntered == o.VehiclesEntered &&
		s.VehiclesExited == o.VehiclesExited &&
		s.CurrentlyParked == o.CurrentlyParked &&
		s.TotalRevenue.Equal(o.TotalRevenue) &&
		s.CashCollected.Equal(o.CashCollected) &&
		s.DigitalCollected.Equal(o.DigitalCollected)
}

// Session is one attendant's period of responsibility for the lot.
type Session struct {
	ID              string
	EmployeeID      string
	EmployeeName    string
	EmployeePhone   *string
	StartTime       time.Time
	EndTime         *time.Time
	Status          Status
	OpeningCash     decimal.Decimal
	ClosingCash     *decimal.Decimal
	CashDiscrepancy *decimal.Decimal
	DurationMinutes *int
	Notes           *string
	Statistics
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s Session) IsActive() bool {
	return s.Status == StatusActive
}

// Close moves an active session into a terminal status and fills the derived close-out fields.
func (s *Session) Close(at time.Time, closingCash decimal.Decimal, status Status) {
	end := at
	s.EndTime = &end
	s.Status = status
	s.SetClosingCash(closingCash)
	minutes := int(end.Sub(s.StartTime).Minutes())
	s.DurationMinutes = &minutes
}

// SetClosingCash keeps CashDiscrepancy in step with ClosingCash.
func (s *Session) SetClosingCash(closingCash decimal.Decimal) {
	closing := closingCash
	discrepancy := closing.Sub(s.OpeningCash)
	s.ClosingCash = &closing
	s.CashDiscrepancy = &discrepancy
}

// LiveDurationMinutes is the elapsed time of the session, measured up to now while active.
func (s Session) LiveDurationMinutes(now time.Time) int {
	if s.DurationMinutes != nil {
		return *s.DurationMinutes
	}
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	return int(end.Sub(s.StartTime).Minutes())
}

// ChangeRecord is the append-only audit entry written when a shift ends or is handed over.
type ChangeRecord struct {
	ID                   string
	PreviousShiftID      string
	NewShiftID           *string
	ChangeTimestamp      time.Time
	HandoverNotes        *string
	CashTransferred      decimal.Decimal
	PendingIssues        *string
	OutgoingEmployeeID   string
	OutgoingEmployeeName string
	IncomingEmployeeID   *string
	IncomingEmployeeName *string
	ChangeType           ChangeType
	SupervisorApproved   bool
	SupervisorID         *string
	SupervisorName       *string
	CreatedAt            time.Time
}

// CheckInvariants enforces the rules every stored change record must satisfy.
func (c ChangeRecord) CheckInvariants() error {
	if c.ChangeType == ChangeTypeEmergency && (!c.SupervisorApproved || c.SupervisorID == nil || *c.SupervisorID == "") {
		return ErrSupervisorRequired
	}
	if c.IncomingEmployeeID != nil && *c.IncomingEmployeeID == c.OutgoingEmployeeID {
		return ErrSameEmployeeHandover
	}
	return nil
}

// DailySummary aggregates the shifts started on one business day.
type DailySummary struct {
	Date               time.Time
	TotalShifts        int
	TotalHours         float64
	TotalCashCollected decimal.Decimal
	EmergencyEnds      int
	Shifts             []Session
}
