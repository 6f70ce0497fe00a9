package parking

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type EntryStatus string

const (
	EntryStatusParked EntryStatus = "Parked"
	EntryStatusExited EntryStatus = "Exited"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "Unpaid"
	PaymentStatusPaid   PaymentStatus = "Paid"
)

// OverstayLimit is how long a vehicle may stay parked before it is flagged.
const OverstayLimit = 24 * time.Hour

var digitalPaymentModes = map[string]struct{}{
	"card":    {},
	"upi":     {},
	"digital": {},
	"wallet":  {},
	"online":  {},
}

// Entry is a vehicle's parking record.
type Entry struct {
	ID             string
	ShiftSessionID *string
	VehicleNumber  string
	VehicleType    string
	TransportName  *string
	DriverName     *string
	DriverPhone    *string
	Notes          *string
	EntryTime      time.Time
	ExitTime       *time.Time
	Status         EntryStatus
	PaymentStatus  PaymentStatus
	PaymentMode    *string
	ActualFee      *decimal.Decimal
	CalculatedFee  *decimal.Decimal
	AmountPaid     *decimal.Decimal
	CreatedBy      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Fee returns the first fee present in priority order: actual, calculated, amount paid.
func (e Entry) Fee() (decimal.Decimal, bool) {
	for _, fee := range []*decimal.Decimal{e.ActualFee, e.CalculatedFee, e.AmountPaid} {
		if fee != nil {
			return *fee, true
		}
	}
	return decimal.Zero, false
}

func (e Entry) HasExited() bool {
	return e.ExitTime != nil
}

// IsSettled reports whether the entry's fee counts as collected revenue.
func (e Entry) IsSettled() bool {
	return e.ExitTime != nil || e.PaymentStatus == PaymentStatusPaid
}

func (e Entry) IsCashPayment() bool {
	return e.PaymentMode != nil && strings.EqualFold(strings.TrimSpace(*e.PaymentMode), "cash")
}

func (e Entry) IsDigitalPayment() bool {
	if e.PaymentMode == nil {
		return false
	}
	_, ok := digitalPaymentModes[strings.ToLower(strings.TrimSpace(*e.PaymentMode))]
	return ok
}

// StayDuration is the time parked, measured up to now for vehicles still inside.
func (e Entry) StayDuration(now time.Time) time.Duration {
	if e.ExitTime != nil {
		return e.ExitTime.Sub(e.EntryTime)
	}
	return now.Sub(e.EntryTime)
}

func (e Entry) IsOverstayed(now time.Time) bool {
	return e.ExitTime == nil && e.StayDuration(now) > OverstayLimit
}

// OverstayPolicy surcharges stays beyond Threshold. Each started day past the
// threshold adds dailyRate * (Multiplier - 1). A zero policy charges nothing extra.
type OverstayPolicy struct {
	Threshold  time.Duration
	Multiplier decimal.Decimal
}

func (p OverstayPolicy) enabled() bool {
	return p.Threshold > 0 && p.Multiplier.GreaterThan(decimal.NewFromInt(1))
}

// Fee is the priced outcome of a stay.
type Fee struct {
	Days        int
	DailyRate   decimal.Decimal
	BaseFee     decimal.Decimal
	PenaltyDays int
	PenaltyFee  decimal.Decimal
	Total       decimal.Decimal
}

const day = 24 * time.Hour

// CalculateFee charges one daily rate per started day with a minimum of one
// day, so even a zero-length stay is billed. Remainders count from the first
// whole second past a full day. Callers reject exit times before entry.
func CalculateFee(entryTime, exitTime time.Time, dailyRate decimal.Decimal, policy OverstayPolicy) Fee {
	stay := max(exitTime.Sub(entryTime), 0)

	days := int(stay / day)
	if stay%day >= time.Second {
		days++
	}
	days = max(days, 1)

	fee := Fee{
		Days:       days,
		DailyRate:  dailyRate,
		BaseFee:    dailyRate.Mul(decimal.NewFromInt(int64(days))),
		PenaltyFee: decimal.Zero,
	}

	if policy.enabled() && stay > policy.Threshold {
		over := stay - policy.Threshold
		fee.PenaltyDays = int(over / day)
		if over%day > 0 {
			fee.PenaltyDays++
		}
		fee.PenaltyFee = dailyRate.
			Mul(decimal.NewFromInt(int64(fee.PenaltyDays))).
			Mul(policy.Multiplier.Sub(decimal.NewFromInt(1)))
	}

	fee.Total = fee.BaseFee.Add(fee.PenaltyFee)
	return fee
}

// RateTable resolves the daily rate charged for a vehicle type.
type RateTable interface {
	For(vehicleType string) decimal.Decimal
	Overstay() OverstayPolicy
	Schedule() RateSchedule
}
