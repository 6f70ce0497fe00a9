package report

import (
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/parking"
	"github.com/shopspring/decimal"
)

// ========================================
// SHIFT REPORT
// ========================================

type ShiftReport struct {
	GeneratedAt        string                  `json:"generated_at"`
	Shift              ShiftInfo               `json:"shift"`
	ParkingStatistics  ParkingStatistics       `json:"parking_statistics"`
	FinancialSummary   FinancialSummary        `json:"financial_summary"`
	PerformanceMetrics PerformanceMetrics      `json:"performance_metrics"`
	Entries            []parking.EntryResponse `json:"entries"`
}

type ShiftInfo struct {
	ID              string  `json:"id"`
	EmployeeID      string  `json:"employee_id"`
	EmployeeName    string  `json:"employee_name"`
	Status          string  `json:"status"`
	StartTime       string  `json:"start_time"`
	EndTime         *string `json:"end_time,omitempty"`
	DurationMinutes int     `json:"duration_minutes"`
}

type ParkingStatistics struct {
	VehiclesEntered    int     `json:"vehicles_entered"`
	VehiclesExited     int     `json:"vehicles_exited"`
	CurrentlyParked    int     `json:"currently_parked"`
	PeakOccupancy      int     `json:"peak_occupancy"`
	PeakHour           *string `json:"peak_hour,omitempty"`
	AverageStayMinutes float64 `json:"average_stay_minutes"`
	OccupancyRate      float64 `json:"occupancy_rate"`
	OverstayedVehicles int     `json:"overstayed_vehicles"`
}

type FinancialSummary struct {
	OpeningCash       decimal.Decimal  `json:"opening_cash"`
	ClosingCash       *decimal.Decimal `json:"closing_cash"`
	CashDiscrepancy   *decimal.Decimal `json:"cash_discrepancy"`
	RevenueCollected  decimal.Decimal  `json:"revenue_collected"`
	CashCollected     decimal.Decimal  `json:"cash_collected"`
	DigitalCollected  decimal.Decimal  `json:"digital_collected"`
	OutstandingAmount decimal.Decimal  `json:"outstanding_amount"`
	ExpectedCash      decimal.Decimal  `json:"expected_cash"`
	NetCashFlow       decimal.Decimal  `json:"net_cash_flow"`
	CollectionRate    float64          `json:"collection_rate"`
}

type PerformanceMetrics struct {
	VehiclesPerHour   float64 `json:"vehicles_per_hour"`
	RevenuePerHour    float64 `json:"revenue_per_hour"`
	RevenuePerVehicle float64 `json:"revenue_per_vehicle"`
	EfficiencyScore   float64 `json:"efficiency_score"`
}
