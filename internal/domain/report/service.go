package report

import "context"

// ReportService defines the interface for report generation
type ReportService interface {
	// GenerateShiftReport re-aggregates the shift and builds its report
	GenerateShiftReport(ctx context.Context, shiftID string) (ShiftReport, error)
}
