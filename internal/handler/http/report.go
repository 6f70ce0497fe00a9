package http

import (
	"net/http"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/report"
	"github.com/cmlabs-parking/parking-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type ReportHandler interface {
	// Shift report with parking, financial and performance sections
	GetShiftReport(w http.ResponseWriter, r *http.Request)
}

type reportHandlerImpl struct {
	reportService report.ReportService
}

func NewReportHandler(reportService report.ReportService) ReportHandler {
	return &reportHandlerImpl{
		reportService: reportService,
	}
}

// GetShiftReport handles GET /shifts/{id}/report
func (h *reportHandlerImpl) GetShiftReport(w http.ResponseWriter, r *http.Request) {
	result, err := h.reportService.GenerateShiftReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
