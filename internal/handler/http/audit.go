package http

import (
	"net/http"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/audit"
	"github.com/cmlabs-parking/parking-backend-go/internal/handler/http/response"
)

type AuditHandler interface {
	ListAccessLogs(w http.ResponseWriter, r *http.Request)
}

type auditHandlerImpl struct {
	auditService audit.AuditService
}

func NewAuditHandler(auditService audit.AuditService) AuditHandler {
	return &auditHandlerImpl{auditService: auditService}
}

// ListAccessLogs handles GET /access-logs. The service enforces the supervisor
// role so that refused reads are logged too.
func (h *auditHandlerImpl) ListAccessLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := audit.AccessLogFilter{DeniedOnly: query.Get("denied_only") == "true"}
	if v := query.Get("employee_id"); v != "" {
		filter.EmployeeID = &v
	}
	if v := query.Get("action"); v != "" {
		filter.Action = &v
	}

	var ok bool
	if filter.Limit, ok = queryInt(w, r, "limit"); !ok {
		return
	}
	if filter.Offset, ok = queryInt(w, r, "offset"); !ok {
		return
	}

	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	logs, total, err := h.auditService.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	resp := make([]audit.AccessLogResponse, 0, len(logs))
	for _, l := range logs {
		resp = append(resp, audit.NewAccessLogResponse(l))
	}
	response.SuccessWithMeta(w, resp, response.NewMeta(filter.Limit, filter.Offset, total))
}
