package audit

import (
	"time"

	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/validator"
)

// Event is what guarded operations report; identity and client address come from ctx.
type Event struct {
	Action     Action
	Resource   string
	ResourceID string
	Allowed    bool
	Reason     string
}

type AccessLogFilter struct {
	EmployeeID *string `json:"employee_id,omitempty"`
	Action     *string `json:"action,omitempty"`
	DeniedOnly bool    `json:"denied_only"`
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
}

func (f *AccessLogFilter) Validate() error {
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

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type AccessLogResponse struct {
	ID         string  `json:"id"`
	EmployeeID *string `json:"employee_id,omitempty"`
	Action     string  `json:"action"`
	Resource   string  `json:"resource"`
	ResourceID *string `json:"resource_id,omitempty"`
	Allowed    bool    `json:"allowed"`
	Reason     *string `json:"reason,omitempty"`
	IPAddress  *string `json:"ip_address,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

func NewAccessLogResponse(l AccessLog) AccessLogResponse {
	return AccessLogResponse{
		ID:         l.ID,
		EmployeeID: l.EmployeeID,
		Action:     string(l.Action),
		Resource:   l.Resource,
		ResourceID: l.ResourceID,
		Allowed:    l.Allowed,
		Reason:     l.Reason,
		IPAddress:  l.IPAddress,
		CreatedAt:  l.CreatedAt.Format(time.RFC3339),
	}
}
