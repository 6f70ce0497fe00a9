package audit

import "time"

type Action string

const (
	ActionStartShift     Action = "shift.start"
	ActionEndShift       Action = "shift.end"
	ActionEmergencyEnd   Action = "shift.emergency_end"
	ActionUpdateShift    Action = "shift.update"
	ActionAmendChange    Action = "shift_change.amend"
	ActionViewAccessLogs Action = "access_log.view"
)

// AccessLog is an append-only record of a guarded operation attempt.
type AccessLog struct {
	ID         string
	EmployeeID *string
	Action     Action
	Resource   string
	ResourceID *string
	Allowed    bool
	Reason     *string
	IPAddress  *string
	CreatedAt  time.Time
}
