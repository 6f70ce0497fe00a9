package user

type Permission string

const (
	// Shift lifecycle
	PermissionShiftOperate  Permission = "shift.operate" // start, end, handover
	PermissionShiftViewAll  Permission = "shift.view_all"
	PermissionShiftAmend    Permission = "shift.amend"
	PermissionReportsView   Permission = "reports.view"
	PermissionParkingManage Permission = "parking.manage"

	// Audit trail
	PermissionAuditView Permission = "audit.view"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermissionShiftOperate,
		PermissionShiftViewAll,
		PermissionShiftAmend,
		PermissionReportsView,
		PermissionParkingManage,
		PermissionAuditView,
	},
	RoleManager: {
		PermissionShiftOperate,
		PermissionShiftViewAll,
		PermissionShiftAmend,
		PermissionReportsView,
		PermissionParkingManage,
		PermissionAuditView,
	},
	RoleSupervisor: {
		PermissionShiftOperate,
		PermissionShiftViewAll,
		PermissionShiftAmend,
		PermissionReportsView,
		PermissionParkingManage,
		PermissionAuditView,
	},
	RoleAttendant: {
		PermissionShiftOperate,
		PermissionShiftViewAll,
		PermissionReportsView,
		PermissionParkingManage,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
