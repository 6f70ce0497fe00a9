package user

type Role string

const (
	RoleAdmin      Role = "admin"      // Full access
	RoleManager    Role = "manager"    // Lot manager
	RoleSupervisor Role = "supervisor" // Approves emergency ends, edits closed shifts
	RoleAttendant  Role = "attendant"  // Runs the gate terminal
)

func (r Role) Valid() bool {
	_, ok := RolePermissions[r]
	return ok
}

// IsSupervisorOrManager reports whether the role may act on closed shifts and audit data.
func (r Role) IsSupervisorOrManager() bool {
	return r == RoleSupervisor || r == RoleManager || r == RoleAdmin
}
