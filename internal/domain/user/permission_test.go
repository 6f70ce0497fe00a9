package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(RoleAttendant, PermissionShiftOperate))
	assert.False(t, HasPermission(RoleAttendant, PermissionAuditView))
	assert.False(t, HasPermission(RoleAttendant, PermissionShiftAmend))
	assert.True(t, HasPermission(RoleSupervisor, PermissionAuditView))
	assert.False(t, HasPermission(Role("guest"), PermissionShiftOperate))
}

func TestRole_IsSupervisorOrManager(t *testing.T) {
	assert.True(t, RoleSupervisor.IsSupervisorOrManager())
	assert.True(t, RoleManager.IsSupervisorOrManager())
	assert.True(t, RoleAdmin.IsSupervisorOrManager())
	assert.False(t, RoleAttendant.IsSupervisorOrManager())
	assert.False(t, Role("").Valid())
}
