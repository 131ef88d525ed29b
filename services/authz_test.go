package services

import (
	"testing"

	"battery-erp-backend/models"

	"github.com/stretchr/testify/assert"
)

func TestCan(t *testing.T) {
	tests := []struct {
		role models.Role
		op   Operation
		want bool
	}{
		{models.RoleTechnician, OpUpdateRepairStatus, true},
		{models.RoleTechnician, OpViewRepairQueue, true},
		{models.RoleTechnician, OpDeliverBattery, false},
		{models.RoleTechnician, OpReopenWarranty, false},
		{models.RoleTechnician, OpRegisterBattery, false},
		{models.RoleTechnician, OpAddNote, false},
		{models.RoleTechnician, OpExportBackup, false},
		{models.RoleShopStaff, OpRegisterBattery, true},
		{models.RoleShopStaff, OpDeliverBattery, true},
		{models.RoleShopStaff, OpExportBackup, true},
		{models.RoleShopStaff, OpRestoreBackup, false},
		{models.RoleShopStaff, OpManageUsers, false},
		{models.RoleShopStaff, OpManageSettings, false},
		{models.RoleAdmin, OpRestoreBackup, true},
		{models.RoleAdmin, OpManageUsers, true},
		{models.RoleAdmin, OpUpdateRepairStatus, true},
		{models.Role("guest"), OpViewDashboard, false},
		{models.RoleAdmin, Operation("launch_rockets"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.op), func(t *testing.T) {
			assert.Equal(t, tt.want, Can(tt.role, tt.op))
		})
	}
}

func TestEveryOperationHasAnAdmin(t *testing.T) {
	for op := range permissions {
		assert.True(t, Can(models.RoleAdmin, op), op)
	}
}

func TestAuthorize(t *testing.T) {
	active := models.Actor{ID: 1, Username: "staff", Role: models.RoleShopStaff, Active: true}
	assert.NoError(t, Authorize(active, OpRegisterBattery))

	inactive := active
	inactive.Active = false
	assert.ErrorIs(t, Authorize(inactive, OpRegisterBattery), ErrPermissionDenied)

	anonymous := models.Actor{Role: models.RoleAdmin, Active: true}
	assert.ErrorIs(t, Authorize(anonymous, OpViewDashboard), ErrPermissionDenied)

	assert.ErrorIs(t, Authorize(active, OpRestoreBackup), ErrPermissionDenied)
	assert.Equal(t, KindPermissionDenied, KindOf(Authorize(active, OpRestoreBackup)))
}
