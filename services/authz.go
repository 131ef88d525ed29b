package services

import (
	"battery-erp-backend/models"
)

type Operation string

const (
	OpRegisterBattery    Operation = "register_battery"
	OpUpdateRepairStatus Operation = "update_repair_status"
	OpDeliverBattery     Operation = "deliver_battery"
	OpReopenWarranty     Operation = "reopen_warranty"
	OpAddNote            Operation = "add_note"
	OpResolveNote        Operation = "resolve_note"
	OpViewRepairQueue    Operation = "view_repair_queue"
	OpViewBattery        Operation = "view_battery"
	OpSearch             Operation = "search"
	OpViewAllBatteries   Operation = "view_all_batteries"
	OpViewDelivered      Operation = "view_delivered"
	OpViewNotRepairable  Operation = "view_not_repairable"
	OpViewBills          Operation = "view_bills"
	OpViewDashboard      Operation = "view_dashboard"
	OpViewReports        Operation = "view_reports"
	OpExportCSV          Operation = "export_csv"
	OpManageCustomers    Operation = "manage_customers"
	OpExportBackup       Operation = "export_backup"
	OpRestoreBackup      Operation = "restore_backup"
	OpManageUsers        Operation = "manage_users"
	OpManageSettings     Operation = "manage_settings"
)

var (
	everyone  = []models.Role{models.RoleAdmin, models.RoleShopStaff, models.RoleTechnician}
	frontDesk = []models.Role{models.RoleAdmin, models.RoleShopStaff}
	adminOnly = []models.Role{models.RoleAdmin}
)

var permissions = map[Operation][]models.Role{
	OpRegisterBattery:    frontDesk,
	OpUpdateRepairStatus: everyone,
	OpDeliverBattery:     frontDesk,
	OpReopenWarranty:     frontDesk,
	OpAddNote:            frontDesk,
	OpResolveNote:        frontDesk,
	OpViewRepairQueue:    everyone,
	OpViewBattery:        everyone,
	OpSearch:             everyone,
	OpViewAllBatteries:   frontDesk,
	OpViewDelivered:      frontDesk,
	OpViewNotRepairable:  frontDesk,
	OpViewBills:          frontDesk,
	OpViewDashboard:      everyone,
	OpViewReports:        everyone,
	OpExportCSV:          everyone,
	OpManageCustomers:    frontDesk,
	OpExportBackup:       frontDesk,
	OpRestoreBackup:      adminOnly,
	OpManageUsers:        adminOnly,
	OpManageSettings:     adminOnly,
}

// Can reports whether role may perform op. Unknown operations are denied.
func Can(role models.Role, op Operation) bool {
	for _, r := range permissions[op] {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize is consulted by every service entry point that acts on behalf of a user.
func Authorize(actor models.Actor, op Operation) error {
	if actor.ID == 0 || !actor.Active {
		return newError(KindPermissionDenied, "account is not active")
	}
	if !Can(actor.Role, op) {
		return newError(KindPermissionDenied, "role %s may not %s", actor.Role, op)
	}
	return nil
}
