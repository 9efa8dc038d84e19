package daemon

import (
	"gorm.io/gorm"

	"github.com/fleetgrid/fleetgrid/internal/authz"
	"github.com/fleetgrid/fleetgrid/internal/config"
	"github.com/fleetgrid/fleetgrid/internal/db/models"
)

// seededRole pairs a role with its directly assigned permission codes.
type seededRole struct {
	role        models.Role
	permissions []string
	inherits    []string
}

func seed(_ *config.Config, db *gorm.DB) {
	seedCatalog(db)
	seedRoles(db)
	seedAdminUser(db)
}

// seedCatalog populates the permission catalog and its implication edges
// if the catalog is empty.
func seedCatalog(db *gorm.DB) {
	var count int64

	db.Model(&models.Permission{}).Count(&count)
	if count > 0 {
		return
	}

	type entry struct {
		code, category, resource, action string
	}

	catalog := []entry{
		{authz.PermDashboardView, "general", "dashboard", "view"},
		{authz.PermVehicleRead, "fleet", "vehicle", "read"},
		{authz.PermVehicleUpdate, "fleet", "vehicle", "update"},
		{authz.PermVehicleList, "fleet", "vehicle", "list"},
		{authz.PermQuoteCreate, "sales", "quote", "create"},
		{authz.PermQuoteRead, "sales", "quote", "read"},
		{authz.PermQuoteApprove, "sales", "quote", "approve"},
		{authz.PermInvoiceCreate, "billing", "invoice", "create"},
		{authz.PermInvoiceRead, "billing", "invoice", "read"},
		{authz.PermInvoiceVoid, "billing", "invoice", "void"},
		{authz.PermInvoiceAll, "billing", "invoice", "*"},
		{authz.PermPaymentProcess, "billing", "payment", "process"},
		{authz.PermPaymentRefund, "billing", "payment", "refund"},
		{authz.PermClientRead, "sales", "client", "read"},
		{authz.PermClientUpdate, "sales", "client", "update"},
		{authz.PermReportRead, "reporting", "report", "read"},
		{authz.PermReportExport, "reporting", "report", "export"},
		{authz.PermAdminUsers, "admin", "admin", "users"},
		{authz.PermAdminRoles, "admin", "admin", "roles"},
		{authz.PermAdminDepartments, "admin", "admin", "departments"},
	}

	for _, e := range catalog {
		db.Create(&models.Permission{
			Code:     e.code,
			Category: e.category,
			Resource: e.resource,
			Action:   e.action,
			IsActive: true,
		})
	}

	// approving or voiding implies being able to read the thing
	implications := []models.PermissionImplication{
		{PermissionCode: authz.PermQuoteApprove, ImpliesCode: authz.PermQuoteRead},
		{PermissionCode: authz.PermInvoiceVoid, ImpliesCode: authz.PermInvoiceRead},
		{PermissionCode: authz.PermPaymentRefund, ImpliesCode: authz.PermPaymentProcess},
		{PermissionCode: authz.PermReportExport, ImpliesCode: authz.PermReportRead},
	}

	for _, imp := range implications {
		db.Create(&imp)
	}
}

// seedRoles creates the system roles if none exist. The admin role
// carries the universal flag instead of name-based special casing.
func seedRoles(db *gorm.DB) {
	var count int64

	db.Model(&models.Role{}).Count(&count)
	if count > 0 {
		return
	}

	roles := []seededRole{
		{
			role: models.Role{
				Code: "admin", Description: "Full administrative access",
				Level: 100, IsUniversal: true, IsSystem: true, IsActive: true,
			},
		},
		{
			role: models.Role{
				Code: "manager", Description: "Department management",
				Level: 50, IsSystem: true, IsActive: true,
			},
			permissions: []string{
				authz.PermQuoteApprove,
				authz.PermInvoiceVoid,
				authz.PermPaymentRefund,
				authz.PermReportExport,
			},
			inherits: []string{"employee"},
		},
		{
			role: models.Role{
				Code: "employee", Description: "Day-to-day service work",
				Level: 10, IsSystem: true, IsActive: true,
			},
			permissions: []string{
				authz.PermDashboardView,
				authz.PermVehicleRead,
				authz.PermVehicleList,
				authz.PermQuoteCreate,
				authz.PermQuoteRead,
				authz.PermClientRead,
			},
		},
	}

	for _, sr := range roles {
		db.Create(&sr.role)

		for _, code := range sr.permissions {
			db.Create(&models.RolePermission{RoleCode: sr.role.Code, PermissionCode: code})
		}

		for i, parent := range sr.inherits {
			db.Create(&models.RoleInheritance{RoleCode: sr.role.Code, ParentCode: parent, Position: i})
		}
	}
}

// seedAdminUser creates the default admin account if the user table is empty.
func seedAdminUser(db *gorm.DB) {
	var count int64

	db.Model(&models.User{}).Count(&count)
	if count == 0 {
		db.Create(
			&models.User{
				Username: "admin",
				Password: models.HashPassword("changeme"),
				Active:   true,
				RoleCode: "admin",
			},
		)
	}
}
