package authz

// Permission constants define the available permissions in the system.
// These are used for role-based access control (RBAC) to restrict access
// to specific resources and actions. Codes ending in "*" are wildcard
// prefixes satisfying any check for codes sharing the prefix.
const (
	// PermDashboardView allows viewing the main dashboard.
	PermDashboardView = "dashboard.view"

	// PermVehicleRead allows viewing vehicle records.
	PermVehicleRead = "vehicle.read"
	// PermVehicleUpdate allows editing vehicle records.
	PermVehicleUpdate = "vehicle.update"
	// PermVehicleList allows listing all vehicles.
	PermVehicleList = "vehicle.list"

	// PermQuoteCreate allows creating service quotes.
	PermQuoteCreate = "quote.create"
	// PermQuoteRead allows viewing service quotes.
	PermQuoteRead = "quote.read"
	// PermQuoteApprove allows approving service quotes.
	PermQuoteApprove = "quote.approve"

	// PermInvoiceCreate allows creating invoices.
	PermInvoiceCreate = "invoice.create"
	// PermInvoiceRead allows viewing invoices.
	PermInvoiceRead = "invoice.read"
	// PermInvoiceVoid allows voiding issued invoices.
	PermInvoiceVoid = "invoice.void"
	// PermInvoiceAll is the wildcard over all invoice permissions.
	PermInvoiceAll = "invoice.*"

	// PermPaymentProcess allows processing card payments.
	PermPaymentProcess = "payment.process"
	// PermPaymentRefund allows refunding card payments.
	PermPaymentRefund = "payment.refund"

	// PermClientRead allows viewing client records.
	PermClientRead = "client.read"
	// PermClientUpdate allows editing client records.
	PermClientUpdate = "client.update"

	// PermReportRead allows viewing reports.
	PermReportRead = "report.read"
	// PermReportExport allows exporting reports.
	PermReportExport = "report.export"

	// PermAdminUsers allows managing user accounts.
	PermAdminUsers = "admin.users"
	// PermAdminRoles allows managing roles and their permissions.
	PermAdminRoles = "admin.roles"
	// PermAdminDepartments allows managing departments and their grants.
	PermAdminDepartments = "admin.departments"
)
