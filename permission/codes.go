package permission

// Permission codes granted to property-management roles.
const (
	ReservationCreate   = "reservation.create"
	ReservationEdit     = "reservation.edit"
	ReservationCancel   = "reservation.cancel"
	ReservationCheckIn  = "reservation.check_in"
	ReservationCheckOut = "reservation.check_out"

	FinanceView   = "finance.view"
	FinancePost   = "finance.post"
	FinanceVoid   = "finance.void"
	FinanceRefund = "finance.refund"

	RatesView = "rates.view"
	RatesEdit = "rates.edit"

	ReportsView       = "reports.view"
	ReportsExport     = "reports.export"
	ReportsManagement = "reports.management"
	ReportsKPI        = "reports.kpi"
	ReportsMeals      = "reports.meals"
	ReportsOfficial   = "reports.official"

	HousekeepingView         = "housekeeping.view"
	HousekeepingUpdateStatus = "housekeeping.update_status"

	AdminUsers    = "admin.users"
	AdminSettings = "admin.settings"
	OwnerPortal   = "owner.portal"

	ModuleDashboard      = "module.dashboard"
	ModuleFrontOffice    = "module.front_office"
	ModuleCheckIn        = "module.check_in"
	ModuleGuests         = "module.guests"
	ModuleCompanies      = "module.companies"
	ModuleTravelAgents   = "module.travel_agents"
	ModuleRooms          = "module.rooms"
	ModuleRates          = "module.rates"
	ModuleHousekeeping   = "module.housekeeping"
	ModuleFinance        = "module.finance"
	ModuleReports        = "module.reports"
	ModuleChannelManager = "module.channel_manager"
	ModuleParking        = "module.parking"
	ModuleMICE           = "module.mice"
)

// Codes lists every known permission code.
var Codes = []string{
	ReservationCreate, ReservationEdit, ReservationCancel, ReservationCheckIn, ReservationCheckOut,
	FinanceView, FinancePost, FinanceVoid, FinanceRefund,
	RatesView, RatesEdit,
	ReportsView, ReportsExport, ReportsManagement, ReportsKPI, ReportsMeals, ReportsOfficial,
	HousekeepingView, HousekeepingUpdateStatus,
	AdminUsers, AdminSettings, OwnerPortal,
	ModuleDashboard, ModuleFrontOffice, ModuleCheckIn, ModuleGuests, ModuleCompanies,
	ModuleTravelAgents, ModuleRooms, ModuleRates, ModuleHousekeeping, ModuleFinance,
	ModuleReports, ModuleChannelManager, ModuleParking, ModuleMICE,
}

// Known reports whether code is part of [Codes].
func Known(code string) bool {
	for _, c := range Codes {
		if c == code {
			return true
		}
	}
	return false
}
