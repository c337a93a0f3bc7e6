package permission

import (
	"context"
	"errors"
	"sync"
)

// Role names used by the property-management application.
const (
	RoleManager      = "MANAGER"
	RoleReception    = "RECEPTION"
	RoleHousekeeping = "HOUSEKEEPING"
	RoleOwner        = "OWNER"
)

// RoleTable is an in-memory [Source] built at startup. Roles are registered,
// then the table is frozen and becomes read-only.
type RoleTable struct {
	mu     sync.RWMutex
	roles  map[string][]string
	frozen bool
}

// NewRoleTable returns an empty, unfrozen table.
func NewRoleTable() *RoleTable {
	return &RoleTable{roles: make(map[string][]string)}
}

// RegisterRole assigns codes to role. Every code must be in [Codes].
func (t *RoleTable) RegisterRole(role string, codes []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return errors.New("role table frozen")
	}
	if role == "" {
		return errors.New("role name empty")
	}
	if _, exists := t.roles[role]; exists {
		return errors.New("role already registered")
	}
	for _, code := range codes {
		if !Known(code) {
			return errors.New("permission not registered: " + code)
		}
	}

	t.roles[role] = append([]string(nil), codes...)
	return nil
}

// Freeze rejects further registrations.
func (t *RoleTable) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}

// Count returns the number of registered roles.
func (t *RoleTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.roles)
}

// RolePermissions implements [Source]. Unknown roles grant nothing.
func (t *RoleTable) RolePermissions(_ context.Context, role string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.roles[role]...), nil
}

// DefaultRoles returns the stock role assignments: managers hold every code,
// reception runs the front desk and finance module, housekeeping sees room
// status, and owners see reports through the owner portal.
func DefaultRoles() map[string][]string {
	return map[string][]string{
		RoleManager: append([]string(nil), Codes...),
		RoleReception: {
			ReservationCreate, ReservationEdit, ReservationCancel, ReservationCheckIn, ReservationCheckOut,
			FinanceView, FinancePost, RatesView, HousekeepingView,
			ModuleDashboard, ModuleFrontOffice, ModuleCheckIn, ModuleGuests, ModuleCompanies,
			ModuleTravelAgents, ModuleRooms, ModuleRates, ModuleHousekeeping, ModuleFinance,
			ModuleReports, ModuleParking,
		},
		RoleHousekeeping: {
			HousekeepingView, HousekeepingUpdateStatus, ModuleHousekeeping,
		},
		RoleOwner: {
			OwnerPortal, ReportsView, ReportsKPI, ModuleReports,
		},
	}
}

// NewDefaultRoleTable returns a frozen table holding [DefaultRoles].
func NewDefaultRoleTable() *RoleTable {
	t := NewRoleTable()
	for role, codes := range DefaultRoles() {
		_ = t.RegisterRole(role, codes)
	}
	t.Freeze()
	return t
}
