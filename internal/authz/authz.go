// Package authz holds the static role-based access control table and
// the permission check every privileged operation runs before touching
// any state.
package authz

import "github.com/urbanmobility/umob/internal/models"

// Capability is a named permission checked against a role's granted set
type Capability string

// Capabilities, grouped by the lowest role that holds them directly.
// SuperAdmin holds everything implicitly, including the capabilities
// below that appear in no explicit set.
const (
	// ServiceEngineer
	CapUpdateScooterLimited Capability = "update_scooter_limited"
	CapSearchScooters       Capability = "search_scooters"
	CapViewScooterDetails   Capability = "view_scooter_details"
	CapUpdateOwnProfile     Capability = "update_own_profile"
	CapChangeOwnPassword    Capability = "change_own_password"

	// SystemAdmin
	CapAddTraveller           Capability = "add_traveller"
	CapUpdateTraveller        Capability = "update_traveller"
	CapDeleteTraveller        Capability = "delete_traveller"
	CapSearchTravellers       Capability = "search_travellers"
	CapViewTravellerDetails   Capability = "view_traveller_details"
	CapAddScooter             Capability = "add_scooter"
	CapUpdateScooterFull      Capability = "update_scooter_full"
	CapDeleteScooter          Capability = "delete_scooter"
	CapAddServiceEngineer     Capability = "add_service_engineer"
	CapUpdateEngineerProfile  Capability = "update_service_engineer_profile"
	CapDeleteServiceEngineer  Capability = "delete_service_engineer"
	CapResetEngineerPassword  Capability = "reset_service_engineer_password"
	CapSearchServiceEngineers Capability = "search_service_engineers"
	CapViewSystemLogs         Capability = "view_system_logs"
	CapCreateBackup           Capability = "create_backup"
	CapRestoreBackup          Capability = "restore_backup" // SystemAdmin needs a restore code

	// SuperAdmin only (granted via the wildcard, listed in no set)
	CapAddSystemAdmin         Capability = "add_system_admin"
	CapUpdateAdminProfile     Capability = "update_system_admin_profile"
	CapDeleteSystemAdmin      Capability = "delete_system_admin"
	CapSearchSystemAdmins     Capability = "search_system_admins"
	CapGenerateRestoreCode    Capability = "generate_restore_code"
)

var serviceEngineerCaps = map[Capability]struct{}{
	CapUpdateScooterLimited: {},
	CapSearchScooters:       {},
	CapViewScooterDetails:   {},
	CapUpdateOwnProfile:     {},
	CapChangeOwnPassword:    {},
}

var systemAdminCaps = map[Capability]struct{}{
	CapAddTraveller:           {},
	CapUpdateTraveller:        {},
	CapDeleteTraveller:        {},
	CapSearchTravellers:       {},
	CapViewTravellerDetails:   {},
	CapAddScooter:             {},
	CapUpdateScooterFull:      {},
	CapDeleteScooter:          {},
	CapAddServiceEngineer:     {},
	CapUpdateEngineerProfile:  {},
	CapDeleteServiceEngineer:  {},
	CapResetEngineerPassword:  {},
	CapSearchServiceEngineers: {},
	CapViewSystemLogs:         {},
	CapCreateBackup:           {},
	CapRestoreBackup:          {},
}

// HasPermission reports whether a role may perform the capability.
// Pure and side-effect-free; an unknown or zero role is always denied.
// SuperAdmin is granted everything. SystemAdmin inherits every
// ServiceEngineer capability.
func HasPermission(role models.Role, cap Capability) bool {
	switch role {
	case models.RoleSuperAdmin:
		return true
	case models.RoleSystemAdmin:
		if _, ok := systemAdminCaps[cap]; ok {
			return true
		}
		_, ok := serviceEngineerCaps[cap]
		return ok
	case models.RoleServiceEngineer:
		_, ok := serviceEngineerCaps[cap]
		return ok
	}
	return false
}
