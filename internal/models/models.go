package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of operator roles. Stored as its canonical
// string form; parsing is case-insensitive so legacy casing in seed
// data cannot produce an unknown role.
type Role string

const (
	RoleServiceEngineer Role = "ServiceEngineer"
	RoleSystemAdmin     Role = "SystemAdmin"
	RoleSuperAdmin      Role = "SuperAdmin"
)

// ParseRole resolves a role string to its canonical form
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "serviceengineer", "service_engineer":
		return RoleServiceEngineer, nil
	case "systemadmin", "system_admin":
		return RoleSystemAdmin, nil
	case "superadmin", "super_admin":
		return RoleSuperAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether the role is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleServiceEngineer, RoleSystemAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Identity is a login-capable account. Username is held decrypted here;
// the store layer owns the ciphertext representation. The password hash
// never travels on this struct.
type Identity struct {
	ID       int64
	Username string
	Role     Role
	Active   bool
}

// Profile is the human-facing metadata attached to an Identity
type Profile struct {
	ID           int64
	IdentityID   int64
	FirstName    string
	LastName     string
	RegisteredAt time.Time
}

// Name returns the profile's display name
func (p Profile) Name() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Traveller is a customer record. Address and contact fields are
// encrypted at rest; this struct holds them decrypted.
type Traveller struct {
	ID             int64
	FirstName      string
	LastName       string
	Birthday       string // YYYY-MM-DD
	Gender         string
	StreetName     string
	HouseNumber    string
	ZipCode        string
	City           string
	Email          string
	MobilePhone    string
	DrivingLicense string
	RegisteredAt   time.Time
}

// Scooter is a fleet vehicle
type Scooter struct {
	ID              int64
	Brand           string
	Model           string
	SerialNumber    string
	TopSpeedKMH     int
	BatteryWh       int
	SoCPercent      float64
	TargetSoCMin    float64
	TargetSoCMax    float64
	Latitude        float64
	Longitude       float64
	OutOfService    bool
	MileageKM       float64
	LastMaintenance string // YYYY-MM-DD, may be empty
	InServiceAt     time.Time
}

// RestoreCodeStatus is the lifecycle state of a restore code
type RestoreCodeStatus string

const (
	CodeActive  RestoreCodeStatus = "active"
	CodeUsed    RestoreCodeStatus = "used"
	CodeRevoked RestoreCodeStatus = "revoked"
	CodeExpired RestoreCodeStatus = "expired"
)

// RestoreCode is a single-use, time-boxed token delegating restore
// rights for one backup file to one system administrator
type RestoreCode struct {
	ID             int64
	Code           string
	BackupFilename string
	AdminID        int64
	Status         RestoreCodeStatus
	GeneratedAt    time.Time
	ExpiresAt      time.Time
}

// LogEntry is one append-only audit record. Description and Details are
// encrypted at rest; Username stays cleartext so attribution survives
// key loss.
type LogEntry struct {
	ID           string
	Timestamp    time.Time
	Username     string
	EventType    string
	Description  string
	Details      string
	IsSuspicious bool
	IsRead       bool
}
