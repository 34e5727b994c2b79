package store

import (
	"errors"
	"time"

	"github.com/urbanmobility/umob/internal/models"
)

var (
	// ErrNotFound is returned when a requested record doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a write violates a uniqueness constraint
	ErrAlreadyExists = errors.New("already exists")
)

// UserRow is a persisted identity record. Username, password hash, role,
// and the active marker are ciphertext; decryption is the caller's job.
type UserRow struct {
	ID           int64
	Username     []byte
	PasswordHash []byte
	Role         []byte
	Active       []byte
}

// ProfileRow is a persisted profile record with encrypted name fields
type ProfileRow struct {
	ID           int64
	UserID       int64
	FirstName    []byte
	LastName     []byte
	RegisteredAt time.Time
}

// TravellerRow is a persisted traveller record. Name, birthday, gender,
// and license are cleartext (searchable); address and contact fields are
// ciphertext.
type TravellerRow struct {
	ID             int64
	FirstName      string
	LastName       string
	Birthday       string
	Gender         string
	StreetName     []byte
	HouseNumber    []byte
	ZipCode        []byte
	City           []byte
	Email          []byte
	MobilePhone    []byte
	DrivingLicense string
	RegisteredAt   time.Time
}

// LogRow is a persisted audit entry with encrypted description/details
type LogRow struct {
	ID           string
	Timestamp    time.Time
	Username     string
	EventType    string
	Description  []byte
	Details      []byte
	IsSuspicious bool
	IsRead       bool
}

// Store defines the interface for persistent storage
type Store interface {
	// Close closes the database connection
	Close() error

	// Checkpoint flushes pending journal state into the main database
	// file so a file-level snapshot sees every committed write
	Checkpoint() error

	// User operations
	CreateUser(row *UserRow) (int64, error)
	ListUsers() ([]UserRow, error)
	UpdateUserPassword(id int64, encHash []byte) error
	UpdateUserActive(id int64, encActive []byte) error

	// Profile operations
	CreateProfile(row *ProfileRow) (int64, error)
	GetProfileByUserID(userID int64) (*ProfileRow, error)
	UpdateProfile(userID int64, encFirst, encLast []byte) error

	// Traveller operations
	CreateTraveller(row *TravellerRow) (int64, error)
	GetTraveller(id int64) (*TravellerRow, error)
	ListTravellers() ([]TravellerRow, error)
	SearchTravellers(nameQuery string) ([]TravellerRow, error)
	UpdateTraveller(row *TravellerRow) error
	DeleteTraveller(id int64) error

	// Scooter operations
	CreateScooter(s *models.Scooter) (int64, error)
	GetScooter(id int64) (*models.Scooter, error)
	SearchScooters(query string) ([]models.Scooter, error)
	UpdateScooter(s *models.Scooter) error
	DeleteScooter(id int64) error

	// Restore code operations
	CreateRestoreCode(c *models.RestoreCode) (int64, error)
	GetRestoreCodeByValue(code string) (*models.RestoreCode, error)
	ListRestoreCodesByAdmin(adminID int64) ([]models.RestoreCode, error)
	// UpdateRestoreCodeStatus transitions a code out of the active
	// state; it returns ErrNotFound if the code is gone or already dead
	UpdateRestoreCodeStatus(id int64, status models.RestoreCodeStatus) error

	// Log operations
	AppendLog(row *LogRow) error
	ListLogs() ([]LogRow, error)
	CountUnreadSuspicious() (int, error)
	MarkAllLogsRead() error

	// Config operations
	GetConfig(key string) (string, error)
	SetConfig(key, value string) error
	DeleteConfig(key string) error
}
