// Package service orchestrates the application operations: every entry
// point authenticates the actor, checks the permission table, runs the
// domain change, and records exactly one audit entry for the outcome.
package service

import (
	"errors"
	"fmt"

	"github.com/urbanmobility/umob/internal/audit"
	"github.com/urbanmobility/umob/internal/authz"
	"github.com/urbanmobility/umob/internal/backup"
	"github.com/urbanmobility/umob/internal/config"
	"github.com/urbanmobility/umob/internal/crypto"
	"github.com/urbanmobility/umob/internal/identity"
	"github.com/urbanmobility/umob/internal/models"
	"github.com/urbanmobility/umob/internal/restorecode"
	"github.com/urbanmobility/umob/internal/store"
)

var (
	// ErrNotInitialized is returned when no database exists yet
	ErrNotInitialized = errors.New("not initialized; run 'umob setup' first")
	// ErrPermissionDenied is returned when the actor's role lacks the capability
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidCredentials is returned for any failed login, without
	// revealing whether the username or the password was wrong
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrValidation is wrapped around field validation failures
	ErrValidation = errors.New("validation failed")
)

// Actor is the authenticated operator performing an operation
type Actor struct {
	ID       int64
	Username string
	Role     models.Role
}

// Service wires the storage, crypto, and domain layers together
type Service struct {
	cfg     *config.Config
	db      store.Store
	cipher  *crypto.Cipher
	ids     *identity.Store
	trail   *audit.Trail
	codes   *restorecode.Authority
	backups *backup.Manager
}

// Open loads the key, opens the database, and builds the credential
// cache. The data directory must already be initialized.
func Open(cfg *config.Config) (*Service, error) {
	if !cfg.Exists() {
		return nil, ErrNotInitialized
	}
	key, err := crypto.LoadKey(cfg.KeyPath)
	if err != nil {
		return nil, err
	}
	cipher, err := crypto.NewCipher(key)
	if err != nil {
		return nil, err
	}
	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	ids, err := identity.New(db, cipher)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Service{
		cfg:     cfg,
		db:      db,
		cipher:  cipher,
		ids:     ids,
		trail:   audit.New(db, cipher),
		codes:   restorecode.New(db),
		backups: backup.New(cfg),
	}, nil
}

// Close releases the database handle
func (s *Service) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// reopen rebuilds the store-backed layers after the database file was
// replaced underneath the service
func (s *Service) reopen() error {
	db, err := store.NewSQLiteStore(s.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}
	ids, err := identity.New(db, s.cipher)
	if err != nil {
		db.Close()
		return err
	}
	s.db = db
	s.ids = ids
	s.trail = audit.New(db, s.cipher)
	s.codes = restorecode.New(db)
	return nil
}

// authorize checks the actor's role against the capability. A denied
// attempt is itself recorded as a suspicious audit entry.
func (s *Service) authorize(actor Actor, cap authz.Capability) error {
	if authz.HasPermission(actor.Role, cap) {
		return nil
	}
	s.trail.RecordSuspicious(actor.Username, "UNAUTHORIZED_ACCESS",
		"attempted an operation outside the role's permissions",
		map[string]string{"capability": string(cap), "role": actor.Role.String()})
	return ErrPermissionDenied
}

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
