// Package identity owns durable operator accounts: encrypted at rest,
// mirrored into a fully decrypted in-process cache so usernames can be
// matched case-insensitively even though the cipher is not
// deterministic and ciphertext cannot be compared for equality.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urbanmobility/umob/internal/crypto"
	"github.com/urbanmobility/umob/internal/models"
	"github.com/urbanmobility/umob/internal/store"
)

var (
	// ErrDuplicateUsername is returned when a username is already taken
	// (case-insensitively, across active and deactivated accounts)
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrNotFound is returned when no matching identity exists
	ErrNotFound = errors.New("identity not found")
)

// Markers persisted (encrypted) in the users.is_active column
const (
	markerActive   = "active"
	markerInactive = "inactive"
)

// Credential is the decrypted login material for one identity
type Credential struct {
	ID           int64
	Username     string
	Role         models.Role
	PasswordHash []byte
}

// Member is a directory listing entry for user management views
type Member struct {
	ID       int64
	Username string
	Name     string
}

type cachedIdentity struct {
	identity     models.Identity
	passwordHash []byte
}

// Store is the credential store. All reads are served from the cache;
// every mutation rebuilds the cache from persisted state before
// returning, so within this process no reader observes staleness.
type Store struct {
	db     store.Store
	cipher *crypto.Cipher
	cache  []cachedIdentity
}

// New creates a credential store and builds the initial cache
func New(db store.Store, cipher *crypto.Cipher) (*Store, error) {
	s := &Store{db: db, cipher: cipher}
	if err := s.rebuild(); err != nil {
		return nil, err
	}
	return s, nil
}

// rebuild reconstructs the decrypted mirror from the persistent store.
// A row that fails to decrypt aborts the rebuild: that is a
// data-integrity problem (key mismatch or tampering), not a missing
// record, and it must surface as such.
func (s *Store) rebuild() error {
	rows, err := s.db.ListUsers()
	if err != nil {
		return fmt.Errorf("failed to load identities: %w", err)
	}

	cache := make([]cachedIdentity, 0, len(rows))
	for _, row := range rows {
		username, err := s.cipher.Decrypt(row.Username)
		if err != nil {
			return fmt.Errorf("identity %d username: %w", row.ID, err)
		}
		roleStr, err := s.cipher.Decrypt(row.Role)
		if err != nil {
			return fmt.Errorf("identity %d role: %w", row.ID, err)
		}
		role, err := models.ParseRole(roleStr)
		if err != nil {
			return fmt.Errorf("identity %d: %w", row.ID, err)
		}
		marker, err := s.cipher.Decrypt(row.Active)
		if err != nil {
			return fmt.Errorf("identity %d active marker: %w", row.ID, err)
		}
		hashText, err := s.cipher.Decrypt(row.PasswordHash)
		if err != nil {
			return fmt.Errorf("identity %d password hash: %w", row.ID, err)
		}

		cache = append(cache, cachedIdentity{
			identity: models.Identity{
				ID:       row.ID,
				Username: username,
				Role:     role,
				Active:   marker == markerActive,
			},
			passwordHash: []byte(hashText),
		})
	}

	s.cache = cache
	return nil
}

// Create adds a new identity with its profile. The username is
// normalized to lower case before the uniqueness check and storage; the
// password is hashed, and the hash is itself encrypted before it is
// written (the hash never sits in the clear at rest).
func (s *Store) Create(username, password string, role models.Role, firstName, lastName string) (int64, error) {
	if !role.Valid() {
		return 0, fmt.Errorf("invalid role %q", role)
	}
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return 0, fmt.Errorf("username must not be empty")
	}
	for _, c := range s.cache {
		if c.identity.Username == username {
			return 0, ErrDuplicateUsername
		}
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return 0, err
	}

	encUsername, err := s.cipher.Encrypt(username)
	if err != nil {
		return 0, fmt.Errorf("failed to encrypt username: %w", err)
	}
	encHash, err := s.cipher.Encrypt(string(hash))
	if err != nil {
		return 0, fmt.Errorf("failed to encrypt password hash: %w", err)
	}
	encRole, err := s.cipher.Encrypt(role.String())
	if err != nil {
		return 0, fmt.Errorf("failed to encrypt role: %w", err)
	}
	encActive, err := s.cipher.Encrypt(markerActive)
	if err != nil {
		return 0, fmt.Errorf("failed to encrypt active marker: %w", err)
	}

	id, err := s.db.CreateUser(&store.UserRow{
		Username:     encUsername,
		PasswordHash: encHash,
		Role:         encRole,
		Active:       encActive,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return 0, ErrDuplicateUsername
		}
		return 0, err
	}

	encFirst, err := s.cipher.Encrypt(firstName)
	if err != nil {
		return 0, fmt.Errorf("failed to encrypt first name: %w", err)
	}
	encLast, err := s.cipher.Encrypt(lastName)
	if err != nil {
		return 0, fmt.Errorf("failed to encrypt last name: %w", err)
	}
	if _, err := s.db.CreateProfile(&store.ProfileRow{
		UserID:       id,
		FirstName:    encFirst,
		LastName:     encLast,
		RegisteredAt: time.Now(),
	}); err != nil {
		return 0, fmt.Errorf("identity created but profile failed: %w", err)
	}

	if err := s.rebuild(); err != nil {
		return 0, err
	}
	return id, nil
}

// FindByUsername looks up an active identity by plaintext username,
// case-insensitively, via the decrypted cache
func (s *Store) FindByUsername(username string) (*Credential, error) {
	want := strings.ToLower(strings.TrimSpace(username))
	for _, c := range s.cache {
		if c.identity.Active && c.identity.Username == want {
			return &Credential{
				ID:           c.identity.ID,
				Username:     c.identity.Username,
				Role:         c.identity.Role,
				PasswordHash: c.passwordHash,
			}, nil
		}
	}
	return nil, ErrNotFound
}

// Get returns an active identity by id
func (s *Store) Get(id int64) (*models.Identity, error) {
	for _, c := range s.cache {
		if c.identity.ID == id && c.identity.Active {
			ident := c.identity
			return &ident, nil
		}
	}
	return nil, ErrNotFound
}

// ListByRole returns the active members holding a role, with decrypted
// usernames and profile names
func (s *Store) ListByRole(role models.Role) ([]Member, error) {
	members := []Member{}
	for _, c := range s.cache {
		if !c.identity.Active || c.identity.Role != role {
			continue
		}
		m := Member{ID: c.identity.ID, Username: c.identity.Username}
		if p, err := s.ProfileByID(c.identity.ID); err == nil {
			m.Name = p.Name()
		}
		members = append(members, m)
	}
	return members, nil
}

// UpdatePassword hashes and stores a new password for an identity
func (s *Store) UpdatePassword(id int64, newPassword string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return err
	}
	encHash, err := s.cipher.Encrypt(string(hash))
	if err != nil {
		return fmt.Errorf("failed to encrypt password hash: %w", err)
	}
	if err := s.db.UpdateUserPassword(id, encHash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.rebuild()
}

// Deactivate soft-deletes an identity. The record is retained so audit
// history keeps its attribution; there is no reactivation path.
func (s *Store) Deactivate(id int64) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	encInactive, err := s.cipher.Encrypt(markerInactive)
	if err != nil {
		return fmt.Errorf("failed to encrypt active marker: %w", err)
	}
	if err := s.db.UpdateUserActive(id, encInactive); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.rebuild()
}

// ProfileByID returns the decrypted profile for an identity
func (s *Store) ProfileByID(id int64) (*models.Profile, error) {
	row, err := s.db.GetProfileByUserID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	first, err := s.cipher.Decrypt(row.FirstName)
	if err != nil {
		return nil, fmt.Errorf("profile %d first name: %w", row.ID, err)
	}
	last, err := s.cipher.Decrypt(row.LastName)
	if err != nil {
		return nil, fmt.Errorf("profile %d last name: %w", row.ID, err)
	}
	return &models.Profile{
		ID:           row.ID,
		IdentityID:   row.UserID,
		FirstName:    first,
		LastName:     last,
		RegisteredAt: row.RegisteredAt,
	}, nil
}

// UpdateProfile replaces an identity's first and last name
func (s *Store) UpdateProfile(id int64, firstName, lastName string) error {
	encFirst, err := s.cipher.Encrypt(firstName)
	if err != nil {
		return fmt.Errorf("failed to encrypt first name: %w", err)
	}
	encLast, err := s.cipher.Encrypt(lastName)
	if err != nil {
		return fmt.Errorf("failed to encrypt last name: %w", err)
	}
	if err := s.db.UpdateProfile(id, encFirst, encLast); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.rebuild()
}
