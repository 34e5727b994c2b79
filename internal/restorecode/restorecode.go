// Package restorecode manages the one-time codes a super administrator
// issues to delegate a single backup restore to a system administrator.
package restorecode

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/urbanmobility/umob/internal/models"
	"github.com/urbanmobility/umob/internal/store"
)

// Validity is how long a generated code stays usable
const Validity = 24 * time.Hour

const codeBytes = 16

var (
	// ErrCodeInvalid is returned when no code with that value exists
	ErrCodeInvalid = errors.New("restore code is invalid")
	// ErrCodeNotAssigned is returned when the code belongs to a different admin
	ErrCodeNotAssigned = errors.New("restore code is not assigned to this administrator")
	// ErrCodeWrongStatus is returned when the code was already used, revoked, or expired
	ErrCodeWrongStatus = errors.New("restore code is no longer active")
	// ErrCodeExpired is returned when an active code has passed its expiry
	ErrCodeExpired = errors.New("restore code has expired")
)

// Authority issues, validates, and consumes restore codes
type Authority struct {
	db store.Store
}

// New creates a restore code authority
func New(db store.Store) *Authority {
	return &Authority{db: db}
}

// Generate issues a fresh code binding one backup file to one system
// administrator, valid for 24 hours
func (a *Authority) Generate(backupFilename string, adminID int64) (*models.RestoreCode, error) {
	buf := make([]byte, codeBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate restore code: %w", err)
	}

	now := time.Now()
	code := &models.RestoreCode{
		Code:           hex.EncodeToString(buf),
		BackupFilename: backupFilename,
		AdminID:        adminID,
		Status:         models.CodeActive,
		GeneratedAt:    now,
		ExpiresAt:      now.Add(Validity),
	}
	id, err := a.db.CreateRestoreCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to store restore code: %w", err)
	}
	code.ID = id
	return code, nil
}

// Validate checks a code value against an administrator. Checks run in
// a fixed order so the caller gets the most specific failure: unknown
// value, wrong holder, dead status, then expiry. An active code found
// past its expiry is moved to expired as a side effect, so the failure
// is durable.
func (a *Authority) Validate(codeValue string, adminID int64) (*models.RestoreCode, error) {
	code, err := a.db.GetRestoreCodeByValue(codeValue)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCodeInvalid
		}
		return nil, err
	}
	if code.AdminID != adminID {
		return nil, ErrCodeNotAssigned
	}
	if code.Status != models.CodeActive {
		return nil, ErrCodeWrongStatus
	}
	if time.Now().After(code.ExpiresAt) {
		if err := a.db.UpdateRestoreCodeStatus(code.ID, models.CodeExpired); err != nil {
			return nil, fmt.Errorf("failed to expire restore code: %w", err)
		}
		return nil, ErrCodeExpired
	}
	return code, nil
}

// Consume marks a validated code as used. The status transition is
// guarded on the code still being active, so a code can only ever be
// spent once.
func (a *Authority) Consume(id int64) error {
	if err := a.db.UpdateRestoreCodeStatus(id, models.CodeUsed); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCodeWrongStatus
		}
		return err
	}
	return nil
}

// RevokeAllFor marks every active code held by an administrator as
// revoked and returns how many were revoked. Called when the holder is
// deleted.
func (a *Authority) RevokeAllFor(adminID int64) (int, error) {
	codes, err := a.db.ListRestoreCodesByAdmin(adminID)
	if err != nil {
		return 0, err
	}
	revoked := 0
	for _, code := range codes {
		if code.Status != models.CodeActive {
			continue
		}
		if err := a.db.UpdateRestoreCodeStatus(code.ID, models.CodeRevoked); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return revoked, err
		}
		revoked++
	}
	return revoked, nil
}

// ListFor returns all codes issued to an administrator
func (a *Authority) ListFor(adminID int64) ([]models.RestoreCode, error) {
	return a.db.ListRestoreCodesByAdmin(adminID)
}
