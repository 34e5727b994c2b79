package service

import (
	"fmt"
	"strconv"

	"github.com/urbanmobility/umob/internal/audit"
	"github.com/urbanmobility/umob/internal/authz"
	"github.com/urbanmobility/umob/internal/backup"
	"github.com/urbanmobility/umob/internal/models"
	"github.com/urbanmobility/umob/internal/restorecode"
)

// CreateBackup writes a zip snapshot of the database
func (s *Service) CreateBackup(actor Actor) (string, error) {
	if err := s.authorize(actor, authz.CapCreateBackup); err != nil {
		return "", err
	}
	action := audit.Action{
		Name:    "CREATE_BACKUP",
		Success: "created a backup",
		Failure: "failed to create a backup",
	}
	// Flush the WAL first so the snapshot holds every committed write
	if err := s.db.Checkpoint(); err != nil {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"reason": err.Error()})
		return "", err
	}
	filename, err := s.backups.Create()
	if err != nil {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"reason": err.Error()})
		return "", err
	}
	s.trail.Record(actor.Username, action, true,
		map[string]string{"backup": filename})
	return filename, nil
}

// ListBackups returns the available backup filenames, newest first
func (s *Service) ListBackups(actor Actor) ([]string, error) {
	if err := s.authorize(actor, authz.CapCreateBackup); err != nil {
		return nil, err
	}
	return s.backups.List()
}

// GenerateRestoreCode issues a one-time code letting one system
// administrator restore one specific backup
func (s *Service) GenerateRestoreCode(actor Actor, backupFilename string, adminID int64) (*models.RestoreCode, error) {
	if err := s.authorize(actor, authz.CapGenerateRestoreCode); err != nil {
		return nil, err
	}
	action := audit.Action{
		Name:    "GENERATE_RESTORE_CODE",
		Success: "generated a restore code",
		Failure: "failed to generate a restore code",
	}
	if !s.backups.Exists(backupFilename) {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"backup": backupFilename, "reason": "no such backup"})
		return nil, backup.ErrNoSuchBackup
	}
	admin, err := s.targetWithRole(adminID, models.RoleSystemAdmin)
	if err != nil {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"backup": backupFilename, "reason": "no such system administrator"})
		return nil, err
	}
	code, err := s.codes.Generate(backupFilename, adminID)
	if err != nil {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"backup": backupFilename, "reason": err.Error()})
		return nil, err
	}
	s.trail.Record(actor.Username, action, true, map[string]string{
		"backup":  backupFilename,
		"admin":   admin.Username,
		"expires": code.ExpiresAt.Format("2006-01-02 15:04"),
	})
	return code, nil
}

// RevokeRestoreCodes revokes every active code held by an administrator
func (s *Service) RevokeRestoreCodes(actor Actor, adminID int64) (int, error) {
	if err := s.authorize(actor, authz.CapGenerateRestoreCode); err != nil {
		return 0, err
	}
	action := audit.Action{
		Name:    "REVOKE_RESTORE_CODES",
		Success: "revoked restore codes",
		Failure: "failed to revoke restore codes",
	}
	admin, err := s.targetWithRole(adminID, models.RoleSystemAdmin)
	if err != nil {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"reason": "no such system administrator"})
		return 0, err
	}
	revoked, err := s.codes.RevokeAllFor(adminID)
	if err != nil {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"admin": admin.Username, "reason": err.Error()})
		return revoked, err
	}
	s.trail.Record(actor.Username, action, true, map[string]string{
		"admin":   admin.Username,
		"revoked": strconv.Itoa(revoked),
	})
	return revoked, nil
}

// RestoreBackup replaces the live database from a backup. A super
// administrator restores any backup directly; a system administrator
// must present an active restore code, which is spent even if the
// restore itself then fails.
func (s *Service) RestoreBackup(actor Actor, filename, codeValue string) error {
	if err := s.authorize(actor, authz.CapRestoreBackup); err != nil {
		return err
	}
	action := audit.Action{
		Name:             "RESTORE_BACKUP",
		Success:          "restored the database from a backup",
		Failure:          "failed to restore a backup",
		SuspiciousOnFail: true,
	}

	if actor.Role != models.RoleSuperAdmin {
		code, err := s.codes.Validate(codeValue, actor.ID)
		if err != nil {
			s.trail.Record(actor.Username, action, false,
				map[string]string{"reason": err.Error()})
			return err
		}
		// The code binds the admin to one specific backup file
		filename = code.BackupFilename
		// The code row lives inside the database file about to be
		// replaced; consuming it after the swap would write into the
		// restored state and revive the code. So it is spent first,
		// even though the restore itself may still fail.
		if err := s.codes.Consume(code.ID); err != nil {
			s.trail.Record(actor.Username, action, false,
				map[string]string{"backup": filename, "reason": err.Error()})
			return err
		}
	}

	if !s.backups.Exists(filename) {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"backup": filename, "reason": "no such backup"})
		return backup.ErrNoSuchBackup
	}

	// The database handle must be released before the file is swapped
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database before restore: %w", err)
	}
	restoreErr := s.backups.Restore(filename)
	if err := s.reopen(); err != nil {
		return err
	}
	if restoreErr != nil {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"backup": filename, "reason": restoreErr.Error()})
		return restoreErr
	}

	// Sessions minted against the old database state are void
	s.cfg.DeleteSession()
	s.trail.Record(actor.Username, action, true,
		map[string]string{"backup": filename})
	return nil
}

// RestoreCodeValidity re-exports the code lifetime for display
const RestoreCodeValidity = restorecode.Validity
