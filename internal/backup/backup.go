// Package backup creates and restores zip snapshots of the database.
// Restores are guarded by a rollback copy so a bad archive cannot leave
// the system without a working database.
package backup

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/urbanmobility/umob/internal/config"
)

// ErrNoSuchBackup is returned when the named backup file doesn't exist
var ErrNoSuchBackup = errors.New("no such backup")

const filenameFormat = "20060102_150405"

// Manager creates, lists, and restores backups for one data directory
type Manager struct {
	cfg *config.Config
}

// New creates a backup manager
func New(cfg *config.Config) *Manager {
	return &Manager{cfg: cfg}
}

// Create writes a zip snapshot of the database into the backup
// directory and returns its filename
func (m *Manager) Create() (string, error) {
	if err := m.cfg.EnsureBackupDir(); err != nil {
		return "", err
	}

	filename := fmt.Sprintf("backup_%s.zip", time.Now().Format(filenameFormat))
	path := filepath.Join(m.cfg.BackupDir, filename)

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	if err := addFile(zw, m.cfg.DBPath, config.DBFileName); err != nil {
		zw.Close()
		os.Remove(path)
		return "", err
	}
	if err := zw.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to finalize backup: %w", err)
	}
	return filename, nil
}

// List returns the backup filenames in the backup directory, newest
// first
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.cfg.BackupDir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	names := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zip") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Exists reports whether a backup with the given filename is present
func (m *Manager) Exists(filename string) bool {
	_, err := os.Stat(filepath.Join(m.cfg.BackupDir, filename))
	return err == nil
}

// Restore replaces the live database with the contents of the named
// backup. The current database is first moved aside; if extraction
// fails it is moved back, so the caller never sees a half-restored
// state. The caller must have closed its database handle.
func (m *Manager) Restore(filename string) error {
	archivePath := filepath.Join(m.cfg.BackupDir, filename)
	if _, err := os.Stat(archivePath); err != nil {
		return ErrNoSuchBackup
	}

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer zr.Close()

	var dbEntry *zip.File
	for _, f := range zr.File {
		if f.Name == config.DBFileName {
			dbEntry = f
			break
		}
	}
	if dbEntry == nil {
		return fmt.Errorf("backup %s does not contain %s", filename, config.DBFileName)
	}

	rollback := m.cfg.DBPath + ".prerestore"
	hadDB := false
	if _, err := os.Stat(m.cfg.DBPath); err == nil {
		hadDB = true
		if err := os.Rename(m.cfg.DBPath, rollback); err != nil {
			return fmt.Errorf("failed to set aside current database: %w", err)
		}
	}

	if err := extractFile(dbEntry, m.cfg.DBPath); err != nil {
		if hadDB {
			os.Remove(m.cfg.DBPath)
			if rbErr := os.Rename(rollback, m.cfg.DBPath); rbErr != nil {
				return fmt.Errorf("restore failed (%v) and rollback failed: %w", err, rbErr)
			}
		}
		return fmt.Errorf("failed to restore backup: %w", err)
	}

	// Drop the stale sidecar files so SQLite doesn't replay old WAL
	// frames over the restored database
	os.Remove(m.cfg.DBPath + "-wal")
	os.Remove(m.cfg.DBPath + "-shm")
	if hadDB {
		os.Remove(rollback)
	}
	return nil
}

func addFile(zw *zip.Writer, path, name string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer in.Close()

	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s to backup: %w", name, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("failed to write %s to backup: %w", name, err)
	}
	return nil
}

func extractFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
