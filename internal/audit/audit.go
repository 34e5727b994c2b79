// Package audit writes the append-only, encrypted activity trail.
// Every privileged operation records exactly one entry, success or
// failure; a failed audit write is reported on stderr but never changes
// the business outcome it describes.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/urbanmobility/umob/internal/crypto"
	"github.com/urbanmobility/umob/internal/models"
	"github.com/urbanmobility/umob/internal/store"
)

// UnknownUser is recorded when no authenticated username is available,
// e.g. failed logins with an unrecognized name
const UnknownUser = "(unknown)"

// Action describes how one operation is logged. Success and Failure are
// the human-readable descriptions for the two outcomes; the event type
// is derived from Name with a _SUCCESS or _FAIL suffix.
type Action struct {
	Name             string
	Success          string
	Failure          string
	SuspiciousOnFail bool
}

// Trail is the audit log writer/reader bound to one store and cipher
type Trail struct {
	db     store.Store
	cipher *crypto.Cipher
}

// New creates an audit trail
func New(db store.Store, cipher *crypto.Cipher) *Trail {
	return &Trail{db: db, cipher: cipher}
}

// Record appends one entry for an operation outcome. details carries
// structured context (ids, queries, reasons) and is stored as encrypted
// JSON. Write failures go to stderr only.
func (t *Trail) Record(username string, action Action, success bool, details map[string]string) {
	if username == "" {
		username = UnknownUser
	}

	eventType := action.Name + "_SUCCESS"
	description := action.Success
	suspicious := false
	if !success {
		eventType = action.Name + "_FAIL"
		description = action.Failure
		suspicious = action.SuspiciousOnFail
	}

	t.append(username, eventType, description, details, suspicious)
}

// RecordSuspicious appends an explicitly suspicious entry outside the
// success/failure pairing, e.g. repeated failed logins
func (t *Trail) RecordSuspicious(username, eventType, description string, details map[string]string) {
	if username == "" {
		username = UnknownUser
	}
	t.append(username, eventType, description, details, true)
}

func (t *Trail) append(username, eventType, description string, details map[string]string, suspicious bool) {
	encDescription, err := t.cipher.Encrypt(description)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: audit write failed: %v\n", err)
		return
	}

	var encDetails []byte
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: audit write failed: %v\n", err)
			return
		}
		encDetails, err = t.cipher.Encrypt(string(raw))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: audit write failed: %v\n", err)
			return
		}
	}

	row := &store.LogRow{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		Username:     username,
		EventType:    eventType,
		Description:  encDescription,
		Details:      encDetails,
		IsSuspicious: suspicious,
	}
	if err := t.db.AppendLog(row); err != nil {
		fmt.Fprintf(os.Stderr, "warning: audit write failed: %v\n", err)
	}
}

// List returns all entries decrypted, newest first. An entry whose
// ciphertext no longer decrypts is returned with a placeholder
// description rather than hiding the rest of the trail.
func (t *Trail) List() ([]models.LogEntry, error) {
	rows, err := t.db.ListLogs()
	if err != nil {
		return nil, fmt.Errorf("failed to read logs: %w", err)
	}

	entries := make([]models.LogEntry, 0, len(rows))
	for _, row := range rows {
		entry := models.LogEntry{
			ID:           row.ID,
			Timestamp:    row.Timestamp,
			Username:     row.Username,
			EventType:    row.EventType,
			IsSuspicious: row.IsSuspicious,
			IsRead:       row.IsRead,
		}
		if desc, err := t.cipher.Decrypt(row.Description); err == nil {
			entry.Description = desc
		} else {
			entry.Description = "(unreadable entry)"
		}
		if len(row.Details) > 0 {
			if det, err := t.cipher.Decrypt(row.Details); err == nil {
				entry.Details = det
			}
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}

// CountUnreadSuspicious returns the number of suspicious entries not
// yet reviewed, for the post-login alert
func (t *Trail) CountUnreadSuspicious() (int, error) {
	return t.db.CountUnreadSuspicious()
}

// MarkAllRead marks every entry reviewed; called after a log viewing
func (t *Trail) MarkAllRead() error {
	return t.db.MarkAllLogsRead()
}
