package audit

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/urbanmobility/umob/internal/crypto"
	"github.com/urbanmobility/umob/internal/store"
)

func setupTrail(t *testing.T) (*Trail, *store.SQLiteStore) {
	t.Helper()
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	key, _ := crypto.GenerateKey()
	cipher, err := crypto.NewCipher(key)
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}
	return New(db, cipher), db
}

var testAction = Action{
	Name:             "ADD_TRAVELLER",
	Success:          "registered a new traveller",
	Failure:          "failed to register a traveller",
	SuspiciousOnFail: false,
}

func TestRecordSuccess(t *testing.T) {
	trail, _ := setupTrail(t)

	trail.Record("fleet_admin", testAction, true, map[string]string{"traveller_id": "7"})

	entries, err := trail.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("List() = %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.EventType != "ADD_TRAVELLER_SUCCESS" {
		t.Errorf("EventType = %q, want ADD_TRAVELLER_SUCCESS", e.EventType)
	}
	if e.Username != "fleet_admin" {
		t.Errorf("Username = %q, want fleet_admin", e.Username)
	}
	if e.Description != "registered a new traveller" {
		t.Errorf("Description = %q", e.Description)
	}
	if !strings.Contains(e.Details, "traveller_id") {
		t.Errorf("Details = %q, want traveller_id present", e.Details)
	}
	if e.IsSuspicious {
		t.Error("success entry flagged suspicious")
	}
	if e.ID == "" {
		t.Error("entry has no id")
	}
}

func TestRecordFailure(t *testing.T) {
	trail, _ := setupTrail(t)

	action := testAction
	action.SuspiciousOnFail = true
	trail.Record("", action, false, nil)

	entries, _ := trail.List()
	if len(entries) != 1 {
		t.Fatalf("List() = %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.EventType != "ADD_TRAVELLER_FAIL" {
		t.Errorf("EventType = %q, want ADD_TRAVELLER_FAIL", e.EventType)
	}
	if e.Username != UnknownUser {
		t.Errorf("Username = %q, want %q", e.Username, UnknownUser)
	}
	if !e.IsSuspicious {
		t.Error("failure with SuspiciousOnFail not flagged")
	}
}

func TestEncryptedAtRest(t *testing.T) {
	trail, db := setupTrail(t)

	trail.Record("fleet_admin", testAction, true, map[string]string{"traveller_id": "7"})

	rows, err := db.ListLogs()
	if err != nil {
		t.Fatalf("ListLogs() error = %v", err)
	}
	if strings.Contains(string(rows[0].Description), "traveller") {
		t.Error("description stored in the clear")
	}
	if strings.Contains(string(rows[0].Details), "traveller_id") {
		t.Error("details stored in the clear")
	}
	// Attribution stays readable without the key
	if rows[0].Username != "fleet_admin" {
		t.Errorf("Username = %q, want cleartext fleet_admin", rows[0].Username)
	}
}

func TestUnreadSuspiciousFlow(t *testing.T) {
	trail, _ := setupTrail(t)

	trail.RecordSuspicious(UnknownUser, "LOGIN_MULTIPLE_FAILURES",
		"repeated failed login attempts for one username", nil)
	trail.Record("fleet_admin", testAction, true, nil)

	count, err := trail.CountUnreadSuspicious()
	if err != nil {
		t.Fatalf("CountUnreadSuspicious() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountUnreadSuspicious() = %d, want 1", count)
	}

	if err := trail.MarkAllRead(); err != nil {
		t.Fatalf("MarkAllRead() error = %v", err)
	}
	count, _ = trail.CountUnreadSuspicious()
	if count != 0 {
		t.Errorf("CountUnreadSuspicious() after mark = %d, want 0", count)
	}
}

func TestListUnreadableEntry(t *testing.T) {
	trail, db := setupTrail(t)

	// An entry whose ciphertext cannot be decrypted must not hide the trail
	db.AppendLog(&store.LogRow{
		ID: "bad-entry", Username: "fleet_admin", EventType: "X",
		Description: []byte("garbage, not ciphertext"),
	})
	trail.Record("fleet_admin", testAction, true, nil)

	entries, err := trail.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List() = %d entries, want 2", len(entries))
	}
	found := false
	for _, e := range entries {
		if e.ID == "bad-entry" && e.Description == "(unreadable entry)" {
			found = true
		}
	}
	if !found {
		t.Error("unreadable entry not returned with placeholder description")
	}
}
