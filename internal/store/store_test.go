package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/urbanmobility/umob/internal/models"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestUsers(t *testing.T) {
	s := setupTestStore(t)

	id, err := s.CreateUser(&UserRow{
		Username:     []byte("enc-username"),
		PasswordHash: []byte("enc-hash"),
		Role:         []byte("enc-role"),
		Active:       []byte("enc-active"),
	})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if id == 0 {
		t.Error("CreateUser() returned id 0")
	}

	users, err := s.ListUsers()
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("ListUsers() returned %d rows, want 1", len(users))
	}
	if string(users[0].Username) != "enc-username" {
		t.Errorf("Username = %q, want enc-username", users[0].Username)
	}

	if err := s.UpdateUserPassword(id, []byte("new-enc-hash")); err != nil {
		t.Fatalf("UpdateUserPassword() error = %v", err)
	}
	users, _ = s.ListUsers()
	if string(users[0].PasswordHash) != "new-enc-hash" {
		t.Error("UpdateUserPassword() did not persist")
	}

	if err := s.UpdateUserPassword(999, []byte("x")); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateUserPassword(999) error = %v, want ErrNotFound", err)
	}
}

func TestProfiles(t *testing.T) {
	s := setupTestStore(t)

	userID, _ := s.CreateUser(&UserRow{
		Username: []byte("u"), PasswordHash: []byte("p"),
		Role: []byte("r"), Active: []byte("a"),
	})

	_, err := s.CreateProfile(&ProfileRow{
		UserID:       userID,
		FirstName:    []byte("enc-first"),
		LastName:     []byte("enc-last"),
		RegisteredAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateProfile() error = %v", err)
	}

	p, err := s.GetProfileByUserID(userID)
	if err != nil {
		t.Fatalf("GetProfileByUserID() error = %v", err)
	}
	if string(p.FirstName) != "enc-first" {
		t.Errorf("FirstName = %q, want enc-first", p.FirstName)
	}

	if err := s.UpdateProfile(userID, []byte("enc-new"), []byte("enc-last")); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	p, _ = s.GetProfileByUserID(userID)
	if string(p.FirstName) != "enc-new" {
		t.Error("UpdateProfile() did not persist")
	}

	if _, err := s.GetProfileByUserID(999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProfileByUserID(999) error = %v, want ErrNotFound", err)
	}
}

func testTravellerRow(name string) *TravellerRow {
	return &TravellerRow{
		FirstName:      name,
		LastName:       "Tester",
		Birthday:       "1990-05-01",
		Gender:         "female",
		StreetName:     []byte("enc-street"),
		HouseNumber:    []byte("enc-house"),
		ZipCode:        []byte("enc-zip"),
		City:           []byte("enc-city"),
		Email:          []byte("enc-email-" + name),
		MobilePhone:    []byte("enc-phone"),
		DrivingLicense: "T12345678",
		RegisteredAt:   time.Now(),
	}
}

func TestTravellers(t *testing.T) {
	s := setupTestStore(t)

	id, err := s.CreateTraveller(testTravellerRow("Emma"))
	if err != nil {
		t.Fatalf("CreateTraveller() error = %v", err)
	}
	if _, err := s.CreateTraveller(testTravellerRow("Lucas")); err != nil {
		t.Fatalf("CreateTraveller() error = %v", err)
	}

	got, err := s.GetTraveller(id)
	if err != nil {
		t.Fatalf("GetTraveller() error = %v", err)
	}
	if got.FirstName != "Emma" {
		t.Errorf("FirstName = %q, want Emma", got.FirstName)
	}

	// Search matches cleartext fields case-insensitively
	hits, err := s.SearchTravellers("emm")
	if err != nil {
		t.Fatalf("SearchTravellers() error = %v", err)
	}
	if len(hits) != 1 || hits[0].FirstName != "Emma" {
		t.Errorf("SearchTravellers(emm) = %d hits, want 1 (Emma)", len(hits))
	}

	got.FirstName = "Emmeline"
	if err := s.UpdateTraveller(got); err != nil {
		t.Fatalf("UpdateTraveller() error = %v", err)
	}
	updated, _ := s.GetTraveller(id)
	if updated.FirstName != "Emmeline" {
		t.Error("UpdateTraveller() did not persist")
	}

	if err := s.DeleteTraveller(id); err != nil {
		t.Fatalf("DeleteTraveller() error = %v", err)
	}
	if _, err := s.GetTraveller(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTraveller() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteTraveller(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteTraveller() twice error = %v, want ErrNotFound", err)
	}
}

func testScooter(serial string) *models.Scooter {
	return &models.Scooter{
		Brand:        "Segway",
		Model:        "Ninebot Max",
		SerialNumber: serial,
		TopSpeedKMH:  25,
		BatteryWh:    551,
		SoCPercent:   80,
		TargetSoCMin: 20,
		TargetSoCMax: 90,
		Latitude:     51.92250,
		Longitude:    4.47917,
		MileageKM:    100,
		InServiceAt:  time.Now(),
	}
}

func TestScooters(t *testing.T) {
	s := setupTestStore(t)

	id, err := s.CreateScooter(testScooter("SGW00012345"))
	if err != nil {
		t.Fatalf("CreateScooter() error = %v", err)
	}

	// Serial numbers are unique
	if _, err := s.CreateScooter(testScooter("SGW00012345")); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("CreateScooter() duplicate serial error = %v, want ErrAlreadyExists", err)
	}

	got, err := s.GetScooter(id)
	if err != nil {
		t.Fatalf("GetScooter() error = %v", err)
	}
	if got.SerialNumber != "SGW00012345" {
		t.Errorf("SerialNumber = %q, want SGW00012345", got.SerialNumber)
	}

	hits, err := s.SearchScooters("ninebot")
	if err != nil {
		t.Fatalf("SearchScooters() error = %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("SearchScooters(ninebot) = %d hits, want 1", len(hits))
	}

	got.SoCPercent = 55
	got.OutOfService = true
	if err := s.UpdateScooter(got); err != nil {
		t.Fatalf("UpdateScooter() error = %v", err)
	}
	updated, _ := s.GetScooter(id)
	if updated.SoCPercent != 55 || !updated.OutOfService {
		t.Error("UpdateScooter() did not persist")
	}

	if err := s.DeleteScooter(id); err != nil {
		t.Fatalf("DeleteScooter() error = %v", err)
	}
	if _, err := s.GetScooter(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetScooter() after delete error = %v, want ErrNotFound", err)
	}
}

func TestRestoreCodeStatusGuard(t *testing.T) {
	s := setupTestStore(t)

	adminID, _ := s.CreateUser(&UserRow{
		Username: []byte("u"), PasswordHash: []byte("p"),
		Role: []byte("r"), Active: []byte("a"),
	})
	code := &models.RestoreCode{
		Code:           "deadbeef",
		BackupFilename: "backup_x.zip",
		AdminID:        adminID,
		Status:         models.CodeActive,
		GeneratedAt:    time.Now(),
		ExpiresAt:      time.Now().Add(time.Hour),
	}
	id, err := s.CreateRestoreCode(code)
	if err != nil {
		t.Fatalf("CreateRestoreCode() error = %v", err)
	}

	if err := s.UpdateRestoreCodeStatus(id, models.CodeUsed); err != nil {
		t.Fatalf("UpdateRestoreCodeStatus() error = %v", err)
	}

	// A second transition must fail: the guard only moves active codes
	if err := s.UpdateRestoreCodeStatus(id, models.CodeRevoked); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateRestoreCodeStatus() on used code error = %v, want ErrNotFound", err)
	}
	got, _ := s.GetRestoreCodeByValue("deadbeef")
	if got.Status != models.CodeUsed {
		t.Errorf("Status = %v, want used", got.Status)
	}
}

func TestLogs(t *testing.T) {
	s := setupTestStore(t)

	rows := []*LogRow{
		{ID: "id-1", Timestamp: time.Now(), Username: "alice", EventType: "LOGIN_SUCCESS",
			Description: []byte("enc-1")},
		{ID: "id-2", Timestamp: time.Now(), Username: "(unknown)", EventType: "LOGIN_FAIL",
			Description: []byte("enc-2"), IsSuspicious: true},
	}
	for _, row := range rows {
		if err := s.AppendLog(row); err != nil {
			t.Fatalf("AppendLog() error = %v", err)
		}
	}

	all, err := s.ListLogs()
	if err != nil {
		t.Fatalf("ListLogs() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListLogs() = %d rows, want 2", len(all))
	}

	count, err := s.CountUnreadSuspicious()
	if err != nil {
		t.Fatalf("CountUnreadSuspicious() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountUnreadSuspicious() = %d, want 1", count)
	}

	if err := s.MarkAllLogsRead(); err != nil {
		t.Fatalf("MarkAllLogsRead() error = %v", err)
	}
	count, _ = s.CountUnreadSuspicious()
	if count != 0 {
		t.Errorf("CountUnreadSuspicious() after mark = %d, want 0", count)
	}
}

func TestConfig(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.GetConfig("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetConfig(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.SetConfig("failed_logins:bob", "2"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	v, err := s.GetConfig("failed_logins:bob")
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if v != "2" {
		t.Errorf("GetConfig() = %q, want 2", v)
	}

	// SetConfig upserts
	if err := s.SetConfig("failed_logins:bob", "3"); err != nil {
		t.Fatalf("SetConfig() upsert error = %v", err)
	}
	v, _ = s.GetConfig("failed_logins:bob")
	if v != "3" {
		t.Errorf("GetConfig() after upsert = %q, want 3", v)
	}

	if err := s.DeleteConfig("failed_logins:bob"); err != nil {
		t.Fatalf("DeleteConfig() error = %v", err)
	}
	if _, err := s.GetConfig("failed_logins:bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetConfig() after delete error = %v, want ErrNotFound", err)
	}
}

func TestCheckpointFlushesWAL(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer s.Close()

	if err := s.SetConfig("marker", "present"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	if err := s.Checkpoint(); err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}

	// After a TRUNCATE checkpoint the committed write lives in the main
	// file, so a copy of just that file carries it
	copyPath := filepath.Join(t.TempDir(), "copy.db")
	data, err := os.ReadFile(dbPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if err := os.WriteFile(copyPath, data, 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	copied, err := NewSQLiteStore(copyPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore(copy) error = %v", err)
	}
	defer copied.Close()
	v, err := copied.GetConfig("marker")
	if err != nil {
		t.Fatalf("GetConfig() on copied file error = %v", err)
	}
	if v != "present" {
		t.Errorf("GetConfig() on copied file = %q, want present", v)
	}
}
