package service

import (
	"errors"
	"testing"

	"github.com/urbanmobility/umob/internal/config"
	"github.com/urbanmobility/umob/internal/models"
)

// newTestService initializes a fresh data directory and logs in the
// seeded super administrator
func newTestService(t *testing.T) (*Service, Actor) {
	t.Helper()
	cfg := config.NewWithDataDir(t.TempDir())

	svc, seeded, err := Setup(cfg)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !seeded {
		t.Fatal("Setup() on a fresh directory did not seed the bootstrap account")
	}
	t.Cleanup(func() {
		svc.Close()
	})

	super, err := svc.Login(SeedUsername, SeedPassword)
	if err != nil {
		t.Fatalf("Login() as bootstrap account error = %v", err)
	}
	return svc, super
}

func addAdmin(t *testing.T, svc *Service, super Actor) Actor {
	t.Helper()
	id, err := svc.AddSystemAdmin(super, "fleet_admin", "FleetAdmin_25!", "Frida", "Jansen")
	if err != nil {
		t.Fatalf("AddSystemAdmin() error = %v", err)
	}
	return Actor{ID: id, Username: "fleet_admin", Role: models.RoleSystemAdmin}
}

func addEngineer(t *testing.T, svc *Service, admin Actor) Actor {
	t.Helper()
	id, err := svc.AddServiceEngineer(admin, "mech_davis", "WrenchTime_99!", "Sam", "Davis")
	if err != nil {
		t.Fatalf("AddServiceEngineer() error = %v", err)
	}
	return Actor{ID: id, Username: "mech_davis", Role: models.RoleServiceEngineer}
}

func testTraveller() *models.Traveller {
	return &models.Traveller{
		FirstName:      "Emma",
		LastName:       "de Vries",
		Birthday:       "1994-03-18",
		Gender:         "female",
		StreetName:     "Coolsingel",
		HouseNumber:    "42",
		ZipCode:        "3011AD",
		City:           "Rotterdam",
		Email:          "emma.devries@example.com",
		MobilePhone:    "+31-6-12345678",
		DrivingLicense: "DV1234567",
	}
}

func testScooter() *models.Scooter {
	return &models.Scooter{
		Brand:        "Segway",
		Model:        "Ninebot Max",
		SerialNumber: "SGW00012345",
		TopSpeedKMH:  25,
		BatteryWh:    551,
		SoCPercent:   80,
		TargetSoCMin: 20,
		TargetSoCMax: 90,
		Latitude:     51.92250,
		Longitude:    4.47917,
		MileageKM:    100,
	}
}

func TestSetupIsIdempotent(t *testing.T) {
	cfg := config.NewWithDataDir(t.TempDir())

	svc, seeded, err := Setup(cfg)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !seeded {
		t.Error("first Setup() did not seed")
	}
	svc.Close()

	svc, seeded, err = Setup(cfg)
	if err != nil {
		t.Fatalf("second Setup() error = %v", err)
	}
	defer svc.Close()
	if seeded {
		t.Error("second Setup() seeded again")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Login(SeedUsername, "wrong password 1!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login("nobody_here", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() unknown user error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginHostileInputBlocked(t *testing.T) {
	svc, super := newTestService(t)

	if _, err := svc.Login("admin' OR '1'='1", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() with injection error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login("user\x00name", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() with NUL byte error = %v, want ErrInvalidCredentials", err)
	}

	entries, err := svc.ViewLogs(super)
	if err != nil {
		t.Fatalf("ViewLogs() error = %v", err)
	}
	blocked := 0
	for _, e := range entries {
		if e.EventType == "LOGIN_BLOCKED" && e.IsSuspicious {
			blocked++
		}
	}
	if blocked != 2 {
		t.Errorf("LOGIN_BLOCKED suspicious entries = %d, want 2", blocked)
	}
}

func TestRepeatedFailuresFlagged(t *testing.T) {
	svc, super := newTestService(t)

	for i := 0; i < 3; i++ {
		svc.Login(SeedUsername, "wrong password 1!")
	}

	entries, err := svc.ViewLogs(super)
	if err != nil {
		t.Fatalf("ViewLogs() error = %v", err)
	}
	found := false
	for _, e := range entries {
		if e.EventType == "LOGIN_MULTIPLE_FAILURES" && e.IsSuspicious {
			found = true
		}
	}
	if !found {
		t.Error("no LOGIN_MULTIPLE_FAILURES entry after three failed logins")
	}

	// A successful login resets the counter
	if _, err := svc.Login(SeedUsername, SeedPassword); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := svc.db.GetConfig("failed_logins:" + SeedUsername); err == nil {
		t.Error("failed login counter not cleared after success")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	svc, super := newTestService(t)

	actor, err := svc.CurrentActor()
	if err != nil {
		t.Fatalf("CurrentActor() error = %v", err)
	}
	if actor.ID != super.ID || actor.Role != models.RoleSuperAdmin {
		t.Errorf("CurrentActor() = %+v, want the logged-in super admin", actor)
	}

	if err := svc.Logout(actor); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := svc.CurrentActor(); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("CurrentActor() after logout error = %v, want ErrNotLoggedIn", err)
	}
}

func TestPermissionDenials(t *testing.T) {
	svc, super := newTestService(t)
	admin := addAdmin(t, svc, super)
	engineer := addEngineer(t, svc, admin)

	if _, err := svc.AddTraveller(engineer, testTraveller()); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("AddTraveller() as engineer error = %v, want ErrPermissionDenied", err)
	}
	if _, err := svc.AddSystemAdmin(admin, "another_admin", "Another_Adm1n!", "A", "B"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("AddSystemAdmin() as admin error = %v, want ErrPermissionDenied", err)
	}
	if _, err := svc.ViewLogs(engineer); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("ViewLogs() as engineer error = %v, want ErrPermissionDenied", err)
	}
	if _, err := svc.GenerateRestoreCode(admin, "backup_x.zip", admin.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("GenerateRestoreCode() as admin error = %v, want ErrPermissionDenied", err)
	}

	// Denied attempts land in the trail as suspicious
	entries, _ := svc.ViewLogs(super)
	denied := 0
	for _, e := range entries {
		if e.EventType == "UNAUTHORIZED_ACCESS" && e.IsSuspicious {
			denied++
		}
	}
	if denied != 4 {
		t.Errorf("UNAUTHORIZED_ACCESS entries = %d, want 4", denied)
	}
}

func TestTravellerLifecycle(t *testing.T) {
	svc, super := newTestService(t)
	admin := addAdmin(t, svc, super)

	id, err := svc.AddTraveller(admin, testTraveller())
	if err != nil {
		t.Fatalf("AddTraveller() error = %v", err)
	}

	// Duplicate email is refused, case-insensitively
	dup := testTraveller()
	dup.Email = "EMMA.DEVRIES@example.com"
	if _, err := svc.AddTraveller(admin, dup); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("AddTraveller() duplicate email error = %v, want ErrDuplicateEmail", err)
	}

	got, err := svc.GetTraveller(admin, id)
	if err != nil {
		t.Fatalf("GetTraveller() error = %v", err)
	}
	if got.Email != "emma.devries@example.com" || got.City != "Rotterdam" {
		t.Errorf("GetTraveller() = %+v, want decrypted fields", got)
	}

	hits, err := svc.SearchTravellers(admin, "vries")
	if err != nil {
		t.Fatalf("SearchTravellers() error = %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("SearchTravellers() = %d hits, want 1", len(hits))
	}

	got.City = "Delft"
	got.ZipCode = "2611AB"
	if err := svc.UpdateTraveller(admin, got); err != nil {
		t.Fatalf("UpdateTraveller() error = %v", err)
	}
	updated, _ := svc.GetTraveller(admin, id)
	if updated.City != "Delft" {
		t.Errorf("City after update = %q, want Delft", updated.City)
	}

	if err := svc.DeleteTraveller(admin, id); err != nil {
		t.Fatalf("DeleteTraveller() error = %v", err)
	}
	if _, err := svc.GetTraveller(admin, id); !errors.Is(err, ErrNoSuchTraveller) {
		t.Errorf("GetTraveller() after delete error = %v, want ErrNoSuchTraveller", err)
	}
}

func TestTravellerValidation(t *testing.T) {
	svc, super := newTestService(t)
	admin := addAdmin(t, svc, super)

	bad := testTraveller()
	bad.City = "Paris"
	if _, err := svc.AddTraveller(admin, bad); !errors.Is(err, ErrValidation) {
		t.Errorf("AddTraveller() unknown city error = %v, want ErrValidation", err)
	}

	bad = testTraveller()
	bad.MobilePhone = "0612345678"
	if _, err := svc.AddTraveller(admin, bad); !errors.Is(err, ErrValidation) {
		t.Errorf("AddTraveller() bad phone error = %v, want ErrValidation", err)
	}
}

func TestScooterLifecycle(t *testing.T) {
	svc, super := newTestService(t)
	admin := addAdmin(t, svc, super)
	engineer := addEngineer(t, svc, admin)

	id, err := svc.AddScooter(admin, testScooter())
	if err != nil {
		t.Fatalf("AddScooter() error = %v", err)
	}
	if _, err := svc.AddScooter(admin, testScooter()); !errors.Is(err, ErrDuplicateSerial) {
		t.Errorf("AddScooter() duplicate serial error = %v, want ErrDuplicateSerial", err)
	}

	// Engineers patch maintenance fields
	soc := 55.0
	oos := true
	if err := svc.UpdateScooterStatus(engineer, id, ScooterPatch{SoCPercent: &soc, OutOfService: &oos}); err != nil {
		t.Fatalf("UpdateScooterStatus() error = %v", err)
	}
	got, err := svc.GetScooter(engineer, id)
	if err != nil {
		t.Fatalf("GetScooter() error = %v", err)
	}
	if got.SoCPercent != 55 || !got.OutOfService {
		t.Errorf("scooter after patch = %+v, want SoC 55 and out of service", got)
	}

	// But engineers may not touch identity fields
	got.Brand = "Bogus"
	if err := svc.UpdateScooterFull(engineer, got); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("UpdateScooterFull() as engineer error = %v, want ErrPermissionDenied", err)
	}

	// Patch validation still applies
	badSoC := 140.0
	if err := svc.UpdateScooterStatus(engineer, id, ScooterPatch{SoCPercent: &badSoC}); !errors.Is(err, ErrValidation) {
		t.Errorf("UpdateScooterStatus() bad SoC error = %v, want ErrValidation", err)
	}

	if err := svc.DeleteScooter(admin, id); err != nil {
		t.Fatalf("DeleteScooter() error = %v", err)
	}
	if _, err := svc.GetScooter(admin, id); !errors.Is(err, ErrNoSuchScooter) {
		t.Errorf("GetScooter() after delete error = %v, want ErrNoSuchScooter", err)
	}
}

func TestUserManagement(t *testing.T) {
	svc, super := newTestService(t)
	admin := addAdmin(t, svc, super)
	engineer := addEngineer(t, svc, admin)

	// Weak passwords are refused before any write
	if _, err := svc.AddServiceEngineer(admin, "mech_patel", "weak", "Nina", "Patel"); !errors.Is(err, ErrValidation) {
		t.Errorf("AddServiceEngineer() weak password error = %v, want ErrValidation", err)
	}

	// Role scoping: an engineer-targeted operation can't touch an admin
	if err := svc.DeleteServiceEngineer(admin, admin.ID); !errors.Is(err, ErrNoSuchUser) {
		t.Errorf("DeleteServiceEngineer() on admin error = %v, want ErrNoSuchUser", err)
	}

	if err := svc.ResetEngineerPassword(admin, engineer.ID, "Fresh_Passw0rd!"); err != nil {
		t.Fatalf("ResetEngineerPassword() error = %v", err)
	}
	if _, err := svc.Login("mech_davis", "Fresh_Passw0rd!"); err != nil {
		t.Errorf("Login() with reset password error = %v", err)
	}

	if err := svc.DeleteServiceEngineer(admin, engineer.ID); err != nil {
		t.Fatalf("DeleteServiceEngineer() error = %v", err)
	}
	if _, err := svc.Login("mech_davis", "Fresh_Passw0rd!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() as deactivated engineer error = %v, want ErrInvalidCredentials", err)
	}

	// The super admin cannot delete itself
	if err := svc.DeleteSystemAdmin(super, super.ID); err == nil {
		t.Error("DeleteSystemAdmin() on self expected an error")
	}
}

func TestChangeOwnPassword(t *testing.T) {
	svc, super := newTestService(t)

	if err := svc.ChangeOwnPassword(super, "wrong current", "New_Passw0rd_1!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("ChangeOwnPassword() wrong current error = %v, want ErrInvalidCredentials", err)
	}
	if err := svc.ChangeOwnPassword(super, SeedPassword, "weak"); !errors.Is(err, ErrValidation) {
		t.Errorf("ChangeOwnPassword() weak new error = %v, want ErrValidation", err)
	}
	if err := svc.ChangeOwnPassword(super, SeedPassword, "New_Passw0rd_1!"); err != nil {
		t.Fatalf("ChangeOwnPassword() error = %v", err)
	}
	if _, err := svc.Login(SeedUsername, "New_Passw0rd_1!"); err != nil {
		t.Errorf("Login() with new password error = %v", err)
	}
}

func TestBackupRestoreWithCode(t *testing.T) {
	svc, super := newTestService(t)
	admin := addAdmin(t, svc, super)

	filename, err := svc.CreateBackup(super)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}

	// Data added after the snapshot must vanish on restore
	travellerID, err := svc.AddTraveller(super, testTraveller())
	if err != nil {
		t.Fatalf("AddTraveller() error = %v", err)
	}

	code, err := svc.GenerateRestoreCode(super, filename, admin.ID)
	if err != nil {
		t.Fatalf("GenerateRestoreCode() error = %v", err)
	}

	if err := svc.RestoreBackup(admin, "", code.Code); err != nil {
		t.Fatalf("RestoreBackup() error = %v", err)
	}

	// Re-authenticate against the restored database
	super2, err := svc.Login(SeedUsername, SeedPassword)
	if err != nil {
		t.Fatalf("Login() after restore error = %v", err)
	}
	if _, err := svc.GetTraveller(super2, travellerID); !errors.Is(err, ErrNoSuchTraveller) {
		t.Errorf("GetTraveller() after restore error = %v, want ErrNoSuchTraveller", err)
	}
}

func TestBackupIncludesRecentWrites(t *testing.T) {
	svc, super := newTestService(t)

	// Committed but not yet checkpointed writes sit in the WAL sidecar;
	// the snapshot must contain them even with the handle still open
	travellerID, err := svc.AddTraveller(super, testTraveller())
	if err != nil {
		t.Fatalf("AddTraveller() error = %v", err)
	}
	filename, err := svc.CreateBackup(super)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	if err := svc.DeleteTraveller(super, travellerID); err != nil {
		t.Fatalf("DeleteTraveller() error = %v", err)
	}

	if err := svc.RestoreBackup(super, filename, ""); err != nil {
		t.Fatalf("RestoreBackup() error = %v", err)
	}
	super2, err := svc.Login(SeedUsername, SeedPassword)
	if err != nil {
		t.Fatalf("Login() after restore error = %v", err)
	}
	got, err := svc.GetTraveller(super2, travellerID)
	if err != nil {
		t.Fatalf("GetTraveller() after restore error = %v, want the pre-backup record", err)
	}
	if got.Email != "emma.devries@example.com" {
		t.Errorf("restored traveller email = %q", got.Email)
	}
}

func TestFailurePathsAreAudited(t *testing.T) {
	svc, super := newTestService(t)
	admin := addAdmin(t, svc, super)

	if _, err := svc.GenerateRestoreCode(super, "backup_missing.zip", admin.ID); err == nil {
		t.Fatal("GenerateRestoreCode() with missing backup expected an error")
	}
	if err := svc.ResetEngineerPassword(admin, 999, "Fresh_Passw0rd!"); !errors.Is(err, ErrNoSuchUser) {
		t.Fatalf("ResetEngineerPassword() unknown target error = %v, want ErrNoSuchUser", err)
	}
	if err := svc.DeleteServiceEngineer(admin, 999); !errors.Is(err, ErrNoSuchUser) {
		t.Fatalf("DeleteServiceEngineer() unknown target error = %v, want ErrNoSuchUser", err)
	}

	entries, err := svc.ViewLogs(super)
	if err != nil {
		t.Fatalf("ViewLogs() error = %v", err)
	}
	want := map[string]bool{
		"GENERATE_RESTORE_CODE_FAIL":   false,
		"RESET_ENGINEER_PASSWORD_FAIL": false,
		"DELETE_SERVICE_ENGINEER_FAIL": false,
	}
	for _, e := range entries {
		if _, ok := want[e.EventType]; ok {
			want[e.EventType] = true
			if e.EventType == "RESET_ENGINEER_PASSWORD_FAIL" && !e.IsSuspicious {
				t.Error("failed password reset not flagged suspicious")
			}
		}
	}
	for eventType, seen := range want {
		if !seen {
			t.Errorf("no %s entry for the refused operation", eventType)
		}
	}
}

func TestRestoreRequiresValidCode(t *testing.T) {
	svc, super := newTestService(t)
	admin := addAdmin(t, svc, super)

	if _, err := svc.CreateBackup(super); err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	if err := svc.RestoreBackup(admin, "", "bogus-code"); err == nil {
		t.Error("RestoreBackup() with bogus code expected an error")
	}
}

func TestDeleteAdminRevokesCodes(t *testing.T) {
	svc, super := newTestService(t)
	admin := addAdmin(t, svc, super)

	filename, err := svc.CreateBackup(super)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	code, err := svc.GenerateRestoreCode(super, filename, admin.ID)
	if err != nil {
		t.Fatalf("GenerateRestoreCode() error = %v", err)
	}

	if err := svc.DeleteSystemAdmin(super, admin.ID); err != nil {
		t.Fatalf("DeleteSystemAdmin() error = %v", err)
	}

	codes, err := svc.codes.ListFor(admin.ID)
	if err != nil {
		t.Fatalf("ListFor() error = %v", err)
	}
	if len(codes) != 1 || codes[0].Status != models.CodeRevoked {
		t.Errorf("codes after admin deletion = %+v, want one revoked (%s)", codes, code.Code)
	}
}

func TestAuditCoversOperations(t *testing.T) {
	svc, super := newTestService(t)
	admin := addAdmin(t, svc, super)

	id, _ := svc.AddTraveller(admin, testTraveller())
	svc.DeleteTraveller(admin, id)

	entries, err := svc.ViewLogs(super)
	if err != nil {
		t.Fatalf("ViewLogs() error = %v", err)
	}

	want := map[string]bool{
		"LOGIN_SUCCESS":            false,
		"ADD_SYSTEM_ADMIN_SUCCESS": false,
		"ADD_TRAVELLER_SUCCESS":    false,
		"DELETE_TRAVELLER_SUCCESS": false,
	}
	for _, e := range entries {
		if _, ok := want[e.EventType]; ok {
			want[e.EventType] = true
		}
	}
	for eventType, seen := range want {
		if !seen {
			t.Errorf("no %s entry in the trail", eventType)
		}
	}

	// Viewing marks everything read
	if count, _ := svc.UnreadSuspiciousCount(super); count != 0 {
		t.Errorf("UnreadSuspiciousCount() after viewing = %d, want 0", count)
	}
}
