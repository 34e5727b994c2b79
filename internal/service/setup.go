package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/urbanmobility/umob/internal/audit"
	"github.com/urbanmobility/umob/internal/backup"
	"github.com/urbanmobility/umob/internal/config"
	"github.com/urbanmobility/umob/internal/crypto"
	"github.com/urbanmobility/umob/internal/identity"
	"github.com/urbanmobility/umob/internal/models"
	"github.com/urbanmobility/umob/internal/restorecode"
	"github.com/urbanmobility/umob/internal/store"
)

// Bootstrap credentials seeded on first setup. The password predates
// the complexity policy on purpose; the operator is told to change it.
const (
	SeedUsername = "super_admin"
	SeedPassword = "Admin_123?"
)

// Setup initializes the data directory: generates the encryption key if
// absent, creates the database schema, and seeds the bootstrap super
// administrator when no accounts exist yet. Safe to run repeatedly.
func Setup(cfg *config.Config) (*Service, bool, error) {
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, false, err
	}
	key, err := crypto.LoadOrGenerateKey(cfg.KeyPath)
	if err != nil {
		return nil, false, err
	}
	cipher, err := crypto.NewCipher(key)
	if err != nil {
		return nil, false, err
	}
	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, false, err
	}
	ids, err := identity.New(db, cipher)
	if err != nil {
		db.Close()
		return nil, false, err
	}

	svc := &Service{
		cfg:     cfg,
		db:      db,
		cipher:  cipher,
		ids:     ids,
		trail:   audit.New(db, cipher),
		codes:   restorecode.New(db),
		backups: backup.New(cfg),
	}

	seeded := false
	if _, err := ids.FindByUsername(SeedUsername); err != nil {
		if _, err := ids.Create(SeedUsername, SeedPassword, models.RoleSuperAdmin, "Super", "Admin"); err != nil {
			db.Close()
			return nil, false, fmt.Errorf("failed to seed bootstrap account: %w", err)
		}
		seeded = true
	}
	return svc, seeded, nil
}

// SeedDemo loads a small demo dataset: two engineers, one system
// administrator, a few travellers and scooters. Intended for trying the
// tool out, not for production data directories.
func (s *Service) SeedDemo() error {
	accounts := []struct {
		username, password, first, last string
		role                            models.Role
	}{
		{"fleet_admin", "FleetAdmin_2025!", "Frida", "Jansen", models.RoleSystemAdmin},
		{"mech_davis", "WrenchTime_99!", "Sam", "Davis", models.RoleServiceEngineer},
		{"mech_patel", "SparkPlug_77!", "Nina", "Patel", models.RoleServiceEngineer},
	}
	for _, a := range accounts {
		if _, err := s.ids.Create(a.username, a.password, a.role, a.first, a.last); err != nil {
			if errors.Is(err, identity.ErrDuplicateUsername) {
				continue
			}
			return err
		}
	}

	travellers := []models.Traveller{
		{
			FirstName: "Emma", LastName: "de Vries", Birthday: "1994-03-18",
			Gender: "female", StreetName: "Coolsingel", HouseNumber: "42",
			ZipCode: "3011AD", City: "Rotterdam", Email: "emma.devries@example.com",
			MobilePhone: "+31-6-12345678", DrivingLicense: "DV1234567",
		},
		{
			FirstName: "Lucas", LastName: "Bakker", Birthday: "1988-11-02",
			Gender: "male", StreetName: "Lange Haven", HouseNumber: "7",
			ZipCode: "3111CA", City: "Schiedam", Email: "lucas.bakker@example.com",
			MobilePhone: "+31-6-87654321", DrivingLicense: "B87654321",
		},
	}
	for i := range travellers {
		t := travellers[i]
		t.RegisteredAt = time.Now()
		row, err := s.encryptTraveller(&t)
		if err != nil {
			return err
		}
		if _, err := s.db.CreateTraveller(row); err != nil {
			return err
		}
	}

	scooters := []models.Scooter{
		{
			Brand: "Segway", Model: "Ninebot Max", SerialNumber: "SGW00012345",
			TopSpeedKMH: 25, BatteryWh: 551, SoCPercent: 82,
			TargetSoCMin: 20, TargetSoCMax: 90,
			Latitude: 51.92250, Longitude: 4.47917, MileageKM: 1204.5,
		},
		{
			Brand: "NIU", Model: "KQi3 Pro", SerialNumber: "NIU00054321",
			TopSpeedKMH: 25, BatteryWh: 608, SoCPercent: 47,
			TargetSoCMin: 25, TargetSoCMax: 95,
			Latitude: 51.91660, Longitude: 4.39777, MileageKM: 310.0,
			LastMaintenance: "2025-07-14",
		},
	}
	for i := range scooters {
		sc := scooters[i]
		sc.InServiceAt = time.Now()
		if _, err := s.db.CreateScooter(&sc); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				continue
			}
			return err
		}
	}
	return nil
}
