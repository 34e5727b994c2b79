package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/urbanmobility/umob/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Set busy timeout
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Checkpoint flushes the write-ahead log into the main database file.
// Under WAL mode committed writes live in the -wal sidecar until a
// checkpoint runs, so a file-level snapshot of the database must be
// preceded by one or it misses them.
func (s *SQLiteStore) Checkpoint() error {
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint database: %w", err)
	}
	return nil
}

// migrate creates the database schema
func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY AUTOINCREMENT,
		username BLOB NOT NULL,
		password_hash BLOB NOT NULL,
		role BLOB NOT NULL,
		is_active BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_profiles (
		profile_id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL UNIQUE REFERENCES users(user_id) ON DELETE CASCADE,
		first_name BLOB,
		last_name BLOB,
		registered_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS travellers (
		customer_id INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		birthday TEXT NOT NULL,
		gender TEXT,
		street_name BLOB,
		house_number BLOB,
		zip_code BLOB,
		city BLOB,
		email_address BLOB,
		mobile_phone BLOB,
		driving_license TEXT NOT NULL,
		registered_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scooters (
		scooter_id INTEGER PRIMARY KEY AUTOINCREMENT,
		brand TEXT NOT NULL,
		model TEXT NOT NULL,
		serial_number TEXT NOT NULL UNIQUE,
		top_speed_kmh INTEGER,
		battery_capacity_wh INTEGER,
		soc_percentage REAL,
		target_soc_min REAL,
		target_soc_max REAL,
		location_latitude REAL,
		location_longitude REAL,
		out_of_service INTEGER NOT NULL DEFAULT 0,
		mileage_km REAL NOT NULL DEFAULT 0,
		last_maintenance_date TEXT,
		in_service_date DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS restore_codes (
		code_id INTEGER PRIMARY KEY AUTOINCREMENT,
		restore_code TEXT NOT NULL UNIQUE,
		backup_filename TEXT NOT NULL,
		system_admin_id INTEGER NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
		status TEXT NOT NULL CHECK(status IN ('active', 'used', 'revoked', 'expired')),
		generated_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_restore_codes_admin ON restore_codes(system_admin_id);

	CREATE TABLE IF NOT EXISTS logs (
		log_id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		username TEXT NOT NULL,
		event_type TEXT NOT NULL,
		description BLOB NOT NULL,
		additional_info BLOB,
		is_suspicious INTEGER NOT NULL DEFAULT 0,
		is_read INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON logs(timestamp);

	CREATE TABLE IF NOT EXISTS config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err is a SQLite uniqueness error
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// User operations

func (s *SQLiteStore) CreateUser(row *UserRow) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO users (username, password_hash, role, is_active)
		VALUES (?, ?, ?, ?)
	`, row.Username, row.PasswordHash, row.Role, row.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrAlreadyExists
		}
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get user id: %w", err)
	}
	row.ID = id
	return id, nil
}

func (s *SQLiteStore) ListUsers() ([]UserRow, error) {
	rows, err := s.db.Query(`
		SELECT user_id, username, password_hash, role, is_active FROM users ORDER BY user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []UserRow{}
	for rows.Next() {
		var u UserRow
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Active); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) UpdateUserPassword(id int64, encHash []byte) error {
	result, err := s.db.Exec(`UPDATE users SET password_hash = ? WHERE user_id = ?`, encHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) UpdateUserActive(id int64, encActive []byte) error {
	result, err := s.db.Exec(`UPDATE users SET is_active = ? WHERE user_id = ?`, encActive, id)
	if err != nil {
		return fmt.Errorf("failed to update active flag: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Profile operations

func (s *SQLiteStore) CreateProfile(row *ProfileRow) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO user_profiles (user_id, first_name, last_name, registered_at)
		VALUES (?, ?, ?, ?)
	`, row.UserID, row.FirstName, row.LastName, row.RegisteredAt)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrAlreadyExists
		}
		return 0, fmt.Errorf("failed to create profile: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get profile id: %w", err)
	}
	row.ID = id
	return id, nil
}

func (s *SQLiteStore) GetProfileByUserID(userID int64) (*ProfileRow, error) {
	var p ProfileRow
	err := s.db.QueryRow(`
		SELECT profile_id, user_id, first_name, last_name, registered_at
		FROM user_profiles WHERE user_id = ?
	`, userID).Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.RegisteredAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

func (s *SQLiteStore) UpdateProfile(userID int64, encFirst, encLast []byte) error {
	result, err := s.db.Exec(`
		UPDATE user_profiles SET first_name = ?, last_name = ? WHERE user_id = ?
	`, encFirst, encLast, userID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Traveller operations

func (s *SQLiteStore) CreateTraveller(row *TravellerRow) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO travellers (first_name, last_name, birthday, gender, street_name,
			house_number, zip_code, city, email_address, mobile_phone, driving_license, registered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, row.FirstName, row.LastName, row.Birthday, row.Gender, row.StreetName,
		row.HouseNumber, row.ZipCode, row.City, row.Email, row.MobilePhone,
		row.DrivingLicense, row.RegisteredAt)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrAlreadyExists
		}
		return 0, fmt.Errorf("failed to create traveller: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get traveller id: %w", err)
	}
	row.ID = id
	return id, nil
}

func scanTraveller(scan func(dest ...any) error) (*TravellerRow, error) {
	var t TravellerRow
	var gender, license sql.NullString
	err := scan(&t.ID, &t.FirstName, &t.LastName, &t.Birthday, &gender,
		&t.StreetName, &t.HouseNumber, &t.ZipCode, &t.City, &t.Email,
		&t.MobilePhone, &license, &t.RegisteredAt)
	if err != nil {
		return nil, err
	}
	t.Gender = gender.String
	t.DrivingLicense = license.String
	return &t, nil
}

const travellerColumns = `customer_id, first_name, last_name, birthday, gender,
	street_name, house_number, zip_code, city, email_address, mobile_phone,
	driving_license, registered_at`

func (s *SQLiteStore) GetTraveller(id int64) (*TravellerRow, error) {
	row := s.db.QueryRow(`SELECT `+travellerColumns+` FROM travellers WHERE customer_id = ?`, id)
	t, err := scanTraveller(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get traveller: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) ListTravellers() ([]TravellerRow, error) {
	return s.queryTravellers(`SELECT `+travellerColumns+` FROM travellers ORDER BY customer_id`)
}

func (s *SQLiteStore) SearchTravellers(nameQuery string) ([]TravellerRow, error) {
	like := "%" + nameQuery + "%"
	return s.queryTravellers(`
		SELECT `+travellerColumns+` FROM travellers
		WHERE first_name LIKE ? OR last_name LIKE ? OR driving_license LIKE ?
		ORDER BY last_name, first_name
	`, like, like, like)
}

func (s *SQLiteStore) queryTravellers(query string, args ...any) ([]TravellerRow, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query travellers: %w", err)
	}
	defer rows.Close()

	travellers := []TravellerRow{}
	for rows.Next() {
		t, err := scanTraveller(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan traveller: %w", err)
		}
		travellers = append(travellers, *t)
	}
	return travellers, rows.Err()
}

func (s *SQLiteStore) UpdateTraveller(row *TravellerRow) error {
	result, err := s.db.Exec(`
		UPDATE travellers SET first_name = ?, last_name = ?, birthday = ?, gender = ?,
			street_name = ?, house_number = ?, zip_code = ?, city = ?,
			email_address = ?, mobile_phone = ?, driving_license = ?
		WHERE customer_id = ?
	`, row.FirstName, row.LastName, row.Birthday, row.Gender, row.StreetName,
		row.HouseNumber, row.ZipCode, row.City, row.Email, row.MobilePhone,
		row.DrivingLicense, row.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to update traveller: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteTraveller(id int64) error {
	result, err := s.db.Exec(`DELETE FROM travellers WHERE customer_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete traveller: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Scooter operations

const scooterColumns = `scooter_id, brand, model, serial_number, top_speed_kmh,
	battery_capacity_wh, soc_percentage, target_soc_min, target_soc_max,
	location_latitude, location_longitude, out_of_service, mileage_km,
	last_maintenance_date, in_service_date`

func (s *SQLiteStore) CreateScooter(sc *models.Scooter) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO scooters (brand, model, serial_number, top_speed_kmh,
			battery_capacity_wh, soc_percentage, target_soc_min, target_soc_max,
			location_latitude, location_longitude, out_of_service, mileage_km,
			last_maintenance_date, in_service_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sc.Brand, sc.Model, sc.SerialNumber, sc.TopSpeedKMH, sc.BatteryWh,
		sc.SoCPercent, sc.TargetSoCMin, sc.TargetSoCMax, sc.Latitude, sc.Longitude,
		sc.OutOfService, sc.MileageKM, sc.LastMaintenance, sc.InServiceAt)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrAlreadyExists
		}
		return 0, fmt.Errorf("failed to create scooter: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get scooter id: %w", err)
	}
	sc.ID = id
	return id, nil
}

func scanScooter(scan func(dest ...any) error) (*models.Scooter, error) {
	var sc models.Scooter
	var maint sql.NullString
	err := scan(&sc.ID, &sc.Brand, &sc.Model, &sc.SerialNumber, &sc.TopSpeedKMH,
		&sc.BatteryWh, &sc.SoCPercent, &sc.TargetSoCMin, &sc.TargetSoCMax,
		&sc.Latitude, &sc.Longitude, &sc.OutOfService, &sc.MileageKM,
		&maint, &sc.InServiceAt)
	if err != nil {
		return nil, err
	}
	sc.LastMaintenance = maint.String
	return &sc, nil
}

func (s *SQLiteStore) GetScooter(id int64) (*models.Scooter, error) {
	row := s.db.QueryRow(`SELECT `+scooterColumns+` FROM scooters WHERE scooter_id = ?`, id)
	sc, err := scanScooter(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scooter: %w", err)
	}
	return sc, nil
}

func (s *SQLiteStore) SearchScooters(query string) ([]models.Scooter, error) {
	like := "%" + query + "%"
	rows, err := s.db.Query(`
		SELECT `+scooterColumns+` FROM scooters
		WHERE brand LIKE ? OR model LIKE ? OR serial_number LIKE ?
		ORDER BY brand, model
	`, like, like, like)
	if err != nil {
		return nil, fmt.Errorf("failed to search scooters: %w", err)
	}
	defer rows.Close()

	scooters := []models.Scooter{}
	for rows.Next() {
		sc, err := scanScooter(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scooter: %w", err)
		}
		scooters = append(scooters, *sc)
	}
	return scooters, rows.Err()
}

func (s *SQLiteStore) UpdateScooter(sc *models.Scooter) error {
	result, err := s.db.Exec(`
		UPDATE scooters SET brand = ?, model = ?, serial_number = ?, top_speed_kmh = ?,
			battery_capacity_wh = ?, soc_percentage = ?, target_soc_min = ?,
			target_soc_max = ?, location_latitude = ?, location_longitude = ?,
			out_of_service = ?, mileage_km = ?, last_maintenance_date = ?
		WHERE scooter_id = ?
	`, sc.Brand, sc.Model, sc.SerialNumber, sc.TopSpeedKMH, sc.BatteryWh,
		sc.SoCPercent, sc.TargetSoCMin, sc.TargetSoCMax, sc.Latitude, sc.Longitude,
		sc.OutOfService, sc.MileageKM, sc.LastMaintenance, sc.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to update scooter: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteScooter(id int64) error {
	result, err := s.db.Exec(`DELETE FROM scooters WHERE scooter_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scooter: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Restore code operations

func (s *SQLiteStore) CreateRestoreCode(c *models.RestoreCode) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO restore_codes (restore_code, backup_filename, system_admin_id,
			status, generated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.Code, c.BackupFilename, c.AdminID, string(c.Status), c.GeneratedAt, c.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrAlreadyExists
		}
		return 0, fmt.Errorf("failed to create restore code: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get restore code id: %w", err)
	}
	c.ID = id
	return id, nil
}

func (s *SQLiteStore) GetRestoreCodeByValue(code string) (*models.RestoreCode, error) {
	var c models.RestoreCode
	var status string
	err := s.db.QueryRow(`
		SELECT code_id, restore_code, backup_filename, system_admin_id, status, generated_at, expires_at
		FROM restore_codes WHERE restore_code = ?
	`, code).Scan(&c.ID, &c.Code, &c.BackupFilename, &c.AdminID, &status, &c.GeneratedAt, &c.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get restore code: %w", err)
	}
	c.Status = models.RestoreCodeStatus(status)
	return &c, nil
}

func (s *SQLiteStore) ListRestoreCodesByAdmin(adminID int64) ([]models.RestoreCode, error) {
	rows, err := s.db.Query(`
		SELECT code_id, restore_code, backup_filename, system_admin_id, status, generated_at, expires_at
		FROM restore_codes WHERE system_admin_id = ? ORDER BY generated_at DESC
	`, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to list restore codes: %w", err)
	}
	defer rows.Close()

	codes := []models.RestoreCode{}
	for rows.Next() {
		var c models.RestoreCode
		var status string
		if err := rows.Scan(&c.ID, &c.Code, &c.BackupFilename, &c.AdminID, &status,
			&c.GeneratedAt, &c.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan restore code: %w", err)
		}
		c.Status = models.RestoreCodeStatus(status)
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

func (s *SQLiteStore) UpdateRestoreCodeStatus(id int64, status models.RestoreCodeStatus) error {
	result, err := s.db.Exec(`
		UPDATE restore_codes SET status = ? WHERE code_id = ? AND status = 'active'
	`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update restore code status: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Log operations

func (s *SQLiteStore) AppendLog(row *LogRow) error {
	_, err := s.db.Exec(`
		INSERT INTO logs (log_id, timestamp, username, event_type, description,
			additional_info, is_suspicious, is_read)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)
	`, row.ID, row.Timestamp, row.Username, row.EventType, row.Description,
		row.Details, row.IsSuspicious)
	if err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListLogs() ([]LogRow, error) {
	rows, err := s.db.Query(`
		SELECT log_id, timestamp, username, event_type, description, additional_info,
			is_suspicious, is_read
		FROM logs ORDER BY timestamp DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	defer rows.Close()

	logs := []LogRow{}
	for rows.Next() {
		var l LogRow
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Username, &l.EventType,
			&l.Description, &l.Details, &l.IsSuspicious, &l.IsRead); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *SQLiteStore) CountUnreadSuspicious() (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM logs WHERE is_suspicious = 1 AND is_read = 0
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count suspicious logs: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) MarkAllLogsRead() error {
	if _, err := s.db.Exec(`UPDATE logs SET is_read = 1 WHERE is_read = 0`); err != nil {
		return fmt.Errorf("failed to mark logs read: %w", err)
	}
	return nil
}

// Config operations

func (s *SQLiteStore) GetConfig(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get config: %w", err)
	}
	return value, nil
}

func (s *SQLiteStore) SetConfig(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set config: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteConfig(key string) error {
	_, err := s.db.Exec(`DELETE FROM config WHERE key = ?`, key)
	return err
}
