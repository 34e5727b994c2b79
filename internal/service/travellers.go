package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/urbanmobility/umob/internal/audit"
	"github.com/urbanmobility/umob/internal/authz"
	"github.com/urbanmobility/umob/internal/models"
	"github.com/urbanmobility/umob/internal/store"
	"github.com/urbanmobility/umob/internal/validate"
)

var (
	// ErrNoSuchTraveller is returned when the traveller id is unknown
	ErrNoSuchTraveller = errors.New("no such traveller")
	// ErrDuplicateEmail is returned when another traveller already uses
	// the email address
	ErrDuplicateEmail = errors.New("email address already registered")
)

func validateTraveller(t *models.Traveller) error {
	if ok, msg := validate.Name(t.FirstName); !ok {
		return validationError("first name: " + msg)
	}
	if ok, msg := validate.Name(t.LastName); !ok {
		return validationError("last name: " + msg)
	}
	if ok, msg := validate.Date(t.Birthday); !ok {
		return validationError("birthday: " + msg)
	}
	if ok, msg := validate.Gender(t.Gender); !ok {
		return validationError(msg)
	}
	if ok, msg := validate.StreetName(t.StreetName); !ok {
		return validationError("street: " + msg)
	}
	if ok, msg := validate.HouseNumber(t.HouseNumber); !ok {
		return validationError("house number: " + msg)
	}
	if ok, msg := validate.ZipCode(t.ZipCode); !ok {
		return validationError("zip code: " + msg)
	}
	if ok, msg := validate.City(t.City); !ok {
		return validationError("city: " + msg)
	}
	if ok, msg := validate.Email(t.Email); !ok {
		return validationError("email: " + msg)
	}
	if ok, msg := validate.MobilePhone(t.MobilePhone); !ok {
		return validationError("mobile phone: " + msg)
	}
	if ok, msg := validate.DrivingLicense(t.DrivingLicense); !ok {
		return validationError("driving license: " + msg)
	}
	return nil
}

// emailTaken scans the decrypted traveller emails for a duplicate.
// Ciphertext cannot be compared, so uniqueness is enforced here rather
// than by the database.
func (s *Service) emailTaken(email string, excludeID int64) (bool, error) {
	rows, err := s.db.ListTravellers()
	if err != nil {
		return false, err
	}
	want := strings.ToLower(email)
	for _, row := range rows {
		if row.ID == excludeID {
			continue
		}
		existing, err := s.cipher.Decrypt(row.Email)
		if err != nil {
			return false, fmt.Errorf("traveller %d email: %w", row.ID, err)
		}
		if strings.ToLower(existing) == want {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) encryptTraveller(t *models.Traveller) (*store.TravellerRow, error) {
	row := &store.TravellerRow{
		ID:             t.ID,
		FirstName:      t.FirstName,
		LastName:       t.LastName,
		Birthday:       t.Birthday,
		Gender:         strings.ToLower(t.Gender),
		DrivingLicense: strings.ToUpper(t.DrivingLicense),
		RegisteredAt:   t.RegisteredAt,
	}
	var err error
	if row.StreetName, err = s.cipher.Encrypt(t.StreetName); err != nil {
		return nil, fmt.Errorf("failed to encrypt street: %w", err)
	}
	if row.HouseNumber, err = s.cipher.Encrypt(t.HouseNumber); err != nil {
		return nil, fmt.Errorf("failed to encrypt house number: %w", err)
	}
	if row.ZipCode, err = s.cipher.Encrypt(strings.ToUpper(t.ZipCode)); err != nil {
		return nil, fmt.Errorf("failed to encrypt zip code: %w", err)
	}
	if row.City, err = s.cipher.Encrypt(t.City); err != nil {
		return nil, fmt.Errorf("failed to encrypt city: %w", err)
	}
	if row.Email, err = s.cipher.Encrypt(t.Email); err != nil {
		return nil, fmt.Errorf("failed to encrypt email: %w", err)
	}
	if row.MobilePhone, err = s.cipher.Encrypt(t.MobilePhone); err != nil {
		return nil, fmt.Errorf("failed to encrypt mobile phone: %w", err)
	}
	return row, nil
}

func (s *Service) decryptTraveller(row *store.TravellerRow) (*models.Traveller, error) {
	t := &models.Traveller{
		ID:             row.ID,
		FirstName:      row.FirstName,
		LastName:       row.LastName,
		Birthday:       row.Birthday,
		Gender:         row.Gender,
		DrivingLicense: row.DrivingLicense,
		RegisteredAt:   row.RegisteredAt,
	}
	var err error
	if t.StreetName, err = s.cipher.Decrypt(row.StreetName); err != nil {
		return nil, fmt.Errorf("traveller %d street: %w", row.ID, err)
	}
	if t.HouseNumber, err = s.cipher.Decrypt(row.HouseNumber); err != nil {
		return nil, fmt.Errorf("traveller %d house number: %w", row.ID, err)
	}
	if t.ZipCode, err = s.cipher.Decrypt(row.ZipCode); err != nil {
		return nil, fmt.Errorf("traveller %d zip code: %w", row.ID, err)
	}
	if t.City, err = s.cipher.Decrypt(row.City); err != nil {
		return nil, fmt.Errorf("traveller %d city: %w", row.ID, err)
	}
	if t.Email, err = s.cipher.Decrypt(row.Email); err != nil {
		return nil, fmt.Errorf("traveller %d email: %w", row.ID, err)
	}
	if t.MobilePhone, err = s.cipher.Decrypt(row.MobilePhone); err != nil {
		return nil, fmt.Errorf("traveller %d mobile phone: %w", row.ID, err)
	}
	return t, nil
}

// AddTraveller registers a new customer
func (s *Service) AddTraveller(actor Actor, t *models.Traveller) (int64, error) {
	if err := s.authorize(actor, authz.CapAddTraveller); err != nil {
		return 0, err
	}
	action := audit.Action{
		Name:    "ADD_TRAVELLER",
		Success: "registered a new traveller",
		Failure: "failed to register a traveller",
	}
	if err := validateTraveller(t); err != nil {
		return 0, err
	}
	taken, err := s.emailTaken(t.Email, 0)
	if err != nil {
		return 0, err
	}
	if taken {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"reason": "duplicate email"})
		return 0, ErrDuplicateEmail
	}

	t.RegisteredAt = time.Now()
	row, err := s.encryptTraveller(t)
	if err != nil {
		return 0, err
	}
	id, err := s.db.CreateTraveller(row)
	if err != nil {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"reason": err.Error()})
		return 0, err
	}
	t.ID = id
	s.trail.Record(actor.Username, action, true,
		map[string]string{"traveller_id": strconv.FormatInt(id, 10)})
	return id, nil
}

// GetTraveller returns one traveller fully decrypted
func (s *Service) GetTraveller(actor Actor, id int64) (*models.Traveller, error) {
	if err := s.authorize(actor, authz.CapViewTravellerDetails); err != nil {
		return nil, err
	}
	row, err := s.db.GetTraveller(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoSuchTraveller
		}
		return nil, err
	}
	return s.decryptTraveller(row)
}

// SearchTravellers matches the query against the cleartext name and
// license fields and returns the hits decrypted
func (s *Service) SearchTravellers(actor Actor, query string) ([]models.Traveller, error) {
	if err := s.authorize(actor, authz.CapSearchTravellers); err != nil {
		return nil, err
	}
	rows, err := s.db.SearchTravellers(query)
	if err != nil {
		return nil, err
	}
	results := make([]models.Traveller, 0, len(rows))
	for i := range rows {
		t, err := s.decryptTraveller(&rows[i])
		if err != nil {
			return nil, err
		}
		results = append(results, *t)
	}
	s.trail.Record(actor.Username, audit.Action{
		Name:    "SEARCH_TRAVELLERS",
		Success: "searched travellers",
	}, true, map[string]string{"query": query, "hits": strconv.Itoa(len(results))})
	return results, nil
}

// UpdateTraveller replaces a traveller record
func (s *Service) UpdateTraveller(actor Actor, t *models.Traveller) error {
	if err := s.authorize(actor, authz.CapUpdateTraveller); err != nil {
		return err
	}
	action := audit.Action{
		Name:    "UPDATE_TRAVELLER",
		Success: "updated a traveller",
		Failure: "failed to update a traveller",
	}
	existing, err := s.db.GetTraveller(t.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoSuchTraveller
		}
		return err
	}
	if err := validateTraveller(t); err != nil {
		return err
	}
	taken, err := s.emailTaken(t.Email, t.ID)
	if err != nil {
		return err
	}
	if taken {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"reason": "duplicate email"})
		return ErrDuplicateEmail
	}

	t.RegisteredAt = existing.RegisteredAt
	row, err := s.encryptTraveller(t)
	if err != nil {
		return err
	}
	if err := s.db.UpdateTraveller(row); err != nil {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"reason": err.Error()})
		return err
	}
	s.trail.Record(actor.Username, action, true,
		map[string]string{"traveller_id": strconv.FormatInt(t.ID, 10)})
	return nil
}

// DeleteTraveller permanently removes a traveller record
func (s *Service) DeleteTraveller(actor Actor, id int64) error {
	if err := s.authorize(actor, authz.CapDeleteTraveller); err != nil {
		return err
	}
	action := audit.Action{
		Name:    "DELETE_TRAVELLER",
		Success: "deleted a traveller",
		Failure: "failed to delete a traveller",
	}
	if err := s.db.DeleteTraveller(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoSuchTraveller
		}
		s.trail.Record(actor.Username, action, false,
			map[string]string{"reason": err.Error()})
		return err
	}
	s.trail.Record(actor.Username, action, true,
		map[string]string{"traveller_id": strconv.FormatInt(id, 10)})
	return nil
}
