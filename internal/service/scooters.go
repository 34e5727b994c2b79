package service

import (
	"errors"
	"strconv"
	"time"

	"github.com/urbanmobility/umob/internal/audit"
	"github.com/urbanmobility/umob/internal/authz"
	"github.com/urbanmobility/umob/internal/models"
	"github.com/urbanmobility/umob/internal/store"
	"github.com/urbanmobility/umob/internal/validate"
)

var (
	// ErrNoSuchScooter is returned when the scooter id is unknown
	ErrNoSuchScooter = errors.New("no such scooter")
	// ErrDuplicateSerial is returned when the serial number is already
	// registered to another scooter
	ErrDuplicateSerial = errors.New("serial number already registered")
)

// ScooterPatch carries the fields a service engineer may change on a
// scooter; nil fields are left untouched. A full update by an
// administrator goes through UpdateScooterFull instead.
type ScooterPatch struct {
	SoCPercent      *float64
	TargetSoCMin    *float64
	TargetSoCMax    *float64
	Latitude        *float64
	Longitude       *float64
	OutOfService    *bool
	MileageKM       *float64
	LastMaintenance *string
}

func validateScooter(sc *models.Scooter) error {
	if sc.Brand == "" || sc.Model == "" {
		return validationError("brand and model are required")
	}
	if ok, msg := validate.ScooterSerial(sc.SerialNumber); !ok {
		return validationError(msg)
	}
	if sc.TopSpeedKMH <= 0 || sc.TopSpeedKMH > 120 {
		return validationError("top speed must be between 1 and 120 km/h")
	}
	if sc.BatteryWh <= 0 {
		return validationError("battery capacity must be positive")
	}
	if ok, msg := validate.SoC(sc.SoCPercent); !ok {
		return validationError(msg)
	}
	if ok, msg := validate.SoC(sc.TargetSoCMin); !ok {
		return validationError("target SoC minimum: " + msg)
	}
	if ok, msg := validate.SoC(sc.TargetSoCMax); !ok {
		return validationError("target SoC maximum: " + msg)
	}
	if sc.TargetSoCMin > sc.TargetSoCMax {
		return validationError("target SoC minimum must not exceed the maximum")
	}
	if ok, msg := validate.Coordinate(sc.Latitude, "latitude"); !ok {
		return validationError(msg)
	}
	if ok, msg := validate.Coordinate(sc.Longitude, "longitude"); !ok {
		return validationError(msg)
	}
	if sc.MileageKM < 0 {
		return validationError("mileage must not be negative")
	}
	if sc.LastMaintenance != "" {
		if ok, msg := validate.Date(sc.LastMaintenance); !ok {
			return validationError("last maintenance: " + msg)
		}
	}
	return nil
}

// AddScooter registers a new fleet vehicle
func (s *Service) AddScooter(actor Actor, sc *models.Scooter) (int64, error) {
	if err := s.authorize(actor, authz.CapAddScooter); err != nil {
		return 0, err
	}
	action := audit.Action{
		Name:    "ADD_SCOOTER",
		Success: "added a scooter to the fleet",
		Failure: "failed to add a scooter",
	}
	if err := validateScooter(sc); err != nil {
		return 0, err
	}
	sc.InServiceAt = time.Now()
	id, err := s.db.CreateScooter(sc)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, store.ErrAlreadyExists) {
			err = ErrDuplicateSerial
			reason = "duplicate serial number"
		}
		s.trail.Record(actor.Username, action, false,
			map[string]string{"serial": sc.SerialNumber, "reason": reason})
		return 0, err
	}
	sc.ID = id
	s.trail.Record(actor.Username, action, true,
		map[string]string{"scooter_id": strconv.FormatInt(id, 10), "serial": sc.SerialNumber})
	return id, nil
}

// GetScooter returns one scooter
func (s *Service) GetScooter(actor Actor, id int64) (*models.Scooter, error) {
	if err := s.authorize(actor, authz.CapViewScooterDetails); err != nil {
		return nil, err
	}
	sc, err := s.db.GetScooter(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoSuchScooter
		}
		return nil, err
	}
	return sc, nil
}

// SearchScooters matches the query against brand, model, and serial
func (s *Service) SearchScooters(actor Actor, query string) ([]models.Scooter, error) {
	if err := s.authorize(actor, authz.CapSearchScooters); err != nil {
		return nil, err
	}
	results, err := s.db.SearchScooters(query)
	if err != nil {
		return nil, err
	}
	s.trail.Record(actor.Username, audit.Action{
		Name:    "SEARCH_SCOOTERS",
		Success: "searched scooters",
	}, true, map[string]string{"query": query, "hits": strconv.Itoa(len(results))})
	return results, nil
}

// UpdateScooterFull replaces every editable field of a scooter
func (s *Service) UpdateScooterFull(actor Actor, sc *models.Scooter) error {
	if err := s.authorize(actor, authz.CapUpdateScooterFull); err != nil {
		return err
	}
	action := audit.Action{
		Name:    "UPDATE_SCOOTER",
		Success: "updated a scooter",
		Failure: "failed to update a scooter",
	}
	existing, err := s.db.GetScooter(sc.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoSuchScooter
		}
		return err
	}
	if err := validateScooter(sc); err != nil {
		return err
	}
	sc.InServiceAt = existing.InServiceAt
	if err := s.db.UpdateScooter(sc); err != nil {
		reason := err.Error()
		if errors.Is(err, store.ErrAlreadyExists) {
			err = ErrDuplicateSerial
			reason = "duplicate serial number"
		}
		s.trail.Record(actor.Username, action, false,
			map[string]string{"scooter_id": strconv.FormatInt(sc.ID, 10), "reason": reason})
		return err
	}
	s.trail.Record(actor.Username, action, true,
		map[string]string{"scooter_id": strconv.FormatInt(sc.ID, 10)})
	return nil
}

// UpdateScooterStatus applies the maintenance-scoped patch a service
// engineer is allowed to make: charge state, location, service flag,
// mileage, and maintenance date. Identity fields stay untouched.
func (s *Service) UpdateScooterStatus(actor Actor, id int64, patch ScooterPatch) error {
	if err := s.authorize(actor, authz.CapUpdateScooterLimited); err != nil {
		return err
	}
	action := audit.Action{
		Name:    "UPDATE_SCOOTER_STATUS",
		Success: "updated scooter status",
		Failure: "failed to update scooter status",
	}
	sc, err := s.db.GetScooter(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoSuchScooter
		}
		return err
	}

	if patch.SoCPercent != nil {
		sc.SoCPercent = *patch.SoCPercent
	}
	if patch.TargetSoCMin != nil {
		sc.TargetSoCMin = *patch.TargetSoCMin
	}
	if patch.TargetSoCMax != nil {
		sc.TargetSoCMax = *patch.TargetSoCMax
	}
	if patch.Latitude != nil {
		sc.Latitude = *patch.Latitude
	}
	if patch.Longitude != nil {
		sc.Longitude = *patch.Longitude
	}
	if patch.OutOfService != nil {
		sc.OutOfService = *patch.OutOfService
	}
	if patch.MileageKM != nil {
		sc.MileageKM = *patch.MileageKM
	}
	if patch.LastMaintenance != nil {
		sc.LastMaintenance = *patch.LastMaintenance
	}

	if err := validateScooter(sc); err != nil {
		return err
	}
	if err := s.db.UpdateScooter(sc); err != nil {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"scooter_id": strconv.FormatInt(id, 10), "reason": err.Error()})
		return err
	}
	s.trail.Record(actor.Username, action, true,
		map[string]string{"scooter_id": strconv.FormatInt(id, 10)})
	return nil
}

// DeleteScooter removes a scooter from the fleet
func (s *Service) DeleteScooter(actor Actor, id int64) error {
	if err := s.authorize(actor, authz.CapDeleteScooter); err != nil {
		return err
	}
	action := audit.Action{
		Name:    "DELETE_SCOOTER",
		Success: "removed a scooter from the fleet",
		Failure: "failed to remove a scooter",
	}
	if err := s.db.DeleteScooter(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoSuchScooter
		}
		s.trail.Record(actor.Username, action, false,
			map[string]string{"reason": err.Error()})
		return err
	}
	s.trail.Record(actor.Username, action, true,
		map[string]string{"scooter_id": strconv.FormatInt(id, 10)})
	return nil
}
