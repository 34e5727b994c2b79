package service

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/urbanmobility/umob/internal/audit"
	"github.com/urbanmobility/umob/internal/authz"
	"github.com/urbanmobility/umob/internal/identity"
	"github.com/urbanmobility/umob/internal/models"
	"github.com/urbanmobility/umob/internal/validate"
)

// ErrDuplicateUsername is returned when the chosen username is taken
var ErrDuplicateUsername = identity.ErrDuplicateUsername

// ErrNoSuchUser is returned when the target account doesn't exist or
// doesn't hold the expected role
var ErrNoSuchUser = errors.New("no such user")

func validateAccountFields(username, password, firstName, lastName string) error {
	if ok, msg := validate.Username(username); !ok {
		return validationError("username: " + msg)
	}
	if ok, msg := validate.Password(password); !ok {
		return validationError(msg)
	}
	if ok, msg := validate.Name(firstName); !ok {
		return validationError("first name: " + msg)
	}
	if ok, msg := validate.Name(lastName); !ok {
		return validationError("last name: " + msg)
	}
	return nil
}

// targetWithRole resolves a user id and verifies its role, so an
// engineer-scoped operation can never touch an administrator
func (s *Service) targetWithRole(id int64, role models.Role) (*models.Identity, error) {
	ident, err := s.ids.Get(id)
	if err != nil || ident.Role != role {
		return nil, ErrNoSuchUser
	}
	return ident, nil
}

// AddServiceEngineer creates a service engineer account
func (s *Service) AddServiceEngineer(actor Actor, username, password, firstName, lastName string) (int64, error) {
	return s.addAccount(actor, authz.CapAddServiceEngineer, models.RoleServiceEngineer,
		"ADD_SERVICE_ENGINEER", username, password, firstName, lastName)
}

// AddSystemAdmin creates a system administrator account
func (s *Service) AddSystemAdmin(actor Actor, username, password, firstName, lastName string) (int64, error) {
	return s.addAccount(actor, authz.CapAddSystemAdmin, models.RoleSystemAdmin,
		"ADD_SYSTEM_ADMIN", username, password, firstName, lastName)
}

func (s *Service) addAccount(actor Actor, cap authz.Capability, role models.Role,
	actionName, username, password, firstName, lastName string) (int64, error) {
	if err := s.authorize(actor, cap); err != nil {
		return 0, err
	}
	action := audit.Action{
		Name:    actionName,
		Success: "created a " + role.String() + " account",
		Failure: "failed to create a " + role.String() + " account",
	}
	if err := validateAccountFields(username, password, firstName, lastName); err != nil {
		return 0, err
	}
	id, err := s.ids.Create(username, password, role, firstName, lastName)
	if err != nil {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"username": username, "reason": err.Error()})
		return 0, err
	}
	s.trail.Record(actor.Username, action, true,
		map[string]string{"username": username, "user_id": strconv.FormatInt(id, 10)})
	return id, nil
}

// ListServiceEngineers returns the active engineer accounts
func (s *Service) ListServiceEngineers(actor Actor) ([]identity.Member, error) {
	if err := s.authorize(actor, authz.CapSearchServiceEngineers); err != nil {
		return nil, err
	}
	return s.ids.ListByRole(models.RoleServiceEngineer)
}

// ListSystemAdmins returns the active administrator accounts
func (s *Service) ListSystemAdmins(actor Actor) ([]identity.Member, error) {
	if err := s.authorize(actor, authz.CapSearchSystemAdmins); err != nil {
		return nil, err
	}
	return s.ids.ListByRole(models.RoleSystemAdmin)
}

// UpdateEngineerProfile replaces a service engineer's name
func (s *Service) UpdateEngineerProfile(actor Actor, targetID int64, firstName, lastName string) error {
	return s.updateAccountProfile(actor, authz.CapUpdateEngineerProfile,
		models.RoleServiceEngineer, "UPDATE_SERVICE_ENGINEER", targetID, firstName, lastName)
}

// UpdateAdminProfile replaces a system administrator's name
func (s *Service) UpdateAdminProfile(actor Actor, targetID int64, firstName, lastName string) error {
	return s.updateAccountProfile(actor, authz.CapUpdateAdminProfile,
		models.RoleSystemAdmin, "UPDATE_SYSTEM_ADMIN", targetID, firstName, lastName)
}

func (s *Service) updateAccountProfile(actor Actor, cap authz.Capability, role models.Role,
	actionName string, targetID int64, firstName, lastName string) error {
	if err := s.authorize(actor, cap); err != nil {
		return err
	}
	action := audit.Action{
		Name:    actionName,
		Success: "updated a " + role.String() + " profile",
		Failure: "failed to update a " + role.String() + " profile",
	}
	target, err := s.targetWithRole(targetID, role)
	if err != nil {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"reason": "no such " + role.String()})
		return err
	}
	if ok, msg := validate.Name(firstName); !ok {
		return validationError("first name: " + msg)
	}
	if ok, msg := validate.Name(lastName); !ok {
		return validationError("last name: " + msg)
	}
	if err := s.ids.UpdateProfile(targetID, firstName, lastName); err != nil {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"username": target.Username, "reason": err.Error()})
		return err
	}
	s.trail.Record(actor.Username, action, true,
		map[string]string{"username": target.Username})
	return nil
}

// DeleteServiceEngineer deactivates a service engineer account
func (s *Service) DeleteServiceEngineer(actor Actor, targetID int64) error {
	if err := s.authorize(actor, authz.CapDeleteServiceEngineer); err != nil {
		return err
	}
	action := audit.Action{
		Name:    "DELETE_SERVICE_ENGINEER",
		Success: "deactivated a ServiceEngineer account",
		Failure: "failed to deactivate a ServiceEngineer account",
	}
	target, err := s.targetWithRole(targetID, models.RoleServiceEngineer)
	if err != nil {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"reason": "no such ServiceEngineer"})
		return err
	}
	if err := s.ids.Deactivate(targetID); err != nil {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"username": target.Username, "reason": err.Error()})
		return err
	}
	s.trail.Record(actor.Username, action, true,
		map[string]string{"username": target.Username})
	return nil
}

// DeleteSystemAdmin deactivates a system administrator and revokes any
// restore codes still assigned to them. Self-deletion is refused.
func (s *Service) DeleteSystemAdmin(actor Actor, targetID int64) error {
	if err := s.authorize(actor, authz.CapDeleteSystemAdmin); err != nil {
		return err
	}
	if targetID == actor.ID {
		return fmt.Errorf("cannot delete your own account")
	}
	action := audit.Action{
		Name:    "DELETE_SYSTEM_ADMIN",
		Success: "deactivated a SystemAdmin account",
		Failure: "failed to deactivate a SystemAdmin account",
	}
	target, err := s.targetWithRole(targetID, models.RoleSystemAdmin)
	if err != nil {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"reason": "no such SystemAdmin"})
		return err
	}
	if err := s.ids.Deactivate(targetID); err != nil {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"username": target.Username, "reason": err.Error()})
		return err
	}
	revoked, _ := s.codes.RevokeAllFor(targetID)
	s.trail.Record(actor.Username, action, true, map[string]string{
		"username":      target.Username,
		"codes_revoked": strconv.Itoa(revoked),
	})
	return nil
}

// ResetEngineerPassword sets a new password for a service engineer
func (s *Service) ResetEngineerPassword(actor Actor, targetID int64, newPassword string) error {
	if err := s.authorize(actor, authz.CapResetEngineerPassword); err != nil {
		return err
	}
	action := audit.Action{
		Name:             "RESET_ENGINEER_PASSWORD",
		Success:          "reset a ServiceEngineer password",
		Failure:          "failed to reset a ServiceEngineer password",
		SuspiciousOnFail: true,
	}
	target, err := s.targetWithRole(targetID, models.RoleServiceEngineer)
	if err != nil {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"reason": "no such ServiceEngineer"})
		return err
	}
	if ok, msg := validate.Password(newPassword); !ok {
		return validationError(msg)
	}
	if err := s.ids.UpdatePassword(targetID, newPassword); err != nil {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"username": target.Username, "reason": err.Error()})
		return err
	}
	s.trail.Record(actor.Username, action, true,
		map[string]string{"username": target.Username})
	return nil
}

// UpdateOwnProfile replaces the actor's own name
func (s *Service) UpdateOwnProfile(actor Actor, firstName, lastName string) error {
	if err := s.authorize(actor, authz.CapUpdateOwnProfile); err != nil {
		return err
	}
	action := audit.Action{
		Name:    "UPDATE_OWN_PROFILE",
		Success: "operator updated their own profile",
		Failure: "operator failed to update their own profile",
	}
	if ok, msg := validate.Name(firstName); !ok {
		return validationError("first name: " + msg)
	}
	if ok, msg := validate.Name(lastName); !ok {
		return validationError("last name: " + msg)
	}
	if err := s.ids.UpdateProfile(actor.ID, firstName, lastName); err != nil {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"reason": err.Error()})
		return err
	}
	s.trail.Record(actor.Username, action, true, nil)
	return nil
}

// OwnProfile returns the actor's profile
func (s *Service) OwnProfile(actor Actor) (*models.Profile, error) {
	return s.ids.ProfileByID(actor.ID)
}
