package service

import (
	"strconv"
	"strings"

	"github.com/urbanmobility/umob/internal/audit"
	"github.com/urbanmobility/umob/internal/authz"
	"github.com/urbanmobility/umob/internal/crypto"
	"github.com/urbanmobility/umob/internal/validate"
)

// failedLoginThreshold is the failure count at which a separate
// suspicious entry is recorded for the username
const failedLoginThreshold = 3

const failedLoginKeyPrefix = "failed_logins:"

// Fragments that have no business in a username or password. Input
// carrying one is rejected before any lookup and flagged as suspicious.
var hostileFragments = []string{
	"'", "\"", ";", "--", "/*", "*/",
	" or ", " and ", " union ", " select ", "drop table", "xp_",
}

func isHostileInput(s string) bool {
	if strings.ContainsRune(s, 0) {
		return true
	}
	lower := strings.ToLower(s)
	for _, frag := range hostileFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

var loginAction = audit.Action{
	Name:    "LOGIN",
	Success: "operator logged in",
	Failure: "login attempt with wrong credentials",
}

// Login authenticates an operator and opens a session. All failure
// paths return ErrInvalidCredentials so the response does not reveal
// which part of the credentials was wrong.
func (s *Service) Login(username, password string) (Actor, error) {
	if isHostileInput(username) || isHostileInput(password) {
		s.trail.RecordSuspicious(audit.UnknownUser, "LOGIN_BLOCKED",
			"login input rejected by screening",
			map[string]string{"attempted_username": username})
		return Actor{}, ErrInvalidCredentials
	}

	normalized := strings.ToLower(strings.TrimSpace(username))
	cred, err := s.ids.FindByUsername(normalized)
	if err != nil || !crypto.VerifyPassword(password, cred.PasswordHash) {
		recorded := audit.UnknownUser
		if err == nil {
			recorded = cred.Username
		}
		s.trail.Record(recorded, loginAction, false,
			map[string]string{"attempted_username": normalized})
		s.noteFailedLogin(normalized)
		return Actor{}, ErrInvalidCredentials
	}

	s.resetFailedLogins(normalized)
	actor := Actor{ID: cred.ID, Username: cred.Username, Role: cred.Role}
	if err := s.saveSession(actor); err != nil {
		return Actor{}, err
	}
	s.trail.Record(actor.Username, loginAction, true, nil)
	return actor, nil
}

// noteFailedLogin bumps the persisted failure counter for a username
// and records a suspicious entry once the threshold is reached
func (s *Service) noteFailedLogin(username string) {
	key := failedLoginKeyPrefix + username
	count := 1
	if raw, err := s.db.GetConfig(key); err == nil {
		if n, err := strconv.Atoi(raw); err == nil {
			count = n + 1
		}
	}
	if err := s.db.SetConfig(key, strconv.Itoa(count)); err != nil {
		return
	}
	if count >= failedLoginThreshold {
		s.trail.RecordSuspicious(audit.UnknownUser, "LOGIN_MULTIPLE_FAILURES",
			"repeated failed login attempts for one username",
			map[string]string{
				"attempted_username": username,
				"failure_count":      strconv.Itoa(count),
			})
	}
}

func (s *Service) resetFailedLogins(username string) {
	s.db.DeleteConfig(failedLoginKeyPrefix + username)
}

// Logout ends the current session
func (s *Service) Logout(actor Actor) error {
	if err := s.cfg.DeleteSession(); err != nil {
		return err
	}
	s.trail.Record(actor.Username, audit.Action{
		Name:    "LOGOUT",
		Success: "operator logged out",
	}, true, nil)
	return nil
}

// UnreadSuspiciousCount returns how many suspicious entries have not
// been reviewed yet, for the post-login alert shown to administrators
func (s *Service) UnreadSuspiciousCount(actor Actor) (int, error) {
	if !authz.HasPermission(actor.Role, authz.CapViewSystemLogs) {
		return 0, nil
	}
	return s.trail.CountUnreadSuspicious()
}

// ChangeOwnPassword lets the actor replace their own password after
// proving they know the current one
func (s *Service) ChangeOwnPassword(actor Actor, current, next string) error {
	if err := s.authorize(actor, authz.CapChangeOwnPassword); err != nil {
		return err
	}
	action := audit.Action{
		Name:             "CHANGE_PASSWORD",
		Success:          "operator changed their own password",
		Failure:          "failed attempt to change own password",
		SuspiciousOnFail: true,
	}

	cred, err := s.ids.FindByUsername(actor.Username)
	if err != nil || !crypto.VerifyPassword(current, cred.PasswordHash) {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"reason": "current password mismatch"})
		return ErrInvalidCredentials
	}
	if ok, msg := validate.Password(next); !ok {
		return validationError(msg)
	}
	if err := s.ids.UpdatePassword(actor.ID, next); err != nil {
		s.trail.Record(actor.Username, action, false,
			map[string]string{"reason": err.Error()})
		return err
	}
	s.trail.Record(actor.Username, action, true, nil)
	return nil
}
