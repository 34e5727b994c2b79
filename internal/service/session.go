package service

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/urbanmobility/umob/internal/models"
)

// SessionTTL is how long a login stays valid without re-authenticating
const SessionTTL = 8 * time.Hour

var (
	// ErrNotLoggedIn is returned when no session file exists
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrSessionExpired is returned when the session has passed its TTL
	ErrSessionExpired = errors.New("session expired; log in again")
)

type sessionFile struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expires_at"`
}

// saveSession persists the actor to the session file with a fresh TTL
func (s *Service) saveSession(actor Actor) error {
	data, err := json.Marshal(sessionFile{
		UserID:    actor.ID,
		Username:  actor.Username,
		Role:      actor.Role.String(),
		ExpiresAt: time.Now().Add(SessionTTL).Unix(),
	})
	if err != nil {
		return err
	}
	return s.cfg.WriteSession(data)
}

// CurrentActor resolves the session file to an authenticated actor. The
// identity is re-checked against the credential store so a deactivated
// account cannot keep using a stale session.
func (s *Service) CurrentActor() (Actor, error) {
	raw, err := s.cfg.ReadSession()
	if err != nil {
		return Actor{}, ErrNotLoggedIn
	}
	var sess sessionFile
	if err := json.Unmarshal(raw, &sess); err != nil {
		s.cfg.DeleteSession()
		return Actor{}, ErrNotLoggedIn
	}
	if time.Now().Unix() >= sess.ExpiresAt {
		s.cfg.DeleteSession()
		return Actor{}, ErrSessionExpired
	}
	ident, err := s.ids.Get(sess.UserID)
	if err != nil {
		s.cfg.DeleteSession()
		return Actor{}, ErrNotLoggedIn
	}
	role, err := models.ParseRole(sess.Role)
	if err != nil || role != ident.Role {
		s.cfg.DeleteSession()
		return Actor{}, ErrNotLoggedIn
	}
	return Actor{ID: ident.ID, Username: ident.Username, Role: ident.Role}, nil
}
