package service

import (
	"strconv"

	"github.com/urbanmobility/umob/internal/audit"
	"github.com/urbanmobility/umob/internal/authz"
	"github.com/urbanmobility/umob/internal/models"
)

// ViewLogs returns the decrypted audit trail, newest first, and marks
// every entry as reviewed
func (s *Service) ViewLogs(actor Actor) ([]models.LogEntry, error) {
	if err := s.authorize(actor, authz.CapViewSystemLogs); err != nil {
		return nil, err
	}
	entries, err := s.trail.List()
	if err != nil {
		return nil, err
	}
	if err := s.trail.MarkAllRead(); err != nil {
		return nil, err
	}
	s.trail.Record(actor.Username, audit.Action{
		Name:    "VIEW_LOGS",
		Success: "reviewed the system logs",
	}, true, map[string]string{"entries": strconv.Itoa(len(entries))})
	return entries, nil
}
