package standup

import (
	"time"

	"github.com/google/uuid"
)

// Session is one team's standup for one day. Its records live in the
// response store; the session row carries the escalation deadline so that
// escalation survives a restart.
type Session struct {
	ID                 string
	TeamID             int64
	Date               time.Time // local midnight
	TriggeredAt        time.Time
	EscalationDeadline time.Time
	EscalatedAt        *time.Time
}

// NewSession opens a session triggered at triggeredAt.
func NewSession(teamID int64, date, triggeredAt time.Time, timeout time.Duration) *Session {
	return &Session{
		ID:                 uuid.NewString(),
		TeamID:             teamID,
		Date:               date,
		TriggeredAt:        triggeredAt,
		EscalationDeadline: triggeredAt.Add(timeout),
	}
}

// Due reports whether the session should be escalated at now.
func (s *Session) Due(now time.Time) bool {
	return s.EscalatedAt == nil && !now.Before(s.EscalationDeadline)
}

// Day truncates t to local midnight in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
