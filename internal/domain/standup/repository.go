package standup

import (
	"context"
	"errors"
	"time"
)

// ResponseRepository is the Response Store.
type ResponseRepository interface {
	// BulkCreate inserts the records in one transaction and fills their IDs.
	BulkCreate(ctx context.Context, records []*ResponseRecord) error
	ExistsForTeamDate(ctx context.Context, teamID int64, date time.Time) (bool, error)
	ListByTeamDate(ctx context.Context, teamID int64, date time.Time) ([]*ResponseRecord, error)
	ListByUserDate(ctx context.Context, userID int64, date time.Time) ([]*ResponseRecord, error)
	Update(ctx context.Context, record *ResponseRecord) error
	// UpdateStatuses moves every record of (teamID, date) in status from to status to
	// and returns how many rows changed.
	UpdateStatuses(ctx context.Context, teamID int64, date time.Time, from, to Status) (int64, error)
}

// SessionRepository persists sessions and their escalation deadlines.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByTeamDate(ctx context.Context, teamID int64, date time.Time) (*Session, error)
	ListDue(ctx context.Context, now time.Time) ([]*Session, error)
	// MarkEscalated sets EscalatedAt if it is still unset and reports whether it did.
	MarkEscalated(ctx context.Context, id string, at time.Time) (bool, error)
}

var (
	ErrRecordNotFound   = errors.New("standup response not found")
	ErrDuplicateRecord  = errors.New("duplicate standup response (team_id, user_id, response_date)")
	ErrSessionNotFound  = errors.New("standup session not found")
	ErrDuplicateSession = errors.New("duplicate standup session (team_id, session_date)")
)
