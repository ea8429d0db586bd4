package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"standup_bot/internal/domain/standup"
)

type recordKey struct {
	teamID int64
	userID int64
	date   string
}

func keyOf(teamID, userID int64, date time.Time) recordKey {
	return recordKey{teamID: teamID, userID: userID, date: date.Format("2006-01-02")}
}

func sameDay(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

func copyRecord(r *standup.ResponseRecord) *standup.ResponseRecord {
	c := *r
	if r.SubmittedAt != nil {
		t := *r.SubmittedAt
		c.SubmittedAt = &t
	}
	if r.EditedAt != nil {
		t := *r.EditedAt
		c.EditedAt = &t
	}
	return &c
}

type ResponseRepository struct {
	mu      sync.Mutex
	nextID  int64
	records map[recordKey]*standup.ResponseRecord
}

func NewResponseRepository() *ResponseRepository {
	return &ResponseRepository{records: make(map[recordKey]*standup.ResponseRecord)}
}

func (r *ResponseRepository) BulkCreate(_ context.Context, records []*standup.ResponseRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		if _, ok := r.records[keyOf(rec.TeamID, rec.UserID, rec.Date)]; ok {
			return standup.ErrDuplicateRecord
		}
	}
	now := time.Now()
	for _, rec := range records {
		r.nextID++
		rec.ID = r.nextID
		rec.CreatedAt = now
		rec.UpdatedAt = now
		r.records[keyOf(rec.TeamID, rec.UserID, rec.Date)] = copyRecord(rec)
	}
	return nil
}

func (r *ResponseRepository) ExistsForTeamDate(_ context.Context, teamID int64, date time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.TeamID == teamID && sameDay(rec.Date, date) {
			return true, nil
		}
	}
	return false, nil
}

func (r *ResponseRepository) list(match func(*standup.ResponseRecord) bool) []*standup.ResponseRecord {
	out := make([]*standup.ResponseRecord, 0)
	for _, rec := range r.records {
		if match(rec) {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *ResponseRepository) ListByTeamDate(_ context.Context, teamID int64, date time.Time) ([]*standup.ResponseRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(rec *standup.ResponseRecord) bool {
		return rec.TeamID == teamID && sameDay(rec.Date, date)
	}), nil
}

func (r *ResponseRepository) ListByUserDate(_ context.Context, userID int64, date time.Time) ([]*standup.ResponseRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(rec *standup.ResponseRecord) bool {
		return rec.UserID == userID && sameDay(rec.Date, date)
	}), nil
}

func (r *ResponseRepository) Update(_ context.Context, record *standup.ResponseRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := keyOf(record.TeamID, record.UserID, record.Date)
	if _, ok := r.records[key]; !ok {
		return standup.ErrRecordNotFound
	}
	record.UpdatedAt = time.Now()
	r.records[key] = copyRecord(record)
	return nil
}

func (r *ResponseRepository) UpdateStatuses(_ context.Context, teamID int64, date time.Time, from, to standup.Status) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.records {
		if rec.TeamID == teamID && sameDay(rec.Date, date) && rec.Status == from {
			rec.Status = to
			rec.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

type SessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*standup.Session
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]*standup.Session)}
}

func copySession(s *standup.Session) *standup.Session {
	c := *s
	if s.EscalatedAt != nil {
		t := *s.EscalatedAt
		c.EscalatedAt = &t
	}
	return &c
}

func (r *SessionRepository) Create(_ context.Context, s *standup.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sessions {
		if existing.TeamID == s.TeamID && sameDay(existing.Date, s.Date) {
			return standup.ErrDuplicateSession
		}
	}
	r.sessions[s.ID] = copySession(s)
	return nil
}

func (r *SessionRepository) GetByTeamDate(_ context.Context, teamID int64, date time.Time) (*standup.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.TeamID == teamID && sameDay(s.Date, date) {
			return copySession(s), nil
		}
	}
	return nil, standup.ErrSessionNotFound
}

func (r *SessionRepository) ListDue(_ context.Context, now time.Time) ([]*standup.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*standup.Session, 0)
	for _, s := range r.sessions {
		if s.Due(now) {
			out = append(out, copySession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EscalationDeadline.Before(out[j].EscalationDeadline) })
	return out, nil
}

func (r *SessionRepository) MarkEscalated(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false, standup.ErrSessionNotFound
	}
	if s.EscalatedAt != nil {
		return false, nil
	}
	t := at
	s.EscalatedAt = &t
	return true, nil
}
