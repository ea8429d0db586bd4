// Package memory holds map-backed repositories used by tests and STORAGE=memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"standup_bot/internal/domain/team"
)

type TeamRepository struct {
	mu     sync.Mutex
	nextID int64
	teams  map[int64]*team.Team
}

func NewTeamRepository() *TeamRepository {
	return &TeamRepository{teams: make(map[int64]*team.Team)}
}

func copyTeam(t *team.Team) *team.Team {
	c := *t
	c.Automation.Participants = append([]int64(nil), t.Automation.Participants...)
	if t.Automation.LastRunDate != nil {
		d := *t.Automation.LastRunDate
		c.Automation.LastRunDate = &d
	}
	return &c
}

func (r *TeamRepository) Create(_ context.Context, t *team.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	now := time.Now()
	t.ID = r.nextID
	t.CreatedAt = now
	t.UpdatedAt = now
	r.teams[t.ID] = copyTeam(t)
	return nil
}

func (r *TeamRepository) GetByID(_ context.Context, id int64) (*team.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[id]
	if !ok {
		return nil, team.ErrNotFound
	}
	return copyTeam(t), nil
}

func (r *TeamRepository) ListEnabled(_ context.Context) ([]*team.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*team.Team, 0)
	for _, t := range r.teams {
		if t.Automation.Enabled {
			out = append(out, copyTeam(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *TeamRepository) UpdateAutomation(_ context.Context, id int64, cfg team.AutomationConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[id]
	if !ok {
		return team.ErrNotFound
	}
	t.Automation = cfg
	t.UpdatedAt = time.Now()
	r.teams[id] = copyTeam(t)
	return nil
}

func (r *TeamRepository) SetLastRunDate(_ context.Context, id int64, day time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[id]
	if !ok {
		return team.ErrNotFound
	}
	d := day
	t.Automation.LastRunDate = &d
	t.UpdatedAt = time.Now()
	return nil
}
