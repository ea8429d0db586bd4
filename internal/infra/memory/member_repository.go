package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"standup_bot/internal/domain/member"
)

type MemberRepository struct {
	mu      sync.Mutex
	nextID  int64
	members map[int64]*member.Member // keyed by Telegram ID
}

func NewMemberRepository() *MemberRepository {
	return &MemberRepository{members: make(map[int64]*member.Member)}
}

func (r *MemberRepository) Create(_ context.Context, m *member.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[m.TelegramID]; ok {
		return member.ErrDuplicateTelegramID
	}
	r.nextID++
	now := time.Now()
	m.ID = r.nextID
	m.CreatedAt = now
	m.UpdatedAt = now
	c := *m
	r.members[m.TelegramID] = &c
	return nil
}

func (r *MemberRepository) GetByTelegramID(_ context.Context, telegramID int64) (*member.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[telegramID]
	if !ok {
		return nil, member.ErrNotFound
	}
	c := *m
	return &c, nil
}

func (r *MemberRepository) Update(_ context.Context, m *member.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[m.TelegramID]; !ok {
		return member.ErrNotFound
	}
	m.UpdatedAt = time.Now()
	c := *m
	r.members[m.TelegramID] = &c
	return nil
}

func (r *MemberRepository) ListActive(_ context.Context) ([]*member.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*member.Member, 0)
	for _, m := range r.members {
		if m.IsActive {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstName < out[j].FirstName })
	return out, nil
}

func (r *MemberRepository) ListByTelegramIDs(_ context.Context, telegramIDs []int64) ([]*member.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*member.Member, 0, len(telegramIDs))
	for _, id := range telegramIDs {
		if m, ok := r.members[id]; ok {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}
