package memory

import (
	"context"
	"testing"
	"time"

	"standup_bot/internal/domain/standup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewResponseRepository()
	day := time.Date(2026, 10, 16, 0, 0, 0, 0, time.Local)

	records := []*standup.ResponseRecord{
		standup.NewPendingRecord(1, 10, day),
		standup.NewPendingRecord(1, 11, day),
	}
	require.NoError(t, repo.BulkCreate(ctx, records))
	assert.NotZero(t, records[0].ID)

	err := repo.BulkCreate(ctx, []*standup.ResponseRecord{
		standup.NewPendingRecord(1, 12, day),
		standup.NewPendingRecord(1, 10, day),
	})
	assert.ErrorIs(t, err, standup.ErrDuplicateRecord)

	all, err := repo.ListByTeamDate(ctx, 1, day.Add(9*time.Hour))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	exists, err := repo.ExistsForTeamDate(ctx, 1, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, exists)

	// Returned records are copies.
	all[0].Yesterday = "changed"
	mine, err := repo.ListByUserDate(ctx, 10, day)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Empty(t, mine[0].Yesterday)

	mine[0].Status = standup.StatusSubmitted
	require.NoError(t, repo.Update(ctx, mine[0]))

	n, err := repo.UpdateStatuses(ctx, 1, day, standup.StatusPending, standup.StatusMissed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.ErrorIs(t, repo.Update(ctx, standup.NewPendingRecord(2, 10, day)), standup.ErrRecordNotFound)
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	triggered := time.Date(2026, 10, 16, 9, 0, 0, 0, time.Local)
	session := standup.NewSession(1, standup.Day(triggered), triggered, time.Hour)

	require.NoError(t, repo.Create(ctx, session))
	assert.ErrorIs(t, repo.Create(ctx, standup.NewSession(1, standup.Day(triggered), triggered, time.Hour)), standup.ErrDuplicateSession)

	got, err := repo.GetByTeamDate(ctx, 1, standup.Day(triggered))
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	_, err = repo.GetByTeamDate(ctx, 2, standup.Day(triggered))
	assert.ErrorIs(t, err, standup.ErrSessionNotFound)

	due, err := repo.ListDue(ctx, triggered.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, due)
	due, err = repo.ListDue(ctx, triggered.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, due, 1)

	fired, err := repo.MarkEscalated(ctx, session.ID, triggered.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, fired)
	fired, err = repo.MarkEscalated(ctx, session.ID, triggered.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, fired)

	due, err = repo.ListDue(ctx, triggered.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)

	_, err = repo.MarkEscalated(ctx, "missing", triggered)
	assert.ErrorIs(t, err, standup.ErrSessionNotFound)
}
