package standup

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidAnswer(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "minimum", text: "abc", want: true},
		{name: "too short", text: "ab"},
		{name: "whitespace does not count", text: "   ab   "},
		{name: "maximum", text: strings.Repeat("x", 500), want: true},
		{name: "too long", text: strings.Repeat("x", 501)},
		{name: "runes not bytes", text: "äöü", want: true},
		{name: "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidAnswer(tt.text))
		})
	}
}

func TestRecompute(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 30, 0, 0, time.Local)

	r := NewPendingRecord(1, 2, Day(now))
	r.SetAnswer(QuestionYesterday, "Wrote docs")
	r.Recompute(now)
	assert.Equal(t, StatusPending, r.Status)
	assert.Nil(t, r.SubmittedAt)
	assert.Equal(t, QuestionToday, r.NextQuestion())

	r.SetAnswer(QuestionToday, "Code review")
	r.SetAnswer(QuestionBlockers, "none")
	r.Recompute(now)
	assert.Equal(t, StatusSubmitted, r.Status)
	require.NotNil(t, r.SubmittedAt)
	assert.Equal(t, now, *r.SubmittedAt)
	assert.Equal(t, Question(0), r.NextQuestion())

	r.Recompute(now.Add(time.Hour))
	assert.Equal(t, now, *r.SubmittedAt)
}

func TestRecompute_AfterEscalation(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.Local)
	r := NewPendingRecord(1, 2, Day(now))
	r.Status = StatusMissed

	r.SetAnswer(QuestionYesterday, "Wrote docs")
	r.Recompute(now)
	assert.Equal(t, StatusMissed, r.Status)
	assert.True(t, r.Escalated())

	r.SetAnswer(QuestionToday, "Code review")
	r.SetAnswer(QuestionBlockers, "Flaky CI")
	r.Recompute(now)
	assert.Equal(t, StatusLate, r.Status)
	assert.NotNil(t, r.SubmittedAt)
	assert.True(t, r.Status.Responded())
}

func TestQuestion(t *testing.T) {
	for _, q := range Questions {
		assert.True(t, q.Valid())
		assert.NotEmpty(t, q.Prompt())
	}
	assert.False(t, Question(0).Valid())
	assert.False(t, Question(4).Valid())
	assert.Empty(t, Question(4).Prompt())
}

func TestSession(t *testing.T) {
	triggered := time.Date(2026, 10, 16, 9, 0, 0, 0, time.Local)
	s := NewSession(3, Day(triggered), triggered, 120*time.Minute)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, time.Date(2026, 10, 16, 11, 0, 0, 0, time.Local), s.EscalationDeadline)
	assert.False(t, s.Due(triggered.Add(119*time.Minute)))
	assert.True(t, s.Due(s.EscalationDeadline))

	escalated := s.EscalationDeadline
	s.EscalatedAt = &escalated
	assert.False(t, s.Due(s.EscalationDeadline.Add(time.Hour)))

	assert.NotEqual(t, s.ID, NewSession(3, Day(triggered), triggered, time.Hour).ID)
}

func TestCountStatuses(t *testing.T) {
	records := []*ResponseRecord{
		{Status: StatusPending},
		{Status: StatusSubmitted},
		{Status: StatusSubmitted},
		{Status: StatusLate},
		{Status: StatusMissed},
	}
	assert.Equal(t, StatusCounts{Pending: 1, Submitted: 2, Late: 1, Missed: 1, Total: 5}, CountStatuses(records))
}
