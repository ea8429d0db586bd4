package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"standup_bot/internal/domain/member"
	"standup_bot/internal/domain/standup"
	"standup_bot/internal/domain/team"
	"standup_bot/internal/infra/clock"
	"standup_bot/internal/infra/logger"
	"standup_bot/internal/infra/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

const (
	userA     int64 = 101
	userB     int64 = 102
	channelID int64 = -1001
)

type sentMessage struct {
	to   int64
	text string
}

type recordingClient struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (c *recordingClient) SendMessage(to int64, text string, _ *telebot.SendOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMessage{to: to, text: text})
	return nil
}

func (c *recordingClient) to(id int64) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, m := range c.sent {
		if m.to == id {
			out = append(out, m.text)
		}
	}
	return out
}

type armedTimer struct {
	delay time.Duration
	fire  func()
}

type fixture struct {
	svc       *StandupService
	teams     *memory.TeamRepository
	members   *memory.MemberRepository
	responses *memory.ResponseRepository
	sessions  *memory.SessionRepository
	client    *recordingClient
	clock     *clock.Fixed
	timers    []armedTimer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		teams:     memory.NewTeamRepository(),
		members:   memory.NewMemberRepository(),
		responses: memory.NewResponseRepository(),
		sessions:  memory.NewSessionRepository(),
		client:    &recordingClient{},
		clock:     clock.NewFixed(time.Date(2026, 10, 16, 9, 0, 0, 0, time.Local)),
	}
	f.build(t, f.responses, f.sessions)
	return f
}

// build wires a service over the given stores, letting tests wrap them.
func (f *fixture) build(t *testing.T, responses standup.ResponseRepository, sessions standup.SessionRepository) {
	t.Helper()
	f.svc = NewStandupService(f.teams, f.members, responses, sessions, f.client, f.clock, logger.Discard())
	f.svc.afterFunc = func(d time.Duration, fn func()) *time.Timer {
		f.timers = append(f.timers, armedTimer{delay: d, fire: fn})
		return time.NewTimer(time.Hour)
	}
	t.Cleanup(f.svc.Close)
}

func (f *fixture) addTeam(t *testing.T, enabled bool, participants ...int64) *team.Team {
	t.Helper()
	tm := &team.Team{
		Name: "core",
		Automation: team.AutomationConfig{
			Enabled:                enabled,
			ScheduleTime:           "09:00",
			Timezone:               "UTC",
			Participants:           participants,
			ChannelID:              channelID,
			ResponseTimeoutMinutes: 120,
		},
	}
	require.NoError(t, f.teams.Create(context.Background(), tm))
	return tm
}

func (f *fixture) answerAll(t *testing.T, userID int64, blockers string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.RecordAnswer(ctx, userID, standup.QuestionYesterday, "Finished the login page", nil)
	require.NoError(t, err)
	_, err = f.svc.RecordAnswer(ctx, userID, standup.QuestionToday, "Reviewing pull requests", nil)
	require.NoError(t, err)
	_, err = f.svc.RecordAnswer(ctx, userID, standup.QuestionBlockers, blockers, nil)
	require.NoError(t, err)
}

func TestStartSession_CreatesPendingRecordPerParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tm := f.addTeam(t, true, userA, userB, 103)

	res, err := f.svc.StartSession(ctx, tm.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, res.ParticipantCount)
	assert.Len(t, res.Records, 3)
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.Local), res.Date)
	for _, r := range res.Records {
		assert.Equal(t, standup.StatusPending, r.Status)
		assert.Empty(t, r.Yesterday)
		assert.Empty(t, r.Today)
		assert.Empty(t, r.Blockers)
		assert.Equal(t, res.Date, r.Date)
	}
	assert.Equal(t, f.clock.Now().Add(120*time.Minute), res.Session.EscalationDeadline)

	_, err = f.svc.StartSession(ctx, tm.ID)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindAlreadyStarted))

	records, err := f.responses.ListByTeamDate(ctx, tm.ID, res.Date)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestStartSession_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	disabled := f.addTeam(t, false, userA)

	_, err := f.svc.StartSession(ctx, disabled.ID)
	assert.True(t, IsKind(err, KindConfiguration))

	_, err = f.svc.StartSession(ctx, 999)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestStartNow_RecordsRunPromptsAndArmsEscalation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tm := f.addTeam(t, true, userA, userB)

	res, err := f.svc.StartNow(ctx, tm.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.ParticipantCount)

	stored, err := f.teams.GetByID(ctx, tm.ID)
	require.NoError(t, err)
	assert.True(t, stored.Automation.RanOn(f.clock.Now()))

	require.Len(t, f.client.to(userA), 1)
	assert.Contains(t, f.client.to(userA)[0], standup.QuestionYesterday.Prompt())
	assert.Len(t, f.client.to(userB), 1)

	require.Len(t, f.timers, 1)
	assert.Equal(t, 120*time.Minute, f.timers[0].delay)

	_, err = f.svc.StartNow(ctx, tm.ID)
	assert.True(t, IsKind(err, KindAlreadyStarted))
	assert.Len(t, f.timers, 1)
}

func TestRecordAnswer_StatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tm := f.addTeam(t, true, userA)
	_, err := f.svc.StartSession(ctx, tm.ID)
	require.NoError(t, err)

	res, err := f.svc.RecordAnswer(ctx, userA, standup.QuestionYesterday, "Shipped the release", nil)
	require.NoError(t, err)
	assert.Equal(t, standup.StatusPending, res.Record.Status)
	assert.Nil(t, res.Record.SubmittedAt)
	assert.NotNil(t, res.Record.EditedAt)
	assert.Equal(t, standup.QuestionToday, res.Next)

	_, err = f.svc.RecordAnswer(ctx, userA, standup.QuestionToday, "Planning", nil)
	require.NoError(t, err)
	res, err = f.svc.RecordAnswer(ctx, userA, standup.QuestionBlockers, "none", nil)
	require.NoError(t, err)

	assert.Equal(t, standup.StatusSubmitted, res.Record.Status)
	require.NotNil(t, res.Record.SubmittedAt)
	assert.Equal(t, f.clock.Now(), *res.Record.SubmittedAt)
	assert.Equal(t, standup.Question(0), res.Next)

	// Editing a slot later keeps the first submission time.
	f.clock.Advance(10 * time.Minute)
	res, err = f.svc.RecordAnswer(ctx, userA, standup.QuestionToday, "Planning and reviews", nil)
	require.NoError(t, err)
	assert.Equal(t, standup.StatusSubmitted, res.Record.Status)
	assert.Equal(t, f.clock.Now().Add(-10*time.Minute), *res.Record.SubmittedAt)
	assert.Equal(t, "Planning and reviews", res.Record.Today)
}

func TestRecordAnswer_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tm := f.addTeam(t, true, userA)
	_, err := f.svc.StartSession(ctx, tm.ID)
	require.NoError(t, err)

	tests := []struct {
		name string
		q    standup.Question
		text string
	}{
		{name: "too short", q: standup.QuestionYesterday, text: "ok"},
		{name: "too long", q: standup.QuestionYesterday, text: strings.Repeat("a", 501)},
		{name: "blank padded", q: standup.QuestionToday, text: "  a  "},
		{name: "unknown question", q: 4, text: "valid answer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RecordAnswer(ctx, userA, tt.q, tt.text, nil)
			require.Error(t, err)
			assert.True(t, IsKind(err, KindValidation))

			records, err := f.responses.ListByUserDate(ctx, userA, f.svc.Today())
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Empty(t, records[0].Yesterday)
			assert.Empty(t, records[0].Today)
			assert.Nil(t, records[0].EditedAt)
		})
	}

	_, err = f.svc.RecordAnswer(ctx, userA, standup.QuestionYesterday, strings.Repeat("a", 500), nil)
	assert.NoError(t, err)
}

func TestRecordAnswer_NotFoundWithoutSession(t *testing.T) {
	f := newFixture(t)
	f.addTeam(t, true, userA)

	_, err := f.svc.RecordAnswer(context.Background(), userA, standup.QuestionYesterday, "Did things", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestRecordAnswer_SeveralTeamsNeedTeamID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.addTeam(t, true, userA)
	second := f.addTeam(t, true, userA)
	_, err := f.svc.StartSession(ctx, first.ID)
	require.NoError(t, err)
	_, err = f.svc.StartSession(ctx, second.ID)
	require.NoError(t, err)

	_, err = f.svc.RecordAnswer(ctx, userA, standup.QuestionYesterday, "Did things", nil)
	assert.True(t, IsKind(err, KindValidation))

	res, err := f.svc.RecordAnswer(ctx, userA, standup.QuestionYesterday, "Did things", &second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, res.Record.TeamID)
}

func TestGetSummary_FiltersNoBlockerAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tm := f.addTeam(t, true, userA, userB)
	require.NoError(t, f.members.Create(ctx, &member.Member{TelegramID: userB, FirstName: "Bea", IsActive: true}))
	_, err := f.svc.StartSession(ctx, tm.ID)
	require.NoError(t, err)

	_, err = f.svc.RecordAnswer(ctx, userA, standup.QuestionBlockers, "No blockers today", nil)
	require.NoError(t, err)
	f.answerAll(t, userB, "Auth service down")

	summary, err := f.svc.GetSummary(ctx, tm.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, standup.Participation{Responded: 1, Total: 2, Percentage: 50, NonRespondents: 1}, summary.Participation)
	require.Len(t, summary.Blockers, 1)
	assert.Equal(t, standup.MemberEntry{UserID: userB, DisplayName: "Bea", Text: "Auth service down"}, summary.Blockers[0])
	assert.Len(t, summary.Accomplishments, 1)
	assert.Len(t, summary.TodayFocus, 1)
}

func TestGetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tm := f.addTeam(t, true, userA, userB)
	_, err := f.svc.StartSession(ctx, tm.ID)
	require.NoError(t, err)
	f.answerAll(t, userA, "none")

	counts, err := f.svc.GetStatus(ctx, tm.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, standup.StatusCounts{Pending: 1, Submitted: 1, Total: 2}, counts)

	yesterday := f.clock.Now().AddDate(0, 0, -1)
	counts, err = f.svc.GetStatus(ctx, tm.ID, &yesterday)
	require.NoError(t, err)
	assert.Equal(t, standup.StatusCounts{}, counts)

	_, err = f.svc.GetStatus(ctx, 999, nil)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestEscalate_WithoutSubmissionsStillPostsSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tm := f.addTeam(t, true, userA, userB)
	_, err := f.svc.StartNow(ctx, tm.ID)
	require.NoError(t, err)
	require.Len(t, f.timers, 1)

	f.clock.Advance(120 * time.Minute)
	f.timers[0].fire()

	counts, err := f.svc.GetStatus(ctx, tm.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, standup.StatusCounts{Missed: 2, Total: 2}, counts)

	summary, err := f.svc.GetSummary(ctx, tm.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Participation.Responded)
	assert.Equal(t, 0, summary.Participation.Percentage)
	assert.Empty(t, summary.Accomplishments)
	assert.NotNil(t, summary.Accomplishments)
	assert.Empty(t, summary.Blockers)

	posted := f.client.to(channelID)
	require.Len(t, posted, 1)
	assert.Contains(t, posted[0], "Participation: 0/2 (0%)")
}

func TestEscalate_RunsOncePerSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tm := f.addTeam(t, true, userA)
	res, err := f.svc.StartNow(ctx, tm.ID)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	require.NoError(t, f.svc.ProcessDueEscalations(ctx))
	f.svc.Escalate(ctx, res.Session)
	f.timers[0].fire()
	require.NoError(t, f.svc.ProcessDueEscalations(ctx))

	assert.Len(t, f.client.to(channelID), 1)
}

func TestProcessDueEscalations_WaitsForDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tm := f.addTeam(t, true, userA)
	_, err := f.svc.StartNow(ctx, tm.ID)
	require.NoError(t, err)

	f.clock.Advance(119 * time.Minute)
	require.NoError(t, f.svc.ProcessDueEscalations(ctx))
	assert.Empty(t, f.client.to(channelID))

	f.clock.Advance(time.Minute)
	require.NoError(t, f.svc.ProcessDueEscalations(ctx))
	assert.Len(t, f.client.to(channelID), 1)
}

func TestRecordAnswer_AfterEscalationIsLate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tm := f.addTeam(t, true, userA, userB)
	_, err := f.svc.StartNow(ctx, tm.ID)
	require.NoError(t, err)

	_, err = f.svc.RecordAnswer(ctx, userA, standup.QuestionYesterday, "Wrote the migration", nil)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	require.NoError(t, f.svc.ProcessDueEscalations(ctx))

	res, err := f.svc.RecordAnswer(ctx, userA, standup.QuestionToday, "Deploying it", nil)
	require.NoError(t, err)
	assert.Equal(t, standup.StatusMissed, res.Record.Status)

	res, err = f.svc.RecordAnswer(ctx, userA, standup.QuestionBlockers, "Waiting on DBA review", nil)
	require.NoError(t, err)
	assert.Equal(t, standup.StatusLate, res.Record.Status)
	assert.NotNil(t, res.Record.SubmittedAt)

	summary, err := f.svc.GetSummary(ctx, tm.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Participation.Responded)
	assert.Equal(t, 50, summary.Participation.Percentage)
	require.Len(t, summary.Blockers, 1)
	assert.Equal(t, member.FallbackName(userA), summary.Blockers[0].DisplayName)
}

var errConnectionReset = errors.New("connection reset")

// flakySessions fails the next failCreate session inserts.
type flakySessions struct {
	*memory.SessionRepository
	failCreate int
}

func (r *flakySessions) Create(ctx context.Context, s *standup.Session) error {
	if r.failCreate > 0 {
		r.failCreate--
		return errConnectionReset
	}
	return r.SessionRepository.Create(ctx, s)
}

// flakyResponses fails the next failUpdateStatuses bulk status changes.
type flakyResponses struct {
	*memory.ResponseRepository
	failUpdateStatuses int
}

func (r *flakyResponses) UpdateStatuses(ctx context.Context, teamID int64, date time.Time, from, to standup.Status) (int64, error) {
	if r.failUpdateStatuses > 0 {
		r.failUpdateStatuses--
		return 0, errConnectionReset
	}
	return r.ResponseRepository.UpdateStatuses(ctx, teamID, date, from, to)
}

func TestStartNow_RestoresSessionAfterFailedInsert(t *testing.T) {
	f := newFixture(t)
	f.build(t, f.responses, &flakySessions{SessionRepository: f.sessions, failCreate: 1})
	ctx := context.Background()
	tm := f.addTeam(t, true, userA, userB)

	_, err := f.svc.StartNow(ctx, tm.ID)
	require.ErrorIs(t, err, errConnectionReset)
	assert.Empty(t, f.timers)

	f.clock.Advance(time.Minute)
	_, err = f.svc.StartNow(ctx, tm.ID)
	assert.True(t, IsKind(err, KindAlreadyStarted))

	session, err := f.sessions.GetByTeamDate(ctx, tm.ID, f.svc.Today())
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().Add(120*time.Minute), session.EscalationDeadline)
	require.Len(t, f.timers, 1)

	// A further retry finds the restored session and leaves it alone.
	_, err = f.svc.StartNow(ctx, tm.ID)
	assert.True(t, IsKind(err, KindAlreadyStarted))
	assert.Len(t, f.timers, 1)

	f.clock.Advance(10 * time.Hour)
	require.NoError(t, f.svc.ProcessDueEscalations(ctx))

	counts, err := f.svc.GetStatus(ctx, tm.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, standup.StatusCounts{Missed: 2, Total: 2}, counts)
	assert.Len(t, f.client.to(channelID), 1)
}

func TestStartSession_EmptyTeamStartsOncePerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tm := f.addTeam(t, true)

	res, err := f.svc.StartSession(ctx, tm.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ParticipantCount)

	_, err = f.svc.StartSession(ctx, tm.ID)
	assert.True(t, IsKind(err, KindAlreadyStarted))
}

func TestEscalate_RetriesWhenStatusUpdateFails(t *testing.T) {
	f := newFixture(t)
	f.build(t, &flakyResponses{ResponseRepository: f.responses, failUpdateStatuses: 1}, f.sessions)
	ctx := context.Background()
	tm := f.addTeam(t, true, userA, userB)
	_, err := f.svc.StartNow(ctx, tm.ID)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	require.NoError(t, f.svc.ProcessDueEscalations(ctx))

	assert.Empty(t, f.client.to(channelID))
	due, err := f.sessions.ListDue(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Len(t, due, 1)

	f.clock.Advance(time.Minute)
	require.NoError(t, f.svc.ProcessDueEscalations(ctx))

	counts, err := f.svc.GetStatus(ctx, tm.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, standup.StatusCounts{Missed: 2, Total: 2}, counts)
	assert.Len(t, f.client.to(channelID), 1)

	// Completing after escalation is late, not on time.
	f.answerAll(t, userA, "Waiting on DBA review")
	records, err := f.responses.ListByUserDate(ctx, userA, f.svc.Today())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, standup.StatusLate, records[0].Status)
}

func TestStartNow_ConcurrentCallsStartOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tm := f.addTeam(t, true, userA, userB, 103)

	// Timers are recorded from several goroutines here.
	var timersMu sync.Mutex
	f.svc.afterFunc = func(d time.Duration, fn func()) *time.Timer {
		timersMu.Lock()
		defer timersMu.Unlock()
		f.timers = append(f.timers, armedTimer{delay: d, fire: fn})
		return time.NewTimer(time.Hour)
	}

	const callers = 20
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.StartNow(ctx, tm.ID)
		}(i)
	}
	wg.Wait()

	started := 0
	for _, err := range errs {
		if err == nil {
			started++
			continue
		}
		assert.True(t, IsKind(err, KindAlreadyStarted), err)
	}
	assert.Equal(t, 1, started)

	records, err := f.responses.ListByTeamDate(ctx, tm.ID, f.svc.Today())
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Len(t, f.timers, 1)
	assert.Len(t, f.client.to(userA), 1)
}
