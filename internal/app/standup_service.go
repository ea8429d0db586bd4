// internal/app/standup_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"standup_bot/internal/domain/member"
	"standup_bot/internal/domain/standup"
	"standup_bot/internal/domain/team"
	domainTelegram "standup_bot/internal/domain/telegram"
	"standup_bot/internal/infra/clock"

	"github.com/sirupsen/logrus"
)

// escalationTimeout bounds a single escalation run fired from a timer.
const escalationTimeout = time.Minute

// StartResult describes a freshly started session.
type StartResult struct {
	Session          *standup.Session
	Records          []*standup.ResponseRecord
	ParticipantCount int
	Date             time.Time
}

// AnswerResult is returned after an answer has been recorded.
type AnswerResult struct {
	Record *standup.ResponseRecord
	// Next is the first question still lacking a valid answer, 0 when complete.
	Next standup.Question
}

// StandupService runs the daily standup: starting sessions, recording
// answers, escalating overdue sessions and building summaries.
type StandupService struct {
	teamRepo     team.Repository
	memberRepo   member.Repository
	responseRepo standup.ResponseRepository
	sessionRepo  standup.SessionRepository
	client       domainTelegram.Client // nil disables outgoing messages
	clock        clock.Clock
	logger       *logrus.Entry

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex

	timersMu sync.Mutex
	timers   map[string]*time.Timer
	// afterFunc arms in-process escalation timers; replaced in tests.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

func NewStandupService(
	tr team.Repository,
	mr member.Repository,
	rr standup.ResponseRepository,
	sr standup.SessionRepository,
	tc domainTelegram.Client,
	clk clock.Clock,
	logger *logrus.Entry,
) *StandupService {
	return &StandupService{
		teamRepo:     tr,
		memberRepo:   mr,
		responseRepo: rr,
		sessionRepo:  sr,
		client:       tc,
		clock:        clk,
		logger:       logger.WithField("component", "standup_service"),
		locks:        make(map[int64]*sync.Mutex),
		timers:       make(map[string]*time.Timer),
		afterFunc:    time.AfterFunc,
	}
}

// Today is local midnight of the service clock's current day.
func (s *StandupService) Today() time.Time {
	return standup.Day(s.clock.Now())
}

func (s *StandupService) teamLock(teamID int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[teamID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[teamID] = mu
	}
	return mu
}

func (s *StandupService) getTeam(ctx context.Context, teamID int64) (*team.Team, error) {
	t, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, team.ErrNotFound) {
			return nil, ErrNotFound(err, "team %d not found", teamID)
		}
		return nil, fmt.Errorf("failed to get team %d: %w", teamID, err)
	}
	return t, nil
}

// StartSession creates one pending record per participant for today.
// It fails with an AlreadyStarted error when any record already exists for
// the team today.
func (s *StandupService) StartSession(ctx context.Context, teamID int64) (*StartResult, error) {
	mu := s.teamLock(teamID)
	mu.Lock()
	defer mu.Unlock()

	t, err := s.getTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return s.startSessionLocked(ctx, t)
}

func (s *StandupService) startSessionLocked(ctx context.Context, t *team.Team) (*StartResult, error) {
	if !t.Automation.Enabled {
		return nil, ErrConfiguration("standup automation is disabled for team %d", t.ID)
	}

	now := s.clock.Now()
	today := standup.Day(now)

	exists, err := s.responseRepo.ExistsForTeamDate(ctx, t.ID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing responses for team %d: %w", t.ID, err)
	}
	if exists {
		if err := s.ensureSession(ctx, t, today, now); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyStarted("standup for team %d already started on %s", t.ID, today.Format("2006-01-02"))
	}

	records := make([]*standup.ResponseRecord, 0, len(t.Automation.Participants))
	for _, userID := range t.Automation.Participants {
		records = append(records, standup.NewPendingRecord(t.ID, userID, today))
	}
	if err := s.responseRepo.BulkCreate(ctx, records); err != nil {
		if errors.Is(err, standup.ErrDuplicateRecord) {
			return nil, ErrAlreadyStarted("standup for team %d already started on %s", t.ID, today.Format("2006-01-02"))
		}
		return nil, fmt.Errorf("failed to create standup responses for team %d: %w", t.ID, err)
	}

	timeout := time.Duration(t.Automation.ResponseTimeoutMinutes) * time.Minute
	session := standup.NewSession(t.ID, today, now, timeout)
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		if !errors.Is(err, standup.ErrDuplicateSession) {
			return nil, fmt.Errorf("failed to create standup session for team %d: %w", t.ID, err)
		}
		if len(records) == 0 {
			return nil, ErrAlreadyStarted("standup for team %d already started on %s", t.ID, today.Format("2006-01-02"))
		}
		// A session row without records means an earlier start failed halfway; keep its deadline.
		existing, getErr := s.sessionRepo.GetByTeamDate(ctx, t.ID, today)
		if getErr != nil {
			return nil, fmt.Errorf("failed to load existing session for team %d: %w", t.ID, getErr)
		}
		session = existing
	}

	s.logger.WithFields(logrus.Fields{
		"team_id":      t.ID,
		"session_id":   session.ID,
		"participants": len(records),
		"deadline":     session.EscalationDeadline.Format(time.RFC3339),
	}).Info("Standup session started")

	return &StartResult{
		Session:          session,
		Records:          records,
		ParticipantCount: len(records),
		Date:             today,
	}, nil
}

// ensureSession recreates the session of a day whose records were written
// but whose session insert failed, and arms its escalation.
func (s *StandupService) ensureSession(ctx context.Context, t *team.Team, today, now time.Time) error {
	_, err := s.sessionRepo.GetByTeamDate(ctx, t.ID, today)
	if err == nil {
		return nil
	}
	if !errors.Is(err, standup.ErrSessionNotFound) {
		return fmt.Errorf("failed to load session for team %d: %w", t.ID, err)
	}

	timeout := time.Duration(t.Automation.ResponseTimeoutMinutes) * time.Minute
	session := standup.NewSession(t.ID, today, now, timeout)
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		if errors.Is(err, standup.ErrDuplicateSession) {
			return nil
		}
		return fmt.Errorf("failed to restore standup session for team %d: %w", t.ID, err)
	}
	s.logger.WithFields(logrus.Fields{
		"team_id":    t.ID,
		"session_id": session.ID,
		"deadline":   session.EscalationDeadline.Format(time.RFC3339),
	}).Warn("Restored missing standup session")
	s.armEscalation(session)
	return nil
}

// StartNow triggers today's standup for a team: it starts the session,
// records the run date, prompts participants and arms the escalation.
// The scheduler uses the same path.
func (s *StandupService) StartNow(ctx context.Context, teamID int64) (*StartResult, error) {
	mu := s.teamLock(teamID)
	mu.Lock()
	defer mu.Unlock()

	t, err := s.getTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	res, err := s.startSessionLocked(ctx, t)
	if err != nil {
		return nil, err
	}

	if err := s.teamRepo.SetLastRunDate(ctx, t.ID, res.Date); err != nil {
		s.logger.WithError(err).WithField("team_id", t.ID).Error("Failed to persist last run date")
	}

	s.armEscalation(res.Session)
	s.sendPrompts(t, res.Records)
	return res, nil
}

func (s *StandupService) sendPrompts(t *team.Team, records []*standup.ResponseRecord) {
	if s.client == nil {
		return
	}
	first := standup.QuestionYesterday
	for _, r := range records {
		text := fmt.Sprintf("Good morning! Time for the %s standup.\n\n%d. %s\nReply with /answer %d <your answer>.",
			teamLabel(t), first, first.Prompt(), first)
		if err := s.client.SendMessage(r.UserID, text, nil); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"team_id": t.ID,
				"user_id": r.UserID,
			}).Warn("Failed to send standup prompt")
		}
	}
}

func teamLabel(t *team.Team) string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("team %d", t.ID)
}

// RecordAnswer stores one answer for the participant's standup today.
// teamID narrows the lookup when the user takes part in several teams.
func (s *StandupService) RecordAnswer(ctx context.Context, userID int64, q standup.Question, text string, teamID *int64) (*AnswerResult, error) {
	if !q.Valid() {
		return nil, ErrValidation("question must be 1, 2 or 3, got %d", q)
	}

	today := s.Today()
	records, err := s.responseRepo.ListByUserDate(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses for user %d: %w", userID, err)
	}
	if teamID != nil {
		filtered := records[:0]
		for _, r := range records {
			if r.TeamID == *teamID {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	switch len(records) {
	case 0:
		return nil, ErrNotFound(standup.ErrRecordNotFound, "no active standup for user %d today", userID)
	case 1:
	default:
		return nil, ErrValidation("user %d takes part in %d standups today, specify the team", userID, len(records))
	}

	answer := strings.TrimSpace(text)
	if n := standup.AnswerLength(answer); n < standup.MinAnswerLength || n > standup.MaxAnswerLength {
		return nil, ErrValidation("answer must be between %d and %d characters, got %d",
			standup.MinAnswerLength, standup.MaxAnswerLength, n)
	}

	mu := s.teamLock(records[0].TeamID)
	mu.Lock()
	defer mu.Unlock()

	// Re-read under the team lock so escalation and the write do not interleave.
	rec, err := s.reloadRecord(ctx, records[0])
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	rec.SetAnswer(q, answer)
	rec.EditedAt = &now
	rec.Recompute(now)

	if err := s.responseRepo.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to update response %d: %w", rec.ID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"team_id":  rec.TeamID,
		"user_id":  userID,
		"question": int(q),
		"status":   rec.Status,
	}).Info("Standup answer recorded")

	return &AnswerResult{Record: rec, Next: rec.NextQuestion()}, nil
}

func (s *StandupService) reloadRecord(ctx context.Context, rec *standup.ResponseRecord) (*standup.ResponseRecord, error) {
	records, err := s.responseRepo.ListByUserDate(ctx, rec.UserID, rec.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to reload response for user %d: %w", rec.UserID, err)
	}
	for _, r := range records {
		if r.TeamID == rec.TeamID {
			return r, nil
		}
	}
	return nil, ErrNotFound(standup.ErrRecordNotFound, "no active standup for user %d today", rec.UserID)
}

// GetSummary builds the summary of a team's standup; date defaults to today.
func (s *StandupService) GetSummary(ctx context.Context, teamID int64, date *time.Time) (*standup.Summary, error) {
	t, err := s.getTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	day := s.dayOrToday(date)

	records, err := s.responseRepo.ListByTeamDate(ctx, teamID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses for team %d: %w", teamID, err)
	}

	return BuildSummary(t, day, records, s.displayNames(ctx, t, records)), nil
}

func (s *StandupService) displayNames(ctx context.Context, t *team.Team, records []*standup.ResponseRecord) map[int64]string {
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.UserID)
	}
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 || s.memberRepo == nil {
		return names
	}
	members, err := s.memberRepo.ListByTelegramIDs(ctx, ids)
	if err != nil {
		// Summaries still go out with generic labels.
		s.logger.WithError(err).WithField("team_id", t.ID).Warn("Failed to resolve member names")
		return names
	}
	for _, m := range members {
		names[m.TelegramID] = m.DisplayName()
	}
	return names
}

// GetStatus counts a team's records by status; date defaults to today.
func (s *StandupService) GetStatus(ctx context.Context, teamID int64, date *time.Time) (standup.StatusCounts, error) {
	if _, err := s.getTeam(ctx, teamID); err != nil {
		return standup.StatusCounts{}, err
	}
	records, err := s.responseRepo.ListByTeamDate(ctx, teamID, s.dayOrToday(date))
	if err != nil {
		return standup.StatusCounts{}, fmt.Errorf("failed to list responses for team %d: %w", teamID, err)
	}
	return standup.CountStatuses(records), nil
}

func (s *StandupService) dayOrToday(date *time.Time) time.Time {
	if date == nil {
		return s.Today()
	}
	return standup.Day(date.In(s.clock.Now().Location()))
}

// armEscalation schedules an in-process escalation at the session deadline.
// The persisted deadline covers restarts, see ProcessDueEscalations.
func (s *StandupService) armEscalation(session *standup.Session) {
	delay := session.EscalationDeadline.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}
	id := session.ID

	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if _, ok := s.timers[id]; ok {
		return
	}
	s.timers[id] = s.afterFunc(delay, func() {
		s.timersMu.Lock()
		delete(s.timers, id)
		s.timersMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), escalationTimeout)
		defer cancel()
		s.Escalate(ctx, session)
	})
}

// ProcessDueEscalations fires every persisted session whose deadline has passed.
func (s *StandupService) ProcessDueEscalations(ctx context.Context) error {
	due, err := s.sessionRepo.ListDue(ctx, s.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to list due sessions: %w", err)
	}
	for _, session := range due {
		s.Escalate(ctx, session)
	}
	return nil
}

// Escalate closes out a session: records still pending become missed and
// the summary is posted to the team channel. The summary goes out at most
// once per session; failures are logged, never returned, and a session
// that could not be marked stays due.
func (s *StandupService) Escalate(ctx context.Context, session *standup.Session) {
	log := s.logger.WithFields(logrus.Fields{
		"team_id":    session.TeamID,
		"session_id": session.ID,
	})

	mu := s.teamLock(session.TeamID)
	mu.Lock()
	// Statuses flip before the session is marked so a failure here leaves
	// the session due for the next sweep.
	missed, err := s.responseRepo.UpdateStatuses(ctx, session.TeamID, session.Date, standup.StatusPending, standup.StatusMissed)
	if err != nil {
		mu.Unlock()
		log.WithError(err).Error("Failed to mark pending responses as missed")
		return
	}
	fired, err := s.sessionRepo.MarkEscalated(ctx, session.ID, s.clock.Now())
	mu.Unlock()
	if err != nil {
		log.WithError(err).Error("Failed to mark session escalated")
		return
	}
	if !fired {
		log.Debug("Session already escalated, skipping")
		return
	}
	log.WithField("missed", missed).Info("Standup session escalated")

	summary, err := s.GetSummary(ctx, session.TeamID, &session.Date)
	if err != nil {
		log.WithError(err).Error("Failed to build standup summary")
		return
	}
	s.publishSummary(ctx, summary, log)
}

func (s *StandupService) publishSummary(ctx context.Context, summary *standup.Summary, log *logrus.Entry) {
	if s.client == nil {
		return
	}
	t, err := s.teamRepo.GetByID(ctx, summary.TeamID)
	if err != nil {
		log.WithError(err).Error("Failed to load team for summary delivery")
		return
	}
	if t.Automation.ChannelID == 0 {
		log.Warn("Team has no channel configured, summary not delivered")
		return
	}
	if err := s.client.SendMessage(t.Automation.ChannelID, FormatSummary(summary), nil); err != nil {
		log.WithError(err).Error("Failed to post standup summary")
		return
	}
	log.WithField("channel_id", t.Automation.ChannelID).Info("Standup summary posted")
}

// Close stops pending in-process escalation timers. Their sessions are
// picked up again from the store on the next start.
func (s *StandupService) Close() {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}
