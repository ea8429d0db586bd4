package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"standup_bot/internal/app"
	"standup_bot/internal/domain/standup"
	"standup_bot/internal/domain/team"
	"standup_bot/internal/infra/clock"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const tickTimeout = 50 * time.Second

// Runner is the part of the standup service the scheduler drives.
type Runner interface {
	StartNow(ctx context.Context, teamID int64) (*app.StartResult, error)
	ProcessDueEscalations(ctx context.Context) error
}

// StandupScheduler starts each enabled team's standup at its schedule time
// and fires overdue escalations. It assumes a single running instance.
type StandupScheduler struct {
	cronEngine    *cron.Cron
	runner        Runner
	teamRepo      team.Repository
	clock         clock.Clock
	logger        *logrus.Entry
	cronSpec      string
	recoveryGrace time.Duration

	retryMu sync.Mutex
	retry   map[int64]time.Time // team ID -> day whose trigger failed
}

func NewStandupScheduler(
	runner Runner,
	teamRepo team.Repository,
	clk clock.Clock,
	logger *logrus.Entry,
	cronSpec string, // e.g. "* * * * *" (every minute)
	recoveryGrace time.Duration,
) *StandupScheduler {
	return &StandupScheduler{
		cronEngine:    cron.New(cron.WithLocation(time.Local)), // Schedule times are compared in server local time
		runner:        runner,
		teamRepo:      teamRepo,
		clock:         clk,
		logger:        logger.WithField("component", "scheduler"),
		cronSpec:      cronSpec,
		recoveryGrace: recoveryGrace,
		retry:         make(map[int64]time.Time),
	}
}

// Start runs the recovery sweep once and then starts the minute tick.
func (s *StandupScheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting standup scheduler...")

	s.Recover(ctx)

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		tickCtx, cancel := context.WithTimeout(context.Background(), tickTimeout)
		defer cancel()
		s.Tick(tickCtx)
	})
	if err != nil {
		return fmt.Errorf("could not add standup tick job %q: %w", s.cronSpec, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("spec", s.cronSpec).Info("Standup scheduler started")
	return nil
}

// Tick triggers every enabled team whose schedule time equals the current
// minute and has not run today, then fires due escalations. A team whose
// trigger failed earlier today is retried on every tick until it succeeds.
func (s *StandupScheduler) Tick(ctx context.Context) {
	now := s.clock.Now()
	current := now.Format("15:04")
	today := standup.Day(now)

	teams, err := s.teamRepo.ListEnabled(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list enabled teams")
	} else {
		for _, t := range teams {
			log := s.logger.WithField("team_id", t.ID)
			if _, _, err := team.ParseClock(t.Automation.ScheduleTime); err != nil {
				log.WithError(err).Warn("Skipping team with malformed schedule")
				continue
			}
			if t.Automation.RanOn(today) {
				continue
			}
			if t.Automation.ScheduleTime != current && !s.retryPending(t.ID, today) {
				continue
			}
			log.WithField("schedule", t.Automation.ScheduleTime).Info("Triggering scheduled standup")
			s.trigger(ctx, t, today)
		}
	}

	if err := s.runner.ProcessDueEscalations(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to process due escalations")
	}
}

// Recover triggers teams whose schedule time passed today more than the
// grace period ago without a recorded run, and fires escalations whose
// deadline passed while the process was down.
func (s *StandupScheduler) Recover(ctx context.Context) {
	now := s.clock.Now()
	today := standup.Day(now)

	teams, err := s.teamRepo.ListEnabled(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Recovery: failed to list enabled teams")
	} else {
		for _, t := range teams {
			log := s.logger.WithField("team_id", t.ID)
			if t.Automation.RanOn(today) {
				continue
			}
			scheduledAt, err := t.Automation.ScheduledAt(today)
			if err != nil {
				log.WithError(err).Warn("Recovery: skipping team with malformed schedule")
				continue
			}
			if now.Sub(scheduledAt) <= s.recoveryGrace {
				continue
			}
			log.WithField("scheduled_at", scheduledAt.Format("15:04")).Info("Recovery: triggering missed standup")
			s.trigger(ctx, t, today)
		}
	}

	if err := s.runner.ProcessDueEscalations(ctx); err != nil {
		s.logger.WithError(err).Error("Recovery: failed to process due escalations")
	}
}

// trigger starts the team's standup. Failures are logged so the sweep
// continues with the remaining teams.
func (s *StandupScheduler) trigger(ctx context.Context, t *team.Team, today time.Time) {
	log := s.logger.WithField("team_id", t.ID)
	res, err := s.runner.StartNow(ctx, t.ID)
	if err != nil {
		if app.IsKind(err, app.KindAlreadyStarted) {
			s.clearRetry(t.ID)
			// Started manually earlier today, or restored after a failed start;
			// record the run so later ticks skip it.
			log.Info("Standup already started today, recording run date")
			if err := s.teamRepo.SetLastRunDate(ctx, t.ID, today); err != nil {
				log.WithError(err).Error("Failed to persist last run date")
			}
			return
		}
		log.WithError(err).Error("Failed to trigger standup")
		s.markRetry(t.ID, today)
		return
	}
	s.clearRetry(t.ID)
	log.WithFields(logrus.Fields{
		"participants": res.ParticipantCount,
		"session_id":   res.Session.ID,
	}).Info("Scheduled standup triggered")
}

func (s *StandupScheduler) retryPending(teamID int64, today time.Time) bool {
	s.retryMu.Lock()
	defer s.retryMu.Unlock()
	day, ok := s.retry[teamID]
	return ok && day.Equal(today)
}

func (s *StandupScheduler) markRetry(teamID int64, today time.Time) {
	s.retryMu.Lock()
	s.retry[teamID] = today
	s.retryMu.Unlock()
}

func (s *StandupScheduler) clearRetry(teamID int64) {
	s.retryMu.Lock()
	delete(s.retry, teamID)
	s.retryMu.Unlock()
}

func (s *StandupScheduler) Stop() {
	s.logger.Info("Stopping standup scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Standup scheduler gracefully stopped.")
}
