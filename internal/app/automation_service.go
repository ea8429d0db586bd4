package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"standup_bot/internal/domain/team"

	"github.com/sirupsen/logrus"
)

const (
	MinResponseTimeoutMinutes = 30
	MaxResponseTimeoutMinutes = 480

	earliestSchedule = "06:00"
	latestSchedule   = "10:00"
)

// AutomationService applies admin changes to a team's standup settings.
type AutomationService struct {
	teamRepo       team.Repository
	defaultTimeout int
	logger         *logrus.Entry
}

func NewAutomationService(tr team.Repository, defaultTimeoutMinutes int, logger *logrus.Entry) *AutomationService {
	return &AutomationService{
		teamRepo:       tr,
		defaultTimeout: defaultTimeoutMinutes,
		logger:         logger.WithField("component", "automation_service"),
	}
}

// CreateTeam registers a team with automation disabled.
func (s *AutomationService) CreateTeam(ctx context.Context, name string) (*team.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrValidation("team name must not be empty")
	}
	timeout := s.defaultTimeout
	if err := ValidateTimeout(timeout); err != nil {
		timeout = MinResponseTimeoutMinutes
	}
	t := &team.Team{
		Name: name,
		Automation: team.AutomationConfig{
			Timezone:               "UTC",
			ResponseTimeoutMinutes: timeout,
		},
	}
	if err := s.teamRepo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"team_id": t.ID, "name": t.Name}).Info("Team created")
	return t, nil
}

// ValidateScheduleTime accepts HH:MM between 06:00 and 10:00 inclusive.
func ValidateScheduleTime(s string) error {
	if _, _, err := team.ParseClock(s); err != nil {
		return ErrValidation("schedule time %q must be HH:MM", s)
	}
	// Zero-padded HH:MM compares lexically.
	if s < earliestSchedule || s > latestSchedule {
		return ErrValidation("schedule time %s must be between %s and %s", s, earliestSchedule, latestSchedule)
	}
	return nil
}

// ValidateTimeout accepts 30 to 480 minutes.
func ValidateTimeout(minutes int) error {
	if minutes < MinResponseTimeoutMinutes || minutes > MaxResponseTimeoutMinutes {
		return ErrValidation("response timeout must be between %d and %d minutes, got %d",
			MinResponseTimeoutMinutes, MaxResponseTimeoutMinutes, minutes)
	}
	return nil
}

// ValidateTimezone accepts any label the runtime's zone database knows.
func ValidateTimezone(label string) error {
	if strings.TrimSpace(label) == "" {
		return ErrValidation("timezone must not be empty")
	}
	if _, err := time.LoadLocation(label); err != nil {
		return ErrValidation("unrecognized timezone %q", label)
	}
	return nil
}

func (s *AutomationService) update(ctx context.Context, teamID int64, mutate func(cfg *team.AutomationConfig) error) (*team.Team, error) {
	t, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, team.ErrNotFound) {
			return nil, ErrNotFound(err, "team %d not found", teamID)
		}
		return nil, fmt.Errorf("failed to get team %d: %w", teamID, err)
	}
	cfg := t.Automation
	cfg.Participants = append([]int64(nil), t.Automation.Participants...)
	if err := mutate(&cfg); err != nil {
		return nil, err
	}
	if err := s.teamRepo.UpdateAutomation(ctx, teamID, cfg); err != nil {
		return nil, fmt.Errorf("failed to update automation for team %d: %w", teamID, err)
	}
	t.Automation = cfg
	return t, nil
}

func (s *AutomationService) SetSchedule(ctx context.Context, teamID int64, hhmm string) (*team.Team, error) {
	hhmm = strings.TrimSpace(hhmm)
	if err := ValidateScheduleTime(hhmm); err != nil {
		return nil, err
	}
	return s.update(ctx, teamID, func(cfg *team.AutomationConfig) error {
		cfg.ScheduleTime = hhmm
		return nil
	})
}

func (s *AutomationService) SetTimeout(ctx context.Context, teamID int64, minutes int) (*team.Team, error) {
	if err := ValidateTimeout(minutes); err != nil {
		return nil, err
	}
	return s.update(ctx, teamID, func(cfg *team.AutomationConfig) error {
		cfg.ResponseTimeoutMinutes = minutes
		return nil
	})
}

func (s *AutomationService) SetTimezone(ctx context.Context, teamID int64, label string) (*team.Team, error) {
	label = strings.TrimSpace(label)
	if err := ValidateTimezone(label); err != nil {
		return nil, err
	}
	return s.update(ctx, teamID, func(cfg *team.AutomationConfig) error {
		cfg.Timezone = label
		return nil
	})
}

func (s *AutomationService) SetChannel(ctx context.Context, teamID, channelID int64) (*team.Team, error) {
	if channelID == 0 {
		return nil, ErrValidation("channel id must not be zero")
	}
	return s.update(ctx, teamID, func(cfg *team.AutomationConfig) error {
		cfg.ChannelID = channelID
		return nil
	})
}

func (s *AutomationService) AddParticipant(ctx context.Context, teamID, userID int64) (*team.Team, error) {
	return s.update(ctx, teamID, func(cfg *team.AutomationConfig) error {
		if cfg.HasParticipant(userID) {
			return nil
		}
		cfg.Participants = append(cfg.Participants, userID)
		return nil
	})
}

// RemoveParticipant drops userID from the team. Disabling automation is
// left to the admin even when the list becomes empty.
func (s *AutomationService) RemoveParticipant(ctx context.Context, teamID, userID int64) (*team.Team, error) {
	return s.update(ctx, teamID, func(cfg *team.AutomationConfig) error {
		if !cfg.HasParticipant(userID) {
			return ErrNotFound(nil, "user %d is not a participant of team %d", userID, teamID)
		}
		kept := cfg.Participants[:0]
		for _, id := range cfg.Participants {
			if id != userID {
				kept = append(kept, id)
			}
		}
		cfg.Participants = kept
		return nil
	})
}

// Enable turns automation on once schedule, channel and participants are set.
func (s *AutomationService) Enable(ctx context.Context, teamID int64) (*team.Team, error) {
	t, err := s.update(ctx, teamID, func(cfg *team.AutomationConfig) error {
		var missing []string
		if cfg.ScheduleTime == "" {
			missing = append(missing, "schedule time")
		}
		if cfg.ChannelID == 0 {
			missing = append(missing, "channel")
		}
		if len(cfg.Participants) == 0 {
			missing = append(missing, "participants")
		}
		if len(missing) > 0 {
			return ErrConfiguration("cannot enable standup automation for team %d: missing %s", teamID, strings.Join(missing, ", "))
		}
		cfg.Enabled = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"team_id": teamID, "schedule": t.Automation.ScheduleTime}).Info("Standup automation enabled")
	return t, nil
}

// Disable turns automation off. An escalation already scheduled for today still fires.
func (s *AutomationService) Disable(ctx context.Context, teamID int64) (*team.Team, error) {
	t, err := s.update(ctx, teamID, func(cfg *team.AutomationConfig) error {
		cfg.Enabled = false
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithField("team_id", teamID).Info("Standup automation disabled")
	return t, nil
}
