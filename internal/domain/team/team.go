package team

import (
	"fmt"
	"time"
)

// Team owns the standup automation settings for a group of participants.
type Team struct {
	ID         int64
	Name       string
	Automation AutomationConfig
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AutomationConfig holds the per-team daily standup settings.
type AutomationConfig struct {
	Enabled                bool
	ScheduleTime           string // 24h "15:04"
	Timezone               string // informational label only
	Participants           []int64
	ChannelID              int64
	ResponseTimeoutMinutes int
	LastRunDate            *time.Time // local midnight of the last triggered day
}

// HasParticipant reports whether userID is configured for the team.
func (c AutomationConfig) HasParticipant(userID int64) bool {
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// RanOn reports whether the last recorded run falls on the same calendar day as day.
func (c AutomationConfig) RanOn(day time.Time) bool {
	if c.LastRunDate == nil {
		return false
	}
	ly, lm, ld := c.LastRunDate.Date()
	y, m, d := day.Date()
	return ly == y && lm == m && ld == d
}

// ParseClock splits a "15:04" schedule time into hour and minute.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil || len(s) != 5 {
		return 0, 0, fmt.Errorf("invalid schedule time %q: expected HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// ScheduledAt returns the moment on day's date at which the team is scheduled.
func (c AutomationConfig) ScheduledAt(day time.Time) (time.Time, error) {
	h, m, err := ParseClock(c.ScheduleTime)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := day.Date()
	return time.Date(y, mo, d, h, m, 0, 0, day.Location()), nil
}
