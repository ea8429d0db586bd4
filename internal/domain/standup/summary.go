package standup

import (
	"time"
)

// Participation holds the response statistics of a session.
type Participation struct {
	Responded      int `json:"responded"`
	Total          int `json:"total"`
	Percentage     int `json:"percentage"`
	NonRespondents int `json:"non_respondents"`
}

// MemberEntry is one member's answer in a summary list.
type MemberEntry struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
}

// Summary is the read-only aggregate of a team's responses for one day.
type Summary struct {
	TeamID          int64         `json:"team_id"`
	TeamName        string        `json:"team_name"`
	Date            time.Time     `json:"date"`
	Participation   Participation `json:"participation"`
	Accomplishments []MemberEntry `json:"accomplishments"`
	TodayFocus      []MemberEntry `json:"today_focus"`
	Blockers        []MemberEntry `json:"blockers"`
}

// StatusCounts tallies the records of a session by status.
type StatusCounts struct {
	Pending   int `json:"pending"`
	Submitted int `json:"submitted"`
	Late      int `json:"late"`
	Missed    int `json:"missed"`
	Total     int `json:"total"`
}

// CountStatuses tallies records by status.
func CountStatuses(records []*ResponseRecord) StatusCounts {
	var c StatusCounts
	for _, r := range records {
		switch r.Status {
		case StatusPending:
			c.Pending++
		case StatusSubmitted:
			c.Submitted++
		case StatusLate:
			c.Late++
		case StatusMissed:
			c.Missed++
		}
		c.Total++
	}
	return c
}
