package app

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"standup_bot/internal/domain/member"
	"standup_bot/internal/domain/standup"
	"standup_bot/internal/domain/team"
)

var noBlockerMarkers = []string{"no blocker", "none", "clear"}

// IsNoBlocker reports whether a blockers answer means "nothing is blocking me".
// It is a substring heuristic: answers that mention one of the markers, or
// are three characters or shorter, are treated as empty.
func IsNoBlocker(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if utf8.RuneCountInString(lower) <= 3 {
		return true
	}
	for _, marker := range noBlockerMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ParticipationPercentage rounds responded/total to the nearest percent; 0 when total is 0.
func ParticipationPercentage(responded, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(responded) / float64(total) * 100))
}

// BuildSummary aggregates the responded records of t for date. names maps
// Telegram IDs to display names; missing IDs fall back to a generic label.
func BuildSummary(t *team.Team, date time.Time, records []*standup.ResponseRecord, names map[int64]string) *standup.Summary {
	responded := make([]*standup.ResponseRecord, 0, len(records))
	for _, r := range records {
		if r.Status.Responded() {
			responded = append(responded, r)
		}
	}

	order := make(map[int64]int, len(t.Automation.Participants))
	for i, id := range t.Automation.Participants {
		order[id] = i
	}
	sort.SliceStable(responded, func(i, j int) bool {
		oi, iok := order[responded[i].UserID]
		oj, jok := order[responded[j].UserID]
		if iok != jok {
			return iok
		}
		if iok && oi != oj {
			return oi < oj
		}
		return responded[i].UserID < responded[j].UserID
	})

	total := len(t.Automation.Participants)
	nonRespondents := total - len(responded)
	if nonRespondents < 0 {
		nonRespondents = 0
	}

	summary := &standup.Summary{
		TeamID:   t.ID,
		TeamName: t.Name,
		Date:     date,
		Participation: standup.Participation{
			Responded:      len(responded),
			Total:          total,
			Percentage:     ParticipationPercentage(len(responded), total),
			NonRespondents: nonRespondents,
		},
		Accomplishments: []standup.MemberEntry{},
		TodayFocus:      []standup.MemberEntry{},
		Blockers:        []standup.MemberEntry{},
	}

	for _, r := range responded {
		name, ok := names[r.UserID]
		if !ok {
			name = member.FallbackName(r.UserID)
		}
		entry := func(text string) standup.MemberEntry {
			return standup.MemberEntry{UserID: r.UserID, DisplayName: name, Text: text}
		}
		if r.Yesterday != "" {
			summary.Accomplishments = append(summary.Accomplishments, entry(r.Yesterday))
		}
		if r.Today != "" {
			summary.TodayFocus = append(summary.TodayFocus, entry(r.Today))
		}
		if !IsNoBlocker(r.Blockers) {
			summary.Blockers = append(summary.Blockers, entry(r.Blockers))
		}
	}
	return summary
}

// FormatSummary renders the summary posted to the team channel.
func FormatSummary(s *standup.Summary) string {
	var b strings.Builder
	title := s.TeamName
	if title == "" {
		title = fmt.Sprintf("Team %d", s.TeamID)
	}
	b.WriteString(fmt.Sprintf("Daily standup: %s, %s\n", title, s.Date.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Participation: %d/%d (%d%%)\n",
		s.Participation.Responded, s.Participation.Total, s.Participation.Percentage))
	if s.Participation.NonRespondents > 0 {
		b.WriteString(fmt.Sprintf("No response from %d member(s)\n", s.Participation.NonRespondents))
	}

	writeSection(&b, "Yesterday", s.Accomplishments, "nothing reported")
	writeSection(&b, "Today", s.TodayFocus, "nothing reported")
	writeSection(&b, "Blockers", s.Blockers, "no blockers")
	return b.String()
}

func writeSection(b *strings.Builder, heading string, entries []standup.MemberEntry, empty string) {
	b.WriteString("\n")
	b.WriteString(heading)
	b.WriteString(":\n")
	if len(entries) == 0 {
		b.WriteString("  " + empty + "\n")
		return
	}
	for _, e := range entries {
		b.WriteString(fmt.Sprintf("• %s: %s\n", e.DisplayName, e.Text))
	}
}
