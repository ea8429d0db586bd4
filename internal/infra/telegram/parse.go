package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"standup_bot/internal/domain/standup"
)

const teamPrefix = "team="

// parseAnswer reads "<1|2|3> [team=<id>] <text>".
func parseAnswer(payload string) (standup.Question, *int64, string, error) {
	fields := strings.Fields(payload)
	if len(fields) < 2 {
		return 0, nil, "", fmt.Errorf("usage: /answer <1|2|3> [team=<id>] <text>")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || !standup.Question(n).Valid() {
		return 0, nil, "", fmt.Errorf("question must be 1, 2 or 3")
	}
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(payload), fields[0]))

	var teamID *int64
	if strings.HasPrefix(fields[1], teamPrefix) {
		id, err := strconv.ParseInt(strings.TrimPrefix(fields[1], teamPrefix), 10, 64)
		if err != nil {
			return 0, nil, "", fmt.Errorf("invalid team id in %q", fields[1])
		}
		teamID = &id
		rest = strings.TrimSpace(strings.TrimPrefix(rest, fields[1]))
	}
	return standup.Question(n), teamID, rest, nil
}

// parseTeamAndDate reads "<teamID> [YYYY-MM-DD]".
func parseTeamAndDate(args []string) (int64, *time.Time, error) {
	if len(args) < 1 || len(args) > 2 {
		return 0, nil, fmt.Errorf("expected <team_id> [YYYY-MM-DD]")
	}
	teamID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("team id must be a number")
	}
	if len(args) == 1 {
		return teamID, nil, nil
	}
	day, err := time.ParseInLocation("2006-01-02", args[1], time.Local)
	if err != nil {
		return 0, nil, fmt.Errorf("date must be YYYY-MM-DD")
	}
	return teamID, &day, nil
}

func parseIDs(args []string, n int) ([]int64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d numeric arguments", n)
	}
	ids := make([]int64, n)
	for i, a := range args {
		v, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", a)
		}
		ids[i] = v
	}
	return ids, nil
}
