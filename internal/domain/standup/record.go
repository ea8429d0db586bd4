package standup

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinAnswerLength = 3
	MaxAnswerLength = 500
)

// Question identifies one of the three fixed standup questions.
type Question int

const (
	QuestionYesterday Question = 1
	QuestionToday     Question = 2
	QuestionBlockers  Question = 3
)

// Questions lists the questions in the order they are asked.
var Questions = []Question{QuestionYesterday, QuestionToday, QuestionBlockers}

// Valid reports whether q is 1, 2 or 3.
func (q Question) Valid() bool {
	return q >= QuestionYesterday && q <= QuestionBlockers
}

// Prompt is the text sent to a participant for q.
func (q Question) Prompt() string {
	switch q {
	case QuestionYesterday:
		return "What did you work on yesterday?"
	case QuestionToday:
		return "What are you working on today?"
	case QuestionBlockers:
		return "Anything blocking you?"
	default:
		return ""
	}
}

// ResponseRecord is one participant's answers for one team and day.
// It is never deleted; together with its siblings for the same team and
// date it forms the historical record of a session.
type ResponseRecord struct {
	ID          int64
	TeamID      int64
	UserID      int64
	Date        time.Time // local midnight
	Yesterday   string
	Today       string
	Blockers    string
	Status      Status
	SubmittedAt *time.Time
	EditedAt    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewPendingRecord builds an empty pending record for (teamID, userID, date).
func NewPendingRecord(teamID, userID int64, date time.Time) *ResponseRecord {
	return &ResponseRecord{
		TeamID: teamID,
		UserID: userID,
		Date:   date,
		Status: StatusPending,
	}
}

// AnswerLength is the length used for bounds checks: runes after trimming.
func AnswerLength(text string) int {
	return utf8.RuneCountInString(strings.TrimSpace(text))
}

// ValidAnswer reports whether text satisfies the answer length bounds.
func ValidAnswer(text string) bool {
	n := AnswerLength(text)
	return n >= MinAnswerLength && n <= MaxAnswerLength
}

// Answer returns the slot for q.
func (r *ResponseRecord) Answer(q Question) string {
	switch q {
	case QuestionYesterday:
		return r.Yesterday
	case QuestionToday:
		return r.Today
	case QuestionBlockers:
		return r.Blockers
	}
	return ""
}

// SetAnswer overwrites the slot for q.
func (r *ResponseRecord) SetAnswer(q Question, text string) {
	switch q {
	case QuestionYesterday:
		r.Yesterday = text
	case QuestionToday:
		r.Today = text
	case QuestionBlockers:
		r.Blockers = text
	}
}

// Complete reports whether every slot holds a valid answer.
func (r *ResponseRecord) Complete() bool {
	for _, q := range Questions {
		if !ValidAnswer(r.Answer(q)) {
			return false
		}
	}
	return true
}

// NextQuestion returns the first question without a valid answer, or 0.
func (r *ResponseRecord) NextQuestion() Question {
	for _, q := range Questions {
		if !ValidAnswer(r.Answer(q)) {
			return q
		}
	}
	return 0
}

// Escalated reports whether the session escalation already closed the record out.
func (r *ResponseRecord) Escalated() bool {
	return r.Status == StatusLate || r.Status == StatusMissed
}

// Recompute sets Status from the slots. A complete record becomes
// submitted, or late once escalated; an incomplete one falls back to
// pending, or missed once escalated. SubmittedAt is stamped on the
// first completion only.
func (r *ResponseRecord) Recompute(now time.Time) {
	escalated := r.Escalated()
	if r.Complete() {
		if escalated {
			r.Status = StatusLate
		} else {
			r.Status = StatusSubmitted
		}
		if r.SubmittedAt == nil {
			at := now
			r.SubmittedAt = &at
		}
		return
	}
	if escalated {
		r.Status = StatusMissed
	} else {
		r.Status = StatusPending
	}
}

