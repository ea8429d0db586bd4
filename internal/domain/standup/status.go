package standup

// Status represents where a participant's daily response stands.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusLate      Status = "late"   // completed after the session was escalated
	StatusMissed    Status = "missed" // still incomplete when the session was escalated
)

// Responded reports whether the status counts towards participation.
func (s Status) Responded() bool {
	return s == StatusSubmitted || s == StatusLate
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSubmitted, StatusLate, StatusMissed:
		return true
	}
	return false
}
