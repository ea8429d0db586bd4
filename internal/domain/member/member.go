package member

import (
	"database/sql"
	"strconv"
	"time"
)

// Member is a chat user that can take part in team standups.
type Member struct {
	ID         int64
	TelegramID int64
	FirstName  string
	LastName   sql.NullString // To handle optional last name
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName is the name shown in summaries.
func (m *Member) DisplayName() string {
	if m.LastName.Valid && m.LastName.String != "" {
		return m.FirstName + " " + m.LastName.String
	}
	return m.FirstName
}

// FallbackName is used when a participant has no member record.
func FallbackName(telegramID int64) string {
	return "user " + strconv.FormatInt(telegramID, 10)
}
