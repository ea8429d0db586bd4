package telegram

import (
	"fmt"
	"strings"
	"unicode/utf8"

	domainTelegram "standup_bot/internal/domain/telegram"

	"gopkg.in/telebot.v3"
)

// TelebotAdapter sends standup messages through a telebot bot.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends text to a user or group chat, in several messages when
// it exceeds the Telegram length limit. Link previews are off by default.
func (tba *TelebotAdapter) SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{DisableWebPagePreview: true}
	}

	chunks := splitMessage(text, domainTelegram.MaxMessageLength)
	for i, chunk := range chunks {
		if _, err := tba.bot.Send(telebot.ChatID(recipientChatID), chunk, options); err != nil {
			return fmt.Errorf("failed to send part %d/%d to chat %d: %w", i+1, len(chunks), recipientChatID, err)
		}
	}
	return nil
}

// splitMessage cuts text into pieces of at most limit runes, preferring
// line breaks. A single line longer than limit is cut mid-line.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0
	flush := func() {
		if chunk := strings.TrimRight(current.String(), "\n"); chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
		currentLen = 0
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		lineLen := utf8.RuneCountInString(line)
		if currentLen+lineLen > limit {
			flush()
		}
		for lineLen > limit {
			runes := []rune(line)
			chunks = append(chunks, string(runes[:limit]))
			line = string(runes[limit:])
			lineLen -= limit
		}
		current.WriteString(line)
		currentLen += lineLen
	}
	flush()
	return chunks
}
