package telegram

import "gopkg.in/telebot.v3"

// MaxMessageLength is the Telegram limit for one text message, in runes.
const MaxMessageLength = 4096

// Client delivers standup prompts to participants and summaries to team
// channels. Implementations split texts longer than MaxMessageLength.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}
