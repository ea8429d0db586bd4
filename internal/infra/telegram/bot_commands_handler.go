// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"standup_bot/internal/domain/member"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	adminTelegramID int64,
	memberRepo member.Repository,
	baseLogger *logrus.Entry,
) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if senderID == adminTelegramID {
			return c.Send(fmt.Sprintf("Hi %s! I'm ready. Use /help for the admin commands.", c.Sender().FirstName))
		}

		m, err := memberRepo.GetByTelegramID(ctx, senderID)
		if err == nil {
			if m.IsActive {
				return c.Send(fmt.Sprintf("Hi %s! I'll message you when your team's standup starts.", m.FirstName))
			}
			return c.Send("Your account is inactive. Please contact the administrator.")
		} else if !errors.Is(err, member.ErrNotFound) {
			logCtx.WithError(err).Error("Error checking member status for /start command")
			return c.Send("Something went wrong while checking your status. Please try again later.")
		}

		return c.Send(fmt.Sprintf("Hi! I run daily standups. Ask the administrator to add you; your Telegram ID is %d.", senderID))
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID).Info("Processing /help command")

		var helpText strings.Builder
		helpText.WriteString("Standup commands:\n\n")
		helpText.WriteString("/answer <1|2|3> [team=<id>] <text> - answer a question\n")
		helpText.WriteString("/y, /t, /b <text> - answer yesterday, today or blockers\n")
		helpText.WriteString("/standup_status <team_id> [YYYY-MM-DD]\n")
		helpText.WriteString("/standup_summary <team_id> [YYYY-MM-DD]\n")

		if senderID == adminTelegramID {
			helpText.WriteString("\nAdmin commands:\n\n")
			helpText.WriteString("/team_create <name>\n")
			helpText.WriteString("/team_schedule <team_id> <HH:MM> (06:00-10:00)\n")
			helpText.WriteString("/team_timeout <team_id> <minutes> (30-480)\n")
			helpText.WriteString("/team_timezone <team_id> <Area/City>\n")
			helpText.WriteString("/team_channel <team_id> <chat_id>\n")
			helpText.WriteString("/team_add_member, /team_remove_member <team_id> <telegram_id>\n")
			helpText.WriteString("/team_enable, /team_disable <team_id>\n")
			helpText.WriteString("/standup_start <team_id>\n")
			helpText.WriteString("/add_member <telegram_id> <first_name> [last_name]\n")
			helpText.WriteString("/remove_member <telegram_id>\n")
			helpText.WriteString("/list_members\n")
		}
		return c.Send(helpText.String())
	})
}
