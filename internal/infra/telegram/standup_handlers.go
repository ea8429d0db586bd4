// internal/infra/telegram/standup_handlers.go
package telegram

import (
	"context"
	"fmt"

	"standup_bot/internal/app"
	"standup_bot/internal/domain/standup"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterStandupHandlers registers the participant-facing standup commands.
func RegisterStandupHandlers(ctx context.Context, b *telebot.Bot, standupService *app.StandupService, baseLogger *logrus.Entry) {
	answer := func(c telebot.Context, q standup.Question, payload string) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "answer",
			"sender_id": c.Sender().ID,
			"question":  int(q),
		})

		var teamID *int64
		text := payload
		if q == 0 {
			var err error
			q, teamID, text, err = parseAnswer(payload)
			if err != nil {
				return c.Send("Error: " + err.Error())
			}
		}

		res, err := standupService.RecordAnswer(ctx, c.Sender().ID, q, text, teamID)
		if err != nil {
			handlerLogger.WithError(err).Warn("Failed to record answer")
			return c.Send(userMessage(err))
		}

		if res.Next == 0 {
			return c.Send("Thanks! Your standup is complete.")
		}
		return c.Send(fmt.Sprintf("Got it.\n\n%d. %s\nReply with /answer %d <your answer>.", res.Next, res.Next.Prompt(), res.Next))
	}

	b.Handle("/answer", func(c telebot.Context) error {
		return answer(c, 0, c.Message().Payload)
	})
	b.Handle("/y", func(c telebot.Context) error {
		return answer(c, standup.QuestionYesterday, c.Message().Payload)
	})
	b.Handle("/t", func(c telebot.Context) error {
		return answer(c, standup.QuestionToday, c.Message().Payload)
	})
	b.Handle("/b", func(c telebot.Context) error {
		return answer(c, standup.QuestionBlockers, c.Message().Payload)
	})

	b.Handle("/standup_status", func(c telebot.Context) error {
		teamID, date, err := parseTeamAndDate(c.Args())
		if err != nil {
			return c.Send("Usage: /standup_status <team_id> [YYYY-MM-DD]")
		}
		counts, err := standupService.GetStatus(ctx, teamID, date)
		if err != nil {
			baseLogger.WithError(err).WithField("team_id", teamID).Warn("Failed to get standup status")
			return c.Send(userMessage(err))
		}
		return c.Send(fmt.Sprintf("Pending: %d\nSubmitted: %d\nLate: %d\nMissed: %d\nTotal: %d",
			counts.Pending, counts.Submitted, counts.Late, counts.Missed, counts.Total))
	})

	b.Handle("/standup_summary", func(c telebot.Context) error {
		teamID, date, err := parseTeamAndDate(c.Args())
		if err != nil {
			return c.Send("Usage: /standup_summary <team_id> [YYYY-MM-DD]")
		}
		summary, err := standupService.GetSummary(ctx, teamID, date)
		if err != nil {
			baseLogger.WithError(err).WithField("team_id", teamID).Warn("Failed to build standup summary")
			return c.Send(userMessage(err))
		}
		return c.Send(app.FormatSummary(summary))
	})
}
