package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"standup_bot/internal/app"
	"standup_bot/internal/domain/team"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const unauthorizedReply = "Error: you are not allowed to run this command."

// RegisterAdminHandlers registers team and member administration commands.
// Only adminTelegramID may run them.
func RegisterAdminHandlers(
	ctx context.Context,
	b *telebot.Bot,
	automationService *app.AutomationService,
	memberService *app.MemberService,
	standupService *app.StandupService,
	adminTelegramID int64,
	baseLogger *logrus.Entry,
) {
	admin := func(command string, fn func(c telebot.Context, log *logrus.Entry) error) {
		b.Handle(command, func(c telebot.Context) error {
			handlerLogger := baseLogger.WithFields(logrus.Fields{
				"handler":   command,
				"sender_id": c.Sender().ID,
			})
			handlerLogger.Info("Command received")
			if c.Sender().ID != adminTelegramID {
				handlerLogger.Warn("Unauthorized access attempt")
				return c.Send(unauthorizedReply)
			}
			return fn(c, handlerLogger)
		})
	}

	// teamReply runs a team mutation and reports the resulting configuration.
	teamReply := func(c telebot.Context, log *logrus.Entry, t *team.Team, err error) error {
		if err != nil {
			log.WithError(err).Warn("Team command failed")
			return c.Send(userMessage(err))
		}
		return c.Send(describeTeam(t))
	}

	admin("/team_create", func(c telebot.Context, log *logrus.Entry) error {
		name := strings.TrimSpace(c.Message().Payload)
		if name == "" {
			return c.Send("Usage: /team_create <name>")
		}
		t, err := automationService.CreateTeam(ctx, name)
		return teamReply(c, log, t, err)
	})

	admin("/team_schedule", func(c telebot.Context, log *logrus.Entry) error {
		args := c.Args()
		if len(args) != 2 {
			return c.Send("Usage: /team_schedule <team_id> <HH:MM>")
		}
		teamID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("Error: team id must be a number.")
		}
		t, err := automationService.SetSchedule(ctx, teamID, args[1])
		return teamReply(c, log, t, err)
	})

	admin("/team_timeout", func(c telebot.Context, log *logrus.Entry) error {
		ids, err := parseIDs(c.Args(), 2)
		if err != nil {
			return c.Send("Usage: /team_timeout <team_id> <minutes>")
		}
		t, err := automationService.SetTimeout(ctx, ids[0], int(ids[1]))
		return teamReply(c, log, t, err)
	})

	admin("/team_timezone", func(c telebot.Context, log *logrus.Entry) error {
		args := c.Args()
		if len(args) != 2 {
			return c.Send("Usage: /team_timezone <team_id> <Area/City>")
		}
		teamID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("Error: team id must be a number.")
		}
		t, err := automationService.SetTimezone(ctx, teamID, args[1])
		return teamReply(c, log, t, err)
	})

	admin("/team_channel", func(c telebot.Context, log *logrus.Entry) error {
		ids, err := parseIDs(c.Args(), 2)
		if err != nil {
			return c.Send("Usage: /team_channel <team_id> <chat_id>")
		}
		t, err := automationService.SetChannel(ctx, ids[0], ids[1])
		return teamReply(c, log, t, err)
	})

	admin("/team_add_member", func(c telebot.Context, log *logrus.Entry) error {
		ids, err := parseIDs(c.Args(), 2)
		if err != nil {
			return c.Send("Usage: /team_add_member <team_id> <telegram_id>")
		}
		t, err := automationService.AddParticipant(ctx, ids[0], ids[1])
		return teamReply(c, log, t, err)
	})

	admin("/team_remove_member", func(c telebot.Context, log *logrus.Entry) error {
		ids, err := parseIDs(c.Args(), 2)
		if err != nil {
			return c.Send("Usage: /team_remove_member <team_id> <telegram_id>")
		}
		t, err := automationService.RemoveParticipant(ctx, ids[0], ids[1])
		return teamReply(c, log, t, err)
	})

	admin("/team_enable", func(c telebot.Context, log *logrus.Entry) error {
		ids, err := parseIDs(c.Args(), 1)
		if err != nil {
			return c.Send("Usage: /team_enable <team_id>")
		}
		t, err := automationService.Enable(ctx, ids[0])
		return teamReply(c, log, t, err)
	})

	admin("/team_disable", func(c telebot.Context, log *logrus.Entry) error {
		ids, err := parseIDs(c.Args(), 1)
		if err != nil {
			return c.Send("Usage: /team_disable <team_id>")
		}
		t, err := automationService.Disable(ctx, ids[0])
		return teamReply(c, log, t, err)
	})

	admin("/standup_start", func(c telebot.Context, log *logrus.Entry) error {
		ids, err := parseIDs(c.Args(), 1)
		if err != nil {
			return c.Send("Usage: /standup_start <team_id>")
		}
		res, err := standupService.StartNow(ctx, ids[0])
		if err != nil {
			log.WithError(err).Warn("Manual standup start failed")
			return c.Send(userMessage(err))
		}
		return c.Send(fmt.Sprintf("Standup started for %s with %d participant(s).",
			res.Date.Format("2006-01-02"), res.ParticipantCount))
	})

	admin("/add_member", func(c telebot.Context, log *logrus.Entry) error {
		args := c.Args()
		// Expected format: /add_member <TelegramID> <FirstName> [LastName]
		if len(args) < 2 || len(args) > 3 {
			return c.Send("Usage: /add_member <telegram_id> <first_name> [last_name]")
		}
		telegramID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("Error: Telegram ID must be a number.")
		}
		var lastName string
		if len(args) == 3 {
			lastName = args[2]
		}

		m, err := memberService.AddMember(ctx, telegramID, args[1], lastName)
		if err != nil {
			if err == app.ErrMemberAlreadyExists {
				log.WithError(err).Warn("Member already exists")
				return c.Send(fmt.Sprintf("Error: member with Telegram ID %d already exists.", telegramID))
			}
			log.WithError(err).Error("Failed to add member")
			return c.Send(userMessage(err))
		}
		log.WithField("member_id", m.ID).Info("Member added successfully")
		return c.Send(fmt.Sprintf("Member %s (ID: %d) added.", m.DisplayName(), m.TelegramID))
	})

	admin("/remove_member", func(c telebot.Context, log *logrus.Entry) error {
		ids, err := parseIDs(c.Args(), 1)
		if err != nil {
			return c.Send("Usage: /remove_member <telegram_id>")
		}
		m, err := memberService.RemoveMember(ctx, ids[0])
		if err != nil {
			if err == app.ErrMemberAlreadyInactive && m != nil {
				return c.Send(fmt.Sprintf("Member %s (ID: %d) was already deactivated.", m.DisplayName(), m.TelegramID))
			}
			log.WithError(err).Warn("Failed to remove member")
			return c.Send(userMessage(err))
		}
		log.WithField("member_id", m.ID).Info("Member deactivated successfully")
		return c.Send(fmt.Sprintf("Member %s (ID: %d) deactivated.", m.DisplayName(), m.TelegramID))
	})

	admin("/list_members", func(c telebot.Context, log *logrus.Entry) error {
		members, err := memberService.ListActive(ctx)
		if err != nil {
			log.WithError(err).Error("Failed to list members")
			return c.Send(userMessage(err))
		}
		if len(members) == 0 {
			return c.Send("No active members.")
		}
		var response strings.Builder
		response.WriteString("--- Active members ---\n")
		for _, m := range members {
			response.WriteString(fmt.Sprintf("Telegram ID: %d, Name: %s\n", m.TelegramID, m.DisplayName()))
		}
		return c.Send(response.String())
	})
}

func describeTeam(t *team.Team) string {
	a := t.Automation
	state := "disabled"
	if a.Enabled {
		state = "enabled"
	}
	schedule := a.ScheduleTime
	if schedule == "" {
		schedule = "not set"
	}
	return fmt.Sprintf("Team %d (%s)\nAutomation: %s\nSchedule: %s (%s)\nTimeout: %d min\nChannel: %d\nParticipants: %d",
		t.ID, t.Name, state, schedule, a.Timezone, a.ResponseTimeoutMinutes, a.ChannelID, len(a.Participants))
}
