package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"standup_bot/internal/app"
	"standup_bot/internal/domain/member"
	"standup_bot/internal/domain/standup"
	"standup_bot/internal/domain/team"
	"standup_bot/internal/infra/clock"
	"standup_bot/internal/infra/config"
	idb "standup_bot/internal/infra/database"
	"standup_bot/internal/infra/httpapi"
	"standup_bot/internal/infra/logger"
	"standup_bot/internal/infra/memory"
	"standup_bot/internal/infra/scheduler"
	"standup_bot/internal/infra/telegram"

	"gopkg.in/telebot.v3"
)

type repositories struct {
	teams     team.Repository
	members   member.Repository
	responses standup.ResponseRepository
	sessions  standup.SessionRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.Infof("Configuration loaded. Storage: %s, Environment: %s, Admin ID: %d", cfg.Storage, cfg.Environment, cfg.AdminTelegramID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var repos repositories
	var db *sql.DB
	switch cfg.Storage {
	case config.StorageMemory:
		repos = repositories{
			teams:     memory.NewTeamRepository(),
			members:   memory.NewMemberRepository(),
			responses: memory.NewResponseRepository(),
			sessions:  memory.NewSessionRepository(),
		}
		mainLogger.Warn("Using in-memory storage; all data is lost on restart.")
	default:
		db, err = idb.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			mainLogger.Fatalf("FATAL: Could not connect to database: %v", err)
		}
		defer db.Close()
		repos = repositories{
			teams:     idb.NewPostgresTeamRepository(db),
			members:   idb.NewPostgresMemberRepository(db),
			responses: idb.NewPostgresResponseRepository(db),
			sessions:  idb.NewPostgresSessionRepository(db),
		}
		mainLogger.Info("Database connection established, repositories initialized.")
	}

	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := logger.Component("telebot").WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID).WithField("chat_id", c.Chat().ID)
			}
			entry.Error("Telegram handler error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.Fatalf("FATAL: Could not create Telegram bot: %v", err)
	}
	client := telegram.NewTelebotAdapter(bot)

	systemClock := clock.System{}
	baseLogger := logger.Component("app")

	standupService := app.NewStandupService(repos.teams, repos.members, repos.responses, repos.sessions, client, systemClock, baseLogger)
	automationService := app.NewAutomationService(repos.teams, cfg.DefaultResponseTimeout, baseLogger)
	memberService := app.NewMemberService(repos.members)

	handlerLogger := logger.Component("telegram")
	telegram.RegisterBotCommands(ctx, bot, cfg.AdminTelegramID, repos.members, handlerLogger)
	telegram.RegisterStandupHandlers(ctx, bot, standupService, handlerLogger)
	telegram.RegisterAdminHandlers(ctx, bot, automationService, memberService, standupService, cfg.AdminTelegramID, handlerLogger)
	mainLogger.Info("Telegram command handlers registered.")

	standupScheduler := scheduler.NewStandupScheduler(
		standupService,
		repos.teams,
		systemClock,
		logger.Component("scheduler"),
		cfg.CronSpecTrigger,
		time.Duration(cfg.RecoveryGraceMinutes)*time.Minute,
	)
	if err := standupScheduler.Start(ctx); err != nil {
		mainLogger.Fatalf("FATAL: Could not start scheduler: %v", err)
	}

	var server *http.Server
	if cfg.HTTPAddr != "" {
		server = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           httpapi.NewHandler(standupService, logger.Component("http")).Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			mainLogger.WithField("addr", server.Addr).Info("Starting HTTP API")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				mainLogger.WithError(err).Error("HTTP API stopped")
			}
		}()
	}

	// Start bot in a goroutine so it doesn't block graceful shutdown handling
	go bot.Start()
	mainLogger.Info("Application setup complete. Bot and scheduler are running.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	mainLogger.Info("Shutting down application...")
	standupScheduler.Stop()
	standupService.Close()
	bot.Stop()
	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			mainLogger.WithError(err).Warn("HTTP API shutdown failed")
		}
	}
	mainLogger.Info("Application shut down gracefully.")
}
