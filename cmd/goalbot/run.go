package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgard/goalbot/internal/bot"
	"github.com/edgard/goalbot/internal/bot/tasks"
	"github.com/edgard/goalbot/internal/config"
	"github.com/edgard/goalbot/internal/conversation"
	"github.com/edgard/goalbot/internal/database"
	"github.com/edgard/goalbot/internal/dispatch"
	"github.com/edgard/goalbot/internal/httpapi"
	"github.com/edgard/goalbot/internal/logger"
	"github.com/edgard/goalbot/internal/telegram"
	"github.com/edgard/goalbot/internal/verification"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot",
		Long:  "Connects to Telegram and serves chats until interrupted. Also runs the scheduled tasks and, when http.addr is set, the verification API.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), opts.configPath)
		},
	}
}

// runBot initializes every component (config, logger, db, telegram, dialog,
// scheduler, http api) and blocks until ctx is cancelled or a component fails.
func runBot(ctx context.Context, configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return err
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return err
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	tg, err := telegram.New(cfg.Telegram, log)
	if err != nil {
		log.Error("Failed to create Telegram client", "error", err)
		return err
	}
	cfg.Telegram.BotUsername = tg.Username()
	log.Info("Retrieved bot info", "bot_username", cfg.Telegram.BotUsername)

	gate := verification.NewGate(verification.Deps{
		Logger: log,
		Config: cfg,
		Store:  store,
		Sender: tg,
	})
	machine := conversation.NewMachine(conversation.Deps{
		Logger: log,
		Config: cfg,
		Store:  store,
		Sender: tg,
	})
	dispatcher := dispatch.New(dispatch.Deps{
		Logger:       log,
		Config:       cfg,
		Store:        store,
		Transport:    tg,
		Gate:         gate,
		Conversation: machine,
	})

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	}))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return err
	}

	var handler http.Handler
	if cfg.HTTP.Addr != "" {
		handler = httpapi.NewRouter(httpapi.Deps{
			Logger:   log,
			APIToken: cfg.HTTP.APIToken,
			Verifier: gate,
			Store:    store,
		})
	}

	app := bot.NewBot(log, cfg, dispatcher, sched, tg, menuCommands(machine.Commands()), handler)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return runErr
	}

	log.Info("Bot stopped gracefully.")
	return nil
}

func menuCommands(commands []conversation.Command) []telegram.Command {
	out := make([]telegram.Command, 0, len(commands))
	for _, c := range commands {
		out = append(out, telegram.Command{Name: c.Name, Description: c.Description})
	}
	return out
}
