// Package bot wires the long-running parts of goalbot together: the inbound
// dispatch loop, the task scheduler and the verification HTTP API.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/goalbot/internal/config"
	"github.com/edgard/goalbot/internal/telegram"
)

// Dispatcher is the inbound loop.
type Dispatcher interface {
	StartCursor(ctx context.Context) (int64, error)
	Run(ctx context.Context, cursor int64) error
}

// CommandMenu registers the chat command menu.
type CommandMenu interface {
	SetCommands(ctx context.Context, commands []telegram.Command) error
}

// Bot represents the main application and manages its components' lifecycle.
type Bot struct {
	logger     *slog.Logger
	cfg        *config.Config
	dispatcher Dispatcher
	scheduler  *Scheduler
	menu       CommandMenu
	commands   []telegram.Command
	handler    http.Handler
}

// NewBot creates the orchestrator. handler may be nil, and the HTTP server
// also stays off when http.addr is empty.
func NewBot(
	logger *slog.Logger,
	cfg *config.Config,
	dispatcher Dispatcher,
	scheduler *Scheduler,
	menu CommandMenu,
	commands []telegram.Command,
	handler http.Handler,
) *Bot {
	return &Bot{
		logger:     logger.With("component", "bot_orchestrator"),
		cfg:        cfg,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		menu:       menu,
		commands:   commands,
		handler:    handler,
	}
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator")

	if b.menu != nil {
		if err := b.menu.SetCommands(ctx, b.commands); err != nil {
			b.logger.Warn("Failed to register command menu", "error", err)
		}
	}

	cursor, err := b.dispatcher.StartCursor(ctx)
	if err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting dispatch loop", "cursor", cursor)
		if err := b.dispatcher.Run(gCtx, cursor); err != nil {
			return fmt.Errorf("dispatch loop failed: %w", err)
		}
		if gCtx.Err() == nil {
			return fmt.Errorf("dispatch loop stopped unexpectedly")
		}
		return nil
	})

	if b.scheduler != nil {
		g.Go(func() error {
			if err := b.scheduler.Start(); err != nil {
				b.logger.Error("Failed to start scheduler", "error", err)
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			b.logger.Info("Shutdown signal received, stopping scheduler")
			if err := b.scheduler.Stop(); err != nil {
				b.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	if b.handler != nil && b.cfg.HTTP.Addr != "" {
		srv := &http.Server{
			Addr:              b.cfg.HTTP.Addr,
			Handler:           b.handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return gCtx },
		}

		g.Go(func() error {
			b.logger.Info("HTTP server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server failed: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), b.cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				b.logger.Error("HTTP server forced to shutdown", "error", err)
			}
			return nil
		})
	}

	b.logger.Info("Bot orchestrator running")
	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully")
	return nil
}
