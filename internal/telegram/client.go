// Package telegram adapts the Telegram Bot API to the chat transport used by
// the dispatch loop: getUpdates with an explicit offset, sendMessage, and the
// command menu.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/edgard/goalbot/internal/config"
	"github.com/edgard/goalbot/internal/dispatch"
	"github.com/edgard/goalbot/internal/errs"
	"github.com/edgard/goalbot/internal/logger"
	"github.com/edgard/goalbot/internal/resilience"
)

// MaxMessageLength is the Bot API limit for one text message, in characters.
const MaxMessageLength = 4096

// httpSlack is added to the long-poll timeout for the HTTP client deadline.
const httpSlack = 10 * time.Second

var setLoggerOnce sync.Once

// Command is an entry of the bot's command menu.
type Command struct {
	Name        string
	Description string
}

// Client is a Bot API client that implements dispatch.Transport.
type Client struct {
	api         *tgbotapi.BotAPI
	pollTimeout time.Duration
	sendBreaker *resilience.Breaker
	log         *slog.Logger
}

// New connects to the public Bot API and checks the token with getMe.
func New(cfg config.TelegramConfig, log *slog.Logger) (*Client, error) {
	return NewWithEndpoint(cfg, tgbotapi.APIEndpoint, log)
}

// NewWithEndpoint is New against a custom endpoint, a printf pattern taking
// the token and the method name (see tgbotapi.APIEndpoint).
func NewWithEndpoint(cfg config.TelegramConfig, endpoint string, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = logger.Discard()
	}
	log = log.With("component", "telegram")

	// The library logger is package-global; the first client installs it.
	setLoggerOnce.Do(func() {
		if err := tgbotapi.SetLogger(botLogger{log}); err != nil {
			log.Warn("Failed to install Bot API logger", "error", err)
		}
	})

	httpClient := &http.Client{Timeout: cfg.PollTimeout + httpSlack}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, httpClient)
	if err != nil {
		return nil, errs.NewConfigError("failed to create telegram bot", err)
	}
	api.Debug = false

	log.Info("Authorized on Telegram", "username", api.Self.UserName)
	return &Client{
		api:         api,
		pollTimeout: cfg.PollTimeout,
		sendBreaker: resilience.NewBreaker(resilience.BreakerConfig{
			Name:        "telegram_send",
			MaxFailures: cfg.BreakerFailures,
			Cooldown:    cfg.BreakerCooldown,
			Logger:      log,
		}),
		log: log,
	}, nil
}

// Username returns the bot's username as reported by getMe.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

type fetchResult struct {
	updates []tgbotapi.Update
	err     error
}

// FetchUpdates long-polls getUpdates with offset=cursor. If ctx ends first the
// request is abandoned and ctx.Err() is returned.
func (c *Client) FetchUpdates(ctx context.Context, cursor int64) ([]dispatch.Update, error) {
	req := tgbotapi.UpdateConfig{
		Offset:         int(cursor),
		Timeout:        int(c.pollTimeout / time.Second),
		AllowedUpdates: []string{"message"},
	}

	done := make(chan fetchResult, 1)
	go func() {
		updates, err := c.api.GetUpdates(req)
		done <- fetchResult{updates: updates, err: err}
	}()

	var res fetchResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return nil, errs.NewTransportError("getUpdates failed", res.err)
	}

	updates := make([]dispatch.Update, 0, len(res.updates))
	for _, u := range res.updates {
		updates = append(updates, convertUpdate(u))
	}
	return updates, nil
}

func convertUpdate(u tgbotapi.Update) dispatch.Update {
	out := dispatch.Update{ID: int64(u.UpdateID)}
	if u.Message == nil || u.Message.Chat == nil {
		return out
	}

	username := u.Message.Chat.UserName
	if username == "" && u.Message.From != nil {
		username = u.Message.From.UserName
	}
	out.Message = &dispatch.Message{
		ChatID:   u.Message.Chat.ID,
		Username: username,
		Text:     u.Message.Text,
	}
	return out
}

// SendMessage sends text, split into several messages when it exceeds
// MaxMessageLength. After repeated failures sends are refused until the
// breaker cooldown has passed.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	for _, part := range SplitMessage(text, MaxMessageLength) {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.sendBreaker.Execute(ctx, func(context.Context) error {
			_, err := c.api.Send(tgbotapi.NewMessage(chatID, part))
			return err
		})
		if err != nil {
			return errs.NewTransportError("failed to send message", err)
		}
	}
	c.log.DebugContext(ctx, "Message sent", "chat_id", chatID, "text", logger.TruncateString(text, 64))
	return nil
}

// SetCommands registers the command menu shown by Telegram clients.
func (c *Client) SetCommands(ctx context.Context, commands []Command) error {
	botCommands := make([]tgbotapi.BotCommand, 0, len(commands))
	for _, cmd := range commands {
		botCommands = append(botCommands, tgbotapi.BotCommand{
			Command:     strings.TrimPrefix(cmd.Name, "/"),
			Description: cmd.Description,
		})
	}

	if _, err := c.api.Request(tgbotapi.NewSetMyCommands(botCommands...)); err != nil {
		return errs.NewTransportError("failed to setup bot commands", err)
	}
	c.log.InfoContext(ctx, "Bot commands registered", "count", len(botCommands))
	return nil
}

// SplitMessage cuts text into parts of at most limit characters, preferring
// line breaks as cut points.
func SplitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

// botLogger routes the library's internal log lines into slog.
type botLogger struct {
	log *slog.Logger
}

func (l botLogger) Println(v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l botLogger) Printf(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...))
}
