package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/edgard/goalbot/internal/config"
	"github.com/edgard/goalbot/internal/errs"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_DefaultsWithEnvToken(t *testing.T) {
	t.Setenv("GOALBOT_TELEGRAM_TOKEN", "123:abc")

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("Telegram.Token = %q, want %q", cfg.Telegram.Token, "123:abc")
	}
	if cfg.Logger.Level != config.DefaultLogLevel {
		t.Errorf("Logger.Level = %q, want %q", cfg.Logger.Level, config.DefaultLogLevel)
	}
	if cfg.Database.Path != config.DefaultDBPath {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, config.DefaultDBPath)
	}
	if cfg.Telegram.PollTimeout != config.DefaultTelegramPollTimeout {
		t.Errorf("Telegram.PollTimeout = %v, want %v", cfg.Telegram.PollTimeout, config.DefaultTelegramPollTimeout)
	}
	if cfg.Telegram.BreakerFailures != config.DefaultTelegramBreakerFailures || cfg.Telegram.BreakerCooldown != config.DefaultTelegramBreakerCooldown {
		t.Errorf("Telegram breaker = %d/%v, want defaults", cfg.Telegram.BreakerFailures, cfg.Telegram.BreakerCooldown)
	}
	if cfg.Bot.VerificationCodeLength != config.DefaultVerificationCodeLength {
		t.Errorf("Bot.VerificationCodeLength = %d, want %d", cfg.Bot.VerificationCodeLength, config.DefaultVerificationCodeLength)
	}
	if cfg.Messages.VerificationCode != config.DefaultMessages.VerificationCode {
		t.Errorf("Messages.VerificationCode = %q, want default", cfg.Messages.VerificationCode)
	}
	task, ok := cfg.Scheduler.Tasks["sql_maintenance"]
	if !ok || !task.Enabled || task.Schedule == "" {
		t.Errorf("Scheduler.Tasks[sql_maintenance] = %+v, want enabled default", task)
	}
}

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
logger:
  level: debug
  json: true
database:
  path: /var/lib/goalbot/data.db
telegram:
  token: from-file
  poll_timeout: 45s
bot:
  verification_code_length: 10
http:
  addr: ":8080"
  api_token: secret
messages:
  unknown_command: "What?"
`)
	t.Setenv("GOALBOT_TELEGRAM_TOKEN", "from-env")

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Telegram.Token != "from-env" {
		t.Errorf("Telegram.Token = %q, want env override", cfg.Telegram.Token)
	}
	if cfg.Logger.Level != "debug" || !cfg.Logger.JSON {
		t.Errorf("Logger = %+v, want debug/json", cfg.Logger)
	}
	if cfg.Database.Path != "/var/lib/goalbot/data.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Telegram.PollTimeout != 45*time.Second {
		t.Errorf("Telegram.PollTimeout = %v, want 45s", cfg.Telegram.PollTimeout)
	}
	if cfg.Bot.VerificationCodeLength != 10 {
		t.Errorf("Bot.VerificationCodeLength = %d, want 10", cfg.Bot.VerificationCodeLength)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.HTTP.APIToken != "secret" {
		t.Errorf("HTTP = %+v", cfg.HTTP)
	}
	if cfg.Messages.UnknownCommand != "What?" {
		t.Errorf("Messages.UnknownCommand = %q, want %q", cfg.Messages.UnknownCommand, "What?")
	}
	if cfg.Messages.GoalsHeader != config.DefaultMessages.GoalsHeader {
		t.Errorf("Messages.GoalsHeader = %q, want default", cfg.Messages.GoalsHeader)
	}
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantSub string
	}{
		{
			name:    "missing token",
			content: "logger:\n  level: info\n",
			wantSub: "Token",
		},
		{
			name:    "bad log level",
			content: "telegram:\n  token: t\nlogger:\n  level: loud\n",
			wantSub: "Level",
		},
		{
			name:    "short verification code",
			content: "telegram:\n  token: t\nbot:\n  verification_code_length: 3\n",
			wantSub: "VerificationCodeLength",
		},
		{
			name:    "http without token",
			content: "telegram:\n  token: t\nhttp:\n  addr: \":8080\"\n",
			wantSub: "APIToken",
		},
		{
			name:    "enabled task without schedule",
			content: "telegram:\n  token: t\nscheduler:\n  tasks:\n    custom:\n      enabled: true\n",
			wantSub: "Schedule",
		},
	}

	t.Setenv("GOALBOT_TELEGRAM_TOKEN", "")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)

			_, err := config.LoadConfig(path)
			if err == nil {
				t.Fatal("LoadConfig() error = nil, want validation error")
			}
			if errs.Code(err) != errs.CodeConfig {
				t.Errorf("Code(err) = %q, want %q", errs.Code(err), errs.CodeConfig)
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	path := writeConfig(t, "telegram: [unterminated\n")

	_, err := config.LoadConfig(path)
	if err == nil {
		t.Fatal("LoadConfig() error = nil, want parse error")
	}
	var appErr errs.ApplicationError
	if !errors.As(err, &appErr) || appErr.Code() != errs.CodeConfig {
		t.Errorf("error = %v, want config error", err)
	}
}

func TestDefault_ValidWithToken(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() on Default() without token error = nil, want error")
	}

	cfg.Telegram.Token = "123:abc"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	cfg.Scheduler.Tasks["extra"] = config.TaskConfig{Enabled: true}
	if _, ok := config.DefaultTasks["extra"]; ok {
		t.Error("Default() shares its task map with DefaultTasks")
	}
}

func TestLoad_SkipsValidation(t *testing.T) {
	t.Setenv("GOALBOT_TELEGRAM_TOKEN", "")
	t.Setenv("GOALBOT_DATABASE_PATH", "/tmp/admin.db")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/tmp/admin.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if _, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig() without token error = nil, want validation error")
	}
}
