// Package config provides configuration loading, validation, and management
// for goalbot. It reads an optional YAML file, GOALBOT_* environment variables
// and built-in defaults, then validates the result.
package config

import "time"

// Config defines the application configuration for all components.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Bot       BotConfig       `mapstructure:"bot"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Messages  MessagesConfig  `mapstructure:"messages"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LoggerConfig controls the slog handler.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig locates the SQLite database file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// TelegramConfig holds the Bot API credentials and long-poll settings.
type TelegramConfig struct {
	Token       string        `mapstructure:"token"        validate:"required"`
	PollTimeout time.Duration `mapstructure:"poll_timeout" validate:"min=1s,max=10m"`

	// Consecutive send failures that open the circuit, and how long it stays open.
	BreakerFailures int           `mapstructure:"breaker_failures" validate:"min=1,max=100"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown" validate:"min=1s,max=10m"`

	// BotUsername is filled at runtime from getMe.
	BotUsername string `mapstructure:"-"`
}

// BotConfig tunes the verification gate and the dispatch loop.
type BotConfig struct {
	VerificationCodeLength   int           `mapstructure:"verification_code_length"   validate:"min=6,max=32"`
	FetchRetryDelay          time.Duration `mapstructure:"fetch_retry_delay"          validate:"min=100ms,max=5m"`
	ProcessedUpdateRetention time.Duration `mapstructure:"processed_update_retention" validate:"min=1h"`
}

// HTTPConfig configures the verification API. An empty Addr disables the server.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	APIToken        string        `mapstructure:"api_token"        validate:"required_with=Addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s,max=2m"`
}

// MessagesConfig holds every text the bot sends. Strings containing a
// format verb are passed through fmt.Sprintf with the documented arguments.
type MessagesConfig struct {
	VerificationCode      string `mapstructure:"verification_code"      validate:"required,contains=%s"` // code
	VerificationCompleted string `mapstructure:"verification_completed" validate:"required"`
	GoalsHeader           string `mapstructure:"goals_header"           validate:"required"`
	NoGoals               string `mapstructure:"no_goals"               validate:"required"`
	ChooseCategory        string `mapstructure:"choose_category"        validate:"required"`
	NoCategories          string `mapstructure:"no_categories"          validate:"required"`
	CategoryNotFound      string `mapstructure:"category_not_found"     validate:"required"`
	EnterGoalTitle        string `mapstructure:"enter_goal_title"       validate:"required"`
	GoalTitleEmpty        string `mapstructure:"goal_title_empty"       validate:"required"`
	GoalTitleTooLong      string `mapstructure:"goal_title_too_long"    validate:"required,contains=%d"` // max length
	GoalCreated           string `mapstructure:"goal_created"           validate:"required"`             // id, title
	GoalForbidden         string `mapstructure:"goal_forbidden"         validate:"required"`
	UnknownCommand        string `mapstructure:"unknown_command"        validate:"required"`
	GeneralError          string `mapstructure:"general_error"          validate:"required"`
	CommandGoals          string `mapstructure:"command_goals"          validate:"required"`
	CommandCreate         string `mapstructure:"command_create"         validate:"required"`
}

// SchedulerConfig lists scheduled tasks by registry name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a task and gives its cron schedule (seconds field included).
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}
