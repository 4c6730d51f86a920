package config

import "time"

// Default values for configuration
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false

	DefaultDBPath = "goalbot.db"

	DefaultTelegramPollTimeout     = 30 * time.Second
	DefaultTelegramBreakerFailures = 5
	DefaultTelegramBreakerCooldown = 30 * time.Second

	DefaultVerificationCodeLength   = 8
	DefaultFetchRetryDelay          = 3 * time.Second
	DefaultProcessedUpdateRetention = 30 * 24 * time.Hour

	DefaultHTTPAddr            = ""
	DefaultHTTPShutdownTimeout = 10 * time.Second
)

// DefaultMessages are the English bot texts.
var DefaultMessages = MessagesConfig{
	VerificationCode:      "Your verification code is %s\nEnter it on the website to link this chat to your account.",
	VerificationCompleted: "Verification completed. Send /goals to list your goals or /create to add one.",
	GoalsHeader:           "Your goals:",
	NoGoals:               "You have no active goals.",
	ChooseCategory:        "Choose a category:",
	NoCategories:          "You have no categories to add a goal to.",
	CategoryNotFound:      "Category not found.",
	EnterGoalTitle:        "Enter the goal title:",
	GoalTitleEmpty:        "The goal title cannot be empty. Enter the goal title:",
	GoalTitleTooLong:      "The goal title must be at most %d characters. Enter the goal title:",
	GoalCreated:           "Goal #%d %q created.",
	GoalForbidden:         "You can only read goals in this category.",
	UnknownCommand:        "Unknown command.",
	GeneralError:          "An error occurred. Please try again later.",
	CommandGoals:          "List your active goals",
	CommandCreate:         "Create a new goal",
}

// DefaultTasks are the scheduled tasks enabled out of the box.
var DefaultTasks = map[string]TaskConfig{
	"sql_maintenance":         {Enabled: true, Schedule: "0 0 4 * * *"},
	"processed_updates_prune": {Enabled: true, Schedule: "0 30 4 * * *"},
}

// defaults maps every viper key to its default. Keys must exist here for
// environment overrides to be picked up by Unmarshal.
func defaults() map[string]any {
	tasks := make(map[string]any, len(DefaultTasks))
	for name, task := range DefaultTasks {
		tasks[name] = map[string]any{"enabled": task.Enabled, "schedule": task.Schedule}
	}

	return map[string]any{
		"logger.level": DefaultLogLevel,
		"logger.json":  DefaultLogJSON,

		"database.path": DefaultDBPath,

		"telegram.token":            "",
		"telegram.poll_timeout":     DefaultTelegramPollTimeout,
		"telegram.breaker_failures": DefaultTelegramBreakerFailures,
		"telegram.breaker_cooldown": DefaultTelegramBreakerCooldown,

		"bot.verification_code_length":   DefaultVerificationCodeLength,
		"bot.fetch_retry_delay":          DefaultFetchRetryDelay,
		"bot.processed_update_retention": DefaultProcessedUpdateRetention,

		"http.addr":             DefaultHTTPAddr,
		"http.api_token":        "",
		"http.shutdown_timeout": DefaultHTTPShutdownTimeout,

		"messages.verification_code":      DefaultMessages.VerificationCode,
		"messages.verification_completed": DefaultMessages.VerificationCompleted,
		"messages.goals_header":           DefaultMessages.GoalsHeader,
		"messages.no_goals":               DefaultMessages.NoGoals,
		"messages.choose_category":        DefaultMessages.ChooseCategory,
		"messages.no_categories":          DefaultMessages.NoCategories,
		"messages.category_not_found":     DefaultMessages.CategoryNotFound,
		"messages.enter_goal_title":       DefaultMessages.EnterGoalTitle,
		"messages.goal_title_empty":       DefaultMessages.GoalTitleEmpty,
		"messages.goal_title_too_long":    DefaultMessages.GoalTitleTooLong,
		"messages.goal_created":           DefaultMessages.GoalCreated,
		"messages.goal_forbidden":         DefaultMessages.GoalForbidden,
		"messages.unknown_command":        DefaultMessages.UnknownCommand,
		"messages.general_error":          DefaultMessages.GeneralError,
		"messages.command_goals":          DefaultMessages.CommandGoals,
		"messages.command_create":         DefaultMessages.CommandCreate,

		"scheduler.tasks": tasks,
	}
}

// Default returns a Config filled with the built-in defaults. The Telegram
// token is left empty, so the result does not pass Validate as is.
func Default() *Config {
	tasks := make(map[string]TaskConfig, len(DefaultTasks))
	for name, task := range DefaultTasks {
		tasks[name] = task
	}

	return &Config{
		Logger:   LoggerConfig{Level: DefaultLogLevel, JSON: DefaultLogJSON},
		Database: DatabaseConfig{Path: DefaultDBPath},
		Telegram: TelegramConfig{
			PollTimeout:     DefaultTelegramPollTimeout,
			BreakerFailures: DefaultTelegramBreakerFailures,
			BreakerCooldown: DefaultTelegramBreakerCooldown,
		},
		Bot: BotConfig{
			VerificationCodeLength:   DefaultVerificationCodeLength,
			FetchRetryDelay:          DefaultFetchRetryDelay,
			ProcessedUpdateRetention: DefaultProcessedUpdateRetention,
		},
		HTTP:      HTTPConfig{Addr: DefaultHTTPAddr, ShutdownTimeout: DefaultHTTPShutdownTimeout},
		Messages:  DefaultMessages,
		Scheduler: SchedulerConfig{Tasks: tasks},
	}
}
