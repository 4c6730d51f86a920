package tasks

import (
	"context"
	"time"
)

// ScheduledTaskFunc is the signature of every scheduled task. The context is
// cancelled when the scheduler shuts down.
type ScheduledTaskFunc func(ctx context.Context) error

// Task names, as used under scheduler.tasks in the configuration.
const (
	SQLMaintenance        = "sql_maintenance"
	ProcessedUpdatesPrune = "processed_updates_prune"
)

// RegisterAllTasks returns every known task keyed by name.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	tasks := make(map[string]ScheduledTaskFunc)
	tasks[SQLMaintenance] = newSQLMaintenanceTask(deps)
	tasks[ProcessedUpdatesPrune] = newProcessedUpdatesPruneTask(deps)

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
