// Package tasks implements the scheduled maintenance jobs of goalbot.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/goalbot/internal/config"
)

// Store is the part of database.Store the tasks use.
type Store interface {
	RunSQLMaintenance(ctx context.Context) error
	PruneProcessedUpdates(ctx context.Context, cutoff time.Time) (int64, error)
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  Store
	Config *config.Config
	// Now defaults to time.Now.
	Now func() time.Time
}
