package tasks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edgard/goalbot/internal/bot/tasks"
	"github.com/edgard/goalbot/internal/config"
	"github.com/edgard/goalbot/internal/logger"
)

type fakeStore struct {
	vacuumErr error
	vacuums   int
	cutoff    time.Time
}

func (f *fakeStore) RunSQLMaintenance(context.Context) error {
	f.vacuums++
	return f.vacuumErr
}

func (f *fakeStore) PruneProcessedUpdates(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, nil
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()

	registry := tasks.RegisterAllTasks(tasks.TaskDeps{Logger: logger.Discard(), Store: &fakeStore{}, Config: config.Default()})
	for name := range config.DefaultTasks {
		if _, ok := registry[name]; !ok {
			t.Errorf("default task %q is not registered", name)
		}
	}
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()

	store := &fakeStore{vacuumErr: errors.New("locked")}
	registry := tasks.RegisterAllTasks(tasks.TaskDeps{Logger: logger.Discard(), Store: store, Config: config.Default()})

	if err := registry[tasks.SQLMaintenance](context.Background()); err == nil {
		t.Error("task error = nil, want store error")
	}
	if store.vacuums != 1 {
		t.Errorf("vacuums = %d, want 1", store.vacuums)
	}
}

func TestProcessedUpdatesPruneTask(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	cfg := config.Default()
	cfg.Bot.ProcessedUpdateRetention = 48 * time.Hour
	store := &fakeStore{}
	registry := tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger: logger.Discard(),
		Store:  store,
		Config: cfg,
		Now:    func() time.Time { return now },
	})

	if err := registry[tasks.ProcessedUpdatesPrune](context.Background()); err != nil {
		t.Fatalf("task error = %v", err)
	}
	if want := now.Add(-48 * time.Hour); !store.cutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", store.cutoff, want)
	}
}
