package tasks

import (
	"context"
	"fmt"
)

// newProcessedUpdatesPruneTask drops ledger rows older than the configured
// retention.
func newProcessedUpdatesPruneTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", ProcessedUpdatesPrune)

	return func(ctx context.Context) error {
		cutoff := deps.Now().Add(-deps.Config.Bot.ProcessedUpdateRetention)

		removed, err := deps.Store.PruneProcessedUpdates(ctx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "Pruning processed updates failed", "error", err)
			return fmt.Errorf("prune processed updates: %w", err)
		}

		log.InfoContext(ctx, "Pruned processed updates", "removed", removed, "cutoff", cutoff)
		return nil
	}
}
