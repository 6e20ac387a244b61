package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"eeytech.com/console/internal/obs"
)

// Pruner deletes expired session records and reports how many were removed.
type Pruner interface {
	PruneExpired(ctx context.Context) (int64, error)
}

// PruneSessionsJob handles TaskPruneSessions.
type PruneSessionsJob struct {
	pruner Pruner
	logger *slog.Logger
}

// NewPruneSessionsJob initialises the pruning handler.
func NewPruneSessionsJob(pruner Pruner, logger *slog.Logger) *PruneSessionsJob {
	if logger == nil {
		logger = obs.Logger()
	}
	return &PruneSessionsJob{pruner: pruner, logger: logger}
}

// Handle executes one pruning run.
func (j *PruneSessionsJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.pruner == nil {
		return errors.New("prune sessions: handler not configured")
	}
	var payload PruneSessionsPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	start := time.Now()
	n, err := j.pruner.PruneExpired(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "prune sessions failed", slog.Any("error", err))
		return err
	}
	obs.RecordSessionsPruned(n)
	j.logger.InfoContext(ctx, "pruned expired sessions",
		slog.Int64("removed", n),
		slog.String("reason", payload.Reason),
		slog.Duration("took", time.Since(start)))
	return nil
}
