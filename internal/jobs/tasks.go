package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPruneSessions removes expired refresh-token session records.
	TaskPruneSessions = "sessions:prune"
)

// PruneSessionsPayload parameterises a pruning run.
type PruneSessionsPayload struct {
	Reason string `json:"reason"`
}

// NewPruneSessionsTask constructs the pruning task.
func NewPruneSessionsTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(PruneSessionsPayload{Reason: reason})
	if err != nil {
		return nil, fmt.Errorf("marshal prune payload: %w", err)
	}
	return asynq.NewTask(TaskPruneSessions, data, asynq.Queue(QueueDefault)), nil
}
