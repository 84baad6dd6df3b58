package lifecycle

import (
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/metrics"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/types"
	"github.com/bountyhive/bountyhive-backend/pkg/errors"
)

// legalTransitions is the full transition table. Everything outside it is an
// illegal transition, rejected before any write happens.
var legalTransitions = map[types.TaskStatus][]types.TaskStatus{
	types.TaskStatusOpen: {
		types.TaskStatusScoring,
		types.TaskStatusClosed, // fastest_first deadline close
		types.TaskStatusVoided, // deadline with no viable submission
	},
	types.TaskStatusScoring: {
		types.TaskStatusChallengeWindow,
		types.TaskStatusClosed, // fastest_first skips the window
		types.TaskStatusVoided,
	},
	types.TaskStatusChallengeWindow: {
		types.TaskStatusArbitrating,
		types.TaskStatusClosed,
	},
	types.TaskStatusArbitrating: {
		types.TaskStatusClosed,
		types.TaskStatusVoided,
	},
}

func canTransition(from, to types.TaskStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// transition moves the task to the target status, persisting the change.
// Callers must hold the task lock.
func (m *Machine) transition(task *types.TaskData, to types.TaskStatus) error {
	if task.Status == to {
		return nil
	}
	if !canTransition(task.Status, to) {
		return errors.Newf(errors.KindStateConflict,
			"illegal transition %s -> %s for task %s", task.Status, to, task.TaskID)
	}
	if err := m.tasks.UpdateTaskStatus(task.TaskID, to); err != nil {
		return err
	}
	m.logger.Info("Task transitioned",
		"task_id", task.TaskID, "from", string(task.Status), "to", string(to))
	metrics.TaskTransitions.WithLabelValues(string(task.Status), string(to)).Inc()
	task.Status = to
	return nil
}
