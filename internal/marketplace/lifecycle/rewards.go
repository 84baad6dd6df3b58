package lifecycle

import (
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/trust"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/types"
)

// applyTrustOutcome applies the task-level trust events for a terminal task:
// completion credit for the winner and publisher, consolation for other
// scored workers, and failure penalties for malicious submission owners.
// Challenger and arbiter events are the dispute engine's responsibility.
// Trust errors are logged, not returned; the terminal transition and the
// settlement already happened and must not be rolled back.
func (m *Machine) applyTrustOutcome(task types.TaskData, outcome *types.ArbitrationOutcome) {
	subs, err := m.subs.GetSubmissionsByTask(task.TaskID)
	if err != nil {
		m.logger.Error("Trust accounting skipped", "task_id", task.TaskID, "error", err)
		return
	}
	ownerOf := make(map[string]string, len(subs))
	for _, s := range subs {
		ownerOf[s.SubmissionID] = s.WorkerID
	}
	opts := trust.EventOptions{TaskID: task.TaskID, Bounty: task.Bounty}

	if task.Status == types.TaskStatusClosed && task.WinnerSubmissionID != "" {
		winnerID := ownerOf[task.WinnerSubmissionID]
		if winnerID != "" {
			m.applyEvent(winnerID, types.TrustEventTaskCompleted, opts)
		}
		m.applyEvent(task.PublisherID, types.TrustEventPublisherCompleted, opts)

		seen := map[string]bool{winnerID: true}
		for _, s := range subs {
			if s.Status != types.SubmissionStatusScored || seen[s.WorkerID] {
				continue
			}
			seen[s.WorkerID] = true
			m.applyEvent(s.WorkerID, types.TrustEventConsolation, opts)
		}
	}

	if outcome == nil {
		return
	}
	for _, subID := range outcome.MaliciousSubmissionIDs {
		if workerID := ownerOf[subID]; workerID != "" {
			m.applyEvent(workerID, types.TrustEventTaskFailed, opts)
		}
	}
}

func (m *Machine) applyEvent(userID string, eventType types.TrustEventType, opts trust.EventOptions) {
	if _, err := m.trust.ApplyEvent(userID, eventType, opts); err != nil {
		m.logger.Error("Trust event failed",
			"user_id", userID, "event_type", string(eventType),
			"task_id", opts.TaskID, "error", err)
	}
}
