package submission

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/metrics"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/repository"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/tasklock"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/types"
	"github.com/bountyhive/bountyhive-backend/pkg/errors"
	"github.com/bountyhive/bountyhive-backend/pkg/logging"
)

// Oracle is the external scoring collaborator. Results come back through
// RecordGateResult/RecordScore; the core never interprets model internals.
type Oracle interface {
	Evaluate(ctx context.Context, task types.TaskData, sub types.SubmissionData) (types.OracleEvaluation, error)
}

// Tracker manages worker submissions and their revisions per task.
type Tracker struct {
	tasks  repository.TaskRepository
	subs   repository.SubmissionRepository
	locks  *tasklock.Registry
	oracle Oracle
	logger logging.Logger

	// onScored is invoked after a score lands, so the state machine can
	// evaluate threshold-driven transitions for fastest_first tasks.
	onScored func(ctx context.Context, taskID string)
}

func NewTracker(
	tasks repository.TaskRepository,
	subs repository.SubmissionRepository,
	locks *tasklock.Registry,
	oracle Oracle,
	logger logging.Logger,
) *Tracker {
	return &Tracker{
		tasks:  tasks,
		subs:   subs,
		locks:  locks,
		oracle: oracle,
		logger: logger,
	}
}

// SetScoreListener wires the state machine's threshold check. Set once at
// startup, before any traffic.
func (t *Tracker) SetScoreListener(fn func(ctx context.Context, taskID string)) {
	t.onScored = fn
}

// Submit creates a new revision for the worker on the task.
func (t *Tracker) Submit(ctx context.Context, taskID, workerID, content string) (types.SubmissionData, error) {
	var created types.SubmissionData

	err := t.locks.WithLock(taskID, func() error {
		task, err := t.tasks.GetTaskByID(taskID)
		if err != nil {
			return err
		}

		if !task.Status.AcceptsSubmissions(task.TaskType) {
			return errors.ErrTaskNotOpen
		}
		if task.Status == types.TaskStatusOpen && time.Now().UTC().After(task.Deadline) {
			return errors.ErrTaskNotOpen
		}

		existing, err := t.subs.CountSubmissionsByWorker(taskID, workerID)
		if err != nil {
			return err
		}
		if task.TaskType == types.TaskTypeFastestFirst && existing >= 1 {
			return errors.ErrRevisionLimitExceeded
		}
		if task.MaxRevisions > 0 && existing >= task.MaxRevisions {
			return errors.ErrRevisionLimitExceeded
		}

		now := time.Now().UTC()
		created = types.SubmissionData{
			SubmissionID: uuid.New().String(),
			TaskID:       taskID,
			WorkerID:     workerID,
			Revision:     existing + 1,
			Content:      content,
			Status:       types.SubmissionStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return t.subs.CreateSubmission(&created)
	})
	if err != nil {
		return types.SubmissionData{}, err
	}

	t.logger.Info("Submission created",
		"task_id", taskID, "submission_id", created.SubmissionID,
		"worker_id", workerID, "revision", created.Revision)
	metrics.SubmissionsReceived.Inc()
	return created, nil
}

// RequestEvaluation calls the oracle for a pending submission and records the
// outcome. Oracle failures leave the submission pending for a later retry.
func (t *Tracker) RequestEvaluation(ctx context.Context, submissionID string) error {
	sub, err := t.subs.GetSubmissionByID(submissionID)
	if err != nil {
		return err
	}
	if sub.Status.IsTerminal() {
		return nil
	}
	task, err := t.tasks.GetTaskByID(sub.TaskID)
	if err != nil {
		return err
	}

	eval, err := t.oracle.Evaluate(ctx, task, sub)
	if err != nil {
		return errors.Wrap(errors.KindExternal, "oracle evaluation failed", err)
	}

	if err := t.RecordGateResult(ctx, submissionID, eval.Gate, eval.Feedback); err != nil {
		return err
	}
	if eval.Gate == types.GatePassed && eval.Score != nil {
		return t.RecordScore(ctx, submissionID, *eval.Score, eval.Feedback)
	}
	return nil
}

// RecordGateResult moves a pending submission through the gate.
func (t *Tracker) RecordGateResult(ctx context.Context, submissionID string, result types.GateResult, feedback string) error {
	sub, err := t.subs.GetSubmissionByID(submissionID)
	if err != nil {
		return err
	}

	return t.locks.WithLock(sub.TaskID, func() error {
		sub, err := t.subs.GetSubmissionByID(submissionID)
		if err != nil {
			return err
		}
		if sub.Status.IsTerminal() {
			return errors.ErrSubmissionTerminal
		}
		return t.subs.UpdateSubmissionGate(submissionID, types.SubmissionStatus(result), feedback)
	})
}

// RecordScore finalizes a gate-passed submission with its score. Once scored
// the submission is immutable.
func (t *Tracker) RecordScore(ctx context.Context, submissionID string, score float64, feedback string) error {
	sub, err := t.subs.GetSubmissionByID(submissionID)
	if err != nil {
		return err
	}

	err = t.locks.WithLock(sub.TaskID, func() error {
		sub, err := t.subs.GetSubmissionByID(submissionID)
		if err != nil {
			return err
		}
		if sub.Status.IsTerminal() {
			return errors.ErrSubmissionTerminal
		}
		return t.subs.UpdateSubmissionScore(submissionID, score, feedback)
	})
	if err != nil {
		return err
	}

	if t.onScored != nil {
		t.onScored(ctx, sub.TaskID)
	}
	return nil
}

// ListByTask is the read-only projection of a task's submissions.
func (t *Tracker) ListByTask(taskID string) ([]types.SubmissionData, error) {
	return t.subs.GetSubmissionsByTask(taskID)
}
