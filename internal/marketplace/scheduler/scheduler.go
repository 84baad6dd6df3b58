package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/metrics"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/repository"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/types"
	"github.com/bountyhive/bountyhive-backend/pkg/logging"
)

// Machine is the slice of the task state machine the scheduler drives.
// Every call is idempotent: a transition that already happened is success.
type Machine interface {
	EvaluateDeadline(ctx context.Context, taskID string) error
	CompleteScoring(ctx context.Context, taskID string) error
	CloseChallengeWindow(ctx context.Context, taskID string) error
}

// Disputes lets the scheduler unstick stalled juries.
type Disputes interface {
	ResolveExpired(ctx context.Context, taskID string) error
}

// Tracker lets the scheduler re-drive outstanding oracle evaluations.
type Tracker interface {
	ListByTask(taskID string) ([]types.SubmissionData, error)
	RequestEvaluation(ctx context.Context, submissionID string) error
}

// Scheduler periodically re-evaluates every non-terminal task. Each sweep
// snapshots the per-status task lists up front, so a task advanced during
// the sweep is not picked up again by a later phase of the same tick.
type Scheduler struct {
	tasks    repository.TaskRepository
	machine  Machine
	disputes Disputes
	tracker  Tracker
	cron     *cron.Cron
	interval time.Duration
	logger   logging.Logger
}

func NewScheduler(
	tasks repository.TaskRepository,
	machine Machine,
	disputes Disputes,
	tracker Tracker,
	interval time.Duration,
	logger logging.Logger,
) *Scheduler {
	return &Scheduler{
		tasks:    tasks,
		machine:  machine,
		disputes: disputes,
		tracker:  tracker,
		cron:     cron.New(cron.WithSeconds()),
		interval: interval,
		logger:   logger,
	}
}

// Start registers the sweep and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %ds", int(s.interval.Seconds()))
	if _, err := s.cron.AddFunc(spec, func() { s.Sweep(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Scheduler started", "interval", s.interval.String())
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// Sweep runs one pass over all non-terminal tasks.
func (s *Scheduler) Sweep(ctx context.Context) {
	start := time.Now()

	open := s.snapshot(types.TaskStatusOpen)
	scoring := s.snapshot(types.TaskStatusScoring)
	windowed := s.snapshot(types.TaskStatusChallengeWindow)
	arbitrating := s.snapshot(types.TaskStatusArbitrating)

	for _, task := range open {
		if err := s.machine.EvaluateDeadline(ctx, task.TaskID); err != nil {
			s.sweepError("deadline", task.TaskID, err)
		}
	}
	for _, task := range scoring {
		s.driveEvaluations(ctx, task.TaskID)
		if err := s.machine.CompleteScoring(ctx, task.TaskID); err != nil {
			s.sweepError("scoring", task.TaskID, err)
		}
	}
	for _, task := range windowed {
		if err := s.machine.CloseChallengeWindow(ctx, task.TaskID); err != nil {
			s.sweepError("challenge_window", task.TaskID, err)
		}
	}
	for _, task := range arbitrating {
		if err := s.disputes.ResolveExpired(ctx, task.TaskID); err != nil {
			s.sweepError("arbitrating", task.TaskID, err)
		}
	}

	metrics.SweepDuration.Observe(time.Since(start).Seconds())
}

func (s *Scheduler) snapshot(status types.TaskStatus) []types.TaskData {
	tasks, err := s.tasks.GetTasksByStatus(status)
	if err != nil {
		s.logger.Error("Sweep snapshot failed", "status", string(status), "error", err)
		return nil
	}
	return tasks
}

// driveEvaluations retries the oracle for submissions still awaiting a gate
// result. Failures stay pending for the next sweep.
func (s *Scheduler) driveEvaluations(ctx context.Context, taskID string) {
	subs, err := s.tracker.ListByTask(taskID)
	if err != nil {
		s.sweepError("scoring", taskID, err)
		return
	}
	for _, sub := range subs {
		if sub.Status.IsTerminal() {
			continue
		}
		if err := s.tracker.RequestEvaluation(ctx, sub.SubmissionID); err != nil {
			s.logger.Warn("Oracle evaluation deferred",
				"task_id", taskID, "submission_id", sub.SubmissionID, "error", err)
		}
	}
}

func (s *Scheduler) sweepError(phase, taskID string, err error) {
	metrics.SweepErrors.WithLabelValues(phase).Inc()
	s.logger.Error("Sweep operation failed", "phase", phase, "task_id", taskID, "error", err)
}
