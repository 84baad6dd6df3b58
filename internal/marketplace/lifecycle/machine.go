package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/metrics"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/repository"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/tasklock"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/trust"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/types"
	"github.com/bountyhive/bountyhive-backend/pkg/errors"
	"github.com/bountyhive/bountyhive-backend/pkg/logging"
)

// EscrowService is the payment rail as the state machine sees it. Only
// transaction references cross this boundary.
type EscrowService interface {
	Hold(ctx context.Context, taskID, payerID string, amount types.Amount) (string, error)
}

// Settler computes and persists the settlement for a terminal task. It is
// idempotent: re-invocation for an already-settled task returns the existing
// record.
type Settler interface {
	Settle(ctx context.Context, task types.TaskData, outcome *types.ArbitrationOutcome) (*types.SettlementRecord, error)
}

// DisputePanel is the arbitration engine as the state machine sees it.
type DisputePanel interface {
	PendingChallengeCount(taskID string) (int, error)
	ConveneJury(ctx context.Context, task types.TaskData) error
}

// TrustLedger applies reward and penalty events once a task reaches a
// terminal state.
type TrustLedger interface {
	ApplyEvent(userID string, eventType types.TrustEventType, opts trust.EventOptions) (types.TrustEventData, error)
	EnsureUser(userID string) (types.UserTrustData, error)
}

// Machine owns task statuses and the legal transitions between them. All
// mutating entry points serialize on the per-task lock.
type Machine struct {
	tasks    repository.TaskRepository
	subs     repository.SubmissionRepository
	locks    *tasklock.Registry
	escrow   EscrowService
	settler  Settler
	disputes DisputePanel
	trust    TrustLedger
	logger   logging.Logger
}

func NewMachine(
	tasks repository.TaskRepository,
	subs repository.SubmissionRepository,
	locks *tasklock.Registry,
	escrow EscrowService,
	settler Settler,
	disputes DisputePanel,
	trustLedger TrustLedger,
	logger logging.Logger,
) *Machine {
	return &Machine{
		tasks:    tasks,
		subs:     subs,
		locks:    locks,
		escrow:   escrow,
		settler:  settler,
		disputes: disputes,
		trust:    trustLedger,
		logger:   logger,
	}
}

type CreateTaskRequest struct {
	PublisherID        string
	TaskType           types.TaskType
	Title              string
	Description        string
	Bounty             types.Amount
	Deadline           time.Time
	Threshold          float64
	MaxRevisions       int
	ChallengeDuration  time.Duration
	SubmissionDeposit  types.Amount
	AcceptanceCriteria []string
	ScoringDimensions  []types.ScoringDimension
}

// CreateTask validates the request against the publisher's tier limits,
// places the bounty on hold, and creates the task in open status.
func (m *Machine) CreateTask(ctx context.Context, req CreateTaskRequest) (types.TaskData, error) {
	if req.Bounty <= 0 {
		return types.TaskData{}, errors.New(errors.KindValidation, "bounty must be positive")
	}
	if !req.Deadline.After(time.Now().UTC()) {
		return types.TaskData{}, errors.New(errors.KindValidation, "deadline must be in the future")
	}
	if req.TaskType != types.TaskTypeFastestFirst && req.TaskType != types.TaskTypeQualityFirst {
		return types.TaskData{}, errors.Newf(errors.KindValidation, "unknown task type %q", req.TaskType)
	}
	if req.TaskType == types.TaskTypeFastestFirst && req.Threshold <= 0 {
		return types.TaskData{}, errors.New(errors.KindValidation, "fastest_first tasks require a score threshold")
	}

	publisher, err := m.trust.EnsureUser(req.PublisherID)
	if err != nil {
		return types.TaskData{}, err
	}
	perms := trust.PermissionsForTier(publisher.Tier)
	if perms.MaxTaskAmount != nil && req.Bounty > *perms.MaxTaskAmount {
		return types.TaskData{}, errors.Newf(errors.KindValidation,
			"bounty %s exceeds the %s-tier task limit %s", req.Bounty, publisher.Tier, *perms.MaxTaskAmount)
	}

	taskID := uuid.New().String()
	holdRef, err := m.escrow.Hold(ctx, taskID, req.PublisherID, req.Bounty)
	if err != nil {
		return types.TaskData{}, errors.Wrap(errors.KindExternal, "bounty hold failed", err)
	}

	now := time.Now().UTC()
	task := types.TaskData{
		TaskID:             taskID,
		PublisherID:        req.PublisherID,
		TaskType:           req.TaskType,
		Status:             types.TaskStatusOpen,
		Title:              req.Title,
		Description:        req.Description,
		Bounty:             req.Bounty,
		Deadline:           req.Deadline.UTC(),
		Threshold:          req.Threshold,
		MaxRevisions:       req.MaxRevisions,
		ChallengeDuration:  req.ChallengeDuration,
		SubmissionDeposit:  req.SubmissionDeposit,
		AcceptanceCriteria: req.AcceptanceCriteria,
		ScoringDimensions:  req.ScoringDimensions,
		EscrowHoldRef:      holdRef,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := m.tasks.CreateTask(&task); err != nil {
		return types.TaskData{}, err
	}

	m.logger.Info("Task created",
		"task_id", taskID, "publisher_id", req.PublisherID,
		"type", string(req.TaskType), "bounty", req.Bounty.String())
	metrics.TasksCreated.WithLabelValues(string(req.TaskType)).Inc()
	return task, nil
}

// OnSubmissionScored is invoked by the submission tracker after a score
// lands. For open fastest_first tasks, the first submission to cross the
// threshold becomes the provisional winner and submissions close.
func (m *Machine) OnSubmissionScored(ctx context.Context, taskID string) {
	err := m.locks.WithLock(taskID, func() error {
		task, err := m.tasks.GetTaskByID(taskID)
		if err != nil {
			return err
		}
		if task.Status != types.TaskStatusOpen || task.TaskType != types.TaskTypeFastestFirst {
			return nil
		}

		subs, err := m.subs.GetSubmissionsByTask(taskID)
		if err != nil {
			return err
		}
		crossing := firstAboveThreshold(subs, task.Threshold)
		if crossing == nil {
			return nil
		}

		if err := m.tasks.UpdateTaskWinner(taskID, crossing.SubmissionID); err != nil {
			return err
		}
		task.WinnerSubmissionID = crossing.SubmissionID
		return m.transition(&task, types.TaskStatusScoring)
	})
	if err != nil {
		m.logger.Error("Threshold check failed", "task_id", taskID, "error", err)
	}
}

// EvaluateDeadline re-checks an open task against its deadline. Called by
// the scheduler; a task whose deadline has not passed is left untouched.
func (m *Machine) EvaluateDeadline(ctx context.Context, taskID string) error {
	return m.locks.WithLock(taskID, func() error {
		task, err := m.tasks.GetTaskByID(taskID)
		if err != nil {
			return err
		}
		if task.Status != types.TaskStatusOpen || time.Now().UTC().Before(task.Deadline) {
			return nil
		}

		subs, err := m.subs.GetSubmissionsByTask(taskID)
		if err != nil {
			return err
		}

		if !anyViable(subs) {
			return m.finalize(ctx, &task, types.TaskStatusVoided, nil)
		}

		// fastest_first with a threshold-crossing best closes in one step.
		if task.TaskType == types.TaskTypeFastestFirst {
			if best := firstAboveThreshold(subs, task.Threshold); best != nil {
				if err := m.tasks.UpdateTaskWinner(taskID, best.SubmissionID); err != nil {
					return err
				}
				task.WinnerSubmissionID = best.SubmissionID
				return m.finalize(ctx, &task, types.TaskStatusClosed, nil)
			}
		}

		return m.transition(&task, types.TaskStatusScoring)
	})
}

// CompleteScoring ranks a scoring task once every submission has reached a
// terminal state. Tasks with outstanding oracle work are left for the next
// sweep.
func (m *Machine) CompleteScoring(ctx context.Context, taskID string) error {
	return m.locks.WithLock(taskID, func() error {
		task, err := m.tasks.GetTaskByID(taskID)
		if err != nil {
			return err
		}
		if task.Status != types.TaskStatusScoring {
			return nil
		}

		subs, err := m.subs.GetSubmissionsByTask(taskID)
		if err != nil {
			return err
		}
		for _, s := range subs {
			if !s.Status.IsTerminal() {
				return nil
			}
		}

		winner := bestSubmission(subs)
		if winner == nil {
			return m.finalize(ctx, &task, types.TaskStatusVoided, nil)
		}

		if task.WinnerSubmissionID != winner.SubmissionID {
			if err := m.tasks.UpdateTaskWinner(taskID, winner.SubmissionID); err != nil {
				return err
			}
			task.WinnerSubmissionID = winner.SubmissionID
		}

		if task.TaskType == types.TaskTypeFastestFirst {
			return m.finalize(ctx, &task, types.TaskStatusClosed, nil)
		}

		windowEnd := time.Now().UTC().Add(task.ChallengeWindow())
		if err := m.tasks.UpdateTaskChallengeWindow(taskID, windowEnd); err != nil {
			return err
		}
		task.ChallengeWindowEnd = &windowEnd
		return m.transition(&task, types.TaskStatusChallengeWindow)
	})
}

// CloseChallengeWindow handles a challenge window that has elapsed: with no
// pending challenges the task closes; otherwise a jury is convened and the
// task enters arbitration.
func (m *Machine) CloseChallengeWindow(ctx context.Context, taskID string) error {
	return m.locks.WithLock(taskID, func() error {
		task, err := m.tasks.GetTaskByID(taskID)
		if err != nil {
			return err
		}
		if task.Status != types.TaskStatusChallengeWindow {
			return nil
		}
		if task.ChallengeWindowEnd == nil || time.Now().UTC().Before(*task.ChallengeWindowEnd) {
			return nil
		}

		pending, err := m.disputes.PendingChallengeCount(taskID)
		if err != nil {
			return err
		}

		if pending == 0 {
			return m.finalize(ctx, &task, types.TaskStatusClosed, nil)
		}

		if err := m.transition(&task, types.TaskStatusArbitrating); err != nil {
			return err
		}
		return m.disputes.ConveneJury(ctx, task)
	})
}

// ApplyArbitrationOutcome consumes the dispute engine's resolution, moving
// the task to closed or voided and triggering settlement.
func (m *Machine) ApplyArbitrationOutcome(ctx context.Context, outcome types.ArbitrationOutcome) error {
	return m.locks.WithLock(outcome.TaskID, func() error {
		task, err := m.tasks.GetTaskByID(outcome.TaskID)
		if err != nil {
			return err
		}
		if task.Status.IsTerminal() {
			return nil
		}
		if task.Status != types.TaskStatusArbitrating {
			return errors.ErrInvalidTransition
		}

		if outcome.Voided {
			return m.finalize(ctx, &task, types.TaskStatusVoided, &outcome)
		}

		if outcome.FinalWinnerSubmissionID != "" && outcome.FinalWinnerSubmissionID != task.WinnerSubmissionID {
			if err := m.tasks.UpdateTaskWinner(task.TaskID, outcome.FinalWinnerSubmissionID); err != nil {
				return err
			}
			task.WinnerSubmissionID = outcome.FinalWinnerSubmissionID
		}
		return m.finalize(ctx, &task, types.TaskStatusClosed, &outcome)
	})
}

// finalize settles a task and then persists the terminal transition, in that
// order: a settlement failure leaves the task in its current phase, where the
// next scheduler sweep re-drives it. A terminal status therefore implies a
// durable settlement record. The settler is idempotent, so a crash between
// the two writes converges on the retry. Trust failures are logged rather
// than rolled back.
func (m *Machine) finalize(ctx context.Context, task *types.TaskData, to types.TaskStatus, outcome *types.ArbitrationOutcome) error {
	settled := *task
	settled.Status = to
	record, err := m.settler.Settle(ctx, settled, outcome)
	if err != nil {
		return err
	}
	if err := m.transition(task, to); err != nil {
		return err
	}
	m.logger.Info("Task settled",
		"task_id", task.TaskID, "status", string(to),
		"escrow_total", record.EscrowTotal.String())

	m.applyTrustOutcome(*task, outcome)
	return nil
}

// firstAboveThreshold returns the earliest-scored eligible submission at or
// above the threshold, or nil.
func firstAboveThreshold(subs []types.SubmissionData, threshold float64) *types.SubmissionData {
	var first *types.SubmissionData
	for i := range subs {
		s := &subs[i]
		if s.Status != types.SubmissionStatusScored || s.Score == nil || *s.Score < threshold {
			continue
		}
		if first == nil || s.UpdatedAt.Before(first.UpdatedAt) {
			first = s
		}
	}
	return first
}

// anyViable reports whether at least one submission is still in contention.
func anyViable(subs []types.SubmissionData) bool {
	for _, s := range subs {
		if !s.Status.IsFailed() {
			return true
		}
	}
	return false
}

// bestSubmission ranks each worker's latest non-failed revision and returns
// the highest-scored one, ties broken by earliest scoring time.
func bestSubmission(subs []types.SubmissionData) *types.SubmissionData {
	latest := make(map[string]*types.SubmissionData)
	for i := range subs {
		s := &subs[i]
		if s.Status.IsFailed() {
			continue
		}
		if cur, ok := latest[s.WorkerID]; !ok || s.Revision > cur.Revision {
			latest[s.WorkerID] = s
		}
	}

	var best *types.SubmissionData
	for _, s := range latest {
		if s.Status != types.SubmissionStatusScored || s.Score == nil {
			continue
		}
		if best == nil || *s.Score > *best.Score ||
			(*s.Score == *best.Score && s.UpdatedAt.Before(best.UpdatedAt)) {
			best = s
		}
	}
	return best
}
