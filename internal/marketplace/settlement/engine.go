package settlement

import (
	"context"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/metrics"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/repository"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/trust"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/types"
	"github.com/bountyhive/bountyhive-backend/pkg/errors"
	"github.com/bountyhive/bountyhive-backend/pkg/logging"
)

// PayoutEscrow executes settlement distributions against the task's escrow
// hold. Only transaction references come back.
type PayoutEscrow interface {
	Release(ctx context.Context, holdRef, recipient string, amount types.Amount) (string, error)
}

// TierSource resolves the trust tier of every paid party.
type TierSource interface {
	EnsureUser(userID string) (types.UserTrustData, error)
}

// Engine settles terminal tasks exactly once. The persisted record is the
// commit point; payout execution follows it and is never a reason to
// recompute.
type Engine struct {
	settlements repository.SettlementRepository
	challenges  repository.ChallengeRepository
	subs        repository.SubmissionRepository
	trust       TierSource
	escrow      PayoutEscrow
	logger      logging.Logger
}

func NewEngine(
	settlements repository.SettlementRepository,
	challenges repository.ChallengeRepository,
	subs repository.SubmissionRepository,
	trustSource TierSource,
	escrow PayoutEscrow,
	logger logging.Logger,
) *Engine {
	return &Engine{
		settlements: settlements,
		challenges:  challenges,
		subs:        subs,
		trust:       trustSource,
		escrow:      escrow,
		logger:      logger,
	}
}

// Settle computes and persists the settlement for a closed or voided task.
// Re-invocation returns the existing record without recomputing. A failed
// tier lookup aborts with an external error so the scheduler can re-drive.
func (e *Engine) Settle(ctx context.Context, task types.TaskData, outcome *types.ArbitrationOutcome) (*types.SettlementRecord, error) {
	if !task.Status.IsTerminal() {
		return nil, errors.Newf(errors.KindStateConflict,
			"task %s is not terminal", task.TaskID)
	}

	existing, err := e.settlements.GetSettlementByTask(task.TaskID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	challenges, err := e.challenges.GetChallengesByTask(task.TaskID)
	if err != nil {
		return nil, err
	}

	in := Input{
		Task:       task,
		Challenges: challenges,
		Voided:     task.Status == types.TaskStatusVoided,
	}
	if outcome != nil {
		in.MajorityArbiters = outcome.MajorityArbiters
	}

	if !in.Voided && task.WinnerSubmissionID != "" {
		winner, err := e.subs.GetSubmissionByID(task.WinnerSubmissionID)
		if err != nil {
			return nil, err
		}
		state, err := e.trust.EnsureUser(winner.WorkerID)
		if err != nil {
			return nil, errors.Wrap(errors.KindExternal, "winner tier lookup failed", err)
		}
		in.WinnerWorkerID = winner.WorkerID
		in.WinnerPayoutBPS = trust.RatesForTier(state.Tier).PayoutBPS
	}

	record, err := Compute(in)
	if err != nil {
		return nil, err
	}

	stored, err := e.settlements.CreateSettlement(&record)
	if err != nil {
		return nil, err
	}
	if stored.CreatedAt.Equal(record.CreatedAt) {
		// We won the write; execute the payouts.
		e.execute(ctx, task, &stored)
	}

	e.logger.Info("Settlement recorded",
		"task_id", task.TaskID, "escrow_total", stored.EscrowTotal.String(),
		"distributions", len(stored.Distributions))
	metrics.SettlementsRecorded.WithLabelValues(string(task.Status)).Inc()
	return &stored, nil
}

// Record returns the settlement for a task, or a not-found error when none
// exists yet.
func (e *Engine) Record(taskID string) (*types.SettlementRecord, error) {
	record, err := e.settlements.GetSettlementByTask(taskID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.Newf(errors.KindNotFound, "no settlement for task %s", taskID)
	}
	return record, nil
}

// execute releases each distribution from the task's escrow hold. Deposits
// were authorized into the same hold, so every outflow draws from it. The
// record is already durable; rail failures are logged for the payout
// reconciler rather than unwinding the settlement.
func (e *Engine) execute(ctx context.Context, task types.TaskData, record *types.SettlementRecord) {
	for _, d := range record.Distributions {
		if d.Recipient == "" {
			// Platform lines stay in the escrow account.
			continue
		}
		txRef, err := e.escrow.Release(ctx, task.EscrowHoldRef, d.Recipient, d.Amount)
		if err != nil {
			e.logger.Error("Escrow release failed",
				"task_id", task.TaskID, "label", d.Label,
				"recipient", d.Recipient, "amount", d.Amount.String(), "error", err)
			continue
		}
		e.logger.Info("Escrow released",
			"task_id", task.TaskID, "label", d.Label,
			"recipient", d.Recipient, "amount", d.Amount.String(), "tx_ref", txRef)
	}
}
