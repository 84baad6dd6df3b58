package dispute

import (
	"context"
	"sort"
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

const (
	// DefaultJurySize is the arbiter panel size per disputed task.
	DefaultJurySize = 3

	// DefaultVotingPeriod bounds how long an uncast ballot can stall a task.
	DefaultVotingPeriod = 24 * time.Hour

	// challengeRateLimit throttles filings per challenger wallet.
	challengeRateLimit = time.Minute
)

// DepositEscrow holds and refunds challenge deposits. The authorization
// payload is opaque to the core; only transaction references come back.
type DepositEscrow interface {
	AuthorizeDeposit(ctx context.Context, payerID string, amount types.Amount, authorization string) (string, error)
	Refund(ctx context.Context, ref string) (string, error)
}

// ArbiterSelector picks the jury panel. The selection policy lives outside
// the core.
type ArbiterSelector interface {
	SelectArbiters(ctx context.Context, taskID string, size int) ([]string, error)
}

// TrustLedger is the slice of the trust ledger the dispute engine needs.
type TrustLedger interface {
	ApplyEvent(userID string, eventType types.TrustEventType, opts trust.EventOptions) (types.TrustEventData, error)
	EnsureUser(userID string) (types.UserTrustData, error)
}

// Engine manages challenges against a provisional winner and the jury ballot
// process that resolves them.
type Engine struct {
	tasks      repository.TaskRepository
	subs       repository.SubmissionRepository
	challenges repository.ChallengeRepository
	ballots    repository.BallotRepository
	locks      *tasklock.Registry
	escrow     DepositEscrow
	selector   ArbiterSelector
	trust      TrustLedger
	logger     logging.Logger

	jurySize     int
	votingPeriod time.Duration

	// onResolved hands a computed outcome to the state machine. Wired once
	// at startup; the indirection keeps the two packages from depending on
	// each other.
	onResolved func(ctx context.Context, outcome types.ArbitrationOutcome) error
}

func NewEngine(
	tasks repository.TaskRepository,
	subs repository.SubmissionRepository,
	challenges repository.ChallengeRepository,
	ballots repository.BallotRepository,
	locks *tasklock.Registry,
	escrow DepositEscrow,
	selector ArbiterSelector,
	trustLedger TrustLedger,
	logger logging.Logger,
) *Engine {
	return &Engine{
		tasks:        tasks,
		subs:         subs,
		challenges:   challenges,
		ballots:      ballots,
		locks:        locks,
		escrow:       escrow,
		selector:     selector,
		trust:        trustLedger,
		logger:       logger,
		jurySize:     DefaultJurySize,
		votingPeriod: DefaultVotingPeriod,
	}
}

// SetResolutionListener wires the state machine's outcome handler. Set once
// at startup, before any traffic.
func (e *Engine) SetResolutionListener(fn func(ctx context.Context, outcome types.ArbitrationOutcome) error) {
	e.onResolved = fn
}

type FileChallengeRequest struct {
	TaskID                 string
	ChallengerSubmissionID string
	Reason                 string
	// PaymentAuthorization is the opaque proof the escrow rail verifies.
	PaymentAuthorization string
}

// FileChallenge creates a pending challenge against the provisional winner,
// holding the challenger's tier-rated deposit first. The deposit hold and
// the challenge row are effectively atomic: a failed insert refunds the hold.
func (e *Engine) FileChallenge(ctx context.Context, req FileChallengeRequest) (types.ChallengeData, error) {
	var challenge types.ChallengeData

	err := e.locks.WithLock(req.TaskID, func() error {
		task, err := e.tasks.GetTaskByID(req.TaskID)
		if err != nil {
			return err
		}
		if task.Status != types.TaskStatusChallengeWindow {
			return errors.ErrTaskNotInWindow
		}
		if task.ChallengeWindowEnd != nil && time.Now().UTC().After(*task.ChallengeWindowEnd) {
			return errors.ErrTaskNotInWindow
		}

		sub, err := e.subs.GetSubmissionByID(req.ChallengerSubmissionID)
		if err != nil {
			return err
		}
		if sub.TaskID != req.TaskID {
			return errors.New(errors.KindValidation, "submission belongs to a different task")
		}
		if sub.SubmissionID == task.WinnerSubmissionID {
			return errors.ErrSelfChallenge
		}
		if sub.Status != types.SubmissionStatusScored {
			return errors.ErrChallengerNotScored
		}

		existing, err := e.challenges.GetChallengesByTask(req.TaskID)
		if err != nil {
			return err
		}
		for _, c := range existing {
			if c.ChallengerSubmissionID == req.ChallengerSubmissionID {
				return errors.ErrDuplicateChallenge
			}
		}

		latest, err := e.challenges.GetLatestChallengeByChallenger(sub.WorkerID)
		if err != nil {
			return err
		}
		if latest != nil && time.Since(latest.CreatedAt) < challengeRateLimit {
			return errors.ErrChallengeRateLimited
		}

		challenger, err := e.trust.EnsureUser(sub.WorkerID)
		if err != nil {
			return err
		}
		rates := trust.RatesForTier(challenger.Tier)
		if rates.ChallengeDepositBPS == 0 {
			return errors.ErrTierCannotChallenge
		}
		deposit := task.SubmissionDeposit
		if deposit <= 0 {
			deposit = task.Bounty.MulBPS(rates.ChallengeDepositBPS)
		}

		ref, err := e.escrow.AuthorizeDeposit(ctx, sub.WorkerID, deposit, req.PaymentAuthorization)
		if err != nil {
			return errors.Wrap(errors.KindExternal, "deposit authorization failed", err)
		}

		challenge = types.ChallengeData{
			ChallengeID:            uuid.New().String(),
			TaskID:                 req.TaskID,
			ChallengerSubmissionID: req.ChallengerSubmissionID,
			TargetSubmissionID:     task.WinnerSubmissionID,
			ChallengerID:           sub.WorkerID,
			Reason:                 req.Reason,
			Status:                 types.ChallengeStatusPending,
			Deposit:                types.DepositRef{Amount: deposit, TxRef: ref},
			CreatedAt:              time.Now().UTC(),
		}
		if err := e.challenges.CreateChallenge(&challenge); err != nil {
			if _, refundErr := e.escrow.Refund(ctx, ref); refundErr != nil {
				e.logger.Error("Deposit refund after failed filing",
					"task_id", req.TaskID, "tx_ref", ref, "error", refundErr)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return types.ChallengeData{}, err
	}

	e.logger.Info("Challenge filed",
		"task_id", req.TaskID, "challenge_id", challenge.ChallengeID,
		"challenger_id", challenge.ChallengerID, "deposit", challenge.Deposit.Amount.String())
	metrics.ChallengesFiled.Inc()
	return challenge, nil
}

// ConveneJury creates one ballot per selected arbiter with the candidate
// pool frozen at formation time. Re-invocation for a task that already has
// ballots is a no-op.
func (e *Engine) ConveneJury(ctx context.Context, task types.TaskData) error {
	existing, err := e.ballots.GetBallotsByTask(task.TaskID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	challenges, err := e.challenges.GetChallengesByTask(task.TaskID)
	if err != nil {
		return err
	}
	pool := candidatePool(task.WinnerSubmissionID, challenges)

	arbiters, err := e.selector.SelectArbiters(ctx, task.TaskID, e.jurySize)
	if err != nil {
		return errors.Wrap(errors.KindExternal, "arbiter selection failed", err)
	}

	now := time.Now().UTC()
	for _, arbiterID := range arbiters {
		ballot := types.JuryBallotData{
			BallotID:      uuid.New().String(),
			TaskID:        task.TaskID,
			ArbiterID:     arbiterID,
			CandidatePool: pool,
			CreatedAt:     now,
		}
		if err := e.ballots.CreateBallot(&ballot); err != nil {
			return err
		}
	}

	e.logger.Info("Jury convened",
		"task_id", task.TaskID, "arbiters", len(arbiters), "candidates", len(pool))
	return nil
}

// CastBallot records an arbiter's single vote and returns the task the
// ballot belongs to. The winner/malicious mutual exclusion is enforced here,
// at write time. Casting the final ballot triggers resolution.
func (e *Engine) CastBallot(ctx context.Context, ballotID, arbiterID, winnerSubmissionID string, maliciousSubmissionIDs []string, feedback string) (string, error) {
	ballot, err := e.ballots.GetBallotByID(ballotID)
	if err != nil {
		return "", err
	}
	if ballot.ArbiterID != arbiterID {
		return "", errors.New(errors.KindValidation, "ballot is assigned to a different arbiter")
	}

	err = e.locks.WithLock(ballot.TaskID, func() error {
		ballot, err := e.ballots.GetBallotByID(ballotID)
		if err != nil {
			return err
		}
		if ballot.IsCast() {
			return errors.ErrBallotAlreadyCast
		}
		if feedback == "" {
			return errors.ErrEmptyFeedback
		}
		if !ballot.InPool(winnerSubmissionID) {
			return errors.ErrWinnerNotInPool
		}
		for _, id := range maliciousSubmissionIDs {
			if !ballot.InPool(id) {
				return errors.ErrMaliciousNotInPool
			}
			if id == winnerSubmissionID {
				return errors.ErrWinnerTaggedMalicious
			}
		}

		task, err := e.tasks.GetTaskByID(ballot.TaskID)
		if err != nil {
			return err
		}
		if task.Status != types.TaskStatusArbitrating {
			return errors.Newf(errors.KindStateConflict,
				"task %s is not arbitrating", ballot.TaskID)
		}

		return e.ballots.CastBallot(ballotID, winnerSubmissionID, maliciousSubmissionIDs, feedback, time.Now().UTC())
	})
	if err != nil {
		return "", err
	}

	e.logger.Info("Ballot cast", "task_id", ballot.TaskID, "ballot_id", ballotID, "arbiter_id", arbiterID)
	metrics.BallotsCast.Inc()
	return ballot.TaskID, e.resolveIfComplete(ctx, ballot.TaskID, false)
}

// ResolveExpired forces resolution for an arbitrating task whose voting
// period has elapsed with uncast ballots. Non-voting arbiters are penalized;
// the outcome is computed from the ballots that were cast.
func (e *Engine) ResolveExpired(ctx context.Context, taskID string) error {
	ballots, err := e.ballots.GetBallotsByTask(taskID)
	if err != nil {
		return err
	}
	if len(ballots) == 0 {
		return nil
	}
	deadline := ballots[0].CreatedAt.Add(e.votingPeriod)
	for _, b := range ballots {
		if b.CreatedAt.Add(e.votingPeriod).After(deadline) {
			deadline = b.CreatedAt.Add(e.votingPeriod)
		}
	}
	if time.Now().UTC().Before(deadline) {
		return e.resolveIfComplete(ctx, taskID, false)
	}
	return e.resolveIfComplete(ctx, taskID, true)
}

// resolveIfComplete runs resolution once every ballot is cast (or the
// voting period expired, when force is set). Verdict writes and trust events
// happen once; the outcome handoff itself is idempotent at the state machine.
func (e *Engine) resolveIfComplete(ctx context.Context, taskID string, force bool) error {
	ballots, err := e.ballots.GetBallotsByTask(taskID)
	if err != nil {
		return err
	}
	if len(ballots) == 0 {
		return nil
	}
	if !force {
		for _, b := range ballots {
			if !b.IsCast() {
				return nil
			}
		}
	}

	task, err := e.tasks.GetTaskByID(taskID)
	if err != nil {
		return err
	}
	if task.Status != types.TaskStatusArbitrating {
		return nil
	}

	challenges, err := e.challenges.GetChallengesByTask(taskID)
	if err != nil {
		return err
	}
	outcome := computeOutcome(task, challenges, ballots)

	alreadyJudged := true
	for _, c := range challenges {
		if c.Status != types.ChallengeStatusJudged {
			alreadyJudged = false
			break
		}
	}
	if !alreadyJudged {
		for _, c := range challenges {
			verdict := outcome.Verdicts[c.ChallengeID]
			whistleblower := outcome.IsWhistleblower(c.ChallengeID)
			if err := e.challenges.UpdateChallengeVerdict(c.ChallengeID, verdict, whistleblower); err != nil {
				return err
			}
		}
		e.applyResolutionTrust(task, challenges, ballots, outcome, force)
	}

	e.logger.Info("Arbitration resolved",
		"task_id", taskID, "voided", outcome.Voided,
		"final_winner", outcome.FinalWinnerSubmissionID,
		"malicious", len(outcome.MaliciousSubmissionIDs))

	if e.onResolved == nil {
		return nil
	}
	return e.onResolved(ctx, outcome)
}

// applyResolutionTrust credits and penalizes challengers and arbiters per
// the computed outcome. Failures are logged; verdicts are already durable
// and the settlement does not depend on trust writes.
func (e *Engine) applyResolutionTrust(
	task types.TaskData,
	challenges []types.ChallengeData,
	ballots []types.JuryBallotData,
	outcome types.ArbitrationOutcome,
	expired bool,
) {
	opts := trust.EventOptions{TaskID: task.TaskID, Bounty: task.Bounty}

	for _, c := range challenges {
		var eventType types.TrustEventType
		switch outcome.Verdicts[c.ChallengeID] {
		case types.VerdictUpheld:
			eventType = types.TrustEventChallengeUpheld
		case types.VerdictMalicious:
			eventType = types.TrustEventChallengeMalicious
		default:
			eventType = types.TrustEventChallengeRejected
			if outcome.IsWhistleblower(c.ChallengeID) {
				eventType = types.TrustEventWhistleblower
			}
		}
		e.applyEvent(c.ChallengerID, eventType, opts)
	}

	majority := make(map[string]bool, len(outcome.MajorityArbiters))
	for _, id := range outcome.MajorityArbiters {
		majority[id] = true
	}
	for _, b := range ballots {
		switch {
		case !b.IsCast():
			if expired {
				e.applyEvent(b.ArbiterID, types.TrustEventArbiterTimeout, opts)
			}
		case majority[b.ArbiterID]:
			e.applyEvent(b.ArbiterID, types.TrustEventArbiterMajority, opts)
		default:
			e.applyEvent(b.ArbiterID, types.TrustEventArbiterMinority, opts)
		}
	}
}

func (e *Engine) applyEvent(userID string, eventType types.TrustEventType, opts trust.EventOptions) {
	if _, err := e.trust.ApplyEvent(userID, eventType, opts); err != nil {
		e.logger.Error("Trust event failed",
			"user_id", userID, "event_type", string(eventType),
			"task_id", opts.TaskID, "error", err)
	}
}

// PendingChallengeCount reports how many challenges are awaiting judgment.
func (e *Engine) PendingChallengeCount(taskID string) (int, error) {
	challenges, err := e.challenges.GetChallengesByTask(taskID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, c := range challenges {
		if c.Status == types.ChallengeStatusPending {
			count++
		}
	}
	return count, nil
}

// ChallengesByTask is the read-only challenge projection.
func (e *Engine) ChallengesByTask(taskID string) ([]types.ChallengeData, error) {
	return e.challenges.GetChallengesByTask(taskID)
}

// BallotProgress returns the "N of M voted" aggregate. Individual votes stay
// hidden until resolution.
func (e *Engine) BallotProgress(taskID string) (types.BallotProgress, error) {
	ballots, err := e.ballots.GetBallotsByTask(taskID)
	if err != nil {
		return types.BallotProgress{}, err
	}
	progress := types.BallotProgress{TaskID: taskID, Total: len(ballots)}
	for _, b := range ballots {
		if b.IsCast() {
			progress.Cast++
		}
	}
	return progress, nil
}

// BallotsByTask exposes full ballots, including votes. Callers gate this on
// the task having left arbitrating.
func (e *Engine) BallotsByTask(taskID string) ([]types.JuryBallotData, error) {
	return e.ballots.GetBallotsByTask(taskID)
}

func candidatePool(winnerSubmissionID string, challenges []types.ChallengeData) []string {
	seen := map[string]bool{}
	var pool []string
	if winnerSubmissionID != "" {
		pool = append(pool, winnerSubmissionID)
		seen[winnerSubmissionID] = true
	}
	for _, c := range challenges {
		if c.Status == types.ChallengeStatusPending && !seen[c.ChallengerSubmissionID] {
			pool = append(pool, c.ChallengerSubmissionID)
			seen[c.ChallengerSubmissionID] = true
		}
	}
	if len(pool) > 1 {
		sort.Strings(pool[1:])
	}
	return pool
}
