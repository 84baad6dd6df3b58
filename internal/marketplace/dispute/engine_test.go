package dispute

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/tasklock"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/trust"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/types"
	"github.com/bountyhive/bountyhive-backend/pkg/errors"
	"github.com/bountyhive/bountyhive-backend/pkg/logging"
)

type memTaskRepo struct {
	tasks map[string]types.TaskData
}

func (r *memTaskRepo) CreateTask(task *types.TaskData) error {
	r.tasks[task.TaskID] = *task
	return nil
}

func (r *memTaskRepo) GetTaskByID(taskID string) (types.TaskData, error) {
	task, ok := r.tasks[taskID]
	if !ok {
		return types.TaskData{}, errors.ErrTaskNotFound
	}
	return task, nil
}

func (r *memTaskRepo) GetTasksByStatus(status types.TaskStatus) ([]types.TaskData, error) {
	return nil, nil
}

func (r *memTaskRepo) UpdateTaskStatus(taskID string, status types.TaskStatus) error {
	task := r.tasks[taskID]
	task.Status = status
	r.tasks[taskID] = task
	return nil
}

func (r *memTaskRepo) UpdateTaskWinner(taskID string, winnerSubmissionID string) error {
	task := r.tasks[taskID]
	task.WinnerSubmissionID = winnerSubmissionID
	r.tasks[taskID] = task
	return nil
}

func (r *memTaskRepo) UpdateTaskChallengeWindow(taskID string, windowEnd time.Time) error {
	task := r.tasks[taskID]
	task.ChallengeWindowEnd = &windowEnd
	r.tasks[taskID] = task
	return nil
}

type memSubRepo struct {
	subs map[string]types.SubmissionData
}

func (r *memSubRepo) CreateSubmission(sub *types.SubmissionData) error {
	r.subs[sub.SubmissionID] = *sub
	return nil
}

func (r *memSubRepo) GetSubmissionByID(submissionID string) (types.SubmissionData, error) {
	sub, ok := r.subs[submissionID]
	if !ok {
		return types.SubmissionData{}, errors.ErrSubmissionNotFound
	}
	return sub, nil
}

func (r *memSubRepo) GetSubmissionsByTask(taskID string) ([]types.SubmissionData, error) {
	var out []types.SubmissionData
	for _, sub := range r.subs {
		if sub.TaskID == taskID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r *memSubRepo) CountSubmissionsByWorker(string, string) (int, error)          { return 0, nil }
func (r *memSubRepo) UpdateSubmissionGate(string, types.SubmissionStatus, string) error { return nil }
func (r *memSubRepo) UpdateSubmissionScore(string, float64, string) error           { return nil }

type memChallengeRepo struct {
	challenges map[string]types.ChallengeData
	createErr  error
}

func (r *memChallengeRepo) CreateChallenge(challenge *types.ChallengeData) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.challenges[challenge.ChallengeID] = *challenge
	return nil
}

func (r *memChallengeRepo) GetChallengeByID(challengeID string) (types.ChallengeData, error) {
	c, ok := r.challenges[challengeID]
	if !ok {
		return types.ChallengeData{}, errors.ErrChallengeNotFound
	}
	return c, nil
}

func (r *memChallengeRepo) GetChallengesByTask(taskID string) ([]types.ChallengeData, error) {
	var out []types.ChallengeData
	for _, c := range r.challenges {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memChallengeRepo) GetLatestChallengeByChallenger(challengerID string) (*types.ChallengeData, error) {
	var latest *types.ChallengeData
	for id := range r.challenges {
		c := r.challenges[id]
		if c.ChallengerID != challengerID {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = &c
		}
	}
	return latest, nil
}

func (r *memChallengeRepo) UpdateChallengeVerdict(challengeID string, verdict types.ChallengeVerdict, whistleblower bool) error {
	c := r.challenges[challengeID]
	c.Status = types.ChallengeStatusJudged
	c.Verdict = verdict
	c.Whistleblower = whistleblower
	now := time.Now().UTC()
	c.JudgedAt = &now
	r.challenges[challengeID] = c
	return nil
}

type memBallotRepo struct {
	ballots map[string]types.JuryBallotData
}

func (r *memBallotRepo) CreateBallot(ballot *types.JuryBallotData) error {
	r.ballots[ballot.BallotID] = *ballot
	return nil
}

func (r *memBallotRepo) GetBallotByID(ballotID string) (types.JuryBallotData, error) {
	b, ok := r.ballots[ballotID]
	if !ok {
		return types.JuryBallotData{}, errors.ErrBallotNotFound
	}
	return b, nil
}

func (r *memBallotRepo) GetBallotsByTask(taskID string) ([]types.JuryBallotData, error) {
	var out []types.JuryBallotData
	for _, b := range r.ballots {
		if b.TaskID == taskID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBallotRepo) CastBallot(ballotID string, winnerSubmissionID string, maliciousSubmissionIDs []string, feedback string, votedAt time.Time) error {
	b := r.ballots[ballotID]
	b.WinnerSubmissionID = winnerSubmissionID
	b.MaliciousSubmissionIDs = maliciousSubmissionIDs
	b.Feedback = feedback
	b.VotedAt = &votedAt
	r.ballots[ballotID] = b
	return nil
}

type fakeDepositEscrow struct {
	authorized []types.Amount
	refunded   []string
	authErr    error
}

func (e *fakeDepositEscrow) AuthorizeDeposit(ctx context.Context, payerID string, amount types.Amount, authorization string) (string, error) {
	if e.authErr != nil {
		return "", e.authErr
	}
	e.authorized = append(e.authorized, amount)
	return "dep-tx-1", nil
}

func (e *fakeDepositEscrow) Refund(ctx context.Context, ref string) (string, error) {
	e.refunded = append(e.refunded, ref)
	return "refund-tx-1", nil
}

type fakeSelector struct {
	arbiters []string
}

func (s *fakeSelector) SelectArbiters(ctx context.Context, taskID string, size int) ([]string, error) {
	return s.arbiters, nil
}

type recordedEvent struct {
	userID    string
	eventType types.TrustEventType
}

type recordingTrust struct {
	tiers  map[string]types.TrustTier
	events []recordedEvent
}

func (t *recordingTrust) ApplyEvent(userID string, eventType types.TrustEventType, opts trust.EventOptions) (types.TrustEventData, error) {
	t.events = append(t.events, recordedEvent{userID: userID, eventType: eventType})
	return types.TrustEventData{}, nil
}

func (t *recordingTrust) EnsureUser(userID string) (types.UserTrustData, error) {
	tier, ok := t.tiers[userID]
	if !ok {
		tier = types.TierA
	}
	return types.UserTrustData{UserID: userID, Tier: tier}, nil
}

func (t *recordingTrust) eventsFor(userID string) []types.TrustEventType {
	var out []types.TrustEventType
	for _, e := range t.events {
		if e.userID == userID {
			out = append(out, e.eventType)
		}
	}
	return out
}

type engineFixture struct {
	engine     *Engine
	tasks      *memTaskRepo
	subs       *memSubRepo
	challenges *memChallengeRepo
	ballots    *memBallotRepo
	escrow     *fakeDepositEscrow
	selector   *fakeSelector
	trust      *recordingTrust
	resolved   []types.ArbitrationOutcome
}

func newEngineFixture(tasks ...types.TaskData) *engineFixture {
	f := &engineFixture{
		tasks:      &memTaskRepo{tasks: make(map[string]types.TaskData)},
		subs:       &memSubRepo{subs: make(map[string]types.SubmissionData)},
		challenges: &memChallengeRepo{challenges: make(map[string]types.ChallengeData)},
		ballots:    &memBallotRepo{ballots: make(map[string]types.JuryBallotData)},
		escrow:     &fakeDepositEscrow{},
		selector:   &fakeSelector{arbiters: []string{"arb-1", "arb-2", "arb-3"}},
		trust:      &recordingTrust{tiers: make(map[string]types.TrustTier)},
	}
	for _, task := range tasks {
		f.tasks.tasks[task.TaskID] = task
	}
	f.engine = NewEngine(f.tasks, f.subs, f.challenges, f.ballots, tasklock.NewRegistry(),
		f.escrow, f.selector, f.trust, logging.NewNoopLogger())
	f.engine.SetResolutionListener(func(ctx context.Context, outcome types.ArbitrationOutcome) error {
		f.resolved = append(f.resolved, outcome)
		return nil
	})
	return f
}

func windowTask() types.TaskData {
	windowEnd := time.Now().UTC().Add(time.Hour)
	return types.TaskData{
		TaskID:             "task-1",
		TaskType:           types.TaskTypeQualityFirst,
		Status:             types.TaskStatusChallengeWindow,
		WinnerSubmissionID: "sub-winner",
		Bounty:             types.AmountFromUnits(100),
		ChallengeWindowEnd: &windowEnd,
	}
}

func scoredSub(subID, workerID string) types.SubmissionData {
	score := 80.0
	return types.SubmissionData{
		SubmissionID: subID, TaskID: "task-1", WorkerID: workerID,
		Status: types.SubmissionStatusScored, Score: &score,
	}
}

func fileRequest(subID string) FileChallengeRequest {
	return FileChallengeRequest{
		TaskID:                 "task-1",
		ChallengerSubmissionID: subID,
		Reason:                 "scoring missed the second criterion",
		PaymentAuthorization:   "auth-token",
	}
}

func TestFileChallengeHoldsTierRatedDeposit(t *testing.T) {
	f := newEngineFixture(windowTask())
	f.subs.subs["sub-a"] = scoredSub("sub-a", "worker-a")

	challenge, err := f.engine.FileChallenge(context.Background(), fileRequest("sub-a"))
	require.NoError(t, err)

	assert.Equal(t, types.ChallengeStatusPending, challenge.Status)
	assert.Equal(t, "sub-winner", challenge.TargetSubmissionID)
	assert.Equal(t, "worker-a", challenge.ChallengerID)
	// A-tier deposit is 10% of the bounty.
	assert.Equal(t, types.AmountFromUnits(10), challenge.Deposit.Amount)
	assert.Equal(t, "dep-tx-1", challenge.Deposit.TxRef)
	assert.Len(t, f.challenges.challenges, 1)
}

func TestFileChallengeUsesFixedDepositWhenSet(t *testing.T) {
	task := windowTask()
	task.SubmissionDeposit = types.AmountFromUnits(25)
	f := newEngineFixture(task)
	f.subs.subs["sub-a"] = scoredSub("sub-a", "worker-a")

	challenge, err := f.engine.FileChallenge(context.Background(), fileRequest("sub-a"))
	require.NoError(t, err)
	assert.Equal(t, types.AmountFromUnits(25), challenge.Deposit.Amount)
}

func TestFileChallengePreconditions(t *testing.T) {
	t.Run("outside window status", func(t *testing.T) {
		task := windowTask()
		task.Status = types.TaskStatusScoring
		f := newEngineFixture(task)
		f.subs.subs["sub-a"] = scoredSub("sub-a", "worker-a")

		_, err := f.engine.FileChallenge(context.Background(), fileRequest("sub-a"))
		assert.True(t, errors.Is(err, errors.ErrTaskNotInWindow))
	})

	t.Run("window elapsed", func(t *testing.T) {
		task := windowTask()
		past := time.Now().UTC().Add(-time.Minute)
		task.ChallengeWindowEnd = &past
		f := newEngineFixture(task)
		f.subs.subs["sub-a"] = scoredSub("sub-a", "worker-a")

		_, err := f.engine.FileChallenge(context.Background(), fileRequest("sub-a"))
		assert.True(t, errors.Is(err, errors.ErrTaskNotInWindow))
	})

	t.Run("self challenge", func(t *testing.T) {
		f := newEngineFixture(windowTask())
		f.subs.subs["sub-winner"] = scoredSub("sub-winner", "worker-w")

		_, err := f.engine.FileChallenge(context.Background(), fileRequest("sub-winner"))
		assert.True(t, errors.Is(err, errors.ErrSelfChallenge))
	})

	t.Run("challenger not scored", func(t *testing.T) {
		f := newEngineFixture(windowTask())
		f.subs.subs["sub-a"] = types.SubmissionData{
			SubmissionID: "sub-a", TaskID: "task-1", WorkerID: "worker-a",
			Status: types.SubmissionStatusGateFailed,
		}

		_, err := f.engine.FileChallenge(context.Background(), fileRequest("sub-a"))
		assert.True(t, errors.Is(err, errors.ErrChallengerNotScored))
	})

	t.Run("duplicate", func(t *testing.T) {
		f := newEngineFixture(windowTask())
		f.subs.subs["sub-a"] = scoredSub("sub-a", "worker-a")
		f.challenges.challenges["ch-1"] = types.ChallengeData{
			ChallengeID: "ch-1", TaskID: "task-1", ChallengerSubmissionID: "sub-a",
			ChallengerID: "worker-a", Status: types.ChallengeStatusPending,
			CreatedAt: time.Now().UTC().Add(-time.Hour),
		}

		_, err := f.engine.FileChallenge(context.Background(), fileRequest("sub-a"))
		assert.True(t, errors.Is(err, errors.ErrDuplicateChallenge))
	})

	t.Run("rate limited", func(t *testing.T) {
		f := newEngineFixture(windowTask())
		f.subs.subs["sub-a"] = scoredSub("sub-a", "worker-a")
		// Same challenger filed seconds ago, against another task.
		f.challenges.challenges["ch-0"] = types.ChallengeData{
			ChallengeID: "ch-0", TaskID: "task-0", ChallengerSubmissionID: "sub-z",
			ChallengerID: "worker-a", Status: types.ChallengeStatusPending,
			CreatedAt: time.Now().UTC().Add(-10 * time.Second),
		}

		_, err := f.engine.FileChallenge(context.Background(), fileRequest("sub-a"))
		assert.True(t, errors.Is(err, errors.ErrChallengeRateLimited))
	})

	t.Run("C tier banned", func(t *testing.T) {
		f := newEngineFixture(windowTask())
		f.subs.subs["sub-a"] = scoredSub("sub-a", "worker-a")
		f.trust.tiers["worker-a"] = types.TierC

		_, err := f.engine.FileChallenge(context.Background(), fileRequest("sub-a"))
		assert.True(t, errors.Is(err, errors.ErrTierCannotChallenge))
		assert.Empty(t, f.escrow.authorized)
	})
}

func TestFileChallengeRefundsDepositWhenInsertFails(t *testing.T) {
	f := newEngineFixture(windowTask())
	f.subs.subs["sub-a"] = scoredSub("sub-a", "worker-a")
	f.challenges.createErr = errors.New(errors.KindExternal, "write timeout")

	_, err := f.engine.FileChallenge(context.Background(), fileRequest("sub-a"))
	require.Error(t, err)
	assert.Equal(t, []string{"dep-tx-1"}, f.escrow.refunded)
}

func TestConveneJuryFreezesCandidatePool(t *testing.T) {
	task := windowTask()
	task.Status = types.TaskStatusArbitrating
	f := newEngineFixture(task)
	f.challenges.challenges["ch-b"] = types.ChallengeData{
		ChallengeID: "ch-b", TaskID: "task-1", ChallengerSubmissionID: "sub-b",
		ChallengerID: "worker-b", Status: types.ChallengeStatusPending,
	}
	f.challenges.challenges["ch-a"] = types.ChallengeData{
		ChallengeID: "ch-a", TaskID: "task-1", ChallengerSubmissionID: "sub-a",
		ChallengerID: "worker-a", Status: types.ChallengeStatusPending,
	}

	require.NoError(t, f.engine.ConveneJury(context.Background(), task))

	ballots, _ := f.ballots.GetBallotsByTask("task-1")
	require.Len(t, ballots, 3)
	for _, b := range ballots {
		assert.Equal(t, []string{"sub-winner", "sub-a", "sub-b"}, b.CandidatePool,
			"incumbent first, challengers sorted")
	}

	// Re-invocation is a no-op.
	require.NoError(t, f.engine.ConveneJury(context.Background(), task))
	ballots, _ = f.ballots.GetBallotsByTask("task-1")
	assert.Len(t, ballots, 3)
}

func arbitratingFixture() *engineFixture {
	task := windowTask()
	task.Status = types.TaskStatusArbitrating
	f := newEngineFixture(task)
	f.challenges.challenges["ch-a"] = types.ChallengeData{
		ChallengeID: "ch-a", TaskID: "task-1", ChallengerSubmissionID: "sub-a",
		ChallengerID: "worker-a", Status: types.ChallengeStatusPending,
		Deposit: types.DepositRef{Amount: types.AmountFromUnits(10), TxRef: "dep-tx-1"},
	}
	for _, arbiterID := range []string{"arb-1", "arb-2", "arb-3"} {
		f.ballots.ballots["ballot-"+arbiterID] = types.JuryBallotData{
			BallotID:      "ballot-" + arbiterID,
			TaskID:        "task-1",
			ArbiterID:     arbiterID,
			CandidatePool: []string{"sub-winner", "sub-a"},
			CreatedAt:     time.Now().UTC().Add(-time.Hour),
		}
	}
	return f
}

func mustCast(t *testing.T, f *engineFixture, ballotID, arbiterID, winner, feedback string) {
	t.Helper()
	_, err := f.engine.CastBallot(context.Background(), ballotID, arbiterID, winner, nil, feedback)
	require.NoError(t, err)
}

func TestCastBallotValidation(t *testing.T) {
	f := arbitratingFixture()

	_, err := f.engine.CastBallot(context.Background(), "ballot-arb-1", "arb-2", "sub-a", nil, "ok")
	assert.True(t, errors.IsValidation(err), "wrong arbiter")

	_, err = f.engine.CastBallot(context.Background(), "ballot-arb-1", "arb-1", "sub-a", nil, "")
	assert.True(t, errors.Is(err, errors.ErrEmptyFeedback))

	_, err = f.engine.CastBallot(context.Background(), "ballot-arb-1", "arb-1", "sub-stranger", nil, "ok")
	assert.True(t, errors.Is(err, errors.ErrWinnerNotInPool))

	_, err = f.engine.CastBallot(context.Background(), "ballot-arb-1", "arb-1", "sub-a", []string{"sub-stranger"}, "ok")
	assert.True(t, errors.Is(err, errors.ErrMaliciousNotInPool))

	_, err = f.engine.CastBallot(context.Background(), "ballot-arb-1", "arb-1", "sub-a", []string{"sub-a"}, "ok")
	assert.True(t, errors.Is(err, errors.ErrWinnerTaggedMalicious))

	taskID, err := f.engine.CastBallot(context.Background(), "ballot-arb-1", "arb-1", "sub-a", nil, "ok")
	require.NoError(t, err)
	assert.Equal(t, "task-1", taskID)
	_, err = f.engine.CastBallot(context.Background(), "ballot-arb-1", "arb-1", "sub-a", nil, "again")
	assert.True(t, errors.Is(err, errors.ErrBallotAlreadyCast))
}

func TestFinalBallotTriggersResolution(t *testing.T) {
	f := arbitratingFixture()

	mustCast(t, f, "ballot-arb-1", "arb-1", "sub-a", "challenger is right")
	mustCast(t, f, "ballot-arb-2", "arb-2", "sub-a", "agree")
	assert.Empty(t, f.resolved, "resolution waits for the last ballot")

	// The listener simulates the state machine closing the task.
	f.engine.SetResolutionListener(func(ctx context.Context, outcome types.ArbitrationOutcome) error {
		f.resolved = append(f.resolved, outcome)
		return f.tasks.UpdateTaskStatus(outcome.TaskID, types.TaskStatusClosed)
	})
	mustCast(t, f, "ballot-arb-3", "arb-3", "sub-winner", "incumbent earned it")

	require.Len(t, f.resolved, 1)
	outcome := f.resolved[0]
	assert.Equal(t, "sub-a", outcome.FinalWinnerSubmissionID)
	assert.Equal(t, types.VerdictUpheld, outcome.Verdicts["ch-a"])

	stored, _ := f.challenges.GetChallengeByID("ch-a")
	assert.Equal(t, types.ChallengeStatusJudged, stored.Status)
	assert.Equal(t, types.VerdictUpheld, stored.Verdict)

	assert.Equal(t, []types.TrustEventType{types.TrustEventChallengeUpheld}, f.trust.eventsFor("worker-a"))
	assert.Equal(t, []types.TrustEventType{types.TrustEventArbiterMajority}, f.trust.eventsFor("arb-1"))
	assert.Equal(t, []types.TrustEventType{types.TrustEventArbiterMinority}, f.trust.eventsFor("arb-3"))
}

func TestResolveExpiredForcesOutcome(t *testing.T) {
	f := arbitratingFixture()
	// Shrink the voting period so the hour-old ballots are overdue.
	f.engine.votingPeriod = time.Minute

	mustCast(t, f, "ballot-arb-1", "arb-1", "sub-winner", "keep")
	require.NoError(t, f.engine.ResolveExpired(context.Background(), "task-1"))

	require.Len(t, f.resolved, 1)
	outcome := f.resolved[0]
	assert.Equal(t, "sub-winner", outcome.FinalWinnerSubmissionID)
	assert.Equal(t, types.VerdictRejected, outcome.Verdicts["ch-a"])

	assert.Equal(t, []types.TrustEventType{types.TrustEventArbiterMajority}, f.trust.eventsFor("arb-1"))
	assert.Equal(t, []types.TrustEventType{types.TrustEventArbiterTimeout}, f.trust.eventsFor("arb-2"))
	assert.Equal(t, []types.TrustEventType{types.TrustEventArbiterTimeout}, f.trust.eventsFor("arb-3"))
}

func TestResolveExpiredBeforeDeadlineIsNoop(t *testing.T) {
	f := arbitratingFixture()

	mustCast(t, f, "ballot-arb-1", "arb-1", "sub-winner", "keep")
	require.NoError(t, f.engine.ResolveExpired(context.Background(), "task-1"))
	assert.Empty(t, f.resolved)
}

func TestPendingChallengeCount(t *testing.T) {
	f := arbitratingFixture()
	f.challenges.challenges["ch-judged"] = types.ChallengeData{
		ChallengeID: "ch-judged", TaskID: "task-1", Status: types.ChallengeStatusJudged,
	}

	count, err := f.engine.PendingChallengeCount("task-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBallotProgressHidesVotes(t *testing.T) {
	f := arbitratingFixture()
	mustCast(t, f, "ballot-arb-1", "arb-1", "sub-a", "ok")

	progress, err := f.engine.BallotProgress("task-1")
	require.NoError(t, err)
	assert.Equal(t, 3, progress.Total)
	assert.Equal(t, 1, progress.Cast)
}
