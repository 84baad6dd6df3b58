package lifecycle

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

type fakeTaskRepo struct {
	tasks map[string]types.TaskData
}

func newFakeTaskRepo(tasks ...types.TaskData) *fakeTaskRepo {
	r := &fakeTaskRepo{tasks: make(map[string]types.TaskData)}
	for _, task := range tasks {
		r.tasks[task.TaskID] = task
	}
	return r
}

func (r *fakeTaskRepo) CreateTask(task *types.TaskData) error {
	r.tasks[task.TaskID] = *task
	return nil
}

func (r *fakeTaskRepo) GetTaskByID(taskID string) (types.TaskData, error) {
	task, ok := r.tasks[taskID]
	if !ok {
		return types.TaskData{}, errors.ErrTaskNotFound
	}
	return task, nil
}

func (r *fakeTaskRepo) GetTasksByStatus(status types.TaskStatus) ([]types.TaskData, error) {
	var out []types.TaskData
	for _, task := range r.tasks {
		if task.Status == status {
			out = append(out, task)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) UpdateTaskStatus(taskID string, status types.TaskStatus) error {
	task := r.tasks[taskID]
	task.Status = status
	r.tasks[taskID] = task
	return nil
}

func (r *fakeTaskRepo) UpdateTaskWinner(taskID string, winnerSubmissionID string) error {
	task := r.tasks[taskID]
	task.WinnerSubmissionID = winnerSubmissionID
	r.tasks[taskID] = task
	return nil
}

func (r *fakeTaskRepo) UpdateTaskChallengeWindow(taskID string, windowEnd time.Time) error {
	task := r.tasks[taskID]
	task.ChallengeWindowEnd = &windowEnd
	r.tasks[taskID] = task
	return nil
}

type fakeSubRepo struct {
	subs []types.SubmissionData
}

func (r *fakeSubRepo) CreateSubmission(sub *types.SubmissionData) error {
	r.subs = append(r.subs, *sub)
	return nil
}

func (r *fakeSubRepo) GetSubmissionByID(submissionID string) (types.SubmissionData, error) {
	for _, sub := range r.subs {
		if sub.SubmissionID == submissionID {
			return sub, nil
		}
	}
	return types.SubmissionData{}, errors.ErrSubmissionNotFound
}

func (r *fakeSubRepo) GetSubmissionsByTask(taskID string) ([]types.SubmissionData, error) {
	var out []types.SubmissionData
	for _, sub := range r.subs {
		if sub.TaskID == taskID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r *fakeSubRepo) CountSubmissionsByWorker(taskID string, workerID string) (int, error) {
	count := 0
	for _, sub := range r.subs {
		if sub.TaskID == taskID && sub.WorkerID == workerID {
			count++
		}
	}
	return count, nil
}

func (r *fakeSubRepo) UpdateSubmissionGate(string, types.SubmissionStatus, string) error { return nil }
func (r *fakeSubRepo) UpdateSubmissionScore(string, float64, string) error               { return nil }

type fakeEscrow struct {
	holds  int
	failed bool
}

func (e *fakeEscrow) Hold(ctx context.Context, taskID, payerID string, amount types.Amount) (string, error) {
	if e.failed {
		return "", errors.ErrEscrowUnavailable
	}
	e.holds++
	return "hold-" + taskID, nil
}

type fakeSettler struct {
	settled  []string
	statuses []types.TaskStatus
	outcomes []*types.ArbitrationOutcome
	failures int
}

func (s *fakeSettler) Settle(ctx context.Context, task types.TaskData, outcome *types.ArbitrationOutcome) (*types.SettlementRecord, error) {
	if s.failures > 0 {
		s.failures--
		return nil, errors.ErrTierLookupFailed
	}
	s.settled = append(s.settled, task.TaskID)
	s.statuses = append(s.statuses, task.Status)
	s.outcomes = append(s.outcomes, outcome)
	return &types.SettlementRecord{TaskID: task.TaskID, EscrowTotal: task.Bounty}, nil
}

type fakeDisputes struct {
	pending  int
	convened bool
}

func (d *fakeDisputes) PendingChallengeCount(taskID string) (int, error) { return d.pending, nil }
func (d *fakeDisputes) ConveneJury(ctx context.Context, task types.TaskData) error {
	d.convened = true
	return nil
}

type trustCall struct {
	userID    string
	eventType types.TrustEventType
}

type fakeTrust struct {
	tier  types.TrustTier
	calls []trustCall
}

func (t *fakeTrust) ApplyEvent(userID string, eventType types.TrustEventType, opts trust.EventOptions) (types.TrustEventData, error) {
	t.calls = append(t.calls, trustCall{userID: userID, eventType: eventType})
	return types.TrustEventData{}, nil
}

func (t *fakeTrust) EnsureUser(userID string) (types.UserTrustData, error) {
	tier := t.tier
	if tier == "" {
		tier = types.TierA
	}
	return types.UserTrustData{UserID: userID, Score: trust.InitialScore, Tier: tier}, nil
}

func (t *fakeTrust) events(userID string) []types.TrustEventType {
	var out []types.TrustEventType
	for _, c := range t.calls {
		if c.userID == userID {
			out = append(out, c.eventType)
		}
	}
	return out
}

type fixture struct {
	machine  *Machine
	tasks    *fakeTaskRepo
	subs     *fakeSubRepo
	escrow   *fakeEscrow
	settler  *fakeSettler
	disputes *fakeDisputes
	trust    *fakeTrust
}

func newFixture(tasks ...types.TaskData) *fixture {
	f := &fixture{
		tasks:    newFakeTaskRepo(tasks...),
		subs:     &fakeSubRepo{},
		escrow:   &fakeEscrow{},
		settler:  &fakeSettler{},
		disputes: &fakeDisputes{},
		trust:    &fakeTrust{},
	}
	f.machine = NewMachine(f.tasks, f.subs, tasklock.NewRegistry(),
		f.escrow, f.settler, f.disputes, f.trust, logging.NewNoopLogger())
	return f
}

func validRequest() CreateTaskRequest {
	return CreateTaskRequest{
		PublisherID: "pub-1",
		TaskType:    types.TaskTypeQualityFirst,
		Title:       "summarize dataset",
		Bounty:      types.AmountFromUnits(100),
		Deadline:    time.Now().UTC().Add(48 * time.Hour),
	}
}

func scored(taskID, subID, workerID string, score float64, at time.Time) types.SubmissionData {
	return types.SubmissionData{
		SubmissionID: subID,
		TaskID:       taskID,
		WorkerID:     workerID,
		Revision:     1,
		Status:       types.SubmissionStatusScored,
		Score:        &score,
		UpdatedAt:    at,
	}
}

func TestCreateTask(t *testing.T) {
	f := newFixture()

	task, err := f.machine.CreateTask(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusOpen, task.Status)
	assert.Equal(t, "hold-"+task.TaskID, task.EscrowHoldRef)
	assert.Equal(t, 1, f.escrow.holds)

	stored, err := f.tasks.GetTaskByID(task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusOpen, stored.Status)
	assert.Equal(t, "hold-"+task.TaskID, stored.EscrowHoldRef)
}

func TestCreateTaskValidation(t *testing.T) {
	f := newFixture()

	req := validRequest()
	req.Bounty = 0
	_, err := f.machine.CreateTask(context.Background(), req)
	assert.True(t, errors.IsValidation(err))

	req = validRequest()
	req.Deadline = time.Now().UTC().Add(-time.Hour)
	_, err = f.machine.CreateTask(context.Background(), req)
	assert.True(t, errors.IsValidation(err))

	req = validRequest()
	req.TaskType = types.TaskType("auction")
	_, err = f.machine.CreateTask(context.Background(), req)
	assert.True(t, errors.IsValidation(err))

	req = validRequest()
	req.TaskType = types.TaskTypeFastestFirst
	req.Threshold = 0
	_, err = f.machine.CreateTask(context.Background(), req)
	assert.True(t, errors.IsValidation(err))

	assert.Zero(t, f.escrow.holds)
}

func TestCreateTaskTierCap(t *testing.T) {
	f := newFixture()
	f.trust.tier = types.TierB

	req := validRequest()
	req.Bounty = types.AmountFromUnits(60)
	_, err := f.machine.CreateTask(context.Background(), req)
	assert.True(t, errors.IsValidation(err))
	assert.Zero(t, f.escrow.holds)

	req.Bounty = types.AmountFromUnits(50)
	_, err = f.machine.CreateTask(context.Background(), req)
	assert.NoError(t, err)
}

func TestCreateTaskEscrowFailure(t *testing.T) {
	f := newFixture()
	f.escrow.failed = true

	_, err := f.machine.CreateTask(context.Background(), validRequest())
	require.Error(t, err)
	assert.True(t, errors.IsExternal(err))
	assert.Empty(t, f.tasks.tasks)
}

func TestOnSubmissionScoredClosesFastestFirstEntry(t *testing.T) {
	now := time.Now().UTC()
	f := newFixture(types.TaskData{
		TaskID: "task-1", TaskType: types.TaskTypeFastestFirst,
		Status: types.TaskStatusOpen, Threshold: 80,
		Bounty: types.AmountFromUnits(50), Deadline: now.Add(time.Hour),
	})
	f.subs.subs = []types.SubmissionData{
		scored("task-1", "sub-late", "worker-2", 95, now),
		scored("task-1", "sub-early", "worker-1", 81, now.Add(-time.Minute)),
	}

	f.machine.OnSubmissionScored(context.Background(), "task-1")

	task, _ := f.tasks.GetTaskByID("task-1")
	assert.Equal(t, types.TaskStatusScoring, task.Status)
	assert.Equal(t, "sub-early", task.WinnerSubmissionID, "first to cross wins, not highest score")
	assert.Empty(t, f.settler.settled, "settlement waits for scoring to complete")
}

func TestOnSubmissionScoredIgnoresQualityFirst(t *testing.T) {
	now := time.Now().UTC()
	f := newFixture(types.TaskData{
		TaskID: "task-1", TaskType: types.TaskTypeQualityFirst,
		Status: types.TaskStatusOpen,
		Bounty: types.AmountFromUnits(50), Deadline: now.Add(time.Hour),
	})
	f.subs.subs = []types.SubmissionData{scored("task-1", "sub-1", "worker-1", 99, now)}

	f.machine.OnSubmissionScored(context.Background(), "task-1")

	task, _ := f.tasks.GetTaskByID("task-1")
	assert.Equal(t, types.TaskStatusOpen, task.Status)
}

func TestEvaluateDeadlineVoidsWithoutViableSubmissions(t *testing.T) {
	f := newFixture(types.TaskData{
		TaskID: "task-1", TaskType: types.TaskTypeQualityFirst,
		Status: types.TaskStatusOpen,
		Bounty: types.AmountFromUnits(50), Deadline: time.Now().UTC().Add(-time.Minute),
	})
	f.subs.subs = []types.SubmissionData{{
		SubmissionID: "sub-1", TaskID: "task-1", WorkerID: "worker-1",
		Status: types.SubmissionStatusGateFailed,
	}}

	require.NoError(t, f.machine.EvaluateDeadline(context.Background(), "task-1"))

	task, _ := f.tasks.GetTaskByID("task-1")
	assert.Equal(t, types.TaskStatusVoided, task.Status)
	assert.Equal(t, []string{"task-1"}, f.settler.settled)
}

func TestEvaluateDeadlineLeavesFutureDeadlineAlone(t *testing.T) {
	f := newFixture(types.TaskData{
		TaskID: "task-1", TaskType: types.TaskTypeQualityFirst,
		Status: types.TaskStatusOpen,
		Bounty: types.AmountFromUnits(50), Deadline: time.Now().UTC().Add(time.Hour),
	})

	require.NoError(t, f.machine.EvaluateDeadline(context.Background(), "task-1"))

	task, _ := f.tasks.GetTaskByID("task-1")
	assert.Equal(t, types.TaskStatusOpen, task.Status)
}

func TestEvaluateDeadlineMovesToScoring(t *testing.T) {
	now := time.Now().UTC()
	f := newFixture(types.TaskData{
		TaskID: "task-1", TaskType: types.TaskTypeQualityFirst,
		Status: types.TaskStatusOpen,
		Bounty: types.AmountFromUnits(50), Deadline: now.Add(-time.Minute),
	})
	f.subs.subs = []types.SubmissionData{{
		SubmissionID: "sub-1", TaskID: "task-1", WorkerID: "worker-1",
		Status: types.SubmissionStatusPending,
	}}

	require.NoError(t, f.machine.EvaluateDeadline(context.Background(), "task-1"))

	task, _ := f.tasks.GetTaskByID("task-1")
	assert.Equal(t, types.TaskStatusScoring, task.Status)
	assert.Empty(t, f.settler.settled)
}

func TestEvaluateDeadlineClosesFastestFirstWithCrossing(t *testing.T) {
	now := time.Now().UTC()
	f := newFixture(types.TaskData{
		TaskID: "task-1", PublisherID: "pub-1", TaskType: types.TaskTypeFastestFirst,
		Status: types.TaskStatusOpen, Threshold: 70,
		Bounty: types.AmountFromUnits(50), Deadline: now.Add(-time.Minute),
	})
	f.subs.subs = []types.SubmissionData{
		scored("task-1", "sub-1", "worker-1", 85, now.Add(-time.Hour)),
	}

	require.NoError(t, f.machine.EvaluateDeadline(context.Background(), "task-1"))

	task, _ := f.tasks.GetTaskByID("task-1")
	assert.Equal(t, types.TaskStatusClosed, task.Status)
	assert.Equal(t, "sub-1", task.WinnerSubmissionID)
	assert.Equal(t, []string{"task-1"}, f.settler.settled)
	assert.Contains(t, f.trust.events("worker-1"), types.TrustEventTaskCompleted)
	assert.Contains(t, f.trust.events("pub-1"), types.TrustEventPublisherCompleted)
}

func TestCompleteScoringWaitsForOracle(t *testing.T) {
	now := time.Now().UTC()
	f := newFixture(types.TaskData{
		TaskID: "task-1", TaskType: types.TaskTypeQualityFirst,
		Status: types.TaskStatusScoring,
		Bounty: types.AmountFromUnits(50), Deadline: now.Add(-time.Hour),
	})
	f.subs.subs = []types.SubmissionData{
		scored("task-1", "sub-1", "worker-1", 85, now),
		{SubmissionID: "sub-2", TaskID: "task-1", WorkerID: "worker-2",
			Status: types.SubmissionStatusGatePassed},
	}

	require.NoError(t, f.machine.CompleteScoring(context.Background(), "task-1"))

	task, _ := f.tasks.GetTaskByID("task-1")
	assert.Equal(t, types.TaskStatusScoring, task.Status)
}

func TestCompleteScoringOpensChallengeWindow(t *testing.T) {
	now := time.Now().UTC()
	f := newFixture(types.TaskData{
		TaskID: "task-1", TaskType: types.TaskTypeQualityFirst,
		Status: types.TaskStatusScoring, ChallengeDuration: time.Hour,
		Bounty: types.AmountFromUnits(50), Deadline: now.Add(-time.Hour),
	})
	f.subs.subs = []types.SubmissionData{
		scored("task-1", "sub-1", "worker-1", 85, now.Add(-2*time.Minute)),
		scored("task-1", "sub-2", "worker-2", 92, now.Add(-time.Minute)),
	}

	require.NoError(t, f.machine.CompleteScoring(context.Background(), "task-1"))

	task, _ := f.tasks.GetTaskByID("task-1")
	assert.Equal(t, types.TaskStatusChallengeWindow, task.Status)
	assert.Equal(t, "sub-2", task.WinnerSubmissionID)
	require.NotNil(t, task.ChallengeWindowEnd)
	assert.True(t, task.ChallengeWindowEnd.After(now))
	assert.Empty(t, f.settler.settled, "quality_first settles after the window")
}

func TestCompleteScoringRanksLatestRevisionOnly(t *testing.T) {
	now := time.Now().UTC()
	f := newFixture(types.TaskData{
		TaskID: "task-1", TaskType: types.TaskTypeQualityFirst,
		Status: types.TaskStatusScoring, ChallengeDuration: time.Hour,
		Bounty: types.AmountFromUnits(50), Deadline: now.Add(-time.Hour),
	})
	// worker-1's high-scoring revision 1 is superseded by a weaker revision 2.
	rev1 := scored("task-1", "sub-1a", "worker-1", 95, now.Add(-3*time.Minute))
	rev1.Revision = 1
	rev2 := scored("task-1", "sub-1b", "worker-1", 60, now.Add(-2*time.Minute))
	rev2.Revision = 2
	other := scored("task-1", "sub-2", "worker-2", 70, now.Add(-time.Minute))
	f.subs.subs = []types.SubmissionData{rev1, rev2, other}

	require.NoError(t, f.machine.CompleteScoring(context.Background(), "task-1"))

	task, _ := f.tasks.GetTaskByID("task-1")
	assert.Equal(t, "sub-2", task.WinnerSubmissionID)
}

func TestCompleteScoringVoidsWhenNothingScored(t *testing.T) {
	now := time.Now().UTC()
	f := newFixture(types.TaskData{
		TaskID: "task-1", TaskType: types.TaskTypeQualityFirst,
		Status: types.TaskStatusScoring,
		Bounty: types.AmountFromUnits(50), Deadline: now.Add(-time.Hour),
	})
	f.subs.subs = []types.SubmissionData{{
		SubmissionID: "sub-1", TaskID: "task-1", WorkerID: "worker-1",
		Status: types.SubmissionStatusGateFailed,
	}}

	require.NoError(t, f.machine.CompleteScoring(context.Background(), "task-1"))

	task, _ := f.tasks.GetTaskByID("task-1")
	assert.Equal(t, types.TaskStatusVoided, task.Status)
	assert.Equal(t, []string{"task-1"}, f.settler.settled)
}

func TestCloseChallengeWindowNoChallenges(t *testing.T) {
	now := time.Now().UTC()
	windowEnd := now.Add(-time.Minute)
	f := newFixture(types.TaskData{
		TaskID: "task-1", TaskType: types.TaskTypeQualityFirst,
		Status: types.TaskStatusChallengeWindow, WinnerSubmissionID: "sub-1",
		ChallengeWindowEnd: &windowEnd,
		Bounty:             types.AmountFromUnits(50), Deadline: now.Add(-time.Hour),
	})
	f.subs.subs = []types.SubmissionData{scored("task-1", "sub-1", "worker-1", 85, now)}

	require.NoError(t, f.machine.CloseChallengeWindow(context.Background(), "task-1"))

	task, _ := f.tasks.GetTaskByID("task-1")
	assert.Equal(t, types.TaskStatusClosed, task.Status)
	assert.Equal(t, []string{"task-1"}, f.settler.settled)
	assert.False(t, f.disputes.convened)
	assert.Contains(t, f.trust.events("worker-1"), types.TrustEventTaskCompleted)
}

func TestCloseChallengeWindowConvenesJury(t *testing.T) {
	now := time.Now().UTC()
	windowEnd := now.Add(-time.Minute)
	f := newFixture(types.TaskData{
		TaskID: "task-1", TaskType: types.TaskTypeQualityFirst,
		Status: types.TaskStatusChallengeWindow, WinnerSubmissionID: "sub-1",
		ChallengeWindowEnd: &windowEnd,
		Bounty:             types.AmountFromUnits(50), Deadline: now.Add(-time.Hour),
	})
	f.disputes.pending = 2

	require.NoError(t, f.machine.CloseChallengeWindow(context.Background(), "task-1"))

	task, _ := f.tasks.GetTaskByID("task-1")
	assert.Equal(t, types.TaskStatusArbitrating, task.Status)
	assert.True(t, f.disputes.convened)
	assert.Empty(t, f.settler.settled)
}

func TestCloseChallengeWindowBeforeEnd(t *testing.T) {
	now := time.Now().UTC()
	windowEnd := now.Add(time.Hour)
	f := newFixture(types.TaskData{
		TaskID: "task-1", TaskType: types.TaskTypeQualityFirst,
		Status: types.TaskStatusChallengeWindow,
		ChallengeWindowEnd: &windowEnd,
		Bounty:             types.AmountFromUnits(50), Deadline: now.Add(-time.Hour),
	})
	f.disputes.pending = 1

	require.NoError(t, f.machine.CloseChallengeWindow(context.Background(), "task-1"))

	task, _ := f.tasks.GetTaskByID("task-1")
	assert.Equal(t, types.TaskStatusChallengeWindow, task.Status)
	assert.False(t, f.disputes.convened)
}

func TestApplyArbitrationOutcomeClosesWithNewWinner(t *testing.T) {
	now := time.Now().UTC()
	f := newFixture(types.TaskData{
		TaskID: "task-1", TaskType: types.TaskTypeQualityFirst,
		Status: types.TaskStatusArbitrating, WinnerSubmissionID: "sub-1",
		Bounty: types.AmountFromUnits(50), Deadline: now.Add(-time.Hour),
	})
	f.subs.subs = []types.SubmissionData{
		scored("task-1", "sub-1", "worker-1", 85, now),
		scored("task-1", "sub-2", "worker-2", 90, now),
	}

	outcome := types.ArbitrationOutcome{
		TaskID:                  "task-1",
		FinalWinnerSubmissionID: "sub-2",
	}
	require.NoError(t, f.machine.ApplyArbitrationOutcome(context.Background(), outcome))

	task, _ := f.tasks.GetTaskByID("task-1")
	assert.Equal(t, types.TaskStatusClosed, task.Status)
	assert.Equal(t, "sub-2", task.WinnerSubmissionID)
	assert.Equal(t, []string{"task-1"}, f.settler.settled)
	assert.Contains(t, f.trust.events("worker-2"), types.TrustEventTaskCompleted)
	assert.Contains(t, f.trust.events("worker-1"), types.TrustEventConsolation)
}

func TestApplyArbitrationOutcomeVoids(t *testing.T) {
	now := time.Now().UTC()
	f := newFixture(types.TaskData{
		TaskID: "task-1", TaskType: types.TaskTypeQualityFirst,
		Status: types.TaskStatusArbitrating, WinnerSubmissionID: "sub-1",
		Bounty: types.AmountFromUnits(50), Deadline: now.Add(-time.Hour),
	})
	f.subs.subs = []types.SubmissionData{scored("task-1", "sub-1", "worker-1", 85, now)}

	outcome := types.ArbitrationOutcome{
		TaskID:                 "task-1",
		Voided:                 true,
		MaliciousSubmissionIDs: []string{"sub-1"},
	}
	require.NoError(t, f.machine.ApplyArbitrationOutcome(context.Background(), outcome))

	task, _ := f.tasks.GetTaskByID("task-1")
	assert.Equal(t, types.TaskStatusVoided, task.Status)
	assert.Equal(t, []types.TrustEventType{types.TrustEventTaskFailed}, f.trust.events("worker-1"))
}

func TestApplyArbitrationOutcomeIdempotentOnceTerminal(t *testing.T) {
	now := time.Now().UTC()
	f := newFixture(types.TaskData{
		TaskID: "task-1", TaskType: types.TaskTypeQualityFirst,
		Status: types.TaskStatusClosed, WinnerSubmissionID: "sub-1",
		Bounty: types.AmountFromUnits(50), Deadline: now.Add(-time.Hour),
	})

	outcome := types.ArbitrationOutcome{TaskID: "task-1", FinalWinnerSubmissionID: "sub-1"}
	require.NoError(t, f.machine.ApplyArbitrationOutcome(context.Background(), outcome))
	assert.Empty(t, f.settler.settled)
}

func TestApplyArbitrationOutcomeRejectsWrongPhase(t *testing.T) {
	now := time.Now().UTC()
	f := newFixture(types.TaskData{
		TaskID: "task-1", TaskType: types.TaskTypeQualityFirst,
		Status: types.TaskStatusScoring,
		Bounty: types.AmountFromUnits(50), Deadline: now.Add(-time.Hour),
	})

	outcome := types.ArbitrationOutcome{TaskID: "task-1", FinalWinnerSubmissionID: "sub-1"}
	err := f.machine.ApplyArbitrationOutcome(context.Background(), outcome)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
}

func TestApplyArbitrationOutcomeRetriesAfterSettlementFailure(t *testing.T) {
	now := time.Now().UTC()
	f := newFixture(types.TaskData{
		TaskID: "task-1", TaskType: types.TaskTypeQualityFirst,
		Status: types.TaskStatusArbitrating, WinnerSubmissionID: "sub-1",
		Bounty: types.AmountFromUnits(50), Deadline: now.Add(-time.Hour),
	})
	f.subs.subs = []types.SubmissionData{scored("task-1", "sub-1", "worker-1", 85, now)}
	f.settler.failures = 1

	outcome := types.ArbitrationOutcome{TaskID: "task-1", FinalWinnerSubmissionID: "sub-1"}
	err := f.machine.ApplyArbitrationOutcome(context.Background(), outcome)
	assert.True(t, errors.Is(err, errors.ErrTierLookupFailed))

	// The transition must not land ahead of the settlement, so the task is
	// still arbitrating and a re-delivered outcome can drive it home.
	task, _ := f.tasks.GetTaskByID("task-1")
	assert.Equal(t, types.TaskStatusArbitrating, task.Status)
	assert.Empty(t, f.settler.settled)
	assert.Empty(t, f.trust.calls)

	require.NoError(t, f.machine.ApplyArbitrationOutcome(context.Background(), outcome))
	task, _ = f.tasks.GetTaskByID("task-1")
	assert.Equal(t, types.TaskStatusClosed, task.Status)
	assert.Equal(t, []string{"task-1"}, f.settler.settled)
	assert.Equal(t, []types.TaskStatus{types.TaskStatusClosed}, f.settler.statuses)
}

func TestEvaluateDeadlineRetriesAfterSettlementFailure(t *testing.T) {
	f := newFixture(types.TaskData{
		TaskID: "task-1", TaskType: types.TaskTypeQualityFirst,
		Status: types.TaskStatusOpen,
		Bounty: types.AmountFromUnits(50), Deadline: time.Now().UTC().Add(-time.Minute),
	})
	f.subs.subs = []types.SubmissionData{{
		SubmissionID: "sub-1", TaskID: "task-1", WorkerID: "worker-1",
		Status: types.SubmissionStatusGateFailed,
	}}
	f.settler.failures = 1

	err := f.machine.EvaluateDeadline(context.Background(), "task-1")
	assert.True(t, errors.Is(err, errors.ErrTierLookupFailed))

	task, _ := f.tasks.GetTaskByID("task-1")
	assert.Equal(t, types.TaskStatusOpen, task.Status)

	require.NoError(t, f.machine.EvaluateDeadline(context.Background(), "task-1"))
	task, _ = f.tasks.GetTaskByID("task-1")
	assert.Equal(t, types.TaskStatusVoided, task.Status)
	assert.Equal(t, []types.TaskStatus{types.TaskStatusVoided}, f.settler.statuses)
}

func TestTransitionTable(t *testing.T) {
	assert.True(t, canTransition(types.TaskStatusOpen, types.TaskStatusScoring))
	assert.True(t, canTransition(types.TaskStatusScoring, types.TaskStatusChallengeWindow))
	assert.True(t, canTransition(types.TaskStatusChallengeWindow, types.TaskStatusArbitrating))
	assert.True(t, canTransition(types.TaskStatusArbitrating, types.TaskStatusVoided))

	assert.False(t, canTransition(types.TaskStatusOpen, types.TaskStatusArbitrating))
	assert.False(t, canTransition(types.TaskStatusClosed, types.TaskStatusOpen))
	assert.False(t, canTransition(types.TaskStatusVoided, types.TaskStatusScoring))
	assert.False(t, canTransition(types.TaskStatusChallengeWindow, types.TaskStatusVoided))
}
