package repository

import (
	"encoding/json"
	"time"

	"github.com/gocql/gocql"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/repository/queries"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/types"
	"github.com/bountyhive/bountyhive-backend/pkg/database"
	"github.com/bountyhive/bountyhive-backend/pkg/errors"
)

type TaskRepository interface {
	CreateTask(task *types.TaskData) error
	GetTaskByID(taskID string) (types.TaskData, error)
	GetTasksByStatus(status types.TaskStatus) ([]types.TaskData, error)
	UpdateTaskStatus(taskID string, status types.TaskStatus) error
	UpdateTaskWinner(taskID string, winnerSubmissionID string) error
	UpdateTaskChallengeWindow(taskID string, windowEnd time.Time) error
}

type taskRepository struct {
	db *database.Connection
}

func NewTaskRepository(db *database.Connection) TaskRepository {
	return &taskRepository{
		db: db,
	}
}

func (r *taskRepository) CreateTask(task *types.TaskData) error {
	dimensions, err := json.Marshal(task.ScoringDimensions)
	if err != nil {
		return errors.Wrap(errors.KindValidation, "invalid scoring dimensions", err)
	}
	err = r.db.NewQuery(queries.CreateTaskQuery,
		task.TaskID, task.PublisherID, string(task.TaskType), string(task.Status),
		task.Title, task.Description, int64(task.Bounty), task.Deadline,
		task.Threshold, task.MaxRevisions, int64(task.ChallengeDuration.Seconds()),
		int64(task.SubmissionDeposit), task.AcceptanceCriteria, string(dimensions),
		task.EscrowHoldRef, task.CreatedAt, task.UpdatedAt,
	).Idempotent().Exec()
	if err != nil {
		return errors.Wrap(errors.KindExternal, "error creating task", err)
	}
	return nil
}

func (r *taskRepository) GetTaskByID(taskID string) (types.TaskData, error) {
	task, err := r.scanTask(r.db.NewQuery(queries.GetTaskByIDQuery, taskID))
	if err == gocql.ErrNotFound {
		return types.TaskData{}, errors.ErrTaskNotFound
	}
	if err != nil {
		return types.TaskData{}, errors.Wrap(errors.KindExternal, "error getting task by ID", err)
	}
	return task, nil
}

func (r *taskRepository) GetTasksByStatus(status types.TaskStatus) ([]types.TaskData, error) {
	iter := r.db.NewQuery(queries.GetTasksByStatusQuery, string(status)).Iter()

	var tasks []types.TaskData
	for {
		task, ok := scanTaskFromIter(iter)
		if !ok {
			break
		}
		tasks = append(tasks, task)
	}
	if err := iter.Close(); err != nil {
		return nil, errors.Wrap(errors.KindExternal, "error listing tasks by status", err)
	}
	return tasks, nil
}

func (r *taskRepository) UpdateTaskStatus(taskID string, status types.TaskStatus) error {
	err := r.db.NewQuery(queries.UpdateTaskStatusQuery, string(status), time.Now().UTC(), taskID).Idempotent().Exec()
	if err != nil {
		return errors.Wrap(errors.KindExternal, "error updating task status", err)
	}
	return nil
}

func (r *taskRepository) UpdateTaskWinner(taskID string, winnerSubmissionID string) error {
	err := r.db.NewQuery(queries.UpdateTaskWinnerQuery, winnerSubmissionID, time.Now().UTC(), taskID).Idempotent().Exec()
	if err != nil {
		return errors.Wrap(errors.KindExternal, "error updating task winner", err)
	}
	return nil
}

func (r *taskRepository) UpdateTaskChallengeWindow(taskID string, windowEnd time.Time) error {
	err := r.db.NewQuery(queries.UpdateTaskChallengeWindowQuery, windowEnd, time.Now().UTC(), taskID).Idempotent().Exec()
	if err != nil {
		return errors.Wrap(errors.KindExternal, "error updating challenge window", err)
	}
	return nil
}

func (r *taskRepository) scanTask(q *database.Queryx) (types.TaskData, error) {
	var (
		task              types.TaskData
		taskType, status  string
		bounty, deposit   int64
		challengeDuration int64
		dimensionsJSON    string
		windowEnd         time.Time
	)
	err := q.Scan(
		&task.TaskID, &task.PublisherID, &taskType, &status, &task.Title,
		&task.Description, &bounty, &task.Deadline, &task.Threshold,
		&task.MaxRevisions, &challengeDuration, &deposit,
		&task.AcceptanceCriteria, &dimensionsJSON, &windowEnd,
		&task.WinnerSubmissionID, &task.EscrowHoldRef,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return types.TaskData{}, err
	}
	hydrateTask(&task, taskType, status, bounty, deposit, challengeDuration, dimensionsJSON, windowEnd)
	return task, nil
}

func scanTaskFromIter(iter *gocql.Iter) (types.TaskData, bool) {
	var (
		task              types.TaskData
		taskType, status  string
		bounty, deposit   int64
		challengeDuration int64
		dimensionsJSON    string
		windowEnd         time.Time
	)
	ok := iter.Scan(
		&task.TaskID, &task.PublisherID, &taskType, &status, &task.Title,
		&task.Description, &bounty, &task.Deadline, &task.Threshold,
		&task.MaxRevisions, &challengeDuration, &deposit,
		&task.AcceptanceCriteria, &dimensionsJSON, &windowEnd,
		&task.WinnerSubmissionID, &task.EscrowHoldRef,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if !ok {
		return types.TaskData{}, false
	}
	hydrateTask(&task, taskType, status, bounty, deposit, challengeDuration, dimensionsJSON, windowEnd)
	return task, true
}

func hydrateTask(task *types.TaskData, taskType, status string, bounty, deposit, challengeDuration int64, dimensionsJSON string, windowEnd time.Time) {
	task.TaskType = types.TaskType(taskType)
	task.Status = types.TaskStatus(status)
	task.Bounty = types.Amount(bounty)
	task.SubmissionDeposit = types.Amount(deposit)
	task.ChallengeDuration = time.Duration(challengeDuration) * time.Second
	if dimensionsJSON != "" {
		_ = json.Unmarshal([]byte(dimensionsJSON), &task.ScoringDimensions)
	}
	if !windowEnd.IsZero() {
		end := windowEnd
		task.ChallengeWindowEnd = &end
	}
}
