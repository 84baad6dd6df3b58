package repository

import (
	"time"

	"github.com/gocql/gocql"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/repository/queries"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/types"
	"github.com/bountyhive/bountyhive-backend/pkg/database"
	"github.com/bountyhive/bountyhive-backend/pkg/errors"
)

type SubmissionRepository interface {
	CreateSubmission(sub *types.SubmissionData) error
	GetSubmissionByID(submissionID string) (types.SubmissionData, error)
	GetSubmissionsByTask(taskID string) ([]types.SubmissionData, error)
	CountSubmissionsByWorker(taskID string, workerID string) (int, error)
	UpdateSubmissionGate(submissionID string, status types.SubmissionStatus, feedback string) error
	UpdateSubmissionScore(submissionID string, score float64, feedback string) error
}

type submissionRepository struct {
	db *database.Connection
}

func NewSubmissionRepository(db *database.Connection) SubmissionRepository {
	return &submissionRepository{
		db: db,
	}
}

func (r *submissionRepository) CreateSubmission(sub *types.SubmissionData) error {
	err := r.db.NewQuery(queries.CreateSubmissionQuery,
		sub.SubmissionID, sub.TaskID, sub.WorkerID, sub.Revision,
		sub.Content, string(sub.Status), sub.CreatedAt, sub.UpdatedAt,
	).Idempotent().Exec()
	if err != nil {
		return errors.Wrap(errors.KindExternal, "error creating submission", err)
	}
	return nil
}

func (r *submissionRepository) GetSubmissionByID(submissionID string) (types.SubmissionData, error) {
	var (
		sub    types.SubmissionData
		status string
		score  float64
	)
	err := r.db.NewQuery(queries.GetSubmissionByIDQuery, submissionID).Scan(
		&sub.SubmissionID, &sub.TaskID, &sub.WorkerID, &sub.Revision,
		&sub.Content, &status, &score, &sub.OracleFeedback,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err == gocql.ErrNotFound {
		return types.SubmissionData{}, errors.ErrSubmissionNotFound
	}
	if err != nil {
		return types.SubmissionData{}, errors.Wrap(errors.KindExternal, "error getting submission by ID", err)
	}
	sub.Status = types.SubmissionStatus(status)
	if sub.Status == types.SubmissionStatusScored {
		s := score
		sub.Score = &s
	}
	return sub, nil
}

func (r *submissionRepository) GetSubmissionsByTask(taskID string) ([]types.SubmissionData, error) {
	iter := r.db.NewQuery(queries.GetSubmissionsByTaskQuery, taskID).Iter()

	var subs []types.SubmissionData
	for {
		var (
			sub    types.SubmissionData
			status string
			score  float64
		)
		if !iter.Scan(
			&sub.SubmissionID, &sub.TaskID, &sub.WorkerID, &sub.Revision,
			&sub.Content, &status, &score, &sub.OracleFeedback,
			&sub.CreatedAt, &sub.UpdatedAt,
		) {
			break
		}
		sub.Status = types.SubmissionStatus(status)
		if sub.Status == types.SubmissionStatusScored {
			s := score
			sub.Score = &s
		}
		subs = append(subs, sub)
	}
	if err := iter.Close(); err != nil {
		return nil, errors.Wrap(errors.KindExternal, "error listing submissions by task", err)
	}
	return subs, nil
}

func (r *submissionRepository) CountSubmissionsByWorker(taskID string, workerID string) (int, error) {
	var count int
	err := r.db.NewQuery(queries.CountSubmissionsByWorkerQuery, taskID, workerID).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(errors.KindExternal, "error counting submissions by worker", err)
	}
	return count, nil
}

func (r *submissionRepository) UpdateSubmissionGate(submissionID string, status types.SubmissionStatus, feedback string) error {
	err := r.db.NewQuery(queries.UpdateSubmissionGateQuery,
		string(status), feedback, time.Now().UTC(), submissionID,
	).Idempotent().Exec()
	if err != nil {
		return errors.Wrap(errors.KindExternal, "error updating submission gate result", err)
	}
	return nil
}

func (r *submissionRepository) UpdateSubmissionScore(submissionID string, score float64, feedback string) error {
	err := r.db.NewQuery(queries.UpdateSubmissionScoreQuery,
		string(types.SubmissionStatusScored), score, feedback, time.Now().UTC(), submissionID,
	).Idempotent().Exec()
	if err != nil {
		return errors.Wrap(errors.KindExternal, "error updating submission score", err)
	}
	return nil
}
