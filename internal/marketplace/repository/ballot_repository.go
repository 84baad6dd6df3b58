package repository

import (
	"time"

	"github.com/gocql/gocql"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/repository/queries"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/types"
	"github.com/bountyhive/bountyhive-backend/pkg/database"
	"github.com/bountyhive/bountyhive-backend/pkg/errors"
)

type BallotRepository interface {
	CreateBallot(ballot *types.JuryBallotData) error
	GetBallotByID(ballotID string) (types.JuryBallotData, error)
	GetBallotsByTask(taskID string) ([]types.JuryBallotData, error)
	CastBallot(ballotID string, winnerSubmissionID string, maliciousSubmissionIDs []string, feedback string, votedAt time.Time) error
}

type ballotRepository struct {
	db *database.Connection
}

func NewBallotRepository(db *database.Connection) BallotRepository {
	return &ballotRepository{
		db: db,
	}
}

func (r *ballotRepository) CreateBallot(ballot *types.JuryBallotData) error {
	err := r.db.NewQuery(queries.CreateBallotQuery,
		ballot.BallotID, ballot.TaskID, ballot.ArbiterID,
		ballot.CandidatePool, ballot.CreatedAt,
	).Idempotent().Exec()
	if err != nil {
		return errors.Wrap(errors.KindExternal, "error creating jury ballot", err)
	}
	return nil
}

func (r *ballotRepository) GetBallotByID(ballotID string) (types.JuryBallotData, error) {
	var (
		ballot  types.JuryBallotData
		votedAt time.Time
	)
	err := r.db.NewQuery(queries.GetBallotByIDQuery, ballotID).Scan(
		&ballot.BallotID, &ballot.TaskID, &ballot.ArbiterID, &ballot.CandidatePool,
		&ballot.WinnerSubmissionID, &ballot.MaliciousSubmissionIDs,
		&ballot.Feedback, &votedAt, &ballot.CreatedAt,
	)
	if err == gocql.ErrNotFound {
		return types.JuryBallotData{}, errors.ErrBallotNotFound
	}
	if err != nil {
		return types.JuryBallotData{}, errors.Wrap(errors.KindExternal, "error getting ballot by ID", err)
	}
	if !votedAt.IsZero() {
		t := votedAt
		ballot.VotedAt = &t
	}
	return ballot, nil
}

func (r *ballotRepository) GetBallotsByTask(taskID string) ([]types.JuryBallotData, error) {
	iter := r.db.NewQuery(queries.GetBallotsByTaskQuery, taskID).Iter()

	var ballots []types.JuryBallotData
	for {
		var (
			ballot  types.JuryBallotData
			votedAt time.Time
		)
		if !iter.Scan(
			&ballot.BallotID, &ballot.TaskID, &ballot.ArbiterID, &ballot.CandidatePool,
			&ballot.WinnerSubmissionID, &ballot.MaliciousSubmissionIDs,
			&ballot.Feedback, &votedAt, &ballot.CreatedAt,
		) {
			break
		}
		if !votedAt.IsZero() {
			t := votedAt
			ballot.VotedAt = &t
		}
		ballots = append(ballots, ballot)
	}
	if err := iter.Close(); err != nil {
		return nil, errors.Wrap(errors.KindExternal, "error listing ballots by task", err)
	}
	return ballots, nil
}

func (r *ballotRepository) CastBallot(ballotID string, winnerSubmissionID string, maliciousSubmissionIDs []string, feedback string, votedAt time.Time) error {
	err := r.db.NewQuery(queries.CastBallotQuery,
		winnerSubmissionID, maliciousSubmissionIDs, feedback, votedAt, ballotID,
	).Idempotent().Exec()
	if err != nil {
		return errors.Wrap(errors.KindExternal, "error casting ballot", err)
	}
	return nil
}
