package repository

import (
	"time"

	"github.com/gocql/gocql"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/repository/queries"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/types"
	"github.com/bountyhive/bountyhive-backend/pkg/database"
	"github.com/bountyhive/bountyhive-backend/pkg/errors"
)

type ChallengeRepository interface {
	CreateChallenge(challenge *types.ChallengeData) error
	GetChallengeByID(challengeID string) (types.ChallengeData, error)
	GetChallengesByTask(taskID string) ([]types.ChallengeData, error)
	GetLatestChallengeByChallenger(challengerID string) (*types.ChallengeData, error)
	UpdateChallengeVerdict(challengeID string, verdict types.ChallengeVerdict, whistleblower bool) error
}

type challengeRepository struct {
	db *database.Connection
}

func NewChallengeRepository(db *database.Connection) ChallengeRepository {
	return &challengeRepository{
		db: db,
	}
}

func (r *challengeRepository) CreateChallenge(challenge *types.ChallengeData) error {
	err := r.db.NewQuery(queries.CreateChallengeQuery,
		challenge.ChallengeID, challenge.TaskID, challenge.ChallengerSubmissionID,
		challenge.TargetSubmissionID, challenge.ChallengerID, challenge.Reason,
		string(challenge.Status), int64(challenge.Deposit.Amount),
		challenge.Deposit.TxRef, challenge.CreatedAt,
	).Idempotent().Exec()
	if err != nil {
		return errors.Wrap(errors.KindExternal, "error creating challenge", err)
	}
	return nil
}

func (r *challengeRepository) GetChallengeByID(challengeID string) (types.ChallengeData, error) {
	var (
		challenge      types.ChallengeData
		status, verdict string
		depositAmount  int64
		judgedAt       time.Time
	)
	err := r.db.NewQuery(queries.GetChallengeByIDQuery, challengeID).Scan(
		&challenge.ChallengeID, &challenge.TaskID, &challenge.ChallengerSubmissionID,
		&challenge.TargetSubmissionID, &challenge.ChallengerID, &challenge.Reason,
		&status, &verdict, &challenge.Whistleblower,
		&depositAmount, &challenge.Deposit.TxRef, &challenge.CreatedAt, &judgedAt,
	)
	if err == gocql.ErrNotFound {
		return types.ChallengeData{}, errors.ErrChallengeNotFound
	}
	if err != nil {
		return types.ChallengeData{}, errors.Wrap(errors.KindExternal, "error getting challenge by ID", err)
	}
	hydrateChallenge(&challenge, status, verdict, depositAmount, judgedAt)
	return challenge, nil
}

func (r *challengeRepository) GetChallengesByTask(taskID string) ([]types.ChallengeData, error) {
	iter := r.db.NewQuery(queries.GetChallengesByTaskQuery, taskID).Iter()

	var challenges []types.ChallengeData
	for {
		var (
			challenge       types.ChallengeData
			status, verdict string
			depositAmount   int64
			judgedAt        time.Time
		)
		if !iter.Scan(
			&challenge.ChallengeID, &challenge.TaskID, &challenge.ChallengerSubmissionID,
			&challenge.TargetSubmissionID, &challenge.ChallengerID, &challenge.Reason,
			&status, &verdict, &challenge.Whistleblower,
			&depositAmount, &challenge.Deposit.TxRef, &challenge.CreatedAt, &judgedAt,
		) {
			break
		}
		hydrateChallenge(&challenge, status, verdict, depositAmount, judgedAt)
		challenges = append(challenges, challenge)
	}
	if err := iter.Close(); err != nil {
		return nil, errors.Wrap(errors.KindExternal, "error listing challenges by task", err)
	}
	return challenges, nil
}

func (r *challengeRepository) GetLatestChallengeByChallenger(challengerID string) (*types.ChallengeData, error) {
	iter := r.db.NewQuery(queries.GetLatestChallengeByChallengerQuery, challengerID).Iter()

	var latest *types.ChallengeData
	for {
		var (
			challenge       types.ChallengeData
			status, verdict string
			depositAmount   int64
			judgedAt        time.Time
		)
		if !iter.Scan(
			&challenge.ChallengeID, &challenge.TaskID, &challenge.ChallengerSubmissionID,
			&challenge.TargetSubmissionID, &challenge.ChallengerID, &challenge.Reason,
			&status, &verdict, &challenge.Whistleblower,
			&depositAmount, &challenge.Deposit.TxRef, &challenge.CreatedAt, &judgedAt,
		) {
			break
		}
		hydrateChallenge(&challenge, status, verdict, depositAmount, judgedAt)
		if latest == nil || challenge.CreatedAt.After(latest.CreatedAt) {
			c := challenge
			latest = &c
		}
	}
	if err := iter.Close(); err != nil {
		return nil, errors.Wrap(errors.KindExternal, "error listing challenges by challenger", err)
	}
	return latest, nil
}

func (r *challengeRepository) UpdateChallengeVerdict(challengeID string, verdict types.ChallengeVerdict, whistleblower bool) error {
	err := r.db.NewQuery(queries.UpdateChallengeVerdictQuery,
		string(types.ChallengeStatusJudged), string(verdict), whistleblower,
		time.Now().UTC(), challengeID,
	).Idempotent().Exec()
	if err != nil {
		return errors.Wrap(errors.KindExternal, "error updating challenge verdict", err)
	}
	return nil
}

func hydrateChallenge(challenge *types.ChallengeData, status, verdict string, depositAmount int64, judgedAt time.Time) {
	challenge.Status = types.ChallengeStatus(status)
	challenge.Verdict = types.ChallengeVerdict(verdict)
	challenge.Deposit.Amount = types.Amount(depositAmount)
	if !judgedAt.IsZero() {
		t := judgedAt
		challenge.JudgedAt = &t
	}
}
