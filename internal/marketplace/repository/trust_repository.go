package repository

import (
	"github.com/gocql/gocql"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/repository/queries"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/types"
	"github.com/bountyhive/bountyhive-backend/pkg/database"
	"github.com/bountyhive/bountyhive-backend/pkg/errors"
)

type TrustRepository interface {
	GetUserTrust(userID string) (types.UserTrustData, error)
	UpsertUserTrust(user *types.UserTrustData) error
	AppendTrustEvent(event *types.TrustEventData) error
	GetTrustEventsByUser(userID string) ([]types.TrustEventData, error)
}

type trustRepository struct {
	db *database.Connection
}

func NewTrustRepository(db *database.Connection) TrustRepository {
	return &trustRepository{
		db: db,
	}
}

func (r *trustRepository) GetUserTrust(userID string) (types.UserTrustData, error) {
	var (
		user types.UserTrustData
		tier string
	)
	err := r.db.NewQuery(queries.GetUserTrustQuery, userID).Scan(
		&user.UserID, &user.Score, &tier, &user.ConsolationTotal,
		&user.StakeBonus, &user.IsArbiter, &user.UpdatedAt,
	)
	if err == gocql.ErrNotFound {
		return types.UserTrustData{}, errors.ErrUserNotFound
	}
	if err != nil {
		return types.UserTrustData{}, errors.Wrap(errors.KindExternal, "error getting user trust", err)
	}
	user.Tier = types.TrustTier(tier)
	return user, nil
}

func (r *trustRepository) UpsertUserTrust(user *types.UserTrustData) error {
	err := r.db.NewQuery(queries.UpsertUserTrustQuery,
		user.UserID, user.Score, string(user.Tier), user.ConsolationTotal,
		user.StakeBonus, user.IsArbiter, user.UpdatedAt,
	).Idempotent().Exec()
	if err != nil {
		return errors.Wrap(errors.KindExternal, "error upserting user trust", err)
	}
	return nil
}

func (r *trustRepository) AppendTrustEvent(event *types.TrustEventData) error {
	err := r.db.NewQuery(queries.AppendTrustEventQuery,
		event.EventID, event.UserID, string(event.EventType), event.TaskID,
		int64(event.Amount), event.Delta, event.ScoreBefore, event.ScoreAfter,
		event.CreatedAt,
	).Idempotent().Exec()
	if err != nil {
		return errors.Wrap(errors.KindExternal, "error appending trust event", err)
	}
	return nil
}

func (r *trustRepository) GetTrustEventsByUser(userID string) ([]types.TrustEventData, error) {
	iter := r.db.NewQuery(queries.GetTrustEventsByUserQuery, userID).Iter()

	var events []types.TrustEventData
	for {
		var (
			event     types.TrustEventData
			eventType string
			amount    int64
		)
		if !iter.Scan(
			&event.EventID, &event.UserID, &eventType, &event.TaskID, &amount,
			&event.Delta, &event.ScoreBefore, &event.ScoreAfter, &event.CreatedAt,
		) {
			break
		}
		event.EventType = types.TrustEventType(eventType)
		event.Amount = types.Amount(amount)
		events = append(events, event)
	}
	if err := iter.Close(); err != nil {
		return nil, errors.Wrap(errors.KindExternal, "error listing trust events", err)
	}
	return events, nil
}
