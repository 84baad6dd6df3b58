package repository

import (
	"encoding/json"

	"github.com/gocql/gocql"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/repository/queries"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/types"
	"github.com/bountyhive/bountyhive-backend/pkg/database"
	"github.com/bountyhive/bountyhive-backend/pkg/errors"
)

type SettlementRepository interface {
	// CreateSettlement writes the record if none exists for the task.
	// Returns the stored record, which is the existing one on a lost race.
	CreateSettlement(record *types.SettlementRecord) (types.SettlementRecord, error)
	GetSettlementByTask(taskID string) (*types.SettlementRecord, error)
}

type settlementRepository struct {
	db *database.Connection
}

func NewSettlementRepository(db *database.Connection) SettlementRepository {
	return &settlementRepository{
		db: db,
	}
}

func (r *settlementRepository) CreateSettlement(record *types.SettlementRecord) (types.SettlementRecord, error) {
	sources, err := json.Marshal(record.Sources)
	if err != nil {
		return types.SettlementRecord{}, errors.Wrap(errors.KindInvariant, "error encoding settlement sources", err)
	}
	distributions, err := json.Marshal(record.Distributions)
	if err != nil {
		return types.SettlementRecord{}, errors.Wrap(errors.KindInvariant, "error encoding settlement distributions", err)
	}

	// The LWT makes the write exactly-once; a concurrent writer loses the
	// race and reads back the existing record.
	applied, err := r.db.NewQuery(queries.CreateSettlementQuery,
		record.TaskID, int64(record.EscrowTotal), string(sources),
		string(distributions), record.CreatedAt,
	).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return types.SettlementRecord{}, errors.Wrap(errors.KindExternal, "error creating settlement", err)
	}
	if !applied {
		existing, err := r.GetSettlementByTask(record.TaskID)
		if err != nil {
			return types.SettlementRecord{}, err
		}
		if existing != nil {
			return *existing, nil
		}
	}
	return *record, nil
}

func (r *settlementRepository) GetSettlementByTask(taskID string) (*types.SettlementRecord, error) {
	var (
		record        types.SettlementRecord
		escrowTotal   int64
		sources       string
		distributions string
	)
	err := r.db.NewQuery(queries.GetSettlementByTaskQuery, taskID).Scan(
		&record.TaskID, &escrowTotal, &sources, &distributions, &record.CreatedAt,
	)
	if err == gocql.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.KindExternal, "error getting settlement by task", err)
	}
	record.EscrowTotal = types.Amount(escrowTotal)
	if err := json.Unmarshal([]byte(sources), &record.Sources); err != nil {
		return nil, errors.Wrap(errors.KindInvariant, "error decoding settlement sources", err)
	}
	if err := json.Unmarshal([]byte(distributions), &record.Distributions); err != nil {
		return nil, errors.Wrap(errors.KindInvariant, "error decoding settlement distributions", err)
	}
	return &record, nil
}
