package trust

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/repository"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/types"
	"github.com/bountyhive/bountyhive-backend/pkg/errors"
	"github.com/bountyhive/bountyhive-backend/pkg/logging"
)

// Deltas for events weighted by the task bounty.
var weightedBases = map[types.TrustEventType]float64{
	types.TrustEventTaskCompleted:      5,
	types.TrustEventChallengeUpheld:    10,
	types.TrustEventWhistleblower:      10,
	types.TrustEventPublisherCompleted: 3,
}

// Flat deltas.
var fixedDeltas = map[types.TrustEventType]float64{
	types.TrustEventTaskFailed:         -100,
	types.TrustEventChallengeRejected:  -3,
	types.TrustEventChallengeMalicious: -100,
	types.TrustEventArbiterMajority:    2,
	types.TrustEventArbiterMinority:    -15,
	types.TrustEventArbiterTimeout:     -10,
}

const (
	consolationCap = 50.0
	stakeBonusCap  = 100.0
)

// EventOptions carries the optional inputs some event types need.
type EventOptions struct {
	TaskID      string
	Bounty      types.Amount
	StakeAmount float64
}

// Ledger folds append-only trust events into per-user scores and tiers.
type Ledger struct {
	repo   repository.TrustRepository
	logger logging.Logger
}

func NewLedger(repo repository.TrustRepository, logger logging.Logger) *Ledger {
	return &Ledger{
		repo:   repo,
		logger: logger,
	}
}

// multiplier applies logarithmic amount weighting: M = 1 + log10(1 + amount/10).
func multiplier(amount types.Amount) float64 {
	return 1 + math.Log10(1+amount.Units()/10)
}

// ApplyEvent appends a trust event and recomputes the user's score and tier.
// The event row is durably appended before the new score is written, so no
// read ever sees a score without its generating event. Applying an event for
// an unknown user is a caller bug and is not retried.
func (l *Ledger) ApplyEvent(userID string, eventType types.TrustEventType, opts EventOptions) (types.TrustEventData, error) {
	user, err := l.repo.GetUserTrust(userID)
	if err != nil {
		return types.TrustEventData{}, err
	}

	scoreBefore := user.Score
	var delta float64

	switch {
	case weightedBases[eventType] != 0:
		delta = weightedBases[eventType] * multiplier(opts.Bounty)
	case fixedDeltas[eventType] != 0:
		delta = fixedDeltas[eventType]
	case eventType == types.TrustEventConsolation:
		if user.ConsolationTotal < consolationCap {
			delta = 1
			user.ConsolationTotal = math.Min(user.ConsolationTotal+1, consolationCap)
		}
	case eventType == types.TrustEventStakeBonus:
		potential := math.Floor(opts.StakeAmount/50) * 50
		remaining := stakeBonusCap - user.StakeBonus
		delta = math.Min(potential, remaining)
		if delta > 0 {
			user.StakeBonus += delta
		}
	case eventType == types.TrustEventStakeSlash:
		if user.StakeBonus > 0 {
			delta = -user.StakeBonus
		}
		user.StakeBonus = 0
		user.IsArbiter = false
	}

	newScore := math.Max(MinScore, math.Min(MaxScore, scoreBefore+delta))
	actualDelta := newScore - scoreBefore

	event := types.TrustEventData{
		EventID:     uuid.New().String(),
		UserID:      userID,
		EventType:   eventType,
		TaskID:      opts.TaskID,
		Amount:      opts.Bounty,
		Delta:       actualDelta,
		ScoreBefore: scoreBefore,
		ScoreAfter:  newScore,
		CreatedAt:   time.Now().UTC(),
	}

	if err := l.repo.AppendTrustEvent(&event); err != nil {
		return types.TrustEventData{}, err
	}

	user.Score = newScore
	user.Tier = TierForScore(newScore)
	user.UpdatedAt = event.CreatedAt
	if err := l.repo.UpsertUserTrust(&user); err != nil {
		return types.TrustEventData{}, err
	}

	l.logger.Debug("Applied trust event",
		"user_id", userID, "event_type", string(eventType),
		"delta", actualDelta, "score", newScore, "tier", string(user.Tier))

	return event, nil
}

// EnsureUser returns the user's trust state, creating a fresh row at the
// initial score when the user has never been seen.
func (l *Ledger) EnsureUser(userID string) (types.UserTrustData, error) {
	user, err := l.repo.GetUserTrust(userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, errors.ErrUserNotFound) {
		return types.UserTrustData{}, err
	}

	user = types.UserTrustData{
		UserID:    userID,
		Score:     InitialScore,
		Tier:      TierForScore(InitialScore),
		UpdatedAt: time.Now().UTC(),
	}
	if err := l.repo.UpsertUserTrust(&user); err != nil {
		return types.UserTrustData{}, err
	}
	l.logger.Info("Registered trust profile", "user_id", userID, "tier", string(user.Tier))
	return user, nil
}

// TierOf returns the user's current trust tier.
func (l *Ledger) TierOf(userID string) (types.TrustTier, error) {
	user, err := l.repo.GetUserTrust(userID)
	if err != nil {
		if errors.IsNotFound(err) {
			return "", err
		}
		return "", errors.Wrap(errors.KindExternal, "trust tier lookup failed", err)
	}
	return user.Tier, nil
}

// UserState exposes the folded ledger state for projections.
func (l *Ledger) UserState(userID string) (types.UserTrustData, error) {
	return l.repo.GetUserTrust(userID)
}

// History lists the raw ledger entries for a user.
func (l *Ledger) History(userID string) ([]types.TrustEventData, error) {
	return l.repo.GetTrustEventsByUser(userID)
}
