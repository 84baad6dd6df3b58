package types

import "time"

type TrustTier string

const (
	TierS TrustTier = "S"
	TierA TrustTier = "A"
	TierB TrustTier = "B"
	TierC TrustTier = "C"
)

type TrustEventType string

const (
	// Weighted by task bounty.
	TrustEventTaskCompleted         TrustEventType = "task_completed"
	TrustEventPublisherCompleted    TrustEventType = "publisher_completed"
	TrustEventChallengeUpheld       TrustEventType = "challenge_upheld_challenger"
	TrustEventWhistleblower         TrustEventType = "challenge_whistleblower"
	// Fixed deltas.
	TrustEventTaskFailed            TrustEventType = "task_failed"
	TrustEventChallengeRejected     TrustEventType = "challenge_rejected_challenger"
	TrustEventChallengeMalicious    TrustEventType = "challenge_malicious_challenger"
	TrustEventArbiterMajority       TrustEventType = "arbiter_majority"
	TrustEventArbiterMinority       TrustEventType = "arbiter_minority"
	TrustEventArbiterTimeout        TrustEventType = "arbiter_timeout"
	// Capped accumulators.
	TrustEventConsolation           TrustEventType = "consolation"
	TrustEventStakeBonus            TrustEventType = "stake_bonus"
	TrustEventStakeSlash            TrustEventType = "stake_slash"
)

// TrustEventData is an append-only ledger entry. The trust score is the fold
// of the ledger; it is never mutated directly.
type TrustEventData struct {
	EventID     string         `json:"event_id"`
	UserID      string         `json:"user_id"`
	EventType   TrustEventType `json:"event_type"`
	TaskID      string         `json:"task_id,omitempty"`
	Amount      Amount         `json:"amount,omitempty"`
	Delta       float64        `json:"delta"`
	ScoreBefore float64        `json:"score_before"`
	ScoreAfter  float64        `json:"score_after"`
	CreatedAt   time.Time      `json:"created_at"`
}

// UserTrustData is the folded state of a user's trust ledger.
type UserTrustData struct {
	UserID           string    `json:"user_id"`
	Score            float64   `json:"score"`
	Tier             TrustTier `json:"tier"`
	ConsolationTotal float64   `json:"consolation_total"`
	StakeBonus       float64   `json:"stake_bonus"`
	IsArbiter        bool      `json:"is_arbiter"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TierRates are the rates a user's tier grants, in basis points.
type TierRates struct {
	ChallengeDepositBPS int64 `json:"challenge_deposit_bps"`
	PlatformFeeBPS      int64 `json:"platform_fee_bps"`
	PayoutBPS           int64 `json:"payout_bps"`
}

// TierPermissions is the capability projection derived from a tier.
type TierPermissions struct {
	CanAcceptTasks bool    `json:"can_accept_tasks"`
	CanChallenge   bool    `json:"can_challenge"`
	MaxTaskAmount  *Amount `json:"max_task_amount,omitempty"`
}
