package types

import (
	"fmt"
	"time"
)

type SourceKind string

const (
	SourceBounty    SourceKind = "bounty"
	SourceIncentive SourceKind = "incentive"
	SourceDeposit   SourceKind = "deposit"
)

type DistributionKind string

const (
	DistWinner          DistributionKind = "winner"
	DistRefund          DistributionKind = "refund"
	DistArbiter         DistributionKind = "arbiter"
	DistPlatform        DistributionKind = "platform"
	DistPublisherRefund DistributionKind = "publisher_refund"
)

type SettlementSource struct {
	Label   string           `json:"label"`
	Amount  Amount           `json:"amount"`
	Kind    SourceKind       `json:"kind"`
	Verdict ChallengeVerdict `json:"verdict,omitempty"` // deposit sources only
}

type SettlementDistribution struct {
	Label     string           `json:"label"`
	Amount    Amount           `json:"amount"`
	Kind      DistributionKind `json:"kind"`
	Recipient string           `json:"recipient,omitempty"`
}

// SettlementRecord is produced exactly once per closed/voided task and is
// immutable thereafter.
type SettlementRecord struct {
	TaskID        string                   `json:"task_id"`
	EscrowTotal   Amount                   `json:"escrow_total"`
	Sources       []SettlementSource       `json:"sources"`
	Distributions []SettlementDistribution `json:"distributions"`
	CreatedAt     time.Time                `json:"created_at"`
}

// Validate checks that the distributions account for the escrow total
// exactly. A mismatch is a modeling bug, never a client error.
func (r *SettlementRecord) Validate() error {
	var sources, dists Amount
	for _, s := range r.Sources {
		sources += s.Amount
	}
	for _, d := range r.Distributions {
		dists += d.Amount
	}
	if sources != r.EscrowTotal {
		return fmt.Errorf("settlement sources sum to %s, escrow total is %s", sources, r.EscrowTotal)
	}
	if dists != r.EscrowTotal {
		return fmt.Errorf("settlement distributions sum to %s, escrow total is %s", dists, r.EscrowTotal)
	}
	return nil
}
