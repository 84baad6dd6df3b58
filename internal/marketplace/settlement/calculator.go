package settlement

import (
	"time"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/types"
	"github.com/bountyhive/bountyhive-backend/pkg/errors"
)

// Split ratios, in basis points.
const (
	bountyShareBPS    = 9500 // quality_first bounty portion of the escrow
	rejectedRefundBPS = 7000 // rejected challengers recover 70% of the deposit
	forfeitArbiterBPS = 3000 // arbiter draw on forfeited deposit value
)

// Input is everything the allocation needs, resolved ahead of time so the
// computation itself is a pure function.
type Input struct {
	Task             types.TaskData
	Challenges       []types.ChallengeData
	WinnerWorkerID   string
	WinnerPayoutBPS  int64
	MajorityArbiters []string
	Voided           bool
}

// Compute assembles the source -> distribution flow for a terminal task.
// All arithmetic is integer micro-units; every remainder is swept into the
// platform line so the distributions sum to the escrow total exactly.
func Compute(in Input) (types.SettlementRecord, error) {
	task := in.Task
	record := types.SettlementRecord{
		TaskID:    task.TaskID,
		CreatedAt: time.Now().UTC(),
	}

	// Sources: the bounty (split into bounty and incentive shares for
	// quality_first), plus every held deposit tagged with its verdict.
	bountyShare := task.Bounty
	var incentive types.Amount
	if task.TaskType == types.TaskTypeQualityFirst {
		bountyShare = task.Bounty.MulBPS(bountyShareBPS)
		incentive = task.Bounty - bountyShare
		record.Sources = append(record.Sources,
			types.SettlementSource{Label: "bounty", Amount: bountyShare, Kind: types.SourceBounty},
			types.SettlementSource{Label: "incentive", Amount: incentive, Kind: types.SourceIncentive},
		)
	} else {
		record.Sources = append(record.Sources,
			types.SettlementSource{Label: "bounty", Amount: task.Bounty, Kind: types.SourceBounty})
	}

	escrowTotal := task.Bounty
	for _, c := range in.Challenges {
		escrowTotal += c.Deposit.Amount
		record.Sources = append(record.Sources, types.SettlementSource{
			Label:   "deposit:" + c.ChallengeID,
			Amount:  c.Deposit.Amount,
			Kind:    types.SourceDeposit,
			Verdict: c.Verdict,
		})
	}
	record.EscrowTotal = escrowTotal

	var distributed types.Amount
	add := func(d types.SettlementDistribution) {
		record.Distributions = append(record.Distributions, d)
		distributed += d.Amount
	}

	if !in.Voided && in.WinnerWorkerID != "" {
		add(types.SettlementDistribution{
			Label:     "winner_payout",
			Amount:    task.Bounty.MulBPS(in.WinnerPayoutBPS),
			Kind:      types.DistWinner,
			Recipient: in.WinnerWorkerID,
		})
	}
	if in.Voided {
		add(types.SettlementDistribution{
			Label:     "publisher_refund",
			Amount:    bountyShare,
			Kind:      types.DistPublisherRefund,
			Recipient: task.PublisherID,
		})
	}

	// Deposit resolution: upheld and whistleblowing challengers recover the
	// full deposit, rejected challengers 70%, malicious challengers nothing.
	var forfeited types.Amount
	for _, c := range in.Challenges {
		switch {
		case c.Verdict == types.VerdictUpheld || (in.Voided && c.Whistleblower):
			add(types.SettlementDistribution{
				Label:     "deposit_refund:" + c.ChallengeID,
				Amount:    c.Deposit.Amount,
				Kind:      types.DistRefund,
				Recipient: c.ChallengerID,
			})
		case c.Verdict == types.VerdictRejected:
			refund := c.Deposit.Amount.MulBPS(rejectedRefundBPS)
			add(types.SettlementDistribution{
				Label:     "deposit_refund:" + c.ChallengeID,
				Amount:    refund,
				Kind:      types.DistRefund,
				Recipient: c.ChallengerID,
			})
			forfeited += c.Deposit.Amount - refund
		default:
			forfeited += c.Deposit.Amount
		}
	}

	// Majority arbiters split the incentive share plus a draw on forfeited
	// deposit value. The split remainder stays in the escrow for the
	// platform sweep.
	if n := len(in.MajorityArbiters); n > 0 {
		pool := incentive + forfeited.MulBPS(forfeitArbiterBPS)
		share, _ := pool.Split(n)
		if share > 0 {
			for _, arbiterID := range in.MajorityArbiters {
				add(types.SettlementDistribution{
					Label:     "arbiter_reward",
					Amount:    share,
					Kind:      types.DistArbiter,
					Recipient: arbiterID,
				})
			}
		}
	}

	remainder := escrowTotal - distributed
	if remainder < 0 {
		return types.SettlementRecord{}, errors.Wrap(errors.KindInvariant,
			"settlement over-distributed", errors.ErrSettlementUnbalanced)
	}
	if remainder > 0 {
		add(types.SettlementDistribution{
			Label:  "platform_fee",
			Amount: remainder,
			Kind:   types.DistPlatform,
		})
	}

	if err := record.Validate(); err != nil {
		return types.SettlementRecord{}, errors.Wrap(errors.KindInvariant,
			"settlement does not balance", err)
	}
	return record, nil
}
