package trust

import (
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/types"
)

// Tier thresholds over the [0,1000] trust score range.
const (
	TierSThreshold = 800.0
	TierAThreshold = 500.0
	TierBThreshold = 300.0
)

const (
	MinScore = 0.0
	MaxScore = 1000.0

	// InitialScore is assigned when a user is first seen.
	InitialScore = 500.0
)

func TierForScore(score float64) types.TrustTier {
	switch {
	case score >= TierSThreshold:
		return types.TierS
	case score >= TierAThreshold:
		return types.TierA
	case score >= TierBThreshold:
		return types.TierB
	}
	return types.TierC
}

// RatesForTier returns the rates a tier grants, in basis points.
// A zero ChallengeDepositBPS means the tier cannot challenge at all.
func RatesForTier(tier types.TrustTier) types.TierRates {
	switch tier {
	case types.TierS:
		return types.TierRates{ChallengeDepositBPS: 500, PlatformFeeBPS: 1500, PayoutBPS: 9000}
	case types.TierA:
		return types.TierRates{ChallengeDepositBPS: 1000, PlatformFeeBPS: 2000, PayoutBPS: 8000}
	case types.TierB:
		return types.TierRates{ChallengeDepositBPS: 3000, PlatformFeeBPS: 2500, PayoutBPS: 7000}
	}
	// C tier: banned from challenging, worst payout terms.
	return types.TierRates{ChallengeDepositBPS: 0, PlatformFeeBPS: 4000, PayoutBPS: 6000}
}

// PermissionsForTier is the capability projection shown to callers.
func PermissionsForTier(tier types.TrustTier) types.TierPermissions {
	if tier == types.TierC {
		return types.TierPermissions{}
	}
	perms := types.TierPermissions{
		CanAcceptTasks: true,
		CanChallenge:   true,
	}
	if tier == types.TierB {
		cap := types.AmountFromUnits(50)
		perms.MaxTaskAmount = &cap
	}
	return perms
}
