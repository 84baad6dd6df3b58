package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmountMulBPS(t *testing.T) {
	bounty := AmountFromUnits(100)

	assert.Equal(t, AmountFromUnits(90), bounty.MulBPS(9000))
	assert.Equal(t, AmountFromUnits(95), bounty.MulBPS(9500))
	assert.Equal(t, AmountFromUnits(10), bounty.MulBPS(1000))
	assert.Equal(t, Amount(0), Amount(0).MulBPS(9000))

	// Truncation, not rounding.
	assert.Equal(t, Amount(33), Amount(111).MulBPS(3000))
}

func TestAmountSplit(t *testing.T) {
	share, remainder := AmountFromUnits(5).Split(2)
	assert.Equal(t, AmountFromUnits(2.5), share)
	assert.Equal(t, Amount(0), remainder)

	share, remainder = Amount(10).Split(3)
	assert.Equal(t, Amount(3), share)
	assert.Equal(t, Amount(1), remainder)
	assert.Equal(t, Amount(10), share*3+remainder)

	share, remainder = Amount(10).Split(0)
	assert.Equal(t, Amount(0), share)
	assert.Equal(t, Amount(10), remainder)
}

func TestAmountString(t *testing.T) {
	assert.Equal(t, "100.000000", AmountFromUnits(100).String())
	assert.Equal(t, "2.500000", AmountFromUnits(2.5).String())
	assert.Equal(t, "-0.000001", Amount(-1).String())
}

func TestSettlementRecordValidate(t *testing.T) {
	record := SettlementRecord{
		TaskID:      "t1",
		EscrowTotal: AmountFromUnits(110),
		Sources: []SettlementSource{
			{Label: "bounty", Amount: AmountFromUnits(100), Kind: SourceBounty},
			{Label: "deposit", Amount: AmountFromUnits(10), Kind: SourceDeposit},
		},
		Distributions: []SettlementDistribution{
			{Label: "winner_payout", Amount: AmountFromUnits(90), Kind: DistWinner},
			{Label: "deposit_refund", Amount: AmountFromUnits(10), Kind: DistRefund},
			{Label: "platform_fee", Amount: AmountFromUnits(10), Kind: DistPlatform},
		},
	}
	assert.NoError(t, record.Validate())

	record.Distributions[2].Amount = AmountFromUnits(9)
	assert.Error(t, record.Validate())
}
