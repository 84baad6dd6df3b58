package types

import "time"

type ChallengeStatus string

const (
	ChallengeStatusPending ChallengeStatus = "pending"
	ChallengeStatusJudged  ChallengeStatus = "judged"
)

type ChallengeVerdict string

const (
	VerdictUpheld    ChallengeVerdict = "upheld"
	VerdictRejected  ChallengeVerdict = "rejected"
	VerdictMalicious ChallengeVerdict = "malicious"
)

// DepositRef records a held deposit: the amount and the payment rail's
// transaction reference. The core never inspects the reference.
type DepositRef struct {
	Amount Amount `json:"amount"`
	TxRef  string `json:"tx_ref"`
}

type ChallengeData struct {
	ChallengeID            string           `json:"challenge_id"`
	TaskID                 string           `json:"task_id"`
	ChallengerSubmissionID string           `json:"challenger_submission_id"`
	TargetSubmissionID     string           `json:"target_submission_id"`
	ChallengerID           string           `json:"challenger_id"`
	Reason                 string           `json:"reason"`
	Status                 ChallengeStatus  `json:"status"`
	Verdict                ChallengeVerdict `json:"verdict,omitempty"`
	// Whistleblower marks a rejected challenge against an incumbent that was
	// itself majority-tagged malicious. The verdict stays rejected for deposit
	// purposes on close, but trust scoring treats the challenger as justified.
	Whistleblower bool       `json:"whistleblower,omitempty"`
	Deposit       DepositRef `json:"deposit"`
	CreatedAt     time.Time  `json:"created_at"`
	JudgedAt      *time.Time `json:"judged_at,omitempty"`
}
