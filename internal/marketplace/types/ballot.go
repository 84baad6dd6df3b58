package types

import "time"

// JuryBallotData is one arbiter's single vote covering winner selection and
// malicious tagging for a task's entire dispute set. The candidate pool is
// computed when the ballot is created and frozen for its lifetime.
type JuryBallotData struct {
	BallotID               string     `json:"ballot_id"`
	TaskID                 string     `json:"task_id"`
	ArbiterID              string     `json:"arbiter_id"`
	CandidatePool          []string   `json:"candidate_pool"`
	WinnerSubmissionID     string     `json:"winner_submission_id,omitempty"`
	MaliciousSubmissionIDs []string   `json:"malicious_submission_ids,omitempty"`
	Feedback               string     `json:"feedback,omitempty"`
	VotedAt                *time.Time `json:"voted_at,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
}

func (b *JuryBallotData) IsCast() bool {
	return b.VotedAt != nil
}

func (b *JuryBallotData) InPool(submissionID string) bool {
	for _, id := range b.CandidatePool {
		if id == submissionID {
			return true
		}
	}
	return false
}

// BallotProgress is the only ballot projection visible before resolution.
type BallotProgress struct {
	TaskID string `json:"task_id"`
	Cast   int    `json:"cast"`
	Total  int    `json:"total"`
}

// ArbitrationOutcome is the computed result of a completed jury process.
type ArbitrationOutcome struct {
	TaskID string
	// FinalWinnerSubmissionID is the plurality winner across ballots.
	// Ignored when Voided is set.
	FinalWinnerSubmissionID string
	// Voided is set when the provisional winner was majority-tagged malicious.
	Voided bool
	// Verdicts maps challenge ID to its derived verdict.
	Verdicts map[string]ChallengeVerdict
	// Whistleblowers lists challenge IDs whose rejected verdict is reinterpreted
	// as justified because the incumbent was tagged malicious.
	Whistleblowers []string
	// MajorityArbiters voted with the plurality winner; they share rewards.
	MajorityArbiters []string
	MinorityArbiters []string
	// MaliciousSubmissionIDs were tagged by a strict majority of cast ballots.
	MaliciousSubmissionIDs []string
}

func (o *ArbitrationOutcome) IsWhistleblower(challengeID string) bool {
	for _, id := range o.Whistleblowers {
		if id == challengeID {
			return true
		}
	}
	return false
}
