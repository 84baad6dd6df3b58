package types

import "time"

type TaskType string

const (
	TaskTypeFastestFirst TaskType = "fastest_first"
	TaskTypeQualityFirst TaskType = "quality_first"
)

type TaskStatus string

const (
	TaskStatusOpen            TaskStatus = "open"
	TaskStatusScoring         TaskStatus = "scoring"
	TaskStatusChallengeWindow TaskStatus = "challenge_window"
	TaskStatusArbitrating     TaskStatus = "arbitrating"
	TaskStatusClosed          TaskStatus = "closed"
	TaskStatusVoided          TaskStatus = "voided"
)

// IsTerminal reports whether no further transition is legal.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusClosed || s == TaskStatusVoided
}

// AcceptsSubmissions reports whether workers may submit in this status.
// quality_first revision loops keep accepting during scoring.
func (s TaskStatus) AcceptsSubmissions(taskType TaskType) bool {
	if s == TaskStatusOpen {
		return true
	}
	return s == TaskStatusScoring && taskType == TaskTypeQualityFirst
}

type ScoringDimension struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type TaskData struct {
	TaskID             string             `json:"task_id"`
	PublisherID        string             `json:"publisher_id"`
	TaskType           TaskType           `json:"task_type"`
	Status             TaskStatus         `json:"status"`
	Title              string             `json:"title"`
	Description        string             `json:"description"`
	Bounty             Amount             `json:"bounty"`
	Deadline           time.Time          `json:"deadline"`
	Threshold          float64            `json:"threshold,omitempty"`
	MaxRevisions       int                `json:"max_revisions,omitempty"`
	ChallengeDuration  time.Duration      `json:"challenge_duration,omitempty"`
	ChallengeWindowEnd *time.Time         `json:"challenge_window_end,omitempty"`
	SubmissionDeposit  Amount             `json:"submission_deposit,omitempty"`
	AcceptanceCriteria []string           `json:"acceptance_criteria"`
	ScoringDimensions  []ScoringDimension `json:"scoring_dimensions"`
	WinnerSubmissionID string             `json:"winner_submission_id,omitempty"`
	EscrowHoldRef      string             `json:"escrow_hold_ref,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// DefaultChallengeDuration is used when a quality_first task does not set one.
const DefaultChallengeDuration = 2 * time.Hour

// ChallengeDepositAmount returns the per-challenge deposit for this task:
// the configured deposit, or 10% of the bounty when unset.
func (t *TaskData) ChallengeDepositAmount() Amount {
	if t.SubmissionDeposit > 0 {
		return t.SubmissionDeposit
	}
	return t.Bounty.MulBPS(1000)
}

func (t *TaskData) ChallengeWindow() time.Duration {
	if t.ChallengeDuration > 0 {
		return t.ChallengeDuration
	}
	return DefaultChallengeDuration
}
