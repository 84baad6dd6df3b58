package types

import "time"

type SubmissionStatus string

const (
	SubmissionStatusPending         SubmissionStatus = "pending"
	SubmissionStatusGatePassed      SubmissionStatus = "gate_passed"
	SubmissionStatusGateFailed      SubmissionStatus = "gate_failed"
	SubmissionStatusPolicyViolation SubmissionStatus = "policy_violation"
	SubmissionStatusScored          SubmissionStatus = "scored"
)

// IsTerminal reports whether the submission is immutable.
func (s SubmissionStatus) IsTerminal() bool {
	switch s {
	case SubmissionStatusScored, SubmissionStatusGateFailed, SubmissionStatusPolicyViolation:
		return true
	}
	return false
}

// IsFailed reports whether the submission is out of contention for winner.
func (s SubmissionStatus) IsFailed() bool {
	return s == SubmissionStatusGateFailed || s == SubmissionStatusPolicyViolation
}

type SubmissionData struct {
	SubmissionID   string           `json:"submission_id"`
	TaskID         string           `json:"task_id"`
	WorkerID       string           `json:"worker_id"`
	Revision       int              `json:"revision"`
	Content        string           `json:"content"`
	Status         SubmissionStatus `json:"status"`
	Score          *float64         `json:"score,omitempty"`
	OracleFeedback string           `json:"oracle_feedback,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// GateResult is the oracle's verdict on a single submission's gate pass.
type GateResult string

const (
	GatePassed          GateResult = "gate_passed"
	GateFailed          GateResult = "gate_failed"
	GatePolicyViolation GateResult = "policy_violation"
)
