package types

// OracleEvaluation is the scoring service's verdict on one submission.
type OracleEvaluation struct {
	Gate     GateResult `json:"gate"`
	Score    *float64   `json:"score,omitempty"`
	Feedback string     `json:"feedback,omitempty"`
}
