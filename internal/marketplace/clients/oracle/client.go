package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/metrics"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/types"
	"github.com/bountyhive/bountyhive-backend/pkg/errors"
	"github.com/bountyhive/bountyhive-backend/pkg/logging"
	"github.com/bountyhive/bountyhive-backend/pkg/retry"
)

type Config struct {
	BaseURL string
	APIKey  string
}

// Client talks to the external scoring oracle. Model internals stay on the
// other side of this boundary; the core only consumes gate results, scores
// and opaque feedback.
type Client struct {
	config Config
	http   *retry.HTTPClient
	logger logging.Logger
}

func NewClient(config Config, logger logging.Logger) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New(errors.KindValidation, "oracle base URL is required")
	}
	httpClient, err := retry.NewHTTPClient(retry.DefaultHTTPRetryConfig(), logger)
	if err != nil {
		return nil, err
	}
	return &Client{
		config: config,
		http:   httpClient,
		logger: logger,
	}, nil
}

type evaluateRequest struct {
	TaskID             string                   `json:"task_id"`
	SubmissionID       string                   `json:"submission_id"`
	Content            string                   `json:"content"`
	Description        string                   `json:"description"`
	AcceptanceCriteria []string                 `json:"acceptance_criteria"`
	ScoringDimensions  []types.ScoringDimension `json:"scoring_dimensions"`
}

// Evaluate submits one submission for gating and scoring.
func (c *Client) Evaluate(ctx context.Context, task types.TaskData, sub types.SubmissionData) (types.OracleEvaluation, error) {
	body, err := json.Marshal(evaluateRequest{
		TaskID:             task.TaskID,
		SubmissionID:       sub.SubmissionID,
		Content:            sub.Content,
		Description:        task.Description,
		AcceptanceCriteria: task.AcceptanceCriteria,
		ScoringDimensions:  task.ScoringDimensions,
	})
	if err != nil {
		return types.OracleEvaluation{}, errors.Wrap(errors.KindExternal, "error marshaling oracle request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/evaluations", bytes.NewReader(body))
	if err != nil {
		return types.OracleEvaluation{}, errors.Wrap(errors.KindExternal, "error creating oracle request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("X-Api-Key", c.config.APIKey)
	}

	resp, err := c.http.DoWithRetry(req)
	if err != nil {
		metrics.OracleCalls.WithLabelValues("error").Inc()
		return types.OracleEvaluation{}, errors.Wrap(errors.KindExternal, "oracle unreachable", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warnf("Failed to close oracle response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		metrics.OracleCalls.WithLabelValues("rejected").Inc()
		return types.OracleEvaluation{}, errors.Newf(errors.KindExternal, "oracle rejected evaluation with status %d", resp.StatusCode)
	}

	var eval types.OracleEvaluation
	if err := json.NewDecoder(resp.Body).Decode(&eval); err != nil {
		metrics.OracleCalls.WithLabelValues("error").Inc()
		return types.OracleEvaluation{}, errors.Wrap(errors.KindExternal, "error decoding oracle response", err)
	}

	metrics.OracleCalls.WithLabelValues("ok").Inc()
	return eval, nil
}
