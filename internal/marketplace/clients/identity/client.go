package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/bountyhive/bountyhive-backend/pkg/errors"
	"github.com/bountyhive/bountyhive-backend/pkg/logging"
	"github.com/bountyhive/bountyhive-backend/pkg/retry"
)

type Config struct {
	BaseURL string
	APIKey  string
}

// Client talks to the identity/registration service. Arbiter panel selection
// lives there; the core only consumes the selected panel.
type Client struct {
	config Config
	http   *retry.HTTPClient
	logger logging.Logger
}

func NewClient(config Config, logger logging.Logger) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New(errors.KindValidation, "identity base URL is required")
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

type panelRequest struct {
	TaskID string `json:"task_id"`
	Size   int    `json:"size"`
}

type panelResponse struct {
	ArbiterIDs []string `json:"arbiter_ids"`
}

// SelectArbiters asks the identity service for a jury panel of the given
// size for a disputed task.
func (c *Client) SelectArbiters(ctx context.Context, taskID string, size int) ([]string, error) {
	body, err := json.Marshal(panelRequest{TaskID: taskID, Size: size})
	if err != nil {
		return nil, errors.Wrap(errors.KindExternal, "error marshaling panel request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/panels", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(errors.KindExternal, "error creating panel request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("X-Api-Key", c.config.APIKey)
	}

	resp, err := c.http.DoWithRetry(req)
	if err != nil {
		return nil, errors.Wrap(errors.KindExternal, "identity service unreachable", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warnf("Failed to close identity response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.KindExternal, "panel selection rejected with status %d", resp.StatusCode)
	}

	var panel panelResponse
	if err := json.NewDecoder(resp.Body).Decode(&panel); err != nil {
		return nil, errors.Wrap(errors.KindExternal, "error decoding panel response", err)
	}
	if len(panel.ArbiterIDs) == 0 {
		return nil, errors.New(errors.KindExternal, "identity service returned an empty panel")
	}
	return panel.ArbiterIDs, nil
}
