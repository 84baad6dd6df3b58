package escrow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
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

// Client talks to the payment/escrow rail. The core records the transaction
// references it returns and never inspects them.
type Client struct {
	config Config
	http   *retry.HTTPClient
	logger logging.Logger
}

func NewClient(config Config, logger logging.Logger) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New(errors.KindValidation, "escrow base URL is required")
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

type holdRequest struct {
	TaskID       string `json:"task_id"`
	PayerID      string `json:"payer_id"`
	AmountMicros int64  `json:"amount_micros"`
}

type depositRequest struct {
	PayerID       string `json:"payer_id"`
	AmountMicros  int64  `json:"amount_micros"`
	Authorization string `json:"authorization"`
}

type releaseRequest struct {
	HoldRef      string `json:"hold_ref"`
	Recipient    string `json:"recipient"`
	AmountMicros int64  `json:"amount_micros"`
}

type refundRequest struct {
	Ref string `json:"ref"`
}

type refResponse struct {
	Ref   string `json:"ref,omitempty"`
	TxRef string `json:"tx_ref,omitempty"`
}

// Hold places the task bounty on hold against the publisher's balance.
func (c *Client) Hold(ctx context.Context, taskID, payerID string, amount types.Amount) (string, error) {
	var resp refResponse
	err := c.post(ctx, "/v1/holds", "hold", holdRequest{
		TaskID:       taskID,
		PayerID:      payerID,
		AmountMicros: int64(amount),
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Ref, nil
}

// AuthorizeDeposit verifies the payer's authorization and holds a challenge
// deposit into the task escrow.
func (c *Client) AuthorizeDeposit(ctx context.Context, payerID string, amount types.Amount, authorization string) (string, error) {
	var resp refResponse
	err := c.post(ctx, "/v1/deposits", "authorize_deposit", depositRequest{
		PayerID:       payerID,
		AmountMicros:  int64(amount),
		Authorization: authorization,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Ref, nil
}

// Release pays out part of a held balance to a recipient.
func (c *Client) Release(ctx context.Context, holdRef, recipient string, amount types.Amount) (string, error) {
	var resp refResponse
	err := c.post(ctx, "/v1/releases", "release", releaseRequest{
		HoldRef:      holdRef,
		Recipient:    recipient,
		AmountMicros: int64(amount),
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.TxRef, nil
}

// Refund returns a held balance to its payer in full.
func (c *Client) Refund(ctx context.Context, ref string) (string, error) {
	var resp refResponse
	err := c.post(ctx, "/v1/refunds", "refund", refundRequest{Ref: ref}, &resp)
	if err != nil {
		return "", err
	}
	return resp.TxRef, nil
}

func (c *Client) post(ctx context.Context, path, operation string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(errors.KindExternal, "error marshaling escrow request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(errors.KindExternal, "error creating escrow request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("X-Api-Key", c.config.APIKey)
	}

	resp, err := c.http.DoWithRetry(req)
	if err != nil {
		metrics.EscrowCalls.WithLabelValues(operation, "error").Inc()
		return errors.Wrap(errors.KindExternal, "escrow rail unreachable", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warnf("Failed to close escrow response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		metrics.EscrowCalls.WithLabelValues(operation, "rejected").Inc()
		return errors.Newf(errors.KindExternal, "escrow %s rejected with status %d", operation, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.EscrowCalls.WithLabelValues(operation, "error").Inc()
		return errors.Wrap(errors.KindExternal, fmt.Sprintf("error decoding escrow %s response", operation), err)
	}

	metrics.EscrowCalls.WithLabelValues(operation, "ok").Inc()
	return nil
}
