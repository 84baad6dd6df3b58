package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/types"
	"github.com/bountyhive/bountyhive-backend/pkg/errors"
)

type createSubmissionRequest struct {
	WorkerID string `json:"worker_id" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

func (h *Handler) CreateSubmission(c *gin.Context) {
	var req createSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.Wrap(errors.KindValidation, "invalid submission payload", err))
		return
	}

	taskID := c.Param("id")
	sub, err := h.deps.Tracker.Submit(c.Request.Context(), taskID, req.WorkerID, req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidate(c, taskID)

	// Oracle evaluation runs off the request path; the scheduler re-drives
	// anything that fails here.
	go func(submissionID string) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := h.deps.Tracker.RequestEvaluation(ctx, submissionID); err != nil {
			h.logger.Warn("Oracle evaluation deferred", "submission_id", submissionID, "error", err)
		}
	}(sub.SubmissionID)

	c.JSON(http.StatusCreated, sub)
}

func (h *Handler) ListSubmissions(c *gin.Context) {
	subs, err := h.deps.Tracker.ListByTask(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

type gateResultRequest struct {
	Result   string `json:"result" binding:"required"`
	Feedback string `json:"feedback"`
}

// RecordGateResult is the oracle's push callback for gate outcomes.
func (h *Handler) RecordGateResult(c *gin.Context) {
	var req gateResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.Wrap(errors.KindValidation, "invalid gate result payload", err))
		return
	}

	result := types.GateResult(req.Result)
	switch result {
	case types.GatePassed, types.GateFailed, types.GatePolicyViolation:
	default:
		h.respondError(c, errors.Newf(errors.KindValidation, "unknown gate result %q", req.Result))
		return
	}

	if err := h.deps.Tracker.RecordGateResult(c.Request.Context(), c.Param("id"), result, req.Feedback); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

type scoreRequest struct {
	Score    *float64 `json:"score" binding:"required"`
	Feedback string   `json:"feedback"`
}

// RecordScore is the oracle's push callback for final scores.
func (h *Handler) RecordScore(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.Wrap(errors.KindValidation, "invalid score payload", err))
		return
	}

	if err := h.deps.Tracker.RecordScore(c.Request.Context(), c.Param("id"), *req.Score, req.Feedback); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

func (h *Handler) invalidate(c *gin.Context, taskID string) {
	if h.deps.Cache != nil {
		h.deps.Cache.InvalidateTask(c.Request.Context(), taskID)
	}
}
