package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bountyhive/bountyhive-backend/pkg/errors"
)

type castBallotRequest struct {
	ArbiterID              string   `json:"arbiter_id" binding:"required"`
	WinnerSubmissionID     string   `json:"winner_submission_id" binding:"required"`
	MaliciousSubmissionIDs []string `json:"malicious_submission_ids"`
	Feedback               string   `json:"feedback" binding:"required"`
}

func (h *Handler) CastBallot(c *gin.Context) {
	var req castBallotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.Wrap(errors.KindValidation, "invalid ballot payload", err))
		return
	}

	taskID, err := h.deps.Disputes.CastBallot(c.Request.Context(),
		c.Param("id"), req.ArbiterID, req.WinnerSubmissionID,
		req.MaliciousSubmissionIDs, req.Feedback)
	if err != nil {
		h.respondError(c, err)
		return
	}
	// The final ballot resolves the arbitration, so the task snapshot and
	// progress aggregate may both be stale now.
	h.invalidate(c, taskID)
	c.JSON(http.StatusOK, gin.H{"status": "cast"})
}

// GetBallots hides individual votes while arbitration is in flight: callers
// only see the "N of M voted" aggregate until the task leaves arbitrating.
func (h *Handler) GetBallots(c *gin.Context) {
	taskID := c.Param("id")

	task, err := h.deps.Tasks.GetTaskByID(taskID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if !task.Status.IsTerminal() {
		if h.deps.Cache != nil {
			if progress, ok := h.deps.Cache.GetBallotProgress(c.Request.Context(), taskID); ok {
				c.JSON(http.StatusOK, progress)
				return
			}
		}
		progress, err := h.deps.Disputes.BallotProgress(taskID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if h.deps.Cache != nil {
			h.deps.Cache.SetBallotProgress(c.Request.Context(), progress)
		}
		c.JSON(http.StatusOK, progress)
		return
	}

	ballots, err := h.deps.Disputes.BallotsByTask(taskID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ballots)
}
