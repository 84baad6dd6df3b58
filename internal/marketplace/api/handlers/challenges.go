package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/dispute"
	"github.com/bountyhive/bountyhive-backend/pkg/errors"
)

type fileChallengeRequest struct {
	ChallengerSubmissionID string `json:"challenger_submission_id" binding:"required"`
	Reason                 string `json:"reason" binding:"required"`
	PaymentAuthorization   string `json:"payment_authorization" binding:"required"`
}

func (h *Handler) FileChallenge(c *gin.Context) {
	var req fileChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.Wrap(errors.KindValidation, "invalid challenge payload", err))
		return
	}

	taskID := c.Param("id")
	challenge, err := h.deps.Disputes.FileChallenge(c.Request.Context(), dispute.FileChallengeRequest{
		TaskID:                 taskID,
		ChallengerSubmissionID: req.ChallengerSubmissionID,
		Reason:                 req.Reason,
		PaymentAuthorization:   req.PaymentAuthorization,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidate(c, taskID)
	c.JSON(http.StatusCreated, challenge)
}

func (h *Handler) ListChallenges(c *gin.Context) {
	challenges, err := h.deps.Disputes.ChallengesByTask(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, challenges)
}
