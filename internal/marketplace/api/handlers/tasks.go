package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/lifecycle"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/types"
	"github.com/bountyhive/bountyhive-backend/pkg/errors"
)

type createTaskRequest struct {
	PublisherID             string                   `json:"publisher_id" binding:"required"`
	TaskType                string                   `json:"task_type" binding:"required"`
	Title                   string                   `json:"title" binding:"required"`
	Description             string                   `json:"description"`
	BountyMicros            int64                    `json:"bounty_micros" binding:"required"`
	Deadline                time.Time                `json:"deadline" binding:"required"`
	Threshold               float64                  `json:"threshold"`
	MaxRevisions            int                      `json:"max_revisions"`
	ChallengeDurationSecs   int64                    `json:"challenge_duration_seconds"`
	SubmissionDepositMicros int64                    `json:"submission_deposit_micros"`
	AcceptanceCriteria      []string                 `json:"acceptance_criteria"`
	ScoringDimensions       []types.ScoringDimension `json:"scoring_dimensions"`
}

func (h *Handler) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.Wrap(errors.KindValidation, "invalid task payload", err))
		return
	}

	task, err := h.deps.Machine.CreateTask(c.Request.Context(), lifecycle.CreateTaskRequest{
		PublisherID:        req.PublisherID,
		TaskType:           types.TaskType(req.TaskType),
		Title:              req.Title,
		Description:        req.Description,
		Bounty:             types.Amount(req.BountyMicros),
		Deadline:           req.Deadline,
		Threshold:          req.Threshold,
		MaxRevisions:       req.MaxRevisions,
		ChallengeDuration:  time.Duration(req.ChallengeDurationSecs) * time.Second,
		SubmissionDeposit:  types.Amount(req.SubmissionDepositMicros),
		AcceptanceCriteria: req.AcceptanceCriteria,
		ScoringDimensions:  req.ScoringDimensions,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *Handler) GetTask(c *gin.Context) {
	taskID := c.Param("id")

	if h.deps.Cache != nil {
		if task, ok := h.deps.Cache.GetTask(c.Request.Context(), taskID); ok {
			c.JSON(http.StatusOK, task)
			return
		}
	}

	task, err := h.deps.Tasks.GetTaskByID(taskID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if h.deps.Cache != nil {
		h.deps.Cache.SetTask(c.Request.Context(), &task)
	}
	c.JSON(http.StatusOK, task)
}

func (h *Handler) GetSettlement(c *gin.Context) {
	record, err := h.deps.Settler.Record(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}
