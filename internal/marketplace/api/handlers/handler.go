package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/cache"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/dispute"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/lifecycle"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/repository"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/settlement"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/submission"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/trust"
	"github.com/bountyhive/bountyhive-backend/pkg/errors"
	"github.com/bountyhive/bountyhive-backend/pkg/logging"
)

// Dependencies bundles everything the handlers need.
type Dependencies struct {
	Machine  *lifecycle.Machine
	Tracker  *submission.Tracker
	Disputes *dispute.Engine
	Settler  *settlement.Engine
	Trust    *trust.Ledger
	Tasks    repository.TaskRepository
	Cache    *cache.Cache // optional
	Logger   logging.Logger
}

type Handler struct {
	deps   Dependencies
	logger logging.Logger
}

func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		deps:   deps,
		logger: deps.Logger,
	}
}

// respondError maps the error taxonomy onto HTTP status codes.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errors.KindOf(err) {
	case errors.KindValidation:
		status = http.StatusBadRequest
	case errors.KindNotFound:
		status = http.StatusNotFound
	case errors.KindStateConflict:
		status = http.StatusConflict
	case errors.KindExternal:
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *Handler) HandleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
