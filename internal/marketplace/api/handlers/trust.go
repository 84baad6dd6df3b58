package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/trust"
)

func (h *Handler) RegisterUser(c *gin.Context) {
	user, err := h.deps.Trust.EnsureUser(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) GetUserTrust(c *gin.Context) {
	user, err := h.deps.Trust.UserState(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":        user,
		"rates":       trust.RatesForTier(user.Tier),
		"permissions": trust.PermissionsForTier(user.Tier),
	})
}

func (h *Handler) GetTrustEvents(c *gin.Context) {
	events, err := h.deps.Trust.History(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
