package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bhandras/stepwise/internal/entitlement"
	"github.com/bhandras/stepwise/internal/server/api/middleware"
	"github.com/bhandras/stepwise/internal/server/database"
)

// SubscriptionHandler reports subscription tiers.
type SubscriptionHandler struct {
	store *database.Store
}

// NewSubscriptionHandler returns a handler over store.
func NewSubscriptionHandler(store *database.Store) *SubscriptionHandler {
	return &SubscriptionHandler{store: store}
}

// GetTier returns the caller's tier.
func (h *SubscriptionHandler) GetTier(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	tier, err := h.store.GetTier(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get tier"})
		return
	}
	c.JSON(http.StatusOK, entitlement.TierInfo{Tier: tier})
}
