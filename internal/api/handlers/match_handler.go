package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AgronAfrica/LeedsLink/internal/api/middleware"
	"github.com/AgronAfrica/LeedsLink/internal/cache"
	"github.com/AgronAfrica/LeedsLink/internal/metrics"
	"github.com/AgronAfrica/LeedsLink/internal/models"
	"github.com/AgronAfrica/LeedsLink/internal/services"
)

// IDerivedCache is the slice of cache.DerivedStore the handlers need.
type IDerivedCache interface {
	MatchCount(ctx context.Context, userID uuid.UUID) (int, error)
	SetMatchCount(ctx context.Context, userID uuid.UUID, count int) error
	RatingSummary(ctx context.Context, userID uuid.UUID) (*models.UserRatingSummary, error)
	SetRatingSummary(ctx context.Context, summary models.UserRatingSummary) error
}

// MatchHandler serves per-user match aggregates.
type MatchHandler struct {
	matchService services.IMatchService
	derived      IDerivedCache
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(matchService services.IMatchService, derived IDerivedCache) *MatchHandler {
	return &MatchHandler{matchService: matchService, derived: derived}
}

// GetMatches handles GET /v1/match
func (h *MatchHandler) GetMatches(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	matches, err := h.matchService.MatchesForUserID(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute matches"})
		return
	}
	metrics.MatchComputations.Inc()

	c.JSON(http.StatusOK, gin.H{"data": matches, "count": len(matches)})
}

// GetMatchCount handles GET /v1/match/count
// The cached count is preferred; a miss falls back to a fresh computation
// whose result is cached for the next caller.
func (h *MatchHandler) GetMatchCount(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	count, err := h.derived.MatchCount(c.Request.Context(), userID)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			log.Printf("Failed to read cached match count for user %s: %v", userID, err)
		}
		count, err = h.matchService.MatchCountForUser(c.Request.Context(), userID)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute match count"})
			return
		}
		metrics.MatchComputations.Inc()
		if cacheErr := h.derived.SetMatchCount(c.Request.Context(), userID, count); cacheErr != nil {
			log.Printf("Failed to cache match count for user %s: %v", userID, cacheErr)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"count":                   count,
		"has_local_partner_badge": count >= services.LocalPartnerBadgeThreshold,
	})
}
