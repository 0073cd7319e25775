package handlers

import (
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
	"github.com/AgronAfrica/LeedsLink/internal/tasks"
	"github.com/AgronAfrica/LeedsLink/internal/ws"
)

// RatingHandler handles rating submission and summaries.
type RatingHandler struct {
	ratingService services.IRatingService
	derived       IDerivedCache
	taskClient    IAsynqClient
	hub           Broadcaster
}

// NewRatingHandler creates a new RatingHandler.
func NewRatingHandler(ratingService services.IRatingService, derived IDerivedCache, taskClient IAsynqClient, hub Broadcaster) *RatingHandler {
	return &RatingHandler{
		ratingService: ratingService,
		derived:       derived,
		taskClient:    taskClient,
		hub:           hub,
	}
}

type submitRatingRequest struct {
	ToUserID string                `json:"to_user_id" binding:"required"`
	Rating   int                   `json:"rating" binding:"required"`
	Review   string                `json:"review"`
	Category models.RatingCategory `json:"category" binding:"required"`
}

// SubmitRating handles POST /v1/rating
func (h *RatingHandler) SubmitRating(c *gin.Context) {
	fromUserID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req submitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	toUserID, err := uuid.Parse(req.ToUserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to_user_id format"})
		return
	}

	rating := models.NewRating(fromUserID, toUserID, req.Rating, req.Review, req.Category)
	if err := h.ratingService.SubmitRating(c.Request.Context(), rating); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	metrics.RatingsSubmitted.Inc()

	if task, buildErr := tasks.NewRatingSummaryRefreshTask(toUserID); buildErr != nil {
		log.Printf("Failed to build rating summary task for user %s: %v", toUserID, buildErr)
	} else if _, enqueueErr := h.taskClient.EnqueueContext(c.Request.Context(), task); enqueueErr != nil {
		log.Printf("Failed to enqueue rating summary refresh for user %s: %v", toUserID, enqueueErr)
	}

	if h.hub != nil {
		h.hub.Broadcast(ws.Event{Type: ws.EventRatingUpdated, Data: gin.H{"user_id": toUserID}})
	}

	c.JSON(http.StatusCreated, rating)
}

// GetRatingsForUser handles GET /v1/user/:id/rating
func (h *RatingHandler) GetRatingsForUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	ratings, err := h.ratingService.GetRatingsForUser(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch ratings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ratings})
}

// GetRatingSummary handles GET /v1/user/:id/rating/summary
// The cached summary is preferred within its TTL; a miss falls back to a
// fresh computation whose result is cached for the next caller.
func (h *RatingHandler) GetRatingSummary(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	if cached, cacheErr := h.derived.RatingSummary(c.Request.Context(), userID); cacheErr == nil {
		c.JSON(http.StatusOK, cached)
		return
	} else if !errors.Is(cacheErr, cache.ErrMiss) {
		log.Printf("Failed to read cached rating summary for user %s: %v", userID, cacheErr)
	}

	summary, err := h.ratingService.SummaryForUser(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to summarize ratings"})
		return
	}
	if cacheErr := h.derived.SetRatingSummary(c.Request.Context(), summary); cacheErr != nil {
		log.Printf("Failed to cache rating summary for user %s: %v", userID, cacheErr)
	}

	c.JSON(http.StatusOK, summary)
}

// CanRate handles GET /v1/rating/can-rate/:id
func (h *RatingHandler) CanRate(c *gin.Context) {
	fromUserID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	toUserID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	canRate, err := h.ratingService.CanRateUser(c.Request.Context(), fromUserID, toUserID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check rating eligibility"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"can_rate": canRate})
}
