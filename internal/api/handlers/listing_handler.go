package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/AgronAfrica/LeedsLink/internal/api/middleware"
	"github.com/AgronAfrica/LeedsLink/internal/metrics"
	"github.com/AgronAfrica/LeedsLink/internal/models"
	"github.com/AgronAfrica/LeedsLink/internal/services"
	"github.com/AgronAfrica/LeedsLink/internal/tasks"
	"github.com/AgronAfrica/LeedsLink/internal/ws"
)

// Broadcaster pushes events to WebSocket subscribers. It is an interface so
// handler tests can run without a live hub.
type Broadcaster interface {
	Broadcast(event ws.Event)
}

// ListingHandler handles listing CRUD, browse views and per-listing matches.
type ListingHandler struct {
	listingService services.IListingService
	matchService   services.IMatchService
	taskClient     IAsynqClient
	hub            Broadcaster
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(listingService services.IListingService, matchService services.IMatchService, taskClient IAsynqClient, hub Broadcaster) *ListingHandler {
	return &ListingHandler{
		listingService: listingService,
		matchService:   matchService,
		taskClient:     taskClient,
		hub:            hub,
	}
}

type createListingRequest struct {
	Title        string                 `json:"title" binding:"required"`
	Category     models.ListingCategory `json:"category" binding:"required"`
	Tags         []string               `json:"tags"`
	Budget       string                 `json:"budget"`
	Price        string                 `json:"price"`
	Availability string                 `json:"availability"`
	Description  string                 `json:"description"`
	Type         models.ListingType     `json:"type" binding:"required"`
	IsUrgent     bool                   `json:"is_urgent"`
}

// CreateListing handles POST /v1/listing
func (h *ListingHandler) CreateListing(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	listing, err := h.listingService.CreateListing(c.Request.Context(), services.CreateListingInput{
		UserID:       userID,
		Title:        req.Title,
		Category:     req.Category,
		Tags:         req.Tags,
		Budget:       req.Budget,
		Price:        req.Price,
		Availability: req.Availability,
		Description:  req.Description,
		Type:         req.Type,
		IsUrgent:     req.IsUrgent,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	metrics.ListingsCreated.Inc()
	h.enqueueRecounts(c, h.affectedUsers(c, *listing))
	if h.hub != nil {
		h.hub.Broadcast(ws.Event{Type: ws.EventListingCreated, Data: listing})
	}

	c.JSON(http.StatusCreated, listing)
}

// affectedUsers returns the listing's owner plus every user whose listings
// the given listing currently matches.
func (h *ListingHandler) affectedUsers(c *gin.Context, listing models.Listing) map[uuid.UUID]struct{} {
	affected := map[uuid.UUID]struct{}{listing.UserID: {}}

	matches, err := h.matchService.TopMatchesForListing(c.Request.Context(), listing.ID, 0)
	if err != nil {
		log.Printf("Failed to compute affected users for listing %s: %v", listing.ID, err)
		return affected
	}
	for _, m := range matches {
		affected[m.UserID] = struct{}{}
	}
	return affected
}

// enqueueRecounts schedules a match recount for each user. Enqueue failures
// are logged, not surfaced: the mutation itself already succeeded.
func (h *ListingHandler) enqueueRecounts(c *gin.Context, affected map[uuid.UUID]struct{}) {
	for userID := range affected {
		task, err := tasks.NewMatchRecountTask(userID)
		if err != nil {
			log.Printf("Failed to build match recount task for user %s: %v", userID, err)
			continue
		}
		if _, err := h.taskClient.EnqueueContext(c.Request.Context(), task); err != nil {
			log.Printf("Failed to enqueue match recount for user %s: %v", userID, err)
		}
	}
}

// GetListingByID handles GET /v1/listing/:id
func (h *ListingHandler) GetListingByID(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve listing"})
		}
		return
	}

	c.JSON(http.StatusOK, listing)
}

// DeleteListing handles DELETE /v1/listing/:id
func (h *ListingHandler) DeleteListing(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	// Compute who was matched before the listing disappears; their counts
	// shrink once it is gone.
	affected := map[uuid.UUID]struct{}{}
	if listing, findErr := h.listingService.FindListingByID(c.Request.Context(), listingID); findErr == nil {
		affected = h.affectedUsers(c, *listing)
	}

	if err := h.listingService.DeleteListing(c.Request.Context(), listingID, userID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	h.enqueueRecounts(c, affected)
	if h.hub != nil {
		h.hub.Broadcast(ws.Event{Type: ws.EventListingDeleted, Data: gin.H{"id": listingID}})
	}

	c.JSON(http.StatusOK, gin.H{"deleted": listingID})
}

// BrowseListings handles GET /v1/listing/browse
// Optional query parameters: role (filters to the counterpart listing type)
// and category.
func (h *ListingHandler) BrowseListings(c *gin.Context) {
	var role *models.UserRole
	if roleStr := c.Query("role"); roleStr != "" {
		r := models.UserRole(roleStr)
		if !r.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
			return
		}
		role = &r
	}

	var category *models.ListingCategory
	if categoryStr := c.Query("category"); categoryStr != "" {
		cat := models.ListingCategory(categoryStr)
		if !cat.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
			return
		}
		category = &cat
	}

	listings, err := h.listingService.GetFilteredListings(c.Request.Context(), role, category)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to browse listings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": listings})
}

// UrgentListings handles GET /v1/listing/urgent
func (h *ListingHandler) UrgentListings(c *gin.Context) {
	listings, err := h.listingService.UrgentListings(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch urgent listings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listings})
}

// ActiveListings handles GET /v1/listing/active
func (h *ListingHandler) ActiveListings(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		limit = 0
	}

	listings, err := h.listingService.ActiveListings(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch active listings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listings})
}

// GetUserListings handles GET /v1/user/:id/listing
func (h *ListingHandler) GetUserListings(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	listings, err := h.listingService.FindListingsByUserID(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch listings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listings})
}

// GetListingMatches handles GET /v1/listing/:id/matches
func (h *ListingHandler) GetListingMatches(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		limit = 0
	}

	matches, err := h.matchService.TopMatchesForListing(c.Request.Context(), listingID, limit)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute matches"})
		}
		return
	}
	metrics.MatchComputations.Inc()

	c.JSON(http.StatusOK, gin.H{"data": matches})
}
