package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/AgronAfrica/LeedsLink/internal/api/middleware"
	"github.com/AgronAfrica/LeedsLink/internal/models"
	"github.com/AgronAfrica/LeedsLink/internal/services"
)

// UserHandler handles user profile requests.
type UserHandler struct {
	userService    services.IUserService
	listingService services.IListingService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService services.IUserService, listingService services.IListingService) *UserHandler {
	return &UserHandler{userService: userService, listingService: listingService}
}

// PublicUser represents the data returned for a user profile.
type PublicUser struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Role         models.UserRole `json:"role"`
	Description  string          `json:"description,omitempty"`
	DateJoined   string          `json:"date_joined"`
	ListingCount int             `json:"listing_count"`
}

// GetUserByID handles GET /v1/user/:id
func (h *UserHandler) GetUserByID(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	user, err := h.userService.FindUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
		}
		return
	}

	listingCount := 0
	if listings, listErr := h.listingService.FindListingsByUserID(c.Request.Context(), userID); listErr == nil {
		listingCount = len(listings)
	} else {
		log.Printf("Failed to count listings for user %s: %v", userID, listErr)
	}

	c.JSON(http.StatusOK, PublicUser{
		ID:           user.ID.String(),
		Name:         user.Name,
		Role:         user.Role,
		Description:  user.Description,
		DateJoined:   user.CreatedAt.Format("2006-01-02"),
		ListingCount: listingCount,
	})
}

// GetProfile handles GET /v1/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	user, err := h.userService.FindUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve profile"})
		}
		return
	}

	c.JSON(http.StatusOK, user)
}
