package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/AgronAfrica/LeedsLink/internal/api/handlers"
	"github.com/AgronAfrica/LeedsLink/internal/api/middleware"
	"github.com/AgronAfrica/LeedsLink/internal/cache"
	"github.com/AgronAfrica/LeedsLink/internal/config"
	"github.com/AgronAfrica/LeedsLink/internal/metrics"
	"github.com/AgronAfrica/LeedsLink/internal/notify"
	"github.com/AgronAfrica/LeedsLink/internal/services"
	"github.com/AgronAfrica/LeedsLink/internal/ws"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(
	cfg *config.Config,
	db *mongo.Database,
	taskClient handlers.IAsynqClient,
	derived *cache.DerivedStore,
	notifier notify.Notifier,
	hub *ws.Hub,
) *gin.Engine {
	// Initialize services needed by API handlers
	userService := services.NewUserService(db, cfg)
	listingService := services.NewListingService(db, cfg)
	matchService := services.NewMatchService(listingService)
	ratingService := services.NewRatingService(db)
	messageService := services.NewMessageService(db, cfg)

	r := gin.Default()

	// Initialize Middleware
	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)

	// Apply global middleware first (order matters)
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg, userService)
	listingHandler := handlers.NewListingHandler(listingService, matchService, taskClient, hub)
	matchHandler := handlers.NewMatchHandler(matchService, derived)
	ratingHandler := handlers.NewRatingHandler(ratingService, derived, taskClient, hub)
	messageHandler := handlers.NewMessageHandler(messageService, userService, notifier, hub)
	userHandler := handlers.NewUserHandler(userService, listingService)

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/v1")
	{
		// Public routes (rate limiting already applied globally)
		v1.POST("/auth/register", authHandler.Register)
		v1.POST("/auth/login", authHandler.Login)

		// Listing routes - keep them specific to avoid conflicts
		v1.GET("/listing/browse", listingHandler.BrowseListings)
		v1.GET("/listing/urgent", listingHandler.UrgentListings)
		v1.GET("/listing/active", listingHandler.ActiveListings)
		v1.GET("/listing/:id", listingHandler.GetListingByID)
		v1.GET("/listing/:id/matches", listingHandler.GetListingMatches)

		// User routes
		v1.GET("/user/:id", userHandler.GetUserByID)
		v1.GET("/user/:id/listing", listingHandler.GetUserListings)
		v1.GET("/user/:id/rating", ratingHandler.GetRatingsForUser)
		v1.GET("/user/:id/rating/summary", ratingHandler.GetRatingSummary)

		// Event stream
		v1.GET("/ws", gin.WrapF(hub.HandleUpgrade))

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Authenticated routes
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.GET("/profile", userHandler.GetProfile)

			authRequired.POST("/listing", listingHandler.CreateListing)
			authRequired.DELETE("/listing/:id", listingHandler.DeleteListing)

			authRequired.GET("/match", matchHandler.GetMatches)
			authRequired.GET("/match/count", matchHandler.GetMatchCount)

			authRequired.POST("/rating", ratingHandler.SubmitRating)
			authRequired.GET("/rating/can-rate/:id", ratingHandler.CanRate)

			authRequired.POST("/conversation", messageHandler.CreateConversation)
			authRequired.GET("/conversation", messageHandler.GetConversations)
			authRequired.GET("/conversation/unread", messageHandler.GetUnreadCount)
			authRequired.GET("/conversation/:id", messageHandler.GetConversation)
			authRequired.POST("/conversation/:id/message", messageHandler.SendMessage)
			authRequired.POST("/conversation/:id/read", messageHandler.MarkRead)
		}
	}

	return r
}

// SetupServiceRouter configures and returns the service Gin engine used by
// integration tests and deploy tooling. Requires Redis for the mock
// notification inbox.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				log.Println("Shutdown channel already signaled or blocked.")
			}

		case "getTestNotification":
			var args []string // Expect [user_id, kind]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [userID, kind]"})
				return
			}
			redisKey := notify.Key(args[0], args[1])

			// Poll Redis briefly for the key
			var data string
			var getErr error
			found := false
			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			for i := 0; i < 10; i++ {
				data, getErr = rdb.Get(ctx, redisKey).Result()
				if getErr == nil {
					found = true
					rdb.Del(ctx, redisKey)
					break
				}
				if getErr != redis.Nil {
					log.Printf("Service API: Error getting key %s from Redis: %v", redisKey, getErr)
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				time.Sleep(200 * time.Millisecond)
			}

			if !found {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test notification not found in Redis for key %s", redisKey)})
				return
			}

			var notification notify.Notification
			if err := json.Unmarshal([]byte(data), &notification); err != nil {
				log.Printf("Service API: Error unmarshalling notification from key %s: %v", redisKey, err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored notification"})
				return
			}

			c.JSON(http.StatusOK, gin.H{"success": true, "data": notification})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
