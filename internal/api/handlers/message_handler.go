package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/AgronAfrica/LeedsLink/internal/api/middleware"
	"github.com/AgronAfrica/LeedsLink/internal/metrics"
	"github.com/AgronAfrica/LeedsLink/internal/notify"
	"github.com/AgronAfrica/LeedsLink/internal/services"
	"github.com/AgronAfrica/LeedsLink/internal/ws"
)

// MessageHandler handles conversations and messages.
type MessageHandler struct {
	messageService services.IMessageService
	userService    services.IUserService
	notifier       notify.Notifier
	hub            Broadcaster
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(messageService services.IMessageService, userService services.IUserService, notifier notify.Notifier, hub Broadcaster) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		userService:    userService,
		notifier:       notifier,
		hub:            hub,
	}
}

type createConversationRequest struct {
	WithUserID string `json:"with_user_id" binding:"required"`
}

// CreateConversation handles POST /v1/conversation
func (h *MessageHandler) CreateConversation(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	otherID, err := uuid.Parse(req.WithUserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid with_user_id format"})
		return
	}

	me, err := h.userService.FindUserByID(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve participants"})
		return
	}
	other, err := h.userService.FindUserByID(c.Request.Context(), otherID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve participants"})
		}
		return
	}

	conversation, err := h.messageService.CreateConversation(
		c.Request.Context(),
		[]uuid.UUID{me.ID, other.ID},
		[]string{me.Name, other.Name},
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, conversation)
}

// GetConversations handles GET /v1/conversation
func (h *MessageHandler) GetConversations(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	conversations, err := h.messageService.ConversationsForUser(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": conversations})
}

// GetConversation handles GET /v1/conversation/:id
func (h *MessageHandler) GetConversation(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID format"})
		return
	}

	conversation, err := h.messageService.FindConversationByID(c.Request.Context(), conversationID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversation"})
		}
		return
	}
	if !conversation.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this conversation"})
		return
	}

	c.JSON(http.StatusOK, conversation)
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// SendMessage handles POST /v1/conversation/:id/message
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID format"})
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	senderName := c.GetString(middleware.ContextKeyUserName)
	message, err := h.messageService.SendMessage(c.Request.Context(), conversationID, userID, senderName, req.Content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.notifyRecipient(c, conversationID, userID, senderName)
	if h.hub != nil {
		h.hub.Broadcast(ws.Event{Type: ws.EventNewMessage, Data: gin.H{"conversation_id": conversationID}})
	}

	c.JSON(http.StatusCreated, message)
}

// notifyRecipient raises a new-message notification for the other
// participant. Failures are logged; the message itself was already stored.
func (h *MessageHandler) notifyRecipient(c *gin.Context, conversationID, senderID uuid.UUID, senderName string) {
	conversation, err := h.messageService.FindConversationByID(c.Request.Context(), conversationID)
	if err != nil {
		log.Printf("Failed to load conversation %s for notification: %v", conversationID, err)
		return
	}
	for _, participantID := range conversation.ParticipantIDs {
		if participantID == senderID {
			continue
		}
		n := notify.Notification{
			UserID: participantID,
			Kind:   notify.KindNewMessage,
			Title:  "New message",
			Body:   "You have a new message from " + senderName + ".",
		}
		if err := h.notifier.Notify(c.Request.Context(), n); err != nil {
			log.Printf("Failed to deliver new-message notification for user %s: %v", participantID, err)
		} else {
			metrics.NotificationsSent.WithLabelValues(string(notify.KindNewMessage)).Inc()
		}
	}
}

// MarkRead handles POST /v1/conversation/:id/read
func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID format"})
		return
	}

	if err := h.messageService.MarkRead(c.Request.Context(), conversationID, userID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": true})
}

// GetUnreadCount handles GET /v1/conversation/unread
func (h *MessageHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	count, err := h.messageService.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count unread messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}
