package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AgronAfrica/LeedsLink/internal/config"
	"github.com/AgronAfrica/LeedsLink/internal/db"
	"github.com/AgronAfrica/LeedsLink/internal/models"
)

// IMessageService manages conversations and their embedded messages.
type IMessageService interface {
	CreateConversation(ctx context.Context, participantIDs []uuid.UUID, participantNames []string) (*models.Conversation, error)
	FindConversationByID(ctx context.Context, conversationID uuid.UUID) (*models.Conversation, error)
	ConversationsForUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error)
	SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, senderName, content string) (*models.Message, error)
	MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
}

const conversationsCollection = "conversations"

// messageService implements IMessageService.
type messageService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewMessageService creates a new MessageService.
func NewMessageService(db *mongo.Database, cfg *config.Config) IMessageService {
	return &messageService{db: db, cfg: cfg}
}

// CreateConversation starts a new thread between two participants.
func (s *messageService) CreateConversation(ctx context.Context, participantIDs []uuid.UUID, participantNames []string) (*models.Conversation, error) {
	if len(participantIDs) != 2 || len(participantNames) != 2 {
		return nil, fmt.Errorf("a conversation requires exactly two participants")
	}
	if participantIDs[0] == participantIDs[1] {
		return nil, fmt.Errorf("cannot start a conversation with yourself")
	}

	collection := s.db.Collection(conversationsCollection)
	var conversation *models.Conversation
	operation := func() error {
		conversation = &models.Conversation{
			ID:               uuid.New(),
			ParticipantIDs:   participantIDs,
			ParticipantNames: participantNames,
			Messages:         []models.Message{},
			CreatedAt:        time.Now().UTC(),
		}
		_, insertErr := collection.InsertOne(ctx, conversation)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}

	return conversation, nil
}

// FindConversationByID finds a conversation by id.
func (s *messageService) FindConversationByID(ctx context.Context, conversationID uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := s.db.Collection(conversationsCollection).FindOne(ctx, bson.M{"_id": conversationID}).Decode(&conversation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding conversation %s: %w", conversationID, err)
	}
	return &conversation, nil
}

// ConversationsForUser returns every conversation the user participates in,
// newest first.
func (s *messageService) ConversationsForUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(conversationsCollection).Find(ctx, bson.M{"participant_ids": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer cursor.Close(ctx)

	conversations := []models.Conversation{}
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}
	return conversations, nil
}

// SendMessage appends a message to a conversation the sender belongs to.
func (s *messageService) SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, senderName, content string) (*models.Message, error) {
	if content == "" {
		return nil, fmt.Errorf("message content is required")
	}
	if s.cfg.MaxMessageLength > 0 && len(content) > s.cfg.MaxMessageLength {
		return nil, fmt.Errorf("message exceeds %d characters", s.cfg.MaxMessageLength)
	}

	message := models.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		SenderName: senderName,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}

	filter := bson.M{"_id": conversationID, "participant_ids": senderID}
	update := bson.M{"$push": bson.M{"messages": message}}
	result, err := s.db.Collection(conversationsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("failed to append message to conversation %s: %w", conversationID, err)
	}
	if result.MatchedCount == 0 {
		return nil, fmt.Errorf("conversation %s not found or sender is not a participant", conversationID)
	}

	return &message, nil
}

// MarkRead marks all messages not sent by the reader as read.
func (s *messageService) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) error {
	filter := bson.M{"_id": conversationID, "participant_ids": readerID}
	update := bson.M{"$set": bson.M{"messages.$[m].read": true}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"m.sender_id": bson.M{"$ne": readerID}, "m.read": false}},
	})

	result, err := s.db.Collection(conversationsCollection).UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to mark conversation %s read: %w", conversationID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("conversation %s not found or reader is not a participant", conversationID)
	}
	return nil
}

// UnreadCount counts messages addressed to the user that are still unread.
func (s *messageService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	conversations, err := s.ConversationsForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, c := range conversations {
		for _, m := range c.Messages {
			if m.SenderID != userID && !m.Read {
				count++
			}
		}
	}
	return count, nil
}
