package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single message within a conversation.
type Message struct {
	ID         uuid.UUID `bson:"_id" json:"id"`
	SenderID   uuid.UUID `bson:"sender_id" json:"sender_id"`
	SenderName string    `bson:"sender_name" json:"sender_name"`
	Content    string    `bson:"content" json:"content"`
	Read       bool      `bson:"read" json:"read"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// Conversation is a two-party message thread. Messages are stored embedded
// in send order; participant names are denormalized alongside the ids.
type Conversation struct {
	ID               uuid.UUID   `bson:"_id" json:"id"`
	ParticipantIDs   []uuid.UUID `bson:"participant_ids" json:"participant_ids"`
	ParticipantNames []string    `bson:"participant_names" json:"participant_names"`
	Messages         []Message   `bson:"messages" json:"messages"`
	CreatedAt        time.Time   `bson:"created_at" json:"created_at"`
}

// LastMessage returns the most recent message, or nil for an empty thread.
func (c Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// HasParticipant reports whether the given user is part of the conversation.
func (c Conversation) HasParticipant(userID uuid.UUID) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}
