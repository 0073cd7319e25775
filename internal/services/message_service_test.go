package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/AgronAfrica/LeedsLink/internal/config"
	"github.com/AgronAfrica/LeedsLink/internal/utils"
)

func setupTestDBMessage(t *testing.T, dbName string) *mongo.Database {
	return utils.SetupTestDB(t, dbName, "conversations")
}

func testMessageConfig() *config.Config {
	return &config.Config{MaxMessageLength: 100}
}

func TestCreateConversation(t *testing.T) {
	db := setupTestDBMessage(t, "test_db_conversation_create")
	service := NewMessageService(db, testMessageConfig())
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	conversation, err := service.CreateConversation(ctx, []uuid.UUID{alice, bob}, []string{"Alice", "Bob"})
	require.NoError(t, err)
	require.NotNil(t, conversation)
	assert.NotEqual(t, uuid.Nil, conversation.ID)
	assert.Empty(t, conversation.Messages)

	found, err := service.FindConversationByID(ctx, conversation.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob"}, found.ParticipantNames)

	_, err = service.CreateConversation(ctx, []uuid.UUID{alice}, []string{"Alice"})
	assert.Error(t, err, "a conversation needs exactly two participants")

	_, err = service.CreateConversation(ctx, []uuid.UUID{alice, alice}, []string{"Alice", "Alice"})
	assert.Error(t, err, "a conversation with yourself should be rejected")
}

func TestSendMessage(t *testing.T) {
	db := setupTestDBMessage(t, "test_db_conversation_send")
	service := NewMessageService(db, testMessageConfig())
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()
	stranger := uuid.New()

	conversation, err := service.CreateConversation(ctx, []uuid.UUID{alice, bob}, []string{"Alice", "Bob"})
	require.NoError(t, err)

	message, err := service.SendMessage(ctx, conversation.ID, alice, "Alice", "Is the catering slot still open?")
	require.NoError(t, err)
	assert.Equal(t, alice, message.SenderID)
	assert.False(t, message.Read)

	_, err = service.SendMessage(ctx, conversation.ID, stranger, "Stranger", "Let me in")
	assert.Error(t, err, "non-participants cannot post")

	_, err = service.SendMessage(ctx, conversation.ID, alice, "Alice", "")
	assert.Error(t, err, "empty content should be rejected")

	_, err = service.SendMessage(ctx, conversation.ID, alice, "Alice", strings.Repeat("x", 101))
	assert.Error(t, err, "content over the limit should be rejected")

	found, err := service.FindConversationByID(ctx, conversation.ID)
	require.NoError(t, err)
	require.Len(t, found.Messages, 1)
	assert.Equal(t, "Is the catering slot still open?", found.Messages[0].Content)
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	db := setupTestDBMessage(t, "test_db_conversation_read")
	service := NewMessageService(db, testMessageConfig())
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	conversation, err := service.CreateConversation(ctx, []uuid.UUID{alice, bob}, []string{"Alice", "Bob"})
	require.NoError(t, err)

	_, err = service.SendMessage(ctx, conversation.ID, alice, "Alice", "First")
	require.NoError(t, err)
	_, err = service.SendMessage(ctx, conversation.ID, alice, "Alice", "Second")
	require.NoError(t, err)
	_, err = service.SendMessage(ctx, conversation.ID, bob, "Bob", "Reply")
	require.NoError(t, err)

	// Bob has two unread messages from Alice, Alice one from Bob.
	count, err := service.UnreadCount(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	count, err = service.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, service.MarkRead(ctx, conversation.ID, bob))

	count, err = service.UnreadCount(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Bob's own message to Alice stays unread until she marks it.
	count, err = service.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	err = service.MarkRead(ctx, uuid.New(), bob)
	assert.Error(t, err, "unknown conversation should be rejected")
}
