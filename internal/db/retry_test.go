package db

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func duplicateKeyError(id uuid.UUID) error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    11000,
		Message: "E11000 duplicate key error dup key: { : \"" + id.String() + "\" }",
	}}}
}

func TestWithRetries_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	err := WithRetries(func() error {
		calls++
		return nil
	}, 3, IsMongoDuplicateKeyError)

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetries_NonRetryableReturnsImmediately(t *testing.T) {
	calls := 0
	boom := errors.New("connection reset")
	err := WithRetries(func() error {
		calls++
		return boom
	}, 3, IsMongoDuplicateKeyError)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWithRetries_ExhaustsRetries(t *testing.T) {
	calls := 0
	err := WithRetries(func() error {
		calls++
		return duplicateKeyError(uuid.New())
	}, 3, IsMongoDuplicateKeyError)

	assert.Error(t, err)
	assert.True(t, IsMongoDuplicateKeyError(err))
	assert.Equal(t, 4, calls, "initial attempt plus three retries")
}

func TestWithRetries_CollisionResolves(t *testing.T) {
	inserted := map[uuid.UUID]bool{}
	colliding := uuid.New()
	inserted[colliding] = true

	attempt := 0
	ids := []uuid.UUID{colliding, uuid.New()}
	err := WithRetries(func() error {
		id := ids[attempt]
		attempt++
		if inserted[id] {
			return duplicateKeyError(id)
		}
		inserted[id] = true
		return nil
	}, 3, IsMongoDuplicateKeyError)

	assert.NoError(t, err)
	assert.Equal(t, 2, attempt)
	assert.Len(t, inserted, 2)
}

func TestIsMongoDuplicateKeyError(t *testing.T) {
	assert.True(t, IsMongoDuplicateKeyError(duplicateKeyError(uuid.New())))
	assert.False(t, IsMongoDuplicateKeyError(errors.New("something else")))
	assert.False(t, IsMongoDuplicateKeyError(mongo.WriteException{
		WriteErrors: []mongo.WriteError{{Code: 121}},
	}))
}
