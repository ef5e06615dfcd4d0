package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raushanprabhakar1/voice-agent/internal/models"
)

func TestUpsertAndGetUser(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := &models.User{Phone: "+1555", Name: "Alice"}
	require.NoError(t, store.UpsertUser(ctx, user))

	got, err := store.GetUserByPhone(ctx, "+1555")
	require.NoError(t, err)
	assert.Equal(t, "+1555", got.Phone)
	assert.Equal(t, "Alice", got.Name)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestUpsertUserKeepsName(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertUser(ctx, &models.User{Phone: "+1555", Name: "Alice"}))
	// Re-identifying without a name must not erase the stored one.
	require.NoError(t, store.UpsertUser(ctx, &models.User{Phone: "+1555"}))

	got, err := store.GetUserByPhone(ctx, "+1555")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
}

func TestGetUserByPhoneNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetUserByPhone(context.Background(), "+1999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveSummary(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	summary := &models.ConversationSummary{
		UserPhone: "+1555",
		Summary:   []byte(`{"outcome":"booked"}`),
		ToolCalls: []byte(`["identify_user","book_appointment"]`),
	}
	require.NoError(t, store.SaveSummary(ctx, summary))
	assert.NotEmpty(t, summary.ID)

	count, err := store.CountSummaries(ctx, "+1555")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
