package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	fixedClock(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	c := &Conversation{
		ID:       "c1",
		Title:    "Planning",
		Provider: "Claude",
		Metadata: Metadata{"model": "claude-3-opus", "starred": true},
	}
	require.NoError(t, db.Conversations().Create(ctx, c))
	assert.False(t, c.CreatedAt.IsZero())
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)

	got, err := db.Conversations().Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Planning", got.Title)
	assert.Equal(t, "Claude", got.Provider)
	assert.True(t, c.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, "claude-3-opus", got.Metadata["model"])
	assert.Equal(t, true, got.Metadata["starred"])
	assert.Nil(t, got.Messages)
}

func TestConversationRepository_GeneratesID(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	c := &Conversation{Provider: "Gemini"}
	require.NoError(t, db.Conversations().Create(ctx, c))
	require.NotEmpty(t, c.ID)

	got, err := db.Conversations().Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "", got.Title)
	assert.Empty(t, got.Metadata)
}

func TestConversationRepository_DuplicateConflict(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	mustCreateConversation(t, db, "c1", "Claude")

	err := db.Conversations().Create(ctx, &Conversation{ID: "c1", Provider: "Copilot"})
	require.ErrorIs(t, err, ErrConflict)

	got, err := db.Conversations().Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Claude", got.Provider)
}

func TestConversationRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	title := "x"

	_, err := db.Conversations().Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.Conversations().Update(ctx, "missing", ConversationPatch{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)

	err = db.Conversations().Delete(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConversationRepository_Update(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	advance := fixedClock(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	c := mustCreateConversation(t, db, "c1", "Claude")
	advance(time.Minute)

	title := "Renamed"
	meta := Metadata{"tag": "work"}
	got, err := db.Conversations().Update(ctx, "c1", ConversationPatch{Title: &title, Metadata: &meta})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, "Claude", got.Provider)
	assert.True(t, got.CreatedAt.Equal(c.CreatedAt))
	assert.True(t, got.UpdatedAt.Equal(c.CreatedAt.Add(time.Minute)))

	reloaded, err := db.Conversations().Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", reloaded.Title)
	assert.Equal(t, "work", reloaded.Metadata["tag"])
	assert.True(t, reloaded.UpdatedAt.Equal(got.UpdatedAt))

	// clock has not moved; updated_at must still advance
	again, err := db.Conversations().Update(ctx, "c1", ConversationPatch{})
	require.NoError(t, err)
	assert.True(t, again.UpdatedAt.After(got.UpdatedAt))
}

func TestConversationRepository_ListOrderingAndPaging(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// c0..c5 share updated_at in pairs so the id tie-break matters
	for i := 0; i < 6; i++ {
		ts := base.Add(time.Duration(i/2) * time.Hour)
		provider := "Claude"
		if i%2 == 1 {
			provider = "Gemini"
		}
		require.NoError(t, db.Conversations().Create(ctx, &Conversation{
			ID:        fmt.Sprintf("c%d", i),
			Provider:  provider,
			CreatedAt: ts,
			UpdatedAt: ts,
		}))
	}

	all, err := db.Conversations().List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c4", "c5", "c2", "c3", "c0", "c1"}, conversationIDs(all))

	var paged []string
	for offset := 0; offset < 6; offset += 4 {
		page, err := db.Conversations().List(ctx, ListFilter{Limit: 4, Offset: offset})
		require.NoError(t, err)
		paged = append(paged, conversationIDs(page)...)
	}
	assert.Equal(t, conversationIDs(all), paged)

	gemini, err := db.Conversations().List(ctx, ListFilter{Provider: "Gemini"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c5", "c3", "c1"}, conversationIDs(gemini))

	none, err := db.Conversations().List(ctx, ListFilter{Provider: "Copilot"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	n, err := db.Conversations().Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	n, err = db.Conversations().Count(ctx, "Claude")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	providers, err := db.Conversations().Providers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ProviderCount{{"Claude", 3}, {"Gemini", 3}}, providers)
}

func TestConversationRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	mustCreateConversation(t, db, "c1", "Claude")
	mustCreateConversation(t, db, "c2", "Claude")
	mustCreateMessage(t, db, "m1", "c1", "shared needle one", time.Unix(1, 0))
	mustCreateMessage(t, db, "m2", "c1", "shared needle two", time.Unix(2, 0))
	mustCreateMessage(t, db, "m3", "c2", "shared needle three", time.Unix(3, 0))

	require.NoError(t, db.Conversations().Delete(ctx, "c1"))

	msgs, err := db.Messages().ListByConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
	_, err = db.Messages().Get(ctx, "m1")
	assert.ErrorIs(t, err, ErrNotFound)

	hits, err := db.Messages().Search(ctx, "needle", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "m3", hits[0].ID)
	assert.Equal(t, "c2", hits[0].ConversationID)

	require.NoError(t, db.VerifyIndex(ctx))
}

func TestConversationRepository_TimestampOutOfRange(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	far := time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)

	err := db.Conversations().Create(ctx, &Conversation{ID: "c1", Provider: "Claude", CreatedAt: far})
	require.ErrorIs(t, err, ErrSerialization)
	_, err = db.Conversations().Get(ctx, "c1")
	assert.ErrorIs(t, err, ErrNotFound)

	err = db.Conversations().CreateWithMessages(ctx, &Conversation{
		ID:       "c2",
		Provider: "Claude",
		Messages: []Message{
			{ID: "m1", Role: RoleUser, Content: "kept only if all fit"},
			{ID: "m2", Role: RoleAssistant, Content: "too late", Timestamp: far},
		},
	})
	require.ErrorIs(t, err, ErrSerialization)
	_, err = db.Conversations().Get(ctx, "c2")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.Messages().Get(ctx, "m1")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := db.Conversations().Count(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func conversationIDs(cs []Conversation) []string {
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.ID
	}
	return ids
}
