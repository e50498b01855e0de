package message

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreRoundTrip(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// appended out of order on purpose
	_, err := store.Append(ctx, Message{Sender: "b", Recipient: "a", Text: "second", CreatedAt: base.Add(2 * time.Second)})
	require.NoError(t, err)
	firstID, err := store.Append(ctx, Message{Sender: "a", Recipient: "b", Text: "first", CreatedAt: base.Add(time.Second)})
	require.NoError(t, err)
	_, err = store.Append(ctx, Message{Sender: "a", Recipient: "c", Text: "elsewhere", CreatedAt: base})
	require.NoError(t, err)

	history, err := store.QueryBetween(ctx, "a", "b")
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, firstID, history[0].ID)
	assert.Equal(t, "a", history[0].Sender)
	assert.Equal(t, "b", history[0].Recipient)
	assert.Equal(t, "first", history[0].Text)
	assert.Equal(t, "second", history[1].Text)

	reversed, err := store.QueryBetween(ctx, "b", "a")
	require.NoError(t, err)
	assert.Equal(t, history, reversed)
}

func TestMemStoreRejectsEmptyMessage(t *testing.T) {
	store := NewMemStore()

	_, err := store.Append(context.Background(), Message{Sender: "a", Recipient: "b"})
	assert.ErrorIs(t, err, ErrEmpty)
	assert.Equal(t, 0, store.Len())
}

func TestMemStoreEmptyHistory(t *testing.T) {
	history, err := NewMemStore().QueryBetween(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.NotNil(t, history)
}

func TestMemStoreAcceptsFailedAttachmentMarker(t *testing.T) {
	store := NewMemStore()

	_, err := store.Append(context.Background(), Message{Sender: "a", Recipient: "b", AttachmentFailed: true})
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}
