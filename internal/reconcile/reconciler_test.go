package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbox-engine/internal/models"
	"inbox-engine/internal/store"
)

func eventMsg(id, conversationID string, minute int) *models.Message {
	return &models.Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       "u2",
		Body:           "body-" + id,
		CreatedAt:      time.Date(2026, 3, 14, 10, minute, 0, 0, time.UTC),
	}
}

func setup(active string) (*Reconciler, *store.MessageStore, *store.ConversationStore) {
	messages := store.NewMessageStore()
	messages.Load(active, nil)
	conversations := store.NewConversationStore()
	conversations.Merge(
		models.Conversation{ID: "c1", HouseholdID: "H1", HousehelpID: "HH1"},
		models.Conversation{ID: "c2", HouseholdID: "H1", HousehelpID: "HH2"},
	)
	r := New(messages, conversations, func() string { return active })
	return r, messages, conversations
}

func TestNewMessageInsertsIntoOrderedTimeline(t *testing.T) {
	r, messages, conversations := setup("c1")
	messages.Load("c1", []models.Message{*eventMsg("m1", "c1", 0), *eventMsg("m3", "c1", 5)})

	r.Apply(models.PushEvent{Type: models.EventNewMessage, Message: eventMsg("m2", "c1", 2)})

	ordered := messages.Messages()
	require.Len(t, ordered, 3)
	assert.Equal(t, "m1", ordered[0].ID)
	assert.Equal(t, "m2", ordered[1].ID)
	assert.Equal(t, "m3", ordered[2].ID)

	conv, _ := conversations.Get("c1")
	require.NotNil(t, conv.LastMessageAt)
}

func TestNewMessageForActiveConversationDoesNotBumpUnread(t *testing.T) {
	r, _, conversations := setup("c1")

	r.Apply(models.PushEvent{Type: models.EventNewMessage, Message: eventMsg("m1", "c1", 0)})

	conv, _ := conversations.Get("c1")
	assert.Zero(t, conv.UnreadCount)
}

func TestNewMessageForBackgroundConversationBumpsUnreadOnce(t *testing.T) {
	r, _, conversations := setup("c1")

	ev := models.PushEvent{Type: models.EventNewMessage, Message: eventMsg("m1", "c2", 0)}
	r.Apply(ev)
	r.Apply(ev) // redelivery must not double-count

	conv, _ := conversations.Get("c2")
	assert.Equal(t, 1, conv.UnreadCount)
}

func TestEditForUnknownMessageIsDroppedSilently(t *testing.T) {
	r, messages, _ := setup("c1")

	r.Apply(models.PushEvent{Type: models.EventMessageEdited, Message: eventMsg("ghost", "c1", 0)})

	assert.Zero(t, messages.Len())
}

func TestEditMergesByID(t *testing.T) {
	r, messages, _ := setup("c1")
	messages.Load("c1", []models.Message{*eventMsg("m1", "c1", 0)})

	edited := eventMsg("m1", "c1", 0)
	edited.Body = "updated"
	editedAt := time.Date(2026, 3, 14, 10, 3, 0, 0, time.UTC)
	edited.EditedAt = &editedAt
	r.Apply(models.PushEvent{Type: models.EventMessageEdited, Message: edited})

	got, ok := messages.Get("m1")
	require.True(t, ok)
	assert.Equal(t, "updated", got.Body)
	require.NotNil(t, got.EditedAt)
}

func TestDeleteKeepsPlaceholderRow(t *testing.T) {
	r, messages, _ := setup("c1")
	messages.Load("c1", []models.Message{*eventMsg("m1", "c1", 0)})

	deleted := eventMsg("m1", "c1", 0)
	deleted.Body = ""
	deletedAt := time.Date(2026, 3, 14, 10, 4, 0, 0, time.UTC)
	deleted.DeletedAt = &deletedAt
	r.Apply(models.PushEvent{Type: models.EventMessageDeleted, Message: deleted})

	got, ok := messages.Get("m1")
	require.True(t, ok)
	assert.True(t, got.IsDeleted())
	assert.Empty(t, got.Body)
	assert.Equal(t, 1, messages.Len())
}

func TestReactionEventsReplaceListWholesale(t *testing.T) {
	r, messages, _ := setup("c1")
	seeded := *eventMsg("m1", "c1", 0)
	seeded.Reactions = []models.Reaction{{Emoji: "👍", UserID: "u1"}}
	messages.Load("c1", []models.Message{seeded})

	update := eventMsg("m1", "c1", 0)
	update.Reactions = []models.Reaction{{Emoji: "❤️", UserID: "u2"}}
	r.Apply(models.PushEvent{Type: models.EventReactionAdded, Message: update})

	got, _ := messages.Get("m1")
	require.Len(t, got.Reactions, 1)
	assert.Equal(t, "❤️", got.Reactions[0].Emoji)

	update.Reactions = nil
	r.Apply(models.PushEvent{Type: models.EventReactionRemoved, Message: update})
	got, _ = messages.Get("m1")
	assert.Empty(t, got.Reactions)
}

func TestApplyIsIdempotent(t *testing.T) {
	r, messages, _ := setup("c1")

	ev := models.PushEvent{Type: models.EventNewMessage, Message: eventMsg("m1", "c1", 0)}
	r.Apply(ev)
	before := messages.Messages()
	r.Apply(ev)
	assert.Equal(t, before, messages.Messages())
}

func TestMalformedEventsAreIgnored(t *testing.T) {
	r, messages, _ := setup("c1")

	r.Apply(models.PushEvent{Type: "typing"})
	r.Apply(models.PushEvent{Type: models.EventNewMessage})

	assert.Zero(t, messages.Len())
}

func TestRunDrainsChannelUntilClosed(t *testing.T) {
	r, messages, _ := setup("c1")

	events := make(chan models.PushEvent, 2)
	events <- models.PushEvent{Type: models.EventNewMessage, Message: eventMsg("m1", "c1", 0)}
	events <- models.PushEvent{Type: models.EventNewMessage, Message: eventMsg("m2", "c1", 1)}
	close(events)

	r.Run(context.Background(), events)
	assert.Equal(t, 2, messages.Len())
}
