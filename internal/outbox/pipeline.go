package outbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"inbox-engine/internal/models"
	"inbox-engine/internal/observability"
	"inbox-engine/internal/store"
)

// ErrEmptyBody rejects sends whose trimmed body is empty. No network call is
// made and no state changes.
var ErrEmptyBody = errors.New("message body is empty")

// Sender is the slice of the REST surface the pipeline needs.
type Sender interface {
	SendMessage(ctx context.Context, conversationID, body, replyToID string) (models.Message, error)
}

// Pipeline performs optimistic sends: insert a tentative record immediately,
// issue the HTTP send, then reconcile the tentative record with the
// server-confirmed one. The target conversation id is captured at dispatch
// time, never read from ambient state.
type Pipeline struct {
	sender        Sender
	messages      *store.MessageStore
	conversations *store.ConversationStore
	identity      models.Identity
	newTempID     func() string
	now           func() time.Time
}

// NewPipeline builds a Pipeline.
func NewPipeline(sender Sender, messages *store.MessageStore, conversations *store.ConversationStore, identity models.Identity) *Pipeline {
	return &Pipeline{
		sender:        sender,
		messages:      messages,
		conversations: conversations,
		identity:      identity,
		newTempID:     func() string { return models.TempIDPrefix + uuid.NewString() },
		now:           time.Now,
	}
}

// WithClock overrides the time source, used by tests.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// WithTempIDs overrides temp id generation, used by tests.
func (p *Pipeline) WithTempIDs(gen func() string) *Pipeline {
	p.newTempID = gen
	return p
}

// Send dispatches a message to the given conversation. On failure the
// tentative record stays visible in `sending` state so the user keeps the
// failure context; it is never reported as delivered.
func (p *Pipeline) Send(ctx context.Context, conversationID, body, replyToID string) (models.Message, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return models.Message{}, ErrEmptyBody
	}

	tentative := models.Message{
		ID:             p.newTempID(),
		ConversationID: conversationID,
		SenderID:       p.identity.UserID,
		Body:           trimmed,
		CreatedAt:      p.now(),
		ReplyToID:      replyToID,
		Status:         models.StatusSending,
	}
	p.messages.Merge(tentative)

	confirmed, err := p.sender.SendMessage(ctx, conversationID, trimmed, replyToID)
	if err != nil {
		observability.IncSend("error")
		return tentative, fmt.Errorf("send message: %w", err)
	}

	// The push path may already have delivered the confirmed record; Promote
	// converges both paths onto a single entry with the server id.
	p.messages.Promote(tentative.ID, confirmed)
	p.conversations.UpsertFromEvent(conversationID, confirmed.CreatedAt)
	observability.IncSend("ok")
	return confirmed, nil
}
