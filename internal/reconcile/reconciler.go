package reconcile

import (
	"context"
	"log"

	"inbox-engine/internal/models"
	"inbox-engine/internal/observability"
	"inbox-engine/internal/store"
)

// Reconciler consumes typed push events and applies idempotent merges into
// the message and conversation stores.
//
// All applications happen in the single Run loop goroutine, so event handling
// needs no internal locking beyond what the stores provide. Events are
// applied in arrival order; merges are full-field replacements keyed by id,
// so out-of-order edits are tolerated (last merge wins until the next fetch).
type Reconciler struct {
	messages      *store.MessageStore
	conversations *store.ConversationStore

	// activeConversation reports which conversation is open so unread
	// counting can skip it.
	activeConversation func() string

	// counted remembers message ids already tallied toward unread so a
	// redelivered new_message never double-counts.
	counted map[string]struct{}
}

// New builds a Reconciler over the given stores.
func New(messages *store.MessageStore, conversations *store.ConversationStore, activeConversation func() string) *Reconciler {
	return &Reconciler{
		messages:           messages,
		conversations:      conversations,
		activeConversation: activeConversation,
		counted:            make(map[string]struct{}),
	}
}

// Run drains the event channel until it closes or the context ends. It must
// be called from exactly one goroutine.
func (r *Reconciler) Run(ctx context.Context, events <-chan models.PushEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.Apply(ev)
		}
	}
}

// Apply merges one event. Safe to call repeatedly with the same event.
func (r *Reconciler) Apply(ev models.PushEvent) {
	if !ev.Valid() {
		log.Printf("reconciler dropped malformed event type=%q", ev.Type)
		observability.IncPushEvent(string(ev.Type), "invalid")
		return
	}

	m := ev.Message.WithDerivedStatus()

	switch ev.Type {
	case models.EventNewMessage:
		r.applyNewMessage(m)
		observability.IncPushEvent(string(ev.Type), "applied")

	case models.EventMessageEdited, models.EventMessageDeleted,
		models.EventReactionAdded, models.EventReactionRemoved:
		// Unknown targets are a benign race (conversation not loaded or
		// paginated out); drop silently.
		if r.messages.MergeExisting(m) {
			observability.IncPushEvent(string(ev.Type), "applied")
		} else {
			observability.IncPushEvent(string(ev.Type), "dropped")
		}
	}
}

func (r *Reconciler) applyNewMessage(m models.Message) {
	r.messages.Merge(m)
	r.conversations.UpsertFromEvent(m.ConversationID, m.CreatedAt)

	if m.ConversationID == r.activeConversation() {
		return
	}
	if _, seen := r.counted[m.ID]; seen {
		return
	}
	r.counted[m.ID] = struct{}{}
	r.conversations.IncrementUnread(m.ConversationID)
}
