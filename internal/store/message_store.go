package store

import (
	"sort"
	"sync"

	"inbox-engine/internal/models"
	"inbox-engine/internal/observability"
)

// MessageStore owns the ordered message list for the currently open
// conversation. Visible order is always ascending created_at with arrival
// order breaking ties; the order is enforced on the read path because push
// events and paginated loads can arrive in either order.
type MessageStore struct {
	mu             sync.RWMutex
	conversationID string
	entries        map[string]*entry
	nextSeq        int64
}

type entry struct {
	msg models.Message
	seq int64
}

// NewMessageStore creates an empty store.
func NewMessageStore() *MessageStore {
	return &MessageStore{entries: make(map[string]*entry)}
}

// Load resets the store for a conversation and seeds it with a fetched page.
func (s *MessageStore) Load(conversationID string, msgs []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationID = conversationID
	s.entries = make(map[string]*entry, len(msgs))
	s.nextSeq = 0
	for _, m := range msgs {
		if m.ConversationID != conversationID {
			continue
		}
		s.insertLocked(m)
	}
	observability.SetMessagesHeld(len(s.entries))
}

// ConversationID returns the conversation the store currently holds.
func (s *MessageStore) ConversationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversationID
}

// Merge upserts a message by id, replacing all fields. Status never
// regresses. Applying the same record twice leaves the store unchanged
// beyond the first application. Returns true when the message was newly
// inserted.
func (s *MessageStore) Merge(m models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergeLocked(m)
}

// MergeMany applies Merge over a batch, used by pagination.
func (s *MessageStore) MergeMany(msgs []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		s.mergeLocked(m)
	}
}

// MergeExisting merges only when the target id is already present. Events for
// messages the client no longer has are a benign race and are dropped.
func (s *MessageStore) MergeExisting(m models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[m.ID]; !ok {
		return false
	}
	return s.mergeLocked(m)
}

// Promote replaces a tentative record with its server-confirmed form. If the
// confirmed id already arrived via the push path, the tentative record is
// dropped and the confirmed one merged, so exactly one record with the server
// id remains regardless of interleaving. Reply references to the temporary id
// are rewritten as well.
func (s *MessageStore) Promote(tempID string, confirmed models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if confirmed.Status.Rank() < models.StatusSent.Rank() {
		confirmed.Status = models.StatusSent
	}

	temp, hadTemp := s.entries[tempID]
	delete(s.entries, tempID)

	if existing, ok := s.entries[confirmed.ID]; ok {
		existing.msg = withMonotonicStatus(existing.msg, confirmed)
	} else if confirmed.ConversationID == s.conversationID {
		if hadTemp {
			// keep the tentative arrival position as the ordering tiebreak
			s.entries[confirmed.ID] = &entry{msg: confirmed, seq: temp.seq}
		} else {
			s.insertLocked(confirmed)
		}
		observability.IncMerge()
	}

	for _, e := range s.entries {
		if e.msg.ReplyToID == tempID {
			e.msg.ReplyToID = confirmed.ID
		}
	}
	observability.SetMessagesHeld(len(s.entries))
}

// Drop removes a message outright. Used only for tentative records the user
// explicitly discards; confirmed deletes stay as placeholders.
func (s *MessageStore) Drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	observability.SetMessagesHeld(len(s.entries))
}

// Get retrieves a message by id in O(1).
func (s *MessageStore) Get(id string) (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return models.Message{}, false
	}
	return e.msg, true
}

// Messages returns the store contents sorted ascending by created_at, ties
// broken by arrival order.
func (s *MessageStore) Messages() []models.Message {
	s.mu.RLock()
	ordered := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		ordered = append(ordered, e)
	}
	s.mu.RUnlock()

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].msg.CreatedAt.Equal(ordered[j].msg.CreatedAt) {
			return ordered[i].seq < ordered[j].seq
		}
		return ordered[i].msg.CreatedAt.Before(ordered[j].msg.CreatedAt)
	})

	msgs := make([]models.Message, len(ordered))
	for i, e := range ordered {
		msgs[i] = e.msg
	}
	return msgs
}

// Len reports the number of messages held.
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MessageStore) mergeLocked(m models.Message) bool {
	if m.ConversationID != s.conversationID {
		return false
	}
	observability.IncMerge()
	if existing, ok := s.entries[m.ID]; ok {
		existing.msg = withMonotonicStatus(existing.msg, m)
		return false
	}
	s.insertLocked(m)
	return true
}

func (s *MessageStore) insertLocked(m models.Message) {
	s.entries[m.ID] = &entry{msg: m, seq: s.nextSeq}
	s.nextSeq++
	observability.SetMessagesHeld(len(s.entries))
}

// withMonotonicStatus applies a full-field replacement while refusing status
// regressions.
func withMonotonicStatus(old, incoming models.Message) models.Message {
	if incoming.Status.Rank() < old.Status.Rank() {
		incoming.Status = old.Status
	}
	return incoming
}
