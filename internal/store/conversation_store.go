package store

import (
	"sort"
	"sync"
	"time"

	"inbox-engine/internal/models"
	"inbox-engine/internal/observability"
)

// ConversationStore owns the paginated conversation list. The raw rows are
// kept as loaded; deduplication and ordering are pure derivations over them,
// so repeated Deduped calls are idempotent and never mutate the raw state.
type ConversationStore struct {
	mu      sync.RWMutex
	raw     []models.Conversation
	index   map[string]int
	hasMore bool
}

// NewConversationStore creates an empty store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{index: make(map[string]int)}
}

// MergePage upserts one fetched page and derives pagination state from
// whether the page came back full-sized.
func (s *ConversationStore) MergePage(page []models.Conversation, limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range page {
		s.mergeLocked(c)
	}
	s.hasMore = limit > 0 && len(page) >= limit
}

// Merge upserts partial conversation updates by id.
func (s *ConversationStore) Merge(updates ...models.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range updates {
		s.mergeLocked(c)
	}
}

// UpsertFromEvent records activity signalled by a push event. Unknown
// conversations get a stub row so the list reflects them until the next full
// fetch hydrates the pair and profile.
func (s *ConversationStore) UpsertFromEvent(conversationID string, lastMessageAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[conversationID]; ok {
		cur := s.raw[i].LastMessageAt
		if cur == nil || lastMessageAt.After(*cur) {
			t := lastMessageAt
			s.raw[i].LastMessageAt = &t
		}
		return
	}
	t := lastMessageAt
	s.index[conversationID] = len(s.raw)
	s.raw = append(s.raw, models.Conversation{ID: conversationID, LastMessageAt: &t})
	observability.SetConversationsHeld(len(s.raw))
}

// IncrementUnread bumps the unread counter for a conversation.
func (s *ConversationStore) IncrementUnread(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[conversationID]; ok {
		s.raw[i].UnreadCount++
	}
}

// ResetUnread clears the unread counter, used when a conversation is opened.
func (s *ConversationStore) ResetUnread(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[conversationID]; ok {
		s.raw[i].UnreadCount = 0
	}
}

// SetProfile stores lazily hydrated display info.
func (s *ConversationStore) SetProfile(conversationID, name, avatar string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[conversationID]; ok {
		s.raw[i].ParticipantName = name
		s.raw[i].ParticipantAvatar = avatar
	}
}

// Get retrieves a conversation row by id.
func (s *ConversationStore) Get(conversationID string) (models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.index[conversationID]; ok {
		return s.raw[i], true
	}
	return models.Conversation{}, false
}

// HasMore reports whether another page is expected to exist.
func (s *ConversationStore) HasMore() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasMore
}

// Len reports the raw (pre-dedup) row count, which also serves as the next
// page offset.
func (s *ConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.raw)
}

// UnreadTotal sums unread counts over the deduplicated view.
func (s *ConversationStore) UnreadTotal() int {
	total := 0
	for _, c := range s.Deduped() {
		total += c.UnreadCount
	}
	return total
}

// Deduped returns the display list: one row per participant pair (keeping the
// one with the latest activity), sorted descending by last_message_at.
func (s *ConversationStore) Deduped() []models.Conversation {
	s.mu.RLock()
	winners := make(map[string]models.Conversation)
	order := make([]string, 0, len(s.raw))
	for _, c := range s.raw {
		key := pairKey(c)
		cur, seen := winners[key]
		if !seen {
			winners[key] = c
			order = append(order, key)
			continue
		}
		if lastActivityAfter(c, cur) {
			winners[key] = c
		}
	}
	s.mu.RUnlock()

	out := make([]models.Conversation, 0, len(order))
	for _, key := range order {
		out = append(out, winners[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lastActivityAfter(out[i], out[j])
	})
	return out
}

func pairKey(c models.Conversation) string {
	// event stubs carry no pair yet; key them by id so they never collapse
	// into each other
	if c.HouseholdID == "" && c.HousehelpID == "" {
		return "id:" + c.ID
	}
	return c.PairKey()
}

// lastActivityAfter treats a missing timestamp as the earliest possible.
func lastActivityAfter(a, b models.Conversation) bool {
	if a.LastMessageAt == nil {
		return false
	}
	if b.LastMessageAt == nil {
		return true
	}
	return a.LastMessageAt.After(*b.LastMessageAt)
}

func (s *ConversationStore) mergeLocked(c models.Conversation) {
	i, ok := s.index[c.ID]
	if !ok {
		s.index[c.ID] = len(s.raw)
		s.raw = append(s.raw, c)
		observability.SetConversationsHeld(len(s.raw))
		return
	}

	old := s.raw[i]
	// partial update: keep hydrated and derived fields the update omits
	if c.ParticipantName == "" {
		c.ParticipantName = old.ParticipantName
	}
	if c.ParticipantAvatar == "" {
		c.ParticipantAvatar = old.ParticipantAvatar
	}
	if c.LastMessageAt == nil {
		c.LastMessageAt = old.LastMessageAt
	}
	if c.HouseholdID == "" {
		c.HouseholdID = old.HouseholdID
	}
	if c.HousehelpID == "" {
		c.HousehelpID = old.HousehelpID
	}
	s.raw[i] = c
}
