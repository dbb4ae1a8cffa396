package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"inbox-engine/internal/api"
	"inbox-engine/internal/models"
	"inbox-engine/internal/observability"
	"inbox-engine/internal/outbox"
	"inbox-engine/internal/policy"
	"inbox-engine/internal/store"
	"inbox-engine/internal/telemetry"
	"inbox-engine/internal/view"
)

// State describes the conversation-in-view lifecycle.
type State string

const (
	StateNoConversation  State = "no_conversation_selected"
	StateLoadingMessages State = "loading_messages"
	StateReady           State = "ready"
)

var (
	ErrNoConversation     = errors.New("no conversation selected")
	ErrUnknownMessage     = errors.New("message not loaded")
	ErrEditWindowClosed   = errors.New("edit window closed")
	ErrDeleteWindowClosed = errors.New("delete window closed")
	ErrUndoExpired        = errors.New("undo window expired")
)

// Notification is a dismissible toast surfaced to the UI.
type Notification struct {
	ID    string
	Level string
	Text  string
}

// Controller wires user actions to the stores and pipelines and exposes
// read-only view state to the UI. It is the sole owner of the stores for the
// current view.
type Controller struct {
	api           api.Service
	conversations *store.ConversationStore
	messages      *store.MessageStore
	outbox        *outbox.Pipeline
	authority     *policy.Authority
	identity      models.Identity
	audit         *telemetry.AuditEmitter

	pageSize int
	toastTTL time.Duration

	mu           sync.Mutex
	state        State
	activeID     string
	loadGen      uint64
	listErr      error
	notices      []Notification
	noticeTimers map[string]*time.Timer
	closed       bool
}

// New builds a Controller around its collaborators.
func New(svc api.Service, conversations *store.ConversationStore, messages *store.MessageStore, pipeline *outbox.Pipeline, authority *policy.Authority, identity models.Identity, audit *telemetry.AuditEmitter, pageSize int, toastTTL time.Duration) *Controller {
	return &Controller{
		api:           svc,
		conversations: conversations,
		messages:      messages,
		outbox:        pipeline,
		authority:     authority,
		identity:      identity,
		audit:         audit,
		pageSize:      pageSize,
		toastTTL:      toastTTL,
		state:         StateNoConversation,
		noticeTimers:  make(map[string]*time.Timer),
	}
}

// LoadConversations fetches the first page of the inbox list. A failure here
// has no safe local fallback, so it is recorded as a persistent error state
// until a later load succeeds.
func (c *Controller) LoadConversations(ctx context.Context) error {
	return c.loadConversationPage(ctx, 0)
}

// LoadMoreConversations fetches the next page.
func (c *Controller) LoadMoreConversations(ctx context.Context) error {
	return c.loadConversationPage(ctx, c.conversations.Len())
}

func (c *Controller) loadConversationPage(ctx context.Context, offset int) error {
	page, err := c.api.ListConversations(ctx, offset, c.pageSize)
	if err != nil {
		c.mu.Lock()
		c.listErr = fmt.Errorf("load conversations: %w", err)
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.listErr = nil
	c.mu.Unlock()

	c.conversations.MergePage(page, c.pageSize)
	c.hydrateProfiles(ctx, page)
	return nil
}

// hydrateProfiles fills display names and avatars lazily. Failures are
// non-fatal; rows stay usable without them.
func (c *Controller) hydrateProfiles(ctx context.Context, page []models.Conversation) {
	for _, conv := range page {
		if conv.ParticipantName != "" {
			continue
		}
		counterpart := conv.CounterpartID(c.identity.Role)
		if counterpart == "" {
			continue
		}
		profile, err := c.api.Profile(ctx, counterpart)
		if err != nil {
			log.Printf("profile hydration failed conversation=%s: %v", conv.ID, err)
			continue
		}
		c.conversations.SetProfile(conv.ID, profile.DisplayName, profile.AvatarURL)
	}
}

// Select opens a conversation. Selecting cancels interest in any previous
// conversation's in-flight load: a late result is discarded by comparing the
// captured id and generation against the current ones before applying.
func (c *Controller) Select(ctx context.Context, conversationID string) error {
	c.mu.Lock()
	c.activeID = conversationID
	c.state = StateLoadingMessages
	c.loadGen++
	gen := c.loadGen
	c.mu.Unlock()

	msgs, err := c.api.ListMessages(ctx, conversationID, 0, c.pageSize)

	c.mu.Lock()
	if gen != c.loadGen || c.activeID != conversationID {
		c.mu.Unlock()
		observability.IncStaleLoadDropped()
		return nil
	}
	c.state = StateReady
	c.mu.Unlock()

	if err != nil {
		c.messages.Load(conversationID, nil)
		c.notify("error", "Couldn't load messages. Try again.")
		return fmt.Errorf("load messages: %w", err)
	}

	c.messages.Load(conversationID, msgs)
	c.conversations.ResetUnread(conversationID)
	return nil
}

// LoadOlder pages in older history for the active conversation.
func (c *Controller) LoadOlder(ctx context.Context) error {
	c.mu.Lock()
	if c.activeID == "" {
		c.mu.Unlock()
		return ErrNoConversation
	}
	target := c.activeID
	gen := c.loadGen
	c.state = StateLoadingMessages
	c.mu.Unlock()

	msgs, err := c.api.ListMessages(ctx, target, c.messages.Len(), c.pageSize)

	c.mu.Lock()
	if gen != c.loadGen || c.activeID != target {
		c.mu.Unlock()
		observability.IncStaleLoadDropped()
		return nil
	}
	c.state = StateReady
	c.mu.Unlock()

	if err != nil {
		c.notify("error", "Couldn't load older messages.")
		return fmt.Errorf("load older messages: %w", err)
	}

	c.messages.MergeMany(msgs)
	return nil
}

// Send dispatches a message to the conversation active right now. The target
// id is captured here, so a send finishing after the user navigated away
// still reconciles against the conversation it was written for.
func (c *Controller) Send(ctx context.Context, body, replyToID string) error {
	c.mu.Lock()
	target := c.activeID
	c.mu.Unlock()
	if target == "" {
		return ErrNoConversation
	}

	_, err := c.outbox.Send(ctx, target, body, replyToID)
	if err != nil {
		if errors.Is(err, outbox.ErrEmptyBody) {
			return err
		}
		c.notify("error", "Message failed to send.")
		c.audit.Emit(ctx, c.identity.UserID, telemetry.AuditPayload{
			Event:          "send_failed",
			ConversationID: target,
			Detail:         err.Error(),
		})
		return err
	}
	return nil
}

// Edit validates the window client-side before any network call, then merges
// the server-confirmed record.
func (c *Controller) Edit(ctx context.Context, messageID, newBody string) error {
	m, ok := c.messages.Get(messageID)
	if !ok {
		return ErrUnknownMessage
	}
	if !c.authority.IsEditable(m, c.identity.UserID) {
		return ErrEditWindowClosed
	}
	trimmed := strings.TrimSpace(newBody)
	if trimmed == "" {
		return outbox.ErrEmptyBody
	}

	updated, err := c.api.EditMessage(ctx, messageID, trimmed)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			// the message is gone server-side; a benign race, not a fault
			return nil
		}
		c.notify("error", "Couldn't save your edit.")
		return err
	}

	c.messages.Merge(updated)
	return nil
}

// Delete soft-deletes a message with a client-side undo grace window. The
// pre-delete body is backed up before the optimistic local delete.
func (c *Controller) Delete(ctx context.Context, messageID string) error {
	m, ok := c.messages.Get(messageID)
	if !ok {
		return ErrUnknownMessage
	}
	if !c.authority.IsDeletable(m, c.identity.UserID) {
		return ErrDeleteWindowClosed
	}

	c.authority.StageDelete(m, nil)

	now := time.Now()
	optimistic := m
	optimistic.Body = ""
	optimistic.DeletedAt = &now
	c.messages.Merge(optimistic)

	updated, err := c.api.DeleteMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil
		}
		// roll the optimistic delete back; nothing authoritative happened
		if body, undone := c.authority.Undo(messageID); undone {
			restored := m
			restored.Body = body
			restored.DeletedAt = nil
			c.messages.Merge(restored)
		}
		c.notify("error", "Couldn't delete the message.")
		return err
	}

	c.messages.Merge(updated)
	c.audit.Emit(ctx, c.identity.UserID, telemetry.AuditPayload{
		Event:          "message_deleted",
		ConversationID: m.ConversationID,
		MessageID:      messageID,
	})
	return nil
}

// UndoDelete restores a soft-deleted message while its grace window is open.
// After expiry the deletion is final and the server-side state stands.
func (c *Controller) UndoDelete(ctx context.Context, messageID string) error {
	body, ok := c.authority.Undo(messageID)
	if !ok {
		return ErrUndoExpired
	}

	if m, loaded := c.messages.Get(messageID); loaded {
		m.Body = body
		m.DeletedAt = nil
		c.messages.Merge(m)
	}

	c.audit.Emit(ctx, c.identity.UserID, telemetry.AuditPayload{
		Event:     "delete_undone",
		MessageID: messageID,
	})
	return nil
}

// CanUndo reports whether a message is still inside its undo grace window.
func (c *Controller) CanUndo(messageID string) bool {
	return c.authority.CanUndo(messageID)
}

// React toggles the current user's reaction. The server's returned reaction
// list is authoritative; no local reaction math is trusted once it lands.
func (c *Controller) React(ctx context.Context, messageID, emoji string) error {
	if _, ok := c.messages.Get(messageID); !ok {
		return ErrUnknownMessage
	}

	updated, err := c.api.ToggleReaction(ctx, messageID, emoji)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil
		}
		c.notify("error", "Couldn't update the reaction.")
		return err
	}

	c.messages.Merge(updated)
	return nil
}

// ResolveReply looks up the message a reply points at. A false return means
// the original is unavailable (paginated out of memory or never loaded).
func (c *Controller) ResolveReply(replyToID string) (models.Message, bool) {
	if replyToID == "" {
		return models.Message{}, false
	}
	return c.messages.Get(replyToID)
}

// Reactions aggregates a message's reactions for display.
func (c *Controller) Reactions(messageID string) []view.ReactionGroup {
	m, ok := c.messages.Get(messageID)
	if !ok {
		return nil
	}
	return view.AggregateReactions(m.Reactions, c.identity.UserID)
}

// Timeline returns the active conversation's messages in day buckets.
func (c *Controller) Timeline() []view.DayBucket {
	return view.GroupByDay(c.messages.Messages(), time.Now())
}

// Conversations returns the deduplicated, display-ready inbox list.
func (c *Controller) Conversations() []models.Conversation {
	return c.conversations.Deduped()
}

// HasMoreConversations reports whether another list page is expected.
func (c *Controller) HasMoreConversations() bool {
	return c.conversations.HasMore()
}

// UnreadTotals is the on-demand contract for the navigation badge.
func (c *Controller) UnreadTotals() int {
	return c.conversations.UnreadTotal()
}

// HireSummaryForActive fetches the hire-request banner for the open
// conversation.
func (c *Controller) HireSummaryForActive(ctx context.Context) (models.HireSummary, error) {
	c.mu.Lock()
	target := c.activeID
	c.mu.Unlock()
	if target == "" {
		return models.HireSummary{}, ErrNoConversation
	}
	return c.api.HireSummary(ctx, target)
}

// State reports the conversation-in-view state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ActiveConversationID reports which conversation is open. Also handed to the
// reconciler so unread counting can skip the active thread.
func (c *Controller) ActiveConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}

// ListError exposes the persistent conversation-list failure, if any.
func (c *Controller) ListError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listErr
}

// Notifications returns the current toast list.
func (c *Controller) Notifications() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.notices))
	copy(out, c.notices)
	return out
}

// Dismiss removes a toast and cancels its auto-dismiss timer.
func (c *Controller) Dismiss(noticeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dismissLocked(noticeID)
}

func (c *Controller) notify(level, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	id := uuid.NewString()
	c.notices = append(c.notices, Notification{ID: id, Level: level, Text: text})
	c.noticeTimers[id] = time.AfterFunc(c.toastTTL, func() {
		c.Dismiss(id)
	})
}

func (c *Controller) dismissLocked(noticeID string) {
	if t, ok := c.noticeTimers[noticeID]; ok {
		t.Stop()
		delete(c.noticeTimers, noticeID)
	}
	for i, n := range c.notices {
		if n.ID == noticeID {
			c.notices = append(c.notices[:i], c.notices[i+1:]...)
			break
		}
	}
}

// Close tears the view down: all toast and undo timers are cancelled so none
// fires against stale state.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	for id, t := range c.noticeTimers {
		t.Stop()
		delete(c.noticeTimers, id)
	}
	c.notices = nil
	c.mu.Unlock()

	c.authority.Close()
}
