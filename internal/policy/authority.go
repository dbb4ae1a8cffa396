package policy

import (
	"sync"
	"time"

	"inbox-engine/internal/models"
	"inbox-engine/internal/observability"
)

// EditWindow bounds how long a sender may edit or delete their own message.
const EditWindow = 15 * time.Minute

// IsEditableAt reports whether the message may still be edited: sender only,
// not deleted, and within the window of its creation time.
func IsEditableAt(m models.Message, now time.Time, currentUserID string) bool {
	if m.SenderID != currentUserID {
		return false
	}
	if m.DeletedAt != nil {
		return false
	}
	return now.Sub(m.CreatedAt) <= EditWindow
}

// IsDeletableAt reuses the edit window for deletes.
func IsDeletableAt(m models.Message, now time.Time, currentUserID string) bool {
	return IsEditableAt(m, now, currentUserID)
}

// Authority bundles the window predicates with the undo grace-period
// bookkeeping for soft deletes. The grace window is purely a client
// affordance: the server-side soft delete is already authoritative when the
// delete call succeeds, so expiry just forgets the backup.
type Authority struct {
	grace time.Duration
	now   func() time.Time

	mu      sync.Mutex
	pending map[string]*pendingDelete
}

type pendingDelete struct {
	body  string
	timer *time.Timer
}

// NewAuthority builds an Authority with the given undo grace window.
func NewAuthority(grace time.Duration) *Authority {
	return &Authority{
		grace:   grace,
		now:     time.Now,
		pending: make(map[string]*pendingDelete),
	}
}

// WithClock overrides the time source, used by tests.
func (a *Authority) WithClock(now func() time.Time) *Authority {
	a.now = now
	return a
}

// IsEditable applies the window predicate at the authority's current time.
func (a *Authority) IsEditable(m models.Message, currentUserID string) bool {
	return IsEditableAt(m, a.now(), currentUserID)
}

// IsDeletable applies the window predicate at the authority's current time.
func (a *Authority) IsDeletable(m models.Message, currentUserID string) bool {
	return IsDeletableAt(m, a.now(), currentUserID)
}

// StageDelete captures the message's pre-delete body and opens the undo
// window. When the window lapses the backup is discarded and onExpire runs.
// Staging an id that is already pending restarts its window.
func (a *Authority) StageDelete(m models.Message, onExpire func(messageID string)) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if prev, ok := a.pending[m.ID]; ok {
		prev.timer.Stop()
		delete(a.pending, m.ID)
	}

	id := m.ID
	p := &pendingDelete{body: m.Body}
	p.timer = time.AfterFunc(a.grace, func() {
		if a.expire(id) {
			observability.IncUndo("expired")
			if onExpire != nil {
				onExpire(id)
			}
		}
	})
	a.pending[id] = p
	observability.SetPendingUndos(len(a.pending))
}

// Undo returns the backed-up body while the id is still inside the grace
// window. After expiry the deletion is final and ok is false.
func (a *Authority) Undo(messageID string) (body string, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.pending[messageID]
	if !ok {
		return "", false
	}
	p.timer.Stop()
	delete(a.pending, messageID)
	observability.SetPendingUndos(len(a.pending))
	observability.IncUndo("undone")
	return p.body, true
}

// CanUndo reports whether the id is still inside its grace window.
func (a *Authority) CanUndo(messageID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.pending[messageID]
	return ok
}

// PendingCount reports how many deletes are awaiting possible undo.
func (a *Authority) PendingCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Close stops all outstanding grace timers. Called on view teardown so no
// timer fires against torn-down state.
func (a *Authority) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, p := range a.pending {
		p.timer.Stop()
		delete(a.pending, id)
	}
	observability.SetPendingUndos(0)
}

func (a *Authority) expire(messageID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.pending[messageID]; !ok {
		return false
	}
	delete(a.pending, messageID)
	observability.SetPendingUndos(len(a.pending))
	return true
}
