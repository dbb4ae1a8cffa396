package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbox-engine/internal/models"
)

var created = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func ownMessage() models.Message {
	return models.Message{
		ID:        "m1",
		SenderID:  "u1",
		Body:      "original body",
		CreatedAt: created,
	}
}

func TestEditWindowBoundaries(t *testing.T) {
	m := ownMessage()

	assert.True(t, IsEditableAt(m, created.Add(14*time.Minute+59*time.Second), "u1"))
	assert.False(t, IsEditableAt(m, created.Add(15*time.Minute+1*time.Second), "u1"))
}

func TestNonSenderCanNeverEdit(t *testing.T) {
	m := ownMessage()

	assert.False(t, IsEditableAt(m, created.Add(time.Second), "u2"))
	assert.False(t, IsDeletableAt(m, created.Add(time.Second), "u2"))
}

func TestDeletedMessageIsNotEditable(t *testing.T) {
	m := ownMessage()
	deleted := created.Add(time.Minute)
	m.DeletedAt = &deleted

	assert.False(t, IsEditableAt(m, created.Add(2*time.Minute), "u1"))
}

func TestAuthorityUsesInjectedClock(t *testing.T) {
	a := NewAuthority(time.Minute).WithClock(func() time.Time {
		return created.Add(16 * time.Minute)
	})
	defer a.Close()

	assert.False(t, a.IsEditable(ownMessage(), "u1"))
	assert.False(t, a.IsDeletable(ownMessage(), "u1"))
}

func TestUndoRestoresExactBody(t *testing.T) {
	a := NewAuthority(time.Minute)
	defer a.Close()

	a.StageDelete(ownMessage(), nil)
	require.True(t, a.CanUndo("m1"))

	body, ok := a.Undo("m1")
	require.True(t, ok)
	assert.Equal(t, "original body", body)
	assert.False(t, a.CanUndo("m1"))
}

func TestUndoAfterExpiryFails(t *testing.T) {
	a := NewAuthority(10 * time.Millisecond)
	defer a.Close()

	expired := make(chan string, 1)
	a.StageDelete(ownMessage(), func(id string) { expired <- id })

	select {
	case id := <-expired:
		assert.Equal(t, "m1", id)
	case <-time.After(time.Second):
		t.Fatal("grace timer never fired")
	}

	_, ok := a.Undo("m1")
	assert.False(t, ok)
	assert.Zero(t, a.PendingCount())
}

func TestRestagingRestartsTheWindow(t *testing.T) {
	a := NewAuthority(time.Minute)
	defer a.Close()

	m := ownMessage()
	a.StageDelete(m, nil)
	m.Body = "second body"
	a.StageDelete(m, nil)

	require.Equal(t, 1, a.PendingCount())
	body, ok := a.Undo("m1")
	require.True(t, ok)
	assert.Equal(t, "second body", body)
}

func TestCloseCancelsAllTimers(t *testing.T) {
	a := NewAuthority(time.Hour)

	a.StageDelete(ownMessage(), nil)
	other := ownMessage()
	other.ID = "m2"
	a.StageDelete(other, nil)
	require.Equal(t, 2, a.PendingCount())

	a.Close()
	assert.Zero(t, a.PendingCount())
	_, ok := a.Undo("m1")
	assert.False(t, ok)
}
