package models

// EventType enumerates the push events delivered by the realtime channel.
type EventType string

const (
	EventNewMessage      EventType = "new_message"
	EventMessageEdited   EventType = "message_edited"
	EventMessageDeleted  EventType = "message_deleted"
	EventReactionAdded   EventType = "reaction_added"
	EventReactionRemoved EventType = "reaction_removed"
)

// PushEvent is a decoded realtime frame. Every kind carries a full message
// payload sufficient to merge by id.
type PushEvent struct {
	Type    EventType `json:"type"`
	Message *Message  `json:"message,omitempty"`
}

// Valid reports whether the event is one of the known kinds and carries the
// payload the reconciler needs.
func (e PushEvent) Valid() bool {
	switch e.Type {
	case EventNewMessage, EventMessageEdited, EventMessageDeleted,
		EventReactionAdded, EventReactionRemoved:
		return e.Message != nil
	default:
		return false
	}
}
