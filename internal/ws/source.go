package ws

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"inbox-engine/internal/models"
	"inbox-engine/internal/observability"
)

// EventSource is the realtime collaborator boundary: it holds one websocket
// connection, decodes frames into typed push events and feeds them onto a
// channel the reconciler drains. Reconnect policy lives with the caller; a
// broken read loop just returns.
type EventSource struct {
	url    string
	token  string
	events chan models.PushEvent
}

// NewEventSource builds an EventSource for the given push endpoint.
func NewEventSource(url, token string) *EventSource {
	return &EventSource{
		url:    url,
		token:  token,
		events: make(chan models.PushEvent, 64),
	}
}

// Events is the typed event stream. It closes when Run returns.
func (s *EventSource) Events() <-chan models.PushEvent {
	return s.events
}

// Run dials the endpoint and decodes frames until the connection drops or
// the context ends. A normal closure returns nil.
func (s *EventSource) Run(ctx context.Context) error {
	defer close(s.events)

	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, header)
	if err != nil {
		return fmt.Errorf("dial event source: %w", err)
	}
	observability.SetWSConnected(true)
	defer observability.SetWSConnected(false)

	// unblock the read loop when the context ends
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()
	defer conn.Close()

	for {
		var ev models.PushEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSFrame("closed")
				return nil
			}
			observability.IncWSFrame("error")
			return fmt.Errorf("read event frame: %w", err)
		}

		if !ev.Valid() {
			log.Printf("event source skipped malformed frame type=%q", ev.Type)
			observability.IncWSFrame("malformed")
			continue
		}

		observability.IncWSFrame("event")
		select {
		case s.events <- ev:
		case <-ctx.Done():
			return nil
		}
	}
}
