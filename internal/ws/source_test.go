package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbox-engine/internal/models"
)

var upgrader = websocket.Upgrader{}

type pushServer struct {
	srv     *httptest.Server
	gotAuth chan string
}

// newPushServer upgrades the connection, writes the given raw frames, then
// performs a normal websocket closure.
func newPushServer(t *testing.T, frames ...string) *pushServer {
	t.Helper()
	ps := &pushServer{gotAuth: make(chan string, 1)}
	ps.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.gotAuth <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for _, frame := range frames {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
		}
		deadline := time.Now().Add(time.Second)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		// wait for the client's close response
		conn.SetReadDeadline(deadline)
		conn.ReadMessage()
	}))
	return ps
}

func (ps *pushServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ps.srv.URL, "http")
}

func TestRunDeliversDecodedEvents(t *testing.T) {
	ps := newPushServer(t,
		`{"type":"new_message","message":{"id":"m1","conversation_id":"c1","body":"hi"}}`,
	)
	defer ps.srv.Close()

	source := NewEventSource(ps.wsURL(), "test-token")
	done := make(chan error, 1)
	go func() { done <- source.Run(context.Background()) }()

	ev, ok := <-source.Events()
	require.True(t, ok)
	assert.Equal(t, models.EventNewMessage, ev.Type)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "m1", ev.Message.ID)

	assert.Equal(t, "Bearer test-token", <-ps.gotAuth)

	require.NoError(t, <-done)
	_, open := <-source.Events()
	assert.False(t, open, "events channel must close when Run returns")
}

func TestRunSkipsMalformedFrames(t *testing.T) {
	ps := newPushServer(t,
		`{"type":"new_message"}`,
		`{"type":"mystery","message":{"id":"x"}}`,
		`{"type":"message_edited","message":{"id":"m2","conversation_id":"c1"}}`,
	)
	defer ps.srv.Close()

	source := NewEventSource(ps.wsURL(), "")
	done := make(chan error, 1)
	go func() { done <- source.Run(context.Background()) }()

	var delivered []models.PushEvent
	for ev := range source.Events() {
		delivered = append(delivered, ev)
	}
	require.NoError(t, <-done)

	require.Len(t, delivered, 1)
	assert.Equal(t, models.EventMessageEdited, delivered[0].Type)
}

func TestRunReturnsNilOnContextCancel(t *testing.T) {
	hold := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		<-hold
	}))
	defer srv.Close()
	defer close(hold)

	source := NewEventSource("ws"+strings.TrimPrefix(srv.URL, "http"), "")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- source.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestRunReportsDialFailure(t *testing.T) {
	source := NewEventSource("ws://127.0.0.1:1/push", "")
	err := source.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial event source")
}
