package server

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu       sync.Mutex
	messages []string
	typing   []bool
}

func (h *recordingHandler) HandleMessage(_ context.Context, _ *Client, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, text)
}

func (h *recordingHandler) HandleTyping(_ *Client, isTyping bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.typing = append(h.typing, isTyping)
}

func TestClientStateTransitions(t *testing.T) {
	req := require.New(t)
	hub := NewHub(discardLogger())
	c := newObserver(hub, 1, owner, testConfig())

	req.Equal(StateConnecting, c.State())
	req.True(c.markJoined())
	req.Equal(StateJoined, c.State())

	c.close()
	c.close()
	req.Equal(StateClosed, c.State())
	req.False(c.markJoined())
	req.False(c.deliver(mustMessageEvent(t, guest, "late")))
}

func TestStateString(t *testing.T) {
	req := require.New(t)
	req.Equal("connecting", StateConnecting.String())
	req.Equal("joined", StateJoined.String())
	req.Equal("closed", StateClosed.String())
	req.Equal("unknown", State(42).String())
}

// TestClientDeliverSuppressesOwnTyping verifies receive-side exclusion: a
// typing event is dropped by every connection of the typist, while chat
// messages always reach the author.
func TestClientDeliverSuppressesOwnTyping(t *testing.T) {
	req := require.New(t)
	hub := NewHub(discardLogger())
	c := newObserver(hub, 1, owner, testConfig())
	req.True(c.markJoined())

	req.True(c.deliver(mustTypingEvent(t, owner.Email, true)))
	req.Empty(queued(c))

	other := mustTypingEvent(t, guest.Email, true)
	req.True(c.deliver(other))
	req.Equal([][]byte{other.Payload}, queued(c))

	own := mustMessageEvent(t, owner, "mine")
	req.True(c.deliver(own))
	req.Equal([][]byte{own.Payload}, queued(c))
}

func TestClientDeliverFullQueue(t *testing.T) {
	req := require.New(t)
	cfg := testConfig()
	cfg.SendQueueSize = 1
	c := newObserver(NewHub(discardLogger()), 1, owner, cfg)
	req.True(c.markJoined())

	req.True(c.deliver(mustMessageEvent(t, guest, "one")))
	req.False(c.deliver(mustMessageEvent(t, guest, "two")))
}

func TestClientProcessFrame(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		messages []string
		typing   []bool
	}{
		{name: "message", raw: `{"type":"message","message":"hi"}`, messages: []string{"hi"}},
		{name: "missing type is a message", raw: `{"message":"hello"}`, messages: []string{"hello"}},
		{name: "typing start", raw: `{"type":"typing","is_typing":true}`, typing: []bool{true}},
		{name: "typing stop", raw: `{"type":"typing","is_typing":false}`, typing: []bool{false}},
		{name: "unknown type", raw: `{"type":"reaction","message":"+1"}`},
		{name: "malformed json", raw: `{"type":`},
		{name: "not an object", raw: `"hello"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			handler := &recordingHandler{}
			hub := NewHub(discardLogger())
			c := NewClient(nil, hub, Session{RoomID: 1, Principal: owner}, testConfig(), handler)

			c.processFrame([]byte(tt.raw))

			req.Equal(tt.messages, handler.messages)
			req.Equal(tt.typing, handler.typing)
		})
	}
}

func TestClientRateLimit(t *testing.T) {
	req := require.New(t)
	cfg := testConfig()
	cfg.RateLimitBurst = 2
	c := newObserver(NewHub(discardLogger()), 1, owner, cfg)

	req.True(c.checkRateLimit())
	req.True(c.checkRateLimit())
	req.False(c.checkRateLimit())
}
