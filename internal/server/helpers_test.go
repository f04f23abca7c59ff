package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/identity"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	cfg := NewConfig()
	cfg.JWTSecret = testSecret
	return cfg
}

var (
	owner = identity.Principal{ID: 1, Email: "owner@example.com", AvatarURL: "/medias/avatars/owner.png"}
	guest = identity.Principal{ID: 2, Email: "guest@example.com"}
	staff = identity.Principal{ID: 3, Email: "staff@example.com", IsStaff: true}
)

// newObserver returns a socketless client bound to roomID; its queue is read
// directly instead of through a write pump.
func newObserver(hub *Hub, roomID int64, p identity.Principal, cfg Config) *Client {
	return NewClient(nil, hub, Session{RoomID: roomID, Principal: p, Addr: "test"}, cfg, nil)
}

func queued(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				return out
			}
			out = append(out, payload)
		default:
			return out
		}
	}
}

func decodeJSON[T any](t *testing.T, payload []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(payload, &v))
	return v
}

func mustTypingEvent(t *testing.T, email string, isTyping bool) Event {
	t.Helper()
	ev, err := newTypingEvent(TypingEvent{UserEmail: email, IsTyping: isTyping})
	require.NoError(t, err)
	return ev
}

func mustMessageEvent(t *testing.T, author identity.Principal, text string) Event {
	t.Helper()
	ev, err := newMessageEvent(MessageEvent{Message: text, AuthorEmail: author.Email})
	require.NoError(t, err)
	return ev
}
