package server

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypingNotifierExcludesTypist(t *testing.T) {
	req := require.New(t)
	hub := NewHub(discardLogger())
	cfg := testConfig()

	typist := newObserver(hub, 3, owner, cfg)
	typistOtherTab := newObserver(hub, 3, owner, cfg)
	peer := newObserver(hub, 3, guest, cfg)
	elsewhere := newObserver(hub, 4, staff, cfg)
	for _, c := range []*Client{typist, typistOtherTab, peer, elsewhere} {
		hub.Join(c.RoomID(), c)
	}

	n := NewTypingNotifier(hub)
	n.HandleTyping(typist, true)
	n.HandleTyping(typist, false)

	req.Empty(queued(typist))
	req.Empty(queued(typistOtherTab))
	req.Empty(queued(elsewhere))

	frames := queued(peer)
	req.Len(frames, 2)
	req.Equal(TypingEvent{Type: FrameTyping, UserEmail: owner.Email, IsTyping: true}, decodeJSON[TypingEvent](t, frames[0]))
	req.Equal(TypingEvent{Type: FrameTyping, UserEmail: owner.Email, IsTyping: false}, decodeJSON[TypingEvent](t, frames[1]))

	req.Equal(4, hub.Connections())
}
