package server

// TypingNotifier relays typing indicators. Nothing is persisted, and the
// typist's own connections drop the event on receipt.
type TypingNotifier struct {
	hub *Hub
}

// NewTypingNotifier returns a notifier broadcasting through hub.
func NewTypingNotifier(hub *Hub) *TypingNotifier {
	return &TypingNotifier{hub: hub}
}

// HandleTyping broadcasts client's typing state to its room.
func (n *TypingNotifier) HandleTyping(client *Client, isTyping bool) {
	ev, err := newTypingEvent(TypingEvent{
		UserEmail: client.Principal().Email,
		IsTyping:  isTyping,
	})
	if err != nil {
		client.log.Error("Failed to encode typing event", "error", err)
		return
	}
	n.hub.Broadcast(client.RoomID(), ev)
}

// chatHandler routes decoded frames to the dispatcher and the notifier.
type chatHandler struct {
	*Dispatcher
	*TypingNotifier
}
