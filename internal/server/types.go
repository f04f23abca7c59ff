// Package server defines the chat wire frames and the events fanned out to
// room members.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Frame type discriminators shared by inbound frames and outbound events.
const (
	FrameMessage = "message"
	FrameTyping  = "typing"
)

// ErrMalformedFrame marks inbound data that is not a JSON object of the
// expected shape.
var ErrMalformedFrame = errors.New("malformed frame")

// InboundFrame is a decoded client frame. A frame without a type is treated
// as a chat message.
type InboundFrame struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	IsTyping bool   `json:"is_typing"`
}

// MessageEvent is sent to every room member when a message is persisted.
type MessageEvent struct {
	Type         string `json:"type"`
	Message      string `json:"message"`
	AuthorEmail  string `json:"author_email"`
	AuthorAvatar string `json:"author_avatar"`
	CreatedAt    string `json:"created_at"`
	IsStaff      bool   `json:"is_staff"`
}

// TypingEvent relays a member's typing state.
type TypingEvent struct {
	Type      string `json:"type"`
	UserEmail string `json:"user_email"`
	IsTyping  bool   `json:"is_typing"`
}

// Event is an encoded outbound frame plus the metadata recipients need to
// apply exclusion rules without decoding it again.
type Event struct {
	Type      string
	UserEmail string
	Payload   []byte
}

func decodeFrame(raw []byte) (InboundFrame, error) {
	var frame InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return InboundFrame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if frame.Type == "" {
		frame.Type = FrameMessage
	}
	return frame, nil
}

func newMessageEvent(ev MessageEvent) (Event, error) {
	ev.Type = FrameMessage
	payload, err := json.Marshal(ev)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: FrameMessage, UserEmail: ev.AuthorEmail, Payload: payload}, nil
}

func newTypingEvent(ev TypingEvent) (Event, error) {
	ev.Type = FrameTyping
	payload, err := json.Marshal(ev)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: FrameTyping, UserEmail: ev.UserEmail, Payload: payload}, nil
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
