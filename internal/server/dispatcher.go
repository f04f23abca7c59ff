package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Tyrowin/roomchat/internal/store"
)

// MessageStore is the part of the store the dispatcher writes to.
type MessageStore interface {
	CreateMessage(ctx context.Context, roomID, authorID int64, content string, at time.Time) (store.Message, error)
}

// Dispatcher persists chat messages and fans them out to the sender's room.
// Storage I/O runs on the sending client's goroutine, so a slow write only
// delays that client's next frame.
type Dispatcher struct {
	messages MessageStore
	hub      *Hub
	timeout  time.Duration
	loc      *time.Location
	now      func() time.Time
	log      *slog.Logger
}

// NewDispatcher returns a Dispatcher that bounds each store call by timeout
// and renders timestamps in loc.
func NewDispatcher(messages MessageStore, hub *Hub, timeout time.Duration, loc *time.Location, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		messages: messages,
		hub:      hub,
		timeout:  timeout,
		loc:      loc,
		now:      time.Now,
		log:      log,
	}
}

// HandleMessage trims text, persists it and broadcasts the result. Blank
// messages, deleted rooms and store failures all drop the message without
// telling the sender.
func (d *Dispatcher) HandleMessage(ctx context.Context, client *Client, text string) {
	content := strings.TrimSpace(text)
	if content == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	author := client.Principal()
	msg, err := d.messages.CreateMessage(ctx, client.RoomID(), author.ID, content, d.now())
	switch {
	case errors.Is(err, store.ErrRoomNotFound):
		client.log.Info("Dropping message for deleted room")
		return
	case err != nil:
		client.log.Error("Failed to persist message", "error", err)
		return
	}

	ev, err := newMessageEvent(MessageEvent{
		Message:      msg.Content,
		AuthorEmail:  author.Email,
		AuthorAvatar: author.AvatarURL,
		CreatedAt:    msg.CreatedAt.In(d.loc).Format("15:04"),
		IsStaff:      author.IsStaff,
	})
	if err != nil {
		client.log.Error("Failed to encode message event", "error", err)
		return
	}

	d.hub.Broadcast(client.RoomID(), ev)
}
