// Package store persists chat rooms and their messages. The chat server
// depends on the Store interface; SQLite is the default backend and Badger an
// embedded alternative.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks

// ErrRoomNotFound is returned when a room id does not exist, including when
// the room was deleted after a client joined it.
var ErrRoomNotFound = errors.New("store: room not found")

// Room is a chat channel owned by a single user.
type Room struct {
	ID        int64
	OwnerID   int64
	CreatedAt time.Time
}

// Message is one persisted chat line.
type Message struct {
	ID        int64
	RoomID    int64
	AuthorID  int64
	Content   string
	CreatedAt time.Time
}

// Store is the storage port used by the chat server.
type Store interface {
	GetRoom(ctx context.Context, id int64) (Room, error)
	CreateMessage(ctx context.Context, roomID, authorID int64, content string, at time.Time) (Message, error)
	Close() error
}

const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

// Open returns the backend named by driver.
func Open(driver, dsn string, log *slog.Logger) (Store, error) {
	switch driver {
	case DriverSQLite:
		return NewSQLiteStore(dsn, log)
	case DriverBadger:
		return NewBadgerStore(dsn, log)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
}
