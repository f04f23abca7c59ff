package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testStore is the surface both backends expose to provisioning code.
type testStore interface {
	Store
	CreateRoom(ctx context.Context, ownerID int64) (Room, error)
	DeleteRoom(ctx context.Context, id int64) error
	Messages(ctx context.Context, roomID int64) ([]Message, error)
}

func backends(t *testing.T) map[string]func(t *testing.T) testStore {
	t.Helper()
	return map[string]func(t *testing.T) testStore{
		DriverSQLite: func(t *testing.T) testStore {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "chat.db"), slog.Default())
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		DriverBadger: func(t *testing.T) testStore {
			s, err := NewBadgerStore(t.TempDir(), slog.Default())
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestGetRoom(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			s := open(t)

			room, err := s.CreateRoom(ctx, 42)
			req.NoError(err)
			req.Positive(room.ID)

			got, err := s.GetRoom(ctx, room.ID)
			req.NoError(err)
			req.Equal(room.ID, got.ID)
			req.Equal(int64(42), got.OwnerID)

			_, err = s.GetRoom(ctx, room.ID+1000)
			req.ErrorIs(err, ErrRoomNotFound)
		})
	}
}

func TestCreateMessage(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			s := open(t)

			room, err := s.CreateRoom(ctx, 1)
			req.NoError(err)

			at := time.Date(2026, 3, 4, 17, 5, 0, 0, time.UTC)
			first, err := s.CreateMessage(ctx, room.ID, 1, "Hello", at)
			req.NoError(err)
			second, err := s.CreateMessage(ctx, room.ID, 2, "Hi there", at.Add(time.Minute))
			req.NoError(err)
			req.Greater(second.ID, first.ID)

			messages, err := s.Messages(ctx, room.ID)
			req.NoError(err)
			req.Len(messages, 2)
			req.Equal("Hello", messages[0].Content)
			req.Equal(int64(1), messages[0].AuthorID)
			req.Equal(room.ID, messages[0].RoomID)
			req.True(at.Equal(messages[0].CreatedAt))
			req.Equal("Hi there", messages[1].Content)
		})
	}
}

func TestCreateMessageInMissingRoom(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			s := open(t)

			_, err := s.CreateMessage(ctx, 999, 1, "nobody home", time.Now())
			req.ErrorIs(err, ErrRoomNotFound)
		})
	}
}

func TestDeletedRoomRejectsMessages(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			s := open(t)

			room, err := s.CreateRoom(ctx, 1)
			req.NoError(err)
			_, err = s.CreateMessage(ctx, room.ID, 1, "before", time.Now())
			req.NoError(err)

			req.NoError(s.DeleteRoom(ctx, room.ID))

			_, err = s.CreateMessage(ctx, room.ID, 1, "after", time.Now())
			req.ErrorIs(err, ErrRoomNotFound)

			messages, err := s.Messages(ctx, room.ID)
			req.NoError(err)
			req.Empty(messages)
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("postgres", "ignored", slog.Default())
	require.Error(t, err)
}
