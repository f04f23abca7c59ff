package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chat_rooms (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id INTEGER NOT NULL REFERENCES chat_rooms(id) ON DELETE CASCADE,
	author_id INTEGER NOT NULL,
	content TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_room_created ON chat_messages(room_id, created_at);
`

// SQLiteStore is the relational Store backend.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the database file at path and
// applies the schema.
func NewSQLiteStore(path string, log *slog.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	log.Info("SQLite store ready", "path", path)
	return &SQLiteStore{db: db, log: log}, nil
}

// sqliteDSN enables foreign keys and a busy timeout on every pooled
// connection unless the caller already passed options.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
}

// GetRoom implements Store.
func (s *SQLiteStore) GetRoom(ctx context.Context, id int64) (Room, error) {
	var room Room
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, created_at FROM chat_rooms WHERE id = ?`, id,
	).Scan(&room.ID, &room.OwnerID, &room.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Room{}, ErrRoomNotFound
	}
	if err != nil {
		return Room{}, fmt.Errorf("store: get room %d: %w", id, err)
	}
	return room, nil
}

// CreateMessage implements Store. The room check and the insert share one
// transaction so a concurrent room deletion yields ErrRoomNotFound.
func (s *SQLiteStore) CreateMessage(ctx context.Context, roomID, authorID int64, content string, at time.Time) (Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Message{}, fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM chat_rooms WHERE id = ?`, roomID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, ErrRoomNotFound
	}
	if err != nil {
		return Message{}, fmt.Errorf("store: lookup room %d: %w", roomID, err)
	}

	at = at.UTC()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO chat_messages (room_id, author_id, content, created_at) VALUES (?, ?, ?, ?)`,
		roomID, authorID, content, at,
	)
	if err != nil {
		return Message{}, fmt.Errorf("store: insert message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Message{}, fmt.Errorf("store: message id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Message{}, fmt.Errorf("store: commit: %w", err)
	}

	return Message{ID: id, RoomID: roomID, AuthorID: authorID, Content: content, CreatedAt: at}, nil
}

// CreateRoom inserts a room owned by ownerID. Room management belongs to the
// surrounding application; this exists for provisioning and tests.
func (s *SQLiteStore) CreateRoom(ctx context.Context, ownerID int64) (Room, error) {
	now := time.Now().UTC().Truncate(time.Second)
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_rooms (owner_id, created_at) VALUES (?, ?)`, ownerID, now)
	if err != nil {
		return Room{}, fmt.Errorf("store: insert room: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Room{}, fmt.Errorf("store: room id: %w", err)
	}
	return Room{ID: id, OwnerID: ownerID, CreatedAt: now}, nil
}

// DeleteRoom removes a room and, through the foreign key, its messages.
func (s *SQLiteStore) DeleteRoom(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_rooms WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete room %d: %w", id, err)
	}
	return nil
}

// Messages returns a room's messages oldest first.
func (s *SQLiteStore) Messages(ctx context.Context, roomID int64) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_id, author_id, content, created_at FROM chat_messages
		 WHERE room_id = ? ORDER BY created_at, id`, roomID)
	if err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.AuthorID, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
