package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// Values are encoded with CBOR core deterministic encoding. Timestamps are
// stored as Unix nanoseconds to keep full precision.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("store: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("store: CBOR decoder initialization failed: " + err.Error())
	}
}

type roomRecord struct {
	ID        int64 `cbor:"id"`
	OwnerID   int64 `cbor:"owner_id"`
	CreatedAt int64 `cbor:"created_at"`
}

type messageRecord struct {
	ID        int64  `cbor:"id"`
	RoomID    int64  `cbor:"room_id"`
	AuthorID  int64  `cbor:"author_id"`
	Content   string `cbor:"content"`
	CreatedAt int64  `cbor:"created_at"`
}

// BadgerStore is an embedded key-value Store backend. Keys:
//
//	room:{id}                          -> roomRecord
//	msg:{room}:{unix_nano}:{uuid}      -> messageRecord
//
// Ids are zero padded to 19 digits so prefix scans return messages in
// chronological order; the uuid separates messages sharing a nanosecond.
type BadgerStore struct {
	db      *badger.DB
	roomSeq *badger.Sequence
	msgSeq  *badger.Sequence
	log     *slog.Logger
}

// NewBadgerStore opens the Badger directory at dir.
func NewBadgerStore(dir string, log *slog.Logger) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}

	roomSeq, err := db.GetSequence([]byte("seq:room"), 16)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: room sequence: %w", err)
	}
	msgSeq, err := db.GetSequence([]byte("seq:msg"), 256)
	if err != nil {
		_ = roomSeq.Release()
		_ = db.Close()
		return nil, fmt.Errorf("store: message sequence: %w", err)
	}

	log.Info("Badger store ready", "dir", dir)
	return &BadgerStore{db: db, roomSeq: roomSeq, msgSeq: msgSeq, log: log}, nil
}

func roomKey(id int64) []byte {
	return []byte(fmt.Sprintf("room:%019d", id))
}

func messagePrefix(roomID int64) []byte {
	return []byte(fmt.Sprintf("msg:%019d:", roomID))
}

func messageKey(roomID int64, at time.Time) []byte {
	return []byte(fmt.Sprintf("msg:%019d:%019d:%s", roomID, at.UnixNano(), uuid.New()))
}

// nextID draws from seq; Badger sequences start at zero, ids start at one.
func nextID(seq *badger.Sequence) (int64, error) {
	n, err := seq.Next()
	if err != nil {
		return 0, err
	}
	return int64(n) + 1, nil
}

// GetRoom implements Store.
func (s *BadgerStore) GetRoom(ctx context.Context, id int64) (Room, error) {
	if err := ctx.Err(); err != nil {
		return Room{}, err
	}

	var record roomRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return decMode.Unmarshal(val, &record)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Room{}, ErrRoomNotFound
	}
	if err != nil {
		return Room{}, fmt.Errorf("store: get room %d: %w", id, err)
	}
	return Room{ID: record.ID, OwnerID: record.OwnerID, CreatedAt: time.Unix(0, record.CreatedAt).UTC()}, nil
}

// CreateMessage implements Store.
func (s *BadgerStore) CreateMessage(ctx context.Context, roomID, authorID int64, content string, at time.Time) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	id, err := nextID(s.msgSeq)
	if err != nil {
		return Message{}, fmt.Errorf("store: message id: %w", err)
	}
	at = at.UTC()
	value, err := encMode.Marshal(messageRecord{
		ID:        id,
		RoomID:    roomID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: at.UnixNano(),
	})
	if err != nil {
		return Message{}, fmt.Errorf("store: encode message: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(roomKey(roomID)); err != nil {
			return err
		}
		return txn.Set(messageKey(roomID, at), value)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Message{}, ErrRoomNotFound
	}
	if err != nil {
		return Message{}, fmt.Errorf("store: put message: %w", err)
	}

	return Message{ID: id, RoomID: roomID, AuthorID: authorID, Content: content, CreatedAt: at}, nil
}

// CreateRoom stores a new room owned by ownerID.
func (s *BadgerStore) CreateRoom(_ context.Context, ownerID int64) (Room, error) {
	id, err := nextID(s.roomSeq)
	if err != nil {
		return Room{}, fmt.Errorf("store: room id: %w", err)
	}
	now := time.Now().UTC()
	value, err := encMode.Marshal(roomRecord{ID: id, OwnerID: ownerID, CreatedAt: now.UnixNano()})
	if err != nil {
		return Room{}, fmt.Errorf("store: encode room: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(roomKey(id), value)
	}); err != nil {
		return Room{}, fmt.Errorf("store: put room: %w", err)
	}
	return Room{ID: id, OwnerID: ownerID, CreatedAt: now}, nil
}

// DeleteRoom removes a room and every message stored under it.
func (s *BadgerStore) DeleteRoom(_ context.Context, id int64) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(roomKey(id)); err != nil {
			return err
		}

		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		prefix := messagePrefix(id)
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: delete room %d: %w", id, err)
	}
	return nil
}

// Messages returns a room's messages oldest first.
func (s *BadgerStore) Messages(_ context.Context, roomID int64) ([]Message, error) {
	var messages []Message
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := messagePrefix(roomID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record messageRecord
			if err := it.Item().Value(func(val []byte) error {
				return decMode.Unmarshal(val, &record)
			}); err != nil {
				return err
			}
			messages = append(messages, Message{
				ID:        record.ID,
				RoomID:    record.RoomID,
				AuthorID:  record.AuthorID,
				Content:   record.Content,
				CreatedAt: time.Unix(0, record.CreatedAt).UTC(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	return messages, nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return errors.Join(s.msgSeq.Release(), s.roomSeq.Release(), s.db.Close())
}
