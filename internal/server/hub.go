// Package server coordinates per-room group membership, event fan-out, and
// connection cleanup for roomchat via the Hub type.
package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
)

// ErrHubClosed is returned when a client is attached after Shutdown.
var ErrHubClosed = errors.New("hub is shut down")

// Hub is the group registry: it maps room ids to the set of live clients
// subscribed to them and fans events out to those sets. Membership changes
// are serialized by a single mutex; delivery happens outside the lock.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[int64]map[*Client]struct{}
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger
}

// NewHub creates an empty Hub ready to accept clients.
func NewHub(log *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		rooms:  make(map[int64]map[*Client]struct{}),
		ctx:    ctx,
		cancel: cancel,
		log:    log,
	}
}

// Join registers client under roomID. Joining twice is a no-op, and a client
// that has already been closed is never registered.
func (h *Hub) Join(roomID int64, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joinLocked(roomID, client)
}

func (h *Hub) joinLocked(roomID int64, client *Client) {
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[roomID] = members
	}
	if _, dup := members[client]; dup {
		return
	}
	if !client.markJoined() {
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
		return
	}

	members[client] = struct{}{}
	client.log.Info("Client joined room", "members", len(members))
}

// Leave removes client from roomID and closes its outbound queue. It is safe
// to call any number of times.
func (h *Hub) Leave(roomID int64, client *Client) {
	h.remove(roomID, client)
}

func (h *Hub) remove(roomID int64, client *Client) bool {
	h.mu.Lock()
	members := h.rooms[roomID]
	_, ok := members[client]
	if ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	remaining := len(members)
	h.mu.Unlock()

	if ok {
		client.close()
		client.log.Info("Client left room", "members", remaining)
	}
	return ok
}

// Broadcast delivers ev to every client registered under roomID at the time
// of the call. Recipients that cannot take the event are removed without
// affecting the others.
func (h *Hub) Broadcast(roomID int64, ev Event) {
	recipients := h.snapshot(roomID)

	var unreachable []*Client
	for _, client := range recipients {
		if !client.deliver(ev) {
			unreachable = append(unreachable, client)
		}
	}

	for _, client := range unreachable {
		if h.remove(roomID, client) {
			client.log.Warn("Removed unreachable client", "event", ev.Type)
		}
	}

	h.log.Debug("Broadcast event", "room_id", roomID, "type", ev.Type,
		"recipients", len(recipients), "unreachable", len(unreachable))
}

func (h *Hub) snapshot(roomID int64) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lo.Keys(h.rooms[roomID])
}

// Members reports how many clients are registered under roomID.
func (h *Hub) Members(roomID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Rooms reports how many rooms currently have at least one member.
func (h *Hub) Rooms() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// Connections reports the total number of registered clients.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lo.SumBy(lo.Values(h.rooms), func(members map[*Client]struct{}) int {
		return len(members)
	})
}

// Attach joins client to its room and starts its read and write pumps.
func (h *Hub) Attach(client *Client) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		client.close()
		return ErrHubClosed
	}
	h.joinLocked(client.roomID, client)
	h.wg.Add(2)
	h.mu.Unlock()

	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
	return nil
}

// shutdownClients closes every live connection; the read pumps then run
// their normal cleanup.
func (h *Hub) shutdownClients() int {
	h.mu.Lock()
	h.closed = true
	clients := lo.FlatMap(lo.Values(h.rooms), func(members map[*Client]struct{}, _ int) []*Client {
		return lo.Keys(members)
	})
	h.mu.Unlock()

	for _, client := range clients {
		client.closeConnection()
	}
	return len(clients)
}

// Shutdown closes all client connections and waits for their goroutines to
// finish, or until timeout elapses.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("Initiating hub shutdown")

	h.cancel()
	closed := h.shutdownClients()
	h.log.Info("Closed client connections", "count", closed)

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		h.log.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
