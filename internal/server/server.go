// Package server implements the roomchat WebSocket service: per-room group
// membership, permission-gated joins, message persistence, and event fan-out.
//
// The implementation is organized into specialized files for configuration,
// the hub (group registry), clients (connection sessions), the message
// dispatcher, the typing notifier, routing, and HTTP handlers.
package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/roomchat/internal/identity"
	"github.com/Tyrowin/roomchat/internal/store"
)

// RoomStore is the storage the chat service consumes.
type RoomStore interface {
	RoomLookup
	MessageStore
}

// Server wires the collaborators to the hub and serves chat connections.
type Server struct {
	cfg        Config
	hub        *Hub
	rooms      RoomStore
	identities identity.Provider
	frames     FrameHandler
	upgrader   websocket.Upgrader
	log        *slog.Logger
}

// New builds a Server around the given store and identity provider.
func New(cfg Config, rooms RoomStore, identities identity.Provider, log *slog.Logger) (*Server, error) {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("server: time zone %q: %w", cfg.TimeZone, err)
	}

	hub := NewHub(log)
	origins := newOriginPolicy(cfg.AllowedOrigins, log)

	return &Server{
		cfg:        cfg,
		hub:        hub,
		rooms:      rooms,
		identities: identities,
		frames: chatHandler{
			Dispatcher:     NewDispatcher(rooms, hub, cfg.StoreTimeout, loc, log),
			TypingNotifier: NewTypingNotifier(hub),
		},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
		log: log,
	}, nil
}

// Hub returns the server's group registry.
func (s *Server) Hub() *Hub {
	return s.hub
}

var _ RoomStore = (store.Store)(nil)
