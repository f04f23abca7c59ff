// Package server exposes HTTP handlers: the per-room WebSocket endpoint and
// the health check.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
)

// ChatHandler runs the Connecting state of a session. The room id comes from
// the path, the principal from the identity provider. Any denial answers 403
// before the upgrade, so no group membership is ever created for it. Once
// upgraded, the client is attached to the hub, which runs its pumps.
func (s *Server) ChatHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	session, ok := s.admit(r, ps)
	if !ok {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, s.hub, session, s.cfg, s.frames)
	if err := s.hub.Attach(client); err != nil {
		client.log.Warn("Rejecting connection", "error", err)
		client.closeConnection()
	}
}

// admit resolves the room and principal and applies access control.
func (s *Server) admit(r *http.Request, ps httprouter.Params) (Session, bool) {
	log := s.log.With("remote_addr", r.RemoteAddr, "state", StateClosed.String())

	roomID, err := strconv.ParseInt(ps.ByName("room_id"), 10, 64)
	if err != nil || roomID <= 0 {
		log.Info("Connection refused: bad room id", "room_id", ps.ByName("room_id"))
		return Session{}, false
	}

	principal, err := s.identities.Resolve(r)
	if err != nil {
		log.Info("Connection refused: unauthenticated", "room_id", roomID, "error", err)
		return Session{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.StoreTimeout)
	defer cancel()
	if !CanAccess(ctx, s.rooms, principal, roomID) {
		log.Info("Connection refused: access denied", "room_id", roomID, "user_id", principal.ID)
		return Session{}, false
	}

	return Session{RoomID: roomID, Principal: principal, Addr: r.RemoteAddr}, true
}

// HealthHandler reports that the server is up along with live room and
// connection counts.
func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "roomchat server is running! rooms=%d connections=%d",
		s.hub.Rooms(), s.hub.Connections())
}
