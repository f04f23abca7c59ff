// Package server wires HTTP handlers into an httprouter.Router via routing
// helpers.
package server

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// Routes returns the HTTP handler with every application route registered.
func (s *Server) Routes() http.Handler {
	router := httprouter.New()
	router.GET("/", s.HealthHandler)
	router.GET("/health", s.HealthHandler)
	router.GET("/ws/chat/:room_id", s.ChatHandler)
	router.HandleMethodNotAllowed = true
	return router
}
