// Package identity resolves the authenticated principal behind an incoming
// WebSocket handshake. The chat core only depends on the Provider interface;
// the JWT adapter in this package is one way of satisfying it.
package identity

import (
	"errors"
	"net/http"
	"strings"
)

//go:generate go run go.uber.org/mock/mockgen -source=identity.go -destination=../mocks/mock_identity.go -package=mocks

var (
	// ErrUnauthenticated is returned when a request carries no credentials.
	ErrUnauthenticated = errors.New("identity: no credentials presented")
	// ErrInvalidClaims is returned when a token verifies but does not describe
	// a usable principal.
	ErrInvalidClaims = errors.New("identity: invalid principal claims")
)

// Principal is the read-only view of an authenticated user.
type Principal struct {
	ID        int64  `validate:"gt=0"`
	Email     string `validate:"required,email"`
	IsStaff   bool
	AvatarURL string
}

// Provider resolves the principal that opened a connection.
type Provider interface {
	Resolve(r *http.Request) (Principal, error)
}

const (
	// TokenQueryParam carries the token for browser clients, which cannot set
	// headers on a WebSocket handshake.
	TokenQueryParam = "token"
	// TokenCookie is checked last.
	TokenCookie = "roomchat_token"
)

// tokenFromRequest looks for a bearer token in the Authorization header, the
// token query parameter and the session cookie, in that order.
func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if token := r.URL.Query().Get(TokenQueryParam); token != "" {
		return token
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}
