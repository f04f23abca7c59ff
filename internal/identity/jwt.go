package identity

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload describing a principal. The subject holds the
// numeric user id.
type Claims struct {
	Email     string `json:"email"`
	IsStaff   bool   `json:"is_staff"`
	AvatarURL string `json:"avatar_url,omitempty"`
	jwt.RegisteredClaims
}

// JWTProvider resolves principals from HS256-signed tokens.
type JWTProvider struct {
	secret   []byte
	issuer   string
	parser   *jwt.Parser
	validate *validator.Validate
}

// NewJWTProvider returns a provider that signs and verifies tokens with
// secret and requires the given issuer.
func NewJWTProvider(secret []byte, issuer string) *JWTProvider {
	return &JWTProvider{
		secret: secret,
		issuer: issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		),
		validate: validator.New(),
	}
}

// Issue signs a token for principal that expires after ttl.
func (p *JWTProvider) Issue(principal Principal, ttl time.Duration) (string, error) {
	if err := p.validate.Struct(principal); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}

	now := time.Now()
	claims := Claims{
		Email:     principal.Email,
		IsStaff:   principal.IsStaff,
		AvatarURL: principal.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(principal.ID, 10),
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

// Resolve implements Provider.
func (p *JWTProvider) Resolve(r *http.Request) (Principal, error) {
	raw := tokenFromRequest(r)
	if raw == "" {
		return Principal{}, ErrUnauthenticated
	}
	return p.Parse(raw)
}

// Parse verifies raw and converts its claims into a Principal.
func (p *JWTProvider) Parse(raw string) (Principal, error) {
	claims := &Claims{}
	_, err := p.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	})
	if err != nil {
		return Principal{}, fmt.Errorf("identity: parse token: %w", err)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: subject %q is not a user id", ErrInvalidClaims, claims.Subject)
	}

	principal := Principal{
		ID:        id,
		Email:     claims.Email,
		IsStaff:   claims.IsStaff,
		AvatarURL: claims.AvatarURL,
	}
	if err := p.validate.Struct(principal); err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}
	return principal, nil
}
