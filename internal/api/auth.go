// Package api is the optional bearer-token guard on the preview/analyze
// HTTP surface cmd/server exposes, grounded on the teacher's
// internal/infrastructure/websocket.JWTAuth -- the same HS256
// parse-and-validate shape, adapted from a WebSocket-connection
// authenticator (userID from query param / Sec-WebSocket-Protocol) to a
// plain HTTP bearer-token middleware, since this engine's HTTP surface is
// a request/response API, not a socket upgrade.
package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing authentication token")
	ErrInvalidToken = errors.New("invalid authentication token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims is this engine's JWT payload: just a caller identifier, since the
// preview/analyze/validate surface has no per-user data of its own to scope
// access to -- it is a stateless compute endpoint, not a multi-tenant store.
type Claims struct {
	CallerID string `json:"caller_id"`
	jwt.RegisteredClaims
}

// JWTAuth validates bearer tokens against one HMAC secret, grounded on
// JWTAuth.validateToken.
type JWTAuth struct {
	secretKey string
}

// NewJWTAuth builds a JWTAuth from a shared HMAC secret.
func NewJWTAuth(secretKey string) *JWTAuth {
	return &JWTAuth{secretKey: secretKey}
}

// Authenticate extracts the bearer token from the Authorization header and
// validates it, returning the caller id on success.
func (a *JWTAuth) Authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", ErrMissingToken
	}
	return a.validateToken(strings.TrimPrefix(header, "Bearer "))
}

func (a *JWTAuth) validateToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(a.secretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	callerID := claims.CallerID
	if callerID == "" {
		callerID = claims.Subject
	}
	if callerID == "" {
		return "", ErrInvalidToken
	}
	return callerID, nil
}

// GenerateToken issues a new token for callerID, for test/ops tooling.
func (a *JWTAuth) GenerateToken(callerID string, expiresAt time.Time) (string, error) {
	claims := Claims{
		CallerID: callerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   callerID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.secretKey))
}

// NoAuth allows every request through unauthenticated, for local
// development and tests, grounded on the teacher's websocket.NoAuth.
type NoAuth struct{}

func NewNoAuth() *NoAuth { return &NoAuth{} }

func (a *NoAuth) Authenticate(r *http.Request) (string, error) { return "anonymous", nil }

// Authenticator is satisfied by both JWTAuth and NoAuth.
type Authenticator interface {
	Authenticate(r *http.Request) (callerID string, err error)
}
