package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smilemakc/ta-engine/internal/api"

	"github.com/stretchr/testify/require"
)

func TestJWTAuthRoundTrip(t *testing.T) {
	auth := api.NewJWTAuth("test-secret")
	token, err := auth.GenerateToken("caller-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/preview", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	callerID, err := auth.Authenticate(req)
	require.NoError(t, err)
	require.Equal(t, "caller-1", callerID)
}

func TestJWTAuthMissingHeader(t *testing.T) {
	auth := api.NewJWTAuth("test-secret")
	req := httptest.NewRequest(http.MethodGet, "/preview", nil)

	_, err := auth.Authenticate(req)
	require.ErrorIs(t, err, api.ErrMissingToken)
}

func TestJWTAuthExpiredToken(t *testing.T) {
	auth := api.NewJWTAuth("test-secret")
	token, err := auth.GenerateToken("caller-1", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/preview", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	_, err = auth.Authenticate(req)
	require.ErrorIs(t, err, api.ErrExpiredToken)
}

func TestJWTAuthWrongSecret(t *testing.T) {
	issuer := api.NewJWTAuth("secret-a")
	token, err := issuer.GenerateToken("caller-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	verifier := api.NewJWTAuth("secret-b")
	req := httptest.NewRequest(http.MethodGet, "/preview", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	_, err = verifier.Authenticate(req)
	require.ErrorIs(t, err, api.ErrInvalidToken)
}

func TestRequireAuthRejectsUnauthenticated(t *testing.T) {
	auth := api.NewJWTAuth("test-secret")
	handlerCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	})

	h := api.RequireAuth(auth, next)
	req := httptest.NewRequest(http.MethodGet, "/preview", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, handlerCalled)
}

func TestRequireAuthAllowsAuthenticated(t *testing.T) {
	auth := api.NewJWTAuth("test-secret")
	token, err := auth.GenerateToken("caller-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	var seenCallerID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := api.CallerID(r.Context())
		seenCallerID = id
		w.WriteHeader(http.StatusOK)
	})

	h := api.RequireAuth(auth, next)
	req := httptest.NewRequest(http.MethodGet, "/preview", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "caller-1", seenCallerID)
}

func TestNoAuthAlwaysSucceeds(t *testing.T) {
	auth := api.NewNoAuth()
	req := httptest.NewRequest(http.MethodGet, "/preview", nil)
	callerID, err := auth.Authenticate(req)
	require.NoError(t, err)
	require.Equal(t, "anonymous", callerID)
}
