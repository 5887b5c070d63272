package api

import (
	"context"
	"encoding/json"
	"net/http"
)

type callerIDKey struct{}

// CallerID extracts the caller id Authenticate attached to the request
// context, for handlers that want to log or scope by caller.
func CallerID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(callerIDKey{}).(string)
	return v, ok
}

// RequireAuth wraps next with an authentication guard: requests that fail
// Authenticate get a 401 JSON error body instead of reaching next. Grounded
// on the teacher's websocket upgrade handler calling Authenticator.Authenticate
// before admitting a connection, adapted from "reject the socket" to "reject
// the request" since the preview/analyze surface is plain HTTP.
func RequireAuth(auth Authenticator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callerID, err := auth.Authenticate(r)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), callerIDKey{}, callerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeAuthError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
