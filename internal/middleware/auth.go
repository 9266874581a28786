package middleware

import (
	"context"
	"encoding/json"
	"net/http"
)

type contextKey string

// StageContextKey carries the stage resolved from a device token.
const StageContextKey contextKey = "stage"

// PrintKey guards the print dispatch API with a shared key. When key is
// empty the check is disabled; otherwise a missing or mismatched
// X-Print-Key yields 403.
func PrintKey(key string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if key != "" {
			got := r.Header.Get("X-Print-Key")
			if got == "" || got != key {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]string{"detail": "Forbidden"})
				return
			}
		}
		next(w, r)
	}
}

// DeviceToken resolves X-Device-Token to the stage the device is bound to
// and stores it on the request context. Unknown tokens get 401.
func DeviceToken(tokens map[string]string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stage, ok := tokens[r.Header.Get("X-Device-Token")]
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized device"})
			return
		}
		ctx := context.WithValue(r.Context(), StageContextKey, stage)
		next(w, r.WithContext(ctx))
	}
}

// StageFromContext returns the stage a DeviceToken middleware resolved.
func StageFromContext(ctx context.Context) (string, bool) {
	stage, ok := ctx.Value(StageContextKey).(string)
	return stage, ok
}
