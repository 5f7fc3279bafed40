package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/dailyfinance/internal/config"
	"github.com/JonMunkholm/dailyfinance/internal/core"
)

type ownerKey struct{}

// WithOwner stores the acting user in ctx.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFromContext returns the acting user resolved by APIKeyAuth.
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

// APIKeyAuth resolves the acting user for every request.
//
// A request carrying an X-API-Key that matches a configured owner:key pair
// acts as that owner. Without a key, the request acts as DefaultOwner
// unless RequireAPIKey is set, in which case it is rejected. An unknown key
// is always rejected.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	owners, err := cfg.KeyOwners()
	if err != nil {
		// Load already validated the pairs; reject everything if not.
		slog.Error("auth: invalid API_KEYS, rejecting keyed requests", "error", err)
		owners = nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				if cfg.RequireAPIKey {
					slog.Warn("auth: missing API key",
						"path", r.URL.Path,
						"method", r.Method,
						"remote_addr", r.RemoteAddr,
					)
					writeAuthError(w, core.ErrMissingAPIKey, http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), cfg.DefaultOwner)))
				return
			}

			owner, ok := ownerForKey(apiKey, owners)
			if !ok {
				slog.Warn("auth: invalid API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, core.ErrInvalidAPIKey, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}

// ownerForKey finds the owner of key. It compares against every configured
// key in constant time so the response time does not reveal which matched.
func ownerForKey(key string, owners map[string]string) (string, bool) {
	var match string
	found := 0
	for validKey, owner := range owners {
		if subtle.ConstantTimeCompare([]byte(key), []byte(validKey)) == 1 {
			match = owner
			found = 1
		}
	}
	return match, found == 1
}

func writeAuthError(w http.ResponseWriter, err error, status int) {
	msg := core.MapError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   msg.Message,
		"message": msg.Message,
		"action":  msg.Action,
		"code":    msg.Code,
	})
}
