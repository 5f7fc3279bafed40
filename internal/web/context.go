package web

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/JonMunkholm/dailyfinance/internal/core"
	"github.com/JonMunkholm/dailyfinance/internal/logging"
	mw "github.com/JonMunkholm/dailyfinance/internal/web/middleware"
)

// actor returns the acting user resolved by the auth middleware.
func actor(r *http.Request) string {
	return mw.OwnerFromContext(r.Context())
}

// requestLogger returns the request-scoped logger with the acting user.
func requestLogger(r *http.Request) *slog.Logger {
	return logging.WithFields(r.Context(), "owner", actor(r))
}

// clientContext stores the client address and User-Agent for the activity
// log. It runs after TrustedRealIP so proxied requests report the real client.
func clientContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithClient(r.Context(), extractHost(r.RemoteAddr), r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractHost strips the port from a host:port address.
func extractHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
