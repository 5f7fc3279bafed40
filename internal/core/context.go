package core

import "context"

// Client identifies who triggered an operation. It is copied onto activity
// log entries.
type Client struct {
	IPAddress string
	UserAgent string
}

type clientKey struct{}

// ContextWithClient attaches the caller's address and User-Agent to ctx.
func ContextWithClient(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey{}, Client{IPAddress: ip, UserAgent: userAgent})
}

// ClientFromContext returns the client stored by ContextWithClient. CLI
// callers have none, so the zero Client is returned.
func ClientFromContext(ctx context.Context) Client {
	c, _ := ctx.Value(clientKey{}).(Client)
	return c
}
