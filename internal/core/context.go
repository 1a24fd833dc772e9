package core

import "context"

type clientKey struct{}

// Client identifies who triggered an upload. It travels with the upload
// context so the history entry can name the caller.
type Client struct {
	IP        string
	UserAgent string
}

// WithClient attaches the caller to ctx.
func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

// ClientFromContext returns the caller attached by WithClient, or the zero
// Client when there is none (CLI and terminal uploads).
func ClientFromContext(ctx context.Context) Client {
	c, _ := ctx.Value(clientKey{}).(Client)
	return c
}
