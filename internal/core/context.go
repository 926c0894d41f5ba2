package core

import "context"

type contextKey string

const ctxKeyClient contextKey = "client"

// Client identifies who submitted a file. It is attached to check logs.
type Client struct {
	IP        string
	UserAgent string
}

// ContextWithClient stores the submitting client in ctx.
func ContextWithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, ctxKeyClient, c)
}

// ClientFromContext returns the client stored in ctx, if any.
func ClientFromContext(ctx context.Context) (Client, bool) {
	c, ok := ctx.Value(ctxKeyClient).(Client)
	return c, ok
}

// checkLogFields returns the request attributes added to check logs.
func checkLogFields(ctx context.Context) []any {
	c, ok := ClientFromContext(ctx)
	if !ok {
		return nil
	}
	return []any{"client_ip", c.IP, "user_agent", c.UserAgent}
}
