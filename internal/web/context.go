package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/monisenforest/internal/core"
)

// WithRequestMetadata adds the client IP and User-Agent to ctx so check
// logs can name who uploaded the file.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithClient(ctx, core.Client{
		IP:        clientIP(r), // RemoteAddr was already rewritten by TrustedRealIP
		UserAgent: r.Header.Get("User-Agent"),
	})
}
