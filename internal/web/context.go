package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/badgemerge/internal/core"
)

// withRequestMetadata tags ctx with the client IP and the API trigger for
// run logging and history.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, r.RemoteAddr) // already reduced by TrustedRealIP
	return core.ContextWithTrigger(ctx, core.TriggerAPI)
}
