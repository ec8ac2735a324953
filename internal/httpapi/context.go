package httpapi

import (
	"context"
	"sync"
)

// serverBaseCtx is canceled on shutdown; open websocket sessions end with it.
// Defaults to Background if not set.
var (
	baseMu        sync.RWMutex
	serverBaseCtx = context.Background()
)

// SetBaseContext sets the process-level base context used by handlers.
func SetBaseContext(ctx context.Context) {
	baseMu.Lock()
	defer baseMu.Unlock()
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

func baseContext() context.Context {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return serverBaseCtx
}

// joinContexts returns a context that is canceled when either a or b is done.
// The returned cancel func must be called when the handler ends.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
