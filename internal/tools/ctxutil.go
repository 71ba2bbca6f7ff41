package tools

import "context"

// noCtx is used for best-effort operations (screenshots) that piggy-back on
// a tool call but aren't part of its cancellation-sensitive critical path.
func noCtx() context.Context { return context.Background() }
