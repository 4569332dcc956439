// Package dispatcher routes parsed command requests through the registry,
// the permission gate and the normalizer.
package dispatcher

import (
	"context"
	"time"

	"github.com/morezero/plex-mcp-server/pkg/permission"
	"github.com/morezero/plex-mcp-server/pkg/response"
)

// Request is the JSON envelope for commands arriving over COMMS.
type Request struct {
	ID      string             `json:"id"`
	Command string             `json:"command"`
	Args    map[string]any     `json:"args,omitempty"`
	Ctx     *InvocationContext `json:"ctx,omitempty"`
}

// Reply is the JSON envelope answering a Request. Response is the canonical
// JSON verbatim.
type Reply struct {
	ID       string            `json:"id"`
	Response response.Response `json:"response"`
}

// InvocationContext holds context from the caller.
type InvocationContext struct {
	RequestID     string `json:"requestId,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	// DeadlineMs is an absolute unix deadline in milliseconds.
	DeadlineMs int64 `json:"deadlineMs,omitempty"`
	TimeoutMs  int64 `json:"timeoutMs,omitempty"`
}

// DispatchRequest applies the envelope's deadline and dispatches it.
func (d *Dispatcher) DispatchRequest(ctx context.Context, req *Request, granted permission.Tier) *Reply {
	if req.Ctx != nil {
		var cancel context.CancelFunc
		switch {
		case req.Ctx.DeadlineMs > 0:
			ctx, cancel = context.WithDeadline(ctx, time.UnixMilli(req.Ctx.DeadlineMs))
		case req.Ctx.TimeoutMs > 0:
			ctx, cancel = context.WithTimeout(ctx, time.Duration(req.Ctx.TimeoutMs)*time.Millisecond)
		}
		if cancel != nil {
			defer cancel()
		}
	}
	if req.Command == "" {
		return &Reply{ID: req.ID, Response: response.Error("Missing command name")}
	}
	return &Reply{ID: req.ID, Response: d.Dispatch(ctx, req.Command, req.Args, granted)}
}
