package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/morezero/plex-mcp-server/pkg/events"
	"github.com/morezero/plex-mcp-server/pkg/permission"
	"github.com/morezero/plex-mcp-server/pkg/plex"
	"github.com/morezero/plex-mcp-server/pkg/registry"
	"github.com/morezero/plex-mcp-server/pkg/response"
)

const logPrefix = "dispatcher:dispatch"

// DefaultService is the service name stamped on published events.
const DefaultService = "plex-mcp-server"

// SessionProvider hands out the current upstream session. Implementations
// refresh expired sessions on their own.
type SessionProvider interface {
	Session(ctx context.Context) (*plex.Client, error)
}

// invalidator is implemented by providers that can drop a stale session.
type invalidator interface {
	Invalidate()
}

// Params configures a Dispatcher.
type Params struct {
	Registry  *registry.Registry
	Sessions  SessionProvider
	Publisher events.EventPublisher
	// Service names this process in published events.
	Service string
	// Timeout bounds a single invocation. Zero means no bound beyond the
	// caller's context.
	Timeout time.Duration
}

// Dispatcher runs the per-request pipeline: lookup, validation, permission
// gate, invocation and normalization. It holds no per-request state and is
// safe for concurrent use.
type Dispatcher struct {
	registry  *registry.Registry
	sessions  SessionProvider
	publisher events.EventPublisher
	service   string
	timeout   time.Duration
	now       func() time.Time
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(p Params) (*Dispatcher, error) {
	if p.Registry == nil {
		return nil, fmt.Errorf("%s - registry is required", logPrefix)
	}
	if p.Sessions == nil {
		return nil, fmt.Errorf("%s - session provider is required", logPrefix)
	}
	if p.Publisher == nil {
		p.Publisher = &events.NoOpPublisher{}
	}
	if p.Service == "" {
		p.Service = DefaultService
	}
	return &Dispatcher{
		registry:  p.Registry,
		sessions:  p.Sessions,
		publisher: p.Publisher,
		service:   p.Service,
		timeout:   p.Timeout,
		now:       time.Now,
	}, nil
}

// Registry returns the catalog the dispatcher serves.
func (d *Dispatcher) Registry() *registry.Registry {
	return d.registry
}

// Dispatch resolves name, validates args, checks granted against the
// command's tier, invokes it and normalizes the outcome. Every path ends in
// exactly one canonical response.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any, granted permission.Tier) response.Response {
	cmd, err := d.registry.Lookup(name)
	if err != nil {
		slog.Debug(fmt.Sprintf("%s - command=%s outcome=unknown", logPrefix, name))
		return commandErrorResponse(err)
	}

	validated, err := registry.Validate(cmd.Params, args)
	if err != nil {
		slog.Debug(fmt.Sprintf("%s - command=%s outcome=invalid_argument", logPrefix, name))
		return commandErrorResponse(err)
	}

	if err := permission.Check(cmd.Tier, granted); err != nil {
		slog.Debug(fmt.Sprintf("%s - command=%s tier=%s granted=%s outcome=denied", logPrefix, name, cmd.Tier, granted))
		return response.Error(err.Error())
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	session, err := d.sessions.Session(ctx)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - command=%s session unavailable: %v", logPrefix, name, err))
		if msg, ok := contextMessage(ctx, err, name); ok {
			return response.Error(msg)
		}
		return response.Errorf("Failed to connect to Plex server: %s", plex.Reason(err))
	}

	start := d.now()
	raw, err := invoke(ctx, cmd, session, validated)
	elapsed := d.now().Sub(start)
	if err != nil {
		slog.Debug(fmt.Sprintf("%s - command=%s tier=%s outcome=error duration=%s", logPrefix, name, cmd.Tier, elapsed))
		if msg, ok := contextMessage(ctx, err, name); ok {
			return response.Error(msg)
		}
		d.dropStaleSession(name, err)
		return failureResponse(err)
	}

	resp := normalize(cmd, raw)
	if resp.Kind() == response.KindAmbiguous {
		slog.Debug(fmt.Sprintf("%s - command=%s outcome=ambiguous candidates=%d duration=%s", logPrefix, name, len(resp.Matches()), elapsed))
	} else {
		slog.Debug(fmt.Sprintf("%s - command=%s tier=%s outcome=%s duration=%s", logPrefix, name, cmd.Tier, resp.Kind(), elapsed))
	}

	if cmd.Tier >= permission.Write && resp.Kind() == response.KindSuccess {
		d.publishExecuted(ctx, cmd, validated, resp, elapsed)
	}
	return resp
}

// invoke runs the command strategy, turning panics into errors.
func invoke(ctx context.Context, cmd *registry.Command, session *plex.Client, args registry.Args) (raw any, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error(fmt.Sprintf("%s - command=%s panicked: %v", logPrefix, cmd.Name, r))
			raw = nil
			err = &panicError{command: cmd.Name}
		}
	}()
	return cmd.Invoke(ctx, session, args)
}

// normalize classifies raw under the same panic guard as invoke.
func normalize(cmd *registry.Command, raw any) (resp response.Response) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error(fmt.Sprintf("%s - command=%s result could not be normalized: %v", logPrefix, cmd.Name, r))
			resp = response.Error((&panicError{command: cmd.Name}).Error())
		}
	}()
	return response.Normalize(raw)
}

// dropStaleSession forgets the cached session after failures that a fresh
// connect may cure: a rejected token or a broken connection.
func (d *Dispatcher) dropStaleSession(name string, err error) {
	if !errors.Is(err, plex.ErrUnauthorized) && !plex.IsTransportError(err) {
		return
	}
	if inv, ok := d.sessions.(invalidator); ok {
		slog.Info(fmt.Sprintf("%s - command=%s dropping Plex session: %s", logPrefix, name, plex.Reason(err)))
		inv.Invalidate()
	}
}

type panicError struct {
	command string
}

func (e *panicError) Error() string {
	return fmt.Sprintf("Command '%s' failed: unexpected internal error", e.command)
}

func (d *Dispatcher) publishExecuted(ctx context.Context, cmd *registry.Command, args registry.Args, resp response.Response, elapsed time.Duration) {
	fields := make([]string, 0)
	for k := range args.Map() {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	evt := &events.CommandExecutedEvent{
		ID:         uuid.NewString(),
		Command:    cmd.Name,
		Tier:       cmd.Tier.String(),
		Service:    d.service,
		Fields:     fields,
		DurationMs: elapsed.Milliseconds(),
		Timestamp:  d.now().UTC().Format(time.RFC3339),
	}
	if v, ok := resp.Field("id"); ok {
		if id, ok := v.(int); ok {
			evt.ItemID = &id
		}
	}
	if v, ok := resp.Field("title"); ok {
		if title, ok := v.(string); ok {
			evt.Title = title
		}
	}

	// Publishing must not outlive a cancelled request nor change its outcome.
	if err := d.publisher.PublishExecuted(context.WithoutCancel(ctx), evt); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to publish command.executed for %s: %v", logPrefix, cmd.Name, err))
	}
}

// contextMessage reports the cancelled/timed-out message when the request
// context ended before the upstream call completed.
func contextMessage(ctx context.Context, err error, name string) (string, bool) {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Sprintf("Command '%s' timed out", name), true
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return fmt.Sprintf("Command '%s' was cancelled", name), true
	}
	return "", false
}

func commandErrorResponse(err error) response.Response {
	var cmdErr *registry.CommandError
	if errors.As(err, &cmdErr) {
		return response.Error(cmdErr.Message)
	}
	return response.Error(err.Error())
}

func failureResponse(err error) response.Response {
	var cmdErr *registry.CommandError
	if errors.As(err, &cmdErr) {
		return response.Error(cmdErr.Message)
	}
	var denied *permission.DeniedError
	if errors.As(err, &denied) {
		return response.Error(denied.Error())
	}
	var pe *panicError
	if errors.As(err, &pe) {
		return response.Error(pe.Error())
	}
	return response.Error(upstreamMessage(err))
}

// upstreamMessage turns a Plex failure into a message that is safe to show.
func upstreamMessage(err error) string {
	switch {
	case errors.Is(err, plex.ErrUnauthorized):
		return "Plex rejected the configured token"
	case errors.Is(err, plex.ErrNotFound):
		var pe *plex.Error
		if errors.As(err, &pe) && pe.Op != "" {
			return fmt.Sprintf("%s: not found", pe.Op)
		}
		return "Requested item was not found"
	}
	if plex.IsTransportError(err) {
		return "Failed to connect to Plex server: " + plex.Reason(err)
	}
	return err.Error()
}
