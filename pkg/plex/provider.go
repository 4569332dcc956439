package plex

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/morezero/plex-mcp-server/pkg/semver"
)

const providerLogPrefix = "plex:provider"

// ProviderOptions configures a Provider.
type ProviderOptions struct {
	Client ClientOptions
	// SessionTimeout is how long a verified session is reused before the
	// provider reconnects. Zero means 30 minutes.
	SessionTimeout time.Duration
	// MinVersion is an optional constraint on the server version
	// (e.g., "1.32.0" or ">=1.30 <2").
	MinVersion string
}

// Provider owns the upstream session. It connects lazily, verifies the
// server identity, and hands out the same *Client until the session expires.
// Concurrent callers share one in-flight connect but each waits only as long
// as its own context allows.
type Provider struct {
	opts       ProviderOptions
	now        func() time.Time
	connecting singleflight.Group

	mu        sync.Mutex
	client    *Client
	expiresAt time.Time
}

// NewProvider validates opts without contacting the server.
func NewProvider(opts ProviderOptions) (*Provider, error) {
	if _, err := NewClient(opts.Client); err != nil {
		return nil, err
	}
	if opts.MinVersion != "" {
		if _, err := semver.ParseConstraint(opts.MinVersion); err != nil {
			return nil, fmt.Errorf("%s - %w", providerLogPrefix, err)
		}
	}
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = 30 * time.Minute
	}
	return &Provider{opts: opts, now: time.Now}, nil
}

// Session returns a verified client, connecting or reconnecting as needed.
func (p *Provider) Session(ctx context.Context) (*Client, error) {
	p.mu.Lock()
	if p.client != nil && p.now().Before(p.expiresAt) {
		client := p.client
		p.mu.Unlock()
		return client, nil
	}
	p.mu.Unlock()

	ch := p.connecting.DoChan("session", func() (any, error) {
		// The connect outlives the first caller; it is bounded by its own budget.
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.connectBudget())
		defer cancel()
		client, err := p.connect(cctx)

		p.mu.Lock()
		defer p.mu.Unlock()
		if err != nil {
			p.client = nil
			return nil, err
		}
		p.client = client
		p.expiresAt = p.now().Add(p.opts.SessionTimeout)
		return client, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Client), nil
	}
}

// connectBudget covers dialing, the TLS handshake and the /identity answer.
func (p *Provider) connectBudget() time.Duration {
	timeout := p.opts.Client.ConnectionTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return 3 * timeout
}

// Invalidate drops the cached session so the next call reconnects.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.client = nil
	p.mu.Unlock()
}

// Check verifies reachability with a fresh /identity call, bypassing the
// session cache. Used by health checks.
func (p *Provider) Check(ctx context.Context) (*Identity, error) {
	client, err := NewClient(p.opts.Client)
	if err != nil {
		return nil, err
	}
	return client.Identity(ctx)
}

func (p *Provider) connect(ctx context.Context) (*Client, error) {
	client, err := NewClient(p.opts.Client)
	if err != nil {
		return nil, err
	}
	id, err := client.Identity(ctx)
	if err != nil {
		return nil, &ConnectError{BaseURL: client.BaseURL(), Err: err}
	}
	if err := semver.CheckServerVersion(id.Version, p.opts.MinVersion); err != nil {
		return nil, &ConnectError{BaseURL: client.BaseURL(), Err: fmt.Errorf("%w: %v", ErrUnsupportedVersion, err)}
	}
	client.machineID = id.MachineIdentifier

	slog.Info(fmt.Sprintf("%s - Connected to Plex server %s (version %s)", providerLogPrefix, id.MachineIdentifier, id.Version))
	return client, nil
}
