// Package server orchestrates all components: Plex session provider, command
// registry, dispatcher, MCP transports, HTTP endpoints and the optional COMMS
// surface.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	comms "github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/morezero/plex-mcp-server/internal/config"
	"github.com/morezero/plex-mcp-server/pkg/commands"
	"github.com/morezero/plex-mcp-server/pkg/commsutil"
	"github.com/morezero/plex-mcp-server/pkg/dispatcher"
	"github.com/morezero/plex-mcp-server/pkg/events"
	"github.com/morezero/plex-mcp-server/pkg/permission"
	"github.com/morezero/plex-mcp-server/pkg/plex"
)

const logPrefix = "server:server"

const shutdownTimeout = 5 * time.Second

// upstream is the Plex side of the server: sessions for commands and a
// cheap identity call for health checks.
type upstream interface {
	dispatcher.SessionProvider
	Check(ctx context.Context) (*plex.Identity, error)
}

// Server is the plex-mcp-server orchestrator.
type Server struct {
	cfg      *config.Config
	tier     permission.Tier
	upstream upstream
	disp     *dispatcher.Dispatcher
	mcp      *mcp.Server
}

// New wires a Server around an already built dispatcher.
func New(cfg *config.Config, tier permission.Tier, up upstream, disp *dispatcher.Dispatcher, logger *slog.Logger) *Server {
	s := &Server{cfg: cfg, tier: tier, upstream: up, disp: disp}
	s.mcp = s.newMCPServer(logger)
	return s
}

// NewLogger builds the process logger. It writes to stderr because stdout
// carries the stdio protocol.
func NewLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
}

// logExecuted records executed events when no COMMS bus is configured.
func logExecuted(_ context.Context, evt *events.CommandExecutedEvent) error {
	slog.Debug(fmt.Sprintf("%s - executed %s (tier %s) in %dms", logPrefix, evt.Command, evt.Tier, evt.DurationMs))
	return nil
}

// Run starts the configured transports and blocks until ctx is cancelled or
// a transport fails.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := NewLogger(cfg)
	slog.SetDefault(logger)

	tier, err := cfg.Tier()
	if err != nil {
		return fmt.Errorf("%s - invalid permissions: %w", logPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Starting %s %s (transport %s, permissions %s)", logPrefix, cfg.ServiceName, commands.Version, cfg.Transport, tier))

	provider, err := plex.NewProvider(plex.ProviderOptions{
		Client: plex.ClientOptions{
			BaseURL:           cfg.PlexURL,
			Token:             cfg.PlexToken,
			TVURL:             cfg.PlexTVURL,
			ClientIdentifier:  cfg.ServiceName,
			ConnectionTimeout: cfg.ConnectionTimeout,
		},
		SessionTimeout: cfg.SessionTimeout,
		MinVersion:     cfg.PlexMinVersion,
	})
	if err != nil {
		return fmt.Errorf("%s - failed to create Plex provider: %w", logPrefix, err)
	}
	if cfg.PlexUsername != "" {
		slog.Info(fmt.Sprintf("%s - Plex account: %s", logPrefix, cfg.PlexUsername))
	}

	reg, err := commands.NewRegistry()
	if err != nil {
		return fmt.Errorf("%s - failed to build command registry: %w", logPrefix, err)
	}

	var nc *comms.Conn
	var publisher events.EventPublisher = events.NewCallbackPublisher(logExecuted)
	if cfg.COMMSURL != "" {
		nc, err = commsutil.Connect(cfg.COMMSURL, cfg.ServiceName)
		if err != nil {
			return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
		}
		defer nc.Drain()
		publisher = events.NewCommsPublisher(nc, &events.CommsPublisherOpts{Subject: cfg.COMMSEventSubject})
	}

	disp, err := dispatcher.NewDispatcher(dispatcher.Params{
		Registry:  reg,
		Sessions:  provider,
		Publisher: publisher,
		Service:   cfg.ServiceName,
		Timeout:   cfg.RequestTimeout,
	})
	if err != nil {
		return fmt.Errorf("%s - failed to create dispatcher: %w", logPrefix, err)
	}
	s := New(cfg, tier, provider, disp, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if nc != nil {
		sub, err := s.SubscribeComms(gctx, nc)
		if err != nil {
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			return sub.Unsubscribe()
		})
	}

	switch cfg.Transport {
	case config.TransportStdio:
		g.Go(func() error {
			// The session ends when the client closes stdin; take the other
			// surfaces down with it.
			defer cancel()
			err := s.mcp.Run(gctx, &mcp.StdioTransport{})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	default:
		httpServer := &http.Server{Addr: cfg.Addr(), Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
		g.Go(func() error {
			slog.Info(fmt.Sprintf("%s - HTTP server listening on %s (SSE at /sse)", logPrefix, cfg.Addr()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("%s - HTTP server error: %w", logPrefix, err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	slog.Info(fmt.Sprintf("%s - %s is ready", logPrefix, cfg.ServiceName))
	err = g.Wait()
	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return err
}
