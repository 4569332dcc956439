package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/plex-mcp-server/pkg/commsutil"
	"github.com/morezero/plex-mcp-server/pkg/dispatcher"
	"github.com/morezero/plex-mcp-server/pkg/response"
)

const commsLogPrefix = "server:comms"

// SubscribeComms serves command requests on COMMS_SUBJECT. Instances share a
// queue group named after the service, so each request is answered once.
func (s *Server) SubscribeComms(ctx context.Context, nc *comms.Conn) (*comms.Subscription, error) {
	subject := s.cfg.COMMSSubject
	sub, err := nc.QueueSubscribe(subject, s.cfg.ServiceName, func(msg *comms.Msg) {
		go s.handleCommsMsg(ctx, msg)
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to subscribe to %s: %w", commsLogPrefix, subject, err)
	}
	slog.Info(fmt.Sprintf("%s - Subscribed to %s (queue %s)", commsLogPrefix, subject, s.cfg.ServiceName))
	return sub, nil
}

func (s *Server) handleCommsMsg(ctx context.Context, msg *comms.Msg) {
	var req dispatcher.Request
	var reply *dispatcher.Reply
	if err := commsutil.DecodePayload(msg.Data, &req); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to decode request: %v", commsLogPrefix, err))
		reply = &dispatcher.Reply{ID: uuid.NewString(), Response: response.Error("Failed to decode request")}
	} else {
		if req.ID == "" {
			req.ID = uuid.NewString()
		}
		slog.Debug(fmt.Sprintf("%s - Request %s: %s", commsLogPrefix, req.ID, req.Command))
		reply = s.disp.DispatchRequest(ctx, &req, s.tier)
	}

	if msg.Reply == "" {
		return
	}
	data, err := commsutil.EncodePayload(reply)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode reply %s: %v", commsLogPrefix, reply.ID, err))
		return
	}
	if err := msg.Respond(data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to respond to %s: %v", commsLogPrefix, reply.ID, err))
	}
}
