package commands

import (
	"context"

	"github.com/morezero/plex-mcp-server/pkg/permission"
	"github.com/morezero/plex-mcp-server/pkg/plex"
	"github.com/morezero/plex-mcp-server/pkg/registry"
	"github.com/morezero/plex-mcp-server/pkg/response"
)

func serverCommands() []registry.Command {
	return []registry.Command{
		{
			Name:        "server_get_info",
			Tier:        permission.Read,
			Description: "Name, version and platform of the Plex server",
			Returns:     []string{"name", "version", "platform", "machine_identifier"},
			Invoke:      serverInfo,
		},
		{
			Name:        "sessions_get_active",
			Tier:        permission.Read,
			Description: "What is playing right now, and for whom",
			Returns:     []string{"sessions", "count"},
			Invoke:      activeSessions,
		},
	}
}

func serverInfo(ctx context.Context, s *plex.Client, _ registry.Args) (any, error) {
	info, err := s.ServerInfo(ctx)
	if err != nil {
		return nil, err
	}
	return response.Fields{
		"name":               info.FriendlyName,
		"version":            info.Version,
		"platform":           info.Platform,
		"platform_version":   info.PlatformVersion,
		"machine_identifier": info.MachineIdentifier,
		"my_plex":            info.MyPlex,
		"my_plex_username":   info.MyPlexUsername,
		"plex_pass":          info.MyPlexSubscription,
		"active_transcodes":  info.TranscoderActiveVideoSessions,
		"updated_at":         unixTime(info.UpdatedAt),
	}, nil
}

func activeSessions(ctx context.Context, s *plex.Client, _ registry.Args) (any, error) {
	items, err := s.ActiveSessions(ctx)
	if err != nil {
		return nil, err
	}
	sessions := make([]map[string]any, 0, len(items))
	for _, m := range items {
		entry := summarize(m)
		entry["progress"] = progress(m.ViewOffset, m.Duration)
		if m.User != nil {
			entry["user"] = m.User.Title
		}
		if m.Player != nil {
			entry["player"] = m.Player.Title
			entry["platform"] = m.Player.Platform
			entry["state"] = m.Player.State
			entry["local"] = m.Player.Local
		}
		entry["transcoding"] = m.TranscodeSession != nil
		if m.TranscodeSession != nil {
			entry["video_decision"] = m.TranscodeSession.VideoDecision
			entry["audio_decision"] = m.TranscodeSession.AudioDecision
		}
		if m.Session != nil {
			entry["bandwidth"] = m.Session.Bandwidth
			entry["location"] = m.Session.Location
		}
		sessions = append(sessions, entry)
	}
	return response.Fields{"sessions": sessions, "count": len(sessions)}, nil
}
