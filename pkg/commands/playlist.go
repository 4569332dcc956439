package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/morezero/plex-mcp-server/pkg/permission"
	"github.com/morezero/plex-mcp-server/pkg/plex"
	"github.com/morezero/plex-mcp-server/pkg/registry"
	"github.com/morezero/plex-mcp-server/pkg/response"
)

func playlistCommands() []registry.Command {
	return []registry.Command{
		{
			Name:        "playlist_list",
			Tier:        permission.Read,
			Description: "List playlists, optionally by library or content type",
			Params: []registry.Param{
				libraryParam,
				oneOf("content_type", []string{"audio", "video", "photo"}, "Playlist type"),
			},
			Returns: []string{"playlists", "count"},
			Invoke:  playlistList,
		},
		{
			Name:        "playlist_get_contents",
			Tier:        permission.Read,
			Description: "List the items of a playlist",
			Params:      []registry.Param{playlistIDParam, playlistTitleParam},
			Returns:     []string{"playlist", "items", "count"},
			Invoke:      playlistContents,
		},
		{
			Name:        "playlist_create",
			Tier:        permission.Write,
			Description: "Create a playlist from library items",
			Params: []registry.Param{
				required("playlist_title", registry.TypeString, "Title of the new playlist"),
				itemTitlesParam,
				itemIDsParam,
				libraryParam,
				optional("summary", registry.TypeString, "Playlist description"),
			},
			Returns: []string{"id", "title", "type", "item_count", "message"},
			Invoke:  playlistCreate,
		},
		{
			Name:        "playlist_edit",
			Tier:        permission.Write,
			Description: "Rename a playlist or change its description",
			Params: []registry.Param{
				playlistIDParam, playlistTitleParam,
				optional("new_title", registry.TypeString, ""),
				optional("new_summary", registry.TypeString, ""),
			},
			Returns: []string{"id", "title", "changes", "message"},
			Invoke:  playlistEdit,
		},
		{
			Name:        "playlist_upload_poster",
			Tier:        permission.Write,
			Description: "Set a playlist poster from a URL or a local file",
			Params: []registry.Param{
				playlistIDParam, playlistTitleParam,
				optional("poster_url", registry.TypeString, "Public image URL"),
				optional("poster_filepath", registry.TypeString, "Local image file"),
			},
			Returns: []string{"id", "title", "message"},
			Invoke:  playlistUploadPoster,
		},
		{
			Name:        "playlist_add_to",
			Tier:        permission.Write,
			Description: "Add library items to a playlist",
			Params:      []registry.Param{playlistIDParam, playlistTitleParam, itemTitlesParam, itemIDsParam, libraryParam},
			Returns:     []string{"id", "title", "added", "message"},
			Invoke:      playlistAddTo,
		},
		{
			Name:        "playlist_remove_from",
			Tier:        permission.Delete,
			Description: "Remove items from a playlist by title",
			Params: []registry.Param{
				playlistIDParam, playlistTitleParam,
				required("item_titles", registry.TypeStringList, "Titles of the playlist entries to remove"),
			},
			Returns: []string{"id", "title", "removed", "not_found", "message"},
			Invoke:  playlistRemoveFrom,
		},
		{
			Name:        "playlist_delete",
			Tier:        permission.Delete,
			Description: "Delete a playlist",
			Params:      []registry.Param{playlistIDParam, playlistTitleParam},
			Returns:     []string{"id", "title", "message"},
			Invoke:      playlistDelete,
		},
	}
}

func playlistView(pl plex.Metadata) map[string]any {
	return map[string]any{
		"id":         pl.ID(),
		"ratingKey":  pl.RatingKey,
		"key":        pl.Key,
		"title":      pl.Title,
		"type":       pl.PlaylistType,
		"summary":    pl.Summary,
		"smart":      pl.Smart,
		"duration":   pl.Duration,
		"item_count": pl.LeafCount,
		"updated_at": unixTime(pl.UpdatedAt),
	}
}

func playlistList(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	sectionKey, err := optionalSection(ctx, s, args)
	if err != nil {
		return nil, err
	}
	playlists, err := s.Playlists(ctx, args.String("content_type"), sectionKey)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(playlists))
	for _, pl := range playlists {
		out = append(out, playlistView(pl))
	}
	return response.Fields{"playlists": out, "count": len(out)}, nil
}

func playlistContents(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	pl, candidates, err := resolvePlaylist(ctx, s, args)
	if err != nil || candidates != nil {
		return candidates, err
	}
	items, err := s.PlaylistItems(ctx, pl.ID())
	if err != nil {
		return nil, err
	}
	return response.Fields{
		"playlist": playlistView(*pl),
		"items":    summarizeAll(items),
		"count":    len(items),
	}, nil
}

// playlistType derives audio, photo or video from the first item.
func playlistType(items []plex.Metadata) string {
	switch items[0].Type {
	case "track", "album", "artist":
		return "audio"
	case "photo":
		return "photo"
	}
	return "video"
}

func playlistCreate(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	titles, ids, err := itemsArg(args)
	if err != nil {
		return nil, err
	}
	sectionKey, err := optionalSection(ctx, s, args)
	if err != nil {
		return nil, err
	}
	items, err := resolveItems(ctx, s, sectionKey, titles, ids)
	if err != nil {
		return nil, err
	}

	title := args.String("playlist_title")
	typ := playlistType(items)
	pl, err := s.CreatePlaylist(ctx, title, typ, ratingKeys(items))
	if err != nil {
		return nil, err
	}
	if summary := args.String("summary"); summary != "" {
		if err := s.EditPlaylist(ctx, pl.ID(), nil, &summary); err != nil {
			return nil, err
		}
	}
	return response.Fields{
		"id":         pl.ID(),
		"title":      pl.Title,
		"type":       typ,
		"item_count": len(items),
		"message":    fmt.Sprintf("Playlist '%s' created with %d items", pl.Title, len(items)),
	}, nil
}

func playlistEdit(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	var title, summary *string
	if args.Has("new_title") {
		t := args.String("new_title")
		title = &t
	}
	if args.Has("new_summary") {
		sm := args.String("new_summary")
		summary = &sm
	}
	if title == nil && summary == nil {
		return nil, registry.InvalidArgument("At least one of new_title or new_summary must be provided")
	}
	pl, candidates, err := resolvePlaylist(ctx, s, args)
	if err != nil || candidates != nil {
		return candidates, err
	}
	if err := s.EditPlaylist(ctx, pl.ID(), title, summary); err != nil {
		return nil, err
	}

	changes := make([]string, 0, 2)
	name := pl.Title
	if title != nil {
		changes = append(changes, fmt.Sprintf("title to '%s'", *title))
		name = *title
	}
	if summary != nil {
		changes = append(changes, "summary")
	}
	return response.Fields{
		"id":      pl.ID(),
		"title":   name,
		"changes": changes,
		"message": fmt.Sprintf("Updated playlist '%s': %s", name, strings.Join(changes, ", ")),
	}, nil
}

func playlistUploadPoster(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	link, file := args.String("poster_url"), args.String("poster_filepath")
	if (link == "") == (file == "") {
		return nil, registry.InvalidArgument("Exactly one of poster_url or poster_filepath must be provided")
	}
	pl, candidates, err := resolvePlaylist(ctx, s, args)
	if err != nil || candidates != nil {
		return candidates, err
	}
	source := "URL"
	if link != "" {
		err = s.UploadArtworkURL(ctx, pl.ID(), plex.ArtPoster, link)
	} else {
		source = "file"
		data, readErr := os.ReadFile(file)
		if readErr != nil {
			return nil, fmt.Errorf("Failed to read poster file '%s': %w", file, readErr)
		}
		err = s.UploadArtwork(ctx, pl.ID(), plex.ArtPoster, data)
	}
	if err != nil {
		return nil, err
	}
	return response.Fields{
		"id":      pl.ID(),
		"title":   pl.Title,
		"message": fmt.Sprintf("Poster for playlist '%s' uploaded from %s", pl.Title, source),
	}, nil
}

func playlistAddTo(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	titles, ids, err := itemsArg(args)
	if err != nil {
		return nil, err
	}
	pl, candidates, err := resolvePlaylist(ctx, s, args)
	if err != nil || candidates != nil {
		return candidates, err
	}
	sectionKey, err := optionalSection(ctx, s, args)
	if err != nil {
		return nil, err
	}
	items, err := resolveItems(ctx, s, sectionKey, titles, ids)
	if err != nil {
		return nil, err
	}
	if err := s.AddToPlaylist(ctx, pl.ID(), ratingKeys(items)); err != nil {
		return nil, err
	}
	added := make([]string, 0, len(items))
	for _, m := range items {
		added = append(added, m.Title)
	}
	return response.Fields{
		"id":      pl.ID(),
		"title":   pl.Title,
		"added":   added,
		"message": fmt.Sprintf("Added %d items to playlist '%s'", len(items), pl.Title),
	}, nil
}

func playlistRemoveFrom(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	pl, candidates, err := resolvePlaylist(ctx, s, args)
	if err != nil || candidates != nil {
		return candidates, err
	}
	entries, err := s.PlaylistItems(ctx, pl.ID())
	if err != nil {
		return nil, err
	}

	removed := make([]string, 0)
	notFound := make([]string, 0)
	for _, title := range args.Strings("item_titles") {
		matched := false
		for _, e := range entries {
			if !strings.EqualFold(e.Title, title) {
				continue
			}
			if err := s.RemoveFromPlaylist(ctx, pl.ID(), e.PlaylistItemID); err != nil {
				return nil, err
			}
			removed = append(removed, e.Title)
			matched = true
		}
		if !matched {
			notFound = append(notFound, title)
		}
	}
	if len(removed) == 0 {
		return nil, fmt.Errorf("None of the requested items were found in playlist '%s'", pl.Title)
	}
	return response.Fields{
		"id":        pl.ID(),
		"title":     pl.Title,
		"removed":   removed,
		"not_found": notFound,
		"message":   fmt.Sprintf("Removed %d items from playlist '%s'", len(removed), pl.Title),
	}, nil
}

func playlistDelete(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	pl, candidates, err := resolvePlaylist(ctx, s, args)
	if err != nil || candidates != nil {
		return candidates, err
	}
	if err := s.DeletePlaylist(ctx, pl.ID()); err != nil {
		return nil, err
	}
	return response.Fields{
		"id":      pl.ID(),
		"title":   pl.Title,
		"message": fmt.Sprintf("Playlist '%s' deleted successfully", pl.Title),
	}, nil
}
