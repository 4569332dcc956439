package commands

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/morezero/plex-mcp-server/pkg/permission"
	"github.com/morezero/plex-mcp-server/pkg/plex"
	"github.com/morezero/plex-mcp-server/pkg/registry"
	"github.com/morezero/plex-mcp-server/pkg/response"
)

// searchTypes maps content_type onto Plex hub search types.
var searchTypes = map[string]string{
	"movie":   "movies",
	"show":    "tv",
	"episode": "tv",
	"track":   "music",
	"album":   "music",
	"artist":  "music",
}

// searchGroupOrder is the order result groups are reported in.
var searchGroupOrder = []string{"track", "album", "artist", "movie", "show", "season", "episode"}

// metadataFields maps new_* parameters onto Plex attribute names.
var metadataFields = []struct{ param, field, label string }{
	{"new_title", "title", "title"},
	{"new_summary", "summary", "summary"},
	{"new_year", "year", "year"},
	{"new_rating", "rating", "rating"},
	{"new_content_rating", "contentRating", "content rating"},
	{"new_studio", "studio", "studio"},
	{"new_tagline", "tagline", "tagline"},
	{"new_sort_title", "titleSort", "sort title"},
	{"new_original_title", "originalTitle", "original title"},
}

func mediaCommands() []registry.Command {
	return []registry.Command{
		{
			Name:        "media_search",
			Tier:        permission.Read,
			Description: "Search all libraries, grouping results by type",
			Params: []registry.Param{
				required("query", registry.TypeString, "Search text"),
				oneOf("content_type", []string{"movie", "show", "episode", "track", "album", "artist"}, "Restrict the search to one kind of media"),
				withDefault("limit", registry.TypeInteger, 50, "Maximum number of results"),
			},
			Returns: []string{"message", "count", "results"},
			Invoke:  mediaSearch,
		},
		{
			Name:        "media_get_details",
			Tier:        permission.Read,
			Description: "Detailed information about one item",
			Params:      []registry.Param{mediaIDParam, mediaTitleParam, libraryParam},
			Returns:     []string{"media"},
			Invoke:      mediaDetails,
		},
		{
			Name:        "media_get_artwork",
			Tier:        permission.Read,
			Description: "Download the poster or background of an item as base64 or into a file",
			Params: []registry.Param{
				mediaIDParam, mediaTitleParam, libraryParam,
				withDefault("art_type", registry.TypeString, "poster", "poster, art or background"),
				withDefault("save_to_file", registry.TypeBoolean, false, "Write the image to disk instead of returning it"),
				optional("output_path", registry.TypeString, "File to write when save_to_file is set"),
				withDefault("max_size", registry.TypeInteger, 0, "Scale the image to fit this many pixels; 0 keeps the original"),
			},
			Returns: []string{"media_id", "title", "art_type", "content_type", "size", "width", "height"},
			Invoke:  mediaGetArtwork,
		},
		{
			Name:        "media_list_available_artwork",
			Tier:        permission.Read,
			Description: "List poster or background candidates of an item",
			Params: []registry.Param{
				mediaIDParam, mediaTitleParam, libraryParam,
				withDefault("art_type", registry.TypeString, "poster", "poster, art or background"),
			},
			Returns: []string{"media_id", "art_type", "artwork", "count"},
			Invoke:  mediaListArtwork,
		},
		{
			Name:        "media_edit_metadata",
			Tier:        permission.Write,
			Description: "Edit fields, genres and labels of an item",
			Params: []registry.Param{
				mediaIDParam, mediaTitleParam, libraryParam,
				optional("new_title", registry.TypeString, ""),
				optional("new_summary", registry.TypeString, ""),
				optional("new_year", registry.TypeInteger, ""),
				optional("new_rating", registry.TypeNumber, ""),
				optional("new_content_rating", registry.TypeString, ""),
				optional("new_studio", registry.TypeString, ""),
				optional("new_tagline", registry.TypeString, ""),
				optional("new_sort_title", registry.TypeString, ""),
				optional("new_original_title", registry.TypeString, ""),
				optional("new_genres", registry.TypeStringList, "Replace all genres"),
				optional("add_genres", registry.TypeStringList, ""),
				optional("remove_genres", registry.TypeStringList, ""),
				optional("new_labels", registry.TypeStringList, "Replace all labels"),
				optional("add_labels", registry.TypeStringList, ""),
				optional("remove_labels", registry.TypeStringList, ""),
			},
			Returns: []string{"media_id", "title", "changes", "message"},
			Invoke:  mediaEditMetadata,
		},
		{
			Name:        "media_set_artwork",
			Tier:        permission.Write,
			Description: "Set the poster and/or background of an item from a file or URL",
			Params: []registry.Param{
				mediaIDParam, mediaTitleParam, libraryParam,
				optional("poster_path", registry.TypeString, "Local image file"),
				optional("poster_url", registry.TypeString, "Public image URL"),
				optional("background_path", registry.TypeString, "Local image file"),
				optional("background_url", registry.TypeString, "Public image URL"),
			},
			Returns: []string{"media_id", "title", "changes", "message"},
			Invoke:  mediaSetArtwork,
		},
		{
			Name:        "media_delete",
			Tier:        permission.Delete,
			Description: "Delete an item and its files from the server",
			Params:      []registry.Param{mediaIDParam, mediaTitleParam, libraryParam},
			Returns:     []string{"id", "title", "type", "message"},
			Invoke:      mediaDelete,
		},
	}
}

func mediaSearch(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	query := args.String("query")
	items, err := s.Search(ctx, query, searchTypes[args.String("content_type")], args.Int("limit"))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return response.Fields{
			"message": fmt.Sprintf("No results found for '%s'.", query),
			"count":   0,
			"results": []any{},
		}, nil
	}

	byType := make(map[string][]map[string]any)
	for _, m := range items {
		byType[m.Type] = append(byType[m.Type], summarize(m))
	}
	groups := make([]map[string]any, 0, len(byType))
	for _, typ := range searchGroupOrder {
		if found, ok := byType[typ]; ok {
			groups = append(groups, map[string]any{"type": typ, "items": found})
			delete(byType, typ)
		}
	}
	// Types outside the known order keep search ranking order.
	for _, m := range items {
		if found, ok := byType[m.Type]; ok {
			groups = append(groups, map[string]any{"type": m.Type, "items": found})
			delete(byType, m.Type)
		}
	}
	return response.Fields{
		"message": fmt.Sprintf("Found %d results for '%s'", len(items), query),
		"count":   len(items),
		"results": groups,
	}, nil
}

func mediaDetails(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	item, candidates, err := resolveMedia(ctx, s, args)
	if err != nil || candidates != nil {
		return candidates, err
	}
	// Search hits are partial; fetch the full record.
	full, err := s.Metadata(ctx, item.ID())
	if err != nil {
		return nil, err
	}
	return response.Fields{"media": details(*full)}, nil
}

func details(m plex.Metadata) map[string]any {
	out := summarize(m)
	out["summary"] = m.Summary
	out["library"] = m.LibrarySectionTitle
	out["view_count"] = m.ViewCount
	if m.Rating > 0 {
		out["rating"] = m.Rating
	}
	if m.AudienceRating > 0 {
		out["audience_rating"] = m.AudienceRating
	}
	if m.UserRating > 0 {
		out["user_rating"] = m.UserRating
	}
	if m.ContentRating != "" {
		out["content_rating"] = m.ContentRating
	}
	if m.Studio != "" {
		out["studio"] = m.Studio
	}
	if m.Tagline != "" {
		out["tagline"] = m.Tagline
	}
	if m.OriginalTitle != "" {
		out["original_title"] = m.OriginalTitle
	}
	if m.LastViewedAt > 0 {
		out["last_viewed_at"] = unixTime(m.LastViewedAt)
	}
	for key, tags := range map[string][]plex.Tag{
		"genres":      m.Genre,
		"labels":      m.Label,
		"directors":   m.Director,
		"writers":     m.Writer,
		"actors":      m.Role,
		"countries":   m.Country,
		"collections": m.Collection,
	} {
		if len(tags) > 0 {
			out[key] = plex.Tags(tags)
		}
	}
	if m.Type == "show" || m.Type == "season" {
		out["episode_count"] = m.LeafCount
		out["watched_episodes"] = m.ViewedLeafCount
	}

	files := make([]map[string]any, 0)
	for _, media := range m.Media {
		for _, part := range media.Part {
			f := map[string]any{
				"file":      part.File,
				"size":      part.Size,
				"container": part.Container,
			}
			if media.VideoResolution != "" {
				f["video_resolution"] = media.VideoResolution
				f["video_codec"] = media.VideoCodec
			}
			if media.AudioCodec != "" {
				f["audio_codec"] = media.AudioCodec
				f["audio_channels"] = media.AudioChannels
			}
			if media.Bitrate > 0 {
				f["bitrate"] = media.Bitrate
			}
			files = append(files, f)
		}
	}
	if len(files) > 0 {
		out["media_files"] = files
	}
	return out
}

func mediaGetArtwork(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	kind, err := plex.ParseArtKind(args.String("art_type"))
	if err != nil {
		return nil, registry.InvalidArgument(err.Error())
	}
	item, candidates, err := resolveMedia(ctx, s, args)
	if err != nil || candidates != nil {
		return candidates, err
	}

	path := item.Thumb
	if kind == plex.ArtBackground {
		path = item.Art
	}
	if path == "" {
		return nil, fmt.Errorf("No %s available for '%s'", kind, item.Title)
	}
	img, err := s.FetchImage(ctx, path, args.Int("max_size"))
	if err != nil {
		return nil, err
	}

	out := response.Fields{
		"media_id":     item.ID(),
		"title":        item.Title,
		"art_type":     string(kind),
		"content_type": img.ContentType,
		"size":         len(img.Data),
		"width":        img.Width,
		"height":       img.Height,
	}
	if !args.Bool("save_to_file") {
		out["data"] = base64.StdEncoding.EncodeToString(img.Data)
		return out, nil
	}

	target := args.String("output_path")
	if target == "" {
		target = filepath.Join(os.TempDir(), fmt.Sprintf("plex_%d_%s%s", item.ID(), kind, extension(img.ContentType)))
	}
	if err := os.WriteFile(target, img.Data, 0o644); err != nil {
		return nil, fmt.Errorf("Failed to save artwork: %w", err)
	}
	out["path"] = target
	return out, nil
}

func extension(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ".jpg"
}

func mediaListArtwork(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	kind, err := plex.ParseArtKind(args.String("art_type"))
	if err != nil {
		return nil, registry.InvalidArgument(err.Error())
	}
	item, candidates, err := resolveMedia(ctx, s, args)
	if err != nil || candidates != nil {
		return candidates, err
	}
	art, err := s.Artwork(ctx, item.ID(), kind)
	if err != nil {
		return nil, err
	}
	list := make([]map[string]any, 0, len(art))
	for _, a := range art {
		list = append(list, map[string]any{
			"key":       a.Key,
			"ratingKey": a.RatingKey,
			"selected":  a.Selected,
			"provider":  a.Provider,
			"thumb_url": a.Thumb,
		})
	}
	return response.Fields{
		"media_id": item.ID(),
		"title":    item.Title,
		"art_type": string(kind),
		"artwork":  list,
		"count":    len(list),
	}, nil
}

func mediaEditMetadata(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	item, candidates, err := resolveMedia(ctx, s, args)
	if err != nil || candidates != nil {
		return candidates, err
	}
	// Tag replacement needs the current tags, which search hits lack.
	full, err := s.Metadata(ctx, item.ID())
	if err != nil {
		return nil, err
	}

	edit := plex.MetadataEdit{
		Fields:     map[string]string{},
		AddTags:    map[string][]string{},
		RemoveTags: map[string][]string{},
	}
	changes := make([]string, 0)
	for _, f := range metadataFields {
		v, ok := args.Get(f.param)
		if !ok {
			continue
		}
		var text string
		switch val := v.(type) {
		case float64:
			text = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			text = fmt.Sprint(val)
		}
		edit.Fields[f.field] = text
		changes = append(changes, fmt.Sprintf("%s to '%s'", f.label, text))
	}
	changes = append(changes, tagChanges(&edit, "genre", plex.Tags(full.Genre), args, "genres")...)
	changes = append(changes, tagChanges(&edit, "label", plex.Tags(full.Label), args, "labels")...)

	if edit.Empty() {
		return response.Fields{
			"media_id": full.ID(),
			"title":    full.Title,
			"changes":  changes,
			"message":  "No changes made to the media item",
		}, nil
	}
	if err := s.EditMetadata(ctx, full, edit); err != nil {
		return nil, err
	}
	title := full.Title
	if t, ok := edit.Fields["title"]; ok {
		title = t
	}
	return response.Fields{
		"media_id": full.ID(),
		"title":    title,
		"changes":  changes,
		"message":  fmt.Sprintf("Updated '%s': %s", title, strings.Join(changes, ", ")),
	}, nil
}

// tagChanges folds new_X, add_X and remove_X into edit for one tag kind.
func tagChanges(edit *plex.MetadataEdit, kind string, current []string, args registry.Args, plural string) []string {
	var changes []string
	has := func(list []string, s string) bool {
		for _, v := range list {
			if strings.EqualFold(v, s) {
				return true
			}
		}
		return false
	}

	if args.Has("new_" + plural) {
		replacement := args.Strings("new_" + plural)
		var drop []string
		for _, c := range current {
			if !has(replacement, c) {
				drop = append(drop, c)
			}
		}
		edit.AddTags[kind] = replacement
		if len(drop) > 0 {
			edit.RemoveTags[kind] = drop
		}
		return append(changes, fmt.Sprintf("%s set to [%s]", plural, strings.Join(replacement, ", ")))
	}

	var add []string
	for _, t := range args.Strings("add_" + plural) {
		if !has(current, t) {
			add = append(add, t)
		}
	}
	if len(add) > 0 {
		// Plex replaces the tag list on edit, so keep the existing ones.
		edit.AddTags[kind] = append(append([]string{}, current...), add...)
		changes = append(changes, fmt.Sprintf("added %s [%s]", plural, strings.Join(add, ", ")))
	}
	var remove []string
	for _, t := range args.Strings("remove_" + plural) {
		if has(current, t) {
			remove = append(remove, t)
		}
	}
	if len(remove) > 0 {
		edit.RemoveTags[kind] = remove
		changes = append(changes, fmt.Sprintf("removed %s [%s]", plural, strings.Join(remove, ", ")))
	}
	return changes
}

func mediaSetArtwork(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	type source struct {
		kind       plex.ArtKind
		label      string
		path, link string
	}
	sources := []source{
		{plex.ArtPoster, "poster", args.String("poster_path"), args.String("poster_url")},
		{plex.ArtBackground, "background", args.String("background_path"), args.String("background_url")},
	}
	provided := false
	for _, src := range sources {
		if src.path != "" && src.link != "" {
			return nil, registry.InvalidArgument(fmt.Sprintf("Provide either %s_path or %s_url, not both", src.label, src.label))
		}
		provided = provided || src.path != "" || src.link != ""
	}
	if !provided {
		return nil, registry.InvalidArgument("At least one of poster_path, poster_url, background_path or background_url must be provided")
	}

	item, candidates, err := resolveMedia(ctx, s, args)
	if err != nil || candidates != nil {
		return candidates, err
	}

	changes := make([]string, 0, 2)
	for _, src := range sources {
		switch {
		case src.link != "":
			if err := s.UploadArtworkURL(ctx, item.ID(), src.kind, src.link); err != nil {
				return nil, err
			}
			changes = append(changes, src.label+" (from URL)")
		case src.path != "":
			data, err := os.ReadFile(src.path)
			if err != nil {
				return nil, fmt.Errorf("Failed to read %s file '%s': %w", src.label, src.path, err)
			}
			if err := s.UploadArtwork(ctx, item.ID(), src.kind, data); err != nil {
				return nil, err
			}
			changes = append(changes, src.label+" (from file)")
		}
	}
	return response.Fields{
		"media_id": item.ID(),
		"title":    item.Title,
		"changes":  changes,
		"message":  fmt.Sprintf("Updated artwork for '%s': %s", item.Title, strings.Join(changes, ", ")),
	}, nil
}

func mediaDelete(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	item, candidates, err := resolveMedia(ctx, s, args)
	if err != nil || candidates != nil {
		return candidates, err
	}
	if err := s.DeleteMetadata(ctx, item.ID()); err != nil {
		return nil, err
	}
	return response.Fields{
		"id":      item.ID(),
		"title":   item.Title,
		"type":    item.Type,
		"message": fmt.Sprintf("Successfully deleted '%s' (%s)", item.Title, item.Type),
	}, nil
}
