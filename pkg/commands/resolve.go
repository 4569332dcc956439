package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/morezero/plex-mcp-server/pkg/plex"
	"github.com/morezero/plex-mcp-server/pkg/registry"
	"github.com/morezero/plex-mcp-server/pkg/response"
)

// pick narrows title-lookup results: exact case-insensitive matches win over
// partial ones. A single survivor is returned; several become candidates.
func pick(items []plex.Metadata, title string) (*plex.Metadata, []response.Match) {
	exact := make([]plex.Metadata, 0, len(items))
	for _, m := range items {
		if strings.EqualFold(m.Title, title) {
			exact = append(exact, m)
		}
	}
	if len(exact) > 0 {
		items = exact
	}
	switch len(items) {
	case 0:
		return nil, nil
	case 1:
		return &items[0], nil
	}
	matches := make([]response.Match, 0, len(items))
	for _, m := range items {
		matches = append(matches, m.Identity())
	}
	return nil, matches
}

// section resolves a library by name, failing with "Library 'X' not found".
func section(ctx context.Context, s *plex.Client, name string) (*plex.Directory, error) {
	sec, err := s.SectionByTitle(ctx, name)
	if err != nil {
		return nil, err
	}
	if sec == nil {
		return nil, fmt.Errorf("Library '%s' not found", name)
	}
	return sec, nil
}

// optionalSection resolves library_name when it was supplied.
func optionalSection(ctx context.Context, s *plex.Client, args registry.Args) (string, error) {
	name := args.String("library_name")
	if name == "" {
		return "", nil
	}
	sec, err := section(ctx, s, name)
	if err != nil {
		return "", err
	}
	return sec.Key, nil
}

// resolveMedia finds a library item by media_id or media_title (optionally
// scoped by library_name). Several title matches are returned as candidates.
func resolveMedia(ctx context.Context, s *plex.Client, args registry.Args) (*plex.Metadata, []response.Match, error) {
	if args.Has("media_id") {
		id := args.Int("media_id")
		item, err := s.Metadata(ctx, id)
		if errors.Is(err, plex.ErrNotFound) {
			return nil, nil, fmt.Errorf("Media with ID '%d' not found", id)
		}
		return item, nil, err
	}
	title := args.String("media_title")
	if title == "" {
		return nil, nil, registry.InvalidArgument("Either media_id or media_title must be provided")
	}
	sectionKey, err := optionalSection(ctx, s, args)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.FindByTitle(ctx, title, sectionKey)
	if err != nil {
		return nil, nil, err
	}
	item, candidates := pick(items, title)
	if item == nil && candidates == nil {
		return nil, nil, fmt.Errorf("No media found matching '%s'", title)
	}
	return item, candidates, nil
}

// resolvePlaylist finds a playlist by playlist_id or case-insensitive
// playlist_title.
func resolvePlaylist(ctx context.Context, s *plex.Client, args registry.Args) (*plex.Metadata, []response.Match, error) {
	if args.Has("playlist_id") {
		id := args.Int("playlist_id")
		pl, err := s.Playlist(ctx, id)
		if errors.Is(err, plex.ErrNotFound) {
			return nil, nil, fmt.Errorf("Playlist with ID '%d' not found", id)
		}
		return pl, nil, err
	}
	title := args.String("playlist_title")
	if title == "" {
		return nil, nil, registry.InvalidArgument("Either playlist_id or playlist_title must be provided")
	}
	playlists, err := s.Playlists(ctx, "", "")
	if err != nil {
		return nil, nil, err
	}
	same := make([]plex.Metadata, 0)
	for _, pl := range playlists {
		if strings.EqualFold(pl.Title, title) {
			same = append(same, pl)
		}
	}
	pl, candidates := pick(same, title)
	if pl == nil && candidates == nil {
		return nil, nil, fmt.Errorf("No playlist found with title '%s'", title)
	}
	return pl, candidates, nil
}

// resolveCollection finds a collection by collection_id or case-insensitive
// collection_title, searching library_name or every library.
func resolveCollection(ctx context.Context, s *plex.Client, args registry.Args) (*plex.Metadata, []response.Match, error) {
	if args.Has("collection_id") {
		id := args.Int("collection_id")
		col, err := s.Metadata(ctx, id)
		if errors.Is(err, plex.ErrNotFound) || (err == nil && col.Type != "collection") {
			return nil, nil, fmt.Errorf("Collection with ID '%d' not found", id)
		}
		return col, nil, err
	}
	title := args.String("collection_title")
	if title == "" {
		return nil, nil, registry.InvalidArgument("Either collection_id or collection_title must be provided")
	}

	var keys []string
	if name := args.String("library_name"); name != "" {
		sec, err := section(ctx, s, name)
		if err != nil {
			return nil, nil, err
		}
		keys = []string{sec.Key}
	} else {
		sections, err := s.Sections(ctx)
		if err != nil {
			return nil, nil, err
		}
		for _, sec := range sections {
			keys = append(keys, sec.Key)
		}
	}

	same := make([]plex.Metadata, 0)
	for _, key := range keys {
		cols, err := s.Collections(ctx, key)
		if err != nil {
			return nil, nil, err
		}
		for _, col := range cols {
			if !strings.EqualFold(col.Title, title) {
				continue
			}
			// Section listings leave the section id on the container.
			if col.LibrarySectionID == 0 {
				n, _ := strconv.Atoi(key)
				col.LibrarySectionID = plex.FlexInt(n)
			}
			same = append(same, col)
		}
	}
	col, candidates := pick(same, title)
	if col == nil && candidates == nil {
		return nil, nil, fmt.Errorf("No collection found with title '%s'", title)
	}
	return col, candidates, nil
}

// resolveItems turns item_ids and item_titles into library items. Each title
// takes its best match; a title without any match fails the whole call.
func resolveItems(ctx context.Context, s *plex.Client, sectionKey string, titles []string, ids []int) ([]plex.Metadata, error) {
	out := make([]plex.Metadata, 0, len(titles)+len(ids))
	for _, id := range ids {
		item, err := s.Metadata(ctx, id)
		if errors.Is(err, plex.ErrNotFound) {
			return nil, fmt.Errorf("Media with ID '%d' not found", id)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	for _, title := range titles {
		items, err := s.FindByTitle(ctx, title, sectionKey)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("No media found matching '%s'", title)
		}
		best := items[0]
		for _, m := range items {
			if strings.EqualFold(m.Title, title) {
				best = m
				break
			}
		}
		out = append(out, best)
	}
	return out, nil
}

// itemsArg validates the item_titles / item_ids pair: exactly one of them.
func itemsArg(args registry.Args) ([]string, []int, error) {
	titles, ids := args.Strings("item_titles"), args.Ints("item_ids")
	switch {
	case len(titles) > 0 && len(ids) > 0:
		return nil, nil, registry.InvalidArgument("Provide either item_titles or item_ids, not both")
	case len(titles) == 0 && len(ids) == 0:
		return nil, nil, registry.InvalidArgument("Either item_titles or item_ids must be provided")
	}
	return titles, ids, nil
}

func ratingKeys(items []plex.Metadata) []int {
	ids := make([]int, 0, len(items))
	for _, m := range items {
		ids = append(ids, m.ID())
	}
	return ids
}

// summarize is the list view of an item.
func summarize(m plex.Metadata) map[string]any {
	out := map[string]any{
		"id":    m.ID(),
		"title": m.Title,
		"type":  m.Type,
	}
	if m.Year > 0 {
		out["year"] = m.Year
	}
	switch m.Type {
	case "episode":
		out["show"] = m.GrandparentTitle
		out["season"] = m.ParentIndex
		out["episode"] = m.Index
	case "season":
		out["show"] = m.ParentTitle
		out["season"] = m.Index
	case "track":
		out["artist"] = m.GrandparentTitle
		out["album"] = m.ParentTitle
	case "album":
		out["artist"] = m.ParentTitle
	case "show", "artist":
		out["child_count"] = int(m.ChildCount)
	case "playlist", "collection":
		out["item_count"] = itemCount(m)
	}
	if m.Duration > 0 {
		out["duration"] = m.Duration
	}
	if m.AddedAt > 0 {
		out["added_at"] = unixTime(m.AddedAt)
	}
	return out
}

func summarizeAll(items []plex.Metadata) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, m := range items {
		out = append(out, summarize(m))
	}
	return out
}

func itemCount(m plex.Metadata) int {
	if m.LeafCount > 0 {
		return m.LeafCount
	}
	return int(m.ChildCount)
}

// unixTime renders a Plex epoch timestamp, or "" when unset.
func unixTime(sec int64) string {
	if sec <= 0 {
		return ""
	}
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
