package commands

import (
	"context"
	"fmt"

	"github.com/morezero/plex-mcp-server/pkg/permission"
	"github.com/morezero/plex-mcp-server/pkg/plex"
	"github.com/morezero/plex-mcp-server/pkg/registry"
	"github.com/morezero/plex-mcp-server/pkg/response"
)

// statTypes lists the item types counted per library type.
var statTypes = map[string][]string{
	"movie":  {"movie"},
	"show":   {"show", "season", "episode"},
	"artist": {"artist", "album", "track"},
	"photo":  {"photo"},
}

func libraryCommands() []registry.Command {
	return []registry.Command{
		{
			Name:        "library_list",
			Tier:        permission.Read,
			Description: "List all libraries on the Plex server",
			Returns:     []string{"libraries", "count"},
			Invoke:      libraryList,
		},
		{
			Name:        "library_get_stats",
			Tier:        permission.Read,
			Description: "Item counts of a library by type",
			Params:      []registry.Param{required("library_name", registry.TypeString, "Name of the library")},
			Returns:     []string{"library", "type", "counts"},
			Invoke:      libraryStats,
		},
		{
			Name:        "library_get_contents",
			Tier:        permission.Read,
			Description: "List the items of a library, paged",
			Params: []registry.Param{
				required("library_name", registry.TypeString, "Name of the library"),
				withDefault("limit", registry.TypeInteger, 50, "Maximum number of items"),
				withDefault("offset", registry.TypeInteger, 0, "Number of items to skip"),
				optional("sort", registry.TypeString, "Plex sort expression, e.g. titleSort:asc or addedAt:desc"),
			},
			Returns: []string{"library", "items", "count", "total"},
			Invoke:  libraryContents,
		},
		{
			Name:        "library_get_recently_added",
			Tier:        permission.Read,
			Description: "Recently added items of one library or of all libraries",
			Params: []registry.Param{
				libraryParam,
				withDefault("limit", registry.TypeInteger, 10, "Maximum number of items per library"),
			},
			Returns: []string{"items", "count"},
			Invoke:  libraryRecentlyAdded,
		},
		{
			Name:        "library_refresh",
			Tier:        permission.Write,
			Description: "Refresh one library or every library",
			Params: []registry.Param{
				libraryParam,
				withDefault("force", registry.TypeBoolean, false, "Re-read metadata of existing items"),
			},
			Returns: []string{"refreshed", "message"},
			Invoke:  libraryRefresh,
		},
		{
			Name:        "library_scan",
			Tier:        permission.Write,
			Description: "Scan a library, optionally limited to one folder",
			Params: []registry.Param{
				required("library_name", registry.TypeString, "Name of the library"),
				optional("path", registry.TypeString, "Folder inside the library to scan"),
			},
			Returns: []string{"library", "message"},
			Invoke:  libraryScan,
		},
	}
}

func libraryList(ctx context.Context, s *plex.Client, _ registry.Args) (any, error) {
	sections, err := s.Sections(ctx)
	if err != nil {
		return nil, err
	}
	libraries := make([]map[string]any, 0, len(sections))
	for _, sec := range sections {
		locations := make([]string, 0, len(sec.Location))
		for _, loc := range sec.Location {
			locations = append(locations, loc.Path)
		}
		libraries = append(libraries, map[string]any{
			"key":        sec.Key,
			"title":      sec.Title,
			"type":       sec.Type,
			"agent":      sec.Agent,
			"scanner":    sec.Scanner,
			"locations":  locations,
			"refreshing": sec.Refreshing,
			"updated_at": unixTime(sec.UpdatedAt),
			"scanned_at": unixTime(sec.ScannedAt),
		})
	}
	return response.Fields{"libraries": libraries, "count": len(libraries)}, nil
}

func libraryStats(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	sec, err := section(ctx, s, args.String("library_name"))
	if err != nil {
		return nil, err
	}
	types, ok := statTypes[sec.Type]
	if !ok {
		types = []string{sec.Type}
	}
	counts := make(map[string]int, len(types))
	for _, typ := range types {
		n, err := s.SectionCount(ctx, sec.Key, plex.TypeNumber(typ))
		if err != nil {
			return nil, err
		}
		counts[typ] = n
	}
	return response.Fields{"library": sec.Title, "type": sec.Type, "counts": counts}, nil
}

func libraryContents(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	sec, err := section(ctx, s, args.String("library_name"))
	if err != nil {
		return nil, err
	}
	items, total, err := s.SectionItems(ctx, sec.Key, plex.ItemsQuery{
		Sort:   args.String("sort"),
		Offset: args.Int("offset"),
		Limit:  args.Int("limit"),
	})
	if err != nil {
		return nil, err
	}
	return response.Fields{
		"library": sec.Title,
		"items":   summarizeAll(items),
		"count":   len(items),
		"total":   total,
	}, nil
}

func libraryRecentlyAdded(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	limit := args.Int("limit")
	var sections []plex.Directory
	if name := args.String("library_name"); name != "" {
		sec, err := section(ctx, s, name)
		if err != nil {
			return nil, err
		}
		sections = []plex.Directory{*sec}
	} else {
		all, err := s.Sections(ctx)
		if err != nil {
			return nil, err
		}
		sections = all
	}

	items := make([]map[string]any, 0)
	for _, sec := range sections {
		recent, err := s.RecentlyAdded(ctx, sec.Key, limit)
		if err != nil {
			return nil, err
		}
		for _, m := range recent {
			item := summarize(m)
			item["library"] = sec.Title
			items = append(items, item)
		}
	}
	return response.Fields{"items": items, "count": len(items)}, nil
}

func libraryRefresh(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	force := args.Bool("force")
	if name := args.String("library_name"); name != "" {
		sec, err := section(ctx, s, name)
		if err != nil {
			return nil, err
		}
		if err := s.RefreshSection(ctx, sec.Key, "", force); err != nil {
			return nil, err
		}
		return response.Fields{
			"refreshed": []string{sec.Title},
			"message":   fmt.Sprintf("Refreshing library '%s'", sec.Title),
		}, nil
	}

	sections, err := s.Sections(ctx)
	if err != nil {
		return nil, err
	}
	refreshed := make([]string, 0, len(sections))
	for _, sec := range sections {
		if err := s.RefreshSection(ctx, sec.Key, "", force); err != nil {
			return nil, err
		}
		refreshed = append(refreshed, sec.Title)
	}
	return response.Fields{
		"refreshed": refreshed,
		"message":   fmt.Sprintf("Refreshing %d libraries", len(refreshed)),
	}, nil
}

func libraryScan(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	sec, err := section(ctx, s, args.String("library_name"))
	if err != nil {
		return nil, err
	}
	path := args.String("path")
	if err := s.RefreshSection(ctx, sec.Key, path, false); err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Scanning library '%s'", sec.Title)
	if path != "" {
		msg = fmt.Sprintf("Scanning '%s' in library '%s'", path, sec.Title)
	}
	return response.Fields{"library": sec.Title, "message": msg}, nil
}
