package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/morezero/plex-mcp-server/pkg/permission"
	"github.com/morezero/plex-mcp-server/pkg/plex"
	"github.com/morezero/plex-mcp-server/pkg/registry"
	"github.com/morezero/plex-mcp-server/pkg/response"
)

func collectionCommands() []registry.Command {
	return []registry.Command{
		{
			Name:        "collection_list",
			Tier:        permission.Read,
			Description: "List the collections of a library",
			Params:      []registry.Param{required("library_name", registry.TypeString, "Name of the library")},
			Returns:     []string{"library", "collections", "count"},
			Invoke:      collectionList,
		},
		{
			Name:        "collection_get_contents",
			Tier:        permission.Read,
			Description: "List the items of a collection",
			Params:      []registry.Param{collectionIDParam, collectionTitleParam, libraryParam},
			Returns:     []string{"collection", "items", "count"},
			Invoke:      collectionContents,
		},
		{
			Name:        "collection_create",
			Tier:        permission.Write,
			Description: "Create a collection in a library from its items",
			Params: []registry.Param{
				required("collection_title", registry.TypeString, "Title of the new collection"),
				required("library_name", registry.TypeString, "Library the collection belongs to"),
				itemTitlesParam,
				itemIDsParam,
			},
			Returns: []string{"id", "title", "item_count", "message"},
			Invoke:  collectionCreate,
		},
		{
			Name:        "collection_add_to",
			Tier:        permission.Write,
			Description: "Add items to a collection",
			Params:      []registry.Param{collectionIDParam, collectionTitleParam, libraryParam, itemTitlesParam, itemIDsParam},
			Returns:     []string{"id", "title", "added", "message"},
			Invoke:      collectionAddTo,
		},
		{
			Name:        "collection_edit",
			Tier:        permission.Write,
			Description: "Rename a collection or change its summary or sort title",
			Params: []registry.Param{
				collectionIDParam, collectionTitleParam, libraryParam,
				optional("new_title", registry.TypeString, ""),
				optional("new_summary", registry.TypeString, ""),
				optional("new_sort_title", registry.TypeString, ""),
			},
			Returns: []string{"id", "title", "changes", "message"},
			Invoke:  collectionEdit,
		},
		{
			Name:        "collection_remove_from",
			Tier:        permission.Delete,
			Description: "Remove items from a collection by title",
			Params: []registry.Param{
				collectionIDParam, collectionTitleParam, libraryParam,
				required("item_titles", registry.TypeStringList, "Titles of the items to remove"),
			},
			Returns: []string{"id", "title", "removed", "not_found", "message"},
			Invoke:  collectionRemoveFrom,
		},
		{
			Name:        "collection_delete",
			Tier:        permission.Delete,
			Description: "Delete a collection; its items stay in the library",
			Params:      []registry.Param{collectionIDParam, collectionTitleParam, libraryParam},
			Returns:     []string{"id", "title", "message"},
			Invoke:      collectionDelete,
		},
	}
}

func collectionView(col plex.Metadata) map[string]any {
	return map[string]any{
		"id":         col.ID(),
		"title":      col.Title,
		"summary":    col.Summary,
		"subtype":    col.Subtype,
		"item_count": itemCount(col),
		"added_at":   unixTime(col.AddedAt),
	}
}

func collectionList(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	sec, err := section(ctx, s, args.String("library_name"))
	if err != nil {
		return nil, err
	}
	cols, err := s.Collections(ctx, sec.Key)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(cols))
	for _, col := range cols {
		out = append(out, collectionView(col))
	}
	return response.Fields{"library": sec.Title, "collections": out, "count": len(out)}, nil
}

func collectionContents(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	col, candidates, err := resolveCollection(ctx, s, args)
	if err != nil || candidates != nil {
		return candidates, err
	}
	items, err := s.CollectionItems(ctx, col.ID())
	if err != nil {
		return nil, err
	}
	return response.Fields{
		"collection": collectionView(*col),
		"items":      summarizeAll(items),
		"count":      len(items),
	}, nil
}

func collectionCreate(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	titles, ids, err := itemsArg(args)
	if err != nil {
		return nil, err
	}
	sec, err := section(ctx, s, args.String("library_name"))
	if err != nil {
		return nil, err
	}
	items, err := resolveItems(ctx, s, sec.Key, titles, ids)
	if err != nil {
		return nil, err
	}
	title := args.String("collection_title")
	col, err := s.CreateCollection(ctx, sec.Key, title, plex.TypeNumber(items[0].Type), ratingKeys(items))
	if err != nil {
		return nil, err
	}
	return response.Fields{
		"id":         col.ID(),
		"title":      col.Title,
		"item_count": len(items),
		"message":    fmt.Sprintf("Collection '%s' created with %d items in library '%s'", col.Title, len(items), sec.Title),
	}, nil
}

func collectionAddTo(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	titles, ids, err := itemsArg(args)
	if err != nil {
		return nil, err
	}
	col, candidates, err := resolveCollection(ctx, s, args)
	if err != nil || candidates != nil {
		return candidates, err
	}
	sectionKey := ""
	if col.LibrarySectionID > 0 {
		sectionKey = fmt.Sprint(int(col.LibrarySectionID))
	}
	items, err := resolveItems(ctx, s, sectionKey, titles, ids)
	if err != nil {
		return nil, err
	}
	if err := s.AddToCollection(ctx, col.ID(), ratingKeys(items)); err != nil {
		return nil, err
	}
	added := make([]string, 0, len(items))
	for _, m := range items {
		added = append(added, m.Title)
	}
	return response.Fields{
		"id":      col.ID(),
		"title":   col.Title,
		"added":   added,
		"message": fmt.Sprintf("Added %d items to collection '%s'", len(items), col.Title),
	}, nil
}

func collectionEdit(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	edit := plex.MetadataEdit{Fields: map[string]string{}}
	changes := make([]string, 0, 3)
	for _, f := range []struct{ param, field, label string }{
		{"new_title", "title", "title"},
		{"new_summary", "summary", "summary"},
		{"new_sort_title", "titleSort", "sort title"},
	} {
		if args.Has(f.param) {
			v := args.String(f.param)
			edit.Fields[f.field] = v
			changes = append(changes, fmt.Sprintf("%s to '%s'", f.label, v))
		}
	}
	if edit.Empty() {
		return nil, registry.InvalidArgument("At least one of new_title, new_summary or new_sort_title must be provided")
	}
	col, candidates, err := resolveCollection(ctx, s, args)
	if err != nil || candidates != nil {
		return candidates, err
	}
	if err := s.EditMetadata(ctx, col, edit); err != nil {
		return nil, err
	}
	title := col.Title
	if t, ok := edit.Fields["title"]; ok {
		title = t
	}
	return response.Fields{
		"id":      col.ID(),
		"title":   title,
		"changes": changes,
		"message": fmt.Sprintf("Updated collection '%s': %s", title, strings.Join(changes, ", ")),
	}, nil
}

func collectionRemoveFrom(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	col, candidates, err := resolveCollection(ctx, s, args)
	if err != nil || candidates != nil {
		return candidates, err
	}
	items, err := s.CollectionItems(ctx, col.ID())
	if err != nil {
		return nil, err
	}

	removed := make([]string, 0)
	notFound := make([]string, 0)
	for _, title := range args.Strings("item_titles") {
		matched := false
		for _, m := range items {
			if !strings.EqualFold(m.Title, title) {
				continue
			}
			if err := s.RemoveFromCollection(ctx, col.ID(), m.ID()); err != nil {
				return nil, err
			}
			removed = append(removed, m.Title)
			matched = true
		}
		if !matched {
			notFound = append(notFound, title)
		}
	}
	if len(removed) == 0 {
		return nil, fmt.Errorf("None of the requested items were found in collection '%s'", col.Title)
	}
	return response.Fields{
		"id":        col.ID(),
		"title":     col.Title,
		"removed":   removed,
		"not_found": notFound,
		"message":   fmt.Sprintf("Removed %d items from collection '%s'", len(removed), col.Title),
	}, nil
}

func collectionDelete(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	col, candidates, err := resolveCollection(ctx, s, args)
	if err != nil || candidates != nil {
		return candidates, err
	}
	if err := s.DeleteCollection(ctx, col.ID()); err != nil {
		return nil, err
	}
	return response.Fields{
		"id":      col.ID(),
		"title":   col.Title,
		"message": fmt.Sprintf("Collection '%s' deleted successfully", col.Title),
	}, nil
}
