package plex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Sections lists the library sections.
func (c *Client) Sections(ctx context.Context) ([]Directory, error) {
	mc, err := c.get(ctx, "list libraries", "/library/sections", nil)
	if err != nil {
		return nil, err
	}
	return mc.Directory, nil
}

// SectionByTitle finds a section by case-insensitive title. It returns
// (nil, nil) when no section matches.
func (c *Client) SectionByTitle(ctx context.Context, title string) (*Directory, error) {
	sections, err := c.Sections(ctx)
	if err != nil {
		return nil, err
	}
	for i := range sections {
		if strings.EqualFold(sections[i].Title, title) {
			return &sections[i], nil
		}
	}
	return nil, nil
}

// ItemsQuery filters /library/sections/{id}/all.
type ItemsQuery struct {
	// Type is a metadata type number; 0 lets Plex pick the section default.
	Type int
	// Title is a substring filter.
	Title  string
	Sort   string
	Offset int
	// Limit of 0 returns everything.
	Limit int
}

// SectionItems lists items of a section and the total available.
func (c *Client) SectionItems(ctx context.Context, sectionKey string, q ItemsQuery) ([]Metadata, int, error) {
	params := containerQuery(q.Offset, q.Limit)
	if q.Type > 0 {
		params.Set("type", fmt.Sprint(q.Type))
	}
	if q.Title != "" {
		params.Set("title", q.Title)
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	mc, err := c.get(ctx, "list library items", "/library/sections/"+url.PathEscape(sectionKey)+"/all", params)
	if err != nil {
		return nil, 0, err
	}
	total := mc.TotalSize
	if total == 0 {
		total = len(mc.Metadata)
	}
	return mc.Metadata, total, nil
}

// SectionCount returns how many items of a type a section holds without
// transferring them.
func (c *Client) SectionCount(ctx context.Context, sectionKey string, typ int) (int, error) {
	params := url.Values{}
	params.Set("X-Plex-Container-Start", "0")
	params.Set("X-Plex-Container-Size", "0")
	if typ > 0 {
		params.Set("type", fmt.Sprint(typ))
	}
	mc, err := c.get(ctx, "count library items", "/library/sections/"+url.PathEscape(sectionKey)+"/all", params)
	if err != nil {
		return 0, err
	}
	if mc.TotalSize > 0 {
		return mc.TotalSize, nil
	}
	return mc.Size, nil
}

// RecentlyAdded lists the newest items of a section.
func (c *Client) RecentlyAdded(ctx context.Context, sectionKey string, limit int) ([]Metadata, error) {
	mc, err := c.get(ctx, "recently added", "/library/sections/"+url.PathEscape(sectionKey)+"/recentlyAdded", containerQuery(0, limit))
	if err != nil {
		return nil, err
	}
	return mc.Metadata, nil
}

// RefreshSection asks Plex to scan a section. A non-empty path limits the
// scan to that folder; force re-reads metadata for existing items.
func (c *Client) RefreshSection(ctx context.Context, sectionKey, path string, force bool) error {
	params := url.Values{}
	if path != "" {
		params.Set("path", path)
	}
	if force {
		params.Set("force", "1")
	}
	_, err := c.get(ctx, "refresh library", "/library/sections/"+url.PathEscape(sectionKey)+"/refresh", params)
	return err
}

// Search runs a hub search across all libraries.
func (c *Client) Search(ctx context.Context, query, searchTypes string, limit int) ([]Metadata, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("includeCollections", "1")
	params.Set("includeExternalMedia", "1")
	if limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}
	if searchTypes != "" {
		params.Set("searchTypes", searchTypes)
	}
	mc, err := c.get(ctx, "search", "/library/search", params)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(mc.SearchResult))
	for _, r := range mc.SearchResult {
		if r.Metadata.RatingKey != "" {
			results = append(results, r)
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	items := make([]Metadata, 0, len(results))
	for _, r := range results {
		items = append(items, r.Metadata)
	}
	return items, nil
}

// FindByTitle searches for items whose title contains title. A non-empty
// sectionKey scopes the lookup to one section.
func (c *Client) FindByTitle(ctx context.Context, title, sectionKey string) ([]Metadata, error) {
	if sectionKey != "" {
		items, _, err := c.SectionItems(ctx, sectionKey, ItemsQuery{Title: title})
		return items, err
	}
	items, err := c.Search(ctx, title, "", 50)
	if err != nil {
		return nil, err
	}
	out := items[:0]
	for _, m := range items {
		switch m.Type {
		case "collection", "playlist":
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Metadata fetches one item by rating key.
func (c *Client) Metadata(ctx context.Context, id int) (*Metadata, error) {
	op := fmt.Sprintf("get item %d", id)
	mc, err := c.get(ctx, op, fmt.Sprintf("/library/metadata/%d", id), nil)
	if err != nil {
		return nil, err
	}
	if len(mc.Metadata) == 0 {
		return nil, &Error{Op: op, StatusCode: http.StatusNotFound, Status: "404 Not Found"}
	}
	return &mc.Metadata[0], nil
}

// Children lists the children of an item (seasons of a show, tracks of an
// album, items of a collection).
func (c *Client) Children(ctx context.Context, id int) ([]Metadata, error) {
	mc, err := c.get(ctx, "list children", fmt.Sprintf("/library/metadata/%d/children", id), nil)
	if err != nil {
		return nil, err
	}
	return mc.Metadata, nil
}

// DeleteMetadata removes an item and its files.
func (c *Client) DeleteMetadata(ctx context.Context, id int) error {
	_, err := c.exec(ctx, fmt.Sprintf("delete item %d", id), http.MethodDelete, fmt.Sprintf("/library/metadata/%d", id), nil)
	return err
}

// MetadataEdit describes field and tag changes for one item. Field keys are
// Plex attribute names (title, summary, year, rating, contentRating, studio,
// tagline, titleSort, originalTitle). Tag keys are tag kinds (genre, label,
// collection).
type MetadataEdit struct {
	Fields     map[string]string
	AddTags    map[string][]string
	RemoveTags map[string][]string
}

// Empty reports whether the edit would change nothing.
func (e MetadataEdit) Empty() bool {
	return len(e.Fields) == 0 && len(e.AddTags) == 0 && len(e.RemoveTags) == 0
}

// Encode renders the edit as Plex query parameters. Edited fields are locked
// so agents do not overwrite them on the next refresh.
func (e MetadataEdit) Encode() url.Values {
	q := url.Values{}
	for field, v := range e.Fields {
		q.Set(field+".value", v)
		q.Set(field+".locked", "1")
	}
	for kind, tags := range e.AddTags {
		for i, tag := range tags {
			q.Set(fmt.Sprintf("%s[%d].tag.tag", kind, i), tag)
		}
		q.Set(kind+".locked", "1")
	}
	for kind, tags := range e.RemoveTags {
		if len(tags) == 0 {
			continue
		}
		escaped := make([]string, len(tags))
		for i, tag := range tags {
			escaped[i] = url.QueryEscape(tag)
		}
		q.Set(kind+"[].tag.tag-", strings.Join(escaped, ","))
		q.Set(kind+".locked", "1")
	}
	return q
}

// EditMetadata applies edit to an item. The item must carry its section id
// and type, as returned by Metadata.
func (c *Client) EditMetadata(ctx context.Context, item *Metadata, edit MetadataEdit) error {
	if edit.Empty() {
		return nil
	}
	typ := TypeNumber(item.Type)
	if typ == 0 {
		return fmt.Errorf("edit item %s: unsupported type %q", item.RatingKey, item.Type)
	}
	q := edit.Encode()
	q.Set("type", fmt.Sprint(typ))
	q.Set("id", item.RatingKey)
	path := fmt.Sprintf("/library/sections/%d/all", item.LibrarySectionID)
	_, err := c.exec(ctx, "edit item "+item.RatingKey, http.MethodPut, path, q)
	return err
}

// itemURI builds the server:// URI Plex uses to reference library items in
// playlist and collection requests.
func (c *Client) itemURI(ctx context.Context, ids []int) (string, error) {
	machine, err := c.MachineIdentifier(ctx)
	if err != nil {
		return "", err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("server://%s/com.plexapp.plugins.library/library/metadata/%s", machine, strings.Join(keys, ",")), nil
}
