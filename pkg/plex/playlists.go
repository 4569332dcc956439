package plex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Playlists lists playlists. playlistType (audio, video, photo) and
// sectionKey are optional filters.
func (c *Client) Playlists(ctx context.Context, playlistType, sectionKey string) ([]Metadata, error) {
	q := url.Values{}
	if playlistType != "" {
		q.Set("playlistType", playlistType)
	}
	if sectionKey != "" {
		q.Set("sectionID", sectionKey)
	}
	mc, err := c.get(ctx, "list playlists", "/playlists", q)
	if err != nil {
		return nil, err
	}
	return mc.Metadata, nil
}

// Playlist fetches one playlist by rating key.
func (c *Client) Playlist(ctx context.Context, id int) (*Metadata, error) {
	op := fmt.Sprintf("get playlist %d", id)
	mc, err := c.get(ctx, op, fmt.Sprintf("/playlists/%d", id), nil)
	if err != nil {
		return nil, err
	}
	if len(mc.Metadata) == 0 {
		return nil, &Error{Op: op, StatusCode: http.StatusNotFound, Status: "404 Not Found"}
	}
	return &mc.Metadata[0], nil
}

// PlaylistItems lists the entries of a playlist. Each entry carries its
// PlaylistItemID, needed for removal.
func (c *Client) PlaylistItems(ctx context.Context, id int) ([]Metadata, error) {
	mc, err := c.get(ctx, "list playlist items", fmt.Sprintf("/playlists/%d/items", id), nil)
	if err != nil {
		return nil, err
	}
	return mc.Metadata, nil
}

// CreatePlaylist creates a regular playlist of the given type (audio, video,
// photo) from library item ids.
func (c *Client) CreatePlaylist(ctx context.Context, title, playlistType string, itemIDs []int) (*Metadata, error) {
	uri, err := c.itemURI(ctx, itemIDs)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("title", title)
	q.Set("type", playlistType)
	q.Set("smart", "0")
	q.Set("uri", uri)
	mc, err := c.exec(ctx, "create playlist", http.MethodPost, "/playlists", q)
	if err != nil {
		return nil, err
	}
	if len(mc.Metadata) == 0 {
		return nil, fmt.Errorf("create playlist: server returned no playlist")
	}
	return &mc.Metadata[0], nil
}

// EditPlaylist updates title and/or summary. Nil leaves a field unchanged.
func (c *Client) EditPlaylist(ctx context.Context, id int, title, summary *string) error {
	q := url.Values{}
	if title != nil {
		q.Set("title", *title)
	}
	if summary != nil {
		q.Set("summary", *summary)
	}
	if len(q) == 0 {
		return nil
	}
	_, err := c.exec(ctx, fmt.Sprintf("edit playlist %d", id), http.MethodPut, fmt.Sprintf("/playlists/%d", id), q)
	return err
}

// AddToPlaylist appends library items to a playlist.
func (c *Client) AddToPlaylist(ctx context.Context, id int, itemIDs []int) error {
	uri, err := c.itemURI(ctx, itemIDs)
	if err != nil {
		return err
	}
	q := url.Values{}
	q.Set("uri", uri)
	_, err = c.exec(ctx, fmt.Sprintf("add to playlist %d", id), http.MethodPut, fmt.Sprintf("/playlists/%d/items", id), q)
	return err
}

// RemoveFromPlaylist removes one playlist entry by its PlaylistItemID.
func (c *Client) RemoveFromPlaylist(ctx context.Context, id, playlistItemID int) error {
	_, err := c.exec(ctx, fmt.Sprintf("remove from playlist %d", id), http.MethodDelete,
		fmt.Sprintf("/playlists/%d/items/%d", id, playlistItemID), nil)
	return err
}

// DeletePlaylist deletes a playlist.
func (c *Client) DeletePlaylist(ctx context.Context, id int) error {
	_, err := c.exec(ctx, fmt.Sprintf("delete playlist %d", id), http.MethodDelete, fmt.Sprintf("/playlists/%d", id), nil)
	return err
}
