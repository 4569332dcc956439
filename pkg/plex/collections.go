package plex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Collections lists the collections of a section.
func (c *Client) Collections(ctx context.Context, sectionKey string) ([]Metadata, error) {
	mc, err := c.get(ctx, "list collections", "/library/sections/"+url.PathEscape(sectionKey)+"/collections", nil)
	if err != nil {
		return nil, err
	}
	return mc.Metadata, nil
}

// CollectionItems lists the items of a collection.
func (c *Client) CollectionItems(ctx context.Context, id int) ([]Metadata, error) {
	mc, err := c.get(ctx, "list collection items", fmt.Sprintf("/library/collections/%d/children", id), nil)
	if err != nil {
		return nil, err
	}
	return mc.Metadata, nil
}

// CreateCollection creates a regular collection in a section. itemType is
// the metadata type number of the items (movie, show, artist...).
func (c *Client) CreateCollection(ctx context.Context, sectionKey, title string, itemType int, itemIDs []int) (*Metadata, error) {
	uri, err := c.itemURI(ctx, itemIDs)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("title", title)
	q.Set("type", fmt.Sprint(itemType))
	q.Set("smart", "0")
	q.Set("sectionId", sectionKey)
	q.Set("uri", uri)
	mc, err := c.exec(ctx, "create collection", http.MethodPost, "/library/collections", q)
	if err != nil {
		return nil, err
	}
	if len(mc.Metadata) == 0 {
		return nil, fmt.Errorf("create collection: server returned no collection")
	}
	return &mc.Metadata[0], nil
}

// AddToCollection adds library items to a collection.
func (c *Client) AddToCollection(ctx context.Context, id int, itemIDs []int) error {
	uri, err := c.itemURI(ctx, itemIDs)
	if err != nil {
		return err
	}
	q := url.Values{}
	q.Set("uri", uri)
	_, err = c.exec(ctx, fmt.Sprintf("add to collection %d", id), http.MethodPut, fmt.Sprintf("/library/collections/%d/items", id), q)
	return err
}

// RemoveFromCollection removes one item from a collection.
func (c *Client) RemoveFromCollection(ctx context.Context, id, itemID int) error {
	_, err := c.exec(ctx, fmt.Sprintf("remove from collection %d", id), http.MethodDelete,
		fmt.Sprintf("/library/collections/%d/items/%d", id, itemID), nil)
	return err
}

// DeleteCollection deletes a collection. Its items stay in the library.
func (c *Client) DeleteCollection(ctx context.Context, id int) error {
	_, err := c.exec(ctx, fmt.Sprintf("delete collection %d", id), http.MethodDelete, fmt.Sprintf("/library/collections/%d", id), nil)
	return err
}
