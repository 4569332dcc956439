package plex

import (
	"context"
	"strings"
)

// Owner returns the plex.tv account that owns the token.
func (c *Client) Owner(ctx context.Context) (*TVUser, error) {
	var u TVUser
	if err := c.tvJSON(ctx, "get account", "/api/v2/user", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Friends lists the accounts the owner shares with, including managed home
// users.
func (c *Client) Friends(ctx context.Context) ([]TVUser, error) {
	var users []TVUser
	if err := c.tvJSON(ctx, "list friends", "/api/v2/friends", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Users returns the owner followed by every friend.
func (c *Client) Users(ctx context.Context) ([]TVUser, error) {
	owner, err := c.Owner(ctx)
	if err != nil {
		return nil, err
	}
	friends, err := c.Friends(ctx)
	if err != nil {
		return nil, err
	}
	return append([]TVUser{*owner}, friends...), nil
}

// UserByName finds an account by case-insensitive username, title or email.
// It returns (nil, nil) when nothing matches.
func (c *Client) UserByName(ctx context.Context, name string) (*TVUser, error) {
	users, err := c.Users(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		u := &users[i]
		if strings.EqualFold(u.Username, name) || strings.EqualFold(u.Title, name) || strings.EqualFold(u.Email, name) {
			return u, nil
		}
	}
	return nil, nil
}
