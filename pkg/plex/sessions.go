package plex

import (
	"context"
	"fmt"
	"strings"
)

// Identity fetches /identity. It needs a valid token only on secured servers,
// so a 401 here usually means the token is wrong.
func (c *Client) Identity(ctx context.Context) (*Identity, error) {
	mc, err := c.get(ctx, "identity", "/identity", nil)
	if err != nil {
		return nil, err
	}
	if mc.MachineIdentifier == "" {
		return nil, fmt.Errorf("identity: response has no machineIdentifier")
	}
	return &Identity{MachineIdentifier: mc.MachineIdentifier, Version: mc.Version, Claimed: mc.Claimed}, nil
}

// MachineIdentifier returns the server's machine identifier, fetching it on
// first use when the client was not handed out by a Provider.
func (c *Client) MachineIdentifier(ctx context.Context) (string, error) {
	if c.machineID != "" {
		return c.machineID, nil
	}
	id, err := c.Identity(ctx)
	if err != nil {
		return "", err
	}
	return id.MachineIdentifier, nil
}

// ServerInfo fetches the root container with server capabilities.
func (c *Client) ServerInfo(ctx context.Context) (*MediaContainer, error) {
	return c.get(ctx, "server info", "/", nil)
}

// ActiveSessions lists what is currently playing.
func (c *Client) ActiveSessions(ctx context.Context) ([]Metadata, error) {
	mc, err := c.get(ctx, "active sessions", "/status/sessions", nil)
	if err != nil {
		return nil, err
	}
	return mc.Metadata, nil
}

// History lists watch history, newest first. accountID 0 means all accounts.
func (c *Client) History(ctx context.Context, accountID, limit int) ([]Metadata, error) {
	q := containerQuery(0, limit)
	q.Set("sort", "viewedAt:desc")
	if accountID > 0 {
		q.Set("accountID", fmt.Sprint(accountID))
	}
	mc, err := c.get(ctx, "watch history", "/status/sessions/history/all", q)
	if err != nil {
		return nil, err
	}
	return mc.Metadata, nil
}

// OnDeck lists the server owner's On Deck items.
func (c *Client) OnDeck(ctx context.Context, limit int) ([]Metadata, error) {
	mc, err := c.get(ctx, "on deck", "/library/onDeck", containerQuery(0, limit))
	if err != nil {
		return nil, err
	}
	return mc.Metadata, nil
}

// Accounts lists the server-local accounts.
func (c *Client) Accounts(ctx context.Context) ([]Account, error) {
	mc, err := c.get(ctx, "accounts", "/accounts", nil)
	if err != nil {
		return nil, err
	}
	return mc.Account, nil
}

// AccountByName finds a server-local account by case-insensitive name.
func (c *Client) AccountByName(ctx context.Context, name string) (*Account, error) {
	accounts, err := c.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if strings.EqualFold(accounts[i].Name, name) {
			return &accounts[i], nil
		}
	}
	return nil, nil
}
