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

func userCommands() []registry.Command {
	return []registry.Command{
		{
			Name:        "user_search_users",
			Tier:        permission.Read,
			Description: "List the owner and shared users, optionally filtered",
			Params:      []registry.Param{optional("search_term", registry.TypeString, "Substring of username, title or email")},
			Returns:     []string{"users", "count"},
			Invoke:      userSearch,
		},
		{
			Name:        "user_get_info",
			Tier:        permission.Read,
			Description: "Details of one user",
			Params:      []registry.Param{required("username", registry.TypeString, "Username, title or email")},
			Returns:     []string{"user"},
			Invoke:      userInfo,
		},
		{
			Name:        "user_get_on_deck",
			Tier:        permission.Read,
			Description: "On Deck items of the server owner",
			Params: []registry.Param{
				optional("username", registry.TypeString, "Must name the server owner when given"),
				withDefault("limit", registry.TypeInteger, 20, "Maximum number of items"),
			},
			Returns: []string{"items", "count"},
			Invoke:  userOnDeck,
		},
		{
			Name:        "user_get_watch_history",
			Tier:        permission.Read,
			Description: "Recently watched items of one user or of everyone",
			Params: []registry.Param{
				optional("username", registry.TypeString, "Server account name; all accounts when omitted"),
				withDefault("limit", registry.TypeInteger, 10, "Maximum number of items"),
				oneOf("content_type", []string{"movie", "episode", "track"}, "Only report this kind of item"),
			},
			Returns: []string{"items", "count"},
			Invoke:  userWatchHistory,
		},
	}
}

func userView(u plex.TVUser, owner bool) map[string]any {
	return map[string]any{
		"id":         u.ID,
		"username":   u.DisplayName(),
		"title":      u.Title,
		"email":      u.Email,
		"home":       u.Home,
		"restricted": u.Restricted,
		"owner":      owner,
	}
}

func userSearch(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return nil, err
	}
	term := strings.ToLower(args.String("search_term"))
	out := make([]map[string]any, 0, len(users))
	for i, u := range users {
		if term != "" &&
			!strings.Contains(strings.ToLower(u.Username), term) &&
			!strings.Contains(strings.ToLower(u.Title), term) &&
			!strings.Contains(strings.ToLower(u.Email), term) {
			continue
		}
		out = append(out, userView(u, i == 0))
	}
	return response.Fields{"users": out, "count": len(out)}, nil
}

func userInfo(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	name := args.String("username")
	owner, err := s.Owner(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.UserByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("User '%s' not found", name)
	}
	return response.Fields{"user": userView(*u, u.ID == owner.ID)}, nil
}

func userOnDeck(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	if name := args.String("username"); name != "" {
		owner, err := s.Owner(ctx)
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(owner.Username, name) && !strings.EqualFold(owner.Title, name) && !strings.EqualFold(owner.Email, name) {
			return nil, fmt.Errorf("On Deck is only available for the server owner, not '%s'", name)
		}
	}
	items, err := s.OnDeck(ctx, args.Int("limit"))
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(items))
	for _, m := range items {
		item := summarize(m)
		if m.Duration > 0 {
			item["progress"] = progress(m.ViewOffset, m.Duration)
		}
		out = append(out, item)
	}
	return response.Fields{"items": out, "count": len(out)}, nil
}

func userWatchHistory(ctx context.Context, s *plex.Client, args registry.Args) (any, error) {
	accountID := 0
	if name := args.String("username"); name != "" {
		acct, err := s.AccountByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if acct == nil {
			return nil, fmt.Errorf("User '%s' not found", name)
		}
		accountID = acct.ID
	}
	limit := args.Int("limit")
	typ := args.String("content_type")
	fetch := limit
	if typ != "" {
		// Filtering happens locally, so over-fetch.
		fetch = limit * 5
	}
	entries, err := s.History(ctx, accountID, fetch)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, limit)
	for _, m := range entries {
		if typ != "" && m.Type != typ {
			continue
		}
		item := summarize(m)
		item["viewed_at"] = unixTime(m.ViewedAt)
		item["account_id"] = m.AccountID
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return response.Fields{"items": out, "count": len(out)}, nil
}

// progress is the watched percentage, rounded to one decimal.
func progress(offset, duration int) float64 {
	if duration <= 0 {
		return 0
	}
	return float64(offset*1000/duration) / 10
}
