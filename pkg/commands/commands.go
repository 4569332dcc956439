// Package commands is the Plex command catalog: every operation the server
// exposes, with its permission tier, parameter list, declared payload fields
// and upstream strategy.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/morezero/plex-mcp-server/pkg/registry"
)

const logPrefix = "commands:catalog"

// Version is the catalog version published in manifests. Bump the minor
// version when commands are added, the major version when a published entry
// changes incompatibly.
const Version = "1.0.0"

// All returns the catalog in registration order.
func All() []registry.Command {
	groups := [][]registry.Command{
		libraryCommands(),
		mediaCommands(),
		playlistCommands(),
		collectionCommands(),
		userCommands(),
		serverCommands(),
	}
	out := make([]registry.Command, 0, 40)
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Register adds the whole catalog to b.
func Register(b *registry.Builder) error {
	for _, cmd := range All() {
		if err := b.Register(cmd); err != nil {
			return fmt.Errorf("%s - register %s: %w", logPrefix, cmd.Name, err)
		}
	}
	return nil
}

// NewRegistry builds the frozen registry holding the catalog.
func NewRegistry() (*registry.Registry, error) {
	b := registry.NewBuilder()
	if err := Register(b); err != nil {
		return nil, err
	}
	reg := b.Build()
	slog.Info(fmt.Sprintf("%s - Registered %d commands (catalog %s)", logPrefix, reg.Len(), Version))
	return reg, nil
}

// Parameter shorthands.

func required(name string, t registry.ParamType, desc string) registry.Param {
	return registry.Param{Name: name, Type: t, Description: desc}
}

func optional(name string, t registry.ParamType, desc string) registry.Param {
	return registry.Param{Name: name, Type: t, Optional: true, Description: desc}
}

func withDefault(name string, t registry.ParamType, def any, desc string) registry.Param {
	return registry.Param{Name: name, Type: t, Optional: true, Default: def, Description: desc}
}

func oneOf(name string, options []string, desc string) registry.Param {
	return registry.Param{Name: name, Type: registry.TypeString, Optional: true, Enum: options, Description: desc}
}

var (
	mediaIDParam    = optional("media_id", registry.TypeInteger, "Rating key of the item")
	mediaTitleParam = optional("media_title", registry.TypeString, "Title of the item, used when media_id is not given")
	libraryParam    = optional("library_name", registry.TypeString, "Library to search in")

	playlistIDParam    = optional("playlist_id", registry.TypeInteger, "Rating key of the playlist")
	playlistTitleParam = optional("playlist_title", registry.TypeString, "Title of the playlist, used when playlist_id is not given")

	collectionIDParam    = optional("collection_id", registry.TypeInteger, "Rating key of the collection")
	collectionTitleParam = optional("collection_title", registry.TypeString, "Title of the collection, used when collection_id is not given")

	itemTitlesParam = optional("item_titles", registry.TypeStringList, "Titles of library items")
	itemIDsParam    = optional("item_ids", registry.TypeIntegerList, "Rating keys of library items")
)
