// Package resource generates command handlers for REST collections addressed
// by hierarchical resource names such as
// accounts/{accountId}/containers/{containerId}/workspaces/{workspaceId}/tags/{tagId}.
package resource

import (
	"strings"

	"gapi/internal/cli"
	"gapi/internal/output"
)

// Segment is one collection/id pair of a parent path. The id is read from
// Flag.
type Segment struct {
	Collection string
	Flag       string
}

// Kind describes a collection of resources under a fixed parent hierarchy.
type Kind struct {
	// Collection is the collection name in the resource path. It also
	// prefixes the action reported by delete.
	Collection string
	// IDFlag names the flag carrying the item id. Empty for collections
	// that are only addressed as a whole.
	IDFlag string
	// Parent segments, outermost first.
	Parent []Segment
}

// Target selects which part of a kind's path an operation addresses.
type Target int

const (
	// Collection addresses parent/collection.
	Collection Target = iota
	// Item addresses parent/collection/id.
	Item
	// Parent addresses the parent path alone.
	Parent
)

// ParentPath resolves the parent segments from flags. Flags are checked in
// path order and the first missing one is reported.
func (k Kind) ParentPath(flags cli.Flags) (string, error) {
	parts := make([]string, 0, 2*len(k.Parent))
	for _, seg := range k.Parent {
		id, err := requireFlag(flags, seg.Flag)
		if err != nil {
			return "", err
		}
		parts = append(parts, seg.Collection, id)
	}
	return strings.Join(parts, "/"), nil
}

// CollectionPath resolves parent/collection.
func (k Kind) CollectionPath(flags cli.Flags) (string, error) {
	parent, err := k.ParentPath(flags)
	if err != nil {
		return "", err
	}
	return join(parent, k.Collection), nil
}

// ItemPath resolves parent/collection/id. The id flag is checked after every
// parent flag.
func (k Kind) ItemPath(flags cli.Flags) (string, error) {
	collection, err := k.CollectionPath(flags)
	if err != nil {
		return "", err
	}
	if k.IDFlag == "" {
		return collection, nil
	}
	id, err := requireFlag(flags, k.IDFlag)
	if err != nil {
		return "", err
	}
	return join(collection, id), nil
}

// Path resolves the path addressed by target.
func (k Kind) Path(target Target, flags cli.Flags) (string, error) {
	switch target {
	case Item:
		return k.ItemPath(flags)
	case Parent:
		return k.ParentPath(flags)
	default:
		return k.CollectionPath(flags)
	}
}

func join(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "/" + child
}

// requireFlag returns the trimmed value of a mandatory flag.
func requireFlag(flags cli.Flags, name string) (string, error) {
	v := flags.String(name)
	if v == "" {
		return "", output.MissingArg(name)
	}
	return v, nil
}
