package repository

import (
	"context"

	"dor/internal/releasetags"
)

// Finder looks objects up by identifier.
type Finder interface {
	Find(ctx context.Context, id string) (Object, error)
}

// NodeOf projects an object onto the fields release resolution reads.
func NodeOf(obj Object) releasetags.Node {
	b := obj.Core()
	return releasetags.Node{
		ID:                 b.ID,
		Tags:               b.ReleaseTags,
		AdministrativeTags: b.AdministrativeTags,
		CollectionIDs:      b.CollectionIDs,
	}
}

// ReleaseGraph serves collection nodes to the release resolver from a store.
type ReleaseGraph struct {
	finder Finder
}

func NewReleaseGraph(finder Finder) *ReleaseGraph {
	return &ReleaseGraph{finder: finder}
}

func (g *ReleaseGraph) Node(ctx context.Context, id string) (releasetags.Node, error) {
	obj, err := g.finder.Find(ctx, id)
	if err != nil {
		return releasetags.Node{}, err
	}
	return NodeOf(obj), nil
}
