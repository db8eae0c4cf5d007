// Package ssr resolves a component tree's query bindings on the server,
// filling the client cache so that the rendered markup can ship together
// with a serialized snapshot. A hydrated client then answers those same
// queries from cache without re-requesting them.
package ssr

import (
	"context"
	"fmt"

	"github.com/graphbind-io/graphbind/pkg/bind"
	"github.com/graphbind-io/graphbind/pkg/client"
	"github.com/graphbind-io/graphbind/pkg/errors"
)

// Element is one node of a minimal component tree. Binding is optional:
// plain structural nodes carry only children. Children may be given
// statically, or computed from the element's props via ChildrenFunc when
// the subtree depends on data an ancestor resolved.
type Element struct {
	Bound        *bind.Bound
	Props        bind.Props
	Children     []*Element
	ChildrenFunc func(bind.Props) []*Element
}

// ResolveTree walks the tree depth-first and prefetches every query
// binding into the scope client's cache before descending into its
// children. Mutations, skipped bindings and bindings opted out of
// server-side fetching are passed over. The first failed fetch aborts
// the walk.
func ResolveTree(ctx context.Context, scope *bind.Scope, root *Element) error {
	if root == nil {
		return nil
	}
	if scope == nil {
		return errors.WrapError(
			fmt.Errorf("nil scope"),
			errors.ErrNoClient,
			"resolve tree",
		)
	}

	if root.Bound != nil {
		if err := root.Bound.Prefetch(ctx, scope, root.Props); err != nil {
			return err
		}
	}

	children := root.Children
	if root.ChildrenFunc != nil {
		// never append into the caller's slice
		computed := root.ChildrenFunc(root.Props)
		merged := make([]*Element, 0, len(children)+len(computed))
		merged = append(merged, children...)
		merged = append(merged, computed...)
		children = merged
	}
	for _, child := range children {
		if err := ResolveTree(ctx, scope, child); err != nil {
			return err
		}
	}
	return nil
}

// RenderWithData resolves the tree, invokes render, and returns the markup
// together with the serialized cache snapshot to embed in the page.
func RenderWithData(ctx context.Context, scope *bind.Scope, root *Element, render func() string) (string, []byte, error) {
	if err := ResolveTree(ctx, scope, root); err != nil {
		return "", nil, err
	}

	cli, err := bind.ClientFrom(scope)
	if err != nil {
		return "", nil, err
	}

	markup := render()
	snapshot, err := cli.Snapshot()
	if err != nil {
		return "", nil, err
	}
	return markup, snapshot, nil
}

// Hydrate loads a server-produced snapshot into a fresh client. Cache-first
// queries mounted afterwards resolve from the snapshot without a request.
func Hydrate(cli *client.Client, snapshot []byte) error {
	if cli == nil {
		return errors.WrapError(
			fmt.Errorf("nil client"),
			errors.ErrNoClient,
			"hydrate",
		)
	}
	return cli.Hydrate(snapshot)
}
