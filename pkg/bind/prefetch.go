package bind

import (
	"context"

	"github.com/graphbind-io/graphbind/pkg/operation"
)

// Prefetch resolves this binding's query into the scope client's cache, for
// server-side data collection before rendering. Mutations, skipped
// bindings and bindings opted out via ssr:false are no-ops. The fetch is
// cache-first, so repeated prefetch passes stay idempotent.
func (b *Bound) Prefetch(ctx context.Context, scope *Scope, ownProps Props) error {
	if b.desc.Kind() != operation.KindQuery {
		return nil
	}

	cli, err := ClientFrom(scope)
	if err != nil {
		return err
	}

	opts := b.cfg.effectiveOptions(ownProps)
	if opts.Skip || (b.cfg.Skip != nil && b.cfg.Skip(ownProps)) {
		return nil
	}
	if !opts.SSREnabled() {
		return nil
	}

	opts.Variables = operation.ResolveVariables(b.desc, opts.Variables, ownProps)
	opts.PollInterval = 0

	_, err = cli.Query(ctx, b.desc, opts)
	return err
}
