package bind

import (
	"context"
	"fmt"
	"sync"

	"github.com/graphbind-io/graphbind/pkg/client"
	"github.com/graphbind-io/graphbind/pkg/errors"
	"github.com/graphbind-io/graphbind/pkg/operation"
)

var (
	errAlreadyMounted = fmt.Errorf("binding is already mounted")
	errNotMounted     = fmt.Errorf("binding is not mounted")
)

// Bound is a component wrapped by Bind. Mount attaches it to a scope's
// client, SetProps re-renders it with new owner props, Unmount tears the
// subscription down. All lifecycle methods are safe for concurrent use,
// but a component's Render must not call back into its own Bound
// synchronously.
type Bound struct {
	desc      *operation.Descriptor
	cfg       Config
	component Component

	mu       sync.Mutex
	mounted  bool
	client   *client.Client
	ctx      context.Context
	ownProps Props

	// query-mode subscription state
	watch      *client.Watch
	lastVars   map[string]interface{}
	skipped    bool
	lastResult client.Result
	haveResult bool
}

// Descriptor returns the operation this binding wraps
func (b *Bound) Descriptor() *operation.Descriptor {
	return b.desc
}

// Mount resolves the scope's client and performs the first render. A scope
// without a client is a fatal configuration error.
func (b *Bound) Mount(ctx context.Context, scope *Scope, ownProps Props) error {
	cli, err := ClientFrom(scope)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.mounted {
		return errors.WrapError(
			errAlreadyMounted,
			errors.ErrValidation,
			"mount binding",
		)
	}

	b.mounted = true
	b.client = cli
	b.ctx = ctx
	b.ownProps = ownProps

	if b.desc.Kind() == operation.KindMutation {
		b.renderMutationLocked()
		return nil
	}
	return b.applyQueryPropsLocked(ctx, ownProps)
}

// SetProps delivers new owner props, recomputing options, variables and
// skip state. For queries an unchanged resolved state reuses the live
// subscription; a change tears it down and subscribes afresh.
func (b *Bound) SetProps(ctx context.Context, ownProps Props) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.mounted {
		return errors.WrapError(
			errNotMounted,
			errors.ErrValidation,
			"set props",
		)
	}

	b.ownProps = ownProps

	if b.desc.Kind() == operation.KindMutation {
		b.renderMutationLocked()
		return nil
	}
	return b.applyQueryPropsLocked(ctx, ownProps)
}

// Unmount stops the subscription and detaches the component
func (b *Bound) Unmount() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.watch != nil {
		b.watch.Stop()
		b.watch = nil
	}
	b.mounted = false
	b.haveResult = false
	b.lastResult = client.Result{}
}

// applyQueryPropsLocked reconciles the subscription with the current props.
// Caller holds b.mu.
func (b *Bound) applyQueryPropsLocked(ctx context.Context, ownProps Props) error {
	opts := b.cfg.effectiveOptions(ownProps)
	vars := operation.ResolveVariables(b.desc, opts.Variables, ownProps)
	skip := opts.Skip || (b.cfg.Skip != nil && b.cfg.Skip(ownProps))

	if skip {
		// no subscription while skipped; tear down any live one
		if b.watch != nil {
			b.watch.Stop()
			b.watch = nil
		}
		b.skipped = true
		b.haveResult = false
		b.lastResult = client.Result{}
		b.renderSkippedLocked()
		return nil
	}

	if b.watch != nil && !b.skipped && operation.VariablesEqual(vars, b.lastVars) {
		// same subscription identity; just re-render with current state
		b.renderQueryLocked()
		return nil
	}

	// Teardown strictly before the replacement subscribes, so a late
	// result from the old watch can never land after the new one starts.
	if b.watch != nil {
		b.watch.Stop()
		b.watch = nil
		b.haveResult = false
		b.lastResult = client.Result{}
	}

	opts.Variables = vars
	w, err := b.client.WatchQuery(ctx, b.desc, opts)
	if err != nil {
		return err
	}

	b.watch = w
	b.lastVars = vars
	b.skipped = false
	go b.pump(w)
	return nil
}

// pump forwards watch updates into renders until the watch dies or is
// replaced.
func (b *Bound) pump(w *client.Watch) {
	for {
		select {
		case res := <-w.Updates():
			b.mu.Lock()
			if !b.mounted || b.watch != w {
				b.mu.Unlock()
				return
			}
			b.lastResult = res
			b.haveResult = true
			b.renderQueryLocked()
			b.mu.Unlock()
		case <-w.Done():
			return
		}
	}
}

// renderQueryLocked injects the current query state. Caller holds b.mu.
func (b *Bound) renderQueryLocked() {
	qr := &QueryResult{
		Loading: b.lastResult.Loading,
		Errors:  b.lastResult.Errors,
		Err:     b.lastResult.Err,
		Data:    b.lastResult.Data,
		watch:   b.watch,
		owner:   b.client,
	}
	if !b.haveResult {
		qr.Loading = true
	}

	var injected Props
	if b.cfg.Props != nil {
		injected = b.cfg.Props(Injected{OwnProps: b.ownProps, Data: qr})
	} else {
		injected = Props{b.cfg.propName(operation.KindQuery): qr}
	}

	b.component.Render(mergeProps(b.ownProps, injected))
}

// renderSkippedLocked renders without any result prop. Caller holds b.mu.
func (b *Bound) renderSkippedLocked() {
	var injected Props
	if b.cfg.Props != nil {
		injected = b.cfg.Props(Injected{OwnProps: b.ownProps})
	}
	b.component.Render(mergeProps(b.ownProps, injected))
}

// renderMutationLocked injects the mutate callable. Caller holds b.mu.
func (b *Bound) renderMutationLocked() {
	mutate := b.mutateFunc()

	var injected Props
	if b.cfg.Props != nil {
		injected = b.cfg.Props(Injected{OwnProps: b.ownProps, Mutate: mutate})
	} else {
		injected = Props{b.cfg.propName(operation.KindMutation): mutate}
	}

	b.component.Render(mergeProps(b.ownProps, injected))
}

// mutateFunc builds the injected mutation callable. Config options are
// resolved against the props current at call time, then call options merge
// over them.
func (b *Bound) mutateFunc() MutateFunc {
	return func(ctx context.Context, callOpts client.Options) (*client.Result, error) {
		b.mu.Lock()
		ownProps := b.ownProps
		cli := b.client
		b.mu.Unlock()

		if cli == nil {
			return nil, errors.WrapError(
				errNotMounted,
				errors.ErrValidation,
				"mutate",
			)
		}

		opts := b.cfg.effectiveOptions(ownProps).Merge(callOpts)
		opts.Variables = operation.ResolveVariables(b.desc, opts.Variables, ownProps)
		return cli.Mutate(ctx, b.desc, opts)
	}
}

// mergeProps overlays injected props on ownProps without mutating either
func mergeProps(ownProps, injected Props) Props {
	merged := make(Props, len(ownProps)+len(injected))
	for k, v := range ownProps {
		merged[k] = v
	}
	for k, v := range injected {
		merged[k] = v
	}
	return merged
}
