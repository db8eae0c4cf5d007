package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/graphbind-io/graphbind/pkg/cache"
	"github.com/graphbind-io/graphbind/pkg/errors"
	"github.com/graphbind-io/graphbind/pkg/operation"
)

// MergeFunc combines a previous data payload with a fetch-more page
type MergeFunc func(prev, next map[string]interface{}) map[string]interface{}

// Watch is a live query subscription. Result updates arrive on Updates() in
// delivery order. Changing variables supersedes any in-flight fetch: a
// superseded fetch never delivers (last-variables-wins).
type Watch struct {
	id      string
	client  *Client
	desc    *operation.Descriptor
	ctx     context.Context
	updates chan Result
	done    chan struct{}

	mu         sync.Mutex
	sendMu     sync.Mutex // serializes channel sends in w.last write order
	gen        int
	vars       map[string]interface{}
	headers    map[string]string
	last       Result
	hasData    bool
	stopped    bool
	pollCancel chan struct{}
}

// WatchQuery establishes a live subscription for a query. The initial
// emission is either the cached result (cache-first hit, no request) or a
// loading state followed by the network result.
func (c *Client) WatchQuery(ctx context.Context, desc *operation.Descriptor, opts Options) (*Watch, error) {
	if desc.Kind() != operation.KindQuery {
		return nil, errors.WrapError(
			fmt.Errorf("operation %q is a %s", desc.Name(), desc.Kind()),
			errors.ErrConfiguration,
			"watch requires a query operation",
		)
	}

	w := &Watch{
		id:      uuid.NewString(),
		client:  c,
		desc:    desc,
		ctx:     ctx,
		updates: make(chan Result, 16),
		done:    make(chan struct{}),
		vars:    opts.Variables,
		headers: opts.Headers,
	}

	pollInterval := opts.PollInterval
	if pollInterval == 0 && c.profile.Defaults != nil {
		pollInterval = c.profile.Defaults.PollInterval
	}

	key := cache.Key(desc, opts.Variables)
	if c.fetchPolicy(opts) == FetchCacheFirst {
		if data, ok := c.cache.Get(key); ok {
			if m, err := decodeData(data); err == nil {
				w.deliver(0, Result{Data: m})
				if pollInterval > 0 {
					w.StartPolling(pollInterval)
				}
				return w, nil
			}
		}
	}

	w.deliver(0, Result{Loading: true})
	go w.fetch(ctx, 0, opts.Variables)

	if pollInterval > 0 {
		w.StartPolling(pollInterval)
	}

	return w, nil
}

// ID returns the subscription's unique identifier
func (w *Watch) ID() string {
	return w.id
}

// Updates returns the ordered result stream. The channel is never closed;
// select against Done() to notice teardown.
func (w *Watch) Updates() <-chan Result {
	return w.updates
}

// Done is closed when the watch is stopped
func (w *Watch) Done() <-chan struct{} {
	return w.done
}

// Current returns the most recently delivered result
func (w *Watch) Current() Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Variables returns the watch's current variables
func (w *Watch) Variables() map[string]interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]interface{}, len(w.vars))
	for k, v := range w.vars {
		out[k] = v
	}
	return out
}

// Refetch re-executes the query against the network. Passing newVars
// replaces the watch's variables; a variable change resets accumulated data
// rather than revalidating it.
func (w *Watch) Refetch(ctx context.Context, newVars map[string]interface{}) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return errors.ErrTornDown
	}

	if newVars != nil {
		if !operation.VariablesEqual(w.vars, newVars) {
			// new identity, stale data no longer applies
			w.hasData = false
			w.last.Data = nil
		}
		w.vars = newVars
	}

	w.gen++
	gen := w.gen
	vars := w.vars
	w.mu.Unlock()

	w.deliver(gen, Result{Loading: true})
	go w.fetch(ctx, gen, vars)
	return nil
}

// FetchMore executes the query with page variables layered over the watch's
// variables and merges the page into the current data via merge. The
// watch's own variables are untouched, so the subscription identity stays
// the same.
func (w *Watch) FetchMore(ctx context.Context, pageOpts Options, merge MergeFunc) error {
	if merge == nil {
		return errors.WrapError(
			fmt.Errorf("merge function is required"),
			errors.ErrValidation,
			"fetch more",
		)
	}

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return errors.ErrTornDown
	}
	gen := w.gen
	vars := make(map[string]interface{}, len(w.vars)+len(pageOpts.Variables))
	for k, v := range w.vars {
		vars[k] = v
	}
	for k, v := range pageOpts.Variables {
		vars[k] = v
	}
	w.mu.Unlock()

	resp, err := w.client.exec(ctx, w.desc, vars, w.headers)
	if err != nil {
		w.deliver(gen, Result{Err: err})
		return err
	}

	next, err := resp.DataMap()
	if err != nil {
		w.deliver(gen, Result{Err: err})
		return err
	}

	w.mu.Lock()
	prev := w.last.Data
	w.mu.Unlock()

	w.deliver(gen, Result{Errors: resp.Errors, Data: merge(prev, next)})
	return nil
}

// StartPolling re-executes the query at the given interval until
// StopPolling or Stop. Poll results ride the normal update stream.
func (w *Watch) StartPolling(interval time.Duration) {
	if interval <= 0 {
		return
	}

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	if w.pollCancel != nil {
		close(w.pollCancel)
	}
	cancel := make(chan struct{})
	w.pollCancel = cancel
	w.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.mu.Lock()
				if w.stopped {
					w.mu.Unlock()
					return
				}
				gen := w.gen
				vars := w.vars
				w.mu.Unlock()
				// sequential fetch keeps poll deliveries ordered
				w.fetch(w.ctx, gen, vars)
			case <-cancel:
				return
			case <-w.done:
				return
			}
		}
	}()
}

// StopPolling halts the poll loop; the subscription stays live
func (w *Watch) StopPolling() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pollCancel != nil {
		close(w.pollCancel)
		w.pollCancel = nil
	}
}

// Stop tears the subscription down. In-flight fetches are superseded and
// never deliver.
func (w *Watch) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.gen++
	if w.pollCancel != nil {
		close(w.pollCancel)
		w.pollCancel = nil
	}
	w.mu.Unlock()
	close(w.done)
}

// fetch executes against the network and delivers the outcome, unless the
// generation was superseded meanwhile.
func (w *Watch) fetch(ctx context.Context, gen int, vars map[string]interface{}) {
	resp, err := w.client.exec(ctx, w.desc, vars, w.headers)
	if err != nil {
		w.deliver(gen, Result{Err: err})
		return
	}

	data, err := resp.DataMap()
	if err != nil {
		w.deliver(gen, Result{Err: err})
		return
	}

	if !resp.HasErrors() && len(resp.Data) > 0 {
		w.client.cache.Set(cache.Key(w.desc, vars), resp.Data)
	}

	w.deliver(gen, Result{Errors: resp.Errors, Data: data})
}

// deliver emits a result if gen is still current. Loading emissions keep
// the previous data payload (stale-while-revalidate).
func (w *Watch) deliver(gen int, res Result) {
	w.mu.Lock()
	if w.stopped || gen != w.gen {
		w.mu.Unlock()
		return
	}
	if res.Loading && res.Data == nil && w.hasData {
		res.Data = w.last.Data
	}
	w.last = res
	if res.Data != nil {
		w.hasData = true
	}
	// sendMu is taken before mu is released so two same-generation
	// deliveries reach the channel in the order their states were written
	w.sendMu.Lock()
	w.mu.Unlock()

	select {
	case w.updates <- res:
	case <-w.done:
	}
	w.sendMu.Unlock()
}

func decodeData(data []byte) (map[string]interface{}, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
