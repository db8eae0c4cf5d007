package bind

import (
	"context"
	"time"

	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/graphbind-io/graphbind/pkg/client"
)

// QueryResult is the default prop injected for query bindings: the current
// loading/error/data state plus control methods delegating to the live
// subscription.
type QueryResult struct {
	Loading bool
	Errors  gqlerror.List
	Err     error
	Data    map[string]interface{}

	watch *client.Watch
	owner *client.Client
}

// AnyError returns the transport error, or the GraphQL error list tagged
// with ErrGraphQL, or nil
func (q *QueryResult) AnyError() error {
	r := client.Result{Errors: q.Errors, Err: q.Err}
	return r.AnyError()
}

// Field extracts a value from Data by dotted path
func (q *QueryResult) Field(path string) (interface{}, bool) {
	r := client.Result{Data: q.Data}
	return r.Field(path)
}

// Refetch re-executes the query, optionally with new variables
func (q *QueryResult) Refetch(ctx context.Context, newVars map[string]interface{}) error {
	return q.watch.Refetch(ctx, newVars)
}

// FetchMore loads an additional page and merges it into the current data
func (q *QueryResult) FetchMore(ctx context.Context, pageOpts client.Options, merge client.MergeFunc) error {
	return q.watch.FetchMore(ctx, pageOpts, merge)
}

// StartPolling begins re-executing the query at the given interval
func (q *QueryResult) StartPolling(interval time.Duration) {
	q.watch.StartPolling(interval)
}

// StopPolling halts polling without tearing down the subscription
func (q *QueryResult) StopPolling() {
	q.watch.StopPolling()
}

// Client exposes the owning client for imperative one-shot reads
func (q *QueryResult) Client() *client.Client {
	return q.owner
}
