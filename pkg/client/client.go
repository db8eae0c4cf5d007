package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/graphbind-io/graphbind/pkg/auth"
	"github.com/graphbind-io/graphbind/pkg/cache"
	"github.com/graphbind-io/graphbind/pkg/config"
	"github.com/graphbind-io/graphbind/pkg/errors"
	"github.com/graphbind-io/graphbind/pkg/operation"
	"github.com/graphbind-io/graphbind/pkg/transport/graphql"
)

// Client executes GraphQL operations against one endpoint and maintains the
// result cache shared by every binding that uses it.
type Client struct {
	profile     *config.Profile
	transport   *graphql.Client
	cache       *cache.Cache
	authHandler auth.Handler
}

// Option configures a Client beyond its profile
type Option func(*Client)

// WithHTTPDoer swaps the HTTP execution layer (test seam)
func WithHTTPDoer(doer graphql.HTTPDoer) Option {
	return func(c *Client) {
		c.transport = graphql.NewClient(doer)
	}
}

// WithCache replaces the result cache, e.g. to share one across clients
func WithCache(rc *cache.Cache) Option {
	return func(c *Client) {
		c.cache = rc
	}
}

// New creates a Client from a profile. The profile's auth, retry and cache
// sections are wired here; options override the built components.
func New(profile *config.Profile, opts ...Option) (*Client, error) {
	if profile == nil || profile.Endpoint == "" {
		return nil, errors.WrapError(
			fmt.Errorf("profile with endpoint is required"),
			errors.ErrConfiguration,
			"create client",
		)
	}

	handler, err := auth.CreateHandler(profile.Auth)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrConfiguration, "create auth handler")
	}

	timeout := 30 * time.Second
	if profile.Defaults != nil && profile.Defaults.Timeout > 0 {
		timeout = profile.Defaults.Timeout
	}
	httpClient := &http.Client{Timeout: timeout}
	if profile.Retry != nil {
		httpClient.Transport = graphql.NewRetryTransport(nil, profile.Retry)
	}

	var maxEntries, maxCost int64
	if profile.Cache != nil {
		maxEntries = profile.Cache.MaxEntries
		maxCost = profile.Cache.MaxCost
	}
	rc, err := cache.New(maxEntries, maxCost)
	if err != nil {
		return nil, err
	}

	c := &Client{
		profile:     profile,
		transport:   graphql.NewClient(httpClient),
		cache:       rc,
		authHandler: handler,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Profile returns the client's configuration profile
func (c *Client) Profile() *config.Profile {
	return c.profile
}

// Cache returns the client's result cache
func (c *Client) Cache() *cache.Cache {
	return c.cache
}

// Snapshot serializes the result cache for client-side rehydration
func (c *Client) Snapshot() ([]byte, error) {
	return c.cache.MarshalSnapshot()
}

// Hydrate loads a serialized snapshot into the result cache. Cache-first
// queries for snapshotted keys are then served without a request.
func (c *Client) Hydrate(snapshot []byte) error {
	return c.cache.RestoreJSON(snapshot)
}

// Query executes a one-shot query. Under the cache-first policy (the
// default) a resident cache entry is served without touching the network.
func (c *Client) Query(ctx context.Context, desc *operation.Descriptor, opts Options) (*Result, error) {
	if desc.Kind() != operation.KindQuery {
		return nil, errors.WrapError(
			fmt.Errorf("operation %q is a %s", desc.Name(), desc.Kind()),
			errors.ErrConfiguration,
			"query requires a query operation",
		)
	}

	key := cache.Key(desc, opts.Variables)
	if c.fetchPolicy(opts) == FetchCacheFirst {
		if data, ok := c.cache.Get(key); ok {
			cached := &graphql.Response{Data: data}
			m, err := cached.DataMap()
			if err == nil {
				return &Result{Data: m}, nil
			}
			// fall through to the network on a corrupt entry
		}
	}

	resp, err := c.exec(ctx, desc, opts.Variables, opts.Headers)
	if err != nil {
		return nil, err
	}

	data, err := resp.DataMap()
	if err != nil {
		return nil, err
	}

	if !resp.HasErrors() && len(resp.Data) > 0 {
		c.cache.Set(key, resp.Data)
	}

	return &Result{Errors: resp.Errors, Data: data}, nil
}

// Mutate executes a one-shot mutation. Mutations are never cached and
// concurrent calls are fully independent.
func (c *Client) Mutate(ctx context.Context, desc *operation.Descriptor, opts Options) (*Result, error) {
	if desc.Kind() != operation.KindMutation {
		return nil, errors.WrapError(
			fmt.Errorf("operation %q is a %s", desc.Name(), desc.Kind()),
			errors.ErrConfiguration,
			"mutate requires a mutation operation",
		)
	}

	resp, err := c.exec(ctx, desc, opts.Variables, opts.Headers)
	if err != nil {
		return nil, err
	}

	data, err := resp.DataMap()
	if err != nil {
		return nil, err
	}

	return &Result{Errors: resp.Errors, Data: data}, nil
}

// exec builds, sends and decodes one operation request
func (c *Client) exec(ctx context.Context, desc *operation.Descriptor, vars map[string]interface{}, headers map[string]string) (*graphql.Response, error) {
	builder := &graphql.Builder{
		Endpoint:      c.profile.Endpoint,
		Query:         desc.Source(),
		OperationName: desc.Name(),
		Variables:     vars,
		AuthHandler:   c.authHandler,
	}
	builder.ApplyOptions(graphql.WithHeaders(c.profile.Headers))
	if len(headers) > 0 {
		builder.ApplyOptions(graphql.WithHeaders(headers))
	}

	req, err := builder.Build(ctx)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrHTTPRequest, "build operation request")
	}

	resp, err := c.transport.Execute(req)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrHTTPRequest, "execute operation")
	}

	return graphql.Decode(resp)
}

// fetchPolicy resolves the effective policy: options, then profile default,
// then cache-first.
func (c *Client) fetchPolicy(opts Options) FetchPolicy {
	if opts.FetchPolicy != "" {
		return opts.FetchPolicy
	}
	if c.profile.Defaults != nil && c.profile.Defaults.FetchPolicy != "" {
		return FetchPolicy(c.profile.Defaults.FetchPolicy)
	}
	return FetchCacheFirst
}
