// Package bind attaches GraphQL operation results to components as props.
//
// Bind wraps a component with a query or mutation descriptor. The wrapper
// derives operation variables from the component's own props, keeps a live
// subscription while mounted, and re-renders the component whenever the
// result changes. A custom props mapping fully replaces the default
// injection, so wrapped components never have to know this package exists.
package bind

import (
	"context"

	"github.com/graphbind-io/graphbind/pkg/client"
	"github.com/graphbind-io/graphbind/pkg/operation"
)

// Props is the property bag a component renders from
type Props map[string]interface{}

// Component is anything that can render a set of props
type Component interface {
	Render(Props)
}

// RenderFunc adapts a function to the Component interface
type RenderFunc func(Props)

// Render calls f
func (f RenderFunc) Render(p Props) { f(p) }

// MutateFunc dispatches a bound mutation. Call-time options merge over the
// binding's configured options. Every call is an independent one-shot
// operation; concurrent calls resolve in any order.
type MutateFunc func(ctx context.Context, callOpts client.Options) (*client.Result, error)

// Injected is what a custom props mapping receives. Data is set in query
// mode (nil when the binding is skipped), Mutate in mutation mode.
type Injected struct {
	OwnProps Props
	Data     *QueryResult
	Mutate   MutateFunc
}

// Config is per-binding configuration, immutable after Bind.
type Config struct {
	// Name aliases the injected prop. Defaults to "data" for queries and
	// "mutate" for mutations.
	Name string

	// Options derives operation options from the component's own props.
	// Recomputed on every props change.
	Options func(Props) client.Options

	// Props maps the binding's result to the props injected into the
	// wrapped component. When set it fully replaces the default injection.
	Props func(Injected) Props

	// Skip suppresses the operation entirely when it returns true: no
	// subscription, no request.
	Skip func(Props) bool
}

// Bind wraps components with desc. Query descriptors produce a live result
// binding, mutation descriptors a callable binding; the wrapping shape is
// identical.
func Bind(desc *operation.Descriptor, cfg Config) func(Component) *Bound {
	return func(component Component) *Bound {
		return &Bound{
			desc:      desc,
			cfg:       cfg,
			component: component,
		}
	}
}

// propName resolves the injected prop's name for the operation kind
func (c Config) propName(kind operation.Kind) string {
	if c.Name != "" {
		return c.Name
	}
	if kind == operation.KindMutation {
		return "mutate"
	}
	return "data"
}

// effectiveOptions evaluates the config's options function for ownProps
func (c Config) effectiveOptions(ownProps Props) client.Options {
	if c.Options == nil {
		return client.Options{}
	}
	return c.Options(Props(ownProps))
}
