package bind

import (
	"fmt"

	"github.com/graphbind-io/graphbind/pkg/client"
	"github.com/graphbind-io/graphbind/pkg/errors"
)

// Scope supplies a Client to bound components, the explicit-injection form
// of an ambient provider. Scopes nest; lookup walks outward and the
// innermost client wins.
type Scope struct {
	client *client.Client
	parent *Scope
}

// NewScope creates a root scope providing c
func NewScope(c *client.Client) *Scope {
	return &Scope{client: c}
}

// Child creates a nested scope whose client shadows the parent's
func (s *Scope) Child(c *client.Client) *Scope {
	return &Scope{client: c, parent: s}
}

// ClientFrom resolves the innermost client visible from s. A nil or empty
// scope chain is a fatal configuration error, not a recoverable state.
func ClientFrom(s *Scope) (*client.Client, error) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.client != nil {
			return cur.client, nil
		}
	}
	return nil, errors.WrapError(
		fmt.Errorf("no client provided in scope chain"),
		errors.ErrNoClient,
		"resolve client",
	)
}
