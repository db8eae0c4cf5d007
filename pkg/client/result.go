package client

import (
	"strings"

	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/graphbind-io/graphbind/pkg/errors"
)

// Result is the loading/error/data triple a query resolves to. During a
// refresh Loading is true while Data still holds the previous payload, so
// consumers can keep rendering stale data instead of blanking.
type Result struct {
	Loading bool
	Errors  gqlerror.List // GraphQL execution errors from the server
	Err     error         // transport-level failure, if any
	Data    map[string]interface{}
}

// OK reports whether the result carries data and no errors of either kind
func (r Result) OK() bool {
	return !r.Loading && r.Err == nil && len(r.Errors) == 0 && r.Data != nil
}

// AnyError returns the transport error, or the GraphQL error list tagged
// with ErrGraphQL, or nil.
func (r Result) AnyError() error {
	if r.Err != nil {
		return r.Err
	}
	if len(r.Errors) > 0 {
		return errors.WrapError(r.Errors, errors.ErrGraphQL, "operation returned errors")
	}
	return nil
}

// Field extracts a value from Data by dotted path, e.g. "user.name"
func (r Result) Field(path string) (interface{}, bool) {
	return extractField(r.Data, path)
}

// extractField digs into nested maps via a dotted path
func extractField(data map[string]interface{}, path string) (interface{}, bool) {
	if path == "" || data == nil {
		return nil, false
	}

	if !strings.Contains(path, ".") {
		value, ok := data[path]
		return value, ok
	}

	parts := strings.Split(path, ".")
	var current interface{} = data

	for _, part := range parts {
		currentMap, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}

		current, ok = currentMap[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}
