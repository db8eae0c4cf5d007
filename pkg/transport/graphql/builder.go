package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/graphbind-io/graphbind/pkg/auth"
)

// Builder constructs GraphQL HTTP requests.
type Builder struct {
	Endpoint      string
	Query         string
	OperationName string
	Variables     map[string]interface{}
	Headers       map[string]string
	AuthHandler   auth.Handler
}

// NewBuilder sets up a GraphQL Builder.
// Endpoint is the full URL of the GraphQL endpoint.
func NewBuilder(endpoint, query string, opts ...BuilderOption) *Builder {
	b := &Builder{
		Endpoint: endpoint,
		Query:    query,
	}
	b.ApplyOptions(opts...)
	return b
}

// requestBody is the standard GraphQL-over-HTTP POST payload
type requestBody struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// Build creates the *http.Request with JSON body. The body is rewindable
// via GetBody so the retry transport can replay it.
func (b *Builder) Build(ctx context.Context) (*http.Request, error) {
	buf, err := json.Marshal(requestBody{
		Query:         b.Query,
		OperationName: b.OperationName,
		Variables:     b.Variables,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}

	for k, v := range b.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if b.AuthHandler != nil {
		if err := b.AuthHandler.ApplyAuth(req); err != nil {
			return nil, err
		}
	}

	return req, nil
}
