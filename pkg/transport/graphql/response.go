package graphql

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/graphbind-io/graphbind/pkg/errors"
)

// Response is the standard GraphQL wire response: a data payload and/or a
// list of execution errors. Both may be present at once (partial results).
type Response struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors gqlerror.List   `json:"errors,omitempty"`
}

// HasErrors reports whether the server returned execution errors
func (r *Response) HasErrors() bool {
	return len(r.Errors) > 0
}

// DataMap unmarshals the data payload into a generic map. A null or absent
// payload yields nil.
func (r *Response) DataMap() (map[string]interface{}, error) {
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return nil, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(r.Data, &m); err != nil {
		return nil, errors.WrapError(err, errors.ErrHTTPResponse, "decode data payload")
	}
	return m, nil
}

// Decode reads and closes an HTTP response, returning the parsed GraphQL
// response. Non-2xx statuses are an ErrHTTPResponse.
func Decode(resp *http.Response) (*Response, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrHTTPResponse, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.WrapError(
			fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, truncate(body, 512)),
			errors.ErrHTTPResponse,
			"unexpected status code",
		)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.WrapError(err, errors.ErrHTTPResponse, "decode GraphQL response")
	}

	return &out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
