package client

import "time"

// FetchPolicy controls how a query consults the result cache
type FetchPolicy string

const (
	// FetchCacheFirst serves cached data without a request when present
	FetchCacheFirst FetchPolicy = "cache-first"
	// FetchNetworkOnly always executes against the endpoint
	FetchNetworkOnly FetchPolicy = "network-only"
)

// Options carries per-operation settings. The zero value is usable: empty
// variables, profile-default fetch policy, no polling, SSR enabled.
type Options struct {
	Variables    map[string]interface{}
	Headers      map[string]string
	FetchPolicy  FetchPolicy
	PollInterval time.Duration
	SSR          *bool
	Skip         bool
}

// SSREnabled reports whether the operation participates in server-side
// prefetch; unset means yes.
func (o Options) SSREnabled() bool {
	return o.SSR == nil || *o.SSR
}

// Merge layers call-time options over o. Call-time scalar fields win when
// set; variables and headers merge per key with call-time entries winning.
func (o Options) Merge(call Options) Options {
	merged := o

	if len(call.Variables) > 0 {
		vars := make(map[string]interface{}, len(o.Variables)+len(call.Variables))
		for k, v := range o.Variables {
			vars[k] = v
		}
		for k, v := range call.Variables {
			vars[k] = v
		}
		merged.Variables = vars
	}

	if len(call.Headers) > 0 {
		headers := make(map[string]string, len(o.Headers)+len(call.Headers))
		for k, v := range o.Headers {
			headers[k] = v
		}
		for k, v := range call.Headers {
			headers[k] = v
		}
		merged.Headers = headers
	}

	if call.FetchPolicy != "" {
		merged.FetchPolicy = call.FetchPolicy
	}
	if call.PollInterval != 0 {
		merged.PollInterval = call.PollInterval
	}
	if call.SSR != nil {
		merged.SSR = call.SSR
	}
	if call.Skip {
		merged.Skip = true
	}

	return merged
}

// Bool is a convenience for the SSR pointer field
func Bool(v bool) *bool {
	return &v
}
