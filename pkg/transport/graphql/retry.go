package graphql

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/graphbind-io/graphbind/pkg/config"
)

// HTTPError wraps HTTP error responses
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// RetryTransport retries failed GraphQL requests. Unlike a general REST
// retry layer it will replay POSTs, but only when the request body is
// rewindable via GetBody; requests built by Builder always are.
type RetryTransport struct {
	Base   http.RoundTripper
	Cfg    *config.Retry
	jitter *rand.Rand // Localized jitter source
}

// NewRetryTransport creates a new retry transport
func NewRetryTransport(base http.RoundTripper, cfg *config.Retry) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RetryTransport{
		Base:   base,
		Cfg:    cfg,
		jitter: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Cfg == nil || t.Cfg.MaxAttempts <= 1 {
		return t.Base.RoundTrip(req)
	}

	// A body we can't rewind can't be retried safely
	if req.Body != nil && req.GetBody == nil {
		return t.Base.RoundTrip(req)
	}

	var lastErr error
	var lastResp *http.Response

	for attempt := 0; attempt < t.Cfg.MaxAttempts; attempt++ {
		req2, err := t.cloneRequest(req)
		if err != nil {
			return nil, err
		}

		resp, err := t.Base.RoundTrip(req2)

		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				// retryable network error
				lastErr = err
			} else {
				return nil, err
			}
		} else {
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				if lastResp != nil {
					lastResp.Body.Close()
				}
				return resp, nil
			}

			if !t.retryableStatus(resp.StatusCode) {
				if lastResp != nil {
					lastResp.Body.Close()
				}
				if resp.StatusCode >= 400 {
					resp.Body.Close()
					return nil, &HTTPError{
						StatusCode: resp.StatusCode,
						Status:     resp.Status,
					}
				}
				return resp, nil
			}

			if lastResp != nil {
				lastResp.Body.Close()
			}
			lastResp = resp
		}

		if ctxErr := req.Context().Err(); ctxErr != nil {
			if lastResp != nil {
				lastResp.Body.Close()
			}
			return nil, ctxErr
		}

		// Don't wait after the last attempt
		if attempt < t.Cfg.MaxAttempts-1 {
			delay := t.backoff(attempt)
			if lastResp != nil {
				if ra := retryAfter(lastResp); ra > delay {
					delay = ra
				}
			}

			select {
			case <-req.Context().Done():
				if lastResp != nil {
					lastResp.Body.Close()
				}
				return nil, req.Context().Err()
			case <-time.After(delay):
			}
		}
	}

	if lastResp != nil {
		lastResp.Body.Close()
		return nil, &HTTPError{
			StatusCode: lastResp.StatusCode,
			Status:     lastResp.Status,
		}
	}
	return nil, fmt.Errorf("all %d attempts failed: %w", t.Cfg.MaxAttempts, lastErr)
}

// cloneRequest makes a fresh request with a rewound body for the next attempt
func (t *RetryTransport) cloneRequest(req *http.Request) (*http.Request, error) {
	req2 := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewind request body: %w", err)
		}
		req2.Body = body
	}
	return req2, nil
}

func (t *RetryTransport) retryableStatus(status int) bool {
	for _, s := range t.Cfg.RetryableStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// backoff computes exponential delay with jitter for the given attempt
func (t *RetryTransport) backoff(attempt int) time.Duration {
	base := t.Cfg.BaseBackoff
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	max := t.Cfg.MaxBackoff
	if max <= 0 {
		max = 30 * time.Second
	}

	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if delay > max {
		delay = max
	}

	// Up to 25% jitter to spread concurrent retries
	jitter := time.Duration(t.jitter.Int63n(int64(delay)/4 + 1))
	return delay + jitter
}

// retryAfter honors a Retry-After header expressed in seconds
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
