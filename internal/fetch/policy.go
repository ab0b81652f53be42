package fetch

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Policy controls how transient failures are retried.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BackoffMin is the wait before the first retry.
	BackoffMin time.Duration
	// BackoffMax caps the wait between retries.
	BackoffMax time.Duration
	// RetryStatuses lists the HTTP status codes that are retried.
	RetryStatuses []int
}

// DefaultPolicy retries gateway errors twice with capped exponential backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:    2,
		BackoffMin:    300 * time.Millisecond,
		BackoffMax:    5 * time.Second,
		RetryStatuses: []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
	}
}

// NoRetry fails on the first error.
func NoRetry() Policy {
	return Policy{}
}

func (p Policy) retryable(status int) bool {
	for _, s := range p.RetryStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// checkRetry retries transport errors the way retryablehttp does by default,
// but only the configured status codes.
func (p Policy) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return p.retryable(resp.StatusCode), nil
}
