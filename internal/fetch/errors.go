package fetch

import (
	"fmt"
)

// FetchError reports a failed fetch after retries were exhausted.
type FetchError struct {
	URL string
	// StatusCode is the last HTTP status received, 0 for transport failures.
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
