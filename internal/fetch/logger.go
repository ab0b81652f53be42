package fetch

import (
	"io"

	"github.com/hashicorp/go-hclog"
)

// NewLogger creates the hclog.Logger used by the retrying client.
// Debug level logs every attempt; Warn only surfaces retries.
func NewLogger(w io.Writer, verbose bool) hclog.Logger {
	level := hclog.Warn
	if verbose {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "fetch",
		Level:  level,
		Output: w,
	})
}

// newNoOpLogger silences retryablehttp, which logs to stderr by default.
func newNoOpLogger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "fetch",
		Level:  hclog.Off,
		Output: io.Discard,
	})
}
