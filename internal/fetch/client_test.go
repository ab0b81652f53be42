package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agleyzer/hlshealth/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func fastPolicy(retries int) Policy {
	p := DefaultPolicy()
	p.MaxRetries = retries
	p.BackoffMin = time.Millisecond
	p.BackoffMax = 2 * time.Millisecond
	return p
}

func TestFetch_Success(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	c := New(Options{Timeout: time.Second, Policy: fastPolicy(2), UserAgent: "hls-health/test"})
	defer c.Close()

	data, err := c.Fetch(context.Background(), server.URL+"/seg.ts")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("Expected payload, got %q", data)
	}
	if gotUA != "hls-health/test" {
		t.Errorf("Expected user agent hls-health/test, got %q", gotUA)
	}
}

func TestFetch_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c := New(Options{Timeout: time.Second, Policy: fastPolicy(2), Metrics: m})
	defer c.Close()

	data, err := c.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(data) != "ok" {
		t.Errorf("Expected ok, got %q", data)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls.Load())
	}
	if got := testutil.ToFloat64(m.Retries); got != 2 {
		t.Errorf("Expected 2 retries recorded, got %v", got)
	}
}

func TestFetch_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := New(Options{Timeout: time.Second, Policy: fastPolicy(1)})
	defer c.Close()

	_, err := c.Fetch(context.Background(), server.URL)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Expected *FetchError, got %v", err)
	}
	if fe.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", fe.StatusCode)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", calls.Load())
	}
}

func TestFetch_NonRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := New(Options{Timeout: time.Second, Policy: fastPolicy(3)})
	defer c.Close()

	_, err := c.Fetch(context.Background(), server.URL)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected HTTP 404 FetchError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected a single attempt, got %d", calls.Load())
	}
}

func TestFetch_NoRetryPolicy(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer server.Close()

	c := New(Options{Timeout: time.Second, Policy: NoRetry()})
	defer c.Close()

	if _, err := c.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error, got nil")
	}
	if calls.Load() != 1 {
		t.Errorf("Expected a single attempt, got %d", calls.Load())
	}
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := New(Options{Timeout: 20 * time.Millisecond, Policy: NoRetry()})
	defer c.Close()

	_, err := c.Fetch(context.Background(), server.URL)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Expected *FetchError, got %v", err)
	}
	if fe.StatusCode != 0 {
		t.Errorf("Expected transport failure, got status %d", fe.StatusCode)
	}
}

func TestFetch_LocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seg.ts")
	if err := os.WriteFile(path, []byte{0x47, 1, 2, 3}, 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	c := New(Options{Timeout: time.Second})
	defer c.Close()

	for _, location := range []string{path, "file://" + path} {
		data, err := c.Fetch(context.Background(), location)
		if err != nil {
			t.Fatalf("Expected no error for %s, got %v", location, err)
		}
		if len(data) != 4 {
			t.Errorf("Expected 4 bytes for %s, got %d", location, len(data))
		}
	}

	if _, err := c.Fetch(context.Background(), filepath.Join(dir, "missing.ts")); err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}

func TestFetch_UnsupportedScheme(t *testing.T) {
	c := New(Options{Timeout: time.Second})
	defer c.Close()

	_, err := c.Fetch(context.Background(), "ftp://example.com/seg.ts")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Expected *FetchError, got %v", err)
	}
}

func TestPolicy_Retryable(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusOK, false},
		{http.StatusNotFound, false},
		{http.StatusInternalServerError, false},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, true},
	}
	for _, tt := range tests {
		if got := p.retryable(tt.status); got != tt.want {
			t.Errorf("retryable(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestFetch_LocalFileNeedingEscape(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my streams")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	path := filepath.Join(dir, "seg%zz.ts")
	if err := os.WriteFile(path, []byte{0xFF, 0xF1, 0x50, 0x80}, 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	c := New(Options{Timeout: time.Second})
	defer c.Close()

	data, err := c.Fetch(context.Background(), path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(data) != 4 {
		t.Errorf("Expected 4 bytes, got %d", len(data))
	}
}

func TestIsURL(t *testing.T) {
	tests := []struct {
		location string
		want     bool
	}{
		{"https://example.com/a.m3u8", true},
		{"http://example.com/a.m3u8", true},
		{"file:///tmp/a.m3u8", true},
		{"ftp://example.com/a.ts", true},
		{"/tmp/my streams/a.m3u8", false},
		{"relative/seg%zz.ts", false},
		{"C:/media/a.m3u8", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsURL(tt.location); got != tt.want {
			t.Errorf("IsURL(%q) = %v, want %v", tt.location, got, tt.want)
		}
	}
}
