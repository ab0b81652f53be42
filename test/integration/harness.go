// Package integration provides integration testing utilities for hlshealth.
package integration

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/agleyzer/hlshealth/pkg/container"
)

// TestHarness serves an HLS tree from a temporary directory.
type TestHarness struct {
	t       *testing.T
	server  *httptest.Server
	rootDir string

	mu       sync.Mutex
	failures map[string][]int // path -> statuses returned before the file is served
	requests map[string]int
}

// NewTestHarness creates a harness with an empty origin.
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()

	h := &TestHarness{
		t:        t,
		rootDir:  t.TempDir(),
		failures: map[string][]int{},
		requests: map[string]int{},
	}

	fileServer := http.FileServer(http.Dir(h.rootDir))
	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.requests[r.URL.Path]++
		var status int
		if queue := h.failures[r.URL.Path]; len(queue) > 0 {
			status = queue[0]
			h.failures[r.URL.Path] = queue[1:]
		}
		h.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		fileServer.ServeHTTP(w, r)
	}))
	t.Cleanup(h.server.Close)

	return h
}

// URL returns the absolute URL of name on the origin.
func (h *TestHarness) URL(name string) string {
	return h.server.URL + "/" + name
}

// Dir returns the directory served by the origin.
func (h *TestHarness) Dir() string {
	return h.rootDir
}

// AddFile writes content at name under the origin root.
func (h *TestHarness) AddFile(name string, content []byte) {
	h.t.Helper()

	path := filepath.Join(h.rootDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		h.t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		h.t.Fatalf("failed to write %s: %v", name, err)
	}
}

// AddMediaPlaylist writes a VOD media playlist at dir/index.m3u8 with the
// given segment payloads, named seg000.ext, seg001.ext, ...
func (h *TestHarness) AddMediaPlaylist(dir, ext string, segments [][]byte) {
	h.t.Helper()

	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:2\n#EXT-X-MEDIA-SEQUENCE:0\n")
	for i, data := range segments {
		name := fmt.Sprintf("seg%03d.%s", i, ext)
		fmt.Fprintf(&b, "#EXTINF:2.000,\n%s\n", name)
		h.AddFile(dir+"/"+name, data)
	}
	b.WriteString("#EXT-X-ENDLIST\n")

	h.AddFile(dir+"/index.m3u8", []byte(b.String()))
}

// FailNext makes the next requests for name answer with the given statuses.
func (h *TestHarness) FailNext(name string, statuses ...int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures["/"+name] = append(h.failures["/"+name], statuses...)
}

// Requests returns how many times name was requested.
func (h *TestHarness) Requests(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requests["/"+name]
}

// TSSegment returns a payload of n MPEG-TS packets.
func TSSegment(n int) []byte {
	buf := make([]byte, n*container.PacketSize)
	for i := 0; i < n; i++ {
		buf[i*container.PacketSize] = 0x47
		buf[i*container.PacketSize+1] = 0x40
	}
	return buf
}

// ADTSSegment returns frames ADTS frames of size bytes each.
func ADTSSegment(frames, size int) []byte {
	buf := make([]byte, 0, frames*size)
	for i := 0; i < frames; i++ {
		frame := make([]byte, size)
		frame[0], frame[1], frame[2], frame[3] = 0xFF, 0xF1, 0x50, 0x80
		buf = append(buf, frame...)
	}
	return buf
}
