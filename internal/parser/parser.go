// Package parser provides HLS playlist loading and parsing functionality.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"

	"github.com/agleyzer/hlshealth/internal/fetch"
	"github.com/agleyzer/hlshealth/internal/segment"
	"github.com/agleyzer/hlshealth/internal/variant"
	"github.com/grafov/m3u8"
)

// Fetcher returns the full payload stored at a location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// PlaylistInfo contains the parsed playlist information.
// Supports both master playlists (with multiple variants) and media playlists (single variant).
type PlaylistInfo struct {
	// Location is the absolute URL or path the playlist was loaded from
	Location string

	// IsMaster indicates whether this is a master playlist with multiple variants
	IsMaster bool

	// IsLive is true for media playlists without EXT-X-ENDLIST
	IsLive bool

	// Version is the EXT-X-VERSION value, 0 if unknown
	Version int

	// MediaSequence is the EXT-X-MEDIA-SEQUENCE value (media playlists only)
	MediaSequence uint64

	// TargetDuration is the EXT-X-TARGETDURATION value in seconds, 0 if absent
	TargetDuration float64

	// Variants contains the variant streams (only populated for master playlists)
	Variants []variant.Variant

	// Segments contains the segments in playlist order (only populated for media playlists)
	Segments []segment.Segment
}

// LoadError reports a playlist that could not be fetched or parsed.
type LoadError struct {
	Location string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load playlist %s: %v", e.Location, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Loader fetches and parses playlists through a Fetcher.
type Loader struct {
	fetcher Fetcher
}

// NewLoader creates a new Loader.
func NewLoader(fetcher Fetcher) *Loader {
	return &Loader{fetcher: fetcher}
}

// Load fetches and parses a master or media playlist. Variant media
// playlists of a master are not loaded; use LoadMedia for that.
func (l *Loader) Load(ctx context.Context, location string) (*PlaylistInfo, error) {
	location, err := absLocation(location)
	if err != nil {
		return nil, &LoadError{Location: location, Err: err}
	}

	playlist, listType, err := l.decode(ctx, location)
	if err != nil {
		return nil, &LoadError{Location: location, Err: err}
	}

	var info *PlaylistInfo
	if listType == m3u8.MASTER {
		info, err = parseMasterPlaylist(playlist, location)
	} else {
		info, err = parseMediaPlaylist(playlist, location)
	}
	if err != nil {
		return nil, &LoadError{Location: location, Err: err}
	}
	return info, nil
}

// LoadMedia fetches and parses a playlist that must be a media playlist.
func (l *Loader) LoadMedia(ctx context.Context, location string) (*PlaylistInfo, error) {
	location, err := absLocation(location)
	if err != nil {
		return nil, &LoadError{Location: location, Err: err}
	}

	playlist, listType, err := l.decode(ctx, location)
	if err != nil {
		return nil, &LoadError{Location: location, Err: err}
	}

	// Ensure it's a media playlist
	if listType != m3u8.MEDIA {
		return nil, &LoadError{Location: location, Err: fmt.Errorf("expected media playlist, got master playlist")}
	}

	info, err := parseMediaPlaylist(playlist, location)
	if err != nil {
		return nil, &LoadError{Location: location, Err: err}
	}
	return info, nil
}

func (l *Loader) decode(ctx context.Context, location string) (m3u8.Playlist, m3u8.ListType, error) {
	data, err := l.fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, 0, err
	}

	playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(data), true)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse playlist: %w", err)
	}
	return playlist, listType, nil
}

// parseMediaPlaylist extracts segments and header tags from a media playlist.
func parseMediaPlaylist(playlist m3u8.Playlist, playlistURL string) (*PlaylistInfo, error) {
	mediaPlaylist, ok := playlist.(*m3u8.MediaPlaylist)
	if !ok {
		return nil, fmt.Errorf("unexpected playlist type")
	}

	// Extract segments; the decoder leaves trailing nil slots in the buffer
	var segments []segment.Segment
	for i, seg := range mediaPlaylist.Segments {
		if seg == nil {
			break
		}

		// Resolve segment URL to absolute
		segmentURL, err := resolveURL(playlistURL, seg.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve segment URL: %w", err)
		}

		segments = append(segments, segment.Segment{
			URL:      segmentURL,
			URI:      seg.URI,
			Duration: seg.Duration,
			Sequence: i,
		})
	}

	return &PlaylistInfo{
		Location:       playlistURL,
		IsMaster:       false,
		IsLive:         !mediaPlaylist.Closed,
		Version:        int(mediaPlaylist.Version()),
		MediaSequence:  mediaPlaylist.SeqNo,
		TargetDuration: float64(mediaPlaylist.TargetDuration),
		Segments:       segments,
	}, nil
}

// parseMasterPlaylist extracts variant descriptors from a master playlist.
func parseMasterPlaylist(playlist m3u8.Playlist, masterURL string) (*PlaylistInfo, error) {
	masterPlaylist, ok := playlist.(*m3u8.MasterPlaylist)
	if !ok {
		return nil, fmt.Errorf("unexpected playlist type")
	}

	var variants []variant.Variant
	for _, v := range masterPlaylist.Variants {
		if v == nil {
			continue
		}

		// Resolve variant playlist URL to absolute
		variantURL, err := resolveURL(masterURL, v.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve variant URL: %w", err)
		}

		var programID *int
		if v.ProgramId != 0 {
			id := int(v.ProgramId)
			programID = &id
		}

		variants = append(variants, variant.Variant{
			Bandwidth:   int(v.Bandwidth),
			ProgramID:   programID,
			Resolution:  v.Resolution,
			Codecs:      v.Codecs,
			URI:         v.URI,
			PlaylistURL: variantURL,
		})
	}

	return &PlaylistInfo{
		Location: masterURL,
		IsMaster: true,
		Version:  int(masterPlaylist.Version()),
		Variants: variants,
	}, nil
}

// absLocation turns a relative filesystem path into an absolute one so that
// relative URIs inside the playlist resolve against its directory.
func absLocation(location string) (string, error) {
	if fetch.IsURL(location) {
		return location, nil
	}
	abs, err := filepath.Abs(location)
	if err != nil {
		return location, fmt.Errorf("invalid location: %w", err)
	}
	return filepath.ToSlash(abs), nil
}

// resolveURL resolves a possibly relative URL against a base URL.
// Filesystem bases are joined as plain paths so they are never escaped.
func resolveURL(baseURL, relativeURL string) (string, error) {
	if fetch.IsURL(relativeURL) {
		return relativeURL, nil
	}
	if !fetch.IsURL(baseURL) {
		if path.IsAbs(relativeURL) {
			return path.Clean(relativeURL), nil
		}
		return path.Join(path.Dir(baseURL), relativeURL), nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	rel, err := url.Parse(relativeURL)
	if err != nil {
		return "", fmt.Errorf("invalid relative URL: %w", err)
	}

	// Resolve the relative URL against the base
	resolved := base.ResolveReference(rel)
	return resolved.String(), nil
}
