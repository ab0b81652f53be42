// Package segment defines data structures for HLS media segments.
package segment

// Segment represents a single HLS media segment listed in a media playlist.
type Segment struct {
	// URL is the absolute segment location, resolved against the playlist location
	URL string

	// URI is the segment reference exactly as written in the playlist
	URI string

	// Duration is the segment duration in seconds
	Duration float64

	// Sequence is the position in the source playlist (0-based)
	Sequence int
}
