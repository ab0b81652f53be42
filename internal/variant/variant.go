// Package variant defines data structures for HLS variant streams in master playlists.
package variant

// Variant describes a single variant stream listed in an HLS master playlist.
// Each variant typically represents a different quality level (bitrate/resolution).
type Variant struct {
	// Bandwidth is the peak segment bitrate in bits per second
	Bandwidth int

	// ProgramID is the deprecated PROGRAM-ID attribute; nil when absent
	ProgramID *int

	// Resolution is the video resolution (e.g., "1920x1080", "1280x720")
	// Empty string if not specified in master playlist
	Resolution string

	// Codecs is the codec string (e.g., "avc1.4d401f,mp4a.40.2")
	// Empty string if not specified in master playlist
	Codecs string

	// URI is the variant reference exactly as written in the master playlist
	URI string

	// PlaylistURL is the absolute location of the variant's media playlist
	PlaylistURL string
}
