// Package report holds the analysis report and renders it as JSON or text.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/agleyzer/hlshealth/internal/parser"
	"github.com/agleyzer/hlshealth/internal/probe"
)

// Report is the outcome of one analysis run.
type Report struct {
	RunID       string
	GeneratedAt time.Time
	Playlist    Summary
	Variants    []Variant

	// Sampled is set when segment sampling was requested. SegmentProbes is
	// then always encoded, as [] when nothing could be sampled.
	Sampled       bool
	SegmentProbes []probe.SegmentProbe
	ProbeErrors   []probe.Failure
}

type reportJSON struct {
	RunID         string                `json:"run_id"`
	GeneratedAt   time.Time             `json:"generated_at"`
	Playlist      Summary               `json:"playlist"`
	Variants      []Variant             `json:"variants"`
	SegmentProbes *[]probe.SegmentProbe `json:"segment_probes,omitempty"`
	ProbeErrors   []probe.Failure       `json:"probe_errors,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		RunID:       r.RunID,
		GeneratedAt: r.GeneratedAt,
		Playlist:    r.Playlist,
		Variants:    r.Variants,
		ProbeErrors: r.ProbeErrors,
	}
	if out.Variants == nil {
		out.Variants = []Variant{}
	}
	if r.Sampled {
		probes := r.SegmentProbes
		if probes == nil {
			probes = []probe.SegmentProbe{}
		}
		out.SegmentProbes = &probes
	}
	return json.Marshal(out)
}

// Summary describes the top-level playlist.
type Summary struct {
	URL            string   `json:"url"`
	IsLive         bool     `json:"is_live"`
	Version        *int     `json:"version"`
	MediaSequence  *uint64  `json:"media_sequence"`
	SegmentCount   int      `json:"segment_count"`
	Duration       *float64 `json:"duration"`
	TargetDuration *float64 `json:"target_duration"`
}

// Variant describes one variant stream of a master playlist.
type Variant struct {
	Bandwidth  int     `json:"bandwidth"`
	ProgramID  *int    `json:"program_id"`
	Resolution *string `json:"resolution"`
	Codecs     *string `json:"codecs"`
	URI        string  `json:"uri"`
}

// Summarize builds the playlist summary. url is reported as given by the user.
// Duration is estimated as target duration times segment count.
func Summarize(url string, info *parser.PlaylistInfo) Summary {
	s := Summary{
		URL:          url,
		IsLive:       info.IsLive,
		SegmentCount: len(info.Segments),
	}
	if info.Version > 0 {
		v := info.Version
		s.Version = &v
	}
	if !info.IsMaster {
		seq := info.MediaSequence
		s.MediaSequence = &seq
	}
	if info.TargetDuration > 0 {
		td := info.TargetDuration
		d := td * float64(s.SegmentCount)
		s.TargetDuration = &td
		s.Duration = &d
	}
	return s
}

// Variants converts the variant list of a master playlist.
func Variants(info *parser.PlaylistInfo) []Variant {
	out := make([]Variant, 0, len(info.Variants))
	for _, v := range info.Variants {
		out = append(out, Variant{
			Bandwidth:  v.Bandwidth,
			ProgramID:  v.ProgramID,
			Resolution: optional(v.Resolution),
			Codecs:     optional(v.Codecs),
			URI:        v.URI,
		})
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText writes a human-readable report.
func (r *Report) WriteText(w io.Writer) error {
	p := r.Playlist
	tw := &errWriter{w: w}

	tw.printf("Playlist: %s\n", p.URL)
	tw.printf("  live: %t  version: %s  target_dur: %s\n",
		p.IsLive, intOrNone(p.Version), floatOrNone(p.TargetDuration))

	mediaSeq := "None"
	if p.MediaSequence != nil {
		mediaSeq = strconv.FormatUint(*p.MediaSequence, 10)
	}
	tw.printf("  media_sequence: %s  segments: %d  duration: %s\n",
		mediaSeq, p.SegmentCount, floatOrNone(p.Duration))

	if len(r.Variants) > 0 {
		tw.printf("Variants:\n")
		for i, v := range r.Variants {
			tw.printf("  [%d] bandwidth=%d uri=%s\n", i, v.Bandwidth, v.URI)
		}
	}

	if len(r.SegmentProbes) > 0 {
		tw.printf("Segment probes:\n")
		for _, sp := range r.SegmentProbes {
			tw.printf("  variant=%s seg_index=%d container=%s bytes=%d\n",
				sp.VariantIndex, sp.SegmentIndex, sp.Container, sp.SizeBytes)
		}
	}

	if len(r.ProbeErrors) > 0 {
		tw.printf("Probe errors:\n")
		for _, f := range r.ProbeErrors {
			tw.printf("  variant=%s seg_index=%d url=%s error=%v\n",
				f.VariantIndex, f.SegmentIndex, f.URL, f.Err)
		}
	}

	return tw.err
}

func intOrNone(v *int) string {
	if v == nil {
		return "None"
	}
	return strconv.Itoa(*v)
}

func floatOrNone(v *float64) string {
	if v == nil {
		return "None"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// errWriter keeps the first write error.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
