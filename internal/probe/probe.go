// Package probe samples leading media segments of a playlist and classifies
// their container format.
package probe

import (
	"encoding/json"
	"strconv"

	"github.com/agleyzer/hlshealth/pkg/container"
)

// VariantIndex is the position of a variant in its master playlist.
// The zero value means the probe did not come from a master playlist,
// which is distinct from variant 0.
type VariantIndex struct {
	index int
	valid bool
}

// NoVariant is the index of probes sampled from a plain media playlist.
var NoVariant = VariantIndex{}

// Variant returns the index of the i-th variant.
func Variant(i int) VariantIndex {
	return VariantIndex{index: i, valid: true}
}

// Get returns the index and whether one is set.
func (v VariantIndex) Get() (int, bool) {
	return v.index, v.valid
}

// String renders the index, or "None" when unset.
func (v VariantIndex) String() string {
	if !v.valid {
		return "None"
	}
	return strconv.Itoa(v.index)
}

// MarshalJSON encodes the index as a number or null.
func (v VariantIndex) MarshalJSON() ([]byte, error) {
	if !v.valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.index)
}

// SegmentProbe is the result of fetching and classifying one segment.
type SegmentProbe struct {
	VariantIndex VariantIndex   `json:"variant_index"`
	SegmentIndex int            `json:"segment_index"`
	URL          string         `json:"url"`
	Container    container.Kind `json:"container"`
	SizeBytes    int            `json:"size_bytes"`
}

// Failure records a segment that could not be probed when sampling
// continues past errors.
type Failure struct {
	VariantIndex VariantIndex `json:"variant_index"`
	SegmentIndex int          `json:"segment_index"`
	URL          string       `json:"url"`
	Err          error        `json:"-"`
}

// MarshalJSON adds the error message.
func (f Failure) MarshalJSON() ([]byte, error) {
	type failure Failure
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		failure
		Error string `json:"error"`
	}{failure: failure(f), Error: msg})
}
