// Package container classifies HLS media segment payloads by their leading bytes.
package container

// Kind is the container format of a media segment.
type Kind uint8

const (
	// Unknown means no supported signature matched.
	Unknown Kind = iota
	// TS is an MPEG transport stream.
	TS
	// ADTS is raw AAC in Audio Data Transport Stream framing.
	ADTS
)

const (
	// PacketSize is the fixed size of an MPEG-TS packet.
	PacketSize = 188

	syncByte = 0x47
	minLen   = 4
)

// String returns the lowercase name used in reports.
func (k Kind) String() string {
	switch k {
	case TS:
		return "ts"
	case ADTS:
		return "adts"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Sniff classifies data as TS, ADTS or Unknown.
// It never fails and never retains data.
//
// A leading 0x47 alone is not enough for TS: the sync byte must repeat at
// the start of the second or third packet. The TS check runs before ADTS.
func Sniff(data []byte) Kind {
	if len(data) < minLen {
		return Unknown
	}

	if isTS(data) {
		return TS
	}

	// 12-bit ADTS sync word 0xFFF
	if data[0] == 0xFF && data[1]&0xF0 == 0xF0 {
		return ADTS
	}

	return Unknown
}

func isTS(data []byte) bool {
	if data[0] != syncByte {
		return false
	}
	return syncAt(data, PacketSize) || syncAt(data, 2*PacketSize)
}

func syncAt(data []byte, off int) bool {
	return off < len(data) && data[off] == syncByte
}
