package codec

import "bytes"

const (
	// BytesPerSample is fixed: 16-bit linear PCM, little-endian, mono.
	BytesPerSample = 2

	riffHeaderSize = 44
)

var riffMagic = []byte("RIFF")

// EncodePCM16 converts float samples in [-1,1] to PCM16LE bytes. Samples are
// clamped before scaling so clipped input cannot wrap around.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		s := int16(v * 32767)
		out[i*2] = byte(s)
		out[i*2+1] = byte(uint16(s) >> 8)
	}
	return out
}

// DecodePCM16 is the numeric inverse of EncodePCM16. Malformed input (odd
// byte count) decodes to an empty slice rather than erroring, so one bad
// chunk cannot abort playback of the rest of a stream.
func DecodePCM16(data []byte) []float32 {
	if len(data) == 0 || len(data)%BytesPerSample != 0 {
		return nil
	}
	out := make([]float32, len(data)/BytesPerSample)
	for i := range out {
		s := int16(uint16(data[i*2]) | uint16(data[i*2+1])<<8)
		out[i] = float32(s) / 32767
	}
	return out
}

// StreamDecoder decodes one synthesis response stream. The synthesis vendor
// prefixes the first payload of a stream with a fixed-size container header;
// it is stripped exactly once, tracked by a flag scoped to this stream.
type StreamDecoder struct {
	headerConsumed bool
}

func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{}
}

// Decode strips the one-time leading container header (when present) and
// converts the remainder to float samples. A chunk that was entirely header
// decodes to an empty slice.
func (d *StreamDecoder) Decode(chunk []byte) []float32 {
	if !d.headerConsumed {
		d.headerConsumed = true
		if bytes.HasPrefix(chunk, riffMagic) {
			if len(chunk) <= riffHeaderSize {
				return nil
			}
			chunk = chunk[riffHeaderSize:]
		}
	}
	return DecodePCM16(chunk)
}
