package capture

import (
	"context"
	"time"

	"github.com/lucaferri/parla/internal/codec"
)

// Buffer accumulates mic samples and emits fixed-duration PCM16LE chunks.
// Every sample added is eventually emitted exactly once; only the final
// flush may produce a chunk shorter than the configured duration.
type Buffer struct {
	flushSamples int
	buf          []float32
	emit         func(pcm []byte)
}

// NewBuffer sizes chunks as sampleRate * chunkDuration samples. emit is
// called synchronously from Add and Flush.
func NewBuffer(sampleRate int, chunkDuration time.Duration, emit func(pcm []byte)) *Buffer {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if chunkDuration <= 0 {
		chunkDuration = 100 * time.Millisecond
	}
	flushSamples := int(float64(sampleRate) * chunkDuration.Seconds())
	if flushSamples < 1 {
		flushSamples = 1
	}
	return &Buffer{
		flushSamples: flushSamples,
		buf:          make([]float32, 0, flushSamples*2),
		emit:         emit,
	}
}

// Add appends samples and emits every full chunk now available. Appending is
// amortized O(1) per sample; the retained tail is compacted in place so the
// buffer never grows past one chunk plus one Add call's worth of input.
func (b *Buffer) Add(samples []float32) {
	if len(samples) == 0 {
		return
	}
	b.buf = append(b.buf, samples...)
	off := 0
	for len(b.buf)-off >= b.flushSamples {
		b.emit(codec.EncodePCM16(b.buf[off : off+b.flushSamples]))
		off += b.flushSamples
	}
	if off > 0 {
		n := copy(b.buf, b.buf[off:])
		b.buf = b.buf[:n]
	}
}

// Flush emits whatever remains, however short. Call when input ends so no
// trailing audio is lost.
func (b *Buffer) Flush() {
	if len(b.buf) == 0 {
		return
	}
	b.emit(codec.EncodePCM16(b.buf))
	b.buf = b.buf[:0]
}

// Pump drains a sample source into the buffer until the source closes or the
// context ends, then flushes the remainder.
func (b *Buffer) Pump(ctx context.Context, in <-chan []float32) {
	defer b.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case samples, ok := <-in:
			if !ok {
				return
			}
			b.Add(samples)
		}
	}
}

// Pending reports how many samples are buffered but not yet emitted.
func (b *Buffer) Pending() int { return len(b.buf) }
