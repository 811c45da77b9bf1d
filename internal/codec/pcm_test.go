package codec

import (
	"bytes"
	"math"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 0.99, -0.99, 0.001}
	out := DecodePCM16(EncodePCM16(in))
	if len(out) != len(in) {
		t.Fatalf("length changed: got %d, want %d", len(out), len(in))
	}
	for i := range in {
		if diff := math.Abs(float64(out[i] - in[i])); diff > 1.0/32767 {
			t.Errorf("sample %d drifted: got %f, want %f", i, out[i], in[i])
		}
	}
}

func TestEncodeClampsOutOfRange(t *testing.T) {
	data := EncodePCM16([]float32{2.0, -2.0})
	got := DecodePCM16(data)
	if got[0] != 1 || got[1] != -1 {
		t.Fatalf("expected clamp to full scale, got %v", got)
	}
}

func TestDecodeRejectsOddLength(t *testing.T) {
	if got := DecodePCM16([]byte{1, 2, 3}); got != nil {
		t.Fatalf("odd length should decode empty, got %v", got)
	}
	if got := DecodePCM16(nil); got != nil {
		t.Fatalf("empty input should decode empty, got %v", got)
	}
}

func TestStreamDecoderStripsHeaderOnce(t *testing.T) {
	pcm := EncodePCM16([]float32{0.25, -0.25})
	wav, err := EncodeWAV(pcm, 16000)
	if err != nil {
		t.Fatal(err)
	}

	d := NewStreamDecoder()
	first := d.Decode(wav)
	if len(first) != 2 {
		t.Fatalf("first chunk decoded %d samples, want 2", len(first))
	}

	// Later chunks must pass through untouched even if they happen to start
	// with the magic bytes.
	tricky := append([]byte("RIFF"), EncodePCM16([]float32{0.1, 0.1})...)
	second := d.Decode(tricky)
	if len(second) != len(tricky)/BytesPerSample {
		t.Fatalf("second chunk decoded %d samples, want %d", len(second), len(tricky)/BytesPerSample)
	}
}

func TestStreamDecoderHeaderlessFirstChunk(t *testing.T) {
	d := NewStreamDecoder()
	got := d.Decode(EncodePCM16([]float32{0.5}))
	if len(got) != 1 {
		t.Fatalf("headerless first chunk decoded %d samples, want 1", len(got))
	}
}

func TestStreamDecoderHeaderOnlyChunk(t *testing.T) {
	wav, err := EncodeWAV(nil, 16000)
	if err != nil {
		t.Fatal(err)
	}
	d := NewStreamDecoder()
	if got := d.Decode(wav); len(got) != 0 {
		t.Fatalf("header-only chunk should decode empty, got %v", got)
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	pcm := make([]byte, 320)
	wav, err := EncodeWAV(pcm, 16000)
	if err != nil {
		t.Fatal(err)
	}
	if len(wav) != 44+len(pcm) {
		t.Fatalf("wav size = %d, want %d", len(wav), 44+len(pcm))
	}
	if !bytes.HasPrefix(wav, []byte("RIFF")) || !bytes.Equal(wav[8:12], []byte("WAVE")) {
		t.Fatalf("malformed container header: % x", wav[:12])
	}
}
