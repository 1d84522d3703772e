package whisper

import (
	"encoding/binary"
	"testing"
)

func pcm16(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestPCMToFloat32(t *testing.T) {
	got := pcmToFloat32(pcm16(0, 16384, -16384, 32767, -32768))
	want := []float32{0, 0.5, -0.5, 32767.0 / 32768.0, -1.0}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPCMToFloat32IgnoresTrailingOddByte(t *testing.T) {
	data := append(pcm16(100), 0x7f)
	if got := pcmToFloat32(data); len(got) != 1 {
		t.Errorf("got %d samples, want 1", len(got))
	}
}

func TestResampleFloat32(t *testing.T) {
	in := []float32{0, 1, 0, -1}

	if got := resampleFloat32(in, 16000, 16000); len(got) != 4 {
		t.Errorf("identity resample changed length: %d", len(got))
	}

	up := resampleFloat32(in, 8000, 16000)
	if len(up) != 8 {
		t.Fatalf("upsample length = %d, want 8", len(up))
	}
	// Interpolated midpoint between 0 and 1.
	if up[1] != 0.5 {
		t.Errorf("up[1] = %v, want 0.5", up[1])
	}

	down := resampleFloat32(in, 16000, 8000)
	if len(down) != 2 {
		t.Errorf("downsample length = %d, want 2", len(down))
	}

	if got := resampleFloat32(nil, 8000, 16000); got != nil {
		t.Errorf("nil input produced %v", got)
	}
}
