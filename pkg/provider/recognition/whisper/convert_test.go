package whisper

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestPcmToFloat32_Empty(t *testing.T) {
	out := pcmToFloat32(nil)
	if len(out) != 0 {
		t.Fatalf("expected 0 samples, got %d", len(out))
	}
}

func TestPcmToFloat32_FullScale(t *testing.T) {
	tests := []struct {
		name  string
		value int16
		want  float32
	}{
		{"max positive", 32767, 32767.0 / 32768.0},
		{"max negative", -32768, -1.0},
		{"zero", 0, 0.0},
		{"mid positive", 16384, 16384.0 / 32768.0},
		{"mid negative", -16384, -16384.0 / 32768.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcm := make([]byte, 2)
			binary.LittleEndian.PutUint16(pcm, uint16(tt.value))
			out := pcmToFloat32(pcm)
			if math.Abs(float64(out[0]-tt.want)) > 1e-6 {
				t.Errorf("pcmToFloat32(%d) = %f; want %f", tt.value, out[0], tt.want)
			}
		})
	}
}

func TestPcmToFloat32_OddByteCount(t *testing.T) {
	// 3 bytes → only 1 complete sample (trailing byte ignored)
	pcm := []byte{0x00, 0x40, 0xFF}
	out := pcmToFloat32(pcm)
	if len(out) != 1 {
		t.Fatalf("expected 1 sample from 3-byte input, got %d", len(out))
	}
}

func TestComputeRMS_Empty(t *testing.T) {
	if rms := computeRMS(nil); rms != 0 {
		t.Errorf("computeRMS(nil) = %f; want 0", rms)
	}
}

func TestComputeRMS_ConstantSignal(t *testing.T) {
	// A constant-amplitude signal has RMS equal to that amplitude.
	pcm := pcmConstant(1000, 100)
	rms := computeRMS(pcm)
	if math.Abs(rms-1000) > 1e-6 {
		t.Errorf("computeRMS = %f; want 1000", rms)
	}
}

func TestComputeRMS_Silence(t *testing.T) {
	pcm := pcmConstant(0, 100)
	if rms := computeRMS(pcm); rms != 0 {
		t.Errorf("computeRMS of zeros = %f; want 0", rms)
	}
}

func TestChunkDurationMs(t *testing.T) {
	// 3200 bytes of 16 kHz mono 16-bit PCM is 100 ms.
	chunk := make([]byte, 3200)
	if ms := chunkDurationMs(chunk, 16000); ms != 100 {
		t.Errorf("chunkDurationMs = %d; want 100", ms)
	}
}

func TestChunkDurationMs_InvalidRate(t *testing.T) {
	if ms := chunkDurationMs(make([]byte, 3200), 0); ms != 0 {
		t.Errorf("chunkDurationMs with rate 0 = %d; want 0", ms)
	}
}

// pcmConstant returns n samples of 16-bit PCM at a constant amplitude.
func pcmConstant(amplitude int16, n int) []byte {
	pcm := make([]byte, n*2)
	for i := range n {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(amplitude))
	}
	return pcm
}
