package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestDecodePCM(t *testing.T) {
	want := []float32{0, 0.5, -1, 0.25}
	data := make([]byte, len(want)*4)
	for i, s := range want {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(s))
	}

	got, err := DecodePCM(data)
	if err != nil {
		t.Fatalf("DecodePCM: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("DecodePCM returned %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecodePCM_RejectsPartialSample(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 7} {
		if _, err := DecodePCM(make([]byte, n)); err == nil {
			t.Errorf("DecodePCM(%d bytes) err = nil, want error", n)
		}
	}
}

func TestDecodePCM_Empty(t *testing.T) {
	got, err := DecodePCM(nil)
	if err != nil {
		t.Fatalf("DecodePCM(nil): %v", err)
	}
	if len(got) != 0 {
		t.Errorf("DecodePCM(nil) returned %d samples, want 0", len(got))
	}
}

func TestFloat32ToPCM16_Clamps(t *testing.T) {
	pcm := Float32ToPCM16([]float32{2, -2, 1, -1, 0})

	read := func(i int) int16 {
		return int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	if got := read(0); got != 32767 {
		t.Errorf("overdriven positive sample = %d, want 32767", got)
	}
	if got := read(1); got != -32767 {
		t.Errorf("overdriven negative sample = %d, want -32767", got)
	}
	if got := read(4); got != 0 {
		t.Errorf("zero sample = %d, want 0", got)
	}
}

func TestEncodeWAV_Header(t *testing.T) {
	samples := make([]float32, 160)
	wav := EncodeWAV(samples, 16000)

	if got, want := len(wav), 44+len(samples)*2; got != want {
		t.Fatalf("len(wav) = %d, want %d", got, want)
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE magic")
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 16000 {
		t.Errorf("sample rate = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != 1 {
		t.Errorf("channels = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint16(wav[34:36]); got != 16 {
		t.Errorf("bits per sample = %d, want 16", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(samples)*2) {
		t.Errorf("data size = %d, want %d", got, len(samples)*2)
	}
}
