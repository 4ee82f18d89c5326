package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name string
		mime string
		want Format
	}{
		{"gemini descriptor", "audio/L16;codec=pcm;rate=24000", Format{1, 24000, 16}},
		{"stereo high rate", "audio/L24;rate=48000;channels=2", Format{2, 48000, 24}},
		{"empty", "", Format{1, 24000, 16}},
		{"no parameters", "audio/L16", Format{1, 24000, 16}},
		{"junk parameters", "audio/L16;rate=abc;channels=", Format{1, 24000, 16}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseFormat(tt.mime); got != tt.want {
				t.Errorf("ParseFormat(%q) = %+v, want %+v", tt.mime, got, tt.want)
			}
		})
	}
}

func TestWrapWAVHeader(t *testing.T) {
	pcm := make([]byte, 9600) // 0.2s of mono 16-bit at 24kHz
	f := Format{Channels: 1, SampleRate: 24000, BitsPerSample: 16}

	out := WrapWAV(pcm, f)

	if len(out) != 44+len(pcm) {
		t.Fatalf("len = %d, want %d", len(out), 44+len(pcm))
	}
	if !bytes.Equal(out[0:4], []byte("RIFF")) || !bytes.Equal(out[8:12], []byte("WAVE")) {
		t.Fatal("missing RIFF/WAVE magic")
	}
	if got := binary.LittleEndian.Uint32(out[4:8]); got != uint32(36+len(pcm)) {
		t.Errorf("RIFF size = %d, want %d", got, 36+len(pcm))
	}
	if got := binary.LittleEndian.Uint32(out[40:44]); got != uint32(len(pcm)) {
		t.Errorf("data size = %d, want %d", got, len(pcm))
	}
}

func TestWrapWAVFormatRoundTrip(t *testing.T) {
	tests := []Format{
		{1, 24000, 16},
		{2, 44100, 16},
		{1, 8000, 8},
	}

	for _, f := range tests {
		out := WrapWAV([]byte{0, 0, 0, 0, 0, 0, 0, 0}, f)

		if got := binary.LittleEndian.Uint16(out[20:22]); got != 1 {
			t.Errorf("%+v: format code = %d, want 1 (PCM)", f, got)
		}
		if got := int(binary.LittleEndian.Uint16(out[22:24])); got != f.Channels {
			t.Errorf("%+v: channels = %d", f, got)
		}
		if got := int(binary.LittleEndian.Uint32(out[24:28])); got != f.SampleRate {
			t.Errorf("%+v: sample rate = %d", f, got)
		}
		wantByteRate := f.SampleRate * f.Channels * f.BitsPerSample / 8
		if got := int(binary.LittleEndian.Uint32(out[28:32])); got != wantByteRate {
			t.Errorf("%+v: byte rate = %d, want %d", f, got, wantByteRate)
		}
		wantAlign := f.Channels * f.BitsPerSample / 8
		if got := int(binary.LittleEndian.Uint16(out[32:34])); got != wantAlign {
			t.Errorf("%+v: block align = %d, want %d", f, got, wantAlign)
		}
		if got := int(binary.LittleEndian.Uint16(out[34:36])); got != f.BitsPerSample {
			t.Errorf("%+v: bits per sample = %d", f, got)
		}
	}
}

func TestNormalize(t *testing.T) {
	pcm := make([]byte, 6)
	minSample := int16(-32768)
	binary.LittleEndian.PutUint16(pcm[0:2], uint16(int16(32767)))
	binary.LittleEndian.PutUint16(pcm[2:4], uint16(minSample))
	binary.LittleEndian.PutUint16(pcm[4:6], 0)

	samples, err := Normalize(pcm)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(samples))
	}
	if samples[0] > 1.0 || samples[0] < 0.9999 {
		t.Errorf("max sample = %v, want ~0.99997 and <= 1.0", samples[0])
	}
	if samples[1] != -1.0 {
		t.Errorf("min sample = %v, want exactly -1.0", samples[1])
	}
	if samples[2] != 0 {
		t.Errorf("zero sample = %v, want 0", samples[2])
	}
}

func TestNormalizeOddPayload(t *testing.T) {
	if _, err := Normalize([]byte{1, 2, 3}); !errors.Is(err, ErrOddPayload) {
		t.Errorf("Normalize(odd) = %v, want ErrOddPayload", err)
	}
}
