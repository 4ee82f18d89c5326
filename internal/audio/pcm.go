// Package audio turns the raw speech payloads the provider returns into
// something a standard decoder can play. The provider speaks linear PCM,
// usually advertised as "audio/L16;codec=pcm;rate=24000".
package audio

import (
	"encoding/binary"
	"errors"
	"strconv"
	"strings"
)

// Format describes a raw PCM payload.
type Format struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
}

// DefaultFormat is what the provider sends when it doesn't say otherwise:
// mono 16-bit at 24 kHz.
func DefaultFormat() Format {
	return Format{Channels: 1, SampleRate: 24000, BitsPerSample: 16}
}

// ErrOddPayload means a 16-bit payload arrived with a dangling byte and
// cannot be interpreted as whole samples.
var ErrOddPayload = errors.New("PCM payload length is not a whole number of samples")

// ParseFormat extracts a Format from a MIME-type-like descriptor such as
// "audio/L16;codec=pcm;rate=24000". Unspecified fields fall back to the
// default mono/24kHz/16-bit.
func ParseFormat(mime string) Format {
	f := DefaultFormat()

	parts := strings.Split(mime, ";")
	if len(parts) == 0 {
		return f
	}

	// Subtype "L16" carries the bit depth.
	if slash := strings.Index(parts[0], "/"); slash >= 0 {
		subtype := strings.TrimSpace(parts[0][slash+1:])
		if strings.HasPrefix(strings.ToUpper(subtype), "L") {
			if bits, err := strconv.Atoi(subtype[1:]); err == nil && bits > 0 {
				f.BitsPerSample = bits
			}
		}
	}

	for _, p := range parts[1:] {
		key, value, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n <= 0 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "rate":
			f.SampleRate = n
		case "channels":
			f.Channels = n
		}
	}
	return f
}

const wavHeaderSize = 44

// WrapWAV prepends a RIFF/WAVE header to raw PCM bytes, yielding a
// self-describing blob any decoder can play. All integers little-endian,
// header fixed at 44 bytes, PCM format code 1.
func WrapWAV(pcm []byte, f Format) []byte {
	byteRate := f.SampleRate * f.Channels * f.BitsPerSample / 8
	blockAlign := f.Channels * f.BitsPerSample / 8

	out := make([]byte, wavHeaderSize+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], uint16(f.BitsPerSample))
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[wavHeaderSize:], pcm)
	return out
}

// Normalize converts little-endian signed 16-bit mono samples into floats in
// [-1.0, 1.0].
func Normalize(pcm []byte) ([]float64, error) {
	if len(pcm)%2 != 0 {
		return nil, ErrOddPayload
	}
	samples := make([]float64, len(pcm)/2)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(pcm[2*i:]))
		samples[i] = float64(s) / 32768.0
	}
	return samples, nil
}
