// Package wav wraps raw PCM in a RIFF/WAVE container and reads WAV headers back.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidWAV     = errors.New("invalid wav data")
	ErrUnsupportedPCM = errors.New("unsupported pcm format")
)

// Format describes an uncompressed PCM stream
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// DefaultTTSFormat is what Gemini speech generation returns: 24kHz mono 16-bit
var DefaultTTSFormat = Format{SampleRate: 24000, Channels: 1, BitsPerSample: 16}

const headerSize = 44

// Encode wraps little-endian PCM samples in a 44-byte canonical WAV header
func Encode(pcm []byte, f Format) ([]byte, error) {
	if f.SampleRate <= 0 || f.Channels <= 0 || f.BitsPerSample <= 0 || f.BitsPerSample%8 != 0 {
		return nil, fmt.Errorf("%w: %+v", ErrUnsupportedPCM, f)
	}

	blockAlign := f.Channels * f.BitsPerSample / 8
	byteRate := f.SampleRate * blockAlign

	buf := bytes.NewBuffer(make([]byte, 0, headerSize+len(pcm)))
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, uint16(f.Channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(f.SampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(f.BitsPerSample))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes(), nil
}

// Info is what DecodeHeader learns from a WAV file
type Info struct {
	Format
	DataSize int
}

// DecodeHeader walks the RIFF chunks until it has seen both fmt and data
func DecodeHeader(data []byte) (Info, error) {
	if len(data) < 12 || string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Info{}, ErrInvalidWAV
	}

	var (
		info    Info
		haveFmt bool
	)
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return Info{}, fmt.Errorf("%w: short fmt chunk", ErrInvalidWAV)
			}
			if audioFormat := binary.LittleEndian.Uint16(data[body : body+2]); audioFormat != 1 {
				return Info{}, fmt.Errorf("%w: audio format %d", ErrUnsupportedPCM, audioFormat)
			}
			info.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return Info{}, fmt.Errorf("%w: data chunk before fmt", ErrInvalidWAV)
			}
			// recorders that are killed mid-stream leave 0 or 0xFFFFFFFF here
			if size == 0 || body+size > len(data) {
				size = len(data) - body
			}
			info.DataSize = size
			return info, nil
		}

		pos = body + size + size%2
	}

	return Info{}, fmt.Errorf("%w: missing data chunk", ErrInvalidWAV)
}

// ParsePCMMIME understands the raw PCM mime types returned by speech APIs,
// e.g. "audio/L16;codec=pcm;rate=24000". ok is false for container formats.
func ParsePCMMIME(mimeType string) (Format, bool) {
	parts := strings.Split(mimeType, ";")
	base := strings.ToLower(strings.TrimSpace(parts[0]))
	if base != "audio/l16" && base != "audio/pcm" {
		return Format{}, false
	}

	f := DefaultTTSFormat
	for _, p := range parts[1:] {
		key, value, found := strings.Cut(strings.TrimSpace(p), "=")
		if !found {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n <= 0 {
			continue
		}
		switch strings.ToLower(key) {
		case "rate":
			f.SampleRate = n
		case "channels":
			f.Channels = n
		}
	}
	return f, true
}

// IsWAV reports whether data starts with a RIFF/WAVE signature
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}
