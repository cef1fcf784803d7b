package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// EncodeWAV wraps signed 16-bit little-endian PCM in a canonical WAV header.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	const bitsPerSample = 16
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	out := make([]byte, 44+len(pcm))
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(36+len(pcm)))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], bitsPerSample)
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(len(pcm)))
	copy(out[44:], pcm)
	return out
}

// DecodeWAV returns the PCM payload and format of a 16-bit PCM WAV file.
func DecodeWAV(data []byte) (pcm []byte, sampleRate, channels int, err error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, 0, errors.New("not a WAV file")
	}
	var format, bits int
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		pos += 8
		if size < 0 || pos+size > len(data) {
			size = len(data) - pos
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, 0, errors.New("fmt chunk too small")
			}
			format = int(binary.LittleEndian.Uint16(data[pos:]))
			channels = int(binary.LittleEndian.Uint16(data[pos+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(data[pos+4:]))
			bits = int(binary.LittleEndian.Uint16(data[pos+14:]))
		case "data":
			pcm = data[pos : pos+size]
		}
		pos += size + size%2
	}
	if format != 1 || bits != 16 {
		return nil, 0, 0, fmt.Errorf("unsupported WAV encoding (format %d, %d bits)", format, bits)
	}
	if pcm == nil {
		return nil, 0, 0, errors.New("WAV has no data chunk")
	}
	return pcm, sampleRate, channels, nil
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write audio file: %w", err)
	}
	return nil
}
