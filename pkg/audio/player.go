package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hajimehoshi/go-mp3"
)

// RawPCMSampleRate is assumed for headerless PCM, matching speech APIs' default.
const RawPCMSampleRate = 24000

// Player plays synthesized speech through ffplay.
type Player struct {
	run runFunc
}

// NewPlayer returns a player backed by ffplay.
func NewPlayer() *Player {
	return &Player{run: execRun}
}

// Play decodes audio in the given format ("mp3", "wav" or "pcm") and blocks
// until playback finishes.
func (p *Player) Play(ctx context.Context, data []byte, format string) error {
	pcm, rate, channels, err := decodePCM(data, format)
	if err != nil {
		return err
	}
	args := []string{
		"-nodisp",
		"-autoexit",
		"-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(rate),
		"-ac", strconv.Itoa(channels),
		"-i", "pipe:0",
	}
	if err := p.run(ctx, "ffplay", args, bytes.NewReader(pcm), nil); err != nil {
		return fmt.Errorf("play audio: %w", err)
	}
	return nil
}

// PlayFile plays an audio file, using its extension as the format.
func (p *Player) PlayFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 - local user chooses the file
	if err != nil {
		return fmt.Errorf("read audio file: %w", err)
	}
	return p.Play(ctx, data, FormatFromPath(path))
}

// FormatFromPath maps a file extension to an audio format name.
func FormatFromPath(path string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "mp3":
		return "mp3"
	case "pcm", "raw":
		return "pcm"
	default:
		return "wav"
	}
}

func decodePCM(data []byte, format string) (pcm []byte, rate, channels int, err error) {
	switch format {
	case "mp3":
		// go-mp3 always yields 16-bit little-endian stereo.
		dec, err := mp3.NewDecoder(bytes.NewReader(data))
		if err != nil {
			return nil, 0, 0, fmt.Errorf("decode mp3: %w", err)
		}
		pcm, err := io.ReadAll(dec)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("decode mp3: %w", err)
		}
		return pcm, dec.SampleRate(), 2, nil
	case "wav":
		return DecodeWAV(data)
	case "pcm", "raw":
		if len(data) == 0 {
			return nil, 0, 0, errors.New("empty pcm audio")
		}
		return data, RawPCMSampleRate, 1, nil
	default:
		return nil, 0, 0, fmt.Errorf("unsupported audio format %q", format)
	}
}
