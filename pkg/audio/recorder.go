package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"
)

// MicSampleRate is the capture rate used for speech.
const MicSampleRate = 16000

// Recorder captures fixed-length clips from the default microphone.
type Recorder struct {
	goos       string
	sampleRate int
	run        runFunc
}

// NewRecorder returns a recorder for the current platform.
func NewRecorder() *Recorder {
	return &Recorder{goos: runtime.GOOS, sampleRate: MicSampleRate, run: execRun}
}

// Capture records duration of mono audio and returns it as WAV bytes. It
// blocks until the clip is complete.
func (r *Recorder) Capture(ctx context.Context, duration time.Duration) ([]byte, error) {
	if duration <= 0 {
		return nil, errors.New("recording duration must be positive")
	}
	args, err := micArgs(r.goos, r.sampleRate, duration)
	if err != nil {
		return nil, err
	}

	var pcm bytes.Buffer
	if err := r.run(ctx, "ffmpeg", args, nil, &pcm); err != nil {
		return nil, fmt.Errorf("capture microphone: %w", err)
	}
	if pcm.Len() == 0 {
		return nil, errors.New("capture microphone: no audio captured")
	}
	return EncodeWAV(pcm.Bytes(), r.sampleRate, 1), nil
}

// Record captures duration of audio into a WAV file at path.
func (r *Recorder) Record(ctx context.Context, duration time.Duration, path string) error {
	wav, err := r.Capture(ctx, duration)
	if err != nil {
		return err
	}
	return WriteFile(path, wav)
}

func micArgs(goos string, sampleRate int, duration time.Duration) ([]string, error) {
	var input []string
	switch goos {
	case "darwin":
		input = []string{"-f", "avfoundation", "-i", ":0"}
	case "linux":
		input = []string{"-f", "pulse", "-i", "default"}
	case "windows":
		input = []string{"-f", "dshow", "-i", "audio=default"}
	default:
		return nil, fmt.Errorf("mic capture is not implemented for %s; supported platforms: darwin, linux, windows", goos)
	}
	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, input...)
	args = append(args,
		"-t", strconv.FormatFloat(duration.Seconds(), 'f', -1, 64),
		"-ac", "1", "-ar", strconv.Itoa(sampleRate),
		"-f", "s16le", "-",
	)
	return args, nil
}
