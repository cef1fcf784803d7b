// Package stt transcribes recorded speech through vendor APIs.
package stt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
)

// Provider is a batch speech-to-text backend.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Transcribe converts a complete audio clip to text.
	Transcribe(ctx context.Context, audio io.Reader, opts TranscribeOptions) (*Transcript, error)
}

// TranscribeOptions configures transcription.
type TranscribeOptions struct {
	Model    string // provider-specific model, provider default when empty
	Language string // ISO language hint, e.g. "fa"
	Format   string // container of the clip: wav, mp3, ...
}

// Transcript is the result of transcription.
type Transcript struct {
	Text     string
	Language string  // detected or requested language
	Duration float64 // seconds, when the provider reports it
}

// getExtension returns the upload file extension for format.
func getExtension(format string) string {
	switch format {
	case "wav", "mp3", "webm", "ogg", "flac", "m4a", "mp4", "mpeg", "mpga", "oga":
		return format
	default:
		return "wav"
	}
}

// audioForm builds a multipart body holding the clip under "file" followed by
// fields, skipping empty values. It returns the body and its content type.
func audioForm(audio io.Reader, format string, fields ...[2]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", "audio."+getExtension(format))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return nil, "", fmt.Errorf("read audio: %w", err)
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write %s field: %w", f[0], err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}
