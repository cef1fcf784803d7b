package stt

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewCartesia_ConstructorsAndName(t *testing.T) {
	client := &http.Client{}
	p := NewCartesiaWithClient("api-key", client)
	if p.httpClient != client {
		t.Fatal("expected custom http client to be set")
	}
	if p.Name() != "cartesia" {
		t.Fatalf("name = %q, want cartesia", p.Name())
	}

	defaultProvider := NewCartesia("api-key")
	if defaultProvider.httpClient == nil {
		t.Fatal("default provider should initialize http client")
	}
}

func TestCartesiaTranscribe_SendsMultipart(t *testing.T) {
	var gotModel, gotLang, gotFile, gotVersion, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVersion = r.Header.Get("Cartesia-Version")
		gotQuery = r.URL.RawQuery
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm() error = %v", err)
		}
		gotModel = r.FormValue("model")
		gotLang = r.FormValue("language")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile() error = %v", err)
		}
		data, _ := io.ReadAll(f)
		gotFile = hdr.Filename + ":" + string(data)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"سلام","language":"fa","duration":1.25}`)
	}))
	defer server.Close()

	p := NewCartesiaWithClient("k", server.Client()).WithBaseURL(server.URL)
	got, err := p.Transcribe(t.Context(), strings.NewReader("RIFF"), TranscribeOptions{Language: "fa", Format: "wav"})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got.Text != "سلام" || got.Language != "fa" || got.Duration != 1.25 {
		t.Fatalf("Transcript = %+v", got)
	}
	if gotModel != "ink-whisper" || gotLang != "fa" || gotFile != "audio.wav:RIFF" {
		t.Fatalf("form: model=%q lang=%q file=%q", gotModel, gotLang, gotFile)
	}
	if gotVersion != cartesiaVersion || gotQuery != "" {
		t.Fatalf("version=%q query=%q", gotVersion, gotQuery)
	}
}

func TestCartesiaTranscribe_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	p := NewCartesiaWithClient("k", server.Client()).WithBaseURL(server.URL)
	_, err := p.Transcribe(t.Context(), strings.NewReader("x"), TranscribeOptions{})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("error = %v, want 401", err)
	}
}

func TestCartesiaTranscribe_KeepsRequestedLanguageWhenUnreported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm() error = %v", err)
		}
		if got := r.FormValue("model"); got != "ink-2" {
			t.Fatalf("model = %q, want ink-2", got)
		}
		if _, ok := r.MultipartForm.Value["language"]; ok {
			t.Fatalf("empty language should not be sent")
		}
		_, _ = io.WriteString(w, `{"text":"hi"}`)
	}))
	defer server.Close()

	p := NewCartesiaWithClient("k", server.Client()).WithBaseURL(server.URL)
	got, err := p.Transcribe(t.Context(), strings.NewReader("x"), TranscribeOptions{Model: "ink-2", Format: "mp3"})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got.Text != "hi" || got.Language != "" || got.Duration != 0 {
		t.Fatalf("Transcript = %+v", got)
	}
}

func TestGetExtension(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"wav", "wav"},
		{"mp3", "mp3"},
		{"ogg", "ogg"},
		{"pcm", "wav"},
		{"", "wav"},
	}
	for _, tc := range tests {
		if got := getExtension(tc.format); got != tc.want {
			t.Fatalf("getExtension(%q) = %q, want %q", tc.format, got, tc.want)
		}
	}
}
