package conversation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vango-go/vai-companion/pkg/core"
	"github.com/vango-go/vai-companion/pkg/core/types"
)

// LocalFile is the on-disk layout of a saved local conversation.
type LocalFile struct {
	Timestamp    string             `json:"timestamp"`
	Language     string             `json:"language"`
	Conversation types.Conversation `json:"conversation"`
}

// CallRecord is the on-disk layout of a finished phone call.
type CallRecord struct {
	CallUUID     string             `json:"call_uuid"`
	CallInfo     Metadata           `json:"call_info"`
	Conversation types.Conversation `json:"conversation"`
	Timestamp    string             `json:"timestamp"`
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveLocal writes conv to path, overwriting any existing file.
func SaveLocal(path, language string, conv types.Conversation, now time.Time) error {
	data, err := encodeJSON(LocalFile{
		Timestamp:    now.Format(time.RFC3339Nano),
		Language:     language,
		Conversation: conv.Clone(),
	})
	if err != nil {
		return core.NewPersistenceError(fmt.Errorf("marshal conversation: %w", err))
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return core.NewPersistenceError(fmt.Errorf("create directory: %w", err))
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return core.NewPersistenceError(fmt.Errorf("write conversation file: %w", err))
	}
	return nil
}

// LoadLocal reads a conversation saved with SaveLocal. A file without a
// conversation array loads as an empty conversation.
func LoadLocal(path string) (types.Conversation, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is chosen by the local user
	if err != nil {
		return nil, core.NewPersistenceError(fmt.Errorf("read conversation file: %w", err))
	}
	var f LocalFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, core.NewPersistenceError(fmt.Errorf("unmarshal conversation file: %w", err))
	}
	if err := f.Conversation.Validate(); err != nil {
		return nil, core.NewPersistenceError(fmt.Errorf("conversation file %s: %w", path, err))
	}
	return f.Conversation.Clone(), nil
}

// CallArchive writes one JSON file per finished call into a directory.
type CallArchive struct {
	dir string
	now func() time.Time

	// mu keeps name selection and file creation together within this process.
	mu sync.Mutex
}

// NewCallArchive returns an archive rooted at dir ("." when empty).
func NewCallArchive(dir string) *CallArchive {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	return &CallArchive{dir: dir, now: time.Now}
}

// Dir returns the archive directory.
func (a *CallArchive) Dir() string { return a.dir }

// Save writes the call record and returns the path it was written to. The
// file is named after the call id and the save time; a numeric suffix is
// added if that name is taken.
func (a *CallArchive) Save(callID string, meta Metadata, conv types.Conversation) (string, error) {
	now := a.now()
	data, err := encodeJSON(CallRecord{
		CallUUID:     callID,
		CallInfo:     meta,
		Conversation: conv.Clone(),
		Timestamp:    now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", core.NewPersistenceError(fmt.Errorf("marshal call record: %w", err))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(a.dir, 0o750); err != nil {
		return "", core.NewPersistenceError(fmt.Errorf("create archive directory: %w", err))
	}

	base := fmt.Sprintf("call_conversation_%s_%s", safeName(callID), now.Format("20060102_150405"))
	for attempt := 0; ; attempt++ {
		name := base + ".json"
		if attempt > 0 {
			name = fmt.Sprintf("%s_%d.json", base, attempt)
		}
		path := filepath.Join(a.dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", core.NewPersistenceError(fmt.Errorf("create call record: %w", err))
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", core.NewPersistenceError(fmt.Errorf("write call record: %w", err))
		}
		if err := f.Close(); err != nil {
			return "", core.NewPersistenceError(fmt.Errorf("close call record: %w", err))
		}
		return path, nil
	}
}

// safeName keeps call ids from escaping the archive directory.
func safeName(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
