// Package conversation holds per-session message histories and writes them to disk.
package conversation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vango-go/vai-companion/pkg/core/types"
)

// Metadata describes a session. It is set when the session begins and is
// read-only afterwards.
type Metadata struct {
	SessionID string    `json:"-"`
	From      string    `json:"from,omitempty"`
	CreatedAt time.Time `json:"start_time"`
	Language  string    `json:"language,omitempty"`
}

type entry struct {
	// turn serializes turns on one session. Buffered with capacity 1 so that
	// waiting can be abandoned when the caller's context ends.
	turn chan struct{}

	messages types.Conversation
	meta     Metadata
}

func newEntry() *entry {
	return &entry{turn: make(chan struct{}, 1)}
}

// Store maps session ids to conversations.
//
// Map operations are safe for concurrent use across sessions. Appends to a
// single session are only ordered if the caller holds that session's turn,
// see WithSession.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	now      func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

func (s *Store) lookupOrCreate(id string) *entry {
	s.mu.RLock()
	e := s.sessions[id]
	s.mu.RUnlock()
	if e != nil {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e = s.sessions[id]; e == nil {
		e = newEntry()
		e.meta = Metadata{SessionID: id, CreatedAt: s.now()}
		s.sessions[id] = e
	}
	return e
}

// Begin starts a session with the given metadata, replacing any conversation
// already stored under meta.SessionID.
func (s *Store) Begin(meta Metadata) {
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = s.now()
	}
	e := newEntry()
	e.meta = meta

	s.mu.Lock()
	s.sessions[meta.SessionID] = e
	s.mu.Unlock()
}

// GetOrCreate returns a copy of the session's conversation, creating an empty
// one if the session does not exist.
func (s *Store) GetOrCreate(id string) types.Conversation {
	e := s.lookupOrCreate(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return e.messages.Clone()
}

// Messages returns a copy of the session's conversation and whether it exists.
func (s *Store) Messages(id string) (types.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return e.messages.Clone(), true
}

// Append adds messages to the end of the session's conversation, creating the
// session if needed.
func (s *Store) Append(id string, msgs ...types.Message) {
	if len(msgs) == 0 {
		return
	}
	e := s.lookupOrCreate(id)
	s.mu.Lock()
	e.messages = append(e.messages, msgs...)
	s.mu.Unlock()
}

// Replace swaps the session's conversation for a copy of conv.
func (s *Store) Replace(id string, conv types.Conversation) {
	e := s.lookupOrCreate(id)
	s.mu.Lock()
	e.messages = conv.Clone()
	s.mu.Unlock()
}

// Metadata returns the metadata recorded for a session.
func (s *Store) Metadata(id string) (Metadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok {
		return Metadata{}, false
	}
	return e.meta, true
}

// Snapshot returns the conversation and metadata of a session in one read.
func (s *Store) Snapshot(id string) (types.Conversation, Metadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, Metadata{}, false
	}
	return e.messages.Clone(), e.meta, true
}

// Remove deletes a session. Removing an unknown id is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// IDs returns the live session ids in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// WithSession runs fn while holding the turn for session id, so at most one
// turn per session is in flight. Different sessions do not block each other.
// It returns ctx.Err() if the context ends before the turn is acquired.
func (s *Store) WithSession(ctx context.Context, id string, fn func() error) error {
	e := s.lookupOrCreate(id)

	select {
	case e.turn <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.turn }()

	return fn()
}

// WithExistingSession is WithSession for a session that must already exist.
// It reports false, without running fn, if the session is unknown or was
// removed while waiting for its turn.
func (s *Store) WithExistingSession(ctx context.Context, id string, fn func() error) (bool, error) {
	s.mu.RLock()
	e := s.sessions[id]
	s.mu.RUnlock()
	if e == nil {
		return false, nil
	}

	select {
	case e.turn <- struct{}{}:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	defer func() { <-e.turn }()

	s.mu.RLock()
	current := s.sessions[id]
	s.mu.RUnlock()
	if current != e {
		return false, nil
	}
	return true, fn()
}
