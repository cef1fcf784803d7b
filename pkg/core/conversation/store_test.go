package conversation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vango-go/vai-companion/pkg/core/types"
)

func TestStore_AppendPreservesOrder(t *testing.T) {
	s := NewStore()
	want := make(types.Conversation, 0, 50)
	for i := 0; i < 50; i++ {
		var m types.Message
		if i%2 == 0 {
			m = types.User(fmt.Sprintf("u%d", i))
		} else {
			m = types.Assistant(fmt.Sprintf("a%d", i))
		}
		want = append(want, m)
		s.Append("c1", m)
	}

	got, ok := s.Messages("c1")
	if !ok {
		t.Fatalf("Messages() ok = false")
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("message %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestStore_RemoveThenGetOrCreateIsEmpty(t *testing.T) {
	s := NewStore()
	s.Append("c1", types.User("hello"), types.Assistant("hi"))

	s.Remove("c1")
	s.Remove("c1") // idempotent

	if _, ok := s.Messages("c1"); ok {
		t.Fatalf("session still present after Remove")
	}
	if got := s.GetOrCreate("c1"); len(got) != 0 {
		t.Fatalf("GetOrCreate after Remove = %+v, want empty", got)
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
}

func TestStore_GetOrCreateReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Append("c1", types.User("hello"))

	got := s.GetOrCreate("c1")
	got[0].Content = "mutated"
	_ = append(got, types.Assistant("extra"))

	again, _ := s.Messages("c1")
	if len(again) != 1 || again[0].Content != "hello" {
		t.Fatalf("store mutated through returned slice: %+v", again)
	}
}

func TestStore_BeginResetsAndRecordsMetadata(t *testing.T) {
	s := NewStore()
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s.Append("c1", types.User("stale"))

	s.Begin(Metadata{SessionID: "c1", From: "+100", CreatedAt: created, Language: "fa"})

	msgs, ok := s.Messages("c1")
	if !ok || len(msgs) != 0 {
		t.Fatalf("Begin did not reset conversation: ok=%v msgs=%+v", ok, msgs)
	}
	meta, ok := s.Metadata("c1")
	if !ok {
		t.Fatalf("Metadata() ok = false")
	}
	if meta.From != "+100" || meta.Language != "fa" || !meta.CreatedAt.Equal(created) {
		t.Fatalf("Metadata() = %+v", meta)
	}
}

func TestStore_IDsSorted(t *testing.T) {
	s := NewStore()
	s.GetOrCreate("b")
	s.GetOrCreate("a")
	s.GetOrCreate("c")

	ids := s.IDs()
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Fatalf("IDs() = %v", ids)
	}
}

func TestStore_WithSessionSerializesSameSession(t *testing.T) {
	s := NewStore()
	var inFlight, maxInFlight atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.WithSession(context.Background(), "c1", func() error {
				n := inFlight.Add(1)
				for {
					cur := maxInFlight.Load()
					if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
						break
					}
				}
				s.Append("c1", types.User(fmt.Sprintf("u%d", i)))
				time.Sleep(time.Millisecond)
				s.Append("c1", types.Assistant(fmt.Sprintf("a%d", i)))
				inFlight.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("WithSession() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	if got := maxInFlight.Load(); got != 1 {
		t.Fatalf("max concurrent turns = %d, want 1", got)
	}

	msgs, _ := s.Messages("c1")
	if len(msgs) != 40 {
		t.Fatalf("len = %d, want 40", len(msgs))
	}
	for i := 0; i < len(msgs); i += 2 {
		u, a := msgs[i], msgs[i+1]
		if u.Role != types.RoleUser || a.Role != types.RoleAssistant || u.Content[1:] != a.Content[1:] {
			t.Fatalf("turn at %d interleaved: %+v %+v", i, u, a)
		}
	}
}

func TestStore_WithSessionDisjointKeysIsolated(t *testing.T) {
	s := NewStore()
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_ = s.WithSession(context.Background(), "slow", func() error {
			close(started)
			<-release
			s.Append("slow", types.User("slow-user"), types.Assistant("slow-reply"))
			return nil
		})
	}()
	<-started

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.WithSession(context.Background(), "fast", func() error {
			s.Append("fast", types.User("fast-user"), types.Assistant("fast-reply"))
			return nil
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("turn on a different session was blocked")
	}
	close(release)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if msgs, _ := s.Messages("slow"); len(msgs) == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("slow turn did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}

	fast, _ := s.Messages("fast")
	slow, _ := s.Messages("slow")
	for _, m := range fast {
		if m.Content[:4] != "fast" {
			t.Fatalf("fast session contains %+v", m)
		}
	}
	for _, m := range slow {
		if m.Content[:4] != "slow" {
			t.Fatalf("slow session contains %+v", m)
		}
	}
}

func TestStore_WithSessionHonorsContext(t *testing.T) {
	s := NewStore()
	hold := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = s.WithSession(context.Background(), "c1", func() error {
			close(held)
			<-hold
			return nil
		})
	}()
	<-held
	defer close(hold)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	called := false
	err := s.WithSession(ctx, "c1", func() error {
		called = true
		return nil
	})
	if err != context.DeadlineExceeded {
		t.Fatalf("WithSession() error = %v, want %v", err, context.DeadlineExceeded)
	}
	if called {
		t.Fatalf("fn ran without holding the turn")
	}
}

func TestStore_WithExistingSessionUnknownID(t *testing.T) {
	s := NewStore()
	called := false
	ok, err := s.WithExistingSession(t.Context(), "missing", func() error {
		called = true
		return nil
	})
	if ok || err != nil {
		t.Fatalf("WithExistingSession = (%v, %v), want (false, nil)", ok, err)
	}
	if called {
		t.Fatalf("fn ran for unknown session")
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0 (no session created)", s.Len())
	}
}

func TestStore_WithExistingSessionSkipsRemovedWhileWaiting(t *testing.T) {
	s := NewStore()
	s.Begin(Metadata{SessionID: "c1"})

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.WithSession(context.Background(), "c1", func() error {
			close(holding)
			<-release
			s.Remove("c1")
			return nil
		})
	}()
	<-holding

	result := make(chan bool, 1)
	go func() {
		ok, _ := s.WithExistingSession(context.Background(), "c1", func() error { return nil })
		result <- ok
	}()
	close(release)

	select {
	case ok := <-result:
		if ok {
			t.Fatalf("WithExistingSession ran fn on a removed session")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("WithExistingSession did not return")
	}
}
