package session

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"
)

type box struct{ n int }

func TestRegistry_GetOrCreate(t *testing.T) {
	r := NewRegistry[*box]("test")
	calls := 0
	create := func() *box { calls++; return &box{n: calls} }

	first := r.GetOrCreate("user123", "tab-1", create)
	second := r.GetOrCreate("user123", "tab-1", create)

	if first != second {
		t.Errorf("Expected the same value for the same session")
	}
	if calls != 1 {
		t.Errorf("Expected create to run once, ran %d times", calls)
	}
}

func TestRegistry_SessionsAreIsolated(t *testing.T) {
	r := NewRegistry[*box]("test")
	a := r.GetOrCreate("user123", "tab-1", func() *box { return &box{n: 1} })
	b := r.GetOrCreate("user123", "tab-2", func() *box { return &box{n: 2} })
	c := r.GetOrCreate("other", "tab-1", func() *box { return &box{n: 3} })

	if a == b || a == c {
		t.Fatalf("Expected distinct values per user/session")
	}
	if r.Len() != 3 {
		t.Errorf("Expected 3 sessions, got %d", r.Len())
	}
}

func TestRegistry_Delete(t *testing.T) {
	r := NewRegistry[*box]("test")
	r.GetOrCreate("user123", "tab-1", func() *box { return &box{} })
	r.GetOrCreate("user123", "tab-2", func() *box { return &box{} })

	if !r.Delete("user123", "tab-1") {
		t.Fatalf("Expected delete to report removal")
	}
	if r.Delete("user123", "tab-1") {
		t.Errorf("Expected second delete to be a no-op")
	}
	if _, ok := r.Get("user123", "tab-2"); !ok {
		t.Errorf("Expected other tab to survive")
	}
}

func TestRegistry_DeleteUser(t *testing.T) {
	r := NewRegistry[*box]("test")
	r.GetOrCreate("user123", "tab-1", func() *box { return &box{} })
	r.GetOrCreate("user123", "tab-2", func() *box { return &box{} })
	r.GetOrCreate("keep", "tab-1", func() *box { return &box{} })

	if n := r.DeleteUser("user123"); n != 2 {
		t.Errorf("Expected 2 sessions removed, got %d", n)
	}
	if r.Len() != 1 {
		t.Errorf("Expected 1 remaining session, got %d", r.Len())
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry[*box]("test")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				sid := "tab-" + strconv.Itoa(j%20)
				r.GetOrCreate("concurrentUser", sid, func() *box { return &box{} })
				r.Get("concurrentUser", sid)
			}
		}()
	}
	wg.Wait()

	if r.Len() != 20 {
		t.Errorf("Expected 20 sessions, got %d", r.Len())
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRegistry_SweepIdleRemovesClosedTabs(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	r := NewRegistry[*box]("test")
	r.now = clock.Now

	for i := 0; i < 1000; i++ {
		r.GetOrCreate("anon_1", "tab-"+strconv.Itoa(i), func() *box { return &box{} })
	}
	clock.Advance(30 * time.Minute)
	r.Get("anon_1", "tab-7")
	clock.Advance(90 * time.Minute)

	if n := r.SweepIdle(time.Hour); n != 999 {
		t.Fatalf("Expected 999 idle sessions removed, got %d", n)
	}
	if r.Len() != 1 {
		t.Fatalf("Expected 1 session left, got %d", r.Len())
	}
	if _, ok := r.Get("anon_1", "tab-7"); !ok {
		t.Errorf("Expected the recently used tab to survive")
	}
}

func TestRegistry_SweepIdleDisabled(t *testing.T) {
	r := NewRegistry[*box]("test")
	r.GetOrCreate("anon_1", "tab-1", func() *box { return &box{} })

	if n := r.SweepIdle(0); n != 0 {
		t.Errorf("Expected no removal with idle=0, got %d", n)
	}
}

func TestRegistry_StartIdleSweeper(t *testing.T) {
	r := NewRegistry[*box]("test")
	r.GetOrCreate("anon_1", "tab-1", func() *box { return &box{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.StartIdleSweeper(ctx, 50*time.Millisecond)

	deadline := time.Now().Add(5 * time.Second)
	for r.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected sweeper to remove the idle session")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
