package conversation

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestContextEvictsOldestFirst(t *testing.T) {
	ctx := NewContext(MaxTurns)
	for i := 0; i < 25; i++ {
		ctx.Append(Turn{Role: RoleUser, Text: fmt.Sprintf("prompt-%d", i)})
		if ctx.Len() > MaxTurns {
			t.Fatalf("Len() = %d after %d appends", ctx.Len(), i+1)
		}
	}
	turns := ctx.Turns()
	if len(turns) != MaxTurns {
		t.Fatalf("len(Turns()) = %d, want %d", len(turns), MaxTurns)
	}
	if turns[0].Text != "prompt-15" || turns[MaxTurns-1].Text != "prompt-24" {
		t.Fatalf("Turns() = first %q last %q", turns[0].Text, turns[MaxTurns-1].Text)
	}
}

func TestNewContextClampsLimit(t *testing.T) {
	for _, limit := range []int{-1, 0, 11, 100} {
		if got := NewContext(limit).Limit(); got != MaxTurns {
			t.Fatalf("NewContext(%d).Limit() = %d, want %d", limit, got, MaxTurns)
		}
	}
	if got := NewContext(3).Limit(); got != 3 {
		t.Fatalf("NewContext(3).Limit() = %d", got)
	}
}

func TestContextAppendBatchLargerThanLimit(t *testing.T) {
	ctx := NewContext(2)
	ctx.Append(Turn{Text: "a"}, Turn{Text: "b"}, Turn{Text: "c"})
	want := []Turn{{Text: "b"}, {Text: "c"}}
	if diff := cmp.Diff(want, ctx.Turns()); diff != "" {
		t.Fatalf("Turns() mismatch (-want +got):\n%s", diff)
	}
}

func TestContextTurnsReturnsCopy(t *testing.T) {
	ctx := NewContext(4)
	ctx.Append(Turn{Role: RoleUser, Text: "original"})
	turns := ctx.Turns()
	turns[0].Text = "mutated"
	if got := ctx.Turns()[0].Text; got != "original" {
		t.Fatalf("Turns()[0].Text = %q", got)
	}
}

func TestContextConcurrentAppendsStayBounded(t *testing.T) {
	ctx := NewContext(MaxTurns)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx.Append(Turn{Role: RoleUser, Text: fmt.Sprintf("p%d", i)})
		}(i)
	}
	wg.Wait()
	if ctx.Len() != MaxTurns {
		t.Fatalf("Len() = %d, want %d", ctx.Len(), MaxTurns)
	}
}

func TestContextReset(t *testing.T) {
	ctx := NewContext(4)
	ctx.Append(Turn{Text: "x"})
	ctx.Reset()
	if ctx.Len() != 0 {
		t.Fatalf("Len() = %d after Reset", ctx.Len())
	}
}

func TestStoreGetCreatesAndReuses(t *testing.T) {
	store := NewStore(5)
	store.newID = func() string { return "generated" }

	id, first := store.Get("")
	if id != "generated" {
		t.Fatalf("Get(\"\") id = %q", id)
	}
	if first.Limit() != 5 {
		t.Fatalf("Limit() = %d", first.Limit())
	}
	first.Append(Turn{Text: "hello"})

	sameID, second := store.Get(" generated ")
	if sameID != "generated" || second != first {
		t.Fatalf("Get(existing) = %q, %p; want %p", sameID, second, first)
	}
	if store.Len() != 1 {
		t.Fatalf("Len() = %d", store.Len())
	}
}

func TestStoreGeneratesUUIDs(t *testing.T) {
	store := NewStore(MaxTurns)
	a, _ := store.Get("")
	b, _ := store.Get("")
	if a == "" || a == b {
		t.Fatalf("generated ids = %q, %q", a, b)
	}
}

func TestStoreDelete(t *testing.T) {
	store := NewStore(MaxTurns)
	store.Get("conv-1")
	if !store.Delete("conv-1") {
		t.Fatal("Delete(conv-1) = false")
	}
	if store.Delete("conv-1") {
		t.Fatal("Delete(conv-1) second call = true")
	}
}

type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestStoreExpiresIdleContexts(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	store := NewStore(MaxTurns, WithIdleTTL(10*time.Minute))
	store.now = clock.Now

	_, stale := store.Get("stale")
	stale.Append(Turn{Text: "old question"})
	clock.Advance(6 * time.Minute)
	store.Get("active")
	clock.Advance(6 * time.Minute)
	store.Get("active")

	if store.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after idle sweep", store.Len())
	}
	_, fresh := store.Get("stale")
	if fresh == stale || len(fresh.Turns()) != 0 {
		t.Fatalf("Get(stale) reused expired context with %d turns", len(fresh.Turns()))
	}
}

func TestStoreCapEvictsLeastRecentlyUsed(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	store := NewStore(MaxTurns, WithMaxConversations(2))
	store.now = clock.Now

	_, a := store.Get("a")
	clock.Advance(time.Second)
	store.Get("b")
	clock.Advance(time.Second)
	store.Get("a")
	clock.Advance(time.Second)
	store.Get("c")

	if store.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", store.Len())
	}
	if store.Delete("b") {
		t.Fatal("least recently used conversation b survived the cap")
	}
	if _, got := store.Get("a"); got != a {
		t.Fatal("recently used conversation a was evicted")
	}
}

func TestStoreWithoutBoundsKeepsEverything(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	store := NewStore(MaxTurns)
	store.now = clock.Now

	for i := 0; i < 50; i++ {
		store.Get(fmt.Sprintf("conv-%d", i))
		clock.Advance(time.Hour)
	}
	if store.Len() != 50 {
		t.Fatalf("Len() = %d, want 50", store.Len())
	}
}
