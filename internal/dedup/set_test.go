package dedup

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nao1215/exposcan/internal/target"
)

func mustURL(t *testing.T, raw string) target.URL {
	t.Helper()
	u, err := target.NewNormalizer().Normalize(raw)
	if err != nil {
		t.Fatalf("failed to normalize %q: %v", raw, err)
	}
	return u
}

// TestTryAdd tests basic set semantics.
func TestTryAdd(t *testing.T) {
	t.Parallel()

	t.Run("first add wins, second loses", func(t *testing.T) {
		t.Parallel()

		s := New()
		u := mustURL(t, "example.com/index.html")

		if !s.TryAdd(u) {
			t.Fatal("expected first TryAdd to succeed")
		}
		if s.TryAdd(u) {
			t.Error("expected second TryAdd to fail")
		}
		if s.Len() != 1 {
			t.Errorf("expected Len 1, got %d", s.Len())
		}
	})

	t.Run("normalized equivalents collide", func(t *testing.T) {
		t.Parallel()

		s := New()
		if !s.TryAdd(mustURL(t, "Example.com/Docs/?utm_source=a")) {
			t.Fatal("expected first TryAdd to succeed")
		}
		if s.TryAdd(mustURL(t, "http://example.com/docs")) {
			t.Error("expected equivalent URL to be detected as duplicate")
		}
	})
}

// TestTryAddConcurrent tests that exactly one of many concurrent callers wins.
func TestTryAddConcurrent(t *testing.T) {
	t.Parallel()

	s := New()
	u := mustURL(t, "example.com/race")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.TryAdd(u) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("expected exactly 1 winner, got %d", wins.Load())
	}
}

// TestScaling tests that the filter grows past its initial capacity
// without losing members.
func TestScaling(t *testing.T) {
	t.Parallel()

	s := New(WithCapacity(100), WithErrorRate(0.001))

	const n = 1000
	added := 0
	for i := range n {
		if s.TryAddString(fmt.Sprintf("http://example.com/page/%d", i)) {
			added++
		}
	}

	if s.Stages() < 2 {
		t.Errorf("expected the set to grow beyond one stage, got %d", s.Stages())
	}

	// Every inserted key must still be reported as present.
	for i := range n {
		if s.TryAddString(fmt.Sprintf("http://example.com/page/%d", i)) {
			t.Fatalf("key %d was forgotten", i)
		}
	}

	// With a 0.1% base error rate, losing more than 1% of new keys means
	// the bound is broken.
	if n-added > n/100 {
		t.Errorf("too many false positives: %d of %d", n-added, n)
	}
}

// TestOptions tests option validation.
func TestOptions(t *testing.T) {
	t.Parallel()

	s := New(WithCapacity(0), WithErrorRate(2))
	if s.capacity != DefaultCapacity {
		t.Errorf("expected default capacity, got %d", s.capacity)
	}
	if s.errorRate != DefaultErrorRate {
		t.Errorf("expected default error rate, got %v", s.errorRate)
	}
}
