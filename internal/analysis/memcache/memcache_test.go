package memcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/linnemanlabs/issuelens/internal/analysis"
)

func report(summary string) *analysis.Report {
	return &analysis.Report{
		Result: analysis.Result{
			Summary:         summary,
			Type:            analysis.TypeBug,
			PriorityScore:   "4 - High: blocks a common workflow",
			SuggestedLabels: []string{"bug"},
			PotentialImpact: "impact",
		},
	}
}

func TestPutAndGet(t *testing.T) {
	t.Parallel()

	c := New(time.Hour)
	ctx := context.Background()

	c.Put(ctx, "facebook/react#1", report("r1"))

	got, ok := c.Get(ctx, "facebook/react#1")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Summary != "r1" {
		t.Errorf("Summary = %q", got.Summary)
	}
}

func TestGet_Missing(t *testing.T) {
	t.Parallel()

	c := New(time.Hour)
	if _, ok := c.Get(context.Background(), "absent"); ok {
		t.Fatal("expected miss")
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	t.Parallel()

	c := New(time.Hour)
	ctx := context.Background()
	c.Put(ctx, "k", report("orig"))

	first, _ := c.Get(ctx, "k")
	first.Summary = "mutated"
	first.SuggestedLabels[0] = "mutated"

	second, _ := c.Get(ctx, "k")
	if second.Summary != "orig" || second.SuggestedLabels[0] != "bug" {
		t.Error("cache entry was aliased by a caller")
	}
}

func TestGet_ExpiredEntryIsAbsentAndEvicted(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	c := New(3600*time.Second, WithNow(clock))
	ctx := context.Background()

	c.Put(ctx, "k", report("r"))

	// one second before expiry: still live
	mu.Lock()
	now = time.Unix(1000+3599, 0)
	mu.Unlock()
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Fatal("entry expired early")
	}

	// at expiry: absent and evicted
	mu.Lock()
	now = time.Unix(1000+3600, 0)
	mu.Unlock()
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expired entry returned")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0 after lazy eviction", c.Len())
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	c := New(time.Hour)
	ctx := context.Background()
	c.Put(ctx, "a", report("1"))
	c.Put(ctx, "b", report("2"))

	c.Clear(ctx)

	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
	if _, ok := c.Get(ctx, "a"); ok {
		t.Error("entry survived clear")
	}
}

func TestDo_HitSkipsCompute(t *testing.T) {
	t.Parallel()

	c := New(time.Hour)
	ctx := context.Background()
	c.Put(ctx, "k", report("cached"))

	rep, cached, err := c.Do(ctx, "k", func(context.Context) (*analysis.Report, error) {
		t.Fatal("compute must not run on a hit")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !cached {
		t.Error("expected cached=true")
	}
	if rep.Summary != "cached" {
		t.Errorf("Summary = %q", rep.Summary)
	}
}

func TestDo_MissComputesAndStores(t *testing.T) {
	t.Parallel()

	c := New(time.Hour)
	ctx := context.Background()

	rep, cached, err := c.Do(ctx, "k", func(context.Context) (*analysis.Report, error) {
		return report("fresh"), nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if cached {
		t.Error("expected cached=false on miss")
	}
	if rep.Summary != "fresh" {
		t.Errorf("Summary = %q", rep.Summary)
	}
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Error("computed report not stored")
	}
}

func TestDo_ErrorNotCached(t *testing.T) {
	t.Parallel()

	c := New(time.Hour)
	ctx := context.Background()
	boom := errors.New("upstream down")

	if _, _, err := c.Do(ctx, "k", func(context.Context) (*analysis.Report, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if c.Len() != 0 {
		t.Error("failed computation must not be cached")
	}

	// next call computes again
	var calls atomic.Int32
	if _, _, err := c.Do(ctx, "k", func(context.Context) (*analysis.Report, error) {
		calls.Add(1)
		return report("second try"), nil
	}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("compute calls = %d, want 1", calls.Load())
	}
}

func TestDo_SingleFlight(t *testing.T) {
	t.Parallel()

	c := New(time.Hour)
	ctx := context.Background()

	const waiters = 16
	var computes atomic.Int32
	release := make(chan struct{})
	entered := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]*analysis.Report, waiters)
	errs := make([]error, waiters)

	// first caller blocks inside compute until everyone has queued up
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _, errs[0] = c.Do(ctx, "k", func(context.Context) (*analysis.Report, error) {
			close(entered)
			<-release
			computes.Add(1)
			return report("shared"), nil
		})
	}()
	<-entered

	for i := 1; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = c.Do(ctx, "k", func(context.Context) (*analysis.Report, error) {
				computes.Add(1)
				return report("should not run"), nil
			})
		}(i)
	}

	// give the waiters a moment to join the in-flight computation
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := computes.Load(); got != 1 {
		t.Fatalf("computes = %d, want exactly 1", got)
	}
	for i := 0; i < waiters; i++ {
		if errs[i] != nil {
			t.Fatalf("waiter %d: %v", i, errs[i])
		}
		if results[i].Summary != "shared" {
			t.Errorf("waiter %d got %q, want shared result", i, results[i].Summary)
		}
	}
}

func TestDo_SharedErrorReachesAllWaiters(t *testing.T) {
	t.Parallel()

	c := New(time.Hour)
	ctx := context.Background()
	boom := errors.New("model down")

	release := make(chan struct{})
	entered := make(chan struct{})

	var wg sync.WaitGroup
	const waiters = 8
	errs := make([]error, waiters)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _, errs[0] = c.Do(ctx, "k", func(context.Context) (*analysis.Report, error) {
			close(entered)
			<-release
			return nil, boom
		})
	}()
	<-entered

	for i := 1; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = c.Do(ctx, "k", func(context.Context) (*analysis.Report, error) {
				return nil, errors.New("unexpected second compute")
			})
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < waiters; i++ {
		if !errors.Is(errs[i], boom) {
			t.Errorf("waiter %d err = %v, want shared failure", i, errs[i])
		}
	}
}

func TestDo_WaitersGetDistinctCopies(t *testing.T) {
	t.Parallel()

	c := New(time.Hour)
	ctx := context.Background()

	a, _, _ := c.Do(ctx, "k", func(context.Context) (*analysis.Report, error) {
		return report("orig"), nil
	})
	a.Metadata.Cached = true
	a.Summary = "mutated"

	b, ok := c.Get(ctx, "k")
	if !ok {
		t.Fatal("expected hit")
	}
	if b.Summary != "orig" || b.Metadata.Cached {
		t.Error("Do result aliased the stored entry")
	}
}
