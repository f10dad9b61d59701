package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type funcEmbedder struct {
	embed  func(ctx context.Context, text string) ([]float32, error)
	closed *atomic.Int32
}

func (f *funcEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.embed(ctx, text)
}

func (f *funcEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, f.Embed)
}

func (f *funcEmbedder) Dimensions() int { return 2 }

func (f *funcEmbedder) Close() error {
	if f.closed != nil {
		f.closed.Add(1)
	}
	return nil
}

func constant(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestPool_LazyInit(t *testing.T) {
	var built atomic.Int32
	p := NewPool(func(context.Context) (Embedder, error) {
		built.Add(1)
		return &funcEmbedder{embed: constant}, nil
	}, PoolOptions{MinWorkers: 1, MaxWorkers: 2, Dimensions: 2})
	defer p.Close()

	if got := p.Stats().Workers; got != 1 {
		t.Errorf("workers at start = %d, want 1", got)
	}
	if built.Load() != 0 {
		t.Fatal("embedder should not be built before the first job")
	}
	for i := 0; i < 3; i++ {
		v, err := p.Embed(context.Background(), "hello")
		if err != nil {
			t.Fatal(err)
		}
		if len(v) != 2 {
			t.Fatalf("len = %d", len(v))
		}
	}
	if built.Load() != 1 {
		t.Errorf("factory called %d times, want 1", built.Load())
	}
	if p.Dimensions() != 2 {
		t.Errorf("Dimensions = %d", p.Dimensions())
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	var active, peak atomic.Int32
	gate := make(chan struct{})
	p := NewPool(func(context.Context) (Embedder, error) {
		return &funcEmbedder{embed: func(ctx context.Context, _ string) ([]float32, error) {
			n := active.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			<-gate
			active.Add(-1)
			return []float32{1, 0}, nil
		}}, nil
	}, PoolOptions{MinWorkers: 1, MaxWorkers: 2})
	defer p.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Embed(context.Background(), "q")
			errs <- err
		}()
	}
	waitFor(t, "two active jobs", func() bool { return active.Load() == 2 })
	time.Sleep(20 * time.Millisecond)
	if got := p.Stats().Workers; got > 2 {
		t.Errorf("workers = %d, want at most 2", got)
	}
	close(gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Embed: %v", err)
		}
	}
	if peak.Load() != 2 {
		t.Errorf("peak concurrency = %d, want 2", peak.Load())
	}
}

func TestPool_IdleWorkersExit(t *testing.T) {
	var closed atomic.Int32
	gate := make(chan struct{})
	p := NewPool(func(context.Context) (Embedder, error) {
		return &funcEmbedder{closed: &closed, embed: func(context.Context, string) ([]float32, error) {
			<-gate
			return []float32{1, 0}, nil
		}}, nil
	}, PoolOptions{MinWorkers: 1, MaxWorkers: 2, IdleTimeout: 30 * time.Millisecond})
	defer p.Close()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Embed(context.Background(), "q")
		}()
	}
	waitFor(t, "two busy workers", func() bool { return p.Stats().Busy == 2 })
	close(gate)
	wg.Wait()

	waitFor(t, "idle worker exit", func() bool { return p.Stats().Workers == 1 })
	waitFor(t, "embedder close", func() bool { return closed.Load() == 1 })

	time.Sleep(100 * time.Millisecond)
	if got := p.Stats().Workers; got != 1 {
		t.Errorf("workers = %d, want the minimum of 1 to stay", got)
	}
}

func TestPool_ReplacesCrashedWorker(t *testing.T) {
	var built atomic.Int32
	p := NewPool(func(context.Context) (Embedder, error) {
		built.Add(1)
		return &funcEmbedder{embed: func(_ context.Context, text string) ([]float32, error) {
			if text == "boom" {
				panic("model exploded")
			}
			return []float32{1, 0}, nil
		}}, nil
	}, PoolOptions{MinWorkers: 1, MaxWorkers: 1})
	defer p.Close()

	if _, err := p.Embed(context.Background(), "boom"); !errors.Is(err, ErrWorkerCrashed) {
		t.Fatalf("err = %v, want ErrWorkerCrashed", err)
	}
	v, err := p.Embed(context.Background(), "fine")
	if err != nil {
		t.Fatalf("after crash: %v", err)
	}
	if len(v) != 2 {
		t.Errorf("len = %d", len(v))
	}
	if built.Load() != 2 {
		t.Errorf("factory called %d times, want 2 (replacement re-initializes)", built.Load())
	}
	if got := p.Stats().Workers; got != 1 {
		t.Errorf("workers = %d, want 1", got)
	}
}

func TestPool_ContextCancelledWhileQueued(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	p := NewPool(func(context.Context) (Embedder, error) {
		return &funcEmbedder{embed: func(context.Context, string) ([]float32, error) {
			<-gate
			return []float32{1, 0}, nil
		}}, nil
	}, PoolOptions{MinWorkers: 1, MaxWorkers: 1})

	go func() { _, _ = p.Embed(context.Background(), "first") }()
	waitFor(t, "busy worker", func() bool { return p.Stats().Busy == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.Embed(ctx, "second"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if got := p.Stats().Waiting; got != 0 {
		t.Errorf("waiting = %d after cancellation", got)
	}
}

func TestPool_FactoryErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	p := NewPool(func(context.Context) (Embedder, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("model file missing")
		}
		return &funcEmbedder{embed: constant}, nil
	}, PoolOptions{})
	defer p.Close()

	if _, err := p.Embed(context.Background(), "q"); err == nil {
		t.Fatal("expected init error")
	}
	if _, err := p.Embed(context.Background(), "q"); err != nil {
		t.Fatalf("second call: %v", err)
	}
}

func TestPool_Closed(t *testing.T) {
	var closed atomic.Int32
	p := NewPool(func(context.Context) (Embedder, error) {
		return &funcEmbedder{embed: constant, closed: &closed}, nil
	}, PoolOptions{MinWorkers: 2, MaxWorkers: 2})
	if _, err := p.Embed(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := p.Embed(context.Background(), "q"); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("err = %v, want ErrPoolClosed", err)
	}
	if got := p.Stats().Workers; got != 0 {
		t.Errorf("workers after close = %d", got)
	}
	if closed.Load() != 1 {
		t.Errorf("closed embedders = %d, want 1 (only the initialized one)", closed.Load())
	}
}

type gaugeObserver struct {
	mu      sync.Mutex
	workers int
}

func (g *gaugeObserver) SetWorkers(n int) {
	g.mu.Lock()
	g.workers = n
	g.mu.Unlock()
}

func (g *gaugeObserver) ObserveEmbedding(time.Duration) {}

func (g *gaugeObserver) value() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.workers
}

func TestPool_CloseResetsWorkerGauge(t *testing.T) {
	obs := &gaugeObserver{}
	p := NewPool(func(context.Context) (Embedder, error) {
		return &funcEmbedder{embed: constant}, nil
	}, PoolOptions{MinWorkers: 2, MaxWorkers: 3, Observer: obs})
	if got := obs.value(); got != 2 {
		t.Fatalf("gauge before close = %d, want 2", got)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if got := obs.value(); got != 0 {
		t.Errorf("gauge after close = %d, want 0", got)
	}
}
