package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrPoolClosed is returned by Pool.Embed after Close.
	ErrPoolClosed = errors.New("embedding pool closed")
	// ErrWorkerCrashed is returned for a job whose worker panicked.
	ErrWorkerCrashed = errors.New("embedding worker crashed")
)

// Factory builds the Embedder owned by one pool worker.
type Factory func(ctx context.Context) (Embedder, error)

// PoolObserver receives pool metrics. *observability.Metrics satisfies it.
type PoolObserver interface {
	SetWorkers(n int)
	ObserveEmbedding(d time.Duration)
}

// PoolOptions configures a Pool.
type PoolOptions struct {
	MinWorkers  int
	MaxWorkers  int
	IdleTimeout time.Duration
	// Dimensions is reported by Pool.Dimensions before any worker has built an embedder.
	Dimensions int
	Logger     *zap.Logger
	Observer   PoolObserver
}

// PoolStats is a snapshot of the pool's workers.
type PoolStats struct {
	Workers int
	Busy    int
	Waiting int
}

type job struct {
	ctx    context.Context
	text   string
	result chan jobResult
}

type jobResult struct {
	embedding []float32
	err       error
}

// Pool runs embedding jobs on a bounded set of worker goroutines. Each worker owns one
// Embedder, built on its first job. Workers above MinWorkers exit after IdleTimeout without
// work; a worker that panics is replaced.
type Pool struct {
	factory Factory
	opts    PoolOptions
	logger  *zap.Logger

	jobs chan job
	quit chan struct{}
	wg   sync.WaitGroup

	mu      sync.Mutex
	workers int
	busy    int
	waiting int
	nextID  int
	closed  bool
}

// NewPool starts MinWorkers workers. Embedders are not built until the first job arrives.
func NewPool(factory Factory, opts PoolOptions) *Pool {
	if opts.MinWorkers < 1 {
		opts.MinWorkers = 1
	}
	if opts.MaxWorkers < opts.MinWorkers {
		opts.MaxWorkers = opts.MinWorkers
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pool{
		factory: factory,
		opts:    opts,
		logger:  logger,
		jobs:    make(chan job),
		quit:    make(chan struct{}),
	}
	p.mu.Lock()
	for i := 0; i < opts.MinWorkers; i++ {
		p.spawnLocked()
	}
	p.mu.Unlock()
	return p
}

// Embed runs text through a free worker. It blocks until a worker takes the job or ctx is done.
func (p *Pool) Embed(ctx context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if p.workers-p.busy-p.waiting <= 0 && p.workers < p.opts.MaxWorkers {
		p.spawnLocked()
	}
	p.waiting++
	p.mu.Unlock()

	start := time.Now()
	j := job{ctx: ctx, text: text, result: make(chan jobResult, 1)}
	select {
	case p.jobs <- j:
		p.doneWaiting()
	case <-ctx.Done():
		p.doneWaiting()
		return nil, ctx.Err()
	case <-p.quit:
		p.doneWaiting()
		return nil, ErrPoolClosed
	}

	select {
	case r := <-j.result:
		if r.err == nil && p.opts.Observer != nil {
			p.opts.Observer.ObserveEmbedding(time.Since(start))
		}
		return r.embedding, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// EmbedBatch embeds texts one job at a time.
func (p *Pool) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, p.Embed)
}

// Dimensions returns the configured embedding dimension.
func (p *Pool) Dimensions() int {
	return p.opts.Dimensions
}

// Stats returns the current worker counts.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{Workers: p.workers, Busy: p.busy, Waiting: p.waiting}
}

// Close stops all workers and waits for in-flight jobs to finish. Safe to call twice.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.quit)
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}

func (p *Pool) doneWaiting() {
	p.mu.Lock()
	p.waiting--
	p.mu.Unlock()
}

// spawnLocked starts a worker. p.mu must be held.
func (p *Pool) spawnLocked() {
	p.workers++
	p.nextID++
	p.wg.Add(1)
	go p.worker(p.nextID)
	p.reportWorkersLocked()
}

func (p *Pool) reportWorkersLocked() {
	if p.opts.Observer != nil {
		p.opts.Observer.SetWorkers(p.workers)
	}
}

func (p *Pool) setBusy(delta int) {
	p.mu.Lock()
	p.busy += delta
	p.mu.Unlock()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	log := p.logger.With(zap.Int("worker", id))
	log.Debug("embedding worker started")

	var emb Embedder
	defer func() {
		if emb != nil {
			if err := emb.Close(); err != nil {
				log.Warn("closing embedder", zap.Error(err))
			}
		}
	}()

	idle := time.NewTimer(p.opts.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-p.quit:
			p.mu.Lock()
			p.workers--
			p.reportWorkersLocked()
			p.mu.Unlock()
			return
		case j := <-p.jobs:
			p.setBusy(1)
			var crashed bool
			emb, crashed = p.run(log, emb, j)
			p.setBusy(-1)
			if crashed {
				p.replace(log)
				return
			}
			idle.Reset(p.opts.IdleTimeout)
		case <-idle.C:
			if p.retire() {
				log.Debug("embedding worker idle, exiting")
				return
			}
			idle.Reset(p.opts.IdleTimeout)
		}
	}
}

// run executes j on emb, building emb first if needed. A panic is reported to the caller
// and the embedder is discarded.
func (p *Pool) run(log *zap.Logger, emb Embedder, j job) (_ Embedder, crashed bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("embedding worker panicked", zap.Any("panic", r))
			j.result <- jobResult{err: fmt.Errorf("%w: %v", ErrWorkerCrashed, r)}
			if emb != nil {
				_ = emb.Close()
			}
			crashed = true
		}
	}()

	if err := j.ctx.Err(); err != nil {
		j.result <- jobResult{err: err}
		return emb, false
	}
	if emb == nil {
		e, err := p.factory(j.ctx)
		if err != nil {
			j.result <- jobResult{err: fmt.Errorf("embedding worker init: %w", err)}
			return nil, false
		}
		log.Debug("embedder initialized")
		emb = e
	}
	v, err := emb.Embed(j.ctx, j.text)
	j.result <- jobResult{embedding: v, err: err}
	return emb, false
}

// replace swaps a crashed worker for a fresh one, keeping the worker count unchanged.
func (p *Pool) replace(log *zap.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.workers--
		p.reportWorkersLocked()
		return
	}
	log.Warn("replacing crashed embedding worker")
	p.workers--
	p.spawnLocked()
}

// retire reports whether an idle worker may exit, and accounts for it if so.
func (p *Pool) retire() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.workers <= p.opts.MinWorkers {
		return false
	}
	p.workers--
	p.reportWorkersLocked()
	return true
}
