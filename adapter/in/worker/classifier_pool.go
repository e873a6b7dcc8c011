package worker

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-pkgz/pool"
	"github.com/rs/zerolog"
)

// =============================================================================
// go-pkgz/pool based Worker Pool
// =============================================================================

// PoolConfig holds worker pool configuration.
type PoolConfig struct {
	MaxWorkers       int
	QueueSize        int
	JobTimeout       time.Duration
	JobTimeoutByType map[JobType]time.Duration
	BatchSize        int
	WorkerChanSize   int
	RatePerSecond    int
}

// DefaultPoolConfig returns default pool configuration.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxWorkers:     16,
		QueueSize:      1000,
		JobTimeout:     60 * time.Second,
		BatchSize:      10,
		WorkerChanSize: 100,
		RatePerSecond:  100,
		JobTimeoutByType: map[JobType]time.Duration{
			// Classification may wait on an LLM round-trip plus scraping.
			JobClassify:      2 * time.Minute,
			JobClassifyBatch: 10 * time.Minute,
		},
	}
}

// Pool runs classification jobs on a go-pkgz worker group with retry,
// rate limiting and a dead letter queue.
type Pool struct {
	handler *Handler
	config  *PoolConfig

	pool *pool.WorkerGroup[*Message]

	ctx    context.Context
	cancel context.CancelFunc

	metrics *PoolMetrics
	log     zerolog.Logger

	rateLimiter *RateLimiter

	dlq   chan *Message
	dlqWg sync.WaitGroup

	started bool
	mu      sync.Mutex
}

// PoolMetrics holds pool metrics.
type PoolMetrics struct {
	JobsProcessed  int64
	JobsFailed     int64
	JobsDropped    int64
	JobsRetried    int64
	AvgProcessTime int64 // milliseconds
	QueueSize      int32
}

// messageWorker implements pool.Worker for Message processing.
type messageWorker struct {
	pool *Pool
}

// Do implements pool.Worker.
func (w *messageWorker) Do(ctx context.Context, msg *Message) error {
	return w.pool.processJob(ctx, msg)
}

// NewPool creates a new worker pool.
func NewPool(handler *Handler, config *PoolConfig, log zerolog.Logger) *Pool {
	if config == nil {
		config = DefaultPoolConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		handler:     handler,
		config:      config,
		ctx:         ctx,
		cancel:      cancel,
		metrics:     &PoolMetrics{},
		log:         log.With().Str("component", "worker_pool").Logger(),
		rateLimiter: NewRateLimiter(config.RatePerSecond, time.Second),
		dlq:         make(chan *Message, 100),
	}
}

// Start starts the worker pool.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	worker := &messageWorker{pool: p}

	p.pool = pool.New[*Message](p.config.MaxWorkers, worker).
		WithBatchSize(p.config.BatchSize).
		WithWorkerChanSize(p.config.WorkerChanSize).
		WithContinueOnError()

	if err := p.pool.Go(p.ctx); err != nil {
		p.log.Error().Err(err).Msg("failed to start pool")
		return
	}

	p.started = true

	p.dlqWg.Add(1)
	go p.dlqProcessor()

	go p.metricsReporter()

	p.log.Info().
		Int("max_workers", p.config.MaxWorkers).
		Int("queue_size", p.config.QueueSize).
		Int("batch_size", p.config.BatchSize).
		Msg("worker pool started")
}

// Stop gracefully stops the worker pool.
func (p *Pool) Stop() {
	p.log.Info().Msg("stopping worker pool...")

	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer closeCancel()

	if p.pool != nil {
		if err := p.pool.Close(closeCtx); err != nil {
			p.log.Warn().Err(err).Msg("error closing pool")
		}
	}

	p.cancel()

	close(p.dlq)
	p.dlqWg.Wait()

	p.log.Info().
		Int64("processed", p.metrics.JobsProcessed).
		Int64("failed", p.metrics.JobsFailed).
		Msg("worker pool stopped")
}

// Submit submits a job to the pool.
func (p *Pool) Submit(msg *Message) bool {
	p.mu.Lock()
	if !p.started || p.pool == nil {
		p.mu.Unlock()
		return false
	}
	p.mu.Unlock()

	if !p.rateLimiter.Allow() {
		atomic.AddInt64(&p.metrics.JobsDropped, 1)
		p.log.Warn().
			Str("job_id", msg.ID).
			Str("job_type", string(msg.Type)).
			Msg("job dropped due to rate limiting")
		return false
	}

	p.pool.Submit(msg)
	atomic.AddInt32(&p.metrics.QueueSize, 1)
	return true
}

// SubmitBatch submits multiple jobs.
func (p *Pool) SubmitBatch(msgs []*Message) int {
	p.mu.Lock()
	if !p.started || p.pool == nil || len(msgs) == 0 {
		p.mu.Unlock()
		return 0
	}
	p.mu.Unlock()

	submitted := 0
	for _, msg := range msgs {
		if p.rateLimiter.Allow() {
			p.pool.Submit(msg)
			atomic.AddInt32(&p.metrics.QueueSize, 1)
			submitted++
		} else {
			atomic.AddInt64(&p.metrics.JobsDropped, 1)
		}
	}

	return submitted
}

// getJobTimeout returns the timeout for a job type.
func (p *Pool) getJobTimeout(jobType JobType) time.Duration {
	if timeout, ok := p.config.JobTimeoutByType[jobType]; ok {
		return timeout
	}
	return p.config.JobTimeout
}

// processJob processes a single job with timeout.
func (p *Pool) processJob(ctx context.Context, msg *Message) error {
	start := time.Now()
	defer func() {
		atomic.AddInt32(&p.metrics.QueueSize, -1)
	}()

	timeout := p.getJobTimeout(msg.Type)
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.handler.Process(jobCtx, msg)
	}()

	var err error
	select {
	case err = <-errCh:
	case <-jobCtx.Done():
		if jobCtx.Err() == context.DeadlineExceeded {
			err = context.DeadlineExceeded
			p.log.Warn().
				Str("job_id", msg.ID).
				Str("job_type", string(msg.Type)).
				Dur("timeout", timeout).
				Msg("job timed out")
		} else {
			err = jobCtx.Err()
		}
	}

	elapsed := time.Since(start).Milliseconds()
	p.updateAvgProcessTime(elapsed)

	if err != nil {
		p.log.Error().
			Err(err).
			Str("job_id", msg.ID).
			Str("job_type", string(msg.Type)).
			Int("retries", msg.Retries).
			Msg("job processing failed")

		// Retry with exponential backoff + jitter (prevents thundering herd)
		if msg.Retries < 3 {
			msg.Retries++
			atomic.AddInt64(&p.metrics.JobsRetried, 1)

			base := time.Duration(1<<msg.Retries) * time.Second
			jitter := time.Duration(rand.Intn(500)) * time.Millisecond
			backoff := base + jitter

			time.AfterFunc(backoff, func() {
				p.Submit(msg)
			})
		} else {
			atomic.AddInt64(&p.metrics.JobsFailed, 1)
			select {
			case p.dlq <- msg:
				p.log.Warn().
					Str("job_id", msg.ID).
					Str("job_type", string(msg.Type)).
					Msg("job moved to DLQ after max retries")
			default:
				p.log.Error().
					Str("job_id", msg.ID).
					Msg("DLQ full, job lost")
			}
		}
		return err
	}

	atomic.AddInt64(&p.metrics.JobsProcessed, 1)
	return nil
}

// updateAvgProcessTime updates the moving average processing time.
func (p *Pool) updateAvgProcessTime(elapsed int64) {
	current := atomic.LoadInt64(&p.metrics.AvgProcessTime)
	if current == 0 {
		atomic.StoreInt64(&p.metrics.AvgProcessTime, elapsed)
	} else {
		newAvg := (current*9 + elapsed) / 10
		atomic.StoreInt64(&p.metrics.AvgProcessTime, newAvg)
	}
}

// dlqProcessor drains the dead letter queue.
func (p *Pool) dlqProcessor() {
	defer p.dlqWg.Done()

	for {
		select {
		case <-p.ctx.Done():
			for msg := range p.dlq {
				p.log.Error().
					Str("job_id", msg.ID).
					Str("job_type", string(msg.Type)).
					Msg("DLQ: job lost during shutdown")
			}
			return
		case msg, ok := <-p.dlq:
			if !ok {
				return
			}
			p.log.Error().
				Str("job_id", msg.ID).
				Str("job_type", string(msg.Type)).
				Int("retries", msg.Retries).
				Interface("payload", msg.Payload).
				Msg("DLQ: job permanently failed")
		}
	}
}

// metricsReporter periodically logs metrics.
func (p *Pool) metricsReporter() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.log.Info().
				Int64("processed", atomic.LoadInt64(&p.metrics.JobsProcessed)).
				Int64("failed", atomic.LoadInt64(&p.metrics.JobsFailed)).
				Int64("dropped", atomic.LoadInt64(&p.metrics.JobsDropped)).
				Int64("retried", atomic.LoadInt64(&p.metrics.JobsRetried)).
				Int64("avg_process_ms", atomic.LoadInt64(&p.metrics.AvgProcessTime)).
				Int32("queue_size", atomic.LoadInt32(&p.metrics.QueueSize)).
				Msg("worker pool metrics")
		}
	}
}

// GetMetrics returns current pool metrics.
func (p *Pool) GetMetrics() PoolMetrics {
	return PoolMetrics{
		JobsProcessed:  atomic.LoadInt64(&p.metrics.JobsProcessed),
		JobsFailed:     atomic.LoadInt64(&p.metrics.JobsFailed),
		JobsDropped:    atomic.LoadInt64(&p.metrics.JobsDropped),
		JobsRetried:    atomic.LoadInt64(&p.metrics.JobsRetried),
		AvgProcessTime: atomic.LoadInt64(&p.metrics.AvgProcessTime),
		QueueSize:      atomic.LoadInt32(&p.metrics.QueueSize),
	}
}

// Wait waits for all submitted jobs to complete.
func (p *Pool) Wait() error {
	p.mu.Lock()
	pool := p.pool
	p.mu.Unlock()

	if pool != nil {
		return pool.Wait(p.ctx)
	}
	return nil
}

// =============================================================================
// Rate Limiter
// =============================================================================

// RateLimiter implements a lock-free token bucket using atomic operations.
type RateLimiter struct {
	tokens       int64 // atomic
	maxTokens    int64 // atomic
	refillRate   int64 // atomic
	intervalNs   int64 // interval in nanoseconds (atomic)
	lastRefillNs int64 // atomic (UnixNano)
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(ratePerSecond int, interval time.Duration) *RateLimiter {
	tokens := int64(ratePerSecond)
	return &RateLimiter{
		tokens:       tokens,
		maxTokens:    tokens,
		refillRate:   tokens,
		intervalNs:   int64(interval),
		lastRefillNs: time.Now().UnixNano(),
	}
}

// Allow checks if a request is allowed (lock-free).
func (r *RateLimiter) Allow() bool {
	now := time.Now().UnixNano()
	intervalNs := atomic.LoadInt64(&r.intervalNs)
	lastRefill := atomic.LoadInt64(&r.lastRefillNs)

	elapsed := now - lastRefill
	if elapsed >= intervalNs {
		intervals := elapsed / intervalNs
		refillRate := atomic.LoadInt64(&r.refillRate)
		maxTokens := atomic.LoadInt64(&r.maxTokens)
		tokensToAdd := intervals * refillRate

		if atomic.CompareAndSwapInt64(&r.lastRefillNs, lastRefill, now) {
			for {
				current := atomic.LoadInt64(&r.tokens)
				newTokens := current + tokensToAdd
				if newTokens > maxTokens {
					newTokens = maxTokens
				}
				if atomic.CompareAndSwapInt64(&r.tokens, current, newTokens) {
					break
				}
			}
		}
	}

	for {
		current := atomic.LoadInt64(&r.tokens)
		if current <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt64(&r.tokens, current, current-1) {
			return true
		}
	}
}

// SetRate updates the rate limit atomically.
func (r *RateLimiter) SetRate(ratePerSecond int) {
	atomic.StoreInt64(&r.maxTokens, int64(ratePerSecond))
	atomic.StoreInt64(&r.refillRate, int64(ratePerSecond))
}
