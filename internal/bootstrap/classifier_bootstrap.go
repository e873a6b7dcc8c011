package bootstrap

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"classifier_server/adapter/in/worker"
	"classifier_server/adapter/out/provider/gmail"
	"classifier_server/config"
	"classifier_server/internal/stream"
	"classifier_server/pkg/logger"
)

type Worker struct {
	pool        *worker.Pool
	consumer    *stream.Consumer
	gmailSource *gmail.Source
	deps        *Dependencies
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	zlog        zerolog.Logger
	pruneTTL    time.Duration
}

func NewWorker(cfg *config.Config) (*Worker, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		return nil, nil, err
	}

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "worker").Logger()

	processor := worker.NewClassifyProcessor(deps.Pipeline, deps.Log)
	handler := worker.NewHandler(processor)

	defaultConfig := worker.DefaultPoolConfig()
	poolConfig := &worker.PoolConfig{
		MaxWorkers:       cfg.WorkerMax,
		QueueSize:        cfg.WorkerQueueSize,
		JobTimeout:       defaultConfig.JobTimeout,
		JobTimeoutByType: defaultConfig.JobTimeoutByType,
		BatchSize:        defaultConfig.BatchSize,
		WorkerChanSize:   defaultConfig.WorkerChanSize,
		RatePerSecond:    defaultConfig.RatePerSecond,
	}
	if poolConfig.MaxWorkers == 0 {
		poolConfig.MaxWorkers = defaultConfig.MaxWorkers
	}
	if poolConfig.QueueSize == 0 {
		poolConfig.QueueSize = defaultConfig.QueueSize
	}

	pool := worker.NewPool(handler, poolConfig, zlog)

	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		pool:     pool,
		deps:     deps,
		ctx:      ctx,
		cancel:   cancel,
		zlog:     zlog,
		pruneTTL: cfg.VectorEntryTTL,
	}

	if deps.RedisStream != nil {
		w.consumer = stream.NewConsumer(deps.RedisStream, pool, cfg.WorkerID)
		logger.Info("Redis Stream Consumer configured")
	} else {
		logger.Warn("Redis not available, worker will only process direct submissions")
	}

	if cfg.GmailIngestEnabled {
		if deps.Producer == nil {
			logger.Warn("Gmail ingestion requires Redis, disabled")
		} else {
			source, err := gmail.NewSource(ctx, gmail.SourceConfig{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				RefreshToken: cfg.GmailRefreshToken,
				PollInterval: cfg.GmailPollInterval,
				Query:        cfg.GmailQuery,
			}, deps.Producer, deps.Log)
			if err != nil {
				logger.WithError(err).Warn("Gmail source initialization failed")
			} else {
				w.gmailSource = source
			}
		}
	}

	return w, cleanup, nil
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pool.Start()
	}()

	if w.consumer != nil {
		w.zlog.Info().Msg("Starting Redis Stream Consumer...")
		w.consumer.Start(w.ctx)
	}

	if w.gmailSource != nil {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.gmailSource.Run(w.ctx)
		}()
	}

	if w.pruneTTL > 0 {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.pruneLoop()
		}()
	}

	<-w.ctx.Done()
}

// pruneLoop evicts vector entries older than the configured TTL.
func (w *Worker) pruneLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-w.pruneTTL)
			removed, err := w.deps.VectorIndex.Prune(w.ctx, cutoff)
			if err != nil {
				w.zlog.Warn().Err(err).Msg("vector prune failed")
				continue
			}
			if removed > 0 {
				w.zlog.Info().Int64("removed", removed).Msg("vector entries pruned")
			}
		}
	}
}

func (w *Worker) Stop() {
	w.cancel()
	w.pool.Stop()
	w.wg.Wait()
}

func (w *Worker) Submit(msg *worker.Message) bool {
	return w.pool.Submit(msg)
}

func (w *Worker) GetMetrics() worker.PoolMetrics {
	return w.pool.GetMetrics()
}

func (w *Worker) Dependencies() *Dependencies {
	return w.deps
}
