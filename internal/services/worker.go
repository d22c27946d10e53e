package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/talent-graph/internal/repositories"
)

type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueJob(jobID uuid.UUID)
}

type worker struct {
	jobRepo      repositories.IngestionJobRepository
	ingestion    IngestionService
	jobQueue     chan uuid.UUID
	concurrency  int
	pollInterval time.Duration
	staleAfter   time.Duration
	wg           sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once
	log          *zap.Logger
}

func NewWorker(
	jobRepo repositories.IngestionJobRepository,
	ingestion IngestionService,
	concurrency int,
	pollInterval time.Duration,
	staleAfter time.Duration,
	log *zap.Logger,
) Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	return &worker{
		jobRepo:      jobRepo,
		ingestion:    ingestion,
		jobQueue:     make(chan uuid.UUID, 100),
		concurrency:  concurrency,
		pollInterval: pollInterval,
		staleAfter:   staleAfter,
		stopChan:     make(chan struct{}),
		log:          log.With(zap.String("component", "worker")),
	}
}

func (w *worker) Start(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollQueuedJobs(ctx)

	w.log.Info("worker started", zap.Int("concurrency", w.concurrency))
}

func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
	w.wg.Wait()
	w.log.Info("worker stopped")
}

// EnqueueJob hands a job to the pool without blocking. Jobs dropped here are
// picked up again by the poller since they stay queued in the database.
func (w *worker) EnqueueJob(jobID uuid.UUID) {
	select {
	case <-w.stopChan:
		w.log.Warn("worker stopped, job left queued", zap.String("job_id", jobID.String()))
		return
	default:
	}

	select {
	case w.jobQueue <- jobID:
		w.log.Debug("job enqueued", zap.String("job_id", jobID.String()))
	default:
		w.log.Warn("job queue full, left for poller", zap.String("job_id", jobID.String()))
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()
	log := w.log.With(zap.Int("worker", workerID))

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case jobID := <-w.jobQueue:
			if err := w.ingestion.ProcessJob(ctx, jobID); err != nil {
				log.Error("ingestion job failed", zap.String("job_id", jobID.String()), zap.Error(err))
				continue
			}
			log.Info("ingestion job done", zap.String("job_id", jobID.String()))
		}
	}
}

func (w *worker) pollQueuedJobs(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := w.jobRepo.RequeueStale(ctx, w.staleAfter); err != nil {
				w.log.Warn("failed to requeue stale jobs", zap.Error(err))
			} else if n > 0 {
				w.log.Warn("requeued stale jobs", zap.Int64("count", n))
			}

			jobs, err := w.jobRepo.FindQueued(ctx, 10)
			if err != nil {
				w.log.Warn("failed to fetch queued jobs", zap.Error(err))
				continue
			}
			for _, job := range jobs {
				w.EnqueueJob(job.ID)
			}
		}
	}
}
