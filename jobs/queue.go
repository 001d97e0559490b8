package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/ctr-mapper/logger"
)

// Queue distributes submitted jobs over a fixed pool of workers. It is safe
// for concurrent use.
type Queue struct {
	jobChan   chan *Job
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     *Store
	workers   int
	closed    bool
}

// NewQueue creates a queue. bufferSize is how many jobs may wait before
// Submit reports ErrQueueFull.
func NewQueue(workers, bufferSize int, store *Store) *Queue {
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		jobChan:   make(chan *Job, bufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		workers:   workers,
	}
}

// Submit assigns an ID, records the job as pending and enqueues it.
func (q *Queue) Submit(ctx context.Context, job *Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.Status = StatusPending
	if job.Message == "" {
		job.Message = "File uploaded, processing queued"
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if err := q.store.Save(job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	select {
	case q.jobChan <- job:
		return nil
	default:
		q.store.Delete(job.ID)
		return ErrQueueFull
	}
}

// Start launches the workers. Each job is handled once; failures are
// recorded on the job, not retried.
func (q *Queue) Start(ctx context.Context, handler Handler) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler Handler) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			q.process(ctx, job, handler)
		}
	}
}

func (q *Queue) process(ctx context.Context, job *Job, handler Handler) {
	log := logger.WithFields(logger.FromContext(ctx), map[string]any{
		"job_id": job.ID,
		"type":   string(job.Type),
	})
	ctx = logger.WithContext(ctx, log)

	started := time.Now()
	job.Status = StatusProcessing
	job.Message = "Processing file"
	job.StartedAt = &started
	_ = q.store.Save(job)
	log.Info().Str("file", job.OriginalName).Msg("job started")

	result, err := runHandler(ctx, job, handler)

	completed := time.Now()
	job.CompletedAt = &completed
	job.ProcessingTime = completed.Sub(started).Seconds()
	if err != nil {
		job.Status = StatusFailed
		job.Message = "Processing failed"
		job.Error = err.Error()
		log.Error().Err(err).Float64("seconds", job.ProcessingTime).Msg("job failed")
	} else {
		job.Status = StatusCompleted
		job.Message = "Processing completed"
		job.Result = result
		log.Info().Float64("seconds", job.ProcessingTime).Msg("job completed")
	}
	_ = q.store.Save(job)
}

// runHandler turns a handler panic into a job failure.
func runHandler(ctx context.Context, job *Job, handler Handler) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return handler(ctx, job)
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
