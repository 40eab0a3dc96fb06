package payment

import (
	"context"
	"errors"
	"sync"

	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
)

// ErrQueueStopped is returned by Enqueue after Shutdown
var ErrQueueStopped = errors.New("sender queue is shut down")

// errNotQueued marks an Enqueue that gave up before the job was handed to a
// worker, so the caller still owns the submission
type errNotQueued struct{ cause error }

func (e *errNotQueued) Error() string { return "job not queued: " + e.cause.Error() }
func (e *errNotQueued) Unwrap() error { return e.cause }

// Job is one unit of work run on a sender's queue
type Job func(ctx context.Context) (any, error)

type queuedJob struct {
	ctx        context.Context
	jobID      string
	run        Job
	resultChan chan jobResult
}

type jobResult struct {
	value any
	err   error
}

type senderWorker struct {
	jobs    chan *queuedJob
	pending int
}

// SenderQueue runs jobs one at a time per sender. A worker goroutine is
// started on the first job of a sender and exits when its queue drains.
type SenderQueue struct {
	logger    coreport.Logger
	queueSize int

	mu      sync.Mutex
	workers map[string]*senderWorker
	stopped bool
	wg      sync.WaitGroup
}

// NewSenderQueue creates a queue holding up to queueSize waiting jobs per sender
func NewSenderQueue(logger coreport.Logger, queueSize int) *SenderQueue {
	if queueSize <= 0 {
		queueSize = 100
	}
	return &SenderQueue{
		logger:    logger,
		queueSize: queueSize,
		workers:   make(map[string]*senderWorker),
	}
}

// Enqueue runs job after every earlier job of the same sender and waits for
// its result. A job that was handed to the worker keeps running even if ctx
// is cancelled while waiting.
func (q *SenderQueue) Enqueue(ctx context.Context, senderID, jobID string, job Job) (any, error) {
	w, err := q.reserve(senderID)
	if err != nil {
		return nil, &errNotQueued{cause: err}
	}

	req := &queuedJob{
		ctx:        ctx,
		jobID:      jobID,
		run:        job,
		resultChan: make(chan jobResult, 1),
	}

	select {
	case w.jobs <- req:
		q.logger.Debug("Payment job enqueued", map[string]any{
			"sender_id": senderID,
			"job_id":    jobID,
		})
	case <-ctx.Done():
		if q.release(senderID, w) {
			close(w.jobs)
		}
		q.logger.Warn("Context canceled while enqueueing payment job", map[string]any{
			"sender_id": senderID,
			"job_id":    jobID,
			"error":     ctx.Err().Error(),
		})
		return nil, &errNotQueued{cause: ctx.Err()}
	}

	select {
	case res := <-req.resultChan:
		return res.value, res.err
	case <-ctx.Done():
		q.logger.Warn("Context canceled while waiting for payment job", map[string]any{
			"sender_id": senderID,
			"job_id":    jobID,
			"error":     ctx.Err().Error(),
		})
		return nil, ctx.Err()
	}
}

// reserve returns the sender's worker, starting one when needed, and counts
// the caller as pending so the worker does not exit underneath it
func (q *SenderQueue) reserve(senderID string) (*senderWorker, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return nil, ErrQueueStopped
	}

	w, ok := q.workers[senderID]
	if !ok {
		w = &senderWorker{jobs: make(chan *queuedJob, q.queueSize)}
		q.workers[senderID] = w
		q.wg.Add(1)
		go q.work(senderID, w)
		q.logger.Debug("Started sender queue worker", map[string]any{"sender_id": senderID})
	}
	w.pending++
	return w, nil
}

// release drops one pending job and reports whether it was the last one,
// in which case the worker is unregistered
func (q *SenderQueue) release(senderID string, w *senderWorker) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	w.pending--
	if w.pending > 0 {
		return false
	}
	if q.workers[senderID] == w {
		delete(q.workers, senderID)
	}
	return true
}

func (q *SenderQueue) work(senderID string, w *senderWorker) {
	defer q.wg.Done()

	for req := range w.jobs {
		value, err := q.runJob(senderID, req)
		req.resultChan <- jobResult{value: value, err: err}
		if q.release(senderID, w) {
			break
		}
	}
	q.logger.Debug("Sender queue worker idle, exiting", map[string]any{"sender_id": senderID})
}

func (q *SenderQueue) runJob(senderID string, req *queuedJob) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("Payment job panicked", map[string]any{
				"sender_id": senderID,
				"job_id":    req.jobID,
				"panic":     r,
			})
			err = errors.New("payment job panicked")
		}
	}()
	return req.run(req.ctx)
}

// ActiveSenders returns how many senders currently have a worker
func (q *SenderQueue) ActiveSenders() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.workers)
}

// Shutdown refuses new jobs, lets queued ones finish and waits for every worker
func (q *SenderQueue) Shutdown() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()

	q.logger.Info("Shutting down sender queue", nil)
	q.wg.Wait()
	q.logger.Info("Sender queue shut down", nil)
}
