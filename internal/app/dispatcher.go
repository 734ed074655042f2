package app

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is a unit of best-effort background work.
type Job func(ctx context.Context) error

type queuedJob struct {
	op  string
	run Job
}

// Dispatcher runs jobs off the caller's path. Submit never blocks and job
// errors only reach the log.
type Dispatcher struct {
	name    string
	timeout time.Duration
	log     logrus.FieldLogger
	inline  bool

	mu     sync.RWMutex
	closed bool
	jobs   chan queuedJob
	wg     sync.WaitGroup
}

// NewDispatcher starts workers draining a queue of the given size. A single
// worker keeps jobs in submission order.
func NewDispatcher(name string, workers, queueSize int, timeout time.Duration, log logrus.FieldLogger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	d := newDispatcher(name, timeout, log)
	d.jobs = make(chan queuedJob, queueSize)
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// NewInlineDispatcher runs every job synchronously inside Submit.
func NewInlineDispatcher(name string, log logrus.FieldLogger) *Dispatcher {
	d := newDispatcher(name, 0, log)
	d.inline = true
	return d
}

func newDispatcher(name string, timeout time.Duration, log logrus.FieldLogger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{
		name:    name,
		timeout: timeout,
		log:     log.WithField("dispatcher", name),
	}
}

// Submit queues job. It reports false when the job was dropped.
func (d *Dispatcher) Submit(op string, job Job) bool {
	if d == nil || job == nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	if d.inline {
		d.run(queuedJob{op: op, run: job})
		return true
	}
	select {
	case d.jobs <- queuedJob{op: op, run: job}:
		return true
	default:
		d.log.WithField("op", op).Warn("queue full, dropping job")
		return false
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for job := range d.jobs {
		d.run(job)
	}
}

func (d *Dispatcher) run(job queuedJob) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			d.log.WithField("op", job.op).Errorf("job panicked: %v", rec)
		}
	}()
	if err := job.run(ctx); err != nil {
		d.log.WithError(err).WithField("op", job.op).Warn("background job failed")
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	if d.jobs != nil {
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
