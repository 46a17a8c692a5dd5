package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrQueueClosed is returned when enqueueing to a closed MemoryQueue.
var ErrQueueClosed = errors.New("queue closed")

// MemoryQueue is an in-process JobQueue for single-process deployments
// without a broker. Jobs do not survive a restart. Rejected jobs without
// requeue are kept in a bounded dead-letter list.
type MemoryQueue struct {
	mu      sync.Mutex
	ready   chan *Job
	done    chan struct{}
	timers  map[*time.Timer]struct{}
	dead    []deadJob
	closed  bool
	maxDead int
	now     func() time.Time
}

type deadJob struct {
	job *Job
	at  time.Time
}

// NewMemoryQueue creates an in-memory queue holding up to size ready jobs.
func NewMemoryQueue(size int) *MemoryQueue {
	if size < 1 {
		size = 1
	}
	return &MemoryQueue{
		ready:   make(chan *Job, size),
		done:    make(chan struct{}),
		timers:  make(map[*time.Timer]struct{}),
		maxDead: 1000,
		now:     time.Now,
	}
}

// Enqueue makes job ready now or after its NotBefore.
func (q *MemoryQueue) Enqueue(ctx context.Context, job *Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if wait := job.Wait(q.now()); wait > 0 {
		var timer *time.Timer
		timer = time.AfterFunc(wait, func() {
			q.mu.Lock()
			delete(q.timers, timer)
			q.mu.Unlock()
			_ = q.push(context.Background(), job)
		})
		q.timers[timer] = struct{}{}
		q.mu.Unlock()
		return nil
	}
	q.mu.Unlock()
	return q.push(ctx, job)
}

func (q *MemoryQueue) push(ctx context.Context, job *Job) error {
	select {
	case q.ready <- job:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

type memoryDelivery struct {
	q    *MemoryQueue
	job  *Job
	once sync.Once
}

func (d *memoryDelivery) Job() *Job { return d.job }

func (d *memoryDelivery) Ack() error { return nil }

func (d *memoryDelivery) Nack(requeue bool) error {
	var err error
	d.once.Do(func() {
		if requeue {
			err = d.q.push(context.Background(), d.job)
			return
		}
		d.q.deadLetter(d.job)
	})
	return err
}

func (q *MemoryQueue) deadLetter(job *Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, deadJob{job: job, at: q.now()})
	if len(q.dead) > q.maxDead {
		q.dead = q.dead[len(q.dead)-q.maxDead:]
	}
}

// Consume delivers ready jobs until ctx is cancelled or the queue is closed.
// prefetch is ignored; the ready channel already bounds buffering.
func (q *MemoryQueue) Consume(ctx context.Context, _ int) (<-chan Delivery, <-chan error, error) {
	out := make(chan Delivery)
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			case <-q.done:
				return
			case job := <-q.ready:
				if job.IsExpired(q.now()) {
					q.deadLetter(job)
					continue
				}
				select {
				case out <- &memoryDelivery{q: q, job: job}:
				case <-q.done:
					return
				case <-ctx.Done():
					go func() { _ = q.push(context.Background(), job) }()
					return
				}
			}
		}
	}()
	return out, errs, nil
}

// DeadLetters returns the jobs rejected without requeue, oldest first.
func (q *MemoryQueue) DeadLetters() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	jobs := make([]*Job, 0, len(q.dead))
	for _, d := range q.dead {
		jobs = append(jobs, d.job)
	}
	return jobs
}

// PurgeOlderThan drops dead letters recorded more than retention ago.
func (q *MemoryQueue) PurgeOlderThan(_ context.Context, retention time.Duration) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	cutoff := q.now().Add(-retention)
	kept := q.dead[:0]
	for _, d := range q.dead {
		if d.at.After(cutoff) {
			kept = append(kept, d)
		}
	}
	purged := len(q.dead) - len(kept)
	q.dead = kept
	return purged, nil
}

// HealthCheck fails once the queue is closed.
func (q *MemoryQueue) HealthCheck(context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	return nil
}

// Close stops pending timers and ends every Consume stream.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	for t := range q.timers {
		t.Stop()
	}
	q.timers = nil
	close(q.done)
	return nil
}

var (
	_ JobQueue  = (*MemoryQueue)(nil)
	_ DLQPurger = (*MemoryQueue)(nil)
)
