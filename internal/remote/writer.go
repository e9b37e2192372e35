package remote

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultWriteTimeout = 10 * time.Second

// Writer performs fire-and-forget field writes on a single goroutine, in the
// order they were enqueued. Failures are logged and otherwise ignored; the
// local cache stays authoritative for the session.
type Writer struct {
	store   Store
	log     zerolog.Logger
	timeout time.Duration

	mu      sync.Mutex
	queue   []writeJob
	closed  bool
	signal  chan struct{}
	pending int
	idle    *sync.Cond // broadcast when pending drops to zero
	done    chan struct{}
}

type writeJob struct {
	ctx     context.Context
	ownerID string
	field   Field
	value   any
	tag     Tag
}

// NewWriter starts a writer over store. A non-positive timeout uses 10s.
func NewWriter(store Store, logger zerolog.Logger, timeout time.Duration) *Writer {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	w := &Writer{
		store:   store,
		log:     logger.With().Str("component", "remote-writer").Logger(),
		timeout: timeout,
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	w.idle = sync.NewCond(&w.mu)
	go w.loop()
	return w
}

// Enqueue schedules a write. The value is copied before Enqueue returns, so
// callers may keep mutating their slices. Writes whose ctx is cancelled before
// they run are dropped.
func (w *Writer) Enqueue(ctx context.Context, ownerID string, field Field, value any, tag Tag) {
	encoded, err := encodeValue(field, value)
	if err != nil {
		w.log.Error().Err(err).Str("owner", ownerID).Msg("rejecting remote write")
		return
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.log.Debug().Str("field", string(field)).Msg("writer closed; dropping write")
		return
	}
	w.pending++
	w.queue = append(w.queue, writeJob{ctx: ctx, ownerID: ownerID, field: field, value: encoded, tag: tag})
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Wait blocks until every write enqueued so far has finished or been dropped.
// Enqueue may be called concurrently with Wait.
func (w *Writer) Wait() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.pending > 0 {
		w.idle.Wait()
	}
}

// Close drains queued writes and stops the worker.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
	<-w.done
}

func (w *Writer) loop() {
	defer close(w.done)
	for range w.signal {
		for {
			job, ok := w.next()
			if !ok {
				break
			}
			w.run(job)
		}
		w.mu.Lock()
		stop := w.closed && len(w.queue) == 0
		w.mu.Unlock()
		if stop {
			return
		}
	}
}

func (w *Writer) next() (writeJob, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return writeJob{}, false
	}
	job := w.queue[0]
	w.queue[0] = writeJob{}
	w.queue = w.queue[1:]
	return job, true
}

func (w *Writer) run(job writeJob) {
	defer w.finish()

	if job.ctx.Err() != nil {
		w.log.Debug().
			Str("owner", job.ownerID).
			Str("field", string(job.field)).
			Msg("dropping stale remote write")
		return
	}

	ctx, cancel := context.WithTimeout(job.ctx, w.timeout)
	defer cancel()

	start := time.Now()
	err := w.store.WriteField(ctx, job.ownerID, job.field, job.value, job.tag)
	if err != nil {
		w.log.Warn().
			Err(err).
			Str("owner", job.ownerID).
			Str("field", string(job.field)).
			Int64("revision", job.tag.Revision).
			Msg("remote write failed")
	} else {
		w.log.Debug().
			Str("owner", job.ownerID).
			Str("field", string(job.field)).
			Int64("revision", job.tag.Revision).
			Dur("took", time.Since(start)).
			Msg("remote write ok")
	}
}

func (w *Writer) finish() {
	w.mu.Lock()
	w.pending--
	if w.pending == 0 {
		w.idle.Broadcast()
	}
	w.mu.Unlock()
}
