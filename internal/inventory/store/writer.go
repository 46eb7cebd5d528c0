package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/abgdnv/inventory/internal/inventory/kv"
)

// writer persists snapshots through a single goroutine.
// Only the newest pending snapshot is written, so writes reach the backend in issue order
// and the last write always carries the latest in-memory state.
type writer struct {
	storage kv.Storage
	key     string
	timeout time.Duration
	logger  *slog.Logger

	mu         sync.Mutex
	pending    []byte
	pendingSeq uint64
	doneSeq    uint64 // highest seq attempted
	lastErr    error  // outcome of the attempt that reached doneSeq
	progress   chan struct{}

	wake    chan struct{}
	stop    chan struct{}
	stopped chan struct{}
}

func newWriter(storage kv.Storage, key string, timeout time.Duration, logger *slog.Logger) *writer {
	w := &writer{
		storage:  storage,
		key:      key,
		timeout:  timeout,
		logger:   logger,
		progress: make(chan struct{}),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.run()
	return w
}

// enqueue replaces the pending snapshot. seq must grow with every call.
func (w *writer) enqueue(seq uint64, payload []byte) {
	w.mu.Lock()
	w.pending = payload
	w.pendingSeq = seq
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *writer) run() {
	defer close(w.stopped)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.stop:
			w.drain()
			return
		}
	}
}

// drain writes pending snapshots until none is left.
func (w *writer) drain() {
	for {
		w.mu.Lock()
		if w.pendingSeq <= w.doneSeq {
			w.mu.Unlock()
			return
		}
		payload, seq := w.pending, w.pendingSeq
		w.mu.Unlock()

		err := w.write(payload)

		w.mu.Lock()
		w.doneSeq = seq
		w.lastErr = err
		close(w.progress)
		w.progress = make(chan struct{})
		w.mu.Unlock()
	}
}

func (w *writer) write(payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	start := time.Now()
	if err := w.storage.Set(ctx, w.key, payload); err != nil {
		w.logger.ErrorContext(ctx, "Failed to persist products", "key", w.key, "error", err)
		return err
	}
	w.logger.DebugContext(ctx, "Products persisted", "key", w.key, "bytes", len(payload), "duration_ms", float64(time.Since(start).Nanoseconds())/1e6)
	return nil
}

// flush waits until the snapshot with the given seq, or a newer one, has been attempted.
func (w *writer) flush(ctx context.Context, seq uint64) error {
	for {
		w.mu.Lock()
		if w.doneSeq >= seq {
			err := w.lastErr
			w.mu.Unlock()
			return err
		}
		progress := w.progress
		w.mu.Unlock()

		select {
		case <-progress:
		case <-w.stopped:
			// the final drain has run; re-check once more
			w.mu.Lock()
			done, err := w.doneSeq >= seq, w.lastErr
			w.mu.Unlock()
			if done {
				return err
			}
			return errWriterClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// close stops the writer after draining what is pending and returns the outcome of the last write.
func (w *writer) close(ctx context.Context) error {
	w.mu.Lock()
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
	w.mu.Unlock()

	select {
	case <-w.stopped:
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.lastErr
	case <-ctx.Done():
		return ctx.Err()
	}
}
