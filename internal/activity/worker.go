package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fkhayef/roommate-ledger/internal/metrics"
)

const saveTimeout = 5 * time.Second

// Saver persists one activity
type Saver interface {
	Save(ctx context.Context, a Activity) error
}

// Worker writes activities in the background so request handlers never wait
// on the feed table.
type Worker struct {
	ch     chan Activity
	saver  Saver
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

func NewWorker(saver Saver, bufferSize int) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		ch:     make(chan Activity, bufferSize),
		saver:  saver,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				slog.Info("draining activities before shutdown", "remaining", len(w.ch))
				for len(w.ch) > 0 {
					w.save(<-w.ch)
				}
				return
			case a := <-w.ch:
				w.save(a)
			}
		}
	}()
}

func (w *Worker) save(a Activity) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := w.saver.Save(ctx, a); err != nil {
		slog.Error("failed to save activity", "error", err, "type", a.Type, "recipient_id", a.RecipientID)
	}
}

// Publish queues a without blocking. It drops a when the queue is full or
// the worker has shut down.
func (w *Worker) Publish(a Activity) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		metrics.ActivityDropped()
		slog.Warn("activity worker stopped, dropping activity", "type", a.Type)
		return
	}

	select {
	case w.ch <- a:
	default:
		metrics.ActivityDropped()
		slog.Warn("activity queue full, dropping activity", "type", a.Type)
	}
}

// Shutdown stops accepting activities and waits for queued ones to be saved.
func (w *Worker) Shutdown() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
}
