// ABOUTME: Background snapshot writer decoupling store mutations from storage I/O
// ABOUTME: Coalesces dirty documents, retries with backoff and trips a circuit breaker
package persist

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sony/gobreaker/v2"
)

// ErrNoDocument is returned by Backend.Load when the key has never been written.
var ErrNoDocument = errors.New("document not found")

// Backend stores whole documents keyed by store name.
type Backend interface {
	Load(key string) ([]byte, error)
	Save(key string, doc []byte) error
	Close() error
}

// SnapshotFunc renders the current state of one store as a document.
type SnapshotFunc func() ([]byte, error)

// WriteError is delivered on the Errors channel when a document could not be written.
type WriteError struct {
	Key string
	Err error
}

func (e WriteError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Key, e.Err)
}

func (e WriteError) Unwrap() error {
	return e.Err
}

// Options tunes retry and breaker behavior.
type Options struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64

	// BreakerFailures consecutive failures open the breaker for BreakerTimeout.
	BreakerFailures int
	BreakerTimeout  time.Duration

	Logger *log.Logger
}

// DefaultOptions returns the retry policy used when config leaves it unset.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:     3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.InitialInterval <= 0 {
		o.InitialInterval = d.InitialInterval
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = d.MaxInterval
	}
	if o.Multiplier < 1 {
		o.Multiplier = d.Multiplier
	}
	if o.BreakerFailures <= 0 {
		o.BreakerFailures = d.BreakerFailures
	}
	if o.BreakerTimeout <= 0 {
		o.BreakerTimeout = d.BreakerTimeout
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Writer owns the background goroutine that persists dirty documents.
// MarkDirty never blocks; the snapshot is taken at write time so the latest state always wins.
type Writer struct {
	backend Backend
	opts    Options
	logger  *log.Logger
	breaker *gobreaker.CircuitBreaker[struct{}]

	mu      sync.Mutex
	sources map[string]SnapshotFunc
	dirty   map[string]bool

	// writeMu serializes drains between the loop and Flush.
	writeMu sync.Mutex

	wake      chan struct{}
	errs      chan WriteError
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewWriter starts a writer over backend.
func NewWriter(backend Backend, opts Options) *Writer {
	opts = opts.withDefaults()
	logger := opts.Logger.With("component", "persist")

	w := &Writer{
		backend: backend,
		opts:    opts,
		logger:  logger,
		sources: make(map[string]SnapshotFunc),
		dirty:   make(map[string]bool),
		wake:    make(chan struct{}, 1),
		errs:    make(chan WriteError, 16),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	w.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "persist",
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= opts.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	go w.loop()
	return w
}

// Register attaches a snapshot source to key. Registering twice replaces the source.
func (w *Writer) Register(key string, fn SnapshotFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sources[key] = fn
}

// MarkDirty schedules key for writing and returns immediately.
func (w *Writer) MarkDirty(key string) {
	w.mu.Lock()
	w.dirty[key] = true
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Pending returns the keys still waiting to be written, sorted.
func (w *Writer) Pending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	keys := make([]string, 0, len(w.dirty))
	for k := range w.dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Errors reports write failures. The channel is buffered; failures are dropped when nobody reads.
func (w *Writer) Errors() <-chan WriteError {
	return w.errs
}

// Flush writes every dirty document now and returns the combined failure, if any.
func (w *Writer) Flush(ctx context.Context) error {
	return w.drain(ctx)
}

// Close stops the loop after a final drain. It does not close the backend.
func (w *Writer) Close(ctx context.Context) error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		select {
		case <-w.stopped:
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
		err = w.drain(ctx)
	})
	return err
}

func (w *Writer) loop() {
	defer close(w.stopped)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-w.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-w.done:
			return
		case <-w.wake:
			_ = w.drain(ctx)
		}
	}
}

func (w *Writer) drain(ctx context.Context) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.Lock()
	batch := make(map[string]SnapshotFunc, len(w.dirty))
	for key := range w.dirty {
		if fn, ok := w.sources[key]; ok {
			batch[key] = fn
			delete(w.dirty, key)
		}
	}
	w.mu.Unlock()

	var errs []error
	for key, fn := range batch {
		if err := w.write(ctx, key, fn); err != nil {
			// Keep it pending so the next mutation or Flush retries.
			w.mu.Lock()
			w.dirty[key] = true
			w.mu.Unlock()

			werr := WriteError{Key: key, Err: err}
			w.report(werr)
			errs = append(errs, werr)
		}
	}
	return errors.Join(errs...)
}

func (w *Writer) write(ctx context.Context, key string, fn SnapshotFunc) error {
	doc, err := fn()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	var lastErr error
	for attempt := range w.opts.MaxAttempts {
		if attempt > 0 {
			delay := backoff(attempt, w.opts)
			w.logger.Warn("retrying document write",
				"key", key, "attempt", attempt+1, "max_attempts", w.opts.MaxAttempts,
				"backoff", delay, "err", lastErr)

			select {
			case <-ctx.Done():
				return errors.Join(lastErr, ctx.Err())
			case <-time.After(delay):
			}
		}

		_, lastErr = w.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, w.backend.Save(key, doc)
		})
		if lastErr == nil {
			w.logger.Debug("document written", "key", key, "bytes", len(doc))
			return nil
		}
	}
	return lastErr
}

func (w *Writer) report(werr WriteError) {
	w.logger.Error("failed to persist document", "key", werr.Key, "err", werr.Err)
	select {
	case w.errs <- werr:
	default:
	}
}

// backoff is exponential with ±25% jitter; attempt 1 is the first retry.
func backoff(attempt int, opts Options) time.Duration {
	delay := float64(opts.InitialInterval) * math.Pow(opts.Multiplier, float64(attempt-1))
	if delay > float64(opts.MaxInterval) {
		delay = float64(opts.MaxInterval)
	}

	jitter := delay * 0.25
	delay += jitter * (2*rand.Float64() - 1)
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
