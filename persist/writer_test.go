// ABOUTME: Tests for the background snapshot writer
// ABOUTME: Covers coalescing, flush, retry exhaustion and error reporting
package persist

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietOptions() Options {
	return Options{
		MaxAttempts:     2,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
		BreakerFailures: 100,
		BreakerTimeout:  time.Second,
		Logger:          log.New(io.Discard),
	}
}

func TestWriterFlushWritesLatestSnapshot(t *testing.T) {
	backend := NewMemoryBackend()
	w := NewWriter(backend, quietOptions())
	defer func() { _ = w.Close(context.Background()) }()

	var version atomic.Int64
	w.Register("deals-storage", func() ([]byte, error) {
		return []byte{byte('0' + version.Load())}, nil
	})

	version.Store(1)
	w.MarkDirty("deals-storage")
	version.Store(2)
	w.MarkDirty("deals-storage")

	require.NoError(t, w.Flush(context.Background()))

	doc, err := backend.Load("deals-storage")
	require.NoError(t, err)
	assert.Equal(t, "2", string(doc))
	assert.Empty(t, w.Pending())
}

func TestWriterBackgroundLoopPersists(t *testing.T) {
	backend := NewMemoryBackend()
	w := NewWriter(backend, quietOptions())
	defer func() { _ = w.Close(context.Background()) }()

	w.Register("notifications-storage", func() ([]byte, error) {
		return []byte(`{"version":1,"notifications":[]}`), nil
	})
	w.MarkDirty("notifications-storage")

	assert.Eventually(t, func() bool {
		_, err := backend.Load("notifications-storage")
		return err == nil
	}, time.Second, 5*time.Millisecond)
}

func TestWriterKeepsKeyPendingAfterFailure(t *testing.T) {
	backend := NewMemoryBackend()
	boom := errors.New("disk full")
	backend.FailWith(boom)

	w := NewWriter(backend, quietOptions())
	defer func() { _ = w.Close(context.Background()) }()

	w.Register("deals-storage", func() ([]byte, error) { return []byte("x"), nil })
	w.MarkDirty("deals-storage")

	err := w.Flush(context.Background())
	// The background loop may have claimed the key first; either way it ends up pending.
	if err != nil {
		assert.ErrorIs(t, err, boom)
	}
	assert.Eventually(t, func() bool {
		return len(w.Pending()) == 1
	}, time.Second, 5*time.Millisecond)

	select {
	case werr := <-w.Errors():
		assert.Equal(t, "deals-storage", werr.Key)
		assert.ErrorIs(t, werr, boom)
	case <-time.After(time.Second):
		t.Fatal("expected a write error to be reported")
	}

	backend.FailWith(nil)
	require.NoError(t, w.Flush(context.Background()))
	assert.Empty(t, w.Pending())
	assert.Equal(t, 1, backend.Saves("deals-storage"))
}

func TestWriterSnapshotErrorIsReported(t *testing.T) {
	backend := NewMemoryBackend()
	w := NewWriter(backend, quietOptions())
	defer func() { _ = w.Close(context.Background()) }()

	w.Register("bad", func() ([]byte, error) { return nil, errors.New("encode failed") })
	w.MarkDirty("bad")

	assert.Eventually(t, func() bool {
		return w.Flush(context.Background()) != nil
	}, time.Second, 5*time.Millisecond)
	_, err := backend.Load("bad")
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestWriterIgnoresUnregisteredKeys(t *testing.T) {
	backend := NewMemoryBackend()
	w := NewWriter(backend, quietOptions())
	defer func() { _ = w.Close(context.Background()) }()

	w.MarkDirty("nobody")
	require.NoError(t, w.Flush(context.Background()))
	assert.Equal(t, []string{"nobody"}, w.Pending())
}

func TestWriterCloseDrains(t *testing.T) {
	backend := NewMemoryBackend()
	w := NewWriter(backend, quietOptions())

	w.Register("deals-storage", func() ([]byte, error) { return []byte("final"), nil })
	w.MarkDirty("deals-storage")

	require.NoError(t, w.Close(context.Background()))
	require.NoError(t, w.Close(context.Background()))

	doc, err := backend.Load("deals-storage")
	require.NoError(t, err)
	assert.Equal(t, "final", string(doc))
}

func TestBackoffIsCapped(t *testing.T) {
	opts := Options{InitialInterval: 100 * time.Millisecond, MaxInterval: 200 * time.Millisecond, Multiplier: 10}
	for attempt := 1; attempt < 6; attempt++ {
		d := backoff(attempt, opts)
		assert.LessOrEqual(t, d, 250*time.Millisecond)
		assert.GreaterOrEqual(t, d, time.Duration(0))
	}
}

func TestMemoryBackendLoadMissing(t *testing.T) {
	_, err := NewMemoryBackend().Load("missing")
	assert.ErrorIs(t, err, ErrNoDocument)
}
