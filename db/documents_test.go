// ABOUTME: Tests for the SQLite document backend
// ABOUTME: Covers load/save, revisions, write log pruning and persistence across reopen
package db

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/harperreed/dealboard/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*DocumentStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dealboard.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestDocumentStoreLoadMissing(t *testing.T) {
	s, _ := openTestStore(t)

	_, err := s.Load("deals-storage")
	assert.True(t, errors.Is(err, persist.ErrNoDocument))

	_, err = s.Stat("deals-storage")
	assert.True(t, errors.Is(err, persist.ErrNoDocument))
}

func TestDocumentStoreSaveOverwrites(t *testing.T) {
	s, _ := openTestStore(t)

	require.NoError(t, s.Save("deals-storage", []byte(`{"version":1,"deals":[]}`)))
	require.NoError(t, s.Save("deals-storage", []byte(`{"version":1,"deals":[{"id":"1"}]}`)))

	doc, err := s.Load("deals-storage")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"deals":[{"id":"1"}]}`, string(doc))

	info, err := s.Stat("deals-storage")
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.Revision)
	assert.Equal(t, len(doc), info.Bytes)
	assert.False(t, info.UpdatedAt.IsZero())
}

func TestDocumentStoreKeysAreIndependent(t *testing.T) {
	s, _ := openTestStore(t)

	require.NoError(t, s.Save("deals-storage", []byte("deals")))
	require.NoError(t, s.Save("notifications-storage", []byte("feed")))

	doc, err := s.Load("notifications-storage")
	require.NoError(t, err)
	assert.Equal(t, "feed", string(doc))
}

func TestDocumentStoreHistoryIsPruned(t *testing.T) {
	s, _ := openTestStore(t)
	s.retention = 3

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Save("deals-storage", []byte(fmt.Sprintf("rev-%d", i))))
	}

	history, err := s.History("deals-storage", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, int64(5), history[0].Revision)
	assert.Equal(t, int64(3), history[2].Revision)
	assert.Equal(t, len("rev-5"), history[0].Bytes)
}

func TestDocumentStoreSurvivesReopen(t *testing.T) {
	s, path := openTestStore(t)
	require.NoError(t, s.Save("deals-storage", []byte("persisted")))
	require.NoError(t, s.Close())

	again, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = again.Close() }()

	doc, err := again.Load("deals-storage")
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(doc))
}

func TestDocumentStoreWithWriter(t *testing.T) {
	s, _ := openTestStore(t)
	w := persist.NewWriter(s, persist.Options{})
	w.Register("notifications-storage", func() ([]byte, error) { return []byte("snapshot"), nil })
	w.MarkDirty("notifications-storage")

	require.NoError(t, w.Flush(t.Context()))
	require.NoError(t, w.Close(t.Context()))

	doc, err := s.Load("notifications-storage")
	require.NoError(t, err)
	assert.Equal(t, "snapshot", string(doc))
}
