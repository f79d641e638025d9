// ABOUTME: Tests for the notification feed
// ABOUTME: Covers ordering, read state, clearing and the retention cap
package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/harperreed/dealboard/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFeed(t *testing.T, opts ...Option) (*NotificationStore, *fakeClock, *recordingMarker) {
	t.Helper()
	clock := newFakeClock()
	marker := &recordingMarker{}
	opts = append([]Option{WithClock(clock.Now), PersistTo(marker), WithLogger(quietLogger())}, opts...)
	return NewNotificationStore(opts...), clock, marker
}

func TestAddNotificationPrepends(t *testing.T) {
	s, clock, marker := newTestFeed(t)

	first, err := s.AddNotification("Deal moved", "HVAC Repair is now quoting")
	require.NoError(t, err)
	clock.Advance(time.Second)
	second, err := s.AddNotification("Deal won", "")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.Read)

	feed := s.Notifications()
	require.Len(t, feed, 2)
	assert.Equal(t, second.ID, feed[0].ID)
	assert.Equal(t, first.ID, feed[1].ID)
	assert.Equal(t, 2, s.UnreadCount())
	assert.Equal(t, []string{NotificationsKey, NotificationsKey}, marker.keys)
}

func TestAddNotificationRequiresTitle(t *testing.T) {
	s, _, marker := newTestFeed(t)
	_, err := s.AddNotification("  ", "body")
	assert.True(t, errors.Is(err, models.ErrValidation))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, marker.Count())
}

func TestMarkAsRead(t *testing.T) {
	s, _, marker := newTestFeed(t)
	assert.Equal(t, 0, s.MarkAsRead())
	assert.Equal(t, 0, marker.Count())

	_, _ = s.AddNotification("a", "")
	_, _ = s.AddNotification("b", "")
	assert.Equal(t, 2, s.MarkAsRead())
	assert.Equal(t, 0, s.UnreadCount())

	writes := marker.Count()
	assert.Equal(t, 0, s.MarkAsRead())
	assert.Equal(t, writes, marker.Count())

	_, _ = s.AddNotification("c", "")
	assert.Equal(t, 1, s.UnreadCount())
}

func TestClearNotifications(t *testing.T) {
	s, _, _ := newTestFeed(t)
	_, _ = s.AddNotification("a", "")
	_, _ = s.AddNotification("b", "")

	assert.Equal(t, 2, s.ClearNotifications())
	assert.Empty(t, s.Notifications())
	assert.Equal(t, 0, s.UnreadCount())
	assert.Equal(t, 0, s.ClearNotifications())
}

func TestNotificationsReturnsCopy(t *testing.T) {
	s, _, _ := newTestFeed(t)
	_, _ = s.AddNotification("a", "")

	feed := s.Notifications()
	feed[0].Read = true
	assert.Equal(t, 1, s.UnreadCount())
}

func TestMaxRetained(t *testing.T) {
	s, _, _ := newTestFeed(t, WithMaxRetained(3))
	for i := 0; i < 5; i++ {
		_, err := s.AddNotification(fmt.Sprintf("n%d", i), "")
		require.NoError(t, err)
	}

	feed := s.Notifications()
	require.Len(t, feed, 3)
	assert.Equal(t, "n4", feed[0].Title)
	assert.Equal(t, "n2", feed[2].Title)
}

func TestMaxRetainedDropsUnread(t *testing.T) {
	s, _, _ := newTestFeed(t, WithMaxRetained(2))
	_, _ = s.AddNotification("first", "")
	_, _ = s.AddNotification("second", "")
	require.Equal(t, 2, s.UnreadCount())

	_, err := s.AddNotification("third", "")
	require.NoError(t, err)
	assert.Equal(t, 2, s.UnreadCount(), "the unread oldest entry was evicted")
	assert.Equal(t, "second", s.Notifications()[1].Title)

	s.MarkAsRead()
	_, _ = s.AddNotification("fourth", "")
	assert.Equal(t, 1, s.UnreadCount(), "evicting a read entry counts the new one")
}

func TestSeedWelcome(t *testing.T) {
	s, _, _ := newTestFeed(t)

	seeded, err := s.SeedWelcome()
	require.NoError(t, err)
	assert.True(t, seeded)
	assert.Equal(t, WelcomeTitle, s.Notifications()[0].Title)

	seeded, err = s.SeedWelcome()
	require.NoError(t, err)
	assert.False(t, seeded)
	assert.Equal(t, 1, s.Len())
}
