// ABOUTME: Notification feed store, newest first
// ABOUTME: Supports add, mark-all-read, clear and unread counting
package store

import (
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/harperreed/dealboard/models"
	"github.com/oklog/ulid/v2"
)

// WithMaxRetained caps the feed length; the oldest entries are dropped first, read or not.
// Adding to a full feed whose oldest entry is unread leaves UnreadCount unchanged.
// Zero means unbounded.
func WithMaxRetained(n int) Option {
	return func(o *options) { o.maxRetained = n }
}

// NotificationStore holds the feed. Index 0 is the most recent entry.
type NotificationStore struct {
	mu    sync.RWMutex
	items []models.Notification

	opts   options
	logger *log.Logger
}

// NewNotificationStore returns an empty feed.
func NewNotificationStore(opts ...Option) *NotificationStore {
	o := buildOptions(opts, func() string { return ulid.Make().String() })
	return &NotificationStore{
		opts:   o,
		logger: o.logger.With("store", NotificationsKey),
	}
}

// AddNotification prepends an unread notification.
func (s *NotificationStore) AddNotification(title, message string) (models.Notification, error) {
	if strings.TrimSpace(title) == "" {
		return models.Notification{}, models.NewValidationError("title", "is required")
	}

	n := models.Notification{
		ID:        s.opts.newID(),
		Title:     strings.TrimSpace(title),
		Message:   message,
		Timestamp: s.opts.now(),
	}

	s.mu.Lock()
	s.items = append([]models.Notification{n}, s.items...)
	if limit := s.opts.maxRetained; limit > 0 && len(s.items) > limit {
		s.items = s.items[:limit]
	}
	s.mu.Unlock()

	s.logger.Debug("notification added", "id", n.ID, "title", n.Title)
	s.changed()
	return n, nil
}

// MarkAsRead marks every notification read and returns how many changed.
// Nothing is persisted when all were already read.
func (s *NotificationStore) MarkAsRead() int {
	s.mu.Lock()
	changed := 0
	for i := range s.items {
		if !s.items[i].Read {
			s.items[i].Read = true
			changed++
		}
	}
	s.mu.Unlock()

	if changed > 0 {
		s.changed()
	}
	return changed
}

// ClearNotifications empties the feed and returns how many were removed.
func (s *NotificationStore) ClearNotifications() int {
	s.mu.Lock()
	n := len(s.items)
	s.items = nil
	s.mu.Unlock()

	if n > 0 {
		s.changed()
	}
	return n
}

// UnreadCount returns the number of unread notifications.
func (s *NotificationStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.items {
		if !n.Read {
			count++
		}
	}
	return count
}

// Notifications returns a copy of the feed, newest first.
func (s *NotificationStore) Notifications() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Notification{}, s.items...)
}

// Len returns the feed length.
func (s *NotificationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *NotificationStore) changed() {
	if s.opts.marker != nil {
		s.opts.marker.MarkDirty(NotificationsKey)
	}
}
