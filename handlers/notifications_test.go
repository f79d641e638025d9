// ABOUTME: Tests for the notification feed MCP tools
// ABOUTME: Covers add, list filtering, mark-read and clear
package handlers

import (
	"context"
	"testing"

	"github.com/harperreed/dealboard/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationHandlers(t *testing.T) {
	_, feed := newTestStores(t)
	h := NewNotificationHandlers(feed, AllowAll)
	ctx := context.Background()

	_, first, err := h.AddNotification(ctx, nil, AddNotificationInput{Title: "Deal moved", Message: "HVAC Repair is now quoting"})
	require.NoError(t, err)
	assert.False(t, first.Read)

	_, _, err = h.AddNotification(ctx, nil, AddNotificationInput{Title: "Quote sent"})
	require.NoError(t, err)

	_, _, err = h.AddNotification(ctx, nil, AddNotificationInput{Message: "no title"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, list, err := h.ListNotifications(ctx, nil, ListNotificationsInput{})
	require.NoError(t, err)
	require.Len(t, list.Notifications, 2)
	assert.Equal(t, "Quote sent", list.Notifications[0].Title, "newest first")
	assert.Equal(t, 2, list.Unread)

	_, list, err = h.ListNotifications(ctx, nil, ListNotificationsInput{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, list.Notifications, 1)

	_, marked, err := h.MarkAsRead(ctx, nil, MarkReadInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, marked.Marked)

	_, list, err = h.ListNotifications(ctx, nil, ListNotificationsInput{UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, list.Notifications)
	assert.Equal(t, 0, list.Unread)

	_, cleared, err := h.ClearNotifications(ctx, nil, ClearNotificationsInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, cleared.Cleared)
	assert.Equal(t, 0, feed.Len())
}

func TestNotificationHandlersRequireAuthentication(t *testing.T) {
	_, feed := newTestStores(t)
	_, err := feed.AddNotification("Existing", "")
	require.NoError(t, err)

	h := NewNotificationHandlers(feed, denyAll)
	ctx := context.Background()

	_, _, err = h.AddNotification(ctx, nil, AddNotificationInput{Title: "x"})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	_, _, err = h.MarkAsRead(ctx, nil, MarkReadInput{})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	_, _, err = h.ClearNotifications(ctx, nil, ClearNotificationsInput{})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	// Reads stay open.
	_, list, err := h.ListNotifications(ctx, nil, ListNotificationsInput{})
	require.NoError(t, err)
	assert.Len(t, list.Notifications, 1)
	assert.Equal(t, 1, feed.UnreadCount())
}
