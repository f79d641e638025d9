// ABOUTME: Notification MCP tool handlers
// ABOUTME: Implements add, list, mark-read and clear for the notification feed
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/dealboard/models"
	"github.com/harperreed/dealboard/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type NotificationHandlers struct {
	feed *store.NotificationStore
	gate Gate
}

func NewNotificationHandlers(feed *store.NotificationStore, gate Gate) *NotificationHandlers {
	return &NotificationHandlers{feed: feed, gate: gate}
}

type AddNotificationInput struct {
	Title   string `json:"title" jsonschema:"Notification title (required)"`
	Message string `json:"message,omitempty" jsonschema:"Notification body"`
}

type NotificationOutput struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
	Read      bool   `json:"read"`
}

func (h *NotificationHandlers) AddNotification(_ context.Context, _ *mcp.CallToolRequest, input AddNotificationInput) (*mcp.CallToolResult, NotificationOutput, error) {
	if err := h.gate.check(); err != nil {
		return nil, NotificationOutput{}, err
	}
	n, err := h.feed.AddNotification(input.Title, input.Message)
	if err != nil {
		return nil, NotificationOutput{}, fmt.Errorf("failed to add notification: %w", err)
	}
	return nil, notificationToOutput(n), nil
}

type ListNotificationsInput struct {
	UnreadOnly bool `json:"unread_only,omitempty" jsonschema:"Only return unread notifications"`
	Limit      int  `json:"limit,omitempty" jsonschema:"Maximum results to return (default 20)"`
}

type ListNotificationsOutput struct {
	Notifications []NotificationOutput `json:"notifications"`
	Unread        int                  `json:"unread"`
}

func (h *NotificationHandlers) ListNotifications(_ context.Context, _ *mcp.CallToolRequest, input ListNotificationsInput) (*mcp.CallToolResult, ListNotificationsOutput, error) {
	if input.Limit == 0 {
		input.Limit = 20
	}

	out := ListNotificationsOutput{Notifications: []NotificationOutput{}, Unread: h.feed.UnreadCount()}
	for _, n := range h.feed.Notifications() {
		if input.UnreadOnly && n.Read {
			continue
		}
		if len(out.Notifications) >= input.Limit {
			break
		}
		out.Notifications = append(out.Notifications, notificationToOutput(n))
	}
	return nil, out, nil
}

type MarkReadInput struct{}

type MarkReadOutput struct {
	Marked int `json:"marked"`
}

func (h *NotificationHandlers) MarkAsRead(_ context.Context, _ *mcp.CallToolRequest, _ MarkReadInput) (*mcp.CallToolResult, MarkReadOutput, error) {
	if err := h.gate.check(); err != nil {
		return nil, MarkReadOutput{}, err
	}
	return nil, MarkReadOutput{Marked: h.feed.MarkAsRead()}, nil
}

type ClearNotificationsInput struct{}

type ClearNotificationsOutput struct {
	Cleared int `json:"cleared"`
}

func (h *NotificationHandlers) ClearNotifications(_ context.Context, _ *mcp.CallToolRequest, _ ClearNotificationsInput) (*mcp.CallToolResult, ClearNotificationsOutput, error) {
	if err := h.gate.check(); err != nil {
		return nil, ClearNotificationsOutput{}, err
	}
	return nil, ClearNotificationsOutput{Cleared: h.feed.ClearNotifications()}, nil
}

func notificationToOutput(n models.Notification) NotificationOutput {
	return NotificationOutput{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Timestamp: n.Timestamp.Format(time.RFC3339),
		Read:      n.Read,
	}
}
