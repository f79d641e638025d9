// ABOUTME: Notification feed CLI commands
// ABOUTME: Add, list, mark read and clear notifications

package cli

import (
	"flag"
	"fmt"
	"text/tabwriter"
)

// AddNotificationCommand prepends a notification: notify add --title "..." --message "...".
func AddNotificationCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("notify add", flag.ExitOnError)
	title := fs.String("title", "", "Title (required)")
	message := fs.String("message", "", "Message")
	_ = fs.Parse(args)

	if err := app.requireAuth(); err != nil {
		return err
	}

	n, err := app.Notifications.AddNotification(*title, *message)
	if err != nil {
		return fmt.Errorf("failed to add notification: %w", err)
	}
	fmt.Fprintf(app.Out, "✓ Notification added: %s\n", n.Title)
	return nil
}

// ListNotificationsCommand prints the feed newest first.
func ListNotificationsCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("notify list", flag.ExitOnError)
	unread := fs.Bool("unread", false, "Only unread notifications")
	limit := fs.Int("limit", 20, "Maximum results")
	_ = fs.Parse(args)

	items := app.Notifications.Notifications()
	fmt.Fprintf(app.Out, "🔔 %d unread of %d\n\n", app.Notifications.UnreadCount(), len(items))
	if len(items) == 0 {
		fmt.Fprintln(app.Out, "No notifications")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "\tWHEN\tTITLE\tMESSAGE")
	shown := 0
	for _, n := range items {
		if *unread && n.Read {
			continue
		}
		if shown >= *limit {
			break
		}
		shown++
		marker := " "
		if !n.Read {
			marker = "●"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, n.Timestamp.Format("Jan 02 15:04"), n.Title, truncate(n.Message, 60))
	}
	return w.Flush()
}

// MarkReadCommand marks the whole feed read.
func MarkReadCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("notify read", flag.ExitOnError)
	_ = fs.Parse(args)

	if err := app.requireAuth(); err != nil {
		return err
	}
	n := app.Notifications.MarkAsRead()
	fmt.Fprintf(app.Out, "✓ Marked %d notification(s) read\n", n)
	return nil
}

// ClearNotificationsCommand empties the feed.
func ClearNotificationsCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("notify clear", flag.ExitOnError)
	_ = fs.Parse(args)

	if err := app.requireAuth(); err != nil {
		return err
	}
	n := app.Notifications.ClearNotifications()
	fmt.Fprintf(app.Out, "✓ Cleared %d notification(s)\n", n)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
