// ABOUTME: Storage status and sync CLI commands
// ABOUTME: Reports backend state, pending writes and pushes documents to charm cloud

package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/harperreed/dealboard/charm"
	"github.com/harperreed/dealboard/config"
	"github.com/harperreed/dealboard/db"
	"github.com/harperreed/dealboard/store"
)

// StatusCommand shows where data lives and what is waiting to be written.
func StatusCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	history := fs.Int("history", 5, "Recent writes to show per document (sqlite only)")
	_ = fs.Parse(args)

	cfg := app.Config
	fmt.Fprintln(app.Out, "Dealboard Status:")
	fmt.Fprintf(app.Out, "  Config path:  %s\n", config.ConfigPath())
	fmt.Fprintf(app.Out, "  Backend:      %s\n", cfg.Backend)
	fmt.Fprintf(app.Out, "  Data dir:     %s\n", cfg.DataDir)
	if cfg.DeviceID != "" {
		fmt.Fprintf(app.Out, "  Device ID:    %s\n", cfg.DeviceID)
	}
	if cfg.Authenticated {
		fmt.Fprintf(app.Out, "  Signed in:    ✓ Yes\n")
	} else {
		fmt.Fprintf(app.Out, "  Signed in:    ✗ No (read-only)\n")
	}
	fmt.Fprintf(app.Out, "  Deals:        %d\n", app.Deals.Len())
	fmt.Fprintf(app.Out, "  Notifications: %d (%d unread)\n", app.Notifications.Len(), app.Notifications.UnreadCount())

	if pending := app.Writer.Pending(); len(pending) > 0 {
		fmt.Fprintf(app.Out, "  Pending:      %v\n", pending)
	} else {
		fmt.Fprintf(app.Out, "  Pending:      none\n")
	}

	switch backend := app.Backend.(type) {
	case *db.DocumentStore:
		for _, key := range []string{store.DealsKey, store.NotificationsKey} {
			info, err := backend.Stat(key)
			if err != nil {
				fmt.Fprintf(app.Out, "  %s: not saved yet\n", key)
				continue
			}
			fmt.Fprintf(app.Out, "  %s: revision %d, %d bytes, saved %s\n",
				key, info.Revision, info.Bytes, info.UpdatedAt.Format(time.RFC3339))

			records, err := backend.History(key, *history)
			if err != nil {
				fmt.Fprintf(app.Out, "    ✗ Error: %v\n", err)
				continue
			}
			for _, r := range records {
				fmt.Fprintf(app.Out, "    rev %d  %6d bytes  %s\n", r.Revision, r.Bytes, r.SavedAt.Format(time.RFC3339))
			}
		}
	case *charm.Backend:
		keys, err := backend.Documents()
		if err != nil {
			fmt.Fprintf(app.Out, "  Documents:    ✗ Error: %v\n", err)
		} else {
			fmt.Fprintf(app.Out, "  Documents:    %v\n", keys)
		}
	}
	return nil
}

// SyncCommand flushes pending writes and syncs the charm backend with its server.
func SyncCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	_ = fs.Parse(args)

	backend, ok := app.Backend.(*charm.Backend)
	if !ok {
		return fmt.Errorf("sync needs the charm backend (current: %s)", app.Config.Backend)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startTime := time.Now()
	if err := app.Writer.Flush(ctx); err != nil {
		return fmt.Errorf("failed to write pending documents: %w", err)
	}
	if err := backend.Sync(); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Fprintf(app.Out, "✓ Sync completed in %.2fs\n", time.Since(startTime).Seconds())
	return nil
}
