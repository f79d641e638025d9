// ABOUTME: Import utility for deal and notification exports from the browser client.
// ABOUTME: Provides dry-run and backup capabilities before writing into the configured backend.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/dealboard/cli"
	"github.com/harperreed/dealboard/config"
	"github.com/harperreed/dealboard/logging"
	"github.com/harperreed/dealboard/models"
	"github.com/harperreed/dealboard/store"
)

func main() {
	dealsPath := flag.String("deals", "", "Path to a deals-storage export")
	notificationsPath := flag.String("notifications", "", "Path to a notifications-storage export")
	configPath := flag.String("config", "", "Config file (default: ~/.config/dealboard/config.json)")
	dataDir := flag.String("data-dir", "", "Data directory (overrides config)")
	backend := flag.String("backend", "", "Storage backend (overrides config)")
	dryRun := flag.Bool("dry-run", false, "Show what would happen without making changes")
	backup := flag.Bool("backup", true, "Back up the sqlite database before importing")
	flag.Parse()

	if *dealsPath == "" && *notificationsPath == "" {
		log.Fatal("at least one of -deals or -notifications is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", "err", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		log.Fatal("invalid logging config", "err", err)
	}

	if err := importExports(cfg, logger, *dealsPath, *notificationsPath, *dryRun, *backup); err != nil {
		logger.Fatal("import failed", "err", err)
	}
	logger.Info("import completed")
}

func importExports(cfg *config.Config, logger *log.Logger, dealsPath, notificationsPath string, dryRun, createBackup bool) error {
	parsed, err := readExports(dealsPath, notificationsPath)
	if err != nil {
		return err
	}

	if dryRun {
		// Import into throwaway stores to run the same validation.
		deals := store.NewDealStore(store.WithLogger(logger))
		feed := store.NewNotificationStore(store.WithLogger(logger))
		logger.Info("[DRY RUN] would import", "deals", len(parsed.deals), "notifications", len(parsed.notifications))
		report(logger, "[DRY RUN] deals", deals.Import(parsed.deals))
		report(logger, "[DRY RUN] notifications", feed.ImportNotifications(parsed.notifications))
		return nil
	}

	if createBackup && cfg.Backend == config.BackendSQLite {
		if err := backupDatabase(logger, cfg.DatabasePath()); err != nil {
			return err
		}
	}

	app, err := cli.OpenApp(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open dealboard: %w", err)
	}

	if dealsPath != "" {
		report(logger, "deals", app.Deals.Import(parsed.deals))
	}
	if notificationsPath != "" {
		report(logger, "notifications", app.Notifications.ImportNotifications(parsed.notifications))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return app.Close(ctx)
}

type exports struct {
	deals         []models.Deal
	notifications []models.Notification
}

func readExports(dealsPath, notificationsPath string) (exports, error) {
	var out exports
	if dealsPath != "" {
		raw, err := os.ReadFile(dealsPath)
		if err != nil {
			return out, fmt.Errorf("failed to read deals export: %w", err)
		}
		if out.deals, err = store.ParseLegacyDeals(raw); err != nil {
			return out, fmt.Errorf("%s: %w", dealsPath, err)
		}
	}
	if notificationsPath != "" {
		raw, err := os.ReadFile(notificationsPath)
		if err != nil {
			return out, fmt.Errorf("failed to read notifications export: %w", err)
		}
		if out.notifications, err = store.ParseLegacyNotifications(raw); err != nil {
			return out, fmt.Errorf("%s: %w", notificationsPath, err)
		}
	}
	return out, nil
}

func report(logger *log.Logger, what string, r store.LoadReport) {
	logger.Info(what, "loaded", r.Loaded, "skipped", len(r.Skipped))
	for _, s := range r.Skipped {
		logger.Warn("skipped record", "id", s.ID, "name", s.Name, "reason", s.Reason)
	}
	for _, fixed := range r.Repaired {
		logger.Info("repaired record", "id", fixed.ID, "name", fixed.Name, "note", fixed.Reason)
	}
}

func backupDatabase(logger *log.Logger, dbPath string) error {
	input, err := os.ReadFile(dbPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read database: %w", err)
	}

	backupPath := fmt.Sprintf("%s.backup.%s", dbPath, time.Now().Format("20060102-150405"))
	logger.Info("creating backup", "path", backupPath)
	if err := os.WriteFile(backupPath, input, 0600); err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	return nil
}
