// ABOUTME: Application wiring shared by CLI, TUI and MCP entry points
// ABOUTME: Builds stores, the background writer and the configured backend with samber/do

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/harperreed/dealboard/charm"
	"github.com/harperreed/dealboard/config"
	"github.com/harperreed/dealboard/db"
	"github.com/harperreed/dealboard/handlers"
	"github.com/harperreed/dealboard/models"
	"github.com/harperreed/dealboard/persist"
	"github.com/harperreed/dealboard/store"
	"github.com/samber/do/v2"
)

// App holds the live stores and their persistence.
type App struct {
	Config        *config.Config
	Logger        *log.Logger
	Deals         *store.DealStore
	Notifications *store.NotificationStore
	Writer        *persist.Writer
	Backend       persist.Backend

	// Out receives command output.
	Out io.Writer
}

// OpenApp wires the application for cfg and loads any saved documents.
func OpenApp(cfg *config.Config, logger *log.Logger) (*App, error) {
	injector := do.New()
	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger)
	registerDependencies(injector)

	app, err := do.Invoke[*App](injector)
	if err != nil {
		return nil, fmt.Errorf("failed to wire application: %w", err)
	}

	if err := app.load(); err != nil {
		_ = app.Close(context.Background())
		return nil, err
	}
	return app, nil
}

func registerDependencies(injector *do.RootScope) {
	do.Provide(injector, func(i do.Injector) (persist.Backend, error) {
		return openBackend(do.MustInvoke[*config.Config](i))
	})

	do.Provide(injector, func(i do.Injector) (*persist.Writer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		opts := cfg.PersistOptions()
		opts.Logger = do.MustInvoke[*log.Logger](i)
		return persist.NewWriter(do.MustInvoke[persist.Backend](i), opts), nil
	})

	do.Provide(injector, func(i do.Injector) (*store.DealStore, error) {
		writer := do.MustInvoke[*persist.Writer](i)
		deals := store.NewDealStore(
			store.PersistTo(writer),
			store.WithLogger(do.MustInvoke[*log.Logger](i)),
		)
		writer.Register(store.DealsKey, deals.Snapshot)
		return deals, nil
	})

	do.Provide(injector, func(i do.Injector) (*store.NotificationStore, error) {
		cfg := do.MustInvoke[*config.Config](i)
		writer := do.MustInvoke[*persist.Writer](i)
		feed := store.NewNotificationStore(
			store.PersistTo(writer),
			store.WithLogger(do.MustInvoke[*log.Logger](i)),
			store.WithMaxRetained(cfg.MaxNotifications),
		)
		writer.Register(store.NotificationsKey, feed.Snapshot)
		return feed, nil
	})

	do.Provide(injector, func(i do.Injector) (*App, error) {
		return &App{
			Config:        do.MustInvoke[*config.Config](i),
			Logger:        do.MustInvoke[*log.Logger](i),
			Deals:         do.MustInvoke[*store.DealStore](i),
			Notifications: do.MustInvoke[*store.NotificationStore](i),
			Writer:        do.MustInvoke[*persist.Writer](i),
			Backend:       do.MustInvoke[persist.Backend](i),
			Out:           os.Stdout,
		}, nil
	})
}

func openBackend(cfg *config.Config) (persist.Backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return db.Open(cfg.DatabasePath())
	case config.BackendBadger:
		client, err := charm.NewLocalClient(cfg.BadgerDir())
		if err != nil {
			return nil, err
		}
		return charm.NewBackend(client), nil
	case config.BackendCharm:
		client, err := charm.NewClient(&cfg.Charm)
		if err != nil {
			return nil, err
		}
		return charm.NewBackend(client), nil
	case config.BackendMemory:
		return persist.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Backend)
	}
}

// load restores both documents. A missing document is an empty store.
func (a *App) load() error {
	doc, err := a.Backend.Load(store.DealsKey)
	switch {
	case errors.Is(err, persist.ErrNoDocument):
	case err != nil:
		return fmt.Errorf("failed to load deals: %w", err)
	default:
		report, err := a.Deals.Restore(doc)
		if err != nil {
			return err
		}
		a.logSkipped(store.DealsKey, report)
	}

	doc, err = a.Backend.Load(store.NotificationsKey)
	switch {
	case errors.Is(err, persist.ErrNoDocument):
		if a.Config.SeedWelcome {
			if _, err := a.Notifications.SeedWelcome(); err != nil {
				return fmt.Errorf("failed to seed welcome notification: %w", err)
			}
		}
	case err != nil:
		return fmt.Errorf("failed to load notifications: %w", err)
	default:
		report, err := a.Notifications.Restore(doc)
		if err != nil {
			return err
		}
		a.logSkipped(store.NotificationsKey, report)
	}
	return nil
}

func (a *App) logSkipped(key string, report store.LoadReport) {
	for _, s := range report.Skipped {
		a.Logger.Warn("skipped stored record", "document", key, "id", s.ID, "name", s.Name, "reason", s.Reason)
	}
	for _, r := range report.Repaired {
		a.Logger.Info("repaired stored record", "document", key, "id", r.ID, "name", r.Name, "note", r.Reason)
	}
}

// Gate allows mutations only for an authenticated session.
func (a *App) Gate() handlers.Gate {
	return func() bool { return a.Config.Authenticated }
}

func (a *App) requireAuth() error {
	if !a.Config.Authenticated {
		return fmt.Errorf("sign in required: %w", models.ErrUnauthorized)
	}
	return nil
}

// Close writes pending documents and releases the backend.
func (a *App) Close(ctx context.Context) error {
	err := a.Writer.Close(ctx)
	if cerr := a.Backend.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}
