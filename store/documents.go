// ABOUTME: Versioned JSON documents for the deal and notification stores
// ABOUTME: Snapshot, restore and merge of legacy browser exports
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/harperreed/dealboard/catalog"
	"github.com/harperreed/dealboard/models"
)

// Document keys, matching the names the browser client persisted under.
const (
	DealsKey         = "deals-storage"
	NotificationsKey = "notifications-storage"
)

// DocumentVersion is written into every snapshot.
const DocumentVersion = 1

// Welcome notification seeded into a brand new feed.
const (
	WelcomeTitle   = "Welcome to Innovera CRM"
	WelcomeMessage = "This is a demo notification. You can view all notifications by clicking the bell icon."
)

// ErrUnsupportedVersion is returned when a document is newer than this build understands.
var ErrUnsupportedVersion = errors.New("unsupported document version")

type dealsDocument struct {
	Version int           `json:"version"`
	Deals   []models.Deal `json:"deals"`
}

type notificationsDocument struct {
	Version       int                   `json:"version"`
	Notifications []models.Notification `json:"notifications"`
}

// Skipped names a record that was not loaded and why.
type Skipped struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}

// LoadReport summarizes a restore or import. Repaired records were loaded after a fix-up.
type LoadReport struct {
	Loaded   int       `json:"loaded"`
	Skipped  []Skipped `json:"skipped,omitempty"`
	Repaired []Skipped `json:"repaired,omitempty"`
}

// Snapshot renders the store as a document. It is a persist.SnapshotFunc.
func (s *DealStore) Snapshot() ([]byte, error) {
	return json.Marshal(dealsDocument{Version: DocumentVersion, Deals: s.Deals()})
}

// Restore replaces the store contents with doc. A pipeline that disagrees with its stage is
// re-derived; other invalid records are skipped. Both are reported. Restore marks the store
// dirty only when it repaired a record, so the fixed document gets written back.
func (s *DealStore) Restore(doc []byte) (LoadReport, error) {
	var d dealsDocument
	if err := json.Unmarshal(doc, &d); err != nil {
		return LoadReport{}, fmt.Errorf("decode %s: %w", DealsKey, err)
	}
	if d.Version > DocumentVersion {
		return LoadReport{}, fmt.Errorf("%s version %d: %w", DealsKey, d.Version, ErrUnsupportedVersion)
	}

	s.mu.Lock()
	for _, e := range s.entries {
		e.mu.Lock()
		e.removed = true
		e.mu.Unlock()
	}
	s.entries = make(map[string]*dealEntry)
	s.order = nil
	report := s.insertLocked(d.Deals)
	s.mu.Unlock()

	s.logger.Debug("deals restored", "loaded", report.Loaded, "skipped", len(report.Skipped), "repaired", len(report.Repaired))
	if len(report.Repaired) > 0 {
		s.changed()
	}
	return report, nil
}

// Import merges deals into the store, skipping ids that already exist.
func (s *DealStore) Import(deals []models.Deal) LoadReport {
	s.mu.Lock()
	report := s.insertLocked(deals)
	s.mu.Unlock()

	if report.Loaded > 0 {
		s.changed()
	}
	return report
}

func (s *DealStore) insertLocked(deals []models.Deal) LoadReport {
	var report LoadReport
	for _, d := range deals {
		if _, dup := s.entries[d.ID]; dup {
			report.Skipped = append(report.Skipped, Skipped{ID: d.ID, Name: d.Name, Reason: "duplicate id"})
			continue
		}
		clean, note, err := checkStoredDeal(d)
		if err != nil {
			report.Skipped = append(report.Skipped, Skipped{ID: d.ID, Name: d.Name, Reason: err.Error()})
			continue
		}
		if note != "" {
			report.Repaired = append(report.Repaired, Skipped{ID: d.ID, Name: d.Name, Reason: note})
		}
		s.entries[clean.ID] = &dealEntry{deal: clean}
		s.order = append(s.order, clean.ID)
		report.Loaded++
	}
	return report
}

// checkStoredDeal validates a persisted deal. Missing priority and activities get defaults and
// the pipeline always follows the stage; note describes a pipeline fix-up. Anything else wrong
// rejects the record.
func checkStoredDeal(d models.Deal) (models.Deal, string, error) {
	if d.Priority == "" {
		d.Priority = models.PriorityMedium
	}
	if d.Activities == nil {
		d.Activities = []models.Activity{}
	}

	verr := &models.ValidationError{}
	if d.ID == "" {
		verr.Add("id", "is required")
	}
	validateText(verr, "name", d.Name)
	validateText(verr, "company", d.Company)
	validateValue(verr, d.Value)
	validatePriority(verr, d.Priority)

	var note string
	if p, ok := catalog.PipelineOf(d.Stage); !ok {
		verr.Add("stage", "unknown stage "+quote(string(d.Stage)))
	} else {
		if d.Pipeline != "" && d.Pipeline != p {
			note = "pipeline re-derived from " + quote(string(d.Pipeline)) + " to " + quote(string(p))
		}
		d.Pipeline = p
	}

	for _, a := range d.Activities {
		if !a.Type.IsValid() {
			verr.Add("activities", "unknown activity type "+quote(string(a.Type)))
			break
		}
	}
	if err := verr.OrNil(); err != nil {
		return models.Deal{}, "", err
	}
	return d.Clone(), note, nil
}

// Snapshot renders the feed as a document. It is a persist.SnapshotFunc.
func (s *NotificationStore) Snapshot() ([]byte, error) {
	return json.Marshal(notificationsDocument{Version: DocumentVersion, Notifications: s.Notifications()})
}

// Restore replaces the feed with doc. Restore does not mark the store dirty.
func (s *NotificationStore) Restore(doc []byte) (LoadReport, error) {
	var d notificationsDocument
	if err := json.Unmarshal(doc, &d); err != nil {
		return LoadReport{}, fmt.Errorf("decode %s: %w", NotificationsKey, err)
	}
	if d.Version > DocumentVersion {
		return LoadReport{}, fmt.Errorf("%s version %d: %w", NotificationsKey, d.Version, ErrUnsupportedVersion)
	}

	var report LoadReport
	items := make([]models.Notification, 0, len(d.Notifications))
	seen := make(map[string]bool, len(d.Notifications))
	for _, n := range d.Notifications {
		switch {
		case n.ID == "":
			report.Skipped = append(report.Skipped, Skipped{Name: n.Title, Reason: "id is required"})
		case seen[n.ID]:
			report.Skipped = append(report.Skipped, Skipped{ID: n.ID, Name: n.Title, Reason: "duplicate id"})
		default:
			seen[n.ID] = true
			items = append(items, n)
		}
	}
	if limit := s.opts.maxRetained; limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	report.Loaded = len(items)

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return report, nil
}

// SeedWelcome adds the welcome notification when the feed is empty.
func (s *NotificationStore) SeedWelcome() (bool, error) {
	if s.Len() > 0 {
		return false, nil
	}
	if _, err := s.AddNotification(WelcomeTitle, WelcomeMessage); err != nil {
		return false, err
	}
	return true, nil
}

// Legacy browser exports wrap state as {"state":{...},"version":0}.
type legacyEnvelope struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

// ParseLegacyDeals reads a "deals-storage" value exported from the browser client.
func ParseLegacyDeals(raw []byte) ([]models.Deal, error) {
	var env legacyEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode legacy envelope: %w", err)
	}
	if len(env.State) == 0 {
		return nil, errors.New("legacy export has no state")
	}
	var state struct {
		Deals []models.Deal `json:"deals"`
	}
	if err := json.Unmarshal(env.State, &state); err != nil {
		return nil, fmt.Errorf("decode legacy deals: %w", err)
	}
	return state.Deals, nil
}

// ParseLegacyNotifications reads a "notifications-storage" value exported from the browser client.
func ParseLegacyNotifications(raw []byte) ([]models.Notification, error) {
	var env legacyEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode legacy envelope: %w", err)
	}
	if len(env.State) == 0 {
		return nil, errors.New("legacy export has no state")
	}
	var state struct {
		Notifications []models.Notification `json:"notifications"`
	}
	if err := json.Unmarshal(env.State, &state); err != nil {
		return nil, fmt.Errorf("decode legacy notifications: %w", err)
	}
	return state.Notifications, nil
}

// ImportNotifications merges legacy entries into the feed newest first, skipping known ids.
// Entries with equal timestamps keep the current feed ahead of imported ones.
func (s *NotificationStore) ImportNotifications(items []models.Notification) LoadReport {
	var report LoadReport
	s.mu.Lock()
	seen := make(map[string]bool, len(s.items))
	for _, n := range s.items {
		seen[n.ID] = true
	}
	for _, n := range items {
		if n.ID == "" || seen[n.ID] {
			report.Skipped = append(report.Skipped, Skipped{ID: n.ID, Name: n.Title, Reason: "duplicate or missing id"})
			continue
		}
		seen[n.ID] = true
		s.items = append(s.items, n)
		report.Loaded++
	}
	sort.SliceStable(s.items, func(i, j int) bool {
		return s.items[i].Timestamp.After(s.items[j].Timestamp)
	})
	if limit := s.opts.maxRetained; limit > 0 && len(s.items) > limit {
		s.items = s.items[:limit]
	}
	s.mu.Unlock()

	if report.Loaded > 0 {
		s.changed()
	}
	return report
}
