// ABOUTME: Tests for document snapshot, restore and legacy import
// ABOUTME: Round trips both stores and checks invalid records are reported
package store

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/harperreed/dealboard/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDealSnapshotRestore(t *testing.T) {
	s, _, _ := newTestDealStore(t)
	seedDeals(t, s)
	deals := s.Deals()
	_, err := s.AddActivity(deals[0].ID, models.ActivityInput{Type: models.ActivityComment, Title: "Called"})
	require.NoError(t, err)

	doc, err := s.Snapshot()
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc, &raw))
	assert.JSONEq(t, `1`, string(raw["version"]))
	assert.Contains(t, string(raw["deals"]), `"lastUpdated"`)

	restored, marker := NewDealStore(WithLogger(quietLogger())), &recordingMarker{}
	restored.opts.marker = marker
	report, err := restored.Restore(doc)
	require.NoError(t, err)
	assert.Equal(t, 6, report.Loaded)
	assert.Empty(t, report.Skipped)
	assert.Equal(t, 0, marker.Count())

	want := s.Deals()
	got := restored.Deals()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Stage, got[i].Stage)
		assert.Equal(t, want[i].Value, got[i].Value)
		assert.True(t, want[i].LastUpdated.Equal(got[i].LastUpdated))
		assert.Len(t, got[i].Activities, len(want[i].Activities))
	}
}

func TestDealRestoreSkipsInvalidRecords(t *testing.T) {
	doc := `{"version":1,"deals":[
		{"id":"1","name":"Ok","company":"Acme","value":10,"stage":"planning","lastUpdated":"2024-01-01T00:00:00Z","activities":[]},
		{"id":"2","name":"Old stage","company":"Acme","value":10,"stage":"closed"},
		{"id":"1","name":"Dup","company":"Acme","value":10,"stage":"planning"},
		{"id":"4","name":"Job","company":"Acme","value":10,"stage":"planning","activities":[{"id":"a","type":"job","title":"x"}]}
	]}`

	s := NewDealStore(WithLogger(quietLogger()))
	report, err := s.Restore([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Loaded)
	require.Len(t, report.Skipped, 3)
	assert.Equal(t, "2", report.Skipped[0].ID)
	assert.Contains(t, report.Skipped[0].Reason, "unknown stage")
	assert.Equal(t, "duplicate id", report.Skipped[1].Reason)
	assert.Equal(t, "4", report.Skipped[2].ID)
	assert.Empty(t, report.Repaired)

	d, err := s.Deal("1")
	require.NoError(t, err)
	assert.Equal(t, models.PipelinePreApproval, d.Pipeline)
	assert.Equal(t, models.PriorityMedium, d.Priority)
}

func TestDealRestoreRederivesPipeline(t *testing.T) {
	doc := `{"version":1,"deals":[
		{"id":"1","name":"Moved","company":"Acme","value":10,"stage":"quoting","pipeline":"active"},
		{"id":"2","name":"Fine","company":"Acme","value":10,"stage":"planning","pipeline":"pre_approval"}
	]}`

	s := NewDealStore(WithLogger(quietLogger()))
	marker := &recordingMarker{}
	s.opts.marker = marker

	report, err := s.Restore([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Loaded)
	assert.Empty(t, report.Skipped)
	require.Len(t, report.Repaired, 1)
	assert.Equal(t, "1", report.Repaired[0].ID)
	assert.Contains(t, report.Repaired[0].Reason, "pipeline re-derived")
	assert.Equal(t, 1, marker.Count(), "repaired document is written back")

	d, err := s.Deal("1")
	require.NoError(t, err)
	assert.Equal(t, models.StageQuoting, d.Stage)
	assert.Equal(t, models.PipelineQuoting, d.Pipeline)
	assert.Len(t, s.DealsByPipeline(models.PipelineQuoting), 1)
}

func TestImportLegacyMovedDeal(t *testing.T) {
	// The browser client only rewrote stage on a move, leaving the old pipeline behind.
	raw := `{"state":{"deals":[
		{"id":"1700000000000","name":"HVAC Repair","company":"Acme","value":1500,"pipeline":"pre_approval",
		 "stage":"quoting","owner":"","lastUpdated":"2024-02-01T10:00:00.000Z","description":"",
		 "priority":"medium","activities":[]}
	]},"version":0}`

	deals, err := ParseLegacyDeals([]byte(raw))
	require.NoError(t, err)

	s, _, _ := newTestDealStore(t)
	report := s.Import(deals)
	assert.Equal(t, 1, report.Loaded)
	assert.Empty(t, report.Skipped)
	require.Len(t, report.Repaired, 1)
	assert.Equal(t, "HVAC Repair", report.Repaired[0].Name)

	d, err := s.Deal("1700000000000")
	require.NoError(t, err)
	assert.Equal(t, models.PipelineQuoting, d.Pipeline)
	assert.Equal(t, 1500.0, s.TotalValueByPipeline(models.PipelineQuoting))
	assert.Zero(t, s.TotalValueByPipeline(models.PipelinePreApproval))
}

func TestRestoreRejectsNewerVersion(t *testing.T) {
	_, err := NewDealStore().Restore([]byte(`{"version":9,"deals":[]}`))
	assert.True(t, errors.Is(err, ErrUnsupportedVersion))

	_, err = NewNotificationStore().Restore([]byte(`{"version":9,"notifications":[]}`))
	assert.True(t, errors.Is(err, ErrUnsupportedVersion))

	_, err = NewDealStore().Restore([]byte(`not json`))
	assert.Error(t, err)
}

func TestRestoreReplacesExistingDeals(t *testing.T) {
	s, _, _ := newTestDealStore(t)
	old, err := s.CreateDeal(models.DealInput{Name: "Old", Company: "Acme"})
	require.NoError(t, err)

	_, err = s.Restore([]byte(`{"version":1,"deals":[]}`))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	_, err = s.MoveDeal(old.ID, models.StageQuoting)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestNotificationSnapshotRestore(t *testing.T) {
	s, _, _ := newTestFeed(t)
	_, _ = s.AddNotification("a", "first")
	_, _ = s.AddNotification("b", "second")
	s.MarkAsRead()
	_, _ = s.AddNotification("c", "third")

	doc, err := s.Snapshot()
	require.NoError(t, err)

	restored := NewNotificationStore(WithLogger(quietLogger()))
	report, err := restored.Restore(doc)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Loaded)
	assert.Equal(t, 1, restored.UnreadCount())
	assert.Equal(t, "c", restored.Notifications()[0].Title)
}

func TestParseLegacyDeals(t *testing.T) {
	raw := `{"state":{"deals":[
		{"id":"1700000000000","name":"HVAC Repair","company":"Acme","value":1500,"pipeline":"pre_approval",
		 "stage":"potential","owner":"Sam","lastUpdated":"2024-02-01T10:00:00.000Z","description":"",
		 "priority":"high","activities":[{"id":"a1","type":"note","title":"Called","description":"","timestamp":"2024-02-01T10:05:00.000Z"}]},
		{"id":"1700000000001","name":"Old","company":"Acme","value":5,"pipeline":"closed","stage":"closed",
		 "owner":"","lastUpdated":"2024-02-01T10:00:00.000Z","description":"","priority":"low","activities":[]}
	]},"version":0}`

	deals, err := ParseLegacyDeals([]byte(raw))
	require.NoError(t, err)
	require.Len(t, deals, 2)

	s, _, marker := newTestDealStore(t)
	report := s.Import(deals)
	assert.Equal(t, 1, report.Loaded)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "Old", report.Skipped[0].Name)
	assert.Contains(t, report.Skipped[0].Reason, "unknown stage")
	assert.Equal(t, 1, marker.Count())

	again := s.Import(deals)
	assert.Equal(t, 0, again.Loaded)
	assert.Equal(t, 1, marker.Count())

	d, err := s.Deal("1700000000000")
	require.NoError(t, err)
	require.Len(t, d.Activities, 1)
	assert.Equal(t, models.ActivityNote, d.Activities[0].Type)

	_, err = ParseLegacyDeals([]byte(`{"version":0}`))
	assert.Error(t, err)
}

func TestParseLegacyNotifications(t *testing.T) {
	raw := `{"state":{"notifications":[
		{"id":"k3j2h1","title":"Welcome","message":"hi","timestamp":"2024-02-01T10:00:00.000Z","read":false}
	]},"version":0}`

	items, err := ParseLegacyNotifications([]byte(raw))
	require.NoError(t, err)
	require.Len(t, items, 1)

	s, _, _ := newTestFeed(t)
	_, _ = s.AddNotification("Current", "")
	report := s.ImportNotifications(items)
	assert.Equal(t, 1, report.Loaded)

	feed := s.Notifications()
	require.Len(t, feed, 2)
	assert.Equal(t, "Current", feed[0].Title)
	assert.Equal(t, "Welcome", feed[1].Title)
}

func TestImportNotificationsMergesByTimestamp(t *testing.T) {
	raw := `{"state":{"notifications":[
		{"id":"old1","title":"Older","message":"","timestamp":"2024-02-15T10:00:00.000Z","read":true},
		{"id":"new1","title":"Newer","message":"","timestamp":"2024-03-02T09:00:00.000Z","read":false}
	]},"version":0}`
	items, err := ParseLegacyNotifications([]byte(raw))
	require.NoError(t, err)

	s, _, marker := newTestFeed(t, WithMaxRetained(2))
	_, err = s.AddNotification("Current", "")
	require.NoError(t, err)

	report := s.ImportNotifications(items)
	assert.Equal(t, 2, report.Loaded)
	assert.Equal(t, 2, marker.Count())

	feed := s.Notifications()
	require.Len(t, feed, 2, "cap applies after the merge")
	assert.Equal(t, "Newer", feed[0].Title)
	assert.Equal(t, "Current", feed[1].Title)
	assert.Equal(t, 2, s.UnreadCount(), "the read legacy entry fell off the end")
}
