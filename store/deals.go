// ABOUTME: Deal store owning the deal collection and the stage transition model
// ABOUTME: Handles create, update, move, delete and activity append with per-deal locking
package store

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harperreed/dealboard/catalog"
	"github.com/harperreed/dealboard/models"
)

// Marker is told which document changed. persist.Writer satisfies it.
type Marker interface {
	MarkDirty(key string)
}

// Option configures a store.
type Option func(*options)

type options struct {
	now         func() time.Time
	newID       func() string
	marker      Marker
	logger      *log.Logger
	maxRetained int
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides identifier allocation.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

// PersistTo marks the store's document dirty on every mutation.
func PersistTo(m Marker) Option {
	return func(o *options) { o.marker = m }
}

// WithLogger sets the logger used for mutation tracing.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option, defaultID func() string) options {
	o := options{now: time.Now, newID: defaultID}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default()
	}
	return o
}

type dealEntry struct {
	mu      sync.Mutex
	deal    models.Deal
	removed bool
}

// DealStore owns every deal. Safe for concurrent use: the map is guarded by mu and
// each deal by its own mutex, so writes to different deals do not contend.
type DealStore struct {
	mu      sync.RWMutex
	entries map[string]*dealEntry
	order   []string

	opts   options
	logger *log.Logger
}

// NewDealStore returns an empty store.
func NewDealStore(opts ...Option) *DealStore {
	o := buildOptions(opts, uuid.NewString)
	return &DealStore{
		entries: make(map[string]*dealEntry),
		opts:    o,
		logger:  o.logger.With("store", DealsKey),
	}
}

// CreateDeal validates input, allocates an id and stores the deal.
func (s *DealStore) CreateDeal(in models.DealInput) (models.Deal, error) {
	stage := in.Stage
	if stage == "" {
		stage = catalog.DefaultStage()
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	verr := &models.ValidationError{}
	validateText(verr, "name", in.Name)
	validateText(verr, "company", in.Company)
	validateValue(verr, in.Value)
	validatePriority(verr, priority)
	pipeline := derivePipeline(verr, stage, optionalPipeline(in.Pipeline))
	if err := verr.OrNil(); err != nil {
		return models.Deal{}, err
	}

	deal := models.Deal{
		ID:          s.opts.newID(),
		Name:        strings.TrimSpace(in.Name),
		Company:     strings.TrimSpace(in.Company),
		Value:       in.Value,
		Pipeline:    pipeline,
		Stage:       stage,
		Owner:       in.Owner,
		LastUpdated: s.opts.now(),
		Description: in.Description,
		Priority:    priority,
		Activities:  []models.Activity{},
	}

	s.mu.Lock()
	s.entries[deal.ID] = &dealEntry{deal: deal}
	s.order = append(s.order, deal.ID)
	s.mu.Unlock()

	s.logger.Debug("deal created", "deal_id", deal.ID, "stage", deal.Stage, "pipeline", deal.Pipeline)
	s.changed()
	return deal.Clone(), nil
}

// UpdateDeal merges the non-nil fields of upd. A failed validation leaves the deal untouched.
func (s *DealStore) UpdateDeal(id string, upd models.DealUpdate) (models.Deal, error) {
	return s.mutate(id, func(d *models.Deal) error {
		next := *d
		verr := &models.ValidationError{}

		if upd.Name != nil {
			validateText(verr, "name", *upd.Name)
			next.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.Company != nil {
			validateText(verr, "company", *upd.Company)
			next.Company = strings.TrimSpace(*upd.Company)
		}
		if upd.Value != nil {
			validateValue(verr, *upd.Value)
			next.Value = *upd.Value
		}
		if upd.Priority != nil {
			validatePriority(verr, *upd.Priority)
			next.Priority = *upd.Priority
		}
		if upd.Owner != nil {
			next.Owner = *upd.Owner
		}
		if upd.Description != nil {
			next.Description = *upd.Description
		}
		if upd.Stage != nil {
			next.Stage = *upd.Stage
		}
		next.Pipeline = derivePipeline(verr, next.Stage, upd.Pipeline)

		if err := verr.OrNil(); err != nil {
			return err
		}
		*d = next
		return nil
	})
}

// MoveDeal is the single entry point for drag-and-drop style stage changes.
// Moving to the current stage succeeds and still refreshes LastUpdated.
func (s *DealStore) MoveDeal(id string, stage models.StageID) (models.Deal, error) {
	return s.mutate(id, func(d *models.Deal) error {
		verr := &models.ValidationError{}
		pipeline := derivePipeline(verr, stage, nil)
		if err := verr.OrNil(); err != nil {
			return err
		}

		s.logger.Debug("deal moved", "deal_id", id, "from", d.Stage, "to", stage)
		d.Stage = stage
		d.Pipeline = pipeline
		return nil
	})
}

// AddActivity appends to the deal's timeline, preserving insertion order.
func (s *DealStore) AddActivity(dealID string, in models.ActivityInput) (models.Activity, error) {
	var added models.Activity
	_, err := s.mutate(dealID, func(d *models.Deal) error {
		verr := &models.ValidationError{}
		if !in.Type.IsValid() {
			verr.Add("type", "unknown activity type "+quote(string(in.Type)))
		}
		validateText(verr, "title", in.Title)
		if err := verr.OrNil(); err != nil {
			return err
		}

		ts := in.Timestamp
		if ts.IsZero() {
			ts = s.opts.now()
		}
		added = models.Activity{
			ID:          uuid.NewString(),
			Type:        in.Type,
			Title:       strings.TrimSpace(in.Title),
			Description: in.Description,
			Timestamp:   ts,
			Completed:   in.Completed,
		}
		d.Activities = append(d.Activities, added)
		return nil
	})
	if err != nil {
		return models.Activity{}, err
	}
	return added, nil
}

// DeleteDeal removes the deal and its activities.
func (s *DealStore) DeleteDeal(id string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return notFound(id)
	}

	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()

	delete(s.entries, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.logger.Debug("deal deleted", "deal_id", id)
	s.changed()
	return nil
}

// ClearDeals removes every deal.
func (s *DealStore) ClearDeals() int {
	s.mu.Lock()
	n := len(s.entries)
	for _, e := range s.entries {
		e.mu.Lock()
		e.removed = true
		e.mu.Unlock()
	}
	s.entries = make(map[string]*dealEntry)
	s.order = nil
	s.mu.Unlock()

	if n > 0 {
		s.logger.Debug("deals cleared", "count", n)
		s.changed()
	}
	return n
}

// Deal returns a copy of one deal.
func (s *DealStore) Deal(id string) (models.Deal, error) {
	e, err := s.entry(id)
	if err != nil {
		return models.Deal{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return models.Deal{}, notFound(id)
	}
	return e.deal.Clone(), nil
}

// Deals returns copies of all deals in insertion order.
func (s *DealStore) Deals() []models.Deal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Deal, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		e.mu.Lock()
		out = append(out, e.deal.Clone())
		e.mu.Unlock()
	}
	return out
}

// Len returns the number of deals.
func (s *DealStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// mutate runs fn under the deal's lock, then stamps LastUpdated and marks the store dirty.
func (s *DealStore) mutate(id string, fn func(d *models.Deal) error) (models.Deal, error) {
	e, err := s.entry(id)
	if err != nil {
		return models.Deal{}, err
	}

	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return models.Deal{}, notFound(id)
	}
	if err := fn(&e.deal); err != nil {
		e.mu.Unlock()
		return models.Deal{}, err
	}
	e.deal.LastUpdated = s.opts.now()
	out := e.deal.Clone()
	e.mu.Unlock()

	s.changed()
	return out, nil
}

func (s *DealStore) entry(id string) (*dealEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, notFound(id)
	}
	return e, nil
}

func (s *DealStore) changed() {
	if s.opts.marker != nil {
		s.opts.marker.MarkDirty(DealsKey)
	}
}

func notFound(id string) error {
	return &models.NotFoundError{Kind: "deal", ID: id}
}

func optionalPipeline(p models.PipelineID) *models.PipelineID {
	if p == "" {
		return nil
	}
	return &p
}

// derivePipeline returns the stage's pipeline. An explicit pipeline must agree with it.
func derivePipeline(verr *models.ValidationError, stage models.StageID, explicit *models.PipelineID) models.PipelineID {
	info, err := catalog.StageInfo(stage)
	if err != nil {
		verr.Add("stage", "unknown stage "+quote(string(stage)))
		return ""
	}
	if explicit != nil {
		switch {
		case !catalog.IsPipeline(*explicit):
			verr.Add("pipeline", "unknown pipeline "+quote(string(*explicit)))
		case *explicit != info.Pipeline:
			verr.Add("pipeline", "stage "+quote(string(stage))+" belongs to pipeline "+quote(string(info.Pipeline)))
		}
	}
	return info.Pipeline
}

func validateText(verr *models.ValidationError, field, v string) {
	if strings.TrimSpace(v) == "" {
		verr.Add(field, "is required")
	}
}

func validateValue(verr *models.ValidationError, v float64) {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		verr.Add("value", "must be a finite number")
	case v < 0:
		verr.Add("value", "must not be negative")
	}
}

func validatePriority(verr *models.ValidationError, p models.Priority) {
	if !p.IsValid() {
		verr.Add("priority", "unknown priority "+quote(string(p)))
	}
}

func quote(s string) string {
	return `"` + s + `"`
}
