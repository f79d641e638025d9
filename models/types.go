// ABOUTME: Data models for pipeline tracker entities
// ABOUTME: Defines Deal, Activity, Notification and their enumerated field types
package models

import (
	"time"
)

// PipelineID identifies a coarse phase of the sales process.
type PipelineID string

const (
	PipelinePreApproval PipelineID = "pre_approval"
	PipelineQuoting     PipelineID = "quoting"
	PipelineActive      PipelineID = "active"
	PipelinePostWork    PipelineID = "post_work"
)

// StageID identifies the fine-grained position of a deal within a pipeline.
type StageID string

const (
	StagePotential       StageID = "potential"
	StageQuoteRequested  StageID = "quote_requested"
	StageWorkRequested   StageID = "work_requested"
	StagePlanning        StageID = "planning"
	StageAssessment      StageID = "assessment"
	StageQuoting         StageID = "quoting"
	StageWaitingApproval StageID = "waiting_approval"
	StageInProgress      StageID = "in_progress"
	StageCompleted       StageID = "completed"
)

// Priority constants.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid reports whether p is one of the known priorities.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ActivityType is the closed set of timeline entry kinds.
type ActivityType string

const (
	ActivityComment   ActivityType = "comment"
	ActivityTask      ActivityType = "task"
	ActivitySiteVisit ActivityType = "site-visit"
	ActivitySchedule  ActivityType = "schedule"
	ActivityNote      ActivityType = "note"
	ActivityCall      ActivityType = "call"
	ActivityEmail     ActivityType = "email"
	ActivityMeeting   ActivityType = "meeting"
)

// ActivityTypes lists every valid activity type in display order.
var ActivityTypes = []ActivityType{
	ActivityComment,
	ActivityTask,
	ActivitySiteVisit,
	ActivitySchedule,
	ActivityNote,
	ActivityCall,
	ActivityEmail,
	ActivityMeeting,
}

// IsValid reports whether t is one of the known activity types.
func (t ActivityType) IsValid() bool {
	for _, known := range ActivityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Deal is a trackable opportunity moving through stages.
// JSON names follow the persisted "deals-storage" document layout.
type Deal struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Company     string     `json:"company"`
	Value       float64    `json:"value"`
	Pipeline    PipelineID `json:"pipeline"`
	Stage       StageID    `json:"stage"`
	Owner       string     `json:"owner"`
	LastUpdated time.Time  `json:"lastUpdated"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	Activities  []Activity `json:"activities"`
}

// Clone returns a deep copy so callers never share the activity slice with the store.
func (d Deal) Clone() Deal {
	out := d
	out.Activities = make([]Activity, len(d.Activities))
	copy(out.Activities, d.Activities)
	return out
}

// Activity is a timestamped sub-event attached to a deal.
type Activity struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Timestamp   time.Time    `json:"timestamp"`
	Completed   bool         `json:"completed,omitempty"`
}

// Notification is a system message surfaced to the user.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// DealInput carries the caller-supplied fields for a new deal.
// Pipeline is optional; when set it must agree with Stage.
type DealInput struct {
	Name        string
	Company     string
	Value       float64
	Pipeline    PipelineID
	Stage       StageID
	Owner       string
	Description string
	Priority    Priority
}

// DealUpdate is a partial update; nil fields are left unchanged.
type DealUpdate struct {
	Name        *string
	Company     *string
	Value       *float64
	Pipeline    *PipelineID
	Stage       *StageID
	Owner       *string
	Description *string
	Priority    *Priority
}

// IsEmpty reports whether the update carries no fields.
func (u DealUpdate) IsEmpty() bool {
	return u.Name == nil && u.Company == nil && u.Value == nil && u.Pipeline == nil &&
		u.Stage == nil && u.Owner == nil && u.Description == nil && u.Priority == nil
}

// ActivityInput carries the caller-supplied fields for a new activity.
// A zero Timestamp means "now".
type ActivityInput struct {
	Type        ActivityType
	Title       string
	Description string
	Timestamp   time.Time
	Completed   bool
}
