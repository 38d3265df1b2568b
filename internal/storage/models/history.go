package models

import "time"

// LoadRun records one dashboard load cycle.
type LoadRun struct {
	ID              string     `json:"id"`
	Trigger         string     `json:"trigger"`
	Status          string     `json:"status"`
	Error           *string    `json:"error,omitempty"`
	Users           int        `json:"users"`
	CalendarEntries int        `json:"calendar_entries"`
	WeeklyEntries   int        `json:"weekly_entries"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// Load run status constants
const (
	LoadStatusRunning   = "running"
	LoadStatusSuccess   = "success"
	LoadStatusError     = "error"
	LoadStatusDiscarded = "discarded"
)

// Load run triggers
const (
	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerCreate   = "create"
)

// EntrySubmission is the audit record of one add-entry form submission.
type EntrySubmission struct {
	ID             string    `json:"id"`
	Payload        string    `json:"payload"`
	Status         string    `json:"status"`
	RemoteRecordID *string   `json:"remote_record_id,omitempty"`
	Error          *string   `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Submission status constants
const (
	SubmissionPending   = "pending"
	SubmissionSucceeded = "succeeded"
	SubmissionFailed    = "failed"
)
