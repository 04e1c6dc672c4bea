package models

import "time"

// SyncState is the orchestrator's state machine position.
type SyncState string

const (
	SyncIdle            SyncState = "idle"
	SyncRunning         SyncState = "running"
	SyncSucceeded       SyncState = "succeeded"
	SyncPartiallyFailed SyncState = "partially_failed"
	SyncFailed          SyncState = "failed"
)

// SyncTrigger records what started a pass.
type SyncTrigger string

const (
	SyncTriggerManual    SyncTrigger = "manual"
	SyncTriggerScheduled SyncTrigger = "scheduled"
)

// EntryFailure records a single entry that errored during a pass. The entry's
// prior state is preserved; only the error is reported.
type EntryFailure struct {
	EntryID int64  `json:"entryId"`
	Title   string `json:"title"`
	Error   string `json:"error"`
}

// SyncStatus describes the most recent (or in-flight) reconciliation pass.
type SyncStatus struct {
	PassID     string         `json:"passId,omitempty"`
	State      SyncState      `json:"state"`
	Trigger    SyncTrigger    `json:"trigger,omitempty"`
	StartedAt  *time.Time     `json:"startedAt,omitempty"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
	Processed  int            `json:"processed"`
	Matched    int            `json:"matched"`
	Failures   []EntryFailure `json:"failures,omitempty"`
	Error      string         `json:"error,omitempty"`
}
