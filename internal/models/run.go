package models

import (
	"time"
)

type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether a run in this status will not change again.
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// TableReport summarizes one sink write.
type TableReport struct {
	Table      string `json:"table"`
	Location   string `json:"location"`
	Rows       int    `json:"rows"`
	Partitions int    `json:"partitions"`
	Deleted    int    `json:"deleted"`
}

// RunReport is the outcome of one pipeline run.
type RunReport struct {
	RunID      string        `json:"runId"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Tables     []TableReport `json:"tables"`
}

// Table returns the report of the named table, if it was written.
func (r *RunReport) Table(name string) (TableReport, bool) {
	for _, t := range r.Tables {
		if t.Table == name {
			return t, true
		}
	}
	return TableReport{}, false
}

// Run is the queued unit of work tracked by the API.
type Run struct {
	ID        string     `json:"runId"`
	Status    RunStatus  `json:"status"`
	Error     string     `json:"error,omitempty"`
	Report    *RunReport `json:"report,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt,omitempty"`
}
