package model

import "time"

// RunStatus is the lifecycle state of a persisted run.
type RunStatus string

const (
	RunStatusPending RunStatus = "pending"
	RunStatusRunning RunStatus = "running"
	RunStatusDone    RunStatus = "done"
	RunStatusFailed  RunStatus = "failed"
)

// RunRequest is what a caller (CLI, HTTP source, gRPC, or a queued worker
// pickup) submits to start a run: which preset, with what options, and at
// what priority a scheduler should treat it.
type RunRequest struct {
	PresetId string
	Options  Options
	Priority int
}

// RunRecord is the persisted record of one run: its request, its
// lifecycle, and — once Done or Failed — where its timeline landed.
type RunRecord struct {
	ID           string
	PresetId     string
	Options      Options
	Priority     int
	Status       RunStatus
	HaltedReason HaltedReason
	TimelineURL  string
	Error        string
	CreatedAt    time.Time
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

// IsHighPriority reports whether the request should jump the scheduler's
// normal queue, mirroring the short-job fast path a scheduler's priority
// slots exist to serve.
func (r RunRequest) IsHighPriority() bool {
	return r.Priority > 0
}

// PresetRecord is the persisted form of a Preset: the runnable definition
// plus the bookkeeping fields a repository needs (label for listings,
// timestamps for ordering) that the in-process Preset value has no use
// for.
type PresetRecord struct {
	ID          string
	Label       string
	Description string
	Preset      Preset
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
