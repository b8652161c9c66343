package domain

import "time"

// JobState represents the tracking state of a download job.
type JobState string

const (
	StatePreparing JobState = "preparing"
	StateActive    JobState = "active"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateRemoved   JobState = "removed"
)

// Terminal returns true if the state is absorbing (no further polling).
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateRemoved
}

// Kind identifies how a download was submitted.
type Kind string

const (
	KindURL     Kind = "url"
	KindMagnet  Kind = "magnet"
	KindTorrent Kind = "torrent"
)

// Job is one tracked download, identified by the daemon-assigned GID.
type Job struct {
	GID          string
	Owner        int64
	Name         string
	Conversation int64
	StartedAt    time.Time
	State        JobState
	LastRendered string
	Message      MessageRef
}

// FailedJob is a best-effort record kept after a job is retired in the
// failed state, to support retry and listing. It does not count against
// the concurrency limit.
type FailedJob struct {
	GID          string
	Owner        int64
	Name         string
	Conversation int64
	Error        string
}

// HistoryEntry is an audit record of a job that reached a terminal state.
type HistoryEntry struct {
	GID        string
	Owner      int64
	Name       string
	State      JobState
	Error      string
	TotalBytes int64
	StartedAt  time.Time
	FinishedAt time.Time
}
