package domain

import "time"

// CheckpointStatus is the per-file processing state.
type CheckpointStatus string

const (
	CheckpointProcessing CheckpointStatus = "processing"
	CheckpointProcessed  CheckpointStatus = "processed"
	CheckpointError      CheckpointStatus = "error"
)

// Checkpoint records how far a transcript file has been consumed.
// Lines are 1-based; LastProcessedLine == 0 means nothing consumed yet.
type Checkpoint struct {
	FileName          string
	FileLocation      string
	Status            CheckpointStatus
	LastProcessedLine int
	TotalLines        int
	DateProcessed     time.Time
}

// TranscriptFile is a batch transcript discovered by a file source.
type TranscriptFile struct {
	Name     string
	Location string
	Format   string
}
