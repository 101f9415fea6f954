package model

import "time"

// IngestStatus is the lifecycle of one queued upload in the batch
// ingestion queue.
type IngestStatus string

const (
	// IngestPending means the file is queued and untouched.
	IngestPending IngestStatus = "pending"
	// IngestProcessing means an analysis call is in flight.
	IngestProcessing IngestStatus = "processing"
	// IngestReady means the analysis succeeded and awaits teacher review.
	IngestReady IngestStatus = "ready"
	// IngestIngesting means a combined analyze-and-persist call is in flight.
	IngestIngesting IngestStatus = "ingesting"
	// IngestSaved means the question was persisted; terminal.
	IngestSaved IngestStatus = "saved"
	// IngestError means the last operation failed; a retry re-enters pending.
	IngestError IngestStatus = "error"
)

// Runnable reports whether an item in this status may start a preview or
// ingest operation.
func (s IngestStatus) Runnable() bool {
	return s == IngestPending || s == IngestError
}

// InFlight reports whether the status denotes an unfinished async operation.
func (s IngestStatus) InFlight() bool {
	return s == IngestProcessing || s == IngestIngesting
}

// IngestItem is one queued upload. The original file bytes are retained so
// the queue survives restarts and operations can be retried.
type IngestItem struct {
	ID         string          `json:"id"`
	FileName   string          `json:"fileName"`
	MimeType   string          `json:"mimeType"`
	Content    []byte          `json:"-"`
	Status     IngestStatus    `json:"status"`
	Result     *AnalysisResult `json:"result,omitempty"`
	QuestionID string          `json:"questionId,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}
