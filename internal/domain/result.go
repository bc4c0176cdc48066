package domain

import "time"

// Result is one generated image artifact produced by a completed job. Created
// exclusively by the worker; only the interaction fields (rating, favorite,
// public, counters) are mutable afterwards.
type Result struct {
	ID            string
	JobID         string
	Format        string
	Size          string
	Quality       string
	Background    string
	StorageKey    string
	URL           string
	SizeBytes     int64
	TokenUsage    []byte
	UserRating    *int
	IsFavorite    bool
	IsPublic      bool
	DownloadCount int
	LikeCount     int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// StreamingEventType enumerates the events emitted during a streaming job.
type StreamingEventType string

const (
	StreamingEventPartial   StreamingEventType = "partial_image"
	StreamingEventCompleted StreamingEventType = "completed"
	StreamingEventError     StreamingEventType = "error"
)

// StreamingEvent records one provider streaming event for a job. Partial
// payloads are display-only and never become Results.
type StreamingEvent struct {
	ID           string
	JobID        string
	EventType    StreamingEventType
	PartialIndex *int
	Metadata     []byte
	ReceivedAt   time.Time
}
