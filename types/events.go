package types

import (
	"encoding/json"
	"time"
)

// EventType tags a pipeline status event.
type EventType string

const (
	EventTypeSubmissionQueued    EventType = "submission.queued"
	EventTypeSubmissionProcessed EventType = "submission.processed"
	EventTypeSubmissionDuplicate EventType = "submission.duplicate"
	EventTypeSubmissionFailed    EventType = "submission.failed"
)

// Event is the canonical record for one pipeline status change. Every sink
// and every stream subscriber consumes the same record; sinks format it
// independently.
type Event struct {
	Type         EventType       `json:"event_type"`
	SubmissionID string          `json:"submission_id"`
	Timestamp    time.Time       `json:"timestamp"`
	Payload      json.RawMessage `json:"payload"`
}

// QueuedPayload is attached to submission.queued events.
type QueuedPayload struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	ReceivedAt  time.Time `json:"received_at"`
	DeviceName  string    `json:"device_name"`
	InputType   string    `json:"input_type"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
}

// ProcessedPayload is attached to submission.processed events. Data carries
// the extracted field set verbatim; Stats the recomputed dashboard totals.
type ProcessedPayload struct {
	SubmissionID string            `json:"submission_id"`
	Status       string            `json:"status"`
	ProcessedAt  time.Time         `json:"processed_at"`
	Data         *ExtractionResult `json:"data"`
	Stats        *DashboardStats   `json:"stats,omitempty"`
}

// DuplicatePayload is attached to submission.duplicate events.
type DuplicatePayload struct {
	SubmissionID         string `json:"submission_id"`
	Status               string `json:"status"`
	VerificationCode     string `json:"verification_code"`
	OriginalSubmissionID string `json:"original_submission_id"`
}

// FailedPayload is attached to submission.failed events.
type FailedPayload struct {
	SubmissionID string `json:"submission_id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// NewEvent builds an event from a typed payload, stamping the current time.
// Marshalling a payload struct cannot fail, so the error is swallowed here
// rather than pushed onto every call site.
func NewEvent(eventType EventType, submissionID string, payload interface{}) Event {
	raw, _ := json.Marshal(payload)
	return Event{
		Type:         eventType,
		SubmissionID: submissionID,
		Timestamp:    time.Now().UTC(),
		Payload:      raw,
	}
}
