package types

import (
	"time"
)

// SubmissionStatus tracks a submission through its lifecycle. Transitions are
// monotonic: QUEUED -> PROCESSING -> {COMPLETED | DUPLICATE | FAILED}. The
// three terminal states are stable; only an operator may reset FAILED back to
// QUEUED.
type SubmissionStatus string

const (
	SubmissionStatusQueued     SubmissionStatus = "queued"
	SubmissionStatusProcessing SubmissionStatus = "processing"
	SubmissionStatusCompleted  SubmissionStatus = "completed"
	SubmissionStatusDuplicate  SubmissionStatus = "duplicate"
	SubmissionStatusFailed     SubmissionStatus = "failed"
)

// InputType identifies how the receipt content was supplied by the device.
type InputType string

const (
	InputTypePhoto InputType = "photo"
	InputTypeURL   InputType = "url"
)

// Submission is one unit of intake work: a device's receipt report tracked
// through the processing pipeline. Submissions are never deleted (audit trail).
type Submission struct {
	ID           string           `json:"id"`
	DeviceID     string           `json:"deviceId"`
	ReceivedAt   time.Time        `json:"receivedAt"`
	Status       SubmissionStatus `json:"status"`
	InputType    InputType        `json:"inputType"`
	// InputRef holds the stored photo path for photo submissions or the
	// receipt URL for url submissions.
	InputRef     string  `json:"inputRef"`
	Description  string  `json:"description,omitempty"`
	Location     string  `json:"location,omitempty"`
	ErrorMessage *string `json:"errorMessage,omitempty"`
	RetryCount   int     `json:"retryCount"`
}

// IsTerminal reports whether the status admits no further automatic
// transition.
func (s SubmissionStatus) IsTerminal() bool {
	switch s {
	case SubmissionStatusCompleted, SubmissionStatusDuplicate, SubmissionStatusFailed:
		return true
	}
	return false
}
