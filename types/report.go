package types

// JobResult records the final outcome of one drained submission.
type JobResult struct {
	ID           string           `json:"id"`
	FinalStatus  SubmissionStatus `json:"final_status"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// RunnerReport is the batch summary returned by one queue-runner invocation.
type RunnerReport struct {
	ProcessedCount int         `json:"processed_count"`
	RescuedCount   int         `json:"rescued_count"`
	Details        []JobResult `json:"details"`
}
