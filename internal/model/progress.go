package model

// JobProgress is the resumable checkpoint state of a batch ingestion run.
// It is rewritten wholesale after every batch and deleted only when the run
// completes cleanly, so an interrupted run resumes where it left off.
type JobProgress struct {
	RunID               string `json:"run_id"`
	Offset              int    `json:"offset"`
	Succeeded           int    `json:"succeeded"`
	Partial             int    `json:"partial"`
	Failed              int    `json:"failed"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
}
