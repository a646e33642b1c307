package domain

import "time"

// RunSummary is the outcome of one complete pipeline run.
type RunSummary struct {
	RunID        string        `json:"run_id"`
	Characters   int           `json:"characters"`
	Rows         int64         `json:"rows"`
	FetchElapsed time.Duration `json:"fetch_elapsed_ns"`
	LoadElapsed  time.Duration `json:"load_elapsed_ns"`
	CompletedAt  time.Time     `json:"completed_at"`
}
