package trace

import "time"

// Entry records one coverage run.
type Entry struct {
	Timestamp    time.Time `json:"timestamp"`
	RunID        string    `json:"run_id"`
	Operations   int       `json:"operations"`
	Groups       int       `json:"groups"`
	Exchanges    int       `json:"exchanges"`
	Matched      int       `json:"matched"`
	Percentage   float64   `json:"percentage"`
	SmartMapping bool      `json:"smart_mapping"`
	Unmatched    []string  `json:"unmatched,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
}

// CandidateResult records how one operation judged a probed exchange.
type CandidateResult struct {
	Operation    string  `json:"operation"`
	Contract     string  `json:"contract,omitempty"`
	Matched      bool    `json:"matched"`
	Confidence   float64 `json:"confidence"`
	Similarity   float64 `json:"similarity"`
	FailedStage  string  `json:"failed_stage,omitempty"`
	FailedReason string  `json:"failed_reason,omitempty"`
}
