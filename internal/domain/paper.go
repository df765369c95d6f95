package domain

import "time"

// Paper is a core entity describing one arXiv submission moving through the
// selection pipeline. Source fields are immutable after fetch; scoring fields
// are assigned progressively by the filter and scoring layers and are never
// cleared once set.
type Paper struct {
	ID        string
	Title     string
	Abstract  string
	Authors   []string
	Submitted time.Time
	URL       string

	// Layer 1+2 (deterministic rules).
	KeywordScore int
	AuthorBoost  int
	LayerScore   int

	// Layer 3 (LLM oracle).
	LLMScore   int
	LLMReason  string
	FinalScore int
}

// RunRecord is one row of the run ledger, one per scheduling cycle.
// CompletedAt == nil marks a cycle that started but never committed.
type RunRecord struct {
	CycleID        string
	AnchorDate     time.Time
	SinceDate      time.Time
	UntilDate      time.Time
	PapersFetched  int
	PapersSelected int
	CompletedAt    *time.Time
	DigestPath     string
}

// Completed reports whether the record marks a finished cycle.
func (r RunRecord) Completed() bool {
	return r.CompletedAt != nil
}
