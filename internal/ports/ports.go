package ports

import (
	"context"
	"time"

	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/domain"
)

// PaperSource pulls papers submitted inside a date window from upstream.
type PaperSource interface {
	FetchWindow(ctx context.Context, since, until time.Time) ([]domain.Paper, error)
}

// RunLedger is the durable record of completed cycles. It is the sole source
// of truth for idempotency; read or write failures are fatal to a cycle.
type RunLedger interface {
	CompletedExists(ctx context.Context, cycleID string) (bool, error)
	LastCompletedAnchor(ctx context.Context) (time.Time, bool, error)
	Commit(ctx context.Context, record domain.RunRecord) error
	Close() error
}

// Oracle performs one scoring call against the external judgment model and
// returns its raw text output.
type Oracle interface {
	Score(ctx context.Context, prompt string) (string, error)
}

// MemoryStore persists selected papers into the agent memory. Failures are
// logged by the caller and never abort a cycle.
type MemoryStore interface {
	StorePapers(ctx context.Context, papers []domain.Paper, cycleID, digestURL string) (int, error)
}

// DigestPublisher writes and publishes the digest artifacts for a cycle.
// ok=false means the artifacts may exist locally but were not published;
// the caller must not commit the run ledger in that case.
type DigestPublisher interface {
	PagesURL(cycleID string) string
	Publish(ctx context.Context, cycleID string, papers []domain.Paper, since, until time.Time) (url string, ok bool)
}

// Announcer sends the post-commit notification. Fire and forget.
type Announcer interface {
	Announce(ctx context.Context, digestURL string, papers []domain.Paper, since, until time.Time) error
}

// CycleDriver triggers recurring cycle executions.
type CycleDriver interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
