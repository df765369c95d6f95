package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/domain"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/filter"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/ports"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/schedule"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/scoring"
)

// CycleState tracks the orchestrator through one invocation.
type CycleState string

const (
	StateIdle           CycleState = "IDLE"
	StateWindowComputed CycleState = "WINDOW_COMPUTED"
	StateFetched        CycleState = "FETCHED"
	StateFiltered       CycleState = "FILTERED"
	StateScored         CycleState = "SCORED"
	StatePublished      CycleState = "PUBLISHED"
	StateCommitted      CycleState = "COMMITTED"
	StateSkipped        CycleState = "SKIPPED"
	StateAborted        CycleState = "ABORTED"
)

// Result summarizes one invocation for the caller: terminal state, counts
// per stage, and the published digest URL if the cycle committed.
type Result struct {
	State     CycleState
	CycleID   string
	Since     time.Time
	Until     time.Time
	Fetched   int
	Filtered  int
	Scored    int
	Skipped   int
	Top       []domain.Paper
	DigestURL string
}

// CycleDeps wires all collaborators into the orchestrator.
type CycleDeps struct {
	Schedule  schedule.Schedule
	Ledger    ports.RunLedger
	Source    ports.PaperSource
	Filter    *filter.Filter
	Scorer    *scoring.Scorer
	Store     ports.MemoryStore
	Publisher ports.DigestPublisher
	Announcer ports.Announcer
	Logger    *slog.Logger
	Now       func() time.Time
}

// Cycle sequences scheduler → fetch → filter → score → store/publish →
// ledger commit → announce, enforcing the once-per-period guarantee
// end-to-end. Execution of the work is at-least-once; recording is
// exactly-once.
type Cycle struct {
	sched     schedule.Schedule
	ledger    ports.RunLedger
	source    ports.PaperSource
	filter    *filter.Filter
	scorer    *scoring.Scorer
	store     ports.MemoryStore
	publisher ports.DigestPublisher
	announcer ports.Announcer
	logger    *slog.Logger
	now       func() time.Time
}

// NewCycle constructs the orchestration component.
func NewCycle(deps CycleDeps) *Cycle {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Cycle{
		sched:     deps.Schedule,
		ledger:    deps.Ledger,
		source:    deps.Source,
		filter:    deps.Filter,
		scorer:    deps.Scorer,
		store:     deps.Store,
		publisher: deps.Publisher,
		announcer: deps.Announcer,
		logger:    deps.Logger,
		now:       now,
	}
}

// Run executes one cycle. A period that is already committed returns
// StateSkipped with no collaborator calls and a nil error. Stage-empty
// results and publish failures return StateAborted with an error and no
// ledger write, so the next invocation retries the same period. Ledger I/O
// failures propagate unchanged.
func (c *Cycle) Run(ctx context.Context, dryRun bool) (Result, error) {
	today := schedule.DateOf(c.now())
	anchor := c.sched.CurrentAnchor(today)
	result := Result{State: StateIdle, CycleID: schedule.CycleID(anchor)}

	done, err := c.ledger.CompletedExists(ctx, result.CycleID)
	if err != nil {
		return result, fmt.Errorf("check cycle %s: %w", result.CycleID, err)
	}
	if done {
		result.State = StateSkipped
		c.info("cycle already completed, nothing to do", "cycle", result.CycleID)
		return result, nil
	}

	lastAnchor, hasCompleted, err := c.ledger.LastCompletedAnchor(ctx)
	if err != nil {
		return result, fmt.Errorf("read last anchor: %w", err)
	}

	result.Since, result.Until = c.sched.Window(today, anchor, lastAnchor, hasCompleted)
	result.State = StateWindowComputed
	c.info("starting cycle",
		"cycle", result.CycleID,
		"since", result.Since.Format("2006-01-02"),
		"until", result.Until.Format("2006-01-02"),
		"dry_run", dryRun)

	papers, err := c.source.FetchWindow(ctx, result.Since, result.Until)
	if err != nil {
		result.State = StateAborted
		return result, fmt.Errorf("fetch window: %w", err)
	}
	result.Fetched = len(papers)
	if len(papers) == 0 {
		result.State = StateAborted
		c.warn("no papers fetched", "cycle", result.CycleID)
		return result, fmt.Errorf("fetch stage returned no papers")
	}
	result.State = StateFetched
	c.info("fetched papers", "cycle", result.CycleID, "fetched", result.Fetched)

	candidates := c.filter.Apply(papers)
	result.Filtered = len(candidates)
	if len(candidates) == 0 {
		result.State = StateAborted
		c.warn("all papers filtered out", "cycle", result.CycleID, "fetched", result.Fetched)
		return result, fmt.Errorf("filter stage returned no candidates")
	}
	result.State = StateFiltered

	top, skipped, err := c.scorer.Score(ctx, candidates)
	if err != nil {
		result.State = StateAborted
		return result, fmt.Errorf("score candidates: %w", err)
	}
	result.Scored = len(top)
	result.Skipped = skipped
	result.Top = top
	if len(top) == 0 {
		result.State = StateAborted
		c.warn("scoring returned no valid papers",
			"cycle", result.CycleID, "candidates", result.Filtered, "skipped", skipped)
		return result, fmt.Errorf("scoring stage returned no papers")
	}
	result.State = StateScored
	c.info("pipeline counts",
		"cycle", result.CycleID,
		"fetched", result.Fetched,
		"filtered", result.Filtered,
		"scored", result.Scored,
		"skipped", result.Skipped)

	if dryRun {
		c.info("dry run complete, skipping store, publish, and commit",
			"cycle", result.CycleID, "selected", len(top))
		for i, p := range top {
			if i >= 5 {
				break
			}
			c.info("dry run selection", "rank", i+1, "final_score", p.FinalScore, "title", p.Title)
		}
		return result, nil
	}

	// Store failures are logged and never block the cycle.
	pagesURL := c.publisher.PagesURL(result.CycleID)
	if stored, storeErr := c.store.StorePapers(ctx, top, result.CycleID, pagesURL); storeErr != nil {
		c.warn("memory store failed", "cycle", result.CycleID, "error", storeErr)
	} else {
		c.info("stored papers in memory", "cycle", result.CycleID, "stored", stored)
	}

	digestURL, ok := c.publisher.Publish(ctx, result.CycleID, top, result.Since, result.Until)
	result.DigestURL = digestURL
	if !ok {
		// Local artifacts may exist; without a successful publish the cycle
		// is not recorded and the next invocation redoes the scoring.
		result.State = StateAborted
		c.warn("publish failed, cycle not committed", "cycle", result.CycleID, "digest", digestURL)
		return result, fmt.Errorf("publish failed for cycle %s", result.CycleID)
	}
	result.State = StatePublished

	err = c.ledger.Commit(ctx, domain.RunRecord{
		CycleID:        result.CycleID,
		AnchorDate:     anchor,
		SinceDate:      result.Since,
		UntilDate:      result.Until,
		PapersFetched:  result.Fetched,
		PapersSelected: len(top),
		DigestPath:     digestURL,
	})
	if err != nil {
		result.State = StateAborted
		return result, fmt.Errorf("commit cycle %s: %w", result.CycleID, err)
	}
	result.State = StateCommitted

	if announceErr := c.announcer.Announce(ctx, digestURL, top, result.Since, result.Until); announceErr != nil {
		c.warn("announcement failed", "cycle", result.CycleID, "error", announceErr)
	}

	c.info("cycle complete",
		"cycle", result.CycleID, "selected", len(top), "digest", digestURL)
	return result, nil
}

func (c *Cycle) info(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Cycle) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
