package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/config"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/domain"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/ports"
)

const (
	maxContextAuthors  = 5
	maxContextAbstract = 1200
)

// attemptState makes the retry-once-then-drop guarantee explicit: every
// candidate moves Pending → (Retried) → Accepted or Dropped.
type attemptState int

const (
	attemptPending attemptState = iota
	attemptRetried
	attemptAccepted
	attemptDropped
)

// Scorer runs the LLM oracle over filtered candidates one call at a time.
// The limiter enforces the oracle's throughput limit; do not parallelize
// without re-deriving that limit.
type Scorer struct {
	oracle  ports.Oracle
	limiter *rate.Limiter
	backoff time.Duration
	target  int
	prompt  string
	logger  *slog.Logger
}

// New builds a Scorer from configuration.
func New(cfg config.ScoringConfig, oracle ports.Oracle, logger *slog.Logger) *Scorer {
	pacing := cfg.Pacing()
	limiter := rate.NewLimiter(rate.Inf, 1)
	if pacing > 0 {
		// Burst 1: strict spacing between consecutive oracle calls.
		limiter = rate.NewLimiter(rate.Every(pacing), 1)
	}

	return &Scorer{
		oracle:  oracle,
		limiter: limiter,
		backoff: cfg.RetryBackoff(),
		target:  cfg.TargetCount,
		prompt:  cfg.Prompt,
		logger:  logger,
	}
}

// Score asks the oracle for a 1-10 impact score per candidate. An invalid or
// failed call is retried exactly once after the backoff; a second failure
// drops the candidate without aborting the batch. Survivors are sorted by
// final score descending (stable on input order) and capped at the target
// count. The skipped return is how many candidates were dropped.
func (s *Scorer) Score(ctx context.Context, papers []domain.Paper) ([]domain.Paper, int, error) {
	results := make([]domain.Paper, 0, len(papers))
	skipped := 0

	for i, paper := range papers {
		s.info("scoring paper", "index", i+1, "total", len(papers), "id", paper.ID)

		score, reason, state, err := s.scoreWithRetry(ctx, paper)
		if err != nil {
			// Only context cancellation propagates; per-paper failures drop.
			return nil, skipped, err
		}

		if state == attemptDropped {
			s.warn("dropping paper after retry", "id", paper.ID)
			skipped++
			continue
		}

		paper.LLMScore = score
		paper.LLMReason = reason
		paper.FinalScore = paper.LayerScore + score
		results = append(results, paper)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalScore > results[j].FinalScore
	})

	top := results
	if s.target > 0 && len(top) > s.target {
		top = top[:s.target]
	}

	s.info("scoring done", "scored", len(results), "skipped", skipped, "selected", len(top))
	return top, skipped, nil
}

func (s *Scorer) scoreWithRetry(ctx context.Context, paper domain.Paper) (int, string, attemptState, error) {
	state := attemptPending

	for {
		score, reason, ok, err := s.scoreOnce(ctx, paper)
		if err != nil {
			return 0, "", state, err
		}
		if ok {
			return score, reason, attemptAccepted, nil
		}

		if state == attemptRetried {
			return 0, "", attemptDropped, nil
		}

		s.warn("invalid oracle result, retrying", "id", paper.ID, "backoff", s.backoff)
		if err := sleepCtx(ctx, s.backoff); err != nil {
			return 0, "", state, err
		}
		state = attemptRetried
	}
}

// scoreOnce issues a single paced oracle call. Transport failures and
// unparsable output both come back as ok=false; only context errors are
// returned as errors.
func (s *Scorer) scoreOnce(ctx context.Context, paper domain.Paper) (int, string, bool, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, "", false, err
	}

	prompt := s.prompt + "\n\n" + buildPaperContext(paper)
	raw, err := s.oracle.Score(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return 0, "", false, ctx.Err()
		}
		s.warn("oracle call failed", "id", paper.ID, "error", err)
		return 0, "", false, nil
	}

	score, reason, ok := ParseScore(raw)
	return score, reason, ok, nil
}

// buildPaperContext renders the bounded textual context the oracle judges:
// title, truncated author list, truncated abstract.
func buildPaperContext(paper domain.Paper) string {
	authors := strings.Join(truncAuthors(paper.Authors), ", ")
	if len(paper.Authors) > maxContextAuthors {
		authors += fmt.Sprintf(" et al. (%d total)", len(paper.Authors))
	}

	abstract := paper.Abstract
	if runes := []rune(abstract); len(runes) > maxContextAbstract {
		abstract = string(runes[:maxContextAbstract])
	}

	return fmt.Sprintf("Title: %s\nAuthors: %s\nAbstract: %s", paper.Title, authors, abstract)
}

func truncAuthors(authors []string) []string {
	if len(authors) > maxContextAuthors {
		return authors[:maxContextAuthors]
	}
	return authors
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scorer) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Scorer) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
