package zeroclaw

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/config"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/domain"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/ports"
)

const (
	maxMessageAuthors  = 4
	maxMessageAbstract = 800
	maxSummaryTitles   = 5
)

// Store writes selected papers into ZeroClaw agent memory. Every write goes
// through the CLI; the brain database is only ever read, and only for the
// narrow duplicate predicate.
type Store struct {
	binary     string
	brainDB    string
	entryLimit int
	timeout    time.Duration
	logger     *slog.Logger

	// runCLI is swappable in tests; default executes the real binary.
	runCLI func(ctx context.Context, binary string, args ...string) error
}

var _ ports.MemoryStore = (*Store)(nil)

// NewStore wires the CLI binary and the duplicate-check database path.
func NewStore(cfg config.MemoryConfig, logger *slog.Logger) *Store {
	return &Store{
		binary:     cfg.Binary,
		brainDB:    cfg.BrainDB,
		entryLimit: cfg.EntryLimit,
		timeout:    cfg.Timeout(),
		logger:     logger,
		runCLI:     runCommand,
	}
}

func runCommand(ctx context.Context, binary string, args ...string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (%s)", binary, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// StorePapers writes one memory entry per paper plus a digest summary entry,
// skipping papers already present and capping total writes at the configured
// entry limit. Returns how many entries were stored.
func (s *Store) StorePapers(ctx context.Context, papers []domain.Paper, cycleID, digestURL string) (int, error) {
	stored := 0
	total := len(papers) + 1
	s.info("storing entries in agent memory", "entries", total, "cycle", cycleID)

	for i, paper := range papers {
		if s.entryLimit > 0 && stored >= s.entryLimit {
			s.warn("memory entry limit reached", "limit", s.entryLimit, "remaining", len(papers)-i)
			break
		}

		if s.alreadyStored(ctx, paper.ID) {
			s.info("paper already in memory, skipping", "id", paper.ID)
			continue
		}

		message, err := paperMessage(paper)
		if err != nil {
			return stored, fmt.Errorf("build memory message for %s: %w", paper.ID, err)
		}

		if err := s.storeEntry(ctx, message); err != nil {
			s.warn("memory write failed", "id", paper.ID, "error", err)
			continue
		}
		stored++
	}

	if s.summaryStored(ctx, cycleID) {
		s.info("digest summary already in memory, skipping", "cycle", cycleID)
	} else {
		summary, err := summaryMessage(cycleID, papers, digestURL)
		if err != nil {
			return stored, fmt.Errorf("build digest summary message: %w", err)
		}
		if err := s.storeEntry(ctx, summary); err != nil {
			s.warn("digest summary write failed", "cycle", cycleID, "error", err)
		} else {
			stored++
		}
	}

	s.info("memory store done", "stored", stored, "of", total)
	return stored, nil
}

func (s *Store) storeEntry(ctx context.Context, message string) error {
	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.runCLI(callCtx, s.binary, "agent", "--message", message)
}

// alreadyStored reports whether a memory entry mentioning the paper id
// exists.
func (s *Store) alreadyStored(ctx context.Context, paperID string) bool {
	// Must match the exact encoding paperMessage produces.
	return s.memoryContains(ctx, fmt.Sprintf(`%%"id":"%s"%%`, paperID))
}

// summaryStored reports whether the digest summary for a cycle was already
// written. A cycle aborted after the store stage re-runs the store on the
// next invocation, so the summary needs the same dedupe as the papers.
func (s *Store) summaryStored(ctx context.Context, cycleID string) bool {
	// Must match the exact encoding summaryMessage produces.
	return s.memoryContains(ctx, fmt.Sprintf(`%%"cycle_id":"%s"%%`, cycleID))
}

// memoryContains runs the narrow duplicate predicate against the brain
// database. A missing or unreadable database means "not stored": the write
// path is authoritative, this is only a best-effort dedupe.
func (s *Store) memoryContains(ctx context.Context, pattern string) bool {
	if s.brainDB == "" {
		return false
	}
	if _, err := os.Stat(s.brainDB); err != nil {
		return false
	}

	db, err := sql.Open("sqlite", s.brainDB)
	if err != nil {
		s.warn("cannot open brain db for duplicate check", "error", err)
		return false
	}
	defer db.Close()

	var one int
	err = db.QueryRowContext(ctx,
		"SELECT 1 FROM memories WHERE content LIKE ? LIMIT 1", pattern).Scan(&one)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		s.warn("duplicate check failed", "pattern", pattern, "error", err)
		return false
	}
	return true
}

type paperPayload struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Title       string `json:"title"`
	Authors     string `json:"authors"`
	Abstract    string `json:"abstract"`
	Submitted   string `json:"submitted"`
	URL         string `json:"url"`
	ImpactScore int    `json:"impact_score"`
	LLMScore    int    `json:"llm_score"`
	LLMReason   string `json:"llm_reason"`
}

func paperMessage(paper domain.Paper) (string, error) {
	authors := paper.Authors
	suffix := ""
	if len(authors) > maxMessageAuthors {
		authors = authors[:maxMessageAuthors]
		suffix = " et al."
	}

	abstract := paper.Abstract
	if runes := []rune(abstract); len(runes) > maxMessageAbstract {
		abstract = string(runes[:maxMessageAbstract])
	}

	payload, err := json.Marshal(paperPayload{
		Type:        "research_paper",
		ID:          paper.ID,
		Title:       paper.Title,
		Authors:     strings.Join(authors, ", ") + suffix,
		Abstract:    abstract,
		Submitted:   paper.Submitted.Format("2006-01-02"),
		URL:         paper.URL,
		ImpactScore: paper.FinalScore,
		LLMScore:    paper.LLMScore,
		LLMReason:   paper.LLMReason,
	})
	if err != nil {
		return "", err
	}
	return "Remember this research paper: " + string(payload), nil
}

type summaryPayload struct {
	Type       string   `json:"type"`
	CycleID    string   `json:"cycle_id"`
	PaperCount int      `json:"paper_count"`
	TopPapers  []string `json:"top_papers"`
	DigestURL  string   `json:"digest_url"`
}

func summaryMessage(cycleID string, papers []domain.Paper, digestURL string) (string, error) {
	titles := make([]string, 0, maxSummaryTitles)
	for i, p := range papers {
		if i >= maxSummaryTitles {
			break
		}
		title := p.Title
		if runes := []rune(title); len(runes) > 80 {
			title = string(runes[:80])
		}
		titles = append(titles, title)
	}

	payload, err := json.Marshal(summaryPayload{
		Type:       "digest_summary",
		CycleID:    cycleID,
		PaperCount: len(papers),
		TopPapers:  titles,
		DigestURL:  digestURL,
	})
	if err != nil {
		return "", err
	}
	return "Remember this research digest: " + string(payload), nil
}

func (s *Store) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Store) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
