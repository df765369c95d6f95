package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/config"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/domain"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/ports"
)

// Publisher writes the cycle's digest artifacts (JSON + Markdown), commits
// them, and pushes to the hosting repository. A failed push leaves the files
// on disk and reports ok=false so the caller withholds the ledger commit.
type Publisher struct {
	repoDir    string
	digestsDir string
	pagesBase  string
	logger     *slog.Logger
	now        func() time.Time

	// runGit is swappable in tests; default shells out to git.
	runGit func(ctx context.Context, dir string, args ...string) (string, error)
}

var _ ports.DigestPublisher = (*Publisher)(nil)

// NewPublisher wires output directories and the git working copy.
func NewPublisher(cfg config.DigestConfig, logger *slog.Logger) *Publisher {
	return &Publisher{
		repoDir:    cfg.RepoDir,
		digestsDir: cfg.DigestsDir,
		pagesBase:  cfg.PagesBase,
		logger:     logger,
		now:        time.Now,
		runGit:     gitCommand,
	}
}

func gitCommand(ctx context.Context, dir string, args ...string) (string, error) {
	full := append([]string{"-C", dir}, args...)
	out, err := exec.CommandContext(ctx, "git", full...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w (%s)", args[0], err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// PagesURL derives the published HTML location for a cycle. Explicit
// configuration wins; otherwise the origin remote is translated into its
// GitHub Pages form.
func (p *Publisher) PagesURL(cycleID string) string {
	if p.pagesBase != "" {
		return strings.TrimSuffix(p.pagesBase, "/") + "/" + cycleID + ".html"
	}

	remote, err := p.runGit(context.Background(), p.repoDir, "remote", "get-url", "origin")
	if err != nil {
		p.warn("cannot read origin remote", "error", err)
		return cycleID + ".html"
	}

	var path string
	switch {
	case strings.HasPrefix(remote, "https://github.com/"):
		path = strings.TrimPrefix(remote, "https://github.com/")
	case strings.HasPrefix(remote, "git@github.com:"):
		path = strings.TrimPrefix(remote, "git@github.com:")
	default:
		return cycleID + ".html"
	}
	path = strings.TrimSuffix(path, ".git")

	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 {
		return cycleID + ".html"
	}

	return fmt.Sprintf("https://%s.github.io/%s/%s.html", strings.ToLower(parts[0]), parts[1], cycleID)
}

// Publish writes the JSON and Markdown digests, pushes them, and returns the
// pages URL for the cycle together with the push outcome.
func (p *Publisher) Publish(ctx context.Context, cycleID string, papers []domain.Paper, since, until time.Time) (string, bool) {
	url := p.PagesURL(cycleID)

	dir := filepath.Join(p.repoDir, p.digestsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		p.warn("cannot create digests directory", "error", err)
		return url, false
	}

	if err := p.writeJSON(filepath.Join(dir, cycleID+".json"), cycleID, papers); err != nil {
		p.warn("cannot write json digest", "error", err)
		return url, false
	}
	if err := p.writeMarkdown(filepath.Join(dir, cycleID+".md"), cycleID, papers, since, until); err != nil {
		p.warn("cannot write markdown digest", "error", err)
		return url, false
	}

	if err := p.push(ctx, cycleID); err != nil {
		p.warn("digest push failed, files written locally", "cycle", cycleID, "error", err)
		return url, false
	}

	p.info("digest published", "cycle", cycleID, "url", url)
	return url, true
}

type jsonDigest struct {
	CycleID    string      `json:"cycle_id"`
	Generated  string      `json:"generated"`
	PaperCount int         `json:"paper_count"`
	Papers     []jsonPaper `json:"papers"`
}

type jsonPaper struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Authors    []string `json:"authors"`
	Submitted  string   `json:"submitted"`
	URL        string   `json:"url"`
	LayerScore int      `json:"layer_score"`
	LLMScore   int      `json:"llm_score"`
	LLMReason  string   `json:"llm_reason"`
	FinalScore int      `json:"final_score"`
}

func (p *Publisher) writeJSON(path, cycleID string, papers []domain.Paper) error {
	out := jsonDigest{
		CycleID:    cycleID,
		Generated:  p.now().UTC().Format("2006-01-02"),
		PaperCount: len(papers),
		Papers:     make([]jsonPaper, 0, len(papers)),
	}
	for _, paper := range papers {
		out.Papers = append(out.Papers, jsonPaper{
			ID:         paper.ID,
			Title:      paper.Title,
			Authors:    paper.Authors,
			Submitted:  paper.Submitted.Format("2006-01-02"),
			URL:        paper.URL,
			LayerScore: paper.LayerScore,
			LLMScore:   paper.LLMScore,
			LLMReason:  paper.LLMReason,
			FinalScore: paper.FinalScore,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (p *Publisher) writeMarkdown(path, cycleID string, papers []domain.Paper, since, until time.Time) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Apollo AI Research Digest — %s\n\n", cycleID)
	fmt.Fprintf(&b, "*%d most impactful cs.AI papers, %s to %s*\n\n",
		len(papers), since.Format("2006-01-02"), until.Format("2006-01-02"))

	for i, paper := range papers {
		authors := paper.Authors
		suffix := ""
		if len(authors) > 3 {
			authors = authors[:3]
			suffix = " et al."
		}

		abstract := paper.Abstract
		ellipsis := ""
		if runes := []rune(abstract); len(runes) > 500 {
			abstract = string(runes[:500])
			ellipsis = "..."
		}

		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, paper.Title)
		fmt.Fprintf(&b, "**Authors:** %s%s  \n", strings.Join(authors, ", "), suffix)
		fmt.Fprintf(&b, "**Submitted:** %s  \n", paper.Submitted.Format("2006-01-02"))
		fmt.Fprintf(&b, "**Impact Score:** %d (LLM: %d/10)  \n", paper.FinalScore, paper.LLMScore)
		fmt.Fprintf(&b, "**arXiv:** [%s](%s)\n\n", paper.URL, paper.URL)
		fmt.Fprintf(&b, "> %s\n\n", paper.LLMReason)
		fmt.Fprintf(&b, "%s%s\n\n---\n\n", abstract, ellipsis)
	}

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func (p *Publisher) push(ctx context.Context, cycleID string) error {
	if _, err := p.runGit(ctx, p.repoDir, "add", p.digestsDir); err != nil {
		return err
	}
	if _, err := p.runGit(ctx, p.repoDir, "commit", "-m", "Digest: "+cycleID); err != nil {
		return err
	}
	if _, err := p.runGit(ctx, p.repoDir, "push"); err != nil {
		return err
	}
	return nil
}

func (p *Publisher) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Publisher) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
