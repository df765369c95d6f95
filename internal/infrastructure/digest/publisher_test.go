package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/config"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/domain"
)

func selectedPapers() []domain.Paper {
	return []domain.Paper{
		{
			ID:         "2502.00001",
			Title:      "Top Paper",
			Abstract:   strings.Repeat("a", 600),
			Authors:    []string{"A", "B", "C", "D"},
			Submitted:  time.Date(2024, time.February, 16, 0, 0, 0, 0, time.UTC),
			URL:        "https://arxiv.org/abs/2502.00001",
			LayerScore: 4,
			LLMScore:   9,
			LLMReason:  "introduces a genuinely new alignment method",
			FinalScore: 13,
		},
		{
			ID:         "2502.00002",
			Title:      "Runner Up",
			Abstract:   "short abstract",
			Authors:    []string{"E"},
			Submitted:  time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC),
			URL:        "https://arxiv.org/abs/2502.00002",
			LayerScore: 2,
			LLMScore:   6,
			LLMReason:  "incremental but careful",
			FinalScore: 8,
		},
	}
}

func newTestPublisher(t *testing.T, pushFails bool) (*Publisher, string, *[][]string) {
	t.Helper()

	repoDir := t.TempDir()
	p := NewPublisher(config.DigestConfig{
		RepoDir:    repoDir,
		DigestsDir: "digests",
		PagesBase:  "https://dhruvq.github.io/Apollo-AI-Research-Analyst",
	}, nil)

	var calls [][]string
	p.runGit = func(ctx context.Context, dir string, args ...string) (string, error) {
		calls = append(calls, args)
		if pushFails && args[0] == "push" {
			return "", fmt.Errorf("remote rejected")
		}
		return "", nil
	}
	p.now = func() time.Time {
		return time.Date(2024, time.February, 20, 10, 0, 0, 0, time.UTC)
	}
	return p, repoDir, &calls
}

func TestPublishWritesArtifactsAndPushes(t *testing.T) {
	t.Parallel()

	p, repoDir, calls := newTestPublisher(t, false)

	since := time.Date(2024, time.January, 16, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, time.February, 20, 0, 0, 0, 0, time.UTC)

	url, ok := p.Publish(context.Background(), "2024-02-15", selectedPapers(), since, until)
	if !ok {
		t.Fatal("Publish reported failure")
	}
	if url != "https://dhruvq.github.io/Apollo-AI-Research-Analyst/2024-02-15.html" {
		t.Fatalf("unexpected url: %s", url)
	}

	raw, err := os.ReadFile(filepath.Join(repoDir, "digests", "2024-02-15.json"))
	if err != nil {
		t.Fatalf("read json digest: %v", err)
	}
	var decoded jsonDigest
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal json digest: %v", err)
	}
	if decoded.CycleID != "2024-02-15" || decoded.PaperCount != 2 {
		t.Fatalf("unexpected digest header: %+v", decoded)
	}
	if decoded.Papers[0].FinalScore != 13 {
		t.Fatalf("unexpected first paper: %+v", decoded.Papers[0])
	}

	md, err := os.ReadFile(filepath.Join(repoDir, "digests", "2024-02-15.md"))
	if err != nil {
		t.Fatalf("read markdown digest: %v", err)
	}
	text := string(md)
	if !strings.Contains(text, "## 1. Top Paper") {
		t.Fatalf("markdown missing ranked entry:\n%s", text)
	}
	if !strings.Contains(text, "A, B, C et al.") {
		t.Fatalf("markdown author list not truncated:\n%s", text)
	}
	if !strings.Contains(text, "**Impact Score:** 13 (LLM: 9/10)") {
		t.Fatalf("markdown missing scores:\n%s", text)
	}
	if !strings.Contains(text, strings.Repeat("a", 500)+"...") {
		t.Fatalf("abstract not truncated to 500 runes")
	}

	wantGit := []string{"add", "commit", "push"}
	if len(*calls) != 3 {
		t.Fatalf("expected 3 git calls, got %d", len(*calls))
	}
	for i, want := range wantGit {
		if (*calls)[i][0] != want {
			t.Fatalf("git call %d = %s, want %s", i, (*calls)[i][0], want)
		}
	}
}

func TestPublishPushFailureReturnsNotOK(t *testing.T) {
	t.Parallel()

	p, repoDir, _ := newTestPublisher(t, true)

	_, ok := p.Publish(context.Background(), "2024-02-15", selectedPapers(),
		time.Now(), time.Now())
	if ok {
		t.Fatal("expected ok=false on push failure")
	}

	// Artifacts stay on disk for manual recovery.
	if _, err := os.Stat(filepath.Join(repoDir, "digests", "2024-02-15.md")); err != nil {
		t.Fatalf("markdown digest missing after failed push: %v", err)
	}
}

func TestPagesURLFromRemote(t *testing.T) {
	t.Parallel()

	p := NewPublisher(config.DigestConfig{RepoDir: ".", DigestsDir: "digests"}, nil)

	cases := []struct {
		remote string
		want   string
	}{
		{"https://github.com/Dhruvq/Apollo-AI-Research-Analyst.git",
			"https://dhruvq.github.io/Apollo-AI-Research-Analyst/2024-02-15.html"},
		{"git@github.com:Dhruvq/Apollo-AI-Research-Analyst.git",
			"https://dhruvq.github.io/Apollo-AI-Research-Analyst/2024-02-15.html"},
		{"https://gitlab.example.org/x/y.git", "2024-02-15.html"},
	}

	for _, tc := range cases {
		remote := tc.remote
		p.runGit = func(ctx context.Context, dir string, args ...string) (string, error) {
			return remote, nil
		}
		if got := p.PagesURL("2024-02-15"); got != tc.want {
			t.Fatalf("PagesURL(%s) = %s, want %s", tc.remote, got, tc.want)
		}
	}
}
