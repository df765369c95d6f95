package zeroclaw

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/config"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/domain"
)

func testPaper(id string) domain.Paper {
	return domain.Paper{
		ID:         id,
		Title:      "Paper " + id,
		Abstract:   "abstract for " + id,
		Authors:    []string{"Alice", "Bob", "Carol", "Dave", "Eve"},
		Submitted:  time.Date(2024, time.February, 16, 0, 0, 0, 0, time.UTC),
		URL:        "https://arxiv.org/abs/" + id,
		LLMScore:   7,
		LLMReason:  "solid",
		FinalScore: 10,
	}
}

func newTestStore(t *testing.T, brainDB string) (*Store, *[]string) {
	t.Helper()

	s := NewStore(config.MemoryConfig{
		Binary:         "zeroclaw",
		BrainDB:        brainDB,
		EntryLimit:     100,
		TimeoutSeconds: 5,
	}, nil)

	var messages []string
	s.runCLI = func(ctx context.Context, binary string, args ...string) error {
		if binary != "zeroclaw" || len(args) != 3 || args[0] != "agent" || args[1] != "--message" {
			return fmt.Errorf("unexpected command: %s %v", binary, args)
		}
		messages = append(messages, args[2])
		return nil
	}
	return s, &messages
}

func seedBrainDB(t *testing.T, storedIDs ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "brain.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open brain db: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE memories (content TEXT)`); err != nil {
		t.Fatalf("create memories: %v", err)
	}
	for _, id := range storedIDs {
		content := fmt.Sprintf(`Remember this research paper: {"type":"research_paper","id":"%s"}`, id)
		if _, err := db.Exec(`INSERT INTO memories (content) VALUES (?)`, content); err != nil {
			t.Fatalf("seed memory: %v", err)
		}
	}
	return path
}

func TestStorePapersWritesEntriesAndSummary(t *testing.T) {
	t.Parallel()

	s, messages := newTestStore(t, "")

	papers := []domain.Paper{testPaper("2502.00001"), testPaper("2502.00002")}
	stored, err := s.StorePapers(context.Background(), papers, "2024-02-15", "https://pages.example/2024-02-15.html")
	if err != nil {
		t.Fatalf("StorePapers: %v", err)
	}

	if stored != 3 {
		t.Fatalf("stored = %d, want 3 (2 papers + summary)", stored)
	}
	if len(*messages) != 3 {
		t.Fatalf("expected 3 CLI calls, got %d", len(*messages))
	}

	first := (*messages)[0]
	if !strings.HasPrefix(first, "Remember this research paper: ") {
		t.Fatalf("unexpected paper message: %q", first)
	}
	if !strings.Contains(first, `"id":"2502.00001"`) {
		t.Fatalf("paper id missing from message: %q", first)
	}
	if !strings.Contains(first, "et al.") {
		t.Fatalf("author list not truncated: %q", first)
	}

	last := (*messages)[2]
	if !strings.HasPrefix(last, "Remember this research digest: ") {
		t.Fatalf("unexpected summary message: %q", last)
	}
	if !strings.Contains(last, `"cycle_id":"2024-02-15"`) {
		t.Fatalf("cycle id missing from summary: %q", last)
	}
}

func TestStorePapersSkipsDuplicates(t *testing.T) {
	t.Parallel()

	brainDB := seedBrainDB(t, "2502.00001")
	s, messages := newTestStore(t, brainDB)

	papers := []domain.Paper{testPaper("2502.00001"), testPaper("2502.00002")}
	stored, err := s.StorePapers(context.Background(), papers, "2024-02-15", "url")
	if err != nil {
		t.Fatalf("StorePapers: %v", err)
	}

	// One new paper plus the summary; the seeded paper is skipped.
	if stored != 2 {
		t.Fatalf("stored = %d, want 2", stored)
	}
	for _, msg := range *messages {
		if strings.Contains(msg, `"id":"2502.00001"`) {
			t.Fatalf("duplicate paper was stored: %q", msg)
		}
	}
}

func seedSummary(t *testing.T, path, cycleID string) {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open brain db: %v", err)
	}
	defer db.Close()

	content := fmt.Sprintf(`Remember this research digest: {"type":"digest_summary","cycle_id":"%s"}`, cycleID)
	if _, err := db.Exec(`INSERT INTO memories (content) VALUES (?)`, content); err != nil {
		t.Fatalf("seed summary: %v", err)
	}
}

func TestStorePapersSkipsDuplicateSummaryOnRerun(t *testing.T) {
	t.Parallel()

	// A cycle that aborts after the store stage redoes the store next time;
	// neither the papers nor the summary may be written twice.
	brainDB := seedBrainDB(t, "2502.00001")
	seedSummary(t, brainDB, "2024-02-15")
	s, messages := newTestStore(t, brainDB)

	papers := []domain.Paper{testPaper("2502.00001"), testPaper("2502.00002")}
	stored, err := s.StorePapers(context.Background(), papers, "2024-02-15", "url")
	if err != nil {
		t.Fatalf("StorePapers: %v", err)
	}

	// Only the unseen paper is written.
	if stored != 1 {
		t.Fatalf("stored = %d, want 1", stored)
	}
	for _, msg := range *messages {
		if strings.HasPrefix(msg, "Remember this research digest: ") {
			t.Fatalf("duplicate summary was stored: %q", msg)
		}
	}
}

func TestStorePapersCLIFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, "")
	calls := 0
	s.runCLI = func(ctx context.Context, binary string, args ...string) error {
		calls++
		if calls == 1 {
			return fmt.Errorf("zeroclaw exited 1")
		}
		return nil
	}

	papers := []domain.Paper{testPaper("a"), testPaper("b")}
	stored, err := s.StorePapers(context.Background(), papers, "2024-02-15", "url")
	if err != nil {
		t.Fatalf("StorePapers: %v", err)
	}
	// First paper failed, second paper and summary succeeded.
	if stored != 2 {
		t.Fatalf("stored = %d, want 2", stored)
	}
}

func TestStorePapersHonorsEntryLimit(t *testing.T) {
	t.Parallel()

	s, messages := newTestStore(t, "")
	s.entryLimit = 1

	papers := []domain.Paper{testPaper("a"), testPaper("b"), testPaper("c")}
	stored, err := s.StorePapers(context.Background(), papers, "2024-02-15", "url")
	if err != nil {
		t.Fatalf("StorePapers: %v", err)
	}
	// One paper then the cap, plus the summary entry.
	if stored != 2 {
		t.Fatalf("stored = %d, want 2", stored)
	}
	if len(*messages) != 2 {
		t.Fatalf("expected 2 CLI calls, got %d", len(*messages))
	}
}

func TestAlreadyStoredMissingDB(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, filepath.Join(t.TempDir(), "absent.db"))
	if s.alreadyStored(context.Background(), "anything") {
		t.Fatal("missing brain db must report not-stored")
	}
}
