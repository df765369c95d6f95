package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/domain"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/ports"
)

const (
	dateLayout = "2006-01-02"
	runsTable  = "runs"
)

// SQLiteLedger is the durable record of completed cycles, one row per
// cycle_id. Dates are stored as ISO strings so lexicographic ordering equals
// chronological ordering.
type SQLiteLedger struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.RunLedger = (*SQLiteLedger)(nil)

// Open creates the database file (and parent directory) if needed and
// migrates the schema.
func Open(path string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	// Single writer: the orchestrator is not designed for concurrent cycles.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	l := &SQLiteLedger{db: db, now: time.Now}
	if err := l.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}

	return l, nil
}

// Close releases the database handle.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func (l *SQLiteLedger) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		cycle_id        TEXT PRIMARY KEY,
		anchor_date     TEXT NOT NULL,
		since_date      TEXT NOT NULL,
		until_date      TEXT NOT NULL,
		papers_fetched  INTEGER,
		papers_selected INTEGER,
		completed_at    TEXT,
		digest_path     TEXT
	);`

	if _, err := l.db.Exec(schema); err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	return nil
}

// CompletedExists reports whether the cycle has a record with completed_at
// set. A row without completed_at is a crash-recovery marker and does not
// count.
func (l *SQLiteLedger) CompletedExists(ctx context.Context, cycleID string) (bool, error) {
	query, args, err := sq.Select("completed_at").
		From(runsTable).
		Where(sq.Eq{"cycle_id": cycleID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var completedAt sql.NullString
	err = l.db.QueryRowContext(ctx, query, args...).Scan(&completedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query run %s: %w", cycleID, err)
	}

	return completedAt.Valid && completedAt.String != "", nil
}

// LastCompletedAnchor returns the anchor of the most recently completed
// cycle. The second return is false when no completed run exists.
func (l *SQLiteLedger) LastCompletedAnchor(ctx context.Context) (time.Time, bool, error) {
	query, args, err := sq.Select("anchor_date").
		From(runsTable).
		Where("completed_at IS NOT NULL").
		OrderBy("anchor_date DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("build query: %w", err)
	}

	var raw string
	err = l.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query last anchor: %w", err)
	}

	anchor, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse anchor %q: %w", raw, err)
	}

	return anchor, true, nil
}

// Commit upserts the run record and stamps completed_at in the same
// statement, so a reader either sees the full completed row or none of it.
func (l *SQLiteLedger) Commit(ctx context.Context, record domain.RunRecord) error {
	completedAt := l.now().UTC().Format(time.RFC3339)

	query, args, err := sq.Insert(runsTable).
		Columns("cycle_id", "anchor_date", "since_date", "until_date",
			"papers_fetched", "papers_selected", "completed_at", "digest_path").
		Values(
			record.CycleID,
			record.AnchorDate.Format(dateLayout),
			record.SinceDate.Format(dateLayout),
			record.UntilDate.Format(dateLayout),
			record.PapersFetched,
			record.PapersSelected,
			completedAt,
			record.DigestPath,
		).
		Suffix(`ON CONFLICT(cycle_id) DO UPDATE SET
			papers_fetched  = excluded.papers_fetched,
			papers_selected = excluded.papers_selected,
			completed_at    = excluded.completed_at,
			digest_path     = excluded.digest_path`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("commit run %s: %w", record.CycleID, err)
	}

	return nil
}
