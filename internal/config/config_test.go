package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APOLLO_CONFIG", "")

	cfg := Load()

	if got := cfg.Schedule.AnchorDays; len(got) != 2 || got[0] != 1 || got[1] != 15 {
		t.Fatalf("default anchor days = %v, want [1 15]", got)
	}
	if cfg.Arxiv.Category != "cs.AI" {
		t.Fatalf("default category = %q", cfg.Arxiv.Category)
	}
	if cfg.Scoring.TargetCount != 25 {
		t.Fatalf("default target count = %d", cfg.Scoring.TargetCount)
	}
	if cfg.Schedule.CheckInterval() != 12*time.Hour {
		t.Fatalf("default check interval = %v", cfg.Schedule.CheckInterval())
	}
}

func TestLoadFileMergeKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := "schedule:\n  timezone: Europe/Berlin\nscoring:\n  targetCount: 10\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("APOLLO_CONFIG", path)

	cfg := Load()

	if cfg.Schedule.Timezone != "Europe/Berlin" {
		t.Fatalf("timezone = %q", cfg.Schedule.Timezone)
	}
	if cfg.Schedule.Location().String() != "Europe/Berlin" {
		t.Fatalf("location = %v", cfg.Schedule.Location())
	}
	if cfg.Scoring.TargetCount != 10 {
		t.Fatalf("target count = %d", cfg.Scoring.TargetCount)
	}
	// Untouched sections keep their defaults.
	if cfg.Arxiv.PageSize != 100 {
		t.Fatalf("page size = %d", cfg.Arxiv.PageSize)
	}
	if len(cfg.Filter.Keywords) == 0 {
		t.Fatal("default keywords lost after merge")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APOLLO_CONFIG", "")
	t.Setenv("APOLLO_DB_PATH", "/tmp/other.db")
	t.Setenv("GOOGLE_API_KEY", "k-123")
	t.Setenv("TELEGRAM_BOT_TOKEN", "bot-t")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg := Load()

	if cfg.Ledger.Path != "/tmp/other.db" {
		t.Fatalf("ledger path = %q", cfg.Ledger.Path)
	}
	if cfg.Gemini.APIKey != "k-123" {
		t.Fatalf("api key = %q", cfg.Gemini.APIKey)
	}
	if cfg.Telegram.BotToken != "bot-t" || cfg.Telegram.ChatID != "42" {
		t.Fatalf("telegram = %+v", cfg.Telegram)
	}
}

func TestLoadBadTimezoneFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("schedule:\n  timezone: Mars/Olympus\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("APOLLO_CONFIG", path)

	cfg := Load()

	if cfg.Schedule.Location().String() != "UTC" {
		t.Fatalf("location = %v, want UTC fallback", cfg.Schedule.Location())
	}
}
