package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "APOLLO_CONFIG"
	ledgerPathEnv     = "APOLLO_DB_PATH"
	googleAPIKeyEnv   = "GOOGLE_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Arxiv    ArxivConfig    `yaml:"arxiv"`
	Filter   FilterConfig   `yaml:"filter"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Memory   MemoryConfig   `yaml:"memory"`
	Digest   DigestConfig   `yaml:"digest"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ScheduleConfig defines the cycle anchors and the local calendar.
type ScheduleConfig struct {
	AnchorDays         []int          `yaml:"anchorDays"`
	Timezone           string         `yaml:"timezone"`
	CheckIntervalHours int            `yaml:"checkIntervalHours"`
	location           *time.Location `yaml:"-"`
}

// Location resolves the schedule timezone string to a time.Location.
func (s ScheduleConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// CheckInterval is how often the daemon re-evaluates the cycle guard.
func (s ScheduleConfig) CheckInterval() time.Duration {
	hours := s.CheckIntervalHours
	if hours <= 0 {
		hours = 12
	}
	return time.Duration(hours) * time.Hour
}

// LedgerConfig describes the run-ledger SQLite database.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// ArxivConfig describes the arXiv API query.
type ArxivConfig struct {
	BaseURL          string `yaml:"baseUrl"`
	Category         string `yaml:"category"`
	PageSize         int    `yaml:"pageSize"`
	MaxResults       int    `yaml:"maxResults"`
	PageDelaySeconds int    `yaml:"pageDelaySeconds"`
}

// PageDelay is the politeness pause between paginated API requests.
func (a ArxivConfig) PageDelay() time.Duration {
	return time.Duration(a.PageDelaySeconds) * time.Second
}

// ResearcherConfig is one high-impact researcher entry for Layer 2 boosting.
// Weight 0 falls back to FilterConfig.BoostPerMatch.
type ResearcherConfig struct {
	Name   string `yaml:"name"`
	Weight int    `yaml:"weight"`
}

// FilterConfig tunes the deterministic Layer 1+2 filter.
type FilterConfig struct {
	Keywords       []string           `yaml:"keywords"`
	Researchers    []ResearcherConfig `yaml:"researchers"`
	BoostPerMatch  int                `yaml:"boostPerMatch"`
	CandidateLimit int                `yaml:"candidateLimit"`
}

// ScoringConfig tunes the LLM oracle layer.
type ScoringConfig struct {
	Prompt              string `yaml:"prompt"`
	TargetCount         int    `yaml:"targetCount"`
	RetryBackoffSeconds int    `yaml:"retryBackoffSeconds"`
	PacingSeconds       int    `yaml:"pacingSeconds"`
}

// RetryBackoff is the pause before the single retry of a failed oracle call.
func (s ScoringConfig) RetryBackoff() time.Duration {
	return time.Duration(s.RetryBackoffSeconds) * time.Second
}

// Pacing is the minimum spacing between oracle calls.
func (s ScoringConfig) Pacing() time.Duration {
	return time.Duration(s.PacingSeconds) * time.Second
}

// GeminiConfig defines how to contact the Gemini API.
type GeminiConfig struct {
	Endpoint        string `yaml:"endpoint"`
	Model           string `yaml:"model"`
	APIKey          string `yaml:"apiKey"`
	MaxOutputTokens int    `yaml:"maxOutputTokens"`
}

// MemoryConfig wires the ZeroClaw memory CLI.
type MemoryConfig struct {
	Binary         string `yaml:"binary"`
	BrainDB        string `yaml:"brainDb"`
	EntryLimit     int    `yaml:"entryLimit"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// Timeout bounds a single CLI invocation.
func (m MemoryConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// DigestConfig controls digest artifact output and publication.
type DigestConfig struct {
	RepoDir    string `yaml:"repoDir"`
	DigestsDir string `yaml:"digestsDir"`
	PagesBase  string `yaml:"pagesBase"`
}

// TelegramConfig wires all data required to send the announcement.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(ledgerPathEnv); v != "" {
		c.Ledger.Path = v
	}

	if v := os.Getenv(googleAPIKeyEnv); v != "" {
		c.Gemini.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Schedule.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Schedule.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if len(override.Schedule.AnchorDays) > 0 {
		base.Schedule.AnchorDays = override.Schedule.AnchorDays
	}
	if override.Schedule.Timezone != "" {
		base.Schedule.Timezone = override.Schedule.Timezone
	}
	if override.Schedule.CheckIntervalHours > 0 {
		base.Schedule.CheckIntervalHours = override.Schedule.CheckIntervalHours
	}

	if override.Ledger.Path != "" {
		base.Ledger = override.Ledger
	}

	if override.Arxiv.BaseURL != "" {
		base.Arxiv.BaseURL = override.Arxiv.BaseURL
	}
	if override.Arxiv.Category != "" {
		base.Arxiv.Category = override.Arxiv.Category
	}
	if override.Arxiv.PageSize > 0 {
		base.Arxiv.PageSize = override.Arxiv.PageSize
	}
	if override.Arxiv.MaxResults > 0 {
		base.Arxiv.MaxResults = override.Arxiv.MaxResults
	}
	if override.Arxiv.PageDelaySeconds > 0 {
		base.Arxiv.PageDelaySeconds = override.Arxiv.PageDelaySeconds
	}

	if len(override.Filter.Keywords) > 0 {
		base.Filter.Keywords = override.Filter.Keywords
	}
	if len(override.Filter.Researchers) > 0 {
		base.Filter.Researchers = override.Filter.Researchers
	}
	if override.Filter.BoostPerMatch > 0 {
		base.Filter.BoostPerMatch = override.Filter.BoostPerMatch
	}
	if override.Filter.CandidateLimit > 0 {
		base.Filter.CandidateLimit = override.Filter.CandidateLimit
	}

	if override.Scoring.Prompt != "" {
		base.Scoring.Prompt = override.Scoring.Prompt
	}
	if override.Scoring.TargetCount > 0 {
		base.Scoring.TargetCount = override.Scoring.TargetCount
	}
	if override.Scoring.RetryBackoffSeconds > 0 {
		base.Scoring.RetryBackoffSeconds = override.Scoring.RetryBackoffSeconds
	}
	if override.Scoring.PacingSeconds > 0 {
		base.Scoring.PacingSeconds = override.Scoring.PacingSeconds
	}

	if override.Gemini.Endpoint != "" {
		base.Gemini.Endpoint = override.Gemini.Endpoint
	}
	if override.Gemini.Model != "" {
		base.Gemini.Model = override.Gemini.Model
	}
	if override.Gemini.APIKey != "" {
		base.Gemini.APIKey = override.Gemini.APIKey
	}
	if override.Gemini.MaxOutputTokens > 0 {
		base.Gemini.MaxOutputTokens = override.Gemini.MaxOutputTokens
	}

	if override.Memory.Binary != "" {
		base.Memory.Binary = override.Memory.Binary
	}
	if override.Memory.BrainDB != "" {
		base.Memory.BrainDB = override.Memory.BrainDB
	}
	if override.Memory.EntryLimit > 0 {
		base.Memory.EntryLimit = override.Memory.EntryLimit
	}
	if override.Memory.TimeoutSeconds > 0 {
		base.Memory.TimeoutSeconds = override.Memory.TimeoutSeconds
	}

	if override.Digest.RepoDir != "" {
		base.Digest.RepoDir = override.Digest.RepoDir
	}
	if override.Digest.DigestsDir != "" {
		base.Digest.DigestsDir = override.Digest.DigestsDir
	}
	if override.Digest.PagesBase != "" {
		base.Digest.PagesBase = override.Digest.PagesBase
	}

	if override.Telegram.BotToken != "" {
		base.Telegram.BotToken = override.Telegram.BotToken
	}
	if override.Telegram.ChatID != "" {
		base.Telegram.ChatID = override.Telegram.ChatID
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Schedule: ScheduleConfig{
			AnchorDays:         []int{1, 15},
			Timezone:           defaultTimezone,
			CheckIntervalHours: 12,
			location:           tz,
		},
		Ledger: LedgerConfig{Path: "data/pipeline.db"},
		Arxiv: ArxivConfig{
			BaseURL:          "https://export.arxiv.org/api/query",
			Category:         "cs.AI",
			PageSize:         100,
			MaxResults:       2000,
			PageDelaySeconds: 3,
		},
		Filter: FilterConfig{
			Keywords: []string{
				"multi-agent",
				"diffusion",
				"alignment",
				"llm",
				"rlhf",
				"reasoning",
				"rag",
				"transformer",
				"memory",
				"retrieval",
			},
			Researchers:    defaultResearchers(),
			BoostPerMatch:  3,
			CandidateLimit: 150,
		},
		Scoring: ScoringConfig{
			Prompt: "Rate this paper from 1-10 for potential research impact based on novelty, " +
				"scope, methodological rigor, and broader implications. " +
				`Return JSON only, no other text: {"score": <int 1-10>, "reason": "<one sentence>"}`,
			TargetCount:         25,
			RetryBackoffSeconds: 10,
			PacingSeconds:       2,
		},
		Gemini: GeminiConfig{
			Endpoint:        "https://generativelanguage.googleapis.com/v1beta",
			Model:           "gemma-3-27b-it",
			APIKey:          "",
			MaxOutputTokens: 200,
		},
		Memory: MemoryConfig{
			Binary:         "zeroclaw",
			BrainDB:        "",
			EntryLimit:     100,
			TimeoutSeconds: 120,
		},
		Digest: DigestConfig{
			RepoDir:    ".",
			DigestsDir: "digests",
			PagesBase:  "",
		},
		Telegram: TelegramConfig{BotToken: "", ChatID: ""},
	}
}
