package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/config"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/domain"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// Announcer posts the digest announcement to a Telegram chat via bot API.
type Announcer struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

var _ ports.Announcer = (*Announcer)(nil)

// NewAnnouncer registers bot token and chat identifier.
func NewAnnouncer(cfg config.TelegramConfig) *Announcer {
	return &Announcer{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Announce sends the post-commit notification quoting the top paper.
func (a *Announcer) Announce(ctx context.Context, digestURL string, papers []domain.Paper, since, until time.Time) error {
	if a.botToken == "" || a.chatID == "" {
		return fmt.Errorf("telegram announcer misconfigured")
	}
	if len(papers) == 0 {
		return fmt.Errorf("nothing to announce")
	}

	message := buildMessage(digestURL, papers, since, until)

	payload, err := json.Marshal(map[string]string{
		"chat_id": a.chatID,
		"text":    message,
	})
	if err != nil {
		return fmt.Errorf("marshal announcement: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", a.apiBase, a.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send announcement: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// buildMessage leads with the top paper's rationale, reshaped so it reads as
// a sentence after "the top paper".
func buildMessage(digestURL string, papers []domain.Paper, since, until time.Time) string {
	top := papers[0]
	headline := top.LLMReason
	if headline == "" {
		headline = top.Title
	}
	headline = flowHeadline(headline)

	return fmt.Sprintf(
		"New Apollo AI Research Digest is live!\n"+
			"Papers: %s to %s\n\n"+
			"In the past 2 weeks, the top paper %s "+
			"Explore this and %d other high-impact papers in this digest.\n\n"+
			"Read more: %s",
		since.Format("2006-01-02"), until.Format("2006-01-02"),
		headline, len(papers)-1, digestURL)
}

func flowHeadline(headline string) string {
	runes := []rune(headline)
	if len(runes) > 0 {
		runes[0] = unicode.ToLower(runes[0])
	}
	out := string(runes)
	if out != "" && !strings.HasSuffix(out, ".") {
		out += "."
	}
	return out
}
