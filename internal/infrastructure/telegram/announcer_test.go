package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/config"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/domain"
)

func TestAnnounce(t *testing.T) {
	t.Parallel()

	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/bottoken123/sendMessage") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	a := NewAnnouncer(config.TelegramConfig{BotToken: "token123", ChatID: "-100555"})
	a.apiBase = server.URL
	a.client = server.Client()

	papers := []domain.Paper{
		{Title: "Top", LLMReason: "Breaks new ground in alignment"},
		{Title: "Second"},
		{Title: "Third"},
	}
	since := time.Date(2024, time.January, 16, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, time.February, 20, 0, 0, 0, 0, time.UTC)

	if err := a.Announce(context.Background(), "https://pages.example/2024-02-15.html", papers, since, until); err != nil {
		t.Fatalf("Announce: %v", err)
	}

	if got["chat_id"] != "-100555" {
		t.Fatalf("chat_id = %s", got["chat_id"])
	}
	text := got["text"]
	if !strings.Contains(text, "the top paper breaks new ground in alignment.") {
		t.Fatalf("headline not reshaped: %q", text)
	}
	if !strings.Contains(text, "2 other high-impact papers") {
		t.Fatalf("missing paper count: %q", text)
	}
	if !strings.Contains(text, "2024-01-16 to 2024-02-20") {
		t.Fatalf("missing window in text: %q", text)
	}
	if !strings.Contains(text, "https://pages.example/2024-02-15.html") {
		t.Fatalf("missing digest url: %q", text)
	}
}

func TestAnnounceMisconfigured(t *testing.T) {
	t.Parallel()

	a := NewAnnouncer(config.TelegramConfig{})
	err := a.Announce(context.Background(), "url", []domain.Paper{{Title: "x"}}, time.Now(), time.Now())
	if err == nil {
		t.Fatal("expected error without token and chat id")
	}
}

func TestAnnounceErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	a := NewAnnouncer(config.TelegramConfig{BotToken: "t", ChatID: "c"})
	a.apiBase = server.URL
	a.client = server.Client()

	err := a.Announce(context.Background(), "url", []domain.Paper{{Title: "x"}}, time.Now(), time.Now())
	if err == nil {
		t.Fatal("expected error on 400")
	}
}

func TestFlowHeadline(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Already ends with period.": "already ends with period.",
		"Needs a period":            "needs a period.",
		"":                          "",
	}
	for in, want := range cases {
		if got := flowHeadline(in); got != want {
			t.Fatalf("flowHeadline(%q) = %q, want %q", in, got, want)
		}
	}
}
