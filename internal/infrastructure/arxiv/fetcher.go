package arxiv

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/config"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/domain"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/ports"
)

const absBaseURL = "https://arxiv.org/abs/"

// Fetcher queries the arXiv Atom API for papers submitted inside a date
// window and maps entries into domain papers.
type Fetcher struct {
	client    *http.Client
	parser    *gofeed.Parser
	baseURL   string
	category  string
	pageSize  int
	maxTotal  int
	pageDelay time.Duration
	logger    *slog.Logger
}

var _ ports.PaperSource = (*Fetcher)(nil)

// NewFetcher wires an HTTP client; pass nil for a default with timeout.
func NewFetcher(cfg config.ArxivConfig, client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	pageSize := cfg.PageSize
	if pageSize < 1 {
		// A non-positive page size would never advance the pagination loop.
		pageSize = 100
	}

	return &Fetcher{
		client:    client,
		parser:    gofeed.NewParser(),
		baseURL:   cfg.BaseURL,
		category:  cfg.Category,
		pageSize:  pageSize,
		maxTotal:  cfg.MaxResults,
		pageDelay: cfg.PageDelay(),
		logger:    logger,
	}
}

// FetchWindow pages through the API query until a short page or the result
// cap, deduplicating by id. since and until are inclusive dates.
func (f *Fetcher) FetchWindow(ctx context.Context, since, until time.Time) ([]domain.Paper, error) {
	query := fmt.Sprintf("cat:%s AND submittedDate:[%s0000 TO %s2359]",
		f.category, since.Format("20060102"), until.Format("20060102"))

	f.debug("querying arxiv", "query", query)

	papers := make([]domain.Paper, 0)
	seen := map[string]struct{}{}

	for start := 0; start < f.maxTotal; start += f.pageSize {
		if start > 0 && f.pageDelay > 0 {
			// Politeness pause between paginated requests.
			timer := time.NewTimer(f.pageDelay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
		}

		feed, err := f.fetchPage(ctx, query, start)
		if err != nil {
			return nil, fmt.Errorf("page at %d: %w", start, err)
		}

		for _, item := range feed.Items {
			paper, ok := toPaper(item)
			if !ok {
				continue
			}
			if _, dup := seen[paper.ID]; dup {
				continue
			}
			seen[paper.ID] = struct{}{}
			papers = append(papers, paper)
		}

		if len(feed.Items) < f.pageSize {
			break
		}
	}

	f.debug("arxiv fetch done", "papers", len(papers),
		"since", since.Format("2006-01-02"), "until", until.Format("2006-01-02"))
	return papers, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, query string, start int) (*gofeed.Feed, error) {
	values := url.Values{}
	values.Set("search_query", query)
	values.Set("start", strconv.Itoa(start))
	values.Set("max_results", strconv.Itoa(f.pageSize))
	values.Set("sortBy", "submittedDate")
	values.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "apollo-research-analyst/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	feed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	return feed, nil
}

// toPaper maps one Atom entry. Entry ids look like
// "http://arxiv.org/abs/2502.12345v1".
func toPaper(item *gofeed.Item) (domain.Paper, bool) {
	rawID := item.GUID
	if rawID == "" {
		rawID = item.Link
	}
	idx := strings.Index(rawID, "/abs/")
	if idx == -1 {
		return domain.Paper{}, false
	}
	id := rawID[idx+len("/abs/"):]

	submitted := time.Time{}
	if item.PublishedParsed != nil {
		submitted = item.PublishedParsed.UTC()
	}

	authors := make([]string, 0, len(item.Authors))
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			authors = append(authors, a.Name)
		}
	}

	return domain.Paper{
		ID:        id,
		Title:     strings.Join(strings.Fields(item.Title), " "),
		Abstract:  strings.TrimSpace(item.Description),
		Authors:   authors,
		Submitted: submitted,
		URL:       absBaseURL + id,
	}, true
}

func (f *Fetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
