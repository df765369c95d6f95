package filter

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/config"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/domain"
)

// researcher is a precomputed Layer 2 lookup entry.
type researcher struct {
	nameLower string
	weight    int
}

// Filter applies the deterministic Layer 1 (keyword) and Layer 2 (researcher
// boost) scoring. It is a pure function over the fetched set: no external
// calls, no randomness, stable output order for equal scores.
type Filter struct {
	keywords       []*regexp.Regexp
	researchers    []researcher
	candidateLimit int
	logger         *slog.Logger
}

// New precompiles keyword patterns and resolves researcher boost weights.
func New(cfg config.FilterConfig, logger *slog.Logger) *Filter {
	keywords := make([]*regexp.Regexp, 0, len(cfg.Keywords))
	for _, kw := range cfg.Keywords {
		// Whole-word match: a keyword inside a longer word does not count.
		pattern := `\b` + regexp.QuoteMeta(strings.ToLower(kw)) + `\b`
		keywords = append(keywords, regexp.MustCompile(pattern))
	}

	researchers := make([]researcher, 0, len(cfg.Researchers))
	for _, r := range cfg.Researchers {
		weight := r.Weight
		if weight == 0 {
			weight = cfg.BoostPerMatch
		}
		researchers = append(researchers, researcher{
			nameLower: strings.ToLower(r.Name),
			weight:    weight,
		})
	}

	return &Filter{
		keywords:       keywords,
		researchers:    researchers,
		candidateLimit: cfg.CandidateLimit,
		logger:         logger,
	}
}

// Apply scores every paper, drops the ones with no keyword match, and returns
// the survivors sorted by layer score descending, capped at the candidate
// limit. Ties keep fetch order.
func (f *Filter) Apply(papers []domain.Paper) []domain.Paper {
	scored := make([]domain.Paper, 0, len(papers))

	for _, paper := range papers {
		kwScore := f.keywordScore(paper.Title, paper.Abstract)
		if kwScore == 0 {
			continue
		}

		boost := f.authorBoost(paper.Authors)

		paper.KeywordScore = kwScore
		paper.AuthorBoost = boost
		paper.LayerScore = kwScore + boost
		scored = append(scored, paper)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].LayerScore > scored[j].LayerScore
	})

	result := scored
	if f.candidateLimit > 0 && len(result) > f.candidateLimit {
		result = result[:f.candidateLimit]
	}

	if f.logger != nil {
		f.logger.Info("filter applied",
			"fetched", len(papers),
			"keyword_matched", len(scored),
			"candidates", len(result))
	}

	return result
}

// keywordScore counts how many configured keywords occur in the title or
// abstract as whole, case-insensitive words.
func (f *Filter) keywordScore(title, abstract string) int {
	haystack := strings.ToLower(title + " " + abstract)
	score := 0
	for _, kw := range f.keywords {
		if kw.MatchString(haystack) {
			score++
		}
	}
	return score
}

// authorBoost sums boost weights over the paper's authors. Each author counts
// at most once: the first researcher entry whose name is a case-insensitive
// substring of the author string wins and scanning stops for that author.
func (f *Filter) authorBoost(authors []string) int {
	boost := 0
	for _, author := range authors {
		authorLower := strings.ToLower(author)
		for _, r := range f.researchers {
			if strings.Contains(authorLower, r.nameLower) {
				boost += r.weight
				break
			}
		}
	}
	return boost
}
