package summary

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/sendlr/sendlr/internal/news"
)

// Summarizer turns a fetched article list into newsletter body markup.
type Summarizer interface {
	Summarize(ctx context.Context, articles []news.Article, categories []news.Category) (string, error)
}

// ErrExhausted signals that a strategy cannot produce output and the next
// one in the chain should be tried. It is not a failure of the run.
var ErrExhausted = errors.New("summarizer exhausted")

// Service evaluates an ordered list of summarization strategies. The first
// strategy to return content wins; a strategy that errors or signals
// exhaustion hands over to the next. The final strategy is expected to be
// deterministic and infallible.
type Service struct {
	strategies []Summarizer
	logger     *log.Logger
}

// NewService builds a Service from strategies evaluated in order.
func NewService(logger *log.Logger, strategies ...Summarizer) *Service {
	if logger == nil {
		logger = log.New(log.Writer(), "[SUMMARY] ", log.LstdFlags)
	}
	return &Service{strategies: strategies, logger: logger}
}

// Summarize produces the newsletter body. An empty article list short
// circuits to a fixed empty-state block without touching any strategy.
func (s *Service) Summarize(ctx context.Context, articles []news.Article, categories []news.Category) (string, error) {
	if len(articles) == 0 {
		return emptyStateMarkup(categories), nil
	}
	for _, strategy := range s.strategies {
		content, err := strategy.Summarize(ctx, articles, categories)
		if err != nil {
			if !errors.Is(err, ErrExhausted) {
				s.logger.Printf("summarizer strategy failed: %v", err)
			}
			continue
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		return content, nil
	}
	return "", fmt.Errorf("all summarizer strategies exhausted")
}

func emptyStateMarkup(categories []news.Category) string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	var b strings.Builder
	b.WriteString("<h2>Newsletter Summary</h2>\n")
	b.WriteString(fmt.Sprintf("<p>No stories were found for the selected categories: %s</p>\n", strings.Join(names, ", ")))
	b.WriteString("<p>This might be due to:</p>\n<ul>\n")
	b.WriteString("<li>API rate limits or quota exceeded</li>\n")
	b.WriteString("<li>No recent articles in the selected categories</li>\n")
	b.WriteString("<li>Network connectivity issues</li>\n")
	b.WriteString("</ul>\n")
	return b.String()
}
