package summary

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/sendlr/sendlr/internal/news"
)

// FallbackSummarizer renders the newsletter body deterministically without
// any model call: one heading per category present in the input, followed
// by a short list of links. It is the authoritative rendering the model
// path merely enhances.
type FallbackSummarizer struct {
	// MaxPerCategory caps the list items emitted per category.
	MaxPerCategory int
}

// NewFallbackSummarizer returns the deterministic strategy with the
// standard three-item cap.
func NewFallbackSummarizer() *FallbackSummarizer {
	return &FallbackSummarizer{MaxPerCategory: 3}
}

// Summarize never fails and never returns empty output for a non-empty
// article list.
func (f *FallbackSummarizer) Summarize(_ context.Context, articles []news.Article, categories []news.Category) (string, error) {
	grouped := make(map[news.Category][]news.Article, len(categories))
	var order []news.Category
	for _, a := range articles {
		if _, seen := grouped[a.Category]; !seen {
			order = append(order, a.Category)
		}
		grouped[a.Category] = append(grouped[a.Category], a)
	}

	// Requested-category order wins for categories that have articles;
	// stray categories (fallback content only) follow in input order.
	var ordered []news.Category
	seen := make(map[news.Category]bool)
	for _, c := range categories {
		if len(grouped[c]) > 0 && !seen[c] {
			ordered = append(ordered, c)
			seen[c] = true
		}
	}
	for _, c := range order {
		if !seen[c] {
			ordered = append(ordered, c)
			seen[c] = true
		}
	}

	var b strings.Builder
	for _, category := range ordered {
		fmt.Fprintf(&b, "<h3>%s</h3>\n<ul>\n", html.EscapeString(string(category)))
		for i, a := range grouped[category] {
			if i == f.MaxPerCategory {
				break
			}
			fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>\n", html.EscapeString(a.URL), html.EscapeString(a.Title))
		}
		b.WriteString("</ul>\n")
	}
	return b.String(), nil
}
