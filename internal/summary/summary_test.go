package summary

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sendlr/sendlr/internal/news"
)

type stubStrategy struct {
	content string
	err     error
	calls   int
}

func (s *stubStrategy) Summarize(ctx context.Context, articles []news.Article, categories []news.Category) (string, error) {
	s.calls++
	return s.content, s.err
}

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

func sampleArticles() []news.Article {
	return []news.Article{
		{Title: "Tech story one", URL: "https://t.example/1", Description: "d", Category: news.CategoryTechnology},
		{Title: "Tech story two", URL: "https://t.example/2", Description: "d", Category: news.CategoryTechnology},
		{Title: "Tech story three", URL: "https://t.example/3", Description: "d", Category: news.CategoryTechnology},
		{Title: "Tech story four", URL: "https://t.example/4", Description: "d", Category: news.CategoryTechnology},
		{Title: "Business story", URL: "https://b.example/1", Description: "d", Category: news.CategoryBusiness},
	}
}

func TestServiceEmptyInputSkipsStrategies(t *testing.T) {
	strategy := &stubStrategy{content: "should not be used"}
	svc := NewService(discard(), strategy)

	out, err := svc.Summarize(context.Background(), nil, []news.Category{news.CategoryTechnology, news.CategoryScience})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if strategy.calls != 0 {
		t.Fatalf("strategy invoked %d times for empty input", strategy.calls)
	}
	if !strings.Contains(out, "No stories were found") {
		t.Fatalf("expected empty-state block, got %q", out)
	}
	if !strings.Contains(out, "technology, science") {
		t.Fatalf("empty-state should list requested categories: %q", out)
	}
}

func TestServiceFallsThroughOnError(t *testing.T) {
	failing := &stubStrategy{err: errors.New("model down")}
	good := &stubStrategy{content: "<h3>technology</h3>"}
	svc := NewService(discard(), failing, good)

	out, err := svc.Summarize(context.Background(), sampleArticles(), []news.Category{news.CategoryTechnology})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if failing.calls != 1 || good.calls != 1 {
		t.Fatalf("strategy chain not walked in order: %d, %d", failing.calls, good.calls)
	}
	if out != "<h3>technology</h3>" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestServiceFallsThroughOnBlankOutput(t *testing.T) {
	blank := &stubStrategy{content: "   \n"}
	good := &stubStrategy{content: "content"}
	svc := NewService(discard(), blank, good)

	out, err := svc.Summarize(context.Background(), sampleArticles(), []news.Category{news.CategoryTechnology})
	if err != nil || out != "content" {
		t.Fatalf("expected blank output to be rejected, got %q, %v", out, err)
	}
}

func TestFallbackGroupsByCategory(t *testing.T) {
	fb := NewFallbackSummarizer()
	out, err := fb.Summarize(context.Background(), sampleArticles(), []news.Category{news.CategoryTechnology, news.CategoryBusiness, news.CategoryScience})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got := strings.Count(out, "<h3>technology</h3>"); got != 1 {
		t.Fatalf("expected exactly one technology heading, got %d", got)
	}
	if !strings.Contains(out, "<h3>business</h3>") {
		t.Fatalf("missing business heading: %q", out)
	}
	if strings.Contains(out, "science") {
		t.Fatalf("science has no articles and must produce no heading: %q", out)
	}
	techItems := strings.Count(out, "https://t.example/")
	if techItems != 3 {
		t.Fatalf("expected 3 technology items (cap), got %d", techItems)
	}
	techIdx := strings.Index(out, "<h3>technology</h3>")
	bizIdx := strings.Index(out, "<h3>business</h3>")
	if techIdx > bizIdx {
		t.Fatalf("sections should follow requested-category order")
	}
}

func TestFallbackEscapesTitles(t *testing.T) {
	fb := NewFallbackSummarizer()
	articles := []news.Article{{
		Title:    "Rust <3 Go & friends",
		URL:      "https://x.example/1",
		Category: news.CategorySports,
	}}
	out, err := fb.Summarize(context.Background(), articles, []news.Category{news.CategorySports})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !strings.Contains(out, "Rust &lt;3 Go &amp; friends") {
		t.Fatalf("title not escaped: %q", out)
	}
}

func TestGroqWithoutCredentialSignalsExhaustion(t *testing.T) {
	g := NewGroqSummarizer(GroqOptions{})
	if _, err := g.Summarize(context.Background(), sampleArticles(), nil); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestGroqSendsArticlesAndReturnsCompletion(t *testing.T) {
	var captured request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("missing bearer token, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "<h3>technology</h3><p>summary</p>"}},
			},
		})
	}))
	defer srv.Close()

	g := NewGroqSummarizer(GroqOptions{APIKey: "k", Endpoint: srv.URL, Model: "test-model", MaxTokens: 512})
	out, err := g.Summarize(context.Background(), sampleArticles(), []news.Category{news.CategoryTechnology})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if out != "<h3>technology</h3><p>summary</p>" {
		t.Fatalf("unexpected completion: %q", out)
	}
	if captured.Model != "test-model" || len(captured.Messages) != 2 {
		t.Fatalf("unexpected request: %+v", captured)
	}
	if !strings.Contains(captured.Messages[1].Content, "Tech story one") {
		t.Fatalf("user prompt missing article list")
	}
}

func TestGroqEmptyCompletionIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{"message": map[string]string{"content": "  "}}},
		})
	}))
	defer srv.Close()

	g := NewGroqSummarizer(GroqOptions{APIKey: "k", Endpoint: srv.URL})
	if _, err := g.Summarize(context.Background(), sampleArticles(), nil); err == nil {
		t.Fatalf("expected error for blank completion")
	}
}
