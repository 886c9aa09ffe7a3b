package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sendlr/sendlr/internal/news"
)

const systemPrompt = `You are a newsletter editor. Produce the body of a news digest as minimal structural HTML only.

RULES:
1. Use only <h3>, <p>, <ul>, <li>, <a>, <strong> and <em> tags
2. Group stories under one <h3> heading per category, using the category name as the heading text
3. Each story: linked headline plus one or two sentences of summary
4. No greetings, sign-offs, placeholders, or unsubscribe text
5. Only include stories written in English
6. Respond with the HTML fragment only, no surrounding document or explanation`

// GroqSummarizer calls a hosted chat-completions model to write the
// newsletter body. It signals exhaustion when no credential is configured
// so the deterministic fallback takes over.
type GroqSummarizer struct {
	apiKey      string
	endpoint    string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// GroqOptions configures the hosted model client.
type GroqOptions struct {
	APIKey      string
	Endpoint    string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// NewGroqSummarizer constructs the hosted model strategy.
func NewGroqSummarizer(opts GroqOptions) *GroqSummarizer {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GroqSummarizer{
		apiKey:      opts.APIKey,
		endpoint:    opts.Endpoint,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Message represents a message in a chat-completions conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Summarize sends one completion request embedding the full article list.
func (g *GroqSummarizer) Summarize(ctx context.Context, articles []news.Article, categories []news.Category) (string, error) {
	if g.apiKey == "" {
		return "", ErrExhausted
	}

	content, err := g.send(ctx, []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt(articles, categories)},
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("model returned empty completion")
	}
	return content, nil
}

func userPrompt(articles []news.Article, categories []news.Category) string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a newsletter body for these %s stories.\n\n", strings.Join(names, ", "))
	fmt.Fprintf(&b, "Requested categories: %s\n\nARTICLES:\n", strings.Join(names, ", "))
	for i, a := range articles {
		fmt.Fprintf(&b, "%d. CATEGORY: %s\nHEADLINE: %s\nSUMMARY: %s\nSOURCE: %s\n---\n",
			i+1, a.Category, a.Title, a.Description, a.URL)
	}
	b.WriteString("\nEvery requested category that has articles must be represented with its own section.")
	return b.String()
}

func (g *GroqSummarizer) send(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(request{
		Model:       g.model,
		Messages:    messages,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model API returned status %d", resp.StatusCode)
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return decoded.Choices[0].Message.Content, nil
}
