package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Category is an enumerated newsletter topic.
type Category string

const (
	CategoryTechnology    Category = "technology"
	CategoryBusiness      Category = "business"
	CategorySports        Category = "sports"
	CategoryEntertainment Category = "entertainment"
	CategoryScience       Category = "science"
	CategoryHealth        Category = "health"
	CategoryPolitics      Category = "politics"
	CategoryEnvironment   Category = "environment"
)

// AllCategories lists every supported category.
var AllCategories = []Category{
	CategoryTechnology,
	CategoryBusiness,
	CategorySports,
	CategoryEntertainment,
	CategoryScience,
	CategoryHealth,
	CategoryPolitics,
	CategoryEnvironment,
}

// ErrUnknownCategory is returned when a category string is not recognised.
var ErrUnknownCategory = errors.New("unknown category")

// ParseCategory validates a raw category string.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllCategories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Article is a single story surfaced to the newsletter pipeline. Articles
// live only for the duration of one delivery run and are never persisted.
type Article struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
}

type apiArticle struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type apiResponse struct {
	Status       string       `json:"status"`
	TotalResults int          `json:"totalResults"`
	Articles     []apiArticle `json:"articles"`
}

var errRateLimited = errors.New("rate limited")

// Client fetches articles from the news search API with per-category query
// tuning and curated fallback content when the API is unavailable.
type Client struct {
	apiKey            string
	endpoint          string
	headlinesEndpoint string
	requestDelay      time.Duration
	maxPerCategory    int
	lookback          time.Duration
	httpClient        *http.Client
	fallback          *FallbackSource
	logger            *log.Logger
	now               func() time.Time
}

// ClientOptions configures a news Client.
type ClientOptions struct {
	APIKey            string
	Endpoint          string
	HeadlinesEndpoint string
	RequestDelay      time.Duration
	MaxPerCategory    int
	LookbackDays      int
	Timeout           time.Duration
}

// NewClient constructs a news API client.
func NewClient(opts ClientOptions, fallback *FallbackSource, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.Writer(), "[NEWS] ", log.LstdFlags)
	}
	if fallback == nil {
		fallback = NewFallbackSource(time.Now)
	}
	maxPer := opts.MaxPerCategory
	if maxPer <= 0 {
		maxPer = 5
	}
	lookbackDays := opts.LookbackDays
	if lookbackDays <= 0 {
		lookbackDays = 7
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		apiKey:            opts.APIKey,
		endpoint:          opts.Endpoint,
		headlinesEndpoint: opts.HeadlinesEndpoint,
		requestDelay:      opts.RequestDelay,
		maxPerCategory:    maxPer,
		lookback:          time.Duration(lookbackDays) * 24 * time.Hour,
		httpClient:        &http.Client{Timeout: timeout},
		fallback:          fallback,
		logger:            logger,
		now:               time.Now,
	}
}

// Fetch retrieves up to maxPerCategory articles for each requested category.
// Categories are processed sequentially with a delay between requests to
// stay under the API rate limit. A category that fails every tier
// contributes zero articles rather than an error; a category whose calls
// blow up entirely is served from the curated fallback table.
func (c *Client) Fetch(ctx context.Context, categories []Category) ([]Article, error) {
	var all []Article
	for i, category := range categories {
		if i > 0 && c.requestDelay > 0 {
			select {
			case <-ctx.Done():
				return all, ctx.Err()
			case <-time.After(c.requestDelay):
			}
		}
		all = append(all, c.fetchCategory(ctx, category)...)
	}
	c.logger.Printf("fetched %d articles across %d categories", len(all), len(categories))
	return all, nil
}

func (c *Client) fetchCategory(ctx context.Context, category Category) []Article {
	articles, err := c.tryCategory(ctx, category)
	if err != nil {
		// Network or decode failure anywhere in the tier chain: serve the
		// curated table so the category is still represented.
		c.logger.Printf("category %s failed (%v); using fallback content", category, err)
		return c.fallback.Articles([]Category{category})
	}
	return articles
}

func (c *Client) tryCategory(ctx context.Context, category Category) ([]Article, error) {
	since := c.now().Add(-c.lookback).UTC().Format(time.RFC3339)

	params := url.Values{}
	params.Set("q", searchQuery(category))
	params.Set("from", since)
	params.Set("sortBy", "publishedAt")
	params.Set("language", "en")
	params.Set("domains", allowedDomains)
	params.Set("apiKey", c.apiKey)

	resp, err := c.get(ctx, c.endpoint, params)
	if err != nil {
		if errors.Is(err, errRateLimited) {
			c.logger.Printf("rate limited for %s; using fallback content", category)
			return c.fallback.Articles([]Category{category}), nil
		}
		if isHTTPStatusError(err) {
			return c.tryHeadlines(ctx, category)
		}
		return nil, err
	}

	if len(resp.Articles) == 0 {
		return c.trySimpleQuery(ctx, category, since)
	}
	return c.filter(resp.Articles, category), nil
}

// tryHeadlines is the second tier: the fixed-category top-headlines
// endpoint. Failure here means the category is skipped, not an error.
func (c *Client) tryHeadlines(ctx context.Context, category Category) ([]Article, error) {
	params := url.Values{}
	params.Set("category", headlineCategory(category))
	params.Set("language", "en")
	params.Set("country", "us")
	params.Set("apiKey", c.apiKey)

	resp, err := c.get(ctx, c.headlinesEndpoint, params)
	if err != nil {
		if isHTTPStatusError(err) || errors.Is(err, errRateLimited) {
			c.logger.Printf("headlines tier failed for %s; skipping category", category)
			return nil, nil
		}
		return nil, err
	}

	out := make([]Article, 0, c.maxPerCategory)
	for _, a := range resp.Articles {
		if len(out) == c.maxPerCategory {
			break
		}
		description := a.Description
		if description == "" {
			description = "No description available"
		}
		out = append(out, Article{Title: a.Title, URL: a.URL, Description: description, Category: category})
	}
	return out, nil
}

// trySimpleQuery is the empty-result tier: retry once with the bare
// category name. Only an HTTP error status or another empty result ends
// the chain with zero articles; transport and decode failures propagate
// so the caller serves curated fallback content.
func (c *Client) trySimpleQuery(ctx context.Context, category Category, since string) ([]Article, error) {
	params := url.Values{}
	params.Set("q", string(category))
	params.Set("from", since)
	params.Set("sortBy", "publishedAt")
	params.Set("language", "en")
	params.Set("apiKey", c.apiKey)

	resp, err := c.get(ctx, c.endpoint, params)
	if err != nil {
		if isHTTPStatusError(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(resp.Articles) == 0 {
		return nil, nil
	}

	out := make([]Article, 0, c.maxPerCategory)
	for _, a := range resp.Articles {
		if len(out) == c.maxPerCategory {
			break
		}
		description := a.Description
		if description == "" {
			description = "No description available"
		}
		out = append(out, Article{Title: a.Title, URL: a.URL, Description: description, Category: category})
	}
	return out, nil
}

func (c *Client) filter(raw []apiArticle, category Category) []Article {
	out := make([]Article, 0, c.maxPerCategory)
	for _, a := range raw {
		if len(out) == c.maxPerCategory {
			break
		}
		if !acceptable(a) {
			continue
		}
		out = append(out, Article{Title: a.Title, URL: a.URL, Description: a.Description, Category: category})
	}
	return out
}

const removedSentinel = "[Removed]"

var bannedTitleWords = []string{"betting", "casino", "porn"}

func acceptable(a apiArticle) bool {
	if a.Title == "" || a.Description == "" || a.URL == "" {
		return false
	}
	if len(a.Title) <= 5 || len(a.Description) <= 10 {
		return false
	}
	if strings.Contains(a.Title, removedSentinel) || strings.Contains(a.Description, removedSentinel) {
		return false
	}
	lower := strings.ToLower(a.Title)
	for _, w := range bannedTitleWords {
		if strings.Contains(lower, w) {
			return false
		}
	}
	return true
}

type httpStatusError struct {
	code   int
	status string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("news api error: %s", e.status)
}

func isHTTPStatusError(err error) bool {
	var se *httpStatusError
	return errors.As(err, &se)
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Sendlr/1.0 (Newsletter Application)")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch news: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &httpStatusError{code: resp.StatusCode, status: resp.Status}
	}

	var decoded apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &decoded, nil
}
