// Package mail delivers rendered newsletters through the Resend
// transactional email API.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned by Send before any network activity when
// the client has no API key.
var ErrNotConfigured = errors.New("mail: api key not configured")

// Receipt identifies an accepted email at the provider.
type Receipt struct {
	ID string `json:"id"`
}

// Client sends newsletters through the Resend HTTP API.
type Client struct {
	apiKey     string
	endpoint   string
	from       string
	httpClient *http.Client
	now        func() time.Time
}

// ClientOptions configures the mail client.
type ClientOptions struct {
	APIKey   string
	Endpoint string
	From     string
	Timeout  time.Duration
}

// NewClient constructs a Resend client.
func NewClient(opts ClientOptions) *Client {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = "https://api.resend.com/emails"
	}
	from := opts.From
	if from == "" {
		from = "Sendlr <onboarding@resend.dev>"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		apiKey:     opts.APIKey,
		endpoint:   endpoint,
		from:       from,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send wraps the rendered body in the branded template and submits it.
// The category label joins the subscriber's categories for the subject
// line and the header strip.
func (c *Client) Send(ctx context.Context, to, categoryLabel string, articleCount int, html string) (Receipt, error) {
	if c.apiKey == "" {
		return Receipt{}, ErrNotConfigured
	}

	date := c.now().Format("1/2/2006")
	payload, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      []string{to},
		Subject: fmt.Sprintf("📰 Your %s Newsletter - %s", categoryLabel, date),
		HTML:    renderTemplate(date, categoryLabel, articleCount, html),
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Receipt{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Receipt{}, fmt.Errorf("email API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var receipt Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return Receipt{}, fmt.Errorf("decode response: %w", err)
	}
	return receipt, nil
}

const emailTemplate = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="UTF-8" />
    <title>Sendlr Newsletter</title>
  </head>
  <body style="margin: 0; padding: 30px; background: #f5f5f5; font-family: monospace; color: #333333;">
    <div style="max-width: 700px; margin: auto; background: #ffffff; border: 3px solid #333333; box-shadow: 8px 8px 0px #cccccc;">
      <div style="background: #333333; color: #ffffff; padding: 25px; text-align: center;">
        <div style="font-size: 20px; margin-bottom: 10px;">📰 SENDLR</div>
        <div style="font-size: 12px;">YOUR DAILY DIGEST</div>
      </div>
      <div style="background: #eeeeee; padding: 15px 25px; border-bottom: 2px solid #333333;">
        <div style="font-size: 11px; text-align: center;">
          📅 %s • 📂 %s • 📊 %d STORIES
        </div>
      </div>
      <div style="padding: 30px 25px; font-size: 12px; line-height: 1.8; color: #444444;">
%s
      </div>
      <div style="background: #333333; color: #ffffff; padding: 20px; text-align: center; font-size: 10px;">
        <div style="margin-bottom: 5px;">⚡ POWERED BY SENDLR ⚡</div>
        <div style="font-size: 8px; color: #cccccc;">Unsubscribe anytime in your settings</div>
      </div>
    </div>
  </body>
</html>`

func renderTemplate(date, categoryLabel string, articleCount int, content string) string {
	return fmt.Sprintf(emailTemplate, date, strings.ToUpper(categoryLabel), articleCount, content)
}
