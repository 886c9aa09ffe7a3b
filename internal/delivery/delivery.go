// Package delivery orchestrates one newsletter run: liveness gate,
// fetch, summarize, render, send and recurrence rescheduling.
package delivery

import (
	"fmt"
	"time"

	"github.com/sendlr/sendlr/internal/news"
)

// Frequency is the cadence of a recurring subscription.
type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
)

// ErrUnknownFrequency is returned for cadences outside the fixed set.
var ErrUnknownFrequency = fmt.Errorf("unknown frequency")

// ParseFrequency validates a cadence tag.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly:
		return Frequency(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFrequency, s)
}

// Interval returns the rescheduling interval for the cadence.
func (f Frequency) Interval() time.Duration {
	switch f {
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	case FrequencyBiweekly:
		return 14 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Request is the trigger event payload for one delivery run.
type Request struct {
	UserID       string          `json:"user_id"`
	Email        string          `json:"email"`
	Categories   []news.Category `json:"categories"`
	Frequency    Frequency       `json:"frequency,omitempty"`
	SendTime     string          `json:"send_time,omitempty"`
	IsImmediate  bool            `json:"is_immediate"`
	IsScheduled  bool            `json:"is_scheduled"`
	ScheduledFor *time.Time      `json:"scheduled_for,omitempty"`
}

// Recurring reports whether the event is a regular subscription trigger,
// as opposed to an explicit "send now" or one-off scheduled send.
func (r Request) Recurring() bool {
	return !r.IsImmediate && !r.IsScheduled
}

// Kind labels the trigger for run records and logs.
func (r Request) Kind() string {
	switch {
	case r.IsImmediate:
		return "immediate"
	case r.IsScheduled:
		return "scheduled"
	default:
		return "recurring"
	}
}

// Validate rejects requests the pipeline cannot act on.
func (r Request) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if r.Email == "" {
		return fmt.Errorf("email is required")
	}
	if len(r.Categories) == 0 {
		return fmt.Errorf("categories must be non-empty")
	}
	for _, c := range r.Categories {
		if _, err := news.ParseCategory(string(c)); err != nil {
			return err
		}
	}
	if r.IsImmediate && r.IsScheduled {
		return fmt.Errorf("event cannot be both immediate and scheduled")
	}
	if r.Frequency != "" {
		if !r.Recurring() {
			return fmt.Errorf("frequency is only valid for recurring events")
		}
		if _, err := ParseFrequency(string(r.Frequency)); err != nil {
			return err
		}
	}
	return nil
}

// CategoryCount is one entry of an artifact's per-category breakdown.
type CategoryCount struct {
	Category news.Category `json:"category"`
	Count    int           `json:"count"`
}

// Artifact is the newsletter produced by one run, consumed by the send
// step and then discarded.
type Artifact struct {
	Content           string
	HTML              string
	Categories        []news.Category
	ArticleCount      int
	CategoryBreakdown []CategoryCount
}

// Result is the terminal outcome of a run.
type Result struct {
	Success      bool            `json:"success"`
	EmailSent    bool            `json:"email_sent"`
	Cancelled    bool            `json:"cancelled"`
	Reason       string          `json:"reason,omitempty"`
	IsImmediate  bool            `json:"is_immediate"`
	IsScheduled  bool            `json:"is_scheduled"`
	ArticleCount int             `json:"article_count"`
	Categories   []news.Category `json:"categories,omitempty"`
}
