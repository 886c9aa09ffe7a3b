package delivery

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sendlr/sendlr/internal/executor"
	"github.com/sendlr/sendlr/internal/mail"
	"github.com/sendlr/sendlr/internal/news"
	"github.com/sendlr/sendlr/internal/queue/streams"
	"github.com/sendlr/sendlr/internal/render"
	"github.com/sendlr/sendlr/internal/store"
)

// Step names checkpointed per run.
const (
	StepFetch      = "fetch"
	StepSummarize  = "summarize"
	StepRender     = "render"
	StepSend       = "send"
	StepReschedule = "reschedule"
)

// Fetcher produces category-tagged articles for the requested tags.
type Fetcher interface {
	Fetch(ctx context.Context, categories []news.Category) ([]news.Article, error)
}

// Summarizer writes the newsletter body markup.
type Summarizer interface {
	Summarize(ctx context.Context, articles []news.Article, categories []news.Category) (string, error)
}

// Mailer delivers the rendered newsletter.
type Mailer interface {
	Send(ctx context.Context, to, categoryLabel string, articleCount int, html string) (mail.Receipt, error)
}

// PreferenceReader exposes the subscriber profile the gate and the
// reschedule step consult.
type PreferenceReader interface {
	GetPreferences(ctx context.Context, userID string) (store.Preferences, bool, error)
}

// RunRecorder persists run records; nil disables persistence.
type RunRecorder interface {
	CreateDeliveryRun(ctx context.Context, userID, kind string) (string, error)
	FinishDeliveryRun(ctx context.Context, runID, status string, errMsg *string) error
}

// EventPublisher emits the next recurring trigger event.
type EventPublisher interface {
	PublishRawAt(ctx context.Context, stream, eventType string, payload interface{}, due time.Time) error
}

// Pipeline runs one delivery end to end with injected collaborators.
type Pipeline struct {
	prefs      PreferenceReader
	runs       RunRecorder
	fetcher    Fetcher
	summarizer Summarizer
	renderHTML func(string) string
	mailer     Mailer
	publisher  EventPublisher
	exec       *executor.Executor

	defaultSendTime string
	stepMaxRetries  int
	stepRetryDelay  time.Duration
	logger          *log.Logger
	now             func() time.Time
}

// PipelineOptions wires a pipeline's collaborators and policy.
type PipelineOptions struct {
	Preferences PreferenceReader
	Runs        RunRecorder
	Fetcher     Fetcher
	Summarizer  Summarizer
	Mailer      Mailer
	Publisher   EventPublisher
	Executor    *executor.Executor

	DefaultSendTime string
	StepMaxRetries  int
	StepRetryDelay  time.Duration
	Logger          *log.Logger
}

// NewPipeline constructs a delivery pipeline.
func NewPipeline(opts PipelineOptions) *Pipeline {
	exec := opts.Executor
	if exec == nil {
		exec = executor.New()
	}
	sendTime := opts.DefaultSendTime
	if sendTime == "" {
		sendTime = DefaultSendTime
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[DELIVERY] ", log.LstdFlags)
	}
	return &Pipeline{
		prefs:           opts.Preferences,
		runs:            opts.Runs,
		fetcher:         opts.Fetcher,
		summarizer:      opts.Summarizer,
		renderHTML:      render.ToHTML,
		mailer:          opts.Mailer,
		publisher:       opts.Publisher,
		exec:            exec,
		defaultSendTime: sendTime,
		stepMaxRetries:  opts.StepMaxRetries,
		stepRetryDelay:  opts.StepRetryDelay,
		logger:          logger,
		now:             time.Now,
	}
}

// Run executes one delivery. Recurring triggers pass through the
// liveness gate first; a paused or missing subscription cancels the run
// cleanly without touching any later step. Immediate and one-off
// scheduled sends bypass the gate.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	if req.Recurring() {
		prefs, found, err := p.prefs.GetPreferences(ctx, req.UserID)
		if err != nil {
			return Result{}, fmt.Errorf("liveness gate: %w", err)
		}
		if !found {
			p.logger.Printf("run cancelled for %s: preferences missing", req.UserID)
			return Result{Cancelled: true, Reason: "preferences missing"}, nil
		}
		if !prefs.IsActive {
			p.logger.Printf("run cancelled for %s: subscription paused", req.UserID)
			return Result{Cancelled: true, Reason: "subscription paused"}, nil
		}
	}

	runID := uuid.NewString()
	if p.runs != nil {
		id, err := p.runs.CreateDeliveryRun(ctx, req.UserID, req.Kind())
		if err != nil {
			return Result{}, fmt.Errorf("create run: %w", err)
		}
		runID = id
	}

	run := &pipelineRun{pipeline: p, req: req}
	plan := executor.Plan{Steps: p.planSteps(req)}
	if _, err := p.exec.Execute(ctx, runID, plan, run); err != nil {
		p.finishRun(ctx, runID, store.RunStatusFailed, err)
		return Result{}, err
	}
	p.finishRun(ctx, runID, store.RunStatusSucceeded, nil)

	p.logger.Printf("run %s delivered %d articles to %s (%s)", runID, run.artifact.ArticleCount, req.Email, req.Kind())
	return Result{
		Success:      true,
		EmailSent:    true,
		IsImmediate:  req.IsImmediate,
		IsScheduled:  req.IsScheduled,
		ArticleCount: run.artifact.ArticleCount,
		Categories:   req.Categories,
	}, nil
}

func (p *Pipeline) planSteps(req Request) []executor.Step {
	steps := []executor.Step{
		{Name: StepFetch},
		{Name: StepSummarize},
		{Name: StepRender},
		{Name: StepSend, MaxRetries: p.stepMaxRetries, RetryDelay: p.stepRetryDelay},
	}
	if req.Recurring() && req.Frequency != "" {
		steps = append(steps, executor.Step{Name: StepReschedule})
	}
	return steps
}

func (p *Pipeline) finishRun(ctx context.Context, runID, status string, runErr error) {
	if p.runs == nil {
		return
	}
	var msg *string
	if runErr != nil {
		s := runErr.Error()
		msg = &s
	}
	if err := p.runs.FinishDeliveryRun(ctx, runID, status, msg); err != nil {
		p.logger.Printf("finish run %s: %v", runID, err)
	}
}

// pipelineRun carries the artifact between steps of a single run.
type pipelineRun struct {
	pipeline *Pipeline
	req      Request
	articles []news.Article
	artifact Artifact
}

func (r *pipelineRun) RunStep(ctx context.Context, runID string, step executor.Step) error {
	p := r.pipeline
	switch step.Name {
	case StepFetch:
		articles, err := p.fetcher.Fetch(ctx, r.req.Categories)
		if err != nil {
			return fmt.Errorf("fetch: %w", err)
		}
		r.articles = articles
		return nil

	case StepSummarize:
		content, err := p.summarizer.Summarize(ctx, r.articles, r.req.Categories)
		if err != nil {
			return fmt.Errorf("summarize: %w", err)
		}
		counts := make(map[news.Category]int)
		for _, a := range r.articles {
			counts[a.Category]++
		}
		breakdown := make([]CategoryCount, 0, len(counts))
		for _, c := range r.req.Categories {
			if counts[c] > 0 {
				breakdown = append(breakdown, CategoryCount{Category: c, Count: counts[c]})
			}
		}
		r.artifact = Artifact{
			Content:           content,
			Categories:        r.req.Categories,
			ArticleCount:      len(r.articles),
			CategoryBreakdown: breakdown,
		}
		return nil

	case StepRender:
		r.artifact.HTML = p.renderHTML(r.artifact.Content)
		return nil

	case StepSend:
		label := categoryLabel(r.req.Categories)
		receipt, err := p.mailer.Send(ctx, r.req.Email, label, r.artifact.ArticleCount, r.artifact.HTML)
		if err != nil {
			return fmt.Errorf("send: %w", err)
		}
		p.logger.Printf("run %s email accepted as %s", runID, receipt.ID)
		return nil

	case StepReschedule:
		return r.reschedule(ctx)

	default:
		return fmt.Errorf("unknown step %q", step.Name)
	}
}

// reschedule reads the subscriber's current send time from the store
// (categories and frequency stay as the event carried them) and emits
// the next trigger event timed for the computed instant.
func (r *pipelineRun) reschedule(ctx context.Context) error {
	p := r.pipeline

	sendTime := p.defaultSendTime
	cron := ""
	if prefs, found, err := p.prefs.GetPreferences(ctx, r.req.UserID); err != nil {
		return fmt.Errorf("reschedule: %w", err)
	} else if found {
		if prefs.SendTime != "" {
			sendTime = prefs.SendTime
		}
		cron = prefs.ScheduleCron
	}

	now := p.now()
	var due time.Time
	if cron != "" {
		next, err := NextCronOccurrence(now, cron)
		if err != nil {
			p.logger.Printf("cron override for %s ignored: %v", r.req.UserID, err)
			due = NextOccurrence(now, r.req.Frequency, sendTime)
		} else {
			due = next
		}
	} else {
		due = NextOccurrence(now, r.req.Frequency, sendTime)
	}

	next := Request{
		UserID:     r.req.UserID,
		Email:      r.req.Email,
		Categories: r.req.Categories,
		Frequency:  r.req.Frequency,
		SendTime:   sendTime,
	}
	if err := p.publisher.PublishRawAt(ctx, streams.StreamDeliver, streams.EventTypeDeliver, next, due); err != nil {
		return fmt.Errorf("reschedule: %w", err)
	}
	p.logger.Printf("next %s delivery for %s at %s", r.req.Frequency, r.req.UserID, due.Format(time.RFC3339))
	return nil
}

func categoryLabel(categories []news.Category) string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
