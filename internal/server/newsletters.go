package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sendlr/sendlr/internal/delivery"
	"github.com/sendlr/sendlr/internal/news"
	"github.com/sendlr/sendlr/internal/queue/streams"
	"github.com/sendlr/sendlr/internal/store"
)

var timeNow = time.Now

// EventPublisher emits delivery trigger events, immediately or delayed.
type EventPublisher interface {
	PublishRaw(ctx context.Context, stream, eventType string, payload interface{}, opts ...streams.PublishOption) (string, error)
	PublishRawAt(ctx context.Context, stream, eventType string, payload interface{}, due time.Time) error
}

type NewslettersHandler struct {
	Store     *store.Store
	Publisher EventPublisher
	Logger    *log.Logger
}

func (h *NewslettersHandler) Register(g *echo.Group, secret []byte) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, secret) })
	g.POST("/send", h.send)
	g.POST("/schedule", h.schedule)
}

// send queues an immediate delivery. Sending "now" requires an active
// subscription; only already-enqueued events bypass the pause flag.
func (h *NewslettersHandler) send(c echo.Context) error {
	userID := c.Get("user_id").(string)
	prefs, found, err := h.Store.GetPreferences(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "preferences not set")
	}
	if !prefs.IsActive {
		return echo.NewHTTPError(http.StatusBadRequest, "subscription is paused")
	}

	req := delivery.Request{
		UserID:      userID,
		Email:       prefs.Email,
		Categories:  toCategories(prefs.Categories),
		IsImmediate: true,
	}
	id, err := h.Publisher.PublishRaw(c.Request().Context(), streams.StreamDeliver, streams.EventTypeDeliver, req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.Logger.Printf("queued immediate delivery %s for %s", id, userID)
	return c.JSON(http.StatusAccepted, map[string]string{"status": "queued", "event_id": id})
}

type scheduleRequest struct {
	ScheduledTime string `json:"scheduled_time"`
}

// schedule queues a one-off delivery at a future instant.
func (h *NewslettersHandler) schedule(c echo.Context) error {
	userID := c.Get("user_id").(string)
	var body scheduleRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	when, err := time.Parse(time.RFC3339, body.ScheduledTime)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "scheduled_time must be RFC3339")
	}
	if !when.After(timeNow()) {
		return echo.NewHTTPError(http.StatusBadRequest, "scheduled_time must be in the future")
	}

	prefs, found, err := h.Store.GetPreferences(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "preferences not set")
	}
	if !prefs.IsActive {
		return echo.NewHTTPError(http.StatusBadRequest, "subscription is paused")
	}

	req := delivery.Request{
		UserID:       userID,
		Email:        prefs.Email,
		Categories:   toCategories(prefs.Categories),
		IsScheduled:  true,
		ScheduledFor: &when,
	}
	if err := h.Publisher.PublishRawAt(c.Request().Context(), streams.StreamDeliver, streams.EventTypeDeliver, req, when); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.Logger.Printf("scheduled delivery for %s at %s", userID, when.Format(time.RFC3339))
	return c.JSON(http.StatusAccepted, map[string]string{"status": "scheduled", "scheduled_for": when.Format(time.RFC3339)})
}

func toCategories(names []string) []news.Category {
	out := make([]news.Category, len(names))
	for i, n := range names {
		out[i] = news.Category(n)
	}
	return out
}
