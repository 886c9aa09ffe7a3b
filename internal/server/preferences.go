package server

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sendlr/sendlr/internal/delivery"
	"github.com/sendlr/sendlr/internal/news"
	"github.com/sendlr/sendlr/internal/store"
)

type PreferencesHandler struct {
	Store *store.Store
}

func (h *PreferencesHandler) Register(g *echo.Group, secret []byte) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, secret) })
	g.GET("", h.get)
	g.PUT("", h.put)
	g.POST("/pause", h.pause)
	g.POST("/resume", h.resume)
}

type preferencesPayload struct {
	Email        string   `json:"email"`
	Categories   []string `json:"categories"`
	Frequency    string   `json:"frequency"`
	SendTime     string   `json:"send_time"`
	ScheduleCron string   `json:"schedule_cron,omitempty"`
	IsActive     bool     `json:"is_active"`
}

func (h *PreferencesHandler) get(c echo.Context) error {
	userID := c.Get("user_id").(string)
	prefs, found, err := h.Store.GetPreferences(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "preferences not set")
	}
	return c.JSON(http.StatusOK, preferencesPayload{
		Email:        prefs.Email,
		Categories:   prefs.Categories,
		Frequency:    prefs.Frequency,
		SendTime:     prefs.SendTime,
		ScheduleCron: prefs.ScheduleCron,
		IsActive:     prefs.IsActive,
	})
}

func (h *PreferencesHandler) put(c echo.Context) error {
	userID := c.Get("user_id").(string)
	var req preferencesPayload
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}
	if len(req.Categories) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "categories must be non-empty")
	}
	for _, cat := range req.Categories {
		if _, err := news.ParseCategory(cat); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if req.Frequency == "" {
		req.Frequency = string(delivery.FrequencyWeekly)
	}
	if _, err := delivery.ParseFrequency(req.Frequency); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.SendTime == "" {
		req.SendTime = delivery.DefaultSendTime
	}
	if err := delivery.ValidateSendTime(req.SendTime); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ScheduleCron != "" {
		if _, err := delivery.NextCronOccurrence(timeNow(), req.ScheduleCron); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	err := h.Store.UpsertPreferences(c.Request().Context(), store.Preferences{
		UserID:       userID,
		Email:        req.Email,
		Categories:   req.Categories,
		Frequency:    req.Frequency,
		SendTime:     req.SendTime,
		ScheduleCron: req.ScheduleCron,
		IsActive:     req.IsActive,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PreferencesHandler) pause(c echo.Context) error {
	return h.setActive(c, false)
}

func (h *PreferencesHandler) resume(c echo.Context) error {
	return h.setActive(c, true)
}

func (h *PreferencesHandler) setActive(c echo.Context, active bool) error {
	userID := c.Get("user_id").(string)
	if err := h.Store.SetActive(c.Request().Context(), userID, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "preferences not set")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusOK)
}
