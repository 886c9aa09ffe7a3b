// Package server exposes the HTTP API: auth, delivery preferences and
// newsletter send/schedule endpoints. Handlers publish trigger events;
// the worker runs the pipeline.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sendlr/sendlr/internal/store"
)

// Options wires the server's collaborators.
type Options struct {
	Store     *store.Store
	Publisher EventPublisher
	JWTSecret []byte
	Logger    *log.Logger
}

// New builds the echo instance with all routes registered.
func New(opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")

	auth := &AuthHandler{Store: opts.Store, Secret: opts.JWTSecret}
	auth.Register(api.Group("/auth"))

	ph := &PreferencesHandler{Store: opts.Store}
	ph.Register(api.Group("/preferences"), opts.JWTSecret)

	nh := &NewslettersHandler{Store: opts.Store, Publisher: opts.Publisher, Logger: logger}
	nh.Register(api.Group("/newsletters"), opts.JWTSecret)

	return e
}
