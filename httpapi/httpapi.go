// Package httpapi exposes the command dispatcher over HTTP so a chat gateway
// can forward slash commands and post the returned text.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/kardianos/gatelist"
)

// Dispatcher runs one command line for a caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, c gatelist.Caller, line string) gatelist.Reply
}

// Renderer turns a reply into user-facing text.
type Renderer interface {
	Render(locale string, r gatelist.Reply) string
}

// Config holds the collaborators of a Server.
type Config struct {
	Dispatcher Dispatcher
	Renderer   Renderer
	Logger     *slog.Logger
}

// Server is the HTTP bridge.
type Server struct {
	echo *echo.Echo
	log  *slog.Logger
}

// New builds the server and registers its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Dispatcher == nil || cfg.Renderer == nil {
		return nil, errors.New("httpapi: dispatcher and renderer are required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(log))

	h := &commandHandler{dispatcher: cfg.Dispatcher, renderer: cfg.Renderer}
	e.GET("/healthz", healthHandler)
	v1 := e.Group("/v1")
	v1.POST("/commands", h.Run)

	return &Server{echo: e, log: log}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info("http bridge listening", "addr", addr)
		errc <- s.echo.Start(addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			log.Debug("http request",
				"method", c.Request().Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"duration", time.Since(start),
			)
			return nil
		}
	}
}

type commandRequest struct {
	UserID    string   `json:"user_id"`
	ChannelID string   `json:"channel_id"`
	RoleIDs   []string `json:"role_ids"`
	Text      string   `json:"text"`
	Locale    string   `json:"locale"`
}

type commandResponse struct {
	Kind    gatelist.Kind `json:"kind"`
	OK      bool          `json:"ok"`
	Message string        `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type commandHandler struct {
	dispatcher Dispatcher
	renderer   Renderer
}

// Run dispatches one command. Domain outcomes, including refusals, are
// 200 responses; only malformed requests are rejected.
func (h *commandHandler) Run(c echo.Context) error {
	var req commandRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.ChannelID = strings.TrimSpace(req.ChannelID)
	if req.UserID == "" || req.ChannelID == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "user_id and channel_id are required"})
	}

	locale := req.Locale
	if locale == "" {
		locale = c.Request().Header.Get("Accept-Language")
	}

	caller := gatelist.Caller{UserID: req.UserID, ChannelID: req.ChannelID, Roles: req.RoleIDs}
	reply := h.dispatcher.Dispatch(c.Request().Context(), caller, req.Text)
	return c.JSON(http.StatusOK, commandResponse{
		Kind:    reply.Kind,
		OK:      reply.Kind.OK(),
		Message: h.renderer.Render(locale, reply),
	})
}
