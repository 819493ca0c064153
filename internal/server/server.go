// Package server exposes the session API over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"ai-diet-planner/internal/llm"
	"ai-diet-planner/internal/metrics"
	"ai-diet-planner/internal/plan"
	"ai-diet-planner/internal/profile"
	"ai-diet-planner/internal/session"
)

// MetricsReader exposes the usage queries the metrics endpoint serves.
type MetricsReader interface {
	GetDailyUsage(days int) ([]metrics.DailyUsage, error)
}

// Server routes HTTP requests to the session manager.
type Server struct {
	echo     *echo.Echo
	sessions *session.Manager
	usage    MetricsReader
	dataPath string
}

// New builds the echo app with all routes registered. usage may be nil,
// which disables the metrics endpoint.
func New(sessions *session.Manager, usage MetricsReader, dataPath string, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))

	s := &Server{echo: e, sessions: sessions, usage: usage, dataPath: dataPath}

	e.GET("/health", s.handleHealth)
	api := e.Group("/api")
	api.POST("/sessions", s.handleCreateSession)
	api.POST("/sessions/:id/messages", s.handleMessage)
	api.POST("/sessions/:id/profile", s.handleExtractProfile)
	api.POST("/sessions/:id/plan", s.handleGeneratePlan)
	api.GET("/sessions/:id/export", s.handleExport)
	if usage != nil {
		api.GET("/metrics", s.handleMetrics)
	}

	return s
}

// Start begins serving on the given address and blocks until shutdown.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying router, mainly for tests and shutdown wiring.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateSession(c echo.Context) error {
	sess := s.sessions.Create()
	return c.JSON(http.StatusCreated, map[string]string{"session_id": sess.ID})
}

type messageRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleMessage(c echo.Context) error {
	var req messageRequest
	if err := c.Bind(&req); err != nil || req.Message == "" {
		return c.JSON(http.StatusBadRequest, errBody("message is required"))
	}

	reply, err := s.sessions.AddMessage(c.Request().Context(), c.Param("id"), req.Message)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) handleExtractProfile(c echo.Context) error {
	p, err := s.sessions.ExtractProfile(c.Request().Context(), c.Param("id"))

	var incomplete *profile.IncompleteError
	if errors.As(err, &incomplete) {
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "profile incomplete",
			"missing": incomplete.Missing,
			"profile": p,
		})
	}
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"profile": p})
}

func (s *Server) handleGeneratePlan(c echo.Context) error {
	week, err := s.sessions.GeneratePlan(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, week)
}

func (s *Server) handleExport(c echo.Context) error {
	out, err := s.sessions.ExportPDF(c.Param("id"))
	if err != nil {
		return s.writeError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="meal_plan.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", out)
}

func (s *Server) handleMetrics(c echo.Context) error {
	usage, err := s.usage.GetDailyUsage(7)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errBody("failed to read usage"))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"daily_usage": usage,
		"system":      metrics.GetSysHealth(s.dataPath),
	})
}

// writeError maps the error taxonomy onto HTTP statuses.
func (s *Server) writeError(c echo.Context, err error) error {
	var safety *plan.SafetyError
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, errBody("session not found"))
	case errors.Is(err, session.ErrNoProfile):
		return c.JSON(http.StatusConflict, errBody("no complete profile for this session"))
	case errors.Is(err, session.ErrNoPlan):
		return c.JSON(http.StatusConflict, errBody("no plan generated for this session"))
	case errors.As(err, &safety):
		return c.JSON(http.StatusConflict, errBody(safety.Error()))
	case errors.Is(err, profile.ErrEmptyTranscript):
		return c.JSON(http.StatusConflict, errBody("no conversation to extract from"))
	case errors.Is(err, profile.ErrMalformedResponse), errors.Is(err, plan.ErrMalformedResponse):
		return c.JSON(http.StatusBadGateway, errBody(err.Error()))
	case errors.Is(err, llm.ErrUnavailable):
		return c.JSON(http.StatusServiceUnavailable, errBody("model provider unavailable"))
	default:
		return c.JSON(http.StatusInternalServerError, errBody("internal error"))
	}
}

func errBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info().
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Msg("request")
			return err
		}
	}
}
