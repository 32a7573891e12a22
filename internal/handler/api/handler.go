package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	svcmetrics "FinCast/internal/service/metrics"
	"FinCast/internal/service/ratelimit"
	"FinCast/internal/stream"
	"FinCast/internal/usecase"
	xhttp "FinCast/pkg/http"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/queue"
)

const healthCheckTimeout = 2 * time.Second

// ComponentCheck is one named dependency ping for /health.
type ComponentCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps wires the handler. Hub, Jobs, and Checks may be nil/empty; the
// routes degrade accordingly.
type Deps struct {
	Log       *applogger.Logger
	History   *usecase.History
	Analyzer  *usecase.Analyzer
	Processor *usecase.BarProcessor
	Engine    domsvc.IndicatorEngine
	Runs      drepo.RunStore
	Jobs      queue.QueueService
	Hub       *stream.Hub
	Limiter   *ratelimit.Limiter
	Checks    []ComponentCheck

	// Per-client token bucket for POST /forecast; zero values fall back
	// to the package defaults.
	ForecastBurst     float64
	ForecastPerSecond float64
}

// Handler serves the engine API.
type Handler struct {
	log       *applogger.Logger
	history   *usecase.History
	analyzer  *usecase.Analyzer
	processor *usecase.BarProcessor
	engine    domsvc.IndicatorEngine
	runs      drepo.RunStore
	jobs      queue.QueueService
	hub       *stream.Hub
	rl        *ratelimit.Limiter
	rlBurst   float64
	rlRefill  float64
	checks    []ComponentCheck
}

func New(d Deps) *Handler {
	svcmetrics.Register()
	rl := d.Limiter
	if rl == nil {
		rl = ratelimit.New()
	}
	if d.ForecastBurst <= 0 {
		d.ForecastBurst = forecastBurst
	}
	if d.ForecastPerSecond <= 0 {
		d.ForecastPerSecond = forecastPerSecond
	}
	return &Handler{
		log:       d.Log,
		history:   d.History,
		analyzer:  d.Analyzer,
		processor: d.Processor,
		engine:    d.Engine,
		runs:      d.Runs,
		jobs:      d.Jobs,
		hub:       d.Hub,
		rl:        rl,
		rlBurst:   d.ForecastBurst,
		rlRefill:  d.ForecastPerSecond,
		checks:    d.Checks,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	v1 := e.Group("/api/v1")
	v1.GET("/bars", h.Bars)
	v1.POST("/bars", h.StoreBars)
	v1.GET("/indicators", h.Indicators)
	v1.GET("/summary", h.Summary)
	v1.POST("/forecast", h.Forecast)
	v1.POST("/analyses", h.EnqueueAnalysis)
	v1.GET("/analyses/:id", h.AnalysisByID)
	v1.GET("/runs", h.Runs)
	v1.GET("/export", h.Export)

	if h.hub != nil {
		e.GET("/ws/events", h.hub.ServeWS)
	}
}

// Health reports liveness plus a ping per wired component and the most
// recent collected warn/error log entries.
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	components := make(map[string]string, len(h.checks))
	healthy := true
	for _, chk := range h.checks {
		if err := chk.Check(ctx); err != nil {
			components[chk.Name] = err.Error()
			healthy = false
			continue
		}
		components[chk.Name] = "ok"
	}

	body := map[string]interface{}{
		"status":     "ok",
		"components": components,
	}
	if h.hub != nil {
		body["ws_clients"] = h.hub.ClientCount()
	}
	if h.log != nil {
		if problems := h.log.RecentProblems(5); len(problems) > 0 {
			body["recent_problems"] = problems
		}
	}
	if !healthy {
		body["status"] = "degraded"
		return c.JSON(http.StatusServiceUnavailable, body)
	}
	return c.JSON(http.StatusOK, body)
}

// observe records endpoint latency; deferred at the top of every route.
func observe(endpoint string, start time.Time) {
	svcmetrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// fail maps a domain error onto the API envelope and counts it.
func (h *Handler) fail(c echo.Context, endpoint string, err error) error {
	svcmetrics.APIErrors.WithLabelValues(endpoint).Inc()
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.log.Error("api "+endpoint+" failed", applogger.Error(err))
	} else {
		h.log.Warn("api "+endpoint+" rejected", applogger.String("code", appErr.Code), applogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// toAppError translates engine error kinds into HTTP statuses: bad
// input that validation cannot catch is 422, absent data 404, schema
// drift and the rest 500.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, usecase.ErrNoHistory) {
		return xhttp.NotFoundError(err.Error())
	}
	switch models.ErrorKind(err) {
	case "invalid_series":
		return xhttp.UnprocessableError("ERR_INVALID_SERIES", err.Error()).WithError(err)
	case "insufficient_data":
		ae := xhttp.UnprocessableError("ERR_INSUFFICIENT_DATA", err.Error()).WithError(err)
		var insufficient *models.InsufficientDataError
		if errors.As(err, &insufficient) {
			ae.WithParam("required", insufficient.Required).WithParam("available", insufficient.Available)
		}
		return ae
	case "degenerate_input":
		return xhttp.UnprocessableError("ERR_DEGENERATE_INPUT", err.Error()).WithError(err)
	case "schema_mismatch":
		return xhttp.InternalError(err.Error()).WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
