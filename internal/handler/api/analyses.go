package api

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"FinCast/internal/domain/models"
	"FinCast/internal/usecase"
	xhttp "FinCast/pkg/http"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/util"
)

// Forecast training is the most expensive call the API serves, so it
// gets a small per-client budget.
const (
	forecastBurst     = 3.0
	forecastPerSecond = 0.5
)

// Forecast runs a full analysis synchronously and returns the result.
func (h *Handler) Forecast(c echo.Context) error {
	defer observe("forecast", time.Now())

	if !h.rl.Allow("forecast:"+c.RealIP(), h.rlBurst, h.rlRefill) {
		c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(h.rlRefill)))
		return h.fail(c, "forecast", xhttp.TooManyRequestsError("forecast rate limit exceeded, retry later"))
	}

	var req models.ForecastRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}

	res, err := h.analyzer.Analyze(c.Request().Context(), req.ToAnalysisRequest(""))
	if err != nil {
		return h.fail(c, "forecast", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// retryAfterSeconds is the wait until one token refills, rounded up.
func retryAfterSeconds(refillPerSec float64) int {
	if refillPerSec <= 0 {
		return 1
	}
	return int(math.Ceil(1 / refillPerSec))
}

type enqueueResponse struct {
	AnalysisID string `json:"analysis_id"`
	Status     string `json:"status"`
	ResultPath string `json:"result_path"`
}

// EnqueueAnalysis accepts an analysis for background execution and
// returns the id to poll.
func (h *Handler) EnqueueAnalysis(c echo.Context) error {
	defer observe("enqueue_analysis", time.Now())

	var req models.ForecastRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}
	if h.jobs == nil {
		return h.fail(c, "enqueue_analysis",
			xhttp.NewAppError("ERR_QUEUE_UNAVAILABLE", "", "background analyses are not enabled", http.StatusServiceUnavailable))
	}

	id := uuid.NewString()
	areq := req.ToAnalysisRequest(id)
	areq.Symbol = util.NormalizeSymbol(areq.Symbol)
	if err := h.jobs.PublishMessage(c.Request().Context(), usecase.TypeAnalysisRun, areq); err != nil {
		return h.fail(c, "enqueue_analysis", err)
	}
	h.log.Info("analysis queued",
		applogger.String("id", id),
		applogger.String("symbol", areq.Symbol))
	return xhttp.DataResponse(c, http.StatusAccepted, enqueueResponse{
		AnalysisID: id,
		Status:     "queued",
		ResultPath: "/api/v1/analyses/" + id,
	})
}

// AnalysisByID returns a completed analysis result from the cache.
func (h *Handler) AnalysisByID(c echo.Context) error {
	defer observe("analysis_by_id", time.Now())

	id := c.Param("id")
	if id == "" {
		return xhttp.BadRequestResponse(c, "id is required")
	}
	res, ok := h.analyzer.Result(c.Request().Context(), id)
	if !ok {
		return h.fail(c, "analysis_by_id",
			xhttp.NotFoundError("no completed analysis under this id; it may still be running or has expired"))
	}
	return xhttp.SuccessResponse(c, res)
}

type runsResponse struct {
	Symbol string             `json:"symbol"`
	Count  int                `json:"count"`
	Runs   []models.RunRecord `json:"runs"`
}

// Runs lists recent analysis run records for a symbol.
func (h *Handler) Runs(c echo.Context) error {
	defer observe("runs", time.Now())

	var req models.RunsRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}

	symbol := util.NormalizeSymbol(req.Symbol)
	recs, err := h.runs.RecentRuns(c.Request().Context(), symbol, req.Limit)
	if err != nil {
		return h.fail(c, "runs", err)
	}
	if recs == nil {
		recs = []models.RunRecord{}
	}
	return xhttp.SuccessResponse(c, runsResponse{Symbol: symbol, Count: len(recs), Runs: recs})
}
