package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	"FinCast/pkg/cache"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/util"
)

const (
	// analysisCacheTTL bounds how long an async result stays fetchable
	// by id after the job finishes.
	analysisCacheTTL = time.Hour
	// signatureCacheTTL bounds reuse of identical analyses. Short: new
	// bars can land at any time.
	signatureCacheTTL = time.Minute

	singleFlightTTL  = 30 * time.Second
	singleFlightWait = 5 * time.Second
	singleFlightPoll = 250 * time.Millisecond
)

func analysisKey(id string) string { return "analysis:" + id }

// Analyzer runs the full pipeline: stored bars to indicators to stance
// summary to forecast. One call is one complete, self-contained run;
// nothing trained survives it.
type Analyzer struct {
	history    *History
	engine     domsvc.IndicatorEngine
	predictor  domsvc.TrendPredictor
	runs       drepo.RunStore
	events     drepo.EventPublisher
	cache      cache.Service
	metrics    drepo.Metrics
	log        *applogger.Logger
	indicators models.IndicatorConfig
	defaults   models.ForecastConfig
}

func NewAnalyzer(
	history *History,
	engine domsvc.IndicatorEngine,
	predictor domsvc.TrendPredictor,
	runs drepo.RunStore,
	events drepo.EventPublisher,
	c cache.Service,
	m drepo.Metrics,
	log *applogger.Logger,
	indicators models.IndicatorConfig,
	defaults models.ForecastConfig,
) *Analyzer {
	return &Analyzer{
		history:    history,
		engine:     engine,
		predictor:  predictor,
		runs:       runs,
		events:     events,
		cache:      c,
		metrics:    m,
		log:        log,
		indicators: indicators,
		defaults:   defaults,
	}
}

// Analyze runs one analysis end to end. Identical requests against
// identical data are served from a short-lived signature cache, and a
// lock keeps a hot symbol from being analyzed twice concurrently.
func (a *Analyzer) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	req, err := a.normalize(req)
	if err != nil {
		return nil, err
	}

	sigKey := "analysis:sig:" + requestSignature(req)
	if res, ok := a.cachedBySignature(ctx, sigKey, req.ID); ok {
		return res, nil
	}

	unlock := a.singleFlight(ctx, sigKey)
	if unlock == nil {
		// someone else is computing the same thing; give them a moment
		if res, ok := a.awaitSignature(ctx, sigKey, req.ID); ok {
			return res, nil
		}
	} else {
		defer unlock()
	}

	start := time.Now()
	a.publish(ctx, models.NewEngineEvent(models.EventAnalysisStarted, req.Symbol).With("id", req.ID))

	res, err := a.run(ctx, req, start)
	if err != nil {
		kind := models.ErrorKind(err)
		a.metrics.RecordAnalysis(req.Strategy, "error")
		a.metrics.RecordError(kind)
		a.publish(ctx, models.NewEngineEvent(models.EventAnalysisFailed, req.Symbol).
			With("id", req.ID).
			With("kind", kind).
			With("error", err.Error()))
		a.log.Error("analysis failed",
			applogger.String("id", req.ID),
			applogger.String("symbol", req.Symbol),
			applogger.String("kind", kind),
			applogger.Error(err),
		)
		return nil, err
	}

	a.metrics.RecordAnalysis(req.Strategy, "ok")
	a.metrics.RecordLatency("analysis", time.Since(start).Seconds())
	a.cacheResult(ctx, sigKey, res)
	a.storeRun(ctx, req, res)
	a.publish(ctx, models.NewEngineEvent(models.EventAnalysisCompleted, req.Symbol).
		With("id", req.ID).
		With("horizon", res.Forecast.Horizon).
		With("verdict", string(res.Summary.Verdict)).
		With("confidence", res.Forecast.Report.Confidence))
	a.log.Info("analysis completed",
		applogger.String("id", req.ID),
		applogger.String("symbol", req.Symbol),
		applogger.String("strategy", req.Strategy),
		applogger.Int("bars", res.Bars),
		applogger.Duration("took", time.Since(start)),
	)
	return res, nil
}

// Result returns a finished analysis by id, if it is still cached.
func (a *Analyzer) Result(ctx context.Context, id string) (*models.AnalysisResult, bool) {
	if a.cache == nil || id == "" {
		return nil, false
	}
	var res models.AnalysisResult
	if err := a.cache.Get(ctx, analysisKey(id), &res); err != nil {
		a.metrics.RecordCache("analysis", false)
		return nil, false
	}
	a.metrics.RecordCache("analysis", true)
	return &res, true
}

func (a *Analyzer) run(ctx context.Context, req models.AnalysisRequest, start time.Time) (*models.AnalysisResult, error) {
	series, err := a.history.Series(ctx, req.Symbol, drepo.Period(req.Period))
	if err != nil {
		return nil, err
	}
	enriched, err := a.engine.Enrich(series, a.indicators)
	if err != nil {
		return nil, err
	}
	summary, err := Summarize(req.Symbol, enriched)
	if err != nil {
		return nil, err
	}
	fc, err := a.predictor.Forecast(ctx, req.Symbol, enriched, a.forecastConfig(req))
	if err != nil {
		return nil, err
	}
	return &models.AnalysisResult{
		ID:         req.ID,
		Symbol:     req.Symbol,
		AsOf:       series.Last().Date,
		Bars:       series.Len(),
		Latest:     enriched.Indicators.Latest(),
		Summary:    summary,
		Forecast:   fc,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

// normalize fills defaults and canonicalizes the request in place.
func (a *Analyzer) normalize(req models.AnalysisRequest) (models.AnalysisRequest, error) {
	req.Symbol = util.NormalizeSymbol(req.Symbol)
	if req.Symbol == "" {
		return req, fmt.Errorf("analysis request without symbol")
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Period = string(drepo.NormalizePeriod(req.Period))
	if req.Horizon <= 0 {
		req.Horizon = a.defaults.Horizon
	}
	if req.LagDepth <= 0 {
		req.LagDepth = a.defaults.LagDepth
	}
	if req.Trees <= 0 {
		req.Trees = a.defaults.Model.Trees
	}
	if req.Seed == 0 {
		req.Seed = a.defaults.Model.Seed
	}
	if req.Strategy == "" {
		req.Strategy = string(a.defaults.Strategy)
	}
	if req.ConfidenceZ <= 0 {
		req.ConfidenceZ = a.defaults.ConfidenceZ
	}
	return req, nil
}

func (a *Analyzer) forecastConfig(req models.AnalysisRequest) models.ForecastConfig {
	cfg := a.defaults
	cfg.Horizon = req.Horizon
	cfg.LagDepth = req.LagDepth
	cfg.Strategy = models.Strategy(req.Strategy)
	cfg.ConfidenceZ = req.ConfidenceZ
	cfg.Model.Trees = req.Trees
	cfg.Model.Seed = req.Seed
	return cfg
}

// requestSignature identifies the work, not the caller: two requests
// with different ids but the same knobs share one signature.
func requestSignature(req models.AnalysisRequest) string {
	return fmt.Sprintf("%s:%s:%d:%d:%s:%d:%d:%g",
		req.Symbol, req.Period, req.Horizon, req.LagDepth, req.Strategy, req.Trees, req.Seed, req.ConfidenceZ)
}

func (a *Analyzer) cachedBySignature(ctx context.Context, sigKey, id string) (*models.AnalysisResult, bool) {
	if a.cache == nil {
		return nil, false
	}
	var res models.AnalysisResult
	if err := a.cache.Get(ctx, sigKey, &res); err != nil {
		a.metrics.RecordCache("analysis_sig", false)
		return nil, false
	}
	a.metrics.RecordCache("analysis_sig", true)
	// rebind under the caller's id so GET /analyses/:id finds it
	res.ID = id
	if err := a.cache.Set(ctx, analysisKey(id), res, analysisCacheTTL); err != nil {
		a.log.Warn("analysis cache set failed", applogger.String("id", id), applogger.Error(err))
	}
	return &res, true
}

// singleFlight tries to take the per-signature lock. Returns nil when
// another run holds it.
func (a *Analyzer) singleFlight(ctx context.Context, sigKey string) func() {
	if a.cache == nil {
		return func() {}
	}
	lockKey := "lock:" + sigKey
	ok, err := a.cache.TryLock(ctx, lockKey, singleFlightTTL)
	if err != nil || !ok {
		return nil
	}
	return func() {
		if err := a.cache.Unlock(context.WithoutCancel(ctx), lockKey); err != nil {
			a.log.Debug("analysis unlock failed", applogger.Error(err))
		}
	}
}

// awaitSignature polls for the lock holder's result for a bounded time.
// Falls through (returns false) if it never shows; the caller then runs
// the analysis itself.
func (a *Analyzer) awaitSignature(ctx context.Context, sigKey, id string) (*models.AnalysisResult, bool) {
	deadline := time.Now().Add(singleFlightWait)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(singleFlightPoll):
		}
		if res, ok := a.cachedBySignature(ctx, sigKey, id); ok {
			return res, true
		}
	}
	return nil, false
}

func (a *Analyzer) cacheResult(ctx context.Context, sigKey string, res *models.AnalysisResult) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Set(ctx, analysisKey(res.ID), res, analysisCacheTTL); err != nil {
		a.log.Warn("analysis cache set failed", applogger.String("id", res.ID), applogger.Error(err))
	}
	if err := a.cache.Set(ctx, sigKey, res, signatureCacheTTL); err != nil {
		a.log.Warn("analysis signature cache set failed", applogger.String("id", res.ID), applogger.Error(err))
	}
}

// storeRun records the run summary. Best effort: history bookkeeping
// never fails an analysis that already produced a result.
func (a *Analyzer) storeRun(ctx context.Context, req models.AnalysisRequest, res *models.AnalysisResult) {
	if a.runs == nil {
		return
	}
	rec := models.RunRecord{
		ID:                res.ID,
		Symbol:            res.Symbol,
		Horizon:           res.Forecast.Horizon,
		Strategy:          string(res.Forecast.Strategy),
		Trees:             req.Trees,
		Seed:              req.Seed,
		MAE:               res.Forecast.Report.MAE,
		RMSE:              res.Forecast.Report.RMSE,
		R2:                res.Forecast.Report.R2,
		DirectionAccuracy: res.Forecast.Report.DirectionAccuracy,
		Confidence:        res.Forecast.Report.Confidence,
		DurationMs:        res.DurationMs,
		CreatedAt:         time.Now().UTC(),
	}
	if err := a.runs.StoreRun(ctx, rec); err != nil {
		a.metrics.RecordError("run_store")
		a.log.Error("run record store failed", applogger.String("id", res.ID), applogger.Error(err))
	}
}

func (a *Analyzer) publish(ctx context.Context, ev models.EngineEvent) {
	if a.events == nil {
		return
	}
	if err := a.events.PublishEvent(ctx, ev); err != nil {
		a.log.Warn("event publish failed",
			applogger.String("type", ev.Type),
			applogger.String("symbol", ev.Symbol),
			applogger.Error(err),
		)
	}
}
