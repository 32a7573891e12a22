package usecase

import (
	"context"

	"FinCast/internal/domain/models"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/queue"
)

// TypeAnalysisRun is the queue message type carrying an AnalysisRequest.
const TypeAnalysisRun = "analysis.run"

// AnalysisJob drains queued analysis requests through the Analyzer.
// Results land in the cache under the request id; callers poll
// GET /api/v1/analyses/:id.
type AnalysisJob struct {
	analyzer *Analyzer
	log      *applogger.Logger
}

func NewAnalysisJob(analyzer *Analyzer, log *applogger.Logger) *AnalysisJob {
	return &AnalysisJob{analyzer: analyzer, log: log}
}

func (j *AnalysisJob) Name() string { return "analysis" }

func (j *AnalysisJob) Type() string { return TypeAnalysisRun }

func (j *AnalysisJob) Handle(ctx context.Context, payload interface{}) error {
	req, err := queue.ParsePayload[models.AnalysisRequest](payload)
	if err != nil {
		return err
	}

	_, err = j.analyzer.Analyze(ctx, *req)
	if err == nil {
		return nil
	}
	// Domain rejections are permanent: the same input fails the same
	// way on every retry. The failure event is already out; swallow so
	// the queue does not spin on them. Everything else retries.
	if kind := models.ErrorKind(err); kind != "internal" {
		j.log.Warn("analysis job rejected",
			applogger.String("id", req.ID),
			applogger.String("symbol", req.Symbol),
			applogger.String("kind", kind),
		)
		return nil
	}
	return err
}

var _ queue.Job = (*AnalysisJob)(nil)
