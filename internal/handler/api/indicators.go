package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	"FinCast/internal/usecase"
	xhttp "FinCast/pkg/http"
	"FinCast/pkg/util"
)

// indicatorPayload carries one indicator's full aligned array. Warm-up
// rows are nil so the JSON reads null; NaN would not survive marshaling.
type indicatorPayload struct {
	Name        string     `json:"name"`
	DefinedFrom int        `json:"defined_from"`
	Values      []*float64 `json:"values"`
}

type indicatorsResponse struct {
	Symbol     string             `json:"symbol"`
	Period     string             `json:"period"`
	Count      int                `json:"count"`
	Dates      []string           `json:"dates"`
	Indicators []indicatorPayload `json:"indicators"`
}

// Indicators computes the full indicator arrays for a symbol with the
// requested windows.
func (h *Handler) Indicators(c echo.Context) error {
	defer observe("indicators", time.Now())

	var req models.IndicatorsRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}
	if req.MACDFast >= req.MACDSlow {
		return h.fail(c, "indicators",
			xhttp.BadRequestError("macd_fast must be smaller than macd_slow"))
	}

	symbol := util.NormalizeSymbol(req.Symbol)
	period := drepo.NormalizePeriod(req.Period)
	series, err := h.history.Series(c.Request().Context(), symbol, period)
	if err != nil {
		return h.fail(c, "indicators", err)
	}
	set, err := h.engine.ComputeAll(series, req.ToIndicatorConfig())
	if err != nil {
		return h.fail(c, "indicators", err)
	}

	dates := make([]string, series.Len())
	for i, d := range series.Dates() {
		dates[i] = d.Format("2006-01-02")
	}
	payloads := make([]indicatorPayload, 0, len(models.IndicatorNames()))
	for _, name := range models.IndicatorNames() {
		is, ok := set.Get(name)
		if !ok {
			continue
		}
		values := make([]*float64, len(is.Values))
		for i := range is.Values {
			if is.Defined(i) {
				v := is.Values[i]
				values[i] = &v
			}
		}
		payloads = append(payloads, indicatorPayload{
			Name:        name,
			DefinedFrom: is.DefinedFrom,
			Values:      values,
		})
	}
	return xhttp.SuccessResponse(c, indicatorsResponse{
		Symbol:     symbol,
		Period:     string(period),
		Count:      series.Len(),
		Dates:      dates,
		Indicators: payloads,
	})
}

// Summary returns the stance view over the latest defined indicator
// values using the default windows.
func (h *Handler) Summary(c echo.Context) error {
	defer observe("summary", time.Now())

	var req models.SummaryRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}

	symbol := util.NormalizeSymbol(req.Symbol)
	period := drepo.NormalizePeriod(req.Period)
	series, err := h.history.Series(c.Request().Context(), symbol, period)
	if err != nil {
		return h.fail(c, "summary", err)
	}
	enriched, err := h.engine.Enrich(series, models.DefaultIndicatorConfig())
	if err != nil {
		return h.fail(c, "summary", err)
	}
	summary, err := usecase.Summarize(symbol, enriched)
	if err != nil {
		return h.fail(c, "summary", err)
	}
	return xhttp.SuccessResponse(c, summary)
}
