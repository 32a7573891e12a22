package api

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	xhttp "FinCast/pkg/http"
	"FinCast/pkg/util"
)

type barsResponse struct {
	Symbol string       `json:"symbol"`
	Period string       `json:"period"`
	Count  int          `json:"count"`
	Bars   []models.Bar `json:"bars"`
}

// Bars returns the stored daily history for a symbol over a period.
func (h *Handler) Bars(c echo.Context) error {
	defer observe("bars", time.Now())

	var req models.BarsRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}

	symbol := util.NormalizeSymbol(req.Symbol)
	period := drepo.NormalizePeriod(req.Period)
	bars, err := h.history.Bars(c.Request().Context(), symbol, period)
	if err != nil {
		return h.fail(c, "bars", err)
	}
	return xhttp.SuccessResponse(c, barsResponse{
		Symbol: symbol,
		Period: string(period),
		Count:  len(bars),
		Bars:   bars,
	})
}

type storeBarsResponse struct {
	Symbol string `json:"symbol"`
	Stored int    `json:"stored"`
}

// StoreBars ingests a batch of bars synchronously. The batch is
// validated, sorted, persisted, and cached history is invalidated.
func (h *Handler) StoreBars(c echo.Context) error {
	defer observe("store_bars", time.Now())

	var req models.StoreBarsRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}

	bars := make([]models.Bar, 0, len(req.Bars))
	for i, p := range req.Bars {
		ts, ok := util.ParseTime(p.Date)
		if !ok {
			return h.fail(c, "store_bars",
				xhttp.BadRequestError(fmt.Sprintf("bars[%d]: unrecognized date %q", i, p.Date)))
		}
		bars = append(bars, models.Bar{
			Date:   time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
			Open:   p.Open,
			High:   p.High,
			Low:    p.Low,
			Close:  p.Close,
			Volume: p.Volume,
		})
	}

	symbol := util.NormalizeSymbol(req.Symbol)
	if err := h.processor.ProcessBatch(c.Request().Context(), symbol, bars); err != nil {
		return h.fail(c, "store_bars", err)
	}
	return xhttp.CreatedResponse(c, storeBarsResponse{Symbol: symbol, Stored: len(bars)})
}
