package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	xhttp "FinCast/pkg/http"
	"FinCast/pkg/util"
)

// Export streams the enriched series as CSV: the OHLCV columns followed
// by every indicator. Warm-up cells are empty, not zero.
func (h *Handler) Export(c echo.Context) error {
	defer observe("export", time.Now())

	var req models.ExportRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}

	symbol := util.NormalizeSymbol(req.Symbol)
	period := drepo.NormalizePeriod(req.Period)
	series, err := h.history.Series(c.Request().Context(), symbol, period)
	if err != nil {
		return h.fail(c, "export", err)
	}
	set, err := h.engine.ComputeAll(series, models.DefaultIndicatorConfig())
	if err != nil {
		return h.fail(c, "export", err)
	}

	// Everything that can fail has; from here on the response is CSV.
	names := models.IndicatorNames()
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	resp.Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%s_%s.csv", symbol, period))
	resp.WriteHeader(http.StatusOK)

	w := csv.NewWriter(resp)
	header := append([]string{"date", "open", "high", "low", "close", "volume"}, names...)
	if err := w.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for i := 0; i < series.Len(); i++ {
		b := series.Bar(i)
		row[0] = b.Date.Format("2006-01-02")
		row[1] = formatCell(b.Open)
		row[2] = formatCell(b.High)
		row[3] = formatCell(b.Low)
		row[4] = formatCell(b.Close)
		row[5] = formatCell(b.Volume)
		for j, name := range names {
			row[6+j] = ""
			if is, ok := set.Get(name); ok {
				if v, defined := is.At(i); defined {
					row[6+j] = formatCell(v)
				}
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatCell(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
