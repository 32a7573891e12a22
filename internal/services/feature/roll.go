package feature

import (
	"time"

	"FinCast/internal/domain/models"
	"FinCast/pkg/util"
)

// AdvanceRow rolls a canonical feature row one step forward for
// iterative forecasting: the predicted close becomes the new close,
// lags shift one day into the past, returns are recomputed against the
// shifted lags, and the calendar columns follow the new date. Volume
// and indicator columns keep their last observed values.
func AdvanceRow(schema models.FeatureSchema, row []float64, predicted float64, date time.Time) ([]float64, error) {
	if len(row) != schema.Len() {
		return nil, &models.SchemaMismatchError{ExpectedCount: schema.Len(), GotCount: len(row)}
	}

	out := make([]float64, len(row))
	copy(out, row)

	base := len(baseColumns)
	lagIdx := func(k int) int { return base + 2*(k-1) }

	for k := schema.LagDepth; k >= 2; k-- {
		out[lagIdx(k)] = out[lagIdx(k-1)]
	}
	out[lagIdx(1)] = row[0]
	out[0] = predicted

	for k := 1; k <= schema.LagDepth; k++ {
		lag := out[lagIdx(k)]
		ret := 0.0
		if lag != 0 {
			ret = predicted/lag - 1
		}
		out[lagIdx(k)+1] = ret
	}

	out[len(out)-2] = float64(util.WeekdayIndex(date))
	out[len(out)-1] = float64(date.Day())
	return out, nil
}
