package forecast

import (
	"math"

	"FinCast/internal/domain/models"
)

// Evaluate scores the model on the chronological holdout and fills the
// report. Direction accuracy is the percentage of test days where the
// predicted day-over-day move has the same sign as the actual one.
func Evaluate(model *Model, test models.FeatureMatrix, target []float64) (models.ModelReport, error) {
	report := models.ModelReport{TestRows: len(target)}
	if len(target) == 0 {
		return report, nil
	}

	predicted := make([]float64, len(target))
	for i, row := range test.Rows {
		p, _, err := model.Predict(row)
		if err != nil {
			return models.ModelReport{}, err
		}
		predicted[i] = p
	}

	var absErr, sqErr float64
	for i := range target {
		diff := predicted[i] - target[i]
		absErr += math.Abs(diff)
		sqErr += diff * diff
	}
	n := float64(len(target))
	report.MAE = absErr / n
	report.MSE = sqErr / n
	report.RMSE = math.Sqrt(report.MSE)

	mean := 0.0
	for _, v := range target {
		mean += v
	}
	mean /= n
	var ssTot float64
	for _, v := range target {
		d := v - mean
		ssTot += d * d
	}
	if ssTot > 0 {
		report.R2 = 1 - sqErr/ssTot
	}
	report.DirectionAccuracy = directionAccuracy(predicted, target)
	report.Confidence = clamp(report.R2*100, 0, 100)
	return report, nil
}

func directionAccuracy(predicted, actual []float64) float64 {
	if len(actual) < 2 {
		return 0
	}
	matches := 0
	for i := 1; i < len(actual); i++ {
		if sign(predicted[i]-predicted[i-1]) == sign(actual[i]-actual[i-1]) {
			matches++
		}
	}
	return 100 * float64(matches) / float64(len(actual)-1)
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// stddev is the population standard deviation of the per-tree outputs.
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}
