package models

import "time"

// FeatureSchema fixes the order of model inputs and the build settings
// that produced them. Training and inference must agree on it exactly.
type FeatureSchema struct {
	Names    []string
	LagDepth int
	Horizon  int
}

func (s FeatureSchema) Len() int { return len(s.Names) }

func (s FeatureSchema) Equal(o FeatureSchema) bool {
	if s.LagDepth != o.LagDepth || s.Horizon != o.Horizon || len(s.Names) != len(o.Names) {
		return false
	}
	for i := range s.Names {
		if s.Names[i] != o.Names[i] {
			return false
		}
	}
	return true
}

// Diff describes the first difference against o, for error messages.
func (s FeatureSchema) Diff(o FeatureSchema) string {
	if s.LagDepth != o.LagDepth {
		return "lag depth differs"
	}
	if s.Horizon != o.Horizon {
		return "horizon differs"
	}
	n := len(s.Names)
	if len(o.Names) < n {
		n = len(o.Names)
	}
	for i := 0; i < n; i++ {
		if s.Names[i] != o.Names[i] {
			return "feature " + s.Names[i] + " vs " + o.Names[i]
		}
	}
	if len(s.Names) != len(o.Names) {
		return "feature count differs"
	}
	return ""
}

// FeatureMatrix holds one feature vector per usable date, rows ordered
// chronologically and aligned with Dates.
type FeatureMatrix struct {
	Schema FeatureSchema
	Dates  []time.Time
	Rows   [][]float64
}

func (m FeatureMatrix) Len() int { return len(m.Rows) }

// Dataset is the supervised-learning view of an enriched series: a
// chronological train/test split with aligned targets
// (target[i] = close at the row's date + horizon). Never shuffled.
type Dataset struct {
	Train       FeatureMatrix
	TrainTarget []float64
	Test        FeatureMatrix
	TestTarget  []float64
}
