package forecast

import (
	"math"
	"sort"

	"FinCast/internal/domain/models"
)

// node is one split in a regression tree. Leaves have left == nil and
// carry the mean target of their training rows.
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	value     float64
}

type tree struct {
	root *node
}

func (t *tree) predict(x []float64) float64 {
	n := t.root
	for n.left != nil {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// grow builds a subtree over the rows in idx. Splits greedily minimize
// the summed squared deviation of the two children; recursion stops on
// depth, node size, or a zero-variance node. The scan order is fixed,
// so identical inputs grow identical trees.
func grow(X [][]float64, y []float64, idx []int, depth int, cfg models.ModelConfig) *node {
	var sum, sumSq float64
	for _, i := range idx {
		sum += y[i]
		sumSq += y[i] * y[i]
	}
	n := float64(len(idx))
	mean := sum / n
	sse := sumSq - sum*sum/n

	if depth >= cfg.MaxDepth || len(idx) < 2*cfg.MinLeaf || sse <= 0 {
		return &node{value: mean}
	}

	feature, threshold, ok := bestSplit(X, y, idx, cfg.MinLeaf)
	if !ok {
		return &node{value: mean}
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &node{
		feature:   feature,
		threshold: threshold,
		left:      grow(X, y, left, depth+1, cfg),
		right:     grow(X, y, right, depth+1, cfg),
		value:     mean,
	}
}

// bestSplit scans every feature for the threshold minimizing the summed
// child squared error. Thresholds sit halfway between adjacent distinct
// values; splits leaving a child under minLeaf rows are skipped.
func bestSplit(X [][]float64, y []float64, idx []int, minLeaf int) (int, float64, bool) {
	var totalSum, totalSumSq float64
	for _, i := range idx {
		totalSum += y[i]
		totalSumSq += y[i] * y[i]
	}

	nFeatures := len(X[idx[0]])
	bestScore := math.Inf(1)
	bestFeature := -1
	bestThreshold := 0.0

	order := make([]int, len(idx))
	for f := 0; f < nFeatures; f++ {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

		sumL, sumSqL := 0.0, 0.0
		sumR, sumSqR := totalSum, totalSumSq
		for pos := 0; pos < len(order)-1; pos++ {
			v := y[order[pos]]
			sumL += v
			sumSqL += v * v
			sumR -= v
			sumSqR -= v * v

			// No threshold exists between equal values.
			if X[order[pos]][f] == X[order[pos+1]][f] {
				continue
			}
			nL := pos + 1
			nR := len(order) - nL
			if nL < minLeaf || nR < minLeaf {
				continue
			}
			score := (sumSqL - sumL*sumL/float64(nL)) + (sumSqR - sumR*sumR/float64(nR))
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = (X[order[pos]][f] + X[order[pos+1]][f]) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}
