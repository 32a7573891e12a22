package forecast

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"

	"FinCast/internal/domain/models"
)

// Model is a fitted ensemble plus the schema it was trained under.
// Prediction against any other schema fails before a value is read.
type Model struct {
	Config models.ModelConfig
	Schema models.FeatureSchema

	trees []*tree
}

func normalizeModelConfig(cfg models.ModelConfig) models.ModelConfig {
	def := models.DefaultModelConfig()
	if cfg.Trees < 1 {
		cfg.Trees = def.Trees
	}
	if cfg.MaxDepth < 1 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.MinLeaf < 1 {
		cfg.MinLeaf = def.MinLeaf
	}
	if cfg.SampleRatio <= 0 || cfg.SampleRatio > 1 {
		cfg.SampleRatio = def.SampleRatio
	}
	return cfg
}

// Train fits the bagged ensemble. Each tree draws its own bootstrap
// sample from an RNG seeded Seed+treeIndex, so the result does not
// depend on how the trees are scheduled across workers.
func Train(ctx context.Context, X [][]float64, y []float64, schema models.FeatureSchema, cfg models.ModelConfig) (*Model, error) {
	if len(X) != len(y) {
		return nil, fmt.Errorf("train: %d rows but %d targets", len(X), len(y))
	}
	if len(X) < 2 {
		return nil, &models.InsufficientDataError{Op: "train", Required: 2, Available: len(X)}
	}
	if constantTarget(y) {
		return nil, &models.DegenerateInputError{Op: "train", Reason: "zero-variance target"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg = normalizeModelConfig(cfg)

	sample := int(cfg.SampleRatio * float64(len(X)))
	if sample < 1 {
		sample = 1
	}

	trees := make([]*tree, cfg.Trees)
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := runtime.GOMAXPROCS(0)
	if workers > cfg.Trees {
		workers = cfg.Trees
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				rng := rand.New(rand.NewSource(cfg.Seed + int64(i)))
				idx := make([]int, sample)
				for j := range idx {
					idx[j] = rng.Intn(len(X))
				}
				trees[i] = &tree{root: grow(X, y, idx, 0, cfg)}
			}
		}()
	}

	for i := 0; i < cfg.Trees; i++ {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	return &Model{Config: cfg, Schema: schema, trees: trees}, nil
}

// Predict runs every tree over the feature vector and returns the
// ensemble mean along with the per-tree outputs the confidence band is
// derived from.
func (m *Model) Predict(x []float64) (float64, []float64, error) {
	if m == nil || len(m.trees) == 0 {
		return 0, nil, fmt.Errorf("predict: model is not trained")
	}
	if len(x) != m.Schema.Len() {
		return 0, nil, &models.SchemaMismatchError{ExpectedCount: m.Schema.Len(), GotCount: len(x)}
	}
	perTree := make([]float64, len(m.trees))
	sum := 0.0
	for i, t := range m.trees {
		v := t.predict(x)
		perTree[i] = v
		sum += v
	}
	return sum / float64(len(m.trees)), perTree, nil
}

func (m *Model) Trees() int { return len(m.trees) }

func constantTarget(y []float64) bool {
	for _, v := range y[1:] {
		if v != y[0] {
			return false
		}
	}
	return true
}
