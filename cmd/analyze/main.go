package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"FinCast/internal/domain/models"
	"FinCast/internal/services/feature"
	"FinCast/internal/services/forecast"
	"FinCast/internal/services/indicator"
	"FinCast/internal/usecase"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/util"
)

// analyze runs the full pipeline offline against a CSV of daily bars:
// indicators, stance summary, and forecast, without ClickHouse, Kafka,
// or Redis.
func main() {
	var (
		csvPath  = flag.String("csv", "", "path to a CSV of daily bars (date,open,high,low,close,volume)")
		symbol   = flag.String("symbol", "", "symbol label for the output")
		horizon  = flag.Int("horizon", 10, "business days to forecast")
		lags     = flag.Int("lags", 10, "lag depth for the feature matrix")
		trees    = flag.Int("trees", 100, "ensemble size")
		seed     = flag.Int64("seed", 42, "random seed")
		strategy = flag.String("strategy", "iterative", "forecast strategy: single_shot or iterative")
		z        = flag.Float64("z", 1.96, "confidence band z-score")
		outPath  = flag.String("out", "", "write the JSON report here instead of stdout")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *csvPath == "" || *symbol == "" {
		flag.Usage()
		os.Exit(2)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	l, err := applogger.New(&applogger.Config{Level: level, Format: "console", Output: "stderr"})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	bars, err := loadBars(*csvPath)
	if err != nil {
		log.Fatalf("load %s: %v", *csvPath, err)
	}
	series, err := models.NewSeries(bars)
	if err != nil {
		log.Fatalf("series: %v", err)
	}

	strat, err := models.ParseStrategy(*strategy)
	if err != nil {
		log.Fatalf("%v", err)
	}
	cfg := models.DefaultForecastConfig()
	cfg.Horizon = *horizon
	cfg.LagDepth = *lags
	cfg.Strategy = strat
	cfg.ConfidenceZ = *z
	cfg.Model.Trees = *trees
	cfg.Model.Seed = *seed

	// Ctrl-C aborts training mid-ensemble.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sym := util.NormalizeSymbol(*symbol)
	start := time.Now()

	engine := indicator.NewEngine(l)
	enriched, err := engine.Enrich(series, models.DefaultIndicatorConfig())
	if err != nil {
		log.Fatalf("indicators: %v", err)
	}
	summary, err := usecase.Summarize(sym, enriched)
	if err != nil {
		log.Fatalf("summary: %v", err)
	}
	predictor := forecast.NewPredictor(feature.NewBuilder(l), l)
	fc, err := predictor.Forecast(ctx, sym, enriched, cfg)
	if err != nil {
		log.Fatalf("forecast: %v", err)
	}

	result := models.AnalysisResult{
		ID:         uuid.NewString(),
		Symbol:     sym,
		AsOf:       series.Last().Date,
		Bars:       series.Len(),
		Latest:     enriched.Indicators.Latest(),
		Summary:    summary,
		Forecast:   fc,
		DurationMs: time.Since(start).Milliseconds(),
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("encode report: %v", err)
	}
	if *outPath != "" {
		if err := os.WriteFile(*outPath, append(out, '\n'), 0o644); err != nil {
			log.Fatalf("write %s: %v", *outPath, err)
		}
	} else {
		fmt.Println(string(out))
	}

	log.Printf("%s: %d bars, verdict=%s confidence=%.1f%% (%d trees, %s)",
		sym, series.Len(), summary.Verdict, fc.Report.Confidence, *trees, time.Since(start).Round(time.Millisecond))
}

// loadBars reads daily bars from a CSV with a header row. Column order
// is free; names are matched case-insensitively and extra columns are
// ignored.
func loadBars(path string) ([]models.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("no data rows")
	}

	idx := map[string]int{}
	for i, name := range records[0] {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range []string{"date", "open", "high", "low", "close", "volume"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	bars := make([]models.Bar, 0, len(records)-1)
	for n, rec := range records[1:] {
		ts, ok := util.ParseTime(rec[idx["date"]])
		if !ok {
			return nil, fmt.Errorf("row %d: unrecognized date %q", n+2, rec[idx["date"]])
		}
		b := models.Bar{
			Date: time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
		}
		for col, dst := range map[string]*float64{
			"open": &b.Open, "high": &b.High, "low": &b.Low, "close": &b.Close, "volume": &b.Volume,
		} {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx[col]]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad %s: %w", n+2, col, err)
			}
			*dst = v
		}
		bars = append(bars, b)
	}
	return bars, nil
}
