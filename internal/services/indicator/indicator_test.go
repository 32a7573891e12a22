package indicator

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"FinCast/internal/domain/models"
)

func assertClose(t *testing.T, got, want, tol float64, msg string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: expected %.6f, got %.6f", msg, want, got)
	}
}

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func walk(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	price := 100.0
	for i := range out {
		price += rng.Float64()*4 - 2
		out[i] = price
	}
	return out
}

func TestSMA_Ramp(t *testing.T) {
	s, err := SMA(ramp(5), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.DefinedFrom != 2 {
		t.Fatalf("expected DefinedFrom=2, got %d", s.DefinedFrom)
	}
	for i := 0; i < 2; i++ {
		if !math.IsNaN(s.Values[i]) {
			t.Errorf("index %d: warm-up should be NaN, got %v", i, s.Values[i])
		}
	}
	assertClose(t, s.Values[2], 2, 1e-9, "sma[2]")
	assertClose(t, s.Values[3], 3, 1e-9, "sma[3]")
	assertClose(t, s.Values[4], 4, 1e-9, "sma[4]")
}

func TestSMA_InsufficientData(t *testing.T) {
	_, err := SMA(ramp(4), 5)
	var insufficient *models.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if insufficient.Required != 5 || insufficient.Available != 4 {
		t.Errorf("expected required=5 available=4, got %d/%d", insufficient.Required, insufficient.Available)
	}
}

func TestSMA_BadWindow(t *testing.T) {
	if _, err := SMA(ramp(5), 0); err == nil {
		t.Fatal("expected error for window=0")
	}
}

func TestEMA_SeededWithSMA(t *testing.T) {
	s, err := EMA(ramp(5), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.DefinedFrom != 2 {
		t.Fatalf("expected DefinedFrom=2, got %d", s.DefinedFrom)
	}
	// k = 2/(3+1) = 0.5, seed = mean(1,2,3) = 2
	assertClose(t, s.Values[2], 2, 1e-9, "ema[2]")
	assertClose(t, s.Values[3], 3, 1e-9, "ema[3]")
	assertClose(t, s.Values[4], 4, 1e-9, "ema[4]")
}

func TestEMA_Deterministic(t *testing.T) {
	in := walk(100, 7)
	a, err := EMA(in, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := EMA(in, 12)
	for i := a.DefinedFrom; i < len(in); i++ {
		if a.Values[i] != b.Values[i] {
			t.Fatalf("index %d: runs differ: %v vs %v", i, a.Values[i], b.Values[i])
		}
	}
}

func TestRSI_WilderHandComputed(t *testing.T) {
	closes := []float64{10, 11, 12, 11, 12, 13}
	s, err := RSI(closes, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.DefinedFrom != 3 {
		t.Fatalf("expected DefinedFrom=3, got %d", s.DefinedFrom)
	}
	// avgGain=2/3 avgLoss=1/3 -> rs=2 -> 66.667, then Wilder updates
	assertClose(t, s.Values[3], 66.666667, 1e-4, "rsi[3]")
	assertClose(t, s.Values[4], 77.777778, 1e-4, "rsi[4]")
	assertClose(t, s.Values[5], 85.185185, 1e-4, "rsi[5]")
}

func TestRSI_AllGainsIs100(t *testing.T) {
	s, err := RSI(ramp(20), 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := s.DefinedFrom; i < 20; i++ {
		if s.Values[i] != 100 {
			t.Errorf("index %d: expected RSI=100 on monotone gains, got %v", i, s.Values[i])
		}
	}
}

func TestRSI_FlatSeriesIs100(t *testing.T) {
	s, err := RSI(flat(20, 50), 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// zero loss means RSI pins at 100 regardless of gains
	for i := s.DefinedFrom; i < 20; i++ {
		if s.Values[i] != 100 {
			t.Errorf("index %d: expected RSI=100 on flat series, got %v", i, s.Values[i])
		}
	}
}

func TestRSI_Bounded(t *testing.T) {
	s, err := RSI(walk(300, 42), 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := s.DefinedFrom; i < 300; i++ {
		if s.Values[i] < 0 || s.Values[i] > 100 {
			t.Fatalf("index %d: RSI out of [0,100]: %v", i, s.Values[i])
		}
	}
}

func TestRSI_InsufficientData(t *testing.T) {
	_, err := RSI(ramp(14), 14)
	var insufficient *models.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if insufficient.Required != 15 {
		t.Errorf("expected required=15 (window deltas need window+1 rows), got %d", insufficient.Required)
	}
}

func TestMACD_LinearRamp(t *testing.T) {
	line, sig, hist, err := MACD(ramp(10), 2, 3, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line.DefinedFrom != 2 {
		t.Errorf("expected line DefinedFrom=2, got %d", line.DefinedFrom)
	}
	if sig.DefinedFrom != 3 || hist.DefinedFrom != 3 {
		t.Errorf("expected signal/hist DefinedFrom=3, got %d/%d", sig.DefinedFrom, hist.DefinedFrom)
	}
	// On a unit ramp EMA(2) settles at price-0.5 and EMA(3) at price-1,
	// so the line holds 0.5 and the histogram vanishes.
	for i := 2; i < 10; i++ {
		assertClose(t, line.Values[i], 0.5, 1e-9, "macd line")
	}
	for i := 3; i < 10; i++ {
		assertClose(t, sig.Values[i], 0.5, 1e-9, "macd signal")
		assertClose(t, hist.Values[i], 0, 1e-9, "macd hist")
	}
	if !math.IsNaN(sig.Values[2]) {
		t.Errorf("signal at index 2 should be undefined, got %v", sig.Values[2])
	}
}

func TestMACD_FastMustBeBelowSlow(t *testing.T) {
	if _, _, _, err := MACD(ramp(40), 26, 12, 9); err == nil {
		t.Fatal("expected error when fast >= slow")
	}
}

func TestMACD_InsufficientData(t *testing.T) {
	_, _, _, err := MACD(ramp(33), 12, 26, 9)
	var insufficient *models.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if insufficient.Required != 34 {
		t.Errorf("expected required=34, got %d", insufficient.Required)
	}
}

func TestBollinger_HandComputed(t *testing.T) {
	upper, middle, lower, err := Bollinger(ramp(5), 3, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// window {1,2,3}: mean 2, sample std 1 -> bands at 0 and 4
	assertClose(t, middle.Values[2], 2, 1e-9, "bb_middle[2]")
	assertClose(t, upper.Values[2], 4, 1e-9, "bb_upper[2]")
	assertClose(t, lower.Values[2], 0, 1e-9, "bb_lower[2]")
	assertClose(t, upper.Values[4], 6, 1e-9, "bb_upper[4]")
	assertClose(t, lower.Values[4], 2, 1e-9, "bb_lower[4]")
}

func TestBollinger_Ordering(t *testing.T) {
	upper, middle, lower, err := Bollinger(walk(250, 9), 20, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := upper.DefinedFrom; i < 250; i++ {
		if lower.Values[i] > middle.Values[i] || middle.Values[i] > upper.Values[i] {
			t.Fatalf("index %d: band ordering violated: %v / %v / %v",
				i, lower.Values[i], middle.Values[i], upper.Values[i])
		}
	}
}

func TestBollinger_ConstantSeriesCollapses(t *testing.T) {
	upper, middle, lower, err := Bollinger(flat(30, 100), 20, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := upper.DefinedFrom; i < 30; i++ {
		if upper.Values[i] != middle.Values[i] || lower.Values[i] != middle.Values[i] {
			t.Fatalf("index %d: bands should collapse onto the middle on zero variance: %v / %v / %v",
				i, lower.Values[i], middle.Values[i], upper.Values[i])
		}
	}
}

func TestATR_HandComputed(t *testing.T) {
	highs := []float64{10, 12, 13, 14}
	lows := []float64{9, 10, 11, 12}
	closes := []float64{9.5, 11, 12, 13}
	s, err := ATR(highs, lows, closes, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.DefinedFrom != 2 {
		t.Fatalf("expected DefinedFrom=2, got %d", s.DefinedFrom)
	}
	// TR1=max(2,2.5,0.5)=2.5, TR2=2 -> ATR[2]=2.25, then Wilder: (2.25+2)/2
	assertClose(t, s.Values[2], 2.25, 1e-9, "atr[2]")
	assertClose(t, s.Values[3], 2.125, 1e-9, "atr[3]")
}

func TestATR_GapDominatesRange(t *testing.T) {
	// Overnight gap: |high-prevClose| exceeds the day's own range.
	highs := []float64{10, 20, 21}
	lows := []float64{9, 19, 20}
	closes := []float64{9.5, 19.5, 20.5}
	s, err := ATR(highs, lows, closes, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertClose(t, s.Values[1], 10.5, 1e-9, "atr[1] should use the gap, not high-low")
}

func TestATR_LengthMismatch(t *testing.T) {
	if _, err := ATR(ramp(5), ramp(4), ramp(5), 2); err == nil {
		t.Fatal("expected error on mismatched input lengths")
	}
}

func TestWarmupNeverZeroFilled(t *testing.T) {
	in := walk(60, 3)
	s, err := RSI(in, 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < s.DefinedFrom; i++ {
		if !math.IsNaN(s.Values[i]) {
			t.Fatalf("index %d: warm-up must be NaN, got %v", i, s.Values[i])
		}
		if s.Defined(i) {
			t.Fatalf("index %d: Defined should be false before DefinedFrom", i)
		}
	}
}
