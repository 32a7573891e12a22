package models

import (
	"errors"
	"math"
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC)
}

func validBar(d int, close float64) Bar {
	return Bar{Date: day(d), Open: close, High: close + 1, Low: close - 1, Close: close, Volume: 1000}
}

func TestNewSeries_Valid(t *testing.T) {
	bars := []Bar{validBar(3, 100), validBar(4, 101), validBar(5, 99)}
	s, err := NewSeries(bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("expected len 3, got %d", s.Len())
	}
	if s.First().Close != 100 || s.Last().Close != 99 {
		t.Errorf("first/last mismatch: %v %v", s.First(), s.Last())
	}

	// the constructor copies; mutating the input must not reach the series
	bars[0].Close = -1
	if s.Bar(0).Close != 100 {
		t.Error("series shares memory with the caller's slice")
	}
}

func TestNewSeries_Rejections(t *testing.T) {
	cases := []struct {
		name      string
		bars      []Bar
		wantIndex int
	}{
		{"empty", nil, -1},
		{"duplicate date", []Bar{validBar(3, 100), validBar(3, 101)}, 1},
		{"out of order", []Bar{validBar(4, 100), validBar(3, 101)}, 1},
		{"zero date", []Bar{{Open: 1, High: 2, Low: 0.5, Close: 1, Volume: 1}}, 0},
		{"nan close", []Bar{{Date: day(3), Open: 1, High: 2, Low: 0.5, Close: math.NaN(), Volume: 1}}, 0},
		{"inf volume", []Bar{{Date: day(3), Open: 1, High: 2, Low: 0.5, Close: 1, Volume: math.Inf(1)}}, 0},
		{"negative volume", []Bar{{Date: day(3), Open: 1, High: 2, Low: 0.5, Close: 1, Volume: -1}}, 0},
		{"low above high", []Bar{{Date: day(3), Open: 1, High: 1, Low: 2, Close: 1, Volume: 1}}, 0},
		{"close outside range", []Bar{{Date: day(3), Open: 1, High: 2, Low: 0.5, Close: 5, Volume: 1}}, 0},
		{"bad bar after good ones", []Bar{validBar(3, 100), validBar(4, 100), {Date: day(5), Open: 1, High: 2, Low: 0.5, Close: 5, Volume: 1}}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSeries(tc.bars)
			var invalid *InvalidSeriesError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidSeriesError, got %v", err)
			}
			if invalid.Index != tc.wantIndex {
				t.Errorf("expected offending index %d, got %d (%s)", tc.wantIndex, invalid.Index, invalid.Reason)
			}
			if ErrorKind(err) != "invalid_series" {
				t.Errorf("expected kind invalid_series, got %s", ErrorKind(err))
			}
		})
	}
}

func TestBarValidate_SingleBarScreen(t *testing.T) {
	if err := validBar(3, 100).Validate(); err != nil {
		t.Fatalf("valid bar rejected: %v", err)
	}
	b := validBar(3, 100)
	b.Low = b.High + 1
	if err := b.Validate(); err == nil {
		t.Fatal("expected error for low above high")
	}
}

func TestSeries_AccessorsCopy(t *testing.T) {
	s, err := NewSeries([]Bar{validBar(3, 100), validBar(4, 102)})
	if err != nil {
		t.Fatalf("series: %v", err)
	}

	closes := s.Closes()
	if len(closes) != 2 || closes[0] != 100 || closes[1] != 102 {
		t.Fatalf("unexpected closes %v", closes)
	}
	closes[0] = -1
	if s.Bar(0).Close != 100 {
		t.Error("Closes must return a copy")
	}

	dates := s.Dates()
	if !dates[0].Equal(day(3)) || !dates[1].Equal(day(4)) {
		t.Errorf("unexpected dates %v", dates)
	}

	bars := s.Bars()
	bars[1].Close = -1
	if s.Bar(1).Close != 102 {
		t.Error("Bars must return a copy")
	}
}
