package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeDateOnly(t *testing.T) {
	got, ok := ParseTime("2024-10-10")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Year() != 2024 || got.Month() != time.October || got.Day() != 10 {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestNextBusinessDaySkipsWeekend(t *testing.T) {
	fri := time.Date(2024, 10, 11, 0, 0, 0, 0, time.UTC) // Friday
	got := NextBusinessDay(fri)
	want := time.Date(2024, 10, 14, 0, 0, 0, 0, time.UTC) // Monday
	if !got.Equal(want) {
		t.Fatalf("next business day after friday = %v, want %v", got, want)
	}
}

func TestAddBusinessDays(t *testing.T) {
	wed := time.Date(2024, 10, 9, 0, 0, 0, 0, time.UTC) // Wednesday
	got := AddBusinessDays(wed, 5)
	want := time.Date(2024, 10, 16, 0, 0, 0, 0, time.UTC) // next Wednesday
	if !got.Equal(want) {
		t.Fatalf("+5 business days = %v, want %v", got, want)
	}
	if !AddBusinessDays(wed, 0).Equal(wed) {
		t.Fatalf("+0 business days must be identity")
	}
}

func TestWeekdayIndexMondayZero(t *testing.T) {
	mon := time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC)
	sun := time.Date(2024, 10, 13, 0, 0, 0, 0, time.UTC)
	if WeekdayIndex(mon) != 0 {
		t.Fatalf("monday index = %d, want 0", WeekdayIndex(mon))
	}
	if WeekdayIndex(sun) != 6 {
		t.Fatalf("sunday index = %d, want 6", WeekdayIndex(sun))
	}
}
