package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2026-03-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2026, 3, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2026, 3, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestWindowStart(t *testing.T) {
	at := time.Date(2026, 3, 10, 10, 13, 42, 0, time.UTC)
	got := WindowStart(at, 5*time.Minute)
	want := time.Date(2026, 3, 10, 10, 10, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("window start = %v, want %v", got, want)
	}
}

func TestWindowStartAtBoundary(t *testing.T) {
	at := time.Date(2026, 3, 10, 10, 15, 0, 0, time.UTC)
	got := WindowStart(at, 5*time.Minute)
	if !got.Equal(at) {
		t.Fatalf("boundary timestamp should open a new window, got %v", got)
	}
}
