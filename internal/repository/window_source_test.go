package repository

import (
	"context"
	"testing"
	"time"
)

func TestFixedWindowSourceAt(t *testing.T) {
	src := NewFixedWindowSource(5 * time.Minute)
	ts := time.Date(2025, 3, 10, 10, 13, 42, 0, time.UTC)

	w, err := src.At(context.Background(), "s1", ts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantStart := time.Date(2025, 3, 10, 10, 10, 0, 0, time.UTC)
	if !w.Start.Equal(wantStart) {
		t.Fatalf("start: got %v, want %v", w.Start, wantStart)
	}
	if !w.End.Equal(wantStart.Add(5 * time.Minute)) {
		t.Fatalf("end: got %v", w.End)
	}
	if !w.Contains(ts) {
		t.Fatal("window must contain its own timestamp")
	}
	if w.Contains(w.End) {
		t.Fatal("window end is exclusive")
	}
}

func TestFixedWindowSourceCurrentIsClosed(t *testing.T) {
	src := NewFixedWindowSource(5 * time.Minute)
	now := time.Date(2025, 3, 10, 10, 13, 42, 0, time.UTC)

	w, err := src.Current(context.Background(), "s1", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantStart := time.Date(2025, 3, 10, 10, 5, 0, 0, time.UTC)
	if !w.Start.Equal(wantStart) {
		t.Fatalf("start: got %v, want %v", w.Start, wantStart)
	}
	if !now.After(w.End) && !now.Equal(w.End) {
		t.Fatalf("current window must already be closed: end %v, now %v", w.End, now)
	}
}

func TestFixedWindowSourceMonotonic(t *testing.T) {
	src := NewFixedWindowSource(5 * time.Minute)
	base := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	var prevStart time.Time
	for i := 0; i < 12; i++ {
		w, err := src.At(context.Background(), "s1", base.Add(time.Duration(i)*5*time.Minute))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if i > 0 && !w.Start.After(prevStart) {
			t.Fatalf("window %d not monotonically increasing: %v <= %v", i, w.Start, prevStart)
		}
		prevStart = w.Start
	}
}
