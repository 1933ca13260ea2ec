package queue

import (
	"errors"
	"testing"
	"time"
)

func TestRetryDelayForDoubles(t *testing.T) {
	rq := &RedisQueue{config: &QueueConfig{RetryDelay: 60 * time.Second}}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 60 * time.Second},
		{2, 120 * time.Second},
		{3, 240 * time.Second},
		{0, 60 * time.Second},
	}

	for _, tc := range cases {
		if got := rq.retryDelayFor(tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: got %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	base := errors.New("model artifact corrupt")

	if IsTerminal(base) {
		t.Fatal("plain error should not be terminal")
	}
	if !IsTerminal(Terminal(base)) {
		t.Fatal("wrapped error should be terminal")
	}
	wrapped := Terminal(base)
	if !errors.Is(wrapped, base) {
		t.Fatal("Terminal should preserve the error chain")
	}
	if Terminal(nil) != nil {
		t.Fatal("Terminal(nil) should be nil")
	}
}
