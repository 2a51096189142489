package rate

import (
	"context"
	"testing"
	"time"
)

type stubWindowStore struct {
	counts map[string]int64
	ttl    time.Duration
}

func (s *stubWindowStore) IncrementWindow(_ context.Context, key string, _ time.Duration) (int64, time.Duration, error) {
	if s.counts == nil {
		s.counts = make(map[string]int64)
	}
	s.counts[key]++
	return s.counts[key], s.ttl, nil
}

func TestAllowIssueWithinLimit(t *testing.T) {
	limiter := NewLimiter(&stubWindowStore{ttl: 40 * time.Second}, 3)

	for i := 0; i < 3; i++ {
		retryAfter, ok, err := limiter.AllowIssue(context.Background(), 7)
		if err != nil {
			t.Fatalf("AllowIssue #%d: %v", i+1, err)
		}
		if !ok || retryAfter != 0 {
			t.Fatalf("request %d blocked inside the limit", i+1)
		}
	}

	retryAfter, ok, err := limiter.AllowIssue(context.Background(), 7)
	if err != nil {
		t.Fatalf("AllowIssue over limit: %v", err)
	}
	if ok {
		t.Fatal("fourth request allowed, want blocked")
	}
	if retryAfter != 40 {
		t.Fatalf("retryAfter = %d, want 40", retryAfter)
	}
}

func TestAllowIssuePerUserKeys(t *testing.T) {
	store := &stubWindowStore{ttl: time.Minute}
	limiter := NewLimiter(store, 1)

	if _, ok, _ := limiter.AllowIssue(context.Background(), 1); !ok {
		t.Fatal("user 1 first request blocked")
	}
	if _, ok, _ := limiter.AllowIssue(context.Background(), 2); !ok {
		t.Fatal("user 2 must have an independent window")
	}
	if _, ok, _ := limiter.AllowIssue(context.Background(), 1); ok {
		t.Fatal("user 1 second request allowed, want blocked")
	}
}

func TestZeroLimitDisables(t *testing.T) {
	limiter := NewLimiter(nil, 0)

	for i := 0; i < 100; i++ {
		if _, ok, err := limiter.AllowIssue(context.Background(), 7); err != nil || !ok {
			t.Fatalf("disabled limiter blocked request %d (err=%v)", i+1, err)
		}
	}
}

func TestCeilSeconds(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want int64
	}{
		{0, 0},
		{-time.Second, 0},
		{300 * time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{time.Minute, 60},
	}
	for _, tc := range cases {
		if got := ceilSeconds(tc.in); got != tc.want {
			t.Errorf("ceilSeconds(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
