package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"http 429", errors.New("Error 429, Message: quota exceeded"), true},
		{"resource exhausted", errors.New("rpc error: RESOURCE_EXHAUSTED"), true},
		{"wrapped 429", fmt.Errorf("generate content: %w", errors.New("status 429")), true},
		{"structured", &RateLimitError{Err: errors.New("too many requests")}, true},
		{"wrapped structured", fmt.Errorf("call: %w", &RateLimitError{Err: errors.New("x")}), true},
		{"server error", errors.New("Error 500, Message: internal"), false},
		{"lowercase quota is not matched", errors.New("quota exceeded"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimited(tt.err); got != tt.want {
				t.Errorf("IsRateLimited(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDoSucceedsAfterRateLimits(t *testing.T) {
	rec := &sleepRecorder{}
	policy := Policy{MaxAttempts: 4, InitialDelay: 2 * time.Second, Sleep: rec.sleep}

	calls := 0
	got, err := Do(context.Background(), policy, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("Error 429, Status: RESOURCE_EXHAUSTED")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != "ok" {
		t.Errorf("Do() = %q, want ok", got)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}

	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if diff := cmp.Diff(want, rec.delays); diff != "" {
		t.Errorf("delays mismatch (-want +got):\n%s", diff)
	}
}

func TestDoDoesNotRetryOtherErrors(t *testing.T) {
	rec := &sleepRecorder{}
	policy := Policy{MaxAttempts: 3, InitialDelay: time.Second, Sleep: rec.sleep}
	boom := errors.New("invalid audio")

	calls := 0
	_, err := Do(context.Background(), policy, func(ctx context.Context) (int, error) {
		calls++
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Do() error = %v, want %v", err, boom)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(rec.delays) != 0 {
		t.Errorf("slept %v, want no sleep", rec.delays)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	rec := &sleepRecorder{}
	policy := Policy{MaxAttempts: 3, InitialDelay: 100 * time.Millisecond, Sleep: rec.sleep}
	limited := errors.New("Error 429, Message: quota")

	var retried []int
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		retried = append(retried, attempt)
	}

	calls := 0
	_, err := Do(context.Background(), policy, func(ctx context.Context) (string, error) {
		calls++
		return "", limited
	})
	if err == nil {
		t.Fatal("Do() expected error")
	}
	if !errors.Is(err, limited) {
		t.Errorf("Do() error = %v, want wrapping %v", err, limited)
	}
	if !IsRateLimited(err) {
		t.Errorf("exhausted error %q no longer signals rate limit", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}

	wantDelays := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if diff := cmp.Diff(wantDelays, rec.delays); diff != "" {
		t.Errorf("delays mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2}, retried); diff != "" {
		t.Errorf("OnRetry attempts mismatch (-want +got):\n%s", diff)
	}
}

func TestDoZeroPolicyMakesOneAttempt(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{}, func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("429")
	})
	if err == nil {
		t.Fatal("Do() expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := Policy{MaxAttempts: 3, InitialDelay: time.Hour}
	calls := 0
	_, err := Do(ctx, policy, func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("429")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestPolicyDelay(t *testing.T) {
	p := Policy{InitialDelay: 2 * time.Second}
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	for i, w := range want {
		if got := p.Delay(i); got != w {
			t.Errorf("Delay(%d) = %v, want %v", i, got, w)
		}
	}
}
