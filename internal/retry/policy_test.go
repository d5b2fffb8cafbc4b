package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type statusErr int

func (s statusErr) Error() string   { return fmt.Sprintf("http %d", int(s)) }
func (s statusErr) HTTPStatus() int { return int(s) }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestDoStopsAfterAttemptBudget(t *testing.T) {
	calls := 0
	err := Default().NoWait().Do(context.Background(), func(context.Context) error {
		calls++
		return statusErr(503)
	})
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	var status StatusCoder
	if !errors.As(err, &status) || status.HTTPStatus() != 503 {
		t.Fatalf("err = %v, want last 503", err)
	}
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	err := Default().NoWait().Do(context.Background(), func(context.Context) error {
		calls++
		return statusErr(400)
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestValueRecovers(t *testing.T) {
	calls := 0
	var retried []int
	p := Default().NoWait()
	p.OnRetry = func(n int, err error) { retried = append(retried, n) }

	got, err := Value(context.Background(), p, func(context.Context) (int, error) {
		calls++
		if calls < 2 {
			return 0, timeoutErr{}
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Value returned error: %v", err)
	}
	if got != 42 || calls != 2 {
		t.Fatalf("got %d after %d calls", got, calls)
	}
	if len(retried) != 1 || retried[0] != 0 {
		t.Fatalf("OnRetry calls = %v", retried)
	}
}

func TestZeroAttemptsMeansOne(t *testing.T) {
	calls := 0
	_ = Policy{}.NoWait().Do(context.Background(), func(context.Context) error {
		calls++
		return statusErr(500)
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDefaultScheduleBackoff(t *testing.T) {
	backoff := DefaultSchedule().Backoff()
	tests := []struct {
		n    int
		err  error
		want time.Duration
	}{
		{0, statusErr(500), 3 * time.Second},
		{1, statusErr(503), 5 * time.Second},
		{2, statusErr(503), 7 * time.Second},
		{0, timeoutErr{}, 5 * time.Second},
		{1, context.DeadlineExceeded, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := backoff(tt.n, tt.err); got != tt.want {
			t.Fatalf("backoff(%d, %v) = %s, want %s", tt.n, tt.err, got, tt.want)
		}
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{context.DeadlineExceeded, true},
		{timeoutErr{}, true},
		{statusErr(500), true},
		{statusErr(503), true},
		{statusErr(429), true},
		{statusErr(408), true},
		{statusErr(404), false},
		{statusErr(401), false},
		{fmt.Errorf("wrapped: %w", statusErr(502)), true},
		{errors.New("boom"), false},
	}
	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Fatalf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := Default()
	p.Backoff = func(int, error) time.Duration { return time.Hour }
	p.OnRetry = func(int, error) { cancel() }

	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, func(context.Context) error {
			calls++
			return statusErr(503)
		})
	}()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error after cancellation")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
