package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	retrygo "github.com/avast/retry-go/v4"
)

const (
	defaultAttempts        = 3
	defaultServerErrorBase = 3 * time.Second
	defaultServerErrorStep = 2 * time.Second
	defaultTimeoutWait     = 5 * time.Second
)

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// Policy describes how an operation is retried.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Backoff returns the wait after the zero-based failed attempt n.
	Backoff func(n int, err error) time.Duration
	// Retryable reports whether err warrants another attempt.
	Retryable func(err error) bool
	// OnRetry is called before each wait.
	OnRetry func(n int, err error)
}

// Schedule configures the default backoff.
type Schedule struct {
	ServerErrorBase time.Duration
	ServerErrorStep time.Duration
	TimeoutWait     time.Duration
}

// DefaultSchedule waits 3s, 5s, 7s... after server errors and 5s after
// timeouts.
func DefaultSchedule() Schedule {
	return Schedule{
		ServerErrorBase: defaultServerErrorBase,
		ServerErrorStep: defaultServerErrorStep,
		TimeoutWait:     defaultTimeoutWait,
	}
}

// Backoff returns a backoff function for the schedule.
func (s Schedule) Backoff() func(int, error) time.Duration {
	return func(n int, err error) time.Duration {
		if IsTimeout(err) {
			return s.TimeoutWait
		}
		return s.ServerErrorBase + time.Duration(n)*s.ServerErrorStep
	}
}

// Default returns the three-attempt transient-error policy.
func Default() Policy {
	return New(defaultAttempts, DefaultSchedule())
}

// New builds a transient-error policy with the given budget and schedule.
func New(attempts int, schedule Schedule) Policy {
	return Policy{
		Attempts:  attempts,
		Backoff:   schedule.Backoff(),
		Retryable: IsTransient,
	}
}

// NoWait returns a copy of p without backoff delays.
func (p Policy) NoWait() Policy {
	p.Backoff = func(int, error) time.Duration { return 0 }
	return p
}

func (p Policy) attempts() uint {
	if p.Attempts <= 0 {
		return 1
	}
	return uint(p.Attempts)
}

// Do runs op until it succeeds, returns a non-retryable error, exhausts the
// attempt budget, or ctx is done. The last error is returned unwrapped.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	_, err := Value(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = DefaultSchedule().Backoff()
	}
	opts := []retrygo.Option{
		retrygo.Context(ctx),
		retrygo.Attempts(p.attempts()),
		retrygo.LastErrorOnly(true),
		retrygo.RetryIf(retryable),
		retrygo.DelayType(func(n uint, err error, _ *retrygo.Config) time.Duration {
			return backoff(int(n), err)
		}),
	}
	if p.OnRetry != nil {
		opts = append(opts, retrygo.OnRetry(func(n uint, err error) {
			p.OnRetry(int(n), err)
		}))
	}
	return retrygo.DoWithData(func() (T, error) {
		return op(ctx)
	}, opts...)
}

// IsTimeout reports whether err is a request timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var status StatusCoder
	if errors.As(err, &status) {
		code := status.HTTPStatus()
		return code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout
	}
	return false
}

// IsServerError reports whether err carries a 5xx status or a rate limit.
func IsServerError(err error) bool {
	var status StatusCoder
	if !errors.As(err, &status) {
		return false
	}
	code := status.HTTPStatus()
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
}

// IsTransient reports timeouts, server errors, and dropped connections.
// Caller cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if IsTimeout(err) || IsServerError(err) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
