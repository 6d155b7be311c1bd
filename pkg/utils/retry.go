package utils

import (
	"context"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

type RetryConfig struct {
	// Attempts counts the first call.
	Attempts uint
	Delay    time.Duration
}

var DefaultRetryConfig = RetryConfig{
	Attempts: 3,
	Delay:    time.Second,
}

// nonRetryable lists server error fragments for which another attempt cannot succeed.
var nonRetryable = []string{
	"could not decode",
}

// IsRetryable reports whether err may succeed on a later attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, frag := range nonRetryable {
		if strings.Contains(msg, frag) {
			return false
		}
	}
	return true
}

// Retry calls fn up to cfg.Attempts times with a fixed delay and returns the
// last error. Errors rejected by IsRetryable stop immediately.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := cfg.Attempts
	if attempts == 0 {
		attempts = 1
	}
	return retry.DoWithData(
		func() (T, error) { return fn(ctx) },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(cfg.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(IsRetryable),
		retry.LastErrorOnly(true),
	)
}
