package errors

import (
	"context"
	"time"

	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/logging"
)

// DefaultRetryBaseDelay is the delay before the first retry.
const DefaultRetryBaseDelay = time.Second

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryOption customizes Retry.
type RetryOption func(*ErrorRecoveryContext)

// WithBaseDelay sets the delay unit; the wait before retry n is n × base.
func WithBaseDelay(d time.Duration) RetryOption {
	return func(erc *ErrorRecoveryContext) {
		if d >= 0 {
			erc.BaseDelay = d
		}
	}
}

// WithSleep replaces the timer used between attempts.
func WithSleep(sleep SleepFunc) RetryOption {
	return func(erc *ErrorRecoveryContext) {
		if sleep != nil {
			erc.Sleep = sleep
		}
	}
}

// WithLogger sets the logger that records retry attempts.
func WithLogger(logger *logging.Logger) RetryOption {
	return func(erc *ErrorRecoveryContext) {
		erc.Logger = logger
	}
}

// WithLanguage sets the language of the processed errors handed to
// OnFailure.
func WithLanguage(lang i18n.Language) RetryOption {
	return func(erc *ErrorRecoveryContext) {
		erc.Language = lang
	}
}

// OnFailure registers a callback invoked after every failed attempt.
func OnFailure(fn func(attempt int, processed *ProcessedError)) RetryOption {
	return func(erc *ErrorRecoveryContext) {
		erc.onFailure = fn
	}
}

// ErrorRecoveryContext tracks the state of one Retry call.
type ErrorRecoveryContext struct {
	Label        string
	AttemptCount int
	MaxAttempts  int
	BaseDelay    time.Duration
	Language     i18n.Language
	Context      context.Context
	Logger       *logging.Logger
	Sleep        SleepFunc

	onFailure func(int, *ProcessedError)
}

// CanRetry determines if another attempt is allowed after a failure
// classified as processed.
func (erc *ErrorRecoveryContext) CanRetry(processed *ProcessedError) bool {
	if erc.Context.Err() != nil {
		return false
	}
	return processed.ShouldRetry() && erc.AttemptCount < erc.MaxAttempts
}

// RetryDelay is the wait after the current attempt: base × attempt.
func (erc *ErrorRecoveryContext) RetryDelay() time.Duration {
	return erc.BaseDelay * time.Duration(erc.AttemptCount)
}

// WaitForRetry waits for the appropriate retry delay
func (erc *ErrorRecoveryContext) WaitForRetry() error {
	return erc.Sleep(erc.Context, erc.RetryDelay())
}

// Retry invokes op until it succeeds, fails with an error that is not worth
// retrying, or has been attempted maxRetries+1 times. The wait before retry
// n is n × the base delay. The last failure is returned unchanged.
//
// This is the only place the client retries a failed operation.
func Retry[T any](ctx context.Context, op func(context.Context) (T, error), label string, maxRetries int, opts ...RetryOption) (T, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}
	erc := &ErrorRecoveryContext{
		Label:       label,
		MaxAttempts: maxRetries + 1,
		BaseDelay:   DefaultRetryBaseDelay,
		Language:    i18n.English,
		Context:     ctx,
		Logger:      logging.GetGlobalLogger().WithComponent("retry"),
		Sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(erc)
	}

	var zero T
	for {
		erc.AttemptCount++
		result, err := op(ctx)
		if err == nil {
			if erc.AttemptCount > 1 {
				erc.Logger.Debug("Operation recovered after retry",
					"label", label, "attempt", erc.AttemptCount)
			}
			return result, nil
		}

		processed := Classify(err, erc.Language)
		if erc.onFailure != nil {
			erc.onFailure(erc.AttemptCount, processed)
		}

		if !erc.CanRetry(processed) {
			erc.Logger.Debug("Giving up on operation",
				"label", label,
				"attempt", erc.AttemptCount,
				"max_attempts", erc.MaxAttempts,
				"category", processed.Category.String())
			return zero, err
		}

		erc.Logger.Debug("Retrying operation",
			"label", label,
			"attempt", erc.AttemptCount,
			"category", processed.Category.String(),
			"delay", erc.RetryDelay())

		if waitErr := erc.WaitForRetry(); waitErr != nil {
			return zero, err
		}
	}
}

// RetryErr is Retry for operations without a result.
func RetryErr(ctx context.Context, op func(context.Context) error, label string, maxRetries int, opts ...RetryOption) error {
	_, err := Retry(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, label, maxRetries, opts...)
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
