package google

import (
	"context"
	stderrors "errors"
	"time"

	"rubik/internal/errors"
	"rubik/ports"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerProvider guards a SearchProvider with a circuit breaker. While the breaker is
// open, searches fail immediately instead of hammering a provider that is refusing us.
type BreakerProvider struct {
	next ports.SearchProvider
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerProvider wraps next; the breaker trips after consecutiveFailures failures
// in a row and lets a probe through after openTimeout
func NewBreakerProvider(next ports.SearchProvider, consecutiveFailures uint32, openTimeout time.Duration, logger *zap.Logger) *BreakerProvider {
	settings := gobreaker.Settings{
		Name:        "search-provider",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || stderrors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &BreakerProvider{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

var _ ports.SearchProvider = (*BreakerProvider)(nil)

func (b *BreakerProvider) Search(ctx context.Context, query string, opts ports.SearchOptions) ([]string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Search(ctx, query, opts)
	})
	if err != nil {
		if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errors.ExternalServiceError("search", err)
		}
		return nil, err
	}
	urls, _ := out.([]string)
	return urls, nil
}

// State reports the breaker state (closed, half-open, open)
func (b *BreakerProvider) State() string {
	return b.cb.State().String()
}
