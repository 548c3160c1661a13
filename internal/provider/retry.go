package provider

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hxuan190/balancer-sor/internal/metrics"
)

// withRetry runs fn until it succeeds or maxRetries retries are spent,
// doubling the delay after each failure.
func withRetry(ctx context.Context, name string, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries || ctx.Err() != nil {
			return err
		}

		metrics.ProviderRetries.WithLabelValues(name).Inc()
		log.Warn().Err(err).Str("provider", name).Int("attempt", attempt+1).Dur("backoff", delay).Msg("retrying pool data request")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
