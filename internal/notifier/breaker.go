package notifier

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/Kosench/go-url-tracker/internal/model"
)

type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         5 * time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

// BreakerNotifier fails fast with gobreaker.ErrOpenState while the wrapped sink keeps failing.
type BreakerNotifier struct {
	next    Notifier
	breaker *gobreaker.CircuitBreaker
}

func NewBreakerNotifier(next Notifier, cfg BreakerConfig, log *zap.Logger) *BreakerNotifier {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("circuit", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &BreakerNotifier{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *BreakerNotifier) NotifyExpired(ctx context.Context, record *model.URLRecord) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.next.NotifyExpired(ctx, record)
	})
	return err
}

func (b *BreakerNotifier) State() gobreaker.State {
	return b.breaker.State()
}
