package search

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.mongodb.org/mongo-driver/v2/bson"

	"citypulse/internal/logger"
	"citypulse/internal/metrics"
)

// Searcher returns ids of events matching a free-text term
type Searcher interface {
	SearchIDs(ctx context.Context, term string, city bson.ObjectID) ([]bson.ObjectID, error)
}

// BreakerSettings configures the breaker around the search index
type BreakerSettings struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:         "elasticsearch",
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// Breaker wraps a Searcher with a circuit breaker. While the circuit is open
// SearchIDs fails fast and the caller falls back to the database match.
type Breaker struct {
	next Searcher
	cb   *gobreaker.CircuitBreaker[[]bson.ObjectID]
	name string
}

func NewBreaker(next Searcher, s BreakerSettings) *Breaker {
	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]bson.ObjectID](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Get().Warn("Circuit breaker state transition",
				"breaker", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		// отмена запроса клиентом и усеченный ответ не считаются отказом индекса
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrTruncated)
		},
	})

	return &Breaker{next: next, cb: cb, name: s.Name}
}

func (b *Breaker) SearchIDs(ctx context.Context, term string, city bson.ObjectID) ([]bson.ObjectID, error) {
	ids, err := b.cb.Execute(func() ([]bson.ObjectID, error) {
		return b.next.SearchIDs(ctx, term, city)
	})
	switch {
	case err == nil, errors.Is(err, ErrTruncated):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}
	return ids, err
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
