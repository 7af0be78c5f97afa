package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type BreakerConfig struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
}

// BreakerStore fails fast with a storage error while the wrapped backend keeps
// failing. Missing documents are not failures; only backend errors count.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker[Catalog]
}

func NewBreakerStore(next Store, cfg BreakerConfig, log *zap.Logger) *BreakerStore {
	if cfg.Name == "" {
		cfg.Name = "catalog-store"
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("store breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &BreakerStore{next: next, cb: gobreaker.NewCircuitBreaker[Catalog](st)}
}

func (s *BreakerStore) State() gobreaker.State { return s.cb.State() }

func (s *BreakerStore) Ping(ctx context.Context) error {
	if s.cb.State() == gobreaker.StateOpen {
		return gobreaker.ErrOpenState
	}
	return s.next.Ping(ctx)
}

func (s *BreakerStore) Load(ctx context.Context) (Catalog, error) {
	c, err := s.cb.Execute(func() (Catalog, error) {
		return s.next.Load(ctx)
	})
	if isBreakerErr(err) {
		return nil, readErr(err)
	}
	return c, err
}

func (s *BreakerStore) Save(ctx context.Context, c Catalog) error {
	_, err := s.cb.Execute(func() (Catalog, error) {
		return nil, s.next.Save(ctx, c)
	})
	if isBreakerErr(err) {
		return writeErr(err)
	}
	return err
}

func isBreakerErr(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
