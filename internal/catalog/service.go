package catalog

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	minRating = 1
	maxRating = 5
)

// Service owns the catalog operations. Every operation loads a fresh snapshot
// from the store; mutations hold the write lock from load through save so
// concurrent requests cannot lose each other's updates.
type Service struct {
	mu      sync.RWMutex
	store   Store
	log     *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) ListProducts(ctx context.Context) (Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Load(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.store.Load(ctx)
	if err != nil {
		return Product{}, err
	}
	i := c.index(id)
	if i < 0 {
		return Product{}, ErrNotFound
	}
	return c[i], nil
}

func (s *Service) AddReview(ctx context.Context, id int64, rating float64, comment string) (Product, error) {
	if math.IsNaN(rating) || rating < minRating || rating > maxRating {
		return Product{}, ErrInvalidRating
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Load(ctx)
	if err != nil {
		return Product{}, err
	}
	i := c.index(id)
	if i < 0 {
		return Product{}, ErrNotFound
	}

	c[i].Reviews = append(c[i].Reviews, Review{Rating: rating, Comment: comment})
	if err := s.save(ctx, c); err != nil {
		return Product{}, err
	}

	s.metrics.review()
	return c[i], nil
}

// Purchase is all-or-nothing: every line is checked against current stock
// before any product is decremented, and the catalog is saved once.
func (s *Service) Purchase(ctx context.Context, cart []CartLine) (Receipt, error) {
	want, err := aggregateCart(cart)
	if err != nil {
		return Receipt{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Load(ctx)
	if err != nil {
		return Receipt{}, err
	}

	for _, line := range want {
		i := c.index(line.ID)
		if i < 0 {
			s.metrics.purchase(purchaseRejected)
			return Receipt{}, &StockError{ProductID: line.ID, Requested: line.Quantity, Missing: true}
		}
		if c[i].Stock < line.Quantity {
			s.metrics.purchase(purchaseRejected)
			return Receipt{}, &StockError{ProductID: line.ID, Requested: line.Quantity, Available: c[i].Stock}
		}
	}

	for _, line := range want {
		i := c.index(line.ID)
		if i < 0 {
			return Receipt{}, fmt.Errorf("product %d disappeared after validation", line.ID)
		}
		c[i].Stock -= line.Quantity
	}

	if err := s.save(ctx, c); err != nil {
		s.metrics.purchase(purchaseFailed)
		return Receipt{}, err
	}

	s.metrics.purchase(purchaseCompleted)
	return Receipt{
		ID:        "r_" + uuid.NewString(),
		Lines:     want,
		CreatedAt: s.now().UTC(),
	}, nil
}

// aggregateCart merges repeated ids so the stock check sees the total asked
// for each product. First-seen order is kept.
func aggregateCart(cart []CartLine) ([]CartLine, error) {
	if len(cart) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrInvalidCart)
	}

	out := make([]CartLine, 0, len(cart))
	pos := make(map[int64]int, len(cart))
	for _, line := range cart {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for product %d must be positive", ErrInvalidCart, line.ID)
		}
		if j, ok := pos[line.ID]; ok {
			if out[j].Quantity > math.MaxInt64-line.Quantity {
				return nil, fmt.Errorf("%w: quantity overflow for product %d", ErrInvalidCart, line.ID)
			}
			out[j].Quantity += line.Quantity
			continue
		}
		pos[line.ID] = len(out)
		out = append(out, line)
	}
	return out, nil
}

func (s *Service) AdjustStock(ctx context.Context, id int64, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Load(ctx)
	if err != nil {
		return 0, err
	}
	i := c.index(id)
	if i < 0 {
		return 0, ErrNotFound
	}

	cur := c[i].Stock
	if delta > 0 && cur > math.MaxInt64-delta {
		return 0, fmt.Errorf("%w: product %d", ErrStockOverflow, id)
	}
	if cur+delta < 0 {
		return 0, fmt.Errorf("%w: product %d stock=%d delta=%d", ErrNegativeStock, id, cur, delta)
	}

	c[i].Stock = cur + delta
	if err := s.save(ctx, c); err != nil {
		return 0, err
	}

	s.metrics.adjustment()
	return c[i].Stock, nil
}

func (s *Service) Dashboard(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.store.Load(ctx)
	if err != nil {
		return Stats{}, err
	}
	return computeStats(c), nil
}

func (s *Service) save(ctx context.Context, c Catalog) error {
	if err := s.store.Save(ctx, c); err != nil {
		s.log.Error("save catalog failed", zap.Error(err))
		return err
	}
	s.log.Info("catalog saved", zap.Int("products", len(c)))
	return nil
}
