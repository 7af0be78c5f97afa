package catalog

import (
	"context"
	"encoding/json"
	"time"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

// Store persists the whole catalog as a single document. Load returns an
// empty catalog when nothing has been saved yet; any other failure wraps
// ErrStorageRead. Save failures wrap ErrStorageWrite.
type Store interface {
	Load(ctx context.Context) (Catalog, error)
	Save(ctx context.Context, c Catalog) error
	Ping(ctx context.Context) error
}

func encodeCatalog(c Catalog) ([]byte, error) {
	return json.MarshalIndent(c.normalize(), "", "  ")
}

func decodeCatalog(raw []byte) (Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return c.normalize(), nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

// SeedIfEmpty copies src into dst when dst holds no products. It reports
// whether a copy happened.
func SeedIfEmpty(ctx context.Context, dst, src Store) (bool, error) {
	cur, err := dst.Load(ctx)
	if err != nil {
		return false, err
	}
	if len(cur) > 0 {
		return false, nil
	}

	seed, err := src.Load(ctx)
	if err != nil {
		return false, err
	}
	if len(seed) == 0 {
		return false, nil
	}
	if err := dst.Save(ctx, seed); err != nil {
		return false, err
	}
	return true, nil
}
