package catalog

import "time"

type Review struct {
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment"`
}

type Product struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Stock   int64    `json:"stock"`
	Reviews []Review `json:"reviews"`
}

// Catalog is the whole persisted document. Order is significant and ids are unique.
type Catalog []Product

func (c Catalog) index(id int64) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers never share review slices with a store.
func (c Catalog) Clone() Catalog {
	if c == nil {
		return Catalog{}
	}
	out := make(Catalog, len(c))
	for i, p := range c {
		out[i] = p.clone()
	}
	return out
}

func (p Product) clone() Product {
	reviews := make([]Review, len(p.Reviews))
	copy(reviews, p.Reviews)
	p.Reviews = reviews
	return p
}

// normalize replaces null review lists so they encode as [] rather than null.
func (c Catalog) normalize() Catalog {
	if c == nil {
		return Catalog{}
	}
	for i := range c {
		if c[i].Reviews == nil {
			c[i].Reviews = []Review{}
		}
	}
	return c
}

type CartLine struct {
	ID       int64 `json:"id"`
	Quantity int64 `json:"quantity"`
}

type Receipt struct {
	ID        string     `json:"id"`
	Lines     []CartLine `json:"lines"`
	CreatedAt time.Time  `json:"created_at"`
}

type SalesPotential struct {
	Name   string  `json:"name"`
	Stock  int64   `json:"stock"`
	Rating float64 `json:"rating"`
}

type Stats struct {
	TotalStock            int64            `json:"totalStock"`
	PositiveReviews       int64            `json:"positiveReviews"`
	NegativeReviews       int64            `json:"negativeReviews"`
	ProductSalesPotential []SalesPotential `json:"productSalesPotential"`
}
