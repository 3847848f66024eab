package catalog

import "sync"

// Filter decides whether a product reaches the engine at all.
type Filter func(Product) bool

// ActiveOnly drops inactive products.
func ActiveOnly() Filter {
	return func(p Product) bool { return p.IsActive }
}

// SellableCategories keeps products whose category is in ids. An empty set
// keeps everything.
func SellableCategories(ids ...int64) Filter {
	if len(ids) == 0 {
		return func(Product) bool { return true }
	}
	allowed := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	return func(p Product) bool {
		_, ok := allowed[p.CategoryID]
		return ok
	}
}

// Catalog holds the filtered products of a session, keyed by id. The product
// set can be swapped wholesale when the catalog is reloaded.
type Catalog struct {
	mu       sync.RWMutex
	products map[int64]Product
	order    []int64
	filters  []Filter
}

// New builds a catalog from products that pass every filter.
func New(products []Product, filters ...Filter) *Catalog {
	c := &Catalog{filters: filters}
	c.Replace(products)
	return c
}

// Replace swaps the product set, applying the catalog's filters.
func (c *Catalog) Replace(products []Product) {
	kept := make(map[int64]Product, len(products))
	order := make([]int64, 0, len(products))
	for _, p := range products {
		if !c.keep(p) {
			continue
		}
		if _, dup := kept[p.ID]; !dup {
			order = append(order, p.ID)
		}
		kept[p.ID] = p
	}
	c.mu.Lock()
	c.products = kept
	c.order = order
	c.mu.Unlock()
}

func (c *Catalog) keep(p Product) bool {
	if p.Units == nil {
		return false
	}
	for _, f := range c.filters {
		if f != nil && !f(p) {
			return false
		}
	}
	return true
}

// Get returns the product with the given id.
func (c *Catalog) Get(id int64) (Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	return p, ok
}

// Products returns the products in load order.
func (c *Catalog) Products() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.products[id])
	}
	return out
}

// IDs returns the product ids in load order.
func (c *Catalog) IDs() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]int64, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
