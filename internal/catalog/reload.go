package catalog

import (
	"context"
	"fmt"
)

const ReloadJobName = "catalog-reload"

// LoadFunc fetches the full product list from the inventory service.
type LoadFunc func(ctx context.Context) ([]Product, error)

// ReloadJob replaces the catalog with a fresh product list. A failed load
// keeps the current products.
type ReloadJob struct {
	catalog *Catalog
	load    LoadFunc
}

func NewReloadJob(c *Catalog, load LoadFunc) *ReloadJob {
	return &ReloadJob{catalog: c, load: load}
}

func (j *ReloadJob) Name() string { return ReloadJobName }

func (j *ReloadJob) Run(ctx context.Context) error {
	products, err := j.load(ctx)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	if len(products) == 0 {
		return fmt.Errorf("loading catalog: inventory returned no products")
	}
	j.catalog.Replace(products)
	return nil
}
