package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/beverage-pos/pkg/logger"
	"github.com/angelmondragon/beverage-pos/pkg/metrics"
)

const (
	defaultBatchSize = 200
	maxParallelFetch = 4
)

// Source fetches fresh snapshots from the inventory service.
type Source interface {
	FetchSnapshots(ctx context.Context, productIDs []int64) (map[int64]ProductSnapshot, error)
}

// Cache persists the last known snapshots across restarts.
type Cache interface {
	Load(ctx context.Context, productIDs []int64) (map[int64]ProductSnapshot, error)
	Save(ctx context.Context, snapshots map[int64]ProductSnapshot) error
}

// StoreParams configure the snapshot store.
type StoreParams struct {
	Source    Source
	Cache     Cache
	Logger    *logger.Logger
	Metrics   *metrics.POSMetrics
	BatchSize int
	Now       func() time.Time
}

// Store holds the current stock snapshot per product. Readers never block on
// a refresh in flight; a refresh swaps the whole set once every batch came back.
type Store struct {
	source    Source
	cache     Cache
	logg      *logger.Logger
	metrics   *metrics.POSMetrics
	batchSize int
	now       func() time.Time

	mu        sync.RWMutex
	items     map[int64]ProductSnapshot
	fetchedAt time.Time
}

// NewStore builds an empty store.
func NewStore(params StoreParams) (*Store, error) {
	if params.Source == nil {
		return nil, fmt.Errorf("snapshot source required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		source:    params.Source,
		cache:     params.Cache,
		logg:      logg,
		metrics:   params.Metrics,
		batchSize: batch,
		now:       now,
		items:     map[int64]ProductSnapshot{},
	}, nil
}

// Get returns the snapshot of a product. ok is false until one was loaded.
func (s *Store) Get(productID int64) (ProductSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.items[productID]
	return snap, ok
}

// FetchedAt returns the time of the last successful live refresh.
func (s *Store) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

// Len returns the number of products with a snapshot.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Replace swaps the whole snapshot set.
func (s *Store) Replace(snapshots map[int64]ProductSnapshot) {
	next := make(map[int64]ProductSnapshot, len(snapshots))
	for id, snap := range snapshots {
		next[id] = snap
	}
	s.mu.Lock()
	s.items = next
	s.mu.Unlock()
}

// Refresh fetches every product in batches and replaces the set. On error the
// previous snapshots stay in place.
func (s *Store) Refresh(ctx context.Context, productIDs []int64) error {
	if len(productIDs) == 0 {
		return nil
	}
	fetched, err := s.fetch(ctx, productIDs)
	if err != nil {
		return err
	}

	at := s.now()
	for id, snap := range fetched {
		if snap.FetchedAt.IsZero() {
			snap.FetchedAt = at
			fetched[id] = snap
		}
	}

	s.mu.Lock()
	s.items = fetched
	s.fetchedAt = at
	s.mu.Unlock()

	s.metrics.SetSnapshotRefreshed(at)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event":     "snapshot.refreshed",
		"requested": len(productIDs),
		"received":  len(fetched),
	})
	s.logg.Info(ctx, "stock snapshot refreshed")

	if s.cache != nil {
		if err := s.cache.Save(ctx, fetched); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "snapshot cache save failed")
		}
	}
	return nil
}

func (s *Store) fetch(ctx context.Context, productIDs []int64) (map[int64]ProductSnapshot, error) {
	var (
		mu  sync.Mutex
		out = make(map[int64]ProductSnapshot, len(productIDs))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetch)
	for start := 0; start < len(productIDs); start += s.batchSize {
		end := start + s.batchSize
		if end > len(productIDs) {
			end = len(productIDs)
		}
		batch := productIDs[start:end]
		g.Go(func() error {
			got, err := s.source.FetchSnapshots(gctx, batch)
			if err != nil {
				return fmt.Errorf("fetch snapshots: %w", err)
			}
			mu.Lock()
			for id, snap := range got {
				out[id] = snap
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// WarmStart fills products that have no snapshot yet from the cache. Live
// data already in the store is never overwritten. Returns the number of
// products loaded.
func (s *Store) WarmStart(ctx context.Context, productIDs []int64) (int, error) {
	if s.cache == nil || len(productIDs) == 0 {
		return 0, nil
	}
	cached, err := s.cache.Load(ctx, productIDs)
	if err != nil {
		return 0, fmt.Errorf("load cached snapshots: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	loaded := 0
	for id, snap := range cached {
		if _, ok := s.items[id]; ok {
			continue
		}
		s.items[id] = snap
		loaded++
	}
	return loaded, nil
}
