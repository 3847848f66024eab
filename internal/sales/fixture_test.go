package sales

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/beverage-pos/internal/cart"
	"github.com/angelmondragon/beverage-pos/internal/catalog"
	"github.com/angelmondragon/beverage-pos/internal/snapshot"
	"github.com/angelmondragon/beverage-pos/pkg/db/models"
	"github.com/angelmondragon/beverage-pos/pkg/enums"
)

const (
	lagerID  int64 = 100
	pieceID  int64 = 1
	packID   int64 = 2
	cartonID int64 = 3
)

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

type snapshotMap map[int64]snapshot.ProductSnapshot

func (s snapshotMap) Get(id int64) (snapshot.ProductSnapshot, bool) {
	snap, ok := s[id]
	return snap, ok
}

func lagerCatalog() (*catalog.Catalog, error) {
	lager, err := catalog.NewProduct(catalog.Product{
		ID:             lagerID,
		Name:           "Lager 65cl",
		BaseUnit:       catalog.Unit{ID: pieceID, Name: "Piece", Symbol: "pc", IsBaseUnit: true},
		StandardPrice:  decimal.NewFromInt(1000),
		WholesalePrice: decimal.NewNullDecimal(decimal.NewFromInt(800)),
		TaxRate:        decimal.NewFromInt(20),
		PackagingPrice: decimal.NewNullDecimal(decimal.NewFromInt(300)),
		IsActive:       true,
	}, []catalog.CompatibleUnit{
		{Unit: catalog.Unit{ID: packID, Name: "6-Pack", Symbol: "6pk"}, ConversionFactor: decimal.NewFromInt(6), IsActive: true},
		{Unit: catalog.Unit{ID: cartonID, Name: "Carton", Symbol: "ctn"}, ConversionFactor: decimal.NewFromInt(20), IsActive: true},
	})
	if err != nil {
		return nil, err
	}
	return catalog.New([]catalog.Product{lager}), nil
}

func lagerSnapshot(stock int64) snapshot.ProductSnapshot {
	return snapshot.ProductSnapshot{
		ProductID:  lagerID,
		BaseUnitID: pieceID,
		Units: []snapshot.UnitStock{
			{UnitID: pieceID, IsBaseUnit: true, Price: decimal.NewFromInt(1000), ConversionFactor: decimal.NewFromInt(1), AvailableQuantity: decimal.NewFromInt(stock)},
			{UnitID: packID, Price: decimal.NewFromInt(6000), ConversionFactor: decimal.NewFromInt(6), AvailableQuantity: decimal.NewFromInt(stock / 6)},
			{UnitID: cartonID, Price: decimal.NewFromInt(20000), ConversionFactor: decimal.NewFromInt(20), AvailableQuantity: decimal.NewFromInt(stock / 20)},
		},
	}
}

type fakeCommitter struct {
	mu          sync.Mutex
	nextID      int64
	saleNumber  string
	createErr   error
	completeErr error
	created     []SaleRequest
	completed   []int64
	gate        chan struct{}
	entered     chan struct{}
}

func (f *fakeCommitter) CreateSale(ctx context.Context, req SaleRequest) (SaleReceipt, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return SaleReceipt{}, f.createErr
	}
	f.created = append(f.created, req)
	f.nextID++
	return SaleReceipt{ID: f.nextID, SaleNumber: f.saleNumber, Status: "pending"}, nil
}

func (f *fakeCommitter) CompleteSale(ctx context.Context, saleID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, saleID)
	return f.completeErr
}

type fakeJournal struct {
	entries []*models.SaleJournalEntry
	err     error
}

func (f *fakeJournal) Record(ctx context.Context, entry *models.SaleJournalEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

type countingRefresher struct {
	calls int
}

func (c *countingRefresher) Schedule() { c.calls++ }

type fakeSequencer struct {
	next int64
	err  error
}

func (f *fakeSequencer) NextSequence(ctx context.Context, name string, day time.Time) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.next++
	return f.next, nil
}

var errUpstream = errors.New("upstream unavailable")

type harness struct {
	ledger    *cart.Ledger
	snapshots snapshotMap
	committer *fakeCommitter
	journal   *fakeJournal
	refresher *countingRefresher
	workflow  *Workflow
}

func newHarness(t testing.TB, stock int64, mode enums.CommitMode) *harness {
	t.Helper()
	h, err := buildHarness(stock, mode)
	if err != nil {
		t.Fatalf("build harness: %v", err)
	}
	return h
}

func buildHarness(stock int64, mode enums.CommitMode) (*harness, error) {
	products, err := lagerCatalog()
	if err != nil {
		return nil, err
	}
	snaps := snapshotMap{lagerID: lagerSnapshot(stock)}
	h := &harness{
		ledger:    cart.New(products, snaps, mode),
		snapshots: snaps,
		committer: &fakeCommitter{saleNumber: "S-2026-0001"},
		journal:   &fakeJournal{},
		refresher: &countingRefresher{},
	}
	h.workflow, err = NewWorkflow(WorkflowParams{
		SessionID:             "session-test",
		Ledger:                h.ledger,
		Committer:             h.committer,
		Journal:               h.journal,
		Refresher:             h.refresher,
		RequireCustomerOnHold: true,
		Now:                   func() time.Time { return fixedNow },
		NewKey:                func() string { return "key-1" },
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}
