package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/beverage-pos/internal/catalog"
	"github.com/angelmondragon/beverage-pos/internal/snapshot"
	"github.com/angelmondragon/beverage-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/beverage-pos/pkg/errors"
)

const (
	lagerID  int64 = 100
	waterID  int64 = 200
	pieceID  int64 = 1
	packID   int64 = 2
	cartonID int64 = 3
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type snapshots map[int64]snapshot.ProductSnapshot

func (s snapshots) Get(id int64) (snapshot.ProductSnapshot, bool) {
	snap, ok := s[id]
	return snap, ok
}

type fixture struct {
	catalog   *catalog.Catalog
	snapshots snapshots
}

func newFixture(t *testing.T, lagerStock int64) *fixture {
	t.Helper()
	piece := catalog.Unit{ID: pieceID, Name: "Piece", Symbol: "pc", IsBaseUnit: true}
	lager, err := catalog.NewProduct(catalog.Product{
		ID:             lagerID,
		Name:           "Lager 65cl",
		BaseUnit:       piece,
		StandardPrice:  d(1000),
		WholesalePrice: decimal.NewNullDecimal(d(800)),
		TaxRate:        d(20),
		PackagingPrice: decimal.NewNullDecimal(d(300)),
		IsActive:       true,
	}, []catalog.CompatibleUnit{
		{Unit: catalog.Unit{ID: packID, Name: "6-Pack", Symbol: "6pk"}, ConversionFactor: d(6), IsActive: true},
		{Unit: catalog.Unit{ID: cartonID, Name: "Carton", Symbol: "ctn"}, ConversionFactor: d(20), IsActive: true},
	})
	require.NoError(t, err)
	water, err := catalog.NewProduct(catalog.Product{
		ID:            waterID,
		Name:          "Water 1.5l",
		BaseUnit:      piece,
		StandardPrice: d(2500),
		IsActive:      true,
	}, nil)
	require.NoError(t, err)

	return &fixture{
		catalog: catalog.New([]catalog.Product{lager, water}),
		snapshots: snapshots{
			lagerID: {
				ProductID:  lagerID,
				BaseUnitID: pieceID,
				Units: []snapshot.UnitStock{
					{UnitID: pieceID, IsBaseUnit: true, Price: d(1000), ConversionFactor: d(1), AvailableQuantity: d(lagerStock)},
					{UnitID: packID, Price: d(6000), ConversionFactor: d(6), AvailableQuantity: d(lagerStock / 6)},
					{UnitID: cartonID, Price: d(20000), ConversionFactor: d(20), AvailableQuantity: d(lagerStock / 20)},
				},
			},
		},
	}
}

func (f *fixture) ledger(mode enums.CommitMode) *Ledger {
	return New(f.catalog, f.snapshots, mode)
}

func key(unitID int64, mode enums.PricingMode) Key {
	return Key{ProductID: lagerID, UnitID: unitID, Mode: mode}
}

func TestAddBeyondStockInCompleteModeIsRejected(t *testing.T) {
	f := newFixture(t, 10)
	l := f.ledger(enums.CommitModeComplete)

	var rejected int
	for i := 0; i < 12; i++ {
		if _, err := l.Add(lagerID, pieceID, enums.PricingModeStandard); err != nil {
			assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeReservationExceeded), "unexpected error %v", err)
			rejected++
		}
	}
	assert.Equal(t, 2, rejected)
	require.Len(t, l.Lines(), 1)
	assert.Equal(t, 10, l.Lines()[0].Quantity)
}

func TestAddBeyondStockInPendingModeSucceeds(t *testing.T) {
	f := newFixture(t, 10)
	l := f.ledger(enums.CommitModePending)

	for i := 0; i < 12; i++ {
		_, err := l.Add(lagerID, pieceID, enums.PricingModeStandard)
		require.NoError(t, err)
	}
	line, ok := l.Line(key(pieceID, enums.PricingModeStandard))
	require.True(t, ok)
	assert.Equal(t, 12, line.Quantity)
}

func TestAddMergesByKey(t *testing.T) {
	f := newFixture(t, 100)
	l := f.ledger(enums.CommitModeComplete)

	_, err := l.Add(lagerID, packID, enums.PricingModeStandard)
	require.NoError(t, err)
	line, err := l.Add(lagerID, packID, enums.PricingModeStandard)
	require.NoError(t, err)
	assert.Equal(t, 2, line.Quantity)

	_, err = l.Add(lagerID, packID, enums.PricingModeWholesale)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Len(), "different pricing mode is a different line")
}

func TestAddCrossUnitReservationSharesBasePool(t *testing.T) {
	f := newFixture(t, 45)
	l := f.ledger(enums.CommitModeComplete)

	_, err := l.Add(lagerID, cartonID, enums.PricingModeStandard)
	require.NoError(t, err)

	res, err := l.Availability(lagerID)
	require.NoError(t, err)
	pieces, _ := res.ForUnit(pieceID)
	cartons, _ := res.ForUnit(cartonID)
	assert.True(t, pieces.AvailableQuantity.Equal(d(25)))
	assert.True(t, cartons.AvailableQuantity.Equal(d(1)))

	_, err = l.Add(lagerID, cartonID, enums.PricingModeStandard)
	require.NoError(t, err)
	_, err = l.Add(lagerID, cartonID, enums.PricingModeStandard)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeReservationExceeded))

	for i := 0; i < 5; i++ {
		_, err = l.Add(lagerID, pieceID, enums.PricingModeStandard)
		require.NoError(t, err)
	}
	_, err = l.Add(lagerID, pieceID, enums.PricingModeStandard)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeReservationExceeded))
}

func TestAddWithoutSnapshotIsStaleInCompleteMode(t *testing.T) {
	f := newFixture(t, 10)
	l := f.ledger(enums.CommitModeComplete)

	_, err := l.Add(waterID, pieceID, enums.PricingModeStandard)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStaleSnapshot))
	assert.True(t, l.IsEmpty())
}

func TestAddWithoutSnapshotInPendingModeUsesCatalogPrice(t *testing.T) {
	f := newFixture(t, 10)
	l := f.ledger(enums.CommitModePending)

	line, err := l.Add(waterID, pieceID, enums.PricingModeStandard)
	require.NoError(t, err)
	assert.True(t, line.UnitPrice.Equal(d(2500)), "price %s", line.UnitPrice)

	delete(f.snapshots, lagerID)
	pack, err := l.Add(lagerID, packID, enums.PricingModeWholesale)
	require.NoError(t, err)
	assert.True(t, pack.UnitPrice.Equal(d(4800)), "catalog wholesale price times factor, got %s", pack.UnitPrice)

	err = l.SetCommitMode(enums.CommitModeComplete)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStaleSnapshot), "unexpected error %v", err)
	assert.Equal(t, enums.CommitModePending, l.CommitMode())
}

func TestSwitchToCompleteRejectsPendingOverReservation(t *testing.T) {
	f := newFixture(t, 10)
	l := f.ledger(enums.CommitModePending)
	for i := 0; i < 12; i++ {
		_, err := l.Add(lagerID, pieceID, enums.PricingModeStandard)
		require.NoError(t, err)
	}

	err := l.SetCommitMode(enums.CommitModeComplete)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeReservationExceeded), "unexpected error %v", err)
	details, _ := pkgerrors.As(err).Details().(map[string]any)
	assert.Equal(t, "12", details["requested"])
	assert.Equal(t, "10", details["available"])

	assert.Equal(t, enums.CommitModePending, l.CommitMode())
	line, ok := l.Line(key(pieceID, enums.PricingModeStandard))
	require.True(t, ok)
	assert.Equal(t, 12, line.Quantity)

	require.NoError(t, l.SetQuantity(key(pieceID, enums.PricingModeStandard), 10))
	require.NoError(t, l.SetCommitMode(enums.CommitModeComplete))
	assert.Equal(t, enums.CommitModeComplete, l.CommitMode())
	require.NoError(t, l.VerifyStock())
}

func TestAddRejectsUnknownProductAndUnit(t *testing.T) {
	f := newFixture(t, 10)
	l := f.ledger(enums.CommitModeComplete)

	_, err := l.Add(999, pieceID, enums.PricingModeStandard)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = l.Add(lagerID, 42, enums.PricingModeStandard)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = l.Add(lagerID, pieceID, "bulk")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestSetQuantityBounds(t *testing.T) {
	f := newFixture(t, 45)
	l := f.ledger(enums.CommitModeComplete)
	k := key(cartonID, enums.PricingModeStandard)

	_, err := l.Add(lagerID, cartonID, enums.PricingModeStandard)
	require.NoError(t, err)

	require.NoError(t, l.SetQuantity(k, 2))
	err = l.SetQuantity(k, 3)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeReservationExceeded))
	line, _ := l.Line(k)
	assert.Equal(t, 2, line.Quantity, "rejected change leaves the line untouched")

	require.NoError(t, l.SetQuantity(k, 1))

	require.NoError(t, l.SetCommitMode(enums.CommitModePending))
	require.NoError(t, l.SetQuantity(k, 9))
}

func TestSetQuantityZeroEqualsRemove(t *testing.T) {
	f := newFixture(t, 45)
	a := f.ledger(enums.CommitModeComplete)
	b := f.ledger(enums.CommitModeComplete)
	k := key(packID, enums.PricingModeStandard)

	for _, l := range []*Ledger{a, b} {
		_, err := l.Add(lagerID, packID, enums.PricingModeStandard)
		require.NoError(t, err)
		_, err = l.Add(lagerID, pieceID, enums.PricingModeStandard)
		require.NoError(t, err)
	}

	require.NoError(t, a.SetQuantity(k, 0))
	b.Remove(k)

	assert.Equal(t, b.Lines(), a.Lines())
	assert.Equal(t, b.Packaging(), a.Packaging())
}

func TestSetQuantityValidation(t *testing.T) {
	f := newFixture(t, 45)
	l := f.ledger(enums.CommitModeComplete)

	err := l.SetQuantity(key(pieceID, enums.PricingModeStandard), -1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	err = l.SetQuantity(key(pieceID, enums.PricingModeStandard), 3)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestRemoveIsUnconditionalAndClearEmpties(t *testing.T) {
	f := newFixture(t, 45)
	l := f.ledger(enums.CommitModeComplete)

	l.Remove(key(pieceID, enums.PricingModeStandard))
	_, err := l.Add(lagerID, pieceID, enums.PricingModeStandard)
	require.NoError(t, err)

	l.Clear()
	assert.True(t, l.IsEmpty())
	assert.Empty(t, l.Packaging())
}

func TestPriceIsStampedAtCreation(t *testing.T) {
	f := newFixture(t, 45)
	l := f.ledger(enums.CommitModeComplete)

	_, err := l.Add(lagerID, packID, enums.PricingModeStandard)
	require.NoError(t, err)

	snap := f.snapshots[lagerID]
	snap.Units[1].Price = d(6600)
	f.snapshots[lagerID] = snap

	line, err := l.Add(lagerID, packID, enums.PricingModeStandard)
	require.NoError(t, err)
	assert.True(t, line.UnitPrice.Equal(d(6000)), "existing line keeps its price")

	l.Remove(line.Key)
	line, err = l.Add(lagerID, packID, enums.PricingModeStandard)
	require.NoError(t, err)
	assert.True(t, line.UnitPrice.Equal(d(6600)), "re-added line takes the new price")
}

func TestChangePricingModeRoundTrip(t *testing.T) {
	f := newFixture(t, 45)
	l := f.ledger(enums.CommitModeComplete)

	original, err := l.Add(lagerID, packID, enums.PricingModeStandard)
	require.NoError(t, err)

	wholesale, err := l.ChangePricingMode(original.Key, enums.PricingModeWholesale)
	require.NoError(t, err)
	assert.True(t, wholesale.UnitPrice.Equal(d(4800)), "got %s", wholesale.UnitPrice)

	back, err := l.ChangePricingMode(wholesale.Key, enums.PricingModeStandard)
	require.NoError(t, err)
	assert.True(t, back.UnitPrice.Equal(original.UnitPrice))
	assert.Equal(t, original.Key, back.Key)
}

func TestChangePricingModeMergesIntoExistingLine(t *testing.T) {
	f := newFixture(t, 45)
	l := f.ledger(enums.CommitModeComplete)

	_, err := l.Add(lagerID, pieceID, enums.PricingModeStandard)
	require.NoError(t, err)
	_, err = l.Add(lagerID, pieceID, enums.PricingModeWholesale)
	require.NoError(t, err)
	_, err = l.Add(lagerID, pieceID, enums.PricingModeWholesale)
	require.NoError(t, err)

	merged, err := l.ChangePricingMode(key(pieceID, enums.PricingModeStandard), enums.PricingModeWholesale)
	require.NoError(t, err)
	assert.Equal(t, 3, merged.Quantity)
	assert.Equal(t, 1, l.Len())
	assert.True(t, merged.UnitPrice.Equal(d(800)))
}

func TestPackagingFollowsBaseQuantity(t *testing.T) {
	f := newFixture(t, 100)
	l := f.ledger(enums.CommitModeComplete)

	_, err := l.Add(lagerID, cartonID, enums.PricingModeStandard)
	require.NoError(t, err)
	_, err = l.Add(lagerID, pieceID, enums.PricingModeStandard)
	require.NoError(t, err)

	pkg := l.Packaging()
	require.Len(t, pkg, 1)
	assert.True(t, pkg[0].Quantity.Equal(d(21)))
	assert.Equal(t, enums.PackagingStatusConsignation, pkg[0].Status)

	_, err = l.Add(waterID, pieceID, enums.PricingModeStandard)
	assert.Error(t, err, "water has no snapshot")

	totals := l.Totals()
	assert.True(t, totals.Packaging.Equal(d(6300)))
	assert.True(t, totals.Subtotal.Equal(d(21000)))
	assert.True(t, totals.GrandTotal.Equal(d(27300)))

	_, err = l.SetPackaging(lagerID, d(5), enums.PackagingStatusExchange)
	require.NoError(t, err)
	assert.True(t, l.Totals().Packaging.IsZero(), "exchanged packaging is not charged")

	require.NoError(t, l.SetQuantity(key(cartonID, enums.PricingModeStandard), 2))
	assert.True(t, l.Packaging()[0].Quantity.Equal(d(5)), "manual quantity survives line changes")

	l.Remove(key(cartonID, enums.PricingModeStandard))
	l.Remove(key(pieceID, enums.PricingModeStandard))
	assert.Empty(t, l.Packaging())
}

func TestSetPackagingValidation(t *testing.T) {
	f := newFixture(t, 100)
	l := f.ledger(enums.CommitModeComplete)

	_, err := l.SetPackaging(lagerID, d(1), enums.PackagingStatusDue)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = l.Add(lagerID, pieceID, enums.PricingModeStandard)
	require.NoError(t, err)
	_, err = l.SetPackaging(lagerID, d(-1), enums.PackagingStatusDue)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	_, err = l.SetPackaging(lagerID, d(1), "lost")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestTotalsSplitTax(t *testing.T) {
	f := newFixture(t, 100)
	l := f.ledger(enums.CommitModeComplete)

	_, err := l.Add(lagerID, pieceID, enums.PricingModeStandard)
	require.NoError(t, err)
	require.NoError(t, l.SetQuantity(key(pieceID, enums.PricingModeStandard), 6))

	totals := l.Totals()
	assert.Equal(t, 1, totals.Lines)
	assert.Equal(t, 6, totals.Items)
	assert.True(t, totals.Subtotal.Equal(d(6000)))
	assert.True(t, totals.Tax.Equal(d(1000)), "tax %s", totals.Tax)
	assert.True(t, totals.Net.Equal(d(5000)), "net %s", totals.Net)
}

func TestSetCommitModeValidation(t *testing.T) {
	f := newFixture(t, 10)
	l := f.ledger("")
	assert.Equal(t, enums.CommitModeComplete, l.CommitMode())
	assert.Error(t, l.SetCommitMode("later"))
	require.NoError(t, l.SetCommitMode(enums.CommitModePending))
	assert.Equal(t, enums.CommitModePending, l.CommitMode())
}
