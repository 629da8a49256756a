package core

import (
	"context"
	"testing"
	"time"

	"aquacore/internal/infra/persistence/memory"

	"github.com/shopspring/decimal"
)

// newSeededStore builds an in-memory store with the default rule set and the
// given batches committed.
func newSeededStore(t *testing.T, batches []Batch) *memory.Store {
	t.Helper()
	store := memory.NewStore(NewDefaultRulesEngine())
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		for _, batch := range batches {
			if _, err := tx.CreateBatch(batch); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return store
}

// testFarm is the common fixture: a service on a fixed clock with one species
// and one pond committed.
type testFarm struct {
	svc     *Service
	species Species
	pond    Pond
	now     time.Time
}

func newTestFarm(t *testing.T, opts ...ServiceOption) *testFarm {
	t.Helper()
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	opts = append([]ServiceOption{WithClock(ClockFunc(func() time.Time { return now }))}, opts...)
	svc := NewInMemoryService(nil, opts...)

	species, _, err := svc.CreateSpecies(context.Background(), Species{
		Name:         "Tilapia",
		TargetMargin: decimal.RequireFromString("1.25"),
	})
	if err != nil {
		t.Fatalf("create species: %v", err)
	}
	pond, _, err := svc.CreatePond(context.Background(), Pond{
		Name:         "North",
		VolumeLitres: 50000,
		WaterType:    "freshwater",
	})
	if err != nil {
		t.Fatalf("create pond: %v", err)
	}
	return &testFarm{svc: svc, species: species, pond: pond, now: now}
}

// stock commits a batch of the fixture species born ageDays before the
// fixture clock.
func (f *testFarm) stock(t *testing.T, quantity, ageDays int) Batch {
	t.Helper()
	batch, _, err := f.svc.StockBatch(context.Background(), Batch{
		SpeciesID:       f.species.ID,
		PondID:          f.pond.ID,
		BirthDate:       f.now.AddDate(0, 0, -ageDays),
		InitialQuantity: quantity,
	})
	if err != nil {
		t.Fatalf("stock batch: %v", err)
	}
	return batch
}

// order places a single-line order for the fixture species.
func (f *testFarm) order(t *testing.T, quantity int, unitPrice string) CustomerOrder {
	t.Helper()
	order, _, err := f.svc.PlaceOrder(context.Background(), CustomerOrder{
		Customer: "Harbor Fish Co",
		Lines: []DemandLine{{
			SpeciesID: f.species.ID,
			Quantity:  quantity,
			UnitPrice: decimal.RequireFromString(unitPrice),
		}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	return order
}

// accrue adds a feed cost to the batch ledger.
func (f *testFarm) accrue(t *testing.T, batchID, amount string) {
	t.Helper()
	if _, _, err := f.svc.AccrueCost(context.Background(), batchID, CostFeed, decimal.RequireFromString(amount)); err != nil {
		t.Fatalf("accrue cost: %v", err)
	}
}
