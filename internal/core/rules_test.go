package core

import (
	"context"
	"testing"
	"time"

	"aquacore/pkg/domain"

	"github.com/shopspring/decimal"
)

// ruleView is a static RuleView over plain slices.
type ruleView struct {
	batches []Batch
	ledgers []CostLedger
}

func (v ruleView) ListSpecies() []Species { return nil }
func (v ruleView) ListPonds() []Pond { return nil }
func (v ruleView) ListBatches() []Batch { return v.batches }
func (v ruleView) ListCostLedgers() []CostLedger { return v.ledgers }
func (v ruleView) ListOrders() []CustomerOrder { return nil }
func (v ruleView) ListShipments() []Shipment { return nil }
func (v ruleView) ListHealthEvents() []HealthEvent { return nil }
func (v ruleView) ListWaterQualityReadings() []WaterQualityReading { return nil }
func (v ruleView) FindSpecies(string) (Species, bool) { return Species{}, false }
func (v ruleView) FindPond(string) (Pond, bool) { return Pond{}, false }
func (v ruleView) FindOrder(string) (CustomerOrder, bool) { return CustomerOrder{}, false }
func (v ruleView) FindShipment(string) (Shipment, bool) { return Shipment{}, false }

func (v ruleView) FindBatch(id string) (Batch, bool) {
	for _, b := range v.batches {
		if b.ID == id {
			return b, true
		}
	}
	return Batch{}, false
}

func (v ruleView) FindCostLedger(batchID string) (CostLedger, bool) {
	for _, l := range v.ledgers {
		if l.BatchID == batchID {
			return l, true
		}
	}
	return CostLedger{}, false
}

func blocking(t *testing.T, res Result, rule string, want int) {
	t.Helper()
	var got int
	for _, v := range res.Violations {
		if v.Rule == rule && v.Severity == SeverityBlock {
			got++
		}
	}
	if got != want {
		t.Fatalf("%s blocking violations = %d, want %d (all: %+v)", rule, got, want, res.Violations)
	}
}

func TestBatchQuantityRuleBounds(t *testing.T) {
	rule := NewBatchQuantityRule()
	ctx := context.Background()

	res, err := rule.Evaluate(ctx, ruleView{batches: []Batch{
		{Base: Base{ID: "ok"}, InitialQuantity: 100, CurrentQuantity: 40},
	}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	blocking(t, res, "batch_quantity", 0)

	res, err = rule.Evaluate(ctx, ruleView{batches: []Batch{
		{Base: Base{ID: "over"}, InitialQuantity: 100, CurrentQuantity: 120},
		{Base: Base{ID: "negative"}, InitialQuantity: 100, CurrentQuantity: -1},
		{Base: Base{ID: "empty"}, InitialQuantity: 0, CurrentQuantity: 0},
	}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	blocking(t, res, "batch_quantity", 3)
}

func TestBatchQuantityRuleImmutableInitial(t *testing.T) {
	rule := NewBatchQuantityRule()
	before := Batch{Base: Base{ID: "b1"}, InitialQuantity: 100, CurrentQuantity: 80, Status: BatchActive}
	after := before
	after.InitialQuantity = 150

	res, err := rule.Evaluate(context.Background(), ruleView{batches: []Batch{after}}, []domain.Change{
		{Entity: EntityBatch, Action: domain.ActionUpdate, Before: before, After: after},
	})
	if err != nil {
		t.Fatal(err)
	}
	blocking(t, res, "batch_quantity", 1)
}

func TestBatchQuantityRuleCompletedFrozen(t *testing.T) {
	rule := NewBatchQuantityRule()
	before := Batch{Base: Base{ID: "b1"}, InitialQuantity: 100, CurrentQuantity: 80, Status: BatchCompleted}
	after := before
	after.CurrentQuantity = 70

	res, err := rule.Evaluate(context.Background(), ruleView{batches: []Batch{after}}, []domain.Change{
		{Entity: EntityBatch, Action: domain.ActionUpdate, Before: before, After: after},
	})
	if err != nil {
		t.Fatal(err)
	}
	blocking(t, res, "batch_quantity", 1)
}

func TestLifecycleTransitionRule(t *testing.T) {
	rule := NewLifecycleTransitionRule()
	ctx := context.Background()

	batchChange := func(from, to BatchStatus) domain.Change {
		return domain.Change{
			Entity: EntityBatch,
			Action: domain.ActionUpdate,
			Before: Batch{Base: Base{ID: "b1"}, Status: from},
			After:  Batch{Base: Base{ID: "b1"}, Status: to},
		}
	}
	orderChange := func(from, to OrderStatus) domain.Change {
		return domain.Change{
			Entity: EntityOrder,
			Action: domain.ActionUpdate,
			Before: CustomerOrder{Base: Base{ID: "o1"}, Status: from},
			After:  CustomerOrder{Base: Base{ID: "o1"}, Status: to},
		}
	}
	shipmentChange := func(from, to ShipmentStatus) domain.Change {
		return domain.Change{
			Entity: EntityShipment,
			Action: domain.ActionUpdate,
			Before: Shipment{Base: Base{ID: "s1"}, Status: from},
			After:  Shipment{Base: Base{ID: "s1"}, Status: to},
		}
	}

	cases := []struct {
		name   string
		change domain.Change
		blocks int
	}{
		{"batch active to harvesting", batchChange(BatchActive, BatchHarvesting), 0},
		{"batch active to completed", batchChange(BatchActive, BatchCompleted), 0},
		{"batch harvesting back to active", batchChange(BatchHarvesting, BatchActive), 1},
		{"batch completed to active", batchChange(BatchCompleted, BatchActive), 1},
		{"batch unchanged", batchChange(BatchActive, BatchActive), 0},
		{"order pending to shipped", orderChange(OrderPending, OrderShipped), 0},
		{"order pending to cancelled", orderChange(OrderPending, OrderCancelled), 0},
		{"order shipped to delivered", orderChange(OrderShipped, OrderDelivered), 0},
		{"order shipped back to pending", orderChange(OrderShipped, OrderPending), 1},
		{"order cancelled to shipped", orderChange(OrderCancelled, OrderShipped), 1},
		{"shipment preparing to shipped", shipmentChange(ShipmentPreparing, ShipmentShipped), 0},
		{"shipment preparing to delivered", shipmentChange(ShipmentPreparing, ShipmentDelivered), 1},
		{"shipment delivered back to shipped", shipmentChange(ShipmentDelivered, ShipmentShipped), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := rule.Evaluate(ctx, ruleView{}, []domain.Change{tc.change})
			if err != nil {
				t.Fatal(err)
			}
			blocking(t, res, "lifecycle_transition", tc.blocks)
		})
	}
}

func TestCostMonotonicRule(t *testing.T) {
	rule := NewCostMonotonicRule()
	ctx := context.Background()
	before := CostLedger{BatchID: "b1", Feed: decimal.RequireFromString("100"), Labor: decimal.RequireFromString("50")}

	increased := before
	increased.Feed = decimal.RequireFromString("120")
	res, err := rule.Evaluate(ctx, ruleView{}, []domain.Change{
		{Entity: EntityCostLedger, Action: domain.ActionUpdate, Before: before, After: increased},
	})
	if err != nil {
		t.Fatal(err)
	}
	blocking(t, res, "cost_monotonic", 0)

	decreased := before
	decreased.Feed = decimal.RequireFromString("90")
	decreased.Labor = decimal.RequireFromString("40")
	res, err = rule.Evaluate(ctx, ruleView{}, []domain.Change{
		{Entity: EntityCostLedger, Action: domain.ActionUpdate, Before: before, After: decreased},
	})
	if err != nil {
		t.Fatal(err)
	}
	blocking(t, res, "cost_monotonic", 2)
}

func TestUnderageHarvestRule(t *testing.T) {
	rule := NewUnderageHarvestRule()
	ctx := context.Background()
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	harvest := func(ageDays int) []domain.Change {
		harvestedAt := now
		before := Batch{Base: Base{ID: "b1"}, BirthDate: now.AddDate(0, 0, -ageDays), Status: BatchHarvesting}
		after := before
		after.Status = BatchCompleted
		after.HarvestedAt = &harvestedAt
		return []domain.Change{{Entity: EntityBatch, Action: domain.ActionUpdate, Before: before, After: after}}
	}

	res, err := rule.Evaluate(ctx, ruleView{}, harvest(12))
	if err != nil {
		t.Fatal(err)
	}
	warnings := res.Warnings()
	if len(warnings) != 1 || warnings[0].Rule != "underage_harvest" {
		t.Fatalf("expected one warning, got %+v", warnings)
	}

	res, err = rule.Evaluate(ctx, ruleView{}, harvest(45))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("mature harvest must not warn: %+v", res.Violations)
	}
}

func TestWaterQualityRule(t *testing.T) {
	rule := NewWaterQualityRule()
	ctx := context.Background()

	reading := func(temp, ph, oxygen string) []domain.Change {
		return []domain.Change{{
			Entity: EntityWaterQuality,
			Action: domain.ActionCreate,
			After: WaterQualityReading{
				Base:            Base{ID: "r1"},
				PondID:          "p1",
				TemperatureC:    decimal.RequireFromString(temp),
				PH:              decimal.RequireFromString(ph),
				DissolvedOxygen: decimal.RequireFromString(oxygen),
			},
		}}
	}

	res, err := rule.Evaluate(ctx, ruleView{}, reading("26", "7.2", "6"))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("in-range reading must not warn: %+v", res.Violations)
	}

	res, err = rule.Evaluate(ctx, ruleView{}, reading("35", "5.9", "2.5"))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Warnings()) != 3 {
		t.Fatalf("expected warnings for temperature, pH and oxygen, got %+v", res.Violations)
	}
}
