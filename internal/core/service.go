// Package core implements the batch lifecycle and order fulfillment engine:
// a transactional Service over a persistent store, a FIFO allocation planner,
// cost accrual with point-in-time snapshots, and the commit-time rule set.
package core

import (
	"context"
	"fmt"
	"time"

	"aquacore/internal/infra/persistence/memory"
	"aquacore/internal/manifest"
	"aquacore/pkg/domain"

	"github.com/shopspring/decimal"
)

// Service exposes the transactional operations of the engine. It is the sole
// mutation surface; every write runs inside store.RunInTransaction and is
// validated by the rules engine before commit.
type Service struct {
	store   domain.PersistentStore
	logger  Logger
	clock   Clock
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	archive manifest.Archive
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		logger: noopLogger{},
		clock:  ClockFunc(func() time.Time { return time.Now().UTC() }),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store. A nil
// engine gets the default policy set.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// WithManifestArchive attaches an archive that receives shipment and harvest
// manifests after their transactions commit. Archive failures are logged and
// never unwind committed state.
func WithManifestArchive(archive manifest.Archive) ServiceOption {
	return func(s *Service) {
		s.archive = archive
	}
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// run executes fn transactionally and emits the observability signals for the
// operation: trace span, metrics observation, audit entry and structured log.
func (s *Service) run(ctx context.Context, op string, entityID *string, fn func(tx domain.Transaction) error) (Result, error) {
	start := s.clock.Now()
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, op)
	}

	res, err := s.store.RunInTransaction(ctx, fn)

	duration := s.clock.Now().Sub(start)
	var id string
	if entityID != nil {
		id = *entityID
	}
	if s.metrics != nil {
		s.metrics.Observe(ctx, op, err == nil, duration)
	}
	if s.audit != nil {
		status := AuditStatusSuccess
		if err != nil {
			status = AuditStatusError
		}
		s.audit.Record(ctx, AuditEntry{Operation: op, Status: status, EntityID: id, At: start})
	}
	if err != nil {
		s.logger.Error("operation failed", "op", op, "entity_id", id, "error", err)
	} else {
		s.logger.Debug("operation committed", "op", op, "entity_id", id, "duration_ms", float64(duration)/float64(time.Millisecond))
		for _, v := range res.Warnings() {
			s.logger.Warn("rule warning", "op", op, "rule", v.Rule, "entity_id", v.EntityID, "message", v.Message)
		}
	}
	if span != nil {
		span.End(err)
	}
	return res, err
}

// CreateSpecies registers a new species.
func (s *Service) CreateSpecies(ctx context.Context, species Species) (Species, Result, error) {
	var created Species
	var id string
	res, err := s.run(ctx, "create_species", &id, func(tx domain.Transaction) error {
		if species.Name == "" {
			return fmt.Errorf("species name required")
		}
		if species.TargetMargin.IsNegative() {
			return fmt.Errorf("species target margin must not be negative")
		}
		var err error
		created, err = tx.CreateSpecies(species)
		id = created.ID
		return err
	})
	return created, res, err
}

// CreatePond registers pond metadata.
func (s *Service) CreatePond(ctx context.Context, pond Pond) (Pond, Result, error) {
	var created Pond
	var id string
	res, err := s.run(ctx, "create_pond", &id, func(tx domain.Transaction) error {
		if pond.Name == "" {
			return fmt.Errorf("pond name required")
		}
		var err error
		created, err = tx.CreatePond(pond)
		id = created.ID
		return err
	})
	return created, res, err
}

// StockBatch introduces a new batch into inventory along with its empty cost
// ledger. The batch starts active with current quantity equal to initial.
func (s *Service) StockBatch(ctx context.Context, batch Batch) (Batch, Result, error) {
	var created Batch
	var id string
	now := s.clock.Now().UTC()
	res, err := s.run(ctx, "stock_batch", &id, func(tx domain.Transaction) error {
		if _, ok := tx.FindSpecies(batch.SpeciesID); !ok {
			return domain.NotFoundError{Entity: EntitySpecies, ID: batch.SpeciesID}
		}
		if _, ok := tx.FindPond(batch.PondID); !ok {
			return domain.NotFoundError{Entity: EntityPond, ID: batch.PondID}
		}
		if batch.InitialQuantity <= 0 {
			return domain.QuantityOutOfRangeError{Entity: EntityBatch, ID: batch.ID, Quantity: batch.InitialQuantity}
		}
		batch.CurrentQuantity = batch.InitialQuantity
		batch.Status = BatchActive
		batch.HarvestedAt = nil
		if batch.BirthDate.IsZero() {
			batch.BirthDate = now
		}
		var err error
		created, err = tx.CreateBatch(batch)
		if err != nil {
			return err
		}
		id = created.ID
		_, err = tx.CreateCostLedger(CostLedger{BatchID: created.ID})
		return err
	})
	return created, res, err
}

// PlaceOrder records a customer order in pending state.
func (s *Service) PlaceOrder(ctx context.Context, order CustomerOrder) (CustomerOrder, Result, error) {
	var created CustomerOrder
	var id string
	now := s.clock.Now().UTC()
	res, err := s.run(ctx, "place_order", &id, func(tx domain.Transaction) error {
		if len(order.Lines) == 0 {
			return fmt.Errorf("order requires at least one demand line")
		}
		for i, line := range order.Lines {
			if _, ok := tx.FindSpecies(line.SpeciesID); !ok {
				return domain.NotFoundError{Entity: EntitySpecies, ID: line.SpeciesID}
			}
			if line.Quantity <= 0 {
				return domain.QuantityOutOfRangeError{Entity: EntityOrder, ID: order.ID, Quantity: line.Quantity}
			}
			if line.UnitPrice.IsNegative() {
				return fmt.Errorf("line %d: unit price must not be negative", i)
			}
		}
		order.Status = OrderPending
		if order.PlacedAt.IsZero() {
			order.PlacedAt = now
		}
		var err error
		created, err = tx.CreateOrder(order)
		id = created.ID
		return err
	})
	return created, res, err
}

// AccrueCost appends amount to one category of a batch's cost ledger.
// Negative amounts are rejected with InvalidAmountError.
func (s *Service) AccrueCost(ctx context.Context, batchID string, category CostCategory, amount decimal.Decimal) (CostLedger, Result, error) {
	var updated CostLedger
	res, err := s.run(ctx, "accrue_cost", &batchID, func(tx domain.Transaction) error {
		if !category.Valid() {
			return domain.InvalidAmountError{BatchID: batchID, Category: category, Amount: amount}
		}
		if amount.IsNegative() {
			return domain.InvalidAmountError{BatchID: batchID, Category: category, Amount: amount}
		}
		if _, ok := tx.FindBatch(batchID); !ok {
			return domain.NotFoundError{Entity: EntityBatch, ID: batchID}
		}
		var err error
		updated, err = tx.UpdateCostLedger(batchID, func(l *CostLedger) error {
			l.Accrue(category, amount)
			return nil
		})
		return err
	})
	return updated, res, err
}

// CostSnapshot is a point-in-time view of a batch's accrued costs.
type CostSnapshot struct {
	BatchID     string
	Quantity    int
	Total       decimal.Decimal
	CostPerUnit decimal.Decimal
	ByCategory  map[CostCategory]decimal.Decimal
	TakenAt     time.Time
}

// CostSnapshot reports the ledger total and cost-per-unit of a batch against
// its current quantity.
func (s *Service) CostSnapshot(ctx context.Context, batchID string) (CostSnapshot, error) {
	var snapshot CostSnapshot
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		batch, ok := view.FindBatch(batchID)
		if !ok {
			return domain.NotFoundError{Entity: EntityBatch, ID: batchID}
		}
		ledger, ok := view.FindCostLedger(batchID)
		if !ok {
			ledger = CostLedger{BatchID: batchID}
		}
		snapshot = CostSnapshot{
			BatchID:     batchID,
			Quantity:    batch.CurrentQuantity,
			Total:       ledger.Total(),
			CostPerUnit: costPerUnit(ledger, batch.CurrentQuantity),
			ByCategory: map[CostCategory]decimal.Decimal{
				domain.CostFeed:       ledger.Feed,
				domain.CostLabor:      ledger.Labor,
				domain.CostUtility:    ledger.Utility,
				domain.CostMedication: ledger.Medication,
			},
			TakenAt: s.clock.Now().UTC(),
		}
		return nil
	})
	return snapshot, err
}

var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchActive:     {BatchHarvesting, BatchCompleted},
	BatchHarvesting: {BatchCompleted},
}

// TransitionBatch advances a batch through its lifecycle. Only
// active->harvesting, active->completed and harvesting->completed are legal.
func (s *Service) TransitionBatch(ctx context.Context, batchID string, to BatchStatus) (Batch, Result, error) {
	var updated Batch
	res, err := s.run(ctx, "transition_batch", &batchID, func(tx domain.Transaction) error {
		batch, ok := tx.FindBatch(batchID)
		if !ok {
			return domain.NotFoundError{Entity: EntityBatch, ID: batchID}
		}
		allowed := false
		for _, next := range batchTransitions[batch.Status] {
			if next == to {
				allowed = true
				break
			}
		}
		if !allowed {
			return domain.InvalidStateTransitionError{Entity: EntityBatch, ID: batchID, From: string(batch.Status), To: string(to)}
		}
		var err error
		updated, err = tx.UpdateBatch(batchID, func(b *Batch) error {
			b.Status = to
			return nil
		})
		return err
	})
	return updated, res, err
}

// HarvestResult summarizes a completed harvest.
type HarvestResult struct {
	Batch          Batch
	MortalityDelta int
	SurvivalRate   decimal.Decimal
}

// HarvestBatch closes out a batch: the final quantity is what survived to
// harvest, the difference to the pre-harvest quantity is recorded as
// mortality, and the batch is completed and frozen. Harvesting a batch
// younger than the grow-out minimum yields a warning in the Result, not an
// error.
func (s *Service) HarvestBatch(ctx context.Context, batchID string, finalQuantity int, notes string) (HarvestResult, Result, error) {
	var result HarvestResult
	now := s.clock.Now().UTC()
	res, err := s.run(ctx, "harvest_batch", &batchID, func(tx domain.Transaction) error {
		batch, ok := tx.FindBatch(batchID)
		if !ok {
			return domain.NotFoundError{Entity: EntityBatch, ID: batchID}
		}
		if batch.Status != BatchActive && batch.Status != BatchHarvesting {
			return domain.InvalidStateTransitionError{Entity: EntityBatch, ID: batchID, From: string(batch.Status), To: string(BatchCompleted)}
		}
		if finalQuantity < 0 || finalQuantity > batch.CurrentQuantity {
			return domain.QuantityOutOfRangeError{Entity: EntityBatch, ID: batchID, Quantity: finalQuantity, Available: batch.CurrentQuantity}
		}
		mortality := batch.CurrentQuantity - finalQuantity
		updated, err := tx.UpdateBatch(batchID, func(b *Batch) error {
			b.CurrentQuantity = finalQuantity
			b.Status = BatchCompleted
			b.HarvestedAt = &now
			return nil
		})
		if err != nil {
			return err
		}
		if _, err := tx.AppendHealthEvent(HealthEvent{
			BatchID:        batchID,
			RecordedAt:     now,
			Kind:           domain.HealthEventHarvest,
			MortalityDelta: mortality,
			Notes:          notes,
		}); err != nil {
			return err
		}
		result = HarvestResult{
			Batch:          updated,
			MortalityDelta: mortality,
			SurvivalRate:   decimal.NewFromInt(int64(finalQuantity)).Div(decimal.NewFromInt(int64(updated.InitialQuantity))),
		}
		return nil
	})
	if err == nil {
		s.archiveHarvestManifest(ctx, result)
	}
	return result, res, err
}

// RecordMortality applies a corrective quantity decrement outside allocation
// and appends the matching health event. Completed batches are frozen; the
// quantity rule blocks the commit.
func (s *Service) RecordMortality(ctx context.Context, batchID string, dead int, notes string) (Batch, Result, error) {
	var updated Batch
	now := s.clock.Now().UTC()
	res, err := s.run(ctx, "record_mortality", &batchID, func(tx domain.Transaction) error {
		batch, ok := tx.FindBatch(batchID)
		if !ok {
			return domain.NotFoundError{Entity: EntityBatch, ID: batchID}
		}
		if dead <= 0 || dead > batch.CurrentQuantity {
			return domain.QuantityOutOfRangeError{Entity: EntityBatch, ID: batchID, Quantity: dead, Available: batch.CurrentQuantity}
		}
		var err error
		updated, err = tx.UpdateBatch(batchID, func(b *Batch) error {
			b.CurrentQuantity -= dead
			return nil
		})
		if err != nil {
			return err
		}
		_, err = tx.AppendHealthEvent(HealthEvent{
			BatchID:        batchID,
			RecordedAt:     now,
			Kind:           domain.HealthEventMortality,
			MortalityDelta: dead,
			Notes:          notes,
		})
		return err
	})
	return updated, res, err
}

// RecordWaterQuality appends a pond reading. Out-of-range readings produce
// warn violations in the Result.
func (s *Service) RecordWaterQuality(ctx context.Context, reading WaterQualityReading) (WaterQualityReading, Result, error) {
	var created WaterQualityReading
	var id string
	res, err := s.run(ctx, "record_water_quality", &id, func(tx domain.Transaction) error {
		if _, ok := tx.FindPond(reading.PondID); !ok {
			return domain.NotFoundError{Entity: EntityPond, ID: reading.PondID}
		}
		var err error
		created, err = tx.AppendWaterQualityReading(reading)
		id = created.ID
		return err
	})
	return created, res, err
}

// FulfillOrder allocates every demand line of the order FIFO across sellable
// batches, debits inventory, and records the shipment. All lines succeed or
// the whole transaction rolls back; no partial fulfillment can persist.
func (s *Service) FulfillOrder(ctx context.Context, orderID string, shipDate time.Time, carrier string) (Shipment, Result, error) {
	var shipment Shipment
	var order CustomerOrder
	if shipDate.IsZero() {
		shipDate = s.clock.Now().UTC()
	}
	res, err := s.run(ctx, "fulfill_order", &orderID, func(tx domain.Transaction) error {
		var ok bool
		order, ok = tx.FindOrder(orderID)
		if !ok {
			return domain.NotFoundError{Entity: EntityOrder, ID: orderID}
		}
		if order.Status != OrderPending && order.Status != OrderProcessing {
			return domain.InvalidOrderStateError{OrderID: orderID, Status: order.Status}
		}
		created, err := tx.CreateShipment(Shipment{
			OrderID:  orderID,
			ShipDate: shipDate,
			Carrier:  carrier,
			Status:   ShipmentPreparing,
		})
		if err != nil {
			return err
		}
		var allocations []AllocationRecord
		for _, line := range order.Lines {
			// Candidates come from the transactional snapshot, so debits
			// applied for earlier lines are already reflected.
			records, err := planAllocation(line.SpeciesID, line.Quantity, fifoCandidates(tx.Snapshot(), line.SpeciesID))
			if err != nil {
				return err
			}
			if err := applyAllocation(tx, records); err != nil {
				return err
			}
			allocations = append(allocations, records...)
		}
		shipment, err = tx.UpdateShipment(created.ID, func(sh *Shipment) error {
			sh.Allocations = allocations
			sh.Status = ShipmentShipped
			return nil
		})
		if err != nil {
			return err
		}
		order, err = tx.UpdateOrder(orderID, func(o *CustomerOrder) error {
			o.Status = OrderShipped
			return nil
		})
		return err
	})
	if err == nil {
		s.archiveShipmentManifest(ctx, shipment, order)
	}
	return shipment, res, err
}

// CancelOrder cancels a pending or processing order.
func (s *Service) CancelOrder(ctx context.Context, orderID string) (CustomerOrder, Result, error) {
	var updated CustomerOrder
	res, err := s.run(ctx, "cancel_order", &orderID, func(tx domain.Transaction) error {
		order, ok := tx.FindOrder(orderID)
		if !ok {
			return domain.NotFoundError{Entity: EntityOrder, ID: orderID}
		}
		if order.Status != OrderPending && order.Status != OrderProcessing {
			return domain.InvalidOrderStateError{OrderID: orderID, Status: order.Status}
		}
		var err error
		updated, err = tx.UpdateOrder(orderID, func(o *CustomerOrder) error {
			o.Status = OrderCancelled
			return nil
		})
		return err
	})
	return updated, res, err
}

// ProfitReport compares the revenue attributed to a batch against its accrued
// cost and the species margin target. Margin is the revenue/cost multiplier
// (1.0 = breakeven), directly comparable to Species.TargetMargin.
type ProfitReport struct {
	BatchID      string
	Revenue      decimal.Decimal
	Cost         decimal.Decimal
	Profit       decimal.Decimal
	Margin       decimal.Decimal
	TargetMargin decimal.Decimal
	MeetsTarget  bool
}

// BatchProfit sums shipment allocations drawn from the batch, priced at the
// owning order's demand line for the batch's species, and nets the ledger
// total against that revenue.
func (s *Service) BatchProfit(ctx context.Context, batchID string) (ProfitReport, error) {
	var report ProfitReport
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		batch, ok := view.FindBatch(batchID)
		if !ok {
			return domain.NotFoundError{Entity: EntityBatch, ID: batchID}
		}
		species, ok := view.FindSpecies(batch.SpeciesID)
		if !ok {
			return domain.NotFoundError{Entity: EntitySpecies, ID: batch.SpeciesID}
		}
		ledger, ok := view.FindCostLedger(batchID)
		if !ok {
			ledger = CostLedger{BatchID: batchID}
		}

		revenue := decimal.Zero
		for _, shipment := range view.ListShipments() {
			order, ok := view.FindOrder(shipment.OrderID)
			if !ok {
				continue
			}
			price, priced := linePrice(order, batch.SpeciesID)
			if !priced {
				continue
			}
			for _, record := range shipment.Allocations {
				if record.BatchID != batchID {
					continue
				}
				revenue = revenue.Add(price.Mul(decimal.NewFromInt(int64(record.Quantity))))
			}
		}

		cost := ledger.Total()
		profit := revenue.Sub(cost)
		// Margin is the revenue/cost multiplier, same convention as the
		// species target: 1.0 is breakeven.
		margin := decimal.Zero
		if cost.IsPositive() {
			margin = revenue.Div(cost)
		}
		report = ProfitReport{
			BatchID:      batchID,
			Revenue:      revenue,
			Cost:         cost,
			Profit:       profit,
			Margin:       margin,
			TargetMargin: species.TargetMargin,
			MeetsTarget:  margin.GreaterThanOrEqual(species.TargetMargin),
		}
		return nil
	})
	return report, err
}

// linePrice returns the unit price of the first demand line matching the
// species.
func linePrice(order CustomerOrder, speciesID string) (decimal.Decimal, bool) {
	for _, line := range order.Lines {
		if line.SpeciesID == speciesID {
			return line.UnitPrice, true
		}
	}
	return decimal.Zero, false
}

func (s *Service) archiveShipmentManifest(ctx context.Context, shipment Shipment, order CustomerOrder) {
	if s.archive == nil {
		return
	}
	doc := manifest.ShipmentManifest{
		ShipmentID:  shipment.ID,
		OrderID:     shipment.OrderID,
		Customer:    order.Customer,
		Carrier:     shipment.Carrier,
		ShipDate:    shipment.ShipDate,
		Allocations: shipment.Allocations,
		GeneratedAt: s.clock.Now().UTC(),
	}
	if _, err := manifest.Write(ctx, s.archive, doc.Key(), doc); err != nil {
		s.logger.Warn("shipment manifest archive failed", "shipment_id", shipment.ID, "error", err)
	}
}

func (s *Service) archiveHarvestManifest(ctx context.Context, result HarvestResult) {
	if s.archive == nil {
		return
	}
	harvestedAt := s.clock.Now().UTC()
	if result.Batch.HarvestedAt != nil {
		harvestedAt = *result.Batch.HarvestedAt
	}
	doc := manifest.HarvestManifest{
		BatchID:        result.Batch.ID,
		SpeciesID:      result.Batch.SpeciesID,
		HarvestedAt:    harvestedAt,
		FinalQuantity:  result.Batch.CurrentQuantity,
		MortalityDelta: result.MortalityDelta,
		SurvivalRate:   result.SurvivalRate,
		GeneratedAt:    s.clock.Now().UTC(),
	}
	if _, err := manifest.Write(ctx, s.archive, doc.Key(), doc); err != nil {
		s.logger.Warn("harvest manifest archive failed", "batch_id", result.Batch.ID, "error", err)
	}
}

// GetBatch fetches a batch from committed state.
func (s *Service) GetBatch(id string) (Batch, error) {
	if batch, ok := s.store.GetBatch(id); ok {
		return batch, nil
	}
	return Batch{}, domain.NotFoundError{Entity: EntityBatch, ID: id}
}

// GetOrder fetches an order from committed state.
func (s *Service) GetOrder(id string) (CustomerOrder, error) {
	if order, ok := s.store.GetOrder(id); ok {
		return order, nil
	}
	return CustomerOrder{}, domain.NotFoundError{Entity: EntityOrder, ID: id}
}

// GetShipment fetches a shipment from committed state.
func (s *Service) GetShipment(id string) (Shipment, error) {
	if shipment, ok := s.store.GetShipment(id); ok {
		return shipment, nil
	}
	return Shipment{}, domain.NotFoundError{Entity: EntityShipment, ID: id}
}

// ListBatches lists all batches in committed state.
func (s *Service) ListBatches() []Batch { return s.store.ListBatches() }

// ListOrders lists all orders in committed state.
func (s *Service) ListOrders() []CustomerOrder { return s.store.ListOrders() }

// ListShipments lists all shipments in committed state.
func (s *Service) ListShipments() []Shipment { return s.store.ListShipments() }

// ListHealthEvents lists health events for a batch in recorded order.
func (s *Service) ListHealthEvents(batchID string) []HealthEvent {
	return s.store.ListHealthEvents(batchID)
}

// ListWaterQualityReadings lists readings for a pond in recorded order.
func (s *Service) ListWaterQualityReadings(pondID string) []WaterQualityReading {
	return s.store.ListWaterQualityReadings(pondID)
}
