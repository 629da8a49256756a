package domain

import "context"

// TransactionView provides read-only access to snapshot data. It is the same
// surface rules evaluate against.
type TransactionView = RuleView

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Every mutation is recorded as a Change
// and evaluated by the rules engine before commit; any error returned from
// the transactional function leaves no persisted state.
type Transaction interface {
	Snapshot() TransactionView
	CreateSpecies(Species) (Species, error)
	UpdateSpecies(id string, mutator func(*Species) error) (Species, error)
	CreatePond(Pond) (Pond, error)
	UpdatePond(id string, mutator func(*Pond) error) (Pond, error)
	CreateBatch(Batch) (Batch, error)
	UpdateBatch(id string, mutator func(*Batch) error) (Batch, error)
	CreateCostLedger(CostLedger) (CostLedger, error)
	UpdateCostLedger(batchID string, mutator func(*CostLedger) error) (CostLedger, error)
	CreateOrder(CustomerOrder) (CustomerOrder, error)
	UpdateOrder(id string, mutator func(*CustomerOrder) error) (CustomerOrder, error)
	CreateShipment(Shipment) (Shipment, error)
	UpdateShipment(id string, mutator func(*Shipment) error) (Shipment, error)
	AppendHealthEvent(HealthEvent) (HealthEvent, error)
	AppendWaterQualityReading(WaterQualityReading) (WaterQualityReading, error)
	FindSpecies(id string) (Species, bool)
	FindPond(id string) (Pond, bool)
	FindBatch(id string) (Batch, bool)
	FindCostLedger(batchID string) (CostLedger, bool)
	FindOrder(id string) (CustomerOrder, bool)
	FindShipment(id string) (Shipment, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetSpecies(id string) (Species, bool)
	ListSpecies() []Species
	GetPond(id string) (Pond, bool)
	ListPonds() []Pond
	GetBatch(id string) (Batch, bool)
	ListBatches() []Batch
	GetCostLedger(batchID string) (CostLedger, bool)
	GetOrder(id string) (CustomerOrder, bool)
	ListOrders() []CustomerOrder
	GetShipment(id string) (Shipment, bool)
	ListShipments() []Shipment
	ListHealthEvents(batchID string) []HealthEvent
	ListWaterQualityReadings(pondID string) []WaterQualityReading
}
