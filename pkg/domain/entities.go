// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by aquacore.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntitySpecies identifies a species reference record.
	EntitySpecies EntityType = "species"
	// EntityPond identifies a pond (housing unit) record.
	EntityPond EntityType = "pond"
	// EntityBatch identifies a stocked batch record.
	EntityBatch EntityType = "batch"
	// EntityCostLedger identifies a per-batch cost ledger record.
	EntityCostLedger EntityType = "cost_ledger"
	// EntityOrder identifies a customer order record.
	EntityOrder EntityType = "customer_order"
	// EntityShipment identifies a shipment record.
	EntityShipment EntityType = "shipment"
	// EntityHealthEvent identifies a batch health/event record.
	EntityHealthEvent EntityType = "health_event"
	// EntityWaterQuality identifies a pond water quality reading.
	EntityWaterQuality EntityType = "water_quality_reading"
)

// BatchStatus represents the canonical batch lifecycle states.
type BatchStatus string

// Canonical batch lifecycle statuses. Completed is terminal; quantity is
// frozen once a batch reaches it.
const (
	BatchActive     BatchStatus = "active"
	BatchHarvesting BatchStatus = "harvesting"
	BatchCompleted  BatchStatus = "completed"
)

// OrderStatus enumerates customer order workflow states.
type OrderStatus string

// Order statuses move only forward, except any pre-shipment state may move
// to cancelled.
const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// ShipmentStatus enumerates shipment states.
type ShipmentStatus string

// Canonical shipment statuses.
const (
	ShipmentPreparing ShipmentStatus = "preparing"
	ShipmentShipped   ShipmentStatus = "shipped"
	ShipmentDelivered ShipmentStatus = "delivered"
)

// CostCategory identifies one of the accrual buckets on a cost ledger.
type CostCategory string

// Cost accrual categories.
const (
	CostFeed       CostCategory = "feed"
	CostLabor      CostCategory = "labor"
	CostUtility    CostCategory = "utility"
	CostMedication CostCategory = "medication"
)

// Valid reports whether the category is one of the accrual buckets.
func (c CostCategory) Valid() bool {
	switch c {
	case CostFeed, CostLabor, CostUtility, CostMedication:
		return true
	}
	return false
}

// HealthEventKind distinguishes the origin of a recorded quantity change.
type HealthEventKind string

// Health event kinds.
const (
	HealthEventMortality HealthEventKind = "mortality"
	HealthEventHarvest   HealthEventKind = "harvest"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Species is reference data describing a farmed species and its commercial
// target margin (a multiplier; 1.0 means breakeven).
type Species struct {
	Base
	Name         string          `json:"name"`
	TargetMargin decimal.Decimal `json:"target_margin"`
}

// Pond captures physical housing metadata for batches.
type Pond struct {
	Base
	Name         string `json:"name"`
	VolumeLitres int    `json:"volume_litres"`
	WaterType    string `json:"water_type"`
}

// Batch represents a cohort of identical organisms stocked together.
// InitialQuantity is immutable once set; CurrentQuantity only decreases,
// apart from explicit corrective input.
type Batch struct {
	Base
	SpeciesID        string      `json:"species_id"`
	PondID           string      `json:"pond_id"`
	BirthDate        time.Time   `json:"birth_date"`
	InitialQuantity  int         `json:"initial_quantity"`
	CurrentQuantity  int         `json:"current_quantity"`
	Status           BatchStatus `json:"status"`
	EstimatedHarvest *time.Time  `json:"estimated_harvest,omitempty"`
	HarvestedAt      *time.Time  `json:"harvested_at,omitempty"`
}

// AgeDays returns the batch age in whole days at the given time.
func (b Batch) AgeDays(at time.Time) int {
	if at.Before(b.BirthDate) {
		return 0
	}
	return int(at.Sub(b.BirthDate).Hours() / 24)
}

// CostLedger accumulates production costs for a single batch. Each component
// is monotonically non-decreasing and is appended to by accrual events only,
// never by allocation.
type CostLedger struct {
	Base
	BatchID    string          `json:"batch_id"`
	Feed       decimal.Decimal `json:"feed"`
	Labor      decimal.Decimal `json:"labor"`
	Utility    decimal.Decimal `json:"utility"`
	Medication decimal.Decimal `json:"medication"`
}

// Total returns the sum of all cost components.
func (l CostLedger) Total() decimal.Decimal {
	return l.Feed.Add(l.Labor).Add(l.Utility).Add(l.Medication)
}

// Component returns the running total for a single category.
func (l CostLedger) Component(c CostCategory) decimal.Decimal {
	switch c {
	case CostFeed:
		return l.Feed
	case CostLabor:
		return l.Labor
	case CostUtility:
		return l.Utility
	case CostMedication:
		return l.Medication
	}
	return decimal.Zero
}

// Accrue adds amount to the category's running total.
func (l *CostLedger) Accrue(c CostCategory, amount decimal.Decimal) {
	switch c {
	case CostFeed:
		l.Feed = l.Feed.Add(amount)
	case CostLabor:
		l.Labor = l.Labor.Add(amount)
	case CostUtility:
		l.Utility = l.Utility.Add(amount)
	case CostMedication:
		l.Medication = l.Medication.Add(amount)
	}
}

// DemandLine is one line of a customer order. Lines are immutable once the
// order is placed.
type DemandLine struct {
	SpeciesID string          `json:"species_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CustomerOrder aggregates demand lines placed by a customer.
type CustomerOrder struct {
	Base
	Customer string       `json:"customer"`
	PlacedAt time.Time    `json:"placed_at"`
	Status   OrderStatus  `json:"status"`
	Lines    []DemandLine `json:"lines"`
}

// AllocationRecord is the immutable audit trail entry proving which batch
// satisfied part of an order. CostPerUnit is the point-in-time snapshot
// computed against the batch's quantity before this debit.
type AllocationRecord struct {
	BatchID     string          `json:"batch_id"`
	Quantity    int             `json:"quantity"`
	CostPerUnit decimal.Decimal `json:"cost_per_unit"`
}

// Shipment is created exactly once per successful fulfillment of an order
// and owns the allocation records produced by it.
type Shipment struct {
	Base
	OrderID     string             `json:"order_id"`
	ShipDate    time.Time          `json:"ship_date"`
	Carrier     string             `json:"carrier"`
	Status      ShipmentStatus     `json:"status"`
	Allocations []AllocationRecord `json:"allocations"`
}

// AllocatedQuantity returns the total quantity across all allocation records.
func (s Shipment) AllocatedQuantity() int {
	total := 0
	for _, rec := range s.Allocations {
		total += rec.Quantity
	}
	return total
}

// HealthEvent records a quantity-affecting event on a batch, keeping the
// mortality audit trail outside the allocation path.
type HealthEvent struct {
	Base
	BatchID        string          `json:"batch_id"`
	RecordedAt     time.Time       `json:"recorded_at"`
	Kind           HealthEventKind `json:"kind"`
	MortalityDelta int             `json:"mortality_delta"`
	Notes          string          `json:"notes,omitempty"`
}

// WaterQualityReading captures a point-in-time measurement for a pond.
// Reporting layers compose reads over these; out-of-range readings surface
// as warn-severity rule violations at commit.
type WaterQualityReading struct {
	Base
	PondID          string          `json:"pond_id"`
	RecordedAt      time.Time       `json:"recorded_at"`
	TemperatureC    decimal.Decimal `json:"temperature_c"`
	PH              decimal.Decimal `json:"ph"`
	DissolvedOxygen decimal.Decimal `json:"dissolved_oxygen_mg_l"`
}

// Change captures a single entity mutation inside a transaction for rule
// evaluation and auditing. Before/After hold cloned typed entities.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported operations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns the warn-severity violations carried by the result.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityWarn {
			out = append(out, v)
		}
	}
	return out
}
