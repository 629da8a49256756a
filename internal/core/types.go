package core

import "aquacore/pkg/domain"

type (
	EntityType          = domain.EntityType
	BatchStatus         = domain.BatchStatus
	OrderStatus         = domain.OrderStatus
	ShipmentStatus      = domain.ShipmentStatus
	CostCategory        = domain.CostCategory
	HealthEventKind     = domain.HealthEventKind
	Severity            = domain.Severity
	Base                = domain.Base
	Species             = domain.Species
	Pond                = domain.Pond
	Batch               = domain.Batch
	CostLedger          = domain.CostLedger
	DemandLine          = domain.DemandLine
	CustomerOrder       = domain.CustomerOrder
	AllocationRecord    = domain.AllocationRecord
	Shipment            = domain.Shipment
	HealthEvent         = domain.HealthEvent
	WaterQualityReading = domain.WaterQualityReading
	Change              = domain.Change
	Action              = domain.Action
	Violation           = domain.Violation
	Result              = domain.Result
	Rule                = domain.Rule
	RulesEngine         = domain.RulesEngine
	RuleViolationError  = domain.RuleViolationError
)

const (
	EntitySpecies      = domain.EntitySpecies
	EntityPond         = domain.EntityPond
	EntityBatch        = domain.EntityBatch
	EntityCostLedger   = domain.EntityCostLedger
	EntityOrder        = domain.EntityOrder
	EntityShipment     = domain.EntityShipment
	EntityHealthEvent  = domain.EntityHealthEvent
	EntityWaterQuality = domain.EntityWaterQuality
)

const (
	CostFeed       = domain.CostFeed
	CostLabor      = domain.CostLabor
	CostUtility    = domain.CostUtility
	CostMedication = domain.CostMedication
)

const (
	HealthEventMortality = domain.HealthEventMortality
	HealthEventHarvest   = domain.HealthEventHarvest
)

const (
	BatchActive     = domain.BatchActive
	BatchHarvesting = domain.BatchHarvesting
	BatchCompleted  = domain.BatchCompleted
)

const (
	OrderPending    = domain.OrderPending
	OrderProcessing = domain.OrderProcessing
	OrderShipped    = domain.OrderShipped
	OrderDelivered  = domain.OrderDelivered
	OrderCancelled  = domain.OrderCancelled
)

const (
	ShipmentPreparing = domain.ShipmentPreparing
	ShipmentShipped   = domain.ShipmentShipped
	ShipmentDelivered = domain.ShipmentDelivered
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
