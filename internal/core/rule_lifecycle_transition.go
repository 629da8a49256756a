package core

import (
	"aquacore/pkg/domain"
	"context"
	"fmt"
)

// NewLifecycleTransitionRule blocks illegal state transitions on batches,
// orders and shipments. Terminal states cannot be left.
func NewLifecycleTransitionRule() domain.Rule {
	return lifecycleTransitionRule{}
}

type lifecycleTransitionRule struct{}

func (lifecycleTransitionRule) Name() string { return "lifecycle_transition" }

type stateMachine struct {
	label string
	next  map[string]map[string]struct{}
}

func (m stateMachine) allows(from, to string) bool {
	if from == to {
		return true
	}
	targets, ok := m.next[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

func toSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

var batchMachine = stateMachine{
	label: "batch",
	next: map[string]map[string]struct{}{
		string(domain.BatchActive):     toSet(string(domain.BatchHarvesting), string(domain.BatchCompleted)),
		string(domain.BatchHarvesting): toSet(string(domain.BatchCompleted)),
		string(domain.BatchCompleted):  {},
	},
}

var orderMachine = stateMachine{
	label: "order",
	next: map[string]map[string]struct{}{
		string(domain.OrderPending):    toSet(string(domain.OrderProcessing), string(domain.OrderShipped), string(domain.OrderCancelled)),
		string(domain.OrderProcessing): toSet(string(domain.OrderShipped), string(domain.OrderCancelled)),
		string(domain.OrderShipped):    toSet(string(domain.OrderDelivered)),
		string(domain.OrderDelivered):  {},
		string(domain.OrderCancelled):  {},
	},
}

var shipmentMachine = stateMachine{
	label: "shipment",
	next: map[string]map[string]struct{}{
		string(domain.ShipmentPreparing): toSet(string(domain.ShipmentShipped)),
		string(domain.ShipmentShipped):   toSet(string(domain.ShipmentDelivered)),
		string(domain.ShipmentDelivered): {},
	},
}

func (lifecycleTransitionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Action != domain.ActionUpdate {
			continue
		}
		var machine stateMachine
		var id, from, to string
		switch change.Entity {
		case domain.EntityBatch:
			before, okB := change.Before.(domain.Batch)
			after, okA := change.After.(domain.Batch)
			if !okB || !okA {
				continue
			}
			machine, id, from, to = batchMachine, after.ID, string(before.Status), string(after.Status)
		case domain.EntityOrder:
			before, okB := change.Before.(domain.CustomerOrder)
			after, okA := change.After.(domain.CustomerOrder)
			if !okB || !okA {
				continue
			}
			machine, id, from, to = orderMachine, after.ID, string(before.Status), string(after.Status)
		case domain.EntityShipment:
			before, okB := change.Before.(domain.Shipment)
			after, okA := change.After.(domain.Shipment)
			if !okB || !okA {
				continue
			}
			machine, id, from, to = shipmentMachine, after.ID, string(before.Status), string(after.Status)
		default:
			continue
		}
		if !machine.allows(from, to) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "lifecycle_transition",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("%s %s: illegal transition %s -> %s", machine.label, id, from, to),
				Entity:   change.Entity,
				EntityID: id,
			})
		}
	}
	return res, nil
}
