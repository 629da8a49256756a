package core

import (
	"aquacore/pkg/domain"
	"context"
	"fmt"
)

// NewCostMonotonicRule enforces that cost ledgers are accrual-only: no
// component total may decrease across an update.
func NewCostMonotonicRule() domain.Rule {
	return costMonotonicRule{}
}

type costMonotonicRule struct{}

func (costMonotonicRule) Name() string { return "cost_monotonic" }

var costCategories = []domain.CostCategory{
	domain.CostFeed,
	domain.CostLabor,
	domain.CostUtility,
	domain.CostMedication,
}

func (costMonotonicRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityCostLedger || change.Action != domain.ActionUpdate {
			continue
		}
		before, okB := change.Before.(domain.CostLedger)
		after, okA := change.After.(domain.CostLedger)
		if !okB || !okA {
			continue
		}
		for _, category := range costCategories {
			prev := before.Component(category)
			next := after.Component(category)
			if next.LessThan(prev) {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "cost_monotonic",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("ledger for batch %s: %s total decreased (%s -> %s)", after.BatchID, category, prev, next),
					Entity:   domain.EntityCostLedger,
					EntityID: after.BatchID,
				})
			}
		}
	}
	return res, nil
}
