package core

import (
	"aquacore/pkg/domain"
	"context"
	"fmt"
)

// minHarvestAgeDays is the grow-out period below which a harvest is flagged.
const minHarvestAgeDays = 30

// NewUnderageHarvestRule warns when a batch is harvested before its minimum
// grow-out age. The harvest still commits; the warning rides in the Result.
func NewUnderageHarvestRule() domain.Rule {
	return underageHarvestRule{}
}

type underageHarvestRule struct{}

func (underageHarvestRule) Name() string { return "underage_harvest" }

func (underageHarvestRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityBatch || change.Action != domain.ActionUpdate {
			continue
		}
		before, okB := change.Before.(domain.Batch)
		after, okA := change.After.(domain.Batch)
		if !okB || !okA {
			continue
		}
		if before.HarvestedAt != nil || after.HarvestedAt == nil {
			continue
		}
		age := after.AgeDays(*after.HarvestedAt)
		if age < minHarvestAgeDays {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "underage_harvest",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("batch %s harvested at %d days, below the %d day grow-out minimum", after.ID, age, minHarvestAgeDays),
				Entity:   domain.EntityBatch,
				EntityID: after.ID,
			})
		}
	}
	return res, nil
}
