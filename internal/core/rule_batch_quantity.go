package core

import (
	"aquacore/pkg/domain"
	"context"
	"fmt"
)

// NewBatchQuantityRule returns the default in-transaction rule enforcing batch
// quantity bounds: current quantity stays within [0, initial], initial
// quantity is immutable, and completed batches are frozen.
func NewBatchQuantityRule() domain.Rule {
	return batchQuantityRule{}
}

type batchQuantityRule struct{}

func (batchQuantityRule) Name() string { return "batch_quantity" }

func (batchQuantityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, batch := range view.ListBatches() {
		if batch.CurrentQuantity < 0 || batch.CurrentQuantity > batch.InitialQuantity {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "batch_quantity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("batch %s quantity %d outside [0, %d]", batch.ID, batch.CurrentQuantity, batch.InitialQuantity),
				Entity:   domain.EntityBatch,
				EntityID: batch.ID,
			})
		}
		if batch.InitialQuantity <= 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "batch_quantity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("batch %s initial quantity %d must be positive", batch.ID, batch.InitialQuantity),
				Entity:   domain.EntityBatch,
				EntityID: batch.ID,
			})
		}
	}

	for _, change := range changes {
		if change.Entity != domain.EntityBatch || change.Action != domain.ActionUpdate {
			continue
		}
		before, okB := change.Before.(domain.Batch)
		after, okA := change.After.(domain.Batch)
		if !okB || !okA {
			continue
		}
		if before.InitialQuantity != after.InitialQuantity {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "batch_quantity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("batch %s initial quantity is immutable (%d -> %d)", after.ID, before.InitialQuantity, after.InitialQuantity),
				Entity:   domain.EntityBatch,
				EntityID: after.ID,
			})
		}
		if before.Status == domain.BatchCompleted && before.CurrentQuantity != after.CurrentQuantity {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "batch_quantity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("batch %s is completed and frozen; quantity cannot change (%d -> %d)", after.ID, before.CurrentQuantity, after.CurrentQuantity),
				Entity:   domain.EntityBatch,
				EntityID: after.ID,
			})
		}
	}
	return res, nil
}
