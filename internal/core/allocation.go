package core

import (
	"sort"

	"aquacore/pkg/domain"

	"github.com/shopspring/decimal"
)

// allocationCandidate pairs a sellable batch with its cost-per-unit snapshot
// taken before any debit from the allocation being planned.
type allocationCandidate struct {
	Batch       Batch
	CostPerUnit decimal.Decimal
}

// costPerUnit divides the accrued ledger total by the quantity the batch
// holds right now. A drained batch snapshots at zero.
func costPerUnit(ledger CostLedger, quantity int) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	return ledger.Total().Div(decimal.NewFromInt(int64(quantity)))
}

// sellable reports whether a batch can supply allocations.
func sellable(b Batch) bool {
	return (b.Status == BatchActive || b.Status == BatchHarvesting) && b.CurrentQuantity > 0
}

// fifoCandidates collects the sellable batches of a species in allocation
// order: oldest birth date first, batch ID as the deterministic tie-break.
// Harvesting batches are included alongside active ones; a batch mid-harvest
// still holds live inventory and remains allocatable until completed.
func fifoCandidates(view TransactionView, speciesID string) []allocationCandidate {
	var candidates []allocationCandidate
	for _, batch := range view.ListBatches() {
		if batch.SpeciesID != speciesID || !sellable(batch) {
			continue
		}
		ledger, ok := view.FindCostLedger(batch.ID)
		if !ok {
			ledger = CostLedger{BatchID: batch.ID}
		}
		candidates = append(candidates, allocationCandidate{
			Batch:       batch,
			CostPerUnit: costPerUnit(ledger, batch.CurrentQuantity),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		bi, bj := candidates[i].Batch, candidates[j].Batch
		if !bi.BirthDate.Equal(bj.BirthDate) {
			return bi.BirthDate.Before(bj.BirthDate)
		}
		return bi.ID < bj.ID
	})
	return candidates
}

// planAllocation walks the ordered candidates and emits one allocation record
// per batch drawn from, until the requested quantity is covered. It is a pure
// function: no state is mutated. When the candidates cannot cover the request
// the whole plan fails with InsufficientInventoryError.
func planAllocation(speciesID string, requested int, candidates []allocationCandidate) ([]AllocationRecord, error) {
	available := 0
	for _, c := range candidates {
		available += c.Batch.CurrentQuantity
	}
	if available < requested {
		return nil, domain.InsufficientInventoryError{
			SpeciesID: speciesID,
			Requested: requested,
			Available: available,
		}
	}

	records := make([]AllocationRecord, 0, 1)
	remaining := requested
	for _, c := range candidates {
		if remaining == 0 {
			break
		}
		take := c.Batch.CurrentQuantity
		if take > remaining {
			take = remaining
		}
		records = append(records, AllocationRecord{
			BatchID:     c.Batch.ID,
			Quantity:    take,
			CostPerUnit: c.CostPerUnit,
		})
		remaining -= take
	}
	return records, nil
}

// applyAllocation debits each planned record's quantity from its batch inside
// the supplied transaction.
func applyAllocation(tx domain.Transaction, records []AllocationRecord) error {
	for _, record := range records {
		quantity := record.Quantity
		_, err := tx.UpdateBatch(record.BatchID, func(b *Batch) error {
			if quantity > b.CurrentQuantity {
				return domain.QuantityOutOfRangeError{
					Entity:    EntityBatch,
					ID:        b.ID,
					Quantity:  quantity,
					Available: b.CurrentQuantity,
				}
			}
			b.CurrentQuantity -= quantity
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
