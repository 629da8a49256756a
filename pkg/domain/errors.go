package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// NotFoundError is returned when a referenced entity is absent.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// InvalidStateTransitionError is returned when a lifecycle rule is violated
// before any mutation takes place.
type InvalidStateTransitionError struct {
	Entity EntityType
	ID     string
	From   string
	To     string
}

func (e InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("%s %q cannot transition from %s to %s", e.Entity, e.ID, e.From, e.To)
}

// QuantityOutOfRangeError is returned when a quantity is negative or exceeds
// what is available.
type QuantityOutOfRangeError struct {
	Entity    EntityType
	ID        string
	Quantity  int
	Available int
}

func (e QuantityOutOfRangeError) Error() string {
	return fmt.Sprintf("%s %q quantity %d out of range (available %d)", e.Entity, e.ID, e.Quantity, e.Available)
}

// InsufficientInventoryError is returned when a demand line cannot be
// satisfied from the active batches of its species. Detection mid-allocation
// forces the orchestrator to roll back everything performed so far in the
// fulfillment call.
type InsufficientInventoryError struct {
	SpeciesID string
	Requested int
	Available int
}

func (e InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for species %q: requested %d, available %d", e.SpeciesID, e.Requested, e.Available)
}

// InvalidAmountError is returned for negative cost accruals.
type InvalidAmountError struct {
	BatchID  string
	Category CostCategory
	Amount   decimal.Decimal
}

func (e InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid %s accrual %s for batch %q", e.Category, e.Amount, e.BatchID)
}

// InvalidOrderStateError is returned when an order operation is attempted in
// a state that does not permit it.
type InvalidOrderStateError struct {
	OrderID string
	Status  OrderStatus
}

func (e InvalidOrderStateError) Error() string {
	return fmt.Sprintf("order %q is %s", e.OrderID, e.Status)
}

// TransactionConflictError wraps store-level lock contention or serialization
// failures. The core does not retry internally: a caller whose fulfillment
// attempt ends with unknown commit status must check the order's current
// state before retrying.
type TransactionConflictError struct {
	Op  string
	Err error
}

func (e TransactionConflictError) Error() string {
	return fmt.Sprintf("transaction conflict during %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying store error.
func (e TransactionConflictError) Unwrap() error { return e.Err }

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
