// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments. Transactions clone the
// whole state under a single writer lock, apply mutations, evaluate rules and
// swap the state on success, which yields serializable isolation: concurrent
// debits of one batch can never jointly exceed its current quantity.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"aquacore/pkg/domain"

	"github.com/google/uuid"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Species aliases domain.Species for in-memory persistence operations.
	Species = domain.Species
	// Pond aliases domain.Pond.
	Pond = domain.Pond
	// Batch aliases domain.Batch.
	Batch = domain.Batch
	// CostLedger aliases domain.CostLedger.
	CostLedger = domain.CostLedger
	// CustomerOrder aliases domain.CustomerOrder.
	CustomerOrder = domain.CustomerOrder
	// Shipment aliases domain.Shipment.
	Shipment = domain.Shipment
	// HealthEvent aliases domain.HealthEvent.
	HealthEvent = domain.HealthEvent
	// WaterQualityReading aliases domain.WaterQualityReading.
	WaterQualityReading = domain.WaterQualityReading
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

type memoryState struct {
	species   map[string]Species
	ponds     map[string]Pond
	batches   map[string]Batch
	ledgers   map[string]CostLedger // keyed by batch ID
	orders    map[string]CustomerOrder
	shipments map[string]Shipment
	health    map[string]HealthEvent
	water     map[string]WaterQualityReading
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Species   map[string]Species             `json:"species"`
	Ponds     map[string]Pond                `json:"ponds"`
	Batches   map[string]Batch               `json:"batches"`
	Ledgers   map[string]CostLedger          `json:"ledgers"`
	Orders    map[string]CustomerOrder       `json:"orders"`
	Shipments map[string]Shipment            `json:"shipments"`
	Health    map[string]HealthEvent         `json:"health_events"`
	Water     map[string]WaterQualityReading `json:"water_quality"`
}

func newMemoryState() memoryState {
	return memoryState{
		species:   make(map[string]Species),
		ponds:     make(map[string]Pond),
		batches:   make(map[string]Batch),
		ledgers:   make(map[string]CostLedger),
		orders:    make(map[string]CustomerOrder),
		shipments: make(map[string]Shipment),
		health:    make(map[string]HealthEvent),
		water:     make(map[string]WaterQualityReading),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Species:   make(map[string]Species, len(state.species)),
		Ponds:     make(map[string]Pond, len(state.ponds)),
		Batches:   make(map[string]Batch, len(state.batches)),
		Ledgers:   make(map[string]CostLedger, len(state.ledgers)),
		Orders:    make(map[string]CustomerOrder, len(state.orders)),
		Shipments: make(map[string]Shipment, len(state.shipments)),
		Health:    make(map[string]HealthEvent, len(state.health)),
		Water:     make(map[string]WaterQualityReading, len(state.water)),
	}
	for k, v := range state.species {
		s.Species[k] = v
	}
	for k, v := range state.ponds {
		s.Ponds[k] = v
	}
	for k, v := range state.batches {
		s.Batches[k] = cloneBatch(v)
	}
	for k, v := range state.ledgers {
		s.Ledgers[k] = v
	}
	for k, v := range state.orders {
		s.Orders[k] = cloneOrder(v)
	}
	for k, v := range state.shipments {
		s.Shipments[k] = cloneShipment(v)
	}
	for k, v := range state.health {
		s.Health[k] = v
	}
	for k, v := range state.water {
		s.Water[k] = v
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Species {
		state.species[k] = v
	}
	for k, v := range s.Ponds {
		state.ponds[k] = v
	}
	for k, v := range s.Batches {
		state.batches[k] = cloneBatch(v)
	}
	for k, v := range s.Ledgers {
		state.ledgers[k] = v
	}
	for k, v := range s.Orders {
		state.orders[k] = cloneOrder(v)
	}
	for k, v := range s.Shipments {
		state.shipments[k] = cloneShipment(v)
	}
	for k, v := range s.Health {
		state.health[k] = v
	}
	for k, v := range s.Water {
		state.water[k] = v
	}
	return state
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.species {
		cloned.species[k] = v
	}
	for k, v := range s.ponds {
		cloned.ponds[k] = v
	}
	for k, v := range s.batches {
		cloned.batches[k] = cloneBatch(v)
	}
	for k, v := range s.ledgers {
		cloned.ledgers[k] = v
	}
	for k, v := range s.orders {
		cloned.orders[k] = cloneOrder(v)
	}
	for k, v := range s.shipments {
		cloned.shipments[k] = cloneShipment(v)
	}
	for k, v := range s.health {
		cloned.health[k] = v
	}
	for k, v := range s.water {
		cloned.water[k] = v
	}
	return cloned
}

func cloneBatch(b Batch) Batch {
	cp := b
	if b.EstimatedHarvest != nil {
		t := *b.EstimatedHarvest
		cp.EstimatedHarvest = &t
	}
	if b.HarvestedAt != nil {
		t := *b.HarvestedAt
		cp.HarvestedAt = &t
	}
	return cp
}

func cloneOrder(o CustomerOrder) CustomerOrder {
	cp := o
	cp.Lines = append([]domain.DemandLine(nil), o.Lines...)
	return cp
}

func cloneShipment(s Shipment) Shipment {
	cp := s
	cp.Allocations = append([]domain.AllocationRecord(nil), s.Allocations...)
	return cp
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc overrides the store's time provider, primarily for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

// transactionView exposes a read-only snapshot of the transactional state to rules.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The commit is withheld when fn errors, when a blocking rule violation is
// present, or when ctx is cancelled before the state swap.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	// Cancellation is honored up to this point; afterwards the swap is
	// committed and the caller observes success.
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func (tx *transaction) FindSpecies(id string) (Species, bool) {
	sp, ok := tx.state.species[id]
	return sp, ok
}

func (tx *transaction) FindPond(id string) (Pond, bool) {
	p, ok := tx.state.ponds[id]
	return p, ok
}

func (tx *transaction) FindBatch(id string) (Batch, bool) {
	b, ok := tx.state.batches[id]
	if !ok {
		return Batch{}, false
	}
	return cloneBatch(b), true
}

func (tx *transaction) FindCostLedger(batchID string) (CostLedger, bool) {
	l, ok := tx.state.ledgers[batchID]
	return l, ok
}

func (tx *transaction) FindOrder(id string) (CustomerOrder, bool) {
	o, ok := tx.state.orders[id]
	if !ok {
		return CustomerOrder{}, false
	}
	return cloneOrder(o), true
}

func (tx *transaction) FindShipment(id string) (Shipment, bool) {
	sh, ok := tx.state.shipments[id]
	if !ok {
		return Shipment{}, false
	}
	return cloneShipment(sh), true
}

// CreateSpecies stores a new species within the transaction.
func (tx *transaction) CreateSpecies(sp Species) (Species, error) {
	if sp.ID == "" {
		sp.ID = tx.store.newID()
	}
	if _, exists := tx.state.species[sp.ID]; exists {
		return Species{}, alreadyExists(domain.EntitySpecies, sp.ID)
	}
	sp.CreatedAt = tx.now
	sp.UpdatedAt = tx.now
	tx.state.species[sp.ID] = sp
	tx.recordChange(Change{Entity: domain.EntitySpecies, Action: domain.ActionCreate, After: sp})
	return sp, nil
}

// UpdateSpecies mutates a species using the provided mutator function.
func (tx *transaction) UpdateSpecies(id string, mutator func(*Species) error) (Species, error) {
	current, ok := tx.state.species[id]
	if !ok {
		return Species{}, domain.NotFoundError{Entity: domain.EntitySpecies, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Species{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.species[id] = current
	tx.recordChange(Change{Entity: domain.EntitySpecies, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreatePond stores new pond metadata.
func (tx *transaction) CreatePond(p Pond) (Pond, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.ponds[p.ID]; exists {
		return Pond{}, alreadyExists(domain.EntityPond, p.ID)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.ponds[p.ID] = p
	tx.recordChange(Change{Entity: domain.EntityPond, Action: domain.ActionCreate, After: p})
	return p, nil
}

// UpdatePond mutates pond metadata.
func (tx *transaction) UpdatePond(id string, mutator func(*Pond) error) (Pond, error) {
	current, ok := tx.state.ponds[id]
	if !ok {
		return Pond{}, domain.NotFoundError{Entity: domain.EntityPond, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Pond{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.ponds[id] = current
	tx.recordChange(Change{Entity: domain.EntityPond, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreateBatch stores a new batch within the transaction.
func (tx *transaction) CreateBatch(b Batch) (Batch, error) {
	if b.ID == "" {
		b.ID = tx.store.newID()
	}
	if _, exists := tx.state.batches[b.ID]; exists {
		return Batch{}, alreadyExists(domain.EntityBatch, b.ID)
	}
	b.CreatedAt = tx.now
	b.UpdatedAt = tx.now
	tx.state.batches[b.ID] = cloneBatch(b)
	tx.recordChange(Change{Entity: domain.EntityBatch, Action: domain.ActionCreate, After: cloneBatch(b)})
	return cloneBatch(b), nil
}

// UpdateBatch mutates a batch using the provided mutator function.
func (tx *transaction) UpdateBatch(id string, mutator func(*Batch) error) (Batch, error) {
	current, ok := tx.state.batches[id]
	if !ok {
		return Batch{}, domain.NotFoundError{Entity: domain.EntityBatch, ID: id}
	}
	before := cloneBatch(current)
	if err := mutator(&current); err != nil {
		return Batch{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.batches[id] = cloneBatch(current)
	tx.recordChange(Change{Entity: domain.EntityBatch, Action: domain.ActionUpdate, Before: before, After: cloneBatch(current)})
	return cloneBatch(current), nil
}

// CreateCostLedger stores a new cost ledger keyed by its batch.
func (tx *transaction) CreateCostLedger(l CostLedger) (CostLedger, error) {
	if l.BatchID == "" {
		return CostLedger{}, domain.NotFoundError{Entity: domain.EntityBatch, ID: ""}
	}
	if _, exists := tx.state.ledgers[l.BatchID]; exists {
		return CostLedger{}, alreadyExists(domain.EntityCostLedger, l.BatchID)
	}
	if l.ID == "" {
		l.ID = tx.store.newID()
	}
	l.CreatedAt = tx.now
	l.UpdatedAt = tx.now
	tx.state.ledgers[l.BatchID] = l
	tx.recordChange(Change{Entity: domain.EntityCostLedger, Action: domain.ActionCreate, After: l})
	return l, nil
}

// UpdateCostLedger mutates the ledger belonging to batchID.
func (tx *transaction) UpdateCostLedger(batchID string, mutator func(*CostLedger) error) (CostLedger, error) {
	current, ok := tx.state.ledgers[batchID]
	if !ok {
		return CostLedger{}, domain.NotFoundError{Entity: domain.EntityCostLedger, ID: batchID}
	}
	before := current
	if err := mutator(&current); err != nil {
		return CostLedger{}, err
	}
	current.BatchID = batchID
	current.UpdatedAt = tx.now
	tx.state.ledgers[batchID] = current
	tx.recordChange(Change{Entity: domain.EntityCostLedger, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreateOrder stores a new customer order.
func (tx *transaction) CreateOrder(o CustomerOrder) (CustomerOrder, error) {
	if o.ID == "" {
		o.ID = tx.store.newID()
	}
	if _, exists := tx.state.orders[o.ID]; exists {
		return CustomerOrder{}, alreadyExists(domain.EntityOrder, o.ID)
	}
	o.CreatedAt = tx.now
	o.UpdatedAt = tx.now
	tx.state.orders[o.ID] = cloneOrder(o)
	tx.recordChange(Change{Entity: domain.EntityOrder, Action: domain.ActionCreate, After: cloneOrder(o)})
	return cloneOrder(o), nil
}

// UpdateOrder mutates an order using the provided mutator function.
func (tx *transaction) UpdateOrder(id string, mutator func(*CustomerOrder) error) (CustomerOrder, error) {
	current, ok := tx.state.orders[id]
	if !ok {
		return CustomerOrder{}, domain.NotFoundError{Entity: domain.EntityOrder, ID: id}
	}
	before := cloneOrder(current)
	if err := mutator(&current); err != nil {
		return CustomerOrder{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.orders[id] = cloneOrder(current)
	tx.recordChange(Change{Entity: domain.EntityOrder, Action: domain.ActionUpdate, Before: before, After: cloneOrder(current)})
	return cloneOrder(current), nil
}

// CreateShipment stores a new shipment.
func (tx *transaction) CreateShipment(sh Shipment) (Shipment, error) {
	if sh.ID == "" {
		sh.ID = tx.store.newID()
	}
	if _, exists := tx.state.shipments[sh.ID]; exists {
		return Shipment{}, alreadyExists(domain.EntityShipment, sh.ID)
	}
	sh.CreatedAt = tx.now
	sh.UpdatedAt = tx.now
	tx.state.shipments[sh.ID] = cloneShipment(sh)
	tx.recordChange(Change{Entity: domain.EntityShipment, Action: domain.ActionCreate, After: cloneShipment(sh)})
	return cloneShipment(sh), nil
}

// UpdateShipment mutates a shipment using the provided mutator function.
func (tx *transaction) UpdateShipment(id string, mutator func(*Shipment) error) (Shipment, error) {
	current, ok := tx.state.shipments[id]
	if !ok {
		return Shipment{}, domain.NotFoundError{Entity: domain.EntityShipment, ID: id}
	}
	before := cloneShipment(current)
	if err := mutator(&current); err != nil {
		return Shipment{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.shipments[id] = cloneShipment(current)
	tx.recordChange(Change{Entity: domain.EntityShipment, Action: domain.ActionUpdate, Before: before, After: cloneShipment(current)})
	return cloneShipment(current), nil
}

// AppendHealthEvent stores a new health event. Events are append-only.
func (tx *transaction) AppendHealthEvent(ev HealthEvent) (HealthEvent, error) {
	if ev.ID == "" {
		ev.ID = tx.store.newID()
	}
	if _, exists := tx.state.health[ev.ID]; exists {
		return HealthEvent{}, alreadyExists(domain.EntityHealthEvent, ev.ID)
	}
	ev.CreatedAt = tx.now
	ev.UpdatedAt = tx.now
	if ev.RecordedAt.IsZero() {
		ev.RecordedAt = tx.now
	}
	tx.state.health[ev.ID] = ev
	tx.recordChange(Change{Entity: domain.EntityHealthEvent, Action: domain.ActionCreate, After: ev})
	return ev, nil
}

// AppendWaterQualityReading stores a new reading. Readings are append-only.
func (tx *transaction) AppendWaterQualityReading(r WaterQualityReading) (WaterQualityReading, error) {
	if r.ID == "" {
		r.ID = tx.store.newID()
	}
	if _, exists := tx.state.water[r.ID]; exists {
		return WaterQualityReading{}, alreadyExists(domain.EntityWaterQuality, r.ID)
	}
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	if r.RecordedAt.IsZero() {
		r.RecordedAt = tx.now
	}
	tx.state.water[r.ID] = r
	tx.recordChange(Change{Entity: domain.EntityWaterQuality, Action: domain.ActionCreate, After: r})
	return r, nil
}

func (v transactionView) ListSpecies() []Species {
	out := make([]Species, 0, len(v.state.species))
	for _, sp := range v.state.species {
		out = append(out, sp)
	}
	sortByID(out, func(sp Species) string { return sp.ID })
	return out
}

func (v transactionView) ListPonds() []Pond {
	out := make([]Pond, 0, len(v.state.ponds))
	for _, p := range v.state.ponds {
		out = append(out, p)
	}
	sortByID(out, func(p Pond) string { return p.ID })
	return out
}

func (v transactionView) ListBatches() []Batch {
	out := make([]Batch, 0, len(v.state.batches))
	for _, b := range v.state.batches {
		out = append(out, cloneBatch(b))
	}
	sortByID(out, func(b Batch) string { return b.ID })
	return out
}

func (v transactionView) ListCostLedgers() []CostLedger {
	out := make([]CostLedger, 0, len(v.state.ledgers))
	for _, l := range v.state.ledgers {
		out = append(out, l)
	}
	sortByID(out, func(l CostLedger) string { return l.BatchID })
	return out
}

func (v transactionView) ListOrders() []CustomerOrder {
	out := make([]CustomerOrder, 0, len(v.state.orders))
	for _, o := range v.state.orders {
		out = append(out, cloneOrder(o))
	}
	sortByID(out, func(o CustomerOrder) string { return o.ID })
	return out
}

func (v transactionView) ListShipments() []Shipment {
	out := make([]Shipment, 0, len(v.state.shipments))
	for _, sh := range v.state.shipments {
		out = append(out, cloneShipment(sh))
	}
	sortByID(out, func(sh Shipment) string { return sh.ID })
	return out
}

func (v transactionView) ListHealthEvents() []HealthEvent {
	out := make([]HealthEvent, 0, len(v.state.health))
	for _, ev := range v.state.health {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.Before(out[j].RecordedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v transactionView) ListWaterQualityReadings() []WaterQualityReading {
	out := make([]WaterQualityReading, 0, len(v.state.water))
	for _, r := range v.state.water {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.Before(out[j].RecordedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v transactionView) FindSpecies(id string) (Species, bool) {
	sp, ok := v.state.species[id]
	return sp, ok
}

func (v transactionView) FindPond(id string) (Pond, bool) {
	p, ok := v.state.ponds[id]
	return p, ok
}

func (v transactionView) FindBatch(id string) (Batch, bool) {
	b, ok := v.state.batches[id]
	if !ok {
		return Batch{}, false
	}
	return cloneBatch(b), true
}

func (v transactionView) FindCostLedger(batchID string) (CostLedger, bool) {
	l, ok := v.state.ledgers[batchID]
	return l, ok
}

func (v transactionView) FindOrder(id string) (CustomerOrder, bool) {
	o, ok := v.state.orders[id]
	if !ok {
		return CustomerOrder{}, false
	}
	return cloneOrder(o), true
}

func (v transactionView) FindShipment(id string) (Shipment, bool) {
	sh, ok := v.state.shipments[id]
	if !ok {
		return Shipment{}, false
	}
	return cloneShipment(sh), true
}

// GetSpecies returns the species with the given ID from committed state.
func (s *Store) GetSpecies(id string) (Species, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.state.species[id]
	return sp, ok
}

// ListSpecies returns all species in committed state.
func (s *Store) ListSpecies() []Species {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListSpecies()
}

// GetPond returns the pond with the given ID from committed state.
func (s *Store) GetPond(id string) (Pond, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.ponds[id]
	return p, ok
}

// ListPonds returns all ponds in committed state.
func (s *Store) ListPonds() []Pond {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListPonds()
}

// GetBatch returns the batch with the given ID from committed state.
func (s *Store) GetBatch(id string) (Batch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.state.batches[id]
	if !ok {
		return Batch{}, false
	}
	return cloneBatch(b), true
}

// ListBatches returns all batches in committed state.
func (s *Store) ListBatches() []Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListBatches()
}

// GetCostLedger returns the ledger for batchID from committed state.
func (s *Store) GetCostLedger(batchID string) (CostLedger, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.state.ledgers[batchID]
	return l, ok
}

// GetOrder returns the order with the given ID from committed state.
func (s *Store) GetOrder(id string) (CustomerOrder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.state.orders[id]
	if !ok {
		return CustomerOrder{}, false
	}
	return cloneOrder(o), true
}

// ListOrders returns all orders in committed state.
func (s *Store) ListOrders() []CustomerOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListOrders()
}

// GetShipment returns the shipment with the given ID from committed state.
func (s *Store) GetShipment(id string) (Shipment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.state.shipments[id]
	if !ok {
		return Shipment{}, false
	}
	return cloneShipment(sh), true
}

// ListShipments returns all shipments in committed state.
func (s *Store) ListShipments() []Shipment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListShipments()
}

// ListHealthEvents returns events for batchID ordered by recorded time.
// An empty batchID returns all events.
func (s *Store) ListHealthEvents(batchID string) []HealthEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := newTransactionView(&s.state).ListHealthEvents()
	if batchID == "" {
		return all
	}
	out := all[:0]
	for _, ev := range all {
		if ev.BatchID == batchID {
			out = append(out, ev)
		}
	}
	return out
}

// ListWaterQualityReadings returns readings for pondID ordered by recorded
// time. An empty pondID returns all readings.
func (s *Store) ListWaterQualityReadings(pondID string) []WaterQualityReading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := newTransactionView(&s.state).ListWaterQualityReadings()
	if pondID == "" {
		return all
	}
	out := all[:0]
	for _, r := range all {
		if r.PondID == pondID {
			out = append(out, r)
		}
	}
	return out
}

func alreadyExists(entity domain.EntityType, id string) error {
	return fmt.Errorf("%s %q already exists", entity, id)
}

func sortByID[T any](items []T, id func(T) string) {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) < id(items[j]) })
}
