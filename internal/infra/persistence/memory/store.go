// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments. Durable backends reuse its
// transactional semantics and persist snapshots of its state.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"clamflow/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Supplier aliases domain.Supplier for in-memory persistence operations.
	Supplier = domain.Supplier
	// RawMaterial aliases domain.RawMaterial.
	RawMaterial = domain.RawMaterial
	// Lot aliases domain.Lot.
	Lot = domain.Lot
	// ProcessingBatch aliases domain.ProcessingBatch.
	ProcessingBatch = domain.ProcessingBatch
	// ShellWeight aliases domain.ShellWeight.
	ShellWeight = domain.ShellWeight
	// Package aliases domain.Package.
	Package = domain.Package
	// ProductGrade aliases domain.ProductGrade.
	ProductGrade = domain.ProductGrade
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
)

// SchemaVersion is the current snapshot schema version. Snapshots written at
// a higher version are rejected with domain.SchemaVersionError; older
// snapshots pass through the ordered migration steps on load.
const SchemaVersion = 5

type memoryState struct {
	suppliers    map[uint64]Supplier
	receipts     map[uint64]RawMaterial
	lots         map[string]Lot
	batches      map[uint64]ProcessingBatch
	shellWeights map[uint64]ShellWeight
	packages     map[uint64]Package
	grades       map[uint64]ProductGrade
	sequences    map[string]uint64
}

// Snapshot captures a point-in-time clone of the store state, including the
// schema version and identity sequences so durable backends never reuse IDs.
type Snapshot struct {
	SchemaVersion int                        `json:"schema_version"`
	Suppliers     map[uint64]Supplier        `json:"suppliers"`
	Receipts      map[uint64]RawMaterial     `json:"raw_materials"`
	Lots          map[string]Lot             `json:"lots"`
	Batches       map[uint64]ProcessingBatch `json:"processing_batches"`
	ShellWeights  map[uint64]ShellWeight     `json:"shell_weights"`
	Packages      map[uint64]Package         `json:"packages"`
	Grades        map[uint64]ProductGrade    `json:"product_grades"`
	Sequences     map[string]uint64          `json:"sequences"`
}

// Sequence bucket names.
const (
	seqSuppliers    = "suppliers"
	seqReceipts     = "raw_materials"
	seqLots         = "lots"
	seqBatches      = "processing_batches"
	seqShellWeights = "shell_weights"
	seqPackages     = "packages"
	seqGrades       = "product_grades"
)

func newMemoryState() memoryState {
	return memoryState{
		suppliers:    make(map[uint64]Supplier),
		receipts:     make(map[uint64]RawMaterial),
		lots:         make(map[string]Lot),
		batches:      make(map[uint64]ProcessingBatch),
		shellWeights: make(map[uint64]ShellWeight),
		packages:     make(map[uint64]Package),
		grades:       make(map[uint64]ProductGrade),
		sequences:    make(map[string]uint64),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.suppliers {
		cloned.suppliers[k] = v
	}
	for k, v := range s.receipts {
		cloned.receipts[k] = cloneReceipt(v)
	}
	for k, v := range s.lots {
		cloned.lots[k] = cloneLot(v)
	}
	for k, v := range s.batches {
		cloned.batches[k] = cloneBatch(v)
	}
	for k, v := range s.shellWeights {
		cloned.shellWeights[k] = v
	}
	for k, v := range s.packages {
		cloned.packages[k] = v
	}
	for k, v := range s.grades {
		cloned.grades[k] = v
	}
	for k, v := range s.sequences {
		cloned.sequences[k] = v
	}
	return cloned
}

func cloneReceipt(r RawMaterial) RawMaterial {
	cp := r
	if r.LotNumber != nil {
		lot := *r.LotNumber
		cp.LotNumber = &lot
	}
	return cp
}

func cloneLot(l Lot) Lot {
	cp := l
	cp.ReceiptIDs = append([]uint64(nil), l.ReceiptIDs...)
	return cp
}

func cloneBatch(b ProcessingBatch) ProcessingBatch {
	cp := b
	cp.Boxes = append([]domain.Box(nil), b.Boxes...)
	return cp
}

// Store provides the in-memory transactional store for the traceability core.
// A single writer lock gives multi-record mutations serializable semantics;
// readers operate on committed state only.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store at the current schema version with
// reference data seeded.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	snapshot, _ := MigrateSnapshot(Snapshot{})
	s := &Store{
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	s.state = stateFromSnapshot(snapshot)
	return s
}

// SetNowFunc overrides the transaction clock; intended for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		s.nowFn = fn
	}
}

// transaction applies mutations to a cloned state that replaces the committed
// state only when fn and the rules engine both pass.
type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

var _ Transaction = (*transaction)(nil)

// RunInTransaction executes fn within a transactional copy of the store state.
// Any error from fn, and any blocking rule violation, leaves committed state
// untouched.
func (s *Store) RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error) {
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
		view := stateView{state: &tx.state}
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(stateView{state: &snapshot})
}

// SchemaVersion reports the schema version of the loaded state.
func (s *Store) SchemaVersion() int { return SchemaVersion }

// Reset deletes all data and reinitializes from scratch with seed reference
// data. Destructive; used only as a recovery path from an unrecoverable
// version conflict.
func (s *Store) Reset(_ context.Context) error {
	snapshot, err := MigrateSnapshot(Snapshot{})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.state = stateFromSnapshot(snapshot)
	s.mu.Unlock()
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

func (tx *transaction) nextID(bucket string) uint64 {
	tx.state.sequences[bucket]++
	return tx.state.sequences[bucket]
}

// Snapshot exposes the transactional state for read-side joins and
// reference checks inside the same atomic scope.
func (tx *transaction) Snapshot() TransactionView {
	return stateView{state: &tx.state}
}

// CreateSupplier stores a new supplier reference record.
func (tx *transaction) CreateSupplier(sup Supplier) (Supplier, error) {
	if sup.ID == 0 {
		sup.ID = tx.nextID(seqSuppliers)
	}
	if _, exists := tx.state.suppliers[sup.ID]; exists {
		return Supplier{}, domain.ConflictError{Entity: domain.EntitySupplier, Key: formatID(sup.ID), Reason: "id already exists"}
	}
	sup.CreatedAt = tx.now
	sup.UpdatedAt = tx.now
	tx.state.suppliers[sup.ID] = sup
	tx.recordChange(Change{Entity: domain.EntitySupplier, Action: domain.ActionCreate, After: sup})
	return sup, nil
}

// UpdateSupplier mutates a supplier using the provided mutator.
func (tx *transaction) UpdateSupplier(id uint64, mutator func(*Supplier) error) (Supplier, error) {
	current, ok := tx.state.suppliers[id]
	if !ok {
		return Supplier{}, domain.NotFoundError{Entity: domain.EntitySupplier, Key: formatID(id)}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Supplier{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.suppliers[id] = current
	tx.recordChange(Change{Entity: domain.EntitySupplier, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteSupplier removes a supplier unless raw material still references it.
func (tx *transaction) DeleteSupplier(id uint64) error {
	current, ok := tx.state.suppliers[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntitySupplier, Key: formatID(id)}
	}
	for _, receipt := range tx.state.receipts {
		if receipt.SupplierID == id {
			return domain.ReferentialIntegrityError{
				Entity:       domain.EntitySupplier,
				Key:          formatID(id),
				ReferencedBy: domain.EntityReceipt,
				ReferenceKey: formatID(receipt.ID),
			}
		}
	}
	delete(tx.state.suppliers, id)
	tx.recordChange(Change{Entity: domain.EntitySupplier, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateReceipt stores a new raw material receipt.
func (tx *transaction) CreateReceipt(r RawMaterial) (RawMaterial, error) {
	if r.ID == 0 {
		r.ID = tx.nextID(seqReceipts)
	}
	if _, exists := tx.state.receipts[r.ID]; exists {
		return RawMaterial{}, domain.ConflictError{Entity: domain.EntityReceipt, Key: formatID(r.ID), Reason: "id already exists"}
	}
	if _, ok := tx.state.suppliers[r.SupplierID]; !ok {
		return RawMaterial{}, domain.NotFoundError{Entity: domain.EntitySupplier, Key: formatID(r.SupplierID)}
	}
	if r.Status == "" {
		r.Status = domain.ReceiptStatusPending
	}
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	tx.state.receipts[r.ID] = cloneReceipt(r)
	tx.recordChange(Change{Entity: domain.EntityReceipt, Action: domain.ActionCreate, After: cloneReceipt(r)})
	return cloneReceipt(r), nil
}

// UpdateReceipt mutates a receipt using the provided mutator. Receipts are
// only mutated to stamp lot assignment; they are never deleted in normal flow.
func (tx *transaction) UpdateReceipt(id uint64, mutator func(*RawMaterial) error) (RawMaterial, error) {
	current, ok := tx.state.receipts[id]
	if !ok {
		return RawMaterial{}, domain.NotFoundError{Entity: domain.EntityReceipt, Key: formatID(id)}
	}
	before := cloneReceipt(current)
	if err := mutator(&current); err != nil {
		return RawMaterial{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.receipts[id] = cloneReceipt(current)
	tx.recordChange(Change{Entity: domain.EntityReceipt, Action: domain.ActionUpdate, Before: before, After: cloneReceipt(current)})
	return cloneReceipt(current), nil
}

// CreateLot stores a new lot keyed by its business lot number.
func (tx *transaction) CreateLot(l Lot) (Lot, error) {
	if l.LotNumber == "" {
		return Lot{}, domain.ValidationError{Field: "lotNumber", Reason: "must not be empty"}
	}
	if _, exists := tx.state.lots[l.LotNumber]; exists {
		return Lot{}, domain.ConflictError{Entity: domain.EntityLot, Key: l.LotNumber, Reason: "lot number already exists"}
	}
	if l.ID == 0 {
		l.ID = tx.nextID(seqLots)
	}
	if l.Status == "" {
		l.Status = domain.LotStatusPending
	}
	l.CreatedAt = tx.now
	l.UpdatedAt = tx.now
	tx.state.lots[l.LotNumber] = cloneLot(l)
	tx.recordChange(Change{Entity: domain.EntityLot, Action: domain.ActionCreate, After: cloneLot(l)})
	return cloneLot(l), nil
}

// UpdateLot mutates a lot addressed by its business lot number.
func (tx *transaction) UpdateLot(lotNumber string, mutator func(*Lot) error) (Lot, error) {
	current, ok := tx.state.lots[lotNumber]
	if !ok {
		return Lot{}, domain.NotFoundError{Entity: domain.EntityLot, Key: lotNumber}
	}
	before := cloneLot(current)
	if err := mutator(&current); err != nil {
		return Lot{}, err
	}
	current.LotNumber = lotNumber
	current.UpdatedAt = tx.now
	tx.state.lots[lotNumber] = cloneLot(current)
	tx.recordChange(Change{Entity: domain.EntityLot, Action: domain.ActionUpdate, Before: before, After: cloneLot(current)})
	return cloneLot(current), nil
}

// CreateProcessingBatch stores a processing batch record.
func (tx *transaction) CreateProcessingBatch(b ProcessingBatch) (ProcessingBatch, error) {
	if _, ok := tx.state.lots[b.LotNumber]; !ok {
		return ProcessingBatch{}, domain.NotFoundError{Entity: domain.EntityLot, Key: b.LotNumber}
	}
	if b.ID == 0 {
		b.ID = tx.nextID(seqBatches)
	}
	b.CreatedAt = tx.now
	b.UpdatedAt = tx.now
	tx.state.batches[b.ID] = cloneBatch(b)
	tx.recordChange(Change{Entity: domain.EntityProcessingBatch, Action: domain.ActionCreate, After: cloneBatch(b)})
	return cloneBatch(b), nil
}

// CreateShellWeight stores a shell-weight ledger entry.
func (tx *transaction) CreateShellWeight(w ShellWeight) (ShellWeight, error) {
	if w.ID == 0 {
		w.ID = tx.nextID(seqShellWeights)
	}
	w.CreatedAt = tx.now
	w.UpdatedAt = tx.now
	tx.state.shellWeights[w.ID] = w
	tx.recordChange(Change{Entity: domain.EntityShellWeight, Action: domain.ActionCreate, After: w})
	return w, nil
}

// DeleteShellWeight removes exactly one ledger entry by id.
func (tx *transaction) DeleteShellWeight(id uint64) error {
	current, ok := tx.state.shellWeights[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityShellWeight, Key: formatID(id)}
	}
	delete(tx.state.shellWeights, id)
	tx.recordChange(Change{Entity: domain.EntityShellWeight, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreatePackage stores a sealed package record. Packages are immutable once
// created.
func (tx *transaction) CreatePackage(p Package) (Package, error) {
	if _, ok := tx.state.lots[p.LotNumber]; !ok {
		return Package{}, domain.NotFoundError{Entity: domain.EntityLot, Key: p.LotNumber}
	}
	if p.ID == 0 {
		p.ID = tx.nextID(seqPackages)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.packages[p.ID] = p
	tx.recordChange(Change{Entity: domain.EntityPackage, Action: domain.ActionCreate, After: p})
	return p, nil
}

// CreateProductGrade stores a grade reference record. Code is unique per
// product type.
func (tx *transaction) CreateProductGrade(g ProductGrade) (ProductGrade, error) {
	for _, existing := range tx.state.grades {
		if existing.Code == g.Code && existing.ProductType == g.ProductType {
			return ProductGrade{}, domain.ConflictError{Entity: domain.EntityProductGrade, Key: g.Code, Reason: "code already exists for product type"}
		}
	}
	if g.ID == 0 {
		g.ID = tx.nextID(seqGrades)
	}
	g.CreatedAt = tx.now
	g.UpdatedAt = tx.now
	tx.state.grades[g.ID] = g
	tx.recordChange(Change{Entity: domain.EntityProductGrade, Action: domain.ActionCreate, After: g})
	return g, nil
}

// DeleteProductGrade removes a grade unless a processing batch box still
// references it.
func (tx *transaction) DeleteProductGrade(id uint64) error {
	current, ok := tx.state.grades[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityProductGrade, Key: formatID(id)}
	}
	for _, batch := range tx.state.batches {
		for _, box := range batch.Boxes {
			if box.Grade == current.Code && box.Type == current.ProductType {
				return domain.ReferentialIntegrityError{
					Entity:       domain.EntityProductGrade,
					Key:          current.Code,
					ReferencedBy: domain.EntityProcessingBatch,
					ReferenceKey: formatID(batch.ID),
				}
			}
		}
	}
	delete(tx.state.grades, id)
	tx.recordChange(Change{Entity: domain.EntityProductGrade, Action: domain.ActionDelete, Before: current})
	return nil
}

// stateView exposes a read-only snapshot of store state to rules and readers.
type stateView struct {
	state *memoryState
}

var _ TransactionView = stateView{}

func (v stateView) FindSupplier(id uint64) (Supplier, bool) {
	s, ok := v.state.suppliers[id]
	return s, ok
}

func (v stateView) ListSuppliers() []Supplier {
	out := make([]Supplier, 0, len(v.state.suppliers))
	for _, s := range v.state.suppliers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v stateView) FindReceipt(id uint64) (RawMaterial, bool) {
	r, ok := v.state.receipts[id]
	if !ok {
		return RawMaterial{}, false
	}
	return cloneReceipt(r), true
}

func (v stateView) ListReceipts() []RawMaterial {
	out := make([]RawMaterial, 0, len(v.state.receipts))
	for _, r := range v.state.receipts {
		out = append(out, cloneReceipt(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v stateView) FindLot(lotNumber string) (Lot, bool) {
	l, ok := v.state.lots[lotNumber]
	if !ok {
		return Lot{}, false
	}
	return cloneLot(l), true
}

func (v stateView) ListLots() []Lot {
	out := make([]Lot, 0, len(v.state.lots))
	for _, l := range v.state.lots {
		out = append(out, cloneLot(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v stateView) ListProcessingBatches() []ProcessingBatch {
	out := make([]ProcessingBatch, 0, len(v.state.batches))
	for _, b := range v.state.batches {
		out = append(out, cloneBatch(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v stateView) ListShellWeights() []ShellWeight {
	out := make([]ShellWeight, 0, len(v.state.shellWeights))
	for _, w := range v.state.shellWeights {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v stateView) ListPackages() []Package {
	out := make([]Package, 0, len(v.state.packages))
	for _, p := range v.state.packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v stateView) FindProductGrade(code string, productType domain.ProductType) (ProductGrade, bool) {
	for _, g := range v.state.grades {
		if g.Code == code && g.ProductType == productType {
			return g, true
		}
	}
	return ProductGrade{}, false
}

func (v stateView) ListProductGrades() []ProductGrade {
	out := make([]ProductGrade, 0, len(v.state.grades))
	for _, g := range v.state.grades {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Read helpers ---------------------------------------------------------------

// GetSupplier retrieves a supplier by ID from committed state.
func (s *Store) GetSupplier(id uint64) (Supplier, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sup, ok := s.state.suppliers[id]
	return sup, ok
}

// ListSuppliers returns all suppliers from committed state.
func (s *Store) ListSuppliers() []Supplier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stateView{state: &s.state}.ListSuppliers()
}

// GetReceipt retrieves a receipt by ID from committed state.
func (s *Store) GetReceipt(id uint64) (RawMaterial, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.state.receipts[id]
	if !ok {
		return RawMaterial{}, false
	}
	return cloneReceipt(r), true
}

// ListReceipts returns all receipts from committed state.
func (s *Store) ListReceipts() []RawMaterial {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stateView{state: &s.state}.ListReceipts()
}

// GetLot retrieves a lot by business lot number from committed state.
func (s *Store) GetLot(lotNumber string) (Lot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.state.lots[lotNumber]
	if !ok {
		return Lot{}, false
	}
	return cloneLot(l), true
}

// ListLots returns all lots from committed state.
func (s *Store) ListLots() []Lot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stateView{state: &s.state}.ListLots()
}

// ListProcessingBatches returns all processing batches.
func (s *Store) ListProcessingBatches() []ProcessingBatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stateView{state: &s.state}.ListProcessingBatches()
}

// ListShellWeights returns all shell-weight ledger entries.
func (s *Store) ListShellWeights() []ShellWeight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stateView{state: &s.state}.ListShellWeights()
}

// ListPackages returns all package records.
func (s *Store) ListPackages() []Package {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stateView{state: &s.state}.ListPackages()
}

// ListProductGrades returns all grade reference records.
func (s *Store) ListProductGrades() []ProductGrade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stateView{state: &s.state}.ListProductGrades()
}
