package memory

import (
	"strconv"

	"clamflow/pkg/domain"
)

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// ExportState returns a deep-copied snapshot of the committed state. Durable
// backends serialize the result after every successful transaction.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromState(s.state)
}

// ImportState replaces the committed state with the provided snapshot after
// running it through the migration steps. A snapshot written by a newer
// schema fails with domain.SchemaVersionError and leaves the store untouched.
func (s *Store) ImportState(snapshot Snapshot) error {
	migrated, err := MigrateSnapshot(snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.state = stateFromSnapshot(migrated)
	s.mu.Unlock()
	return nil
}

func snapshotFromState(state memoryState) Snapshot {
	snap := Snapshot{
		SchemaVersion: SchemaVersion,
		Suppliers:     make(map[uint64]Supplier, len(state.suppliers)),
		Receipts:      make(map[uint64]RawMaterial, len(state.receipts)),
		Lots:          make(map[string]Lot, len(state.lots)),
		Batches:       make(map[uint64]ProcessingBatch, len(state.batches)),
		ShellWeights:  make(map[uint64]ShellWeight, len(state.shellWeights)),
		Packages:      make(map[uint64]Package, len(state.packages)),
		Grades:        make(map[uint64]ProductGrade, len(state.grades)),
		Sequences:     make(map[string]uint64, len(state.sequences)),
	}
	for k, v := range state.suppliers {
		snap.Suppliers[k] = v
	}
	for k, v := range state.receipts {
		snap.Receipts[k] = cloneReceipt(v)
	}
	for k, v := range state.lots {
		snap.Lots[k] = cloneLot(v)
	}
	for k, v := range state.batches {
		snap.Batches[k] = cloneBatch(v)
	}
	for k, v := range state.shellWeights {
		snap.ShellWeights[k] = v
	}
	for k, v := range state.packages {
		snap.Packages[k] = v
	}
	for k, v := range state.grades {
		snap.Grades[k] = v
	}
	for k, v := range state.sequences {
		snap.Sequences[k] = v
	}
	return snap
}

func stateFromSnapshot(snap Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range snap.Suppliers {
		state.suppliers[k] = v
	}
	for k, v := range snap.Receipts {
		state.receipts[k] = cloneReceipt(v)
	}
	for k, v := range snap.Lots {
		state.lots[k] = cloneLot(v)
	}
	for k, v := range snap.Batches {
		state.batches[k] = cloneBatch(v)
	}
	for k, v := range snap.ShellWeights {
		state.shellWeights[k] = v
	}
	for k, v := range snap.Packages {
		state.packages[k] = v
	}
	for k, v := range snap.Grades {
		state.grades[k] = v
	}
	for k, v := range snap.Sequences {
		state.sequences[k] = v
	}
	return state
}

// MigrateSnapshot carries a snapshot forward to the current schema version.
// Every step is idempotent and safe to re-run after an interruption: the
// grade seeding step checks whether the target bucket is already populated
// before inserting.
func MigrateSnapshot(snap Snapshot) (Snapshot, error) {
	if snap.SchemaVersion > SchemaVersion {
		return Snapshot{}, domain.SchemaVersionError{Found: snap.SchemaVersion, Supported: SchemaVersion}
	}
	snap = withInitializedBuckets(snap)
	for version := snap.SchemaVersion; version < SchemaVersion; version++ {
		step, ok := migrationSteps[version]
		if !ok {
			continue
		}
		snap = step(snap)
	}
	snap = normalizeDates(snap)
	snap = restoreSequences(snap)
	snap.SchemaVersion = SchemaVersion
	return snap, nil
}

// migrationSteps maps a from-version to the upgrade applied when loading a
// snapshot at that version. Versions below 4 predate the unified schema and
// only need bucket initialization plus the seed step.
var migrationSteps = map[int]func(Snapshot) Snapshot{
	0: seedProductGrades,
	4: seedProductGrades,
}

func withInitializedBuckets(snap Snapshot) Snapshot {
	if snap.Suppliers == nil {
		snap.Suppliers = make(map[uint64]Supplier)
	}
	if snap.Receipts == nil {
		snap.Receipts = make(map[uint64]RawMaterial)
	}
	if snap.Lots == nil {
		snap.Lots = make(map[string]Lot)
	}
	if snap.Batches == nil {
		snap.Batches = make(map[uint64]ProcessingBatch)
	}
	if snap.ShellWeights == nil {
		snap.ShellWeights = make(map[uint64]ShellWeight)
	}
	if snap.Packages == nil {
		snap.Packages = make(map[uint64]Package)
	}
	if snap.Grades == nil {
		snap.Grades = make(map[uint64]ProductGrade)
	}
	if snap.Sequences == nil {
		snap.Sequences = make(map[string]uint64)
	}
	return snap
}

// seedProductGrades inserts the default grade catalogue: codes A and B per
// product type. Idempotent: an already-populated bucket is left alone so a
// re-run after a partial migration never duplicates seed rows.
func seedProductGrades(snap Snapshot) Snapshot {
	if len(snap.Grades) > 0 {
		return snap
	}
	seeds := []ProductGrade{
		{Code: "A", Name: "Premium", Description: "Highest quality, uniform size, perfect condition", ProductType: domain.ProductShellOn},
		{Code: "B", Name: "Standard", Description: "Good quality, minor variations allowed", ProductType: domain.ProductShellOn},
		{Code: "A", Name: "Premium", Description: "Clean, white meat, no impurities", ProductType: domain.ProductMeat},
		{Code: "B", Name: "Standard", Description: "Good quality meat, slight color variations allowed", ProductType: domain.ProductMeat},
	}
	for _, seed := range seeds {
		snap.Sequences[seqGrades]++
		seed.ID = snap.Sequences[seqGrades]
		snap.Grades[seed.ID] = seed
	}
	return snap
}

// normalizeDates guarantees that every rehydrated record exposes real date
// values to callers regardless of the on-disk representation. Records whose
// business date deserialized as the zero value fall back to their creation
// timestamp.
func normalizeDates(snap Snapshot) Snapshot {
	for id, receipt := range snap.Receipts {
		if receipt.Date.IsZero() {
			receipt.Date = receipt.CreatedAt
			snap.Receipts[id] = receipt
		}
	}
	for id, batch := range snap.Batches {
		if batch.Date.IsZero() {
			batch.Date = batch.CreatedAt
			snap.Batches[id] = batch
		}
	}
	for id, pkg := range snap.Packages {
		if pkg.Date.IsZero() {
			pkg.Date = pkg.CreatedAt
			snap.Packages[id] = pkg
		}
	}
	for id, weight := range snap.ShellWeights {
		if weight.Date.IsZero() {
			weight.Date = weight.CreatedAt
			snap.ShellWeights[id] = weight
		}
	}
	return snap
}

// restoreSequences advances each identity sequence past the highest ID found
// in its bucket so imported snapshots never hand out duplicate identities.
func restoreSequences(snap Snapshot) Snapshot {
	bump := func(bucket string, id uint64) {
		if snap.Sequences[bucket] < id {
			snap.Sequences[bucket] = id
		}
	}
	for id := range snap.Suppliers {
		bump(seqSuppliers, id)
	}
	for id := range snap.Receipts {
		bump(seqReceipts, id)
	}
	for _, lot := range snap.Lots {
		bump(seqLots, lot.ID)
	}
	for id := range snap.Batches {
		bump(seqBatches, id)
	}
	for id := range snap.ShellWeights {
		bump(seqShellWeights, id)
	}
	for id := range snap.Packages {
		bump(seqPackages, id)
	}
	for id := range snap.Grades {
		bump(seqGrades, id)
	}
	return snap
}
