package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Either every mutation performed through
// a transaction commits, or none of them do.
type Transaction interface {
	Snapshot() TransactionView
	CreateSupplier(Supplier) (Supplier, error)
	UpdateSupplier(id uint64, mutator func(*Supplier) error) (Supplier, error)
	DeleteSupplier(id uint64) error
	CreateReceipt(RawMaterial) (RawMaterial, error)
	UpdateReceipt(id uint64, mutator func(*RawMaterial) error) (RawMaterial, error)
	CreateLot(Lot) (Lot, error)
	UpdateLot(lotNumber string, mutator func(*Lot) error) (Lot, error)
	CreateProcessingBatch(ProcessingBatch) (ProcessingBatch, error)
	CreateShellWeight(ShellWeight) (ShellWeight, error)
	DeleteShellWeight(id uint64) error
	CreatePackage(Package) (Package, error)
	CreateProductGrade(ProductGrade) (ProductGrade, error)
	DeleteProductGrade(id uint64) error
}

// TransactionView provides read-only access to snapshot data for rules and
// read-side joins.
type TransactionView interface {
	FindSupplier(id uint64) (Supplier, bool)
	ListSuppliers() []Supplier
	FindReceipt(id uint64) (RawMaterial, bool)
	ListReceipts() []RawMaterial
	FindLot(lotNumber string) (Lot, bool)
	ListLots() []Lot
	ListProcessingBatches() []ProcessingBatch
	ListShellWeights() []ShellWeight
	ListPackages() []Package
	FindProductGrade(code string, productType ProductType) (ProductGrade, bool)
	ListProductGrades() []ProductGrade
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers. Stores
// support concurrent readers; every multi-record mutation executes as one
// atomic transaction with serializable semantics.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetSupplier(id uint64) (Supplier, bool)
	ListSuppliers() []Supplier
	GetReceipt(id uint64) (RawMaterial, bool)
	ListReceipts() []RawMaterial
	GetLot(lotNumber string) (Lot, bool)
	ListLots() []Lot
	ListProcessingBatches() []ProcessingBatch
	ListShellWeights() []ShellWeight
	ListPackages() []Package
	ListProductGrades() []ProductGrade
	SchemaVersion() int
	Reset(ctx context.Context) error
	Close() error
}
