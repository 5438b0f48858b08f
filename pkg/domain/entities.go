// Package domain defines the persistent entities, value types, and rule
// evaluation primitives for the shellfish processing traceability core.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntitySupplier identifies a supplier reference record.
	EntitySupplier EntityType = "supplier"
	// EntityReceipt identifies a raw material receipt record.
	EntityReceipt EntityType = "raw_material"
	// EntityLot identifies a lot record.
	EntityLot EntityType = "lot"
	// EntityProcessingBatch identifies a processing batch record.
	EntityProcessingBatch EntityType = "processing_batch"
	// EntityShellWeight identifies a shell weight ledger entry.
	EntityShellWeight EntityType = "shell_weight"
	// EntityPackage identifies a sealed package record.
	EntityPackage EntityType = "package"
	// EntityProductGrade identifies a product grade reference record.
	EntityProductGrade EntityType = "product_grade"
)

// ReceiptStatus tracks whether a raw material receipt has been grouped into a lot.
type ReceiptStatus string

// Receipt lifecycle states.
const (
	ReceiptStatusPending  ReceiptStatus = "pending"
	ReceiptStatusAssigned ReceiptStatus = "assigned"
)

// LotStatus represents the canonical lot lifecycle states.
type LotStatus string

// Canonical lot statuses. Transitions run pending -> processing -> completed;
// completed is terminal.
const (
	LotStatusPending    LotStatus = "pending"
	LotStatusProcessing LotStatus = "processing"
	LotStatusCompleted  LotStatus = "completed"
)

// BatchStatus enumerates processing batch workflow states.
type BatchStatus string

// Canonical batch statuses.
const (
	BatchStatusPending   BatchStatus = "pending"
	BatchStatusCompleted BatchStatus = "completed"
)

// ProductType distinguishes shell-on product from picked meat.
type ProductType string

// Supported product types for boxes, packages, and grades.
const (
	ProductShellOn ProductType = "shell-on"
	ProductMeat    ProductType = "meat"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records. Identities are numeric
// and allocated from per-bucket sequences that never reuse values.
type Base struct {
	ID        uint64    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Supplier is an immutable reference entity describing a licensed source of
// raw material.
type Supplier struct {
	Base
	Name          string `json:"name"`
	Contact       string `json:"contact"`
	LicenseNumber string `json:"license_number"`
}

// RawMaterial records one incoming delivery (a receipt) from a supplier. It
// starts pending and is stamped with a lot number when assembled into a lot.
type RawMaterial struct {
	Base
	SupplierID uint64        `json:"supplier_id"`
	Weight     float64       `json:"weight"`
	PhotoURL   string        `json:"photo_url"`
	Date       time.Time     `json:"date"`
	LotNumber  *string       `json:"lot_number"`
	Status     ReceiptStatus `json:"status"`
}

// Lot aggregates one or more receipts processed as a unit. TotalWeight is a
// snapshot taken at assembly time, never a derived view.
type Lot struct {
	Base
	LotNumber   string    `json:"lot_number"`
	ReceiptIDs  []uint64  `json:"receipt_ids"`
	TotalWeight float64   `json:"total_weight"`
	Notes       string    `json:"notes,omitempty"`
	Status      LotStatus `json:"status"`
}

// Box is a graded sub-quantity of product recorded during processing.
type Box struct {
	Type      ProductType `json:"type"`
	Weight    float64     `json:"weight"`
	BoxNumber string      `json:"box_number"`
	Grade     string      `json:"grade"`
}

// ProcessingBatch records one processing event for a lot, including graded
// boxes and the derived weight totals.
type ProcessingBatch struct {
	Base
	LotNumber       string      `json:"lot_number"`
	ShellOnWeight   float64     `json:"shell_on_weight"`
	MeatWeight      float64     `json:"meat_weight"`
	Boxes           []Box       `json:"boxes"`
	Date            time.Time   `json:"date"`
	YieldPercentage float64     `json:"yield_percentage"`
	Status          BatchStatus `json:"status"`
}

// ShellWeight is a standalone ledger entry for a shell-weight observation.
// Entries carry no foreign keys and are never updated in place.
type ShellWeight struct {
	Base
	Weight float64   `json:"weight"`
	Date   time.Time `json:"date"`
	Notes  string    `json:"notes,omitempty"`
}

// Package is the terminal record for a physically sealed output unit.
type Package struct {
	Base
	LotNumber string      `json:"lot_number"`
	Type      ProductType `json:"type"`
	Weight    float64     `json:"weight"`
	BoxNumber string      `json:"box_number"`
	Grade     string      `json:"grade"`
	QRCode    string      `json:"qr_code"`
	Date      time.Time   `json:"date"`
}

// ProductGrade is a seeded reference entity consulted when grading boxes.
type ProductGrade struct {
	Base
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	ProductType ProductType `json:"product_type"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
