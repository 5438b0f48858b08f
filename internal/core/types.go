package core

import "clamflow/pkg/domain"

type (
	EntityType         = domain.EntityType
	ReceiptStatus      = domain.ReceiptStatus
	LotStatus          = domain.LotStatus
	BatchStatus        = domain.BatchStatus
	ProductType        = domain.ProductType
	Severity           = domain.Severity
	Base               = domain.Base
	Supplier           = domain.Supplier
	RawMaterial        = domain.RawMaterial
	Lot                = domain.Lot
	Box                = domain.Box
	ProcessingBatch    = domain.ProcessingBatch
	ShellWeight        = domain.ShellWeight
	Package            = domain.Package
	ProductGrade       = domain.ProductGrade
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
	RuleViolationError = domain.RuleViolationError
)

const (
	EntitySupplier        = domain.EntitySupplier
	EntityReceipt         = domain.EntityReceipt
	EntityLot             = domain.EntityLot
	EntityProcessingBatch = domain.EntityProcessingBatch
	EntityShellWeight     = domain.EntityShellWeight
	EntityPackage         = domain.EntityPackage
	EntityProductGrade    = domain.EntityProductGrade
)

const (
	ReceiptStatusPending  = domain.ReceiptStatusPending
	ReceiptStatusAssigned = domain.ReceiptStatusAssigned
)

const (
	LotStatusPending    = domain.LotStatusPending
	LotStatusProcessing = domain.LotStatusProcessing
	LotStatusCompleted  = domain.LotStatusCompleted
)

const (
	BatchStatusPending   = domain.BatchStatusPending
	BatchStatusCompleted = domain.BatchStatusCompleted
)

const (
	ProductShellOn = domain.ProductShellOn
	ProductMeat    = domain.ProductMeat
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
