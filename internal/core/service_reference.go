package core

import (
	"context"

	"clamflow/pkg/domain"
)

// CreateSupplier registers a licensed raw material source.
func (s *Service) CreateSupplier(ctx context.Context, name, contact, licenseNumber string) (Supplier, Result, error) {
	ctx, finish := s.instrument(ctx, "create_supplier")
	if name == "" {
		err := domain.ValidationError{Field: "name", Reason: "must not be empty"}
		finish("", err)
		return Supplier{}, Result{}, err
	}
	var created Supplier
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateSupplier(Supplier{Name: name, Contact: contact, LicenseNumber: licenseNumber})
		return err
	})
	finish(formatEntityID(created.ID), err)
	return created, res, err
}

// UpdateSupplier mutates a supplier using the provided mutator.
func (s *Service) UpdateSupplier(ctx context.Context, id uint64, mutator func(*Supplier) error) (Supplier, Result, error) {
	ctx, finish := s.instrument(ctx, "update_supplier")
	var updated Supplier
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateSupplier(id, mutator)
		return err
	})
	finish(formatEntityID(id), err)
	return updated, res, err
}

// DeleteSupplier removes a supplier. Deletion is rejected while any receipt
// still references the supplier.
func (s *Service) DeleteSupplier(ctx context.Context, id uint64) (Result, error) {
	ctx, finish := s.instrument(ctx, "delete_supplier")
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteSupplier(id)
	})
	finish(formatEntityID(id), err)
	return res, err
}

// ListSuppliers returns every supplier ordered by id.
func (s *Service) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	var out []Supplier
	err := s.store.View(ctx, func(view TransactionView) error {
		out = view.ListSuppliers()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateProductGrade registers a grade code for a product type. Codes are
// unique per product type.
func (s *Service) CreateProductGrade(ctx context.Context, code, name, description string, productType ProductType) (ProductGrade, Result, error) {
	ctx, finish := s.instrument(ctx, "create_product_grade")
	if code == "" {
		err := domain.ValidationError{Field: "code", Reason: "must not be empty"}
		finish("", err)
		return ProductGrade{}, Result{}, err
	}
	if productType != ProductShellOn && productType != ProductMeat {
		err := domain.ValidationError{Field: "productType", Reason: "unknown product type"}
		finish(code, err)
		return ProductGrade{}, Result{}, err
	}
	var created ProductGrade
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateProductGrade(ProductGrade{Code: code, Name: name, Description: description, ProductType: productType})
		return err
	})
	finish(code, err)
	return created, res, err
}

// DeleteProductGrade removes a grade. Deletion is rejected while any
// processing batch box still references the grade.
func (s *Service) DeleteProductGrade(ctx context.Context, id uint64) (Result, error) {
	ctx, finish := s.instrument(ctx, "delete_product_grade")
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteProductGrade(id)
	})
	finish(formatEntityID(id), err)
	return res, err
}

// ListProductGrades returns every grade ordered by id.
func (s *Service) ListProductGrades(ctx context.Context) ([]ProductGrade, error) {
	var out []ProductGrade
	err := s.store.View(ctx, func(view TransactionView) error {
		out = view.ListProductGrades()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
